package main

import (
	"devjourney/internal/version"

	"github.com/spf13/cobra"
)

var (
	// verboseFlag counts -v occurrences
	verboseFlag int
	quietFlag   bool
	homeFlag    string
	formatFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "devjourney",
	Short: "devjourney - track the programming concepts you practice",
	Long: `devjourney reads your recent git history, recognizes the programming
concepts your changes exercise, keeps a per-language mastery journey and
recommends what to learn next.

Journeys, catalogs and the report archive live under the devjourney home
($DEVJOURNEY_HOME or ~/.devjourney).`,
	Version:       version.Get().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("devjourney version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all log output")
	pf.StringVar(&homeFlag, "home", "", "Home directory (default: $DEVJOURNEY_HOME or ~/.devjourney)")
	pf.StringVar(&formatFlag, "format", string(FormatAuto), "Output format (json, human, auto)")
}
