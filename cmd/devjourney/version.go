package main

import (
	"fmt"

	"devjourney/internal/version"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(formatFlag)
		if err != nil {
			return err
		}
		b := version.Get()
		out, err := FormatResponse(&VersionResponseCLI{
			Version:   b.Version,
			Commit:    b.Commit,
			BuildDate: b.BuildDate,
			Modified:  b.Modified,
		}, format)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
