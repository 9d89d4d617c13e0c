package main

import (
	stderrors "errors"
	"fmt"
	"time"

	"devjourney/internal/storage"

	"github.com/spf13/cobra"
)

var (
	historyRepo     string
	historyLanguage string
	historySince    string
	historyLimit    int
	historyBefore   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived session reports",
	Long: `Browse the session reports archived by 'devjourney analyze'.

Examples:
  devjourney history
  devjourney history --language python --since 30d
  devjourney history show <id>
  devjourney history search "async def"
  devjourney history prune --before 90d`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an archived report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search archived snippets",
	Long: `Search the code snippets of archived hits. Phrase matches come
first, then prefix matches, then plain substring matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistorySearch,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archived reports older than a cutoff",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.Flags().StringVar(&historyRepo, "repo", "", "Only reports for this repository")
	historyCmd.Flags().StringVar(&historyLanguage, "language", "", "Only reports for this language")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only reports created after (duration or date)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", storage.DefaultListLimit, "Maximum results to return")
	historySearchCmd.Flags().IntVar(&historyLimit, "limit", storage.DefaultListLimit, "Maximum results to return")
	historyPruneCmd.Flags().StringVar(&historyBefore, "before", "", "Cutoff: duration back from now (90d) or date")
	_ = historyPruneCmd.MarkFlagRequired("before")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

// withArchive runs fn against the opened archive and prints its response.
func withArchive(cmd *cobra.Command, fn func(env *appEnv, a *storage.Archive) (interface{}, error)) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	archive, closeArchive, err := env.openArchive()
	if err != nil {
		return err
	}
	defer closeArchive()

	resp, err := fn(env, archive)
	if err != nil {
		return err
	}
	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	return withArchive(cmd, func(env *appEnv, a *storage.Archive) (interface{}, error) {
		filter := storage.Filter{Repo: historyRepo, Language: historyLanguage, Limit: historyLimit}
		if historySince != "" {
			since, err := parseSince(historySince, time.Now())
			if err != nil {
				return nil, err
			}
			filter.Since = since
		}

		ctx, cancel := newContext(cmd)
		defer cancel()
		summaries, err := a.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return &HistoryResponseCLI{Reports: summaries}, nil
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withArchive(cmd, func(env *appEnv, a *storage.Archive) (interface{}, error) {
		ctx, cancel := newContext(cmd)
		defer cancel()
		report, err := a.Get(ctx, args[0])
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no archived report with id %s", args[0])
		}
		return report, err
	})
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	return withArchive(cmd, func(env *appEnv, a *storage.Archive) (interface{}, error) {
		ctx, cancel := newContext(cmd)
		defer cancel()
		results, err := a.SearchHits(ctx, args[0], historyLimit)
		if err != nil {
			return nil, err
		}
		return &SearchResponseCLI{Query: args[0], Results: results}, nil
	})
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	return withArchive(cmd, func(env *appEnv, a *storage.Archive) (interface{}, error) {
		cutoff, err := parseSince(historyBefore, time.Now())
		if err != nil {
			return nil, err
		}
		ctx, cancel := newContext(cmd)
		defer cancel()
		n, err := a.Prune(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		env.logger.Info("Pruned archive", "deleted", n, "before", cutoff.Format(time.RFC3339))
		return &PruneResponseCLI{Before: cutoff, Deleted: n}, nil
	})
}
