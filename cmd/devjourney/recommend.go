package main

import (
	"fmt"

	"devjourney/internal/errors"
	"devjourney/internal/recommend"

	"github.com/spf13/cobra"
)

var recommendLimit int

var recommendCmd = &cobra.Command{
	Use:   "recommend <language>",
	Short: "Recommend concepts to learn next",
	Long: `Recommend concepts to learn next from the current journey alone,
without analyzing new commits.

Examples:
  devjourney recommend python
  devjourney recommend go --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", 0, "Maximum recommendations (default: recommend.limit)")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	cat, err := env.loadCatalog()
	if err != nil {
		return err
	}

	language := args[0]
	defs, err := cat.DefinitionsFor(language)
	if err != nil {
		return err
	}
	table, _ := cat.Table(language)

	rec, err := env.journeyStore().Load(language)
	if err != nil {
		if !errors.Recoverable(err) {
			return err
		}
		env.logger.Warn("Journey file is unreadable, recommending from scratch", "language", language, "error", err.Error())
	}

	limit := env.cfg.Recommend.Limit
	if recommendLimit > 0 {
		limit = recommendLimit
	}

	resp := &RecommendResponseCLI{
		Language:        table.Language,
		Recommendations: recommend.Recommend(defs, rec, nil, limit),
	}
	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
