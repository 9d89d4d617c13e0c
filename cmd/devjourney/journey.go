package main

import (
	"fmt"
	"os"
	"time"

	"devjourney/internal/errors"
	"devjourney/internal/journey"

	"github.com/spf13/cobra"
)

var journeyOut string

var journeyCmd = &cobra.Command{
	Use:   "journey",
	Short: "Inspect per-language journeys",
	Long: `Inspect the mastery ledger kept for each language.

A concept seen in one session is introduced, in two practicing and in
three or more mastered.`,
}

var journeyShowCmd = &cobra.Command{
	Use:   "show <language>",
	Short: "Show the stage of every concept for a language",
	Long: `Show the stage of every concept for a language.

Examples:
  devjourney journey show python
  devjourney journey show "React Native" --format human
  devjourney journey show go --format markdown --out journey-go.md`,
	Args: cobra.ExactArgs(1),
	RunE: runJourneyShow,
}

var journeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List languages with a journey",
	RunE:  runJourneyList,
}

func init() {
	journeyShowCmd.Flags().StringVar(&journeyOut, "out", "", "Write the output to a file instead of stdout")

	journeyCmd.AddCommand(journeyShowCmd)
	journeyCmd.AddCommand(journeyListCmd)
	rootCmd.AddCommand(journeyCmd)
}

func runJourneyShow(cmd *cobra.Command, args []string) error {
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
	table, tracked := cat.Table(language)

	var warnings []string
	rec, err := env.journeyStore().Load(language)
	if err != nil {
		if !errors.Recoverable(err) {
			return err
		}
		env.logger.Warn("Journey file is unreadable", "language", language, "error", err.Error())
		warnings = append(warnings, err.Error())
	}
	if !tracked && len(rec.Concepts) == 0 && len(rec.Sessions) == 0 && len(warnings) == 0 {
		return errors.New(errors.UnsupportedLanguage,
			fmt.Sprintf("no journey and no concept catalog for %q", language), nil, nil)
	}

	resp := buildJourneyResponse(table, rec, time.Now())
	resp.Warnings = warnings

	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	if journeyOut != "" {
		if err := os.WriteFile(journeyOut, []byte(out+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", journeyOut, err)
		}
		env.logger.Info("Journey written", "path", journeyOut)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runJourneyList(cmd *cobra.Command, args []string) error {
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

	store := env.journeyStore()
	langs, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list journeys: %w", err)
	}

	resp := &JourneyListResponseCLI{Journeys: []JourneySummaryCLI{}}
	for _, lang := range langs {
		table, _ := cat.Table(lang)
		rec, err := store.Load(lang)
		corrupt := false
		if err != nil {
			if !errors.Recoverable(err) {
				return err
			}
			corrupt = true
			rec = journey.NewRecord(lang)
		}
		sum := summarizeJourney(lang, table, rec)
		sum.Corrupt = corrupt
		resp.Journeys = append(resp.Journeys, sum)
	}

	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
