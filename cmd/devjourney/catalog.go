package main

import (
	"fmt"

	"devjourney/internal/catalog"
	"devjourney/internal/errors"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect concept catalogs",
	Long: `Inspect the concept catalogs: the built-in ones plus any TOML extension
catalogs in the catalog directory (default <home>/catalogs).

An extension catalog for a language replaces the built-in one.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list [language]",
	Short: "List catalogs, or the concepts of one language",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogList,
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate the built-in and extension catalogs",
	Long: `Validate the built-in and extension catalogs.

Checks that concept ids are unique, successors exist, the successor graph
has no cycle and every pattern compiles. Exits non-zero on the first
problem found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalogValidate,
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
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

	resp := &CatalogResponseCLI{}
	if len(args) == 1 {
		table, ok := cat.Table(args[0])
		if !ok {
			return errors.New(errors.UnsupportedLanguage,
				fmt.Sprintf("no concept catalog for language %q", args[0]), nil, nil)
		}
		resp.Languages = []CatalogLanguageCLI{buildCatalogLanguage(table, true)}
	} else {
		for _, t := range cat.Languages() {
			resp.Languages = append(resp.Languages, buildCatalogLanguage(t, false))
		}
	}

	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}

	dir := env.cfg.CatalogDir
	if len(args) == 1 {
		dir = args[0]
	}
	cat, err := catalog.Load(dir, env.logger)
	if err != nil {
		return err
	}

	resp := &CatalogResponseCLI{Valid: true}
	for _, t := range cat.Languages() {
		resp.Languages = append(resp.Languages, buildCatalogLanguage(t, false))
	}
	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
