package main

import (
	"fmt"
	"time"

	"devjourney/internal/paths"
	"devjourney/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	reposAddTags []string
	reposListTag string
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage the repositories analyzed by --all",
	Long: `Manage the workspace: the named repositories 'devjourney analyze --all'
walks through. Tags such as "learning" or "work" let --tag pick a subset.

Workspace location: <home>/repos.toml`,
}

var reposAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a repository",
	Args:  cobra.ExactArgs(2),
	RunE:  runReposAdd,
}

var reposRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Unregister a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runReposRemove,
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered repositories",
	RunE:  runReposList,
}

func init() {
	reposAddCmd.Flags().StringSliceVar(&reposAddTags, "tag", nil, "Tag the repository (repeatable)")
	reposListCmd.Flags().StringVar(&reposListTag, "tag", "", "Only repositories carrying this tag")

	reposCmd.AddCommand(reposAddCmd)
	reposCmd.AddCommand(reposRemoveCmd)
	reposCmd.AddCommand(reposListCmd)
	rootCmd.AddCommand(reposCmd)
}

func runReposAdd(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	var added *workspace.Repo
	_, err = workspace.Update(paths.ReposPath(env.home), func(ws *workspace.Workspace) error {
		r, err := ws.Add(args[0], args[1], reposAddTags, time.Now())
		added = r
		return err
	})
	if err != nil {
		return err
	}
	env.logger.Info("Repository registered", "name", added.Name, "path", added.Path)

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n  Path: %s\n", added.Name, added.Path)
	return nil
}

func runReposRemove(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	_, err = workspace.Update(paths.ReposPath(env.home), func(ws *workspace.Workspace) error {
		return ws.Remove(args[0])
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

func runReposList(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	ws, err := workspace.Load(paths.ReposPath(env.home))
	if err != nil {
		return err
	}

	out, err := FormatResponse(buildRepos(ws.List(reposListTag)), format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
