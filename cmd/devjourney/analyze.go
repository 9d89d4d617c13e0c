package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"devjourney/internal/diffsource"
	"devjourney/internal/paths"
	"devjourney/internal/session"
	"devjourney/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	analyzeSince      string
	analyzeUntil      string
	analyzeHours      int
	analyzeAuthor     string
	analyzeAll        bool
	analyzeTag        string
	analyzePatch      string
	analyzeRepoName   string
	analyzeNoArchive  bool
	analyzeMaxCommits int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path...]",
	Short: "Analyze recent commits and update your journeys",
	Long: `Analyze the commits in a time window, recognize the concepts they
exercise, update the per-language journeys and print a session report with
recommendations.

Without paths the current directory is analyzed. With --all every
repository registered with 'devjourney repos add' is analyzed.

Examples:
  devjourney analyze                      # current repository, last 24 hours
  devjourney analyze --hours 48
  devjourney analyze --since 7d --all
  devjourney analyze --since 2026-01-01 --until 2026-01-31 ~/code/app
  git diff main | devjourney analyze --patch - --repo-name app`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeSince, "since", "", "Start of the window: duration back from now (24h, 7d, 2w) or date")
	f.StringVar(&analyzeUntil, "until", "", "End of the window (date, inclusive); default now")
	f.IntVar(&analyzeHours, "hours", 0, "Window length in hours (default: analysis.sinceHours)")
	f.StringVar(&analyzeAuthor, "author", "", "Only commits whose author matches (default: analysis.author)")
	f.BoolVar(&analyzeAll, "all", false, "Analyze every registered repository")
	f.StringVar(&analyzeTag, "tag", "", "With --all, only repositories carrying this tag")
	f.StringVar(&analyzePatch, "patch", "", "Analyze a unified diff file instead of git history (- for stdin)")
	f.StringVar(&analyzeRepoName, "repo-name", "", "Repository name recorded in the journey")
	f.BoolVar(&analyzeNoArchive, "no-archive", false, "Do not store the reports in the archive")
	f.IntVar(&analyzeMaxCommits, "max-commits", 0, "Maximum commits per repository (default: analysis.maxCommits)")

	analyzeCmd.MarkFlagsMutuallyExclusive("since", "hours")
	analyzeCmd.MarkFlagsMutuallyExclusive("patch", "all")
	rootCmd.AddCommand(analyzeCmd)
}

// analyzeTarget is one repository to collect history from.
type analyzeTarget struct {
	name string
	path string
	// named is set when the name came from the workspace or --repo-name
	named bool
	// registered is set when the repository is in the workspace
	registered bool
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.logger

	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	if analyzeHours < 0 {
		return fmt.Errorf("--hours must be a positive number")
	}
	if analyzePatch != "" && len(args) > 0 {
		return fmt.Errorf("--patch cannot be combined with paths")
	}

	hours := env.cfg.Analysis.SinceHours
	if analyzeHours > 0 {
		hours = analyzeHours
	}
	window, err := parseWindow(analyzeSince, analyzeUntil, hours, time.Now())
	if err != nil {
		return err
	}

	cat, err := env.loadCatalog()
	if err != nil {
		return err
	}

	var sink session.Sink
	if env.cfg.Archive.Enabled && !analyzeNoArchive {
		archive, closeArchive, err := env.openArchive()
		if err != nil {
			return err
		}
		defer closeArchive()
		sink = archive
	}

	agg := session.New(cat, env.journeyStore(), sink, session.Options{
		MaxSnippetChars: env.cfg.Matcher.MaxSnippetChars,
		RecommendLimit:  env.cfg.Recommend.Limit,
		Concurrency:     env.cfg.Analysis.Concurrency,
	}, logger)

	ctx, cancel := newContext(cmd)
	defer cancel()

	var (
		inputs   []session.Input
		analyzed []string
		errs     []error
	)
	if analyzePatch != "" {
		in, err := patchInput(cmd)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	} else {
		targets, err := resolveTargets(ctx, env.home, args)
		if err != nil {
			return err
		}
		opts := diffsource.Options{
			MaxCommits:   env.cfg.Analysis.MaxCommits,
			MaxDiffLines: env.cfg.Analysis.MaxDiffLines,
			Timeout:      time.Duration(env.cfg.Analysis.GitTimeoutMs) * time.Millisecond,
			Author:       env.cfg.Analysis.Author,
			Concurrency:  env.cfg.Analysis.Concurrency,
		}
		if analyzeMaxCommits > 0 {
			opts.MaxCommits = analyzeMaxCommits
		}
		if analyzeAuthor != "" {
			opts.Author = analyzeAuthor
		}

		for i := range targets {
			t := &targets[i]
			coll, err := collect(ctx, t, opts, window, logger)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
				continue
			}
			logger.Info("Collected history", "repo", t.name, "commits", len(coll.Commits), "files", len(coll.Records))
			inputs = append(inputs, coll.Input(t.name))
			if t.registered {
				analyzed = append(analyzed, t.name)
			}
		}
	}

	reports, err := agg.AnalyzeAll(ctx, inputs)
	if err != nil {
		errs = append(errs, err)
	}

	if len(analyzed) > 0 {
		markAnalyzed(env, analyzed, time.Now())
	}

	resp := &AnalyzeResponseCLI{Reports: reports}
	for _, e := range errs {
		resp.Errors = append(resp.Errors, buildError(e))
	}
	out, ferr := FormatResponse(resp, format)
	if ferr != nil {
		return ferr
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	return stderrors.Join(errs...)
}

// resolveTargets turns arguments, or the workspace with --all, into the
// repositories to analyze. Paths registered in the workspace use their
// registered name.
func resolveTargets(ctx context.Context, home string, args []string) ([]analyzeTarget, error) {
	ws, err := workspace.Load(paths.ReposPath(home))
	if err != nil {
		return nil, err
	}

	if analyzeAll {
		repos := ws.List(analyzeTag)
		if len(repos) == 0 {
			return nil, fmt.Errorf("no repositories registered; use 'devjourney repos add <name> <path>'")
		}
		targets := make([]analyzeTarget, 0, len(repos))
		for _, r := range repos {
			targets = append(targets, analyzeTarget{name: r.Name, path: r.Path, named: true, registered: true})
		}
		return targets, nil
	}

	if len(args) == 0 {
		args = []string{"."}
	}
	if analyzeRepoName != "" && len(args) > 1 {
		return nil, fmt.Errorf("--repo-name needs a single path")
	}

	targets := make([]analyzeTarget, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		t := analyzeTarget{name: filepath.Base(abs), path: abs}
		if r, err := ws.GetByPath(abs); err == nil && r != nil {
			t.name = r.Name
			t.named = true
			t.registered = true
		}
		if analyzeRepoName != "" {
			t.name = analyzeRepoName
			t.named = true
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// collect reads the target's history. Unnamed targets take the name of
// their repository root.
func collect(ctx context.Context, t *analyzeTarget, opts diffsource.Options, window session.Window, logger *slog.Logger) (*diffsource.Collection, error) {
	src, err := diffsource.NewGitSource(ctx, t.path, opts, logger)
	if err != nil {
		return nil, err
	}
	if !t.named {
		t.name = filepath.Base(src.Root())
	}
	col, err := src.Collect(ctx, window)
	if err != nil {
		return nil, err
	}
	if col.State != nil && col.State.Dirty() {
		logger.Warn("Uncommitted changes are not analyzed", "repo", t.name, "pending", col.State.Pending)
	}
	return col, nil
}

// patchInput reads a unified diff from --patch. A patch has no window.
func patchInput(cmd *cobra.Command) (session.Input, error) {
	var r io.Reader
	if analyzePatch == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(analyzePatch)
		if err != nil {
			return session.Input{}, fmt.Errorf("failed to open patch: %w", err)
		}
		defer f.Close()
		r = f
	}

	records, err := diffsource.ParsePatch(r)
	if err != nil {
		return session.Input{}, err
	}

	name := analyzeRepoName
	if name == "" {
		name = "patch"
		if analyzePatch != "-" {
			name = filepath.Base(analyzePatch)
		}
	}
	return session.Input{Repo: name, Records: records, Commits: 1}, nil
}

// markAnalyzed stamps registered repositories. Failures are only logged;
// the journeys are already saved.
func markAnalyzed(env *appEnv, names []string, at time.Time) {
	_, err := workspace.Update(paths.ReposPath(env.home), func(ws *workspace.Workspace) error {
		for _, name := range names {
			if err := ws.MarkAnalyzed(name, at); err != nil {
				env.logger.Debug("Repository left the workspace during analysis", "repo", name)
			}
		}
		return nil
	})
	if err != nil {
		env.logger.Warn("Failed to record analysis time", "error", err.Error())
	}
}
