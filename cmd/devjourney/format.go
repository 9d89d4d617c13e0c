package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"devjourney/internal/journey"
	"devjourney/internal/output"
	"devjourney/internal/session"

	"github.com/mattn/go-isatty"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON     OutputFormat = "json"
	FormatHuman    OutputFormat = "human"
	FormatMarkdown OutputFormat = "markdown"
	// FormatAuto picks human on a terminal and json otherwise
	FormatAuto OutputFormat = "auto"
)

// resolveFormat turns auto into a concrete format by looking at stdout.
func resolveFormat(format string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(format)); f {
	case FormatJSON, FormatHuman, FormatMarkdown:
		return f, nil
	case FormatAuto, "":
		fd := os.Stdout.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return FormatHuman, nil
		}
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	case FormatMarkdown:
		return formatMarkdown(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as indented JSON with sorted keys
func formatJSON(resp interface{}) (string, error) {
	data, err := output.DeterministicEncodeIndented(resp, "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *AnalyzeResponseCLI:
		return formatAnalyzeHuman(v), nil
	case *session.Report:
		return formatReportHuman(v), nil
	case *JourneyResponseCLI:
		return formatJourneyHuman(v), nil
	case *JourneyListResponseCLI:
		return formatJourneyListHuman(v), nil
	case *RecommendResponseCLI:
		return formatRecommendHuman(v), nil
	case *CatalogResponseCLI:
		return formatCatalogHuman(v), nil
	case *ReposResponseCLI:
		return formatReposHuman(v), nil
	case *HistoryResponseCLI:
		return formatHistoryHuman(v), nil
	case *SearchResponseCLI:
		return formatSearchHuman(v), nil
	case *PruneResponseCLI:
		return fmt.Sprintf("Deleted %d report(s) created before %s", v.Deleted, formatDate(v.Before)), nil
	case *VersionResponseCLI:
		return fmt.Sprintf("devjourney version %s\nCommit: %s\nBuilt: %s", v.Version, v.Commit, v.BuildDate), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// formatMarkdown renders journeys as markdown; other responses fall back to human.
func formatMarkdown(resp interface{}) (string, error) {
	if v, ok := resp.(*JourneyResponseCLI); ok {
		return renderJourneyMarkdown(v), nil
	}
	return formatHuman(resp)
}

func formatAnalyzeHuman(resp *AnalyzeResponseCLI) string {
	var b strings.Builder
	if len(resp.Reports) == 0 {
		b.WriteString("No activity found in the selected window.\n")
	}
	for i, r := range resp.Reports {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(formatReportHuman(r))
		b.WriteString("\n")
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(&b, "\nError: %s\n", e.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatReportHuman(r *session.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s | %d commit(s)\n", r.Repo, r.LanguageName, r.Commits)
	fmt.Fprintf(&b, "  Window: %s\n", formatWindow(r.Window))
	fmt.Fprintf(&b, "  Changes: +%d -%d in %d file(s)\n", r.Stats.AddedLines, r.Stats.RemovedLines, r.Stats.Units)

	if !r.Tracked {
		b.WriteString("  Concepts are not tracked for this language.\n")
	} else if len(r.Hits) == 0 {
		b.WriteString("  No concepts recognized.\n")
	} else {
		b.WriteString("\n  Concepts practiced:\n")
		stageOf := make(map[string]session.Transition, len(r.Transitions))
		for _, t := range r.Transitions {
			stageOf[t.ConceptID] = t
		}
		for _, h := range r.Hits {
			line := "    - " + h.ConceptID
			if t, ok := stageOf[h.ConceptID]; ok {
				line = fmt.Sprintf("    - %s (%s -> %s)", t.Name, t.From, t.To)
			}
			b.WriteString(line + "\n")
			if h.Snippet != "" {
				fmt.Fprintf(&b, "        %s\n", firstLine(h.Snippet))
			}
		}
	}

	if n := len(r.NewlyIntroduced()); n > 0 {
		fmt.Fprintf(&b, "\n  New today: %d concept(s)\n", n)
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("\n  Next steps:\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "    - %s [%s, %s]\n", rec.Name, rec.Difficulty, rec.Reason)
		}
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "  Warning: %s\n", w)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatJourneyHuman(j *JourneyResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s journey\n", j.LanguageName)
	fmt.Fprintf(&b, "  Sessions: %d | Concepts seen: %d/%d | Mastered: %s%%\n",
		j.Sessions, j.ConceptsSeen, j.CatalogSize, output.FormatFloat(j.MasteryPercent))
	if j.Level != 0 {
		fmt.Fprintf(&b, "  Level: %s\n", j.Level)
	}
	if j.Streak > 0 {
		fmt.Fprintf(&b, "  Streak: %s\n", streakText(j.Streak))
	}
	if len(j.ActiveRepos) > 0 {
		fmt.Fprintf(&b, "  Active repos: %s\n", activeReposText(j.ActiveRepos))
	}
	b.WriteString("\n")

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  CONCEPT\tDIFFICULTY\tSEEN\tSTAGE")
	for _, c := range j.Concepts {
		difficulty := "-"
		if c.Difficulty != 0 {
			difficulty = c.Difficulty.String()
		}
		fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n", c.Name, difficulty, c.TimesSeen, c.Stage)
	}
	_ = w.Flush()

	for _, warn := range j.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s\n", warn)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatJourneyListHuman(resp *JourneyListResponseCLI) string {
	if len(resp.Journeys) == 0 {
		return "No journeys yet. Run 'devjourney analyze' in a repository to start one."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LANGUAGE\tSESSIONS\tINTRODUCED\tPRACTICING\tMASTERED\tPROGRESS\tLAST SESSION")
	for _, j := range resp.Journeys {
		last := "-"
		if !j.LastSession.IsZero() {
			last = formatDate(j.LastSession)
		}
		if j.Corrupt {
			last = "unreadable"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s%%\t%s\n", j.Language, j.Sessions,
			j.Introduced, j.Practicing, j.Mastered, output.FormatFloat(j.MasteryPercent), last)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func formatRecommendHuman(resp *RecommendResponseCLI) string {
	if len(resp.Recommendations) == 0 {
		return fmt.Sprintf("Every %s concept is mastered.", resp.Language)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Next up in %s:\n", resp.Language)
	for i, r := range resp.Recommendations {
		fmt.Fprintf(&b, "  %d. %s [%s] (%s)\n", i+1, r.Name, r.Difficulty, r.Stage)
		if r.Description != "" {
			fmt.Fprintf(&b, "     %s\n", r.Description)
		}
		if len(r.Prerequisites) > 0 {
			fmt.Fprintf(&b, "     builds on: %s\n", strings.Join(r.Prerequisites, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCatalogHuman(resp *CatalogResponseCLI) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LANGUAGE\tSLUG\tCONCEPTS\tSOURCE")
	for _, l := range resp.Languages {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", l.Language, l.Slug, l.Concepts, l.Source)
	}
	_ = w.Flush()

	for _, l := range resp.Languages {
		if len(l.Details) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s concepts:\n", l.Language)
		dw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		for _, c := range l.Details {
			next := "-"
			if len(c.Next) > 0 {
				next = strings.Join(c.Next, ", ")
			}
			fmt.Fprintf(dw, "  %s\t%s\t%s\t-> %s\n", c.ID, c.Name, c.Difficulty, next)
		}
		_ = dw.Flush()
	}
	if resp.Valid {
		b.WriteString("\nAll catalogs are valid.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatReposHuman(resp *ReposResponseCLI) string {
	if len(resp.Repos) == 0 {
		return "No repositories registered.\nUse 'devjourney repos add <name> <path>' to register one."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tTAGS\tLAST ANALYZED\tPATH")
	for _, r := range resp.Repos {
		tags := "-"
		if len(r.Tags) > 0 {
			tags = strings.Join(r.Tags, ",")
		}
		last := "never"
		if !r.LastAnalyzedAt.IsZero() {
			last = formatDate(r.LastAnalyzedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.State, tags, last, r.Path)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func formatHistoryHuman(resp *HistoryResponseCLI) string {
	if len(resp.Reports) == 0 {
		return "No archived reports."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tREPO\tLANGUAGE\tCOMMITS\tCONCEPTS")
	for _, s := range resp.Reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n", s.ID, formatDate(s.CreatedAt), s.Repo, s.Language, s.Commits, s.HitCount)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func formatSearchHuman(resp *SearchResponseCLI) string {
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No archived snippets match %q.", resp.Query)
	}
	var b strings.Builder
	for _, r := range resp.Results {
		fmt.Fprintf(&b, "%s  %s/%s  %s  [%s]\n", r.CreatedAt, r.Repo, r.Language, r.ConceptID, r.MatchType)
		if r.Path != "" {
			fmt.Fprintf(&b, "  %s\n", r.Path)
		}
		fmt.Fprintf(&b, "  %s\n", firstLine(r.Snippet))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderJourneyMarkdown renders a journey as a markdown document.
func renderJourneyMarkdown(j *JourneyResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Learning Journey\n\n", j.LanguageName)
	fmt.Fprintf(&b, "**Sessions:** %d\n", j.Sessions)
	if j.Level != 0 {
		fmt.Fprintf(&b, "**Level:** %s\n", j.Level)
	}
	fmt.Fprintf(&b, "**Concepts tracked:** %d\n", j.ConceptsSeen)
	if j.Streak > 0 {
		fmt.Fprintf(&b, "**Coding streak:** %s\n", streakText(j.Streak))
	}
	if len(j.ActiveRepos) > 0 {
		fmt.Fprintf(&b, "**Active repos:** %s\n", activeReposText(j.ActiveRepos))
	}
	b.WriteString("\n")

	byStage := map[journey.Stage][]string{}
	for _, c := range j.Concepts {
		byStage[c.Stage] = append(byStage[c.Stage], c.Name)
	}
	for _, st := range []journey.Stage{journey.Mastered, journey.Practicing, journey.Introduced} {
		if names := byStage[st]; len(names) > 0 {
			fmt.Fprintf(&b, "**%s:** %s\n", capitalize(st.String()), strings.Join(names, ", "))
		}
	}

	if j.ConceptsSeen > 0 {
		b.WriteString("\n## Concept Tracker\n\n")
		b.WriteString("| Concept | Difficulty | Times Seen | Stage |\n")
		b.WriteString("|---------|------------|------------|-------|\n")
		for _, c := range j.Concepts {
			if c.TimesSeen == 0 {
				continue
			}
			difficulty := "-"
			if c.Difficulty != 0 {
				difficulty = c.Difficulty.String()
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", c.Name, difficulty, c.TimesSeen, capitalize(c.Stage.String()))
		}
	}

	if len(j.RecentSessions) > 0 {
		b.WriteString("\n## Session Log\n\n")
		for _, s := range j.RecentSessions {
			concepts := "general"
			if len(s.Concepts) > 0 {
				concepts = strings.Join(s.Concepts, ", ")
			}
			fmt.Fprintf(&b, "- **%s**: %s (%d commits): %s\n", formatDate(s.Date), s.Repo, s.Commits, concepts)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func streakText(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d consecutive days", days)
}

func activeReposText(repos []RepoActivityCLI) string {
	parts := make([]string, len(repos))
	for i, r := range repos {
		parts[i] = fmt.Sprintf("%s (%d)", r.Repo, r.Sessions)
	}
	return strings.Join(parts, ", ")
}

func formatWindow(w session.Window) string {
	since, until := "beginning", "now"
	if !w.Since.IsZero() {
		since = w.Since.Local().Format("2006-01-02 15:04")
	}
	if !w.Until.IsZero() {
		until = w.Until.Local().Format("2006-01-02 15:04")
	}
	return since + " to " + until
}

func formatDate(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
