// Package observability provides formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/jobly/internal/apply"
	"github.com/jonathan/jobly/internal/db"
	"github.com/jonathan/jobly/internal/llm"
	"github.com/jonathan/jobly/internal/pipeline"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxQueueRows caps the queue table
	maxQueueRows = 20
)

// Printer handles formatted output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// clip shortens s to n runes, ending in "..." when cut.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintIngest outputs the result of a fetch. Dry runs list the parsed jobs.
func (p *Printer) PrintIngest(res *pipeline.IngestResult, dryRun bool) {
	if res == nil {
		return
	}

	var sb strings.Builder
	if res.Emails > 0 || res.EmailsFailed > 0 {
		sb.WriteString(fmt.Sprintf("Emails:      %d", res.Emails))
		if res.EmailsFailed > 0 {
			sb.WriteString(fmt.Sprintf(" (%d failed)", res.EmailsFailed))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Jobs found:  %d\n", res.Found))
	if dryRun {
		sb.WriteString("\n")
		count := min(len(res.Jobs), maxItemsToShow)
		for i := 0; i < count; i++ {
			j := res.Jobs[i]
			sb.WriteString(fmt.Sprintf("• %s: %s\n", j.Company, j.Title))
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", j.ATSType, j.URL))
		}
		if len(res.Jobs) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(res.Jobs)-maxItemsToShow))
		}
		p.printBox("FETCH (dry run)", strings.TrimSuffix(sb.String(), "\n"))
		return
	}
	sb.WriteString(fmt.Sprintf("New:         %d\n", res.Inserted))
	sb.WriteString(fmt.Sprintf("Duplicates:  %d", res.Duplicates))
	p.printBox("FETCH SUMMARY", sb.String())
}

// PrintPlan outputs the jobs a scoring pass would queue.
func (p *Printer) PrintPlan(plan *pipeline.Plan) {
	if plan == nil {
		return
	}
	queued := plan.Queued()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scored: %d  Queue: %d  Filter: %d\n",
		len(plan.Jobs), len(queued), len(plan.Filtered())))

	if len(queued) > 0 {
		sb.WriteString("\n")
	}
	count := min(len(queued), maxQueueRows)
	for i := 0; i < count; i++ {
		j := queued[i]
		sb.WriteString(fmt.Sprintf("%.2f  %s: %s\n", j.Result.Score, j.Job.Company, j.Job.Title))
		sb.WriteString(fmt.Sprintf("      %s\n", j.Result.Reason))
	}
	if len(queued) > maxQueueRows {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(queued)-maxQueueRows))
	}

	p.printBox("QUEUE PREVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStatus outputs job and application counts and recent runs.
func (p *Printer) PrintStatus(jobs map[db.JobStatus]int, apps map[db.ApplicationStatus]int, runs []db.Run) {
	var sb strings.Builder

	sb.WriteString("Jobs:\n")
	for _, s := range db.AllJobStatuses() {
		sb.WriteString(fmt.Sprintf("  %-14s %d\n", s, jobs[s]))
	}
	sb.WriteString("\nApplications:\n")
	for _, s := range db.AllApplicationStatuses() {
		sb.WriteString(fmt.Sprintf("  %-14s %d\n", s, apps[s]))
	}

	if len(runs) > 0 {
		sb.WriteString("\nRecent runs:\n")
		for _, r := range runs {
			sb.WriteString(fmt.Sprintf("  %s  %-11s ✓%d ⏭%d ✗%d\n",
				r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status,
				r.JobsSubmitted, r.JobsSkipped, r.JobsErrored))
		}
	}

	p.printBox("STATUS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJob outputs the header shown before an application is opened.
func (p *Printer) PrintJob(job db.JobPost, index, total int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", job.Company))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", job.Title))
	if loc := job.LocationOrEmpty(); loc != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", loc))
	}
	sb.WriteString(fmt.Sprintf("ATS:      %s\n", job.ATSType))
	sb.WriteString(fmt.Sprintf("Score:    %.2f (%s)\n", job.FitScore, job.FitReason))
	sb.WriteString(job.URL)

	p.printBox(fmt.Sprintf("APPLICATION %d/%d", index, total), sb.String())
}

// PrintFill outputs what the adapter filled and what it could not.
func (p *Printer) PrintFill(fill *apply.FillResult) {
	if fill == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Filled %d fields\n", len(fill.FilledFields)))
	if len(fill.SkippedFields) > 0 {
		sb.WriteString(fmt.Sprintf("⚠ Not found: %s\n", strings.Join(fill.SkippedFields, ", ")))
	}

	custom := fill.CustomAnswers()
	if len(custom) > 0 {
		sb.WriteString("\nCustom answers:\n")
		shown := 0
		for _, q := range fill.UnknownQuestions {
			if q.Answer == "" {
				continue
			}
			if shown == maxItemsToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(custom)-maxItemsToShow))
				break
			}
			sb.WriteString(fmt.Sprintf("  • %s\n    %s\n", q.Label, q.Answer))
			shown++
		}
	}

	p.printBox("FORM FILLED", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEvaluation outputs the LLM recommendation.
func (p *Printer) PrintEvaluation(eval *llm.Evaluation) {
	if eval == nil {
		return
	}

	icon := "•"
	switch eval.Recommendation {
	case llm.RecommendSubmit:
		icon = "✅"
	case llm.RecommendSkip:
		icon = "⚠"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s", icon, eval.Recommendation))
	if eval.Confidence != "" && eval.Recommendation != llm.RecommendNA {
		sb.WriteString(fmt.Sprintf(" (%s confidence)", eval.Confidence))
	}
	sb.WriteString("\n")
	for _, line := range wrap(eval.Rationale, boxWidth-4) {
		sb.WriteString(line + "\n")
	}
	if len(eval.RedFlags) > 0 {
		sb.WriteString("\nRed flags:\n")
		for _, f := range eval.RedFlags {
			sb.WriteString(fmt.Sprintf("  • %s\n", f))
		}
	}

	p.printBox("LLM REVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRun outputs the summary of an application run.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRun(res *apply.RunResult) {
	if res == nil || res.Run == nil {
		fmt.Fprintln(p.out, "No queued applications.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", res.Run.ID.String()[:8]))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", res.Run.Status))
	sb.WriteString(fmt.Sprintf("Processed:  %d\n", res.Stats.Processed))
	sb.WriteString(fmt.Sprintf("Submitted:  %d\n", res.Stats.Submitted))
	sb.WriteString(fmt.Sprintf("Skipped:    %d\n", res.Stats.Skipped))
	sb.WriteString(fmt.Sprintf("Errors:     %d", res.Stats.Errored))

	p.printBox("RUN SUMMARY", sb.String())
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	var (
		lines []string
		line  string
	)
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len([]rune(line))+1+len([]rune(word)) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
