package reporter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
)

const ruleWidth = 72

// Render formats a briefing as plain text. The output depends only on the
// briefing, so equal briefings render identically.
func Render(b models.MorningBriefing) string {
	var sb strings.Builder

	rule := strings.Repeat("=", ruleWidth)

	title := "WORKFLOW HEALTH BRIEFING"
	if b.DryRun {
		title += " (DRY RUN)"
	}

	fmt.Fprintln(&sb, rule)
	fmt.Fprintln(&sb, title)
	fmt.Fprintf(&sb, "Run %s at %s\n", b.RunID, b.GeneratedAt.UTC().Format(time.RFC3339))

	if b.BusinessFilter != "" {
		fmt.Fprintf(&sb, "Business filter: %s\n", b.BusinessFilter)
	}

	fmt.Fprintf(&sb, "Overall status: %s\n", strings.ToUpper(string(b.OverallStatus())))
	fmt.Fprintln(&sb, rule)

	section(&sb, "SUMMARY")
	table(&sb, func(w io.Writer) {
		fmt.Fprintf(w, "Issues detected\t%d\n", len(b.Entries))
		fmt.Fprintf(w, "Auto-fixed\t%d\n", len(b.AutoFixed))
		fmt.Fprintf(w, "Alerted only\t%d\n", len(b.AlertedOnly))
		fmt.Fprintf(w, "Escalated\t%d\n", len(b.Escalated))
		fmt.Fprintf(w, "Deferred\t%d\n", len(b.Deferred))
		fmt.Fprintf(w, "Failed\t%d\n", len(b.ResolutionErrors))
	})

	section(&sb, "BUSINESS HEALTH")

	if len(b.PerBusinessHealth) == 0 {
		fmt.Fprintln(&sb, "none")
	} else {
		table(&sb, func(w io.Writer) {
			fmt.Fprintln(w, "BUSINESS\tSTATUS\tISSUES\tRESOLVED\tESCALATED\tFAILED\tDEFERRED")

			for _, h := range b.PerBusinessHealth {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					h.Business, h.Status, h.Issues, h.Resolved, h.Escalated, h.Failed, h.Deferred)
			}
		})
	}

	section(&sb, "LEVELS")
	table(&sb, func(w io.Writer) {
		for _, lc := range b.ByLevel {
			fmt.Fprintf(w, "%s\t%d\n", lc.Level, lc.Count)
		}

		for _, sc := range b.BySeverity {
			fmt.Fprintf(w, "%s\t%d\n", sc.Severity, sc.Count)
		}
	})

	section(&sb, "ISSUES")

	if len(b.Entries) == 0 {
		fmt.Fprintln(&sb, "none")
	} else {
		table(&sb, func(w io.Writer) {
			levelHeader := "LEVEL"
			if b.DryRun {
				levelHeader = "WOULD-BE LEVEL"
			}

			fmt.Fprintf(w, "SEVERITY\t%s\tTYPE\tWORKFLOW\tBUSINESS\tSTATUS\tACTION\n", levelHeader)

			for _, e := range b.Entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Severity, e.Level, e.IssueType, entryLabel(e), e.Business, e.FinalStatus, e.Action)
			}
		})
	}

	section(&sb, "TASKS")

	if len(b.TasksCreated) == 0 {
		fmt.Fprintln(&sb, "none")
	} else {
		for _, task := range b.TasksCreated {
			suffix := ""
			if task.Existing {
				suffix = " (existing)"
			}

			fmt.Fprintf(&sb, "- [%s/%s] %s (workflow %s)%s\n", task.Level, task.Severity, task.Title, task.WorkflowID, suffix)
		}
	}

	section(&sb, "DETECTION ERRORS")

	if len(b.DetectionErrors) == 0 {
		fmt.Fprintln(&sb, "none")
	} else {
		for _, se := range b.DetectionErrors {
			fmt.Fprintf(&sb, "- %s: %s\n", se.Source, se.Error)
		}
	}

	section(&sb, "RESOLUTION ERRORS")

	if len(b.ResolutionErrors) == 0 {
		fmt.Fprintln(&sb, "none")
	} else {
		for _, re := range b.ResolutionErrors {
			fmt.Fprintf(&sb, "- %s: %s\n", re.WorkflowID, re.Error)
		}
	}

	section(&sb, "RECOMMENDATIONS")

	for _, rec := range b.Recommendations {
		fmt.Fprintf(&sb, "- %s\n", rec)
	}

	fmt.Fprintln(&sb, rule)
	fmt.Fprintf(&sb, "Run duration: %s\n", (time.Duration(b.DurationMs) * time.Millisecond).String())
	fmt.Fprintln(&sb, rule)

	return sb.String()
}

func section(w io.Writer, name string) {
	fmt.Fprintf(w, "\n%s\n%s\n", name, strings.Repeat("-", len(name)))
}

func table(w io.Writer, rows func(io.Writer)) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows(tw)
	_ = tw.Flush()
}

func entryLabel(e models.BriefingEntry) string {
	if e.WorkflowName != "" {
		return e.WorkflowName
	}

	return e.WorkflowID
}
