// Package reporter aggregates a run's detection and resolution results into a
// MorningBriefing. It performs no I/O.
package reporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
)

// RunMeta describes the run a briefing is generated for.
type RunMeta struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	// Business is the run's business filter, empty for all.
	Business string
	// Businesses always appear in the health table, even without issues.
	Businesses []string
}

// lowAutoFixRate triggers the threshold-review recommendation.
const lowAutoFixRate = 0.5

// GenerateBriefing joins every detected issue with its resolution result.
// Each issue lands in exactly one entry and is counted once per level and
// severity.
func GenerateBriefing(detection models.DetectionResult, results []models.ResolutionResult, meta RunMeta) models.MorningBriefing {
	briefing := models.MorningBriefing{
		RunID:            meta.RunID,
		ScannedAt:        detection.ScannedAt,
		GeneratedAt:      meta.FinishedAt,
		DryRun:           meta.DryRun,
		BusinessFilter:   meta.Business,
		Entries:          make([]models.BriefingEntry, 0, len(detection.Issues)),
		AutoFixed:        make([]models.BriefingEntry, 0),
		AlertedOnly:      make([]models.BriefingEntry, 0),
		Escalated:        make([]models.BriefingEntry, 0),
		Deferred:         make([]models.BriefingEntry, 0),
		TasksCreated:     make([]models.TaskCreated, 0),
		DetectionErrors:  append(make([]models.SourceError, 0, len(detection.SourceErrors)), detection.SourceErrors...),
		ResolutionErrors: make([]models.ResolutionError, 0),
		DurationMs:       meta.FinishedAt.Sub(meta.StartedAt).Milliseconds(),
	}

	byIssue := make(map[string]models.ResolutionResult, len(results))
	for _, result := range results {
		byIssue[result.IssueID] = result
	}

	health := newHealthTable(meta)
	levels := make(map[models.ResolutionLevel]int)
	severities := make(map[models.Severity]int)

	for _, issue := range detection.Issues {
		result, ok := byIssue[issue.ID]
		if !ok {
			result = models.ResolutionResult{
				IssueID:     issue.ID,
				FinalStatus: models.FinalStatusDeferred,
				ActionTaken: models.ActionNone,
				Error:       "no resolution recorded",
			}
		}

		entry := models.BriefingEntry{
			IssueID:      issue.ID,
			WorkflowID:   issue.WorkflowID,
			WorkflowName: issue.WorkflowName,
			Business:     issue.Business,
			IssueType:    issue.IssueType,
			Severity:     issue.Severity,
			Level:        result.Level,
			FinalStatus:  result.FinalStatus,
			Action:       result.ActionTaken,
			Attempts:     result.Attempts,
			Message:      issue.Message,
		}

		briefing.Entries = append(briefing.Entries, entry)
		levels[result.Level]++
		severities[issue.Severity]++
		health.add(issue, result)

		switch {
		case result.FinalStatus == models.FinalStatusResolved:
			briefing.AutoFixed = append(briefing.AutoFixed, entry)
		case result.FinalStatus == models.FinalStatusDeferred:
			briefing.Deferred = append(briefing.Deferred, entry)
		case result.FinalStatus == models.FinalStatusFailed:
			// listed under ResolutionErrors
		case result.Level == models.LevelL1:
			briefing.AlertedOnly = append(briefing.AlertedOnly, entry)
		default:
			briefing.Escalated = append(briefing.Escalated, entry)
		}

		if result.FinalStatus == models.FinalStatusFailed || (!ok && result.Error != "") {
			briefing.ResolutionErrors = append(briefing.ResolutionErrors, models.ResolutionError{
				IssueID:    issue.ID,
				WorkflowID: issue.WorkflowID,
				Error:      result.Error,
			})
		}

		if result.Task != nil {
			briefing.TasksCreated = append(briefing.TasksCreated, *result.Task)
		}
	}

	sort.SliceStable(briefing.TasksCreated, func(i, j int) bool {
		a, b := briefing.TasksCreated[i], briefing.TasksCreated[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}

		return a.WorkflowID < b.WorkflowID
	})

	for _, level := range models.ResolutionLevels {
		briefing.ByLevel = append(briefing.ByLevel, models.LevelCount{Level: level, Count: levels[level]})
	}

	for i := len(models.Severities) - 1; i >= 0; i-- {
		severity := models.Severities[i]
		briefing.BySeverity = append(briefing.BySeverity, models.SeverityCount{Severity: severity, Count: severities[severity]})
	}

	briefing.PerBusinessHealth = health.summaries()
	briefing.Recommendations = recommendations(&briefing, detection)

	return briefing
}

type healthTable struct {
	rows map[string]*models.HealthSummary
}

func newHealthTable(meta RunMeta) *healthTable {
	table := &healthTable{rows: make(map[string]*models.HealthSummary)}

	if meta.Business != "" {
		table.row(meta.Business)

		return table
	}

	for _, business := range meta.Businesses {
		table.row(business)
	}

	return table
}

func (h *healthTable) row(business string) *models.HealthSummary {
	summary, ok := h.rows[business]
	if !ok {
		summary = &models.HealthSummary{Business: business, Status: models.HealthHealthy}
		h.rows[business] = summary
	}

	return summary
}

func (h *healthTable) add(issue models.DetectedIssue, result models.ResolutionResult) {
	summary := h.row(issue.Business)
	summary.Issues++

	switch result.FinalStatus {
	case models.FinalStatusResolved:
		summary.Resolved++

		return
	case models.FinalStatusEscalated:
		summary.Escalated++
	case models.FinalStatusFailed:
		summary.Failed++
	default:
		summary.Deferred++
	}

	switch issue.Severity {
	case models.SeverityCritical:
		summary.UnresolvedCritical++
		summary.Status = models.HealthCritical
	case models.SeverityHigh:
		summary.UnresolvedHigh++
		if summary.Status != models.HealthCritical {
			summary.Status = models.HealthDegraded
		}
	}
}

func (h *healthTable) summaries() []models.HealthSummary {
	names := make([]string, 0, len(h.rows))
	for name := range h.rows {
		names = append(names, name)
	}

	sort.Strings(names)

	out := make([]models.HealthSummary, 0, len(names))
	for _, name := range names {
		out = append(out, *h.rows[name])
	}

	return out
}

var credentialTypes = map[models.IssueType]bool{
	models.IssueTypeCredentialExpired:     true,
	models.IssueTypeAuthFailure:           true,
	models.IssueTypeHMACSignatureMismatch: true,
}

func recommendations(b *models.MorningBriefing, detection models.DetectionResult) []string {
	out := make([]string, 0)

	if b.DryRun {
		out = append(out, "Dry run: no retries, reactivations or task writes were performed.")
	}

	seen := make(map[string]bool)
	credentials := make([]string, 0)

	for _, entry := range b.Entries {
		if !credentialTypes[entry.IssueType] {
			continue
		}

		label := entry.WorkflowName
		if label == "" {
			label = entry.WorkflowID
		}

		if !seen[label] {
			seen[label] = true
			credentials = append(credentials, label)
		}
	}

	if len(credentials) > 0 {
		sort.Strings(credentials)
		out = append(out, fmt.Sprintf("Refresh credentials for: %s.", strings.Join(credentials, ", ")))
	}

	if n := len(b.Escalated) + len(b.AlertedOnly); n > 0 && !b.DryRun {
		out = append(out, fmt.Sprintf("%d issue(s) need manual attention; see the tasks below.", n))
	}

	if total := len(b.Entries); total > 0 && !b.DryRun {
		rate := float64(len(b.AutoFixed)) / float64(total)
		if rate < lowAutoFixRate {
			out = append(out, fmt.Sprintf("Only %.0f%% of issues were fixed automatically; review retry thresholds.", rate*100))
		}
	}

	if len(b.DetectionErrors) > 0 {
		sources := make([]string, 0, len(b.DetectionErrors))
		for _, se := range b.DetectionErrors {
			sources = append(sources, string(se.Source))
		}

		out = append(out, fmt.Sprintf("Detection was partial (%s failed); some issues may be missing.", strings.Join(sources, ", ")))
	}

	if detection.Truncated > 0 {
		out = append(out, fmt.Sprintf("%d lower-priority issue(s) were dropped by maxIssuesPerRun.", detection.Truncated))
	}

	if len(b.Deferred) > 0 && !b.DryRun {
		out = append(out, fmt.Sprintf("%d issue(s) were deferred to the next run.", len(b.Deferred)))
	}

	if len(out) == 0 {
		out = append(out, "No action needed.")
	}

	return out
}
