package classifier

import "github.com/growthcohq/workflow-healer/pkg/models"

// DefaultExpectedIntervalHours applies when nothing else says how often a
// workflow should run: daily with a two hour buffer.
const DefaultExpectedIntervalHours = 26.0

// Thresholds parameterise CalculateSeverity.
type Thresholds struct {
	// ExpectedIntervalHours is the workflow's expected run interval.
	ExpectedIntervalHours float64
	// Inactive marks a workflow that is switched off on the engine.
	Inactive bool
	// OccurrenceCeiling is the count above which transient failures escalate to medium.
	OccurrenceCeiling int
	// UnknownCeiling is the count above which UNKNOWN issues halt automation.
	UnknownCeiling int
}

// StaleRatio is hoursStale / expectedIntervalHours.
func StaleRatio(hoursStale, expectedIntervalHours float64) float64 {
	if expectedIntervalHours <= 0 {
		expectedIntervalHours = DefaultExpectedIntervalHours
	}

	return hoursStale / expectedIntervalHours
}

// IsStale reports whether a workflow is past due. A ratio of 1 or less is
// not yet due and never produces an issue.
func IsStale(hoursStale, expectedIntervalHours float64) bool {
	return StaleRatio(hoursStale, expectedIntervalHours) > 1
}

// CalculateSeverity maps an issue onto the severity scale.
func CalculateSeverity(issueType models.IssueType, occurrenceCount int, hoursStale float64, t Thresholds) models.Severity {
	switch issueType {
	case models.IssueTypeCredentialExpired,
		models.IssueTypeHMACSignatureMismatch,
		models.IssueTypeAuthFailure:
		return models.SeverityCritical

	case models.IssueTypeStaleExecution:
		if t.Inactive {
			return models.SeverityCritical
		}

		ratio := StaleRatio(hoursStale, t.ExpectedIntervalHours)

		switch {
		case ratio > 4:
			return models.SeverityCritical
		case ratio > 2:
			return models.SeverityHigh
		case ratio > 1:
			return models.SeverityMedium
		default:
			return models.SeverityLow
		}

	case models.IssueTypeRateLimit, models.IssueTypeNetworkTimeout:
		if t.OccurrenceCeiling > 0 && occurrenceCount > t.OccurrenceCeiling {
			return models.SeverityMedium
		}

		return models.SeverityLow

	case models.IssueTypeWorkflowInactive:
		return models.SeverityHigh

	default:
		if t.UnknownCeiling > 0 && occurrenceCount > t.UnknownCeiling {
			return models.SeverityCritical
		}

		return models.SeverityMedium
	}
}
