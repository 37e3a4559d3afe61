package resolver

import (
	"github.com/growthcohq/workflow-healer/pkg/config"
	"github.com/growthcohq/workflow-healer/pkg/models"
)

// levelTable maps an issue type to its level per severity, indexed
// low, medium, high, critical.
var levelTable = map[models.IssueType][4]models.ResolutionLevel{
	models.IssueTypeRateLimit:             {models.LevelL0, models.LevelL1, models.LevelL1, models.LevelL2},
	models.IssueTypeNetworkTimeout:        {models.LevelL0, models.LevelL1, models.LevelL1, models.LevelL2},
	models.IssueTypeAuthFailure:           {models.LevelL2, models.LevelL2, models.LevelL2, models.LevelL2},
	models.IssueTypeCredentialExpired:     {models.LevelL2, models.LevelL2, models.LevelL2, models.LevelL2},
	models.IssueTypeHMACSignatureMismatch: {models.LevelL2, models.LevelL2, models.LevelL2, models.LevelL2},
	models.IssueTypeWorkflowInactive:      {models.LevelL0, models.LevelL0, models.LevelL0, models.LevelL0},
	models.IssueTypeStaleExecution:        {models.LevelL0, models.LevelL0, models.LevelL0, models.LevelL2},
	models.IssueTypeUnknown:               {models.LevelL0, models.LevelL0, models.LevelL3, models.LevelL3},
}

// LevelFor looks up the resolution level for an issue type and severity.
// Types outside the table and unset severities resolve conservatively.
func LevelFor(issueType models.IssueType, severity models.Severity) models.ResolutionLevel {
	row, ok := levelTable[issueType]
	if !ok {
		return models.LevelL3
	}

	if severity < models.SeverityLow || severity > models.SeverityCritical {
		severity = models.SeverityMedium
	}

	return row[severity-models.SeverityLow]
}

// AssignLevel applies the table and then the critical-workflow floor: a
// workflow named critical never resolves below L2.
func AssignLevel(issue models.DetectedIssue, rc config.ResolverConfig) models.ResolutionLevel {
	level := LevelFor(issue.IssueType, issue.Severity)

	if level < models.LevelL2 && rc.IsCritical(issue.WorkflowID, issue.WorkflowName) {
		level = models.LevelL2
	}

	return level
}
