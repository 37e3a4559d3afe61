// Package persistence provides the log-store abstraction: integration logs,
// the resolver audit log, dashboard tasks, per-business job status and
// briefings.
package persistence

import (
	"context"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
)

// Store is implemented by every log-store backend.
type Store interface {
	// RecentIntegrationLogs returns rows created at or after since, newest first.
	RecentIntegrationLogs(ctx context.Context, since time.Time) ([]models.IntegrationLog, error)
	WriteIntegrationLog(ctx context.Context, entry models.IntegrationLog) error

	// WriteAudit upserts on (RunID, IssueID, Seq).
	WriteAudit(ctx context.Context, entry models.AuditEntry) error
	Audits(ctx context.Context, runID string) ([]models.AuditEntry, error)
	// CountAuditRuns counts distinct runs, other than excludeRunID, that
	// audited (workflowID, issueType) at or after since.
	CountAuditRuns(ctx context.Context, workflowID string, issueType models.IssueType, since time.Time, excludeRunID string) (int, error)

	// UpsertTask inserts task unless a task with the same DedupKey exists, in
	// which case the existing task is returned and created is false.
	UpsertTask(ctx context.Context, task models.Task) (stored models.Task, created bool, err error)
	// FindOpenTask returns the newest open task for (workflowID, issueType) at
	// level, on any day, or ErrTaskNotFound.
	FindOpenTask(ctx context.Context, workflowID string, issueType models.IssueType, level models.ResolutionLevel) (*models.Task, error)
	Tasks(ctx context.Context) ([]models.Task, error)
	// SetTaskStatus is how a human clears (done, dismissed) a task.
	SetTaskStatus(ctx context.Context, dedupKey string, status models.TaskStatus) error

	JobStatuses(ctx context.Context) ([]models.JobStatus, error)
	UpdateJobStatus(ctx context.Context, status models.JobStatus) error

	SaveBriefing(ctx context.Context, briefing models.MorningBriefing) error
	// LatestBriefing returns the most recently generated briefing or
	// ErrBriefingNotFound.
	LatestBriefing(ctx context.Context) (*models.MorningBriefing, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
