package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
)

func (p *Persistence) WriteAudit(ctx context.Context, entry models.AuditEntry) error {
	err := p.ensureReady(ctx)
	if err != nil {
		return err
	}

	if entry.RunID == "" || entry.IssueID == "" {
		return persistence.NewStoreError("WriteAudit", "", persistence.ErrInvalidRecord)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO resolver_audit_log (id, run_id, issue_id, seq, workflow_id, business, issue_type,
			severity, level, action, attempt, outcome, message, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (run_id, issue_id, seq) DO UPDATE SET
			level = EXCLUDED.level,
			action = EXCLUDED.action,
			attempt = EXCLUDED.attempt,
			outcome = EXCLUDED.outcome,
			message = EXCLUDED.message,
			error = EXCLUDED.error,
			duration_ms = EXCLUDED.duration_ms
	`

	_, err = p.db.ExecContext(ctx, query, entry.ID, entry.RunID, entry.IssueID, entry.Seq,
		entry.WorkflowID, entry.Business, string(entry.IssueType), entry.Severity.String(),
		entry.Level.String(), string(entry.Action), entry.Attempt, string(entry.Outcome),
		entry.Message, entry.Error, entry.DurationMs, entry.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("WriteAudit", fmt.Sprintf("%s/%s/%d", entry.RunID, entry.IssueID, entry.Seq), err)
	}

	return nil
}

func (p *Persistence) Audits(ctx context.Context, runID string) ([]models.AuditEntry, error) {
	err := p.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, run_id, issue_id, seq, workflow_id, business, issue_type, severity, level,
			action, attempt, outcome, message, error, duration_ms, created_at
		FROM resolver_audit_log
		WHERE run_id = $1
		ORDER BY created_at, issue_id, seq
	`

	rows, err := p.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, persistence.NewStoreError("Audits", runID, err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)

	for rows.Next() {
		var (
			entry              models.AuditEntry
			issueType, action  string
			outcome            string
			severity, levelTxt string
		)

		err := rows.Scan(&entry.ID, &entry.RunID, &entry.IssueID, &entry.Seq, &entry.WorkflowID,
			&entry.Business, &issueType, &severity, &levelTxt, &action, &entry.Attempt, &outcome,
			&entry.Message, &entry.Error, &entry.DurationMs, &entry.CreatedAt)
		if err != nil {
			return nil, persistence.NewStoreError("Audits", runID, err)
		}

		entry.IssueType = models.IssueType(issueType)
		entry.Action = models.Action(action)
		entry.Outcome = models.AuditOutcome(outcome)
		entry.Severity, _ = models.ParseSeverity(severity)
		entry.Level, _ = models.ParseResolutionLevel(levelTxt)

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("Audits", runID, err)
	}

	return entries, nil
}

func (p *Persistence) CountAuditRuns(ctx context.Context, workflowID string, issueType models.IssueType, since time.Time, excludeRunID string) (int, error) {
	err := p.ensureReady(ctx)
	if err != nil {
		return 0, err
	}

	query := `
		SELECT COUNT(DISTINCT run_id)
		FROM resolver_audit_log
		WHERE workflow_id = $1 AND issue_type = $2 AND created_at >= $3 AND run_id <> $4
	`

	var count int

	err = p.db.QueryRowContext(ctx, query, workflowID, string(issueType), since, excludeRunID).Scan(&count)
	if err != nil {
		return 0, persistence.NewStoreError("CountAuditRuns", workflowID, err)
	}

	return count, nil
}
