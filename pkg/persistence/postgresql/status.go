package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
)

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	v := t.Time

	return &v
}

func (p *Persistence) JobStatuses(ctx context.Context) ([]models.JobStatus, error) {
	err := p.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT job_name, business, workflow_id, enabled, expected_interval_hours, status,
			last_run_at, last_success_at, error_message, updated_at
		FROM job_status
		ORDER BY job_name
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, persistence.NewStoreError("JobStatuses", "", err)
	}
	defer rows.Close()

	statuses := make([]models.JobStatus, 0)

	for rows.Next() {
		var (
			status               models.JobStatus
			health               string
			lastRun, lastSuccess sql.NullTime
		)

		err := rows.Scan(&status.JobName, &status.Business, &status.WorkflowID, &status.Enabled,
			&status.ExpectedIntervalHours, &health, &lastRun, &lastSuccess, &status.ErrorMessage,
			&status.UpdatedAt)
		if err != nil {
			return nil, persistence.NewStoreError("JobStatuses", "", err)
		}

		status.Status = models.JobHealth(health)
		status.LastRunAt = nullTime(lastRun)
		status.LastSuccessAt = nullTime(lastSuccess)

		statuses = append(statuses, status)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("JobStatuses", "", err)
	}

	return statuses, nil
}

func (p *Persistence) UpdateJobStatus(ctx context.Context, status models.JobStatus) error {
	err := p.ensureReady(ctx)
	if err != nil {
		return err
	}

	if status.JobName == "" {
		return persistence.NewStoreError("UpdateJobStatus", "", persistence.ErrInvalidRecord)
	}

	if status.Status == "" {
		status.Status = models.JobHealthUnknown
	}

	query := `
		INSERT INTO job_status (job_name, business, workflow_id, enabled, expected_interval_hours,
			status, last_run_at, last_success_at, error_message, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (job_name) DO UPDATE SET
			business = EXCLUDED.business,
			workflow_id = EXCLUDED.workflow_id,
			enabled = EXCLUDED.enabled,
			expected_interval_hours = EXCLUDED.expected_interval_hours,
			status = EXCLUDED.status,
			last_run_at = COALESCE(EXCLUDED.last_run_at, job_status.last_run_at),
			last_success_at = COALESCE(EXCLUDED.last_success_at, job_status.last_success_at),
			error_message = EXCLUDED.error_message,
			updated_at = NOW()
	`

	_, err = p.db.ExecContext(ctx, query, status.JobName, status.Business, status.WorkflowID,
		status.Enabled, status.ExpectedIntervalHours, string(status.Status), status.LastRunAt,
		status.LastSuccessAt, status.ErrorMessage)
	if err != nil {
		return persistence.NewStoreError("UpdateJobStatus", status.JobName, err)
	}

	return nil
}

func (p *Persistence) SaveBriefing(ctx context.Context, briefing models.MorningBriefing) error {
	err := p.ensureReady(ctx)
	if err != nil {
		return err
	}

	if briefing.RunID == "" {
		return persistence.NewStoreError("SaveBriefing", "", persistence.ErrInvalidRecord)
	}

	payload, err := json.Marshal(briefing)
	if err != nil {
		return persistence.NewStoreError("SaveBriefing", briefing.RunID, err)
	}

	query := `
		INSERT INTO briefings (run_id, scanned_at, generated_at, dry_run, overall_status, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			overall_status = EXCLUDED.overall_status,
			payload = EXCLUDED.payload
	`

	_, err = p.db.ExecContext(ctx, query, briefing.RunID, briefing.ScannedAt, briefing.GeneratedAt,
		briefing.DryRun, string(briefing.OverallStatus()), payload)
	if err != nil {
		return persistence.NewStoreError("SaveBriefing", briefing.RunID, err)
	}

	return nil
}

func (p *Persistence) LatestBriefing(ctx context.Context) (*models.MorningBriefing, error) {
	err := p.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	var payload []byte

	err = p.db.QueryRowContext(ctx,
		`SELECT payload FROM briefings ORDER BY generated_at DESC LIMIT 1`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("LatestBriefing", "", persistence.ErrBriefingNotFound)
		}

		return nil, persistence.NewStoreError("LatestBriefing", "", err)
	}

	var briefing models.MorningBriefing
	if err := json.Unmarshal(payload, &briefing); err != nil {
		return nil, persistence.NewStoreError("LatestBriefing", "", err)
	}

	return &briefing, nil
}
