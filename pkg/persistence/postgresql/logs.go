package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
)

func (p *Persistence) RecentIntegrationLogs(ctx context.Context, since time.Time) ([]models.IntegrationLog, error) {
	err := p.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, source, service, operation, status, level, message, workflow_id, business,
			duration_ms, details, created_at
		FROM integration_logs
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`

	rows, err := p.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, persistence.NewStoreError("RecentIntegrationLogs", "", err)
	}
	defer rows.Close()

	logs := make([]models.IntegrationLog, 0)

	for rows.Next() {
		var (
			entry   models.IntegrationLog
			details []byte
		)

		err := rows.Scan(&entry.ID, &entry.Source, &entry.Service, &entry.Operation, &entry.Status,
			&entry.Level, &entry.Message, &entry.WorkflowID, &entry.Business, &entry.DurationMs,
			&details, &entry.CreatedAt)
		if err != nil {
			return nil, persistence.NewStoreError("RecentIntegrationLogs", "", err)
		}

		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				p.logger.WarnContext(ctx, "Ignoring malformed integration log details", "id", entry.ID, "error", err)
			}
		}

		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("RecentIntegrationLogs", "", err)
	}

	return logs, nil
}

func (p *Persistence) WriteIntegrationLog(ctx context.Context, entry models.IntegrationLog) error {
	err := p.ensureReady(ctx)
	if err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if entry.Level == "" {
		entry.Level = "info"
	}

	var details []byte

	if entry.Details != nil {
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return persistence.NewStoreError("WriteIntegrationLog", entry.ID, fmt.Errorf("failed to marshal details: %w", err))
		}
	}

	query := `
		INSERT INTO integration_logs (id, source, service, operation, status, level, message,
			workflow_id, business, duration_ms, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = p.db.ExecContext(ctx, query, entry.ID, entry.Source, entry.Service, entry.Operation,
		entry.Status, entry.Level, entry.Message, entry.WorkflowID, entry.Business, entry.DurationMs,
		details, entry.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("WriteIntegrationLog", entry.ID, err)
	}

	return nil
}
