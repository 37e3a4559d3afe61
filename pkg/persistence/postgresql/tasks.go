package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
)

const taskColumns = `id, dedup_key, workflow_id, issue_type, day, business, title, description,
	instructions, severity, level, priority, category, status, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		task                       models.Task
		issueType, severity, level string
		status                     string
	)

	err := row.Scan(&task.ID, &task.DedupKey, &task.WorkflowID, &issueType, &task.Day, &task.Business,
		&task.Title, &task.Description, &task.Instructions, &severity, &level, &task.Priority,
		&task.Category, &status, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}

	task.IssueType = models.IssueType(issueType)
	task.Status = models.TaskStatus(status)
	task.Severity, _ = models.ParseSeverity(severity)
	task.Level, _ = models.ParseResolutionLevel(level)

	return task, nil
}

// UpsertTask relies on the unique dedup_key so that concurrent or re-entered
// runs converge on a single row.
func (p *Persistence) UpsertTask(ctx context.Context, task models.Task) (models.Task, bool, error) {
	err := p.ensureReady(ctx)
	if err != nil {
		return models.Task{}, false, err
	}

	if task.DedupKey == "" {
		return models.Task{}, false, persistence.NewStoreError("UpsertTask", "", persistence.ErrInvalidRecord)
	}

	now := time.Now().UTC()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}

	task.UpdatedAt = now

	query := `
		INSERT INTO dashboard_tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (dedup_key) DO NOTHING
		RETURNING id
	`

	var id string

	err = p.db.QueryRowContext(ctx, query, task.ID, task.DedupKey, task.WorkflowID, string(task.IssueType),
		task.Day, task.Business, task.Title, task.Description, task.Instructions, task.Severity.String(),
		task.Level.String(), task.Priority, task.Category, string(task.Status), task.CreatedBy,
		task.CreatedAt, task.UpdatedAt).Scan(&id)

	switch {
	case err == nil:
		return task, true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := scanTask(p.db.QueryRowContext(ctx,
			`SELECT `+taskColumns+` FROM dashboard_tasks WHERE dedup_key = $1`, task.DedupKey))
		if err != nil {
			return models.Task{}, false, persistence.NewStoreError("UpsertTask", task.DedupKey, err)
		}

		return existing, false, nil
	default:
		return models.Task{}, false, persistence.NewStoreError("UpsertTask", task.DedupKey, err)
	}
}

func (p *Persistence) FindOpenTask(ctx context.Context, workflowID string, issueType models.IssueType, level models.ResolutionLevel) (*models.Task, error) {
	err := p.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + taskColumns + `
		FROM dashboard_tasks
		WHERE workflow_id = $1 AND issue_type = $2 AND level = $3
			AND status IN ('pending_input', 'in_progress')
		ORDER BY created_at DESC
		LIMIT 1
	`

	key := models.IssueKey{WorkflowID: workflowID, IssueType: issueType}.String()

	task, err := scanTask(p.db.QueryRowContext(ctx, query, workflowID, string(issueType), level.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("FindOpenTask", key, persistence.ErrTaskNotFound)
		}

		return nil, persistence.NewStoreError("FindOpenTask", key, err)
	}

	return &task, nil
}

func (p *Persistence) Tasks(ctx context.Context) ([]models.Task, error) {
	err := p.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM dashboard_tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, persistence.NewStoreError("Tasks", "", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, persistence.NewStoreError("Tasks", "", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("Tasks", "", err)
	}

	return tasks, nil
}

func (p *Persistence) SetTaskStatus(ctx context.Context, dedupKey string, status models.TaskStatus) error {
	err := p.ensureReady(ctx)
	if err != nil {
		return err
	}

	result, err := p.db.ExecContext(ctx,
		`UPDATE dashboard_tasks SET status = $1, updated_at = NOW() WHERE dedup_key = $2`,
		string(status), dedupKey)
	if err != nil {
		return persistence.NewStoreError("SetTaskStatus", dedupKey, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("SetTaskStatus", dedupKey, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("SetTaskStatus", dedupKey, persistence.ErrTaskNotFound)
	}

	return nil
}
