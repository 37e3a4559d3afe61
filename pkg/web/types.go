// Package web serves the healer's status surface in schedule mode: health
// checks, the latest briefing, open tasks and metrics.
package web

import (
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
)

// TasksResponse lists dashboard tasks.
type TasksResponse struct {
	Tasks      []models.Task `json:"tasks"`
	TotalCount int           `json:"total_count"`
}

// StatusResponse summarises the last run for quick checks.
type StatusResponse struct {
	RunID         string                 `json:"run_id"`
	GeneratedAt   time.Time              `json:"generated_at"`
	DryRun        bool                   `json:"dry_run"`
	OverallStatus models.HealthStatus    `json:"overall_status"`
	Health        []models.HealthSummary `json:"health"`
	Issues        int                    `json:"issues"`
	Escalated     int                    `json:"escalated"`
}
