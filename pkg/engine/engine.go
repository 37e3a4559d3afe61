// Package engine is the client for the orchestration engine that runs the
// monitored workflows.
package engine

import (
	"context"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
)

// Client is the subset of the orchestration engine API the healer needs.
type Client interface {
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]models.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	ActivateWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	DeactivateWorkflow(ctx context.Context, id string) (*models.Workflow, error)

	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]models.Execution, error)
	GetExecution(ctx context.Context, id string) (*models.Execution, error)
	RetryExecution(ctx context.Context, id string) (*models.Execution, error)

	Ping(ctx context.Context) error
}

// WorkflowFilter narrows ListWorkflows.
type WorkflowFilter struct {
	Active *bool
	Tags   []string
}

// ExecutionFilter narrows ListExecutions. Executions are returned newest
// first; listing stops at Limit or at the first execution started before
// Since.
type ExecutionFilter struct {
	WorkflowID  string
	Status      models.ExecutionStatus
	Since       time.Time
	Limit       int
	IncludeData bool
}

// Bool returns a pointer to v, for WorkflowFilter.Active.
func Bool(v bool) *bool {
	return &v
}
