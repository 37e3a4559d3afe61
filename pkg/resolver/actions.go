package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/growthcohq/workflow-healer/pkg/backoff"
	"github.com/growthcohq/workflow-healer/pkg/engine"
	"github.com/growthcohq/workflow-healer/pkg/models"
)

type actionFunc func(ctx context.Context) error

// correctiveAction picks the single action L0 may take for an issue. It
// returns nil when there is nothing the engine can do, for example a
// failure reported only through integration logs.
func (r *Resolver) correctiveAction(issue models.DetectedIssue) (actionFunc, models.Action) {
	if issue.Source == models.SourceIntegrationLogs {
		return nil, models.ActionNone
	}

	switch issue.IssueType {
	case models.IssueTypeWorkflowInactive:
		return r.activate(issue.WorkflowID), models.ActionActivate

	case models.IssueTypeStaleExecution:
		if issue.ExecutionID != "" {
			return r.retryExecution(issue.ExecutionID), models.ActionRetryExecution
		}

		return r.resetTrigger(issue.WorkflowID), models.ActionResetTrigger

	case models.IssueTypeRateLimit, models.IssueTypeNetworkTimeout, models.IssueTypeUnknown:
		if issue.ExecutionID != "" {
			return r.retryExecution(issue.ExecutionID), models.ActionRetryExecution
		}
	}

	return nil, models.ActionNone
}

// permanent stops the retry loop for errors a retry cannot fix.
func permanent(err error) error {
	if engine.IsNotFound(err) || errors.Is(err, engine.ErrUnauthorized) {
		return backoff.Permanent(err)
	}

	return err
}

func (r *Resolver) retryExecution(executionID string) actionFunc {
	return func(ctx context.Context) error {
		execution, err := r.client.RetryExecution(ctx, executionID)
		if err != nil {
			return permanent(err)
		}

		if execution != nil && (execution.Status == models.ExecutionStatusError || execution.Status == models.ExecutionStatusCrashed) {
			return fmt.Errorf("retry of execution %s failed: %s", executionID, execution.ErrorMessage)
		}

		return nil
	}
}

func (r *Resolver) activate(workflowID string) actionFunc {
	return func(ctx context.Context) error {
		workflow, err := r.client.ActivateWorkflow(ctx, workflowID)
		if err != nil {
			return permanent(err)
		}

		if workflow != nil && !workflow.Active {
			return fmt.Errorf("workflow %s is still inactive after activation", workflowID)
		}

		return nil
	}
}

// resetTrigger re-registers a workflow's trigger by toggling it off and on.
func (r *Resolver) resetTrigger(workflowID string) actionFunc {
	return func(ctx context.Context) error {
		if _, err := r.client.DeactivateWorkflow(ctx, workflowID); err != nil {
			return permanent(err)
		}

		return r.activate(workflowID)(ctx)
	}
}

// recheck looks at live state immediately before acting so that a problem
// that already cleared does not get a duplicate side effect.
func (r *Resolver) recheck(ctx context.Context, issue models.DetectedIssue) (bool, error) {
	if issue.Source == models.SourceIntegrationLogs {
		return r.recheckLogs(ctx, issue)
	}

	switch issue.IssueType {
	case models.IssueTypeWorkflowInactive:
		workflow, err := r.client.GetWorkflow(ctx, issue.WorkflowID)
		if err != nil {
			return false, err
		}

		return workflow != nil && workflow.Active, nil

	default:
		if issue.ExecutionID != "" {
			execution, err := r.client.GetExecution(ctx, issue.ExecutionID)
			if err != nil && !engine.IsNotFound(err) {
				return false, err
			}

			if execution != nil && execution.RetrySuccessID != "" {
				return true, nil
			}
		}

		since := issue.DetectedAt
		if issue.IssueType == models.IssueTypeStaleExecution {
			// A success inside the expected interval means the schedule caught up.
			since = r.now().Add(-hoursToDuration(issue.ExpectedIntervalHours))
		}

		successes, err := r.client.ListExecutions(ctx, engine.ExecutionFilter{
			WorkflowID: issue.WorkflowID,
			Status:     models.ExecutionStatusSuccess,
			Since:      since,
			Limit:      1,
		})
		if err != nil {
			return false, err
		}

		return len(successes) > 0, nil
	}
}

// recheckLogs treats a successful log row after the issue was detected as
// recovery.
func (r *Resolver) recheckLogs(ctx context.Context, issue models.DetectedIssue) (bool, error) {
	rows, err := r.store.RecentIntegrationLogs(ctx, issue.DetectedAt)
	if err != nil {
		return false, err
	}

	for _, row := range rows {
		key := row.WorkflowID
		if key == "" {
			key = "service:" + row.Service
		}

		if key == issue.WorkflowID && row.Status == models.LogStatusSuccess && row.CreatedAt.After(issue.DetectedAt) {
			return true, nil
		}
	}

	return false, nil
}
