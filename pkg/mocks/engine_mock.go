package mocks

import (
	"context"

	"github.com/growthcohq/workflow-healer/pkg/engine"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockEngineClient is a mock implementation of engine.Client interface.
type MockEngineClient struct {
	mock.Mock
}

func (m *MockEngineClient) ListWorkflows(ctx context.Context, filter engine.WorkflowFilter) ([]models.Workflow, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Workflow), args.Error(1)
}

func (m *MockEngineClient) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockEngineClient) ActivateWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockEngineClient) DeactivateWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockEngineClient) ListExecutions(ctx context.Context, filter engine.ExecutionFilter) ([]models.Execution, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Execution), args.Error(1)
}

func (m *MockEngineClient) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func (m *MockEngineClient) RetryExecution(ctx context.Context, id string) (*models.Execution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func (m *MockEngineClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

var _ engine.Client = (*MockEngineClient)(nil)
