package mocks

import (
	"context"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of persistence.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) RecentIntegrationLogs(ctx context.Context, since time.Time) ([]models.IntegrationLog, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.IntegrationLog), args.Error(1)
}

func (m *MockStore) WriteIntegrationLog(ctx context.Context, entry models.IntegrationLog) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}

func (m *MockStore) WriteAudit(ctx context.Context, entry models.AuditEntry) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}

func (m *MockStore) Audits(ctx context.Context, runID string) ([]models.AuditEntry, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.AuditEntry), args.Error(1)
}

func (m *MockStore) CountAuditRuns(ctx context.Context, workflowID string, issueType models.IssueType, since time.Time, excludeRunID string) (int, error) {
	args := m.Called(ctx, workflowID, issueType, since, excludeRunID)

	return args.Int(0), args.Error(1)
}

func (m *MockStore) UpsertTask(ctx context.Context, task models.Task) (models.Task, bool, error) {
	args := m.Called(ctx, task)

	return args.Get(0).(models.Task), args.Bool(1), args.Error(2)
}

func (m *MockStore) FindOpenTask(ctx context.Context, workflowID string, issueType models.IssueType, level models.ResolutionLevel) (*models.Task, error) {
	args := m.Called(ctx, workflowID, issueType, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockStore) Tasks(ctx context.Context) ([]models.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockStore) SetTaskStatus(ctx context.Context, dedupKey string, status models.TaskStatus) error {
	args := m.Called(ctx, dedupKey, status)

	return args.Error(0)
}

func (m *MockStore) JobStatuses(ctx context.Context) ([]models.JobStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.JobStatus), args.Error(1)
}

func (m *MockStore) UpdateJobStatus(ctx context.Context, status models.JobStatus) error {
	args := m.Called(ctx, status)

	return args.Error(0)
}

func (m *MockStore) SaveBriefing(ctx context.Context, briefing models.MorningBriefing) error {
	args := m.Called(ctx, briefing)

	return args.Error(0)
}

func (m *MockStore) LatestBriefing(ctx context.Context) (*models.MorningBriefing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.MorningBriefing), args.Error(1)
}

func (m *MockStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

var _ persistence.Store = (*MockStore)(nil)
