package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
)

func (fp *Persistence) RecentIntegrationLogs(_ context.Context, since time.Time) ([]models.IntegrationLog, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	logs := make([]models.IntegrationLog, 0)

	err := fp.readAll(integrationLogsDir, func(body []byte) error {
		var entry models.IntegrationLog
		if err := json.Unmarshal(body, &entry); err != nil {
			return err
		}

		if !entry.CreatedAt.Before(since) {
			logs = append(logs, entry)
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewStoreError("RecentIntegrationLogs", "", err)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})

	return logs, nil
}

func (fp *Persistence) WriteIntegrationLog(_ context.Context, entry models.IntegrationLog) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := fp.write(integrationLogsDir, entry.ID, entry); err != nil {
		return persistence.NewStoreError("WriteIntegrationLog", entry.ID, err)
	}

	return nil
}

func auditKey(entry models.AuditEntry) string {
	return fmt.Sprintf("%s|%s|%06d", entry.RunID, entry.IssueID, entry.Seq)
}

func (fp *Persistence) WriteAudit(_ context.Context, entry models.AuditEntry) error {
	if entry.RunID == "" || entry.IssueID == "" {
		return persistence.NewStoreError("WriteAudit", "", persistence.ErrInvalidRecord)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	key := auditKey(entry)

	var existing models.AuditEntry
	if err := fp.read(auditDir, key, &existing); err == nil {
		entry.ID = existing.ID
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := fp.write(auditDir, key, entry); err != nil {
		return persistence.NewStoreError("WriteAudit", key, err)
	}

	return nil
}

func (fp *Persistence) allAudits() ([]models.AuditEntry, error) {
	entries := make([]models.AuditEntry, 0)

	err := fp.readAll(auditDir, func(body []byte) error {
		var entry models.AuditEntry
		if err := json.Unmarshal(body, &entry); err != nil {
			return err
		}

		entries = append(entries, entry)

		return nil
	})

	return entries, err
}

func (fp *Persistence) Audits(_ context.Context, runID string) ([]models.AuditEntry, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	all, err := fp.allAudits()
	if err != nil {
		return nil, persistence.NewStoreError("Audits", runID, err)
	}

	entries := make([]models.AuditEntry, 0)

	for _, entry := range all {
		if entry.RunID == runID {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}

		if a.IssueID != b.IssueID {
			return a.IssueID < b.IssueID
		}

		return a.Seq < b.Seq
	})

	return entries, nil
}

func (fp *Persistence) CountAuditRuns(_ context.Context, workflowID string, issueType models.IssueType, since time.Time, excludeRunID string) (int, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	all, err := fp.allAudits()
	if err != nil {
		return 0, persistence.NewStoreError("CountAuditRuns", workflowID, err)
	}

	runs := make(map[string]struct{})

	for _, entry := range all {
		if entry.WorkflowID != workflowID || entry.IssueType != issueType {
			continue
		}

		if entry.RunID == excludeRunID || entry.CreatedAt.Before(since) {
			continue
		}

		runs[entry.RunID] = struct{}{}
	}

	return len(runs), nil
}

func (fp *Persistence) UpsertTask(_ context.Context, task models.Task) (models.Task, bool, error) {
	if task.DedupKey == "" {
		return models.Task{}, false, persistence.NewStoreError("UpsertTask", "", persistence.ErrInvalidRecord)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	var existing models.Task

	err := fp.read(tasksDir, task.DedupKey, &existing)
	if err == nil {
		return existing, false, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return models.Task{}, false, persistence.NewStoreError("UpsertTask", task.DedupKey, err)
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

	if err := fp.write(tasksDir, task.DedupKey, task); err != nil {
		return models.Task{}, false, persistence.NewStoreError("UpsertTask", task.DedupKey, err)
	}

	return task, true, nil
}

func (fp *Persistence) allTasks() ([]models.Task, error) {
	tasks := make([]models.Task, 0)

	err := fp.readAll(tasksDir, func(body []byte) error {
		var task models.Task
		if err := json.Unmarshal(body, &task); err != nil {
			return err
		}

		tasks = append(tasks, task)

		return nil
	})

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	return tasks, err
}

func (fp *Persistence) FindOpenTask(_ context.Context, workflowID string, issueType models.IssueType, level models.ResolutionLevel) (*models.Task, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	key := models.IssueKey{WorkflowID: workflowID, IssueType: issueType}.String()

	tasks, err := fp.allTasks()
	if err != nil {
		return nil, persistence.NewStoreError("FindOpenTask", key, err)
	}

	for _, task := range tasks {
		if task.WorkflowID == workflowID && task.IssueType == issueType && task.Level == level && task.Status.Open() {
			return &task, nil
		}
	}

	return nil, persistence.NewStoreError("FindOpenTask", key, persistence.ErrTaskNotFound)
}

// Tasks returns every task, newest first.
func (fp *Persistence) Tasks(_ context.Context) ([]models.Task, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	tasks, err := fp.allTasks()
	if err != nil {
		return nil, persistence.NewStoreError("Tasks", "", err)
	}

	return tasks, nil
}

// SetTaskStatus changes a task's status, e.g. when a human clears it.
func (fp *Persistence) SetTaskStatus(_ context.Context, dedupKey string, status models.TaskStatus) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	var task models.Task
	if err := fp.read(tasksDir, dedupKey, &task); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewStoreError("SetTaskStatus", dedupKey, persistence.ErrTaskNotFound)
		}

		return persistence.NewStoreError("SetTaskStatus", dedupKey, err)
	}

	task.Status = status
	task.UpdatedAt = time.Now().UTC()

	if err := fp.write(tasksDir, dedupKey, task); err != nil {
		return persistence.NewStoreError("SetTaskStatus", dedupKey, err)
	}

	return nil
}

func (fp *Persistence) JobStatuses(_ context.Context) ([]models.JobStatus, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	statuses := make([]models.JobStatus, 0)

	err := fp.readAll(jobStatusDir, func(body []byte) error {
		var status models.JobStatus
		if err := json.Unmarshal(body, &status); err != nil {
			return err
		}

		statuses = append(statuses, status)

		return nil
	})
	if err != nil {
		return nil, persistence.NewStoreError("JobStatuses", "", err)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].JobName < statuses[j].JobName
	})

	return statuses, nil
}

func (fp *Persistence) UpdateJobStatus(_ context.Context, status models.JobStatus) error {
	if status.JobName == "" {
		return persistence.NewStoreError("UpdateJobStatus", "", persistence.ErrInvalidRecord)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	status.UpdatedAt = time.Now().UTC()

	if err := fp.write(jobStatusDir, status.JobName, status); err != nil {
		return persistence.NewStoreError("UpdateJobStatus", status.JobName, err)
	}

	return nil
}

func (fp *Persistence) SaveBriefing(_ context.Context, briefing models.MorningBriefing) error {
	if briefing.RunID == "" {
		return persistence.NewStoreError("SaveBriefing", "", persistence.ErrInvalidRecord)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := fp.write(briefingsDir, briefing.RunID, briefing); err != nil {
		return persistence.NewStoreError("SaveBriefing", briefing.RunID, err)
	}

	return nil
}

func (fp *Persistence) LatestBriefing(_ context.Context) (*models.MorningBriefing, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	var latest *models.MorningBriefing

	err := fp.readAll(briefingsDir, func(body []byte) error {
		var briefing models.MorningBriefing
		if err := json.Unmarshal(body, &briefing); err != nil {
			return err
		}

		if latest == nil || briefing.GeneratedAt.After(latest.GeneratedAt) {
			latest = &briefing
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewStoreError("LatestBriefing", "", err)
	}

	if latest == nil {
		return nil, persistence.NewStoreError("LatestBriefing", "", persistence.ErrBriefingNotFound)
	}

	return latest, nil
}
