package web_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/growthcohq/workflow-healer/pkg/log"
	"github.com/growthcohq/workflow-healer/pkg/metrics"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/persistence/file"
	"github.com/growthcohq/workflow-healer/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	server := web.NewServer(log.Discard(), store, metrics.New())

	return server.App(), store
}

func get(t *testing.T, app *fiber.App, path string) (int, http.Header, []byte) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, resp.Header, body
}

func saveBriefing(t *testing.T, store *file.Persistence) models.MorningBriefing {
	t.Helper()

	briefing := models.MorningBriefing{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 3, 4, 7, 1, 0, 0, time.UTC),
		PerBusinessHealth: []models.HealthSummary{
			{Business: "boo", Status: models.HealthDegraded, Issues: 1, Escalated: 1, UnresolvedHigh: 1},
		},
		Entries: []models.BriefingEntry{
			{IssueID: "i-1", WorkflowID: "wf-1", Business: "boo", IssueType: models.IssueTypeStaleExecution, Severity: models.SeverityHigh, Level: models.LevelL2, FinalStatus: models.FinalStatusEscalated},
		},
		Recommendations: []string{"No action needed."},
	}
	briefing.Escalated = briefing.Entries

	require.NoError(t, store.SaveBriefing(t.Context(), briefing))

	return briefing
}

func TestServer_Probes(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _, _ := get(t, app, "/livez")
	assert.Equal(t, http.StatusOK, status)

	status, _, _ = get(t, app, "/readyz")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_LatestBriefingBeforeFirstRun(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _, body := get(t, app, "/briefings/latest")
	assert.Equal(t, http.StatusNotFound, status)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, "not_found", problem["type"])
	assert.Equal(t, "/briefings/latest", problem["instance"])
}

func TestServer_LatestBriefing(t *testing.T) {
	app, store := setupTestApp(t)
	saveBriefing(t, store)

	status, _, body := get(t, app, "/briefings/latest")
	require.Equal(t, http.StatusOK, status)

	var briefing models.MorningBriefing
	require.NoError(t, json.Unmarshal(body, &briefing))
	assert.Equal(t, "run-1", briefing.RunID)
	require.Len(t, briefing.Entries, 1)
	assert.Equal(t, models.SeverityHigh, briefing.Entries[0].Severity)

	status, header, body := get(t, app, "/briefings/latest.txt")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(body), "Overall status: DEGRADED")
}

func TestServer_Status(t *testing.T) {
	app, store := setupTestApp(t)
	saveBriefing(t, store)

	status, _, body := get(t, app, "/status")
	require.Equal(t, http.StatusOK, status)

	var resp web.StatusResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, models.HealthDegraded, resp.OverallStatus)
	assert.Equal(t, 1, resp.Issues)
	assert.Equal(t, 1, resp.Escalated)
}

func TestServer_Tasks(t *testing.T) {
	app, store := setupTestApp(t)

	for _, key := range []string{"wf-1|AUTH_FAILURE|2026-03-04", "wf-2|UNKNOWN|2026-03-04"} {
		_, _, err := store.UpsertTask(t.Context(), models.Task{DedupKey: key, Title: key})
		require.NoError(t, err)
	}

	require.NoError(t, store.SetTaskStatus(t.Context(), "wf-2|UNKNOWN|2026-03-04", models.TaskStatusDone))

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedCount  int
	}{
		{"all tasks", "/tasks", http.StatusOK, 2},
		{"open tasks", "/tasks?open=true", http.StatusOK, 1},
		{"invalid filter", "/tasks?open=maybe", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, body := get(t, app, tt.path)
			require.Equal(t, tt.expectedStatus, status)

			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp web.TasksResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, tt.expectedCount, resp.TotalCount)
			assert.Len(t, resp.Tasks, tt.expectedCount)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _, body := get(t, app, "/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "workflow_healer_")
}
