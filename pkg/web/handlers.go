package web

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
	"github.com/growthcohq/workflow-healer/pkg/reporter"
)

type APIHandlers struct {
	store persistence.Store
}

func NewAPIHandlers(store persistence.Store) *APIHandlers {
	return &APIHandlers{store: store}
}

func (h *APIHandlers) latest(c fiber.Ctx) (*models.MorningBriefing, error) {
	briefing, err := h.store.LatestBriefing(c.Context())
	if err != nil {
		if persistence.IsBriefingNotFound(err) {
			return nil, notFound(c, "no briefing has been generated yet")
		}

		return nil, internalError(c, err)
	}

	return briefing, nil
}

func (h *APIHandlers) GetLatestBriefing(c fiber.Ctx) error {
	briefing, err := h.latest(c)
	if briefing == nil {
		return err
	}

	return c.JSON(briefing)
}

func (h *APIHandlers) GetLatestBriefingText(c fiber.Ctx) error {
	briefing, err := h.latest(c)
	if briefing == nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)

	return c.SendString(reporter.Render(*briefing))
}

func (h *APIHandlers) GetStatus(c fiber.Ctx) error {
	briefing, err := h.latest(c)
	if briefing == nil {
		return err
	}

	return c.JSON(StatusResponse{
		RunID:         briefing.RunID,
		GeneratedAt:   briefing.GeneratedAt,
		DryRun:        briefing.DryRun,
		OverallStatus: briefing.OverallStatus(),
		Health:        briefing.PerBusinessHealth,
		Issues:        len(briefing.Entries),
		Escalated:     len(briefing.Escalated),
	})
}

// GetTasks lists dashboard tasks. ?open=true keeps pending and in-progress
// tasks only.
func (h *APIHandlers) GetTasks(c fiber.Ctx) error {
	openOnly := false

	if value := c.Query("open"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return badRequest(c, "Invalid query parameters: open must be a boolean")
		}

		openOnly = parsed
	}

	tasks, err := h.store.Tasks(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	if openOnly {
		filtered := make([]models.Task, 0, len(tasks))

		for _, task := range tasks {
			if task.Status.Open() {
				filtered = append(filtered, task)
			}
		}

		tasks = filtered
	}

	return c.JSON(TasksResponse{Tasks: tasks, TotalCount: len(tasks)})
}
