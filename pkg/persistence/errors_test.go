package persistence_test

import (
	"errors"
	"testing"

	"github.com/growthcohq/workflow-healer/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		taskErr := persistence.NewStoreError("FindOpenTask", "wf-1|UNKNOWN", persistence.ErrTaskNotFound)
		briefingErr := persistence.NewStoreError("LatestBriefing", "", persistence.ErrBriefingNotFound)

		assert.True(t, persistence.IsTaskNotFound(taskErr))
		assert.True(t, persistence.IsBriefingNotFound(briefingErr))
		assert.False(t, persistence.IsTaskNotFound(briefingErr))

		assert.True(t, errors.Is(taskErr, persistence.ErrTaskNotFound))
	})

	t.Run("store error contains context", func(t *testing.T) {
		err := persistence.NewStoreError("UpsertTask", "wf-1|AUTH_FAILURE|2026-03-04", errors.New("disk full"))

		assert.Contains(t, err.Error(), "UpsertTask")
		assert.Contains(t, err.Error(), "wf-1|AUTH_FAILURE|2026-03-04")
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("store error without key", func(t *testing.T) {
		err := persistence.NewStoreError("JobStatuses", "", errors.New("boom"))

		assert.Equal(t, "JobStatuses operation failed: boom", err.Error())
	})
}
