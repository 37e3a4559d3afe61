package cmd

import (
	"context"
	"log/slog"

	"github.com/growthcohq/workflow-healer/pkg/runlock"
)

// NewLocker returns a Redis-backed run lock, or a no-op lock when redisURL
// is empty.
//
// nolint:ireturn
func NewLocker(ctx context.Context, logger *slog.Logger, redisURL string) (runlock.Locker, error) {
	if redisURL == "" {
		return runlock.Noop{}, nil
	}

	locker, err := runlock.NewRedisLocker(ctx, logger, redisURL)
	if err != nil {
		return nil, err
	}

	return locker, nil
}
