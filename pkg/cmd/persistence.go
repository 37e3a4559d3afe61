package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/growthcohq/workflow-healer/pkg/persistence"
	"github.com/growthcohq/workflow-healer/pkg/persistence/file"
	"github.com/growthcohq/workflow-healer/pkg/persistence/postgresql"
)

// NewStore opens the log store. postgres:// and postgresql:// URLs select
// PostgreSQL, file:// or a bare path selects the JSON file store.
//
// nolint:ireturn
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Store, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch provider {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}
