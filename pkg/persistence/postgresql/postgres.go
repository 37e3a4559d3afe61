// Package postgresql provides the PostgreSQL log store.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/growthcohq/workflow-healer/pkg/persistence"
	"github.com/growthcohq/workflow-healer/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

var _ persistence.Store = (*Persistence)(nil)

// Persistence implements persistence.Store for PostgreSQL.
//
// The connection is established lazily: the first HealthCheck, read or write
// pings the server and runs migrations, and a failed attempt is retried on
// the next call.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	mu    sync.Mutex
	ready bool
}

// NewPersistence opens the connection pool without contacting the server.
func NewPersistence(_ context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return &Persistence{
		db:     database,
		logger: logger,
	}, nil
}

// ensureReady pings and migrates once per process.
func (p *Persistence) ensureReady(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		return nil
	}

	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(p.logger, p.db, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	p.ready = true

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.ensureReady(ctx)
	if err != nil {
		return err
	}

	err = p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
