// Package file provides a file-based log store: one JSON document per
// record under a root directory. It is meant for local runs and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/growthcohq/workflow-healer/pkg/persistence"
)

const (
	integrationLogsDir = "integration_logs"
	auditDir           = "resolver_audit_log"
	tasksDir           = "dashboard_tasks"
	jobStatusDir       = "job_status"
	briefingsDir       = "briefings"
)

var _ persistence.Store = (*Persistence)(nil)

// Persistence implements persistence.Store on the file system.
type Persistence struct {
	root string
	mu   sync.Mutex
}

// NewPersistence creates a store rooted at root. A "file://" prefix is
// accepted.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck creates the root directory if needed and verifies it is writable.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(fp.root, 0o750); err != nil {
		return fmt.Errorf("failed to create store root %s: %w", fp.root, err)
	}

	marker, err := os.CreateTemp(fp.root, ".healthcheck-*")
	if err != nil {
		return fmt.Errorf("store root %s is not writable: %w", fp.root, err)
	}

	name := marker.Name()
	_ = marker.Close()

	return os.Remove(name)
}

func (fp *Persistence) recordPath(dir, key string) string {
	return filepath.Join(fp.root, dir, url.PathEscape(key)+".json")
}

func (fp *Persistence) write(dir, key string, v any) error {
	if err := os.MkdirAll(filepath.Join(fp.root, dir), 0o750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	target := fp.recordPath(dir, key)

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	return os.Rename(tmp.Name(), target)
}

// read returns fs.ErrNotExist when the record is missing.
func (fp *Persistence) read(dir, key string, v any) error {
	body, err := os.ReadFile(fp.recordPath(dir, key))
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return nil
}

// readAll decodes every record in dir with decode.
func (fp *Persistence) readAll(dir string, decode func(body []byte) error) error {
	root := os.DirFS(filepath.Join(fp.root, dir))

	files, err := fs.Glob(root, "*.json")
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, name := range files {
		body, err := fs.ReadFile(root, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return fmt.Errorf("failed to read %s/%s: %w", dir, name, err)
		}

		if err := decode(body); err != nil {
			return fmt.Errorf("failed to unmarshal %s/%s: %w", dir, name, err)
		}
	}

	return nil
}
