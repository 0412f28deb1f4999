package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var migrationNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
SELECT 'up migration for %s';
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
SELECT 'down migration for %s';
-- +goose StatementEnd
`

// NewMigrationFile writes an empty goose SQL migration into dir and returns
// its path. Versions are UTC second timestamps; when a version is already
// taken the next free second is used so the ordering ValidateDir enforces
// stays strict even for migrations generated back to back.
func NewMigrationFile(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe := sanitizeMigrationName(name)
	if safe == "" {
		return "", fmt.Errorf("migration name %q sanitizes to nothing", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	stamp := time.Now().UTC()
	for attempt := 0; attempt < 10; attempt++ {
		version := stamp.Format("20060102150405")
		taken, err := filepath.Glob(filepath.Join(dir, version+"_*.sql"))
		if err != nil {
			return "", fmt.Errorf("scan dir %q: %w", dir, err)
		}
		if len(taken) > 0 {
			stamp = stamp.Add(time.Second)
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, safe))
		body := fmt.Sprintf(migrationTemplate, safe, safe)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return "", fmt.Errorf("write migration %q: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free migration version near %s", stamp.Format("20060102150405"))
}

func sanitizeMigrationName(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = migrationNameRe.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}
