package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// Dialects lists every schema tree kept under the migrations root.
var Dialects = []string{DialectPostgres, DialectSQLite}

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s (%[2]s)
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

func migrationName(name string) (string, error) {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	safe = strings.Trim(safe, "_")
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	return safe, nil
}

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<name>.sql for a single dialect tree.
func CreateSQLMigration(dir string, name string) (string, error) {
	paths, err := createAt(time.Now().UTC(), name, map[string]string{filepath.Base(dir): dir})
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// CreateDialectMigrations writes the same version into every dialect directory under root so
// postgres and sqlite schemas move together.
func CreateDialectMigrations(root string, name string) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("root is required")
	}
	dirs := make(map[string]string, len(Dialects))
	for _, dialect := range Dialects {
		dirs[dialect] = filepath.Join(root, dialect)
	}
	return createAt(time.Now().UTC(), name, dirs)
}

func createAt(now time.Time, name string, dirs map[string]string) ([]string, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("dir is required")
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	safe, err := migrationName(name)
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("%s_%s.sql", now.Format("20060102150405"), safe)

	paths := make([]string, 0, len(dirs))
	for _, dialect := range sortedKeys(dirs) {
		dir := dirs[dialect]
		if dir == "" {
			return nil, fmt.Errorf("dir is required")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %q: %w", dir, err)
		}
		fullpath := filepath.Join(dir, filename)
		if _, err := os.Stat(fullpath); err == nil {
			return nil, fmt.Errorf("migration already exists: %s", fullpath)
		}
		body := fmt.Sprintf(migrationTemplate, safe, dialect)
		if err := os.WriteFile(fullpath, []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("write migration %q: %w", fullpath, err)
		}
		paths = append(paths, fullpath)
	}
	return paths, nil
}
