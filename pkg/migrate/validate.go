package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks filenames, version uniqueness and goose headers of one dialect directory.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	_, err := versionsIn(os.DirFS(dir), ".")
	return err
}

// ValidateTree validates every dialect directory under root and requires them to carry the
// same migration files.
func ValidateTree(root string) error {
	if root == "" {
		return fmt.Errorf("root is required")
	}
	return validateDialects(os.DirFS(root))
}

func validateDialects(fsys fs.FS) error {
	var (
		reference     map[string]string
		referenceName string
	)
	for _, dialect := range Dialects {
		files, err := versionsIn(fsys, dialect)
		if err != nil {
			return fmt.Errorf("%s: %w", dialect, err)
		}
		if reference == nil {
			reference, referenceName = files, dialect
			continue
		}
		if err := sameMigrations(referenceName, reference, dialect, files); err != nil {
			return err
		}
	}
	return nil
}

// versionsIn returns version -> filename for the SQL files in dir.
func versionsIn(fsys fs.FS, dir string) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		b, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, name)))
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", name, err)
		}
		txt := string(b)
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(txt, marker) {
				return nil, fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
	}
	return seen, nil
}

func sameMigrations(aName string, a map[string]string, bName string, b map[string]string) error {
	for _, version := range sortedKeys(a) {
		if b[version] != a[version] {
			return fmt.Errorf("migration %s exists in %s but not in %s", a[version], aName, bName)
		}
	}
	for _, version := range sortedKeys(b) {
		if _, ok := a[version]; !ok {
			return fmt.Errorf("migration %s exists in %s but not in %s", b[version], bName, aName)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateEmbedded runs ValidateTree against the migrations compiled into the binary.
func ValidateEmbedded() error {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}
	return validateDialects(sub)
}
