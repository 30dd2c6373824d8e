package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/angelmondragon/poslite-backend/pkg/config"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

	drivers = []string{config.DriverSQLite, config.DriverPostgres}
)

// ValidateDir checks every dialect directory under root and requires that the
// dialects carry the same set of migration files.
func ValidateDir(root string) error {
	if root == "" {
		return fmt.Errorf("dir is required")
	}

	var reference []string
	for i, driver := range drivers {
		names, err := validateDialectDir(filepath.Join(root, driver))
		if err != nil {
			return err
		}
		if i == 0 {
			reference = names
			continue
		}
		if missing := diff(reference, names); len(missing) > 0 {
			return fmt.Errorf("%s migrations missing %s", driver, strings.Join(missing, ", "))
		}
		if extra := diff(names, reference); len(extra) > 0 {
			return fmt.Errorf("%s migrations missing %s", drivers[0], strings.Join(extra, ", "))
		}
	}
	return nil
}

func validateDialectDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename
	var names []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
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

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", full, err)
		}

		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

func diff(want, have []string) []string {
	index := make(map[string]struct{}, len(have))
	for _, name := range have {
		index[name] = struct{}{}
	}
	var missing []string
	for _, name := range want {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
