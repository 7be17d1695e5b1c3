package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Counter columns that must be guarded by a non-negative CHECK wherever their table is created.
var ledgerGuards = []struct {
	table   string
	columns []string
}{
	{table: "items", columns: []string{"stock", "quantity_sold"}},
	{table: "sale_records", columns: []string{"quantity_sold", "refunded_qty"}},
}

type migrationFile struct {
	version int64
	name    string
	path    string
}

// scanDir lists the goose SQL files in dir ordered by version.
func scanDir(dir string) ([]migrationFile, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[int64]string{}
	var files []migrationFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", name, err)
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name)
		}
		seen[version] = name
		files = append(files, migrationFile{version: version, name: name, path: filepath.Join(dir, name)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// ValidateDir checks filenames, goose annotations, and the stock counter guards.
func ValidateDir(dir string) error {
	files, err := scanDir(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		b, err := os.ReadFile(f.path)
		if err != nil {
			return fmt.Errorf("read file %q: %w", f.path, err)
		}
		body := string(b)
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(body, marker) {
				return fmt.Errorf("migration %q missing %q", f.name, marker)
			}
		}
		if err := checkLedgerGuards(f.name, body); err != nil {
			return err
		}
	}
	return nil
}

func checkLedgerGuards(name, body string) error {
	sql := strings.Join(strings.Fields(strings.ToLower(body)), " ")
	for _, guard := range ledgerGuards {
		if !strings.Contains(sql, "create table if not exists "+guard.table+" (") &&
			!strings.Contains(sql, "create table "+guard.table+" (") {
			continue
		}
		for _, column := range guard.columns {
			if !strings.Contains(sql, "check ("+column+" >= 0)") {
				return fmt.Errorf("migration %q creates %s without CHECK (%s >= 0)", name, guard.table, column)
			}
		}
	}
	return nil
}
