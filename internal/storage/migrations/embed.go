// Package migrations creates the tariff schema. Scripts are embedded per
// SQL dialect and applied in file-name order; each one must be safe to
// re-run.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// SQL dialects with embedded scripts.
const (
	DialectPostgres   = "postgres"
	DialectClickhouse = "clickhouse"
)

//go:embed postgres/*.sql clickhouse/*.sql
var scripts embed.FS

// Script is one embedded migration file.
type Script struct {
	Name string // e.g. postgres/001_indexing_values.sql
	SQL  string
}

// Scripts returns the non-empty scripts of dialect in file-name order.
func Scripts(dialect string) ([]Script, error) {
	entries, err := fs.ReadDir(scripts, dialect)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dialect, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, path.Join(dialect, entry.Name()))
		}
	}
	sort.Strings(names)

	out := make([]Script, 0, len(names))
	for _, name := range names {
		data, err := scripts.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, Script{Name: name, SQL: string(data)})
	}
	return out, nil
}
