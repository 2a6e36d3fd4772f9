package csv

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/flight-delay-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var defaultSchemaYAML []byte

// Schema maps each canonical column to the source headers that may carry it.
type Schema struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// DefaultSchema returns the embedded alias table.
func DefaultSchema() Schema {
	s, err := parseSchema(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded schema: %v", err))
	}
	return s
}

// LoadSchema reads an alias table from path. An empty path returns DefaultSchema.
func LoadSchema(path string) (Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema file: %w", err)
	}
	s, err := parseSchema(data)
	if err != nil {
		return Schema{}, fmt.Errorf("schema file %s: %w", path, err)
	}
	return s, nil
}

func parseSchema(data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("parse schema: %w", err)
	}
	known := make(map[string]bool)
	for _, c := range domain.Columns() {
		known[c] = true
	}
	for col, names := range s.Aliases {
		if !known[col] {
			return Schema{}, fmt.Errorf("unknown canonical column %q", col)
		}
		if len(names) == 0 {
			return Schema{}, fmt.Errorf("column %q has no aliases", col)
		}
	}
	return s, nil
}

// candidates returns the source headers tried for a canonical column.
func (s Schema) candidates(col string) []string {
	if names, ok := s.Aliases[col]; ok {
		return names
	}
	return []string{col}
}

// Resolve maps each canonical column to its index in header, using the
// first alias present. Columns with no matching header are absent from the
// result. Duplicate headers resolve to their first occurrence.
func (s Schema) Resolve(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	resolved := make(map[string]int)
	for _, col := range domain.Columns() {
		for _, name := range s.candidates(col) {
			if idx, ok := positions[name]; ok {
				resolved[col] = idx
				break
			}
		}
	}
	return resolved
}
