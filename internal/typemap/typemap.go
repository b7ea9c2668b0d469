// Package typemap resolves source database type names to entries of the
// seeded data type catalog.
package typemap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

// TypeMap holds the mapping from source type names to catalog type names.
type TypeMap struct {
	Mappings map[string]string `yaml:"mappings"`
	defaults map[string]string // not serialized; populated by ForDriver
}

// typeIDs indexes the seeded type catalog by name.
var typeIDs = func() map[string]int64 {
	ids := make(map[string]int64)
	for _, dt := range metadata.SeedDataTypes() {
		ids[dt.Name] = dt.ID
	}
	return ids
}()

// DefaultPostgres returns the default type mapping for PostgreSQL. Source
// types without a catalog equivalent (timestamps, booleans, json) are left
// unmapped; introspection skips those columns.
func DefaultPostgres() *TypeMap {
	m := map[string]string{
		"smallint":          "INT32",
		"integer":           "INT32",
		"bigint":            "INT64",
		"real":              "FLOAT32",
		"double precision":  "FLOAT64",
		"numeric":           "FLOAT64",
		"decimal":           "FLOAT64",
		"character":         "CHAR",
		"char":              "CHAR",
		"bpchar":            "CHAR",
		"character varying": "VARCHAR",
		"varchar":           "VARCHAR",
		"text":              "VARCHAR",
		"uuid":              "VARCHAR",
	}
	return &TypeMap{Mappings: m}
}

// DefaultOracle returns the default type mapping for Oracle. NUMBER maps to
// FLOAT64 here; the introspector refines scale-zero NUMBER columns to the
// integer types.
func DefaultOracle() *TypeMap {
	m := map[string]string{
		"NUMBER":        "FLOAT64",
		"FLOAT":         "FLOAT64",
		"BINARY_FLOAT":  "FLOAT32",
		"BINARY_DOUBLE": "FLOAT64",
		"CHAR":          "CHAR",
		"NCHAR":         "CHAR",
		"VARCHAR2":      "VARCHAR",
		"NVARCHAR2":     "VARCHAR",
		"CLOB":          "VARCHAR",
		"NCLOB":         "VARCHAR",
	}
	return &TypeMap{Mappings: m}
}

// ForDriver returns a TypeMap with defaults for the given driver.
func ForDriver(driver string) *TypeMap {
	var tm *TypeMap
	switch driver {
	case "oracle":
		tm = DefaultOracle()
	default:
		tm = DefaultPostgres()
	}
	tm.defaults = make(map[string]string, len(tm.Mappings))
	for k, v := range tm.Mappings {
		tm.defaults[k] = v
	}
	return tm
}

// Resolve returns the catalog data type id for the given source type. The
// second return is false when the source type has no mapping.
func (tm *TypeMap) Resolve(sourceType string) (int64, bool) {
	name, ok := tm.Mappings[sourceType]
	if !ok {
		return metadata.InvalidObjectID, false
	}
	id, ok := typeIDs[name]
	return id, ok
}

// Override maps a source type to the named catalog type.
func (tm *TypeMap) Override(sourceType, typeName string) error {
	if _, ok := typeIDs[typeName]; !ok {
		return fmt.Errorf("unknown catalog type %q for source type %q (have %v)",
			typeName, sourceType, CatalogTypeNames())
	}
	if tm.Mappings == nil {
		tm.Mappings = make(map[string]string)
	}
	tm.Mappings[sourceType] = typeName
	return nil
}

// IsOverridden returns true if the source type mapping differs from its
// driver default.
func (tm *TypeMap) IsOverridden(sourceType string) bool {
	if tm.defaults == nil {
		return false
	}
	return tm.defaults[sourceType] != tm.Mappings[sourceType]
}

// SortedTypes returns the mapped source type names sorted alphabetically.
func (tm *TypeMap) SortedTypes() []string {
	types := make([]string, 0, len(tm.Mappings))
	for k := range tm.Mappings {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// CatalogTypeNames returns the seeded catalog type names in id order.
func CatalogTypeNames() []string {
	seed := metadata.SeedDataTypes()
	names := make([]string, len(seed))
	for i, dt := range seed {
		names[i] = dt.Name
	}
	return names
}

// WriteYAML writes the type mapping to a YAML file.
func (tm *TypeMap) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(tm)
	if err != nil {
		return fmt.Errorf("marshaling type map: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// LoadOverrides reads a YAML type map file and applies its entries on top
// of the current mappings.
func (tm *TypeMap) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading type map file: %w", err)
	}
	var loaded TypeMap
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing type map: %w", err)
	}
	for src, name := range loaded.Mappings {
		if err := tm.Override(src, name); err != nil {
			return err
		}
	}
	return nil
}
