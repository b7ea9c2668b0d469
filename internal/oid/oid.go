// Package oid issues durable, monotonically increasing object ids, one
// counter per entity family. Issued ids survive process restarts and are
// never reused, including ids handed to transactions that later roll back.
package oid

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

// FileName is the counter file kept inside the catalog storage directory.
const FileName = "oid.yaml"

// Generator issues object ids. On failure it returns
// metadata.InvalidObjectID and the error; callers abort the enclosing
// operation.
type Generator interface {
	// Generate increments the family counter and returns the new id.
	Generate(ctx context.Context, family metadata.Family) (int64, error)

	// Current returns the last issued id without consuming one. A family
	// with no issued ids reports 0.
	Current(ctx context.Context, family metadata.Family) (int64, error)
}

// FileGenerator keeps one YAML counter file. The counter is incremented and
// persisted under a single mutex, so concurrent generators in one process
// cannot observe the same value. Writes go through a temp file and rename.
type FileGenerator struct {
	path string
	mu   sync.Mutex
}

// NewFileGenerator creates a generator storing its counters in dir.
func NewFileGenerator(dir string) *FileGenerator {
	return &FileGenerator{path: filepath.Join(dir, FileName)}
}

func (g *FileGenerator) Generate(_ context.Context, family metadata.Family) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	counters, err := g.load()
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	id := counters[string(family)] + 1
	counters[string(family)] = id

	if err := g.persist(counters); err != nil {
		return metadata.InvalidObjectID, err
	}
	return id, nil
}

func (g *FileGenerator) Current(_ context.Context, family metadata.Family) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	counters, err := g.load()
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	return counters[string(family)], nil
}

func (g *FileGenerator) load() (map[string]int64, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]int64), nil
		}
		return nil, fmt.Errorf("reading oid counters: %w", err)
	}

	counters := make(map[string]int64)
	if err := yaml.Unmarshal(data, &counters); err != nil {
		return nil, fmt.Errorf("parsing oid counters: %w", err)
	}
	return counters, nil
}

func (g *FileGenerator) persist(counters map[string]int64) error {
	data, err := yaml.Marshal(counters)
	if err != nil {
		return fmt.Errorf("marshaling oid counters: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		return fmt.Errorf("creating oid directory: %w", err)
	}

	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing oid counters: %w", err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		return fmt.Errorf("replacing oid counters: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Generator = (*FileGenerator)(nil)
