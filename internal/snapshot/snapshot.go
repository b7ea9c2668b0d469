// Package snapshot serializes catalog contents into a portable YAML
// document and loads such documents back into a catalog.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

// FormatVersion is the snapshot document layout version.
const FormatVersion int64 = 1

// Snapshot is a point-in-time copy of the catalog contents.
type Snapshot struct {
	FormatVersion int64             `yaml:"format_version"`
	Backend       string            `yaml:"backend"`
	TakenAt       time.Time         `yaml:"taken_at"`
	Tables        []metadata.Table  `yaml:"tables,omitempty"`
	Indexes       []metadata.Index  `yaml:"indexes,omitempty"`
	Statistics    []StatisticRecord `yaml:"statistics,omitempty"`
}

// StatisticRecord carries one column statistic. The blob is kept as JSON
// text so it round-trips through YAML without base64 wrapping.
type StatisticRecord struct {
	TableID         int64  `yaml:"table_id"`
	OrdinalPosition int64  `yaml:"ordinal_position"`
	ColumnStatistic string `yaml:"column_statistic"`
}

// Take reads the whole catalog into a Snapshot.
func Take(ctx context.Context, cat *catalog.Catalog) (*Snapshot, error) {
	tables, err := cat.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading tables: %w", err)
	}
	indexes, err := cat.Indexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading indexes: %w", err)
	}

	snap := &Snapshot{
		FormatVersion: FormatVersion,
		Backend:       cat.Backend(),
		TakenAt:       time.Now().UTC(),
		Tables:        tables,
		Indexes:       indexes,
	}

	for _, table := range tables {
		stats, err := cat.ColumnStatistics(ctx, table.ID)
		if errors.Is(err, metadata.ErrInvalidParameter) {
			continue // table has no statistics
		}
		if err != nil {
			return nil, fmt.Errorf("reading statistics of table %d: %w", table.ID, err)
		}

		ordinals := make([]int64, 0, len(stats))
		for ordinal := range stats {
			ordinals = append(ordinals, ordinal)
		}
		sort.Slice(ordinals, func(i, j int) bool { return ordinals[i] < ordinals[j] })

		for _, ordinal := range ordinals {
			snap.Statistics = append(snap.Statistics, StatisticRecord{
				TableID:         table.ID,
				OrdinalPosition: ordinal,
				ColumnStatistic: string(stats[ordinal].ColumnStatistic),
			})
		}
	}
	return snap, nil
}

// ToYAML renders the snapshot as a YAML document.
func ToYAML(snap *Snapshot) ([]byte, error) {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	return data, nil
}

// WriteYAML writes the snapshot to a file, creating parent directories.
func WriteYAML(snap *Snapshot, path string) error {
	data, err := ToYAML(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadYAML loads a snapshot file and checks its layout version.
func ReadYAML(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	snap := &Snapshot{}
	if err := yaml.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("snapshot format version %d: %w",
			snap.FormatVersion, metadata.ErrNotSupported)
	}
	return snap, nil
}
