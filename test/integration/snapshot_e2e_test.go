//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/schemakeep/schemakeep/internal/config"
	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/snapshot"
)

// TestSnapshotCrossBackend exports a jsonfile catalog and restores it into
// a sqlite catalog, exercising the id remapping on the way in.
func TestSnapshotCrossBackend(t *testing.T) {
	ctx := context.Background()

	source := open(t, &config.Config{
		Version: config.CurrentVersion,
		Backend: config.BackendConfig{Type: "jsonfile", Directory: t.TempDir()},
	})
	t.Cleanup(func() { source.Close(context.Background()) })

	table := sampleTable("orders")
	tableID, err := source.AddTable(ctx, table)
	if err != nil {
		t.Fatalf("adding table: %v", err)
	}
	index := &metadata.Index{
		Object:             metadata.Object{Name: "orders_pkey"},
		OwnerID:            tableID,
		AccessMethod:       1,
		NumberOfColumns:    1,
		NumberOfKeyColumns: 1,
		Keys:               []int64{1},
	}
	if _, err := source.AddIndex(ctx, index); err != nil {
		t.Fatalf("adding index: %v", err)
	}
	stat := &metadata.ColumnStatistic{
		TableID:         tableID,
		OrdinalPosition: 1,
		ColumnStatistic: json.RawMessage(`{"distinct":99}`),
	}
	if err := source.PutColumnStatistic(ctx, stat); err != nil {
		t.Fatalf("storing statistic: %v", err)
	}

	snap, err := snapshot.Take(ctx, source)
	if err != nil {
		t.Fatalf("taking snapshot: %v", err)
	}
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := snapshot.WriteYAML(snap, path); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}
	loaded, err := snapshot.ReadYAML(path)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if loaded.FormatVersion != snapshot.FormatVersion {
		t.Fatalf("format version: got %d", loaded.FormatVersion)
	}

	target := open(t, &config.Config{
		Version: config.CurrentVersion,
		Backend: config.BackendConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "catalog.db")},
	})
	t.Cleanup(func() { target.Close(context.Background()) })

	report, err := snapshot.Restore(ctx, target, loaded)
	if err != nil {
		t.Fatalf("restoring snapshot: %v", err)
	}
	if report.Tables != 1 || report.Indexes != 1 || report.Statistics != 1 {
		t.Fatalf("report: %+v", report)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("unexpected skips: %v", report.Skipped)
	}

	got, err := target.Table(ctx, metadata.KeyName, "orders")
	if err != nil {
		t.Fatalf("reading restored table: %v", err)
	}
	if len(got.Columns) != 3 {
		t.Errorf("restored columns: got %d, want 3", len(got.Columns))
	}

	ix, err := target.Index(ctx, metadata.KeyName, "orders_pkey")
	if err != nil {
		t.Fatalf("reading restored index: %v", err)
	}
	if ix.OwnerID != got.ID {
		t.Errorf("index owner not remapped: got %d, want %d", ix.OwnerID, got.ID)
	}

	restoredStat, err := target.ColumnStatistic(ctx, got.ID, 1)
	if err != nil {
		t.Fatalf("reading restored statistic: %v", err)
	}
	if string(restoredStat.ColumnStatistic) != `{"distinct":99}` {
		t.Errorf("statistic blob: got %s", restoredStat.ColumnStatistic)
	}
}
