package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/config"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Version: config.CurrentVersion,
		Backend: config.BackendConfig{Type: "jsonfile", Directory: t.TempDir()},
	}
	cat, err := catalog.New(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("opening catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close(context.Background()) })
	return cat
}

// seedCatalog registers one table with an index and a column statistic and
// returns the issued table id.
func seedCatalog(t *testing.T, cat *catalog.Catalog) int64 {
	t.Helper()
	ctx := context.Background()

	table := &metadata.Table{
		Object:      metadata.Object{Name: "orders"},
		Namespace:   "public",
		PrimaryKeys: []int64{1},
		Tuples:      42,
		Columns: []metadata.Column{
			{Object: metadata.Object{Name: "id"}, OrdinalPosition: 1, DataTypeID: metadata.DataTypeINT64, Nullable: metadata.Bool(false)},
			{Object: metadata.Object{Name: "status"}, OrdinalPosition: 2, DataTypeID: metadata.DataTypeVARCHAR, Nullable: metadata.Bool(true)},
		},
	}
	tableID, err := cat.AddTable(ctx, table)
	if err != nil {
		t.Fatalf("adding table: %v", err)
	}

	stored, err := cat.Table(ctx, metadata.KeyID, strconv.FormatInt(tableID, 10))
	if err != nil {
		t.Fatalf("reading table back: %v", err)
	}
	var statusColID int64
	for _, col := range stored.Columns {
		if col.OrdinalPosition == 2 {
			statusColID = col.ID
		}
	}

	index := &metadata.Index{
		Object:             metadata.Object{Name: "orders_status_idx"},
		Namespace:          "public",
		OwnerID:            tableID,
		AccessMethod:       1,
		NumberOfColumns:    1,
		NumberOfKeyColumns: 1,
		Keys:               []int64{2},
		KeysID:             []int64{statusColID},
	}
	if _, err := cat.AddIndex(ctx, index); err != nil {
		t.Fatalf("adding index: %v", err)
	}

	stat := &metadata.ColumnStatistic{
		TableID:         tableID,
		OrdinalPosition: 2,
		ColumnStatistic: json.RawMessage(`{"distinct":7,"nulls":0}`),
	}
	if err := cat.PutColumnStatistic(ctx, stat); err != nil {
		t.Fatalf("putting statistic: %v", err)
	}
	return tableID
}

func TestTakeAndRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := testCatalog(t)
	seedCatalog(t, src)

	snap, err := Take(ctx, src)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if snap.FormatVersion != FormatVersion {
		t.Errorf("format version = %d, want %d", snap.FormatVersion, FormatVersion)
	}
	if snap.Backend != "jsonfile" {
		t.Errorf("backend = %q, want jsonfile", snap.Backend)
	}
	if len(snap.Tables) != 1 || len(snap.Indexes) != 1 || len(snap.Statistics) != 1 {
		t.Fatalf("snapshot carries %d/%d/%d objects, want 1/1/1",
			len(snap.Tables), len(snap.Indexes), len(snap.Statistics))
	}

	dst := testCatalog(t)
	report, err := Restore(ctx, dst, snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if report.Tables != 1 || report.Indexes != 1 || report.Statistics != 1 {
		t.Errorf("report = %d/%d/%d, want 1/1/1",
			report.Tables, report.Indexes, report.Statistics)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("skipped = %v, want none", report.Skipped)
	}

	table, err := dst.Table(ctx, metadata.KeyName, "orders")
	if err != nil {
		t.Fatalf("reading restored table: %v", err)
	}
	if len(table.Columns) != 2 {
		t.Errorf("columns = %d, want 2", len(table.Columns))
	}
	if table.Tuples != 42 {
		t.Errorf("tuples = %v, want 42", table.Tuples)
	}

	index, err := dst.Index(ctx, metadata.KeyName, "orders_status_idx")
	if err != nil {
		t.Fatalf("reading restored index: %v", err)
	}
	if index.OwnerID != table.ID {
		t.Errorf("index owner = %d, want %d", index.OwnerID, table.ID)
	}
	var statusColID int64
	for _, col := range table.Columns {
		if col.OrdinalPosition == 2 {
			statusColID = col.ID
		}
	}
	if len(index.KeysID) != 1 || index.KeysID[0] != statusColID {
		t.Errorf("keys_id = %v, want [%d]", index.KeysID, statusColID)
	}

	stat, err := dst.ColumnStatistic(ctx, table.ID, 2)
	if err != nil {
		t.Fatalf("reading restored statistic: %v", err)
	}
	if string(stat.ColumnStatistic) != `{"distinct":7,"nulls":0}` {
		t.Errorf("statistic = %s", stat.ColumnStatistic)
	}
}

func TestTakeEmptyCatalog(t *testing.T) {
	cat := testCatalog(t)

	snap, err := Take(context.Background(), cat)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if len(snap.Tables) != 0 || len(snap.Indexes) != 0 || len(snap.Statistics) != 0 {
		t.Errorf("snapshot carries %d/%d/%d objects, want none",
			len(snap.Tables), len(snap.Indexes), len(snap.Statistics))
	}
}

func TestWriteAndReadYAML(t *testing.T) {
	ctx := context.Background()
	cat := testCatalog(t)
	seedCatalog(t, cat)

	snap, err := Take(ctx, cat)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	path := filepath.Join(t.TempDir(), "exports", "catalog.yaml")
	if err := WriteYAML(snap, path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := ReadYAML(path)
	if err != nil {
		t.Fatalf("ReadYAML: %v", err)
	}
	if len(loaded.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(loaded.Tables))
	}
	if loaded.Tables[0].Name != "orders" {
		t.Errorf("table name = %q, want orders", loaded.Tables[0].Name)
	}
	if len(loaded.Statistics) != 1 || loaded.Statistics[0].ColumnStatistic != `{"distinct":7,"nulls":0}` {
		t.Errorf("statistics = %+v", loaded.Statistics)
	}
}

func TestReadYAMLRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("format_version: 99\nbackend: jsonfile\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadYAML(path)
	if !errors.Is(err, metadata.ErrNotSupported) {
		t.Errorf("err = %v, want ErrNotSupported", err)
	}
}

func TestRestoreIntoPopulatedCatalogSkipsCollisions(t *testing.T) {
	ctx := context.Background()
	cat := testCatalog(t)
	seedCatalog(t, cat)

	snap, err := Take(ctx, cat)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	report, err := Restore(ctx, cat, snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if report.Tables != 0 {
		t.Errorf("tables restored = %d, want 0", report.Tables)
	}
	if len(report.Skipped) == 0 {
		t.Fatal("expected skip records for the name collision")
	}
	if !strings.Contains(report.Skipped[0], "orders") {
		t.Errorf("skipped[0] = %q, want the colliding table named", report.Skipped[0])
	}
}

func TestRestoreSkipsOrphanObjects(t *testing.T) {
	snap := &Snapshot{
		FormatVersion: FormatVersion,
		Backend:       "jsonfile",
		Indexes: []metadata.Index{
			{
				Object:             metadata.Object{Name: "ghost_idx"},
				OwnerID:            12,
				NumberOfColumns:    1,
				NumberOfKeyColumns: 1,
				Keys:               []int64{1},
				KeysID:             []int64{34},
			},
		},
		Statistics: []StatisticRecord{
			{TableID: 12, OrdinalPosition: 1, ColumnStatistic: `{"distinct":1}`},
		},
	}

	report, err := Restore(context.Background(), testCatalog(t), snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if report.Indexes != 0 || report.Statistics != 0 {
		t.Errorf("report = %d indexes, %d statistics, want 0/0", report.Indexes, report.Statistics)
	}
	if len(report.Skipped) != 2 {
		t.Errorf("skipped = %v, want 2 records", report.Skipped)
	}
}
