//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

func sampleTable(name string) *metadata.Table {
	return &metadata.Table{
		Object:    metadata.Object{Name: name},
		Namespace: "public",
		Columns: []metadata.Column{
			{Object: metadata.Object{Name: "id"}, OrdinalPosition: 1, DataTypeID: metadata.DataTypeINT64, Nullable: metadata.Bool(false)},
			{Object: metadata.Object{Name: "label"}, OrdinalPosition: 2, DataTypeID: metadata.DataTypeVARCHAR, Nullable: metadata.Bool(true)},
			{Object: metadata.Object{Name: "score"}, OrdinalPosition: 3, DataTypeID: metadata.DataTypeFLOAT64, Nullable: metadata.Bool(true)},
		},
	}
}

// runOnBackends executes fn once per reachable backend.
func runOnBackends(t *testing.T, fn func(t *testing.T, cat *catalog.Catalog, fx backendFixture)) {
	for _, fx := range backends(t) {
		fx := fx
		t.Run(fx.name, func(t *testing.T) {
			cat := open(t, fx.cfg)
			t.Cleanup(func() { cat.Close(context.Background()) })
			fn(t, cat, fx)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()
		name := uniqueName("roundtrip")

		id, err := cat.AddTable(ctx, sampleTable(name))
		if err != nil {
			t.Fatalf("adding table: %v", err)
		}
		if id == metadata.InvalidObjectID {
			t.Fatal("add returned the invalid id")
		}

		got, err := cat.Table(ctx, metadata.KeyID, strconv.FormatInt(id, 10))
		if err != nil {
			t.Fatalf("getting table by id: %v", err)
		}
		if got.Name != name {
			t.Errorf("name: got %q, want %q", got.Name, name)
		}
		if got.FormatVersion != metadata.FormatVersion {
			t.Errorf("format_version: got %d, want %d", got.FormatVersion, metadata.FormatVersion)
		}
		if got.Generation != metadata.InitialGeneration {
			t.Errorf("generation: got %d, want %d", got.Generation, metadata.InitialGeneration)
		}
		if len(got.Columns) != 3 {
			t.Fatalf("columns: got %d, want 3", len(got.Columns))
		}
		for i, want := range []string{"id", "label", "score"} {
			c := got.Columns[i]
			if c.Name != want {
				t.Errorf("column %d: got %q, want %q", i, c.Name, want)
			}
			if c.OrdinalPosition != int64(i+1) {
				t.Errorf("column %q ordinal: got %d, want %d", c.Name, c.OrdinalPosition, i+1)
			}
			if c.TableID != id {
				t.Errorf("column %q table_id: got %d, want %d", c.Name, c.TableID, id)
			}
			if c.ID == metadata.InvalidObjectID {
				t.Errorf("column %q has no id", c.Name)
			}
		}

		byName, err := cat.Table(ctx, metadata.KeyName, name)
		if err != nil {
			t.Fatalf("getting table by name: %v", err)
		}
		if byName.ID != id {
			t.Errorf("lookup by name returned id %d, want %d", byName.ID, id)
		}
	})
}

func TestDuplicateTableName(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()
		name := uniqueName("dup")

		id, err := cat.AddTable(ctx, sampleTable(name))
		if err != nil {
			t.Fatalf("adding table: %v", err)
		}

		if _, err := cat.AddTable(ctx, sampleTable(name)); !errors.Is(err, metadata.ErrTableNameAlreadyExists) {
			t.Fatalf("duplicate add: got %v, want ErrTableNameAlreadyExists", err)
		}

		// the original survives the failed add untouched
		got, err := cat.Table(ctx, metadata.KeyName, name)
		if err != nil {
			t.Fatalf("getting original table: %v", err)
		}
		if got.ID != id || len(got.Columns) != 3 {
			t.Errorf("original mutated: id %d columns %d", got.ID, len(got.Columns))
		}
	})
}

func TestRemoveCascades(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()
		name := uniqueName("cascade")

		id, err := cat.AddTable(ctx, sampleTable(name))
		if err != nil {
			t.Fatalf("adding table: %v", err)
		}
		stat := &metadata.ColumnStatistic{
			TableID:         id,
			OrdinalPosition: 1,
			ColumnStatistic: json.RawMessage(`{"distinct":42}`),
		}
		if err := cat.PutColumnStatistic(ctx, stat); err != nil {
			t.Fatalf("storing statistic: %v", err)
		}

		removed, err := cat.RemoveTable(ctx, metadata.KeyID, strconv.FormatInt(id, 10))
		if err != nil {
			t.Fatalf("removing table: %v", err)
		}
		if removed != id {
			t.Errorf("remove returned id %d, want %d", removed, id)
		}

		if _, err := cat.Table(ctx, metadata.KeyID, strconv.FormatInt(id, 10)); !errors.Is(err, metadata.ErrIDNotFound) {
			t.Errorf("get after remove: got %v, want ErrIDNotFound", err)
		}
		if _, err := cat.RemoveTable(ctx, metadata.KeyID, strconv.FormatInt(id, 10)); !errors.Is(err, metadata.ErrIDNotFound) {
			t.Errorf("second remove: got %v, want ErrIDNotFound", err)
		}
		// statistics cascade with the table
		if _, err := cat.ColumnStatistics(ctx, id); !errors.Is(err, metadata.ErrInvalidParameter) {
			t.Errorf("statistics after remove: got %v, want ErrInvalidParameter", err)
		}
	})
}

func TestStatisticsIndependence(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()
		name := uniqueName("stats")

		id, err := cat.AddTable(ctx, sampleTable(name))
		if err != nil {
			t.Fatalf("adding table: %v", err)
		}
		before, err := cat.Table(ctx, metadata.KeyID, strconv.FormatInt(id, 10))
		if err != nil {
			t.Fatalf("getting table: %v", err)
		}

		if _, err := cat.SetTableStatistic(ctx, metadata.KeyName, name, 12345); err != nil {
			t.Fatalf("setting statistic: %v", err)
		}

		after, err := cat.Table(ctx, metadata.KeyID, strconv.FormatInt(id, 10))
		if err != nil {
			t.Fatalf("getting table after statistic: %v", err)
		}
		if after.Tuples != 12345 {
			t.Errorf("tuples: got %g, want 12345", after.Tuples)
		}
		if len(after.Columns) != len(before.Columns) {
			t.Fatalf("columns changed: got %d, want %d", len(after.Columns), len(before.Columns))
		}
		for i := range before.Columns {
			if after.Columns[i].ID != before.Columns[i].ID {
				t.Errorf("column %d id changed: got %d, want %d",
					i, after.Columns[i].ID, before.Columns[i].ID)
			}
		}

		stat, err := cat.TableStatistic(ctx, metadata.KeyID, strconv.FormatInt(id, 10))
		if err != nil {
			t.Fatalf("reading statistic: %v", err)
		}
		if stat.Tuples != 12345 {
			t.Errorf("statistic read: got %g, want 12345", stat.Tuples)
		}
	})
}

func TestUpdateIncrementsGeneration(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()
		name := uniqueName("gen")

		id, err := cat.AddTable(ctx, sampleTable(name))
		if err != nil {
			t.Fatalf("adding table: %v", err)
		}

		replacement := sampleTable(name)
		replacement.Columns = replacement.Columns[:2]
		if err := cat.UpdateTable(ctx, id, replacement); err != nil {
			t.Fatalf("updating table: %v", err)
		}

		got, err := cat.Table(ctx, metadata.KeyID, strconv.FormatInt(id, 10))
		if err != nil {
			t.Fatalf("getting updated table: %v", err)
		}
		if got.ID != id {
			t.Errorf("id changed on update: got %d, want %d", got.ID, id)
		}
		if got.FormatVersion != metadata.FormatVersion {
			t.Errorf("format_version changed: got %d", got.FormatVersion)
		}
		if got.Generation != metadata.InitialGeneration+1 {
			t.Errorf("generation: got %d, want %d", got.Generation, metadata.InitialGeneration+1)
		}
		if len(got.Columns) != 2 {
			t.Errorf("columns after update: got %d, want 2", len(got.Columns))
		}
	})
}

func TestNotFoundTaxonomy(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()

		if _, err := cat.Table(ctx, metadata.KeyID, "999999999"); !errors.Is(err, metadata.ErrIDNotFound) {
			t.Errorf("missing id: got %v, want ErrIDNotFound", err)
		}
		if _, err := cat.Table(ctx, metadata.KeyName, uniqueName("missing")); !errors.Is(err, metadata.ErrNameNotFound) {
			t.Errorf("missing name: got %v, want ErrNameNotFound", err)
		}
		if _, err := cat.Table(ctx, metadata.Key("color"), "red"); !errors.Is(err, metadata.ErrNotSupported) {
			t.Errorf("bad key: got %v, want ErrNotSupported", err)
		}
	})
}

func TestIndexLifecycle(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()
		tableName := uniqueName("indexed")

		tableID, err := cat.AddTable(ctx, sampleTable(tableName))
		if err != nil {
			t.Fatalf("adding table: %v", err)
		}

		indexName := uniqueName("idx")
		index := &metadata.Index{
			Object:             metadata.Object{Name: indexName},
			OwnerID:            tableID,
			AccessMethod:       1,
			NumberOfColumns:    2,
			NumberOfKeyColumns: 1,
			Keys:               []int64{1, 2},
			Options:            []int64{0, 0},
		}
		id, err := cat.AddIndex(ctx, index)
		if err != nil {
			t.Fatalf("adding index: %v", err)
		}

		got, err := cat.Index(ctx, metadata.KeyName, indexName)
		if err != nil {
			t.Fatalf("getting index: %v", err)
		}
		if got.ID != id || got.OwnerID != tableID {
			t.Errorf("index row: id %d owner %d, want %d/%d", got.ID, got.OwnerID, id, tableID)
		}
		if len(got.Keys) != 2 || got.Keys[0] != 1 || got.Keys[1] != 2 {
			t.Errorf("keys order: got %v, want [1 2]", got.Keys)
		}

		// key-count invariant is checked before any write
		bad := &metadata.Index{
			Object:             metadata.Object{Name: uniqueName("badidx")},
			OwnerID:            tableID,
			NumberOfColumns:    3,
			NumberOfKeyColumns: 1,
			Keys:               []int64{1},
		}
		if _, err := cat.AddIndex(ctx, bad); !errors.Is(err, metadata.ErrInvalidParameter) {
			t.Errorf("invalid index: got %v, want ErrInvalidParameter", err)
		}

		removed, err := cat.RemoveIndex(ctx, metadata.KeyID, strconv.FormatInt(id, 10))
		if err != nil {
			t.Fatalf("removing index: %v", err)
		}
		if removed != id {
			t.Errorf("remove returned %d, want %d", removed, id)
		}
		if _, err := cat.Index(ctx, metadata.KeyID, strconv.FormatInt(id, 10)); !errors.Is(err, metadata.ErrIDNotFound) {
			t.Errorf("get after remove: got %v, want ErrIDNotFound", err)
		}
	})
}

func TestColumnStatisticRoundTrip(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()
		name := uniqueName("colstat")

		id, err := cat.AddTable(ctx, sampleTable(name))
		if err != nil {
			t.Fatalf("adding table: %v", err)
		}

		blob := json.RawMessage(`{"histogram":[1,2,3],"null_frac":0.25}`)
		stat := &metadata.ColumnStatistic{TableID: id, OrdinalPosition: 2, ColumnStatistic: blob}
		if err := cat.PutColumnStatistic(ctx, stat); err != nil {
			t.Fatalf("storing statistic: %v", err)
		}

		got, err := cat.ColumnStatistic(ctx, id, 2)
		if err != nil {
			t.Fatalf("reading statistic: %v", err)
		}
		if string(got.ColumnStatistic) != string(blob) {
			t.Errorf("blob: got %s, want %s", got.ColumnStatistic, blob)
		}

		all, err := cat.ColumnStatistics(ctx, id)
		if err != nil {
			t.Fatalf("reading all statistics: %v", err)
		}
		if len(all) != 1 || all[2] == nil {
			t.Fatalf("mapping by ordinal: got %v", all)
		}

		if err := cat.RemoveColumnStatistic(ctx, id, 2); err != nil {
			t.Fatalf("removing statistic: %v", err)
		}
		if _, err := cat.ColumnStatistic(ctx, id, 2); !errors.Is(err, metadata.ErrInvalidParameter) {
			t.Errorf("get after remove: got %v, want ErrInvalidParameter", err)
		}
	})
}

func TestIDMonotonicityAcrossRestart(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()

		var last int64
		for i := 0; i < 3; i++ {
			id, err := cat.AddTable(ctx, sampleTable(uniqueName("mono")))
			if err != nil {
				t.Fatalf("adding table %d: %v", i, err)
			}
			if id <= last {
				t.Fatalf("id %d not greater than previous %d", id, last)
			}
			last = id
		}

		cat = fx.reopen(t, cat)

		id, err := cat.AddTable(ctx, sampleTable(uniqueName("mono")))
		if err != nil {
			t.Fatalf("adding table after reopen: %v", err)
		}
		if id <= last {
			t.Errorf("id after reopen %d not greater than %d", id, last)
		}
	})
}

func TestStatusReportsCountersPerBackend(t *testing.T) {
	runOnBackends(t, func(t *testing.T, cat *catalog.Catalog, fx backendFixture) {
		ctx := context.Background()

		id, err := cat.AddTable(ctx, sampleTable(uniqueName("status")))
		if err != nil {
			t.Fatalf("adding table: %v", err)
		}
		stat := &metadata.ColumnStatistic{
			TableID:         id,
			OrdinalPosition: 1,
			ColumnStatistic: json.RawMessage(`{"distinct": 7}`),
		}
		if err := cat.PutColumnStatistic(ctx, stat); err != nil {
			t.Fatalf("putting statistic: %v", err)
		}

		st, err := cat.Status(ctx)
		if err != nil {
			t.Fatalf("reading status: %v", err)
		}
		if st.Counters[metadata.FamilyTables] < 1 {
			t.Errorf("tables counter: got %d, want >= 1", st.Counters[metadata.FamilyTables])
		}
		if st.Counters[metadata.FamilyColumns] < 3 {
			t.Errorf("columns counter: got %d, want >= 3", st.Counters[metadata.FamilyColumns])
		}
		if _, ok := st.Counters[metadata.FamilyStatistics]; ok {
			t.Error("statistics have no id counter but one was reported")
		}
	})
}
