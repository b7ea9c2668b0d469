package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

// Report summarizes a restore run.
type Report struct {
	Tables     int
	Indexes    int
	Statistics int
	Skipped    []string
}

// Restore loads snapshot contents into the catalog. The catalog issues
// fresh ids on insert, so index owners, index key ids, and statistic table
// ids are remapped from the snapshot's ids to the newly issued ones.
// Objects that cannot be placed are recorded in the report and skipped;
// a snapshot restored into a non-empty catalog skips name collisions the
// same way.
func Restore(ctx context.Context, cat *catalog.Catalog, snap *Snapshot) (*Report, error) {
	report := &Report{}
	tableIDs := make(map[int64]int64, len(snap.Tables))
	columnIDs := make(map[int64]int64)

	for _, table := range snap.Tables {
		oldID := table.ID
		t := table
		newID, err := cat.AddTable(ctx, &t)
		if err != nil {
			report.skip("table %s: %v", table.Name, err)
			continue
		}
		tableIDs[oldID] = newID
		report.Tables++

		if err := mapColumnIDs(ctx, cat, table, newID, columnIDs); err != nil {
			return nil, err
		}
	}

	for _, index := range snap.Indexes {
		owner, ok := tableIDs[index.OwnerID]
		if !ok {
			report.skip("index %s: owner table %d not restored", index.Name, index.OwnerID)
			continue
		}

		idx := index
		idx.OwnerID = owner
		idx.KeysID = make([]int64, 0, len(index.KeysID))
		placed := true
		for _, oldCol := range index.KeysID {
			newCol, ok := columnIDs[oldCol]
			if !ok {
				report.skip("index %s: key column %d not restored", index.Name, oldCol)
				placed = false
				break
			}
			idx.KeysID = append(idx.KeysID, newCol)
		}
		if !placed {
			continue
		}

		if _, err := cat.AddIndex(ctx, &idx); err != nil {
			report.skip("index %s: %v", index.Name, err)
			continue
		}
		report.Indexes++
	}

	for _, rec := range snap.Statistics {
		tableID, ok := tableIDs[rec.TableID]
		if !ok {
			report.skip("statistic for table %d ordinal %d: table not restored",
				rec.TableID, rec.OrdinalPosition)
			continue
		}

		stat := &metadata.ColumnStatistic{
			TableID:         tableID,
			OrdinalPosition: rec.OrdinalPosition,
			ColumnStatistic: json.RawMessage(rec.ColumnStatistic),
		}
		if err := cat.PutColumnStatistic(ctx, stat); err != nil {
			report.skip("statistic for table %d ordinal %d: %v",
				rec.TableID, rec.OrdinalPosition, err)
			continue
		}
		report.Statistics++
	}

	return report, nil
}

// mapColumnIDs reads a freshly inserted table back and records, for each of
// the snapshot table's columns, which new column id its ordinal landed on.
func mapColumnIDs(ctx context.Context, cat *catalog.Catalog, old metadata.Table, newID int64, columnIDs map[int64]int64) error {
	stored, err := cat.Table(ctx, metadata.KeyID, strconv.FormatInt(newID, 10))
	if err != nil {
		return fmt.Errorf("reading back table %s: %w", old.Name, err)
	}

	byOrdinal := make(map[int64]int64, len(stored.Columns))
	for _, col := range stored.Columns {
		byOrdinal[col.OrdinalPosition] = col.ID
	}
	for _, col := range old.Columns {
		if id, ok := byOrdinal[col.OrdinalPosition]; ok {
			columnIDs[col.ID] = id
		}
	}
	return nil
}

func (r *Report) skip(format string, args ...any) {
	r.Skipped = append(r.Skipped, fmt.Sprintf(format, args...))
}
