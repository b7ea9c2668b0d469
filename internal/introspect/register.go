package introspect

import (
	"context"
	"fmt"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

// Result reports the registration outcome for one introspected table.
type Result struct {
	Name     string
	TableID  int64
	Indexes  int
	Warnings []string
	Err      error
}

// Register adds introspected tables and their indexes to the catalog. Tables
// are registered independently, so one failure does not stop the rest; the
// returned results carry per-table errors and warnings in input order.
func Register(ctx context.Context, cat *catalog.Catalog, schemas []TableSchema) []Result {
	results := make([]Result, 0, len(schemas))
	for _, schema := range schemas {
		results = append(results, registerOne(ctx, cat, schema))
	}
	return results
}

func registerOne(ctx context.Context, cat *catalog.Catalog, schema TableSchema) Result {
	res := Result{Name: schema.Table.Name}
	for _, col := range schema.Skipped {
		res.Warnings = append(res.Warnings, fmt.Sprintf("column %s skipped: no catalog type mapping", col))
	}

	table := schema.Table
	id, err := cat.AddTable(ctx, &table)
	if err != nil {
		res.Err = fmt.Errorf("adding table %s: %w", schema.Table.Name, err)
		return res
	}
	res.TableID = id

	if len(schema.Indexes) == 0 {
		return res
	}

	// The catalog issued fresh column ids during the add; read the table
	// back to translate index key ordinals into those ids.
	stored, err := cat.Table(ctx, metadata.KeyID, strconv.FormatInt(id, 10))
	if err != nil {
		res.Err = fmt.Errorf("reading back table %s: %w", schema.Table.Name, err)
		return res
	}
	columnIDs := make(map[int64]int64, len(stored.Columns))
	for _, col := range stored.Columns {
		columnIDs[col.OrdinalPosition] = col.ID
	}

	for _, idx := range schema.Indexes {
		index := idx
		index.OwnerID = id
		index.KeysID = make([]int64, 0, len(index.Keys))
		ok := true
		for _, ordinal := range index.Keys {
			colID, found := columnIDs[ordinal]
			if !found {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("index %s skipped: key column %d not registered", idx.Name, ordinal))
				ok = false
				break
			}
			index.KeysID = append(index.KeysID, colID)
		}
		if !ok {
			continue
		}
		if _, err := cat.AddIndex(ctx, &index); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("adding index %s: %v", idx.Name, err))
			continue
		}
		res.Indexes++
	}
	return res
}
