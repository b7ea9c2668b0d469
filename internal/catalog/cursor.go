package catalog

import (
	"context"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

// Cursor reads the table family sequentially. It works on a snapshot
// taken when the cursor is opened; rows committed afterwards are not
// visible to it.
type Cursor struct {
	tables []metadata.Table
	pos    int
}

// OpenTableCursor snapshots the table family for sequential reads.
func (c *Catalog) OpenTableCursor(ctx context.Context) (*Cursor, error) {
	tables, err := c.Tables(ctx)
	if err != nil {
		return nil, err
	}
	return &Cursor{tables: tables}, nil
}

// Next returns the next table, or ErrEndOfRow once the snapshot is
// exhausted.
func (cur *Cursor) Next() (*metadata.Table, error) {
	if cur.pos >= len(cur.tables) {
		return nil, metadata.ErrEndOfRow
	}
	table := &cur.tables[cur.pos]
	cur.pos++
	return table, nil
}
