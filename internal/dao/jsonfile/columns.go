package jsonfile

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

type columnsDAO struct {
	s *Session
}

// Insert stores one column row owned by tableID, stamping the header. The
// declared ordinal position is kept as given; callers insert columns in
// declaration order.
func (d *columnsDAO) Insert(ctx context.Context, tableID int64, column *metadata.Column) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}
	if err := d.s.load(metadata.FamilyColumns); err != nil {
		return metadata.InvalidObjectID, err
	}

	id, err := d.s.gen.Generate(ctx, metadata.FamilyColumns)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating column id: %w", err)
	}

	row := *column
	row.ID = id
	row.TableID = tableID
	row.FormatVersion = metadata.FormatVersion
	row.Generation = metadata.InitialGeneration

	d.s.columns = append(d.s.columns, row)
	d.s.markDirty(metadata.FamilyColumns)
	return id, nil
}

// Select returns the columns of one table ordered by ordinal position.
// Only metadata.KeyTableID is supported.
func (d *columnsDAO) Select(_ context.Context, key metadata.Key, value string) ([]metadata.Column, error) {
	if key != metadata.KeyTableID {
		return nil, fmt.Errorf("column lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	tableID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
	}
	if err := d.s.load(metadata.FamilyColumns); err != nil {
		return nil, err
	}

	var out []metadata.Column
	for i := range d.s.columns {
		if d.s.columns[i].TableID == tableID {
			out = append(out, d.s.columns[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrdinalPosition < out[j].OrdinalPosition
	})
	return out, nil
}

// Delete removes every column of one table. Deleting a table with no
// columns is not an error.
func (d *columnsDAO) Delete(_ context.Context, key metadata.Key, value string) error {
	if key != metadata.KeyTableID {
		return fmt.Errorf("column delete by %q: %w", key, metadata.ErrNotSupported)
	}
	tableID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
	}
	if err := d.s.requireTxn(); err != nil {
		return err
	}
	if err := d.s.load(metadata.FamilyColumns); err != nil {
		return err
	}

	kept := d.s.columns[:0]
	removed := false
	for i := range d.s.columns {
		if d.s.columns[i].TableID == tableID {
			removed = true
			continue
		}
		kept = append(kept, d.s.columns[i])
	}
	d.s.columns = kept
	if removed {
		d.s.markDirty(metadata.FamilyColumns)
	}
	return nil
}
