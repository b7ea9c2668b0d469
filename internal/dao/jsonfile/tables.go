package jsonfile

import (
	"context"
	"fmt"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

type tablesDAO struct {
	s *Session
}

// Insert stores the table row without its columns, stamping the header.
// A row with the same name already present reports ErrAlreadyExists; the
// provider refines that to the table-name variant after rollback.
func (d *tablesDAO) Insert(ctx context.Context, table *metadata.Table) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}
	if err := d.s.load(metadata.FamilyTables); err != nil {
		return metadata.InvalidObjectID, err
	}

	for i := range d.s.tables {
		if d.s.tables[i].Name == table.Name {
			return metadata.InvalidObjectID, fmt.Errorf("table %q: %w", table.Name, metadata.ErrAlreadyExists)
		}
	}

	id, err := d.s.gen.Generate(ctx, metadata.FamilyTables)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating table id: %w", err)
	}

	row := *table
	row.ID = id
	row.FormatVersion = metadata.FormatVersion
	row.Generation = metadata.InitialGeneration
	row.Columns = nil

	d.s.tables = append(d.s.tables, row)
	d.s.markDirty(metadata.FamilyTables)
	return id, nil
}

func (d *tablesDAO) Select(_ context.Context, key metadata.Key, value string) (*metadata.Table, error) {
	if err := d.s.load(metadata.FamilyTables); err != nil {
		return nil, err
	}

	i, err := d.find(key, value)
	if err != nil {
		return nil, err
	}
	row := d.s.tables[i]
	return &row, nil
}

// SelectAll returns table rows in insertion order.
func (d *tablesDAO) SelectAll(_ context.Context) ([]metadata.Table, error) {
	if err := d.s.load(metadata.FamilyTables); err != nil {
		return nil, err
	}

	out := make([]metadata.Table, len(d.s.tables))
	copy(out, d.s.tables)
	return out, nil
}

// Update replaces the row in place, preserving id and format_version and
// incrementing generation.
func (d *tablesDAO) Update(_ context.Context, id int64, table *metadata.Table) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}
	if err := d.s.load(metadata.FamilyTables); err != nil {
		return err
	}

	i, err := d.find(metadata.KeyID, strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}

	old := d.s.tables[i]
	row := *table
	row.ID = old.ID
	row.FormatVersion = old.FormatVersion
	row.Generation = old.Generation + 1
	row.Columns = nil

	d.s.tables[i] = row
	d.s.markDirty(metadata.FamilyTables)
	return nil
}

func (d *tablesDAO) Delete(_ context.Context, key metadata.Key, value string) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}
	if err := d.s.load(metadata.FamilyTables); err != nil {
		return metadata.InvalidObjectID, err
	}

	i, err := d.find(key, value)
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	id := d.s.tables[i].ID
	d.s.tables = append(d.s.tables[:i], d.s.tables[i+1:]...)
	d.s.markDirty(metadata.FamilyTables)
	return id, nil
}

// find locates a row by key, reporting the key-specific not-found kind.
func (d *tablesDAO) find(key metadata.Key, value string) (int, error) {
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
		}
		for i := range d.s.tables {
			if d.s.tables[i].ID == id {
				return i, nil
			}
		}
		return 0, fmt.Errorf("table id %d: %w", id, metadata.ErrIDNotFound)
	case metadata.KeyName:
		for i := range d.s.tables {
			if d.s.tables[i].Name == value {
				return i, nil
			}
		}
		return 0, fmt.Errorf("table %q: %w", value, metadata.ErrNameNotFound)
	default:
		return 0, fmt.Errorf("table lookup by %q: %w", key, metadata.ErrNotSupported)
	}
}
