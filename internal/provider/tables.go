package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

// Tables registers tables together with their owned columns. A table and
// its columns are created and destroyed as one atomic unit; statistics
// stored for the table are cascaded on removal.
type Tables struct {
	sess      dao.Session
	datatypes *DataTypes
}

// NewTables creates the tables provider over one session.
func NewTables(sess dao.Session) *Tables {
	return &Tables{sess: sess, datatypes: NewDataTypes(sess)}
}

// Add validates the table, then inserts the table row and every column in
// declaration order inside one transaction. Partial column sets are never
// committed. Returns the new table id.
func (p *Tables) Add(ctx context.Context, table *metadata.Table) (int64, error) {
	if err := p.validate(ctx, table); err != nil {
		return metadata.InvalidObjectID, err
	}

	if err := p.sess.Begin(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}

	id, err := p.sess.Tables().Insert(ctx, table)
	if err != nil {
		err = rollback(ctx, p.sess, err)
		// Refine duplicates after the rollback, when the re-select can
		// only see committed state.
		if errors.Is(err, metadata.ErrAlreadyExists) {
			if _, selErr := p.sess.Tables().Select(ctx, metadata.KeyName, table.Name); selErr == nil {
				return metadata.InvalidObjectID,
					fmt.Errorf("table %q: %w", table.Name, metadata.ErrTableNameAlreadyExists)
			}
		}
		return metadata.InvalidObjectID, err
	}

	for i := range table.Columns {
		if _, err := p.sess.Columns().Insert(ctx, id, &table.Columns[i]); err != nil {
			return metadata.InvalidObjectID, rollback(ctx, p.sess, err)
		}
	}

	if err := p.sess.Commit(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}
	return id, nil
}

// Get returns the table with its columns attached in ordinal order.
func (p *Tables) Get(ctx context.Context, key metadata.Key, value string) (*metadata.Table, error) {
	table, err := p.sess.Tables().Select(ctx, key, value)
	if err != nil {
		return nil, err
	}
	if err := p.attachColumns(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

// GetAll returns every table with its columns attached.
func (p *Tables) GetAll(ctx context.Context) ([]metadata.Table, error) {
	tables, err := p.sess.Tables().SelectAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tables {
		if err := p.attachColumns(ctx, &tables[i]); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// Update replaces the table row and its column set inside one transaction.
// The row keeps its id and format_version and gains a generation; the old
// columns are removed and the new ones inserted with fresh ids.
func (p *Tables) Update(ctx context.Context, id int64, table *metadata.Table) error {
	if err := p.validate(ctx, table); err != nil {
		return err
	}

	if err := p.sess.Begin(ctx); err != nil {
		return err
	}

	if err := p.sess.Tables().Update(ctx, id, table); err != nil {
		return rollback(ctx, p.sess, err)
	}

	tableID := strconv.FormatInt(id, 10)
	if err := p.sess.Columns().Delete(ctx, metadata.KeyTableID, tableID); err != nil {
		return rollback(ctx, p.sess, err)
	}
	for i := range table.Columns {
		if _, err := p.sess.Columns().Insert(ctx, id, &table.Columns[i]); err != nil {
			return rollback(ctx, p.sess, err)
		}
	}

	return p.sess.Commit(ctx)
}

// Remove deletes the table row, its columns and its column statistics
// inside one transaction, and returns the removed table's id.
func (p *Tables) Remove(ctx context.Context, key metadata.Key, value string) (int64, error) {
	if err := p.sess.Begin(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}

	id, err := p.sess.Tables().Delete(ctx, key, value)
	if err != nil {
		return metadata.InvalidObjectID, rollback(ctx, p.sess, err)
	}

	tableID := strconv.FormatInt(id, 10)
	if err := p.sess.Columns().Delete(ctx, metadata.KeyTableID, tableID); err != nil {
		return metadata.InvalidObjectID, rollback(ctx, p.sess, err)
	}

	// A table without statistics has nothing to cascade.
	err = p.sess.Statistics().DeleteByTable(ctx, id)
	if err != nil && !errors.Is(err, metadata.ErrInvalidParameter) {
		return metadata.InvalidObjectID, rollback(ctx, p.sess, err)
	}

	if err := p.sess.Commit(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}
	return id, nil
}

// GetStatistic returns the bare table row, whose reltuples field carries
// the tuple-count estimate. Columns are not attached.
func (p *Tables) GetStatistic(ctx context.Context, key metadata.Key, value string) (*metadata.Table, error) {
	return p.sess.Tables().Select(ctx, key, value)
}

// SetStatistic updates the tuple-count estimate of one table without
// touching its columns, and returns the table's id. The count must be a
// finite, non-negative number.
func (p *Tables) SetStatistic(ctx context.Context, key metadata.Key, value string, tuples float64) (int64, error) {
	if math.IsNaN(tuples) || math.IsInf(tuples, 0) || tuples < 0 {
		return metadata.InvalidObjectID, fmt.Errorf("tuple count %v: %w", tuples, metadata.ErrInvalidParameter)
	}

	if err := p.sess.Begin(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}

	table, err := p.sess.Tables().Select(ctx, key, value)
	if err != nil {
		return metadata.InvalidObjectID, rollback(ctx, p.sess, err)
	}
	table.Tuples = tuples

	if err := p.sess.Tables().Update(ctx, table.ID, table); err != nil {
		return metadata.InvalidObjectID, rollback(ctx, p.sess, err)
	}

	if err := p.sess.Commit(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}
	return table.ID, nil
}

func (p *Tables) attachColumns(ctx context.Context, table *metadata.Table) error {
	columns, err := p.sess.Columns().Select(ctx, metadata.KeyTableID, strconv.FormatInt(table.ID, 10))
	if err != nil {
		return err
	}
	table.Columns = columns
	return nil
}

// validate rejects malformed input before any write happens.
func (p *Tables) validate(ctx context.Context, table *metadata.Table) error {
	if table.Name == "" {
		return fmt.Errorf("table name is empty: %w", metadata.ErrInvalidParameter)
	}
	for i := range table.Columns {
		c := &table.Columns[i]
		if c.Name == "" {
			return fmt.Errorf("column %d of table %q has no name: %w",
				i+1, table.Name, metadata.ErrInvalidParameter)
		}
		if c.OrdinalPosition <= 0 {
			return fmt.Errorf("column %q ordinal position %d: %w",
				c.Name, c.OrdinalPosition, metadata.ErrInvalidParameter)
		}
		if _, err := p.datatypes.Get(ctx, metadata.KeyID, strconv.FormatInt(c.DataTypeID, 10)); err != nil {
			return fmt.Errorf("column %q data type %d: %w",
				c.Name, c.DataTypeID, metadata.ErrInvalidParameter)
		}
		if c.Nullable == nil {
			return fmt.Errorf("column %q nullable not set: %w", c.Name, metadata.ErrInvalidParameter)
		}
	}
	return nil
}
