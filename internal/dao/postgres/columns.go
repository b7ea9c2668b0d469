package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

type columnsDAO struct {
	s *Session
}

// Insert stores one column row under the owning table, stamping the header.
func (d *columnsDAO) Insert(ctx context.Context, tableID int64, column *metadata.Column) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}

	id, err := d.s.gen.Generate(ctx, metadata.FamilyColumns)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating column id: %w", err)
	}

	_, err = d.s.tx.Exec(ctx, string(dao.StmtColumnsInsert),
		metadata.FormatVersion, metadata.InitialGeneration, id,
		column.Name, tableID, column.OrdinalPosition, column.DataTypeID,
		column.Nullable, column.DefaultExpr)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("inserting column %q: %w", column.Name, err)
	}
	return id, nil
}

// Select returns the columns of one table ordered by ordinal position.
// Only metadata.KeyTableID lookups are supported.
func (d *columnsDAO) Select(ctx context.Context, key metadata.Key, value string) ([]metadata.Column, error) {
	if key != metadata.KeyTableID {
		return nil, fmt.Errorf("column lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	tableID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
	}

	q, err := d.s.reader()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, string(dao.StmtColumnsSelectTableID), tableID)
	if err != nil {
		return nil, fmt.Errorf("selecting columns of table %d: %w", tableID, err)
	}
	defer rows.Close()

	var out []metadata.Column
	for rows.Next() {
		var c metadata.Column
		err := rows.Scan(&c.FormatVersion, &c.Generation, &c.ID, &c.Name,
			&c.TableID, &c.OrdinalPosition, &c.DataTypeID, &c.Nullable, &c.DefaultExpr)
		if err != nil {
			return nil, fmt.Errorf("scanning column row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}
	return out, nil
}

// Delete removes every column of one table. Removing zero rows is not an
// error: a table may legitimately carry no column metadata.
func (d *columnsDAO) Delete(ctx context.Context, key metadata.Key, value string) error {
	if key != metadata.KeyTableID {
		return fmt.Errorf("column lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	tableID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
	}
	if err := d.s.requireTxn(); err != nil {
		return err
	}

	if _, err := d.s.tx.Exec(ctx, string(dao.StmtColumnsDeleteTableID), tableID); err != nil {
		return fmt.Errorf("deleting columns of table %d: %w", tableID, err)
	}
	return nil
}
