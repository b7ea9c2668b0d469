package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/dao"
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

	if _, err := d.Select(ctx, metadata.KeyName, table.Name); err == nil {
		return metadata.InvalidObjectID, fmt.Errorf("table %q: %w", table.Name, metadata.ErrAlreadyExists)
	} else if !errors.Is(err, metadata.ErrNameNotFound) {
		return metadata.InvalidObjectID, err
	}

	id, err := d.s.gen.Generate(ctx, metadata.FamilyTables)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating table id: %w", err)
	}

	primaryKeys, err := encodeIDList(table.PrimaryKeys)
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	constraints, err := encodeConstraints(table.Constraints)
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	st, err := d.s.stmt(ctx, dao.StmtTablesInsert)
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	_, err = st.ExecContext(ctx,
		metadata.FormatVersion, metadata.InitialGeneration, id,
		table.Name, table.Namespace, primaryKeys, table.Tuples, constraints)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("inserting table %q: %w", table.Name, err)
	}
	return id, nil
}

func (d *tablesDAO) Select(ctx context.Context, key metadata.Key, value string) (*metadata.Table, error) {
	var st *sql.Stmt
	var arg any
	var err error

	switch key {
	case metadata.KeyID:
		id, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
		}
		st, err = d.s.stmt(ctx, dao.StmtTablesSelectID)
		arg = id
	case metadata.KeyName:
		st, err = d.s.stmt(ctx, dao.StmtTablesSelectName)
		arg = value
	default:
		return nil, fmt.Errorf("table lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	if err != nil {
		return nil, err
	}

	t, err := scanTable(st.QueryRowContext(ctx, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return nil, fmt.Errorf("selecting table: %w", err)
	}
	return t, nil
}

// SelectAll returns table rows ordered by id.
func (d *tablesDAO) SelectAll(ctx context.Context) ([]metadata.Table, error) {
	st, err := d.s.stmt(ctx, dao.StmtTablesSelectAll)
	if err != nil {
		return nil, err
	}

	rows, err := st.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("selecting tables: %w", err)
	}
	defer rows.Close()

	var out []metadata.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning table row: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}
	return out, nil
}

// Update replaces the row in place, preserving id and format_version and
// incrementing generation.
func (d *tablesDAO) Update(ctx context.Context, id int64, table *metadata.Table) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}

	primaryKeys, err := encodeIDList(table.PrimaryKeys)
	if err != nil {
		return err
	}
	constraints, err := encodeConstraints(table.Constraints)
	if err != nil {
		return err
	}

	st, err := d.s.stmt(ctx, dao.StmtTablesUpdate)
	if err != nil {
		return err
	}
	res, err := st.ExecContext(ctx,
		table.Name, table.Namespace, primaryKeys, table.Tuples, constraints, id)
	if err != nil {
		return fmt.Errorf("updating table %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating table %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("table id %d: %w", id, metadata.ErrIDNotFound)
	}
	return nil
}

func (d *tablesDAO) Delete(ctx context.Context, key metadata.Key, value string) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}

	var st *sql.Stmt
	var arg any
	var err error

	switch key {
	case metadata.KeyID:
		id, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return metadata.InvalidObjectID, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
		}
		st, err = d.s.stmt(ctx, dao.StmtTablesDeleteID)
		arg = id
	case metadata.KeyName:
		st, err = d.s.stmt(ctx, dao.StmtTablesDeleteName)
		arg = value
	default:
		return metadata.InvalidObjectID, fmt.Errorf("table lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	var removed int64
	if err := st.QueryRowContext(ctx, arg).Scan(&removed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return metadata.InvalidObjectID, fmt.Errorf("table %s %q: %w", key, value, metadata.NotFoundByKey(key))
		}
		return metadata.InvalidObjectID, fmt.Errorf("deleting table: %w", err)
	}
	return removed, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTable(row scanner) (*metadata.Table, error) {
	var t metadata.Table
	var primaryKeys string
	var constraints []byte
	err := row.Scan(&t.FormatVersion, &t.Generation, &t.ID, &t.Name,
		&t.Namespace, &primaryKeys, &t.Tuples, &constraints)
	if err != nil {
		return nil, err
	}

	if t.PrimaryKeys, err = decodeIDList(primaryKeys); err != nil {
		return nil, err
	}
	if t.Constraints, err = decodeConstraints(constraints); err != nil {
		return nil, err
	}
	return &t, nil
}
