package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

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

	constraints, err := encodeConstraints(table.Constraints)
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	_, err = d.s.tx.Exec(ctx, string(dao.StmtTablesInsert),
		metadata.FormatVersion, metadata.InitialGeneration, id,
		table.Name, table.Namespace, emptyKeysIfNil(table.PrimaryKeys),
		table.Tuples, constraints)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("inserting table %q: %w", table.Name, err)
	}
	return id, nil
}

func (d *tablesDAO) Select(ctx context.Context, key metadata.Key, value string) (*metadata.Table, error) {
	q, err := d.s.reader()
	if err != nil {
		return nil, err
	}

	var row pgx.Row
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
		}
		row = q.QueryRow(ctx, string(dao.StmtTablesSelectID), id)
	case metadata.KeyName:
		row = q.QueryRow(ctx, string(dao.StmtTablesSelectName), value)
	default:
		return nil, fmt.Errorf("table lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	t, err := scanTable(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("table %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return nil, fmt.Errorf("selecting table: %w", err)
	}
	return t, nil
}

// SelectAll returns table rows ordered by id.
func (d *tablesDAO) SelectAll(ctx context.Context) ([]metadata.Table, error) {
	q, err := d.s.reader()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, string(dao.StmtTablesSelectAll))
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

	constraints, err := encodeConstraints(table.Constraints)
	if err != nil {
		return err
	}

	tag, err := d.s.tx.Exec(ctx, string(dao.StmtTablesUpdate),
		id, table.Name, table.Namespace, emptyKeysIfNil(table.PrimaryKeys),
		table.Tuples, constraints)
	if err != nil {
		return fmt.Errorf("updating table %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table id %d: %w", id, metadata.ErrIDNotFound)
	}
	return nil
}

func (d *tablesDAO) Delete(ctx context.Context, key metadata.Key, value string) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}

	var row pgx.Row
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return metadata.InvalidObjectID, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
		}
		row = d.s.tx.QueryRow(ctx, string(dao.StmtTablesDeleteID), id)
	case metadata.KeyName:
		row = d.s.tx.QueryRow(ctx, string(dao.StmtTablesDeleteName), value)
	default:
		return metadata.InvalidObjectID, fmt.Errorf("table lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	var removed int64
	if err := row.Scan(&removed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return metadata.InvalidObjectID, fmt.Errorf("table %s %q: %w", key, value, metadata.NotFoundByKey(key))
		}
		return metadata.InvalidObjectID, fmt.Errorf("deleting table: %w", err)
	}
	return removed, nil
}

func scanTable(row pgx.Row) (*metadata.Table, error) {
	var t metadata.Table
	var constraints []byte
	err := row.Scan(&t.FormatVersion, &t.Generation, &t.ID, &t.Name,
		&t.Namespace, &t.PrimaryKeys, &t.Tuples, &constraints)
	if err != nil {
		return nil, err
	}
	if len(constraints) > 0 {
		if err := json.Unmarshal(constraints, &t.Constraints); err != nil {
			return nil, fmt.Errorf("parsing table constraints: %w", err)
		}
	}
	return &t, nil
}

// encodeConstraints renders the constraint list as jsonb, NULL when empty.
func encodeConstraints(constraints []metadata.Constraint) ([]byte, error) {
	if len(constraints) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(constraints)
	if err != nil {
		return nil, fmt.Errorf("marshaling table constraints: %w", err)
	}
	return data, nil
}

func emptyKeysIfNil(keys []int64) []int64 {
	if keys == nil {
		return []int64{}
	}
	return keys
}
