package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

type indexesDAO struct {
	s *Session
}

func (d *indexesDAO) Insert(ctx context.Context, index *metadata.Index) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}

	if _, err := d.Select(ctx, metadata.KeyName, index.Name); err == nil {
		return metadata.InvalidObjectID, fmt.Errorf("index %q: %w", index.Name, metadata.ErrAlreadyExists)
	} else if !errors.Is(err, metadata.ErrNameNotFound) {
		return metadata.InvalidObjectID, err
	}

	id, err := d.s.gen.Generate(ctx, metadata.FamilyIndexes)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating index id: %w", err)
	}

	_, err = d.s.tx.Exec(ctx, string(dao.StmtIndexesInsert),
		metadata.FormatVersion, metadata.InitialGeneration, id,
		index.Name, index.Namespace, index.OwnerID, index.AccessMethod,
		index.NumberOfColumns, index.NumberOfKeyColumns,
		emptyKeysIfNil(index.Keys), emptyKeysIfNil(index.KeysID), emptyKeysIfNil(index.Options))
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("inserting index %q: %w", index.Name, err)
	}
	return id, nil
}

func (d *indexesDAO) Select(ctx context.Context, key metadata.Key, value string) (*metadata.Index, error) {
	q, err := d.s.reader()
	if err != nil {
		return nil, err
	}

	var row pgx.Row
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("index id %q: %w", value, metadata.ErrInvalidParameter)
		}
		row = q.QueryRow(ctx, string(dao.StmtIndexesSelectID), id)
	case metadata.KeyName:
		row = q.QueryRow(ctx, string(dao.StmtIndexesSelectName), value)
	default:
		return nil, fmt.Errorf("index lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	ix, err := scanIndex(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("index %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return nil, fmt.Errorf("selecting index: %w", err)
	}
	return ix, nil
}

// SelectAll returns index rows ordered by id.
func (d *indexesDAO) SelectAll(ctx context.Context) ([]metadata.Index, error) {
	q, err := d.s.reader()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, string(dao.StmtIndexesSelectAll))
	if err != nil {
		return nil, fmt.Errorf("selecting indexes: %w", err)
	}
	defer rows.Close()

	var out []metadata.Index
	for rows.Next() {
		ix, err := scanIndex(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		out = append(out, *ix)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating indexes: %w", err)
	}
	return out, nil
}

func (d *indexesDAO) Update(ctx context.Context, id int64, index *metadata.Index) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}

	tag, err := d.s.tx.Exec(ctx, string(dao.StmtIndexesUpdate),
		id, index.Name, index.Namespace, index.OwnerID, index.AccessMethod,
		index.NumberOfColumns, index.NumberOfKeyColumns,
		emptyKeysIfNil(index.Keys), emptyKeysIfNil(index.KeysID), emptyKeysIfNil(index.Options))
	if err != nil {
		return fmt.Errorf("updating index %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("index id %d: %w", id, metadata.ErrIDNotFound)
	}
	return nil
}

func (d *indexesDAO) Delete(ctx context.Context, key metadata.Key, value string) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}

	var row pgx.Row
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return metadata.InvalidObjectID, fmt.Errorf("index id %q: %w", value, metadata.ErrInvalidParameter)
		}
		row = d.s.tx.QueryRow(ctx, string(dao.StmtIndexesDeleteID), id)
	case metadata.KeyName:
		row = d.s.tx.QueryRow(ctx, string(dao.StmtIndexesDeleteName), value)
	default:
		return metadata.InvalidObjectID, fmt.Errorf("index lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	var removed int64
	if err := row.Scan(&removed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return metadata.InvalidObjectID, fmt.Errorf("index %s %q: %w", key, value, metadata.NotFoundByKey(key))
		}
		return metadata.InvalidObjectID, fmt.Errorf("deleting index: %w", err)
	}
	return removed, nil
}

func scanIndex(row pgx.Row) (*metadata.Index, error) {
	var ix metadata.Index
	err := row.Scan(&ix.FormatVersion, &ix.Generation, &ix.ID, &ix.Name,
		&ix.Namespace, &ix.OwnerID, &ix.AccessMethod,
		&ix.NumberOfColumns, &ix.NumberOfKeyColumns,
		&ix.Keys, &ix.KeysID, &ix.Options)
	if err != nil {
		return nil, err
	}
	return &ix, nil
}
