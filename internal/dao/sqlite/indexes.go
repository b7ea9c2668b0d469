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

	keys, keysID, options, err := encodeIndexLists(index)
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	st, err := d.s.stmt(ctx, dao.StmtIndexesInsert)
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	_, err = st.ExecContext(ctx,
		metadata.FormatVersion, metadata.InitialGeneration, id,
		index.Name, index.Namespace, index.OwnerID, index.AccessMethod,
		index.NumberOfColumns, index.NumberOfKeyColumns, keys, keysID, options)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("inserting index %q: %w", index.Name, err)
	}
	return id, nil
}

func (d *indexesDAO) Select(ctx context.Context, key metadata.Key, value string) (*metadata.Index, error) {
	var st *sql.Stmt
	var arg any
	var err error

	switch key {
	case metadata.KeyID:
		id, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("index id %q: %w", value, metadata.ErrInvalidParameter)
		}
		st, err = d.s.stmt(ctx, dao.StmtIndexesSelectID)
		arg = id
	case metadata.KeyName:
		st, err = d.s.stmt(ctx, dao.StmtIndexesSelectName)
		arg = value
	default:
		return nil, fmt.Errorf("index lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	if err != nil {
		return nil, err
	}

	ix, err := scanIndex(st.QueryRowContext(ctx, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return nil, fmt.Errorf("selecting index: %w", err)
	}
	return ix, nil
}

// SelectAll returns index rows ordered by id.
func (d *indexesDAO) SelectAll(ctx context.Context) ([]metadata.Index, error) {
	st, err := d.s.stmt(ctx, dao.StmtIndexesSelectAll)
	if err != nil {
		return nil, err
	}

	rows, err := st.QueryContext(ctx)
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

	keys, keysID, options, err := encodeIndexLists(index)
	if err != nil {
		return err
	}

	st, err := d.s.stmt(ctx, dao.StmtIndexesUpdate)
	if err != nil {
		return err
	}
	res, err := st.ExecContext(ctx,
		index.Name, index.Namespace, index.OwnerID, index.AccessMethod,
		index.NumberOfColumns, index.NumberOfKeyColumns, keys, keysID, options, id)
	if err != nil {
		return fmt.Errorf("updating index %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating index %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("index id %d: %w", id, metadata.ErrIDNotFound)
	}
	return nil
}

func (d *indexesDAO) Delete(ctx context.Context, key metadata.Key, value string) (int64, error) {
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
			return metadata.InvalidObjectID, fmt.Errorf("index id %q: %w", value, metadata.ErrInvalidParameter)
		}
		st, err = d.s.stmt(ctx, dao.StmtIndexesDeleteID)
		arg = id
	case metadata.KeyName:
		st, err = d.s.stmt(ctx, dao.StmtIndexesDeleteName)
		arg = value
	default:
		return metadata.InvalidObjectID, fmt.Errorf("index lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	var removed int64
	if err := st.QueryRowContext(ctx, arg).Scan(&removed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return metadata.InvalidObjectID, fmt.Errorf("index %s %q: %w", key, value, metadata.NotFoundByKey(key))
		}
		return metadata.InvalidObjectID, fmt.Errorf("deleting index: %w", err)
	}
	return removed, nil
}

func encodeIndexLists(index *metadata.Index) (keys, keysID, options string, err error) {
	if keys, err = encodeIDList(index.Keys); err != nil {
		return "", "", "", err
	}
	if keysID, err = encodeIDList(index.KeysID); err != nil {
		return "", "", "", err
	}
	if options, err = encodeIDList(index.Options); err != nil {
		return "", "", "", err
	}
	return keys, keysID, options, nil
}

func scanIndex(row scanner) (*metadata.Index, error) {
	var ix metadata.Index
	var keys, keysID, options string
	err := row.Scan(&ix.FormatVersion, &ix.Generation, &ix.ID, &ix.Name,
		&ix.Namespace, &ix.OwnerID, &ix.AccessMethod,
		&ix.NumberOfColumns, &ix.NumberOfKeyColumns, &keys, &keysID, &options)
	if err != nil {
		return nil, err
	}

	if ix.Keys, err = decodeIDList(keys); err != nil {
		return nil, err
	}
	if ix.KeysID, err = decodeIDList(keysID); err != nil {
		return nil, err
	}
	if ix.Options, err = decodeIDList(options); err != nil {
		return nil, err
	}
	return &ix, nil
}
