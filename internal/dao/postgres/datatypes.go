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

type datatypesDAO struct {
	s *Session
}

func (d *datatypesDAO) Select(ctx context.Context, key metadata.Key, value string) (*metadata.DataType, error) {
	q, err := d.s.reader()
	if err != nil {
		return nil, err
	}

	var row pgx.Row
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("datatype id %q: %w", value, metadata.ErrInvalidParameter)
		}
		row = q.QueryRow(ctx, string(dao.StmtDataTypesSelectID), id)
	case metadata.KeyName:
		row = q.QueryRow(ctx, string(dao.StmtDataTypesSelectName), value)
	case metadata.KeyPgDataType:
		pgType, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("pg data type %q: %w", value, metadata.ErrInvalidParameter)
		}
		row = q.QueryRow(ctx, string(dao.StmtDataTypesSelectPgType), pgType)
	case metadata.KeyPgDataTypeName:
		row = q.QueryRow(ctx, string(dao.StmtDataTypesSelectPgName), value)
	case metadata.KeyPgDataTypeQualifiedName:
		row = q.QueryRow(ctx, string(dao.StmtDataTypesSelectPgQualName), value)
	default:
		return nil, fmt.Errorf("datatype lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	var dt metadata.DataType
	err = row.Scan(&dt.FormatVersion, &dt.Generation, &dt.ID, &dt.Name,
		&dt.PgDataType, &dt.PgDataTypeName, &dt.PgDataTypeQualifiedName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("datatype %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return nil, fmt.Errorf("selecting datatype: %w", err)
	}
	return &dt, nil
}

// SelectAll returns the type catalog ordered by id.
func (d *datatypesDAO) SelectAll(ctx context.Context) ([]metadata.DataType, error) {
	q, err := d.s.reader()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, string(dao.StmtDataTypesSelectAll))
	if err != nil {
		return nil, fmt.Errorf("selecting datatypes: %w", err)
	}
	defer rows.Close()

	var out []metadata.DataType
	for rows.Next() {
		var dt metadata.DataType
		err := rows.Scan(&dt.FormatVersion, &dt.Generation, &dt.ID, &dt.Name,
			&dt.PgDataType, &dt.PgDataTypeName, &dt.PgDataTypeQualifiedName)
		if err != nil {
			return nil, fmt.Errorf("scanning datatype row: %w", err)
		}
		out = append(out, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating datatypes: %w", err)
	}
	return out, nil
}
