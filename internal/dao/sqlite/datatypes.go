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

type datatypesDAO struct {
	s *Session
}

func (d *datatypesDAO) Select(ctx context.Context, key metadata.Key, value string) (*metadata.DataType, error) {
	var st *sql.Stmt
	var arg any
	var err error

	switch key {
	case metadata.KeyID:
		id, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("datatype id %q: %w", value, metadata.ErrInvalidParameter)
		}
		st, err = d.s.stmt(ctx, dao.StmtDataTypesSelectID)
		arg = id
	case metadata.KeyName:
		st, err = d.s.stmt(ctx, dao.StmtDataTypesSelectName)
		arg = value
	case metadata.KeyPgDataType:
		pgType, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("pg data type %q: %w", value, metadata.ErrInvalidParameter)
		}
		st, err = d.s.stmt(ctx, dao.StmtDataTypesSelectPgType)
		arg = pgType
	case metadata.KeyPgDataTypeName:
		st, err = d.s.stmt(ctx, dao.StmtDataTypesSelectPgName)
		arg = value
	case metadata.KeyPgDataTypeQualifiedName:
		st, err = d.s.stmt(ctx, dao.StmtDataTypesSelectPgQualName)
		arg = value
	default:
		return nil, fmt.Errorf("datatype lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	if err != nil {
		return nil, err
	}

	var dt metadata.DataType
	row := st.QueryRowContext(ctx, arg)
	err = row.Scan(&dt.FormatVersion, &dt.Generation, &dt.ID, &dt.Name,
		&dt.PgDataType, &dt.PgDataTypeName, &dt.PgDataTypeQualifiedName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("datatype %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return nil, fmt.Errorf("selecting datatype: %w", err)
	}
	return &dt, nil
}

// SelectAll returns the type catalog ordered by id.
func (d *datatypesDAO) SelectAll(ctx context.Context) ([]metadata.DataType, error) {
	st, err := d.s.stmt(ctx, dao.StmtDataTypesSelectAll)
	if err != nil {
		return nil, err
	}

	rows, err := st.QueryContext(ctx)
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
