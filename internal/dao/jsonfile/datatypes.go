package jsonfile

import (
	"context"
	"fmt"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

type datatypesDAO struct {
	s *Session
}

func (d *datatypesDAO) Select(_ context.Context, key metadata.Key, value string) (*metadata.DataType, error) {
	if err := d.s.load(metadata.FamilyDataTypes); err != nil {
		return nil, err
	}

	for i := range d.s.datatypes {
		dt := &d.s.datatypes[i]
		match := false
		switch key {
		case metadata.KeyID:
			match = strconv.FormatInt(dt.ID, 10) == value
		case metadata.KeyName:
			match = dt.Name == value
		case metadata.KeyPgDataType:
			match = strconv.FormatInt(dt.PgDataType, 10) == value
		case metadata.KeyPgDataTypeName:
			match = dt.PgDataTypeName == value
		case metadata.KeyPgDataTypeQualifiedName:
			match = dt.PgDataTypeQualifiedName == value
		default:
			return nil, fmt.Errorf("datatype lookup by %q: %w", key, metadata.ErrNotSupported)
		}
		if match {
			row := *dt
			return &row, nil
		}
	}
	return nil, fmt.Errorf("datatype %s=%q: %w", key, value, metadata.NotFoundByKey(key))
}

// SelectAll returns the seeded catalog in file order.
func (d *datatypesDAO) SelectAll(_ context.Context) ([]metadata.DataType, error) {
	if err := d.s.load(metadata.FamilyDataTypes); err != nil {
		return nil, err
	}

	out := make([]metadata.DataType, len(d.s.datatypes))
	copy(out, d.s.datatypes)
	return out, nil
}
