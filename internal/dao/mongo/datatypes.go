package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

type datatypesDAO struct {
	s *Session
}

func (d *datatypesDAO) Select(ctx context.Context, key metadata.Key, value string) (*metadata.DataType, error) {
	opCtx, err := d.s.reader(ctx)
	if err != nil {
		return nil, err
	}

	var filter bson.D
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("datatype id %q: %w", value, metadata.ErrInvalidParameter)
		}
		filter = bson.D{{Key: "id", Value: id}}
	case metadata.KeyName:
		filter = bson.D{{Key: "name", Value: value}}
	case metadata.KeyPgDataType:
		pgType, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("pg data type %q: %w", value, metadata.ErrInvalidParameter)
		}
		filter = bson.D{{Key: "pg_data_type", Value: pgType}}
	case metadata.KeyPgDataTypeName:
		filter = bson.D{{Key: "pg_data_type_name", Value: value}}
	case metadata.KeyPgDataTypeQualifiedName:
		filter = bson.D{{Key: "pg_data_type_qualified_name", Value: value}}
	default:
		return nil, fmt.Errorf("datatype lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	var dt metadata.DataType
	err = d.s.collection(metadata.FamilyDataTypes).FindOne(opCtx, filter).Decode(&dt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("datatype %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return nil, fmt.Errorf("selecting datatype: %w", err)
	}
	return &dt, nil
}

// SelectAll returns the type catalog ordered by id.
func (d *datatypesDAO) SelectAll(ctx context.Context) ([]metadata.DataType, error) {
	opCtx, err := d.s.reader(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := d.s.collection(metadata.FamilyDataTypes).Find(opCtx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("selecting datatypes: %w", err)
	}
	defer cursor.Close(opCtx)

	var out []metadata.DataType
	if err := cursor.All(opCtx, &out); err != nil {
		return nil, fmt.Errorf("decoding datatypes: %w", err)
	}
	return out, nil
}
