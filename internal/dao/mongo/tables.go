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

type tablesDAO struct {
	s *Session
}

// Insert stores the table document without its columns, stamping the
// header. A document with the same name already present reports
// ErrAlreadyExists; the provider refines that to the table-name variant
// after rollback.
func (d *tablesDAO) Insert(ctx context.Context, table *metadata.Table) (int64, error) {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
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

	row := *table
	row.FormatVersion = metadata.FormatVersion
	row.Generation = metadata.InitialGeneration
	row.ID = id
	row.Columns = nil

	if _, err := d.s.collection(metadata.FamilyTables).InsertOne(opCtx, &row); err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("inserting table %q: %w", table.Name, err)
	}
	return id, nil
}

func (d *tablesDAO) Select(ctx context.Context, key metadata.Key, value string) (*metadata.Table, error) {
	opCtx, err := d.s.reader(ctx)
	if err != nil {
		return nil, err
	}

	var filter bson.D
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
		}
		filter = bson.D{{Key: "id", Value: id}}
	case metadata.KeyName:
		filter = bson.D{{Key: "name", Value: value}}
	default:
		return nil, fmt.Errorf("table lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	var t metadata.Table
	err = d.s.collection(metadata.FamilyTables).FindOne(opCtx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("table %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return nil, fmt.Errorf("selecting table: %w", err)
	}
	return &t, nil
}

// SelectAll returns table documents ordered by id.
func (d *tablesDAO) SelectAll(ctx context.Context) ([]metadata.Table, error) {
	opCtx, err := d.s.reader(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := d.s.collection(metadata.FamilyTables).Find(opCtx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("selecting tables: %w", err)
	}
	defer cursor.Close(opCtx)

	var out []metadata.Table
	if err := cursor.All(opCtx, &out); err != nil {
		return nil, fmt.Errorf("decoding tables: %w", err)
	}
	return out, nil
}

// Update replaces the document in place, preserving id and format_version
// and incrementing generation.
func (d *tablesDAO) Update(ctx context.Context, id int64, table *metadata.Table) error {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
		return err
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "name", Value: table.Name},
			{Key: "namespace", Value: table.Namespace},
			{Key: "primary_keys", Value: table.PrimaryKeys},
			{Key: "reltuples", Value: table.Tuples},
			{Key: "constraints", Value: table.Constraints},
		}},
		{Key: "$inc", Value: bson.D{{Key: "generation", Value: int64(1)}}},
	}
	res, err := d.s.collection(metadata.FamilyTables).UpdateOne(opCtx, bson.D{{Key: "id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("updating table %d: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("table id %d: %w", id, metadata.ErrIDNotFound)
	}
	return nil
}

func (d *tablesDAO) Delete(ctx context.Context, key metadata.Key, value string) (int64, error) {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	var filter bson.D
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return metadata.InvalidObjectID, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
		}
		filter = bson.D{{Key: "id", Value: id}}
	case metadata.KeyName:
		filter = bson.D{{Key: "name", Value: value}}
	default:
		return metadata.InvalidObjectID, fmt.Errorf("table lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	var t metadata.Table
	err = d.s.collection(metadata.FamilyTables).FindOneAndDelete(opCtx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return metadata.InvalidObjectID, fmt.Errorf("table %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("deleting table: %w", err)
	}
	return t.ID, nil
}
