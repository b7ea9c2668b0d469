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

type indexesDAO struct {
	s *Session
}

// Insert stores the index document, stamping the header. A document with
// the same name already present reports ErrAlreadyExists.
func (d *indexesDAO) Insert(ctx context.Context, index *metadata.Index) (int64, error) {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
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

	row := *index
	row.FormatVersion = metadata.FormatVersion
	row.Generation = metadata.InitialGeneration
	row.ID = id

	if _, err := d.s.collection(metadata.FamilyIndexes).InsertOne(opCtx, &row); err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("inserting index %q: %w", index.Name, err)
	}
	return id, nil
}

func (d *indexesDAO) Select(ctx context.Context, key metadata.Key, value string) (*metadata.Index, error) {
	opCtx, err := d.s.reader(ctx)
	if err != nil {
		return nil, err
	}

	var filter bson.D
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("index id %q: %w", value, metadata.ErrInvalidParameter)
		}
		filter = bson.D{{Key: "id", Value: id}}
	case metadata.KeyName:
		filter = bson.D{{Key: "name", Value: value}}
	default:
		return nil, fmt.Errorf("index lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	var ix metadata.Index
	err = d.s.collection(metadata.FamilyIndexes).FindOne(opCtx, filter).Decode(&ix)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("index %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return nil, fmt.Errorf("selecting index: %w", err)
	}
	return &ix, nil
}

// SelectAll returns index documents ordered by id.
func (d *indexesDAO) SelectAll(ctx context.Context) ([]metadata.Index, error) {
	opCtx, err := d.s.reader(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := d.s.collection(metadata.FamilyIndexes).Find(opCtx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("selecting indexes: %w", err)
	}
	defer cursor.Close(opCtx)

	var out []metadata.Index
	if err := cursor.All(opCtx, &out); err != nil {
		return nil, fmt.Errorf("decoding indexes: %w", err)
	}
	return out, nil
}

// Update replaces the document in place, preserving id and format_version
// and incrementing generation.
func (d *indexesDAO) Update(ctx context.Context, id int64, index *metadata.Index) error {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
		return err
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "name", Value: index.Name},
			{Key: "namespace", Value: index.Namespace},
			{Key: "owner_id", Value: index.OwnerID},
			{Key: "access_method", Value: index.AccessMethod},
			{Key: "number_of_columns", Value: index.NumberOfColumns},
			{Key: "number_of_key_columns", Value: index.NumberOfKeyColumns},
			{Key: "keys", Value: index.Keys},
			{Key: "keys_id", Value: index.KeysID},
			{Key: "options", Value: index.Options},
		}},
		{Key: "$inc", Value: bson.D{{Key: "generation", Value: int64(1)}}},
	}
	res, err := d.s.collection(metadata.FamilyIndexes).UpdateOne(opCtx, bson.D{{Key: "id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("updating index %d: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("index id %d: %w", id, metadata.ErrIDNotFound)
	}
	return nil
}

func (d *indexesDAO) Delete(ctx context.Context, key metadata.Key, value string) (int64, error) {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	var filter bson.D
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return metadata.InvalidObjectID, fmt.Errorf("index id %q: %w", value, metadata.ErrInvalidParameter)
		}
		filter = bson.D{{Key: "id", Value: id}}
	case metadata.KeyName:
		filter = bson.D{{Key: "name", Value: value}}
	default:
		return metadata.InvalidObjectID, fmt.Errorf("index lookup by %q: %w", key, metadata.ErrNotSupported)
	}

	var ix metadata.Index
	err = d.s.collection(metadata.FamilyIndexes).FindOneAndDelete(opCtx, filter).Decode(&ix)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return metadata.InvalidObjectID, fmt.Errorf("index %s %q: %w", key, value, metadata.NotFoundByKey(key))
	}
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("deleting index: %w", err)
	}
	return ix.ID, nil
}
