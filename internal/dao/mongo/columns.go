package mongo

import (
	"context"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

type columnsDAO struct {
	s *Session
}

// Insert stores one column document under the owning table, stamping the
// header.
func (d *columnsDAO) Insert(ctx context.Context, tableID int64, column *metadata.Column) (int64, error) {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	id, err := d.s.gen.Generate(ctx, metadata.FamilyColumns)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating column id: %w", err)
	}

	row := *column
	row.FormatVersion = metadata.FormatVersion
	row.Generation = metadata.InitialGeneration
	row.ID = id
	row.TableID = tableID

	if _, err := d.s.collection(metadata.FamilyColumns).InsertOne(opCtx, &row); err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("inserting column %q: %w", column.Name, err)
	}
	return id, nil
}

// Select returns the columns of one table ordered by ordinal position.
// Only metadata.KeyTableID lookups are supported.
func (d *columnsDAO) Select(ctx context.Context, key metadata.Key, value string) ([]metadata.Column, error) {
	if key != metadata.KeyTableID {
		return nil, fmt.Errorf("column lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	tableID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
	}

	opCtx, err := d.s.reader(ctx)
	if err != nil {
		return nil, err
	}

	filter := bson.D{{Key: "table_id", Value: tableID}}
	opts := options.Find().SetSort(bson.D{{Key: "ordinal_position", Value: 1}})
	cursor, err := d.s.collection(metadata.FamilyColumns).Find(opCtx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("selecting columns of table %d: %w", tableID, err)
	}
	defer cursor.Close(opCtx)

	var out []metadata.Column
	if err := cursor.All(opCtx, &out); err != nil {
		return nil, fmt.Errorf("decoding columns: %w", err)
	}
	return out, nil
}

// Delete removes every column of one table. Removing zero documents is not
// an error: a table may legitimately carry no column metadata.
func (d *columnsDAO) Delete(ctx context.Context, key metadata.Key, value string) error {
	if key != metadata.KeyTableID {
		return fmt.Errorf("column lookup by %q: %w", key, metadata.ErrNotSupported)
	}
	tableID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("table id %q: %w", value, metadata.ErrInvalidParameter)
	}

	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
		return err
	}

	filter := bson.D{{Key: "table_id", Value: tableID}}
	if _, err := d.s.collection(metadata.FamilyColumns).DeleteMany(opCtx, filter); err != nil {
		return fmt.Errorf("deleting columns of table %d: %w", tableID, err)
	}
	return nil
}
