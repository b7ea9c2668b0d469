package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

type statisticsDAO struct {
	s *Session
}

// statDoc stores the statistic blob as JSON text instead of a bson
// subdocument, so arbitrary payloads round-trip byte for byte.
type statDoc struct {
	TableID         int64  `bson:"table_id"`
	OrdinalPosition int64  `bson:"ordinal_position"`
	ColumnStatistic string `bson:"column_statistic,omitempty"`
}

func (doc *statDoc) toMetadata() metadata.ColumnStatistic {
	st := metadata.ColumnStatistic{
		TableID:         doc.TableID,
		OrdinalPosition: doc.OrdinalPosition,
	}
	if doc.ColumnStatistic != "" {
		st.ColumnStatistic = json.RawMessage(doc.ColumnStatistic)
	}
	return st
}

func statFilter(tableID, ordinalPosition int64) bson.D {
	return bson.D{
		{Key: "table_id", Value: tableID},
		{Key: "ordinal_position", Value: ordinalPosition},
	}
}

// Upsert stores the statistic blob, replacing one already present for the
// same (table id, ordinal position).
func (d *statisticsDAO) Upsert(ctx context.Context, stat *metadata.ColumnStatistic) error {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
		return err
	}

	doc := statDoc{
		TableID:         stat.TableID,
		OrdinalPosition: stat.OrdinalPosition,
		ColumnStatistic: string(stat.ColumnStatistic),
	}
	opts := options.Replace().SetUpsert(true)
	_, err = d.s.collection(metadata.FamilyStatistics).
		ReplaceOne(opCtx, statFilter(stat.TableID, stat.OrdinalPosition), &doc, opts)
	if err != nil {
		return fmt.Errorf("upserting statistic for table %d position %d: %w",
			stat.TableID, stat.OrdinalPosition, err)
	}
	return nil
}

func (d *statisticsDAO) Select(ctx context.Context, tableID, ordinalPosition int64) (*metadata.ColumnStatistic, error) {
	opCtx, err := d.s.reader(ctx)
	if err != nil {
		return nil, err
	}

	var doc statDoc
	err = d.s.collection(metadata.FamilyStatistics).
		FindOne(opCtx, statFilter(tableID, ordinalPosition)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("statistic for table %d position %d: %w",
			tableID, ordinalPosition, metadata.ErrInvalidParameter)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting statistic: %w", err)
	}
	st := doc.toMetadata()
	return &st, nil
}

// SelectAllByTable returns the statistics of one table ordered by ordinal
// position. A table with no statistics reports ErrInvalidParameter.
func (d *statisticsDAO) SelectAllByTable(ctx context.Context, tableID int64) ([]metadata.ColumnStatistic, error) {
	opCtx, err := d.s.reader(ctx)
	if err != nil {
		return nil, err
	}

	filter := bson.D{{Key: "table_id", Value: tableID}}
	opts := options.Find().SetSort(bson.D{{Key: "ordinal_position", Value: 1}})
	cursor, err := d.s.collection(metadata.FamilyStatistics).Find(opCtx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("selecting statistics of table %d: %w", tableID, err)
	}
	defer cursor.Close(opCtx)

	var docs []statDoc
	if err := cursor.All(opCtx, &docs); err != nil {
		return nil, fmt.Errorf("decoding statistics: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("statistics of table %d: %w", tableID, metadata.ErrInvalidParameter)
	}

	out := make([]metadata.ColumnStatistic, len(docs))
	for i := range docs {
		out[i] = docs[i].toMetadata()
	}
	return out, nil
}

func (d *statisticsDAO) Delete(ctx context.Context, tableID, ordinalPosition int64) error {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
		return err
	}

	res, err := d.s.collection(metadata.FamilyStatistics).
		DeleteOne(opCtx, statFilter(tableID, ordinalPosition))
	if err != nil {
		return fmt.Errorf("deleting statistic for table %d position %d: %w",
			tableID, ordinalPosition, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("statistic for table %d position %d: %w",
			tableID, ordinalPosition, metadata.ErrInvalidParameter)
	}
	return nil
}

func (d *statisticsDAO) DeleteByTable(ctx context.Context, tableID int64) error {
	opCtx, err := d.s.requireTxn(ctx)
	if err != nil {
		return err
	}

	filter := bson.D{{Key: "table_id", Value: tableID}}
	res, err := d.s.collection(metadata.FamilyStatistics).DeleteMany(opCtx, filter)
	if err != nil {
		return fmt.Errorf("deleting statistics of table %d: %w", tableID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("statistics of table %d: %w", tableID, metadata.ErrInvalidParameter)
	}
	return nil
}
