package provider

import (
	"context"
	"fmt"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

// Statistics stores per-column statistic blobs keyed by
// (table id, ordinal position). The blobs are opaque to the catalog.
type Statistics struct {
	sess dao.Session
}

// NewStatistics creates the statistics provider over one session.
func NewStatistics(sess dao.Session) *Statistics {
	return &Statistics{sess: sess}
}

// Upsert stores the statistic, replacing one already present under the
// same key.
func (p *Statistics) Upsert(ctx context.Context, stat *metadata.ColumnStatistic) error {
	if stat.TableID <= 0 {
		return fmt.Errorf("statistic table id %d: %w", stat.TableID, metadata.ErrInvalidParameter)
	}
	if stat.OrdinalPosition <= 0 {
		return fmt.Errorf("statistic ordinal position %d: %w",
			stat.OrdinalPosition, metadata.ErrInvalidParameter)
	}

	if err := p.sess.Begin(ctx); err != nil {
		return err
	}
	if err := p.sess.Statistics().Upsert(ctx, stat); err != nil {
		return rollback(ctx, p.sess, err)
	}
	return p.sess.Commit(ctx)
}

func (p *Statistics) Get(ctx context.Context, tableID, ordinalPosition int64) (*metadata.ColumnStatistic, error) {
	return p.sess.Statistics().Select(ctx, tableID, ordinalPosition)
}

// GetAllByTable returns the statistics of one table as a mapping from
// ordinal position to statistic. A table with none reports
// ErrInvalidParameter: there is nothing to report.
func (p *Statistics) GetAllByTable(ctx context.Context, tableID int64) (map[int64]*metadata.ColumnStatistic, error) {
	rows, err := p.sess.Statistics().SelectAllByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*metadata.ColumnStatistic, len(rows))
	for i := range rows {
		out[rows[i].OrdinalPosition] = &rows[i]
	}
	return out, nil
}

// Remove deletes one statistic.
func (p *Statistics) Remove(ctx context.Context, tableID, ordinalPosition int64) error {
	if err := p.sess.Begin(ctx); err != nil {
		return err
	}
	if err := p.sess.Statistics().Delete(ctx, tableID, ordinalPosition); err != nil {
		return rollback(ctx, p.sess, err)
	}
	return p.sess.Commit(ctx)
}

// RemoveAllByTable deletes every statistic of one table.
func (p *Statistics) RemoveAllByTable(ctx context.Context, tableID int64) error {
	if err := p.sess.Begin(ctx); err != nil {
		return err
	}
	if err := p.sess.Statistics().DeleteByTable(ctx, tableID); err != nil {
		return rollback(ctx, p.sess, err)
	}
	return p.sess.Commit(ctx)
}
