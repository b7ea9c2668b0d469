package jsonfile

import (
	"context"
	"fmt"
	"sort"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

type statisticsDAO struct {
	s *Session
}

// Upsert replaces the blob for (table id, ordinal position) or appends a
// new row.
func (d *statisticsDAO) Upsert(_ context.Context, stat *metadata.ColumnStatistic) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}
	if err := d.s.load(metadata.FamilyStatistics); err != nil {
		return err
	}

	for i := range d.s.statistics {
		if d.s.statistics[i].TableID == stat.TableID &&
			d.s.statistics[i].OrdinalPosition == stat.OrdinalPosition {
			d.s.statistics[i].ColumnStatistic = stat.ColumnStatistic
			d.s.markDirty(metadata.FamilyStatistics)
			return nil
		}
	}

	d.s.statistics = append(d.s.statistics, *stat)
	d.s.markDirty(metadata.FamilyStatistics)
	return nil
}

func (d *statisticsDAO) Select(_ context.Context, tableID, ordinalPosition int64) (*metadata.ColumnStatistic, error) {
	if err := d.s.load(metadata.FamilyStatistics); err != nil {
		return nil, err
	}

	for i := range d.s.statistics {
		if d.s.statistics[i].TableID == tableID &&
			d.s.statistics[i].OrdinalPosition == ordinalPosition {
			row := d.s.statistics[i]
			return &row, nil
		}
	}
	return nil, fmt.Errorf("statistic for table %d ordinal %d: %w",
		tableID, ordinalPosition, metadata.ErrInvalidParameter)
}

// SelectAllByTable returns the table's statistics ordered by ordinal
// position. An empty result reports ErrInvalidParameter.
func (d *statisticsDAO) SelectAllByTable(_ context.Context, tableID int64) ([]metadata.ColumnStatistic, error) {
	if err := d.s.load(metadata.FamilyStatistics); err != nil {
		return nil, err
	}

	var out []metadata.ColumnStatistic
	for i := range d.s.statistics {
		if d.s.statistics[i].TableID == tableID {
			out = append(out, d.s.statistics[i])
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("statistics for table %d: %w", tableID, metadata.ErrInvalidParameter)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrdinalPosition < out[j].OrdinalPosition
	})
	return out, nil
}

func (d *statisticsDAO) Delete(_ context.Context, tableID, ordinalPosition int64) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}
	if err := d.s.load(metadata.FamilyStatistics); err != nil {
		return err
	}

	for i := range d.s.statistics {
		if d.s.statistics[i].TableID == tableID &&
			d.s.statistics[i].OrdinalPosition == ordinalPosition {
			d.s.statistics = append(d.s.statistics[:i], d.s.statistics[i+1:]...)
			d.s.markDirty(metadata.FamilyStatistics)
			return nil
		}
	}
	return fmt.Errorf("statistic for table %d ordinal %d: %w",
		tableID, ordinalPosition, metadata.ErrInvalidParameter)
}

func (d *statisticsDAO) DeleteByTable(_ context.Context, tableID int64) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}
	if err := d.s.load(metadata.FamilyStatistics); err != nil {
		return err
	}

	kept := d.s.statistics[:0]
	removed := false
	for i := range d.s.statistics {
		if d.s.statistics[i].TableID == tableID {
			removed = true
			continue
		}
		kept = append(kept, d.s.statistics[i])
	}
	d.s.statistics = kept
	if !removed {
		return fmt.Errorf("statistics for table %d: %w", tableID, metadata.ErrInvalidParameter)
	}
	d.s.markDirty(metadata.FamilyStatistics)
	return nil
}
