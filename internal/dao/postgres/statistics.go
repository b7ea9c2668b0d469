package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

type statisticsDAO struct {
	s *Session
}

// Upsert stores the statistic blob, replacing one already present for the
// same (table id, ordinal position).
func (d *statisticsDAO) Upsert(ctx context.Context, stat *metadata.ColumnStatistic) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}

	var blob []byte
	if len(stat.ColumnStatistic) > 0 {
		blob = stat.ColumnStatistic
	}
	_, err := d.s.tx.Exec(ctx, string(dao.StmtStatsUpsert),
		stat.TableID, stat.OrdinalPosition, blob)
	if err != nil {
		return fmt.Errorf("upserting statistic for table %d position %d: %w",
			stat.TableID, stat.OrdinalPosition, err)
	}
	return nil
}

func (d *statisticsDAO) Select(ctx context.Context, tableID, ordinalPosition int64) (*metadata.ColumnStatistic, error) {
	q, err := d.s.reader()
	if err != nil {
		return nil, err
	}

	var st metadata.ColumnStatistic
	var blob []byte
	row := q.QueryRow(ctx, string(dao.StmtStatsSelectOne), tableID, ordinalPosition)
	if err := row.Scan(&st.TableID, &st.OrdinalPosition, &blob); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("statistic for table %d position %d: %w",
				tableID, ordinalPosition, metadata.ErrInvalidParameter)
		}
		return nil, fmt.Errorf("selecting statistic: %w", err)
	}
	st.ColumnStatistic = blob
	return &st, nil
}

// SelectAllByTable returns the statistics of one table ordered by ordinal
// position. A table with no statistics reports ErrInvalidParameter.
func (d *statisticsDAO) SelectAllByTable(ctx context.Context, tableID int64) ([]metadata.ColumnStatistic, error) {
	q, err := d.s.reader()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, string(dao.StmtStatsSelectByTable), tableID)
	if err != nil {
		return nil, fmt.Errorf("selecting statistics of table %d: %w", tableID, err)
	}
	defer rows.Close()

	var out []metadata.ColumnStatistic
	for rows.Next() {
		var st metadata.ColumnStatistic
		var blob []byte
		if err := rows.Scan(&st.TableID, &st.OrdinalPosition, &blob); err != nil {
			return nil, fmt.Errorf("scanning statistic row: %w", err)
		}
		st.ColumnStatistic = blob
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statistics: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("statistics of table %d: %w", tableID, metadata.ErrInvalidParameter)
	}
	return out, nil
}

func (d *statisticsDAO) Delete(ctx context.Context, tableID, ordinalPosition int64) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}

	tag, err := d.s.tx.Exec(ctx, string(dao.StmtStatsDeleteOne), tableID, ordinalPosition)
	if err != nil {
		return fmt.Errorf("deleting statistic for table %d position %d: %w",
			tableID, ordinalPosition, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("statistic for table %d position %d: %w",
			tableID, ordinalPosition, metadata.ErrInvalidParameter)
	}
	return nil
}

func (d *statisticsDAO) DeleteByTable(ctx context.Context, tableID int64) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}

	tag, err := d.s.tx.Exec(ctx, string(dao.StmtStatsDeleteByTable), tableID)
	if err != nil {
		return fmt.Errorf("deleting statistics of table %d: %w", tableID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("statistics of table %d: %w", tableID, metadata.ErrInvalidParameter)
	}
	return nil
}
