package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

	var blob any
	if len(stat.ColumnStatistic) > 0 {
		blob = string(stat.ColumnStatistic)
	}
	st, err := d.s.stmt(ctx, dao.StmtStatsUpsert)
	if err != nil {
		return err
	}
	if _, err := st.ExecContext(ctx, stat.TableID, stat.OrdinalPosition, blob); err != nil {
		return fmt.Errorf("upserting statistic for table %d position %d: %w",
			stat.TableID, stat.OrdinalPosition, err)
	}
	return nil
}

func (d *statisticsDAO) Select(ctx context.Context, tableID, ordinalPosition int64) (*metadata.ColumnStatistic, error) {
	st, err := d.s.stmt(ctx, dao.StmtStatsSelectOne)
	if err != nil {
		return nil, err
	}

	var out metadata.ColumnStatistic
	var blob []byte
	row := st.QueryRowContext(ctx, tableID, ordinalPosition)
	if err := row.Scan(&out.TableID, &out.OrdinalPosition, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("statistic for table %d position %d: %w",
				tableID, ordinalPosition, metadata.ErrInvalidParameter)
		}
		return nil, fmt.Errorf("selecting statistic: %w", err)
	}
	out.ColumnStatistic = blob
	return &out, nil
}

// SelectAllByTable returns the statistics of one table ordered by ordinal
// position. A table with no statistics reports ErrInvalidParameter.
func (d *statisticsDAO) SelectAllByTable(ctx context.Context, tableID int64) ([]metadata.ColumnStatistic, error) {
	st, err := d.s.stmt(ctx, dao.StmtStatsSelectByTable)
	if err != nil {
		return nil, err
	}

	rows, err := st.QueryContext(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("selecting statistics of table %d: %w", tableID, err)
	}
	defer rows.Close()

	var out []metadata.ColumnStatistic
	for rows.Next() {
		var stat metadata.ColumnStatistic
		var blob []byte
		if err := rows.Scan(&stat.TableID, &stat.OrdinalPosition, &blob); err != nil {
			return nil, fmt.Errorf("scanning statistic row: %w", err)
		}
		stat.ColumnStatistic = blob
		out = append(out, stat)
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

	st, err := d.s.stmt(ctx, dao.StmtStatsDeleteOne)
	if err != nil {
		return err
	}
	res, err := st.ExecContext(ctx, tableID, ordinalPosition)
	if err != nil {
		return fmt.Errorf("deleting statistic for table %d position %d: %w",
			tableID, ordinalPosition, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting statistic for table %d position %d: %w",
			tableID, ordinalPosition, err)
	}
	if affected == 0 {
		return fmt.Errorf("statistic for table %d position %d: %w",
			tableID, ordinalPosition, metadata.ErrInvalidParameter)
	}
	return nil
}

func (d *statisticsDAO) DeleteByTable(ctx context.Context, tableID int64) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}

	st, err := d.s.stmt(ctx, dao.StmtStatsDeleteByTable)
	if err != nil {
		return err
	}
	res, err := st.ExecContext(ctx, tableID)
	if err != nil {
		return fmt.Errorf("deleting statistics of table %d: %w", tableID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting statistics of table %d: %w", tableID, err)
	}
	if affected == 0 {
		return fmt.Errorf("statistics of table %d: %w", tableID, metadata.ErrInvalidParameter)
	}
	return nil
}
