package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

func TestStatisticsUpsertCommits(t *testing.T) {
	sess := &dao.MockSession{}
	p := NewStatistics(sess)

	stat := &metadata.ColumnStatistic{
		TableID:         2,
		OrdinalPosition: 1,
		ColumnStatistic: json.RawMessage(`{"distinct":41}`),
	}
	if err := p.Upsert(context.Background(), stat); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sess.MockStatistics.Upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(sess.MockStatistics.Upserted))
	}
	if sess.CommitCount != 1 {
		t.Errorf("expected 1 commit, got %d", sess.CommitCount)
	}
}

func TestStatisticsUpsertValidatesKey(t *testing.T) {
	cases := []struct {
		name string
		stat metadata.ColumnStatistic
	}{
		{"zero table id", metadata.ColumnStatistic{OrdinalPosition: 1}},
		{"zero ordinal", metadata.ColumnStatistic{TableID: 2}},
		{"negative ordinal", metadata.ColumnStatistic{TableID: 2, OrdinalPosition: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := &dao.MockSession{}
			p := NewStatistics(sess)

			err := p.Upsert(context.Background(), &tc.stat)
			if !errors.Is(err, metadata.ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			if sess.BeginCount != 0 {
				t.Errorf("expected no transaction, got %d begins", sess.BeginCount)
			}
		})
	}
}

func TestStatisticsGetAllByTableKeysByOrdinal(t *testing.T) {
	sess := &dao.MockSession{}
	sess.MockStatistics.SelectByTable = []metadata.ColumnStatistic{
		{TableID: 2, OrdinalPosition: 1, ColumnStatistic: json.RawMessage(`{"n":1}`)},
		{TableID: 2, OrdinalPosition: 3, ColumnStatistic: json.RawMessage(`{"n":3}`)},
	}
	p := NewStatistics(sess)

	byOrdinal, err := p.GetAllByTable(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byOrdinal) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(byOrdinal))
	}
	if byOrdinal[1] == nil || byOrdinal[3] == nil {
		t.Fatalf("expected ordinals 1 and 3 present, got %v", byOrdinal)
	}
	if string(byOrdinal[3].ColumnStatistic) != `{"n":3}` {
		t.Errorf("expected blob for ordinal 3, got %s", byOrdinal[3].ColumnStatistic)
	}
}

func TestStatisticsGetAllByTableEmptyIsInvalidParameter(t *testing.T) {
	sess := &dao.MockSession{}
	p := NewStatistics(sess)

	_, err := p.GetAllByTable(context.Background(), 2)
	if !errors.Is(err, metadata.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestStatisticsRemoveRollsBackOnFailure(t *testing.T) {
	boom := errors.New("write failed")
	sess := &dao.MockSession{}
	sess.MockStatistics.DeleteErr = boom
	p := NewStatistics(sess)

	err := p.Remove(context.Background(), 2, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected delete error, got %v", err)
	}
	if sess.RollbackCount != 1 {
		t.Errorf("expected 1 rollback, got %d", sess.RollbackCount)
	}
}

func TestStatisticsRemoveAllByTable(t *testing.T) {
	sess := &dao.MockSession{}
	p := NewStatistics(sess)

	if err := p.RemoveAllByTable(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sess.MockStatistics.DeletedByTable; len(got) != 1 || got[0] != 2 {
		t.Errorf("expected table 2 cleared, got %v", got)
	}
	if sess.CommitCount != 1 {
		t.Errorf("expected 1 commit, got %d", sess.CommitCount)
	}
}

func TestDataTypesGetSeeded(t *testing.T) {
	sess := &dao.MockSession{}
	p := NewDataTypes(sess)

	dt, err := p.Get(context.Background(), metadata.KeyName, "INT64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dt.ID != metadata.DataTypeINT64 {
		t.Errorf("expected id %d, got %d", metadata.DataTypeINT64, dt.ID)
	}

	all, err := p.GetAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 6 {
		t.Errorf("expected 6 seeded types, got %d", len(all))
	}
}
