package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

func validIndex(name string) *metadata.Index {
	return &metadata.Index{
		Object:             metadata.Object{Name: name},
		OwnerID:            1,
		AccessMethod:       2,
		NumberOfColumns:    2,
		NumberOfKeyColumns: 1,
		Keys:               []int64{1, 2},
		KeysID:             []int64{11, 12},
		Options:            []int64{0, 0},
	}
}

func TestIndexAddCommits(t *testing.T) {
	sess := &dao.MockSession{}
	p := NewIndexes(sess)

	id, err := p.Add(context.Background(), validIndex("orders_pkey"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 1 {
		t.Errorf("expected id 1, got %d", id)
	}
	if sess.CommitCount != 1 {
		t.Errorf("expected 1 commit, got %d", sess.CommitCount)
	}
}

func TestIndexKeyCountInvariant(t *testing.T) {
	cases := []struct {
		name  string
		index *metadata.Index
	}{
		{"empty name", &metadata.Index{}},
		{"key columns over columns", &metadata.Index{
			Object:             metadata.Object{Name: "ix"},
			NumberOfColumns:    1,
			NumberOfKeyColumns: 2,
			Keys:               []int64{1, 2},
		}},
		{"columns over keys", &metadata.Index{
			Object:          metadata.Object{Name: "ix"},
			NumberOfColumns: 3,
			Keys:            []int64{1, 2},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := &dao.MockSession{}
			p := NewIndexes(sess)

			_, err := p.Add(context.Background(), tc.index)
			if !errors.Is(err, metadata.ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			if sess.BeginCount != 0 {
				t.Errorf("expected no transaction, got %d begins", sess.BeginCount)
			}
		})
	}
}

func TestIndexAddRollsBackOnInsertFailure(t *testing.T) {
	boom := errors.New("write failed")
	sess := &dao.MockSession{}
	sess.MockIndexes.InsertErr = boom
	p := NewIndexes(sess)

	_, err := p.Add(context.Background(), validIndex("orders_pkey"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if sess.RollbackCount != 1 {
		t.Errorf("expected 1 rollback, got %d", sess.RollbackCount)
	}
}

func TestIndexUpdateValidates(t *testing.T) {
	sess := &dao.MockSession{}
	p := NewIndexes(sess)

	bad := validIndex("ix")
	bad.NumberOfKeyColumns = 5
	if err := p.Update(context.Background(), 1, bad); !errors.Is(err, metadata.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if len(sess.MockIndexes.Updated) != 0 {
		t.Errorf("expected no update, got %d", len(sess.MockIndexes.Updated))
	}
}

func TestIndexRemoveReturnsID(t *testing.T) {
	sess := &dao.MockSession{}
	sess.MockIndexes.DeleteResult = 9
	p := NewIndexes(sess)

	id, err := p.Remove(context.Background(), metadata.KeyName, "orders_pkey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 9 {
		t.Errorf("expected removed id 9, got %d", id)
	}
	if sess.CommitCount != 1 {
		t.Errorf("expected 1 commit, got %d", sess.CommitCount)
	}
}
