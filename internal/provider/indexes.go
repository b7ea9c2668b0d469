package provider

import (
	"context"
	"fmt"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

// Indexes registers index metadata. Indexes own no children, so every
// mutation is a single DAO call in its own transaction.
type Indexes struct {
	sess dao.Session
}

// NewIndexes creates the indexes provider over one session.
func NewIndexes(sess dao.Session) *Indexes {
	return &Indexes{sess: sess}
}

// Add validates and inserts the index, returning its new id.
func (p *Indexes) Add(ctx context.Context, index *metadata.Index) (int64, error) {
	if err := validateIndex(index); err != nil {
		return metadata.InvalidObjectID, err
	}

	if err := p.sess.Begin(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}

	id, err := p.sess.Indexes().Insert(ctx, index)
	if err != nil {
		return metadata.InvalidObjectID, rollback(ctx, p.sess, err)
	}

	if err := p.sess.Commit(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}
	return id, nil
}

func (p *Indexes) Get(ctx context.Context, key metadata.Key, value string) (*metadata.Index, error) {
	return p.sess.Indexes().Select(ctx, key, value)
}

func (p *Indexes) GetAll(ctx context.Context) ([]metadata.Index, error) {
	return p.sess.Indexes().SelectAll(ctx)
}

// Update replaces the index row, preserving id and format_version and
// incrementing generation.
func (p *Indexes) Update(ctx context.Context, id int64, index *metadata.Index) error {
	if err := validateIndex(index); err != nil {
		return err
	}

	if err := p.sess.Begin(ctx); err != nil {
		return err
	}
	if err := p.sess.Indexes().Update(ctx, id, index); err != nil {
		return rollback(ctx, p.sess, err)
	}
	return p.sess.Commit(ctx)
}

// Remove deletes the index row and returns its id.
func (p *Indexes) Remove(ctx context.Context, key metadata.Key, value string) (int64, error) {
	if err := p.sess.Begin(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}

	id, err := p.sess.Indexes().Delete(ctx, key, value)
	if err != nil {
		return metadata.InvalidObjectID, rollback(ctx, p.sess, err)
	}

	if err := p.sess.Commit(ctx); err != nil {
		return metadata.InvalidObjectID, err
	}
	return id, nil
}

// validateIndex checks the key-count invariant:
// number_of_key_columns <= number_of_columns <= len(keys).
func validateIndex(index *metadata.Index) error {
	if index.Name == "" {
		return fmt.Errorf("index name is empty: %w", metadata.ErrInvalidParameter)
	}
	if index.NumberOfKeyColumns > index.NumberOfColumns {
		return fmt.Errorf("index %q has %d key columns over %d columns: %w",
			index.Name, index.NumberOfKeyColumns, index.NumberOfColumns, metadata.ErrInvalidParameter)
	}
	if index.NumberOfColumns > int64(len(index.Keys)) {
		return fmt.Errorf("index %q declares %d columns but carries %d keys: %w",
			index.Name, index.NumberOfColumns, len(index.Keys), metadata.ErrInvalidParameter)
	}
	return nil
}
