package jsonfile

import (
	"context"
	"fmt"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

type indexesDAO struct {
	s *Session
}

func (d *indexesDAO) Insert(ctx context.Context, index *metadata.Index) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}
	if err := d.s.load(metadata.FamilyIndexes); err != nil {
		return metadata.InvalidObjectID, err
	}

	for i := range d.s.indexes {
		if d.s.indexes[i].Name == index.Name {
			return metadata.InvalidObjectID, fmt.Errorf("index %q: %w", index.Name, metadata.ErrAlreadyExists)
		}
	}

	id, err := d.s.gen.Generate(ctx, metadata.FamilyIndexes)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating index id: %w", err)
	}

	row := *index
	row.ID = id
	row.FormatVersion = metadata.FormatVersion
	row.Generation = metadata.InitialGeneration

	d.s.indexes = append(d.s.indexes, row)
	d.s.markDirty(metadata.FamilyIndexes)
	return id, nil
}

func (d *indexesDAO) Select(_ context.Context, key metadata.Key, value string) (*metadata.Index, error) {
	if err := d.s.load(metadata.FamilyIndexes); err != nil {
		return nil, err
	}

	i, err := d.find(key, value)
	if err != nil {
		return nil, err
	}
	row := d.s.indexes[i]
	return &row, nil
}

// SelectAll returns index rows in insertion order.
func (d *indexesDAO) SelectAll(_ context.Context) ([]metadata.Index, error) {
	if err := d.s.load(metadata.FamilyIndexes); err != nil {
		return nil, err
	}

	out := make([]metadata.Index, len(d.s.indexes))
	copy(out, d.s.indexes)
	return out, nil
}

func (d *indexesDAO) Update(_ context.Context, id int64, index *metadata.Index) error {
	if err := d.s.requireTxn(); err != nil {
		return err
	}
	if err := d.s.load(metadata.FamilyIndexes); err != nil {
		return err
	}

	i, err := d.find(metadata.KeyID, strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}

	old := d.s.indexes[i]
	row := *index
	row.ID = old.ID
	row.FormatVersion = old.FormatVersion
	row.Generation = old.Generation + 1

	d.s.indexes[i] = row
	d.s.markDirty(metadata.FamilyIndexes)
	return nil
}

func (d *indexesDAO) Delete(_ context.Context, key metadata.Key, value string) (int64, error) {
	if err := d.s.requireTxn(); err != nil {
		return metadata.InvalidObjectID, err
	}
	if err := d.s.load(metadata.FamilyIndexes); err != nil {
		return metadata.InvalidObjectID, err
	}

	i, err := d.find(key, value)
	if err != nil {
		return metadata.InvalidObjectID, err
	}

	id := d.s.indexes[i].ID
	d.s.indexes = append(d.s.indexes[:i], d.s.indexes[i+1:]...)
	d.s.markDirty(metadata.FamilyIndexes)
	return id, nil
}

func (d *indexesDAO) find(key metadata.Key, value string) (int, error) {
	switch key {
	case metadata.KeyID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("index id %q: %w", value, metadata.ErrInvalidParameter)
		}
		for i := range d.s.indexes {
			if d.s.indexes[i].ID == id {
				return i, nil
			}
		}
		return 0, fmt.Errorf("index id %d: %w", id, metadata.ErrIDNotFound)
	case metadata.KeyName:
		for i := range d.s.indexes {
			if d.s.indexes[i].Name == value {
				return i, nil
			}
		}
		return 0, fmt.Errorf("index %q: %w", value, metadata.ErrNameNotFound)
	default:
		return 0, fmt.Errorf("index lookup by %q: %w", key, metadata.ErrNotSupported)
	}
}
