package provider

import (
	"context"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
)

// DataTypes reads the seeded type catalog. The family is read-only: there
// is no add, update or remove.
type DataTypes struct {
	sess dao.Session
}

// NewDataTypes creates the datatypes provider over one session.
func NewDataTypes(sess dao.Session) *DataTypes {
	return &DataTypes{sess: sess}
}

func (p *DataTypes) Get(ctx context.Context, key metadata.Key, value string) (*metadata.DataType, error) {
	return p.sess.DataTypes().Select(ctx, key, value)
}

func (p *DataTypes) GetAll(ctx context.Context) ([]metadata.DataType, error) {
	return p.sess.DataTypes().SelectAll(ctx)
}
