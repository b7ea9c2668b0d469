// Package introspect reads the schema of a live database and shapes it for
// catalog registration.
package introspect

import (
	"context"
	"fmt"

	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/typemap"
)

// Introspector reads table definitions from a source database.
type Introspector interface {
	// Connect establishes a read-only connection to the source database.
	Connect(ctx context.Context) error

	// Tables reads every table of the configured namespace.
	Tables(ctx context.Context) ([]TableSchema, error)

	// Close closes the database connection.
	Close() error
}

// TableSchema is one introspected table with its indexes, shaped for
// registration. Index owner and key column ids are filled in by Register
// once the table has an id.
type TableSchema struct {
	Table   metadata.Table
	Indexes []metadata.Index
	Skipped []string // columns left out because their type has no mapping
}

// New creates an Introspector for the given driver.
func New(driver, dsn, namespace string, types *typemap.TypeMap) (Introspector, error) {
	switch driver {
	case "postgres":
		return NewPostgres(dsn, namespace, types), nil
	case "oracle":
		return NewOracle(dsn, namespace, types), nil
	default:
		return nil, fmt.Errorf("introspection driver %q: %w", driver, metadata.ErrNotSupported)
	}
}

// accessMethodID translates a source index access method name to the
// catalog's numeric access method.
func accessMethodID(name string) int64 {
	switch name {
	case "btree", "NORMAL":
		return 1
	case "hash", "HASH":
		return 2
	case "gist":
		return 3
	case "gin":
		return 4
	case "spgist":
		return 5
	case "brin":
		return 6
	default:
		return 0
	}
}
