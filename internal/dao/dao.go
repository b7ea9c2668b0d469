// Package dao defines the storage contract shared by every catalog backend.
// One Session owns one physical connection; each entity family gets its own
// access object. All backends honor the same error taxonomy and ordering
// rules, so providers never branch on the backend in use.
package dao

import (
	"context"

	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/oid"
)

// Session owns one backend connection, hands out the family DAOs, and
// scopes transactions. Lifecycle: Connect, then any number of
// Begin/Commit|Rollback cycles, then Close. Calling out of order returns
// metadata.ErrInternal.
type Session interface {
	Connect(ctx context.Context) error
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error

	Tables() Tables
	Columns() Columns
	Indexes() Indexes
	Statistics() Statistics
	DataTypes() DataTypes

	// Generator exposes the backend's object id source for diagnostics
	// and snapshot restore.
	Generator() oid.Generator
}

// Tables stores table rows. Insert stamps a fresh id, format_version and
// generation on the row; owned columns are handled by the Columns DAO.
type Tables interface {
	Insert(ctx context.Context, table *metadata.Table) (int64, error)
	Select(ctx context.Context, key metadata.Key, value string) (*metadata.Table, error)
	SelectAll(ctx context.Context) ([]metadata.Table, error)
	Update(ctx context.Context, id int64, table *metadata.Table) error
	// Delete removes the matching row and returns its id.
	Delete(ctx context.Context, key metadata.Key, value string) (int64, error)
}

// Columns stores column rows, always scoped to an owning table. Lookup
// supports metadata.KeyTableID only; other keys report ErrNotSupported.
// Select returns rows ordered by ordinal position.
type Columns interface {
	Insert(ctx context.Context, tableID int64, column *metadata.Column) (int64, error)
	Select(ctx context.Context, key metadata.Key, value string) ([]metadata.Column, error)
	Delete(ctx context.Context, key metadata.Key, value string) error
}

// Indexes stores index rows.
type Indexes interface {
	Insert(ctx context.Context, index *metadata.Index) (int64, error)
	Select(ctx context.Context, key metadata.Key, value string) (*metadata.Index, error)
	SelectAll(ctx context.Context) ([]metadata.Index, error)
	Update(ctx context.Context, id int64, index *metadata.Index) error
	// Delete removes the matching row and returns its id.
	Delete(ctx context.Context, key metadata.Key, value string) (int64, error)
}

// Statistics stores per-column statistic blobs keyed by
// (table id, ordinal position). Reads and deletes that match nothing
// report ErrInvalidParameter: a statistics request against an empty set
// has nothing to answer with. SelectAllByTable returns rows ordered by
// ordinal position.
type Statistics interface {
	Upsert(ctx context.Context, stat *metadata.ColumnStatistic) error
	Select(ctx context.Context, tableID, ordinalPosition int64) (*metadata.ColumnStatistic, error)
	SelectAllByTable(ctx context.Context, tableID int64) ([]metadata.ColumnStatistic, error)
	Delete(ctx context.Context, tableID, ordinalPosition int64) error
	DeleteByTable(ctx context.Context, tableID int64) error
}

// DataTypes reads the seeded type catalog. The family is read-only.
type DataTypes interface {
	Select(ctx context.Context, key metadata.Key, value string) (*metadata.DataType, error)
	SelectAll(ctx context.Context) ([]metadata.DataType, error)
}

// StatementName keys the prepared statements of the relational backends.
// The set is closed: backends prepare every statement up front and refuse
// names outside it.
type StatementName string

const (
	StmtTablesInsert     StatementName = "tables_insert"
	StmtTablesSelectID   StatementName = "tables_select_id"
	StmtTablesSelectName StatementName = "tables_select_name"
	StmtTablesSelectAll  StatementName = "tables_select_all"
	StmtTablesUpdate     StatementName = "tables_update"
	StmtTablesDeleteID   StatementName = "tables_delete_id"
	StmtTablesDeleteName StatementName = "tables_delete_name"

	StmtColumnsInsert        StatementName = "columns_insert"
	StmtColumnsSelectTableID StatementName = "columns_select_table_id"
	StmtColumnsDeleteTableID StatementName = "columns_delete_table_id"

	StmtIndexesInsert     StatementName = "indexes_insert"
	StmtIndexesSelectID   StatementName = "indexes_select_id"
	StmtIndexesSelectName StatementName = "indexes_select_name"
	StmtIndexesSelectAll  StatementName = "indexes_select_all"
	StmtIndexesUpdate     StatementName = "indexes_update"
	StmtIndexesDeleteID   StatementName = "indexes_delete_id"
	StmtIndexesDeleteName StatementName = "indexes_delete_name"

	StmtStatsUpsert        StatementName = "stats_upsert"
	StmtStatsSelectOne     StatementName = "stats_select_one"
	StmtStatsSelectByTable StatementName = "stats_select_by_table"
	StmtStatsDeleteOne     StatementName = "stats_delete_one"
	StmtStatsDeleteByTable StatementName = "stats_delete_by_table"

	StmtDataTypesSelectID         StatementName = "datatypes_select_id"
	StmtDataTypesSelectName       StatementName = "datatypes_select_name"
	StmtDataTypesSelectPgType     StatementName = "datatypes_select_pg_type"
	StmtDataTypesSelectPgName     StatementName = "datatypes_select_pg_name"
	StmtDataTypesSelectPgQualName StatementName = "datatypes_select_pg_qual_name"
	StmtDataTypesSelectAll        StatementName = "datatypes_select_all"
)
