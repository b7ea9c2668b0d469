package metadata

import "encoding/json"

const (
	// FormatVersion is the current layout version stamped on every record.
	FormatVersion int64 = 1

	// InitialGeneration is the generation stamped on newly inserted records.
	InitialGeneration int64 = 1

	// InvalidObjectID marks an unassigned or failed object id.
	InvalidObjectID int64 = 0
)

// Key selects which field a lookup matches against.
type Key string

const (
	KeyID                      Key = "id"
	KeyName                    Key = "name"
	KeyTableID                 Key = "table_id"
	KeyPgDataType              Key = "pg_data_type"
	KeyPgDataTypeName          Key = "pg_data_type_name"
	KeyPgDataTypeQualifiedName Key = "pg_data_type_qualified_name"
)

// Family names an entity family. Families key the id counters and the
// per-family storage (files, tables, collections).
type Family string

const (
	FamilyTables     Family = "tables"
	FamilyColumns    Family = "columns"
	FamilyIndexes    Family = "indexes"
	FamilyStatistics Family = "column_statistics"
	FamilyDataTypes  Family = "datatypes"
)

// Object is the common header carried by every cataloged entity.
type Object struct {
	FormatVersion int64  `json:"format_version" yaml:"format_version" bson:"format_version"`
	Generation    int64  `json:"generation" yaml:"generation" bson:"generation"`
	ID            int64  `json:"id" yaml:"id" bson:"id"`
	Name          string `json:"name" yaml:"name" bson:"name"`
}

// Table describes a registered table and its owned columns.
type Table struct {
	Object      `yaml:",inline" bson:",inline"`
	Namespace   string       `json:"namespace,omitempty" yaml:"namespace,omitempty" bson:"namespace,omitempty"`
	PrimaryKeys []int64      `json:"primary_keys,omitempty" yaml:"primary_keys,omitempty" bson:"primary_keys,omitempty"`
	Tuples      float64      `json:"reltuples,omitempty" yaml:"reltuples,omitempty" bson:"reltuples,omitempty"`
	Columns     []Column     `json:"columns,omitempty" yaml:"columns,omitempty" bson:"columns,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty" yaml:"constraints,omitempty" bson:"constraints,omitempty"`
}

// Column describes one column of a registered table. Nullable is a pointer
// so an omitted value can be told apart from an explicit false.
type Column struct {
	Object          `yaml:",inline" bson:",inline"`
	TableID         int64  `json:"table_id" yaml:"table_id" bson:"table_id"`
	OrdinalPosition int64  `json:"ordinal_position" yaml:"ordinal_position" bson:"ordinal_position"`
	DataTypeID      int64  `json:"data_type_id" yaml:"data_type_id" bson:"data_type_id"`
	Nullable        *bool  `json:"nullable,omitempty" yaml:"nullable,omitempty" bson:"nullable,omitempty"`
	DefaultExpr     string `json:"default_expr,omitempty" yaml:"default_expr,omitempty" bson:"default_expr,omitempty"`
}

// Constraint is carried opaquely with its table; the catalog does not
// interpret definitions.
type Constraint struct {
	Name       string  `json:"name" yaml:"name" bson:"name"`
	Type       string  `json:"type" yaml:"type" bson:"type"`
	Columns    []int64 `json:"columns,omitempty" yaml:"columns,omitempty" bson:"columns,omitempty"`
	Definition string  `json:"definition,omitempty" yaml:"definition,omitempty" bson:"definition,omitempty"`
}

// Index describes an index over a registered table. Keys holds column
// ordinal positions, KeysID the column object ids, Options per-key flags.
type Index struct {
	Object             `yaml:",inline" bson:",inline"`
	Namespace          string  `json:"namespace,omitempty" yaml:"namespace,omitempty" bson:"namespace,omitempty"`
	OwnerID            int64   `json:"owner_id" yaml:"owner_id" bson:"owner_id"`
	AccessMethod       int64   `json:"access_method" yaml:"access_method" bson:"access_method"`
	NumberOfColumns    int64   `json:"number_of_columns" yaml:"number_of_columns" bson:"number_of_columns"`
	NumberOfKeyColumns int64   `json:"number_of_key_columns" yaml:"number_of_key_columns" bson:"number_of_key_columns"`
	Keys               []int64 `json:"keys" yaml:"keys" bson:"keys"`
	KeysID             []int64 `json:"keys_id,omitempty" yaml:"keys_id,omitempty" bson:"keys_id,omitempty"`
	Options            []int64 `json:"options,omitempty" yaml:"options,omitempty" bson:"options,omitempty"`
}

// ColumnStatistic holds an opaque statistic blob for one column, keyed by
// (table id, ordinal position). It carries no Object header.
type ColumnStatistic struct {
	TableID         int64           `json:"table_id" yaml:"table_id"`
	OrdinalPosition int64           `json:"ordinal_position" yaml:"ordinal_position"`
	ColumnStatistic json.RawMessage `json:"column_statistic" yaml:"column_statistic"`
}

// DataType is one entry of the read-only seeded type catalog.
type DataType struct {
	Object                  `yaml:",inline" bson:",inline"`
	PgDataType              int64  `json:"pg_data_type" yaml:"pg_data_type" bson:"pg_data_type"`
	PgDataTypeName          string `json:"pg_data_type_name" yaml:"pg_data_type_name" bson:"pg_data_type_name"`
	PgDataTypeQualifiedName string `json:"pg_data_type_qualified_name" yaml:"pg_data_type_qualified_name" bson:"pg_data_type_qualified_name"`
}

// Seeded datatype ids. The set is fixed; inserts into the family are not
// supported.
const (
	DataTypeINT32   int64 = 4
	DataTypeINT64   int64 = 6
	DataTypeFLOAT32 int64 = 8
	DataTypeFLOAT64 int64 = 9
	DataTypeCHAR    int64 = 13
	DataTypeVARCHAR int64 = 14
)

// SeedDataTypes returns the fixed datatype catalog in id order.
func SeedDataTypes() []DataType {
	return []DataType{
		{Object: seedObject(DataTypeINT32, "INT32"), PgDataType: 23, PgDataTypeName: "integer", PgDataTypeQualifiedName: "int4"},
		{Object: seedObject(DataTypeINT64, "INT64"), PgDataType: 20, PgDataTypeName: "bigint", PgDataTypeQualifiedName: "int8"},
		{Object: seedObject(DataTypeFLOAT32, "FLOAT32"), PgDataType: 700, PgDataTypeName: "real", PgDataTypeQualifiedName: "float4"},
		{Object: seedObject(DataTypeFLOAT64, "FLOAT64"), PgDataType: 701, PgDataTypeName: "double precision", PgDataTypeQualifiedName: "float8"},
		{Object: seedObject(DataTypeCHAR, "CHAR"), PgDataType: 1042, PgDataTypeName: "char", PgDataTypeQualifiedName: "bpchar"},
		{Object: seedObject(DataTypeVARCHAR, "VARCHAR"), PgDataType: 1043, PgDataTypeName: "varchar", PgDataTypeQualifiedName: "varchar"},
	}
}

func seedObject(id int64, name string) Object {
	return Object{FormatVersion: FormatVersion, Generation: InitialGeneration, ID: id, Name: name}
}

// Bool returns a pointer to b, for filling Column.Nullable literals.
func Bool(b bool) *bool {
	return &b
}
