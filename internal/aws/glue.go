package aws

import (
	"context"
	"fmt"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

// GlueTable is the subset of a Glue Data Catalog table the sync writes.
type GlueTable struct {
	Name       string
	Columns    []GlueColumn
	Parameters map[string]string
}

// GlueColumn is one column of a Glue table.
type GlueColumn struct {
	Name string
	Type string
}

// glueTypeNames maps catalog datatype ids to Glue (Hive) type names. CHAR
// and VARCHAR map to string since the catalog does not record lengths.
var glueTypeNames = map[int64]string{
	metadata.DataTypeINT32:   "int",
	metadata.DataTypeINT64:   "bigint",
	metadata.DataTypeFLOAT32: "float",
	metadata.DataTypeFLOAT64: "double",
	metadata.DataTypeCHAR:    "string",
	metadata.DataTypeVARCHAR: "string",
}

func glueType(id int64) string {
	if name, ok := glueTypeNames[id]; ok {
		return name
	}
	return "string"
}

// SyncTables mirrors catalog tables into a Glue Data Catalog database and
// returns the number of tables written. The database is created when
// missing; tables are created or replaced by name.
func SyncTables(ctx context.Context, client Client, database string, tables []metadata.Table) (int, error) {
	if err := client.EnsureGlueDatabase(ctx, database); err != nil {
		return 0, fmt.Errorf("ensuring Glue database %s: %w", database, err)
	}

	synced := 0
	for _, table := range tables {
		gt := GlueTable{
			Name:       table.Name,
			Parameters: map[string]string{"namespace": table.Namespace},
		}
		for _, col := range table.Columns {
			gt.Columns = append(gt.Columns, GlueColumn{Name: col.Name, Type: glueType(col.DataTypeID)})
		}
		if err := client.PutGlueTable(ctx, database, gt); err != nil {
			return synced, fmt.Errorf("writing Glue table %s: %w", table.Name, err)
		}
		synced++
	}
	return synced, nil
}
