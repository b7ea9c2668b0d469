package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/typemap"
)

// Postgres implements Introspector for PostgreSQL databases.
type Postgres struct {
	dsn       string
	namespace string // pg schema to read, defaults to "public"
	types     *typemap.TypeMap
	pool      *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL introspector.
func NewPostgres(dsn, namespace string, types *typemap.TypeMap) *Postgres {
	if namespace == "" {
		namespace = "public"
	}
	return &Postgres{dsn: dsn, namespace: namespace, types: types}
}

func (p *Postgres) Connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(p.dsn)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	// Introspection reads sequentially; one connection is enough.
	poolCfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	p.pool = pool
	return nil
}

func (p *Postgres) Tables(ctx context.Context) ([]TableSchema, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	schemas, err := p.readTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading tables: %w", err)
	}

	tableMap := make(map[string]*TableSchema, len(schemas))
	for i := range schemas {
		tableMap[schemas[i].Table.Name] = &schemas[i]
	}

	ordinals, err := p.readColumns(ctx, tableMap)
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	if err := p.readPrimaryKeys(ctx, tableMap, ordinals); err != nil {
		return nil, fmt.Errorf("reading primary keys: %w", err)
	}

	if err := p.readIndexes(ctx, tableMap, ordinals); err != nil {
		return nil, fmt.Errorf("reading indexes: %w", err)
	}

	return schemas, nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

// readTables lists all user tables with their planner row estimates.
func (p *Postgres) readTables(ctx context.Context) ([]TableSchema, error) {
	query := `
		SELECT
			c.relname AS table_name,
			c.reltuples::float8 AS row_estimate
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind = 'r'
		ORDER BY c.relname`

	rows, err := p.pool.Query(ctx, query, p.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schemas []TableSchema
	for rows.Next() {
		var (
			name   string
			tuples float64
		)
		if err := rows.Scan(&name, &tuples); err != nil {
			return nil, err
		}
		// reltuples can be -1 for never-analyzed tables
		if tuples < 0 {
			tuples = 0
		}
		schemas = append(schemas, TableSchema{
			Table: metadata.Table{
				Object:    metadata.Object{Name: name},
				Namespace: p.namespace,
				Tuples:    tuples,
			},
		})
	}
	return schemas, rows.Err()
}

// readColumns fetches all columns for all tables in the namespace. The
// returned map carries every column's table ordinal by table and name,
// including columns whose type has no catalog mapping.
func (p *Postgres) readColumns(ctx context.Context, tableMap map[string]*TableSchema) (map[string]map[string]int64, error) {
	query := `
		SELECT
			table_name,
			column_name,
			ordinal_position,
			data_type,
			is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = ANY($2)
		ORDER BY table_name, ordinal_position`

	names := tableNames(tableMap)
	rows, err := p.pool.Query(ctx, query, p.namespace, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ordinals := make(map[string]map[string]int64, len(tableMap))
	for rows.Next() {
		var (
			tableName, colName, dataType, nullable string
			ordinal                                int64
			defaultVal                             *string
		)
		if err := rows.Scan(&tableName, &colName, &ordinal, &dataType, &nullable, &defaultVal); err != nil {
			return nil, err
		}

		t, ok := tableMap[tableName]
		if !ok {
			continue
		}
		if ordinals[tableName] == nil {
			ordinals[tableName] = make(map[string]int64)
		}
		ordinals[tableName][colName] = ordinal

		typeID, ok := p.types.Resolve(dataType)
		if !ok {
			t.Skipped = append(t.Skipped, fmt.Sprintf("%s.%s (%s)", tableName, colName, dataType))
			continue
		}

		col := metadata.Column{
			Object:          metadata.Object{Name: colName},
			OrdinalPosition: ordinal,
			DataTypeID:      typeID,
			Nullable:        metadata.Bool(nullable == "YES"),
		}
		if defaultVal != nil {
			col.DefaultExpr = *defaultVal
		}
		t.Table.Columns = append(t.Table.Columns, col)
	}
	return ordinals, rows.Err()
}

// readPrimaryKeys fills each table's primary key ordinals. Key columns whose
// type had no mapping are left out since they carry no registered column.
func (p *Postgres) readPrimaryKeys(ctx context.Context, tableMap map[string]*TableSchema, ordinals map[string]map[string]int64) error {
	query := `
		SELECT
			tc.table_name,
			kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = ANY($2)
		ORDER BY tc.table_name, kcu.ordinal_position`

	names := tableNames(tableMap)
	rows, err := p.pool.Query(ctx, query, p.namespace, names)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, colName string
		if err := rows.Scan(&tableName, &colName); err != nil {
			return err
		}

		t, ok := tableMap[tableName]
		if !ok {
			continue
		}
		ordinal, ok := ordinals[tableName][colName]
		if !ok {
			continue
		}
		for _, col := range t.Table.Columns {
			if col.OrdinalPosition == ordinal {
				t.Table.PrimaryKeys = append(t.Table.PrimaryKeys, ordinal)
				break
			}
		}
	}
	return rows.Err()
}

// readIndexes fetches secondary indexes. Primary key indexes are carried by
// the table's primary key ordinals instead, and expression indexes have no
// key columns to reference, so both are excluded.
func (p *Postgres) readIndexes(ctx context.Context, tableMap map[string]*TableSchema, ordinals map[string]map[string]int64) error {
	query := `
		SELECT
			t.relname AS table_name,
			i.relname AS index_name,
			am.amname AS access_method,
			ix.indnatts AS total_columns,
			ix.indnkeyatts AS key_columns,
			a.attname AS column_name,
			ix.indoption[array_position(ix.indkey, a.attnum) - 1] AS key_option
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_am am ON am.oid = i.relam
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1
		  AND t.relname = ANY($2)
		  AND NOT ix.indisprimary
		  AND ix.indexprs IS NULL
		ORDER BY t.relname, i.relname, array_position(ix.indkey, a.attnum)`

	names := tableNames(tableMap)
	rows, err := p.pool.Query(ctx, query, p.namespace, names)
	if err != nil {
		return err
	}
	defer rows.Close()

	type idxKey struct{ table, index string }
	grouped := make(map[idxKey]*metadata.Index)
	var order []idxKey

	for rows.Next() {
		var (
			tableName, indexName, method, colName string
			total, keyCols, option                int64
		)
		if err := rows.Scan(&tableName, &indexName, &method, &total, &keyCols, &colName, &option); err != nil {
			return err
		}

		k := idxKey{tableName, indexName}
		idx, exists := grouped[k]
		if !exists {
			idx = &metadata.Index{
				Object:             metadata.Object{Name: indexName},
				Namespace:          p.namespace,
				AccessMethod:       accessMethodID(method),
				NumberOfColumns:    total,
				NumberOfKeyColumns: keyCols,
			}
			grouped[k] = idx
			order = append(order, k)
		}
		idx.Keys = append(idx.Keys, ordinals[tableName][colName])
		idx.Options = append(idx.Options, option)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if t, ok := tableMap[k.table]; ok {
			t.Indexes = append(t.Indexes, *grouped[k])
		}
	}

	return nil
}

func tableNames(tableMap map[string]*TableSchema) []string {
	names := make([]string, 0, len(tableMap))
	for name := range tableMap {
		names = append(names, name)
	}
	return names
}

// compile-time interface check
var _ Introspector = (*Postgres)(nil)
