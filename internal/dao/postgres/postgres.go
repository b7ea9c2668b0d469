// Package postgres implements the relational catalog backend on
// PostgreSQL. Every statement is prepared by name on each connection, and
// mutations run inside a native transaction owned by the session. Object
// ids come from per-family sequences, so ids handed to a rolled-back
// transaction are never reused.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/oid"
)

// SchemaName is the PostgreSQL schema holding the catalog tables.
const SchemaName = "schemakeep"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the family
// DAOs read through the open transaction when one exists.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Session implements dao.Session over a PostgreSQL connection.
type Session struct {
	connStr string
	pool    *pgxpool.Pool
	tx      pgx.Tx
	gen     *seqGenerator
}

// NewSession creates a session for the given connection string. Call Init
// once to bootstrap the schema before the first Connect.
func NewSession(connStr string) *Session {
	s := &Session{connStr: connStr}
	s.gen = &seqGenerator{s: s}
	return s
}

func (s *Session) Connect(ctx context.Context) error {
	if s.pool != nil {
		return fmt.Errorf("session already connected: %w", metadata.ErrInternal)
	}
	cfg, err := pgxpool.ParseConfig(s.connStr)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 1 // one connection per session; statements prepare on it
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range statements {
			if _, err := conn.Prepare(ctx, string(name), sql); err != nil {
				return fmt.Errorf("preparing %s: %w", name, err)
			}
		}
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	s.pool = pool
	return nil
}

func (s *Session) Begin(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("begin before connect: %w", metadata.ErrInternal)
	}
	if s.tx != nil {
		return fmt.Errorf("transaction already open: %w", metadata.ErrInternal)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	s.tx = tx
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("commit without open transaction: %w", metadata.ErrInternal)
	}
	err := s.tx.Commit(ctx)
	s.tx = nil
	if err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("rollback without open transaction: %w", metadata.ErrInternal)
	}
	err := s.tx.Rollback(ctx)
	s.tx = nil
	if err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

func (s *Session) Close(_ context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("close with open transaction: %w", metadata.ErrInternal)
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

func (s *Session) Tables() dao.Tables         { return &tablesDAO{s: s} }
func (s *Session) Columns() dao.Columns       { return &columnsDAO{s: s} }
func (s *Session) Indexes() dao.Indexes       { return &indexesDAO{s: s} }
func (s *Session) Statistics() dao.Statistics { return &statisticsDAO{s: s} }
func (s *Session) DataTypes() dao.DataTypes   { return &datatypesDAO{s: s} }
func (s *Session) Generator() oid.Generator   { return s.gen }

// requireTxn guards mutating operations.
func (s *Session) requireTxn() error {
	if s.tx == nil {
		return fmt.Errorf("write outside transaction: %w", metadata.ErrInternal)
	}
	return nil
}

// reader returns the open transaction when one exists, the pool otherwise.
func (s *Session) reader() (querier, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	if s.pool == nil {
		return nil, fmt.Errorf("access before connect: %w", metadata.ErrInternal)
	}
	return s.pool, nil
}

// seqGenerator issues ids from per-family sequences. Sequences advance
// outside transaction scope, so a rollback never recycles an issued id.
type seqGenerator struct {
	s *Session
}

func seqName(family metadata.Family) string {
	return fmt.Sprintf("%s.oid_%s", SchemaName, family)
}

func (g *seqGenerator) Generate(ctx context.Context, family metadata.Family) (int64, error) {
	q, err := g.s.reader()
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	var id int64
	sql := fmt.Sprintf("SELECT nextval('%s')", seqName(family))
	if err := q.QueryRow(ctx, sql).Scan(&id); err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating %s id: %w", family, err)
	}
	return id, nil
}

func (g *seqGenerator) Current(ctx context.Context, family metadata.Family) (int64, error) {
	q, err := g.s.reader()
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	var last int64
	sql := fmt.Sprintf("SELECT CASE WHEN is_called THEN last_value ELSE 0 END FROM %s", seqName(family))
	if err := q.QueryRow(ctx, sql).Scan(&last); err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("reading %s id counter: %w", family, err)
	}
	return last, nil
}

// Init bootstraps the catalog schema: entity tables, id sequences and the
// seeded datatype rows. Existing objects are left untouched.
func Init(ctx context.Context, connStr string) error {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer pool.Close()

	for _, ddl := range bootstrapDDL {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("bootstrapping catalog schema: %w", err)
		}
	}

	seed := `INSERT INTO schemakeep.datatypes
		(format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`
	for _, dt := range metadata.SeedDataTypes() {
		_, err := pool.Exec(ctx, seed,
			dt.FormatVersion, dt.Generation, dt.ID, dt.Name,
			dt.PgDataType, dt.PgDataTypeName, dt.PgDataTypeQualifiedName)
		if err != nil {
			return fmt.Errorf("seeding datatype %s: %w", dt.Name, err)
		}
	}
	return nil
}

var bootstrapDDL = []string{
	`CREATE SCHEMA IF NOT EXISTS schemakeep`,

	`CREATE TABLE IF NOT EXISTS schemakeep.tables (
		format_version bigint NOT NULL,
		generation     bigint NOT NULL,
		id             bigint PRIMARY KEY,
		name           text   NOT NULL UNIQUE,
		namespace      text   NOT NULL DEFAULT '',
		primary_keys   bigint[] NOT NULL DEFAULT '{}',
		reltuples      float8 NOT NULL DEFAULT 0,
		constraints    jsonb
	)`,

	`CREATE TABLE IF NOT EXISTS schemakeep.columns (
		format_version   bigint NOT NULL,
		generation       bigint NOT NULL,
		id               bigint PRIMARY KEY,
		name             text   NOT NULL,
		table_id         bigint NOT NULL,
		ordinal_position bigint NOT NULL,
		data_type_id     bigint NOT NULL,
		nullable         boolean,
		default_expr     text   NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS schemakeep.indexes (
		format_version        bigint NOT NULL,
		generation            bigint NOT NULL,
		id                    bigint PRIMARY KEY,
		name                  text   NOT NULL UNIQUE,
		namespace             text   NOT NULL DEFAULT '',
		owner_id              bigint NOT NULL,
		access_method         bigint NOT NULL DEFAULT 0,
		number_of_columns     bigint NOT NULL DEFAULT 0,
		number_of_key_columns bigint NOT NULL DEFAULT 0,
		keys                  bigint[] NOT NULL DEFAULT '{}',
		keys_id               bigint[] NOT NULL DEFAULT '{}',
		options               bigint[] NOT NULL DEFAULT '{}'
	)`,

	`CREATE TABLE IF NOT EXISTS schemakeep.column_statistics (
		table_id         bigint NOT NULL,
		ordinal_position bigint NOT NULL,
		column_statistic jsonb,
		PRIMARY KEY (table_id, ordinal_position)
	)`,

	`CREATE TABLE IF NOT EXISTS schemakeep.datatypes (
		format_version              bigint NOT NULL,
		generation                  bigint NOT NULL,
		id                          bigint PRIMARY KEY,
		name                        text   NOT NULL UNIQUE,
		pg_data_type                bigint NOT NULL,
		pg_data_type_name           text   NOT NULL,
		pg_data_type_qualified_name text   NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS schemakeep.oid_tables`,
	`CREATE SEQUENCE IF NOT EXISTS schemakeep.oid_columns`,
	`CREATE SEQUENCE IF NOT EXISTS schemakeep.oid_indexes`,
}

// statements is the closed prepared-statement set, prepared on every
// connection at Connect.
var statements = map[dao.StatementName]string{
	dao.StmtTablesInsert: `INSERT INTO schemakeep.tables
		(format_version, generation, id, name, namespace, primary_keys, reltuples, constraints)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	dao.StmtTablesSelectID: `SELECT format_version, generation, id, name, namespace, primary_keys, reltuples, constraints
		FROM schemakeep.tables WHERE id = $1`,
	dao.StmtTablesSelectName: `SELECT format_version, generation, id, name, namespace, primary_keys, reltuples, constraints
		FROM schemakeep.tables WHERE name = $1`,
	dao.StmtTablesSelectAll: `SELECT format_version, generation, id, name, namespace, primary_keys, reltuples, constraints
		FROM schemakeep.tables ORDER BY id`,
	dao.StmtTablesUpdate: `UPDATE schemakeep.tables
		SET generation = generation + 1, name = $2, namespace = $3, primary_keys = $4, reltuples = $5, constraints = $6
		WHERE id = $1`,
	dao.StmtTablesDeleteID:   `DELETE FROM schemakeep.tables WHERE id = $1 RETURNING id`,
	dao.StmtTablesDeleteName: `DELETE FROM schemakeep.tables WHERE name = $1 RETURNING id`,

	dao.StmtColumnsInsert: `INSERT INTO schemakeep.columns
		(format_version, generation, id, name, table_id, ordinal_position, data_type_id, nullable, default_expr)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	dao.StmtColumnsSelectTableID: `SELECT format_version, generation, id, name, table_id, ordinal_position, data_type_id, nullable, default_expr
		FROM schemakeep.columns WHERE table_id = $1 ORDER BY ordinal_position`,
	dao.StmtColumnsDeleteTableID: `DELETE FROM schemakeep.columns WHERE table_id = $1`,

	dao.StmtIndexesInsert: `INSERT INTO schemakeep.indexes
		(format_version, generation, id, name, namespace, owner_id, access_method, number_of_columns, number_of_key_columns, keys, keys_id, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	dao.StmtIndexesSelectID: `SELECT format_version, generation, id, name, namespace, owner_id, access_method, number_of_columns, number_of_key_columns, keys, keys_id, options
		FROM schemakeep.indexes WHERE id = $1`,
	dao.StmtIndexesSelectName: `SELECT format_version, generation, id, name, namespace, owner_id, access_method, number_of_columns, number_of_key_columns, keys, keys_id, options
		FROM schemakeep.indexes WHERE name = $1`,
	dao.StmtIndexesSelectAll: `SELECT format_version, generation, id, name, namespace, owner_id, access_method, number_of_columns, number_of_key_columns, keys, keys_id, options
		FROM schemakeep.indexes ORDER BY id`,
	dao.StmtIndexesUpdate: `UPDATE schemakeep.indexes
		SET generation = generation + 1, name = $2, namespace = $3, owner_id = $4, access_method = $5, number_of_columns = $6, number_of_key_columns = $7, keys = $8, keys_id = $9, options = $10
		WHERE id = $1`,
	dao.StmtIndexesDeleteID:   `DELETE FROM schemakeep.indexes WHERE id = $1 RETURNING id`,
	dao.StmtIndexesDeleteName: `DELETE FROM schemakeep.indexes WHERE name = $1 RETURNING id`,

	dao.StmtStatsUpsert: `INSERT INTO schemakeep.column_statistics (table_id, ordinal_position, column_statistic)
		VALUES ($1, $2, $3)
		ON CONFLICT (table_id, ordinal_position) DO UPDATE SET column_statistic = $3`,
	dao.StmtStatsSelectOne: `SELECT table_id, ordinal_position, column_statistic
		FROM schemakeep.column_statistics WHERE table_id = $1 AND ordinal_position = $2`,
	dao.StmtStatsSelectByTable: `SELECT table_id, ordinal_position, column_statistic
		FROM schemakeep.column_statistics WHERE table_id = $1 ORDER BY ordinal_position`,
	dao.StmtStatsDeleteOne:     `DELETE FROM schemakeep.column_statistics WHERE table_id = $1 AND ordinal_position = $2`,
	dao.StmtStatsDeleteByTable: `DELETE FROM schemakeep.column_statistics WHERE table_id = $1`,

	dao.StmtDataTypesSelectID: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM schemakeep.datatypes WHERE id = $1`,
	dao.StmtDataTypesSelectName: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM schemakeep.datatypes WHERE name = $1`,
	dao.StmtDataTypesSelectPgType: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM schemakeep.datatypes WHERE pg_data_type = $1`,
	dao.StmtDataTypesSelectPgName: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM schemakeep.datatypes WHERE pg_data_type_name = $1`,
	dao.StmtDataTypesSelectPgQualName: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM schemakeep.datatypes WHERE pg_data_type_qualified_name = $1`,
	dao.StmtDataTypesSelectAll: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM schemakeep.datatypes ORDER BY id`,
}

// compile-time interface check
var _ dao.Session = (*Session)(nil)
