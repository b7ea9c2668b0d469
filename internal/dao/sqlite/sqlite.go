// Package sqlite implements the embedded relational catalog backend on
// the pure Go SQLite driver. The SQL shape mirrors the PostgreSQL backend
// with a catalog_ table prefix instead of a schema. Statements are
// prepared at Connect and rebound to the open transaction per call.
// Object ids come from an upsert counter table that participates in the
// session transaction, so ids of a rolled-back transaction may be
// re-issued; committed ids stay unique.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/oid"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session implements dao.Session over a SQLite database file.
type Session struct {
	path  string
	db    *sql.DB
	tx    *sql.Tx
	stmts map[dao.StatementName]*sql.Stmt
	gen   *counterGenerator
}

// NewSession creates a session over the given database file. Call Init
// once to bootstrap the tables before the first Connect.
func NewSession(path string) *Session {
	s := &Session{path: path}
	s.gen = &counterGenerator{s: s}
	return s
}

func (s *Session) Connect(ctx context.Context) error {
	if s.db != nil {
		return fmt.Errorf("session already connected: %w", metadata.ErrInternal)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite allows one writer
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging sqlite database: %w", err)
	}

	stmts := make(map[dao.StatementName]*sql.Stmt, len(statements))
	for name, query := range statements {
		st, err := db.PrepareContext(ctx, query)
		if err != nil {
			db.Close()
			return fmt.Errorf("preparing %s: %w", name, err)
		}
		stmts[name] = st
	}

	s.db = db
	s.stmts = stmts
	return nil
}

func (s *Session) Begin(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("begin before connect: %w", metadata.ErrInternal)
	}
	if s.tx != nil {
		return fmt.Errorf("transaction already open: %w", metadata.ErrInternal)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	s.tx = tx
	return nil
}

func (s *Session) Commit(_ context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("commit without open transaction: %w", metadata.ErrInternal)
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Session) Rollback(_ context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("rollback without open transaction: %w", metadata.ErrInternal)
	}
	err := s.tx.Rollback()
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
	if s.db == nil {
		return nil
	}
	for _, st := range s.stmts {
		st.Close()
	}
	s.stmts = nil
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("closing sqlite database: %w", err)
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

// stmt returns the prepared statement, rebound to the open transaction
// when one exists.
func (s *Session) stmt(ctx context.Context, name dao.StatementName) (*sql.Stmt, error) {
	if s.db == nil {
		return nil, fmt.Errorf("access before connect: %w", metadata.ErrInternal)
	}
	st, ok := s.stmts[name]
	if !ok {
		return nil, fmt.Errorf("statement %s not prepared: %w", name, metadata.ErrInternal)
	}
	if s.tx != nil {
		return s.tx.StmtContext(ctx, st), nil
	}
	return st, nil
}

// reader returns the open transaction when one exists, the database
// otherwise. Used for the non-prepared counter statements.
func (s *Session) reader() (querier, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	if s.db == nil {
		return nil, fmt.Errorf("access before connect: %w", metadata.ErrInternal)
	}
	return s.db, nil
}

// counterGenerator issues ids from the catalog_oid table via an atomic
// upsert. The counter row participates in the open transaction.
type counterGenerator struct {
	s *Session
}

func (g *counterGenerator) Generate(ctx context.Context, family metadata.Family) (int64, error) {
	q, err := g.s.reader()
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	var id int64
	const upsert = `INSERT INTO catalog_oid (family, counter) VALUES (?, 1)
		ON CONFLICT (family) DO UPDATE SET counter = counter + 1
		RETURNING counter`
	if err := q.QueryRowContext(ctx, upsert, string(family)).Scan(&id); err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating %s id: %w", family, err)
	}
	return id, nil
}

func (g *counterGenerator) Current(ctx context.Context, family metadata.Family) (int64, error) {
	q, err := g.s.reader()
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	var counter int64
	err = q.QueryRowContext(ctx,
		`SELECT counter FROM catalog_oid WHERE family = ?`, string(family)).Scan(&counter)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("reading %s id counter: %w", family, err)
	}
	return counter, nil
}

// Init bootstraps the catalog tables, the id counter table and the seeded
// datatype rows. Existing objects are left untouched.
func Init(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening sqlite database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	for _, ddl := range bootstrapDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("bootstrapping catalog tables: %w", err)
		}
	}

	const seed = `INSERT OR IGNORE INTO catalog_datatypes
		(format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, dt := range metadata.SeedDataTypes() {
		_, err := db.ExecContext(ctx, seed,
			dt.FormatVersion, dt.Generation, dt.ID, dt.Name,
			dt.PgDataType, dt.PgDataTypeName, dt.PgDataTypeQualifiedName)
		if err != nil {
			return fmt.Errorf("seeding datatype %s: %w", dt.Name, err)
		}
	}
	return nil
}

var bootstrapDDL = []string{
	`CREATE TABLE IF NOT EXISTS catalog_tables (
		format_version INTEGER NOT NULL,
		generation     INTEGER NOT NULL,
		id             INTEGER PRIMARY KEY,
		name           TEXT NOT NULL UNIQUE,
		namespace      TEXT NOT NULL DEFAULT '',
		primary_keys   TEXT NOT NULL DEFAULT '[]',
		reltuples      REAL NOT NULL DEFAULT 0,
		constraints    TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_columns (
		format_version   INTEGER NOT NULL,
		generation       INTEGER NOT NULL,
		id               INTEGER PRIMARY KEY,
		name             TEXT NOT NULL,
		table_id         INTEGER NOT NULL,
		ordinal_position INTEGER NOT NULL,
		data_type_id     INTEGER NOT NULL,
		nullable         INTEGER,
		default_expr     TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_indexes (
		format_version        INTEGER NOT NULL,
		generation            INTEGER NOT NULL,
		id                    INTEGER PRIMARY KEY,
		name                  TEXT NOT NULL UNIQUE,
		namespace             TEXT NOT NULL DEFAULT '',
		owner_id              INTEGER NOT NULL,
		access_method         INTEGER NOT NULL DEFAULT 0,
		number_of_columns     INTEGER NOT NULL DEFAULT 0,
		number_of_key_columns INTEGER NOT NULL DEFAULT 0,
		keys                  TEXT NOT NULL DEFAULT '[]',
		keys_id               TEXT NOT NULL DEFAULT '[]',
		options               TEXT NOT NULL DEFAULT '[]'
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_column_statistics (
		table_id         INTEGER NOT NULL,
		ordinal_position INTEGER NOT NULL,
		column_statistic TEXT,
		PRIMARY KEY (table_id, ordinal_position)
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_datatypes (
		format_version              INTEGER NOT NULL,
		generation                  INTEGER NOT NULL,
		id                          INTEGER PRIMARY KEY,
		name                        TEXT NOT NULL UNIQUE,
		pg_data_type                INTEGER NOT NULL,
		pg_data_type_name           TEXT NOT NULL,
		pg_data_type_qualified_name TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_oid (
		family  TEXT PRIMARY KEY,
		counter INTEGER NOT NULL
	)`,
}

// statements is the closed prepared-statement set. SQLite has no int64
// array or jsonb type, so list and constraint fields are stored as JSON
// text.
var statements = map[dao.StatementName]string{
	dao.StmtTablesInsert: `INSERT INTO catalog_tables
		(format_version, generation, id, name, namespace, primary_keys, reltuples, constraints)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	dao.StmtTablesSelectID: `SELECT format_version, generation, id, name, namespace, primary_keys, reltuples, constraints
		FROM catalog_tables WHERE id = ?`,
	dao.StmtTablesSelectName: `SELECT format_version, generation, id, name, namespace, primary_keys, reltuples, constraints
		FROM catalog_tables WHERE name = ?`,
	dao.StmtTablesSelectAll: `SELECT format_version, generation, id, name, namespace, primary_keys, reltuples, constraints
		FROM catalog_tables ORDER BY id`,
	dao.StmtTablesUpdate: `UPDATE catalog_tables
		SET generation = generation + 1, name = ?, namespace = ?, primary_keys = ?, reltuples = ?, constraints = ?
		WHERE id = ?`,
	dao.StmtTablesDeleteID:   `DELETE FROM catalog_tables WHERE id = ? RETURNING id`,
	dao.StmtTablesDeleteName: `DELETE FROM catalog_tables WHERE name = ? RETURNING id`,

	dao.StmtColumnsInsert: `INSERT INTO catalog_columns
		(format_version, generation, id, name, table_id, ordinal_position, data_type_id, nullable, default_expr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	dao.StmtColumnsSelectTableID: `SELECT format_version, generation, id, name, table_id, ordinal_position, data_type_id, nullable, default_expr
		FROM catalog_columns WHERE table_id = ? ORDER BY ordinal_position`,
	dao.StmtColumnsDeleteTableID: `DELETE FROM catalog_columns WHERE table_id = ?`,

	dao.StmtIndexesInsert: `INSERT INTO catalog_indexes
		(format_version, generation, id, name, namespace, owner_id, access_method, number_of_columns, number_of_key_columns, keys, keys_id, options)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	dao.StmtIndexesSelectID: `SELECT format_version, generation, id, name, namespace, owner_id, access_method, number_of_columns, number_of_key_columns, keys, keys_id, options
		FROM catalog_indexes WHERE id = ?`,
	dao.StmtIndexesSelectName: `SELECT format_version, generation, id, name, namespace, owner_id, access_method, number_of_columns, number_of_key_columns, keys, keys_id, options
		FROM catalog_indexes WHERE name = ?`,
	dao.StmtIndexesSelectAll: `SELECT format_version, generation, id, name, namespace, owner_id, access_method, number_of_columns, number_of_key_columns, keys, keys_id, options
		FROM catalog_indexes ORDER BY id`,
	dao.StmtIndexesUpdate: `UPDATE catalog_indexes
		SET generation = generation + 1, name = ?, namespace = ?, owner_id = ?, access_method = ?, number_of_columns = ?, number_of_key_columns = ?, keys = ?, keys_id = ?, options = ?
		WHERE id = ?`,
	dao.StmtIndexesDeleteID:   `DELETE FROM catalog_indexes WHERE id = ? RETURNING id`,
	dao.StmtIndexesDeleteName: `DELETE FROM catalog_indexes WHERE name = ? RETURNING id`,

	dao.StmtStatsUpsert: `INSERT INTO catalog_column_statistics (table_id, ordinal_position, column_statistic)
		VALUES (?, ?, ?)
		ON CONFLICT (table_id, ordinal_position) DO UPDATE SET column_statistic = excluded.column_statistic`,
	dao.StmtStatsSelectOne: `SELECT table_id, ordinal_position, column_statistic
		FROM catalog_column_statistics WHERE table_id = ? AND ordinal_position = ?`,
	dao.StmtStatsSelectByTable: `SELECT table_id, ordinal_position, column_statistic
		FROM catalog_column_statistics WHERE table_id = ? ORDER BY ordinal_position`,
	dao.StmtStatsDeleteOne:     `DELETE FROM catalog_column_statistics WHERE table_id = ? AND ordinal_position = ?`,
	dao.StmtStatsDeleteByTable: `DELETE FROM catalog_column_statistics WHERE table_id = ?`,

	dao.StmtDataTypesSelectID: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM catalog_datatypes WHERE id = ?`,
	dao.StmtDataTypesSelectName: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM catalog_datatypes WHERE name = ?`,
	dao.StmtDataTypesSelectPgType: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM catalog_datatypes WHERE pg_data_type = ?`,
	dao.StmtDataTypesSelectPgName: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM catalog_datatypes WHERE pg_data_type_name = ?`,
	dao.StmtDataTypesSelectPgQualName: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM catalog_datatypes WHERE pg_data_type_qualified_name = ?`,
	dao.StmtDataTypesSelectAll: `SELECT format_version, generation, id, name, pg_data_type, pg_data_type_name, pg_data_type_qualified_name
		FROM catalog_datatypes ORDER BY id`,
}

// compile-time interface check
var _ dao.Session = (*Session)(nil)
