package introspect_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/config"
	"github.com/schemakeep/schemakeep/internal/introspect"
	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/typemap"
)

// pgTestDSN returns the connection string for the integration database.
// Set SCHEMAKEEP_TEST_PG_DSN to point the test somewhere else.
func pgTestDSN() string {
	if dsn := os.Getenv("SCHEMAKEEP_TEST_PG_DSN"); dsn != "" {
		return dsn
	}
	return "host=localhost port=5432 dbname=schemakeep_test user=postgres password=postgres sslmode=disable"
}

// skipIfNoPostgres skips the test if a PostgreSQL test instance is not available.
func skipIfNoPostgres(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skipping: cannot connect to PostgreSQL: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping: cannot ping PostgreSQL: %v", err)
	}
	pool.Close()
}

// setupTestSchema creates two tables with indexes and an unmappable column.
func setupTestSchema(t *testing.T, dsn string) func() {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect for setup: %v", err)
	}

	ddl := []string{
		`DROP TABLE IF EXISTS orders CASCADE`,
		`DROP TABLE IF EXISTS customers CASCADE`,
		`CREATE TABLE customers (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			name TEXT NOT NULL,
			score DOUBLE PRECISION,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
		)`,
		`CREATE TABLE orders (
			id BIGSERIAL PRIMARY KEY,
			customer_id INTEGER NOT NULL REFERENCES customers(id),
			total NUMERIC(12,2) NOT NULL,
			status VARCHAR(20) DEFAULT 'pending'
		)`,
		`CREATE INDEX idx_orders_customer ON orders(customer_id)`,
		`CREATE INDEX idx_orders_status_total ON orders(status, total)`,
		`INSERT INTO customers (email, name, score) VALUES
			('alice@example.com', 'Alice', 100.5),
			('bob@example.com', 'Bob', 200.0),
			('carol@example.com', 'Carol', NULL)`,
		`INSERT INTO orders (customer_id, total) VALUES
			(1, 99.99),
			(1, 249.50),
			(2, 50.00)`,
		`ANALYZE customers`,
		`ANALYZE orders`,
	}

	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			t.Fatalf("setup DDL failed: %s: %v", stmt, err)
		}
	}
	pool.Close()

	return func() {
		pool2, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return
		}
		defer pool2.Close()
		pool2.Exec(ctx, "DROP TABLE IF EXISTS orders CASCADE")
		pool2.Exec(ctx, "DROP TABLE IF EXISTS customers CASCADE")
	}
}

func TestPostgresIntrospectIntegration(t *testing.T) {
	dsn := pgTestDSN()
	skipIfNoPostgres(t, dsn)

	cleanup := setupTestSchema(t, dsn)
	defer cleanup()

	ctx := context.Background()

	in := introspect.NewPostgres(dsn, "public", typemap.ForDriver("postgres"))
	defer in.Close()

	if err := in.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	schemas, err := in.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if len(schemas) < 2 {
		t.Fatalf("expected at least 2 tables, got %d", len(schemas))
	}

	byName := make(map[string]introspect.TableSchema, len(schemas))
	for _, s := range schemas {
		byName[s.Table.Name] = s
	}

	t.Run("customers", func(t *testing.T) {
		s, ok := byName["customers"]
		if !ok {
			t.Fatal("customers table not found")
		}

		// created_at has no catalog mapping, so 4 of 5 columns survive.
		if len(s.Table.Columns) != 4 {
			t.Errorf("columns = %d, want 4", len(s.Table.Columns))
		}
		if len(s.Skipped) != 1 || !strings.Contains(s.Skipped[0], "created_at") {
			t.Errorf("skipped = %v, want created_at", s.Skipped)
		}

		if len(s.Table.PrimaryKeys) != 1 || s.Table.PrimaryKeys[0] != 1 {
			t.Errorf("primary keys = %v, want [1]", s.Table.PrimaryKeys)
		}
		if s.Table.Tuples != 3 {
			t.Errorf("tuples = %v, want 3", s.Table.Tuples)
		}

		for _, col := range s.Table.Columns {
			switch col.Name {
			case "id":
				if col.DataTypeID != metadata.DataTypeINT32 {
					t.Errorf("id type = %d, want INT32", col.DataTypeID)
				}
				if !strings.Contains(col.DefaultExpr, "nextval") {
					t.Errorf("id default = %q, want a nextval expression", col.DefaultExpr)
				}
			case "email":
				if col.Nullable == nil || *col.Nullable {
					t.Error("email should be not null")
				}
				if col.DataTypeID != metadata.DataTypeVARCHAR {
					t.Errorf("email type = %d, want VARCHAR", col.DataTypeID)
				}
			case "score":
				if col.Nullable == nil || !*col.Nullable {
					t.Error("score should be nullable")
				}
				if col.DataTypeID != metadata.DataTypeFLOAT64 {
					t.Errorf("score type = %d, want FLOAT64", col.DataTypeID)
				}
			}
		}

		// The unique constraint on email carries a secondary index.
		foundEmail := false
		for _, idx := range s.Indexes {
			if len(idx.Keys) == 1 && idx.Keys[0] == 2 {
				foundEmail = true
			}
		}
		if !foundEmail {
			t.Errorf("indexes = %+v, want one keyed on email", s.Indexes)
		}
	})

	t.Run("orders", func(t *testing.T) {
		s, ok := byName["orders"]
		if !ok {
			t.Fatal("orders table not found")
		}

		if len(s.Table.Columns) != 4 {
			t.Errorf("columns = %d, want 4", len(s.Table.Columns))
		}
		for _, col := range s.Table.Columns {
			switch col.Name {
			case "id":
				if col.DataTypeID != metadata.DataTypeINT64 {
					t.Errorf("id type = %d, want INT64", col.DataTypeID)
				}
			case "total":
				if col.DataTypeID != metadata.DataTypeFLOAT64 {
					t.Errorf("total type = %d, want FLOAT64", col.DataTypeID)
				}
			case "status":
				if !strings.Contains(col.DefaultExpr, "pending") {
					t.Errorf("status default = %q, want 'pending'", col.DefaultExpr)
				}
			}
		}

		var composite *metadata.Index
		for i := range s.Indexes {
			if s.Indexes[i].Name == "idx_orders_status_total" {
				composite = &s.Indexes[i]
			}
		}
		if composite == nil {
			t.Fatalf("indexes = %+v, want idx_orders_status_total", s.Indexes)
		}
		if composite.NumberOfColumns != 2 || composite.NumberOfKeyColumns != 2 {
			t.Errorf("column counts = %d/%d, want 2/2",
				composite.NumberOfColumns, composite.NumberOfKeyColumns)
		}
		// status is ordinal 4, total is ordinal 3, in index order.
		if len(composite.Keys) != 2 || composite.Keys[0] != 4 || composite.Keys[1] != 3 {
			t.Errorf("keys = %v, want [4 3]", composite.Keys)
		}
		if composite.AccessMethod != 1 {
			t.Errorf("access method = %d, want 1 (btree)", composite.AccessMethod)
		}
	})

	t.Run("register", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		cfg := &config.Config{
			Version: config.CurrentVersion,
			Backend: config.BackendConfig{Type: "jsonfile", Directory: t.TempDir()},
		}
		cat, err := catalog.New(ctx, cfg, logger)
		if err != nil {
			t.Fatalf("opening catalog: %v", err)
		}
		defer cat.Close(ctx)

		ordered := []introspect.TableSchema{byName["customers"], byName["orders"]}
		results := introspect.Register(ctx, cat, ordered)
		for _, res := range results {
			if res.Err != nil {
				t.Fatalf("register %s: %v", res.Name, res.Err)
			}
		}
		if results[1].Indexes != 2 {
			t.Errorf("orders indexes registered = %d, want 2", results[1].Indexes)
		}

		table, err := cat.Table(ctx, metadata.KeyID, strconv.FormatInt(results[1].TableID, 10))
		if err != nil {
			t.Fatalf("reading orders back: %v", err)
		}
		colByOrdinal := make(map[int64]int64, len(table.Columns))
		for _, col := range table.Columns {
			colByOrdinal[col.OrdinalPosition] = col.ID
		}

		index, err := cat.Index(ctx, metadata.KeyName, "idx_orders_status_total")
		if err != nil {
			t.Fatalf("reading index back: %v", err)
		}
		if index.OwnerID != results[1].TableID {
			t.Errorf("index owner = %d, want %d", index.OwnerID, results[1].TableID)
		}
		want := []int64{colByOrdinal[4], colByOrdinal[3]}
		if len(index.KeysID) != 2 || index.KeysID[0] != want[0] || index.KeysID[1] != want[1] {
			t.Errorf("keys_id = %v, want %v", index.KeysID, want)
		}
	})
}

func TestPostgresTablesWithoutConnectFails(t *testing.T) {
	in := introspect.NewPostgres("host=localhost", "public", typemap.ForDriver("postgres"))
	if _, err := in.Tables(context.Background()); err == nil {
		t.Error("expected error when reading without connecting")
	}
}
