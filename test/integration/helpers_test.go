//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/config"
)

// backendFixture is one reachable backend under test.
type backendFixture struct {
	name string
	cfg  *config.Config

	// reopen closes the given catalog and opens a fresh one over the same
	// storage, simulating a process restart.
	reopen func(t *testing.T, cat *catalog.Catalog) *catalog.Catalog
}

var nameSeq atomic.Int64

// uniqueName returns an object name that does not collide with earlier
// test runs against a shared database backend.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), nameSeq.Add(1))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backends returns a fixture per reachable backend. jsonfile and sqlite
// always run (temp storage); postgres and mongo are gated on env vars.
func backends(t *testing.T) []backendFixture {
	t.Helper()

	fixtures := []backendFixture{
		{
			name: "jsonfile",
			cfg: &config.Config{
				Version: config.CurrentVersion,
				Backend: config.BackendConfig{Type: "jsonfile", Directory: t.TempDir()},
			},
		},
		{
			name: "sqlite",
			cfg: &config.Config{
				Version: config.CurrentVersion,
				Backend: config.BackendConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "catalog.db")},
			},
		},
	}

	if dsn := os.Getenv("SCHEMAKEEP_TEST_PG"); dsn != "" {
		fixtures = append(fixtures, backendFixture{
			name: "postgres",
			cfg: &config.Config{
				Version: config.CurrentVersion,
				Backend: config.BackendConfig{Type: "postgres", ConnectionString: dsn},
			},
		})
	}
	if uri := os.Getenv("SCHEMAKEEP_TEST_MONGO"); uri != "" {
		fixtures = append(fixtures, backendFixture{
			name: "mongo",
			cfg: &config.Config{
				Version: config.CurrentVersion,
				Backend: config.BackendConfig{Type: "mongo", ConnectionString: uri},
			},
		})
	}

	for i := range fixtures {
		cfg := fixtures[i].cfg
		fixtures[i].reopen = func(t *testing.T, cat *catalog.Catalog) *catalog.Catalog {
			t.Helper()
			if err := cat.Close(context.Background()); err != nil {
				t.Fatalf("closing catalog: %v", err)
			}
			return open(t, cfg)
		}
	}
	return fixtures
}

// open provisions the backend if needed and connects a catalog.
func open(t *testing.T, cfg *config.Config) *catalog.Catalog {
	t.Helper()
	ctx := context.Background()
	if err := catalog.Init(ctx, cfg); err != nil {
		t.Fatalf("provisioning %s backend: %v", cfg.Backend.Type, err)
	}
	cat, err := catalog.New(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("opening %s backend: %v", cfg.Backend.Type, err)
	}
	return cat
}
