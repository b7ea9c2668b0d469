// Package catalog assembles the configured storage backend, its session
// and the per-family metadata providers behind one handle. Sessions admit
// a single in-flight operation, so the catalog serializes logical
// operations with one mutex; every surface (CLI, REST, websocket feed)
// shares that ordering. Committed mutations are published as change
// events to an optional notifier.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/schemakeep/schemakeep/internal/config"
	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/dao/jsonfile"
	"github.com/schemakeep/schemakeep/internal/dao/mongo"
	"github.com/schemakeep/schemakeep/internal/dao/postgres"
	"github.com/schemakeep/schemakeep/internal/dao/sqlite"
	"github.com/schemakeep/schemakeep/internal/lock"
	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/provider"
)

// LockFile is the process lock kept inside a jsonfile catalog directory.
// The document backend has no cross-process isolation of its own.
const LockFile = "schemakeep.lock"

// Catalog is the shared handle over one open metadata session.
type Catalog struct {
	logger  *slog.Logger
	backend string
	sess    dao.Session

	lockPath string // non-empty while a jsonfile lock is held

	mu         sync.Mutex
	notifier   Notifier
	tables     *provider.Tables
	indexes    *provider.Indexes
	statistics *provider.Statistics
	datatypes  *provider.DataTypes
}

// New opens the configured backend and connects a session. File-backed
// backends bootstrap their storage on first open; postgres and mongo are
// provisioned once with Init and only connected here.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{logger: logger, backend: cfg.Backend.Type}

	switch cfg.Backend.Type {
	case "jsonfile":
		dir := config.ExpandHome(cfg.Backend.Directory)
		if err := jsonfile.Init(dir); err != nil {
			return nil, fmt.Errorf("bootstrapping catalog directory: %w", err)
		}
		c.lockPath = filepath.Join(dir, LockFile)
		if err := lock.Acquire(c.lockPath); err != nil {
			return nil, err
		}
		c.sess = jsonfile.NewSession(dir)
	case "sqlite":
		path := config.ExpandHome(cfg.Backend.Path)
		if err := sqlite.Init(ctx, path); err != nil {
			return nil, fmt.Errorf("bootstrapping catalog database: %w", err)
		}
		c.sess = sqlite.NewSession(path)
	case "postgres":
		c.sess = postgres.NewSession(cfg.Backend.ConnectionString)
	case "mongo":
		c.sess = mongo.NewSession(cfg.Backend.ConnectionString)
	default:
		return nil, fmt.Errorf("backend type %q: %w", cfg.Backend.Type, metadata.ErrNotSupported)
	}

	if err := c.sess.Connect(ctx); err != nil {
		c.releaseLock()
		return nil, fmt.Errorf("connecting %s backend: %w", cfg.Backend.Type, err)
	}

	c.tables = provider.NewTables(c.sess)
	c.indexes = provider.NewIndexes(c.sess)
	c.statistics = provider.NewStatistics(c.sess)
	c.datatypes = provider.NewDataTypes(c.sess)

	logger.Info("catalog opened", "backend", cfg.Backend.Type)
	return c, nil
}

// Init provisions the configured backend: directory and family files for
// jsonfile, DDL and datatype seeds for the database backends. Running it
// against provisioned storage is a no-op.
func Init(ctx context.Context, cfg *config.Config) error {
	switch cfg.Backend.Type {
	case "jsonfile":
		return jsonfile.Init(config.ExpandHome(cfg.Backend.Directory))
	case "sqlite":
		return sqlite.Init(ctx, config.ExpandHome(cfg.Backend.Path))
	case "postgres":
		return postgres.Init(ctx, cfg.Backend.ConnectionString)
	case "mongo":
		return mongo.Init(ctx, cfg.Backend.ConnectionString)
	default:
		return fmt.Errorf("backend type %q: %w", cfg.Backend.Type, metadata.ErrNotSupported)
	}
}

// Backend returns the configured backend type name.
func (c *Catalog) Backend() string {
	return c.backend
}

// SetNotifier registers the change-event sink. Pass nil to detach.
func (c *Catalog) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// Close closes the session and releases the process lock.
func (c *Catalog) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.sess.Close(ctx)
	c.releaseLock()
	if err != nil {
		return err
	}
	c.logger.Info("catalog closed", "backend", c.backend)
	return nil
}

func (c *Catalog) releaseLock() {
	if c.lockPath == "" {
		return
	}
	if err := lock.Release(c.lockPath); err != nil {
		c.logger.Warn("releasing catalog lock", "error", err)
	}
	c.lockPath = ""
}

func (c *Catalog) notify(ev Event) {
	if c.notifier != nil {
		c.notifier.Notify(ev)
	}
}
