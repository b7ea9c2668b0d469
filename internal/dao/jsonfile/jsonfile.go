// Package jsonfile implements the document-file catalog backend. Each
// entity family lives in one JSON file under the storage directory, wrapped
// in a root key ({"tables": [...]}). A transaction buffers every mutation
// in memory; Commit rewrites the dirty files through a temp file and
// rename, Rollback drops the buffer. The backend has no cross-process
// isolation, so the catalog holds a process lock while a session is open.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/oid"
)

// Session implements dao.Session over per-family JSON files.
type Session struct {
	dir string
	gen *oid.FileGenerator

	connected bool
	inTxn     bool

	tables     []metadata.Table
	columns    []metadata.Column
	indexes    []metadata.Index
	statistics []metadata.ColumnStatistic
	datatypes  []metadata.DataType

	loaded map[metadata.Family]bool
	dirty  map[metadata.Family]bool
}

// NewSession creates a session over the given storage directory. Call Init
// once to bootstrap the directory before the first Connect.
func NewSession(dir string) *Session {
	return &Session{
		dir:    dir,
		gen:    oid.NewFileGenerator(dir),
		loaded: make(map[metadata.Family]bool),
		dirty:  make(map[metadata.Family]bool),
	}
}

// Init creates the storage directory and the family files, seeding the
// datatype catalog. Existing files are left untouched.
func Init(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	empty := map[metadata.Family]any{
		metadata.FamilyTables:     tablesFile{Tables: []metadata.Table{}},
		metadata.FamilyColumns:    columnsFile{Columns: []metadata.Column{}},
		metadata.FamilyIndexes:    indexesFile{Indexes: []metadata.Index{}},
		metadata.FamilyStatistics: statisticsFile{Statistics: []metadata.ColumnStatistic{}},
		metadata.FamilyDataTypes:  datatypesFile{DataTypes: metadata.SeedDataTypes()},
	}

	for family, contents := range empty {
		path := familyPath(dir, family)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := writeFamilyFile(path, contents); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) Connect(_ context.Context) error {
	if s.connected {
		return fmt.Errorf("session already connected: %w", metadata.ErrInternal)
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("opening storage directory %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage path %s is not a directory: %w", s.dir, metadata.ErrInvalidParameter)
	}
	s.connected = true
	return nil
}

func (s *Session) Begin(_ context.Context) error {
	if !s.connected {
		return fmt.Errorf("begin before connect: %w", metadata.ErrInternal)
	}
	if s.inTxn {
		return fmt.Errorf("transaction already open: %w", metadata.ErrInternal)
	}
	s.inTxn = true
	return nil
}

func (s *Session) Commit(_ context.Context) error {
	if !s.inTxn {
		return fmt.Errorf("commit without open transaction: %w", metadata.ErrInternal)
	}
	if err := s.flush(); err != nil {
		return err
	}
	s.dirty = make(map[metadata.Family]bool)
	s.inTxn = false
	return nil
}

func (s *Session) Rollback(_ context.Context) error {
	if !s.inTxn {
		return fmt.Errorf("rollback without open transaction: %w", metadata.ErrInternal)
	}
	// Drop the buffered state; the next read reloads from disk.
	s.loaded = make(map[metadata.Family]bool)
	s.dirty = make(map[metadata.Family]bool)
	s.tables = nil
	s.columns = nil
	s.indexes = nil
	s.statistics = nil
	s.datatypes = nil
	s.inTxn = false
	return nil
}

func (s *Session) Close(_ context.Context) error {
	if s.inTxn {
		return fmt.Errorf("close with open transaction: %w", metadata.ErrInternal)
	}
	s.connected = false
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
	if !s.inTxn {
		return fmt.Errorf("write outside transaction: %w", metadata.ErrInternal)
	}
	return nil
}

type tablesFile struct {
	Tables []metadata.Table `json:"tables"`
}

type columnsFile struct {
	Columns []metadata.Column `json:"columns"`
}

type indexesFile struct {
	Indexes []metadata.Index `json:"indexes"`
}

type statisticsFile struct {
	Statistics []metadata.ColumnStatistic `json:"column_statistics"`
}

type datatypesFile struct {
	DataTypes []metadata.DataType `json:"datatypes"`
}

func familyPath(dir string, family metadata.Family) string {
	return filepath.Join(dir, string(family)+".json")
}

// load brings one family file into the session buffer. Loaded families stay
// buffered until rollback drops them.
func (s *Session) load(family metadata.Family) error {
	if !s.connected {
		return fmt.Errorf("access before connect: %w", metadata.ErrInternal)
	}
	if s.loaded[family] {
		return nil
	}

	path := familyPath(s.dir, family)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	switch family {
	case metadata.FamilyTables:
		var f tablesFile
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		s.tables = f.Tables
	case metadata.FamilyColumns:
		var f columnsFile
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		s.columns = f.Columns
	case metadata.FamilyIndexes:
		var f indexesFile
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		s.indexes = f.Indexes
	case metadata.FamilyStatistics:
		var f statisticsFile
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		s.statistics = f.Statistics
	case metadata.FamilyDataTypes:
		var f datatypesFile
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		s.datatypes = f.DataTypes
	}

	s.loaded[family] = true
	return nil
}

func (s *Session) markDirty(family metadata.Family) {
	s.dirty[family] = true
}

// flush writes every dirty family file.
func (s *Session) flush() error {
	for family := range s.dirty {
		var contents any
		switch family {
		case metadata.FamilyTables:
			contents = tablesFile{Tables: emptyIfNil(s.tables)}
		case metadata.FamilyColumns:
			contents = columnsFile{Columns: emptyIfNil(s.columns)}
		case metadata.FamilyIndexes:
			contents = indexesFile{Indexes: emptyIfNil(s.indexes)}
		case metadata.FamilyStatistics:
			contents = statisticsFile{Statistics: emptyIfNil(s.statistics)}
		case metadata.FamilyDataTypes:
			contents = datatypesFile{DataTypes: emptyIfNil(s.datatypes)}
		}
		if err := writeFamilyFile(familyPath(s.dir, family), contents); err != nil {
			return err
		}
	}
	return nil
}

func writeFamilyFile(path string, contents any) error {
	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func emptyIfNil[T any](records []T) []T {
	if records == nil {
		return []T{}
	}
	return records
}

// compile-time interface check
var _ dao.Session = (*Session)(nil)
