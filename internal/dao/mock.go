package dao

import (
	"context"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/oid"
)

// MockSession is a scriptable test double for Session. Zero value is usable:
// every call succeeds against empty in-memory state. Tests inject failures
// through the *Err fields and inspect the recorded calls afterwards.
type MockSession struct {
	ConnectErr  error
	BeginErr    error
	CommitErr   error
	RollbackErr error
	CloseErr    error

	Connected     bool
	Closed        bool
	BeginCount    int
	CommitCount   int
	RollbackCount int

	MockTables     MockTables
	MockColumns    MockColumns
	MockIndexes    MockIndexes
	MockStatistics MockStatistics
	MockDataTypes  MockDataTypes
	MockGenerator  MockGenerator
}

func (s *MockSession) Connect(_ context.Context) error {
	if s.ConnectErr != nil {
		return s.ConnectErr
	}
	s.Connected = true
	return nil
}

func (s *MockSession) Begin(_ context.Context) error {
	if s.BeginErr != nil {
		return s.BeginErr
	}
	s.BeginCount++
	return nil
}

func (s *MockSession) Commit(_ context.Context) error {
	if s.CommitErr != nil {
		return s.CommitErr
	}
	s.CommitCount++
	return nil
}

func (s *MockSession) Rollback(_ context.Context) error {
	if s.RollbackErr != nil {
		return s.RollbackErr
	}
	s.RollbackCount++
	return nil
}

func (s *MockSession) Close(_ context.Context) error {
	if s.CloseErr != nil {
		return s.CloseErr
	}
	s.Closed = true
	return nil
}

func (s *MockSession) Tables() Tables           { return &s.MockTables }
func (s *MockSession) Columns() Columns         { return &s.MockColumns }
func (s *MockSession) Indexes() Indexes         { return &s.MockIndexes }
func (s *MockSession) Statistics() Statistics   { return &s.MockStatistics }
func (s *MockSession) DataTypes() DataTypes     { return &s.MockDataTypes }
func (s *MockSession) Generator() oid.Generator { return &s.MockGenerator }

// MockTables is the Tables test double.
type MockTables struct {
	InsertErr    error
	SelectErr    error
	SelectAllErr error
	UpdateErr    error
	DeleteErr    error

	NextID          int64
	Inserted        []metadata.Table
	SelectResult    *metadata.Table
	SelectAllResult []metadata.Table
	Updated         []metadata.Table
	DeletedKeys     []string
	DeleteResult    int64
}

func (m *MockTables) Insert(_ context.Context, table *metadata.Table) (int64, error) {
	if m.InsertErr != nil {
		return metadata.InvalidObjectID, m.InsertErr
	}
	m.NextID++
	t := *table
	t.ID = m.NextID
	t.FormatVersion = metadata.FormatVersion
	t.Generation = metadata.InitialGeneration
	m.Inserted = append(m.Inserted, t)
	return t.ID, nil
}

func (m *MockTables) Select(_ context.Context, key metadata.Key, value string) (*metadata.Table, error) {
	if m.SelectErr != nil {
		return nil, m.SelectErr
	}
	if m.SelectResult == nil {
		return nil, metadata.NotFoundByKey(key)
	}
	_ = value
	t := *m.SelectResult
	return &t, nil
}

func (m *MockTables) SelectAll(_ context.Context) ([]metadata.Table, error) {
	if m.SelectAllErr != nil {
		return nil, m.SelectAllErr
	}
	return m.SelectAllResult, nil
}

func (m *MockTables) Update(_ context.Context, id int64, table *metadata.Table) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	t := *table
	t.ID = id
	m.Updated = append(m.Updated, t)
	return nil
}

func (m *MockTables) Delete(_ context.Context, key metadata.Key, value string) (int64, error) {
	if m.DeleteErr != nil {
		return metadata.InvalidObjectID, m.DeleteErr
	}
	m.DeletedKeys = append(m.DeletedKeys, string(key)+"="+value)
	if m.DeleteResult != 0 {
		return m.DeleteResult, nil
	}
	if key == metadata.KeyID {
		id, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return id, nil
		}
	}
	return 1, nil
}

// MockColumns is the Columns test double. InsertErrAt fails the Nth insert
// call (1-based), for exercising first-failure-wins rollback paths.
type MockColumns struct {
	InsertErr   error
	InsertErrAt int
	SelectErr   error
	DeleteErr   error

	NextID       int64
	Inserted     []metadata.Column
	SelectResult []metadata.Column
	DeletedKeys  []string

	insertCalls int
}

func (m *MockColumns) Insert(_ context.Context, tableID int64, column *metadata.Column) (int64, error) {
	m.insertCalls++
	if m.InsertErr != nil && (m.InsertErrAt == 0 || m.insertCalls == m.InsertErrAt) {
		return metadata.InvalidObjectID, m.InsertErr
	}
	m.NextID++
	c := *column
	c.ID = m.NextID
	c.TableID = tableID
	c.FormatVersion = metadata.FormatVersion
	c.Generation = metadata.InitialGeneration
	m.Inserted = append(m.Inserted, c)
	return c.ID, nil
}

func (m *MockColumns) Select(_ context.Context, key metadata.Key, value string) ([]metadata.Column, error) {
	if m.SelectErr != nil {
		return nil, m.SelectErr
	}
	if key != metadata.KeyTableID {
		return nil, metadata.ErrNotSupported
	}
	_ = value
	return m.SelectResult, nil
}

func (m *MockColumns) Delete(_ context.Context, key metadata.Key, value string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if key != metadata.KeyTableID {
		return metadata.ErrNotSupported
	}
	m.DeletedKeys = append(m.DeletedKeys, string(key)+"="+value)
	return nil
}

// MockIndexes is the Indexes test double.
type MockIndexes struct {
	InsertErr    error
	SelectErr    error
	SelectAllErr error
	UpdateErr    error
	DeleteErr    error

	NextID          int64
	Inserted        []metadata.Index
	SelectResult    *metadata.Index
	SelectAllResult []metadata.Index
	Updated         []metadata.Index
	DeletedKeys     []string
	DeleteResult    int64
}

func (m *MockIndexes) Insert(_ context.Context, index *metadata.Index) (int64, error) {
	if m.InsertErr != nil {
		return metadata.InvalidObjectID, m.InsertErr
	}
	m.NextID++
	ix := *index
	ix.ID = m.NextID
	ix.FormatVersion = metadata.FormatVersion
	ix.Generation = metadata.InitialGeneration
	m.Inserted = append(m.Inserted, ix)
	return ix.ID, nil
}

func (m *MockIndexes) Select(_ context.Context, key metadata.Key, value string) (*metadata.Index, error) {
	if m.SelectErr != nil {
		return nil, m.SelectErr
	}
	if m.SelectResult == nil {
		return nil, metadata.NotFoundByKey(key)
	}
	_ = value
	ix := *m.SelectResult
	return &ix, nil
}

func (m *MockIndexes) SelectAll(_ context.Context) ([]metadata.Index, error) {
	if m.SelectAllErr != nil {
		return nil, m.SelectAllErr
	}
	return m.SelectAllResult, nil
}

func (m *MockIndexes) Update(_ context.Context, id int64, index *metadata.Index) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	ix := *index
	ix.ID = id
	m.Updated = append(m.Updated, ix)
	return nil
}

func (m *MockIndexes) Delete(_ context.Context, key metadata.Key, value string) (int64, error) {
	if m.DeleteErr != nil {
		return metadata.InvalidObjectID, m.DeleteErr
	}
	m.DeletedKeys = append(m.DeletedKeys, string(key)+"="+value)
	if m.DeleteResult != 0 {
		return m.DeleteResult, nil
	}
	return 1, nil
}

// MockStatistics is the Statistics test double.
type MockStatistics struct {
	UpsertErr        error
	SelectErr        error
	SelectByTableErr error
	DeleteErr        error
	DeleteByTableErr error

	Upserted       []metadata.ColumnStatistic
	SelectResult   *metadata.ColumnStatistic
	SelectByTable  []metadata.ColumnStatistic
	Deleted        [][2]int64
	DeletedByTable []int64
}

func (m *MockStatistics) Upsert(_ context.Context, stat *metadata.ColumnStatistic) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.Upserted = append(m.Upserted, *stat)
	return nil
}

func (m *MockStatistics) Select(_ context.Context, tableID, ordinalPosition int64) (*metadata.ColumnStatistic, error) {
	if m.SelectErr != nil {
		return nil, m.SelectErr
	}
	if m.SelectResult == nil {
		return nil, metadata.ErrInvalidParameter
	}
	_ = tableID
	_ = ordinalPosition
	st := *m.SelectResult
	return &st, nil
}

func (m *MockStatistics) SelectAllByTable(_ context.Context, tableID int64) ([]metadata.ColumnStatistic, error) {
	if m.SelectByTableErr != nil {
		return nil, m.SelectByTableErr
	}
	if len(m.SelectByTable) == 0 {
		return nil, metadata.ErrInvalidParameter
	}
	_ = tableID
	return m.SelectByTable, nil
}

func (m *MockStatistics) Delete(_ context.Context, tableID, ordinalPosition int64) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, [2]int64{tableID, ordinalPosition})
	return nil
}

func (m *MockStatistics) DeleteByTable(_ context.Context, tableID int64) error {
	if m.DeleteByTableErr != nil {
		return m.DeleteByTableErr
	}
	m.DeletedByTable = append(m.DeletedByTable, tableID)
	return nil
}

// MockDataTypes serves the seeded catalog unless scripted otherwise.
type MockDataTypes struct {
	SelectErr    error
	SelectAllErr error

	Types []metadata.DataType
}

func (m *MockDataTypes) seed() []metadata.DataType {
	if m.Types == nil {
		m.Types = metadata.SeedDataTypes()
	}
	return m.Types
}

func (m *MockDataTypes) Select(_ context.Context, key metadata.Key, value string) (*metadata.DataType, error) {
	if m.SelectErr != nil {
		return nil, m.SelectErr
	}
	for _, dt := range m.seed() {
		match := false
		switch key {
		case metadata.KeyID:
			match = strconv.FormatInt(dt.ID, 10) == value
		case metadata.KeyName:
			match = dt.Name == value
		case metadata.KeyPgDataType:
			match = strconv.FormatInt(dt.PgDataType, 10) == value
		case metadata.KeyPgDataTypeName:
			match = dt.PgDataTypeName == value
		case metadata.KeyPgDataTypeQualifiedName:
			match = dt.PgDataTypeQualifiedName == value
		default:
			return nil, metadata.ErrNotSupported
		}
		if match {
			found := dt
			return &found, nil
		}
	}
	return nil, metadata.NotFoundByKey(key)
}

func (m *MockDataTypes) SelectAll(_ context.Context) ([]metadata.DataType, error) {
	if m.SelectAllErr != nil {
		return nil, m.SelectAllErr
	}
	return m.seed(), nil
}

// MockGenerator is the oid.Generator test double.
type MockGenerator struct {
	GenerateErr error
	CurrentErr  error

	Counters map[metadata.Family]int64
}

func (g *MockGenerator) Generate(_ context.Context, family metadata.Family) (int64, error) {
	if g.GenerateErr != nil {
		return metadata.InvalidObjectID, g.GenerateErr
	}
	if g.Counters == nil {
		g.Counters = make(map[metadata.Family]int64)
	}
	g.Counters[family]++
	return g.Counters[family], nil
}

func (g *MockGenerator) Current(_ context.Context, family metadata.Family) (int64, error) {
	if g.CurrentErr != nil {
		return metadata.InvalidObjectID, g.CurrentErr
	}
	return g.Counters[family], nil
}

// compile-time interface checks
var (
	_ Session       = (*MockSession)(nil)
	_ Tables        = (*MockTables)(nil)
	_ Columns       = (*MockColumns)(nil)
	_ Indexes       = (*MockIndexes)(nil)
	_ Statistics    = (*MockStatistics)(nil)
	_ DataTypes     = (*MockDataTypes)(nil)
	_ oid.Generator = (*MockGenerator)(nil)
)
