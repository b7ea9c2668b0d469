package catalog

import (
	"context"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

// AddTable registers a table with its columns and returns the new id.
func (c *Catalog) AddTable(ctx context.Context, table *metadata.Table) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.tables.Add(ctx, table)
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	c.logger.Info("table added", "id", id, "name", table.Name)
	c.notify(Event{Kind: EventAdded, Family: metadata.FamilyTables, ID: id, Name: table.Name})
	return id, nil
}

// Table returns one table with its columns attached.
func (c *Catalog) Table(ctx context.Context, key metadata.Key, value string) (*metadata.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables.Get(ctx, key, value)
}

// Tables returns every registered table with columns attached.
func (c *Catalog) Tables(ctx context.Context) ([]metadata.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables.GetAll(ctx)
}

// UpdateTable replaces a table definition under its existing id.
func (c *Catalog) UpdateTable(ctx context.Context, id int64, table *metadata.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.tables.Update(ctx, id, table); err != nil {
		return err
	}
	c.logger.Info("table updated", "id", id, "name", table.Name)
	c.notify(Event{Kind: EventUpdated, Family: metadata.FamilyTables, ID: id, Name: table.Name})
	return nil
}

// RemoveTable drops a table together with its columns and statistics.
func (c *Catalog) RemoveTable(ctx context.Context, key metadata.Key, value string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.tables.Remove(ctx, key, value)
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	c.logger.Info("table removed", "id", id)
	c.notify(Event{Kind: EventRemoved, Family: metadata.FamilyTables, ID: id, Name: nameOf(key, value)})
	return id, nil
}

// TableStatistic returns the bare table row carrying the tuple count.
func (c *Catalog) TableStatistic(ctx context.Context, key metadata.Key, value string) (*metadata.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables.GetStatistic(ctx, key, value)
}

// SetTableStatistic updates one table's tuple count and returns its id.
func (c *Catalog) SetTableStatistic(ctx context.Context, key metadata.Key, value string, tuples float64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.tables.SetStatistic(ctx, key, value, tuples)
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	c.logger.Info("table statistic set", "id", id, "tuples", tuples)
	c.notify(Event{Kind: EventUpdated, Family: metadata.FamilyTables, ID: id, Name: nameOf(key, value)})
	return id, nil
}

// AddIndex registers an index and returns the new id.
func (c *Catalog) AddIndex(ctx context.Context, index *metadata.Index) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.indexes.Add(ctx, index)
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	c.logger.Info("index added", "id", id, "name", index.Name)
	c.notify(Event{Kind: EventAdded, Family: metadata.FamilyIndexes, ID: id, Name: index.Name})
	return id, nil
}

// Index returns one index.
func (c *Catalog) Index(ctx context.Context, key metadata.Key, value string) (*metadata.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexes.Get(ctx, key, value)
}

// Indexes returns every registered index.
func (c *Catalog) Indexes(ctx context.Context) ([]metadata.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexes.GetAll(ctx)
}

// UpdateIndex replaces an index definition under its existing id.
func (c *Catalog) UpdateIndex(ctx context.Context, id int64, index *metadata.Index) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.indexes.Update(ctx, id, index); err != nil {
		return err
	}
	c.logger.Info("index updated", "id", id, "name", index.Name)
	c.notify(Event{Kind: EventUpdated, Family: metadata.FamilyIndexes, ID: id, Name: index.Name})
	return nil
}

// RemoveIndex drops one index and returns its id.
func (c *Catalog) RemoveIndex(ctx context.Context, key metadata.Key, value string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.indexes.Remove(ctx, key, value)
	if err != nil {
		return metadata.InvalidObjectID, err
	}
	c.logger.Info("index removed", "id", id)
	c.notify(Event{Kind: EventRemoved, Family: metadata.FamilyIndexes, ID: id, Name: nameOf(key, value)})
	return id, nil
}

// PutColumnStatistic stores or replaces one column statistic.
func (c *Catalog) PutColumnStatistic(ctx context.Context, stat *metadata.ColumnStatistic) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.statistics.Upsert(ctx, stat); err != nil {
		return err
	}
	c.logger.Info("column statistic stored", "table_id", stat.TableID, "position", stat.OrdinalPosition)
	c.notify(Event{Kind: EventUpdated, Family: metadata.FamilyStatistics, ID: stat.TableID})
	return nil
}

// ColumnStatistic returns the statistic of one column.
func (c *Catalog) ColumnStatistic(ctx context.Context, tableID, ordinalPosition int64) (*metadata.ColumnStatistic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statistics.Get(ctx, tableID, ordinalPosition)
}

// ColumnStatistics returns all statistics of one table keyed by ordinal
// position.
func (c *Catalog) ColumnStatistics(ctx context.Context, tableID int64) (map[int64]*metadata.ColumnStatistic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statistics.GetAllByTable(ctx, tableID)
}

// RemoveColumnStatistic deletes the statistic of one column.
func (c *Catalog) RemoveColumnStatistic(ctx context.Context, tableID, ordinalPosition int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.statistics.Remove(ctx, tableID, ordinalPosition); err != nil {
		return err
	}
	c.notify(Event{Kind: EventRemoved, Family: metadata.FamilyStatistics, ID: tableID})
	return nil
}

// RemoveColumnStatistics deletes every statistic of one table.
func (c *Catalog) RemoveColumnStatistics(ctx context.Context, tableID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.statistics.RemoveAllByTable(ctx, tableID); err != nil {
		return err
	}
	c.notify(Event{Kind: EventRemoved, Family: metadata.FamilyStatistics, ID: tableID})
	return nil
}

// DataType returns one entry of the seeded type catalog.
func (c *Catalog) DataType(ctx context.Context, key metadata.Key, value string) (*metadata.DataType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.datatypes.Get(ctx, key, value)
}

// DataTypes returns the seeded type catalog.
func (c *Catalog) DataTypes(ctx context.Context) ([]metadata.DataType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.datatypes.GetAll(ctx)
}

// Status reports object counts and the last issued id per family.
type Status struct {
	Backend  string                    `json:"backend"`
	Tables   int                       `json:"tables"`
	Indexes  int                       `json:"indexes"`
	Counters map[metadata.Family]int64 `json:"last_issued_ids"`
}

// Status gathers backend health information for the status command.
func (c *Catalog) Status(ctx context.Context) (*Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tables, err := c.tables.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	indexes, err := c.indexes.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Backend:  c.backend,
		Tables:   len(tables),
		Indexes:  len(indexes),
		Counters: make(map[metadata.Family]int64),
	}
	// Statistics are keyed by (table id, ordinal position) and never
	// receive generated ids, so they have no counter to report.
	families := []metadata.Family{
		metadata.FamilyTables,
		metadata.FamilyColumns,
		metadata.FamilyIndexes,
	}
	for _, family := range families {
		last, err := c.sess.Generator().Current(ctx, family)
		if err != nil {
			return nil, err
		}
		st.Counters[family] = last
	}
	return st, nil
}

// nameOf reports the lookup value when it already is the object name.
func nameOf(key metadata.Key, value string) string {
	if key == metadata.KeyName {
		return value
	}
	return ""
}
