// Package catalog implements blockdb's self-describing schema catalog:
// three meta-tables - _tables, _columns, _indices - that track every
// user table, its columns, and its indexes, stored as ordinary heap
// tables except for their own schemas, which are hard-coded here to
// break the cyclic dependency of _columns describing its own columns.
package catalog

import (
	"blockdb/pagestore"
	"blockdb/storage"

	"github.com/rs/zerolog"
)

const (
	TablesTableName  = "_tables"
	ColumnsTableName = "_columns"
	IndicesTableName = "_indices"
)

var tablesSchema = []storage.ColumnAttribute{
	{Name: "table_name", Type: storage.TEXT},
}

var columnsSchema = []storage.ColumnAttribute{
	{Name: "table_name", Type: storage.TEXT},
	{Name: "column_name", Type: storage.TEXT},
	{Name: "data_type", Type: storage.TEXT},
}

var indicesSchema = []storage.ColumnAttribute{
	{Name: "table_name", Type: storage.TEXT},
	{Name: "index_name", Type: storage.TEXT},
	{Name: "seq_in_index", Type: storage.INT},
	{Name: "column_name", Type: storage.TEXT},
	{Name: "index_type", Type: storage.TEXT},
	{Name: "is_unique", Type: storage.BOOLEAN},
}

// IndexRow is one row of the _indices meta-table, describing one
// (table, index, column) triple.
type IndexRow struct {
	Handle      storage.Handle
	TableName   string
	IndexName   string
	IndexType   string
	IsUnique    bool
	ColumnName  string
	SeqInIndex  int32
}

// Catalog is the schema catalog: the three meta-tables plus a cache of
// the user relations already opened during this process's lifetime.
type Catalog struct {
	env     pagestore.Environment
	log     zerolog.Logger
	Tables  *storage.HeapTable
	Columns *storage.HeapTable
	Indices *storage.HeapTable

	openTables map[string]*storage.HeapTable
}

// dataTypeName renders a DataType the way _columns.data_type stores it,
// matching ColumnAttribute::get_data_type_string in the original
// course project.
func dataTypeName(t storage.DataType) string {
	switch t {
	case storage.INT:
		return "INT"
	case storage.TEXT:
		return "TEXT"
	case storage.BOOLEAN:
		return "BOOLEAN"
	default:
		return "UNKNOWN"
	}
}

func dataTypeFromName(s string) (storage.DataType, error) {
	switch s {
	case "INT":
		return storage.INT, nil
	case "TEXT":
		return storage.TEXT, nil
	case "BOOLEAN":
		return storage.BOOLEAN, nil
	default:
		return 0, storage.NewRelationError("unrecognized data type %q", s)
	}
}

// Open bootstraps or resumes the catalog inside env: it creates the
// three meta-table files and seeds their bootstrap rows the first time
// it sees an environment, or simply opens them if they already exist.
func Open(env pagestore.Environment, log zerolog.Logger) (*Catalog, error) {
	c := &Catalog{env: env, log: log, openTables: make(map[string]*storage.HeapTable)}

	tables, existed, err := openOrCreate(env, TablesTableName, tablesSchema)
	if err != nil {
		return nil, err
	}
	c.Tables = tables

	columns, _, err := openOrCreate(env, ColumnsTableName, columnsSchema)
	if err != nil {
		return nil, err
	}
	c.Columns = columns

	indices, _, err := openOrCreate(env, IndicesTableName, indicesSchema)
	if err != nil {
		return nil, err
	}
	c.Indices = indices

	c.openTables[TablesTableName] = tables
	c.openTables[ColumnsTableName] = columns
	c.openTables[IndicesTableName] = indices

	if !existed {
		if err := c.bootstrap(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// bootstrap records the three meta-tables in _tables and _columns, the
// same way a user CREATE TABLE would, so SHOW TABLES / SHOW COLUMNS see
// them as ordinary rows.
func (c *Catalog) bootstrap() error {
	c.log.Info().Msg("bootstrapping catalog meta-tables")
	metas := []struct {
		name   string
		schema []storage.ColumnAttribute
	}{
		{TablesTableName, tablesSchema},
		{ColumnsTableName, columnsSchema},
		{IndicesTableName, indicesSchema},
	}
	for _, m := range metas {
		if _, err := c.Tables.Insert(storage.Row{"table_name": storage.NewText(m.name)}); err != nil {
			return err
		}
		for _, col := range m.schema {
			row := storage.Row{
				"table_name":  storage.NewText(m.name),
				"column_name": storage.NewText(col.Name),
				"data_type":   storage.NewText(dataTypeName(col.Type)),
			}
			if _, err := c.Columns.Insert(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func openOrCreate(env pagestore.Environment, name string, schema []storage.ColumnAttribute) (*storage.HeapTable, bool, error) {
	pf, err := env.Open(name)
	existed := err == nil
	if err != nil {
		pf, err = env.Create(name)
		if err != nil {
			return nil, false, err
		}
	}
	hf, err := storage.OpenHeapFile(pagestore.AsPageFile{File: pf})
	if err != nil {
		return nil, false, err
	}
	return storage.NewHeapTable(name, schema, hf), existed, nil
}

// Environment returns the page-store environment backing this catalog,
// so callers such as the executor can open index files directly
// through the same environment the catalog's own tables live in.
func (c *Catalog) Environment() pagestore.Environment {
	return c.env
}

// IsSchemaTable reports whether name is one of the three meta-tables,
// which may never be dropped by a user DROP TABLE.
func IsSchemaTable(name string) bool {
	return name == TablesTableName || name == ColumnsTableName || name == IndicesTableName
}

// GetColumns returns the column schema of table, in the order its
// columns were originally declared (meta-table rows are never deleted
// out of order, so block-scan order is declaration order).
func (c *Catalog) GetColumns(tableName string) ([]storage.ColumnAttribute, error) {
	handles, err := c.Columns.Select()
	if err != nil {
		return nil, err
	}
	var schema []storage.ColumnAttribute
	for _, h := range handles {
		row, err := c.Columns.Project(h, nil)
		if err != nil {
			return nil, err
		}
		if row["table_name"].Text != tableName {
			continue
		}
		dt, err := dataTypeFromName(row["data_type"].Text)
		if err != nil {
			return nil, err
		}
		schema = append(schema, storage.ColumnAttribute{Name: row["column_name"].Text, Type: dt})
	}
	if schema == nil {
		return nil, storage.NewRelationError("table %q has no columns registered", tableName)
	}
	return schema, nil
}

// GetTable opens (creating the backing file if necessary) and caches
// the HeapTable for tableName, using the schema already recorded in
// _columns.
func (c *Catalog) GetTable(tableName string) (*storage.HeapTable, error) {
	if t, ok := c.openTables[tableName]; ok {
		return t, nil
	}
	schema, err := c.GetColumns(tableName)
	if err != nil {
		return nil, err
	}
	pf, err := c.env.Open(tableName)
	if err != nil {
		pf, err = c.env.Create(tableName)
		if err != nil {
			return nil, err
		}
	}
	hf, err := storage.OpenHeapFile(pagestore.AsPageFile{File: pf})
	if err != nil {
		return nil, err
	}
	table := storage.NewHeapTable(tableName, schema, hf)
	c.openTables[tableName] = table
	return table, nil
}

// CreateTableFile materializes tableName's backing heap file, replacing
// any existing one. Called only after _tables/_columns rows for
// tableName have already been inserted.
func (c *Catalog) CreateTableFile(tableName string, schema []storage.ColumnAttribute) error {
	pf, err := c.env.Create(tableName)
	if err != nil {
		return err
	}
	hf, err := storage.OpenHeapFile(pagestore.AsPageFile{File: pf})
	if err != nil {
		return err
	}
	c.openTables[tableName] = storage.NewHeapTable(tableName, schema, hf)
	return nil
}

// DropTableFile removes tableName's backing file and evicts it from the
// open-table cache.
func (c *Catalog) DropTableFile(tableName string) error {
	delete(c.openTables, tableName)
	return c.env.Drop(tableName)
}

// ListTableNames returns every user table name recorded in _tables,
// excluding the three meta-tables themselves.
func (c *Catalog) ListTableNames() ([]string, error) {
	handles, err := c.Tables.Select()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, h := range handles {
		row, err := c.Tables.Project(h, []string{"table_name"})
		if err != nil {
			return nil, err
		}
		name := row["table_name"].Text
		if !IsSchemaTable(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// IndexNames returns the distinct index names registered against
// tableName.
func (c *Catalog) IndexNames(tableName string) ([]string, error) {
	rows, err := c.indexRowsForTable(tableName)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, r := range rows {
		if !seen[r.IndexName] {
			seen[r.IndexName] = true
			names = append(names, r.IndexName)
		}
	}
	return names, nil
}

// IndexRows returns every _indices row for (tableName, indexName), in
// seq_in_index order.
func (c *Catalog) IndexRows(tableName, indexName string) ([]IndexRow, error) {
	rows, err := c.indexRowsForTable(tableName)
	if err != nil {
		return nil, err
	}
	var out []IndexRow
	for _, r := range rows {
		if r.IndexName == indexName {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Catalog) indexRowsForTable(tableName string) ([]IndexRow, error) {
	handles, err := c.Indices.Select()
	if err != nil {
		return nil, err
	}
	var rows []IndexRow
	for _, h := range handles {
		row, err := c.Indices.Project(h, nil)
		if err != nil {
			return nil, err
		}
		if row["table_name"].Text != tableName {
			continue
		}
		rows = append(rows, IndexRow{
			Handle:     h,
			TableName:  row["table_name"].Text,
			IndexName:  row["index_name"].Text,
			IndexType:  row["index_type"].Text,
			IsUnique:   row["is_unique"].Bool,
			ColumnName: row["column_name"].Text,
			SeqInIndex: row["seq_in_index"].Int,
		})
	}
	return rows, nil
}

// TableRowHandle finds the _tables row naming tableName.
func (c *Catalog) TableRowHandle(tableName string) (storage.Handle, bool, error) {
	handles, err := c.Tables.Select()
	if err != nil {
		return storage.Handle{}, false, err
	}
	for _, h := range handles {
		row, err := c.Tables.Project(h, []string{"table_name"})
		if err != nil {
			return storage.Handle{}, false, err
		}
		if row["table_name"].Text == tableName {
			return h, true, nil
		}
	}
	return storage.Handle{}, false, nil
}

// ColumnRowHandles returns the _columns row handles describing
// tableName, in declaration order.
func (c *Catalog) ColumnRowHandles(tableName string) ([]storage.Handle, error) {
	handles, err := c.Columns.Select()
	if err != nil {
		return nil, err
	}
	var out []storage.Handle
	for _, h := range handles {
		row, err := c.Columns.Project(h, []string{"table_name"})
		if err != nil {
			return nil, err
		}
		if row["table_name"].Text == tableName {
			out = append(out, h)
		}
	}
	return out, nil
}

// AllIndexRows returns every _indices row registered against
// tableName, across every index name, in insertion order.
func (c *Catalog) AllIndexRows(tableName string) ([]IndexRow, error) {
	return c.indexRowsForTable(tableName)
}

// InsertTableRow appends tableName to _tables.
func (c *Catalog) InsertTableRow(tableName string) (storage.Handle, error) {
	return c.Tables.Insert(storage.Row{"table_name": storage.NewText(tableName)})
}

// DeleteTableRow removes a row previously inserted by InsertTableRow.
func (c *Catalog) DeleteTableRow(h storage.Handle) error {
	return c.Tables.Delete(h)
}

// InsertColumnRow appends one (table, column, type) row to _columns.
func (c *Catalog) InsertColumnRow(tableName string, col storage.ColumnAttribute) (storage.Handle, error) {
	row := storage.Row{
		"table_name":  storage.NewText(tableName),
		"column_name": storage.NewText(col.Name),
		"data_type":   storage.NewText(dataTypeName(col.Type)),
	}
	return c.Columns.Insert(row)
}

// DeleteColumnRow removes a row previously inserted by InsertColumnRow.
func (c *Catalog) DeleteColumnRow(h storage.Handle) error {
	return c.Columns.Delete(h)
}

// DeleteIndexRow removes a single _indices row.
func (c *Catalog) DeleteIndexRow(h storage.Handle) error {
	return c.Indices.Delete(h)
}

// InsertIndexRow appends one (table, index, column) row to _indices.
func (c *Catalog) InsertIndexRow(tableName, indexName, indexType string, isUnique bool, columnName string, seq int32) (storage.Handle, error) {
	row := storage.Row{
		"table_name":    storage.NewText(tableName),
		"index_name":    storage.NewText(indexName),
		"index_type":    storage.NewText(indexType),
		"is_unique":     storage.NewBoolean(isUnique),
		"column_name":   storage.NewText(columnName),
		"seq_in_index":  storage.NewInt(seq),
	}
	return c.Indices.Insert(row)
}
