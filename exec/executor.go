// Package exec implements blockdb's execute dispatcher: it takes a
// parsed ast.Statement and runs it against a catalog.Catalog, the way
// the course project's SQLExec::execute switches on the statement's
// QueryExpr kind.
package exec

import (
	"errors"

	"github.com/rs/zerolog"

	"blockdb/ast"
	"blockdb/catalog"
	"blockdb/index"
	"blockdb/storage"
)

// Executor runs statements against a catalog, keeping the indexes it
// has touched this session open in memory so repeated INSERTs and
// indexed SELECTs don't reopen a BTreeIndex's files every time.
type Executor struct {
	cat     *catalog.Catalog
	log     zerolog.Logger
	indexes map[string]map[string]*index.BTreeIndex // table -> index name -> index
}

// New builds an Executor over an already-open catalog.
func New(cat *catalog.Catalog, log zerolog.Logger) *Executor {
	return &Executor{cat: cat, log: log, indexes: make(map[string]map[string]*index.BTreeIndex)}
}

// Execute dispatches stmt and returns its QueryResult. Any
// *storage.RelationError surfaced by the storage, catalog, or index
// layers is wrapped in a *storage.ExecError before it reaches the
// caller, matching SQLExec::execute's top-level catch clause.
func (e *Executor) Execute(stmt ast.Statement) (*QueryResult, error) {
	result, err := e.dispatch(stmt)
	if err != nil {
		return nil, wrapExecErr(err)
	}
	return result, nil
}

func wrapExecErr(err error) error {
	if err == nil {
		return nil
	}
	var execErr *storage.ExecError
	if errors.As(err, &execErr) {
		return err
	}
	var notImpl *storage.NotImplemented
	if errors.As(err, &notImpl) {
		return err
	}
	return storage.NewExecError(err)
}

func (e *Executor) dispatch(stmt ast.Statement) (*QueryResult, error) {
	switch s := stmt.(type) {
	case *ast.CreateTableStmt:
		return e.createTable(s)
	case *ast.DropTableStmt:
		return e.dropTable(s)
	case *ast.CreateIndexStmt:
		return e.createIndex(s)
	case *ast.DropIndexStmt:
		return e.dropIndex(s)
	case *ast.InsertStmt:
		return e.insert(s)
	case *ast.SelectStmt:
		return e.selectStmt(s)
	case *ast.ShowTablesStmt:
		return e.showTables()
	case *ast.ShowColumnsStmt:
		return e.showColumns(s)
	case *ast.ShowIndexStmt:
		return e.showIndex(s)
	default:
		return nil, storage.NewRelationError("unknown statement kind %T", stmt)
	}
}

func columnType(name string) (storage.DataType, error) {
	switch name {
	case "INT":
		return storage.INT, nil
	case "TEXT":
		return storage.TEXT, nil
	case "BOOLEAN":
		return storage.BOOLEAN, nil
	default:
		return 0, storage.NewRelationError("unrecognized column type %q", name)
	}
}

func (e *Executor) createTable(s *ast.CreateTableStmt) (*QueryResult, error) {
	seen := make(map[string]bool, len(s.Columns))
	schema := make([]storage.ColumnAttribute, 0, len(s.Columns))
	for _, c := range s.Columns {
		if seen[c.Name] {
			return nil, storage.NewRelationError("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		dt, err := columnType(c.Type)
		if err != nil {
			return nil, err
		}
		schema = append(schema, storage.ColumnAttribute{Name: c.Name, Type: dt})
	}

	existing, _, err := e.cat.TableRowHandle(s.Table)
	if err != nil {
		return nil, err
	}
	if existing != (storage.Handle{}) {
		if s.IfNotExists {
			return message("table %q already exists", s.Table), nil
		}
		return nil, storage.NewRelationError("table %q already exists", s.Table)
	}

	tableHandle, err := e.cat.InsertTableRow(s.Table)
	if err != nil {
		return nil, err
	}
	var columnHandles []storage.Handle
	rollback := func() {
		for _, h := range columnHandles {
			_ = e.cat.DeleteColumnRow(h)
		}
		_ = e.cat.DeleteTableRow(tableHandle)
	}

	for _, col := range schema {
		h, err := e.cat.InsertColumnRow(s.Table, col)
		if err != nil {
			rollback()
			return nil, err
		}
		columnHandles = append(columnHandles, h)
	}

	if err := e.cat.CreateTableFile(s.Table, schema); err != nil {
		rollback()
		return nil, err
	}

	e.log.Info().Str("table", s.Table).Msg("created table")
	return message("created table %q", s.Table), nil
}

func (e *Executor) dropTable(s *ast.DropTableStmt) (*QueryResult, error) {
	if catalog.IsSchemaTable(s.Table) {
		return nil, storage.NewRelationError("cannot drop a schema table")
	}

	rows, err := e.cat.AllIndexRows(s.Table)
	if err != nil {
		return nil, err
	}
	dropped := make(map[string]bool)
	for _, r := range rows {
		if dropped[r.IndexName] {
			continue
		}
		dropped[r.IndexName] = true
		if _, err := e.dropIndex(&ast.DropIndexStmt{Index: r.IndexName, Table: s.Table}); err != nil {
			return nil, err
		}
	}

	columnHandles, err := e.cat.ColumnRowHandles(s.Table)
	if err != nil {
		return nil, err
	}
	for _, h := range columnHandles {
		if err := e.cat.DeleteColumnRow(h); err != nil {
			return nil, err
		}
	}

	if err := e.cat.DropTableFile(s.Table); err != nil {
		return nil, err
	}
	delete(e.indexes, s.Table)

	tableHandle, found, err := e.cat.TableRowHandle(s.Table)
	if err != nil {
		return nil, err
	}
	if found {
		if err := e.cat.DeleteTableRow(tableHandle); err != nil {
			return nil, err
		}
	}

	e.log.Info().Str("table", s.Table).Msg("dropped table")
	return message("dropped table %q", s.Table), nil
}

func (e *Executor) createIndex(s *ast.CreateIndexStmt) (*QueryResult, error) {
	existingRows, err := e.cat.IndexRows(s.Table, s.Index)
	if err != nil {
		return nil, err
	}
	if len(existingRows) > 0 {
		return nil, storage.NewRelationError("index %q already exists on table %q", s.Index, s.Table)
	}

	schema, err := e.cat.GetColumns(s.Table)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(schema))
	for _, c := range schema {
		known[c.Name] = true
	}
	for _, col := range s.Columns {
		if !known[col] {
			return nil, storage.NewRelationError("table %q has no column %q", s.Table, col)
		}
	}

	if s.IndexType != "BTREE" {
		return nil, storage.NewRelationError("BTree index must have unique key: %q indexes are not supported", s.IndexType)
	}
	isUnique := true
	var indexHandles []storage.Handle
	for i, col := range s.Columns {
		h, err := e.cat.InsertIndexRow(s.Table, s.Index, s.IndexType, isUnique, col, int32(i+1))
		if err != nil {
			for _, ih := range indexHandles {
				_ = e.cat.DeleteIndexRow(ih)
			}
			return nil, err
		}
		indexHandles = append(indexHandles, h)
	}

	relation, err := e.cat.GetTable(s.Table)
	if err != nil {
		for _, ih := range indexHandles {
			_ = e.cat.DeleteIndexRow(ih)
		}
		return nil, err
	}
	idx, err := index.New(relation, s.Index, s.Columns)
	if err != nil {
		for _, ih := range indexHandles {
			_ = e.cat.DeleteIndexRow(ih)
		}
		return nil, err
	}
	if err := idx.Create(e.cat.Environment()); err != nil {
		for _, ih := range indexHandles {
			_ = e.cat.DeleteIndexRow(ih)
		}
		return nil, err
	}

	e.cacheIndex(s.Table, idx)
	e.log.Info().Str("table", s.Table).Str("index", s.Index).Msg("created index")
	return message("created index %q on table %q", s.Index, s.Table), nil
}

func (e *Executor) dropIndex(s *ast.DropIndexStmt) (*QueryResult, error) {
	rows, err := e.cat.IndexRows(s.Table, s.Index)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.NewRelationError("no such index %q on table %q", s.Index, s.Table)
	}

	relation, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(rows))
	for _, r := range rows {
		columns[r.SeqInIndex-1] = r.ColumnName
	}
	idx, err := index.New(relation, s.Index, columns)
	if err != nil {
		return nil, err
	}
	if err := idx.Open(e.cat.Environment()); err != nil {
		return nil, err
	}
	if err := idx.Drop(e.cat.Environment()); err != nil {
		return nil, err
	}
	if tableIdx, ok := e.indexes[s.Table]; ok {
		delete(tableIdx, s.Index)
	}

	for _, r := range rows {
		if err := e.cat.DeleteIndexRow(r.Handle); err != nil {
			return nil, err
		}
	}

	e.log.Info().Str("table", s.Table).Str("index", s.Index).Msg("dropped index")
	return message("dropped index %q on table %q", s.Index, s.Table), nil
}

func (e *Executor) insert(s *ast.InsertStmt) (*QueryResult, error) {
	schema, err := e.cat.GetColumns(s.Table)
	if err != nil {
		return nil, err
	}
	typeOf := make(map[string]storage.DataType, len(schema))
	for _, c := range schema {
		typeOf[c.Name] = c.Type
	}

	columns := s.Columns
	if columns == nil {
		columns = make([]string, len(schema))
		for i, c := range schema {
			columns[i] = c.Name
		}
	}
	if len(columns) != len(s.Values) {
		return nil, storage.NewRelationError("INSERT: %d columns but %d values", len(columns), len(s.Values))
	}

	row := make(storage.Row, len(columns))
	for i, col := range columns {
		dt, ok := typeOf[col]
		if !ok {
			return nil, storage.NewRelationError("table %q has no column %q", s.Table, col)
		}
		v, err := exprToValue(s.Values[i], dt)
		if err != nil {
			return nil, err
		}
		row[col] = v
	}

	relation, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	handle, err := relation.Insert(row)
	if err != nil {
		return nil, err
	}

	indexes, err := e.ensureIndexesLoaded(s.Table, relation)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		if err := idx.Insert(handle); err != nil {
			return nil, err
		}
	}

	return message("1 row inserted into %q", s.Table), nil
}

func exprToValue(expr ast.Expr, want storage.DataType) (storage.Value, error) {
	switch e := expr.(type) {
	case *ast.IntegerLit:
		if want != storage.INT {
			return storage.Value{}, storage.NewRelationError("expected %s, got INT literal", want)
		}
		return storage.NewInt(e.Value), nil
	case *ast.StringLit:
		if want != storage.TEXT {
			return storage.Value{}, storage.NewRelationError("expected %s, got TEXT literal", want)
		}
		return storage.NewText(e.Value), nil
	case *ast.BoolLit:
		if want != storage.BOOLEAN {
			return storage.Value{}, storage.NewRelationError("expected %s, got BOOLEAN literal", want)
		}
		return storage.NewBoolean(e.Value), nil
	default:
		return storage.Value{}, storage.NewRelationError("unsupported literal expression %T", expr)
	}
}

func (e *Executor) selectStmt(s *ast.SelectStmt) (*QueryResult, error) {
	schema, err := e.cat.GetColumns(s.Table)
	if err != nil {
		return nil, err
	}
	typeOf := make(map[string]storage.DataType, len(schema))
	for _, c := range schema {
		typeOf[c.Name] = c.Type
	}

	projectCols, err := selectColumnNames(s.Columns)
	if err != nil {
		return nil, err
	}

	relation, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}

	where, err := whereRow(s.Where, typeOf, s.Table)
	if err != nil {
		return nil, err
	}

	if len(where) == 1 {
		for col, want := range where {
			if idx, ok := e.singleColumnIndex(s.Table, relation, col); ok {
				handle, found, err := idx.Lookup(map[string]storage.Value{col: want})
				if err != nil {
					return nil, err
				}
				if !found {
					return tabular(outputColumns(projectCols, schema), nil), nil
				}
				row, err := relation.Project(handle, projectCols)
				if err != nil {
					return nil, err
				}
				return tabular(outputColumns(projectCols, schema), []storage.Row{row}), nil
			}
		}
	}

	handles, err := relation.SelectWhere(where)
	if err != nil {
		return nil, err
	}

	var rows []storage.Row
	for _, h := range handles {
		row, err := relation.Project(h, projectCols)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return tabular(outputColumns(projectCols, schema), rows), nil
}

// whereRow evaluates a WhereClause's conjunction of col = literal
// equality tests into a storage.Row suitable for HeapTable.SelectWhere.
func whereRow(where *ast.WhereClause, typeOf map[string]storage.DataType, table string) (storage.Row, error) {
	if where == nil {
		return nil, nil
	}
	row := make(storage.Row, len(where.Conds))
	for _, c := range where.Conds {
		dt, ok := typeOf[c.Column]
		if !ok {
			return nil, storage.NewRelationError("table %q has no column %q", table, c.Column)
		}
		v, err := exprToValue(c.Value, dt)
		if err != nil {
			return nil, err
		}
		row[c.Column] = v
	}
	return row, nil
}

// selectColumnNames turns a SELECT statement's column list into a
// projection list: nil for "*", otherwise the named columns in order.
func selectColumnNames(cols []ast.Expr) ([]string, error) {
	var names []string
	for _, c := range cols {
		switch col := c.(type) {
		case *ast.StarExpr:
			return nil, nil
		case *ast.ColumnRef:
			names = append(names, col.Name)
		default:
			return nil, storage.NewRelationError("unsupported select expression %T", c)
		}
	}
	return names, nil
}

// outputColumns returns the column-name order for QueryResult display:
// projectCols if a projection list was given, otherwise every schema
// column in declaration order.
func outputColumns(projectCols []string, schema []storage.ColumnAttribute) []string {
	if projectCols != nil {
		return projectCols
	}
	names := make([]string, len(schema))
	for i, c := range schema {
		names[i] = c.Name
	}
	return names
}

func (e *Executor) showTables() (*QueryResult, error) {
	names, err := e.cat.ListTableNames()
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, len(names))
	for i, n := range names {
		rows[i] = storage.Row{"table_name": storage.NewText(n)}
	}
	return tabular([]string{"table_name"}, rows), nil
}

func (e *Executor) showColumns(s *ast.ShowColumnsStmt) (*QueryResult, error) {
	attrs, err := e.cat.GetColumns(s.Table)
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, len(attrs))
	for i, a := range attrs {
		rows[i] = storage.Row{
			"table_name":  storage.NewText(s.Table),
			"column_name": storage.NewText(a.Name),
			"data_type":   storage.NewText(a.Type.String()),
		}
	}
	return tabular([]string{"table_name", "column_name", "data_type"}, rows), nil
}

func (e *Executor) showIndex(s *ast.ShowIndexStmt) (*QueryResult, error) {
	rows, err := e.cat.AllIndexRows(s.Table)
	if err != nil {
		return nil, err
	}
	out := make([]storage.Row, len(rows))
	for i, r := range rows {
		out[i] = storage.Row{
			"table_name":   storage.NewText(r.TableName),
			"index_name":   storage.NewText(r.IndexName),
			"seq_in_index": storage.NewInt(r.SeqInIndex),
			"column_name":  storage.NewText(r.ColumnName),
			"index_type":   storage.NewText(r.IndexType),
			"is_unique":    storage.NewBoolean(r.IsUnique),
		}
	}
	cols := []string{"table_name", "index_name", "seq_in_index", "column_name", "index_type", "is_unique"}
	return tabular(cols, out), nil
}

// ensureIndexesLoaded returns every BTreeIndex registered against
// tableName, opening and caching any not already resident in memory.
func (e *Executor) ensureIndexesLoaded(tableName string, relation *storage.HeapTable) ([]*index.BTreeIndex, error) {
	names, err := e.cat.IndexNames(tableName)
	if err != nil {
		return nil, err
	}
	cache := e.indexes[tableName]
	if cache == nil {
		cache = make(map[string]*index.BTreeIndex)
		e.indexes[tableName] = cache
	}
	out := make([]*index.BTreeIndex, 0, len(names))
	for _, name := range names {
		if idx, ok := cache[name]; ok {
			out = append(out, idx)
			continue
		}
		rows, err := e.cat.IndexRows(tableName, name)
		if err != nil {
			return nil, err
		}
		columns := make([]string, len(rows))
		for _, r := range rows {
			if r.SeqInIndex < 1 || int(r.SeqInIndex) > len(columns) {
				return nil, storage.NewRelationError("index %q on %q has a malformed seq_in_index", name, tableName)
			}
			columns[r.SeqInIndex-1] = r.ColumnName
		}
		idx, err := index.New(relation, name, columns)
		if err != nil {
			return nil, err
		}
		if err := idx.Open(e.cat.Environment()); err != nil {
			return nil, err
		}
		cache[name] = idx
		out = append(out, idx)
	}
	return out, nil
}

func (e *Executor) cacheIndex(tableName string, idx *index.BTreeIndex) {
	cache := e.indexes[tableName]
	if cache == nil {
		cache = make(map[string]*index.BTreeIndex)
		e.indexes[tableName] = cache
	}
	cache[idx.Name] = idx
}

// singleColumnIndex returns a cached or loadable BTreeIndex over
// exactly [column], if tableName has one; used to turn a WHERE col =
// literal SELECT into a point lookup instead of a full scan.
func (e *Executor) singleColumnIndex(tableName string, relation *storage.HeapTable, column string) (*index.BTreeIndex, bool) {
	indexes, err := e.ensureIndexesLoaded(tableName, relation)
	if err != nil {
		return nil, false
	}
	for _, idx := range indexes {
		if len(idx.KeyColumns) == 1 && idx.KeyColumns[0] == column {
			return idx, true
		}
	}
	return nil, false
}
