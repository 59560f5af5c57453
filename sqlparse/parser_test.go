package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blockdb/ast"
)

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE foo (a INT, b TEXT, c BOOLEAN)")
	require.NoError(t, err)
	ct, ok := stmt.(*ast.CreateTableStmt)
	require.True(t, ok)
	require.Equal(t, "foo", ct.Table)
	require.False(t, ct.IfNotExists)
	require.Equal(t, []ast.ColumnDef{
		{Name: "a", Type: "INT"},
		{Name: "b", Type: "TEXT"},
		{Name: "c", Type: "BOOLEAN"},
	}, ct.Columns)
}

func TestParseCreateTableIfNotExists(t *testing.T) {
	stmt, err := Parse("CREATE TABLE IF NOT EXISTS foo (a INT)")
	require.NoError(t, err)
	ct := stmt.(*ast.CreateTableStmt)
	require.True(t, ct.IfNotExists)
}

func TestParseCreateTableRejectsUnknownType(t *testing.T) {
	_, err := Parse("CREATE TABLE foo (a FLOAT)")
	require.Error(t, err)
}

func TestParseDropTable(t *testing.T) {
	stmt, err := Parse("DROP TABLE foo")
	require.NoError(t, err)
	require.Equal(t, &ast.DropTableStmt{Table: "foo"}, stmt)
}

func TestParseCreateIndex(t *testing.T) {
	stmt, err := Parse("CREATE INDEX idx_a ON foo (a, b) USING BTREE")
	require.NoError(t, err)
	ci := stmt.(*ast.CreateIndexStmt)
	require.Equal(t, "idx_a", ci.Index)
	require.Equal(t, "foo", ci.Table)
	require.Equal(t, []string{"a", "b"}, ci.Columns)
	require.Equal(t, "BTREE", ci.IndexType)
}

func TestParseCreateIndexDefaultsToBTree(t *testing.T) {
	stmt, err := Parse("CREATE INDEX idx_a ON foo (a)")
	require.NoError(t, err)
	ci := stmt.(*ast.CreateIndexStmt)
	require.Equal(t, "BTREE", ci.IndexType)
}

func TestParseDropIndex(t *testing.T) {
	stmt, err := Parse("DROP INDEX idx_a ON foo")
	require.NoError(t, err)
	require.Equal(t, &ast.DropIndexStmt{Index: "idx_a", Table: "foo"}, stmt)
}

func TestParseInsertWithColumnList(t *testing.T) {
	stmt, err := Parse("INSERT INTO foo (a, b) VALUES (1, 'hi')")
	require.NoError(t, err)
	ins := stmt.(*ast.InsertStmt)
	require.Equal(t, "foo", ins.Table)
	require.Equal(t, []string{"a", "b"}, ins.Columns)
	require.Equal(t, []ast.Expr{&ast.IntegerLit{Value: 1}, &ast.StringLit{Value: "hi"}}, ins.Values)
}

func TestParseInsertWithoutColumnList(t *testing.T) {
	stmt, err := Parse("INSERT INTO foo VALUES (1, 'hi', true)")
	require.NoError(t, err)
	ins := stmt.(*ast.InsertStmt)
	require.Nil(t, ins.Columns)
	require.Equal(t, []ast.Expr{
		&ast.IntegerLit{Value: 1},
		&ast.StringLit{Value: "hi"},
		&ast.BoolLit{Value: true},
	}, ins.Values)
}

func TestParseInsertNegativeInteger(t *testing.T) {
	stmt, err := Parse("INSERT INTO foo VALUES (-7)")
	require.NoError(t, err)
	ins := stmt.(*ast.InsertStmt)
	require.Equal(t, []ast.Expr{&ast.IntegerLit{Value: -7}}, ins.Values)
}

func TestParseSelectStar(t *testing.T) {
	stmt, err := Parse("SELECT * FROM foo")
	require.NoError(t, err)
	sel := stmt.(*ast.SelectStmt)
	require.Equal(t, "foo", sel.Table)
	require.Equal(t, []ast.Expr{&ast.StarExpr{}}, sel.Columns)
	require.Nil(t, sel.Where)
}

func TestParseSelectColumnsWithWhere(t *testing.T) {
	stmt, err := Parse("SELECT a, b FROM foo WHERE a = 5")
	require.NoError(t, err)
	sel := stmt.(*ast.SelectStmt)
	require.Equal(t, []ast.Expr{&ast.ColumnRef{Name: "a"}, &ast.ColumnRef{Name: "b"}}, sel.Columns)
	require.NotNil(t, sel.Where)
	require.Equal(t, []ast.EqualityCond{{Column: "a", Value: &ast.IntegerLit{Value: 5}}}, sel.Where.Conds)
}

func TestParseSelectWhereWithAnd(t *testing.T) {
	stmt, err := Parse("SELECT * FROM foo WHERE a = 5 AND b = \"x\"")
	require.NoError(t, err)
	sel := stmt.(*ast.SelectStmt)
	require.NotNil(t, sel.Where)
	require.Equal(t, []ast.EqualityCond{
		{Column: "a", Value: &ast.IntegerLit{Value: 5}},
		{Column: "b", Value: &ast.StringLit{Value: "x"}},
	}, sel.Where.Conds)
}

func TestParseShowTables(t *testing.T) {
	stmt, err := Parse("SHOW TABLES")
	require.NoError(t, err)
	require.Equal(t, &ast.ShowTablesStmt{}, stmt)
}

func TestParseShowColumns(t *testing.T) {
	stmt, err := Parse("SHOW COLUMNS FROM foo")
	require.NoError(t, err)
	require.Equal(t, &ast.ShowColumnsStmt{Table: "foo"}, stmt)
}

func TestParseShowIndex(t *testing.T) {
	stmt, err := Parse("SHOW INDEX FROM foo")
	require.NoError(t, err)
	require.Equal(t, &ast.ShowIndexStmt{Table: "foo"}, stmt)
}

func TestParseTrailingSemicolonAllowed(t *testing.T) {
	_, err := Parse("SHOW TABLES;")
	require.NoError(t, err)
}

func TestParseRejectsGarbageTrailer(t *testing.T) {
	_, err := Parse("SHOW TABLES garbage")
	require.Error(t, err)
}

func TestParseRejectsUnrecognizedStatement(t *testing.T) {
	_, err := Parse("UPDATE foo SET a = 1")
	require.Error(t, err)
}

func TestParseEchoesCanonicalForm(t *testing.T) {
	stmt, err := Parse("create table foo (a int)")
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE foo (a INT)", stmt.String())
}
