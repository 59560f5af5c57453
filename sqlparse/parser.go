package sqlparse

import (
	"strconv"
	"strings"

	"blockdb/ast"
)

// Parse turns one SQL statement into its AST, or a *ParseError if input
// doesn't match one of the handful of forms this kernel executes:
// CREATE/DROP TABLE, CREATE/DROP INDEX, INSERT, SELECT, and
// SHOW TABLES/COLUMNS/INDEX.
func Parse(input string) (ast.Statement, error) {
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() && !p.peekIs(tokPunct, ";") {
		return nil, newParseError("unexpected trailing input near %q", p.toks[p.pos].text)
	}
	return stmt, nil
}

func tokenize(input string) ([]token, error) {
	l := newLexer(input)
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token {
	if p.atEnd() {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekIs(kind tokenKind, text string) bool {
	t := p.peek()
	return t.kind == kind && strings.EqualFold(t.text, text)
}

func (p *parser) peekKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) advance() token {
	t := p.peek()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *parser) expectKeyword(kw string) error {
	if !p.peekKeyword(kw) {
		return newParseError("expected %q, got %q", kw, p.peek().text)
	}
	p.advance()
	return nil
}

func (p *parser) expectPunct(text string) error {
	if !p.peekIs(tokPunct, text) {
		return newParseError("expected %q, got %q", text, p.peek().text)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return "", newParseError("expected identifier, got %q", t.text)
	}
	p.advance()
	return t.text, nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.peekKeyword("CREATE"):
		return p.parseCreate()
	case p.peekKeyword("DROP"):
		return p.parseDrop()
	case p.peekKeyword("INSERT"):
		return p.parseInsert()
	case p.peekKeyword("SELECT"):
		return p.parseSelect()
	case p.peekKeyword("SHOW"):
		return p.parseShow()
	default:
		return nil, newParseError("unrecognized statement starting at %q", p.peek().text)
	}
}

func (p *parser) parseCreate() (ast.Statement, error) {
	p.advance() // CREATE
	switch {
	case p.peekKeyword("TABLE"):
		return p.parseCreateTable()
	case p.peekKeyword("INDEX"):
		return p.parseCreateIndex()
	default:
		return nil, newParseError("expected TABLE or INDEX after CREATE, got %q", p.peek().text)
	}
}

func (p *parser) parseCreateTable() (ast.Statement, error) {
	p.advance() // TABLE
	stmt := &ast.CreateTableStmt{}
	if p.peekKeyword("IF") {
		p.advance()
		if err := p.expectKeyword("NOT"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		stmt.IfNotExists = true
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt.Table = name

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for {
		colName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		typeName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		upper := strings.ToUpper(typeName)
		if upper != "INT" && upper != "TEXT" && upper != "BOOLEAN" {
			return nil, newParseError("unrecognized type %q for column %q", typeName, colName)
		}
		stmt.Columns = append(stmt.Columns, ast.ColumnDef{Name: colName, Type: upper})
		if p.peekIs(tokPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseCreateIndex() (ast.Statement, error) {
	p.advance() // INDEX
	indexName, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ON"); err != nil {
		return nil, err
	}
	tableName, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.peekIs(tokPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	indexType := "BTREE"
	if p.peekKeyword("USING") {
		p.advance()
		t, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		indexType = strings.ToUpper(t)
	}
	return &ast.CreateIndexStmt{Index: indexName, Table: tableName, IndexType: indexType, Columns: cols}, nil
}

func (p *parser) parseDrop() (ast.Statement, error) {
	p.advance() // DROP
	switch {
	case p.peekKeyword("TABLE"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.DropTableStmt{Table: name}, nil
	case p.peekKeyword("INDEX"):
		p.advance()
		indexName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		tableName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.DropIndexStmt{Index: indexName, Table: tableName}, nil
	default:
		return nil, newParseError("expected TABLE or INDEX after DROP, got %q", p.peek().text)
	}
}

func (p *parser) parseInsert() (ast.Statement, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt := &ast.InsertStmt{Table: table}

	if p.peekIs(tokPunct, "(") {
		p.advance()
		for {
			col, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			if p.peekIs(tokPunct, ",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}

	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, v)
		if p.peekIs(tokPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseSelect() (ast.Statement, error) {
	p.advance() // SELECT
	stmt := &ast.SelectStmt{}

	if p.peekIs(tokPunct, "*") {
		p.advance()
		stmt.Columns = append(stmt.Columns, &ast.StarExpr{})
	} else {
		for {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, &ast.ColumnRef{Name: name})
			if p.peekIs(tokPunct, ",") {
				p.advance()
				continue
			}
			break
		}
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt.Table = table

	if p.peekKeyword("WHERE") {
		p.advance()
		where := &ast.WhereClause{}
		for {
			col, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			v, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			where.Conds = append(where.Conds, ast.EqualityCond{Column: col, Value: v})
			if p.peekKeyword("AND") {
				p.advance()
				continue
			}
			break
		}
		stmt.Where = where
	}
	return stmt, nil
}

func (p *parser) parseShow() (ast.Statement, error) {
	p.advance() // SHOW
	switch {
	case p.peekKeyword("TABLES"):
		p.advance()
		return &ast.ShowTablesStmt{}, nil
	case p.peekKeyword("COLUMNS"):
		p.advance()
		if err := p.expectKeyword("FROM"); err != nil {
			return nil, err
		}
		table, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.ShowColumnsStmt{Table: table}, nil
	case p.peekKeyword("INDEX"):
		p.advance()
		if err := p.expectKeyword("FROM"); err != nil {
			return nil, err
		}
		table, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.ShowIndexStmt{Table: table}, nil
	default:
		return nil, newParseError("expected TABLES, COLUMNS, or INDEX after SHOW, got %q", p.peek().text)
	}
}

func (p *parser) parseLiteral() (ast.Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.advance()
		n, err := strconv.ParseInt(t.text, 10, 32)
		if err != nil {
			return nil, newParseError("invalid integer literal %q", t.text)
		}
		return &ast.IntegerLit{Value: int32(n)}, nil
	case tokString:
		p.advance()
		return &ast.StringLit{Value: t.text}, nil
	case tokIdent:
		if strings.EqualFold(t.text, "true") {
			p.advance()
			return &ast.BoolLit{Value: true}, nil
		}
		if strings.EqualFold(t.text, "false") {
			p.advance()
			return &ast.BoolLit{Value: false}, nil
		}
		return nil, newParseError("expected a literal value, got %q", t.text)
	default:
		return nil, newParseError("expected a literal value, got %q", t.text)
	}
}
