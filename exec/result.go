package exec

import (
	"fmt"
	"strings"

	"blockdb/storage"
)

// QueryResult is the outcome of executing one statement: either a
// tabular result (Columns/Rows populated) or a bare message, mirroring
// the original course project's QueryResult, which carries either a
// column_names/column_attributes/rows triple or just a message string.
type QueryResult struct {
	Columns []string
	Rows    []storage.Row
	Message string
}

func tabular(columns []string, rows []storage.Row) *QueryResult {
	return &QueryResult{Columns: columns, Rows: rows}
}

func message(format string, args ...any) *QueryResult {
	return &QueryResult{Message: fmt.Sprintf(format, args...)}
}

// String renders the result the way the REPL prints it: a header row,
// a "+----+----+" separator with one dashed segment per column, and
// one line per row for tabular results; just the message otherwise.
func (r *QueryResult) String() string {
	if r.Columns == nil {
		return r.Message
	}
	var b strings.Builder
	b.WriteString(strings.Join(r.Columns, " | "))
	b.WriteString("\n")
	b.WriteString("+")
	for _, c := range r.Columns {
		b.WriteString(strings.Repeat("-", len(c)+2))
		b.WriteString("+")
	}
	b.WriteString("\n")
	for _, row := range r.Rows {
		for i, col := range r.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(formatValue(row[col]))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d rows", len(r.Rows))
	return b.String()
}

func formatValue(v storage.Value) string {
	switch v.Type {
	case storage.INT:
		return fmt.Sprintf("%d", v.Int)
	case storage.TEXT:
		return `"` + v.Text + `"`
	case storage.BOOLEAN:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
