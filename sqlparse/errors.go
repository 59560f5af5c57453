package sqlparse

import "fmt"

// ParseError reports a malformed statement. This kernel's parser is
// intentionally minimal (see package doc), so its errors point at the
// offending token rather than offering recovery or suggestions.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func newParseError(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}
