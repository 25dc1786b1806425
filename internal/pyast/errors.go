package pyast

import "fmt"

// ParseError reports source that could not be turned into a Module. Line is
// 1-based and Col is 0-based; both are zero when no location is known.
type ParseError struct {
	Path    string
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Col, e.Message)
}
