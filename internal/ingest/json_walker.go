package ingest

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Selector picks sub-documents out of a record with a JSONPath expression,
// e.g. "$.items[*]". Every match becomes a record of its own.
type Selector struct {
	expr jp.Expr
	src  string
}

func NewSelector(expr string) (*Selector, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	return &Selector{expr: x, src: expr}, nil
}

func (s *Selector) String() string { return s.src }

// Query runs the expression against an already decoded document.
func (s *Selector) Query(root any) []any {
	return s.expr.Get(root)
}

// Apply parses raw and re-encodes every match as JSON with sorted keys.
func (s *Selector) Apply(raw []byte) ([][]byte, error) {
	doc, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	results := s.Query(doc)
	out := make([][]byte, len(results))
	for i, r := range results {
		out[i] = []byte(oj.JSON(r, &oj.Options{Sort: true}))
	}
	return out, nil
}
