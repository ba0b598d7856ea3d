package ingest

import (
	"context"
	"fmt"
)

// Record is one JSON document handed to the analyzer.
type Record struct {
	// ID identifies the record in its source, e.g. "data.jsonl:12".
	ID string
	// Raw is the JSON text of the document.
	Raw []byte
}

// Source yields records in a stable order, calling fn for each one.
// Returning an error from fn stops iteration and is returned as is.
type Source interface {
	Records(ctx context.Context, fn func(Record) error) error
}

// Multi chains sources in order.
type Multi []Source

func (m Multi) Records(ctx context.Context, fn func(Record) error) error {
	for _, src := range m {
		if err := src.Records(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

// emit hands raw to fn, splitting it through sel when one is set.
func emit(ctx context.Context, sel *Selector, id string, raw []byte, fn func(Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sel == nil {
		return fn(Record{ID: id, Raw: raw})
	}
	matches, err := sel.Apply(raw)
	if err != nil {
		return fmt.Errorf("select %s: %w", id, err)
	}
	for i, m := range matches {
		if err := fn(Record{ID: fmt.Sprintf("%s#%d", id, i), Raw: m}); err != nil {
			return err
		}
	}
	return nil
}
