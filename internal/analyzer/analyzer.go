// Package analyzer walks JSON documents and records their shape in a
// structure tree.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring"
	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"

	"github.com/agentic-research/shape/api"
	"github.com/agentic-research/shape/internal/ingest"
	"github.com/agentic-research/shape/internal/structure"
)

// ErrorPolicy decides what happens to a document the tree rejects.
type ErrorPolicy string

const (
	// Abort returns the first document error to the caller.
	Abort ErrorPolicy = "abort"
	// Skip logs the error and continues with the next document. Changes
	// the failed document already made to the tree are kept.
	Skip ErrorPolicy = "skip"
)

func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(s); p {
	case Abort, Skip:
		return p, nil
	}
	return "", fmt.Errorf("unknown error policy %q (want %q or %q)", s, Abort, Skip)
}

// Config controls how documents are mapped onto the tree.
type Config struct {
	// RootType names the top-level node every document is an element of.
	RootType string
	// StrictTypes records string/integer/double/boolean instead of scalar.
	StrictTypes bool
	OnError     ErrorPolicy
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		RootType: "root",
		OnError:  Abort,
	}
}

// Analyzer feeds documents into one structure tree. It is not safe for
// concurrent use.
type Analyzer struct {
	tree    *structure.Structure
	cfg     Config
	log     logrus.FieldLogger
	metrics *Metrics
	parser  fastjson.Parser

	doc      uint32 // id of the document being walked
	total    uint32
	failed   int
	coverage map[string]*roaring.Bitmap
}

// Option configures an Analyzer.
type Option func(*Analyzer)

func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

func New(tree *structure.Structure, cfg Config, opts ...Option) *Analyzer {
	if cfg.RootType == "" {
		cfg.RootType = DefaultConfig().RootType
	}
	if cfg.OnError == "" {
		cfg.OnError = Abort
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	a := &Analyzer{
		tree:     tree,
		cfg:      cfg,
		log:      discard,
		coverage: make(map[string]*roaring.Bitmap),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tree returns the structure the analyzer writes to.
func (a *Analyzer) Tree() *structure.Structure { return a.tree }

// RootPath is the path of the array holding every document.
func (a *Analyzer) RootPath() structure.NodePath {
	return structure.NewNodePath(a.cfg.RootType)
}

// AnalyzeJSON records one JSON document. Object keys are visited in
// document order.
func (a *Analyzer) AnalyzeJSON(raw []byte) error {
	return a.analyze(func(p structure.NodePath) error {
		v, err := a.parser.ParseBytes(raw)
		if err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
		return a.walkFast(p, v)
	})
}

// AnalyzeValue records one decoded document: maps, slices, strings,
// numbers, booleans and nil. Map keys are visited in sorted order.
func (a *Analyzer) AnalyzeValue(v any) error {
	return a.analyze(func(p structure.NodePath) error {
		return a.walkValue(p, v)
	})
}

// Run analyzes every record of src and summarizes the batch.
func (a *Analyzer) Run(ctx context.Context, src ingest.Source) (api.AnalyzeResult, error) {
	var res api.AnalyzeResult
	failedBefore := a.failed
	err := src.Records(ctx, func(r ingest.Record) error {
		res.Documents++
		before := a.failed
		if err := a.AnalyzeJSON(r.Raw); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		if a.failed > before {
			res.FailedRecords = append(res.FailedRecords, r.ID)
		}
		return nil
	})
	res.Failed = a.failed - failedBefore
	return res, err
}

func (a *Analyzer) analyze(walk func(structure.NodePath) error) error {
	a.doc = a.total
	a.total++
	root := a.RootPath()
	err := a.setType(root, structure.TypeArray)
	if err == nil {
		err = walk(root.Child(structure.ArrayMarker))
	}
	if err == nil {
		a.metrics.document(a.cfg.RootType, "ok")
		return nil
	}

	a.failed++
	a.metrics.document(a.cfg.RootType, "failed")
	if a.cfg.OnError == Skip {
		a.log.WithError(err).WithField("document", a.doc).Warn("skipping document")
		return nil
	}
	return err
}

func (a *Analyzer) setType(p structure.NodePath, t structure.NodeType) error {
	a.touch(p)
	return a.tree.SaveNodeValue(p, structure.PropNodeType, t)
}

func (a *Analyzer) touch(p structure.NodePath) {
	key := p.Key()
	bm, ok := a.coverage[key]
	if !ok {
		bm = roaring.New()
		a.coverage[key] = bm
	}
	bm.Add(a.doc)
}

// wrapped reports whether a non-array value at p must be recorded as an
// element of the array the tree already holds there.
func (a *Analyzer) wrapped(p structure.NodePath) bool {
	return a.tree.AutoUpgradeToArray() && a.tree.GetNodeType(p) == structure.TypeArray
}

func (a *Analyzer) scalar(strict structure.NodeType) structure.NodeType {
	if a.cfg.StrictTypes {
		return strict
	}
	return structure.TypeScalar
}

func (a *Analyzer) walkFast(p structure.NodePath, v *fastjson.Value) error {
	switch v.Type() {
	case fastjson.TypeNull:
		return a.setType(p, structure.TypeNull)
	case fastjson.TypeArray:
		elems, _ := v.Array()
		if err := a.setType(p, structure.TypeArray); err != nil {
			return err
		}
		content := p.Child(structure.ArrayMarker)
		if len(elems) == 0 {
			return a.setType(content, structure.TypeNull)
		}
		for _, el := range elems {
			if err := a.walkFast(content, el); err != nil {
				return err
			}
		}
		return nil
	}

	if a.wrapped(p) {
		a.touch(p)
		return a.walkFast(p.Child(structure.ArrayMarker), v)
	}

	switch v.Type() {
	case fastjson.TypeObject:
		if err := a.setType(p, structure.TypeObject); err != nil {
			return err
		}
		o, _ := v.Object()
		var visitErr error
		o.Visit(func(key []byte, child *fastjson.Value) {
			if visitErr != nil {
				return
			}
			visitErr = a.walkFast(p.Child(string(key)), child)
		})
		return visitErr
	case fastjson.TypeString:
		return a.setType(p, a.scalar(structure.TypeString))
	case fastjson.TypeNumber:
		if _, err := v.Int64(); err == nil {
			return a.setType(p, a.scalar(structure.TypeInteger))
		}
		return a.setType(p, a.scalar(structure.TypeDouble))
	case fastjson.TypeTrue, fastjson.TypeFalse:
		return a.setType(p, a.scalar(structure.TypeBoolean))
	}
	return fmt.Errorf("unexpected json value type %s", v.Type())
}

func (a *Analyzer) walkValue(p structure.NodePath, v any) error {
	switch val := v.(type) {
	case nil:
		return a.setType(p, structure.TypeNull)
	case []any:
		if err := a.setType(p, structure.TypeArray); err != nil {
			return err
		}
		content := p.Child(structure.ArrayMarker)
		if len(val) == 0 {
			return a.setType(content, structure.TypeNull)
		}
		for _, el := range val {
			if err := a.walkValue(content, el); err != nil {
				return err
			}
		}
		return nil
	}

	if a.wrapped(p) {
		a.touch(p)
		return a.walkValue(p.Child(structure.ArrayMarker), v)
	}

	switch val := v.(type) {
	case map[string]any:
		if err := a.setType(p, structure.TypeObject); err != nil {
			return err
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := a.walkValue(p.Child(k), val[k]); err != nil {
				return err
			}
		}
		return nil
	case string:
		return a.setType(p, a.scalar(structure.TypeString))
	case bool:
		return a.setType(p, a.scalar(structure.TypeBoolean))
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return a.setType(p, a.scalar(structure.TypeInteger))
		}
		return a.setType(p, a.scalar(structure.TypeDouble))
	case float32:
		return a.walkValue(p, float64(val))
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return a.setType(p, a.scalar(structure.TypeInteger))
		}
		return a.setType(p, a.scalar(structure.TypeDouble))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return a.setType(p, a.scalar(structure.TypeInteger))
	}
	return fmt.Errorf("unsupported value type %T at %q", v, p.String())
}

// Coverage reports in how many of the analyzed documents the path was seen.
func (a *Analyzer) Coverage(p structure.NodePath) (seen, total uint64) {
	if bm, ok := a.coverage[p.Key()]; ok {
		seen = bm.GetCardinality()
	}
	return seen, uint64(a.total)
}

// Stats returns the number of documents analyzed and how many failed.
func (a *Analyzer) Stats() (total, failed int) {
	return int(a.total), a.failed
}
