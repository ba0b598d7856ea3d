// Package server exposes one structure tree over HTTP and MCP.
package server

import (
	"context"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/agentic-research/shape/api"
	"github.com/agentic-research/shape/internal/analyzer"
	"github.com/agentic-research/shape/internal/ingest"
	"github.com/agentic-research/shape/internal/structure"
)

// Service serializes access to the tree behind an analyzer. Every exported
// method is safe for concurrent use.
type Service struct {
	mu       sync.Mutex
	analyzer *analyzer.Analyzer
	selector *ingest.Selector
	log      logrus.FieldLogger
	gatherer prometheus.Gatherer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSelector applies a JSONPath to every posted document.
func WithSelector(sel *ingest.Selector) Option {
	return func(s *Service) { s.selector = sel }
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Service) { s.gatherer = g }
}

func NewService(a *analyzer.Analyzer, opts ...Option) *Service {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Service{
		analyzer: a,
		log:      discard,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze feeds a payload of one JSON document, a JSON array of documents
// or JSON Lines into the tree.
func (s *Service) Analyze(ctx context.Context, id string, data []byte, lines bool) (api.AnalyzeResult, error) {
	src := &ingest.BytesSource{ID: id, Data: data, Lines: lines, Selector: s.selector}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.analyzer.Run(ctx, src)
	if err != nil {
		s.log.WithError(err).WithField("source", id).Warn("analyze failed")
	}
	return res, err
}

// Structure returns the whole tree as nested maps.
func (s *Service) Structure() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.Tree().GetData()
}

// Node looks up the node at p.
func (s *Service) Node(p structure.NodePath) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.Tree().GetNode(p)
}

// ColumnTypes returns the column types below p.
func (s *Service) ColumnTypes(p structure.NodePath) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.Tree().GetColumnTypes(p)
}

// TypeName derives the flat type name of p.
func (s *Service) TypeName(p structure.NodePath) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.Tree().GetTypeFromNodePath(p)
}

// GenerateHeaderNames assigns missing header names and returns the tree.
func (s *Service) GenerateHeaderNames() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree := s.analyzer.Tree()
	tree.GenerateHeaderNames()
	return tree.GetData()
}
