package api

import "time"

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = "v1"

// Snapshot is the persisted form of a reconciled structure tree.
type Snapshot struct {
	// Version of the snapshot format.
	Version string `json:"version" yaml:"version"`
	// ID uniquely identifies the snapshot in a store.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// Name groups snapshots of the same logical dataset.
	Name string `json:"name" yaml:"name"`
	// Created is when the snapshot was taken.
	Created time.Time `json:"created" yaml:"created"`
	// AutoUpgradeToArray records the tree's reinterpretation setting.
	AutoUpgradeToArray bool `json:"autoUpgradeToArray" yaml:"autoUpgradeToArray"`
	// Data is the tree as nested maps keyed by top-level type name.
	Data map[string]any `json:"data" yaml:"data"`
}

// AnalyzeResult summarizes one batch of documents fed to a tree.
type AnalyzeResult struct {
	Documents int `json:"documents"`
	Failed    int `json:"failed"`
	// FailedRecords lists the ids of skipped records.
	FailedRecords []string `json:"failedRecords,omitempty"`
}

// NodeResult is one node lookup.
type NodeResult struct {
	Path  []string       `json:"path"`
	Found bool           `json:"found"`
	Node  map[string]any `json:"node,omitempty"`
}

// ErrorResponse is the body of every non-2xx HTTP response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ColumnsResult lists the column types below one node.
type ColumnsResult struct {
	Path    []string          `json:"path"`
	Columns map[string]string `json:"columns"`
}

// TypeResult is the flat type name derived from a path.
type TypeResult struct {
	Path []string `json:"path"`
	Name string   `json:"name"`
}
