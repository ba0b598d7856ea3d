// Package flatten turns documents into relational tables shaped by a
// reconciled structure tree: one table per array, nested objects folded
// into prefixed columns, child tables linked back by JSON_parentId.
package flatten

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/agentic-research/shape/internal/structure"
)

// ParentIDColumn links a child table row to the cell that produced it.
const ParentIDColumn = "JSON_parentId"

// Table is one flattened array.
type Table struct {
	Name    string
	Path    structure.NodePath // array content path
	Columns []string
	Rows    [][]string

	cols   []column
	used   map[string]bool
	parent bool
	seq    int
}

// addColumn appends a column, suffixing its name when an earlier column of
// the table already took it.
func (t *Table) addColumn(name string, c column) {
	if t.used[name] {
		base := name
		for i := 0; t.used[name]; i++ {
			name = fmt.Sprintf("%s_u%d", base, i)
		}
	}
	t.used[name] = true
	t.Columns = append(t.Columns, name)
	t.cols = append(t.cols, c)
}

func (t *Table) nextID() string {
	t.seq++
	return fmt.Sprintf("%s_%d", t.Name, t.seq)
}

// column reads one value out of an element: rel navigates nested objects
// from the element, child is set for arrays flattened into a child table.
type column struct {
	rel   []string
	child *Table
}

// Flattener accumulates rows for every array of one top-level type.
type Flattener struct {
	root   structure.NodePath
	nodes  map[string]structure.NodeInfo
	tables []*Table
	byPath map[string]*Table
	names  map[string]bool
}

// New prepares tables for the top-level type rootType of tree. Header
// names are generated first; column names are taken from them.
func New(tree *structure.Structure, rootType string) (*Flattener, error) {
	tree.GenerateHeaderNames()
	f := &Flattener{
		root:   structure.NewNodePath(rootType),
		nodes:  make(map[string]structure.NodeInfo),
		byPath: make(map[string]*Table),
		names:  make(map[string]bool),
	}
	err := tree.Walk(func(info structure.NodeInfo) error {
		f.nodes[info.Path.Key()] = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	rootInfo, ok := f.nodes[f.root.Key()]
	if !ok || rootInfo.Type != structure.TypeArray {
		return nil, fmt.Errorf("no array recorded for %q", rootType)
	}
	f.table(f.root.Child(structure.ArrayMarker), false)
	return f, nil
}

// table creates the table for content path cp and, recursively, every
// table below it.
func (f *Flattener) table(cp structure.NodePath, parent bool) *Table {
	t := &Table{
		Name:   f.tableName(cp),
		Path:   cp,
		used:   make(map[string]bool),
		parent: parent,
	}
	f.tables = append(f.tables, t)
	f.byPath[cp.Key()] = t
	f.names[t.Name] = true
	if parent {
		t.used[ParentIDColumn] = true
	}

	info := f.nodes[cp.Key()]
	switch {
	case info.Type == structure.TypeObject:
		f.objectColumns(t, cp, "", nil)
	case info.Type == structure.TypeArray:
		t.addColumn(headerOf(info), column{child: f.table(cp.Child(structure.ArrayMarker), true)})
	default:
		t.addColumn(headerOf(info), column{})
	}
	if parent {
		t.Columns = append(t.Columns, ParentIDColumn)
	}
	return t
}

// tableName derives the name from the path. Nested arrays share their
// parent's type name and get a "_data" suffix.
func (f *Flattener) tableName(cp structure.NodePath) string {
	name := structure.TypeName(cp)
	for f.names[name] {
		name += "_" + structure.DataHeaderName
	}
	return name
}

func (f *Flattener) objectColumns(t *Table, p structure.NodePath, prefix string, rel []string) {
	info := f.nodes[p.Key()]
	for _, name := range info.Children {
		if name == structure.ArrayMarker {
			continue
		}
		cp := p.Child(name)
		ci := f.nodes[cp.Key()]
		header := prefix + headerOf(ci)
		crel := append(append([]string(nil), rel...), name)
		switch ci.Type {
		case structure.TypeObject:
			f.objectColumns(t, cp, header+"_", crel)
		case structure.TypeArray:
			t.addColumn(header, column{rel: crel, child: f.table(cp.Child(structure.ArrayMarker), true)})
		default:
			t.addColumn(header, column{rel: crel})
		}
	}
}

func headerOf(info structure.NodeInfo) string {
	if info.HeaderName != "" {
		return info.HeaderName
	}
	return structure.SafeHeaderName(info.Path.Last())
}

// AddJSON flattens one document, an element of the top-level array.
func (f *Flattener) AddJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return f.Add(v)
}

// Add flattens one decoded document.
func (f *Flattener) Add(v any) error {
	return f.addRow(f.tables[0], v, "")
}

func (f *Flattener) addRow(t *Table, v any, parentID string) error {
	row := make([]string, 0, len(t.Columns))
	for _, c := range t.cols {
		val, ok := lookup(v, c.rel)
		if c.child == nil {
			row = append(row, cell(val, ok))
			continue
		}
		if !ok || val == nil {
			row = append(row, "")
			continue
		}
		id := c.child.nextID()
		row = append(row, id)
		for _, el := range elements(val) {
			if err := f.addRow(c.child, el, id); err != nil {
				return err
			}
		}
	}
	if t.parent {
		row = append(row, parentID)
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// lookup follows rel through nested objects.
func lookup(v any, rel []string) (any, bool) {
	for _, seg := range rel {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return v, true
}

// elements returns the items of an array value; any other value is a
// single element.
func elements(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

func cell(v any, ok bool) string {
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// Tables returns every table, parents before children.
func (f *Flattener) Tables() []*Table {
	return f.tables
}

// Table returns the table of the array content path p.
func (f *Flattener) Table(p structure.NodePath) (*Table, bool) {
	t, ok := f.byPath[p.Key()]
	return t, ok
}
