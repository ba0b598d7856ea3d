package structure

import (
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultMetadataKeys are the metadata property names Load accepts
// besides nodeType and headerNames.
var DefaultMetadataKeys = []string{"type"}

// Structure is the reconciled schema tree of every document fed to it.
//
// It has no internal locking: one writer processes documents to completion
// before readers query the tree. Wrap it when handlers run concurrently.
type Structure struct {
	top                *node // untyped container of the top-level types
	autoUpgradeToArray bool
	metadataKeys       map[string]struct{}
	log                logrus.FieldLogger
	onUpgrade          func(p NodePath, from, to NodeType)
}

// Option configures a Structure.
type Option func(*Structure)

// WithAutoUpgradeToArray enables or disables object/array reinterpretation.
// Enabled by default.
func WithAutoUpgradeToArray(enabled bool) Option {
	return func(s *Structure) { s.autoUpgradeToArray = enabled }
}

// WithLogger sets the logger used for upgrade diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Structure) {
		if l != nil {
			s.log = l
		}
	}
}

// WithUpgradeHook registers a callback invoked after every successful
// nodeType change of an already typed node.
func WithUpgradeHook(fn func(p NodePath, from, to NodeType)) Option {
	return func(s *Structure) { s.onUpgrade = fn }
}

// WithMetadataKeys replaces the metadata property names accepted by Load.
func WithMetadataKeys(keys ...string) Option {
	return func(s *Structure) {
		s.metadataKeys = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			s.metadataKeys[k] = struct{}{}
		}
	}
}

// New returns an empty Structure.
func New(opts ...Option) *Structure {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Structure{
		top:                newNode(),
		autoUpgradeToArray: true,
		log:                discard,
	}
	WithMetadataKeys(DefaultMetadataKeys...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoUpgradeToArray reports whether object/array reinterpretation is enabled.
func (s *Structure) AutoUpgradeToArray() bool { return s.autoUpgradeToArray }

// SaveNode creates or merges the node at p. Ancestors must already exist
// and a new node must be given its nodeType.
func (s *Structure) SaveNode(p NodePath, props map[string]any) error {
	if p.IsEmpty() {
		return structureErrorf(p, "empty node path")
	}
	values := make(map[string]any, len(props))
	for k, v := range props {
		nv, err := normalizeValue(p, k, v)
		if err != nil {
			return err
		}
		values[k] = nv
	}

	parent, err := s.parentOf(p)
	if err != nil {
		return err
	}
	if _, exists := parent.child(p.Last()); !exists {
		if _, ok := values[PropNodeType]; !ok {
			return structureErrorf(p, "node data type is not set")
		}
	}
	n := parent.ensureChild(p.Last())

	if v, ok := values[PropNodeType]; ok {
		if err := s.setValue(n, p, PropNodeType, v); err != nil {
			return err
		}
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != PropNodeType {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.setValue(n, p, k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// SaveNodeValue sets one property of the node at p. Ancestors must already
// exist; only a nodeType value creates a missing node. A nodeType value goes
// through the upgrade protocol; any other property is write-once.
func (s *Structure) SaveNodeValue(p NodePath, property string, value any) error {
	if p.IsEmpty() {
		return structureErrorf(p, "empty node path")
	}
	v, err := normalizeValue(p, property, value)
	if err != nil {
		return err
	}
	parent, err := s.parentOf(p)
	if err != nil {
		return err
	}
	if _, exists := parent.child(p.Last()); !exists && property != PropNodeType {
		return structureErrorf(NodePath{}, "node path %q does not exist", p.String())
	}
	return s.setValue(parent.ensureChild(p.Last()), p, property, v)
}

// parentOf resolves the parent of p and checks that it may hold p's last
// segment.
func (s *Structure) parentOf(p NodePath) (*node, error) {
	parent := s.top
	for i, seg := range p.segments[:p.Len()-1] {
		c, ok := parent.child(seg)
		if !ok {
			return nil, structureErrorf(NodePath{}, "node path %q does not exist", NewNodePath(p.segments[:i+1]...).String())
		}
		parent = c
	}
	if err := checkArrayContent(parent, p.Parent(), p.Last()); err != nil {
		return nil, err
	}
	if err := checkChild(parent, p.Parent(), p.Last()); err != nil {
		return nil, err
	}
	return parent, nil
}

// checkArrayContent rejects addressing the content of array content that
// is recorded as something other than an array. A named node may hold a
// staged "[]" child ahead of its upgrade to array.
func checkArrayContent(parent *node, parentPath NodePath, seg string) error {
	if seg != ArrayMarker || !parentPath.IsArrayContent() {
		return nil
	}
	if parent.typ != TypeArray {
		return structureErrorf(NodePath{}, "array %q is not an array", parentPath.String())
	}
	return nil
}

// checkChild applies the rule Load enforces: null and scalar nodes hold no
// named children. Objects and arrays may.
func checkChild(parent *node, parentPath NodePath, seg string) error {
	if seg == ArrayMarker || parentPath.IsEmpty() {
		return nil
	}
	if parent.typ == TypeNull || parent.typ.IsScalar() {
		return structureErrorf(parentPath, "unexpected child %q", seg)
	}
	return nil
}

// normalizeValue checks the shape of a property value before anything is
// written: nodeType must be a known type name, headerNames a string, and
// metadata a scalar.
func normalizeValue(p NodePath, property string, v any) (any, error) {
	switch property {
	case PropNodeType:
		var raw string
		switch t := v.(type) {
		case NodeType:
			raw = string(t)
		case string:
			raw = t
		default:
			return nil, structureErrorf(p, "conflict property %s", PropNodeType)
		}
		t, err := ParseNodeType(raw)
		if err != nil {
			return nil, &StructureError{Path: p, Message: err.Error()}
		}
		return t, nil
	case PropHeaderNames:
		h, ok := v.(string)
		if !ok {
			return nil, structureErrorf(p, "conflict property %s", PropHeaderNames)
		}
		return h, nil
	}
	if !isScalarValue(v) {
		return nil, structureErrorf(p, "conflict property %s", property)
	}
	return v, nil
}

func isScalarValue(v any) bool {
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func (s *Structure) setValue(n *node, p NodePath, property string, v any) error {
	switch property {
	case PropNodeType:
		t := v.(NodeType)
		if n.typ == "" {
			n.typ = t
			return nil
		}
		return s.upgrade(n, p, t)
	case PropHeaderNames:
		h := v.(string)
		if h == "" || h == n.headerName {
			return nil
		}
		if n.headerName != "" {
			return &InconsistentValueError{Path: p, Property: property, Old: n.headerName, New: h}
		}
		n.headerName = h
		return nil
	}
	if v == nil {
		return nil
	}
	if old, ok := n.metadata.Get(property); ok {
		if old != v {
			return &InconsistentValueError{Path: p, Property: property, Old: old, New: v}
		}
		return nil
	}
	n.metadata.Set(property, v)
	return nil
}

func (s *Structure) lookup(p NodePath) (*node, bool) {
	if p.IsEmpty() {
		return nil, false
	}
	n := s.top
	for _, seg := range p.segments {
		c, ok := n.child(seg)
		if !ok {
			return nil, false
		}
		n = c
	}
	return n, true
}

// GetNode returns a plain-data copy of the node at p.
func (s *Structure) GetNode(p NodePath) (map[string]any, bool) {
	n, ok := s.lookup(p)
	if !ok {
		return nil, false
	}
	return n.data(), true
}

// GetNodeProperty returns one property of the node at p.
func (s *Structure) GetNodeProperty(p NodePath, property string) (any, bool) {
	n, ok := s.lookup(p)
	if !ok {
		return nil, false
	}
	return n.property(property)
}

// GetNodeType returns the recorded type at p, or "" when unknown.
func (s *Structure) GetNodeType(p NodePath) NodeType {
	n, ok := s.lookup(p)
	if !ok {
		return ""
	}
	return n.typ
}

// GetColumnTypes maps the direct children of an object node to their
// types. A scalar node is its own single column. Arrays, nulls and
// missing nodes yield an empty map.
func (s *Structure) GetColumnTypes(p NodePath) map[string]string {
	cols := map[string]string{}
	n, ok := s.lookup(p)
	if !ok {
		return cols
	}
	switch {
	case n.typ == TypeObject:
		for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
			cols[pair.Key] = string(pair.Value.typ)
		}
	case n.typ.IsScalar():
		cols[p.Last()] = string(n.typ)
	}
	return cols
}

// GetTypeFromNodePath derives a flat type name for p.
func (s *Structure) GetTypeFromNodePath(p NodePath) string {
	return TypeName(p)
}

// TypeName drops array markers and joins the remaining segments with "_":
// [root [] prop] → "root_prop".
func TypeName(p NodePath) string {
	parts := make([]string, 0, p.Len())
	for _, seg := range p.segments {
		if seg != ArrayMarker {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "_")
}

// Roots lists the top-level type names in insertion order.
func (s *Structure) Roots() []string {
	return s.top.childNames()
}

// Walk visits every node depth-first, parents before children, in
// insertion order. Returning an error stops the walk.
func (s *Structure) Walk(fn func(NodeInfo) error) error {
	for pair := s.top.children.Oldest(); pair != nil; pair = pair.Next() {
		if err := walkNode(pair.Value, NewNodePath(pair.Key), fn); err != nil {
			return err
		}
	}
	return nil
}

func walkNode(n *node, p NodePath, fn func(NodeInfo) error) error {
	if err := fn(n.info(p)); err != nil {
		return err
	}
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		if err := walkNode(pair.Value, p.Child(pair.Key), fn); err != nil {
			return err
		}
	}
	return nil
}
