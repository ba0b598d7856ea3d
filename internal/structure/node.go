package structure

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reserved property names of a node.
const (
	PropNodeType    = "nodeType"
	PropHeaderNames = "headerNames"
)

// node is the record stored at one path. Children and metadata keep
// insertion order so header naming and column order are deterministic.
type node struct {
	typ        NodeType // empty until first set
	headerName string
	metadata   *orderedmap.OrderedMap[string, any]
	children   *orderedmap.OrderedMap[string, *node]
}

func newNode() *node {
	return &node{
		metadata: orderedmap.New[string, any](),
		children: orderedmap.New[string, *node](),
	}
}

func (n *node) child(name string) (*node, bool) {
	return n.children.Get(name)
}

// ensureChild returns the named child, creating an untyped one if missing.
func (n *node) ensureChild(name string) *node {
	if c, ok := n.children.Get(name); ok {
		return c
	}
	c := newNode()
	n.children.Set(name, c)
	return c
}

// namedChildren lists children other than the array content, in order.
func (n *node) namedChildren() []string {
	var names []string
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key != ArrayMarker {
			names = append(names, pair.Key)
		}
	}
	return names
}

func (n *node) childNames() []string {
	names := make([]string, 0, n.children.Len())
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// property returns a node property by its wire name.
func (n *node) property(name string) (any, bool) {
	switch name {
	case PropNodeType:
		if n.typ == "" {
			return nil, false
		}
		return string(n.typ), true
	case PropHeaderNames:
		if n.headerName == "" {
			return nil, false
		}
		return n.headerName, true
	}
	return n.metadata.Get(name)
}

// data renders the subtree as plain nested maps.
func (n *node) data() map[string]any {
	out := make(map[string]any, n.metadata.Len()+n.children.Len()+2)
	if n.typ != "" {
		out[PropNodeType] = string(n.typ)
	}
	if n.headerName != "" {
		out[PropHeaderNames] = n.headerName
	}
	for pair := n.metadata.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value.data()
	}
	return out
}

// NodeInfo is a read-only view of one node handed out by Walk.
type NodeInfo struct {
	Path       NodePath
	Type       NodeType
	HeaderName string
	Metadata   map[string]any
	Children   []string
}

func (n *node) info(p NodePath) NodeInfo {
	var meta map[string]any
	if n.metadata.Len() > 0 {
		meta = make(map[string]any, n.metadata.Len())
		for pair := n.metadata.Oldest(); pair != nil; pair = pair.Next() {
			meta[pair.Key] = pair.Value
		}
	}
	return NodeInfo{
		Path:       p,
		Type:       n.typ,
		HeaderName: n.headerName,
		Metadata:   meta,
		Children:   n.childNames(),
	}
}
