package structure

import (
	"maps"
	"slices"
)

// Load replaces the whole tree with data, the shape GetData produces.
// Every node is validated; on error the current tree is left untouched.
func (s *Structure) Load(data map[string]any) error {
	top := newNode()
	for _, name := range slices.Sorted(maps.Keys(data)) {
		p := NewNodePath(name)
		raw, ok := data[name].(map[string]any)
		if !ok {
			return structureErrorf(p, "node data is not an object")
		}
		n, err := s.loadNode(p, raw)
		if err != nil {
			return err
		}
		top.children.Set(name, n)
	}
	s.top = top
	return nil
}

func (s *Structure) loadNode(p NodePath, data map[string]any) (*node, error) {
	rawType, ok := data[PropNodeType]
	if !ok {
		return nil, structureErrorf(p, "node data type is not set")
	}
	t, err := normalizeValue(p, PropNodeType, rawType)
	if err != nil {
		return nil, err
	}
	n := newNode()
	n.typ = t.(NodeType)

	if n.typ == TypeArray {
		if _, ok := data[ArrayMarker].(map[string]any); !ok {
			return nil, structureErrorf(p, "array node does not have array")
		}
	}

	for _, key := range slices.Sorted(maps.Keys(data)) {
		if key == PropNodeType {
			continue
		}
		v := data[key]
		if child, ok := v.(map[string]any); ok {
			if key != ArrayMarker && (n.typ == TypeNull || n.typ.IsScalar()) {
				return nil, structureErrorf(p, "unexpected child %q", key)
			}
			c, err := s.loadNode(p.Child(key), child)
			if err != nil {
				return nil, err
			}
			n.children.Set(key, c)
			continue
		}

		switch {
		case key == PropHeaderNames:
			h, ok := v.(string)
			if !ok {
				return nil, structureErrorf(p, "conflict property %s", PropHeaderNames)
			}
			n.headerName = h
		case key == ArrayMarker:
			return nil, structureErrorf(p.Child(key), "node data is not an object")
		default:
			if _, known := s.metadataKeys[key]; !known || !isScalarValue(v) {
				return nil, structureErrorf(p, "undefined property %s", key)
			}
			n.metadata.Set(key, v)
		}
	}
	return n, nil
}

// GetData renders the whole tree as nested maps accepted by Load.
func (s *Structure) GetData() map[string]any {
	out := make(map[string]any, s.top.children.Len())
	for pair := s.top.children.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value.data()
	}
	return out
}
