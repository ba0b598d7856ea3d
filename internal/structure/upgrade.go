package structure

import "github.com/sirupsen/logrus"

// upgrade applies a nodeType change to an already typed node. The decision
// reads only n and its direct children.
func (s *Structure) upgrade(n *node, p NodePath, to NodeType) error {
	from := n.typ
	if from == to || to == TypeNull {
		return nil
	}
	if from == TypeNull {
		n.typ = to
		s.upgraded(p, from, to)
		return nil
	}

	if s.autoUpgradeToArray && (from == TypeArray || to == TypeArray) {
		switch {
		case from == TypeArray:
			// The array is the more general shape; the node stays an array.
			return s.absorbIntoArray(n, p, to)
		case from == TypeObject:
			if err := objectToArray(n, p); err != nil {
				return err
			}
		case from.IsScalar():
			if err := scalarToArray(n, p, from); err != nil {
				return err
			}
		}
		n.typ = TypeArray
		defaultContentHeader(n)
		s.upgraded(p, from, to)
		return nil
	}
	return structureErrorf(p, "unhandled nodeType change from %q to %q", from, to)
}

func (s *Structure) upgraded(p NodePath, from, to NodeType) {
	s.log.WithFields(logrus.Fields{
		"path": p.String(),
		"from": from,
		"to":   to,
	}).Debug("node type upgraded")
	if s.onUpgrade != nil {
		s.onUpgrade(p, from, to)
	}
}

func incompatibleTypes(p NodePath, content, other NodeType) error {
	return structureErrorf(p, "data array contains incompatible types '%s' and '%s'", content, other)
}

// absorbIntoArray records a non-array value seen at an array path as one
// more element of the array.
func (s *Structure) absorbIntoArray(n *node, p NodePath, t NodeType) error {
	content, ok := n.child(ArrayMarker)
	if ok && content.typ != "" && content.typ != TypeNull && content.typ != t {
		return incompatibleTypes(p, content.typ, t)
	}
	if !ok {
		content = n.ensureChild(ArrayMarker)
	}
	if content.typ == "" || content.typ == TypeNull {
		content.typ = t
	}
	if content.typ == TypeObject {
		s.relocateNamed(n, p, content)
	}
	defaultContentHeader(n)
	return nil
}

// objectToArray reinterprets an object as the description of one element.
// An existing content child must be the only child; otherwise exactly one
// named child is moved beneath a new object content node.
func objectToArray(n *node, p NodePath) error {
	named := n.namedChildren()
	if content, ok := n.child(ArrayMarker); ok {
		if len(named) > 0 {
			return structureErrorf(p, "array contents are ambiguous")
		}
		switch content.typ {
		case "", TypeNull:
			content.typ = TypeObject
		case TypeObject:
		default:
			return incompatibleTypes(p, content.typ, TypeObject)
		}
		return nil
	}

	switch len(named) {
	case 0:
		return structureErrorf(p, "array contents are unknown")
	case 1:
	default:
		return structureErrorf(p, "array contents are ambiguous")
	}
	content := newNode()
	content.typ = TypeObject
	for _, name := range named {
		c, _ := n.children.Delete(name)
		content.children.Set(name, c)
	}
	n.children.Set(ArrayMarker, content)
	return nil
}

func scalarToArray(n *node, p NodePath, from NodeType) error {
	content, ok := n.child(ArrayMarker)
	if !ok {
		content = n.ensureChild(ArrayMarker)
	}
	switch content.typ {
	case "", TypeNull:
		content.typ = from
	case from:
	default:
		return incompatibleTypes(p, content.typ, from)
	}
	return nil
}

// relocateNamed moves every named child of the array n under its object
// content dst. Where dst already has a child of the same name, dst's child
// is kept and n's is dropped with a warning.
func (s *Structure) relocateNamed(n *node, p NodePath, dst *node) {
	for _, name := range n.namedChildren() {
		c, _ := n.children.Delete(name)
		if kept, exists := dst.children.Get(name); exists {
			s.log.WithFields(logrus.Fields{
				"path":     p.String(),
				"property": name,
				"kept":     kept.typ,
				"dropped":  c.typ,
			}).Warn("array content already has the property, dropping the array's own")
			continue
		}
		dst.children.Set(name, c)
	}
}

// defaultContentHeader names the content of a named array "data".
func defaultContentHeader(n *node) {
	if n.headerName == "" {
		return
	}
	if content, ok := n.child(ArrayMarker); ok && content.headerName == "" {
		content.headerName = DataHeaderName
	}
}
