package structure

import "strings"

// ArrayMarker is the reserved segment addressing the content of an array.
const ArrayMarker = "[]"

// NodePath addresses a node in a Structure. The first segment is the
// top-level type name (e.g. "root"); ArrayMarker segments step into array
// content. NodePath is immutable: Parent and Child return new values.
//
// Examples:
//   - [root]            → the top-level "root" node
//   - [root [] id]      → property "id" of every element of root
//   - [root [] tags []] → every element of every "tags" array
type NodePath struct {
	segments []string
}

// NewNodePath builds a path from segments. The slice is copied.
func NewNodePath(segments ...string) NodePath {
	return NodePath{segments: append([]string(nil), segments...)}
}

// Segments returns a copy of the path segments.
func (p NodePath) Segments() []string {
	return append([]string(nil), p.segments...)
}

func (p NodePath) Len() int { return len(p.segments) }

func (p NodePath) IsEmpty() bool { return len(p.segments) == 0 }

// Last returns the final segment, or "" for the empty path.
func (p NodePath) Last() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the path without its final segment.
// The parent of a single-segment path is the empty path.
func (p NodePath) Parent() NodePath {
	if len(p.segments) == 0 {
		return p
	}
	return NodePath{segments: p.segments[:len(p.segments)-1:len(p.segments)-1]}
}

// Child returns the path extended by one segment.
func (p NodePath) Child(segment string) NodePath {
	next := make([]string, len(p.segments), len(p.segments)+1)
	copy(next, p.segments)
	return NodePath{segments: append(next, segment)}
}

// IsArrayContent reports whether the path addresses array content.
func (p NodePath) IsArrayContent() bool {
	return p.Last() == ArrayMarker
}

func (p NodePath) Equal(other NodePath) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// String joins the segments with dots, e.g. "root.[].obj".
func (p NodePath) String() string {
	return strings.Join(p.segments, ".")
}

// Key returns a map key unique to the segment sequence. Unlike String it
// keeps [a.b] apart from [a b].
func (p NodePath) Key() string {
	return strings.Join(p.segments, "\x00")
}
