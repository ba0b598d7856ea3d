package structure

import "fmt"

// NodeType is the recorded kind of value at a path.
type NodeType string

const (
	TypeNull   NodeType = "null"
	TypeScalar NodeType = "scalar"
	TypeObject NodeType = "object"
	TypeArray  NodeType = "array"

	// Strict scalar spellings. They behave as TypeScalar structurally but
	// do not upgrade into each other.
	TypeString  NodeType = "string"
	TypeInteger NodeType = "integer"
	TypeDouble  NodeType = "double"
	TypeBoolean NodeType = "boolean"
)

// ParseNodeType validates a nodeType value.
func ParseNodeType(s string) (NodeType, error) {
	switch t := NodeType(s); t {
	case TypeNull, TypeScalar, TypeObject, TypeArray,
		TypeString, TypeInteger, TypeDouble, TypeBoolean:
		return t, nil
	}
	return "", fmt.Errorf("undefined data type %q", s)
}

// Kind folds the strict scalar spellings into TypeScalar.
func (t NodeType) Kind() NodeType {
	switch t {
	case TypeString, TypeInteger, TypeDouble, TypeBoolean:
		return TypeScalar
	}
	return t
}

// IsScalar reports whether t is TypeScalar or one of its strict spellings.
func (t NodeType) IsScalar() bool { return t.Kind() == TypeScalar }

func (t NodeType) String() string { return string(t) }
