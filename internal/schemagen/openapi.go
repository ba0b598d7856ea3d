// Package schemagen derives schemas and Go types from a structure tree.
package schemagen

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/agentic-research/shape/internal/structure"
)

// ExtColumn carries the generated header name of a property.
const ExtColumn = "x-column"

type index map[string]structure.NodeInfo

func indexTree(tree *structure.Structure) (index, error) {
	idx := make(index)
	err := tree.Walk(func(info structure.NodeInfo) error {
		idx[info.Path.Key()] = info
		return nil
	})
	return idx, err
}

// OpenAPI describes the top-level type rootType as an OpenAPI schema.
func OpenAPI(tree *structure.Structure, rootType string) (*openapi3.Schema, error) {
	idx, err := indexTree(tree)
	if err != nil {
		return nil, err
	}
	root := structure.NewNodePath(rootType)
	if _, ok := idx[root.Key()]; !ok {
		return nil, fmt.Errorf("unknown type %q", rootType)
	}
	return idx.schema(root), nil
}

func (idx index) schema(p structure.NodePath) *openapi3.Schema {
	info, ok := idx[p.Key()]
	if !ok {
		return &openapi3.Schema{}
	}
	var s *openapi3.Schema
	switch info.Type {
	case structure.TypeObject:
		s = &openapi3.Schema{
			Type:       openapi3.TypeObject,
			Properties: make(openapi3.Schemas, len(info.Children)),
		}
		for _, name := range info.Children {
			if name == structure.ArrayMarker {
				continue
			}
			s.Properties[name] = idx.schema(p.Child(name)).NewRef()
		}
	case structure.TypeArray:
		s = &openapi3.Schema{
			Type:  openapi3.TypeArray,
			Items: idx.schema(p.Child(structure.ArrayMarker)).NewRef(),
		}
	case structure.TypeString:
		s = &openapi3.Schema{Type: openapi3.TypeString}
	case structure.TypeInteger:
		s = &openapi3.Schema{Type: openapi3.TypeInteger}
	case structure.TypeDouble:
		s = &openapi3.Schema{Type: openapi3.TypeNumber}
	case structure.TypeBoolean:
		s = &openapi3.Schema{Type: openapi3.TypeBoolean}
	case structure.TypeNull:
		s = &openapi3.Schema{Nullable: true}
	default:
		// untyped scalar
		s = &openapi3.Schema{}
	}
	if info.HeaderName != "" {
		s.Extensions = map[string]interface{}{ExtColumn: info.HeaderName}
	}
	return s
}
