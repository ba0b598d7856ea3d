package schemagen

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/shape/internal/structure"
)

func leaf(t string) map[string]any { return map[string]any{"nodeType": t} }

func sampleTree(t *testing.T) *structure.Structure {
	t.Helper()
	s := structure.New()
	require.NoError(t, s.Load(map[string]any{
		"root": map[string]any{
			"nodeType": "array",
			"[]": map[string]any{
				"nodeType":   "object",
				"addr":       map[string]any{"nodeType": "object", "city": leaf("string")},
				"any":        leaf("scalar"),
				"first-name": leaf("string"),
				"id":         leaf("integer"),
				"note":       leaf("null"),
				"ok":         leaf("boolean"),
				"price":      leaf("double"),
				"tags":       map[string]any{"nodeType": "array", "[]": leaf("string")},
			},
		},
	}))
	return s
}

func TestOpenAPI(t *testing.T) {
	tree := sampleTree(t)
	tree.GenerateHeaderNames()

	s, err := OpenAPI(tree, "root")
	require.NoError(t, err)
	assert.Equal(t, openapi3.TypeArray, s.Type)
	require.NotNil(t, s.Items)

	item := s.Items.Value
	assert.Equal(t, openapi3.TypeObject, item.Type)
	assert.Len(t, item.Properties, 8)

	props := item.Properties
	assert.Equal(t, openapi3.TypeInteger, props["id"].Value.Type)
	assert.Equal(t, openapi3.TypeNumber, props["price"].Value.Type)
	assert.Equal(t, openapi3.TypeBoolean, props["ok"].Value.Type)
	assert.Equal(t, openapi3.TypeString, props["first-name"].Value.Type)
	assert.Equal(t, "first_name", props["first-name"].Value.Extensions[ExtColumn])
	assert.Empty(t, props["any"].Value.Type)
	assert.True(t, props["note"].Value.Nullable)
	assert.Equal(t, openapi3.TypeString, props["tags"].Value.Items.Value.Type)
	assert.Equal(t, openapi3.TypeString, props["addr"].Value.Properties["city"].Value.Type)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"x-column":"first_name"`)
}

func TestOpenAPIUnknownRoot(t *testing.T) {
	_, err := OpenAPI(structure.New(), "root")
	assert.ErrorContains(t, err, `unknown type "root"`)
}

func squash(b []byte) string {
	return strings.Join(strings.Fields(string(b)), " ")
}

func TestGoTypes(t *testing.T) {
	src, err := GoTypes(sampleTree(t), "root", "model")
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "model.go", src, parser.ParseComments)
	require.NoError(t, err, string(src))

	got := squash(src)
	assert.Contains(t, got, "package model")
	assert.Contains(t, got, "type Root struct { "+
		"Addr *RootAddr `json:\"addr,omitempty\"` "+
		"Any any `json:\"any,omitempty\"` "+
		"FirstName string `json:\"first-name,omitempty\"` "+
		"Id int64 `json:\"id,omitempty\"` "+
		"Note any `json:\"note,omitempty\"` "+
		"Ok bool `json:\"ok,omitempty\"` "+
		"Price float64 `json:\"price,omitempty\"` "+
		"Tags []string `json:\"tags,omitempty\"` }")
	assert.Contains(t, got, "type RootAddr struct { City string `json:\"city,omitempty\"` }")
}

func TestGoTypesNameClash(t *testing.T) {
	s := structure.New()
	require.NoError(t, s.Load(map[string]any{
		"root": map[string]any{
			"nodeType": "object",
			"a_b":      map[string]any{"nodeType": "object", "x": leaf("integer")},
			"a": map[string]any{
				"nodeType": "object",
				"b":        map[string]any{"nodeType": "object", "y": leaf("integer")},
			},
		},
	}))
	src, err := GoTypes(s, "root", "model")
	require.NoError(t, err)
	got := squash(src)
	assert.Contains(t, got, "type RootAB struct")
	assert.Contains(t, got, "type RootAB2 struct")
}

func TestDottedPropertyNames(t *testing.T) {
	load := func(t *testing.T) *structure.Structure {
		s := structure.New()
		require.NoError(t, s.Load(map[string]any{
			"root": map[string]any{
				"nodeType": "object",
				"a.b":      map[string]any{"nodeType": "object", "x": leaf("integer")},
				"a": map[string]any{
					"nodeType": "object",
					"b":        map[string]any{"nodeType": "object", "y": leaf("string")},
				},
			},
		}))
		return s
	}

	t.Run("openapi", func(t *testing.T) {
		s, err := OpenAPI(load(t), "root")
		require.NoError(t, err)
		dotted := s.Properties["a.b"].Value
		assert.Equal(t, openapi3.TypeInteger, dotted.Properties["x"].Value.Type)
		assert.NotContains(t, dotted.Properties, "y")
		nested := s.Properties["a"].Value.Properties["b"].Value
		assert.Equal(t, openapi3.TypeString, nested.Properties["y"].Value.Type)
	})

	t.Run("go types", func(t *testing.T) {
		src, err := GoTypes(load(t), "root", "model")
		require.NoError(t, err)
		got := squash(src)
		assert.Contains(t, got, "type Root struct { "+
			"A *RootA `json:\"a,omitempty\"` "+
			"AB *RootAB2 `json:\"a.b,omitempty\"` }")
		assert.Contains(t, got, "type RootAB struct { Y string `json:\"y,omitempty\"` }")
		assert.Contains(t, got, "type RootAB2 struct { X int64 `json:\"x,omitempty\"` }")
	})
}

func TestGoIdent(t *testing.T) {
	for in, want := range map[string]string{
		"root_tags":  "RootTags",
		"first_name": "FirstName",
		"9lives":     "X9lives",
		"":           "Data",
		"__":         "Data",
	} {
		assert.Equal(t, want, goIdent(in), in)
	}
}
