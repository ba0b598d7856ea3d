package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		data := map[string]any{
			"root": map[string]any{
				"nodeType": "object",
				"obj":      map[string]any{"nodeType": "string"},
			},
		}
		s := New()
		require.NoError(t, s.Load(data))
		assert.Equal(t, data, s.GetData())

		again := New()
		require.NoError(t, again.Load(s.GetData()))
		assert.Equal(t, s.GetData(), again.GetData())
	})

	t.Run("metadata and header names", func(t *testing.T) {
		data := map[string]any{
			"root": map[string]any{
				"nodeType":    "array",
				"headerNames": "root",
				"[]": map[string]any{
					"nodeType": "object",
					"prop1":    map[string]any{"nodeType": "scalar", "type": "parent"},
				},
			},
		}
		s := New()
		require.NoError(t, s.Load(data))
		assert.Equal(t, data, s.GetData())
	})

	t.Run("custom metadata keys", func(t *testing.T) {
		data := map[string]any{
			"root": map[string]any{"nodeType": "scalar", "format": "date"},
		}
		require.Error(t, New().Load(data))
		require.NoError(t, New(WithMetadataKeys("format")).Load(data))
	})

	t.Run("failure keeps the previous tree", func(t *testing.T) {
		s := New()
		require.NoError(t, s.SaveNodeValue(np("root"), "nodeType", "scalar"))
		require.Error(t, s.Load(map[string]any{"other": map[string]any{}}))
		assert.Equal(t, []string{"root"}, s.Roots())
	})

	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{
			name: "undefined data type",
			data: map[string]any{
				"root": map[string]any{
					"nodeType": "invalid-type",
					"[]":       map[string]any{"nodeType": "scalar"},
				},
			},
			want: `undefined data type "invalid-type" in "root"`,
		},
		{
			name: "undefined property",
			data: map[string]any{
				"root": map[string]any{
					"nodeType":        "array",
					"invalidProperty": "array",
					"[]":              map[string]any{"nodeType": "scalar"},
				},
			},
			want: `undefined property invalidProperty in "root"`,
		},
		{
			name: "array without content",
			data: map[string]any{
				"root": map[string]any{
					"headerNames":  "root",
					"nodeType":     "array",
					"invalidArray": map[string]any{"nodeType": "scalar"},
				},
			},
			want: `array node does not have array in "root"`,
		},
		{
			name: "conflicting nodeType",
			data: map[string]any{
				"root": map[string]any{
					"nodeType": "array",
					"[]": map[string]any{
						"nodeType": "object",
						"prop1":    map[string]any{"nodeType": "scalar", "type": "parent"},
						"prop2":    map[string]any{"nodeType": []any{"invalid-node-type"}},
					},
				},
			},
			want: `conflict property nodeType in "root.[].prop2"`,
		},
		{
			name: "nested undefined property",
			data: map[string]any{
				"root": map[string]any{
					"nodeType": "array",
					"[]": map[string]any{
						"nodeType": "object",
						"prop1":    map[string]any{"nodeType": "scalar", "type": "parent"},
						"prop2":    map[string]any{"nodeType": "object", "invalid-property": "fooBar"},
					},
				},
			},
			want: `undefined property invalid-property in "root.[].prop2"`,
		},
		{
			name: "missing nodeType",
			data: map[string]any{
				"root": map[string]any{
					"[]": map[string]any{"nodeType": "object"},
				},
			},
			want: `node data type is not set in "root"`,
		},
		{
			name: "child under scalar",
			data: map[string]any{
				"root": map[string]any{
					"nodeType": "scalar",
					"x":        map[string]any{"nodeType": "scalar"},
				},
			},
			want: `unexpected child "x" in "root"`,
		},
		{
			name: "non-object node",
			data: map[string]any{"root": "array"},
			want: `node data is not an object in "root"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Load(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStructure)
			assert.EqualError(t, err, tt.want)
		})
	}
}
