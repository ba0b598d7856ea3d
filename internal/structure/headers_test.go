package structure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longName = "a very long name of a property of an object which exceeds the length of 60 characters"

func TestGenerateHeaderNames(t *testing.T) {
	s := New()
	require.NoError(t, s.Load(map[string]any{
		"root": map[string]any{
			"nodeType": "array",
			"[]": map[string]any{
				"nodeType": "object",
				longName:   map[string]any{"nodeType": "object"},
				"some special characters!@##%$*&(^%$#09do": map[string]any{"nodeType": "scalar"},
				"prop2.something": map[string]any{"nodeType": "scalar"},
				"prop2_something": map[string]any{"nodeType": "scalar"},
				"array": map[string]any{
					"nodeType": "array",
					"[]":       map[string]any{"nodeType": "scalar"},
				},
			},
		},
	}))
	s.GenerateHeaderNames()

	want := map[string]any{
		"root": map[string]any{
			"nodeType": "array",
			"[]": map[string]any{
				"nodeType":    "object",
				"headerNames": "data",
				longName: map[string]any{
					"nodeType":    "object",
					"headerNames": "of_an_object_which_exceeds_the_length_of_60_characters",
				},
				"some special characters!@##%$*&(^%$#09do": map[string]any{
					"nodeType":    "scalar",
					"headerNames": "some_special_characters_09do",
				},
				"prop2.something": map[string]any{
					"nodeType":    "scalar",
					"headerNames": "prop2_something",
				},
				"prop2_something": map[string]any{
					"nodeType":    "scalar",
					"headerNames": "prop2_something_u0",
				},
				"array": map[string]any{
					"nodeType":    "array",
					"headerNames": "array",
					"[]": map[string]any{
						"nodeType":    "scalar",
						"headerNames": "data",
					},
				},
			},
		},
	}
	assert.Equal(t, want, s.GetData())

	t.Run("idempotent", func(t *testing.T) {
		s.GenerateHeaderNames()
		assert.Equal(t, want, s.GetData())
	})
}

func TestGenerateHeaderNamesKeepsExisting(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveNodeValue(np("root"), "nodeType", "object"))
	require.NoError(t, s.SaveNodeValue(np("root", "a.b"), "nodeType", "scalar"))
	require.NoError(t, s.SaveNodeValue(np("root", "a_b"), "nodeType", "scalar"))
	require.NoError(t, s.SaveNodeValue(np("root", "a_b"), "headerNames", "a_b"))
	s.GenerateHeaderNames()

	h, _ := s.GetNodeProperty(np("root", "a.b"), "headerNames")
	assert.Equal(t, "a_b_u0", h)
	h, _ = s.GetNodeProperty(np("root", "a_b"), "headerNames")
	assert.Equal(t, "a_b", h)
	_, ok := s.GetNodeProperty(np("root"), "headerNames")
	assert.False(t, ok)
}

func TestGenerateHeaderNamesDataSibling(t *testing.T) {
	s := New()
	require.NoError(t, s.Load(map[string]any{
		"root": map[string]any{
			"nodeType": "array",
			"data":     map[string]any{"nodeType": "scalar"},
			"[]":       map[string]any{"nodeType": "scalar"},
		},
	}))
	s.GenerateHeaderNames()

	h, _ := s.GetNodeProperty(np("root", "[]"), "headerNames")
	assert.Equal(t, "data", h)
	h, _ = s.GetNodeProperty(np("root", "data"), "headerNames")
	assert.Equal(t, "data_u0", h)

	t.Run("explicit data header", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Load(map[string]any{
			"root": map[string]any{
				"nodeType": "array",
				"data":     map[string]any{"nodeType": "scalar", "headerNames": "data"},
				"[]":       map[string]any{"nodeType": "scalar"},
			},
		}))
		s.GenerateHeaderNames()

		h, _ := s.GetNodeProperty(np("root", "[]"), "headerNames")
		assert.Equal(t, "data_u0", h)
		h, _ = s.GetNodeProperty(np("root", "data"), "headerNames")
		assert.Equal(t, "data", h)
	})
}

func TestSafeHeaderName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"prop2.something", "prop2_something"},
		{"a  --  b", "a_b"},
		{"a__b", "a_b"},
		{"", "data"},
		{longName, "of_an_object_which_exceeds_the_length_of_60_characters"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeHeaderName(tt.in))
		})
	}

	t.Run("bounded", func(t *testing.T) {
		got := SafeHeaderName(strings.Repeat("word ", 40))
		assert.LessOrEqual(t, len(got), MaxHeaderNameLength)
		assert.False(t, strings.HasPrefix(got, "_"))
	})

	t.Run("no separator", func(t *testing.T) {
		got := SafeHeaderName(strings.Repeat("x", 100))
		assert.Equal(t, strings.Repeat("x", MaxHeaderNameLength), got)
	})
}
