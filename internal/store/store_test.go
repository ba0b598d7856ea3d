package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/shape/api"
	"github.com/agentic-research/shape/internal/structure"
)

func sampleTree(t *testing.T) *structure.Structure {
	t.Helper()
	s := structure.New()
	require.NoError(t, s.Load(map[string]any{
		"root": map[string]any{
			"nodeType": "array",
			"[]": map[string]any{
				"nodeType": "object",
				"id":       map[string]any{"nodeType": "scalar", "type": "key"},
				"tags": map[string]any{
					"nodeType": "array",
					"[]":       map[string]any{"nodeType": "string"},
				},
			},
		},
	}))
	s.GenerateHeaderNames()
	return s
}

func TestSnapshotFiles(t *testing.T) {
	tree := sampleTree(t)

	for _, name := range []string{"out/tree.json", "out/tree.yaml", "tree.yml"} {
		t.Run(name, func(t *testing.T) {
			fs := memfs.New()
			snap := Take("orders", tree)
			require.NoError(t, WriteFile(fs, name, snap))

			got, err := ReadFile(fs, name)
			require.NoError(t, err)
			assert.Equal(t, "orders", got.Name)
			assert.Equal(t, api.SnapshotVersion, got.Version)
			assert.True(t, got.Created.Equal(snap.Created))

			restored, err := Restore(got)
			require.NoError(t, err)
			assert.Equal(t, tree.GetData(), restored.GetData())
		})
	}

	t.Run("unsupported extension", func(t *testing.T) {
		fs := memfs.New()
		assert.Error(t, WriteFile(fs, "tree.toml", Take("x", tree)))
		_, err := ReadFile(fs, "tree.toml")
		assert.Error(t, err)
	})

	t.Run("corrupt file", func(t *testing.T) {
		fs := memfs.New()
		require.NoError(t, util.WriteFile(fs, "bad.json", []byte("{"), 0o644))
		_, err := ReadFile(fs, "bad.json")
		assert.ErrorContains(t, err, "decode snapshot bad.json")
	})
}

func TestRestore(t *testing.T) {
	t.Run("keeps auto upgrade setting", func(t *testing.T) {
		snap := Take("x", structure.New(structure.WithAutoUpgradeToArray(false)))
		s, err := Restore(snap)
		require.NoError(t, err)
		assert.False(t, s.AutoUpgradeToArray())
	})

	t.Run("explicit option wins", func(t *testing.T) {
		snap := Take("x", structure.New())
		s, err := Restore(snap, structure.WithAutoUpgradeToArray(false))
		require.NoError(t, err)
		assert.False(t, s.AutoUpgradeToArray())

		snap = Take("x", structure.New(structure.WithAutoUpgradeToArray(false)))
		s, err = Restore(snap, structure.WithAutoUpgradeToArray(true))
		require.NoError(t, err)
		assert.True(t, s.AutoUpgradeToArray())
	})

	t.Run("invalid data", func(t *testing.T) {
		_, err := Restore(api.Snapshot{Name: "x", Data: map[string]any{"root": map[string]any{}}})
		assert.ErrorIs(t, err, structure.ErrStructure)
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := Restore(api.Snapshot{Version: "v9"})
		assert.ErrorContains(t, err, "unsupported snapshot version")
	})
}

func TestDB(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "shape.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Latest(ctx, "orders")
	assert.ErrorIs(t, err, ErrNotFound)

	tree := sampleTree(t)
	first, err := db.Save(ctx, Take("orders", structure.New()))
	require.NoError(t, err)
	second, err := db.Save(ctx, Take("orders", tree))
	require.NoError(t, err)
	_, err = db.Save(ctx, Take("events", tree))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	latest, err := db.Latest(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
	assert.True(t, latest.AutoUpgradeToArray)

	restored, err := Restore(latest)
	require.NoError(t, err)
	assert.Equal(t, tree.GetData(), restored.GetData())

	byID, err := db.Get(ctx, first)
	require.NoError(t, err)
	assert.Empty(t, byID.Data)

	list, err := db.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"orders", "orders", "events"}, []string{list[0].Name, list[1].Name, list[2].Name})
	assert.Nil(t, list[1].Data)

	t.Run("explicit id", func(t *testing.T) {
		snap := Take("manual", tree)
		snap.ID = "fixed"
		id, err := db.Save(ctx, snap)
		require.NoError(t, err)
		assert.Equal(t, "fixed", id)

		_, err = db.Save(ctx, snap)
		assert.Error(t, err, "ids are unique")
	})
}
