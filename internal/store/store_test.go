package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleSnapshot is a.py with a -> b, a -> b, b -> ext.
func sampleSnapshot(path string) *Snapshot {
	return &Snapshot{
		File: File{Path: path, Hash: "abc123", LineCount: 7, LastIndexed: time.Now().Truncate(time.Second)},
		Nodes: []Node{
			{Name: "a", IsScope: true},
			{Name: "b", IsScope: true},
			{Name: "ext"},
		},
		Edges: []Edge{
			{Caller: "a", Callee: "b"},
			{Caller: "a", Callee: "b"},
			{Caller: "b", Callee: "ext"},
		},
		Components: map[string][][]string{
			KindWeak:   {{"a", "b", "ext"}},
			KindSCC:    {{"ext"}, {"b"}, {"a"}},
			KindInline: {{"ext"}},
			KindLeaf:   {{"ext"}},
		},
	}
}

func saveSample(t *testing.T, s *Store, path string) int64 {
	t.Helper()
	id, err := s.SaveSnapshot(sampleSnapshot(path))
	require.NoError(t, err)
	require.Positive(t, id)
	return id
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "nodes", "edges", "components", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestNewStore_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := NewStore("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

// =============================================================================
// Snapshots
// =============================================================================

func TestSaveSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id := saveSample(t, s, "/src/a.py")

	f, err := s.FileByPath("/src/a.py")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, id, f.ID)
	assert.Equal(t, "abc123", f.Hash)
	assert.Equal(t, 7, f.LineCount)

	nodes, edges, err := s.LoadGraph(id)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "a", nodes[0].Name)
	assert.True(t, nodes[0].IsScope)
	assert.Equal(t, "ext", nodes[2].Name)
	assert.False(t, nodes[2].IsScope)

	require.Len(t, edges, 3)
	assert.Equal(t, "b", edges[0].Callee)
	assert.Equal(t, "b", edges[1].Callee)
	assert.Equal(t, 1, edges[1].Ordinal)
	assert.Equal(t, "ext", edges[2].Callee)
}

func TestSaveSnapshot_ReplacesPreviousData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	first := saveSample(t, s, "/src/a.py")

	snap := &Snapshot{
		File:  File{Path: "/src/a.py", Hash: "def456", LastIndexed: time.Now()},
		Nodes: []Node{{Name: "solo", IsScope: true}},
	}
	second, err := s.SaveSnapshot(snap)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, snap.File.ID)

	nodes, edges, err := s.LoadGraph(second)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Empty(t, edges)

	// Old rows are gone with the old file.
	oldNodes, err := s.Nodes(first)
	require.NoError(t, err)
	assert.Empty(t, oldNodes)

	weak, err := s.Components(second, KindWeak)
	require.NoError(t, err)
	assert.Empty(t, weak)
}

func TestComponents_GroupsByOrdinal(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id := saveSample(t, s, "/src/a.py")

	weak, err := s.Components(id, KindWeak)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "ext"}}, weak)

	scc, err := s.Components(id, KindSCC)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ext"}, {"b"}, {"a"}}, scc)

	inline, err := s.Components(id, KindInline)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ext"}}, inline)
}

func TestEdgesByCallee_AcrossFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	saveSample(t, s, "/src/a.py")
	saveSample(t, s, "/src/b.py")

	edges, err := s.EdgesByCallee("b")
	require.NoError(t, err)
	assert.Len(t, edges, 4)
	for _, e := range edges {
		assert.Equal(t, "a", e.Caller)
	}
}

// =============================================================================
// Files
// =============================================================================

func TestFile_ByPathNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.FileByPath("/nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFiles_OrderedByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	saveSample(t, s, "/src/z.py")
	saveSample(t, s, "/src/a.py")

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/src/a.py", files[0].Path)
	assert.Equal(t, "/src/z.py", files[1].Path)
}

func TestDeleteFile_Cascades(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id := saveSample(t, s, "/src/a.py")
	keep := saveSample(t, s, "/src/b.py")

	require.NoError(t, s.DeleteFile(id))

	f, err := s.FileByPath("/src/a.py")
	require.NoError(t, err)
	assert.Nil(t, f)

	for _, table := range []string{"nodes", "edges", "components"} {
		var n int
		require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE file_id = ?", id).Scan(&n))
		assert.Zero(t, n, table)
	}

	nodes, err := s.Nodes(keep)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestDeleteFiles_Empty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.DeleteFiles(nil))
}

// =============================================================================
// Metadata & Summary
// =============================================================================

func TestMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.SetMetadata("k", "one"))
	require.NoError(t, s.SetMetadata("k", "two"))
	v, err = s.GetMetadata("k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	saveSample(t, s, "/src/a.py")
	saveSample(t, s, "/src/b.py")

	sum, err := s.Summary()
	require.NoError(t, err)
	assert.Equal(t, &Summary{Files: 2, Nodes: 6, Scopes: 4, Edges: 6}, sum)
}

func TestPlaceholderList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", placeholderList(0))
	assert.Equal(t, "?", placeholderList(1))
	assert.Equal(t, "?,?,?", placeholderList(3))
}
