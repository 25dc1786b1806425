package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	callgraph "github.com/jward/callgraph"
	"github.com/jward/callgraph/internal/store"
)

const pyTestSource = `def main():
    load()
    run()
    run()


def run():
    step()
    run()


def load():
    pass


def unused():
    pass
`

// testInput builds pyTestSource into a script input.
func testInput(t *testing.T) *Input {
	t.Helper()
	g, err := callgraph.Build(context.Background(), []byte(pyTestSource), "app.py")
	require.NoError(t, err)
	return &Input{Graph: g, Path: "app.py", Source: []byte(pyTestSource)}
}

func run(t *testing.T, rt *Runtime, script string) []any {
	t.Helper()
	out, err := rt.RunSource(context.Background(), script, testInput(t), nil)
	require.NoError(t, err)
	return out
}

// --- Graph globals ---

func TestRunSource_Nodes(t *testing.T) {
	t.Parallel()
	out := run(t, NewRuntime(nil, ""), `
names := nodes()
assert(len(names) == 5, 'expected 5 nodes, got {len(names)}')
emit(names)
`)
	require.Len(t, out, 1)
	assert.Equal(t, []any{"main", "load", "run", "step", "unused"}, out[0])
}

func TestRunSource_CalleesAndCallers(t *testing.T) {
	t.Parallel()
	out := run(t, NewRuntime(nil, ""), `
emit(callees("main"))
emit(callers("run"))
emit(callees("nope"))
`)
	require.Len(t, out, 3)
	assert.Equal(t, []any{"load", "run", "run"}, out[0])
	assert.Equal(t, []any{"main", "main", "run"}, out[1])
	assert.Nil(t, out[2])
}

func TestRunSource_IsScopeAndEdges(t *testing.T) {
	t.Parallel()
	out := run(t, NewRuntime(nil, ""), `
assert(is_scope("run"), "run is a scope")
assert(!is_scope("step"), "step is a leaf")
e := edges()
emit(len(e))
emit(e[0])
`)
	require.Len(t, out, 2)
	assert.Equal(t, int64(5), out[0])
	assert.Equal(t, map[string]any{"caller": "main", "callee": "load"}, out[1])
}

func TestRunSource_Analyses(t *testing.T) {
	t.Parallel()
	out := run(t, NewRuntime(nil, ""), `
emit(len(weak_components()))
emit(len(sccs()))
emit(inline_candidates())
emit(leaves())
`)
	require.Len(t, out, 4)
	// {main, load, run, step} and {unused}.
	assert.Equal(t, int64(2), out[0])
	assert.Equal(t, int64(5), out[1])
	assert.Equal(t, []any{"load", "step"}, out[2])
	assert.Equal(t, []any{"step"}, out[3])
}

func TestRunSource_ArgumentErrors(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")
	for _, script := range []string{`callees()`, `callers(1)`, `nodes("x")`, `emit()`} {
		_, err := rt.RunSource(context.Background(), script, testInput(t), nil)
		assert.Error(t, err, script)
	}
}

func TestRunSource_RequiresGraph(t *testing.T) {
	t.Parallel()
	_, err := NewRuntime(nil, "").RunSource(context.Background(), `emit(1)`, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no graph")
}

func TestRunSource_ExtraGlobals(t *testing.T) {
	t.Parallel()
	out, err := NewRuntime(nil, "").RunSource(context.Background(),
		`emit(threshold + 1)`, testInput(t), map[string]any{"threshold": 41})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(42)}, out)
}

func TestRunSource_FilePathAndModuleScope(t *testing.T) {
	t.Parallel()
	out := run(t, NewRuntime(nil, ""), `
emit(file_path)
emit(module_scope)
`)
	assert.Equal(t, []any{"app.py", "..."}, out)
}

// --- Source globals ---

func TestRunSource_Source(t *testing.T) {
	t.Parallel()
	out := run(t, NewRuntime(nil, ""), `emit(source())`)
	assert.Equal(t, []any{pyTestSource}, out)
}

func TestRunSource_TSQuery(t *testing.T) {
	t.Parallel()
	out := run(t, NewRuntime(nil, ""), `
matches := ts_query("(function_definition name: (identifier) @name)")
assert(len(matches) == 4, 'expected 4 matches, got {len(matches)}')
first := matches[0]["name"]
emit(first["text"])
emit(first["line"])
emit(first["type"])
`)
	assert.Equal(t, []any{"main", int64(1), "identifier"}, out)
}

func TestRunSource_TSQueryNoMatches(t *testing.T) {
	t.Parallel()
	out := run(t, NewRuntime(nil, ""), `emit(len(ts_query("(class_definition) @c")))`)
	assert.Equal(t, []any{int64(0)}, out)
}

func TestRunSource_TSQueryInvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := NewRuntime(nil, "").RunSource(context.Background(), `ts_query("(not_a_node")`, testInput(t), nil)
	require.Error(t, err)
}

func TestRunSource_SourceMissing(t *testing.T) {
	t.Parallel()
	in := testInput(t)
	in.Source = nil
	_, err := NewRuntime(nil, "").RunSource(context.Background(), `source()`, in, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source loaded")
}

func TestRunSource_LogUsesLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	rt := NewRuntime(nil, "", WithRuntimeLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	run(t, rt, `log.Warn("careful")`)
	assert.Contains(t, buf.String(), "careful")
	assert.Contains(t, buf.String(), "script=app.py")
}

// --- Store globals ---

func TestRunSource_StoreGlobals(t *testing.T) {
	t.Parallel()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	_, err = s.SaveSnapshot(&store.Snapshot{
		File:  store.File{Path: "/src/app.py", Hash: "h", LineCount: 3, LastIndexed: time.Now()},
		Nodes: []store.Node{{Name: "a", IsScope: true}, {Name: "b"}},
		Edges: []store.Edge{{Caller: "a", Callee: "b"}},
	})
	require.NoError(t, err)

	out := run(t, NewRuntime(s, ""), `
f := files()
emit(f[0]["path"])
rows := db_query("SELECT caller, callee FROM edges WHERE callee = ?", "b")
emit(rows[0]["caller"])
`)
	assert.Equal(t, []any{"/src/app.py", "a"}, out)

	_, err = NewRuntime(s, "").RunSource(context.Background(), `db_query("DELETE FROM files")`, testInput(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")
}

func TestRunSource_NoStoreGlobalsWithoutStore(t *testing.T) {
	t.Parallel()
	_, err := NewRuntime(nil, "").RunSource(context.Background(), `files()`, testInput(t), nil)
	require.Error(t, err)
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "count.risor"), []byte(`emit(len(nodes()))`), 0o644))

	rt := NewRuntime(nil, dir)
	out, err := rt.RunScript(context.Background(), "count.risor", testInput(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(5)}, out)
}

func TestRunScript_MissingFile(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, t.TempDir())
	_, err := rt.RunScript(context.Background(), "missing.risor", testInput(t), nil)
	require.Error(t, err)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"dead.risor": &fstest.MapFile{Data: []byte(`emit(1)`)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	src, err := rt.LoadScript("/dead.risor")
	require.NoError(t, err)
	assert.Equal(t, `emit(1)`, src)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	t.Parallel()
	// Risor's FSImporter resolves "helpers" by trying name + ".risor".
	mapFS := fstest.MapFS{
		"helpers.risor": &fstest.MapFile{Data: []byte(`
func fan_in(names) {
	return len(names)
}
`)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))
	out := run(t, rt, `
import helpers
emit(helpers.fan_in(callers("run")))
`)
	assert.Equal(t, []any{int64(3)}, out)
}

func TestImport_LocalImporter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0o644))

	out := run(t, NewRuntime(nil, dir), `
import math_utils
emit(math_utils.double(21))
`)
	assert.Equal(t, []any{int64(42)}, out)
}
