package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// buildBinary compiles the callgraph binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "callgraph"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "callgraph")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from the test file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createFixture creates a repository with a .git dir and two Python files.
func createFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))

	files := map[string]string{
		"app.py": `def main():
    load()
    ping()

def ping():
    pong()

def pong():
    ping()

def unused():
    pass

main()
`,
		"pkg/util.py": "def helper():\n    load()\n",
	}
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

// run executes the binary in dir and returns stdout. It fails the test on a
// non-zero exit unless allowFail is set.
func run(t *testing.T, bin, dir string, allowFail bool, args ...string) []byte {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	var stderr []byte
	stdout, err := cmd.Output()
	if exitErr, ok := err.(*exec.ExitError); ok {
		stderr = exitErr.Stderr
	}
	if !allowFail {
		require.NoError(t, err, "callgraph %v: %s", args, string(stderr))
	}
	return stdout
}

func runJSON(t *testing.T, bin, dir string, args ...string) map[string]any {
	t.Helper()
	var result map[string]any
	out := run(t, bin, dir, false, args...)
	require.NoError(t, json.Unmarshal(out, &result), "invalid JSON output: %s", string(out))
	return result
}

func TestCLI_BuildAndAnalyze(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)

	result := runJSON(t, bin, dir, "build", "app.py")
	assert.Equal(t, "build", result["command"])
	assert.Equal(t, float64(6), result["total_count"])
	nodes := result["results"].(map[string]any)["nodes"].([]any)
	assert.Equal(t, "main", nodes[0].(map[string]any)["name"])

	result = runJSON(t, bin, dir, "analyze", "app.py")
	analysis := result["results"].(map[string]any)
	assert.Equal(t, []any{"load"}, analysis["leaves"])

	result = runJSON(t, bin, dir, "analyze", "--leaves", "app.py")
	sections := result["results"].([]any)
	require.Len(t, sections, 1)
	assert.Equal(t, "leaves", sections[0].(map[string]any)["name"])
}

func TestCLI_ParseErrorEnvelope(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.py"), []byte("def (:\n"), 0o644))

	var result map[string]any
	out := run(t, bin, dir, true, "build", "bad.py")
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, "build", result["command"])
	assert.NotEmpty(t, result["error"])
	assert.Nil(t, result["results"])
}

func TestCLI_Dot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)

	out := string(run(t, bin, dir, false, "dot", "app.py"))
	assert.Contains(t, out, "digraph app {")
	assert.Contains(t, out, "ping -> pong")
}

func TestCLI_IndexAndQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)

	run(t, bin, dir, false, "index", dir)
	require.FileExists(t, filepath.Join(dir, ".callgraph", "index.db"))

	result := runJSON(t, bin, dir, "query", "files")
	assert.Equal(t, float64(2), result["total_count"])

	result = runJSON(t, bin, dir, "query", "callers", "app.py", "ping")
	assert.Equal(t, []any{"main", "pong"}, result["results"])

	result = runJSON(t, bin, dir, "query", "callsites", "load")
	sites := result["results"].([]any)
	require.Len(t, sites, 2)

	result = runJSON(t, bin, dir, "query", "scc", "app.py")
	var mutual bool
	for _, group := range result["results"].([]any) {
		if len(group.([]any)) == 2 {
			assert.ElementsMatch(t, []any{"ping", "pong"}, group)
			mutual = true
		}
	}
	assert.True(t, mutual, "expected ping/pong component")

	result = runJSON(t, bin, dir, "query", "summary")
	summary := result["results"].(map[string]any)
	assert.Equal(t, float64(2), summary["files"])
}

func TestCLI_QueryWithoutIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)

	var result map[string]any
	out := run(t, bin, dir, true, "query", "files")
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Contains(t, result["error"], "database not found")
}

func TestCLI_BuiltinScript(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)

	result := runJSON(t, bin, dir, "script", "dead", "app.py")
	assert.Equal(t, []any{"unused"}, result["results"])

	result = runJSON(t, bin, dir, "script", "recursion", "app.py")
	values := result["results"].([]any)
	require.Len(t, values, 1)
	assert.Equal(t, "mutual", values[0].(map[string]any)["kind"])
}

func TestCLI_DiskScript(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "count.risor"), []byte(`emit(len(nodes()))`), 0o644))

	result := runJSON(t, bin, dir, "script", "count.risor", "app.py")
	assert.Equal(t, []any{float64(6)}, result["results"])
}

func TestCLI_ConfigFileAndEnv(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".callgraph.yaml"), []byte("format: yaml\n"), 0o644))

	var result struct {
		Command string `yaml:"command"`
		Results struct {
			Leaves []string `yaml:"leaves"`
		} `yaml:"results"`
	}
	out := run(t, bin, dir, false, "analyze", "app.py")
	require.NoError(t, yaml.Unmarshal(out, &result), string(out))
	assert.Equal(t, "analyze", result.Command)
	assert.Equal(t, []string{"load"}, result.Results.Leaves)

	cmd := exec.Command(bin, "analyze", "--leaves", "app.py")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir(), "CALLGRAPH_FORMAT=text")
	text, err := cmd.Output()
	require.NoError(t, err)
	assert.Equal(t, "Leaves:\n  load\n", string(text))
}
