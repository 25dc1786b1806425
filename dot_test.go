package callgraph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDOT(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def a():\n    a()\n    b()\n    b()\n    ext()\n\ndef b():\n    pass\n")

	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, g, "calls"))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph calls {"), out)
	assert.Equal(t, g.EdgeCount(), strings.Count(out, "->"), "one line per call site")
	assert.Contains(t, out, "shape=box")
}

func TestToMulti_PreservesMultiEdges(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def a():\n    c()\n    c()\n")
	mg := toMulti(g)

	assert.Equal(t, g.Len(), mg.Nodes().Len())
	lines := mg.Lines(0, 1)
	assert.Equal(t, 2, lines.Len())
}
