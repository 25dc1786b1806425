package callgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jward/callgraph/internal/pyast"
)

func mustBuild(t *testing.T, src string) *Graph {
	t.Helper()
	g, err := Build(context.Background(), []byte(src), "test.py")
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

// =============================================================================
// Scope discovery and edge materialization
// =============================================================================

func TestBuild_CallToDefinedFunction(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def a():\n    b()\n\ndef b():\n    pass\n")

	assert.Equal(t, map[string][]string{"a": {"b"}, "b": {}}, g.Map())
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
	assert.False(t, g.Has(ModuleScope))
	assert.True(t, g.IsScope("a"))
	assert.True(t, g.IsScope("b"))
}

func TestBuild_AttributeCallRecordsAttributeOnly(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def a():\n    x.foo()\n")

	assert.Equal(t, []string{"foo"}, g.Callees("a"))
	assert.False(t, g.Has("x"))
	assert.True(t, g.Has("foo"))
	assert.False(t, g.IsScope("foo"))
}

func TestBuild_ChainedCallSkipsReceiver(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def a():\n    b().c()\n")

	assert.Equal(t, []string{"c"}, g.Callees("a"))
	assert.False(t, g.Has("b"))
}

func TestBuild_SelfLoop(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def a():\n    a()\n")

	assert.Equal(t, map[string][]string{"a": {"a"}}, g.Map())
}

func TestBuild_DuplicateCallsKept(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def a():\n    c()\n    c()\n")

	assert.Equal(t, []string{"c", "c"}, g.Callees("a"))
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, []string{"a", "a"}, g.Callers("c"))
}

func TestBuild_ModuleScope(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "import os\n\ndef main():\n    pass\n\nprint(main())\n")

	assert.Equal(t, []string{"print", "main"}, g.Callees(ModuleScope))
	assert.True(t, g.IsScope(ModuleScope))
	assert.Equal(t, []string{"main", ModuleScope, "print"}, g.Nodes())
}

func TestBuild_EmptyFunctionIsScope(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def noop():\n    pass\n\nasync def later():\n    pass\n")

	assert.Equal(t, map[string][]string{"noop": {}, "later": {}}, g.Map())
}

func TestBuild_RedefinitionReplacesCalls(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def a():\n    b()\n\ndef a():\n    c()\n")

	assert.Equal(t, []string{"c"}, g.Callees("a"))
	assert.True(t, g.Has("b"), "nodes created by the first definition remain")
	assert.Equal(t, []string{"a", "b", "c"}, g.Nodes())
}

func TestBuild_DecoratorsAndNestedDefsIgnored(t *testing.T) {
	t.Parallel()
	src := `@register(thing())
def outer():
    def inner():
        hidden()
    return inner()
`
	g := mustBuild(t, src)
	assert.Equal(t, map[string][]string{"outer": {"inner"}, "inner": {}}, g.Map())
	assert.False(t, g.IsScope("inner"))
}

func TestBuild_EmptyModule(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "")
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Edges())
}

// =============================================================================
// Statement walker
// =============================================================================

func TestBuild_Statements(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
		want []string
	}{
		{"expression", "f()", []string{"f"}},
		{"return", "return f(g())", []string{"f", "g"}},
		{"assert", "assert check(), msg()", []string{"check", "msg"}},
		{"try", "try:\n        a()\n    except E:\n        b()\n    else:\n        c()\n    finally:\n        d()", []string{"a", "c", "d"}},
		{"with", "with open(p) as f, lock():\n        read(f)", []string{"open", "lock", "read"}},
		{"for", "for x in items():\n        use(x)\n    else:\n        done()", []string{"items", "use"}},
		{"while", "while ok():\n        step()\n    else:\n        done()", []string{"ok", "step"}},
		{"assign", "x = y = f()", []string{"f"}},
		{"assign target", "table[key()] = value()", []string{"key", "value"}},
		{"annotated", "x: int = f()", []string{"f"}},
		{"augmented", "total += f()", []string{"f"}},
		{"delete", "del cache[key()]", []string{"key"}},
		{"nested blocks", "for x in xs:\n        with ctx():\n            while more():\n                go()", []string{"ctx", "more", "go"}},

		{"if", "if ready():\n        go()\n    else:\n        stop()", nil},
		{"if inside for", "for x in xs:\n        if x:\n            go()", nil},
		{"class", "class A:\n        setup()", nil},
		{"match", "match cmd():\n        case 1:\n            go()", nil},
		{"raise", "raise Error(msg())", nil},
		{"import", "import os", nil},
		{"global", "global state", nil},
		{"pass", "pass", nil},
		{"nested def", "def inner():\n        go()", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := mustBuild(t, "def fn():\n    "+tc.body+"\n")
			if tc.want == nil {
				assert.Empty(t, g.Callees("fn"))
				return
			}
			assert.Equal(t, tc.want, g.Callees("fn"))
		})
	}
}

func TestBuild_ModuleLevelIfIsNoOp(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "if __name__ == '__main__':\n    main()\n")
	assert.Equal(t, 0, g.Len())
}

// =============================================================================
// Expression walker
// =============================================================================

func TestBuild_Expressions(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		expr string
		want []string
	}{
		{"bare call", "f()", []string{"f"}},
		{"positional args", "f(g(), h())", []string{"f", "g", "h"}},
		{"starred arg", "f(*args())", []string{"f", "args"}},
		{"keyword args skipped", "f(key=g(), **opts())", []string{"f"}},
		{"attribute call args", "obj.m(z())", []string{"m", "z"}},
		{"subscript callee ignored", "handlers[k]()", nil},
		{"call on call ignored", "factory()()", nil},
		{"lambda callee ignored", "(lambda: 1)()", nil},
		{"attribute value", "g().attr", []string{"g"}},
		{"bool op", "a() and b() or c()", []string{"a", "b", "c"}},
		{"containers", "[a(), (b(), {c()})]", []string{"a", "b", "c"}},
		{"dict values then keys", "{k1(): v1(), k2(): v2(), **rest()}", []string{"v1", "v2", "rest", "k1", "k2"}},
		{"binary", "a() + b()", []string{"a", "b"}},
		{"walrus", "(n := count())", []string{"count"}},
		{"unary", "not ok()", []string{"ok"}},
		{"lambda body", "lambda: h()", []string{"h"}},
		{"ternary", "a() if t() else c()", []string{"t", "a", "c"}},
		{"compare", "a() < b() == c()", []string{"a", "b", "c"}},
		{"subscript", "table()[index()]", []string{"table", "index"}},
		{"slice", "xs[lo():hi():st()]", []string{"hi", "lo", "st"}},
		{"fstring", "f\"{name()} is {age():>{width()}}\"", []string{"name", "age", "width"}},
		{"list comprehension", "[f(x) for x in g() if h(x)]", []string{"f"}},
		{"dict comprehension", "{k(x): v(x) for x in src()}", []string{"k", "v"}},
		{"generator", "sum(f(x) for x in g())", []string{"sum", "f"}},
		{"constant", "42", nil},
		{"name", "x", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := mustBuild(t, "def fn():\n    "+tc.expr+"\n")
			if tc.want == nil {
				assert.Empty(t, g.Callees("fn"))
				return
			}
			assert.Equal(t, tc.want, g.Callees("fn"))
		})
	}
}

func TestBuild_AsyncExpressions(t *testing.T) {
	t.Parallel()
	src := `async def fn():
    await fetch()
    yield produce()
    yield
    yield from source()
`
	g := mustBuild(t, src)
	assert.Equal(t, []string{"fetch", "produce", "source"}, g.Callees("fn"))
}

// =============================================================================
// Properties
// =============================================================================

var corpus = []string{
	"def a():\n    b()\n\ndef b():\n    pass\n",
	"def a():\n    a()\n    b()\n\ndef b():\n    a()\n",
	"import sys\nmain(sys.argv)\n\ndef main(args):\n    for a in args:\n        run(a)\n    return report(x.total())\n",
	"def f():\n    with open(p) as h:\n        data = h.read()\n    return parse(data, strict=check())\n",
	"x = [g(i) for i in range(10)]\ny = {k(): v() for k in z}\n",
	"async def go():\n    await asyncio.gather(*[task(i) for i in ids()])\n",
}

func TestBuild_Closure(t *testing.T) {
	t.Parallel()
	for _, src := range corpus {
		g := mustBuild(t, src)
		for _, e := range g.Edges() {
			assert.True(t, g.Has(e.Caller), "caller %q missing", e.Caller)
			assert.True(t, g.Has(e.Callee), "callee %q missing", e.Callee)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()
	for _, src := range corpus {
		first := mustBuild(t, src)
		second := mustBuild(t, src)
		assert.Equal(t, first.Nodes(), second.Nodes())
		assert.Equal(t, first.Edges(), second.Edges())
	}
}

func TestGraph_MarshalJSONKeepsOrder(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, "def z():\n    y()\n    y()\n\ndef a():\n    pass\n")
	b, err := g.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":["y","y"],"y":[],"a":[]}`, string(b))
}

func TestFromEdges_RoundTrip(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, corpus[2])
	restored := FromEdges(g.NodeInfos(), g.Edges())
	assert.Equal(t, g.Nodes(), restored.Nodes())
	assert.Equal(t, g.Edges(), restored.Edges())
	assert.Equal(t, Leaves(g), Leaves(restored))
}

// =============================================================================
// Errors and telemetry
// =============================================================================

func TestBuild_ParseErrorPropagates(t *testing.T) {
	t.Parallel()
	for _, src := range []string{
		"def broken(:\n",
		"def f():\nreturn g()\n",
		"def f():\n    pass\n        g()\n",
		"x = `g()`\n",
		"print 'hi'\n",
		"exec 'x'\n",
		"print >> f, g()\n",
	} {
		g, err := Build(context.Background(), []byte(src), "broken.py")
		require.Error(t, err, src)
		assert.Nil(t, g, src)

		var perr *pyast.ParseError
		require.True(t, errors.As(err, &perr), src)
		assert.Equal(t, "broken.py", perr.Path)
	}
}

func TestBuild_RecordsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	otel.SetTracerProvider(tp)

	mustBuild(t, "def a():\n    b()\n")

	names := map[string]bool{}
	for _, s := range exp.GetSpans() {
		names[s.Name] = true
	}
	assert.True(t, names["callgraph.Build"])
	assert.True(t, names["pyast.Parse"])
}
