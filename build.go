package callgraph

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jward/callgraph/internal/pyast"
)

// Build parses src and returns its call graph. path is used only in
// diagnostics. A parse failure is returned unchanged as a *pyast.ParseError
// and no graph is produced.
func Build(ctx context.Context, src []byte, path string) (*Graph, error) {
	ctx, span := tracer.Start(ctx, "callgraph.Build",
		trace.WithAttributes(attribute.String("callgraph.path", path)),
	)
	defer span.End()

	start := time.Now()
	mod, err := pyast.Parse(ctx, src, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		recordBuild(ctx, time.Since(start), nil)
		return nil, err
	}

	g := BuildModule(mod)
	recordBuild(ctx, time.Since(start), g)
	span.SetAttributes(
		attribute.Int("callgraph.nodes", g.Len()),
		attribute.Int("callgraph.edges", g.EdgeCount()),
	)
	return g, nil
}

// BuildModule builds the call graph of an already parsed module.
//
// Each top-level function definition, async or not, becomes a scope even
// when it calls nothing; redefining a name starts its scope over. Every
// other top-level statement is attributed to ModuleScope, which appears only
// once something at module level makes a call. Nested definitions are not
// scopes of their own.
func BuildModule(mod *pyast.Module) *Graph {
	b := &builder{g: newGraph()}
	for _, stmt := range mod.Body {
		if fn, ok := stmt.(*pyast.FunctionDef); ok {
			b.g.resetScope(fn.Name)
			b.block(fn.Name, fn.Body)
			continue
		}
		b.stmt(ModuleScope, stmt)
	}
	return b.g
}

// builder owns the graph under construction for a single build.
type builder struct {
	g *Graph
}

// materialize records one edge per extracted call name.
func (b *builder) materialize(scope string, names []string) {
	if len(names) > 0 {
		b.g.scopes[scope] = true
	}
	for _, name := range names {
		b.g.addEdge(scope, name)
	}
}

func (b *builder) block(scope string, body []pyast.Stmt) {
	for _, stmt := range body {
		b.stmt(scope, stmt)
	}
}

func (b *builder) exprs(scope string, exprs ...pyast.Expr) {
	var names []string
	for _, e := range exprs {
		names = callNames(names, e)
	}
	b.materialize(scope, names)
}
