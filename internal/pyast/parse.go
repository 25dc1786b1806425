package pyast

import (
	"context"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/jward/callgraph/internal/pyast")

// Parse parses Python source and converts it into a Module.
//
// Any syntax error reported by tree-sitter, invalid UTF-8, or a node kind
// without a mapping yields a *ParseError. There is no partial result.
func Parse(ctx context.Context, src []byte, path string) (*Module, error) {
	ctx, span := tracer.Start(ctx, "pyast.Parse",
		trace.WithAttributes(
			attribute.String("pyast.path", path),
			attribute.Int("pyast.size", len(src)),
		),
	)
	defer span.End()

	mod, err := parse(ctx, src, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("pyast.statements", len(mod.Body)))
	return mod, nil
}

func parse(ctx context.Context, src []byte, path string) (*Module, error) {
	if !utf8.Valid(src) {
		return nil, &ParseError{Path: path, Message: "source is not valid UTF-8"}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("pyast: parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, src, path)
	}

	c := &converter{src: src, path: path}
	mod := &Module{Path: path, Body: c.block(root)}
	if c.err != nil {
		return nil, c.err
	}
	return mod, nil
}

// syntaxError locates the first ERROR or MISSING node in document order.
func syntaxError(root *sitter.Node, src []byte, path string) *ParseError {
	bad := firstErrorNode(root)
	if bad == nil {
		return &ParseError{Path: path, Line: 1, Message: "syntax error"}
	}
	p := position(bad)
	perr := &ParseError{Path: path, Line: p.Line, Col: p.Col}
	if bad.IsMissing() {
		perr.Message = fmt.Sprintf("syntax error: missing %q", bad.Type())
	} else {
		perr.Message = fmt.Sprintf("syntax error: unexpected %q", truncate(bad.Content(src), 40))
	}
	return perr
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func position(n *sitter.Node) Pos {
	pt := n.StartPoint()
	return Pos{Line: int(pt.Row) + 1, Col: int(pt.Column)}
}

func at(n *sitter.Node) node {
	return node{pos: position(n)}
}

// converter turns tree-sitter nodes into pyast nodes. The first conversion
// failure is kept in err; later failures are ignored.
type converter struct {
	src  []byte
	path string
	err  *ParseError
}

func (c *converter) fail(n *sitter.Node, format string, args ...any) {
	if c.err != nil {
		return
	}
	p := position(n)
	c.err = &ParseError{Path: c.path, Line: p.Line, Col: p.Col, Message: fmt.Sprintf(format, args...)}
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

// namedChildren returns the named children of n, skipping extras.
func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil || isExtra(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func isExtra(n *sitter.Node) bool {
	switch n.Type() {
	case "comment", "line_continuation":
		return true
	}
	return false
}

// startsWith reports whether the first child of n is the given token.
func startsWith(n *sitter.Node, token string) bool {
	return n.ChildCount() > 0 && n.Child(0).Type() == token
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for _, child := range namedChildren(n) {
		if child.Type() == typ {
			return child
		}
	}
	return nil
}
