package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// makeSourceFn creates the "source" host function.
//
// source() → string
func makeSourceFn(src []byte) *object.Builtin {
	return object.NewBuiltin("source", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("source", 0, len(args))
		}
		if src == nil {
			return object.Errorf("source: no source loaded")
		}
		return object.NewString(string(src))
	})
}

// pythonTree parses src at most once per run.
type pythonTree struct {
	src  []byte
	once sync.Once
	tree *sitter.Tree
	err  error
}

func (p *pythonTree) get(ctx context.Context) (*sitter.Tree, error) {
	p.once.Do(func() {
		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(python.GetLanguage())
		p.tree, p.err = parser.ParseCtx(ctx, nil, p.src)
	})
	return p.tree, p.err
}

// makeTSQueryFn creates the "ts_query" host function, which runs a
// tree-sitter query over the Python source of the run.
//
// ts_query(pattern) → [{capture: {"text", "type", "line", "col"}}]
//
// Lines and columns are 1-based. Nodes are returned as plain maps rather
// than proxies so scripts cannot hold on to tree memory.
func makeTSQueryFn(src []byte) *object.Builtin {
	pt := &pythonTree{src: src}
	return object.NewBuiltin("ts_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("ts_query", 1, len(args))
		}
		pattern, err := toString(args[0])
		if err != nil {
			return object.Errorf("ts_query: pattern %v", err)
		}
		if src == nil {
			return object.Errorf("ts_query: no source loaded")
		}

		tree, err := pt.get(ctx)
		if err != nil {
			return object.Errorf("ts_query: tree-sitter parse failed: %v", err)
		}

		q, err := sitter.NewQuery([]byte(pattern), python.GetLanguage())
		if err != nil {
			return object.Errorf("ts_query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, tree.RootNode())

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, src)
			if len(match.Captures) == 0 {
				continue
			}

			captures := make(map[string]object.Object, len(match.Captures))
			for _, capture := range match.Captures {
				n := capture.Node
				start := n.StartPoint()
				captures[q.CaptureNameForId(capture.Index)] = object.NewMap(map[string]object.Object{
					"text": object.NewString(n.Content(src)),
					"type": object.NewString(n.Type()),
					"line": object.NewInt(int64(start.Row) + 1),
					"col":  object.NewInt(int64(start.Column) + 1),
				})
			}
			results = append(results, object.NewMap(captures))
		}
		return object.NewList(results)
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
