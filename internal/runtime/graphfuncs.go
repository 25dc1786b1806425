package runtime

import (
	"context"

	"github.com/risor-io/risor/object"

	callgraph "github.com/jward/callgraph"
)

// Graph host functions. Each one closes over the graph of a single run, so
// scripts never see a graph other than the one they were started with.

func stringList(names []string) *object.List {
	items := make([]object.Object, len(names))
	for i, name := range names {
		items[i] = object.NewString(name)
	}
	return object.NewList(items)
}

func groupList(groups [][]string) *object.List {
	items := make([]object.Object, len(groups))
	for i, group := range groups {
		items[i] = stringList(group)
	}
	return object.NewList(items)
}

// nameArg validates a single string argument.
func nameArg(fn string, args []object.Object) (string, *object.Error) {
	if len(args) != 1 {
		return "", object.NewArgsError(fn, 1, len(args))
	}
	name, err := toString(args[0])
	if err != nil {
		return "", object.Errorf("%s: %v", fn, err)
	}
	return name, nil
}

// makeNodesFn creates the "nodes" host function.
//
// nodes() → []string in insertion order
func makeNodesFn(g *callgraph.Graph) *object.Builtin {
	return object.NewBuiltin("nodes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("nodes", 0, len(args))
		}
		return stringList(g.Nodes())
	})
}

// makeCalleesFn creates the "callees" host function.
//
// callees(name) → []string, one entry per call site; nil for unknown names
func makeCalleesFn(g *callgraph.Graph) *object.Builtin {
	return object.NewBuiltin("callees", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := nameArg("callees", args)
		if errObj != nil {
			return errObj
		}
		if !g.Has(name) {
			return object.Nil
		}
		return stringList(g.Callees(name))
	})
}

// makeCallersFn creates the "callers" host function.
//
// callers(name) → []string, one entry per incoming call site
func makeCallersFn(g *callgraph.Graph) *object.Builtin {
	return object.NewBuiltin("callers", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := nameArg("callers", args)
		if errObj != nil {
			return errObj
		}
		return stringList(g.Callers(name))
	})
}

// makeIsScopeFn creates the "is_scope" host function.
//
// is_scope(name) → bool
func makeIsScopeFn(g *callgraph.Graph) *object.Builtin {
	return object.NewBuiltin("is_scope", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := nameArg("is_scope", args)
		if errObj != nil {
			return errObj
		}
		return object.NewBool(g.IsScope(name))
	})
}

// makeEdgesFn creates the "edges" host function.
//
// edges() → [{"caller": string, "callee": string}]
func makeEdgesFn(g *callgraph.Graph) *object.Builtin {
	return object.NewBuiltin("edges", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("edges", 0, len(args))
		}
		edges := g.Edges()
		items := make([]object.Object, len(edges))
		for i, e := range edges {
			items[i] = object.NewMap(map[string]object.Object{
				"caller": object.NewString(e.Caller),
				"callee": object.NewString(e.Callee),
			})
		}
		return object.NewList(items)
	})
}

// makeGroupsFn exposes a precomputed partition such as weak_components().
func makeGroupsFn(fn string, groups [][]string) *object.Builtin {
	return object.NewBuiltin(fn, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError(fn, 0, len(args))
		}
		return groupList(groups)
	})
}

// makeNamesFn exposes a precomputed node list such as leaves().
func makeNamesFn(fn string, names []string) *object.Builtin {
	return object.NewBuiltin(fn, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError(fn, 0, len(args))
		}
		return stringList(names)
	})
}

// emitter collects the values a script reports.
type emitter struct {
	values []any
}

// builtin creates the "emit" host function.
//
// emit(value) → nil; value is converted to its Go form
func (em *emitter) builtin() *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("emit", 1, len(args))
		}
		em.values = append(em.values, args[0].Interface())
		return object.Nil
	})
}
