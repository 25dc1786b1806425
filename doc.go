// Package callgraph extracts static call graphs from Python modules and runs
// structural analyses over them.
//
// # Graph
//
// [Build] parses a module with tree-sitter and returns a [Graph]: one node per
// top-level function definition, one synthetic node [ModuleScope] ("...")
// for module-level code, and one leaf node per called name with no
// definition. Each scope maps to the names it calls in source order, one
// entry per call site. Calls on attributes record only the attribute name:
//
//	def a():
//	    x.foo()      # a -> foo
//	    b().c()      # a -> c; the inner call to b is not recorded
//
// The extraction is intentionally shallow. Nested definitions, if/elif/else
// branches, class bodies, keyword arguments and comprehension for/if clauses
// are not searched for calls.
//
// # Analyses
//
// Given a graph:
//
//   - [WeakComponents] partitions nodes by undirected reachability.
//   - [StronglyConnected] partitions nodes into strongly connected
//     components (Kosaraju).
//   - [InlineCandidates] lists nodes called from exactly one call site that
//     is not a self-call.
//   - [Leaves] lists names that are called but never defined.
//
// [Analyze] runs all of them.
//
// # Engine
//
// [Engine] persists graphs per file in SQLite, skipping files whose content
// hash is unchanged, and answers queries over stored snapshots:
//
//	e, err := callgraph.New("callgraph.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	err = e.IndexDirectory(ctx, "path/to/project")
//	callers, err := e.Query().Callers("path/to/project/app.py", "handle")
//
// [Engine.Watch] rebuilds a file whenever it changes on disk and hands each
// new graph and its analysis to a callback.
package callgraph
