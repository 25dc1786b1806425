package callgraph

import (
	"bytes"
	"encoding/json"
)

// ModuleScope is the synthetic scope that owns every module-level statement
// outside a top-level function definition.
const ModuleScope = "..."

// Graph maps each scope or referenced name to the ordered names it calls.
// Nodes keep insertion order and callee slices keep call-site order,
// duplicates included. A Graph is immutable once built.
type Graph struct {
	order  []string
	edges  map[string][]string
	scopes map[string]bool
}

// NodeInfo describes a node and whether it is a scope (a top-level function
// or ModuleScope) rather than a leaf created only by being called.
type NodeInfo struct {
	Name  string `json:"name"`
	Scope bool   `json:"scope"`
}

// Edge is one call site: Caller invokes Callee.
type Edge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

func newGraph() *Graph {
	return &Graph{
		edges:  make(map[string][]string),
		scopes: make(map[string]bool),
	}
}

// addNode inserts name with no callees if it is not already present.
func (g *Graph) addNode(name string) {
	if _, ok := g.edges[name]; ok {
		return
	}
	g.order = append(g.order, name)
	g.edges[name] = []string{}
}

// resetScope makes name a scope with no callees. A later definition of the
// same name replaces the earlier one's call sites but keeps its position.
func (g *Graph) resetScope(name string) {
	g.scopes[name] = true
	if _, ok := g.edges[name]; ok {
		g.edges[name] = []string{}
		return
	}
	g.addNode(name)
}

// addEdge appends caller→callee and materializes both endpoints.
func (g *Graph) addEdge(caller, callee string) {
	g.addNode(caller)
	g.edges[caller] = append(g.edges[caller], callee)
	g.addNode(callee)
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Callees returns the call sites recorded for name in source order, or nil
// when name is not a node.
func (g *Graph) Callees(name string) []string {
	callees, ok := g.edges[name]
	if !ok {
		return nil
	}
	out := make([]string, len(callees))
	copy(out, callees)
	return out
}

// Callers returns one entry per edge into name, in node order.
func (g *Graph) Callers(name string) []string {
	var out []string
	for _, caller := range g.order {
		for _, callee := range g.edges[caller] {
			if callee == name {
				out = append(out, caller)
			}
		}
	}
	return out
}

// IsScope reports whether name is a scope rather than a leaf.
func (g *Graph) IsScope(name string) bool { return g.scopes[name] }

// NodeInfos returns every node with its scope flag, in insertion order.
func (g *Graph) NodeInfos() []NodeInfo {
	out := make([]NodeInfo, len(g.order))
	for i, name := range g.order {
		out[i] = NodeInfo{Name: name, Scope: g.scopes[name]}
	}
	return out
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool {
	_, ok := g.edges[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// EdgeCount returns the number of call sites, counting duplicates.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, callees := range g.edges {
		n += len(callees)
	}
	return n
}

// Edges returns every call site, grouped by caller in node order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.EdgeCount())
	for _, caller := range g.order {
		for _, callee := range g.edges[caller] {
			out = append(out, Edge{Caller: caller, Callee: callee})
		}
	}
	return out
}

// Map returns a copy of the adjacency as a plain map.
func (g *Graph) Map() map[string][]string {
	out := make(map[string][]string, len(g.order))
	for _, name := range g.order {
		out[name] = g.Callees(name)
	}
	return out
}

// MarshalJSON encodes the graph as an object whose keys follow node order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(g.edges[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FromEdges rebuilds a graph from its nodes and ordered call sites, as
// loaded from storage. Endpoints missing from nodes are appended as leaves.
func FromEdges(nodes []NodeInfo, edges []Edge) *Graph {
	g := newGraph()
	for _, n := range nodes {
		g.addNode(n.Name)
		if n.Scope {
			g.scopes[n.Name] = true
		}
	}
	for _, e := range edges {
		g.addEdge(e.Caller, e.Callee)
	}
	return g
}
