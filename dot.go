package callgraph

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
)

// dotNode is a graph node carrying the name used as its DOT identifier.
type dotNode struct {
	id    int64
	name  string
	scope bool
}

func (n dotNode) ID() int64     { return n.id }
func (n dotNode) DOTID() string { return n.name }

// Attributes draws leaves as dashed boxes so undefined names stand out.
func (n dotNode) Attributes() []encoding.Attribute {
	if n.scope {
		return nil
	}
	return []encoding.Attribute{
		{Key: "shape", Value: "box"},
		{Key: "style", Value: "dashed"},
	}
}

// toMulti converts g into a gonum directed multigraph. Node IDs follow
// insertion order; every call site becomes its own line, self-loops
// included.
func toMulti(g *Graph) *multi.DirectedGraph {
	mg := multi.NewDirectedGraph()
	nodes := make(map[string]dotNode, g.Len())
	for i, name := range g.order {
		n := dotNode{id: int64(i), name: name, scope: g.scopes[name]}
		nodes[name] = n
		mg.AddNode(n)
	}
	for _, caller := range g.order {
		for _, callee := range g.edges[caller] {
			mg.SetLine(mg.NewLine(nodes[caller], nodes[callee]))
		}
	}
	return mg
}

// WriteDOT writes g as a Graphviz digraph named name.
func WriteDOT(w io.Writer, g *Graph, name string) error {
	b, err := dot.MarshalMulti(toMulti(g), name, "", "\t")
	if err != nil {
		return fmt.Errorf("callgraph: marshal dot: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("callgraph: write dot: %w", err)
	}
	return nil
}
