package main

import callgraph "github.com/jward/callgraph"

// CLIResult is the top-level envelope for every command's output.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLINode is one graph node with its call sites in source order.
type CLINode struct {
	Name    string   `json:"name" yaml:"name"`
	Scope   bool     `json:"scope" yaml:"scope"`
	Callees []string `json:"callees" yaml:"callees"`
}

// CLIGraph is a serializable call graph. Nodes keep insertion order, which
// a plain map would lose in YAML.
type CLIGraph struct {
	Nodes []CLINode `json:"nodes" yaml:"nodes"`
}

func graphToCLI(g *callgraph.Graph) CLIGraph {
	infos := g.NodeInfos()
	out := CLIGraph{Nodes: make([]CLINode, len(infos))}
	for i, n := range infos {
		callees := g.Callees(n.Name)
		if callees == nil {
			callees = []string{}
		}
		out.Nodes[i] = CLINode{Name: n.Name, Scope: n.Scope, Callees: callees}
	}
	return out
}

// CLISection is one named analysis result, e.g. "leaves".
type CLISection struct {
	Name   string     `json:"name" yaml:"name"`
	Groups [][]string `json:"groups,omitempty" yaml:"groups,omitempty"`
	Names  []string   `json:"names,omitempty" yaml:"names,omitempty"`
}

// CLIWatchEvent is one rebuild reported by the watch command.
type CLIWatchEvent struct {
	Graph    CLIGraph            `json:"graph" yaml:"graph"`
	Analysis *callgraph.Analysis `json:"analysis" yaml:"analysis"`
}

func intPtr(n int) *int { return &n }
