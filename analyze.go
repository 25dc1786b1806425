package callgraph

// Analysis bundles every structural analysis of one graph.
type Analysis struct {
	Nodes             int        `json:"nodes" yaml:"nodes"`
	Edges             int        `json:"edges" yaml:"edges"`
	WeakComponents    [][]string `json:"weak_components" yaml:"weak_components"`
	StronglyConnected [][]string `json:"strongly_connected" yaml:"strongly_connected"`
	InlineCandidates  []string   `json:"inline_candidates" yaml:"inline_candidates"`
	Leaves            []string   `json:"leaves" yaml:"leaves"`
}

// Analyze runs every analyzer over g.
func Analyze(g *Graph) *Analysis {
	return &Analysis{
		Nodes:             g.Len(),
		Edges:             g.EdgeCount(),
		WeakComponents:    WeakComponents(g),
		StronglyConnected: StronglyConnected(g),
		InlineCandidates:  InlineCandidates(g),
		Leaves:            Leaves(g),
	}
}

// WeakComponents partitions the nodes into components connected when edge
// direction is ignored. Each component is collected by breadth-first search
// from the first unassigned node in insertion order, and lists its nodes in
// visit order.
func WeakComponents(g *Graph) [][]string {
	adj := make(map[string][]string, g.Len())
	for _, caller := range g.order {
		for _, callee := range g.edges[caller] {
			adj[caller] = append(adj[caller], callee)
			adj[callee] = append(adj[callee], caller)
		}
	}

	seen := make(map[string]bool, g.Len())
	var components [][]string
	for _, seed := range g.order {
		if seen[seed] {
			continue
		}
		seen[seed] = true
		component := []string{seed}
		for i := 0; i < len(component); i++ {
			for _, next := range adj[component[i]] {
				if !seen[next] {
					seen[next] = true
					component = append(component, next)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// StronglyConnected partitions the nodes into strongly connected components
// using Kosaraju's algorithm. A node on no cycle, with or without a
// self-loop, is a component of its own.
func StronglyConnected(g *Graph) [][]string {
	finished := finishOrder(g)

	reverse := make(map[string][]string, g.Len())
	for _, caller := range g.order {
		for _, callee := range g.edges[caller] {
			reverse[callee] = append(reverse[callee], caller)
		}
	}

	assigned := make(map[string]bool, g.Len())
	var components [][]string
	for i := len(finished) - 1; i >= 0; i-- {
		root := finished[i]
		if assigned[root] {
			continue
		}
		assigned[root] = true
		component := []string{}
		stack := []string{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, n)
			for _, prev := range reverse[n] {
				if !assigned[prev] {
					assigned[prev] = true
					stack = append(stack, prev)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// finishOrder returns the nodes in depth-first post-order over the forward
// edges, starting searches in insertion order.
func finishOrder(g *Graph) []string {
	type frame struct {
		node string
		next int
	}

	visited := make(map[string]bool, g.Len())
	finished := make([]string, 0, g.Len())
	for _, start := range g.order {
		if visited[start] {
			continue
		}
		visited[start] = true
		stack := []frame{{node: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			callees := g.edges[top.node]
			if top.next < len(callees) {
				callee := callees[top.next]
				top.next++
				if !visited[callee] {
					visited[callee] = true
					stack = append(stack, frame{node: callee})
				}
				continue
			}
			finished = append(finished, top.node)
			stack = stack[:len(stack)-1]
		}
	}
	return finished
}

// InlineCandidates returns, in node order, the nodes with exactly one
// incoming call site where that call site is not the node calling itself.
// Repeated calls from the same caller each count.
func InlineCandidates(g *Graph) []string {
	indegree := make(map[string]int, g.Len())
	selfCalled := make(map[string]bool)
	for _, caller := range g.order {
		for _, callee := range g.edges[caller] {
			indegree[callee]++
			if callee == caller {
				selfCalled[callee] = true
			}
		}
	}

	var out []string
	for _, name := range g.order {
		if indegree[name] == 1 && !selfCalled[name] {
			out = append(out, name)
		}
	}
	return out
}

// Leaves returns the nodes that exist only because they were called: names
// with no definition in the module.
func Leaves(g *Graph) []string {
	var out []string
	for _, name := range g.order {
		if !g.scopes[name] {
			out = append(out, name)
		}
	}
	return out
}
