package callgraph

import (
	"fmt"

	"github.com/jward/callgraph/internal/store"
)

// QueryBuilder answers questions about stored snapshots without reparsing.
// Every per-file method returns nil results, not an error, when path has
// never been indexed.
type QueryBuilder struct {
	store *store.Store
}

// CallSite is one stored call from Caller to Callee in File.
type CallSite struct {
	File   string `json:"file" yaml:"file"`
	Caller string `json:"caller" yaml:"caller"`
	Callee string `json:"callee" yaml:"callee"`
}

// Files returns every indexed file ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

func (q *QueryBuilder) file(path string) (*store.File, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("lookup file %s: %w", path, err)
	}
	return f, nil
}

// Graph returns the stored call graph of path.
func (q *QueryBuilder) Graph(path string) (*Graph, error) {
	f, err := q.file(path)
	if err != nil || f == nil {
		return nil, err
	}
	nodes, edges, err := q.store.LoadGraph(f.ID)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	return graphFromStore(nodes, edges), nil
}

// Callers returns one entry per call site of name in path.
func (q *QueryBuilder) Callers(path, name string) ([]string, error) {
	g, err := q.Graph(path)
	if err != nil || g == nil {
		return nil, err
	}
	return g.Callers(name), nil
}

// Callees returns the call sites recorded for name in path, in source order.
func (q *QueryBuilder) Callees(path, name string) ([]string, error) {
	g, err := q.Graph(path)
	if err != nil || g == nil {
		return nil, err
	}
	return g.Callees(name), nil
}

// CallSites returns every stored call to name across all indexed files.
func (q *QueryBuilder) CallSites(name string) ([]CallSite, error) {
	edges, err := q.store.EdgesByCallee(name)
	if err != nil {
		return nil, fmt.Errorf("call sites: %w", err)
	}
	if len(edges) == 0 {
		return nil, nil
	}

	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("call sites: %w", err)
	}
	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.ID] = f.Path
	}

	sites := make([]CallSite, len(edges))
	for i, e := range edges {
		sites[i] = CallSite{File: paths[e.FileID], Caller: e.Caller, Callee: e.Callee}
	}
	return sites, nil
}

func (q *QueryBuilder) components(path, kind string) ([][]string, error) {
	f, err := q.file(path)
	if err != nil || f == nil {
		return nil, err
	}
	groups, err := q.store.Components(f.ID, kind)
	if err != nil {
		return nil, fmt.Errorf("%s components: %w", kind, err)
	}
	return groups, nil
}

func (q *QueryBuilder) flat(path, kind string) ([]string, error) {
	groups, err := q.components(path, kind)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, group := range groups {
		out = append(out, group...)
	}
	return out, nil
}

// Components returns the stored weak components of path.
func (q *QueryBuilder) Components(path string) ([][]string, error) {
	return q.components(path, store.KindWeak)
}

// StronglyConnected returns the stored strongly connected components of path.
func (q *QueryBuilder) StronglyConnected(path string) ([][]string, error) {
	return q.components(path, store.KindSCC)
}

// InlineCandidates returns the stored inline candidates of path.
func (q *QueryBuilder) InlineCandidates(path string) ([]string, error) {
	return q.flat(path, store.KindInline)
}

// Leaves returns the stored leaf nodes of path.
func (q *QueryBuilder) Leaves(path string) ([]string, error) {
	return q.flat(path, store.KindLeaf)
}

// Summary returns aggregate counts across every indexed file.
func (q *QueryBuilder) Summary() (*Summary, error) {
	sum, err := q.store.Summary()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}
