package store

import "time"

type File struct {
	ID          int64     `json:"id" yaml:"id"`
	Path        string    `json:"path" yaml:"path"`
	Hash        string    `json:"hash" yaml:"hash"`
	LineCount   int       `json:"line_count" yaml:"line_count"`
	LastIndexed time.Time `json:"last_indexed" yaml:"last_indexed"`
}

type Node struct {
	ID      int64
	FileID  int64
	Name    string
	Ordinal int
	IsScope bool
}

type Edge struct {
	ID      int64
	FileID  int64
	Caller  string
	Callee  string
	Ordinal int
}

// Component kinds stored in the components table.
const (
	KindWeak   = "weak"
	KindSCC    = "scc"
	KindInline = "inline"
	KindLeaf   = "leaf"
)

// Snapshot is everything persisted for one file. Components maps a kind to
// its groups; flat lists such as inline candidates are stored as one
// single-node group per entry.
type Snapshot struct {
	File       File
	Nodes      []Node
	Edges      []Edge
	Components map[string][][]string
}

// Summary holds aggregate counts across all stored files.
type Summary struct {
	Files  int `json:"files" yaml:"files"`
	Nodes  int `json:"nodes" yaml:"nodes"`
	Scopes int `json:"scopes" yaml:"scopes"`
	Edges  int `json:"edges" yaml:"edges"`
}
