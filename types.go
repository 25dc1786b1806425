package callgraph

import "github.com/jward/callgraph/internal/store"

// Public type aliases for internal store types used in the Engine and
// QueryBuilder API.

type Store = store.Store
type File = store.File
type Summary = store.Summary
