package callgraph

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/callgraph/internal/store"
)

// Engine builds call graphs for files on disk and keeps one snapshot per
// file in SQLite. Files whose content hash has not changed since the last
// snapshot are not rebuilt.
type Engine struct {
	store    *store.Store
	logger   *slog.Logger
	parallel bool
	workers  int
	ignore   []string
	debounce time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel indexing. When true (default), IndexFiles
// parses and builds files on a worker pool and commits snapshots from a
// single goroutine. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.parallel = parallel
	}
}

// WithWorkers caps the parallel worker pool. n <= 0 means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithLogger sets the logger for per-file progress and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIgnore adds gitignore-style patterns that IndexDirectory skips, on
// top of the repository's own .gitignore.
func WithIgnore(patterns ...string) Option {
	return func(e *Engine) {
		e.ignore = append(e.ignore, patterns...)
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("callgraph: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("callgraph: migrate: %w", err)
	}

	e := &Engine{
		store:    s,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		parallel: true,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder over the stored snapshots.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// IsPython reports whether path has a Python source extension.
func IsPython(path string) bool {
	switch filepath.Ext(path) {
	case ".py", ".pyi":
		return true
	}
	return false
}

// source is a file read from disk and checked against its stored snapshot.
type source struct {
	path    string
	content []byte
	hash    string
	// existing is the stored file when its hash still matches.
	existing *store.File
}

func (e *Engine) readSource(path string) (*source, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	src := &source{
		path:    path,
		content: content,
		hash:    fmt.Sprintf("%x", sha256.Sum256(content)),
	}

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == src.hash {
		src.existing = existing
	}
	return src, nil
}

// compiled is a built graph ready to be committed.
type compiled struct {
	src      *source
	graph    *Graph
	analysis *Analysis
}

func compile(ctx context.Context, src *source) (*compiled, error) {
	g, err := Build(ctx, src.content, src.path)
	if err != nil {
		return nil, err
	}
	return &compiled{src: src, graph: g, analysis: Analyze(g)}, nil
}

// commit persists c as the file's current snapshot.
func (e *Engine) commit(c *compiled) error {
	if _, err := e.store.SaveSnapshot(snapshotOf(c)); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	e.logger.Debug("indexed file",
		"path", c.src.path,
		"nodes", c.graph.Len(),
		"edges", c.graph.EdgeCount(),
	)
	return nil
}

func snapshotOf(c *compiled) *store.Snapshot {
	snap := &store.Snapshot{
		File: store.File{
			Path:        c.src.path,
			Hash:        c.src.hash,
			LineCount:   bytes.Count(c.src.content, []byte{'\n'}) + 1,
			LastIndexed: time.Now(),
		},
		Components: map[string][][]string{
			store.KindWeak:   c.analysis.WeakComponents,
			store.KindSCC:    c.analysis.StronglyConnected,
			store.KindInline: singletons(c.analysis.InlineCandidates),
			store.KindLeaf:   singletons(c.analysis.Leaves),
		},
	}
	for _, n := range c.graph.NodeInfos() {
		snap.Nodes = append(snap.Nodes, store.Node{Name: n.Name, IsScope: n.Scope})
	}
	for _, edge := range c.graph.Edges() {
		snap.Edges = append(snap.Edges, store.Edge{Caller: edge.Caller, Callee: edge.Callee})
	}
	return snap
}

func singletons(names []string) [][]string {
	out := make([][]string, len(names))
	for i, name := range names {
		out[i] = []string{name}
	}
	return out
}

// loadGraph rebuilds the stored graph of fileID.
func (e *Engine) loadGraph(fileID int64) (*Graph, error) {
	nodes, edges, err := e.store.LoadGraph(fileID)
	if err != nil {
		return nil, err
	}
	return graphFromStore(nodes, edges), nil
}

func graphFromStore(nodes []store.Node, edges []store.Edge) *Graph {
	infos := make([]NodeInfo, len(nodes))
	for i, n := range nodes {
		infos[i] = NodeInfo{Name: n.Name, Scope: n.IsScope}
	}
	calls := make([]Edge, len(edges))
	for i, edge := range edges {
		calls[i] = Edge{Caller: edge.Caller, Callee: edge.Callee}
	}
	return FromEdges(infos, calls)
}

// BuildFile returns the call graph of the file at path and stores it. When
// the file is unchanged since its last snapshot, the stored graph is
// returned without parsing. Parse failures are returned unchanged and leave
// the previous snapshot in place.
func (e *Engine) BuildFile(ctx context.Context, path string) (*Graph, error) {
	src, err := e.readSource(path)
	if err != nil {
		return nil, fmt.Errorf("callgraph: %s: %w", path, err)
	}
	if src.existing != nil {
		return e.loadGraph(src.existing.ID)
	}

	c, err := compile(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := e.commit(c); err != nil {
		return nil, fmt.Errorf("callgraph: %s: %w", path, err)
	}
	return c.graph, nil
}

// IndexFiles builds and stores every Python file in paths. When WithParallel
// is enabled, parsing runs on a worker pool while snapshots are committed
// serially. Otherwise files are processed one at a time.
//
// For each file:
// 1. Skip non-Python extensions
// 2. Skip unchanged files (same content hash)
// 3. Parse and build the graph, then run the analyzers
// 4. Replace the file's snapshot in one transaction
//
// Errors on individual files are logged and skipped; processing continues
// and the first error is returned in a summary.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.parallel {
		return e.indexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.indexFile(ctx, path); err != nil {
			e.logger.Warn("index failed", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	return summarize(errs)
}

func (e *Engine) indexFile(ctx context.Context, path string) error {
	if !IsPython(path) {
		return nil
	}
	src, err := e.readSource(path)
	if err != nil {
		return err
	}
	if src.existing != nil {
		return nil // unchanged
	}
	c, err := compile(ctx, src)
	if err != nil {
		return err
	}
	return e.commit(c)
}

func summarize(errs []error) error {
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) workerCount(items int) int {
	n := e.workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(1, min(n, items))
}

// skipDirs lists directory names never descended into by the fallback walk.
var skipDirs = map[string]bool{
	"__pycache__":   true,
	"node_modules":  true,
	"venv":          true,
	"site-packages": true,
}

// IndexDirectory indexes every Python file under root and drops stored
// snapshots of files under root that no longer exist. If root is inside a
// git repository, git ls-files supplies the file list so .gitignore is
// respected. Otherwise the filesystem is walked, honouring a .gitignore at
// root and skipping hidden directories, virtualenvs and __pycache__.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("callgraph: resolve %s: %w", root, err)
	}

	paths, err := gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", "root", root, "error", err)
		paths, err = walkListFiles(root)
		if err != nil {
			return err
		}
	}
	paths = e.filterIgnored(root, paths)

	if err := e.pruneMissing(root, paths); err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// filterIgnored drops paths matching the WithIgnore patterns.
func (e *Engine) filterIgnored(root string, paths []string) []string {
	if len(e.ignore) == 0 {
		return paths
	}
	matcher := ignore.CompileIgnoreLines(e.ignore...)
	kept := paths[:0]
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err == nil && matcher.MatchesPath(filepath.ToSlash(rel)) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// pruneMissing deletes snapshots of files under root that are not in paths.
func (e *Engine) pruneMissing(root string, paths []string) error {
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("callgraph: list files: %w", err)
	}
	present := make(map[string]bool, len(paths))
	for _, p := range paths {
		present[p] = true
	}

	prefix := root + string(filepath.Separator)
	var stale []int64
	for _, f := range files {
		if strings.HasPrefix(f.Path, prefix) && !present[f.Path] {
			stale = append(stale, f.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	e.logger.Debug("pruning deleted files", "count", len(stale))
	if err := e.store.DeleteFiles(stale); err != nil {
		return fmt.Errorf("callgraph: prune: %w", err)
	}
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Python files under root.
func gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !IsPython(line) {
			continue
		}
		abs := filepath.Join(root, line)
		// Deleted but still tracked files show up under --cached.
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		paths = append(paths, abs)
	}
	return paths, nil
}

// walkListFiles discovers Python files by walking the filesystem, used when
// git is not available.
func walkListFiles(root string) ([]string, error) {
	var matcher *ignore.GitIgnore
	if m, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		matcher = m
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsPython(path) {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
