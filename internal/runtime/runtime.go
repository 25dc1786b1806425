package runtime

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	callgraph "github.com/jward/callgraph"
	"github.com/jward/callgraph/internal/store"
)

// Runtime embeds a Risor VM and exposes a built call graph, its analyses,
// the file's source and (optionally) the snapshot Store to analysis
// scripts.
type Runtime struct {
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger routes the script "log" object to logger.
func WithRuntimeLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRuntime creates a Runtime. s may be nil, in which case the db_query
// and files globals are not defined. scriptsDir is the base for relative
// script paths and imports when no fs.FS is configured.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Input is the graph a script runs against. Path and Source are optional;
// without Source the source and ts_query globals return errors.
type Input struct {
	Graph  *callgraph.Graph
	Path   string
	Source []byte
}

// RunScript loads and executes a Risor script against in and returns the
// values the script passed to emit, in order.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, in *Input, extraGlobals map[string]any) ([]any, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, in, extraGlobals)
}

// RunSource executes Risor source code directly. Useful for testing
// without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, in *Input, extraGlobals map[string]any) ([]any, error) {
	return r.eval(ctx, source, "<inline>", in, extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, in *Input, extraGlobals map[string]any) ([]any, error) {
	if in == nil || in.Graph == nil {
		return nil, fmt.Errorf("runtime: script %s: no graph", label)
	}

	em := &emitter{}
	globals := r.buildGlobals(in, em, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return em.values, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code. With an fs.FS
// configured the path is resolved inside it; otherwise relative paths are
// resolved against scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(in *Input, em *emitter, extra map[string]any) map[string]any {
	a := callgraph.Analyze(in.Graph)
	globals := map[string]any{
		"file_path":         in.Path,
		"module_scope":      callgraph.ModuleScope,
		"nodes":             makeNodesFn(in.Graph),
		"callees":           makeCalleesFn(in.Graph),
		"callers":           makeCallersFn(in.Graph),
		"is_scope":          makeIsScopeFn(in.Graph),
		"edges":             makeEdgesFn(in.Graph),
		"weak_components":   makeGroupsFn("weak_components", a.WeakComponents),
		"sccs":              makeGroupsFn("sccs", a.StronglyConnected),
		"inline_candidates": makeNamesFn("inline_candidates", a.InlineCandidates),
		"leaves":            makeNamesFn("leaves", a.Leaves),
		"emit":              em.builtin(),
		"source":            makeSourceFn(in.Source),
		"ts_query":          makeTSQueryFn(in.Source),
		"log":               mustProxy(&logObject{logger: r.logger.With("script", in.Path)}),
	}

	// Stored snapshots are only reachable when a Store is configured.
	if r.store != nil {
		globals["files"] = makeFilesFn(r.store)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
