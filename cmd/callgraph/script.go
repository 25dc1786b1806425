package main

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	callgraph "github.com/jward/callgraph"
	"github.com/jward/callgraph/internal/runtime"
	"github.com/jward/callgraph/scripts"
)

var scriptCmd = &cobra.Command{
	Use:   "script <script.risor|builtin> <file.py>",
	Short: "Run a Risor analysis script against a Python file's call graph",
	Long: `Builds the call graph of file.py and runs a Risor script over it. The
script sees nodes(), callees(name), callers(name), is_scope(name), edges(),
weak_components(), sccs(), inline_candidates(), leaves(), source() and
ts_query(pattern); when an index exists, files() and db_query(sql, ...)
read it too. Values passed to emit() are printed as the result.

Built-in scripts: `,
	Args: cobra.ExactArgs(2),
	RunE: runScript,
}

func init() {
	scriptCmd.Long += strings.Join(scripts.Builtin, ", ")
}

// scriptRuntime returns a Runtime and the script path to load with it.
// Built-in names resolve to the embedded scripts; anything else is a file
// on disk whose directory also serves imports.
func scriptRuntime(name string, e *callgraph.Engine) (*runtime.Runtime, string, error) {
	var s *callgraph.Store
	if e != nil {
		s = e.Store()
	}
	logOpt := runtime.WithRuntimeLogger(newLogger())

	if slices.Contains(scripts.Builtin, name) {
		return runtime.NewRuntime(s, "", runtime.WithRuntimeFS(scripts.FS), logOpt), name + ".risor", nil
	}
	path, err := resolveFilePath(name)
	if err != nil {
		return nil, "", err
	}
	return runtime.NewRuntime(s, filepath.Dir(path), logOpt), path, nil
}

func runScript(cmd *cobra.Command, args []string) error {
	path, src, g, err := readAndBuild(cmd.Context(), args[1])
	if err != nil {
		return outputError("script", err)
	}

	// The index is optional; without one, files() and db_query() are undefined.
	engine, err := openExistingEngine()
	if err != nil {
		engine = nil
	} else {
		defer engine.Close()
	}

	rt, scriptPath, err := scriptRuntime(args[0], engine)
	if err != nil {
		return outputError("script", err)
	}

	values, err := rt.RunScript(cmd.Context(), scriptPath, &runtime.Input{Graph: g, Path: path, Source: src}, nil)
	if err != nil {
		return outputError("script", err)
	}
	if values == nil {
		values = []any{}
	}
	return outputResult(CLIResult{
		Command:    "script",
		File:       path,
		Results:    values,
		TotalCount: intPtr(len(values)),
	})
}
