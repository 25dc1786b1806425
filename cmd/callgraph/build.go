package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	callgraph "github.com/jward/callgraph"
)

// readAndBuild reads one Python file and builds its call graph without
// touching the database.
func readAndBuild(ctx context.Context, file string) (string, []byte, *callgraph.Graph, error) {
	path, err := resolveFilePath(file)
	if err != nil {
		return "", nil, nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	g, err := callgraph.Build(ctx, src, path)
	if err != nil {
		return "", nil, nil, err
	}
	return path, src, g, nil
}

var buildCmd = &cobra.Command{
	Use:   "build <file.py>",
	Short: "Print the call graph of a Python file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	path, _, g, err := readAndBuild(cmd.Context(), args[0])
	if err != nil {
		return outputError("build", err)
	}
	return outputResult(CLIResult{
		Command:    "build",
		File:       path,
		Results:    graphToCLI(g),
		TotalCount: intPtr(g.Len()),
	})
}

// analysisSelection records which analyses the user asked for.
type analysisSelection struct {
	all        bool
	components bool
	scc        bool
	inline     bool
	leaves     bool
}

func (s analysisSelection) none() bool {
	return !s.components && !s.scc && !s.inline && !s.leaves
}

var sectionTitles = map[string]string{
	"weak_components":    "Weak components",
	"strongly_connected": "Strongly connected components",
	"inline_candidates":  "Inline candidates",
	"leaves":             "Leaves",
}

// sectionsOf returns the selected analyses in a fixed order. Empty results
// are kept as empty, non-nil slices so they still print.
func sectionsOf(a *callgraph.Analysis, sel analysisSelection) []CLISection {
	var out []CLISection
	if sel.all || sel.components {
		out = append(out, CLISection{Name: "weak_components", Groups: nonNilGroups(a.WeakComponents)})
	}
	if sel.all || sel.scc {
		out = append(out, CLISection{Name: "strongly_connected", Groups: nonNilGroups(a.StronglyConnected)})
	}
	if sel.all || sel.inline {
		out = append(out, CLISection{Name: "inline_candidates", Names: nonNilNames(a.InlineCandidates)})
	}
	if sel.all || sel.leaves {
		out = append(out, CLISection{Name: "leaves", Names: nonNilNames(a.Leaves)})
	}
	return out
}

func nonNilGroups(groups [][]string) [][]string {
	if groups == nil {
		return [][]string{}
	}
	return groups
}

func nonNilNames(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

var (
	flagComponents bool
	flagSCC        bool
	flagInline     bool
	flagLeaves     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.py>",
	Short: "Print structural analyses of a Python file's call graph",
	Long: `Prints the weak components, strongly connected components, inline
candidates and leaves of the call graph. With one or more of --components,
--scc, --inline or --leaves only those analyses are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagComponents, "components", false, "weakly connected components")
	analyzeCmd.Flags().BoolVar(&flagSCC, "scc", false, "strongly connected components")
	analyzeCmd.Flags().BoolVar(&flagInline, "inline", false, "nodes with exactly one non-self call site")
	analyzeCmd.Flags().BoolVar(&flagLeaves, "leaves", false, "called names with no definition")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path, _, g, err := readAndBuild(cmd.Context(), args[0])
	if err != nil {
		return outputError("analyze", err)
	}
	a := callgraph.Analyze(g)

	sel := analysisSelection{
		components: flagComponents,
		scc:        flagSCC,
		inline:     flagInline,
		leaves:     flagLeaves,
	}
	if sel.none() {
		return outputResult(CLIResult{Command: "analyze", File: path, Results: a})
	}
	return outputResult(CLIResult{Command: "analyze", File: path, Results: sectionsOf(a, sel)})
}

var dotCmd = &cobra.Command{
	Use:   "dot <file.py>",
	Short: "Print the call graph in Graphviz DOT format",
	Long:  "Writes DOT to stdout regardless of --format. Leaves are drawn as dashed boxes.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDot,
}

func runDot(cmd *cobra.Command, args []string) error {
	path, _, g, err := readAndBuild(cmd.Context(), args[0])
	if err != nil {
		errorHandled = true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return callgraph.WriteDOT(cmd.OutOrStdout(), g, name)
}
