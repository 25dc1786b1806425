package main

import (
	"github.com/spf13/cobra"

	callgraph "github.com/jward/callgraph"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the indexed call graphs",
	Long:  "Run queries against the snapshots stored by 'callgraph index'. File arguments are resolved relative to the current directory.",
}

func init() {
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(graphCmd)
	queryCmd.AddCommand(callersCmd)
	queryCmd.AddCommand(calleesCmd)
	queryCmd.AddCommand(callSitesCmd)
	queryCmd.AddCommand(componentsCmd)
	queryCmd.AddCommand(sccCmd)
	queryCmd.AddCommand(inlineCmd)
	queryCmd.AddCommand(leavesCmd)
	queryCmd.AddCommand(summaryCmd)
}

// withQuery opens the index, runs fn and closes the engine. Any error is
// reported through outputError under command.
func withQuery(command string, fn func(q *callgraph.QueryBuilder) (CLIResult, error)) error {
	engine, err := openExistingEngine()
	if err != nil {
		return outputError(command, err)
	}
	defer engine.Close()

	result, err := fn(engine.Query())
	if err != nil {
		return outputError(command, err)
	}
	result.Command = command
	return outputResult(result)
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("files", func(q *callgraph.QueryBuilder) (CLIResult, error) {
			files, err := q.Files()
			if err != nil {
				return CLIResult{}, err
			}
			if files == nil {
				files = []*callgraph.File{}
			}
			return CLIResult{Results: files, TotalCount: intPtr(len(files))}, nil
		})
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Print the stored call graph of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("graph", func(q *callgraph.QueryBuilder) (CLIResult, error) {
			path, err := resolveFilePath(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			g, err := q.Graph(path)
			if err != nil {
				return CLIResult{}, err
			}
			if g == nil {
				return CLIResult{File: path}, nil
			}
			return CLIResult{File: path, Results: graphToCLI(g), TotalCount: intPtr(g.Len())}, nil
		})
	},
}

// namesCommand builds a "<file> <name>" query whose result is a name list.
func namesCommand(use, short string, fn func(q *callgraph.QueryBuilder, path, name string) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <file> <name>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQuery(use, func(q *callgraph.QueryBuilder) (CLIResult, error) {
				path, err := resolveFilePath(args[0])
				if err != nil {
					return CLIResult{}, err
				}
				names, err := fn(q, path, args[1])
				if err != nil {
					return CLIResult{}, err
				}
				names = nonNilNames(names)
				return CLIResult{File: path, Results: names, TotalCount: intPtr(len(names))}, nil
			})
		},
	}
}

var callersCmd = namesCommand("callers", "List the callers of a name, one per call site",
	func(q *callgraph.QueryBuilder, path, name string) ([]string, error) {
		return q.Callers(path, name)
	})

var calleesCmd = namesCommand("callees", "List the call sites of a name in source order",
	func(q *callgraph.QueryBuilder, path, name string) ([]string, error) {
		return q.Callees(path, name)
	})

var callSitesCmd = &cobra.Command{
	Use:   "callsites <name>",
	Short: "List every indexed call site of a name across all files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("callsites", func(q *callgraph.QueryBuilder) (CLIResult, error) {
			sites, err := q.CallSites(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			if sites == nil {
				sites = []callgraph.CallSite{}
			}
			return CLIResult{Results: sites, TotalCount: intPtr(len(sites))}, nil
		})
	},
}

// fileCommand builds a "<file>" query over a stored analysis.
func fileCommand(use, short string, fn func(q *callgraph.QueryBuilder, path string) (any, int, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQuery(use, func(q *callgraph.QueryBuilder) (CLIResult, error) {
				path, err := resolveFilePath(args[0])
				if err != nil {
					return CLIResult{}, err
				}
				results, n, err := fn(q, path)
				if err != nil {
					return CLIResult{}, err
				}
				return CLIResult{File: path, Results: results, TotalCount: intPtr(n)}, nil
			})
		},
	}
}

func groupsResult(groups [][]string, err error) (any, int, error) {
	if err != nil {
		return nil, 0, err
	}
	groups = nonNilGroups(groups)
	return groups, len(groups), nil
}

func namesResult(names []string, err error) (any, int, error) {
	if err != nil {
		return nil, 0, err
	}
	names = nonNilNames(names)
	return names, len(names), nil
}

var componentsCmd = fileCommand("components", "List the stored weak components of a file",
	func(q *callgraph.QueryBuilder, path string) (any, int, error) {
		return groupsResult(q.Components(path))
	})

var sccCmd = fileCommand("scc", "List the stored strongly connected components of a file",
	func(q *callgraph.QueryBuilder, path string) (any, int, error) {
		return groupsResult(q.StronglyConnected(path))
	})

var inlineCmd = fileCommand("inline", "List the stored inline candidates of a file",
	func(q *callgraph.QueryBuilder, path string) (any, int, error) {
		return namesResult(q.InlineCandidates(path))
	})

var leavesCmd = fileCommand("leaves", "List the stored leaves of a file",
	func(q *callgraph.QueryBuilder, path string) (any, int, error) {
		return namesResult(q.Leaves(path))
	})

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print aggregate counts across the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("summary", func(q *callgraph.QueryBuilder) (CLIResult, error) {
			sum, err := q.Summary()
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: sum}, nil
		})
	},
}
