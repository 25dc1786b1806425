package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	callgraph "github.com/jward/callgraph"
	"github.com/jward/callgraph/internal/runtime"
)

// version is reported to MCP clients.
var version = "dev"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve call graph tools over MCP on stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout exposing the
build_callgraph, analyze_callgraph, run_script and find_callsites tools.
find_callsites reads the index created by 'callgraph index'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newMCPServer().Run(cmd.Context(), &mcp.StdioTransport{})
	},
}

type FileArgs struct {
	FilePath string `json:"file_path" jsonschema:"path of the Python file, absolute or relative to the server's working directory"`
}

type ScriptArgs struct {
	Script   string `json:"script" jsonschema:"built-in script name (dead, fan_in, recursion) or path to a .risor file"`
	FilePath string `json:"file_path" jsonschema:"path of the Python file to run the script against"`
}

type CallSitesArgs struct {
	Name string `json:"name" jsonschema:"called name to look up across all indexed files"`
}

func newMCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "callgraph", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_callgraph",
		Description: "Builds the call graph of a Python file: every top-level function and module-level code with the names it calls, in source order",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FileArgs) (*mcp.CallToolResult, any, error) {
		_, _, g, err := readAndBuild(ctx, args.FilePath)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return jsonResult(graphToCLI(g)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_callgraph",
		Description: "Returns weak components, strongly connected components, inline candidates and leaves of a Python file's call graph",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FileArgs) (*mcp.CallToolResult, any, error) {
		_, _, g, err := readAndBuild(ctx, args.FilePath)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return jsonResult(callgraph.Analyze(g)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_script",
		Description: "Runs a Risor analysis script over a Python file's call graph and returns the values it emits",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ScriptArgs) (*mcp.CallToolResult, any, error) {
		path, src, g, err := readAndBuild(ctx, args.FilePath)
		if err != nil {
			return errorResult(err), nil, nil
		}
		rt, scriptPath, err := scriptRuntime(args.Script, nil)
		if err != nil {
			return errorResult(err), nil, nil
		}
		values, err := rt.RunScript(ctx, scriptPath, &runtime.Input{Graph: g, Path: path, Source: src}, nil)
		if err != nil {
			return errorResult(err), nil, nil
		}
		if values == nil {
			values = []any{}
		}
		return jsonResult(values), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_callsites",
		Description: "Lists every indexed call site of a name across all files, with the calling scope",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CallSitesArgs) (*mcp.CallToolResult, any, error) {
		engine, err := openExistingEngine()
		if err != nil {
			return errorResult(err), nil, nil
		}
		defer engine.Close()

		sites, err := engine.Query().CallSites(args.Name)
		if err != nil {
			return errorResult(err), nil, nil
		}
		if sites == nil {
			sites = []callgraph.CallSite{}
		}
		return jsonResult(sites), nil, nil
	})

	return server
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encoding result: %w", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
