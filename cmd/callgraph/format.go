package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	callgraph "github.com/jward/callgraph"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml"}

// validateFormat checks that the --format value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, ", "))
}

// outputResult writes result to stdout in the selected format.
func outputResult(result CLIResult) error {
	return writeResult(os.Stdout, viper.GetString("format"), result)
}

// writeResult encodes result to w as json, yaml or text.
func writeResult(w io.Writer, format string, result CLIResult) error {
	switch format {
	case "text":
		return writeResultText(w, result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In json and yaml mode the error is written to
// stdout as a CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	format := viper.GetString("format")
	if format == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	_ = writeResult(os.Stdout, format, CLIResult{Command: command, Error: err.Error()})
	return err
}

// writeResultText dispatches to the text formatter for the result type.
func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIGraph:
		formatGraphText(w, v)
	case *callgraph.Analysis:
		formatAnalysisText(w, v)
	case []CLISection:
		formatSectionsText(w, v)
	case []*callgraph.File:
		formatFilesText(w, v)
	case []callgraph.CallSite:
		formatCallSitesText(w, v)
	case *callgraph.Summary:
		formatSummaryText(w, v)
	case []string:
		formatNamesText(w, v)
	case [][]string:
		formatGroupsText(w, v)
	case []any:
		formatValuesText(w, v)
	case CLIWatchEvent:
		formatAnalysisText(w, v.Analysis)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatGraphText prints one line per node: name, scope marker, callees.
func formatGraphText(w io.Writer, g CLIGraph) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tSCOPE\tCALLEES")
	for _, n := range g.Nodes {
		scope := "-"
		if n.Scope {
			scope = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Name, scope, strings.Join(n.Callees, ", "))
	}
	tw.Flush()
}

func formatAnalysisText(w io.Writer, a *callgraph.Analysis) {
	if a == nil {
		return
	}
	fmt.Fprintf(w, "Nodes: %d\nEdges: %d\n\n", a.Nodes, a.Edges)
	formatSectionsText(w, sectionsOf(a, analysisSelection{all: true}))
}

func formatSectionsText(w io.Writer, sections []CLISection) {
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", sectionTitles[s.Name])
		if s.Groups != nil {
			for _, group := range s.Groups {
				fmt.Fprintf(w, "  %s\n", strings.Join(group, " "))
			}
			continue
		}
		for _, name := range s.Names {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}

func formatFilesText(w io.Writer, files []*callgraph.File) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLINES\tINDEXED")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", f.ID, f.Path, f.LineCount, f.LastIndexed.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}

func formatCallSitesText(w io.Writer, sites []callgraph.CallSite) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCALLER\tCALLEE")
	for _, s := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.File, s.Caller, s.Callee)
	}
	tw.Flush()
}

func formatSummaryText(w io.Writer, s *callgraph.Summary) {
	fmt.Fprintln(w, "Index Summary")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Files:  %d\n", s.Files)
	fmt.Fprintf(w, "Nodes:  %d\n", s.Nodes)
	fmt.Fprintf(w, "Scopes: %d\n", s.Scopes)
	fmt.Fprintf(w, "Edges:  %d\n", s.Edges)
}

func formatNamesText(w io.Writer, names []string) {
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}

func formatGroupsText(w io.Writer, groups [][]string) {
	for _, group := range groups {
		fmt.Fprintln(w, strings.Join(group, " "))
	}
}

// formatValuesText prints script output: strings as-is, everything else as
// compact JSON.
func formatValuesText(w io.Writer, values []any) {
	for _, v := range values {
		if s, ok := v.(string); ok {
			fmt.Fprintln(w, s)
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			fmt.Fprintf(w, "%v\n", v)
			continue
		}
		fmt.Fprintln(w, string(data))
	}
}
