// Package scripts embeds the built-in Risor analysis scripts.
//
// Each script runs against one call graph through the runtime globals
// (nodes, callees, callers, is_scope, sccs, ...) and reports findings with
// emit.
package scripts

import "embed"

// FS holds every built-in script at its base name, e.g. "fan_in.risor".
//
//go:embed *.risor
var FS embed.FS

// Builtin lists the built-in script names without extension.
var Builtin = []string{"dead", "fan_in", "recursion"}
