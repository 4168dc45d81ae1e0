// Package inference lets the CLI accept a bare `<tool>` invocation as
// shorthand for `call <tool>`, so a fully-qualified tool name like
// `github__create_issue` doesn't require typing the verb.
package inference

import "strings"

// knownVerbs are the CLI's real subcommands; a first argument matching
// one of these is never inferred as a tool name.
var knownVerbs = map[string]bool{
	"index": true, "search": true, "call": true, "serve": true,
	"mcp": true, "install": true, "help": true, "completion": true,
}

// InferCommand reports "call" when args looks like a direct tool
// invocation rather than a known verb: a prefixed tool name carries the
// provenance separator `__` (per the gateway's `<server>__<tool>`
// naming), is not a flag, and doesn't collide with a real verb.
func InferCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}

	first := args[0]
	if strings.HasPrefix(first, "-") || knownVerbs[first] {
		return "", args
	}
	if strings.Contains(first, "__") {
		return "call", args
	}
	return "", args
}
