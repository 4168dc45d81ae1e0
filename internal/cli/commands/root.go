package commands

import (
	"os"

	"github.com/please-dev/please-gateway/internal/cli/inference"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "please",
	Short: "please aggregates many MCP servers behind a small, searchable set of meta-tools",
	Long: `please indexes the tools of every MCP server you've configured, offline,
and exposes only search_tools, list_tools, get_tool, and tool_search_info
to an MCP host, so a host never has to load every upstream's full tool
list into its context window. Execution of an actual tool call is routed
through this CLI, not the MCP wire interface, so host-side permission
policy stays in front of it.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the CLI. A bare `<tool>` invocation (no recognized verb)
// is treated as shorthand for `call <tool>`.
func Execute() error {
	if len(os.Args) > 1 {
		inferredCmd, _ := inference.InferCommand(os.Args[1:])
		if inferredCmd != "" {
			newArgs := make([]string, 0, len(os.Args)+1)
			newArgs = append(newArgs, os.Args[0], inferredCmd)
			newArgs = append(newArgs, os.Args[1:]...)
			os.Args = newArgs
		}
	}
	initLogger()
	return rootCmd.Execute()
}
