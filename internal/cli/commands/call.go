package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/please-dev/please-gateway/internal/executor"
	"github.com/please-dev/please-gateway/internal/gateway"
	"github.com/please-dev/please-gateway/internal/output"
	"github.com/spf13/cobra"
)

var (
	callArgs      string
	callIndexFlag string
	callFormat    string
	callScopeFlag string
)

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Execute one upstream tool by its fully-qualified name",
	Long: `call resolves <tool> (a <server>__<name> fully-qualified name) against
the index, dispatches it to the upstream server, and prints the result.
Arguments come from --args, or from stdin as a JSON object when --args
is omitted. Exit code is 1 on any failure, including an upstream result
carrying isError=true.`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringVar(&callArgs, "args", "", "tool arguments as a JSON object; reads stdin if omitted")
	callCmd.Flags().StringVar(&callIndexFlag, "index", "", "override the index file path")
	callCmd.Flags().StringVar(&callFormat, "format", "minimal", "output format: json|minimal")
	callCmd.Flags().StringVar(&callScopeFlag, "scope", "project", "index scope: project|user")
}

func runCall(cmd *cobra.Command, args []string) error {
	toolName := args[0]

	arguments, err := parseCallArgs(callArgs)
	if err != nil {
		return fmt.Errorf("parse --args: %w", err)
	}

	r, err := resolver()
	if err != nil {
		return err
	}
	paths, err := indexPathsForServe(r, callScopeFlag, callIndexFlag)
	if err != nil {
		return err
	}

	merged, err := gateway.LoadMerged(paths...)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	scopes := config.ScopesFor(config.ScopeProject)
	if callScopeFlag == "user" {
		scopes = []config.Scope{config.ScopeUser}
	}
	configs, err := r.LoadAll()
	if err != nil {
		return err
	}
	named := config.Merge(configs, scopes)
	upstreams := make(map[string]config.UpstreamConfig, len(named))
	for _, u := range named {
		upstreams[u.Name] = u.Config
	}

	exec := executor.New(merged.Tools, upstreams, newOAuthStore(), openBrowser)
	outcome := exec.Execute(cmd.Context(), toolName, arguments)

	formatter := output.New(output.Format(callFormat), true)
	fmt.Println(formatter.FormatOutcome(outcome))

	if !outcome.Succeeded() || (outcome.Result != nil && outcome.Result.IsError) {
		os.Exit(1)
	}
	return nil
}

func parseCallArgs(raw string) (map[string]interface{}, error) {
	if raw == "" {
		stat, _ := os.Stdin.Stat()
		if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return nil, err
			}
			if len(data) > 0 {
				raw = string(data)
			}
		}
	}
	if raw == "" {
		return map[string]interface{}{}, nil
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
