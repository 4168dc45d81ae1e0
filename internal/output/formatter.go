// Package output formats gateway CLI results for a terminal: a colored
// text/table view by default, or JSON/minimal for scripting.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/please-dev/please-gateway/internal/executor"
	"github.com/please-dev/please-gateway/internal/gateway"
	"github.com/please-dev/please-gateway/internal/registry"
)

// Format names one of the CLI's output shapes.
type Format string

const (
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
	FormatMinimal Format = "minimal"
)

// Formatter renders gateway results in one of the three Format shapes.
type Formatter struct {
	format Format
	color  bool
}

// New builds a Formatter. useColor is typically true for an interactive
// terminal and false when stdout is redirected.
func New(format Format, useColor bool) *Formatter {
	return &Formatter{format: format, color: useColor}
}

// FormatSearchResults renders search_tools output: a ranked table by
// default, one "name\tscore" line per result in minimal mode, or JSON.
func (f *Formatter) FormatSearchResults(resp *gateway.SearchToolsResult) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(resp, "", "  ")
		return string(data)
	}
	if f.format == FormatMinimal {
		var lines []string
		for _, r := range resp.Tools {
			lines = append(lines, fmt.Sprintf("%s\t%.4f", r.Name, r.Score))
		}
		return strings.Join(lines, "\n")
	}

	var sb strings.Builder
	table := tablewriter.NewTable(&sb, tablewriter.WithHeader([]string{"Score", "Name", "Description"}))
	for _, r := range resp.Tools {
		table.Append([]string{fmt.Sprintf("%.4f", r.Score), r.Name, r.Description})
	}
	table.Render()
	return sb.String()
}

// FormatToolList renders list_tools output.
func (f *Formatter) FormatToolList(page *gateway.ListToolsResult) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(page, "", "  ")
		return string(data)
	}
	if f.format == FormatMinimal {
		var lines []string
		for _, t := range page.Tools {
			lines = append(lines, t.Name)
		}
		return strings.Join(lines, "\n")
	}

	var sb strings.Builder
	table := tablewriter.NewTable(&sb, tablewriter.WithHeader([]string{"Name", "Description"}))
	for _, t := range page.Tools {
		table.Append([]string{t.Name, t.Description})
	}
	table.Render()
	return sb.String()
}

// FormatToolResult renders a single get_tool response.
func (f *Formatter) FormatToolResult(res *gateway.GetToolResult) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(res, "", "  ")
		return string(data)
	}
	return fmt.Sprintf("%s\n\n%s\n\nUsage:\n  %s", res.Tool.Name, res.Tool.Description, res.CLIUsageTemplate)
}

// FormatOutcome renders a Tool Executor outcome: a result carrying
// isError still prints as an error even though the call itself
// succeeded.
func (f *Formatter) FormatOutcome(outcome executor.Outcome) string {
	if !outcome.Succeeded() {
		return f.formatFailure(outcome)
	}
	if outcome.Result != nil && outcome.Result.IsError {
		return f.formatUpstreamError(outcome.Result)
	}
	return f.formatSuccess(outcome.Result)
}

func (f *Formatter) formatSuccess(result *registry.ToolResult) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		return string(data)
	}
	return contentText(result)
}

func (f *Formatter) formatUpstreamError(result *registry.ToolResult) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		return string(data)
	}
	msg := "Error: " + contentText(result)
	if f.color {
		return color.RedString(msg)
	}
	return msg
}

func (f *Formatter) formatFailure(outcome executor.Outcome) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(outcome, "", "  ")
		return string(data)
	}

	msg := fmt.Sprintf("Error [%s]: %s", outcome.Kind, outcome.Message)
	if f.color {
		msg = color.RedString("Error [%s]: %s", outcome.Kind, outcome.Message)
	}
	if outcome.Hint != "" {
		hint := "Hint: " + outcome.Hint
		if f.color {
			hint = color.YellowString("Hint: %s", outcome.Hint)
		}
		msg += "\n" + hint
	}
	return msg
}

func contentText(result *registry.ToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, c := range result.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// FormatUpstreams renders `mcp list` output.
func (f *Formatter) FormatUpstreams(upstreams []config.NamedUpstream) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(upstreams, "", "  ")
		return string(data)
	}
	if f.format == FormatMinimal {
		var lines []string
		for _, u := range upstreams {
			lines = append(lines, u.Name)
		}
		return strings.Join(lines, "\n")
	}

	var sb strings.Builder
	table := tablewriter.NewTable(&sb, tablewriter.WithHeader([]string{"Name", "Scope", "Transport", "Auth"}))
	for _, u := range upstreams {
		transport := u.Config.Transport
		if transport == "" {
			transport = "stdio"
		}
		table.Append([]string{u.Name, string(u.Scope), transport, string(u.Config.Authorization.Type)})
	}
	table.Render()
	return sb.String()
}

// FormatSearchInfo renders tool_search_info output.
func (f *Formatter) FormatSearchInfo(info gateway.ToolSearchInfoResult) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(info, "", "  ")
		return string(data)
	}
	return fmt.Sprintf("Tools: %d\nEmbeddings: %v\nModes: %s",
		info.TotalTools, info.HasEmbeddings, strings.Join(info.AvailableModes, ", "))
}

// Stderr writes msg followed by a newline to stderr; used for warnings
// that shouldn't pollute a --format json pipe.
func Stderr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}
