// Command validate-registry validates community registry catalog entries
// (see internal/mcpcatalog) against the schema `mcp add --from-registry`
// and `mcp search-registry` expect.
//
// Usage:
//
//	validate-registry [options] [path...]
//
// If no paths are provided, validates ~/.please/registry by default.
//
// Options:
//
//	-json       output results as JSON
//	-quiet      only output errors
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/please-dev/please-gateway/internal/mcpcatalog"
)

var (
	asJSON = false
	quiet  = false
)

func main() {
	fs := flag.NewFlagSet("validate-registry", flag.ExitOnError)
	fs.BoolVar(&asJSON, "json", false, "output results as JSON")
	fs.BoolVar(&quiet, "quiet", false, "only output errors")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(fs.Args(), asJSON, quiet))
}

func run(paths []string, asJSON, quiet bool) int {
	if len(paths) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		paths = []string{filepath.Join(home, ".please", "registry")}
	}

	exitCode := 0
	allResults := make(map[string]*mcpcatalog.ValidationResult)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", path, err)
			exitCode = 1
			continue
		}

		if info.IsDir() {
			results, err := mcpcatalog.ValidateDirectory(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error validating directory %s: %v\n", path, err)
				exitCode = 1
				continue
			}
			for name, result := range results {
				allResults[filepath.Join(path, name)] = result
			}
		} else {
			result, err := mcpcatalog.ValidateFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error validating file %s: %v\n", path, err)
				exitCode = 1
				continue
			}
			allResults[path] = result
		}
	}

	if asJSON {
		outputJSON(allResults)
	} else {
		outputText(allResults, quiet)
	}

	for _, result := range allResults {
		if !result.Valid {
			exitCode = 1
		}
	}
	return exitCode
}

func outputJSON(results map[string]*mcpcatalog.ValidationResult) {
	out := struct {
		Results map[string]*mcpcatalog.ValidationResult `json:"results"`
		Summary struct {
			Total   int `json:"total"`
			Valid   int `json:"valid"`
			Invalid int `json:"invalid"`
		} `json:"summary"`
	}{Results: results}

	for _, r := range results {
		out.Summary.Total++
		if r.Valid {
			out.Summary.Valid++
		} else {
			out.Summary.Invalid++
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func outputText(results map[string]*mcpcatalog.ValidationResult, quiet bool) {
	validCount, invalidCount := 0, 0

	for path, result := range results {
		if result.Valid {
			validCount++
			if !quiet {
				fmt.Printf("valid   %s\n", path)
			}
			continue
		}
		invalidCount++
		fmt.Printf("invalid %s\n", path)
		for _, e := range result.Errors {
			fmt.Printf("  %s: %s\n", e.Field, e.Message)
		}
	}

	if !quiet {
		fmt.Println()
		fmt.Printf("summary: %d valid, %d invalid\n", validCount, invalidCount)
	}
}
