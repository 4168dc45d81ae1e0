// Package gateway hosts the merged tool index and exposes it to an MCP
// host via search_tools, list_tools, get_tool, and tool_search_info.
package gateway

import (
	"fmt"

	"github.com/please-dev/please-gateway/internal/index"
)

// MergedIndex is the process-lifetime cache of one or two loaded
// indexes (project overriding user on name collision), plus the
// combined BM25 statistics search strategies need.
type MergedIndex struct {
	Tools         []index.IndexedTool
	BM25          index.BM25Stats
	HasEmbeddings bool
}

// LoadMerged loads the index at each of paths (1 or 2 entries) and
// merges them: dedup tools by name with the later path's copy winning
// (callers pass project after user so project overrides), BM25 stats
// combined correctly, hasEmbeddings as the disjunction.
func LoadMerged(paths ...string) (*MergedIndex, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("gateway: no index paths given")
	}

	var indexes []*index.PersistedIndex
	for _, p := range paths {
		idx, err := index.NewStore(p).Load()
		if err != nil {
			return nil, fmt.Errorf("load index %s: %w", p, err)
		}
		indexes = append(indexes, idx)
	}

	if len(indexes) == 1 {
		idx := indexes[0]
		return &MergedIndex{Tools: idx.Tools, BM25: idx.BM25Stats, HasEmbeddings: idx.HasEmbeddings}, nil
	}

	return mergeTwo(indexes[0], indexes[1]), nil
}

func mergeTwo(user, project *index.PersistedIndex) *MergedIndex {
	byName := make(map[string]index.IndexedTool, len(user.Tools)+len(project.Tools))
	var order []string

	for _, t := range user.Tools {
		byName[t.Tool.Name] = t
		order = append(order, t.Tool.Name)
	}
	for _, t := range project.Tools {
		if _, seen := byName[t.Tool.Name]; !seen {
			order = append(order, t.Tool.Name)
		}
		byName[t.Tool.Name] = t
	}

	tools := make([]index.IndexedTool, 0, len(order))
	for _, name := range order {
		tools = append(tools, byName[name])
	}

	return &MergedIndex{
		Tools:         tools,
		BM25:          combineBM25(user.BM25Stats, project.BM25Stats),
		HasEmbeddings: user.HasEmbeddings || project.HasEmbeddings,
	}
}

// combineBM25 sums document counts, computes a length-weighted average
// document length, and sums per-term document frequencies across both
// corpora.
func combineBM25(a, b index.BM25Stats) index.BM25Stats {
	total := a.TotalDocuments + b.TotalDocuments

	var avgLen float64
	if total > 0 {
		avgLen = (a.AvgDocLength*float64(a.TotalDocuments) + b.AvgDocLength*float64(b.TotalDocuments)) / float64(total)
	}

	freqs := make(map[string]int, len(a.DocumentFrequencies)+len(b.DocumentFrequencies))
	for term, df := range a.DocumentFrequencies {
		freqs[term] += df
	}
	for term, df := range b.DocumentFrequencies {
		freqs[term] += df
	}

	return index.BM25Stats{
		AvgDocLength:        avgLen,
		DocumentFrequencies: freqs,
		TotalDocuments:      total,
	}
}
