package index

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/please-dev/please-gateway/internal/embedding"
	"github.com/please-dev/please-gateway/internal/registry"
)

// stopWords is the fixed 52-entry English stop-word set Tokenize drops
// when tokenizing for BM25; SearchableText keeps stop words.
var stopWords = buildStopWordSet(
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
	"to", "of", "in", "on", "at", "by", "with", "from", "up", "down",
	"is", "are", "was", "were", "be", "been", "being", "this", "that",
	"these", "those", "it", "its", "as", "into", "about", "over",
	"under", "again", "further", "once", "here", "there", "all", "any",
	"both", "each", "few", "more", "most", "other", "some",
)

func buildStopWordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

var nonWordChar = regexp.MustCompile(`[^a-z0-9]+`)

// splitIdentifier turns a camelCase / snake_case / kebab-case identifier
// into lowercase space-separated words.
func splitIdentifier(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			b.WriteByte(' ')
		case i > 0 && isLower(runes[i-1]) && isUpper(r):
			b.WriteByte(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

// Tokenize lowercases s, replaces non-alphanumerics with spaces, and
// drops tokens shorter than 2 characters or in the stop-word set.
func Tokenize(s string) []string {
	lower := strings.ToLower(s)
	spaced := nonWordChar.ReplaceAllString(lower, " ")
	fields := strings.Fields(spaced)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// SearchableText deterministically flattens a tool definition into the
// text that both BM25 and the identifier-splitting index over.
func SearchableText(def registry.ToolDefinition) string {
	var parts []string
	parts = append(parts, splitIdentifier(def.Name))
	if def.Title != "" {
		parts = append(parts, def.Title)
	}
	if def.Description != "" {
		parts = append(parts, def.Description)
	}
	if def.InputSchema != nil {
		parts = append(parts, flattenSchemaProperties(def.InputSchema)...)
	}
	if tags, ok := def.Metadata["tags"]; ok {
		parts = append(parts, fmt.Sprintf("%v", tags))
	}
	return strings.Join(parts, " ")
}

func flattenSchemaProperties(schema *registry.JSONSchema) []string {
	var out []string
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop := schema.Properties[name]
		out = append(out, splitIdentifier(name))
		out = append(out, flattenProperty(prop)...)
	}
	return out
}

func flattenProperty(prop registry.PropertySchema) []string {
	var out []string
	if prop.Description != "" {
		out = append(out, prop.Description)
	}
	if prop.Type != "" {
		out = append(out, prop.Type)
	}
	out = append(out, prop.Enum...)
	if prop.Items != nil {
		out = append(out, flattenProperty(*prop.Items)...)
	}
	names := make([]string, 0, len(prop.Properties))
	for name := range prop.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, splitIdentifier(name))
		out = append(out, flattenProperty(prop.Properties[name])...)
	}
	return out
}

// BuildOptions controls what the Index Builder produces.
type BuildOptions struct {
	Provider       embedding.Provider // nil disables embeddings
	BatchSize      int                // defaults to 32
	OnBatchDone    func(done, total int)
}

// Build converts a list of Tool Definitions into their indexed form and
// derives the corpus-wide BM25 statistics from the result.
func Build(ctx context.Context, defs []registry.ToolDefinition, opts BuildOptions) ([]IndexedTool, BM25Stats, error) {
	tools := make([]IndexedTool, len(defs))
	for i, def := range defs {
		text := SearchableText(def)
		tools[i] = IndexedTool{
			Tool:           def,
			SearchableText: text,
			Tokens:         Tokenize(text),
		}
	}

	if opts.Provider != nil {
		if err := embedTools(ctx, tools, opts); err != nil {
			return nil, BM25Stats{}, err
		}
	}

	stats := ComputeBM25Stats(tools)
	return tools, stats, nil
}

func embedTools(ctx context.Context, tools []IndexedTool, opts BuildOptions) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	if err := opts.Provider.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize embedding provider: %w", err)
	}

	total := len(tools)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = tools[i].SearchableText
		}
		vecs, err := opts.Provider.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch [%d:%d): %w", start, end, err)
		}
		for i, v := range vecs {
			tools[start+i].Embedding = v
		}
		if opts.OnBatchDone != nil {
			opts.OnBatchDone(end, total)
		}
	}
	return nil
}

// ComputeBM25Stats derives corpus statistics from a set of indexed
// tools. It is re-derivable at any time from the tools array alone, per
// the persisted-index consistency invariant.
func ComputeBM25Stats(tools []IndexedTool) BM25Stats {
	stats := BM25Stats{
		DocumentFrequencies: make(map[string]int),
		TotalDocuments:      len(tools),
	}
	if len(tools) == 0 {
		return stats
	}

	totalLen := 0
	for _, t := range tools {
		totalLen += len(t.Tokens)
		seen := make(map[string]bool, len(t.Tokens))
		for _, tok := range t.Tokens {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			stats.DocumentFrequencies[tok]++
		}
	}
	stats.AvgDocLength = float64(totalLen) / float64(len(tools))
	return stats
}
