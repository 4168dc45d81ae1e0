// Package index builds, persists, and validates the searchable tool
// index: the derived form of every discovered tool plus the corpus
// statistics and build metadata needed to decide when to rebuild.
package index

import (
	"time"

	"github.com/please-dev/please-gateway/internal/registry"
)

// IndexedTool pairs a Tool Definition with its precomputed derivatives.
type IndexedTool struct {
	Tool           registry.ToolDefinition `json:"tool"`
	SearchableText string                  `json:"searchableText"`
	Tokens         []string                `json:"tokens"`
	Embedding      []float32               `json:"embedding,omitempty"`
}

// BM25Stats holds the corpus-wide statistics BM25 scoring needs.
type BM25Stats struct {
	AvgDocLength         float64        `json:"avgDocLength"`
	DocumentFrequencies  map[string]int `json:"documentFrequencies"`
	TotalDocuments       int            `json:"totalDocuments"`
}

// ConfigFingerprint captures whether a config scope file exists and,
// if so, a hash of its exact bytes.
type ConfigFingerprint struct {
	Exists bool   `json:"exists"`
	Hash   string `json:"hash,omitempty"`
}

// CLIArgs is the subset of CLI flag values that affect index contents,
// captured at build time so a later run can detect drift.
type CLIArgs struct {
	Mode     string   `json:"mode,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Dtype    string   `json:"dtype,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
	Scope    string   `json:"scope,omitempty"`
}

// BuildMetadata records everything about how an index was produced, so
// that the Regeneration Detector has no hidden inputs to reason about.
type BuildMetadata struct {
	CLIVersion          string                       `json:"cliVersion"`
	CLIArgs             CLIArgs                      `json:"cliArgs"`
	ConfigFingerprints  map[string]ConfigFingerprint `json:"configFingerprints"`
}

// PersistedIndex is the single self-describing document written to disk.
type PersistedIndex struct {
	Version             string         `json:"version"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
	TotalTools          int            `json:"totalTools"`
	HasEmbeddings       bool           `json:"hasEmbeddings"`
	EmbeddingModel      string         `json:"embeddingModel,omitempty"`
	EmbeddingDimensions int            `json:"embeddingDimensions,omitempty"`
	BM25Stats           BM25Stats      `json:"bm25Stats"`
	Tools               []IndexedTool  `json:"tools"`
	BuildMetadata       *BuildMetadata `json:"buildMetadata,omitempty"`
}

// CurrentVersion is the version stamped onto newly built indexes.
const CurrentVersion = "1.0.0"

// IsLegacy reports whether idx has no build metadata and is therefore
// unconditionally rebuildable.
func (idx *PersistedIndex) IsLegacy() bool {
	return idx.BuildMetadata == nil
}
