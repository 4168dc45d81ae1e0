package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// ScriptedProvider is a custom embedding provider defined at runtime by a
// user-supplied JavaScript snippet exposing a function
// "embed(text) -> number[]". It is the concrete embodiment of the
// registry's "runtime addition of custom factories" requirement: a
// deployment that wants a bespoke embedding source, without recompiling
// the gateway, registers one of these against a chosen tag.
type ScriptedProvider struct {
	tag       string
	dimension int
	source    string

	mu  sync.Mutex
	vm  *goja.Runtime
	fn  goja.Callable
}

// NewScriptedProvider compiles source once at construction time so that
// syntax errors surface immediately rather than at the first Embed call.
// source must define a top-level function named "embed".
func NewScriptedProvider(tag string, dimension int, source string) (*ScriptedProvider, error) {
	p := &ScriptedProvider{tag: tag, dimension: dimension, source: source}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ScriptedProvider) compile() error {
	vm := goja.New()
	if _, err := vm.RunString(p.source); err != nil {
		return fmt.Errorf("scripted provider %s: compile script: %w", p.tag, err)
	}

	embedVal := vm.Get("embed")
	if embedVal == nil || goja.IsUndefined(embedVal) {
		return fmt.Errorf("scripted provider %s: script does not define \"embed\"", p.tag)
	}
	fn, ok := goja.AssertFunction(embedVal)
	if !ok {
		return fmt.Errorf("scripted provider %s: \"embed\" is not a function", p.tag)
	}

	p.vm = vm
	p.fn = fn
	return nil
}

func (p *ScriptedProvider) Tag() string    { return p.tag }
func (p *ScriptedProvider) Dimension() int { return p.dimension }

// Initialize is idempotent: the script was already compiled at
// construction, so this only re-compiles after a Dispose.
func (p *ScriptedProvider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vm != nil {
		return nil
	}
	return p.compile()
}

func (p *ScriptedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.vm == nil {
		return nil, fmt.Errorf("scripted provider %s: not initialized", p.tag)
	}

	result, err := p.fn(goja.Undefined(), p.vm.ToValue(text))
	if err != nil {
		return nil, fmt.Errorf("scripted provider %s: embed(text) failed: %w", p.tag, err)
	}

	raw, ok := result.Export().([]interface{})
	if !ok {
		return nil, fmt.Errorf("scripted provider %s: embed(text) must return a number array", p.tag)
	}
	if len(raw) != p.dimension {
		return nil, fmt.Errorf("scripted provider %s: embed(text) returned %d components, want %d", p.tag, len(raw), p.dimension)
	}

	vec := make([]float32, len(raw))
	for i, v := range raw {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int64:
			f = float64(n)
		default:
			return nil, fmt.Errorf("scripted provider %s: component %d is not a number", p.tag, i)
		}
		vec[i] = float32(f)
	}
	l2Normalize(vec)
	return vec, nil
}

func (p *ScriptedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedSequentially(ctx, p, texts)
}

func (p *ScriptedProvider) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vm = nil
	p.fn = nil
	return nil
}

// scriptedProviderMeta is the JSON sidecar written next to a persisted
// scripted provider's ".js" source, recording the tag/dimension pair
// needed to reconstruct it.
type scriptedProviderMeta struct {
	Tag       string `json:"tag"`
	Dimension int    `json:"dimension"`
}

// sanitizeTagForFilename maps a "location:model" tag to a safe filename
// stem, since tags routinely contain ":".
func sanitizeTagForFilename(tag string) string {
	return strings.NewReplacer(":", "__", "/", "__").Replace(tag)
}

// SaveScriptedProvider persists tag's script and dimension under dir so
// a later process's LoadScriptedProviders can reconstruct it. dir is
// created if absent.
func SaveScriptedProvider(dir, tag string, dimension int, source string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create provider dir %s: %w", dir, err)
	}

	stem := sanitizeTagForFilename(tag)
	if err := os.WriteFile(filepath.Join(dir, stem+".js"), []byte(source), 0o644); err != nil {
		return fmt.Errorf("write provider script: %w", err)
	}

	meta, err := json.Marshal(scriptedProviderMeta{Tag: tag, Dimension: dimension})
	if err != nil {
		return fmt.Errorf("encode provider metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, stem+".json"), meta, 0o644); err != nil {
		return fmt.Errorf("write provider metadata: %w", err)
	}
	return nil
}

// LoadScriptedProviders scans dir for scripted providers persisted by a
// previous SaveScriptedProvider call and registers each against r, so
// tags added by `mcp provider add-script` in an earlier process resolve
// here too. A missing directory is not an error.
func LoadScriptedProviders(r *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read provider dir %s: %w", dir, err)
	}

	for _, f := range entries {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		metaPath := filepath.Join(dir, f.Name())
		metaData, err := os.ReadFile(metaPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", metaPath, err)
		}
		var meta scriptedProviderMeta
		if err := json.Unmarshal(metaData, &meta); err != nil {
			return fmt.Errorf("parse %s: %w", metaPath, err)
		}

		scriptPath := filepath.Join(dir, strings.TrimSuffix(f.Name(), ".json")+".js")
		source, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", scriptPath, err)
		}

		tag, dimension, src := meta.Tag, meta.Dimension, string(source)
		if _, err := NewScriptedProvider(tag, dimension, src); err != nil {
			return fmt.Errorf("load persisted provider %s: %w", metaPath, err)
		}
		r.Register(tag, func(Quantization) Provider {
			p, _ := NewScriptedProvider(tag, dimension, src)
			return p
		})
	}
	return nil
}
