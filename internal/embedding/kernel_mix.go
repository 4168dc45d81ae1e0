package embedding

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// mixKernelWASM is a minimal hand-assembled WebAssembly module exporting
// a single function "mix(x: i32) -> i32" computing (x*x) XOR (x >>> 16).
// It is the deterministic bit-mixing primitive the local embedding
// providers run inside a wazero sandbox rather than as plain host code,
// so the feature-hashing kernel executes with no filesystem or network
// access regardless of what the surrounding process can reach.
var mixKernelWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 0x6d, 0x69, 0x78, 0x00, 0x00,
	0x0a, 0x0f, 0x01, 0x0d, 0x00, 0x20, 0x00, 0x20, 0x00, 0x6c, 0x20, 0x00, 0x41, 0x10, 0x76, 0x73, 0x0b,
}

// wasmKernel wraps a single instantiated mixKernelWASM module.
type wasmKernel struct {
	runtime wazero.Runtime
	module  api.Module
	mixFn   api.Function
}

func newWASMKernel(ctx context.Context) (*wasmKernel, error) {
	runtime := wazero.NewRuntime(ctx)

	compiled, err := runtime.CompileModule(ctx, mixKernelWASM)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("compile mix kernel: %w", err)
	}

	mod, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate mix kernel: %w", err)
	}

	fn := mod.ExportedFunction("mix")
	if fn == nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("mix kernel module does not export \"mix\"")
	}

	return &wasmKernel{runtime: runtime, module: mod, mixFn: fn}, nil
}

// mix runs the sandboxed bit-mixing function on x.
func (k *wasmKernel) mix(ctx context.Context, x int32) (int32, error) {
	results, err := k.mixFn.Call(ctx, uint64(uint32(x)))
	if err != nil {
		return 0, fmt.Errorf("call mix kernel: %w", err)
	}
	return int32(uint32(results[0])), nil
}

func (k *wasmKernel) Close(ctx context.Context) error {
	return k.runtime.Close(ctx)
}
