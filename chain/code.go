package chain

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/govm-net/counter/contract"
	"github.com/govm-net/counter/core"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// FunctionInfo describes one exported or imported wasm function
type FunctionInfo struct {
	Module  string   `json:"module,omitempty"`
	Name    string   `json:"name"`
	Params  []string `json:"params"`
	Results []string `json:"results"`
}

// ModuleInfo lists the interface of a compiled contract
type ModuleInfo struct {
	Exports []FunctionInfo `json:"exports"`
	Imports []FunctionInfo `json:"imports"`
}

// MaxCodeSize bounds deployed contract code
const MaxCodeSize = 1024 * 1024

// CodeValidator checks that deployed code is a wasm module exposing the
// counter interface. Results are cached by code hash.
type CodeValidator struct {
	runtime     wazero.Runtime
	maxCodeSize int

	mu    sync.Mutex
	cache map[core.Hash]error
}

// NewCodeValidator creates a validator backed by the wazero interpreter.
// A maxCodeSize of zero means MaxCodeSize.
func NewCodeValidator(ctx context.Context, maxCodeSize int) *CodeValidator {
	if maxCodeSize <= 0 {
		maxCodeSize = MaxCodeSize
	}
	return &CodeValidator{
		runtime:     wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter()),
		maxCodeSize: maxCodeSize,
		cache:       make(map[core.Hash]error),
	}
}

// Validate returns nil when code compiles and exports every contract.Exports
// function
func (v *CodeValidator) Validate(ctx context.Context, code []byte) error {
	if len(code) == 0 {
		return fmt.Errorf("contract code cannot be empty")
	}
	if len(code) > v.maxCodeSize {
		return fmt.Errorf("contract code size %d exceeds maximum %d", len(code), v.maxCodeSize)
	}

	hash := core.GetHash(code)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err, ok := v.cache[hash]; ok {
		return err
	}

	info, err := inspect(ctx, v.runtime, code)
	if err == nil {
		err = requireExports(info)
	}
	v.cache[hash] = err
	return err
}

// Close releases the wazero runtime
func (v *CodeValidator) Close(ctx context.Context) error {
	return v.runtime.Close(ctx)
}

// InspectCode compiles code and reports its exported and imported functions
func InspectCode(ctx context.Context, code []byte) (*ModuleInfo, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer runtime.Close(ctx)
	return inspect(ctx, runtime, code)
}

func inspect(ctx context.Context, runtime wazero.Runtime, code []byte) (*ModuleInfo, error) {
	compiled, err := runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to compile WebAssembly module: %w", err)
	}
	defer compiled.Close(ctx)

	info := &ModuleInfo{}
	for name, def := range compiled.ExportedFunctions() {
		fn := describe(def)
		fn.Name = name
		info.Exports = append(info.Exports, fn)
	}
	sort.Slice(info.Exports, func(i, j int) bool { return info.Exports[i].Name < info.Exports[j].Name })

	for _, def := range compiled.ImportedFunctions() {
		fn := describe(def)
		fn.Module, fn.Name, _ = def.Import()
		info.Imports = append(info.Imports, fn)
	}
	return info, nil
}

func describe(def api.FunctionDefinition) FunctionInfo {
	fn := FunctionInfo{
		Params:  make([]string, 0, len(def.ParamTypes())),
		Results: make([]string, 0, len(def.ResultTypes())),
	}
	for _, t := range def.ParamTypes() {
		fn.Params = append(fn.Params, api.ValueTypeName(t))
	}
	for _, t := range def.ResultTypes() {
		fn.Results = append(fn.Results, api.ValueTypeName(t))
	}
	return fn
}

func requireExports(info *ModuleInfo) error {
	exported := make(map[string]struct{}, len(info.Exports))
	for _, fn := range info.Exports {
		exported[fn.Name] = struct{}{}
	}
	for _, name := range contract.Exports {
		if _, ok := exported[name]; !ok {
			return fmt.Errorf("contract code does not export %q", name)
		}
	}
	return nil
}
