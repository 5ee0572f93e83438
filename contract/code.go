package contract

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
)

// Exports lists the functions every counter contract artifact must export
var Exports = []string{"increase", "get_counter", "get_id"}

//go:embed counter.wasm
var counterCode []byte

// Code returns the bundled compiled counter contract
func Code() []byte {
	return bytes.Clone(counterCode)
}

// LoadCode reads a compiled contract artifact from disk. An empty path
// returns the bundled contract.
func LoadCode(path string) ([]byte, error) {
	if path == "" {
		return Code(), nil
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract code: %w", err)
	}
	return code, nil
}
