package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MerHS/mlir-tv/ir"
)

// loadFunction reads and decodes one JSON-encoded ir.Function (spec.md §6:
// "loads two JSON-encoded ir.Function values"). Decoding is Function's own
// UnmarshalJSON (ir/json.go); this just supplies the file I/O.
func loadFunction(path string) (*ir.Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mlirtv: reading %s: %w", path, err)
	}
	var fn ir.Function
	if err := json.Unmarshal(data, &fn); err != nil {
		return nil, fmt.Errorf("mlirtv: decoding %s: %w", path, err)
	}
	return &fn, nil
}
