package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"

	z3backend "github.com/MerHS/mlir-tv/smt/z3"
)

var (
	equivStyle       = color.New(color.FgGreen, color.Bold)
	counterexStyle   = color.New(color.FgRed, color.Bold)
	unknownStyle     = color.New(color.FgYellow, color.Bold)
	fieldStyle       = color.New(color.FgCyan)
)

// printVerdict renders one check's result the way a reviewer scans a CI
// log: a one-line colored headline, then the counterexample model (if any)
// indented underneath.
func printVerdict(result z3backend.Result, model map[string]string) {
	switch result {
	case z3backend.Valid:
		equivStyle.Println("EQUIVALENT")
	case z3backend.Invalid:
		counterexStyle.Println("NOT EQUIVALENT")
		for _, name := range sortedKeys(model) {
			fmt.Printf("  %s = %s\n", fieldStyle.Sprint(name), model[name])
		}
	default:
		unknownStyle.Println("UNKNOWN")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
