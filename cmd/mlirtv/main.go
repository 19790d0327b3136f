// Command mlirtv drives the translation-equivalence check spec.md §6
// describes end to end: load two JSON-encoded functions, encode each
// against a shared symbolic heap and argument bank, compose the
// equivalence obligation, and discharge it against Z3.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
