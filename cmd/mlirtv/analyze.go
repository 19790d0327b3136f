package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tv "github.com/MerHS/mlir-tv"
)

var analyzeFullyAbstract bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <function.json>",
	Short: "Dump the static-analysis record (spec.md §4.1) for one function",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeFullyAbstract, "fully-abstract", false, "treat floats as fully uninterpreted when sizing theories")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	fn, err := loadFunction(args[0])
	if err != nil {
		return err
	}
	logger.Info("loaded function", zap.String("name", fn.Name))

	rec := tv.Analyze(fn, analyzeFullyAbstract)
	printAnalysis(fn.Name, rec)
	return nil
}

func printAnalysis(name string, rec *tv.AnalysisRecord) {
	fmt.Printf("%s\n", name)
	fmt.Printf("  f32: args=%d vars=%d distinct-consts=%d\n", rec.F32.ArgCount, rec.F32.VarCount, len(rec.F32.ConstSet))
	fmt.Printf("  f64: args=%d vars=%d distinct-consts=%d\n", rec.F64.ArgCount, rec.F64.VarCount, len(rec.F64.ConstSet))
	fmt.Printf("  memref: args=%d vars=%d\n", rec.MemRef.ArgCount, rec.MemRef.VarCount)
}
