// Package main provides a CLI tool for analysing simulation result
// artifacts: metric extraction, math expressions, preview rendering and
// dataset export.
//
// Usage:
//
//	go run cmd/simcore/main.go --result run42.json --topology opamp
//	go run cmd/simcore/main.go --result run42.json --export out.csv --format csv
//	go run cmd/simcore/main.go --result run42.json --expr "db(V(out)/V(in))"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/causalgo/simcore/internal/export"
	"github.com/causalgo/simcore/internal/mathexpr"
	"github.com/causalgo/simcore/internal/metrics"
	"github.com/causalgo/simcore/internal/simresult"
)

func main() {
	resultPath := flag.String("result", "", "Simulation result artifact (JSON)")
	topology := flag.String("topology", "", "Topology tag: amplifier, opamp, ldo, dcdc, oscillator, filter, adc, dac, digital. Empty = infer from data")
	outSignal := flag.String("out-signal", "V(out)", "Output signal name")
	inSignal := flag.String("in-signal", "", "Input signal name (empty = unit-amplitude excitation)")
	exportPath := flag.String("export", "", "Export data to this path. If empty, no export")
	format := flag.String("format", "csv", "Export format: csv, json, mat, npy, npz")
	signals := flag.String("signals", "", "Comma-separated signal list for export (empty = all)")
	expr := flag.String("expr", "", "Math expression to evaluate, e.g. \"db(V(out)/V(in))\"")
	preview := flag.String("preview", "", "Render a waveform preview to this path (PNG/SVG/PDF)")

	flag.Parse()

	if *resultPath == "" {
		fmt.Fprintf(os.Stderr, "Missing --result\n")
		flag.Usage()
		os.Exit(1)
	}

	result, err := simresult.Load(*resultPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load result: %v\n", err)
		os.Exit(1)
	}
	if result.Data == nil {
		fmt.Fprintf(os.Stderr, "Result %s carries no data\n", result.ID)
		os.Exit(1)
	}

	fmt.Printf("Result %s (%s, %s axis, %d points, %d signals)\n",
		result.ID, result.AnalysisType, result.Data.Axis,
		len(result.Data.AxisData), len(result.Data.Signals))

	// Metric extraction
	extractor := metrics.NewExtractor()
	params := metrics.Params{OutputSignal: *outSignal, InputSignal: *inSignal}
	results := extractor.ForTopology(context.Background(), result.Data, *topology, params, nil)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	tracker := metrics.NewTrendTracker()
	fmt.Println("\nMetrics:")
	for _, name := range names {
		dm := tracker.Format(results[name])
		if dm.ErrorMessage != "" {
			fmt.Printf("  %-24s —  (%s)\n", name, dm.ErrorMessage)
			continue
		}
		fmt.Printf("  %-24s %s\n", name, dm.Value)
	}

	// Math expression
	if *expr != "" {
		wave, err := mathexpr.New().Evaluate(result, *expr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Expression failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n%s: %d points", wave.Name, len(wave.Values))
		if len(wave.Values) > 0 {
			fmt.Printf(", first=%g, last=%g", wave.Values[0], wave.Values[len(wave.Values)-1])
		}
		fmt.Println()
	}

	// Preview rendering
	if *preview != "" {
		if err := export.RenderPreview(result.Data, exportSignals(*signals), *preview); err != nil {
			fmt.Fprintf(os.Stderr, "Preview failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nPreview written to %s\n", *preview)
	}

	// Export
	if *exportPath != "" {
		res := export.Export(result.Data, export.Format(strings.ToLower(*format)), *exportPath,
			export.Options{Signals: exportSignals(*signals)})
		if !res.Success {
			fmt.Fprintf(os.Stderr, "Export failed: %s\n", res.ErrorMessage)
			os.Exit(1)
		}
		fmt.Printf("\nExported %d signals, %d points to %s (%s)\n",
			res.SignalCount, res.PointCount, res.Path, res.Format)
	}
}

func exportSignals(list string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
