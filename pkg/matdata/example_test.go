package matdata_test

import (
	"fmt"
)

// Example demonstrates how to load waveforms from a MATLAB file.
func Example() {
	// This example shows the API but uses a placeholder path.
	// In real usage, replace with an actual file path.

	fmt.Println("=== Loading MATLAB File ===")
	fmt.Println("mf, err := matdata.Open(\"result.mat\")")
	fmt.Println("vars := mf.Variables()  // List all variables")
	fmt.Println("data, err := mf.GetFloat64(\"V_out\")  // Get numeric array")
	fmt.Println("")
	fmt.Println("=== For Waveform Analysis ===")
	fmt.Println("axis, signals, err := matdata.LoadAxisAndSignals(path, \"time\")")
	fmt.Println("waves, err := matdata.LoadWaveforms(path, \"time\", \"V_out\")")

	// Output:
	// === Loading MATLAB File ===
	// mf, err := matdata.Open("result.mat")
	// vars := mf.Variables()  // List all variables
	// data, err := mf.GetFloat64("V_out")  // Get numeric array
	//
	// === For Waveform Analysis ===
	// axis, signals, err := matdata.LoadAxisAndSignals(path, "time")
	// waves, err := matdata.LoadWaveforms(path, "time", "V_out")
}
