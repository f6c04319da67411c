// Package matdata loads simulation waveforms from MATLAB .mat files.
// It uses github.com/scigolib/matlab for native Go parsing of MAT-files
// without CGo dependencies.
//
// Supports:
//   - MATLAB v5 MAT-files (including compressed data elements)
//   - MATLAB v7.3 HDF5-based MAT-files
package matdata

import (
	"fmt"
	"os"

	"github.com/scigolib/matlab"
)

// MatFile wraps a MATLAB file for convenient waveform extraction.
type MatFile struct {
	file    *matlab.MatFile
	closeFn func() error
}

// Open opens a MATLAB .mat file for reading.
// Supports both v5 (MATLAB 5-7.2) and v7.3 (HDF5) formats.
func Open(path string) (*MatFile, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is user-provided intentionally
	if err != nil {
		return nil, fmt.Errorf("matdata: failed to open file: %w", err)
	}

	matFile, err := matlab.Open(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("matdata: failed to parse MAT file: %w", err)
	}

	return &MatFile{
		file:    matFile,
		closeFn: f.Close,
	}, nil
}

// Close releases resources associated with the MAT file.
func (m *MatFile) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	return nil
}

// Variables returns the names of all variables in the file.
func (m *MatFile) Variables() []string {
	return m.file.GetVariableNames()
}

// HasVariable checks if a variable exists in the file.
func (m *MatFile) HasVariable(name string) bool {
	return m.file.HasVariable(name)
}

// GetFloat64 returns a variable as a []float64 slice.
// Returns an error if the variable doesn't exist or cannot be converted.
func (m *MatFile) GetFloat64(name string) ([]float64, error) {
	v := m.file.GetVariable(name)
	if v == nil {
		return nil, fmt.Errorf("matdata: variable %q not found", name)
	}

	data, err := v.GetFloat64Array()
	if err != nil {
		return nil, fmt.Errorf("matdata: cannot convert %q to float64: %w", name, err)
	}

	return data, nil
}

// GetFloat64WithDims returns a variable as []float64 along with its dimensions.
func (m *MatFile) GetFloat64WithDims(name string) ([]float64, []int, error) {
	v := m.file.GetVariable(name)
	if v == nil {
		return nil, nil, fmt.Errorf("matdata: variable %q not found", name)
	}

	data, err := v.GetFloat64Array()
	if err != nil {
		return nil, nil, fmt.Errorf("matdata: cannot convert %q to float64: %w", name, err)
	}

	return data, v.Dimensions, nil
}

// GetMatrix returns a 2D matrix as row-major [][]float64.
// Assumes the MATLAB variable is a 2D array stored in column-major order.
func (m *MatFile) GetMatrix(name string) ([][]float64, error) {
	data, dims, err := m.GetFloat64WithDims(name)
	if err != nil {
		return nil, err
	}

	if len(dims) != 2 {
		return nil, fmt.Errorf("matdata: %q is not a 2D matrix (dims=%v)", name, dims)
	}

	rows, cols := dims[0], dims[1]
	matrix := make([][]float64, rows)

	// MATLAB stores in column-major order, convert to row-major
	for i := 0; i < rows; i++ {
		matrix[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			matrix[i][j] = data[j*rows+i] // column-major to row-major
		}
	}

	return matrix, nil
}

// GetColumn returns a specific column from a 2D matrix.
// Column index is 0-based.
func (m *MatFile) GetColumn(name string, col int) ([]float64, error) {
	data, dims, err := m.GetFloat64WithDims(name)
	if err != nil {
		return nil, err
	}

	if len(dims) != 2 {
		return nil, fmt.Errorf("matdata: %q is not a 2D matrix (dims=%v)", name, dims)
	}

	rows, cols := dims[0], dims[1]
	if col < 0 || col >= cols {
		return nil, fmt.Errorf("matdata: column %d out of range [0, %d)", col, cols)
	}

	// MATLAB stores in column-major order
	column := make([]float64, rows)
	for i := 0; i < rows; i++ {
		column[i] = data[col*rows+i]
	}

	return column, nil
}

// LoadWaveforms loads the named variables as equal-length sample vectors,
// keyed by variable name. All vectors must match the length of the first.
func LoadWaveforms(path string, varNames ...string) (map[string][]float64, error) {
	mf, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = mf.Close() }()

	if len(varNames) == 0 {
		return nil, fmt.Errorf("matdata: no variable names specified")
	}

	out := make(map[string][]float64, len(varNames))
	n := -1
	for _, name := range varNames {
		data, err := mf.GetFloat64(name)
		if err != nil {
			return nil, err
		}
		if n == -1 {
			n = len(data)
		} else if len(data) != n {
			return nil, fmt.Errorf("matdata: variable %q has length %d, expected %d",
				name, len(data), n)
		}
		out[name] = data
	}

	return out, nil
}

// LoadAxisAndSignals loads one axis vector plus every other numeric
// variable in the file as a signal, the shape a simulation exporter
// produces. Signals whose length differs from the axis are skipped.
func LoadAxisAndSignals(path, axisVar string) (axis []float64, signals map[string][]float64, err error) {
	mf, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = mf.Close() }()

	axis, err = mf.GetFloat64(axisVar)
	if err != nil {
		return nil, nil, err
	}

	signals = make(map[string][]float64)
	for _, name := range mf.Variables() {
		if name == axisVar {
			continue
		}
		data, err := mf.GetFloat64(name)
		if err != nil || len(data) != len(axis) {
			continue
		}
		signals[name] = data
	}

	return axis, signals, nil
}
