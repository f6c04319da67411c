package matdata_test

import (
	"path/filepath"
	"testing"

	"github.com/causalgo/simcore/internal/export"
	"github.com/causalgo/simcore/internal/simresult"
	"github.com/causalgo/simcore/pkg/matdata"
)

// writeFixture exports a small transient result so the reader tests have a
// real Level-5 container to parse.
func writeFixture(t *testing.T) string {
	t.Helper()
	data, err := simresult.NewTimeData(
		[]float64{0, 1e-6, 2e-6, 3e-6},
		map[string]simresult.Signal{
			"V(out)": {0, complex(0.5, 0), complex(1.0, 0), complex(1.0, 0)},
			"I(R1)":  {0, complex(1e-3, 0), complex(2e-3, 0), complex(2e-3, 0)},
		},
	)
	if err != nil {
		t.Fatalf("failed to build test data: %v", err)
	}
	path := filepath.Join(t.TempDir(), "transient.mat")
	res := export.Export(data, export.FormatMAT, path, export.Options{})
	if !res.Success {
		t.Fatalf("failed to write MAT fixture: %s", res.ErrorMessage)
	}
	return path
}

func TestOpen(t *testing.T) {
	path := writeFixture(t)

	mf, err := matdata.Open(path)
	if err != nil {
		t.Fatalf("Failed to open MAT file: %v", err)
	}
	defer func() { _ = mf.Close() }()

	vars := mf.Variables()
	if len(vars) != 3 {
		t.Fatalf("expected 3 variables (time + 2 signals), got %v", vars)
	}
	if !mf.HasVariable("time") {
		t.Error("expected time variable")
	}
	if !mf.HasVariable("V_out") {
		t.Error("expected sanitised V_out variable")
	}
}

func TestGetFloat64(t *testing.T) {
	path := writeFixture(t)

	mf, err := matdata.Open(path)
	if err != nil {
		t.Fatalf("Failed to open MAT file: %v", err)
	}
	defer func() { _ = mf.Close() }()

	data, err := mf.GetFloat64("V_out")
	if err != nil {
		t.Fatalf("Failed to get V_out: %v", err)
	}
	want := []float64{0, 0.5, 1.0, 1.0}
	if len(data) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("V_out[%d] = %v, want %v", i, data[i], want[i])
		}
	}

	if _, err := mf.GetFloat64("missing"); err == nil {
		t.Error("expected error for missing variable")
	}
}

func TestLoadWaveforms(t *testing.T) {
	path := writeFixture(t)

	waves, err := matdata.LoadWaveforms(path, "time", "V_out", "I_R1")
	if err != nil {
		t.Fatalf("LoadWaveforms failed: %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("expected 3 waveforms, got %d", len(waves))
	}
	for name, values := range waves {
		if len(values) != 4 {
			t.Errorf("waveform %q has %d samples, want 4", name, len(values))
		}
	}

	if _, err := matdata.LoadWaveforms(path); err == nil {
		t.Error("expected error for empty variable list")
	}
	if _, err := matdata.LoadWaveforms(path, "nope"); err == nil {
		t.Error("expected error for unknown variable")
	}
}

func TestLoadAxisAndSignals(t *testing.T) {
	path := writeFixture(t)

	axis, signals, err := matdata.LoadAxisAndSignals(path, "time")
	if err != nil {
		t.Fatalf("LoadAxisAndSignals failed: %v", err)
	}
	if len(axis) != 4 {
		t.Fatalf("axis has %d samples, want 4", len(axis))
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d (%v)", len(signals), signals)
	}
	if _, ok := signals["I_R1"]; !ok {
		t.Error("expected signal I_R1")
	}

	if _, _, err := matdata.LoadAxisAndSignals(path, "frequency"); err == nil {
		t.Error("expected error for absent axis variable")
	}
}
