package export

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/causalgo/simcore/internal/simresult"
)

func smallTimeData(t *testing.T) *simresult.SimulationData {
	t.Helper()
	data, err := simresult.NewTimeData(
		[]float64{0, 1e-6, 2e-6},
		map[string]simresult.Signal{
			"V(out)": {0, complex(0.5, 0), complex(1.0, 0)},
		},
	)
	if err != nil {
		t.Fatalf("failed to build data: %v", err)
	}
	return data
}

func TestCSVExportExactShape(t *testing.T) {
	data := smallTimeData(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	res := Export(data, FormatCSV, path, Options{})
	if !res.Success {
		t.Fatalf("export failed: %s", res.ErrorMessage)
	}
	if res.SignalCount != 1 || res.PointCount != 3 {
		t.Errorf("result counts = %d signals / %d points", res.SignalCount, res.PointCount)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "time,V(out)\n0,0\n1e-06,0.5\n2e-06,1\n"
	if string(raw) != want {
		t.Errorf("csv content = %q, want %q", string(raw), want)
	}
}

func TestCSVRoundTripPreservesOrdering(t *testing.T) {
	data, _ := simresult.NewTimeData(
		[]float64{0, 1, 2},
		map[string]simresult.Signal{
			"b": {1, 2, 3},
			"a": {4, 5, 6},
			"c": {7, 8, 9},
		},
	)
	path := filepath.Join(t.TempDir(), "ordered.csv")

	order := []string{"c", "a", "b"}
	res := Export(data, FormatCSV, path, Options{Signals: order})
	if !res.Success {
		t.Fatalf("export failed: %s", res.ErrorMessage)
	}

	back, names, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	for i, want := range order {
		if names[i] != want {
			t.Fatalf("column order = %v, want %v", names, order)
		}
	}
	for name, sig := range data.Signals {
		got := back.Signals[name]
		for i := range sig {
			if real(got[i]) != real(sig[i]) {
				t.Errorf("%s[%d] = %v, want %v", name, i, got[i], sig[i])
			}
		}
	}
}

func TestJSONRoundTripComplex(t *testing.T) {
	freq := []float64{1, 10, 100}
	data, _ := simresult.NewFrequencyData(freq, map[string]simresult.Signal{
		"V(out)": {complex(1, -1), complex(0.5, -0.5), complex(0.1, -0.9)},
		"flat":   {1, 1, 1},
	})
	path := filepath.Join(t.TempDir(), "ac.json")

	res := Export(data, FormatJSON, path, Options{})
	if !res.Success {
		t.Fatalf("export failed: %s", res.ErrorMessage)
	}

	back, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if back.Axis != simresult.AxisFrequency {
		t.Error("axis kind lost in round trip")
	}
	for name, sig := range data.Signals {
		got := back.Signals[name]
		if len(got) != len(sig) {
			t.Fatalf("%s: length %d, want %d", name, len(got), len(sig))
		}
		for i := range sig {
			if got[i] != sig[i] {
				t.Errorf("%s[%d] = %v, want %v", name, i, got[i], sig[i])
			}
		}
	}
}

func TestJSONCompactOption(t *testing.T) {
	data := smallTimeData(t)
	dir := t.TempDir()

	pretty := filepath.Join(dir, "pretty.json")
	compact := filepath.Join(dir, "compact.json")
	Export(data, FormatJSON, pretty, Options{})
	Export(data, FormatJSON, compact, Options{Compact: true})

	prettyRaw, _ := os.ReadFile(pretty)
	compactRaw, _ := os.ReadFile(compact)
	if len(compactRaw) >= len(prettyRaw) {
		t.Error("compact output should be smaller than pretty output")
	}
}

func TestNPYRoundTrip(t *testing.T) {
	n := 257
	axis := make([]float64, n)
	sig := make(simresult.Signal, n)
	for i := range axis {
		axis[i] = float64(i) * 1e-9
		sig[i] = complex(math.Sin(float64(i)*0.1), 0)
	}
	data, _ := simresult.NewTimeData(axis, map[string]simresult.Signal{"V(out)": sig})
	path := filepath.Join(t.TempDir(), "wave.npy")

	res := Export(data, FormatNPY, path, Options{})
	if !res.Success {
		t.Fatalf("export failed: %s", res.ErrorMessage)
	}

	axisField, backAxis, signals, err := ReadNPY(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if axisField != "time" {
		t.Errorf("axis field = %q, want time", axisField)
	}
	if len(backAxis) != n {
		t.Fatalf("axis length = %d, want %d", len(backAxis), n)
	}
	back := signals["V_out"]
	if back == nil {
		t.Fatalf("missing sanitised field V_out, have %v", signals)
	}
	for i := range axis {
		if backAxis[i] != axis[i] || back[i] != real(sig[i]) {
			t.Fatalf("sample %d differs after round trip", i)
		}
	}
}

func TestNPZRoundTrip(t *testing.T) {
	data := smallTimeData(t)
	path := filepath.Join(t.TempDir(), "wave.npz")

	res := Export(data, FormatNPZ, path, Options{})
	if !res.Success {
		t.Fatalf("export failed: %s", res.ErrorMessage)
	}

	arrays, err := ReadNPZ(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(arrays["time"]) != 3 {
		t.Errorf("time member length = %d, want 3", len(arrays["time"]))
	}
	vout := arrays["V_out"]
	want := []float64{0, 0.5, 1.0}
	for i := range want {
		if vout[i] != want[i] {
			t.Errorf("V_out[%d] = %v, want %v", i, vout[i], want[i])
		}
	}
}

func TestMATRoundTripThroughReader(t *testing.T) {
	data := smallTimeData(t)
	path := filepath.Join(t.TempDir(), "wave.mat")

	res := Export(data, FormatMAT, path, Options{})
	if !res.Success {
		t.Fatalf("export failed: %s", res.ErrorMessage)
	}

	back, err := simresult.LoadMAT(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if back.Axis != simresult.AxisTime {
		t.Error("axis kind lost")
	}
	sig, ok := back.GetSignal("V_out")
	if !ok {
		t.Fatalf("missing V_out, have %v", back.SignalNames())
	}
	want := []float64{0, 0.5, 1.0}
	for i := range want {
		if real(sig[i]) != want[i] {
			t.Errorf("V_out[%d] = %v, want %v", i, sig[i], want[i])
		}
	}
}

func TestSanitizeVarName(t *testing.T) {
	cases := map[string]string{
		"V(out)":    "V_out",
		"I(R1)":     "I_R1",
		"v.x-y z":   "v_x_y_z",
		"1signal":   "sig_1signal",
		"(((":       "signal",
		"V(out!)#$": "V_out",
	}
	for in, want := range cases {
		if got := SanitizeVarName(in); got != want {
			t.Errorf("SanitizeVarName(%q) = %q, want %q", in, got, want)
		}
	}

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeVarName(string(long)); len(got) != 63 {
		t.Errorf("long name truncated to %d, want 63", len(got))
	}
}

func TestSanitizeUniqueSuffixes(t *testing.T) {
	names := []string{"V(out)", "V out", "V_out"}
	m := sanitizeUnique(names)
	seen := map[string]bool{}
	for _, name := range names {
		if seen[m[name]] {
			t.Fatalf("duplicate sanitised name %q", m[name])
		}
		seen[m[name]] = true
	}
}

func TestExportFailures(t *testing.T) {
	data := smallTimeData(t)

	res := Export(nil, FormatCSV, "x.csv", Options{})
	if res.Success {
		t.Error("nil data must fail")
	}
	res = Export(data, Format("xlsx"), "x.xlsx", Options{})
	if res.Success || res.ErrorMessage == "" {
		t.Error("unsupported format must fail with a message")
	}
	res = Export(data, FormatCSV, filepath.Join(t.TempDir(), "nope", "x.csv"), Options{})
	if res.Success {
		t.Error("unwritable path must fail")
	}
	res = Export(data, FormatCSV, filepath.Join(t.TempDir(), "x.csv"), Options{Signals: []string{"ghost"}})
	if res.Success {
		t.Error("no matching signals must fail")
	}
}

func TestFromResult(t *testing.T) {
	res := FromResult(nil, FormatCSV, "x.csv", Options{})
	if res.Success {
		t.Error("nil result must fail")
	}

	sim := &simresult.SimulationResult{ID: "r1", Data: smallTimeData(t)}
	out := FromResult(sim, FormatCSV, filepath.Join(t.TempDir(), "r1.csv"), Options{})
	if !out.Success {
		t.Errorf("export from result failed: %s", out.ErrorMessage)
	}
}

func TestRenderPreview(t *testing.T) {
	n := 5000
	axis := make([]float64, n)
	sig := make(simresult.Signal, n)
	for i := range axis {
		axis[i] = float64(i) * 1e-6
		sig[i] = complex(math.Sin(float64(i)*0.01), 0)
	}
	data, _ := simresult.NewTimeData(axis, map[string]simresult.Signal{"V(out)": sig})

	path := filepath.Join(t.TempDir(), "preview.png")
	if err := RenderPreview(data, nil, path); err != nil {
		t.Fatalf("RenderPreview failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Error("expected a non-empty preview file")
	}

	if err := RenderPreview(data, []string{"ghost"}, path); err == nil {
		t.Error("expected failure for unknown signal")
	}
}
