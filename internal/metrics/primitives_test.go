package metrics

import (
	"math"
	"testing"
)

func TestNearestIndex(t *testing.T) {
	xs := []float64{1, 10, 100, 1000}
	cases := []struct {
		target float64
		want   int
	}{
		{0, 0}, {5, 0}, {6, 1}, {90, 2}, {5000, 3},
	}
	for _, tc := range cases {
		if got := nearestIndex(xs, tc.target); got != tc.want {
			t.Errorf("nearestIndex(%v) = %d, want %d", tc.target, got, tc.want)
		}
	}
}

func TestLinearCrossing(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{10, 8, 4, 0}

	got, ok := linearCrossing(x, y, 6, crossDown)
	if !ok {
		t.Fatal("expected a crossing")
	}
	within(t, got, 1.5, 1e-12, "downward crossing at 6")

	if _, ok := linearCrossing(x, y, 6, crossUp); ok {
		t.Error("no upward crossing on a falling curve")
	}
	if _, ok := linearCrossing(x, y, 20, crossDown); ok {
		t.Error("no crossing above the data range")
	}

	// Direction filters out opposite-edge crossings on a non-monotone
	// curve; within one direction the first match wins.
	y2 := []float64{0, 10, 0, 10}
	got, ok = linearCrossing(x, y2, 5, crossUp)
	if !ok {
		t.Fatal("expected an upward crossing")
	}
	within(t, got, 0.5, 1e-12, "first upward crossing")

	got, ok = linearCrossing(x, y2, 5, crossDown)
	if !ok {
		t.Fatal("expected a downward crossing")
	}
	within(t, got, 1.5, 1e-12, "first downward crossing")
}

func TestLinearCrossingAfter(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{0, 10, 0, 10, 0}

	got, ok := linearCrossingAfter(x, y, 5, crossUp, 1.0)
	if !ok {
		t.Fatal("expected a later upward crossing")
	}
	within(t, got, 2.5, 1e-12, "upward crossing past t=1")
}

func TestInterpAt(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{0, 10, 30}

	v, ok := interpAt(x, y, 0.5)
	if !ok {
		t.Fatal("expected in-range interpolation")
	}
	within(t, v, 5, 1e-12, "interp halfway")

	v, ok = interpAt(x, y, 2)
	if !ok || v != 30 {
		t.Errorf("interp at endpoint = %v, want 30", v)
	}

	if _, ok := interpAt(x, y, 3); ok {
		t.Error("out-of-range query must fail")
	}
}

func TestParabolicRefine(t *testing.T) {
	// Samples of a parabola peaking at x = 1.25.
	f := func(x float64) float64 { return 4 - (x-1.25)*(x-1.25) }
	x := []float64{0, 1, 2, 3}
	y := []float64{f(0), f(1), f(2), f(3)}

	peakX, peakY := parabolicRefine(x, y, 1)
	within(t, peakX, 1.25, 1e-9, "refined peak position")
	within(t, peakY, 4, 1e-9, "refined peak value")

	// Boundary peak falls back to the raw sample.
	peakX, peakY = parabolicRefine(x, []float64{5, 1, 1, 1}, 0)
	if peakX != 0 || peakY != 5 {
		t.Error("boundary peak should return the raw sample")
	}
}

func TestFormatSIPrefixes(t *testing.T) {
	cases := []struct {
		value float64
		fn    func(float64) string
		want  string
	}{
		{1.5e3, FormatFrequency, "1.500 kHz"},
		{2.5e6, FormatFrequency, "2.500 MHz"},
		{1.5e-6, FormatCurrent, "1.500 µA"},
		{3.3e-3, FormatPower, "3.300 mW"},
		{2e-9, FormatTime, "2.000 ns"},
		{0, FormatFrequency, "0 Hz"},
	}
	for _, tc := range cases {
		if got := tc.fn(tc.value); got != tc.want {
			t.Errorf("format(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestDBHelpers(t *testing.T) {
	within(t, dbV(10), 20, 1e-12, "20log10(10)")
	within(t, dbPower(10), 10, 1e-12, "10log10(10)")
	if !math.IsInf(dbV(0), -1) {
		t.Error("dbV(0) must be -Inf")
	}
}
