package metrics

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/causalgo/simcore/internal/simresult"
)

func within(t *testing.T, got, want, tol float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %v, want %v (tol %v)", msg, got, want, tol)
	}
}

func mustValue(t *testing.T, r Result) float64 {
	t.Helper()
	if !r.IsValid() {
		t.Fatalf("%s failed: %s", r.Name, r.ErrorMessage)
	}
	return *r.Value
}

// singlePoleAC builds an AC sweep of H(f) = a0 / (1 + j f/fc) over
// logarithmically spaced bins.
func singlePoleAC(t *testing.T, a0, fc, fStart, fStop float64, bins int) *simresult.SimulationData {
	t.Helper()
	freq := make([]float64, bins)
	vout := make(simresult.Signal, bins)
	logStart, logStop := math.Log10(fStart), math.Log10(fStop)
	for i := range freq {
		f := math.Pow(10, logStart+(logStop-logStart)*float64(i)/float64(bins-1))
		freq[i] = f
		vout[i] = complex(a0, 0) / (1 + complex(0, f/fc))
	}
	data, err := simresult.NewFrequencyData(freq, map[string]simresult.Signal{"V(out)": vout})
	if err != nil {
		t.Fatalf("failed to build AC data: %v", err)
	}
	return data
}

func TestGainAtOneKilohertz(t *testing.T) {
	data := singlePoleAC(t, 1000, 1000, 1, 1e6, 1001)

	f := 1000.0
	gain := Gain(data, "V(out)", "", &f)
	want := 20 * math.Log10(cmplx.Abs(complex(1000, 0)/complex(1, 1)))
	within(t, mustValue(t, gain), want, 0.05, "gain at 1 kHz")
	within(t, mustValue(t, gain), 56.99, 0.05, "gain at 1 kHz (absolute)")
}

func TestBandwidthOfSinglePole(t *testing.T) {
	data := singlePoleAC(t, 1000, 1000, 1, 1e6, 61) // 10 points per decade

	bw := Bandwidth(data, "V(out)", "", nil)
	got := mustValue(t, bw)
	if math.Abs(got-1000)/1000 > 0.01 {
		t.Errorf("bandwidth = %v Hz, want 1000 Hz within 1%%", got)
	}
}

func TestGBWComposite(t *testing.T) {
	data := singlePoleAC(t, 1000, 1000, 1, 1e6, 1001)

	gain := mustValue(t, Gain(data, "V(out)", "", nil))
	bw := mustValue(t, Bandwidth(data, "V(out)", "", nil))
	gbw := mustValue(t, GBW(data, "V(out)", ""))
	within(t, gbw, math.Pow(10, gain/20)*bw, 1e-6, "gbw identity")
}

func TestGBWPropagatesDependencyFailure(t *testing.T) {
	// A flat response never crosses -3 dB, so bandwidth fails and gbw must
	// report the failure rather than a value.
	freq := []float64{1, 10, 100}
	flat := simresult.Signal{complex(10, 0), complex(10, 0), complex(10, 0)}
	data, _ := simresult.NewFrequencyData(freq, map[string]simresult.Signal{"V(out)": flat})

	gbw := GBW(data, "V(out)", "")
	if gbw.IsValid() {
		t.Error("expected gbw to fail when bandwidth fails")
	}
}

func TestPhaseMarginOfSinglePole(t *testing.T) {
	// Unity-gain frequency sits three decades above the pole, where the
	// phase has settled to -90 degrees.
	data := singlePoleAC(t, 1000, 100, 1, 1e7, 71)

	pm := mustValue(t, PhaseMargin(data, "V(out)", ""))
	within(t, pm, 90, 0.5, "phase margin of single-pole rolloff")
}

func TestGainMarginRequiresPhaseCrossing(t *testing.T) {
	// A single pole never reaches -180 degrees.
	data := singlePoleAC(t, 1000, 100, 1, 1e7, 71)
	gm := GainMargin(data, "V(out)", "")
	if gm.IsValid() {
		t.Error("expected gain margin to fail without a -180° crossing")
	}
}

func TestGainWithExplicitInput(t *testing.T) {
	freq := []float64{1, 10, 100}
	out := simresult.Signal{complex(100, 0), complex(100, 0), complex(100, 0)}
	in := simresult.Signal{complex(2, 0), complex(2, 0), complex(2, 0)}
	data, _ := simresult.NewFrequencyData(freq, map[string]simresult.Signal{
		"V(out)": out, "V(in)": in,
	})

	gain := mustValue(t, Gain(data, "V(out)", "V(in)", nil))
	within(t, gain, 20*math.Log10(50), 1e-9, "gain referred to input")
}

func TestImpedanceAndRatioMetrics(t *testing.T) {
	freq := []float64{1, 10}
	data, _ := simresult.NewFrequencyData(freq, map[string]simresult.Signal{
		"V(in)":  {complex(1, 0), complex(1, 0)},
		"I(Vin)": {complex(1e-3, 0), complex(1e-3, 0)},
		"V(out)": {complex(100, 0), complex(100, 0)},
		"V(cm)":  {complex(0.1, 0), complex(0.1, 0)},
	})

	z := mustValue(t, InputImpedance(data, "V(in)", "I(Vin)"))
	within(t, z, 1000, 1e-9, "input impedance")

	cmrr := mustValue(t, CMRR(data, "V(out)", "V(cm)"))
	within(t, cmrr, 60, 1e-9, "cmrr")
}

// rampThenFlat builds the classic slew measurement stimulus: v = slope*t up
// to tEdge, then flat.
func rampThenFlat(t *testing.T, slope, tEdge, tEnd, dt float64) *simresult.SimulationData {
	t.Helper()
	n := int(tEnd/dt) + 1
	axis := make([]float64, n)
	vout := make(simresult.Signal, n)
	for i := range axis {
		ti := float64(i) * dt
		axis[i] = ti
		v := slope * ti
		if ti > tEdge {
			v = slope * tEdge
		}
		vout[i] = complex(v, 0)
	}
	data, err := simresult.NewTimeData(axis, map[string]simresult.Signal{"V(out)": vout})
	if err != nil {
		t.Fatalf("failed to build ramp data: %v", err)
	}
	return data
}

func TestSlewRateOfLinearRamp(t *testing.T) {
	data := rampThenFlat(t, 1e6, 5e-6, 10e-6, 1e-8)

	sr := mustValue(t, SlewRateRise(data, "V(out)", 10, 90))
	within(t, sr, 1.0, 1e-3, "slew rate of 1 V/µs ramp")
}

func TestSlewRateRequiresTimeAxis(t *testing.T) {
	data := singlePoleAC(t, 10, 100, 1, 1e4, 11)
	if SlewRateRise(data, "V(out)", 10, 90).IsValid() {
		t.Error("expected failure on a frequency-domain result")
	}
}

func TestSettlingTime(t *testing.T) {
	// Step that reaches 1.0 at t=3µs and stays there; with 1% tolerance the
	// last out-of-band sample is just before the settle point.
	axis := []float64{0, 1e-6, 2e-6, 3e-6, 4e-6, 5e-6}
	vout := simresult.Signal{0, complex(0.5, 0), complex(0.9, 0), complex(1.0, 0), complex(1.0, 0), complex(1.0, 0)}
	data, _ := simresult.NewTimeData(axis, map[string]simresult.Signal{"V(out)": vout})

	st := mustValue(t, SettlingTime(data, "V(out)", nil, 1))
	within(t, st, 3e-6, 1e-12, "settling time")
}

func TestOvershoot(t *testing.T) {
	axis := []float64{0, 1e-6, 2e-6, 3e-6, 4e-6}
	vout := simresult.Signal{0, complex(1.2, 0), complex(0.95, 0), complex(1.0, 0), complex(1.0, 0)}
	data, _ := simresult.NewTimeData(axis, map[string]simresult.Signal{"V(out)": vout})

	os := mustValue(t, Overshoot(data, "V(out)", nil))
	within(t, os, 20, 1e-9, "overshoot of 1.2 peak on unit step")
}

func TestOvershootClampsToZero(t *testing.T) {
	axis := []float64{0, 1e-6, 2e-6}
	vout := simresult.Signal{0, complex(0.5, 0), complex(1.0, 0)}
	data, _ := simresult.NewTimeData(axis, map[string]simresult.Signal{"V(out)": vout})

	os := mustValue(t, Overshoot(data, "V(out)", nil))
	if os != 0 {
		t.Errorf("overshoot = %v, want 0 for a monotone step", os)
	}
}

func TestOffsetVoltage(t *testing.T) {
	axis := []float64{0, 1e-6}
	vout := simresult.Signal{complex(2.503, 0), complex(2.503, 0)}
	data, _ := simresult.NewTimeData(axis, map[string]simresult.Signal{"V(out)": vout})

	off := mustValue(t, OffsetVoltage(data, "V(out)", 2.5, nil))
	within(t, off, 0.003, 1e-12, "output-referred offset")

	gain := 100.0
	offIn := mustValue(t, OffsetVoltage(data, "V(out)", 2.5, &gain))
	within(t, offIn, 3e-5, 1e-15, "input-referred offset")
}

func TestAmplifierMetricsReportMissingSignal(t *testing.T) {
	data := singlePoleAC(t, 10, 100, 1, 1e4, 11)
	r := Gain(data, "V(nope)", "", nil)
	if r.IsValid() || r.ErrorMessage == "" {
		t.Error("expected error result for missing signal")
	}
	if r.Value != nil {
		t.Error("error result must carry no value")
	}
}
