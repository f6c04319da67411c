package metrics

import (
	"testing"

	"github.com/causalgo/simcore/internal/simresult"
)

func constSignal(v float64, n int) simresult.Signal {
	sig := make(simresult.Signal, n)
	for i := range sig {
		sig[i] = complex(v, 0)
	}
	return sig
}

func timeAxis(n int, dt float64) []float64 {
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = float64(i) * dt
	}
	return axis
}

func TestQuiescentCurrentSteadyState(t *testing.T) {
	// Startup transient decays to 1 mA; the steady-state window is the last
	// 10% of samples.
	n := 1000
	sig := make(simresult.Signal, n)
	for i := range sig {
		v := 1e-3
		if i < n/2 {
			v = 10e-3
		}
		sig[i] = complex(v, 0)
	}
	data, _ := simresult.NewTimeData(timeAxis(n, 1e-6), map[string]simresult.Signal{"I(VDD)": sig})

	r := QuiescentCurrent(data, "")
	within(t, mustValue(t, r), 1e-3, 1e-9, "quiescent current from alias lookup")
}

func TestPowerConsumption(t *testing.T) {
	n := 100
	data, _ := simresult.NewTimeData(timeAxis(n, 1e-6), map[string]simresult.Signal{
		"V(vdd)": constSignal(3.3, n),
		"I(VDD)": constSignal(2e-3, n),
	})

	r := PowerConsumption(data, "V(vdd)", "I(VDD)", nil)
	within(t, mustValue(t, r), 6.6e-3, 1e-12, "power consumption V*I")

	vdd := 5.0
	r = PowerConsumption(data, "", "I(VDD)", &vdd)
	within(t, mustValue(t, r), 10e-3, 1e-12, "power with fixed supply voltage")
}

func TestEfficiency(t *testing.T) {
	n := 100
	data, _ := simresult.NewTimeData(timeAxis(n, 1e-6), map[string]simresult.Signal{
		"V(in)":   constSignal(12, n),
		"I(Vin)":  constSignal(1, n),
		"V(out)":  constSignal(5, n),
		"I(Vout)": constSignal(2, n),
	})

	r := Efficiency(data, "V(in)", "I(Vin)", "V(out)", "I(Vout)")
	within(t, mustValue(t, r), 10.0/12.0*100, 1e-9, "efficiency")
}

func TestEfficiencyCurvePeak(t *testing.T) {
	n := 100
	vin := constSignal(12, n)
	iin := constSignal(1, n)
	vout := constSignal(5, n)
	iout := make(simresult.Signal, n)
	for i := range iout {
		iout[i] = complex(float64(i+1)/float64(n), 0) // load ramps up
	}
	data, _ := simresult.NewTimeData(timeAxis(n, 1e-6), map[string]simresult.Signal{
		"V(in)": vin, "I(Vin)": iin, "V(out)": vout, "I(Vout)": iout,
	})

	peak, curve, err := EfficiencyCurve(data, "V(in)", "I(Vin)", "V(out)", "I(Vout)", 10)
	if err != nil {
		t.Fatalf("EfficiencyCurve failed: %v", err)
	}
	if len(curve) == 0 {
		t.Fatal("expected curve points")
	}
	// Output power grows with load while input power is fixed, so the peak
	// sits at the heaviest sampled load.
	last := curve[len(curve)-1]
	if peak.Efficiency != last.Efficiency {
		t.Errorf("peak = %+v, want the heaviest-load point %+v", peak, last)
	}
}

func TestLoadRegulation(t *testing.T) {
	// DC sweep from no load to full load: 5.0 V droops to 4.9 V.
	axis := []float64{0, 0.25, 0.5, 0.75, 1.0}
	vout := simresult.Signal{complex(5.0, 0), complex(4.975, 0), complex(4.95, 0), complex(4.925, 0), complex(4.9, 0)}
	data, _ := simresult.NewTimeData(axis, map[string]simresult.Signal{"V(out)": vout})

	r := LoadRegulation(data, "V(out)", 0, nil)
	within(t, mustValue(t, r), (5.0-4.9)/5.0*100, 1e-9, "load regulation")
}

func TestLineRegulation(t *testing.T) {
	axis := []float64{0, 1, 2, 3}
	data, _ := simresult.NewTimeData(axis, map[string]simresult.Signal{
		"V(in)":  {complex(6, 0), complex(8, 0), complex(10, 0), complex(12, 0)},
		"V(out)": {complex(5.00, 0), complex(5.01, 0), complex(5.02, 0), complex(5.03, 0)},
	})

	r := LineRegulation(data, "V(in)", "V(out)")
	want := (0.03 / 5.00 * 100) / 6.0 // %/V over the 6 V sweep
	within(t, mustValue(t, r), want, 1e-9, "line regulation")
}

func TestDropoutVoltage(t *testing.T) {
	// Vin sweep rising through regulation: Vout tracks then clamps at 5 V.
	n := 101
	vin := make([]float64, n)
	vinSig := make(simresult.Signal, n)
	vout := make(simresult.Signal, n)
	for i := range vin {
		v := 4 + 2*float64(i)/float64(n-1) // 4..6 V
		vin[i] = v
		vinSig[i] = complex(v, 0)
		out := v - 0.2 // 200 mV dropout element
		if out > 5 {
			out = 5
		}
		vout[i] = complex(out, 0)
	}
	data, _ := simresult.NewTimeData(vin, map[string]simresult.Signal{
		"V(out)": vout,
		"V(in)":  vinSig,
	})

	r := DropoutVoltage(data, "V(out)", "V(in)", 5.0, 0.99)
	// Vout crosses 0.99*5 = 4.95 V at Vin = 5.15 V.
	within(t, mustValue(t, r), 5.15, 0.01, "dropout crossing")
}

func TestEstimateThermalRise(t *testing.T) {
	r := EstimateThermalRise(0.5, 60)
	within(t, mustValue(t, r), 30, 1e-12, "thermal rise")
	if r.Confidence >= 1.0 {
		t.Error("thermal estimate should report reduced confidence")
	}

	if EstimateThermalRise(0.5, -1).IsValid() {
		t.Error("expected failure for negative thermal resistance")
	}
}

func TestPowerLossBreakdown(t *testing.T) {
	conduction, switching := PowerLossBreakdown(1.0, 0.3)
	within(t, conduction, 0.7, 1e-12, "conduction loss")
	within(t, switching, 0.3, 1e-12, "switching loss")

	conduction, switching = PowerLossBreakdown(1.0, 2.0)
	within(t, conduction, 0, 1e-12, "clamped conduction loss")
	within(t, switching, 1.0, 1e-12, "clamped switching loss")
}

func TestPowerMetricsReportMissingSignals(t *testing.T) {
	data, _ := simresult.NewTimeData([]float64{0, 1}, map[string]simresult.Signal{
		"V(x)": {0, 0},
	})
	if QuiescentCurrent(data, "").IsValid() {
		t.Error("expected failure without any supply current alias")
	}
	if Efficiency(data, "V(in)", "I(Vin)", "V(out)", "I(Vout)").IsValid() {
		t.Error("expected failure for missing efficiency signals")
	}
}
