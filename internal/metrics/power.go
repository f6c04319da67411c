package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/causalgo/simcore/internal/simresult"
)

var supplyCurrentAliases = []string{"I(VDD)", "I(Vdd)", "I(Vcc)", "I(VCC)", "I(V1)", "supply_current"}

// steadyStateMean returns the mean of the last 10% of y, used as the
// steady-state value for transient power metrics.
func steadyStateMean(y []float64) float64 {
	n := len(y)
	start := n - n/10
	if start >= n {
		start = n - 1
	}
	if start < 0 {
		start = 0
	}
	return stat.Mean(y[start:], nil)
}

func resolveSignal(data *simresult.SimulationData, name string, aliases []string) (simresult.Signal, string, bool) {
	if name != "" {
		if s, ok := data.GetSignal(name); ok {
			return s, name, true
		}
	}
	return data.GetSignalAny(aliases...)
}

// QuiescentCurrent reports the steady-state supply current, trying common
// aliases when the caller doesn't name a signal.
func QuiescentCurrent(data *simresult.SimulationData, supplyCurrentSignal string) Result {
	const name, display, unit = "quiescent_current", "Quiescent Current", "A"
	sig, _, ok := resolveSignal(data, supplyCurrentSignal, supplyCurrentAliases)
	if !ok {
		return NewError(name, display, "no supply current signal found", CategoryPower, unit)
	}
	value := steadyStateMean(sig.Real())
	if value < 0 {
		value = -value
	}
	return NewResult(name, display, value, unit, CategoryPower)
}

// PowerConsumption is the mean of V*I.
func PowerConsumption(data *simresult.SimulationData, vSignal, iSignal string, vddValue *float64) Result {
	const name, display, unit = "power_consumption", "Power Consumption", "W"
	var v []float64
	if vddValue != nil {
		i, ok := data.GetSignal(iSignal)
		if !ok {
			return NewError(name, display, "current signal not found: "+iSignal, CategoryPower, unit)
		}
		mean := elementwiseMeanProduct(constSlice(*vddValue, len(i)), i.Real())
		return NewResult(name, display, mean, unit, CategoryPower)
	}
	vSig, ok := data.GetSignal(vSignal)
	if !ok {
		return NewError(name, display, "voltage signal not found: "+vSignal, CategoryPower, unit)
	}
	iSig, ok := data.GetSignal(iSignal)
	if !ok {
		return NewError(name, display, "current signal not found: "+iSignal, CategoryPower, unit)
	}
	v = vSig.Real()
	mean := elementwiseMeanProduct(v, iSig.Real())
	return NewResult(name, display, mean, unit, CategoryPower)
}

func elementwiseMeanProduct(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func constSlice(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Efficiency is 100 * mean(Vout*Iout) / mean(Vin*Iin).
func Efficiency(data *simresult.SimulationData, vIn, iIn, vOut, iOut string) Result {
	const name, display, unit = "efficiency", "Efficiency", "%"
	vi, ok := data.GetSignal(vIn)
	if !ok {
		return NewError(name, display, "signal not found: "+vIn, CategoryPower, unit)
	}
	ii, ok := data.GetSignal(iIn)
	if !ok {
		return NewError(name, display, "signal not found: "+iIn, CategoryPower, unit)
	}
	vo, ok := data.GetSignal(vOut)
	if !ok {
		return NewError(name, display, "signal not found: "+vOut, CategoryPower, unit)
	}
	io, ok := data.GetSignal(iOut)
	if !ok {
		return NewError(name, display, "signal not found: "+iOut, CategoryPower, unit)
	}
	pin := elementwiseMeanProduct(vi.Real(), ii.Real())
	if pin == 0 {
		return NewError(name, display, "input power is zero", CategoryPower, unit)
	}
	pout := elementwiseMeanProduct(vo.Real(), io.Real())
	return NewResult(name, display, pout/pin*100, unit, CategoryPower)
}

// EfficiencyPoint is one sample of an efficiency curve.
type EfficiencyPoint struct {
	LoadCurrent float64
	Efficiency  float64
}

// EfficiencyCurve samples numPoints equally-spaced indices from the
// transient, computing efficiency at each, and reports the peak.
func EfficiencyCurve(data *simresult.SimulationData, vIn, iIn, vOut, iOut string, numPoints int) (peak EfficiencyPoint, curve []EfficiencyPoint, err error) {
	if numPoints <= 0 {
		numPoints = 10
	}
	vi, ok := data.GetSignal(vIn)
	if !ok {
		return EfficiencyPoint{}, nil, fmt.Errorf("signal not found: %s", vIn)
	}
	ii, ok := data.GetSignal(iIn)
	if !ok {
		return EfficiencyPoint{}, nil, fmt.Errorf("signal not found: %s", iIn)
	}
	vo, ok := data.GetSignal(vOut)
	if !ok {
		return EfficiencyPoint{}, nil, fmt.Errorf("signal not found: %s", vOut)
	}
	io, ok := data.GetSignal(iOut)
	if !ok {
		return EfficiencyPoint{}, nil, fmt.Errorf("signal not found: %s", iOut)
	}

	n := len(vi)
	step := n / numPoints
	if step < 1 {
		step = 1
	}
	curve = make([]EfficiencyPoint, 0, numPoints)
	for idx := 0; idx < n; idx += step {
		pin := real(vi[idx]) * real(ii[idx])
		pout := real(vo[idx]) * real(io[idx])
		eff := 0.0
		if pin != 0 {
			eff = pout / pin * 100
		}
		pt := EfficiencyPoint{LoadCurrent: real(io[idx]), Efficiency: eff}
		curve = append(curve, pt)
		if eff > peak.Efficiency {
			peak = pt
		}
	}
	return peak, curve, nil
}

// LoadRegulation compares v_out at no-load and full-load DC sweep points.
func LoadRegulation(data *simresult.SimulationData, vOutSignal string, noLoadIdx int, fullLoadIdx *int) Result {
	const name, display, unit = "load_regulation", "Load Regulation", "%"
	sig, ok := data.GetSignal(vOutSignal)
	if !ok {
		return NewError(name, display, "signal not found: "+vOutSignal, CategoryPower, unit)
	}
	v := sig.Real()
	if noLoadIdx < 0 || noLoadIdx >= len(v) {
		return NewError(name, display, "no-load index out of range", CategoryPower, unit)
	}
	fl := len(v) - 1
	if fullLoadIdx != nil {
		fl = *fullLoadIdx
	}
	if fl < 0 || fl >= len(v) {
		return NewError(name, display, "full-load index out of range", CategoryPower, unit)
	}
	vNoLoad, vFullLoad := v[noLoadIdx], v[fl]
	if vNoLoad == 0 {
		return NewError(name, display, "no-load voltage is zero", CategoryPower, unit)
	}
	value := (vNoLoad - vFullLoad) / vNoLoad * 100
	return NewResult(name, display, value, unit, CategoryPower)
}

// LineRegulation reports the slope of v_out over a v_in DC sweep.
func LineRegulation(data *simresult.SimulationData, vInAxisSignal, vOutSignal string) Result {
	const name, display, unit = "line_regulation", "Line Regulation", "%/V"
	vinSig, ok := data.GetSignal(vInAxisSignal)
	if !ok {
		return NewError(name, display, "signal not found: "+vInAxisSignal, CategoryPower, unit)
	}
	voutSig, ok := data.GetSignal(vOutSignal)
	if !ok {
		return NewError(name, display, "signal not found: "+vOutSignal, CategoryPower, unit)
	}
	vin, vout := vinSig.Real(), voutSig.Real()
	if len(vin) < 2 {
		return NewError(name, display, "insufficient sweep points", CategoryPower, unit)
	}
	dvin := vin[len(vin)-1] - vin[0]
	if dvin == 0 {
		return NewError(name, display, "Vin sweep has zero span", CategoryPower, unit)
	}
	dvout := vout[len(vout)-1] - vout[0]
	nominal := vout[0]
	if nominal == 0 {
		return NewError(name, display, "nominal Vout is zero", CategoryPower, unit)
	}
	value := (dvout / nominal * 100) / dvin
	return NewResult(name, display, value, unit, CategoryPower)
}

// DropoutVoltage finds the Vin at which Vout first falls below
// threshold*target while sweeping Vin downward.
func DropoutVoltage(data *simresult.SimulationData, vOutSignal, vInAxisSignal string, target float64, threshold float64) Result {
	const name, display, unit = "dropout_voltage", "Dropout Voltage", "V"
	if threshold <= 0 {
		threshold = 0.99
	}
	vinSig, ok := data.GetSignal(vInAxisSignal)
	if !ok {
		return NewError(name, display, "signal not found: "+vInAxisSignal, CategoryPower, unit)
	}
	voutSig, ok := data.GetSignal(vOutSignal)
	if !ok {
		return NewError(name, display, "signal not found: "+vOutSignal, CategoryPower, unit)
	}
	vin, vout := vinSig.Real(), voutSig.Real()
	level := target * threshold
	vDropout, ok := linearCrossing(vin, vout, level, crossUp)
	if !ok {
		return NewError(name, display, "no dropout crossing found", CategoryPower, unit)
	}
	return NewResult(name, display, vDropout, unit, CategoryPower,
		WithCondition(fmt.Sprintf("target=%.3fV, threshold=%.0f%%", target, threshold*100)))
}

// EstimateThermalRise estimates junction temperature rise from dissipated
// power and a package thermal resistance, a supplemented diagnostic beyond
// the original family's scope.
func EstimateThermalRise(dissipatedWatts, thetaJA float64) Result {
	const name, display, unit = "thermal_rise", "Estimated Thermal Rise", "°C"
	if thetaJA < 0 {
		return NewError(name, display, "thermal resistance must be non-negative", CategoryPower, unit)
	}
	value := dissipatedWatts * thetaJA
	return NewResult(name, display, value, unit, CategoryPower, WithConfidence(0.6))
}

// PowerLossBreakdown splits total dissipated power into conduction and
// switching loss estimates given a switching-loss fraction, clamped to [0, 1].
func PowerLossBreakdown(totalLossWatts, switchingFraction float64) (conduction, switching float64) {
	if switchingFraction < 0 {
		switchingFraction = 0
	}
	if switchingFraction > 1 {
		switchingFraction = 1
	}
	switching = totalLossWatts * switchingFraction
	conduction = totalLossWatts - switching
	return conduction, switching
}
