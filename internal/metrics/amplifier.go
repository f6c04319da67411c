package metrics

import (
	"fmt"
	"math"

	"github.com/causalgo/simcore/internal/simresult"
)

// Gain computes 20*log10(|H|) at the bin nearest freq f, or at the lowest
// frequency bin when f is nil. If inSignal is empty, a unit-amplitude input
// is assumed.
func Gain(data *simresult.SimulationData, outSignal, inSignal string, f *float64) Result {
	const name = "gain"
	if data.Axis != simresult.AxisFrequency {
		return NewError(name, "Gain", "requires a frequency-domain result", CategoryAmplifier, "dB")
	}
	out, ok := data.GetSignal(outSignal)
	if !ok {
		return NewError(name, "Gain", "output signal not found: "+outSignal, CategoryAmplifier, "dB")
	}

	idx := 0
	if f != nil {
		idx = nearestIndex(data.AxisData, *f)
	}

	outMag := cmplxAbs(out[idx])
	inMag := 1.0
	if inSignal != "" {
		in, ok := data.GetSignal(inSignal)
		if !ok {
			return NewError(name, "Gain", "input signal not found: "+inSignal, CategoryAmplifier, "dB")
		}
		inMag = cmplxAbs(in[idx])
		if inMag == 0 {
			return NewError(name, "Gain", "input amplitude is zero at evaluation bin", CategoryAmplifier, "dB")
		}
	}

	value := dbV(outMag / inMag)
	cond := fmt.Sprintf("f=%s", FormatFrequency(data.AxisData[idx]))
	return NewResult(name, "Gain", value, "dB", CategoryAmplifier, WithCondition(cond))
}

// Bandwidth finds the frequency at which gain drops 3 dB below ref (default:
// the low-frequency gain).
func Bandwidth(data *simresult.SimulationData, outSignal, inSignal string, ref *float64) Result {
	const name = "bandwidth"
	if data.Axis != simresult.AxisFrequency {
		return NewError(name, "Bandwidth", "requires a frequency-domain result", CategoryAmplifier, "Hz")
	}
	gainDB, err := gainCurveDB(data, outSignal, inSignal)
	if err != nil {
		return NewError(name, "Bandwidth", err.Error(), CategoryAmplifier, "Hz")
	}

	refVal := gainDB[0]
	if ref != nil {
		refVal = *ref
	}
	f, ok := linearCrossing(data.AxisData, gainDB, refVal-3, crossDown)
	if !ok {
		return NewError(name, "Bandwidth", "no -3 dB crossing found", CategoryAmplifier, "Hz")
	}
	return NewResult(name, "Bandwidth", f, "Hz", CategoryAmplifier)
}

// GBW is the gain-bandwidth product, derived from Gain at the lowest
// frequency bin and Bandwidth; fails if either primitive failed.
func GBW(data *simresult.SimulationData, outSignal, inSignal string) Result {
	const name = "gbw"
	gain := Gain(data, outSignal, inSignal, nil)
	bw := Bandwidth(data, outSignal, inSignal, nil)
	if !gain.IsValid() || !bw.IsValid() {
		return NewError(name, "Gain-Bandwidth Product", "composite requires valid gain and bandwidth", CategoryAmplifier, "Hz")
	}
	value := math.Pow(10, *gain.Value/20) * (*bw.Value)
	return NewResult(name, "Gain-Bandwidth Product", value, "Hz", CategoryAmplifier)
}

// PhaseMargin computes 180 + phase(unityGainFreq).
func PhaseMargin(data *simresult.SimulationData, outSignal, inSignal string) Result {
	const name = "phase_margin"
	if data.Axis != simresult.AxisFrequency {
		return NewError(name, "Phase Margin", "requires a frequency-domain result", CategoryAmplifier, "°")
	}
	gainDB, err := gainCurveDB(data, outSignal, inSignal)
	if err != nil {
		return NewError(name, "Phase Margin", err.Error(), CategoryAmplifier, "°")
	}
	uf, ok := linearCrossing(data.AxisData, gainDB, 0, crossDown)
	if !ok {
		return NewError(name, "Phase Margin", "no unity-gain crossing found", CategoryAmplifier, "°")
	}
	phaseDB := phaseCurveDeg(data, outSignal)
	ph, ok := interpAt(data.AxisData, phaseDB, uf)
	if !ok {
		return NewError(name, "Phase Margin", "unity-gain frequency out of phase data range", CategoryAmplifier, "°")
	}
	return NewResult(name, "Phase Margin", 180+ph, "°", CategoryAmplifier,
		WithCondition(fmt.Sprintf("f_u=%s", FormatFrequency(uf))))
}

// GainMargin computes -gain(phase-crossing-at-180deg).
func GainMargin(data *simresult.SimulationData, outSignal, inSignal string) Result {
	const name = "gain_margin"
	if data.Axis != simresult.AxisFrequency {
		return NewError(name, "Gain Margin", "requires a frequency-domain result", CategoryAmplifier, "dB")
	}
	phaseDeg := phaseCurveDeg(data, outSignal)
	pf, ok := linearCrossing(data.AxisData, phaseDeg, -180, crossDown)
	if !ok {
		return NewError(name, "Gain Margin", "no -180° crossing found", CategoryAmplifier, "dB")
	}
	gainDB, err := gainCurveDB(data, outSignal, inSignal)
	if err != nil {
		return NewError(name, "Gain Margin", err.Error(), CategoryAmplifier, "dB")
	}
	g, ok := interpAt(data.AxisData, gainDB, pf)
	if !ok {
		return NewError(name, "Gain Margin", "phase crossing out of gain data range", CategoryAmplifier, "dB")
	}
	return NewResult(name, "Gain Margin", -g, "dB", CategoryAmplifier,
		WithCondition(fmt.Sprintf("f=%s", FormatFrequency(pf))))
}

// InputImpedance and OutputImpedance return |V|/|I| at the lowest-frequency
// bin.
func InputImpedance(data *simresult.SimulationData, vSignal, iSignal string) Result {
	return impedance(data, vSignal, iSignal, "input_impedance", "Input Impedance")
}

func OutputImpedance(data *simresult.SimulationData, vSignal, iSignal string) Result {
	return impedance(data, vSignal, iSignal, "output_impedance", "Output Impedance")
}

func impedance(data *simresult.SimulationData, vSignal, iSignal, name, display string) Result {
	v, ok := data.GetSignal(vSignal)
	if !ok {
		return NewError(name, display, "voltage signal not found: "+vSignal, CategoryAmplifier, "Ω")
	}
	i, ok := data.GetSignal(iSignal)
	if !ok {
		return NewError(name, display, "current signal not found: "+iSignal, CategoryAmplifier, "Ω")
	}
	if cmplxAbs(i[0]) == 0 {
		return NewError(name, display, "current is zero at evaluation bin", CategoryAmplifier, "Ω")
	}
	return NewResult(name, display, cmplxAbs(v[0])/cmplxAbs(i[0]), "Ω", CategoryAmplifier)
}

// CMRR and PSRR are 20*log10 magnitude ratios at the lowest bin.
func CMRR(data *simresult.SimulationData, diffSignal, cmSignal string) Result {
	return ratioDB(data, diffSignal, cmSignal, "cmrr", "CMRR")
}

func PSRR(data *simresult.SimulationData, outSignal, supplySignal string) Result {
	return ratioDB(data, outSignal, supplySignal, "psrr", "PSRR")
}

func ratioDB(data *simresult.SimulationData, a, b, name, display string) Result {
	sa, ok := data.GetSignal(a)
	if !ok {
		return NewError(name, display, "signal not found: "+a, CategoryAmplifier, "dB")
	}
	sb, ok := data.GetSignal(b)
	if !ok {
		return NewError(name, display, "signal not found: "+b, CategoryAmplifier, "dB")
	}
	if cmplxAbs(sb[0]) == 0 {
		return NewError(name, display, "denominator is zero at evaluation bin", CategoryAmplifier, "dB")
	}
	return NewResult(name, display, dbV(cmplxAbs(sa[0])/cmplxAbs(sb[0])), "dB", CategoryAmplifier)
}

// SlewRateRise and SlewRateFall measure the slope between the low% and
// high% crossings of a transient edge, in V/µs.
func SlewRateRise(data *simresult.SimulationData, outSignal string, lowPct, highPct float64) Result {
	return slewRate(data, outSignal, lowPct, highPct, true)
}

func SlewRateFall(data *simresult.SimulationData, outSignal string, lowPct, highPct float64) Result {
	return slewRate(data, outSignal, lowPct, highPct, false)
}

func slewRate(data *simresult.SimulationData, outSignal string, lowPct, highPct float64, rising bool) Result {
	name, display := "slew_rate_rise", "Slew Rate (Rise)"
	if !rising {
		name, display = "slew_rate_fall", "Slew Rate (Fall)"
	}
	if data.Axis != simresult.AxisTime {
		return NewError(name, display, "requires a time-domain result", CategoryAmplifier, "V/µs")
	}
	sig, ok := data.GetSignal(outSignal)
	if !ok {
		return NewError(name, display, "signal not found: "+outSignal, CategoryAmplifier, "V/µs")
	}
	y := sig.Real()
	lo, hi := minMaxFloat(y)
	span := hi - lo
	vLow := lo + span*lowPct/100
	vHigh := lo + span*highPct/100

	var t1, t2 float64
	var ok1, ok2 bool
	if rising {
		t1, ok1 = linearCrossing(data.AxisData, y, vLow, crossUp)
		t2, ok2 = linearCrossingAfter(data.AxisData, y, vHigh, crossUp, t1)
	} else {
		t1, ok1 = linearCrossing(data.AxisData, y, vHigh, crossDown)
		t2, ok2 = linearCrossingAfter(data.AxisData, y, vLow, crossDown, t1)
	}
	if !ok1 || !ok2 || t2 <= t1 {
		return NewError(name, display, "required edge crossings not found", CategoryAmplifier, "V/µs")
	}
	var dv float64
	if rising {
		dv = vHigh - vLow
	} else {
		dv = vLow - vHigh
	}
	rate := dv / ((t2 - t1) * 1e6)
	return NewResult(name, display, rate, "V/µs", CategoryAmplifier,
		WithCondition(fmt.Sprintf("%.0f%%/%.0f%%", lowPct, highPct)))
}

// SettlingTime walks backward from the end to find the last sample that
// deviates from target by more than tolPct percent.
func SettlingTime(data *simresult.SimulationData, outSignal string, target *float64, tolPct float64) Result {
	const name = "settling_time"
	if data.Axis != simresult.AxisTime {
		return NewError(name, "Settling Time", "requires a time-domain result", CategoryAmplifier, "s")
	}
	sig, ok := data.GetSignal(outSignal)
	if !ok {
		return NewError(name, "Settling Time", "signal not found: "+outSignal, CategoryAmplifier, "s")
	}
	y := sig.Real()
	if len(y) == 0 {
		return NewError(name, "Settling Time", "signal is empty", CategoryAmplifier, "s")
	}
	tgt := y[len(y)-1]
	if target != nil {
		tgt = *target
	}
	threshold := math.Abs(tgt) * tolPct / 100

	lastBad := -1
	for i := len(y) - 1; i >= 0; i-- {
		if math.Abs(y[i]-tgt) > threshold {
			lastBad = i
			break
		}
	}
	if lastBad == -1 {
		return NewResult(name, "Settling Time", 0, "s", CategoryAmplifier)
	}
	if lastBad+1 >= len(data.AxisData) {
		return NewError(name, "Settling Time", "signal never settles within tolerance", CategoryAmplifier, "s")
	}
	value := data.AxisData[lastBad+1] - data.AxisData[0]
	return NewResult(name, "Settling Time", value, "s", CategoryAmplifier,
		WithCondition(fmt.Sprintf("tol=%.1f%%", tolPct)))
}

// Overshoot computes (peak - final) / (final - initial) * 100 on a step,
// clamped to >= 0.
func Overshoot(data *simresult.SimulationData, outSignal string, final *float64) Result {
	const name = "overshoot"
	if data.Axis != simresult.AxisTime {
		return NewError(name, "Overshoot", "requires a time-domain result", CategoryAmplifier, "%")
	}
	sig, ok := data.GetSignal(outSignal)
	if !ok {
		return NewError(name, "Overshoot", "signal not found: "+outSignal, CategoryAmplifier, "%")
	}
	y := sig.Real()
	if len(y) == 0 {
		return NewError(name, "Overshoot", "signal is empty", CategoryAmplifier, "%")
	}
	initial := y[0]
	finalVal := y[len(y)-1]
	if final != nil {
		finalVal = *final
	}
	span := finalVal - initial
	if span == 0 {
		return NewError(name, "Overshoot", "final equals initial, overshoot undefined", CategoryAmplifier, "%")
	}

	var extreme float64
	if span > 0 {
		extreme, _ = maxFloat(y)
	} else {
		extreme, _ = minFloatVal(y)
	}
	value := (extreme - finalVal) / span * 100
	if span < 0 {
		value = -value
	}
	if value < 0 {
		value = 0
	}
	return NewResult(name, "Overshoot", value, "%", CategoryAmplifier)
}

// OffsetVoltage returns dcOut - expected, optionally divided by gain when
// referred to the input.
func OffsetVoltage(data *simresult.SimulationData, outSignal string, expected float64, dividerGain *float64) Result {
	const name = "offset_voltage"
	sig, ok := data.GetSignal(outSignal)
	if !ok {
		return NewError(name, "Offset Voltage", "signal not found: "+outSignal, CategoryAmplifier, "V")
	}
	y := sig.Real()
	if len(y) == 0 {
		return NewError(name, "Offset Voltage", "signal is empty", CategoryAmplifier, "V")
	}
	dcOut := y[len(y)-1]
	offset := dcOut - expected
	if dividerGain != nil && *dividerGain != 0 {
		offset /= *dividerGain
	}
	return NewResult(name, "Offset Voltage", offset, "V", CategoryAmplifier, WithConfidence(0.9))
}

// --- shared helpers ---

func gainCurveDB(data *simresult.SimulationData, outSignal, inSignal string) ([]float64, error) {
	out, ok := data.GetSignal(outSignal)
	if !ok {
		return nil, fmt.Errorf("output signal not found: %s", outSignal)
	}
	curve := make([]float64, len(out))
	if inSignal == "" {
		for i, v := range out {
			curve[i] = dbV(cmplxAbs(v))
		}
		return curve, nil
	}
	in, ok := data.GetSignal(inSignal)
	if !ok {
		return nil, fmt.Errorf("input signal not found: %s", inSignal)
	}
	for i := range out {
		inMag := cmplxAbs(in[i])
		if inMag == 0 {
			curve[i] = math.Inf(-1)
			continue
		}
		curve[i] = dbV(cmplxAbs(out[i]) / inMag)
	}
	return curve, nil
}

func phaseCurveDeg(data *simresult.SimulationData, outSignal string) []float64 {
	out, _ := data.GetSignal(outSignal)
	curve := make([]float64, len(out))
	for i, v := range out {
		curve[i] = imag(complexLog(v)) * 180 / math.Pi
	}
	return curve
}

func complexLog(v complex128) complex128 {
	return complex(0, math.Atan2(imag(v), real(v)))
}

func cmplxAbs(v complex128) float64 {
	return math.Hypot(real(v), imag(v))
}

func minMaxFloat(vals []float64) (float64, float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func maxFloat(vals []float64) (float64, int) {
	best, bi := vals[0], 0
	for i, v := range vals[1:] {
		if v > best {
			best, bi = v, i+1
		}
	}
	return best, bi
}

func minFloatVal(vals []float64) (float64, int) {
	best, bi := vals[0], 0
	for i, v := range vals[1:] {
		if v < best {
			best, bi = v, i+1
		}
	}
	return best, bi
}
