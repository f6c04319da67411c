package metrics

import (
	"fmt"
	"math"

	"github.com/causalgo/simcore/internal/simresult"
)

// KBoltzmann is the Boltzmann constant in J/K.
const KBoltzmann = 1.380649e-23

// TRef is the standard reference temperature in kelvin used when one is
// not supplied.
const TRef = 290.0

var noiseAliases = map[string][]string{
	"input":  {"inoise", "inoise_total", "V(inoise)"},
	"output": {"onoise", "onoise_total", "V(onoise)"},
}

func noiseAmplitudes(data *simresult.SimulationData, which string) ([]float64, string, error) {
	names := noiseAliases[which]
	sig, name, ok := data.GetSignalAny(names...)
	if !ok {
		return nil, "", fmt.Errorf("no noise signal found (tried %v)", names)
	}
	return sig.Abs(), name, nil
}

// InputNoise and OutputNoise report the nearest-bin noise amplitude at f,
// in nV/sqrt(Hz).
func InputNoise(data *simresult.SimulationData, f float64) Result {
	return noiseAtFreq(data, "input", "input_noise", "Input-Referred Noise", f)
}

func OutputNoise(data *simresult.SimulationData, f float64) Result {
	return noiseAtFreq(data, "output", "output_noise", "Output-Referred Noise", f)
}

func noiseAtFreq(data *simresult.SimulationData, which, name, display string, f float64) Result {
	const unit = "nV/√Hz"
	if data.Axis != simresult.AxisFrequency {
		return NewError(name, display, "requires a frequency-domain result", CategoryNoise, unit)
	}
	amps, _, err := noiseAmplitudes(data, which)
	if err != nil {
		return NewError(name, display, err.Error(), CategoryNoise, unit)
	}
	idx := nearestIndex(data.AxisData, f)
	value := amps[idx] * 1e9
	return NewResult(name, display, value, unit, CategoryNoise,
		WithCondition(fmt.Sprintf("f=%s", FormatFrequency(data.AxisData[idx]))))
}

// IntegratedNoise performs trapezoidal integration of Vn(f)^2 across the
// requested frequency range (or the full axis) and reports sqrt(integral)
// in µV RMS.
func IntegratedNoise(data *simresult.SimulationData, which string, fMin, fMax *float64) Result {
	const name, display, unit = "integrated_noise", "Integrated Noise", "µV RMS"
	if data.Axis != simresult.AxisFrequency {
		return NewError(name, display, "requires a frequency-domain result", CategoryNoise, unit)
	}
	amps, _, err := noiseAmplitudes(data, which)
	if err != nil {
		return NewError(name, display, err.Error(), CategoryNoise, unit)
	}
	lo, hi := 0, len(data.AxisData)
	if fMin != nil {
		lo = nearestIndex(data.AxisData, *fMin)
	}
	if fMax != nil {
		hi = nearestIndex(data.AxisData, *fMax) + 1
	}
	if hi-lo < 2 {
		return NewError(name, display, "range too narrow for integration", CategoryNoise, unit)
	}
	sumSq := 0.0
	for i := lo + 1; i < hi; i++ {
		df := data.AxisData[i] - data.AxisData[i-1]
		v1, v2 := amps[i-1]*amps[i-1], amps[i]*amps[i]
		sumSq += 0.5 * (v1 + v2) * df
	}
	value := math.Sqrt(sumSq) * 1e6
	return NewResult(name, display, value, unit, CategoryNoise)
}

// NoiseFigure computes 10*log10(1 + Vn^2 / (4*k*T*Rs)) at f.
func NoiseFigure(data *simresult.SimulationData, rs float64, t, f float64) Result {
	const name, display, unit = "noise_figure", "Noise Figure", "dB"
	if data.Axis != simresult.AxisFrequency {
		return NewError(name, display, "requires a frequency-domain result", CategoryNoise, unit)
	}
	if t <= 0 {
		t = TRef
	}
	amps, _, err := noiseAmplitudes(data, "input")
	if err != nil {
		return NewError(name, display, err.Error(), CategoryNoise, unit)
	}
	idx := nearestIndex(data.AxisData, f)
	vn := amps[idx]
	thermalFloor := 4 * KBoltzmann * t * rs
	if thermalFloor <= 0 {
		return NewError(name, display, "Rs must be positive", CategoryNoise, unit)
	}
	value := dbPower(1 + (vn*vn)/thermalFloor)
	return NewResult(name, display, value, unit, CategoryNoise,
		WithCondition(fmt.Sprintf("Rs=%.0fΩ, T=%.0fK, f=%s", rs, t, FormatFrequency(data.AxisData[idx]))))
}

// SNR is 20*log10 of signal amplitude vs. integrated noise in the band.
func SNR(data *simresult.SimulationData, signalRMS float64, fMin, fMax *float64) Result {
	const name, display, unit = "snr", "Signal-to-Noise Ratio", "dB"
	integrated := IntegratedNoise(data, "output", fMin, fMax)
	if !integrated.IsValid() {
		return NewError(name, display, "integrated noise unavailable: "+integrated.ErrorMessage, CategoryNoise, unit)
	}
	noiseRMS := *integrated.Value * 1e-6
	if noiseRMS == 0 {
		return NewError(name, display, "integrated noise is zero", CategoryNoise, unit)
	}
	value := dbV(signalRMS / noiseRMS)
	return NewResult(name, display, value, unit, CategoryNoise)
}

// CornerFrequency estimates the white-noise floor from the top 20% of the
// band and finds the lowest frequency at which total noise crosses
// sqrt(2) times that floor, scanning downward.
func CornerFrequency(data *simresult.SimulationData, which string) Result {
	const name, display, unit = "corner_frequency", "1/f Corner Frequency", "Hz"
	if data.Axis != simresult.AxisFrequency {
		return NewError(name, display, "requires a frequency-domain result", CategoryNoise, unit)
	}
	amps, _, err := noiseAmplitudes(data, which)
	if err != nil {
		return NewError(name, display, err.Error(), CategoryNoise, unit)
	}
	n := len(amps)
	if n < 5 {
		return NewError(name, display, "insufficient points for estimation", CategoryNoise, unit)
	}
	topStart := n - n/5
	if topStart >= n {
		topStart = n - 1
	}
	sum := 0.0
	for _, v := range amps[topStart:] {
		sum += v
	}
	floor := sum / float64(n-topStart)
	threshold := floor * math.Sqrt2

	f, ok := linearCrossing(data.AxisData, amps, threshold, crossDown)
	if !ok {
		return NewError(name, display, "no corner crossing found", CategoryNoise, unit)
	}
	return NewResult(name, display, f, unit, CategoryNoise, WithConfidence(0.7))
}

// EquivalentNoiseBandwidth integrates |H(f)|^2 df over the full axis and
// normalises by the peak squared magnitude.
func EquivalentNoiseBandwidth(data *simresult.SimulationData, gainSignal string) Result {
	const name, display, unit = "equivalent_noise_bandwidth", "Equivalent Noise Bandwidth", "Hz"
	if data.Axis != simresult.AxisFrequency {
		return NewError(name, display, "requires a frequency-domain result", CategoryNoise, unit)
	}
	sig, ok := data.GetSignal(gainSignal)
	if !ok {
		return NewError(name, display, "signal not found: "+gainSignal, CategoryNoise, unit)
	}
	mag := sig.Abs()
	peak := 0.0
	for _, m := range mag {
		if m > peak {
			peak = m
		}
	}
	if peak == 0 {
		return NewError(name, display, "peak magnitude is zero", CategoryNoise, unit)
	}
	peakSq := peak * peak

	integral := 0.0
	for i := 1; i < len(mag); i++ {
		df := data.AxisData[i] - data.AxisData[i-1]
		v1, v2 := mag[i-1]*mag[i-1], mag[i]*mag[i]
		integral += 0.5 * (v1 + v2) * df
	}
	value := integral / peakSq
	return NewResult(name, display, value, unit, CategoryNoise)
}
