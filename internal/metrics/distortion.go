package metrics

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/causalgo/simcore/internal/simresult"
)

// MinFFTPoints is the minimum input length accepted by the distortion
// family's spectral front-end.
const MinFFTPoints = 256

// DefaultHarmonicOrder is the harmonic count used when the caller does not
// specify one.
const DefaultHarmonicOrder = 10

// Window names the window function applied before the FFT.
type Window string

const (
	WindowHann     Window = "hann"
	WindowHamming  Window = "hamming"
	WindowBlackman Window = "blackman"
	WindowRect     Window = "rect"
)

func windowCoefficients(w Window, n int) []float64 {
	coeffs := make([]float64, n)
	switch w {
	case WindowHamming:
		for i := range coeffs {
			coeffs[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		}
	case WindowBlackman:
		for i := range coeffs {
			x := 2 * math.Pi * float64(i) / float64(n)
			coeffs[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		}
	case WindowRect:
		for i := range coeffs {
			coeffs[i] = 1
		}
	default: // hann
		for i := range coeffs {
			coeffs[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
		}
	}
	return coeffs
}

// spectrum holds the normalised single-sided amplitude spectrum of a
// windowed real signal plus the bin-to-Hz conversion.
type spectrum struct {
	mags       []float64 // amplitude per bin, DC at index 0
	binHz      float64
	sampleRate float64
	n          int
}

// computeSpectrum polls ctx before each expensive sub-step: window
// application, the transform itself, and amplitude post-processing.
func computeSpectrum(ctx context.Context, axis, y []float64, w Window) (*spectrum, error) {
	n := len(y)
	if n < MinFFTPoints {
		return nil, fmt.Errorf("need at least %d points, got %d", MinFFTPoints, n)
	}
	dt := meanDelta(axis)
	if dt <= 0 {
		return nil, fmt.Errorf("non-positive sample interval")
	}
	sampleRate := 1 / dt

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("operation cancelled: %w", err)
	}
	win := windowCoefficients(w, n)
	windowed := make([]float64, n)
	winSum := 0.0
	for i, v := range y {
		windowed[i] = v * win[i]
		winSum += win[i]
	}
	winDCGain := winSum / float64(n)
	if winDCGain == 0 {
		return nil, fmt.Errorf("window DC gain is zero")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("operation cancelled: %w", err)
	}
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, windowed)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("operation cancelled: %w", err)
	}
	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		scale := 2.0 / float64(n) / winDCGain
		if i == 0 {
			scale = 1.0 / float64(n) / winDCGain
		}
		mags[i] = cmplxAbs(c) * scale
	}

	return &spectrum{
		mags:       mags,
		binHz:      sampleRate / float64(n),
		sampleRate: sampleRate,
		n:          n,
	}, nil
}

func meanDelta(axis []float64) float64 {
	if len(axis) < 2 {
		return 0
	}
	return (axis[len(axis)-1] - axis[0]) / float64(len(axis)-1)
}

func (s *spectrum) binToHz(bin int) float64 { return float64(bin) * s.binHz }

func (s *spectrum) hzToBin(hz float64) int {
	bin := int(math.Round(hz / s.binHz))
	if bin < 0 {
		bin = 0
	}
	if bin >= len(s.mags) {
		bin = len(s.mags) - 1
	}
	return bin
}

// findFundamental returns the bin with the largest amplitude at or above
// minHz, parabolically refined.
func (s *spectrum) findFundamental(minHz float64) (bin int, freq, amp float64) {
	startBin := s.hzToBin(minHz)
	if startBin == 0 {
		startBin = 1
	}
	best, bi := 0.0, startBin
	for i := startBin; i < len(s.mags); i++ {
		if s.mags[i] > best {
			best, bi = s.mags[i], i
		}
	}
	bins := make([]float64, len(s.mags))
	for i := range bins {
		bins[i] = float64(i)
	}
	refinedBin, refinedAmp := parabolicRefine(bins, s.mags, bi)
	return bi, refinedBin * s.binHz, refinedAmp
}

func parseWindow(name string) Window {
	switch Window(name) {
	case WindowHamming, WindowBlackman, WindowRect:
		return Window(name)
	default:
		return WindowHann
	}
}

// THD computes total harmonic distortion as a percentage: sqrt(sum of
// harmonic powers 2..K) / fundamental amplitude * 100.
func THD(ctx context.Context, data *simresult.SimulationData, signal string, window string, harmonics int, minFreq float64) Result {
	const name, display, unit = "thd", "Total Harmonic Distortion", "%"
	if harmonics <= 0 {
		harmonics = DefaultHarmonicOrder
	}
	if minFreq <= 0 {
		minFreq = 10
	}
	sig, ok := data.GetSignal(signal)
	if !ok {
		return NewError(name, display, "signal not found: "+signal, CategoryDistortion, unit)
	}
	spec, err := computeSpectrum(ctx, data.AxisData, sig.Real(), parseWindow(window))
	if err != nil {
		return NewError(name, display, err.Error(), CategoryDistortion, unit)
	}

	_, fundFreq, fundAmp := spec.findFundamental(minFreq)
	if fundAmp == 0 {
		return NewError(name, display, "fundamental amplitude is zero", CategoryDistortion, unit)
	}

	sumSq := 0.0
	for k := 2; k <= harmonics; k++ {
		bin := spec.hzToBin(fundFreq * float64(k))
		if bin >= len(spec.mags) {
			break
		}
		sumSq += spec.mags[bin] * spec.mags[bin]
	}
	value := math.Sqrt(sumSq) / fundAmp * 100
	return NewResult(name, display, value, unit, CategoryDistortion,
		WithCondition(fmt.Sprintf("f0=%s, K=%d", FormatFrequency(fundFreq), harmonics)))
}

// THDN computes THD+N: sqrt(total band power - fundamental power) /
// fundamental amplitude * 100.
func THDN(ctx context.Context, data *simresult.SimulationData, signal string, window string, fMin, fMax *float64) Result {
	const name, display, unit = "thd_n", "THD+N", "%"
	sig, ok := data.GetSignal(signal)
	if !ok {
		return NewError(name, display, "signal not found: "+signal, CategoryDistortion, unit)
	}
	spec, err := computeSpectrum(ctx, data.AxisData, sig.Real(), parseWindow(window))
	if err != nil {
		return NewError(name, display, err.Error(), CategoryDistortion, unit)
	}
	_, _, fundAmp := spec.findFundamental(10)
	if fundAmp == 0 {
		return NewError(name, display, "fundamental amplitude is zero", CategoryDistortion, unit)
	}

	lo, hi := 1, len(spec.mags)
	if fMin != nil {
		lo = spec.hzToBin(*fMin)
	}
	if fMax != nil {
		hi = spec.hzToBin(*fMax) + 1
	}
	totalPower, fundPower := 0.0, fundAmp*fundAmp
	for i := lo; i < hi; i++ {
		totalPower += spec.mags[i] * spec.mags[i]
	}
	diff := totalPower - fundPower
	if diff < 0 {
		diff = 0
	}
	value := math.Sqrt(diff) / fundAmp * 100
	return NewResult(name, display, value, unit, CategoryDistortion)
}

// IMD computes dual-tone intermodulation distortion from 2nd- and
// 3rd-order products around f1 and f2.
func IMD(ctx context.Context, data *simresult.SimulationData, signal string, window string, f1, f2 float64) Result {
	const name, display, unit = "imd", "Intermodulation Distortion", "%"
	sig, ok := data.GetSignal(signal)
	if !ok {
		return NewError(name, display, "signal not found: "+signal, CategoryDistortion, unit)
	}
	spec, err := computeSpectrum(ctx, data.AxisData, sig.Real(), parseWindow(window))
	if err != nil {
		return NewError(name, display, err.Error(), CategoryDistortion, unit)
	}

	ampAt := func(hz float64) float64 {
		if hz < 0 {
			hz = -hz
		}
		return spec.mags[spec.hzToBin(hz)]
	}

	v1, v2 := ampAt(f1), ampAt(f2)
	if v1 == 0 && v2 == 0 {
		return NewError(name, display, "both tones have zero amplitude", CategoryDistortion, unit)
	}

	products := []float64{
		ampAt(f1 - f2), ampAt(f1 + f2),
		ampAt(2*f1 - f2), ampAt(2*f1 + f2),
		ampAt(2*f2 - f1), ampAt(2*f2 + f1),
	}
	sumSq := 0.0
	for _, p := range products {
		sumSq += p * p
	}
	value := math.Sqrt(sumSq) / math.Sqrt(v1*v1+v2*v2) * 100
	return NewResult(name, display, value, unit, CategoryDistortion,
		WithCondition(fmt.Sprintf("f1=%s, f2=%s", FormatFrequency(f1), FormatFrequency(f2))))
}

// SFDR excludes the fundamental +-3 bins and DC, finds the largest
// remaining spur, and returns 20*log10(fundamental/spur), clamped to 120 dB.
func SFDR(ctx context.Context, data *simresult.SimulationData, signal string, window string) Result {
	const name, display, unit = "sfdr", "Spurious-Free Dynamic Range", "dB"
	sig, ok := data.GetSignal(signal)
	if !ok {
		return NewError(name, display, "signal not found: "+signal, CategoryDistortion, unit)
	}
	spec, err := computeSpectrum(ctx, data.AxisData, sig.Real(), parseWindow(window))
	if err != nil {
		return NewError(name, display, err.Error(), CategoryDistortion, unit)
	}
	fundBin, _, fundAmp := spec.findFundamental(10)
	if fundAmp == 0 {
		return NewError(name, display, "fundamental amplitude is zero", CategoryDistortion, unit)
	}

	spur := 0.0
	for i := 1; i < len(spec.mags); i++ {
		if i >= fundBin-3 && i <= fundBin+3 {
			continue
		}
		if spec.mags[i] > spur {
			spur = spec.mags[i]
		}
	}
	if spur == 0 {
		return NewResult(name, display, 120, unit, CategoryDistortion)
	}
	value := dbV(fundAmp / spur)
	if value > 120 {
		value = 120
	}
	return NewResult(name, display, value, unit, CategoryDistortion)
}

// SNDR is 10*log10(P_signal / (P_band - P_signal)).
func SNDR(ctx context.Context, data *simresult.SimulationData, signal string, window string, fMin, fMax *float64) Result {
	const name, display, unit = "sndr", "Signal-to-Noise-and-Distortion Ratio", "dB"
	sig, ok := data.GetSignal(signal)
	if !ok {
		return NewError(name, display, "signal not found: "+signal, CategoryDistortion, unit)
	}
	spec, err := computeSpectrum(ctx, data.AxisData, sig.Real(), parseWindow(window))
	if err != nil {
		return NewError(name, display, err.Error(), CategoryDistortion, unit)
	}
	_, _, fundAmp := spec.findFundamental(10)
	if fundAmp == 0 {
		return NewError(name, display, "fundamental amplitude is zero", CategoryDistortion, unit)
	}

	lo, hi := 1, len(spec.mags)
	if fMin != nil {
		lo = spec.hzToBin(*fMin)
	}
	if fMax != nil {
		hi = spec.hzToBin(*fMax) + 1
	}
	bandPower, signalPower := 0.0, fundAmp*fundAmp
	for i := lo; i < hi; i++ {
		bandPower += spec.mags[i] * spec.mags[i]
	}
	rest := bandPower - signalPower
	if rest <= 0 {
		return NewError(name, display, "no residual band power", CategoryDistortion, unit)
	}
	value := dbPower(signalPower / rest)
	return NewResult(name, display, value, unit, CategoryDistortion)
}

// ENOB derives effective number of bits from SNDR, clamped at 0.
func ENOB(ctx context.Context, data *simresult.SimulationData, signal string, window string, fMin, fMax *float64) Result {
	const name, display, unit = "enob", "Effective Number of Bits", "bits"
	sndr := SNDR(ctx, data, signal, window, fMin, fMax)
	if !sndr.IsValid() {
		return NewError(name, display, "requires valid SNDR: "+sndr.ErrorMessage, CategoryDistortion, unit)
	}
	value := (*sndr.Value - 1.76) / 6.02
	if value < 0 {
		value = 0
	}
	return NewResult(name, display, value, unit, CategoryDistortion)
}

// HarmonicAmplitude is one entry of a Harmonics report.
type HarmonicAmplitude struct {
	Order       int
	FrequencyHz float64
	DBc         float64
}

// Harmonics reports the fundamental amplitude, with the fundamental
// frequency and the relative amplitude in dBc of each harmonic order 2..K
// carried in the result's metadata under "fundamental_frequency" and
// "harmonics" (a []HarmonicAmplitude).
func Harmonics(ctx context.Context, data *simresult.SimulationData, signal string, window string, k int) Result {
	const name, display, unit = "harmonics", "Harmonic Breakdown", "V"
	if k <= 0 {
		k = DefaultHarmonicOrder
	}
	sig, ok := data.GetSignal(signal)
	if !ok {
		return NewError(name, display, "signal not found: "+signal, CategoryDistortion, unit)
	}
	spec, err := computeSpectrum(ctx, data.AxisData, sig.Real(), parseWindow(window))
	if err != nil {
		return NewError(name, display, err.Error(), CategoryDistortion, unit)
	}
	_, fundFreq, fundAmp := spec.findFundamental(10)
	if fundAmp == 0 {
		return NewError(name, display, "fundamental amplitude is zero", CategoryDistortion, unit)
	}
	out := make([]HarmonicAmplitude, 0, k-1)
	for order := 2; order <= k; order++ {
		bin := spec.hzToBin(fundFreq * float64(order))
		if bin >= len(spec.mags) {
			break
		}
		amp := spec.mags[bin]
		dbc := math.Inf(-1)
		if amp > 0 {
			dbc = dbV(amp / fundAmp)
		}
		out = append(out, HarmonicAmplitude{Order: order, FrequencyHz: fundFreq * float64(order), DBc: dbc})
	}
	return NewResult(name, display, fundAmp, unit, CategoryDistortion,
		WithCondition(fmt.Sprintf("f0=%s, K=%d", FormatFrequency(fundFreq), k)),
		WithMetadata(map[string]any{
			"fundamental_frequency": fundFreq,
			"harmonics":             out,
		}))
}
