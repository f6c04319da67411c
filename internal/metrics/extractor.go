package metrics

import (
	"context"
	"sort"
	"strings"

	"github.com/causalgo/simcore/internal/simresult"
)

// Params carries the per-request knobs shared by every extraction: which
// signals to analyse and the family-specific options. Zero values select
// the documented defaults.
type Params struct {
	OutputSignal  string // default "V(out)"
	InputSignal   string // empty = unit-amplitude excitation
	SupplyVoltage string
	SupplyCurrent string

	Frequency *float64 // evaluation frequency for gain/noise metrics
	Window    string   // FFT window, default "hann"
	Harmonics int      // default DefaultHarmonicOrder

	// Tone1Hz/Tone2Hz are the IMD test tones. Zero selects 1 kHz / 1.1 kHz.
	Tone1Hz float64
	Tone2Hz float64

	// SourceResistance is the Rs for noise figure, in ohms. Zero selects 50.
	SourceResistance float64
}

func (p Params) withDefaults() Params {
	if p.OutputSignal == "" {
		p.OutputSignal = "V(out)"
	}
	if p.Window == "" {
		p.Window = string(WindowHann)
	}
	if p.Harmonics <= 0 {
		p.Harmonics = DefaultHarmonicOrder
	}
	if p.Tone1Hz <= 0 {
		p.Tone1Hz = 1000
	}
	if p.Tone2Hz <= 0 {
		p.Tone2Hz = 1100
	}
	if p.SourceResistance <= 0 {
		p.SourceResistance = 50
	}
	return p
}

type extractFn func(ctx context.Context, data *simresult.SimulationData, p Params) Result

// topologyMetrics maps a circuit topology tag to its curated, ordered
// metric list.
var topologyMetrics = map[string][]string{
	"amplifier": {
		"gain", "bandwidth", "gbw", "phase_margin", "gain_margin",
		"input_impedance", "output_impedance", "cmrr", "psrr",
		"slew_rate", "settling_time", "overshoot", "offset_voltage",
		"quiescent_current", "power_consumption",
	},
	"opamp": {
		"gain", "bandwidth", "gbw", "phase_margin", "gain_margin",
		"input_impedance", "output_impedance", "cmrr", "psrr",
		"slew_rate", "settling_time", "overshoot", "offset_voltage",
		"input_noise", "quiescent_current", "power_consumption",
	},
	"ldo": {
		"load_regulation", "line_regulation", "dropout_voltage",
		"quiescent_current", "power_consumption", "efficiency",
		"psrr", "output_noise",
	},
	"dcdc": {
		"efficiency", "load_regulation", "line_regulation",
		"power_consumption", "rise_time", "fall_time",
		"duty_cycle", "frequency",
	},
	"oscillator": {
		"frequency", "period", "duty_cycle", "rise_time", "fall_time",
		"thd", "phase_noise",
	},
	"filter": {
		"gain", "bandwidth", "phase_margin",
		"thd", "snr",
	},
	"adc": {
		"sndr", "enob", "thd", "sfdr", "snr",
	},
	"dac": {
		"sndr", "enob", "thd", "sfdr", "snr",
	},
	"digital": {
		"rise_time", "fall_time", "propagation_delay",
		"duty_cycle", "frequency", "power_consumption",
	},
}

// Extractor dispatches metric extractions by name, topology tag or data
// availability. The zero value is not usable; call NewExtractor.
type Extractor struct {
	registry map[string]extractFn
}

// NewExtractor builds an Extractor with the full metric registry.
func NewExtractor() *Extractor {
	e := &Extractor{}
	e.registry = map[string]extractFn{
		"gain": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return Gain(d, p.OutputSignal, p.InputSignal, p.Frequency)
		},
		"bandwidth": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return Bandwidth(d, p.OutputSignal, p.InputSignal, nil)
		},
		"gbw": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return GBW(d, p.OutputSignal, p.InputSignal)
		},
		"phase_margin": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return PhaseMargin(d, p.OutputSignal, p.InputSignal)
		},
		"gain_margin": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return GainMargin(d, p.OutputSignal, p.InputSignal)
		},
		"input_impedance": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			v := p.InputSignal
			if v == "" {
				v = "V(in)"
			}
			return InputImpedance(d, v, "I(Vin)")
		},
		"output_impedance": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return OutputImpedance(d, p.OutputSignal, "I(Vout)")
		},
		"cmrr": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return CMRR(d, p.OutputSignal, "V(cm)")
		},
		"psrr": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			supply := p.SupplyVoltage
			if supply == "" {
				supply = "V(vdd)"
			}
			return PSRR(d, p.OutputSignal, supply)
		},
		"slew_rate": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return SlewRateRise(d, p.OutputSignal, 10, 90)
		},
		"slew_rate_rise": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return SlewRateRise(d, p.OutputSignal, 10, 90)
		},
		"slew_rate_fall": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return SlewRateFall(d, p.OutputSignal, 10, 90)
		},
		"settling_time": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return SettlingTime(d, p.OutputSignal, nil, 1)
		},
		"overshoot": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return Overshoot(d, p.OutputSignal, nil)
		},
		"offset_voltage": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return OffsetVoltage(d, p.OutputSignal, 0, nil)
		},
		"input_noise": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return InputNoise(d, evalFreq(p))
		},
		"output_noise": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return OutputNoise(d, evalFreq(p))
		},
		"integrated_noise": func(_ context.Context, d *simresult.SimulationData, _ Params) Result {
			return IntegratedNoise(d, "input", nil, nil)
		},
		"noise_figure": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return NoiseFigure(d, p.SourceResistance, TRef, evalFreq(p))
		},
		"snr": func(_ context.Context, d *simresult.SimulationData, _ Params) Result {
			return SNR(d, 1.0, nil, nil)
		},
		"corner_frequency": func(_ context.Context, d *simresult.SimulationData, _ Params) Result {
			return CornerFrequency(d, "input")
		},
		"enbw": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return EquivalentNoiseBandwidth(d, p.OutputSignal)
		},
		"thd": func(ctx context.Context, d *simresult.SimulationData, p Params) Result {
			return THD(ctx, d, p.OutputSignal, p.Window, p.Harmonics, 10)
		},
		"thd_n": func(ctx context.Context, d *simresult.SimulationData, p Params) Result {
			return THDN(ctx, d, p.OutputSignal, p.Window, nil, nil)
		},
		"imd": func(ctx context.Context, d *simresult.SimulationData, p Params) Result {
			return IMD(ctx, d, p.OutputSignal, p.Window, p.Tone1Hz, p.Tone2Hz)
		},
		"sfdr": func(ctx context.Context, d *simresult.SimulationData, p Params) Result {
			return SFDR(ctx, d, p.OutputSignal, p.Window)
		},
		"sndr": func(ctx context.Context, d *simresult.SimulationData, p Params) Result {
			return SNDR(ctx, d, p.OutputSignal, p.Window, nil, nil)
		},
		"enob": func(ctx context.Context, d *simresult.SimulationData, p Params) Result {
			return ENOB(ctx, d, p.OutputSignal, p.Window, nil, nil)
		},
		"harmonics": func(ctx context.Context, d *simresult.SimulationData, p Params) Result {
			return Harmonics(ctx, d, p.OutputSignal, p.Window, p.Harmonics)
		},
		"quiescent_current": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return QuiescentCurrent(d, p.SupplyCurrent)
		},
		"power_consumption": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			supplyV, supplyI := p.SupplyVoltage, p.SupplyCurrent
			if supplyV == "" {
				supplyV = "V(vdd)"
			}
			if supplyI == "" {
				supplyI = "I(VDD)"
			}
			return PowerConsumption(d, supplyV, supplyI, nil)
		},
		"efficiency": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return Efficiency(d, "V(in)", "I(Vin)", p.OutputSignal, "I(Vout)")
		},
		"load_regulation": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return LoadRegulation(d, p.OutputSignal, 0, nil)
		},
		"line_regulation": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			in := p.InputSignal
			if in == "" {
				in = "V(in)"
			}
			return LineRegulation(d, in, p.OutputSignal)
		},
		"dropout_voltage": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			in := p.InputSignal
			if in == "" {
				in = "V(in)"
			}
			return dropoutAuto(d, p.OutputSignal, in)
		},
		"rise_time": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return RiseTime(d, p.OutputSignal, 10, 90)
		},
		"fall_time": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return FallTime(d, p.OutputSignal, 10, 90)
		},
		"propagation_delay": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			in := p.InputSignal
			if in == "" {
				in = "V(in)"
			}
			return PropagationDelay(d, in, p.OutputSignal, 50).Average
		},
		"duty_cycle": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return DutyCycle(d, p.OutputSignal, 50)
		},
		"frequency": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return Frequency(d, p.OutputSignal)
		},
		"period": func(_ context.Context, d *simresult.SimulationData, p Params) Result {
			return Period(d, p.OutputSignal)
		},
		"phase_noise": func(_ context.Context, _ *simresult.SimulationData, _ Params) Result {
			return NewError("phase_noise", "Phase Noise",
				"requires a dedicated noise sweep around the carrier", CategoryNoise, "dBc/Hz")
		},
	}
	return e
}

func evalFreq(p Params) float64 {
	if p.Frequency != nil {
		return *p.Frequency
	}
	return 1000
}

// dropoutAuto derives the dropout target from the peak of the output sweep
// when the caller has no explicit regulation target.
func dropoutAuto(d *simresult.SimulationData, outSignal, inSignal string) Result {
	sig, ok := d.GetSignal(outSignal)
	if !ok {
		return NewError("dropout_voltage", "Dropout Voltage", "signal not found: "+outSignal, CategoryPower, "V")
	}
	target, _ := maxFloat(sig.Real())
	return DropoutVoltage(d, outSignal, inSignal, target, 0.99)
}

// SupportedMetrics returns every registered metric name, sorted.
func (e *Extractor) SupportedMetrics() []string {
	names := make([]string, 0, len(e.registry))
	for name := range e.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportedTopologies returns every topology tag with a curated metric
// list, sorted.
func (e *Extractor) SupportedTopologies() []string {
	tags := make([]string, 0, len(topologyMetrics))
	for tag := range topologyMetrics {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// MetricsForTopology returns the curated metric list for a topology tag,
// or nil for an unknown tag.
func (e *Extractor) MetricsForTopology(topology string) []string {
	return topologyMetrics[strings.ToLower(topology)]
}

// ByName extracts a single metric. An unknown name yields an error Result
// rather than a Go error; individual extraction failures are likewise
// encoded in the Result.
func (e *Extractor) ByName(ctx context.Context, data *simresult.SimulationData, name string, p Params) Result {
	fn, ok := e.registry[strings.ToLower(name)]
	if !ok {
		return NewError(name, name, "unknown metric: "+name, CategoryGeneral, "")
	}
	return fn(ctx, data, p.withDefaults())
}

// ForTopology runs the curated metric list for a topology tag, falling
// back to the inferred available set for an unknown or empty tag. Targets
// from goals are attached by metric name. Failures of individual
// extractions never abort the batch.
func (e *Extractor) ForTopology(ctx context.Context, data *simresult.SimulationData, topology string, p Params, goals map[string]Target) map[string]Result {
	names := topologyMetrics[strings.ToLower(topology)]
	if len(names) == 0 {
		names = e.availableMetrics(data)
	}
	return e.extractNamed(ctx, data, names, p, goals)
}

// All extracts every metric the data kind supports: AC/noise metrics when
// a frequency axis is present, transient/distortion/power metrics when a
// time axis is present, power metrics when supply-current signals are
// detected, and offset when an output signal is detected.
func (e *Extractor) All(ctx context.Context, data *simresult.SimulationData, p Params) map[string]Result {
	return e.extractNamed(ctx, data, e.availableMetrics(data), p, nil)
}

func (e *Extractor) extractNamed(ctx context.Context, data *simresult.SimulationData, names []string, p Params, goals map[string]Target) map[string]Result {
	p = p.withDefaults()
	out := make(map[string]Result, len(names))
	for _, name := range names {
		r := e.ByName(ctx, data, name, p)
		if goals != nil {
			if target, ok := goals[name]; ok {
				r = r.WithTarget(target)
			}
		}
		out[name] = r
	}
	return out
}

var acMetrics = []string{
	"gain", "bandwidth", "gbw", "phase_margin", "gain_margin",
	"input_impedance", "output_impedance", "cmrr", "psrr",
	"input_noise", "output_noise", "integrated_noise",
	"noise_figure", "corner_frequency", "enbw",
}

var transientMetrics = []string{
	"slew_rate", "settling_time", "overshoot",
	"rise_time", "fall_time", "propagation_delay",
	"duty_cycle", "frequency", "period",
	"thd", "thd_n", "imd", "sfdr", "sndr", "enob", "harmonics",
	"quiescent_current", "power_consumption", "efficiency",
}

var supplyMetrics = []string{
	"quiescent_current", "power_consumption",
	"load_regulation", "line_regulation", "dropout_voltage",
}

func (e *Extractor) availableMetrics(data *simresult.SimulationData) []string {
	set := make(map[string]bool)
	if data.Axis == simresult.AxisFrequency && len(data.AxisData) > 0 {
		for _, m := range acMetrics {
			set[m] = true
		}
	}
	if data.Axis == simresult.AxisTime && len(data.AxisData) > 0 {
		for _, m := range transientMetrics {
			set[m] = true
		}
	}
	if _, _, ok := data.GetSignalAny(supplyCurrentAliases...); ok {
		for _, m := range supplyMetrics {
			set[m] = true
		}
	}
	for name := range data.Signals {
		if strings.Contains(strings.ToLower(name), "out") {
			set["offset_voltage"] = true
			break
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
