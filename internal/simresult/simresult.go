// Package simresult defines the immutable result model shared by every
// other component of the analysis core: SimulationData (one sampled
// bundle), SimulationResult (a run's metadata wrapper) and AxisKind.
package simresult

import (
	"math"
	"time"

	"github.com/causalgo/simcore/internal/errkind"
)

// AxisKind identifies which independent axis a SimulationData carries.
type AxisKind string

const (
	// AxisTime marks a transient (time-domain) result.
	AxisTime AxisKind = "time"
	// AxisFrequency marks an AC/noise (frequency-domain) result.
	AxisFrequency AxisKind = "frequency"
)

// Signal is an ordered sequence of complex samples. Time-domain signals
// carry a zero imaginary part; AC-analysis signals use both parts.
type Signal []complex128

// Real returns the real part of every sample, the view used by analyses
// that only make sense on a real-valued signal (slew rate, duty cycle).
func (s Signal) Real() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = real(v)
	}
	return out
}

// Abs returns the magnitude of every sample.
func (s Signal) Abs() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = math.Hypot(real(v), imag(v))
	}
	return out
}

// Phase returns the phase in degrees of every sample.
func (s Signal) Phase() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = math.Atan2(imag(v), real(v)) * 180 / math.Pi
	}
	return out
}

// SimulationData is one sampled bundle: exactly one axis (time or
// frequency) and a name-keyed mapping of equal-length signals.
type SimulationData struct {
	Axis     AxisKind
	AxisData []float64
	Signals  map[string]Signal
}

// NewTimeData constructs a time-domain SimulationData.
func NewTimeData(t []float64, signals map[string]Signal) (*SimulationData, error) {
	return newData(AxisTime, t, signals)
}

// NewFrequencyData constructs a frequency-domain SimulationData.
func NewFrequencyData(f []float64, signals map[string]Signal) (*SimulationData, error) {
	return newData(AxisFrequency, f, signals)
}

func newData(kind AxisKind, axis []float64, signals map[string]Signal) (*SimulationData, error) {
	const op = "simresult.New"
	if len(axis) == 0 {
		return nil, errkind.Invalid(op, "axis must be non-empty")
	}
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			return nil, errkind.Invalid(op, "axis must be strictly monotonically increasing")
		}
	}
	for name, sig := range signals {
		if len(sig) != len(axis) {
			return nil, errkind.Invalid(op, "signal "+name+" length does not match axis length")
		}
	}
	return &SimulationData{Axis: kind, AxisData: axis, Signals: signals}, nil
}

// commonAliases maps a canonical signal name to alternate spellings seen in
// exported SPICE decks, tried in order when an exact lookup fails.
var commonAliases = map[string][]string{
	"inoise": {"inoise_total", "V(inoise)", "INOISE"},
	"onoise": {"onoise_total", "V(onoise)", "ONOISE"},
}

// GetSignal looks up a signal by exact name, falling back to a
// case-insensitive match and then to the known alias table.
func (d *SimulationData) GetSignal(name string) (Signal, bool) {
	if sig, ok := d.Signals[name]; ok {
		return sig, true
	}
	for key, sig := range d.Signals {
		if equalFold(key, name) {
			return sig, true
		}
	}
	for _, alias := range commonAliases[name] {
		if sig, ok := d.Signals[alias]; ok {
			return sig, true
		}
	}
	return nil, false
}

// GetSignalAny tries each candidate name in order, returning the first hit.
func (d *SimulationData) GetSignalAny(names ...string) (Signal, string, bool) {
	for _, name := range names {
		if sig, ok := d.GetSignal(name); ok {
			return sig, name, true
		}
	}
	return nil, "", false
}

// SignalNames returns every signal name present, in no particular order.
func (d *SimulationData) SignalNames() []string {
	names := make([]string, 0, len(d.Signals))
	for name := range d.Signals {
		names = append(names, name)
	}
	return names
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// ErrorRecord carries the kind and message of a failed simulation run.
type ErrorRecord struct {
	Kind    errkind.Kind
	Message string
}

// SimulationResult wraps one SimulationData with run metadata.
type SimulationResult struct {
	ID              string
	Timestamp       time.Time
	SessionTag      string
	Executor        string
	SourcePath      string
	AnalysisType    string
	Success         bool
	Error           *ErrorRecord
	RawLog          string
	Data            *SimulationData
	Metrics         map[string]any
	DurationSeconds float64
}

// IsFresh reports whether the result was produced within maxAge of now.
func (r *SimulationResult) IsFresh(maxAge time.Duration) bool {
	return time.Since(r.Timestamp) <= maxAge
}
