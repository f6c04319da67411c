package metrics

import (
	"fmt"
	"strings"
)

// Trend marks how a metric moved against its previous observation.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendStable  Trend = "stable"
	TrendUnknown Trend = "unknown"
)

// DisplayMetric is the UI-facing projection of a Result: pre-formatted
// value and target strings plus a trend marker computed against the
// previously observed value of the same named metric.
type DisplayMetric struct {
	Name         string
	DisplayName  string
	Value        string
	Unit         string
	Target       string
	IsMet        *bool // nil when there is no target
	Trend        Trend
	Category     Category
	RawValue     *float64
	Confidence   float64
	ErrorMessage string
}

// TrendTracker remembers the last observed value of each named metric.
// History is a single-slot store per metric and single-writer by contract;
// it is not safe for concurrent Format calls.
type TrendTracker struct {
	previous map[string]float64
}

// NewTrendTracker builds an empty tracker.
func NewTrendTracker() *TrendTracker {
	return &TrendTracker{previous: make(map[string]float64)}
}

// Format projects a Result into its DisplayMetric, computing the trend
// against the immediately preceding observation of the same metric and
// recording the new value.
func (t *TrendTracker) Format(r Result) DisplayMetric {
	trend := t.trend(r.Name, r.Value)
	if r.Value != nil {
		t.previous[r.Name] = *r.Value
	}

	var isMet *bool
	if r.Target.Type != TargetNone && r.Value != nil {
		met := r.IsMet()
		isMet = &met
	}

	return DisplayMetric{
		Name:         r.Name,
		DisplayName:  r.DisplayName,
		Value:        r.FormattedValue(),
		Unit:         r.Unit,
		Target:       FormatTarget(r.Target, r.Unit),
		IsMet:        isMet,
		Trend:        trend,
		Category:     r.Category,
		RawValue:     r.Value,
		Confidence:   r.Confidence,
		ErrorMessage: r.ErrorMessage,
	}
}

// trend compares current against the stored previous value; moves within
// 1% count as stable.
func (t *TrendTracker) trend(name string, current *float64) Trend {
	if current == nil {
		return TrendUnknown
	}
	prev, ok := t.previous[name]
	if !ok {
		return TrendUnknown
	}
	if prev == 0 {
		switch {
		case *current > 0:
			return TrendUp
		case *current < 0:
			return TrendDown
		default:
			return TrendStable
		}
	}
	changePct := (*current - prev) / abs(prev) * 100
	switch {
	case changePct > 1:
		return TrendUp
	case changePct < -1:
		return TrendDown
	default:
		return TrendStable
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// FormatTarget renders a Target as a compact description like "≥ 20 dB".
func FormatTarget(t Target, unit string) string {
	suffix := ""
	if unit != "" {
		suffix = " " + unit
	}
	switch t.Type {
	case TargetMin:
		return fmt.Sprintf("≥ %.4g%s", t.Value, suffix)
	case TargetMax:
		return fmt.Sprintf("≤ %.4g%s", t.Value, suffix)
	case TargetRange:
		return fmt.Sprintf("%.4g – %.4g%s", t.Value, t.Max, suffix)
	case TargetExact:
		return fmt.Sprintf("%.4g%s ±%.3g%%", t.Value, suffix, t.Tolerance*100)
	default:
		return ""
	}
}

// InferCategory guesses a family tag from a metric name, used for metrics
// arriving from outside the registry (e.g. parsed from a raw log).
func InferCategory(name string) Category {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "gain", "bandwidth", "phase", "margin", "gbw"):
		return CategoryAmplifier
	case containsAny(lower, "noise", "snr", "nf"):
		return CategoryNoise
	case containsAny(lower, "thd", "distortion", "imd", "sfdr"):
		return CategoryDistortion
	case containsAny(lower, "power", "current", "efficiency", "consumption"):
		return CategoryPower
	case containsAny(lower, "rise", "fall", "slew", "settling", "overshoot"):
		return CategoryTransient
	default:
		return CategoryGeneral
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
