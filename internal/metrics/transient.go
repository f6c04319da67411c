package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/causalgo/simcore/internal/simresult"
)

// RiseTime and FallTime measure the time between crossings of lowPct and
// highPct of the signal's amplitude range.
func RiseTime(data *simresult.SimulationData, signal string, lowPct, highPct float64) Result {
	return edgeTime(data, signal, lowPct, highPct, true)
}

func FallTime(data *simresult.SimulationData, signal string, lowPct, highPct float64) Result {
	return edgeTime(data, signal, lowPct, highPct, false)
}

func edgeTime(data *simresult.SimulationData, signal string, lowPct, highPct float64, rising bool) Result {
	name, display := "rise_time", "Rise Time"
	if !rising {
		name, display = "fall_time", "Fall Time"
	}
	const unit = "s"
	if data.Axis != simresult.AxisTime {
		return NewError(name, display, "requires a time-domain result", CategoryTransient, unit)
	}
	sig, ok := data.GetSignal(signal)
	if !ok {
		return NewError(name, display, "signal not found: "+signal, CategoryTransient, unit)
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
		return NewError(name, display, "required edge crossings not found", CategoryTransient, unit)
	}
	return NewResult(name, display, t2-t1, unit, CategoryTransient,
		WithCondition(fmt.Sprintf("%.0f%%/%.0f%%", lowPct, highPct)))
}

// PropagationDelay finds tpLH (input fall, output rise) and tpHL (input
// rise, output fall), returning both plus their average.
type PropagationDelayResult struct {
	TPLH    Result
	TPHL    Result
	Average Result
}

func PropagationDelay(data *simresult.SimulationData, inSignal, outSignal string, pct float64) PropagationDelayResult {
	if pct <= 0 {
		pct = 50
	}
	const unit = "s"
	inSig, inOk := data.GetSignal(inSignal)
	outSig, outOk := data.GetSignal(outSignal)
	if !inOk || !outOk || data.Axis != simresult.AxisTime {
		errR := NewError("propagation_delay", "Propagation Delay", "requires time-domain in/out signals", CategoryTransient, unit)
		return PropagationDelayResult{TPLH: errR, TPHL: errR, Average: errR}
	}

	inY, outY := inSig.Real(), outSig.Real()
	inLevel := levelAt(inY, pct)
	outLevel := levelAt(outY, pct)

	tpLH := edgeDelay(data.AxisData, inY, outY, inLevel, outLevel, crossDown, crossUp, "tpLH", "Propagation Delay (LH)")
	tpHL := edgeDelay(data.AxisData, inY, outY, inLevel, outLevel, crossUp, crossDown, "tpHL", "Propagation Delay (HL)")

	avg := NewError("propagation_delay_avg", "Propagation Delay (avg)", "requires both tpLH and tpHL", CategoryTransient, unit)
	if tpLH.IsValid() && tpHL.IsValid() {
		avg = NewResult("propagation_delay_avg", "Propagation Delay (avg)", (*tpLH.Value+*tpHL.Value)/2, unit, CategoryTransient)
	}
	return PropagationDelayResult{TPLH: tpLH, TPHL: tpHL, Average: avg}
}

func levelAt(y []float64, pct float64) float64 {
	lo, hi := minMaxFloat(y)
	return lo + (hi-lo)*pct/100
}

// edgeDelay finds the input crossing with the given direction, then the
// next output crossing of the given direction, per the inverter
// convention (input fall pairs with output rise, and vice versa).
func edgeDelay(x, in, out []float64, inLevel, outLevel float64, inDir, outDir crossDir, name, display string) Result {
	tIn, ok := linearCrossing(x, in, inLevel, inDir)
	if !ok {
		return NewError(name, display, "input edge not found", CategoryTransient, "s")
	}
	tOut, ok := linearCrossingAfter(x, out, outLevel, outDir, tIn)
	if !ok || tOut < tIn {
		return NewError(name, display, "matching output edge not found", CategoryTransient, "s")
	}
	return NewResult(name, display, tOut-tIn, "s", CategoryTransient, WithCondition("pct=50%"))
}

func interpCrossing(x, y []float64, i int, level float64) float64 {
	a, b := y[i-1], y[i]
	if a == b {
		return x[i-1]
	}
	frac := (level - a) / (b - a)
	return x[i-1] + frac*(x[i]-x[i-1])
}

// crossingDirection records a detected edge for duty-cycle analysis.
type crossingDirection struct {
	t         float64
	direction int // +1 rising, -1 falling
}

// DutyCycle builds the rising/falling crossing list at pct of amplitude
// range and reports high-time over period, as a percentage.
func DutyCycle(data *simresult.SimulationData, signal string, pct float64) Result {
	const name, display, unit = "duty_cycle", "Duty Cycle", "%"
	if pct <= 0 {
		pct = 50
	}
	if data.Axis != simresult.AxisTime {
		return NewError(name, display, "requires a time-domain result", CategoryTransient, unit)
	}
	sig, ok := data.GetSignal(signal)
	if !ok {
		return NewError(name, display, "signal not found: "+signal, CategoryTransient, unit)
	}
	y := sig.Real()
	level := levelAt(y, pct)

	crossings := findCrossings(data.AxisData, y, level)
	if len(crossings) < 2 {
		return NewError(name, display, "insufficient edge crossings to measure duty cycle", CategoryTransient, unit)
	}

	var highTimes, periods []float64
	for i := 0; i+1 < len(crossings); i++ {
		if crossings[i].direction == 1 && crossings[i+1].direction == -1 {
			highTimes = append(highTimes, crossings[i+1].t-crossings[i].t)
			if i+2 < len(crossings) && crossings[i+2].direction == 1 {
				periods = append(periods, crossings[i+2].t-crossings[i].t)
				i++
			}
		}
	}
	if len(highTimes) == 0 || len(periods) == 0 {
		return NewError(name, display, "insufficient full periods observed", CategoryTransient, unit)
	}
	return NewResult(name, display, stat.Mean(highTimes, nil)/stat.Mean(periods, nil)*100, unit, CategoryTransient,
		WithCondition(fmt.Sprintf("threshold=%.0f%%", pct)))
}

// Frequency returns 1 / mean period between rising crossings at 50%.
func Frequency(data *simresult.SimulationData, signal string) Result {
	const name, display, unit = "frequency", "Frequency", "Hz"
	if data.Axis != simresult.AxisTime {
		return NewError(name, display, "requires a time-domain result", CategoryTransient, unit)
	}
	sig, ok := data.GetSignal(signal)
	if !ok {
		return NewError(name, display, "signal not found: "+signal, CategoryTransient, unit)
	}
	y := sig.Real()
	level := levelAt(y, 50)
	crossings := findCrossings(data.AxisData, y, level)

	var risingTimes []float64
	for _, c := range crossings {
		if c.direction == 1 {
			risingTimes = append(risingTimes, c.t)
		}
	}
	if len(risingTimes) < 2 {
		return NewError(name, display, "fewer than two rising crossings found", CategoryTransient, unit)
	}
	periods := make([]float64, len(risingTimes)-1)
	for i := 1; i < len(risingTimes); i++ {
		periods[i-1] = risingTimes[i] - risingTimes[i-1]
	}
	meanPeriod := stat.Mean(periods, nil)
	if meanPeriod <= 0 {
		return NewError(name, display, "non-positive mean period", CategoryTransient, unit)
	}
	return NewResult(name, display, 1/meanPeriod, unit, CategoryTransient)
}

// Period is the mean period between rising crossings at 50%.
func Period(data *simresult.SimulationData, signal string) Result {
	const name, display, unit = "period", "Period", "s"
	freq := Frequency(data, signal)
	if !freq.IsValid() {
		return NewError(name, display, freq.ErrorMessage, CategoryTransient, unit)
	}
	return NewResult(name, display, 1 / *freq.Value, unit, CategoryTransient)
}

func findCrossings(x, y []float64, level float64) []crossingDirection {
	var out []crossingDirection
	for i := 1; i < len(y); i++ {
		a, b := y[i-1], y[i]
		if a < level && b >= level {
			out = append(out, crossingDirection{t: interpCrossing(x, y, i, level), direction: 1})
		} else if a > level && b <= level {
			out = append(out, crossingDirection{t: interpCrossing(x, y, i, level), direction: -1})
		}
	}
	return out
}
