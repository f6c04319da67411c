// Package pyramid builds and queries a per-signal resolution pyramid: a
// small set of precomputed downsamples at fixed target sizes, used by the
// waveform data service to serve a viewport at the smallest resolution
// that still satisfies the caller's point budget.
package pyramid

import (
	"context"
	"sort"

	"github.com/causalgo/simcore/internal/errkind"
	"github.com/causalgo/simcore/internal/lttb"
)

// DefaultLevels are the target point counts used when the caller does not
// supply its own set.
var DefaultLevels = []int{500, 2000, 10000, 50000}

// Level holds one precomputed downsample: its target size and the actual
// (axis, value) arrays produced for it.
type Level struct {
	TargetPoints int
	ActualPoints int
	Axis         []float64
	Values       []float64
}

// Data is the full pyramid for one signal: levels sorted ascending by
// actual size, plus the original point count and the axis/value ranges.
type Data struct {
	Levels       []Level
	OriginalSize int
	AxisMin      float64
	AxisMax      float64
	ValueMin     float64
	ValueMax     float64
}

// Build constructs a pyramid for (x, y) over the given target levels. Levels
// are deduplicated, sorted ascending, and any level <= 1 is rejected. For a
// level whose target meets or exceeds len(x), the level holds a verbatim
// copy; otherwise the level is produced by LTTB.
func Build(x, y []float64, levels []int) (*Data, error) {
	return BuildContext(context.Background(), x, y, levels)
}

// BuildContext is Build with cooperative cancellation, forwarded to the
// downsampler and polled between levels. On cancellation the partial
// pyramid is discarded.
func BuildContext(ctx context.Context, x, y []float64, levels []int) (*Data, error) {
	const op = "pyramid.Build"
	if len(x) != len(y) {
		return nil, errkind.Invalid(op, "x and y must have equal length")
	}
	if len(x) == 0 {
		return nil, errkind.Invalid(op, "input must be non-empty")
	}
	if levels == nil {
		levels = DefaultLevels
	}

	cleaned := dedupeAndSort(levels)
	if len(cleaned) == 0 {
		return nil, errkind.Invalid(op, "no valid levels after filtering (all <= 1)")
	}

	result := &Data{
		Levels:       make([]Level, 0, len(cleaned)),
		OriginalSize: len(x),
	}
	result.AxisMin, result.AxisMax = x[0], x[len(x)-1]
	result.ValueMin, result.ValueMax = minMax(y)

	for _, target := range cleaned {
		if ctx.Err() != nil {
			return nil, errkind.CancelledErr(op)
		}
		var lx, ly []float64
		if len(x) <= target {
			lx = append([]float64(nil), x...)
			ly = append([]float64(nil), y...)
		} else {
			var err error
			lx, ly, err = lttb.DownsampleContext(ctx, x, y, target)
			if err != nil {
				return nil, errkind.Dependency(op, "downsample failed for level", err)
			}
		}
		result.Levels = append(result.Levels, Level{
			TargetPoints: target,
			ActualPoints: len(lx),
			Axis:         lx,
			Values:       ly,
		})
	}

	sort.Slice(result.Levels, func(i, j int) bool {
		return result.Levels[i].ActualPoints < result.Levels[j].ActualPoints
	})

	return result, nil
}

// SelectOptimal returns the index of the smallest level whose ActualPoints
// is >= required, or the last index if none qualifies.
func SelectOptimal(pyr *Data, required int) int {
	for i, lvl := range pyr.Levels {
		if lvl.ActualPoints >= required {
			return i
		}
	}
	return len(pyr.Levels) - 1
}

// GetLevel returns the axis/value arrays for level i.
func GetLevel(pyr *Data, i int) ([]float64, []float64, error) {
	const op = "pyramid.GetLevel"
	if i < 0 || i >= len(pyr.Levels) {
		return nil, nil, errkind.Invalid(op, "level index out of range")
	}
	return pyr.Levels[i].Axis, pyr.Levels[i].Values, nil
}

// GetOptimalData is a convenience wrapper combining SelectOptimal and
// GetLevel for a requested point budget.
func GetOptimalData(pyr *Data, required int) ([]float64, []float64, error) {
	return GetLevel(pyr, SelectOptimal(pyr, required))
}

func dedupeAndSort(levels []int) []int {
	seen := make(map[int]bool, len(levels))
	out := make([]int, 0, len(levels))
	for _, lvl := range levels {
		if lvl <= 1 || seen[lvl] {
			continue
		}
		seen[lvl] = true
		out = append(out, lvl)
	}
	sort.Ints(out)
	return out
}

func minMax(vals []float64) (float64, float64) {
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
