// Package lttb implements the Largest-Triangle-Three-Buckets downsampling
// algorithm over one or many signals sharing a common axis.
package lttb

import (
	"context"
	"math"

	"github.com/causalgo/simcore/internal/errkind"
	"gonum.org/v1/gonum/floats"
)

// Downsample reduces (x, y) to at most n points using LTTB, always keeping
// the first and last input points. If len(x) <= n, a copy is returned
// unchanged. n must be >= 2.
func Downsample(x, y []float64, n int) ([]float64, []float64, error) {
	return DownsampleContext(context.Background(), x, y, n)
}

// DownsampleContext is Downsample with cooperative cancellation, polled at
// bucket boundaries. On cancellation the partial output is discarded and a
// Cancelled error is returned.
func DownsampleContext(ctx context.Context, x, y []float64, n int) ([]float64, []float64, error) {
	const op = "lttb.Downsample"
	if err := validate(x, y, n, op); err != nil {
		return nil, nil, err
	}

	length := len(x)
	if length <= n {
		return append([]float64(nil), x...), append([]float64(nil), y...), nil
	}
	if n == 2 {
		return []float64{x[0], x[length-1]}, []float64{y[0], y[length-1]}, nil
	}

	outX := make([]float64, 0, n)
	outY := make([]float64, 0, n)
	outX = append(outX, x[0])
	outY = append(outY, y[0])

	bucketSize := float64(length-2) / float64(n-2)
	prevX, prevY := x[0], y[0]

	for i := 0; i < n-2; i++ {
		if ctx.Err() != nil {
			return nil, nil, errkind.CancelledErr(op)
		}
		bucketStart := int(float64(i)*bucketSize) + 1
		bucketEnd := int(float64(i+1)*bucketSize) + 1
		if bucketEnd > length-1 {
			bucketEnd = length - 1
		}

		nextStart := bucketEnd
		nextEnd := int(float64(i+2)*bucketSize) + 1
		if i == n-3 || nextEnd > length {
			nextEnd = length
		}
		avgX, avgY := average(x[nextStart:nextEnd], y[nextStart:nextEnd])

		bestIdx := bucketStart
		bestArea := -1.0
		for j := bucketStart; j < bucketEnd; j++ {
			area := triangleArea(prevX, prevY, x[j], y[j], avgX, avgY)
			if area > bestArea {
				bestArea = area
				bestIdx = j
			}
		}

		outX = append(outX, x[bestIdx])
		outY = append(outY, y[bestIdx])
		prevX, prevY = x[bestIdx], y[bestIdx]
	}

	outX = append(outX, x[length-1])
	outY = append(outY, y[length-1])
	return outX, outY, nil
}

// DownsampleMultiple picks, per bucket, the index maximising the sum of
// triangle areas across every signal, emitting the same indices for each.
func DownsampleMultiple(x []float64, ys map[string][]float64, n int) ([]float64, map[string][]float64, error) {
	return DownsampleMultipleContext(context.Background(), x, ys, n)
}

// DownsampleMultipleContext is DownsampleMultiple with cooperative
// cancellation, polled at bucket boundaries.
func DownsampleMultipleContext(ctx context.Context, x []float64, ys map[string][]float64, n int) ([]float64, map[string][]float64, error) {
	const op = "lttb.DownsampleMultiple"
	for name, y := range ys {
		if err := validate(x, y, n, op+" ("+name+")"); err != nil {
			return nil, nil, err
		}
	}
	if len(ys) == 0 {
		return nil, nil, errkind.Invalid(op, "at least one signal required")
	}

	length := len(x)
	out := make(map[string][]float64, len(ys))
	if length <= n {
		outX := append([]float64(nil), x...)
		for name, y := range ys {
			out[name] = append([]float64(nil), y...)
		}
		return outX, out, nil
	}
	if n == 2 {
		for name, y := range ys {
			out[name] = []float64{y[0], y[length-1]}
		}
		return []float64{x[0], x[length-1]}, out, nil
	}

	names := make([]string, 0, len(ys))
	for name := range ys {
		names = append(names, name)
		out[name] = make([]float64, 0, n)
		out[name] = append(out[name], ys[name][0])
	}
	outX := make([]float64, 0, n)
	outX = append(outX, x[0])

	prevX := x[0]
	prevYs := make(map[string]float64, len(names))
	for _, name := range names {
		prevYs[name] = ys[name][0]
	}

	bucketSize := float64(length-2) / float64(n-2)

	for i := 0; i < n-2; i++ {
		if ctx.Err() != nil {
			return nil, nil, errkind.CancelledErr(op)
		}
		bucketStart := int(float64(i)*bucketSize) + 1
		bucketEnd := int(float64(i+1)*bucketSize) + 1
		if bucketEnd > length-1 {
			bucketEnd = length - 1
		}

		nextStart := bucketEnd
		nextEnd := int(float64(i+2)*bucketSize) + 1
		if i == n-3 || nextEnd > length {
			nextEnd = length
		}

		avgX, _ := average(x[nextStart:nextEnd], x[nextStart:nextEnd])
		avgYs := make(map[string]float64, len(names))
		for _, name := range names {
			_, avgY := average(x[nextStart:nextEnd], ys[name][nextStart:nextEnd])
			avgYs[name] = avgY
		}

		bestIdx := bucketStart
		bestArea := -1.0
		for j := bucketStart; j < bucketEnd; j++ {
			total := 0.0
			for _, name := range names {
				total += triangleArea(prevX, prevYs[name], x[j], ys[name][j], avgX, avgYs[name])
			}
			if total > bestArea {
				bestArea = total
				bestIdx = j
			}
		}

		outX = append(outX, x[bestIdx])
		prevX = x[bestIdx]
		for _, name := range names {
			out[name] = append(out[name], ys[name][bestIdx])
			prevYs[name] = ys[name][bestIdx]
		}
	}

	outX = append(outX, x[length-1])
	for _, name := range names {
		out[name] = append(out[name], ys[name][length-1])
	}
	return outX, out, nil
}

func validate(x, y []float64, n int, op string) error {
	if len(x) != len(y) {
		return errkind.Invalid(op, "x and y must have equal length")
	}
	if len(x) == 0 {
		return errkind.Invalid(op, "input must be non-empty")
	}
	if n < 2 {
		return errkind.Invalid(op, "n must be >= 2")
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return errkind.Invalid(op, "x must be strictly monotonically increasing")
		}
	}
	return nil
}

func average(x, y []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	n := float64(len(x))
	return floats.Sum(x) / n, floats.Sum(y) / n
}

func triangleArea(ax, ay, bx, by, cx, cy float64) float64 {
	return math.Abs((ax-cx)*(by-ay)-(ax-bx)*(cy-ay)) / 2
}
