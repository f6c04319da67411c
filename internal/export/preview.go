package export

import (
	"github.com/causalgo/simcore/internal/errkind"
	"github.com/causalgo/simcore/internal/lttb"
	"github.com/causalgo/simcore/internal/simresult"
	"github.com/causalgo/simcore/pkg/visualization"
)

// previewMaxPoints bounds the per-trace point count of a rendered preview.
const previewMaxPoints = 2000

// RenderPreview renders selected signals to an image file (.png, .svg or
// .pdf by extension). Traces longer than the preview budget are reduced
// with LTTB so the rendering stays visually faithful.
func RenderPreview(data *simresult.SimulationData, signals []string, path string) error {
	const op = "export.RenderPreview"
	if data == nil || len(data.AxisData) == 0 {
		return errkind.Missing(op, "no axis data")
	}
	names := selectSignals(data, signals)
	if len(names) == 0 {
		return errkind.Missing(op, "no signals to render")
	}

	series := make([]visualization.Series, 0, len(names))
	for _, name := range names {
		x := data.AxisData
		y := data.Signals[name].Real()
		if len(x) > previewMaxPoints {
			var err error
			x, y, err = lttb.Downsample(x, y, previewMaxPoints)
			if err != nil {
				return errkind.Dependency(op, "preview downsample failed", err)
			}
		}
		series = append(series, visualization.Series{Name: name, X: x, Y: y})
	}

	opts := visualization.DefaultPlotOptions()
	opts.Title = "Simulation preview"
	if data.Axis == simresult.AxisFrequency {
		opts.XLabel = "frequency [Hz]"
		opts.LogX = true
	}

	p, err := visualization.PlotWaveforms(series, opts)
	if err != nil {
		return errkind.Wrap(errkind.InvalidInput, op, "plot construction failed", err)
	}
	if err := visualization.SavePlot(p, path, opts.Width, opts.Height); err != nil {
		return errkind.IO(op, "failed to save preview", err)
	}
	return nil
}
