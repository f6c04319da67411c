package visualization

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Series is one named trace: equal-length axis and value arrays.
type Series struct {
	Name string
	X    []float64
	Y    []float64
}

// PlotOptions configures waveform plot appearance.
type PlotOptions struct {
	// Title is the main plot title (default: "Waveform")
	Title string

	// XLabel and YLabel annotate the axes (defaults: "time [s]", "value")
	XLabel string
	YLabel string

	// Width is the plot width in inches (default: 10)
	Width float64

	// Height is the plot height in inches (default: 6)
	Height float64

	// LogX switches the x axis to a logarithmic scale, for AC sweeps
	LogX bool

	// ShowLegend adds a legend entry per series (default: true)
	ShowLegend bool
}

// DefaultPlotOptions returns default plotting options.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{
		Title:      "Waveform",
		XLabel:     "time [s]",
		YLabel:     "value",
		Width:      10.0,
		Height:     6.0,
		ShowLegend: true,
	}
}

// PlotWaveforms creates a line plot of one or more traces sharing an axis
// convention. Each series is drawn in its palette color.
//
// Returns a gonum plot.Plot that can be saved using SavePNG, SaveSVG, or
// SavePDF.
func PlotWaveforms(series []Series, opts PlotOptions) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no series to plot")
	}
	for _, s := range series {
		if len(s.X) != len(s.Y) {
			return nil, fmt.Errorf("series %q: x and y lengths differ", s.Name)
		}
		if len(s.X) == 0 {
			return nil, fmt.Errorf("series %q is empty", s.Name)
		}
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	if opts.LogX {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{}
	}
	p.Add(plotter.NewGrid())

	for i, s := range series {
		pts := make(plotter.XYs, len(s.X))
		for j := range s.X {
			pts[j].X = s.X[j]
			pts[j].Y = s.Y[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build line for %q: %w", s.Name, err)
		}
		line.Color = TraceColor(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		if opts.ShowLegend {
			p.Legend.Add(s.Name, line)
		}
	}

	return p, nil
}

// PlotBode renders the classic AC pair: gain in dB and phase in degrees
// against a log frequency axis, as two stacked plots.
func PlotBode(freq, gainDB, phaseDeg []float64, title string) (gain, phase *plot.Plot, err error) {
	if len(freq) == 0 || len(freq) != len(gainDB) || len(freq) != len(phaseDeg) {
		return nil, nil, fmt.Errorf("freq, gain and phase must share a non-empty length")
	}

	gainOpts := DefaultPlotOptions()
	gainOpts.Title = title + " — magnitude"
	gainOpts.XLabel = "frequency [Hz]"
	gainOpts.YLabel = "gain [dB]"
	gainOpts.LogX = true
	gainOpts.ShowLegend = false
	gain, err = PlotWaveforms([]Series{{Name: "gain", X: freq, Y: gainDB}}, gainOpts)
	if err != nil {
		return nil, nil, err
	}

	phaseOpts := gainOpts
	phaseOpts.Title = title + " — phase"
	phaseOpts.YLabel = "phase [°]"
	phase, err = PlotWaveforms([]Series{{Name: "phase", X: freq, Y: phaseDeg}}, phaseOpts)
	if err != nil {
		return nil, nil, err
	}
	return gain, phase, nil
}
