// Package visualization renders waveform previews as line plots.
//
// This package wraps gonum/plot with a small API tuned for simulation
// traces: a stable trace palette, log-axis support for AC sweeps, and
// PNG/SVG/PDF export.
package visualization

import (
	"image/color"
)

// TracePalette is the ordered set of colors assigned to traces. A plot
// with more traces than palette entries wraps around.
var TracePalette = []color.RGBA{
	{R: 77, G: 121, B: 167, A: 255},  // blue
	{R: 225, G: 87, B: 89, A: 255},   // red
	{R: 249, G: 166, B: 77, A: 255},  // orange
	{R: 89, G: 161, B: 79, A: 255},   // green
	{R: 176, G: 122, B: 161, A: 255}, // purple
	{R: 118, G: 183, B: 178, A: 255}, // teal
}

// Colors names the fixed roles used outside the trace cycle.
var Colors = map[string]color.RGBA{
	"grid":   {R: 220, G: 220, B: 220, A: 255},
	"marker": {R: 150, G: 150, B: 150, A: 255},
	"border": {R: 0, G: 0, B: 0, A: 255},
}

// TraceColor returns the palette color for trace index i.
func TraceColor(i int) color.RGBA {
	if len(TracePalette) == 0 {
		return color.RGBA{R: 128, G: 128, B: 128, A: 255}
	}
	return TracePalette[i%len(TracePalette)]
}

// LightenColor lightens an RGB color by factor (0.0-1.0). factor=0 returns
// the original color, factor=1 returns white.
func LightenColor(c color.RGBA, factor float64) color.RGBA {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}

	lighten := func(component uint8) uint8 {
		f := float64(component) / 255.0
		lightened := f + (1.0-f)*factor
		return uint8(lightened * 255.0)
	}

	return color.RGBA{
		R: lighten(c.R),
		G: lighten(c.G),
		B: lighten(c.B),
		A: c.A,
	}
}

// GetColor returns the color for a named role, or gray for an unknown one.
func GetColor(role string) color.RGBA {
	if c, ok := Colors[role]; ok {
		return c
	}
	return color.RGBA{R: 128, G: 128, B: 128, A: 255}
}
