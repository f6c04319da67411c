// Package export serialises simulation data to interchange formats: CSV,
// JSON, MATLAB Level-5 containers, and NumPy .npy/.npz archives. Every
// export returns a uniform Result record; per-format failures are
// aggregated there rather than raised.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/causalgo/simcore/internal/simresult"
)

// Format names a supported export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatMAT  Format = "mat"
	FormatNPY  Format = "npy"
	FormatNPZ  Format = "npz"
)

// SupportedFormats lists every format Export accepts.
func SupportedFormats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatMAT, FormatNPY, FormatNPZ}
}

// Result is the uniform outcome record of one export.
type Result struct {
	Success      bool
	Path         string
	Format       Format
	SignalCount  int
	PointCount   int
	ErrorMessage string
}

func ok(path string, format Format, signals, points int) Result {
	return Result{Success: true, Path: path, Format: format, SignalCount: signals, PointCount: points}
}

func fail(path string, format Format, msg string) Result {
	return Result{Path: path, Format: format, ErrorMessage: msg}
}

// Options tunes an export. The zero value exports every signal in sorted
// name order with pretty JSON.
type Options struct {
	// Signals restricts and orders the exported signals. Nil exports all,
	// sorted by name. Names absent from the data are skipped.
	Signals []string
	// Compact disables JSON indentation. The default is 2-space indent.
	Compact bool
}

// Export writes data to path in the requested format.
func Export(data *simresult.SimulationData, format Format, path string, opts Options) Result {
	if data == nil {
		return fail(path, format, "no simulation data")
	}
	switch format {
	case FormatCSV:
		return writeCSV(data, path, opts)
	case FormatJSON:
		return writeJSON(data, path, opts)
	case FormatMAT:
		return writeMAT(data, path, opts)
	case FormatNPY:
		return writeNPY(data, path, opts)
	case FormatNPZ:
		return writeNPZ(data, path, opts)
	default:
		return fail(path, format, "unsupported format: "+string(format))
	}
}

// FromResult exports the data bundle carried by a SimulationResult.
func FromResult(res *simresult.SimulationResult, format Format, path string, opts Options) Result {
	if res == nil || res.Data == nil {
		return fail(path, format, "result has no data")
	}
	return Export(res.Data, format, path, opts)
}

// selectSignals resolves the export order: the caller's list filtered to
// present signals, or all signals sorted by name.
func selectSignals(data *simresult.SimulationData, requested []string) []string {
	if requested == nil {
		names := data.SignalNames()
		sort.Strings(names)
		return names
	}
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, present := data.Signals[name]; present {
			out = append(out, name)
		}
	}
	return out
}

func axisName(data *simresult.SimulationData) string {
	if data.Axis == simresult.AxisFrequency {
		return "frequency"
	}
	return "time"
}

// formatNumber renders a float with the shortest representation that
// round-trips exactly through float64.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(data *simresult.SimulationData, path string, opts Options) Result {
	if len(data.AxisData) == 0 {
		return fail(path, FormatCSV, "no axis data")
	}
	names := selectSignals(data, opts.Signals)
	if len(names) == 0 {
		return fail(path, FormatCSV, "no signals to export")
	}

	f, err := os.Create(path)
	if err != nil {
		return fail(path, FormatCSV, "create failed: "+err.Error())
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{axisName(data)}, names...)
	if err := w.Write(header); err != nil {
		return fail(path, FormatCSV, "write failed: "+err.Error())
	}

	row := make([]string, len(header))
	for i, x := range data.AxisData {
		row[0] = formatNumber(x)
		for j, name := range names {
			row[j+1] = formatNumber(real(data.Signals[name][i]))
		}
		if err := w.Write(row); err != nil {
			return fail(path, FormatCSV, "write failed: "+err.Error())
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fail(path, FormatCSV, "flush failed: "+err.Error())
	}
	return ok(path, FormatCSV, len(names), len(data.AxisData))
}

// ReadCSV loads a CSV file produced by writeCSV back into a
// SimulationData, preserving column ordering in the returned name list.
func ReadCSV(path string) (*simresult.SimulationData, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, nil, fmt.Errorf("not a waveform CSV: %s", path)
	}

	header := records[0]
	axisKind := header[0]
	names := header[1:]

	axis := make([]float64, 0, len(records)-1)
	signals := make(map[string]simresult.Signal, len(names))
	for _, name := range names {
		signals[name] = make(simresult.Signal, 0, len(records)-1)
	}
	for _, rec := range records[1:] {
		x, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, nil, err
		}
		axis = append(axis, x)
		for j, name := range names {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, nil, err
			}
			signals[name] = append(signals[name], complex(v, 0))
		}
	}

	var data *simresult.SimulationData
	if axisKind == "frequency" {
		data, err = simresult.NewFrequencyData(axis, signals)
	} else {
		data, err = simresult.NewTimeData(axis, signals)
	}
	if err != nil {
		return nil, nil, err
	}
	return data, names, nil
}

// complexPair is the JSON wire form of one complex sample.
type complexPair struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

type jsonMetadata struct {
	SignalCount int `json:"signal_count"`
	PointCount  int `json:"point_count"`
}

type jsonDocument struct {
	Time      []float64                  `json:"time,omitempty"`
	Frequency []float64                  `json:"frequency,omitempty"`
	Signals   map[string]json.RawMessage `json:"signals"`
	Metadata  jsonMetadata               `json:"metadata"`
}

func isComplexSignal(sig simresult.Signal) bool {
	for _, v := range sig {
		if imag(v) != 0 {
			return true
		}
	}
	return false
}

func writeJSON(data *simresult.SimulationData, path string, opts Options) Result {
	if len(data.AxisData) == 0 {
		return fail(path, FormatJSON, "no axis data")
	}
	names := selectSignals(data, opts.Signals)

	doc := jsonDocument{
		Signals: make(map[string]json.RawMessage, len(names)),
		Metadata: jsonMetadata{
			SignalCount: len(names),
			PointCount:  len(data.AxisData),
		},
	}
	if data.Axis == simresult.AxisFrequency {
		doc.Frequency = data.AxisData
	} else {
		doc.Time = data.AxisData
	}

	for _, name := range names {
		sig := data.Signals[name]
		var raw []byte
		var err error
		if isComplexSignal(sig) {
			pairs := make([]complexPair, len(sig))
			for i, v := range sig {
				pairs[i] = complexPair{Re: real(v), Im: imag(v)}
			}
			raw, err = json.Marshal(pairs)
		} else {
			reals := make([]float64, len(sig))
			for i, v := range sig {
				reals[i] = real(v)
			}
			raw, err = json.Marshal(reals)
		}
		if err != nil {
			return fail(path, FormatJSON, "marshal failed: "+err.Error())
		}
		doc.Signals[name] = raw
	}

	var out []byte
	var err error
	if opts.Compact {
		out, err = json.Marshal(doc)
	} else {
		out, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fail(path, FormatJSON, "marshal failed: "+err.Error())
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fail(path, FormatJSON, "write failed: "+err.Error())
	}
	return ok(path, FormatJSON, len(names), len(data.AxisData))
}

// ReadJSON loads a JSON document produced by writeJSON back into a
// SimulationData. Complex signals round-trip through {re, im} pairs.
func ReadJSON(path string) (*simresult.SimulationData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc jsonDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	signals := make(map[string]simresult.Signal, len(doc.Signals))
	for name, msg := range doc.Signals {
		var reals []float64
		if err := json.Unmarshal(msg, &reals); err == nil {
			sig := make(simresult.Signal, len(reals))
			for i, v := range reals {
				sig[i] = complex(v, 0)
			}
			signals[name] = sig
			continue
		}
		var pairs []complexPair
		if err := json.Unmarshal(msg, &pairs); err != nil {
			return nil, err
		}
		sig := make(simresult.Signal, len(pairs))
		for i, p := range pairs {
			sig[i] = complex(p.Re, p.Im)
		}
		signals[name] = sig
	}

	if doc.Frequency != nil {
		return simresult.NewFrequencyData(doc.Frequency, signals)
	}
	return simresult.NewTimeData(doc.Time, signals)
}

// SanitizeVarName converts a signal name into a valid MATLAB/NumPy
// identifier: non-alphanumeric characters become underscores, a leading
// non-letter earns a "sig_" prefix, and the result is truncated to 63
// characters.
func SanitizeVarName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	out = strings.Trim(out, "_")
	if out == "" {
		return "signal"
	}
	first := out[0]
	if !(first >= 'a' && first <= 'z') && !(first >= 'A' && first <= 'Z') {
		out = "sig_" + out
	}
	if len(out) > 63 {
		out = out[:63]
	}
	return out
}

// sanitizeUnique sanitises every name, appending numeric suffixes to
// collisions so each signal keeps a distinct variable.
func sanitizeUnique(names []string) map[string]string {
	out := make(map[string]string, len(names))
	used := make(map[string]bool, len(names))
	for _, name := range names {
		base := SanitizeVarName(name)
		candidate := base
		for i := 2; used[candidate]; i++ {
			candidate = base + "_" + strconv.Itoa(i)
		}
		used[candidate] = true
		out[name] = candidate
	}
	return out
}
