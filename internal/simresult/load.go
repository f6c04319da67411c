package simresult

import (
	"encoding/json"
	"os"
	"time"

	"github.com/causalgo/simcore/internal/errkind"
	"github.com/causalgo/simcore/pkg/matdata"
)

// The on-disk artifact is JSON with complex samples carried as {re, im}
// pairs; real signals are flat number arrays. Only the field contract is
// fixed — the executor writing the artifact and this loader must agree on
// nothing else.

type samplePair struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

type artifactData struct {
	Axis    string                     `json:"axis"`
	Values  []float64                  `json:"axis_data"`
	Signals map[string]json.RawMessage `json:"signals"`
}

type artifactError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type artifact struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	SessionTag      string         `json:"session_tag,omitempty"`
	Executor        string         `json:"executor,omitempty"`
	SourcePath      string         `json:"source_path,omitempty"`
	AnalysisType    string         `json:"analysis_type,omitempty"`
	Success         bool           `json:"success"`
	Error           *artifactError `json:"error,omitempty"`
	RawLog          string         `json:"raw_log,omitempty"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
	Data            *artifactData  `json:"data,omitempty"`
	Metrics         map[string]any `json:"metrics,omitempty"`
}

func marshalSignal(sig Signal) ([]byte, error) {
	complexSignal := false
	for _, v := range sig {
		if imag(v) != 0 {
			complexSignal = true
			break
		}
	}
	if complexSignal {
		pairs := make([]samplePair, len(sig))
		for i, v := range sig {
			pairs[i] = samplePair{Re: real(v), Im: imag(v)}
		}
		return json.Marshal(pairs)
	}
	return json.Marshal(sig.Real())
}

func unmarshalSignal(raw json.RawMessage) (Signal, error) {
	var reals []float64
	if err := json.Unmarshal(raw, &reals); err == nil {
		sig := make(Signal, len(reals))
		for i, v := range reals {
			sig[i] = complex(v, 0)
		}
		return sig, nil
	}
	var pairs []samplePair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}
	sig := make(Signal, len(pairs))
	for i, p := range pairs {
		sig[i] = complex(p.Re, p.Im)
	}
	return sig, nil
}

// Save writes the result as a JSON artifact at path.
func Save(r *SimulationResult, path string) error {
	const op = "simresult.Save"
	art := artifact{
		ID:              r.ID,
		Timestamp:       r.Timestamp,
		SessionTag:      r.SessionTag,
		Executor:        r.Executor,
		SourcePath:      r.SourcePath,
		AnalysisType:    r.AnalysisType,
		Success:         r.Success,
		RawLog:          r.RawLog,
		DurationSeconds: r.DurationSeconds,
		Metrics:         r.Metrics,
	}
	if r.Error != nil {
		art.Error = &artifactError{Kind: string(r.Error.Kind), Message: r.Error.Message}
	}
	if r.Data != nil {
		data := &artifactData{
			Axis:    string(r.Data.Axis),
			Values:  r.Data.AxisData,
			Signals: make(map[string]json.RawMessage, len(r.Data.Signals)),
		}
		for name, sig := range r.Data.Signals {
			raw, err := marshalSignal(sig)
			if err != nil {
				return errkind.Wrap(errkind.IoError, op, "marshal signal "+name, err)
			}
			data.Signals[name] = raw
		}
		art.Data = data
	}

	raw, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return errkind.Wrap(errkind.IoError, op, "marshal artifact", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errkind.IO(op, "write artifact", err)
	}
	return nil
}

// Load reads a JSON artifact back into a SimulationResult.
func Load(path string) (*SimulationResult, error) {
	const op = "simresult.Load"
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.IO(op, "read artifact", err)
	}
	var art artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, errkind.Wrap(errkind.InvalidInput, op, "malformed artifact", err)
	}

	result := &SimulationResult{
		ID:              art.ID,
		Timestamp:       art.Timestamp,
		SessionTag:      art.SessionTag,
		Executor:        art.Executor,
		SourcePath:      art.SourcePath,
		AnalysisType:    art.AnalysisType,
		Success:         art.Success,
		RawLog:          art.RawLog,
		DurationSeconds: art.DurationSeconds,
		Metrics:         art.Metrics,
	}
	if art.Error != nil {
		result.Error = &ErrorRecord{Kind: errkind.Kind(art.Error.Kind), Message: art.Error.Message}
	}
	if art.Data != nil {
		signals := make(map[string]Signal, len(art.Data.Signals))
		for name, rawSig := range art.Data.Signals {
			sig, err := unmarshalSignal(rawSig)
			if err != nil {
				return nil, errkind.Wrap(errkind.InvalidInput, op, "malformed signal "+name, err)
			}
			signals[name] = sig
		}
		data, err := newData(AxisKind(art.Data.Axis), art.Data.Values, signals)
		if err != nil {
			return nil, err
		}
		result.Data = data
	}
	return result, nil
}

// LoadMAT builds a SimulationData from a MATLAB container holding a
// "time" or "frequency" vector plus one vector per signal. Variable names
// carry the sanitised form produced at export time.
func LoadMAT(path string) (*SimulationData, error) {
	const op = "simresult.LoadMAT"
	mf, err := matdata.Open(path)
	if err != nil {
		return nil, errkind.IO(op, "open MAT file", err)
	}
	defer mf.Close()

	kind := AxisTime
	axisVar := "time"
	if !mf.HasVariable(axisVar) {
		axisVar = "frequency"
		kind = AxisFrequency
		if !mf.HasVariable(axisVar) {
			return nil, errkind.Missing(op, "no time or frequency variable in "+path)
		}
	}
	axis, err := mf.GetFloat64(axisVar)
	if err != nil {
		return nil, errkind.Wrap(errkind.InvalidInput, op, "read axis", err)
	}

	signals := make(map[string]Signal)
	for _, name := range mf.Variables() {
		if name == axisVar {
			continue
		}
		values, err := mf.GetFloat64(name)
		if err != nil {
			return nil, errkind.Wrap(errkind.InvalidInput, op, "read signal "+name, err)
		}
		sig := make(Signal, len(values))
		for i, v := range values {
			sig[i] = complex(v, 0)
		}
		signals[name] = sig
	}
	return newData(kind, axis, signals)
}
