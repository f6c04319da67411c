package export

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"

	"github.com/causalgo/simcore/internal/simresult"
)

// MAT Level-5 data type and class tags used by the writer.
const (
	miINT8   = 1
	miINT32  = 5
	miUINT32 = 6
	miDOUBLE = 9
	miMATRIX = 14

	mxDoubleClass = 6
)

// writeMAT emits a MATLAB Level-5 container: one 1×N double array per
// signal plus the axis. Complex signals carry an imaginary part element.
func writeMAT(data *simresult.SimulationData, path string, opts Options) Result {
	if len(data.AxisData) == 0 {
		return fail(path, FormatMAT, "no axis data")
	}
	names := selectSignals(data, opts.Signals)
	if len(names) == 0 {
		return fail(path, FormatMAT, "no signals to export")
	}
	sanitised := sanitizeUnique(names)

	buf := bytes.NewBuffer(nil)
	writeMATHeader(buf)

	writeMATVector(buf, axisName(data), data.AxisData, nil)
	for _, name := range names {
		sig := data.Signals[name]
		reals := sig.Real()
		var imags []float64
		if isComplexSignal(sig) {
			imags = make([]float64, len(sig))
			for i, v := range sig {
				imags[i] = imag(v)
			}
		}
		writeMATVector(buf, sanitised[name], reals, imags)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fail(path, FormatMAT, "write failed: "+err.Error())
	}
	return ok(path, FormatMAT, len(names), len(data.AxisData))
}

// writeMATHeader writes the 128-byte file header: descriptive text,
// zeroed subsystem offset, version 0x0100 and the "IM" endian indicator.
func writeMATHeader(buf *bytes.Buffer) {
	text := make([]byte, 116)
	copy(text, []byte("MATLAB 5.0 MAT-file, Platform: GO, Created by: simcore"))
	for i := len("MATLAB 5.0 MAT-file, Platform: GO, Created by: simcore"); i < 116; i++ {
		text[i] = ' '
	}
	buf.Write(text)
	buf.Write(make([]byte, 8)) // subsystem data offset
	var version [2]byte
	binary.LittleEndian.PutUint16(version[:], 0x0100)
	buf.Write(version[:])
	buf.WriteByte('I')
	buf.WriteByte('M')
}

func writeTag(buf *bytes.Buffer, dataType, byteCount int) {
	var tag [8]byte
	binary.LittleEndian.PutUint32(tag[0:4], uint32(dataType))
	binary.LittleEndian.PutUint32(tag[4:8], uint32(byteCount))
	buf.Write(tag[:])
}

func pad8(buf *bytes.Buffer, byteCount int) {
	if rem := byteCount % 8; rem != 0 {
		buf.Write(make([]byte, 8-rem))
	}
}

func writeDoubles(buf *bytes.Buffer, values []float64) {
	writeTag(buf, miDOUBLE, 8*len(values))
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	buf.Write(raw)
}

// writeMATVector emits one miMATRIX element holding a 1×N double row
// vector. imags, when non-nil, adds the complex flag and imaginary part.
func writeMATVector(buf *bytes.Buffer, name string, reals, imags []float64) {
	body := bytes.NewBuffer(nil)

	// array flags subelement
	writeTag(body, miUINT32, 8)
	flags := uint32(mxDoubleClass)
	if imags != nil {
		flags |= 1 << 11 // complex bit
	}
	var flagWords [8]byte
	binary.LittleEndian.PutUint32(flagWords[0:4], flags)
	body.Write(flagWords[:])

	// dimensions subelement: 1 x N
	writeTag(body, miINT32, 8)
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:4], 1)
	binary.LittleEndian.PutUint32(dims[4:8], uint32(len(reals)))
	body.Write(dims[:])

	// array name subelement
	writeTag(body, miINT8, len(name))
	body.WriteString(name)
	pad8(body, len(name))

	// real part, then optional imaginary part
	writeDoubles(body, reals)
	if imags != nil {
		writeDoubles(body, imags)
	}

	writeTag(buf, miMATRIX, body.Len())
	buf.Write(body.Bytes())
}
