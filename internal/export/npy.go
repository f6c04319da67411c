package export

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/causalgo/simcore/internal/simresult"
)

// npyMagic is the NumPy format signature, followed by a 1.0 version pair.
var npyMagic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y', 1, 0}

// npyHeader renders the v1.0 header dict for a little-endian float64 array
// and pads the full preamble to a 64-byte boundary.
func npyHeader(descr string, rows int) []byte {
	dict := fmt.Sprintf("{'descr': %s, 'fortran_order': False, 'shape': (%d,), }", descr, rows)
	// magic (8) + header length field (2) + dict + padding + '\n' aligned to 64
	total := len(npyMagic) + 2 + len(dict) + 1
	pad := (64 - total%64) % 64
	dict += strings.Repeat(" ", pad) + "\n"

	buf := bytes.NewBuffer(nil)
	buf.Write(npyMagic)
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(dict)))
	buf.Write(hlen[:])
	buf.WriteString(dict)
	return buf.Bytes()
}

// structuredDescr builds the dtype list for one axis field plus the
// sanitised signal fields, all '<f8'.
func structuredDescr(axisField string, fields []string) string {
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, fmt.Sprintf("('%s', '<f8')", axisField))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("('%s', '<f8')", f))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// writeNPY emits a single structured array: one named field per signal
// plus the axis, rows interleaved. Complex signals are cast to their real
// part.
func writeNPY(data *simresult.SimulationData, path string, opts Options) Result {
	if len(data.AxisData) == 0 {
		return fail(path, FormatNPY, "no axis data")
	}
	names := selectSignals(data, opts.Signals)
	if len(names) == 0 {
		return fail(path, FormatNPY, "no signals to export")
	}
	sanitised := sanitizeUnique(names)
	fields := make([]string, len(names))
	for i, name := range names {
		fields[i] = sanitised[name]
	}

	f, err := os.Create(path)
	if err != nil {
		return fail(path, FormatNPY, "create failed: "+err.Error())
	}
	defer f.Close()

	if _, err := f.Write(npyHeader(structuredDescr(axisName(data), fields), len(data.AxisData))); err != nil {
		return fail(path, FormatNPY, "write failed: "+err.Error())
	}

	row := make([]byte, 8*(len(names)+1))
	for i, x := range data.AxisData {
		binary.LittleEndian.PutUint64(row[0:8], math.Float64bits(x))
		for j, name := range names {
			v := real(data.Signals[name][i])
			binary.LittleEndian.PutUint64(row[8*(j+1):8*(j+2)], math.Float64bits(v))
		}
		if _, err := f.Write(row); err != nil {
			return fail(path, FormatNPY, "write failed: "+err.Error())
		}
	}
	return ok(path, FormatNPY, len(names), len(data.AxisData))
}

// writeNPZ emits an uncompressed zip of single-array .npy members: one per
// signal plus the axis, each a flat '<f8' vector.
func writeNPZ(data *simresult.SimulationData, path string, opts Options) Result {
	if len(data.AxisData) == 0 {
		return fail(path, FormatNPZ, "no axis data")
	}
	names := selectSignals(data, opts.Signals)
	if len(names) == 0 {
		return fail(path, FormatNPZ, "no signals to export")
	}
	sanitised := sanitizeUnique(names)

	f, err := os.Create(path)
	if err != nil {
		return fail(path, FormatNPZ, "create failed: "+err.Error())
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	writeMember := func(member string, values []float64) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: member + ".npy", Method: zip.Store})
		if err != nil {
			return err
		}
		if _, err := w.Write(npyHeader("'<f8'", len(values))); err != nil {
			return err
		}
		buf := make([]byte, 8*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
		}
		_, err = w.Write(buf)
		return err
	}

	if err := writeMember(axisName(data), data.AxisData); err != nil {
		return fail(path, FormatNPZ, "write failed: "+err.Error())
	}
	for _, name := range names {
		if err := writeMember(sanitised[name], data.Signals[name].Real()); err != nil {
			return fail(path, FormatNPZ, "write failed: "+err.Error())
		}
	}
	if err := zw.Close(); err != nil {
		return fail(path, FormatNPZ, "close failed: "+err.Error())
	}
	return ok(path, FormatNPZ, len(names), len(data.AxisData))
}

// npyArray is one decoded .npy payload: field names (empty for a flat
// vector) and column-major values per field.
type npyArray struct {
	Fields []string
	Data   map[string][]float64
}

// readNPY decodes the subset of the NumPy v1.0 format this package
// produces: little-endian float64, flat or structured, C order.
func readNPY(r io.Reader) (*npyArray, error) {
	head := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	if !bytes.Equal(head[:6], npyMagic[:6]) {
		return nil, fmt.Errorf("not an NPY file")
	}
	hlen := int(binary.LittleEndian.Uint16(head[len(npyMagic):]))
	header := make([]byte, hlen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	dict := string(header)

	rows, err := parseShape(dict)
	if err != nil {
		return nil, err
	}
	fields := parseFields(dict)

	out := &npyArray{Fields: fields, Data: make(map[string][]float64)}
	if len(fields) == 0 {
		// flat vector
		buf := make([]byte, 8*rows)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		values := make([]float64, rows)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
		}
		out.Data[""] = values
		return out, nil
	}

	for _, f := range fields {
		out.Data[f] = make([]float64, rows)
	}
	row := make([]byte, 8*len(fields))
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, err
		}
		for j, f := range fields {
			out.Data[f][i] = math.Float64frombits(binary.LittleEndian.Uint64(row[8*j:]))
		}
	}
	return out, nil
}

func parseShape(dict string) (int, error) {
	i := strings.Index(dict, "'shape': (")
	if i < 0 {
		return 0, fmt.Errorf("shape not found in NPY header")
	}
	rest := dict[i+len("'shape': ("):]
	j := strings.IndexAny(rest, ",)")
	if j < 0 {
		return 0, fmt.Errorf("malformed shape in NPY header")
	}
	return strconv.Atoi(strings.TrimSpace(rest[:j]))
}

// parseFields extracts structured-dtype field names; a scalar descr yields
// none.
func parseFields(dict string) []string {
	i := strings.Index(dict, "'descr': [")
	if i < 0 {
		return nil
	}
	rest := dict[i+len("'descr': ["):]
	end := strings.Index(rest, "]")
	if end < 0 {
		return nil
	}
	var fields []string
	for _, part := range strings.Split(rest[:end], "(") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "'") {
			continue
		}
		close := strings.Index(part[1:], "'")
		if close < 0 {
			continue
		}
		fields = append(fields, part[1:1+close])
	}
	return fields
}

// ReadNPY loads a structured .npy file produced by writeNPY back into an
// axis and signal map keyed by sanitised field name.
func ReadNPY(path string) (axisField string, axis []float64, signals map[string][]float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, nil, err
	}
	defer f.Close()

	arr, err := readNPY(f)
	if err != nil {
		return "", nil, nil, err
	}
	if len(arr.Fields) == 0 {
		return "", nil, nil, fmt.Errorf("expected structured array in %s", path)
	}
	axisField = arr.Fields[0]
	signals = make(map[string][]float64, len(arr.Fields)-1)
	for _, field := range arr.Fields[1:] {
		signals[field] = arr.Data[field]
	}
	return axisField, arr.Data[axisField], signals, nil
}

// ReadNPZ loads every member of an .npz archive produced by writeNPZ.
func ReadNPZ(path string) (map[string][]float64, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make(map[string][]float64, len(zr.File))
	for _, member := range zr.File {
		rc, err := member.Open()
		if err != nil {
			return nil, err
		}
		arr, err := readNPY(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(member.Name, ".npy")
		out[name] = arr.Data[""]
	}
	return out, nil
}
