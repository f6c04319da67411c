// Package mathexpr implements the safe waveform expression language: signal
// references combined with arithmetic, a fixed whitelist of elementwise
// functions, and the domain operators deriv, integ, db and phase. The input
// is parsed into an abstract syntax tree and walked against the whitelist;
// any node outside it is rejected with its source position. There is no
// textual eval path.
package mathexpr

import (
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"math/cmplx"
	"strconv"

	"github.com/causalgo/simcore/internal/errkind"
	"github.com/causalgo/simcore/internal/simresult"
	"github.com/causalgo/simcore/internal/wavesvc"
)

// value is an expression operand: either a scalar literal or a whole-signal
// array. Scalars broadcast across arrays in binary operations.
type value struct {
	scalar  complex128
	array   []complex128
	isArray bool
}

// Evaluator compiles and runs waveform expressions against one result's
// signals and axis. It is pure per expression and safe for concurrent use.
type Evaluator struct{}

// New builds an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate parses expr, validates it against the whitelist, and computes it
// elementwise over the result's signals. The returned WaveformData is
// labelled with the expression text and carries the result's axis; complex
// outcomes are reduced to their real part for display.
func (e *Evaluator) Evaluate(result *simresult.SimulationResult, expr string) (*wavesvc.WaveformData, error) {
	const op = "mathexpr.Evaluate"
	if result == nil || result.Data == nil {
		return nil, errkind.Missing(op, "result has no data")
	}
	data := result.Data

	node, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, errkind.Eval(op, "parse error: "+err.Error())
	}

	ev := &evaluation{src: expr, data: data}
	v, err := ev.eval(node)
	if err != nil {
		return nil, err
	}

	axis := data.AxisData
	values := make([]float64, len(axis))
	if v.isArray {
		if len(v.array) != len(axis) {
			return nil, errkind.Eval(op, "result length does not match axis length")
		}
		for i, c := range v.array {
			values[i] = real(c)
		}
	} else {
		for i := range values {
			values[i] = real(v.scalar)
		}
	}
	return &wavesvc.WaveformData{Name: expr, Axis: axis, Values: values}, nil
}

type evaluation struct {
	src  string
	data *simresult.SimulationData
}

// pos reports the zero-based character offset of a node in the source
// expression. parser.ParseExpr numbers positions from 1.
func (ev *evaluation) pos(n ast.Node) int {
	return int(n.Pos()) - 1
}

// text reconstructs the literal source span of a node, used to resolve
// signal references like V(out) that parse as call expressions.
func (ev *evaluation) text(n ast.Node) string {
	start, end := int(n.Pos())-1, int(n.End())-1
	if start < 0 || end > len(ev.src) || start >= end {
		return ""
	}
	return ev.src[start:end]
}

func (ev *evaluation) errAt(n ast.Node, msg string) error {
	return errkind.Eval("mathexpr.Evaluate", msg+" at position "+strconv.Itoa(ev.pos(n)))
}

func (ev *evaluation) eval(node ast.Expr) (value, error) {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return ev.eval(n.X)

	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return value{}, ev.errAt(n, "unsupported literal "+n.Value)
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return value{}, ev.errAt(n, "malformed number "+n.Value)
		}
		return value{scalar: complex(f, 0)}, nil

	case *ast.Ident:
		return ev.signal(n, n.Name)

	case *ast.UnaryExpr:
		v, err := ev.eval(n.X)
		if err != nil {
			return value{}, err
		}
		switch n.Op {
		case token.SUB:
			return mapValue(v, func(c complex128) complex128 { return -c }), nil
		case token.ADD:
			return v, nil
		default:
			return value{}, ev.errAt(n, "operator "+n.Op.String()+" is not permitted")
		}

	case *ast.BinaryExpr:
		return ev.binary(n)

	case *ast.CallExpr:
		return ev.call(n)

	default:
		return value{}, ev.errAt(node, "construct is not permitted")
	}
}

func (ev *evaluation) signal(n ast.Node, name string) (value, error) {
	sig, ok := ev.data.GetSignal(name)
	if !ok {
		return value{}, ev.errAt(n, "unknown identifier "+name)
	}
	return value{array: append([]complex128(nil), sig...), isArray: true}, nil
}

func (ev *evaluation) binary(n *ast.BinaryExpr) (value, error) {
	left, err := ev.eval(n.X)
	if err != nil {
		return value{}, err
	}
	right, err := ev.eval(n.Y)
	if err != nil {
		return value{}, err
	}

	var fn func(a, b complex128) complex128
	switch n.Op {
	case token.ADD:
		fn = func(a, b complex128) complex128 { return a + b }
	case token.SUB:
		fn = func(a, b complex128) complex128 { return a - b }
	case token.MUL:
		fn = func(a, b complex128) complex128 { return a * b }
	case token.QUO:
		fn = func(a, b complex128) complex128 { return a / b }
	default:
		return value{}, ev.errAt(n, "operator "+n.Op.String()+" is not permitted")
	}

	if left.isArray && right.isArray && len(left.array) != len(right.array) {
		return value{}, ev.errAt(n, "operand lengths differ")
	}
	return combine(left, right, fn), nil
}

// functions is the fixed whitelist of unary elementwise operations.
var functions = map[string]func(complex128) complex128{
	"abs":   func(c complex128) complex128 { return complex(cmplx.Abs(c), 0) },
	"sqrt":  cmplx.Sqrt,
	"log":   cmplx.Log,
	"log10": func(c complex128) complex128 { return cmplx.Log10(c) },
	"exp":   cmplx.Exp,
	"sin":   cmplx.Sin,
	"cos":   cmplx.Cos,
	"tan":   cmplx.Tan,
	"db": func(c complex128) complex128 {
		mag := cmplx.Abs(c)
		if mag <= 0 {
			return complex(math.Inf(-1), 0)
		}
		return complex(20*math.Log10(mag), 0)
	},
	"phase": func(c complex128) complex128 {
		return complex(math.Atan2(imag(c), real(c))*180/math.Pi, 0)
	},
	"arg": func(c complex128) complex128 {
		return complex(math.Atan2(imag(c), real(c))*180/math.Pi, 0)
	},
	"real": func(c complex128) complex128 { return complex(real(c), 0) },
	"imag": func(c complex128) complex128 { return complex(imag(c), 0) },
}

func (ev *evaluation) call(n *ast.CallExpr) (value, error) {
	ident, ok := n.Fun.(*ast.Ident)
	if !ok {
		return value{}, ev.errAt(n, "construct is not permitted")
	}
	name := ident.Name

	if fn, ok := functions[name]; ok {
		if len(n.Args) != 1 {
			return value{}, ev.errAt(n, name+" takes exactly one argument")
		}
		arg, err := ev.eval(n.Args[0])
		if err != nil {
			return value{}, err
		}
		return mapValue(arg, fn), nil
	}

	switch name {
	case "deriv", "integ":
		if len(n.Args) != 1 {
			return value{}, ev.errAt(n, name+" takes exactly one argument")
		}
		arg, err := ev.eval(n.Args[0])
		if err != nil {
			return value{}, err
		}
		if !arg.isArray {
			return value{}, ev.errAt(n, name+" requires a signal operand")
		}
		if len(arg.array) != len(ev.data.AxisData) {
			return value{}, ev.errAt(n, name+" operand length does not match axis")
		}
		if name == "deriv" {
			return value{array: derivative(ev.data.AxisData, arg.array), isArray: true}, nil
		}
		return value{array: integral(ev.data.AxisData, arg.array), isArray: true}, nil
	}

	// A call whose callee is not whitelisted is a signal reference written
	// in SPICE syntax, e.g. V(out) or I(R1). The whole source span is the
	// signal name.
	if ref := ev.text(n); ref != "" {
		if sig, ok := ev.data.GetSignal(ref); ok {
			return value{array: append([]complex128(nil), sig...), isArray: true}, nil
		}
	}
	return value{}, ev.errAt(n, "unknown identifier "+ev.text(n))
}

func mapValue(v value, fn func(complex128) complex128) value {
	if !v.isArray {
		return value{scalar: fn(v.scalar)}
	}
	out := make([]complex128, len(v.array))
	for i, c := range v.array {
		out[i] = fn(c)
	}
	return value{array: out, isArray: true}
}

func combine(a, b value, fn func(x, y complex128) complex128) value {
	switch {
	case a.isArray && b.isArray:
		out := make([]complex128, len(a.array))
		for i := range a.array {
			out[i] = fn(a.array[i], b.array[i])
		}
		return value{array: out, isArray: true}
	case a.isArray:
		out := make([]complex128, len(a.array))
		for i, c := range a.array {
			out[i] = fn(c, b.scalar)
		}
		return value{array: out, isArray: true}
	case b.isArray:
		out := make([]complex128, len(b.array))
		for i, c := range b.array {
			out[i] = fn(a.scalar, c)
		}
		return value{array: out, isArray: true}
	default:
		return value{scalar: fn(a.scalar, b.scalar)}
	}
}

// derivative applies central finite differences against the axis, with
// one-sided differences at the endpoints.
func derivative(x []float64, y []complex128) []complex128 {
	n := len(y)
	out := make([]complex128, n)
	if n < 2 {
		return out
	}
	out[0] = (y[1] - y[0]) / complex(x[1]-x[0], 0)
	out[n-1] = (y[n-1] - y[n-2]) / complex(x[n-1]-x[n-2], 0)
	for i := 1; i < n-1; i++ {
		out[i] = (y[i+1] - y[i-1]) / complex(x[i+1]-x[i-1], 0)
	}
	return out
}

// integral is trapezoidal cumulative integration against the axis.
func integral(x []float64, y []complex128) []complex128 {
	n := len(y)
	out := make([]complex128, n)
	for i := 1; i < n; i++ {
		step := (y[i] + y[i-1]) * complex(0.5*(x[i]-x[i-1]), 0)
		out[i] = out[i-1] + step
	}
	return out
}
