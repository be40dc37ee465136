// eval.go - float32-Spiegel der Kernel-Ausdruecke fuer Host-Geraete
// Enthaelt: Eval, CloseEnough
package opcode

import "math"

// Epsilon entspricht FLT_EPSILON.
const Epsilon float32 = 1.1920928955078125e-07

// Tolerance ist die relative Toleranz von CloseEnough.
const Tolerance = 42 * Epsilon

// CloseEnough vergleicht zwei Werte mit relativer Toleranz, damit Schwellwerte
// nicht an Rundungsartefakten kippen. Ist ein Wert 0, gilt eine absolute Toleranz.
func CloseEnough(x, y float32) bool {
	diff := abs32(x - y)
	if x == 0 || y == 0 {
		return diff < Tolerance*Tolerance
	}
	return diff <= Tolerance*abs32(x) || diff <= Tolerance*abs32(y)
}

// Eval wertet code fuer eine Lane aus. Jede Teiloperation rundet auf float32,
// wie es ein Geraet mit einfacher Genauigkeit tut.
func Eval(code Code, args []float32) (float32, error) {
	if err := check(code, len(args)); err != nil {
		return 0, err
	}

	switch code {
	case None:
		return args[0], nil
	case Add:
		sum := args[0]
		for _, a := range args[1:] {
			sum = float32(sum + a)
		}
		return sum, nil
	case Subtract:
		return float32(args[0] - args[1]), nil
	case Negative:
		return -args[0], nil
	case Mult:
		return float32(args[0] * args[1]), nil
	case Div:
		return float32(args[0] / args[1]), nil
	case IndicatorEq:
		return indicator(CloseEnough(args[0], args[1])), nil
	case IndicatorGt:
		return indicator(args[0] > args[1] && !CloseEnough(args[0], args[1])), nil
	case IndicatorGeq:
		return indicator(args[0] > args[1] || CloseEnough(args[0], args[1])), nil
	case Min:
		return fmin32(args[0], args[1]), nil
	case Max:
		return fmax32(args[0], args[1]), nil
	case Abs:
		return abs32(args[0]), nil
	case Exp:
		return float32(math.Exp(float64(args[0]))), nil
	case Sqrt:
		return float32(math.Sqrt(float64(args[0]))), nil
	case Log:
		return float32(math.Log(float64(args[0]))), nil
	case Pow:
		return float32(math.Pow(float64(args[0]), float64(args[1]))), nil
	case NormalCdf:
		z := float32(-args[0] * 0.70710678118654752)
		return float32(0.5 * float32(math.Erfc(float64(z)))), nil
	case NormalPdf:
		exponent := float32(-float32(args[0]*args[0]) / 2)
		if exponent <= -690 {
			return 0, nil
		}
		return float32(float32(math.Exp(float64(exponent))) * 0.3989422804014327), nil
	}

	panic("opcode: unreachable " + code.String())
}

func indicator(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func abs32(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) &^ (1 << 31))
}

// fmin32 und fmax32 folgen C: ist ein Operand NaN, gewinnt der andere.
func fmin32(x, y float32) float32 {
	switch {
	case isNaN(x):
		return y
	case isNaN(y):
		return x
	case y < x:
		return y
	}
	return x
}

func fmax32(x, y float32) float32 {
	switch {
	case isNaN(x):
		return y
	case isNaN(y):
		return x
	case y > x:
		return y
	}
	return x
}

func isNaN(x float32) bool {
	return math.IsNaN(float64(x))
}
