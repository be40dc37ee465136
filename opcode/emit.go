// emit.go - Kernel-Text fuer einzelne Operationen und gemeinsamer Prelude-Code
// Enthaelt: Emit, Prelude
package opcode

import "strings"

// Emit bildet code auf einen skalaren OpenCL-C-Ausdruck ueber args ab.
// Die Operanden muessen atomare Ausdruecke sein (Variablennamen oder Buffer-Zugriffe).
func Emit(code Code, args []string) (string, error) {
	if err := check(code, len(args)); err != nil {
		return "", err
	}

	switch code {
	case None:
		return args[0], nil
	case Add:
		return strings.Join(args, "+"), nil
	case Subtract:
		return args[0] + "-" + args[1], nil
	case Negative:
		return "-" + args[0], nil
	case Mult:
		return args[0] + "*" + args[1], nil
	case Div:
		return args[0] + "/" + args[1], nil
	case IndicatorEq:
		return call("mc_indicatorEq", args...), nil
	case IndicatorGt:
		return call("mc_indicatorGt", args...), nil
	case IndicatorGeq:
		return call("mc_indicatorGeq", args...), nil
	case Min:
		return call("fmin", args...), nil
	case Max:
		return call("fmax", args...), nil
	case Abs:
		return call("fabs", args...), nil
	case Exp:
		return call("exp", args...), nil
	case Sqrt:
		return call("sqrt", args...), nil
	case Log:
		return call("log", args...), nil
	case Pow:
		return call("pow", args...), nil
	case NormalCdf:
		return call("mc_normalCdf", args...), nil
	case NormalPdf:
		return call("mc_normalPdf", args...), nil
	}

	// check hat alle anderen Codes bereits abgelehnt
	panic("opcode: unreachable " + code.String())
}

func call(fn string, args ...string) string {
	return fn + "(" + strings.Join(args, ",") + ")"
}

// Prelude gibt die Hilfsfunktionen zurueck, auf die Emit verweist.
func Prelude() string {
	return prelude
}

const prelude = `bool mc_closeEnough(const float x, const float y);
bool mc_closeEnough(const float x, const float y) {
    const float tol = 42.0f * FLT_EPSILON;
    float diff = fabs(x - y);
    if (x == 0.0f || y == 0.0f)
        return diff < tol * tol;
    return diff <= tol * fabs(x) || diff <= tol * fabs(y);
}
float mc_indicatorEq(const float x, const float y);
float mc_indicatorEq(const float x, const float y) { return mc_closeEnough(x, y) ? 1.0f : 0.0f; }
float mc_indicatorGt(const float x, const float y);
float mc_indicatorGt(const float x, const float y) { return (x > y && !mc_closeEnough(x, y)) ? 1.0f : 0.0f; }
float mc_indicatorGeq(const float x, const float y);
float mc_indicatorGeq(const float x, const float y) { return (x > y || mc_closeEnough(x, y)) ? 1.0f : 0.0f; }
float mc_normalCdf(const float x);
float mc_normalCdf(const float x) { return 0.5f * erfc(-x * 0.70710678118654752f); }
float mc_normalPdf(const float x);
float mc_normalPdf(const float x) {
    float exponent = -(x * x) / 2.0f;
    return exponent <= -690.0f ? 0.0f : exp(exponent) * 0.3989422804014327f;
}
`
