package opcode

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ============================================================================
// Emit Tests
// ============================================================================

func TestEmit(t *testing.T) {
	cases := []struct {
		code Code
		args []string
		want string
	}{
		{None, []string{"v1"}, "v1"},
		{Add, []string{"v1", "v2", "v3"}, "v1+v2+v3"},
		{Subtract, []string{"v1", "v2"}, "v1-v2"},
		{Negative, []string{"v1"}, "-v1"},
		{Mult, []string{"mc_input[0U]", "mc_input[1U + i]"}, "mc_input[0U]*mc_input[1U + i]"},
		{Div, []string{"v1", "v2"}, "v1/v2"},
		{IndicatorEq, []string{"v1", "v2"}, "mc_indicatorEq(v1,v2)"},
		{IndicatorGt, []string{"v1", "v2"}, "mc_indicatorGt(v1,v2)"},
		{IndicatorGeq, []string{"v1", "v2"}, "mc_indicatorGeq(v1,v2)"},
		{Min, []string{"v1", "v2"}, "fmin(v1,v2)"},
		{Max, []string{"v1", "v2"}, "fmax(v1,v2)"},
		{Abs, []string{"v1"}, "fabs(v1)"},
		{Exp, []string{"v1"}, "exp(v1)"},
		{Sqrt, []string{"v1"}, "sqrt(v1)"},
		{Log, []string{"v1"}, "log(v1)"},
		{Pow, []string{"v1", "v2"}, "pow(v1,v2)"},
		{NormalCdf, []string{"v1"}, "mc_normalCdf(v1)"},
		{NormalPdf, []string{"v1"}, "mc_normalPdf(v1)"},
	}

	for _, tt := range cases {
		t.Run(tt.code.String(), func(t *testing.T) {
			got, err := Emit(tt.code, tt.args)
			if err != nil {
				t.Fatalf("Emit: unerwarteter Fehler: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Emit mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmitUnknownCode(t *testing.T) {
	for _, code := range []Code{ConditionalExpectation, Code(42), Code(-1)} {
		_, err := Emit(code, []string{"v1", "v2"})
		if !errors.Is(err, ErrUnknownCode) {
			t.Fatalf("Emit(%d): erwartet ErrUnknownCode, bekommen %v", int(code), err)
		}
		if !strings.Contains(err.Error(), code.String()) {
			t.Errorf("Fehlermeldung nennt den Code nicht: %q", err)
		}
	}
}

func TestEmitArity(t *testing.T) {
	if _, err := Emit(Subtract, []string{"v1"}); !errors.Is(err, ErrArity) {
		t.Errorf("Subtract mit einem Argument: erwartet ErrArity, bekommen %v", err)
	}
	if _, err := Emit(Add, nil); !errors.Is(err, ErrArity) {
		t.Errorf("Add ohne Argumente: erwartet ErrArity, bekommen %v", err)
	}
	if _, err := Emit(Exp, []string{"v1", "v2"}); !errors.Is(err, ErrArity) {
		t.Errorf("Exp mit zwei Argumenten: erwartet ErrArity, bekommen %v", err)
	}
}

func TestPreludeDefinesHelpers(t *testing.T) {
	for _, fn := range []string{"mc_closeEnough", "mc_indicatorEq", "mc_indicatorGt", "mc_indicatorGeq", "mc_normalCdf", "mc_normalPdf"} {
		if !strings.Contains(Prelude(), "float "+fn) && !strings.Contains(Prelude(), "bool "+fn) {
			t.Errorf("Prelude definiert %s nicht", fn)
		}
	}
}

// ============================================================================
// Eval Tests
// ============================================================================

func TestEval(t *testing.T) {
	cases := []struct {
		name string
		code Code
		args []float32
		want float32
	}{
		{"add", Add, []float32{2, 3}, 5},
		{"add nary", Add, []float32{1, 2, 3, 4}, 10},
		{"sub", Subtract, []float32{2, 3}, -1},
		{"neg", Negative, []float32{2}, -2},
		{"mult", Mult, []float32{2, 3}, 6},
		{"div", Div, []float32{3, 2}, 1.5},
		{"min", Min, []float32{2, 3}, 2},
		{"max", Max, []float32{2, 3}, 3},
		{"abs", Abs, []float32{-2}, 2},
		{"gt", IndicatorGt, []float32{3, 2}, 1},
		{"gt equal", IndicatorGt, []float32{2, 2}, 0},
		{"gt less", IndicatorGt, []float32{1, 2}, 0},
		{"geq equal", IndicatorGeq, []float32{2, 2}, 1},
		{"geq less", IndicatorGeq, []float32{1, 2}, 0},
		{"eq", IndicatorEq, []float32{2, 2}, 1},
		{"eq differ", IndicatorEq, []float32{2, 3}, 0},
		{"sqrt", Sqrt, []float32{9}, 3},
		{"exp zero", Exp, []float32{0}, 1},
		{"log one", Log, []float32{1}, 0},
		{"pow", Pow, []float32{2, 10}, 1024},
		{"none", None, []float32{7}, 7},
		{"cdf zero", NormalCdf, []float32{0}, 0.5},
		{"pdf far tail", NormalPdf, []float32{40}, 0},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.code, tt.args)
			if err != nil {
				t.Fatalf("Eval: unerwarteter Fehler: %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval(%s, %v): erwartet %v, bekommen %v", tt.code, tt.args, tt.want, got)
			}
		})
	}
}

func TestEvalNormalPdf(t *testing.T) {
	got, err := Eval(NormalPdf, []float32{1})
	if err != nil {
		t.Fatal(err)
	}
	want := math.Exp(-0.5) / math.Sqrt(2*math.Pi)
	if math.Abs(float64(got)-want) > 1e-6 {
		t.Errorf("NormalPdf(1): erwartet %v, bekommen %v", want, got)
	}
}

func TestIndicatorTolerance(t *testing.T) {
	x := float32(1)

	below, _ := Eval(IndicatorEq, []float32{x, x + 1e-6})
	if below != 1 {
		t.Errorf("IndicatorEq(1, 1+1e-6): erwartet 1, bekommen %v", below)
	}

	above, _ := Eval(IndicatorEq, []float32{x, x + 1e-5})
	if above != 0 {
		t.Errorf("IndicatorEq(1, 1+1e-5): erwartet 0, bekommen %v", above)
	}

	// Gt kippt nicht durch Rundungsrauschen
	if gt, _ := Eval(IndicatorGt, []float32{x + 1e-6, x}); gt != 0 {
		t.Errorf("IndicatorGt(1+1e-6, 1): erwartet 0, bekommen %v", gt)
	}
}

func TestCloseEnoughZero(t *testing.T) {
	if !CloseEnough(0, 1e-12) {
		t.Error("CloseEnough(0, 1e-12) sollte true sein")
	}
	if CloseEnough(0, 1e-9) {
		t.Error("CloseEnough(0, 1e-9) sollte false sein")
	}
}

func TestMinMaxNaN(t *testing.T) {
	nan := float32(math.NaN())
	if got, _ := Eval(Min, []float32{nan, 2}); got != 2 {
		t.Errorf("fmin(NaN, 2): erwartet 2, bekommen %v", got)
	}
	if got, _ := Eval(Max, []float32{2, nan}); got != 2 {
		t.Errorf("fmax(2, NaN): erwartet 2, bekommen %v", got)
	}
}

// ============================================================================
// Parse Tests
// ============================================================================

func TestParse(t *testing.T) {
	code, err := Parse("indicatorgeq")
	if err != nil || code != IndicatorGeq {
		t.Fatalf("Parse(indicatorgeq): erwartet IndicatorGeq, bekommen %v, %v", code, err)
	}

	_, err = Parse("Mul")
	if err == nil || !strings.Contains(err.Error(), `"Mult"`) {
		t.Errorf("Parse(Mul): erwartet Vorschlag Mult, bekommen %v", err)
	}
}
