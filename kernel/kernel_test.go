package kernel

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/riskgpu/riskgpu/opcode"
)

func TestOperandString(t *testing.T) {
	cases := map[string]Operand{
		"v3":               Var(3),
		"mc_input[0U]":     Scalar(0),
		"mc_input[1U + i]": Array(1),
	}
	for want, o := range cases {
		if got := o.String(); got != want {
			t.Errorf("Operand: erwartet %q, bekommen %q", want, got)
		}
	}
}

func TestBuilderDeclaresOnFirstAssignment(t *testing.T) {
	b := NewBuilder(4)
	if _, err := b.Assign(2, opcode.Mult, Scalar(0), Array(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Assign(3, opcode.Exp, Var(2)); err != nil {
		t.Fatal(err)
	}
	// ID 2 wird nach Freigabe wiederverwendet
	if _, err := b.Assign(2, opcode.Add, Var(3), Var(3)); err != nil {
		t.Fatal(err)
	}

	want := "float v2 = mc_input[0U]*mc_input[1U + i];\n" +
		"float v3 = exp(v2);\n" +
		"v2 = v3+v3;\n"
	if diff := cmp.Diff(want, b.SSA()); diff != "" {
		t.Errorf("SSA mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderRejectsUnknownCode(t *testing.T) {
	b := NewBuilder(1)
	if _, err := b.Assign(0, opcode.ConditionalExpectation, Var(1), Var(2)); err == nil {
		t.Fatal("erwartet Fehler fuer ConditionalExpectation")
	}
	if b.SSA() != "" {
		t.Errorf("fehlgeschlagene Zuweisung darf keine Zeile erzeugen: %q", b.SSA())
	}
}

func TestProgramSource(t *testing.T) {
	b := NewBuilder(8)
	b.Variate(0, 43)
	if _, err := b.Assign(2, opcode.Mult, Var(0), Scalar(0)); err != nil {
		t.Fatal(err)
	}
	b.Output(Var(2))
	b.Output(Array(1))

	p := b.Build(5, 2, 9)
	if p.Name != "mc_kernel_5_v2" {
		t.Errorf("Name: erwartet mc_kernel_5_v2, bekommen %s", p.Name)
	}
	if p.Locals != 3 {
		t.Errorf("Locals: erwartet 3, bekommen %d", p.Locals)
	}

	src := p.Source()
	for _, want := range []string{
		"#pragma OPENCL FP_CONTRACT OFF",
		"__kernel void mc_kernel_5_v2(__global const uint* mc_mult, __global const float* mc_input, __global float* mc_output) {",
		"if (i < 8U) {",
		"float v0 = mc_invCumN(43U * mc_mult[i]);",
		"float v2 = v0*mc_input[0U];",
		"mc_output[0U * 8U + i] = v2;",
		"mc_output[1U * 8U + i] = mc_input[1U + i];",
		"float mc_invCumN(const uint x0)",
		"float mc_indicatorEq(",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("Source enthaelt %q nicht", want)
		}
	}
}

func TestProgramSourceWithoutInputs(t *testing.T) {
	b := NewBuilder(2)
	b.Variate(0, 7)
	b.Output(Var(0))
	src := b.Build(1, 0, 0).Source()

	if strings.Contains(src, "mc_input") {
		t.Error("Kernel ohne Inputs sollte kein mc_input-Argument haben")
	}
	if !strings.Contains(src, "(__global const uint* mc_mult, __global float* mc_output)") {
		t.Errorf("unerwartete Signatur:\n%s", src)
	}
}

func TestBuildCopiesState(t *testing.T) {
	b := NewBuilder(1)
	b.Output(Var(0))
	p := b.Build(1, 0, 1)
	b.Output(Var(1))
	if len(p.Outputs) != 1 {
		t.Errorf("Program darf sich nach Build nicht aendern: %d Ausgaben", len(p.Outputs))
	}
}
