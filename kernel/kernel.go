// MODUL: kernel
// ZWECK: SSA-Programm einer Berechnung aufzeichnen und als OpenCL-Kernel rendern
// INPUT: Variaten, Zuweisungen (opcode.Code + Operanden), Ausgaben
// OUTPUT: Program mit SSA-Text und vollstaendigem Kernel-Quelltext
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: opcode (Ausdruecke, Prelude), variates (Generator-Quelltext)
// HINWEISE: Program ist nach Build unveraenderlich und wird von Geraeten
//           sowohl als Quelltext (OpenCL) als auch strukturiert (Host) genutzt
package kernel

import (
	"fmt"
	"strings"

	"github.com/riskgpu/riskgpu/opcode"
	"github.com/riskgpu/riskgpu/variates"
)

// Kind unterscheidet, woher ein Operand seinen Wert bezieht.
type Kind int

const (
	Local Kind = iota
	InputScalar
	InputArray
)

// Operand ist ein atomarer Kernel-Ausdruck: lokale Variable oder Input-Zugriff.
type Operand struct {
	Kind Kind
	// Index ist die Variablen-ID (Local) bzw. der Offset im Input-Buffer
	Index int
}

func Var(id int) Operand        { return Operand{Kind: Local, Index: id} }
func Scalar(off int) Operand    { return Operand{Kind: InputScalar, Index: off} }
func Array(off int) Operand     { return Operand{Kind: InputArray, Index: off} }
func (o Operand) IsInput() bool { return o.Kind != Local }

func (o Operand) String() string {
	switch o.Kind {
	case InputScalar:
		return fmt.Sprintf("mc_input[%dU]", o.Index)
	case InputArray:
		return fmt.Sprintf("mc_input[%dU + i]", o.Index)
	default:
		return fmt.Sprintf("v%d", o.Index)
	}
}

// Variate bindet eine lokale Variable an einen Zufallsstrom.
type Variate struct {
	Var  int
	Seed uint32
}

// Statement ist eine SSA-Zeile.
type Statement struct {
	Result  int
	Code    opcode.Code
	Args    []Operand
	Declare bool
	Expr    string
}

// Line gibt die Zeile so zurueck, wie sie im Kernel steht.
func (s Statement) Line() string {
	if s.Declare {
		return fmt.Sprintf("float v%d = %s;", s.Result, s.Expr)
	}
	return fmt.Sprintf("v%d = %s;", s.Result, s.Expr)
}

// Name gibt den Kernel-Namen fuer (id, version) zurueck.
func Name(id, version int) string {
	return fmt.Sprintf("mc_kernel_%d_v%d", id, version)
}

// ============================================================================
// Program
// ============================================================================

// Program ist ein fertig aufgezeichnetes Kernel-Programm.
type Program struct {
	Name       string
	N          int
	InputSize  int
	Locals     int
	Variates   []Variate
	Statements []Statement
	Outputs    []Operand
}

// SSA gibt nur die Zuweisungen zurueck, eine pro Zeile.
func (p *Program) SSA() string {
	return ssa(p.Statements)
}

// Source rendert den vollstaendigen OpenCL-C-Quelltext.
func (p *Program) Source() string {
	var sb strings.Builder
	sb.WriteString("#pragma OPENCL FP_CONTRACT OFF\n")
	sb.WriteString(opcode.Prelude())
	sb.WriteString(variates.Source())

	fmt.Fprintf(&sb, "__kernel void %s(__global const uint* mc_mult", p.Name)
	if p.InputSize > 0 {
		sb.WriteString(", __global const float* mc_input")
	}
	if len(p.Outputs) > 0 {
		sb.WriteString(", __global float* mc_output")
	}
	sb.WriteString(") {\n")
	sb.WriteString("    const uint i = get_global_id(0);\n")
	fmt.Fprintf(&sb, "    if (i < %dU) {\n", p.N)
	for _, v := range p.Variates {
		fmt.Fprintf(&sb, "        float v%d = mc_invCumN(%dU * mc_mult[i]);\n", v.Var, v.Seed)
	}
	for _, s := range p.Statements {
		sb.WriteString("        ")
		sb.WriteString(s.Line())
		sb.WriteByte('\n')
	}
	for j, o := range p.Outputs {
		fmt.Fprintf(&sb, "        mc_output[%dU * %dU + i] = %s;\n", j, p.N, o)
	}
	sb.WriteString("    }\n}\n")
	return sb.String()
}

func ssa(stmts []Statement) string {
	var sb strings.Builder
	for _, s := range stmts {
		sb.WriteString(s.Line())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ============================================================================
// Builder
// ============================================================================

// Builder zeichnet eine Einreichung auf. Nicht threadsicher.
type Builder struct {
	n          int
	declared   map[int]bool
	locals     int
	variates   []Variate
	statements []Statement
	outputs    []Operand
}

// NewBuilder erstellt einen Builder fuer n Lanes.
func NewBuilder(n int) *Builder {
	return &Builder{n: n, declared: make(map[int]bool)}
}

// Variate deklariert v<id> als Ziehung aus dem Strom mit Startwert seed.
func (b *Builder) Variate(id int, seed uint32) {
	b.variates = append(b.variates, Variate{Var: id, Seed: seed})
	b.declare(id)
}

// Assign zeichnet result = code(args...) auf. Die erste Zuweisung einer ID
// deklariert die Variable.
func (b *Builder) Assign(result int, code opcode.Code, args ...Operand) (Statement, error) {
	text := make([]string, len(args))
	for i, a := range args {
		text[i] = a.String()
	}
	expr, err := opcode.Emit(code, text)
	if err != nil {
		return Statement{}, err
	}

	s := Statement{
		Result:  result,
		Code:    code,
		Args:    append([]Operand(nil), args...),
		Declare: !b.declared[result],
		Expr:    expr,
	}
	b.declare(result)
	b.statements = append(b.statements, s)
	return s, nil
}

// Output haengt einen Ausgabe-Slot an und gibt seinen Index zurueck.
func (b *Builder) Output(o Operand) int {
	b.outputs = append(b.outputs, o)
	return len(b.outputs) - 1
}

func (b *Builder) Outputs() int { return len(b.outputs) }

// SSA gibt den bisher aufgezeichneten Text zurueck.
func (b *Builder) SSA() string {
	return ssa(b.statements)
}

// Build friert die Aufzeichnung als Program ein.
func (b *Builder) Build(id, version, inputSize int) *Program {
	return &Program{
		Name:       Name(id, version),
		N:          b.n,
		InputSize:  inputSize,
		Locals:     b.locals,
		Variates:   append([]Variate(nil), b.variates...),
		Statements: append([]Statement(nil), b.statements...),
		Outputs:    append([]Operand(nil), b.outputs...),
	}
}

func (b *Builder) declare(id int) {
	b.declared[id] = true
	if id+1 > b.locals {
		b.locals = id + 1
	}
}
