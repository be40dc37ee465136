// calculation.go - Aufzeichnung einer Einreichung
// Enthaelt: InitiateCalculation, CreateInput*, ApplyOperation, FreeVariable,
// DeclareOutputVariable, DisposeCalculation und die Variablen-Arena.
package compute

import (
	"fmt"
	"math"
	"slices"

	"github.com/riskgpu/riskgpu/kernel"
	"github.com/riskgpu/riskgpu/ml"
	"github.com/riskgpu/riskgpu/opcode"
	"github.com/riskgpu/riskgpu/variates"
)

type kind int

const (
	inputScalar kind = iota
	inputArray
	intermediate
	variate
)

// variable ist ein Eintrag der dichten Variablentabelle; die ID ist der Index.
type variable struct {
	kind   kind
	offset int
	freed  bool

	// charged: VariateOpCost wurde fuer diese Variate bereits verbucht
	charged bool
}

func (v variable) isInput() bool {
	return v.kind == inputScalar || v.kind == inputArray
}

// input ist ein Slot des flachen Input-Buffers.
type input struct {
	offset int
	values []float32
}

// InitiateCalculation beginnt eine Einreichung mit n Lanes.
func (c *Context) InitiateCalculation(n, id, version int, settings ml.Settings) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	const op = "initiate"
	if c.closed {
		return 0, false, &ml.UsageError{Op: op, CalcID: id, Version: version, VarID: -1, Msg: "context", Err: ml.ErrClosed}
	}
	if n <= 0 {
		return 0, false, &ml.UsageError{Op: op, CalcID: id, Version: version, VarID: -1, Msg: "n must be positive"}
	}

	if c.state != idle {
		c.log.Warn("abandoning unfinished submission", "calc", c.cur.id, "state", c.state)
		c.reset()
	}

	var calc *calculation
	switch {
	case id < 0:
		return 0, false, &ml.UsageError{Op: op, CalcID: id, Version: version, VarID: -1, Msg: "negative calculation id"}
	case id == 0:
		calc = &calculation{id: len(c.calcs) + 1, n: n, version: version}
		c.calcs = append(c.calcs, calc)
	default:
		if id > len(c.calcs) {
			return 0, false, &ml.UsageError{Op: op, CalcID: id, Version: version, VarID: -1, Msg: "unknown calculation"}
		}
		calc = c.calcs[id-1]
		if calc.disposed {
			return 0, false, &ml.UsageError{Op: op, CalcID: id, Version: version, VarID: -1, Msg: "calculation", Err: ml.ErrDisposed}
		}
		if calc.n != n {
			return 0, false, &ml.UsageError{Op: op, CalcID: id, Version: version, VarID: -1,
				Msg: fmt.Sprintf("size mismatch: calculation has n=%d, got n=%d", calc.n, n)}
		}
		if calc.version != version {
			c.log.Debug("version changed, dropping kernel", "calc", id, "from", calc.version, "to", version)
			calc.release()
			calc.version = version
		}
	}

	c.cur = calc
	c.debug = settings.Debug || c.timings()
	c.state = createInput

	newKernel := calc.kernel == nil
	if newKernel {
		c.builder = kernel.NewBuilder(n)
	}

	c.log.Debug("initiate calculation", "calc", calc.id, "version", version, "n", n, "new_kernel", newKernel, "debug", c.debug)
	return calc.id, newKernel, nil
}

// CreateInputScalar legt einen Input-Slot der Breite 1 an.
func (c *Context) CreateInputScalar(v float64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.expect("create input", createInput); err != nil {
		return 0, err
	}
	return c.addInput(inputScalar, []float32{clamp(v)}), nil
}

// CreateInputArray legt einen Input-Slot der Breite n an.
func (c *Context) CreateInputArray(v []float64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	const op = "create input"
	if err := c.expect(op, createInput); err != nil {
		return 0, err
	}
	if len(v) != c.cur.n {
		return 0, c.usage(op, -1, "array length %d does not match n=%d", len(v), c.cur.n)
	}

	values := make([]float32, len(v))
	for i, x := range v {
		values[i] = clamp(x)
	}
	return c.addInput(inputArray, values), nil
}

func (c *Context) addInput(k kind, values []float32) int {
	id := len(c.vars)
	c.vars = append(c.vars, variable{kind: k, offset: c.size})
	c.inputs = append(c.inputs, input{offset: c.size, values: values})
	c.size += len(values)
	return id
}

// CreateInputVariates legt dim*steps Variaten an, schrittweise:
// Strom k gehoert zu (i=k%dim, j=k/dim).
func (c *Context) CreateInputVariates(dim, steps int, seed uint32) ([][]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	const op = "create variates"
	if err := c.expect(op, createInput, createVariates); err != nil {
		return nil, err
	}
	if err := c.expectRecording(op); err != nil {
		return nil, err
	}
	if dim < 0 || steps < 0 {
		return nil, c.usage(op, -1, "negative grid %dx%d", dim, steps)
	}
	if seed == 0 {
		return nil, c.usage(op, -1, "seed 0 yields a constant stream")
	}

	m := variates.MultiplierTable(c.cur.n)
	seeds := variates.Streams(seed, dim*steps, m)

	grid := make([][]int, dim)
	for i := range grid {
		grid[i] = make([]int, steps)
	}
	for j := 0; j < steps; j++ {
		for i := 0; i < dim; i++ {
			id := len(c.vars)
			c.vars = append(c.vars, variable{kind: variate})
			c.builder.Variate(id, seeds[j*dim+i])
			grid[i][j] = id
		}
	}

	c.state = createVariates
	return grid, nil
}

// ApplyOperation zeichnet code(args...) auf und gibt die Ergebnis-ID zurueck.
// Freigegebene IDs werden zuletzt-frei-zuerst wiederverwendet.
func (c *Context) ApplyOperation(code opcode.Code, args ...int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	const op = "apply"
	if err := c.expect(op, createInput, createVariates, calc); err != nil {
		return 0, err
	}
	if err := c.expectRecording(op); err != nil {
		return 0, err
	}

	operands := make([]kernel.Operand, len(args))
	var charge []int
	for i, id := range args {
		v, err := c.lookup(op, id)
		if err != nil {
			return 0, err
		}
		operands[i] = operand(v, id)
		if v.kind == variate && !v.charged && !slices.Contains(charge, id) {
			charge = append(charge, id)
		}
	}

	result, reused := c.free.Pop()
	if !reused {
		result = len(c.vars)
	}

	if _, err := c.builder.Assign(result, code, operands...); err != nil {
		if reused {
			c.free.Push(result)
		}
		return 0, c.usageErr(op, -1, err)
	}

	for _, id := range charge {
		c.vars[id].charged = true
	}
	if reused {
		c.vars[result] = variable{kind: intermediate}
	} else {
		c.vars = append(c.vars, variable{kind: intermediate})
	}

	c.ops += uint64(c.cur.n) * (1 + c.opCost*uint64(len(charge)))
	c.state = calc
	return result, nil
}

// FreeVariable gibt eine Zwischenvariable oder Variate zur Wiederverwendung frei.
// Inputs bleiben bestehen; der Aufruf ist fuer sie ein No-op.
func (c *Context) FreeVariable(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const op = "free"
	if err := c.expect(op, createInput, createVariates, calc, declareOutput); err != nil {
		return err
	}
	v, err := c.lookup(op, id)
	if err != nil {
		return err
	}
	if v.isInput() {
		return nil
	}
	if err := c.expectRecording(op); err != nil {
		return err
	}

	c.vars[id].freed = true
	c.free.Push(id)
	return nil
}

// DeclareOutputVariable haengt id an die Ausgabeliste an.
func (c *Context) DeclareOutputVariable(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const op = "declare output"
	if err := c.expect(op, createInput, createVariates, calc, declareOutput); err != nil {
		return err
	}
	if err := c.expectRecording(op); err != nil {
		return err
	}
	v, err := c.lookup(op, id)
	if err != nil {
		return err
	}

	c.builder.Output(operand(v, id))
	c.state = declareOutput
	return nil
}

// DisposeCalculation gibt den Kernel von id frei; weitere Nutzung schlaegt fehl.
func (c *Context) DisposeCalculation(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const op = "dispose"
	if id <= 0 || id > len(c.calcs) {
		return &ml.UsageError{Op: op, CalcID: id, VarID: -1, Msg: "unknown calculation"}
	}
	calc := c.calcs[id-1]
	if calc.disposed {
		return &ml.UsageError{Op: op, CalcID: id, Version: calc.version, VarID: -1, Msg: "calculation", Err: ml.ErrDisposed}
	}
	if c.state != idle && c.cur == calc {
		return &ml.UsageError{Op: op, CalcID: id, Version: calc.version, VarID: -1, Msg: "submission in progress (state " + c.state.String() + ")"}
	}

	calc.release()
	calc.disposed = true
	c.log.Debug("calculation disposed", "calc", id)
	return nil
}

// ============================================================================
// Hilfsfunktionen
// ============================================================================

func (c *Context) expect(op string, allowed ...state) error {
	if c.closed {
		return &ml.UsageError{Op: op, VarID: -1, Msg: "context", Err: ml.ErrClosed}
	}
	for _, s := range allowed {
		if c.state == s {
			return nil
		}
	}
	return c.usage(op, -1, "not allowed in state %s", c.state)
}

// expectRecording lehnt Aenderungen am Graphen ab, sobald ein Kernel existiert.
func (c *Context) expectRecording(op string) error {
	if c.builder == nil {
		return c.usage(op, -1, "kernel already built, graph must not change")
	}
	return nil
}

func (c *Context) lookup(op string, id int) (variable, error) {
	if id < 0 || id >= len(c.vars) {
		return variable{}, c.usage(op, id, "unknown variable")
	}
	v := c.vars[id]
	if v.freed {
		return variable{}, c.usage(op, id, "variable already freed")
	}
	return v, nil
}

func (c *Context) usageErr(op string, varID int, err error) error {
	e := c.usage(op, varID, "invalid operation").(*ml.UsageError)
	e.Err = err
	return e
}

// reset verwirft die Buchfuehrung der aktuellen Einreichung.
func (c *Context) reset() {
	c.state = idle
	c.builder = nil
	c.vars = c.vars[:0]
	c.free.Clear()
	c.inputs = c.inputs[:0]
	c.size = 0
	c.ops = 0
	c.debug = false
}

func operand(v variable, id int) kernel.Operand {
	switch v.kind {
	case inputScalar:
		return kernel.Scalar(v.offset)
	case inputArray:
		return kernel.Array(v.offset)
	default:
		return kernel.Var(id)
	}
}

// clamp begrenzt v auf den float32-Bereich; NaN bleibt NaN.
func clamp(v float64) float32 {
	switch {
	case v > math.MaxFloat32:
		return math.MaxFloat32
	case v < -math.MaxFloat32:
		return -math.MaxFloat32
	default:
		return float32(v)
	}
}
