// execute.go - Uebersetzung und Ausfuehrung einer Einreichung
// Enthaelt: FinalizeCalculation, Kernel-Build, Event-Kette
// Schreiben -> Start -> Lesen.
package compute

import (
	"context"
	"fmt"
	"time"

	"github.com/riskgpu/riskgpu/logutil"
	"github.com/riskgpu/riskgpu/ml"
	"github.com/riskgpu/riskgpu/variates"
)

// FinalizeCalculation uebersetzt bei Bedarf den Kernel, fuehrt ihn aus und
// schreibt eine Zeile der Laenge n pro deklarierter Ausgabe nach outputs.
// Der Context ist danach immer wieder idle.
func (c *Context) FinalizeCalculation(outputs [][]float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const op = "finalize"
	if err := c.expect(op, createInput, createVariates, calc, declareOutput); err != nil {
		return err
	}
	defer c.reset()

	calc := c.cur
	declared := calc.outputs
	if c.builder != nil {
		declared = c.builder.Outputs()
	}
	if len(outputs) != declared {
		return c.usage(op, -1, "got %d output arrays, %d outputs declared", len(outputs), declared)
	}
	for j, out := range outputs {
		if len(out) != calc.n {
			return c.usage(op, -1, "output %d has length %d, want n=%d", j, len(out), calc.n)
		}
	}
	if c.builder == nil && c.size != calc.inputSize {
		return c.usage(op, -1, "input size %d does not match compiled kernel input size %d", c.size, calc.inputSize)
	}

	if c.builder != nil {
		if err := c.build(); err != nil {
			return err
		}
	}

	if err := c.run(outputs); err != nil {
		return fmt.Errorf("%s calc %d v%d: %w", op, calc.id, calc.version, err)
	}

	if c.debug {
		c.info.NumberOfOperations += calc.opCount
	}
	return nil
}

// build uebersetzt das aufgezeichnete Programm und legt es an der Berechnung ab.
func (c *Context) build() error {
	calc := c.cur
	p := c.builder.Build(calc.id, calc.version, c.size)

	if logutil.Enabled(c.log, logutil.LevelTrace) {
		c.log.Log(context.Background(), logutil.LevelTrace, "kernel source", "kernel", p.Name, "source", p.Source())
	}

	start := time.Now()
	k, err := c.dev.Build(p)
	if err != nil {
		c.log.Error("kernel build failed", "kernel", p.Name, "error", err)
		return err
	}
	if c.debug {
		if err := c.dev.Finish(); err != nil {
			k.Release()
			return fmt.Errorf("build %s: %w", p.Name, err)
		}
		c.info.NanoSecondsProgramBuild += uint64(time.Since(start).Nanoseconds())
	}

	calc.kernel = k
	calc.program = p
	calc.inputSize = c.size
	calc.outputs = len(p.Outputs)
	calc.opCount = c.ops
	c.info.ProgramBuilds++

	c.log.Debug("kernel built", "kernel", p.Name, "statements", len(p.Statements),
		"variates", len(p.Variates), "outputs", len(p.Outputs), "input_size", c.size)
	return nil
}

// multiplier gibt den Multiplikator-Buffer fuer n zurueck; er wird einmal pro
// Context erzeugt und danach nur gelesen.
func (c *Context) multiplier(n int) (ml.Buffer, error) {
	if buf, ok := c.mult[n]; ok {
		return buf, nil
	}

	buf, err := c.dev.NewUintBuffer(variates.MultiplierTable(n))
	if err != nil {
		return nil, err
	}
	c.mult[n] = buf
	return buf, nil
}

// run fuehrt den Kernel mit aufrufbezogenen Buffern aus.
func (c *Context) run(outputs [][]float64) error {
	calc := c.cur
	n := calc.n

	mult, err := c.multiplier(n)
	if err != nil {
		return err
	}
	args := []ml.Buffer{mult}

	if calc.inputSize > 0 {
		in, err := c.dev.NewFloatBuffer(calc.inputSize)
		if err != nil {
			return err
		}
		defer in.Release()
		args = append(args, in)
	}

	var out ml.Buffer
	if calc.outputs > 0 {
		out, err = c.dev.NewFloatBuffer(calc.outputs * n)
		if err != nil {
			return err
		}
		defer out.Release()
		args = append(args, out)
	}

	// Phase 1: ein Schreibkommando pro Input-Slot
	start := time.Now()
	writes := make([]ml.Event, 0, len(c.inputs))
	for _, slot := range c.inputs {
		ev, err := c.dev.WriteFloats(args[1], slot.offset, slot.values)
		if err != nil {
			return c.drain(err)
		}
		writes = append(writes, ev)
	}
	if err := c.phase(&c.info.NanoSecondsDataCopy, start); err != nil {
		return err
	}

	// Phase 2: Start, abhaengig von allen Schreibkommandos
	start = time.Now()
	launch, err := c.dev.Launch(calc.kernel, n, args, writes...)
	if err != nil {
		return c.drain(err)
	}
	if err := c.phase(&c.info.NanoSecondsCalculation, start); err != nil {
		return err
	}

	// Phase 3: ein Lesekommando pro Ausgabe, abhaengig vom Start
	start = time.Now()
	host := make([]float32, calc.outputs*n)
	reads := make([]ml.Event, 0, calc.outputs)
	for j := 0; j < calc.outputs; j++ {
		ev, err := c.dev.ReadFloats(out, j*n, host[j*n:(j+1)*n], launch)
		if err != nil {
			return c.drain(err)
		}
		reads = append(reads, ev)
	}
	// ohne Ausgaben wird auf den Start gewartet, sonst gingen dessen Fehler verloren
	wait := reads
	if len(wait) == 0 {
		wait = []ml.Event{launch}
	}
	if err := c.dev.Wait(wait...); err != nil {
		return c.drain(err)
	}
	if err := c.phase(&c.info.NanoSecondsDataCopy, start); err != nil {
		return err
	}

	for j := range outputs {
		for i := range outputs[j] {
			outputs[j][i] = float64(host[j*n+i])
		}
	}
	return nil
}

// phase synchronisiert im Debug-Modus und verbucht die Zeit seit start.
func (c *Context) phase(counter *uint64, start time.Time) error {
	if !c.debug {
		return nil
	}
	if err := c.dev.Finish(); err != nil {
		return err
	}
	*counter += uint64(time.Since(start).Nanoseconds())
	return nil
}

// drain wartet nach einem Fehler die Queue ab, damit keine Kommandos mehr auf
// Buffer zugreifen, die gleich freigegeben werden.
func (c *Context) drain(err error) error {
	if ferr := c.dev.Finish(); ferr != nil {
		c.log.Warn("finish after failure", "error", ferr)
	}
	return err
}
