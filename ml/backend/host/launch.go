// launch.go - Ausfuehrung uebersetzter Programme
// Lanes werden in Bloecke geteilt und mit errgroup parallel berechnet;
// jeder Block hat eigene lokale Variablen.
package host

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/riskgpu/riskgpu/envconfig"
	"github.com/riskgpu/riskgpu/kernel"
	"github.com/riskgpu/riskgpu/ml"
	"github.com/riskgpu/riskgpu/opcode"
	"github.com/riskgpu/riskgpu/variates"
)

type hostKernel struct {
	prog     *kernel.Program
	released atomic.Bool
}

func (k *hostKernel) Name() string { return k.prog.Name }
func (k *hostKernel) Release()     { k.released.Store(true) }

func buildLogLimit() int {
	return int(envconfig.BuildLogLimit())
}

// validate prueft, was ein OpenCL-Compiler ablehnen wuerde: unbekannte Codes,
// Operanden ausserhalb des Input-Buffers, undeklarierte Variablen.
func validate(p *kernel.Program) error {
	declared := make([]bool, p.Locals)
	checkOperand := func(o kernel.Operand) error {
		switch o.Kind {
		case kernel.InputScalar:
			if o.Index < 0 || o.Index >= p.InputSize {
				return fmt.Errorf("%s: offset outside input buffer of %d", o, p.InputSize)
			}
		case kernel.InputArray:
			if o.Index < 0 || o.Index+p.N > p.InputSize {
				return fmt.Errorf("%s: slot outside input buffer of %d", o, p.InputSize)
			}
		default:
			if o.Index < 0 || o.Index >= p.Locals || !declared[o.Index] {
				return fmt.Errorf("error: use of undeclared identifier '%s'", o)
			}
		}
		return nil
	}

	for _, v := range p.Variates {
		if v.Var < 0 || v.Var >= p.Locals {
			return fmt.Errorf("variate v%d outside locals", v.Var)
		}
		declared[v.Var] = true
	}
	for line, s := range p.Statements {
		for _, a := range s.Args {
			if err := checkOperand(a); err != nil {
				return fmt.Errorf("line %d: %w", line+1, err)
			}
		}
		if _, err := opcode.Emit(s.Code, make([]string, len(s.Args))); err != nil {
			return fmt.Errorf("line %d: %w", line+1, err)
		}
		if s.Result < 0 || s.Result >= p.Locals {
			return fmt.Errorf("line %d: result v%d outside locals", line+1, s.Result)
		}
		declared[s.Result] = true
	}
	for j, o := range p.Outputs {
		if err := checkOperand(o); err != nil {
			return fmt.Errorf("output %d: %w", j, err)
		}
	}
	return nil
}

func (d *Device) Launch(k ml.Kernel, global int, args []ml.Buffer, deps ...ml.Event) (ml.Event, error) {
	const op = "launch"
	hk, ok := k.(*hostKernel)
	if !ok || hk.released.Load() {
		return nil, &ml.DeviceError{Op: op, Code: codeInvalidKernel, Name: "INVALID_KERNEL"}
	}
	p := hk.prog
	if global <= 0 || global > p.N {
		return nil, &ml.DeviceError{Op: op, Code: codeWorkSize, Name: "INVALID_GLOBAL_WORK_SIZE"}
	}

	want := 1
	if p.InputSize > 0 {
		want++
	}
	if len(p.Outputs) > 0 {
		want++
	}
	if len(args) != want {
		return nil, &ml.DeviceError{Op: op, Code: codeInvalidArgs, Name: "INVALID_KERNEL_ARGS"}
	}

	mult, ok := args[0].(*uintBuffer)
	if !ok || mult.Len() < global {
		return nil, &ml.DeviceError{Op: op, Code: codeInvalidArgs, Name: "INVALID_KERNEL_ARGS"}
	}
	var in, out *floatBuffer
	next := 1
	if p.InputSize > 0 {
		if in, ok = args[next].(*floatBuffer); !ok || in.Len() < p.InputSize {
			return nil, &ml.DeviceError{Op: op, Code: codeInvalidArgs, Name: "INVALID_KERNEL_ARGS"}
		}
		next++
	}
	if len(p.Outputs) > 0 {
		if out, ok = args[next].(*floatBuffer); !ok || out.Len() < len(p.Outputs)*p.N {
			return nil, &ml.DeviceError{Op: op, Code: codeInvalidArgs, Name: "INVALID_KERNEL_ARGS"}
		}
	}

	threads := d.opts.threads
	return d.enqueue(op, deps, func() error {
		return run(p, global, threads, mult.data, in, out)
	})
}

// run berechnet die Lanes [0, global) in Bloecken.
func run(p *kernel.Program, global, threads int, mult []uint32, in, out *floatBuffer) error {
	block := (global + threads - 1) / threads

	var g errgroup.Group
	g.SetLimit(threads)
	for lo := 0; lo < global; lo += block {
		hi := min(lo+block, global)
		g.Go(func() error {
			locals := make([]float32, p.Locals)
			args := make([]float32, 0, 4)
			for i := lo; i < hi; i++ {
				var err error
				if args, err = lane(p, i, mult, in, out, locals, args); err != nil {
					return fmt.Errorf("launch %s: lane %d: %w", p.Name, i, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func lane(p *kernel.Program, i int, mult []uint32, in, out *floatBuffer, locals, args []float32) ([]float32, error) {
	value := func(o kernel.Operand) float32 {
		switch o.Kind {
		case kernel.InputScalar:
			return in.get(o.Index)
		case kernel.InputArray:
			return in.get(o.Index + i)
		default:
			return locals[o.Index]
		}
	}

	for _, v := range p.Variates {
		locals[v.Var] = variates.Draw(v.Seed, mult[i])
	}
	for _, s := range p.Statements {
		args = args[:0]
		for _, a := range s.Args {
			args = append(args, value(a))
		}
		r, err := opcode.Eval(s.Code, args)
		if err != nil {
			return args, err
		}
		locals[s.Result] = r
	}
	for j, o := range p.Outputs {
		out.set(j*p.N+i, value(o))
	}
	return args, nil
}
