// queue.go - In-Order-Command-Queue des Host-Geraets
// Eine Worker-Goroutine arbeitet Kommandos in Einreihungsreihenfolge ab;
// jedes Kommando wartet zusaetzlich explizit auf seine Abhaengigkeiten.
package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/riskgpu/riskgpu/kernel"
	"github.com/riskgpu/riskgpu/ml"
)

// event wird genau einmal abgeschlossen.
type event struct {
	done chan struct{}
	err  error
}

func newEvent() *event {
	return &event{done: make(chan struct{})}
}

func (e *event) Wait() error {
	<-e.done
	return e.err
}

func (e *event) complete(err error) {
	e.err = err
	close(e.done)
}

type command struct {
	name string
	deps []*event
	run  func() error
	ev   *event
}

// Device ist das Host-Geraet.
type Device struct {
	opts options

	mu     sync.Mutex
	closed bool
	queue  chan command
	wg     sync.WaitGroup
}

// New startet ein Host-Geraet mit eigener Worker-Goroutine.
func New(opts ...Option) *Device {
	o := options{threads: 1, dtype: ml.DTypeF32}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{opts: o, queue: make(chan command, 64)}
	d.wg.Add(1)
	go d.worker()
	return d
}

func (d *Device) worker() {
	defer d.wg.Done()
	for cmd := range d.queue {
		cmd.ev.complete(cmd.execute())
	}
}

func (c command) execute() error {
	for _, dep := range c.deps {
		if err := dep.Wait(); err != nil {
			return fmt.Errorf("%s: dependency failed: %w", c.name, err)
		}
	}
	return c.run()
}

// enqueue reiht run ein und gibt das Event des Kommandos zurueck.
func (d *Device) enqueue(name string, deps []ml.Event, run func() error) (ml.Event, error) {
	evs := make([]*event, len(deps))
	for i, dep := range deps {
		ev, ok := dep.(*event)
		if !ok {
			return nil, &ml.DeviceError{Op: name, Code: codeInvalidEvent, Name: "INVALID_EVENT"}
		}
		evs[i] = ev
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("host: %s: %w", name, ml.ErrClosed)
	}

	ev := newEvent()
	d.queue <- command{name: name, deps: evs, run: run, ev: ev}
	return ev, nil
}

// Fehlercodes angelehnt an die OpenCL-Nummerierung.
const (
	codeInvalidValue  = -30
	codeMemObject     = -38
	codeInvalidKernel = -48
	codeInvalidArgs   = -52
	codeWorkSize      = -54
	codeInvalidEvent  = -58
)

// ============================================================================
// ml.Device
// ============================================================================

func (d *Device) Info() ml.DeviceInfo {
	return info(d.opts.threads, d.opts.dtype)
}

func (d *Device) Wait(events ...ml.Event) error {
	var errs []error
	for _, ev := range events {
		if err := ev.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Finish wartet, bis alle bisher eingereihten Kommandos abgeschlossen sind.
func (d *Device) Finish() error {
	ev, err := d.enqueue("finish", nil, func() error { return nil })
	if err != nil {
		return err
	}
	return ev.Wait()
}

// Close arbeitet die Queue ab und beendet den Worker.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

func (d *Device) Build(p *kernel.Program) (ml.Kernel, error) {
	if err := validate(p); err != nil {
		return nil, &ml.BuildError{
			Kernel: p.Name,
			Log:    ml.Truncate(err.Error(), buildLogLimit()),
			Source: ml.Truncate(p.Source(), buildLogLimit()),
			Err:    err,
		}
	}
	return &hostKernel{prog: p}, nil
}
