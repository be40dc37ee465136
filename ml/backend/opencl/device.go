// MODUL: opencl/device
// ZWECK: ml.Device auf einer In-Order cl_command_queue
// INPUT: kernel.Program, Float-/Uint-Buffer, Event-Abhaengigkeiten
// OUTPUT: Nicht-blockierende Events, gelesene Ergebnisse
// NEBENEFFEKTE: C-Staging-Speicher bis zum Abschluss eines Transfers
// ABHAENGIGKEITEN: libOpenCL (cgo), envconfig (Log-Grenze), ml
// HINWEISE: Go-Slices werden nie ueber einen cgo-Aufruf hinaus an den Treiber
//           gegeben; Transfers laufen ueber malloc-Staging

//go:build opencl

package opencl

/*
#define CL_TARGET_OPENCL_VERSION 120
#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/riskgpu/riskgpu/envconfig"
	"github.com/riskgpu/riskgpu/kernel"
	"github.com/riskgpu/riskgpu/ml"
)

// Fehlercodes, die ohne Treiberaufruf gemeldet werden
const (
	codeInvalidValue     = -30
	codeInvalidMemObject = -38
	codeInvalidKernel    = -48
	codeInvalidWorkSize  = -63
	codeInvalidEvent     = -58
)

// Device ist ein geoeffnetes OpenCL-Geraet mit einer In-Order-Queue.
type Device struct {
	info  ml.DeviceInfo
	id    C.cl_device_id
	ctx   C.cl_context
	queue C.cl_command_queue

	mu      sync.Mutex
	closed  bool
	pending []*event
}

var _ ml.Device = (*Device)(nil)

func (d *Device) Info() ml.DeviceInfo { return d.info }

// ============================================================================
// Events
// ============================================================================

type event struct {
	d     *Device
	op    string
	ev    C.cl_event
	after func(ok bool)
	done  bool
	err   error
}

func (e *event) Wait() error { return e.d.Wait(e) }

// track registriert ein eingereihtes Kommando. Aufrufer haelt d.mu.
func (d *Device) track(op string, ev C.cl_event, after func(ok bool)) *event {
	e := &event{d: d, op: op, ev: ev, after: after}
	d.pending = append(d.pending, e)
	return e
}

// complete wartet auf e, wertet den Status aus und gibt Staging frei.
// Aufrufer haelt d.mu.
func (d *Device) complete(e *event) {
	if e.done {
		return
	}

	ev := e.ev
	status := C.cl_int(C.CL_COMPLETE)
	code := C.clWaitForEvents(1, &ev)
	if code == C.CL_SUCCESS {
		code = C.clGetEventInfo(ev, C.CL_EVENT_COMMAND_EXECUTION_STATUS, C.size_t(unsafe.Sizeof(status)), unsafe.Pointer(&status), nil)
	}

	switch {
	case code != C.CL_SUCCESS:
		e.err = deviceError(e.op, int(code))
	case status < 0:
		e.err = deviceError(e.op, int(status))
	}

	if e.after != nil {
		e.after(e.err == nil)
	}
	C.clReleaseEvent(ev)
	e.done = true
}

// sweep schliesst alle bereits abgeschlossenen Kommandos ab. Aufrufer haelt d.mu.
func (d *Device) sweep() {
	remaining := d.pending[:0]
	for _, e := range d.pending {
		if !e.done {
			var status C.cl_int
			C.clGetEventInfo(e.ev, C.CL_EVENT_COMMAND_EXECUTION_STATUS, C.size_t(unsafe.Sizeof(status)), unsafe.Pointer(&status), nil)
			if status == C.CL_COMPLETE || status < 0 {
				d.complete(e)
			}
		}
		if !e.done {
			remaining = append(remaining, e)
		}
	}
	clear(d.pending[len(remaining):])
	d.pending = remaining
}

// drain schliesst nach clFinish alle offenen Kommandos ab. Aufrufer haelt d.mu.
func (d *Device) drain() error {
	var errs []error
	for _, e := range d.pending {
		d.complete(e)
		errs = append(errs, e.err)
	}
	clear(d.pending)
	d.pending = d.pending[:0]
	return errors.Join(errs...)
}

// waitList uebersetzt deps in eine cl_event-Liste. Bereits abgeschlossene
// Events entfallen, fehlgeschlagene brechen ab.
func (d *Device) waitList(op string, deps []ml.Event) ([]C.cl_event, error) {
	var list []C.cl_event
	for _, dep := range deps {
		e, ok := dep.(*event)
		if !ok || e.d != d {
			return nil, deviceError(op, codeInvalidEvent)
		}
		if e.done {
			if e.err != nil {
				return nil, fmt.Errorf("%s: dependency failed: %w", op, e.err)
			}
			continue
		}
		list = append(list, e.ev)
	}
	return list, nil
}

func listPtr(l []C.cl_event) *C.cl_event {
	if len(l) == 0 {
		return nil
	}
	return &l[0]
}

// ============================================================================
// Buffer
// ============================================================================

type buffer struct {
	mem      C.cl_mem
	n        int
	float    bool
	released bool
}

func (b *buffer) Len() int { return b.n }

func (b *buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	C.clReleaseMemObject(b.mem)
}

func (d *Device) NewFloatBuffer(n int) (ml.Buffer, error) {
	if n <= 0 {
		return nil, deviceError("clCreateBuffer", codeInvalidValue)
	}

	var code C.cl_int
	mem := C.clCreateBuffer(d.ctx, C.CL_MEM_READ_WRITE, C.size_t(n*4), nil, &code)
	if code != C.CL_SUCCESS {
		return nil, deviceError("clCreateBuffer", int(code))
	}
	return &buffer{mem: mem, n: n, float: true}, nil
}

func (d *Device) NewUintBuffer(data []uint32) (ml.Buffer, error) {
	if len(data) == 0 {
		return nil, deviceError("clCreateBuffer", codeInvalidValue)
	}

	var code C.cl_int
	mem := C.clCreateBuffer(d.ctx, C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, C.size_t(len(data)*4), unsafe.Pointer(&data[0]), &code)
	if code != C.CL_SUCCESS {
		return nil, deviceError("clCreateBuffer", int(code))
	}
	return &buffer{mem: mem, n: len(data)}, nil
}

func floatArg(op string, b ml.Buffer, offset, n int) (*buffer, error) {
	fb, ok := b.(*buffer)
	if !ok || fb.released || !fb.float {
		return nil, deviceError(op, codeInvalidMemObject)
	}
	if offset < 0 || offset+n > fb.n {
		return nil, deviceError(op, codeInvalidValue)
	}
	return fb, nil
}

// ============================================================================
// Transfers
// ============================================================================

func (d *Device) WriteFloats(dst ml.Buffer, offset int, src []float32, deps ...ml.Event) (ml.Event, error) {
	const op = "clEnqueueWriteBuffer"

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("%s: %w", op, ml.ErrClosed)
	}

	b, err := floatArg(op, dst, offset, len(src))
	if err != nil {
		return nil, err
	}
	wl, err := d.waitList(op, deps)
	if err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return &event{d: d, op: op, done: true}, nil
	}

	staging := C.malloc(C.size_t(len(src) * 4))
	copy(unsafe.Slice((*float32)(staging), len(src)), src)

	var ev C.cl_event
	code := C.clEnqueueWriteBuffer(d.queue, b.mem, C.CL_FALSE, C.size_t(offset*4), C.size_t(len(src)*4), staging, C.cl_uint(len(wl)), listPtr(wl), &ev)
	if code != C.CL_SUCCESS {
		C.free(staging)
		return nil, deviceError(op, int(code))
	}
	return d.track(op, ev, func(bool) { C.free(staging) }), nil
}

func (d *Device) ReadFloats(src ml.Buffer, offset int, dst []float32, deps ...ml.Event) (ml.Event, error) {
	const op = "clEnqueueReadBuffer"

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("%s: %w", op, ml.ErrClosed)
	}

	b, err := floatArg(op, src, offset, len(dst))
	if err != nil {
		return nil, err
	}
	wl, err := d.waitList(op, deps)
	if err != nil {
		return nil, err
	}
	if len(dst) == 0 {
		return &event{d: d, op: op, done: true}, nil
	}

	staging := C.malloc(C.size_t(len(dst) * 4))

	var ev C.cl_event
	code := C.clEnqueueReadBuffer(d.queue, b.mem, C.CL_FALSE, C.size_t(offset*4), C.size_t(len(dst)*4), staging, C.cl_uint(len(wl)), listPtr(wl), &ev)
	if code != C.CL_SUCCESS {
		C.free(staging)
		return nil, deviceError(op, int(code))
	}
	return d.track(op, ev, func(ok bool) {
		if ok {
			copy(dst, unsafe.Slice((*float32)(staging), len(dst)))
		}
		C.free(staging)
	}), nil
}

// ============================================================================
// Kernel
// ============================================================================

type clKernel struct {
	name     string
	prog     C.cl_program
	k        C.cl_kernel
	released bool
}

func (k *clKernel) Name() string { return k.name }

func (k *clKernel) Release() {
	if k.released {
		return
	}
	k.released = true
	C.clReleaseKernel(k.k)
	C.clReleaseProgram(k.prog)
}

// Build uebersetzt p fuer dieses Geraet. Log und Quelltext im BuildError
// sind auf RISKGPU_BUILD_LOG_LIMIT Bytes begrenzt.
func (d *Device) Build(p *kernel.Program) (ml.Kernel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("clBuildProgram: %w", ml.ErrClosed)
	}

	source := p.Source()
	csrc := C.CString(source)
	defer C.free(unsafe.Pointer(csrc))

	var code C.cl_int
	prog := C.clCreateProgramWithSource(d.ctx, 1, &csrc, nil, &code)
	if code != C.CL_SUCCESS {
		return nil, deviceError("clCreateProgramWithSource", int(code))
	}

	dev := d.id
	if code := C.clBuildProgram(prog, 1, &dev, nil, nil, nil); code != C.CL_SUCCESS {
		log := d.buildLog(prog)
		C.clReleaseProgram(prog)
		limit := int(envconfig.BuildLogLimit())
		return nil, &ml.BuildError{
			Kernel: p.Name,
			Log:    ml.Truncate(log, limit),
			Source: ml.Truncate(source, limit),
			Err:    deviceError("clBuildProgram", int(code)),
		}
	}

	name := C.CString(p.Name)
	defer C.free(unsafe.Pointer(name))
	k := C.clCreateKernel(prog, name, &code)
	if code != C.CL_SUCCESS {
		C.clReleaseProgram(prog)
		return nil, deviceError("clCreateKernel", int(code))
	}
	return &clKernel{name: p.Name, prog: prog, k: k}, nil
}

// Launch setzt args in Reihenfolge und startet global Lanes.
func (d *Device) Launch(k ml.Kernel, global int, args []ml.Buffer, deps ...ml.Event) (ml.Event, error) {
	const op = "clEnqueueNDRangeKernel"

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("%s: %w", op, ml.ErrClosed)
	}

	kk, ok := k.(*clKernel)
	if !ok || kk.released {
		return nil, deviceError(op, codeInvalidKernel)
	}
	if global <= 0 {
		return nil, deviceError(op, codeInvalidWorkSize)
	}

	for i, a := range args {
		b, ok := a.(*buffer)
		if !ok || b.released {
			return nil, deviceError("clSetKernelArg", codeInvalidMemObject)
		}
		mem := b.mem
		if code := C.clSetKernelArg(kk.k, C.cl_uint(i), C.size_t(unsafe.Sizeof(mem)), unsafe.Pointer(&mem)); code != C.CL_SUCCESS {
			return nil, deviceError("clSetKernelArg", int(code))
		}
	}

	wl, err := d.waitList(op, deps)
	if err != nil {
		return nil, err
	}

	size := C.size_t(global)
	var ev C.cl_event
	if code := C.clEnqueueNDRangeKernel(d.queue, kk.k, 1, nil, &size, nil, C.cl_uint(len(wl)), listPtr(wl), &ev); code != C.CL_SUCCESS {
		return nil, deviceError(op, int(code))
	}
	if code := C.clFlush(d.queue); code != C.CL_SUCCESS {
		return nil, deviceError("clFlush", int(code))
	}
	return d.track(op, ev, nil), nil
}

// ============================================================================
// Synchronisation
// ============================================================================

// Wait blockiert bis alle events abgeschlossen sind und meldet deren Fehler.
func (d *Device) Wait(events ...ml.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, ev := range events {
		e, ok := ev.(*event)
		if !ok || e.d != d {
			errs = append(errs, deviceError("clWaitForEvents", codeInvalidEvent))
			continue
		}
		d.complete(e)
		errs = append(errs, e.err)
	}
	d.sweep()
	return errors.Join(errs...)
}

func (d *Device) Finish() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("clFinish: %w", ml.ErrClosed)
	}

	if code := C.clFinish(d.queue); code != C.CL_SUCCESS {
		return deviceError("clFinish", int(code))
	}
	return d.drain()
}

// Close wartet die Queue ab und gibt Queue und Kontext frei.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	C.clFinish(d.queue)
	err := d.drain()
	C.clReleaseCommandQueue(d.queue)
	C.clReleaseContext(d.ctx)
	return err
}
