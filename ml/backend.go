// backend.go - Geraete-Schnittstelle und Framework-Registrierung
// Dieses Modul definiert die Grenze zwischen Compute-Kontext und Geraet
// (OpenCL oder Host-Emulation) sowie die Factory-Registry der Frameworks.
package ml

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/riskgpu/riskgpu/kernel"
)

// Buffer ist ein Geraetespeicherbereich mit fester Elementzahl.
type Buffer interface {
	Len() int
	Release()
}

// Kernel ist ein fuer ein Geraet uebersetztes Program.
type Kernel interface {
	Name() string
	Release()
}

// Event markiert den Abschluss eines eingereihten Kommandos.
type Event interface {
	Wait() error
}

// Device represents a single compute device with an in-order command queue.
//
// Write, Read and Launch return immediately; the command starts once all
// deps have completed. Slices passed to Write and Read must stay untouched
// until the returned event has completed.
type Device interface {
	Info() DeviceInfo

	// Build translates p into an executable kernel. Failures are *BuildError.
	Build(p *kernel.Program) (Kernel, error)

	NewFloatBuffer(n int) (Buffer, error)

	// NewUintBuffer creates a read-only buffer initialised from data (blocking).
	NewUintBuffer(data []uint32) (Buffer, error)

	WriteFloats(dst Buffer, offset int, src []float32, deps ...Event) (Event, error)
	ReadFloats(src Buffer, offset int, dst []float32, deps ...Event) (Event, error)

	// Launch runs k over global lanes with args [mult][input?][output?].
	Launch(k Kernel, global int, args []Buffer, deps ...Event) (Event, error)

	Wait(events ...Event) error

	// Finish blocks until the queue is empty.
	Finish() error

	Close() error
}

// Framework enumerates and opens the devices of one compute API.
type Framework interface {
	Name() string
	Devices() ([]DeviceInfo, error)
	Open(info DeviceInfo) (Device, error)
}

var frameworks = make(map[string]func() (Framework, error))

// RegisterFramework registers a framework factory function.
func RegisterFramework(name string, f func() (Framework, error)) {
	if _, ok := frameworks[name]; ok {
		panic("ml: framework already registered: " + name)
	}

	frameworks[name] = f
}

// Frameworks returns the registered framework names, sorted.
func Frameworks() []string {
	names := make([]string, 0, len(frameworks))
	for name := range frameworks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewFramework instantiates the framework registered under name.
func NewFramework(name string) (Framework, error) {
	if f, ok := frameworks[name]; ok {
		return f()
	}

	return nil, fmt.Errorf("unsupported framework %q%s", name, Suggest(name, Frameworks()))
}

// Suggest returns ", did you mean ...?" for the closest candidate, or "".
func Suggest(name string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" || bestDist > max(len(name), len(best))/2+1 {
		return ""
	}
	return fmt.Sprintf(", did you mean %q?", best)
}

func unregisterFramework(name string) {
	delete(frameworks, name)
}
