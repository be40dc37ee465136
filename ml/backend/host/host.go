// MODUL: host
// ZWECK: Reines Go-Geraet, das eine In-Order-Command-Queue nachbildet und
//        uebersetzte Programme lane-parallel in float32 ausfuehrt
// INPUT: kernel.Program, Buffer-Kommandos mit Event-Abhaengigkeiten
// OUTPUT: Events, Ergebnisbuffer
// NEBENEFFEKTE: Eine Worker-Goroutine pro Geraet, Lane-Goroutinen pro Start
// ABHAENGIGKEITEN: errgroup (Lane-Parallelitaet), float16 (f16-Speicher),
//                  x/sys/cpu (Feature-Flags), opcode/variates (Host-Spiegel)
// HINWEISE: Referenz fuer Tests ohne GPU; rechnet bitgleich zu den
//           float32-Spiegeln in opcode und variates

package host

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/cpu"

	"github.com/riskgpu/riskgpu/envconfig"
	"github.com/riskgpu/riskgpu/ml"
)

const (
	frameworkName = "Host"
	platformName  = "go"
	deviceName    = "cpu"
)

func init() {
	ml.RegisterFramework(frameworkName, func() (ml.Framework, error) {
		return framework{}, nil
	})
}

// ============================================================================
// Framework
// ============================================================================

type framework struct{}

func (framework) Name() string { return frameworkName }

func (framework) Devices() ([]ml.DeviceInfo, error) {
	return []ml.DeviceInfo{info(envconfig.HostThreads(), envconfig.HostPrecision())}, nil
}

func (framework) Open(i ml.DeviceInfo) (ml.Device, error) {
	if i.Framework != frameworkName || i.Name != deviceName {
		return nil, fmt.Errorf("host: unknown device %q", i.ID())
	}
	return New(WithThreads(envconfig.HostThreads()), WithDType(envconfig.HostPrecision())), nil
}

func info(threads int, dtype ml.DType) ml.DeviceInfo {
	d := ml.DeviceInfo{
		Framework: frameworkName,
		Platform:  platformName,
		Name:      deviceName,
		DType:     dtype,
	}
	d.SetProperty("device_name", runtime.GOOS+"/"+runtime.GOARCH)
	d.SetProperty("driver_version", runtime.Version())
	d.SetProperty("device_version", "host 1.0")
	d.SetProperty("extensions", strings.Join(features(), " "))
	d.SetProperty("compute_units", strconv.Itoa(threads))
	d.SetProperty("precision", dtype.String())
	return d
}

// features listet die CPU-Erweiterungen, die fuer float32-Arithmetik relevant sind.
func features() []string {
	var f []string
	add := func(ok bool, name string) {
		if ok {
			f = append(f, name)
		}
	}

	add(cpu.X86.HasSSE2, "sse2")
	add(cpu.X86.HasSSE41, "sse4.1")
	add(cpu.X86.HasAVX, "avx")
	add(cpu.X86.HasAVX2, "avx2")
	add(cpu.X86.HasFMA, "fma")
	add(cpu.X86.HasAVX512F, "avx512f")
	add(cpu.ARM64.HasASIMD, "asimd")
	add(cpu.ARM64.HasFPHP, "fphp")
	add(cpu.ARM64.HasASIMDHP, "asimdhp")
	return f
}

// ============================================================================
// Optionen
// ============================================================================

type options struct {
	threads int
	dtype   ml.DType
}

// Option konfiguriert ein Host-Geraet.
type Option func(*options)

// WithThreads begrenzt die parallel ausgefuehrten Lane-Bloecke.
func WithThreads(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.threads = n
		}
	}
}

// WithDType setzt die Speichergenauigkeit der Float-Buffer.
func WithDType(d ml.DType) Option {
	return func(o *options) {
		if d == ml.DTypeF16 || d == ml.DTypeF32 {
			o.dtype = d
		}
	}
}
