// MODUL: compute
// ZWECK: Compute-Kontext eines Geraets - zeichnet Berechnungen als SSA-Programm
//        auf, uebersetzt sie einmal pro (id, version) und fuehrt sie wiederholt aus
// INPUT: Aufrufe gemaess ml.ComputeContext
// OUTPUT: Ausgabe-Arrays (float64), DebugInfo
// NEBENEFFEKTE: Geraeteaufrufe (Build, Buffer, Kommandos), Logging
// ABHAENGIGKEITEN: ml (Geraetegrenze), kernel (Programm), variates (Multiplikatoren),
//                  gods arraystack (Free-List), uuid (Log-Kennung)
// HINWEISE: Ein Context bedient einen Aufrufer; parallele Aufrufe werden serialisiert

package compute

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/emirpasic/gods/v2/stacks/arraystack"
	"github.com/google/uuid"

	"github.com/riskgpu/riskgpu/envconfig"
	"github.com/riskgpu/riskgpu/kernel"
	"github.com/riskgpu/riskgpu/ml"
)

// VariateOpCost ist der Debug-Aufschlag in Operationen pro Lane, wenn eine
// Variate zum ersten Mal als Argument verwendet wird.
const VariateOpCost = 23

// ============================================================================
// Zustandsautomat
// ============================================================================

type state int

const (
	idle state = iota
	createInput
	createVariates
	calc
	declareOutput
)

func (s state) String() string {
	switch s {
	case idle:
		return "idle"
	case createInput:
		return "createInput"
	case createVariates:
		return "createVariates"
	case calc:
		return "calc"
	case declareOutput:
		return "declareOutput"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// calculation lebt so lange wie der Context; Kernel und Program nur bis zum
// naechsten Versionswechsel.
type calculation struct {
	id       int
	n        int
	version  int
	disposed bool

	kernel    ml.Kernel
	program   *kernel.Program
	inputSize int
	outputs   int

	// opCount ist die Debug-Operationszahl der aufzeichnenden Einreichung
	opCount uint64
}

// ============================================================================
// Context
// ============================================================================

// Context implements ml.ComputeContext on top of a single ml.Device.
type Context struct {
	mu sync.Mutex

	dev     ml.Device
	log     *slog.Logger
	opCost  uint64
	timings func() bool
	closed  bool

	calcs []*calculation
	mult  map[int]ml.Buffer

	// aktuelle Einreichung
	state   state
	cur     *calculation
	debug   bool
	builder *kernel.Builder
	vars    []variable
	free    *arraystack.Stack[int]
	inputs  []input
	size    int
	ops     uint64

	info ml.DebugInfo
}

// Option konfiguriert einen Context.
type Option func(*Context)

// WithLogger setzt den Basis-Logger (Default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		c.log = l
	}
}

// WithVariateOpCost ueberschreibt VariateOpCost.
func WithVariateOpCost(cost uint64) Option {
	return func(c *Context) {
		c.opCost = cost
	}
}

// New erstellt einen Context und uebernimmt dev; Close schliesst dev.
func New(dev ml.Device, opts ...Option) *Context {
	c := &Context{
		dev:     dev,
		log:     slog.Default(),
		opCost:  VariateOpCost,
		timings: envconfig.DebugTimings,
		mult:    make(map[int]ml.Buffer),
		free:    arraystack.New[int](),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.With("context", uuid.NewString(), "device", dev.Info().ID())
	c.log.Debug("compute context created")
	return c
}

// DebugInfo gibt die Summen aller Debug-Einreichungen zurueck.
func (c *Context) DebugInfo() ml.DebugInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *Context) DeviceInfo() ml.DeviceInfo {
	return c.dev.Info()
}

// SSA gibt den SSA-Text der aktuellen Einreichung zurueck, bei wiederverwendetem
// Kernel den des zwischengespeicherten Programms.
func (c *Context) SSA() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.builder != nil:
		return c.builder.SSA()
	case c.cur != nil && c.cur.program != nil:
		return c.cur.program.SSA()
	default:
		return ""
	}
}

// Program gibt das uebersetzte Programm der Berechnung id zurueck.
func (c *Context) Program(id int) (*kernel.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id < 1 || id > len(c.calcs) || c.calcs[id-1].program == nil {
		return nil, false
	}
	return c.calcs[id-1].program, true
}

// Close gibt alle Kernels und Multiplikator-Buffer frei und schliesst das Geraet.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	for _, calc := range c.calcs {
		calc.release()
	}
	for n, buf := range c.mult {
		buf.Release()
		delete(c.mult, n)
	}
	c.reset()

	c.log.Debug("compute context closed", "calculations", len(c.calcs))
	return c.dev.Close()
}

func (calc *calculation) release() {
	if calc.kernel != nil {
		calc.kernel.Release()
	}
	calc.kernel = nil
	calc.program = nil
}

// usage baut einen UsageError fuer die aktuelle Berechnung.
func (c *Context) usage(op string, varID int, format string, args ...any) error {
	e := &ml.UsageError{Op: op, VarID: varID, Msg: fmt.Sprintf(format, args...)}
	if c.cur != nil {
		e.CalcID, e.Version = c.cur.id, c.cur.version
	}
	return e
}

var _ ml.ComputeContext = (*Context)(nil)
