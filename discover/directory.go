// Modul: directory.go
// Beschreibung: Geraeteverzeichnis ueber alle registrierten Frameworks.
// Zaehlt Geraete einmalig auf und haelt genau einen Compute-Kontext pro Geraet.

package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/riskgpu/riskgpu/compute"
	"github.com/riskgpu/riskgpu/internal/orderedmap"
	"github.com/riskgpu/riskgpu/logutil"
	"github.com/riskgpu/riskgpu/ml"
)

// discoveryTimeout begrenzt die Aufzaehlung pro Framework. Treiber im
// Energiesparmodus brauchen beim ersten Zugriff mitunter mehrere Sekunden.
const discoveryTimeout = 30 * time.Second

// ErrUnknownDevice wird fuer Namen gemeldet, die keinem Geraet entsprechen.
var ErrUnknownDevice = errors.New("unknown device")

type entry struct {
	info ml.DeviceInfo
	fw   ml.Framework
	ctx  *compute.Context
}

// Directory besitzt die Frameworks und die Kontexte der Geraete.
type Directory struct {
	mu      sync.Mutex
	log     *slog.Logger
	opts    []compute.Option
	devices *orderedmap.Map[string, *entry]
	closed  bool
}

type Option func(*config)

type config struct {
	log        *slog.Logger
	frameworks []string
	timeout    time.Duration
	ctxOpts    []compute.Option
}

// WithLogger setzt den Logger des Verzeichnisses und seiner Kontexte.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithFrameworks beschraenkt die Aufzaehlung auf die genannten Frameworks.
func WithFrameworks(names ...string) Option {
	return func(c *config) { c.frameworks = names }
}

func withTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithContextOptions wird an jedes compute.New weitergereicht.
func WithContextOptions(opts ...compute.Option) Option {
	return func(c *config) { c.ctxOpts = append(c.ctxOpts, opts...) }
}

// New zaehlt die Geraete aller registrierten Frameworks auf. Frameworks ohne
// Treiber werden uebersprungen; ein Fehler entsteht nur fuer unbekannte
// Framework-Namen in WithFrameworks.
func New(opts ...Option) (*Directory, error) {
	cfg := config{log: slog.Default(), timeout: discoveryTimeout}
	for _, o := range opts {
		o(&cfg)
	}

	names := cfg.frameworks
	if len(names) == 0 {
		names = ml.Frameworks()
	}

	start := time.Now()
	defer func() {
		cfg.log.Debug("device discovery took", "duration", time.Since(start))
	}()

	fws := make([]ml.Framework, 0, len(names))
	for _, name := range names {
		fw, err := ml.NewFramework(name)
		if err != nil {
			return nil, err
		}
		fws = append(fws, fw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	found := make([][]ml.DeviceInfo, len(fws))
	var wg sync.WaitGroup
	for i, fw := range fws {
		wg.Add(1)
		go func(i int, fw ml.Framework) {
			defer wg.Done()
			found[i] = enumerate(ctx, cfg.log, fw)
		}(i, fw)
	}
	wg.Wait()

	d := &Directory{
		log:     cfg.log,
		opts:    append([]compute.Option{compute.WithLogger(cfg.log)}, cfg.ctxOpts...),
		devices: orderedmap.New[string, *entry](),
	}

	var all []*entry
	for i, infos := range found {
		for _, info := range infos {
			all = append(all, &entry{info: info, fw: fws[i]})
		}
	}
	for _, e := range dedupe(all) {
		d.devices.Set(e.info.ID(), e)
	}

	logutil.Trace("discovered devices", "devices", d.devices.Keys())
	return d, nil
}

// enumerate ruft fw.Devices mit Zeitlimit auf. Ein haengender Treiber
// liefert keine Geraete, blockiert aber die anderen Frameworks nicht.
func enumerate(ctx context.Context, log *slog.Logger, fw ml.Framework) []ml.DeviceInfo {
	type result struct {
		infos []ml.DeviceInfo
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		infos, err := fw.Devices()
		ch <- result{infos, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			log.Debug("framework has no usable devices", "framework", fw.Name(), "error", r.err)
			return nil
		}
		for _, info := range r.infos {
			log.Debug("found device", "id", info.ID(), "index", info.Index, "dtype", info.DType, "version", info.Property("device_version"))
		}
		return r.infos
	case <-ctx.Done():
		log.Warn("device discovery timed out", "framework", fw.Name(), "error", ctx.Err())
		return nil
	}
}

// dedupe sortiert nach ID und haengt bei gleichnamigen Geraeten einer
// Plattform " #<index>" an den Namen an.
func dedupe(all []*entry) []*entry {
	slices.SortStableFunc(all, func(a, b *entry) int {
		if c := strings.Compare(a.info.ID(), b.info.ID()); c != 0 {
			return c
		}
		return a.info.Index - b.info.Index
	})

	seen := make(map[string]int)
	for _, e := range all {
		id := e.info.ID()
		seen[id]++
		if seen[id] > 1 {
			e.info.Name += " #" + strconv.Itoa(e.info.Index)
		}
	}

	slices.SortStableFunc(all, func(a, b *entry) int {
		return strings.Compare(a.info.ID(), b.info.ID())
	})
	return all
}

// ============================================================================
// Abfragen
// ============================================================================

// Devices gibt die Geraetenamen "<Framework>/<Platform>/<Device>" sortiert zurueck.
func (d *Directory) Devices() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devices.Keys()
}

// Info gibt die DeviceInfo eines Geraets zurueck.
func (d *Directory) Info(name string) (ml.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, err := d.lookup(name)
	if err != nil {
		return ml.DeviceInfo{}, err
	}
	if e.ctx != nil {
		// nach dem Oeffnen traegt das Geraet zusaetzliche Eigenschaften
		return e.ctx.DeviceInfo(), nil
	}
	return e.info, nil
}

// Context gibt den Kontext des Geraets zurueck und oeffnet es beim ersten Aufruf.
// Wiederholte Aufrufe liefern dieselbe Instanz.
func (d *Directory) Context(name string) (ml.ComputeContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("directory: %w", ml.ErrClosed)
	}

	e, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if e.ctx != nil {
		return e.ctx, nil
	}

	dev, err := e.fw.Open(e.info)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	e.ctx = compute.New(dev, d.opts...)
	d.log.Info("device opened", "device", name)
	return e.ctx, nil
}

func (d *Directory) lookup(name string) (*entry, error) {
	if e, ok := d.devices.Get(name); ok {
		return e, nil
	}

	names := d.devices.Keys()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w %q: no devices available", ErrUnknownDevice, name)
	}
	return nil, fmt.Errorf("%w %q%s (available: %s)", ErrUnknownDevice, name, ml.Suggest(name, names), strings.Join(names, ", "))
}

// Close schliesst alle geoeffneten Kontexte. Danach liefert Context ErrClosed.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	d.devices.Range(func(name string, e *entry) bool {
		if e.ctx != nil {
			if err := e.ctx.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
			e.ctx = nil
		}
		return true
	})
	return errors.Join(errs...)
}
