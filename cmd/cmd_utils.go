// cmd_utils.go - Hilfsfunktionen fuer Commands
// Hauptfunktionen: openDevice, pricing (Beispielrechnung)
package cmd

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riskgpu/riskgpu/discover"
	"github.com/riskgpu/riskgpu/envconfig"
	"github.com/riskgpu/riskgpu/ml"
	_ "github.com/riskgpu/riskgpu/ml/backend"
	"github.com/riskgpu/riskgpu/opcode"
)

// openDevice - Oeffnet das per --device, RISKGPU_DEVICE oder automatisch gewaehlte Geraet
func openDevice(cmd *cobra.Command) (*discover.Directory, ml.ComputeContext, error) {
	dir, err := discover.New()
	if err != nil {
		return nil, nil, err
	}

	name, _ := cmd.Flags().GetString("device")
	if name == "" {
		name = envconfig.Device()
	}
	if name == "" {
		name = defaultDevice(dir.Devices())
	}

	c, err := dir.Context(name)
	if err != nil {
		dir.Close()
		return nil, nil, err
	}
	return dir, c, nil
}

// defaultDevice bevorzugt OpenCL-Geraete vor der Host-Emulation.
func defaultDevice(names []string) string {
	for _, name := range names {
		if strings.HasPrefix(name, "OpenCL/") {
			return name
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

// ============================================================================
// Beispielrechnung
// ============================================================================

// pricing beschreibt eine europaeische Call-Option unter geometrischer
// Brownscher Bewegung, simuliert in Steps Zeitschritten.
type pricing struct {
	Spot     float64
	Strike   float64
	Vol      float64
	Rate     float64
	Maturity float64
	Steps    int
	Seed     uint32
}

func defaultPricing() pricing {
	return pricing{Spot: 100, Strike: 100, Vol: 0.2, Rate: 0.01, Maturity: 1, Steps: 12, Seed: 4711}
}

func pricingFromFlags(cmd *cobra.Command) (pricing, error) {
	var p pricing
	var errs []error
	get := func(name string) float64 {
		v, err := cmd.Flags().GetFloat64(name)
		errs = append(errs, err)
		return v
	}

	p.Spot = get("spot")
	p.Strike = get("strike")
	p.Vol = get("vol")
	p.Rate = get("rate")
	p.Maturity = get("maturity")

	var err error
	p.Steps, err = cmd.Flags().GetInt("steps")
	errs = append(errs, err)
	p.Seed, err = cmd.Flags().GetUint32("seed")
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return p, err
	}
	if p.Steps < 1 || p.Maturity <= 0 || p.Vol < 0 {
		return p, fmt.Errorf("invalid pricing parameters: steps=%d maturity=%g vol=%g", p.Steps, p.Maturity, p.Vol)
	}
	return p, nil
}

// submit fuehrt eine Einreichung bis vor FinalizeCalculation aus. Bei neuem
// Kernel wird der Graph aufgezeichnet, sonst werden nur Inputs geliefert.
// Ausgaben: [0] Endkurs, [1] diskontierte Auszahlung.
func (p pricing) submit(c ml.ComputeContext, id, n int, settings ml.Settings) (int, error) {
	id, newKernel, err := c.InitiateCalculation(n, id, 0, settings)
	if err != nil {
		return id, err
	}

	dt := p.Maturity / float64(p.Steps)
	scalars := []float64{
		p.Spot,
		p.Strike,
		(p.Rate - 0.5*p.Vol*p.Vol) * dt,
		p.Vol * math.Sqrt(dt),
		math.Exp(-p.Rate * p.Maturity),
		0,
	}
	ids := make([]int, len(scalars))
	for i, v := range scalars {
		if ids[i], err = c.CreateInputScalar(v); err != nil {
			return id, err
		}
	}
	if !newKernel {
		return id, nil
	}
	spot, strike, drift, diffusion, discount, zero := ids[0], ids[1], ids[2], ids[3], ids[4], ids[5]

	z, err := c.CreateInputVariates(1, p.Steps, p.Seed)
	if err != nil {
		return id, err
	}

	g := graph{c: c}
	logS := -1
	for _, dw := range z[0] {
		shock := g.apply(opcode.Mult, diffusion, dw)
		inc := g.apply(opcode.Add, drift, shock)
		g.free(shock)
		if logS < 0 {
			logS = inc
			continue
		}
		next := g.apply(opcode.Add, logS, inc)
		g.free(logS, inc)
		logS = next
	}

	growth := g.apply(opcode.Exp, logS)
	g.free(logS)
	final := g.apply(opcode.Mult, spot, growth)
	g.free(growth)
	intrinsic := g.apply(opcode.Subtract, final, strike)
	payoff := g.apply(opcode.Max, intrinsic, zero)
	g.free(intrinsic)
	pv := g.apply(opcode.Mult, discount, payoff)
	g.free(payoff)

	g.output(final)
	g.output(pv)
	return id, g.err
}

// graph haelt den ersten Fehler fest, damit der Aufbau linear bleibt.
type graph struct {
	c   ml.ComputeContext
	err error
}

func (g *graph) apply(code opcode.Code, args ...int) int {
	if g.err != nil {
		return -1
	}
	var id int
	id, g.err = g.c.ApplyOperation(code, args...)
	return id
}

func (g *graph) free(ids ...int) {
	for _, id := range ids {
		if g.err == nil {
			g.err = g.c.FreeVariable(id)
		}
	}
}

func (g *graph) output(id int) {
	if g.err == nil {
		g.err = g.c.DeclareOutputVariable(id)
	}
}
