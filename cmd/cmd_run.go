// cmd_run.go - Run Command Handler
// Hauptfunktionen: RunHandler
package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/riskgpu/riskgpu/envconfig"
	"github.com/riskgpu/riskgpu/format"
	"github.com/riskgpu/riskgpu/ml"
)

// RunHandler - Bewertet die Beispieloption und vergleicht mit Black-Scholes
func RunHandler(cmd *cobra.Command, args []string) error {
	p, err := pricingFromFlags(cmd)
	if err != nil {
		return err
	}
	paths, _ := cmd.Flags().GetInt("paths")
	repeat, _ := cmd.Flags().GetInt("repeat")
	verbose, _ := cmd.Flags().GetBool("verbose")
	dump, _ := cmd.Flags().GetBool("dump")
	if repeat < 1 {
		repeat = 1
	}

	dir, c, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer dir.Close()

	settings := ml.Settings{Debug: verbose || envconfig.DebugTimings()}
	out := [][]float64{make([]float64, paths), make([]float64, paths)}

	id := 0
	for i := range repeat {
		start := time.Now()
		if id, err = p.submit(c, id, paths, settings); err != nil {
			return err
		}
		if err := c.FinalizeCalculation(out); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(cmd.OutOrStdout(), "submission %d: %s\n", i+1, format.HumanDuration(time.Since(start)))
		}
	}

	mean, std := stat.MeanStdDev(out[1], nil)
	ref := blackScholesCall(p)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "device:        %s\n", c.DeviceInfo().ID())
	fmt.Fprintf(w, "paths:         %s (%s)\n", printer.Sprintf("%d", paths), format.HumanNumber(uint64(paths)))
	fmt.Fprintf(w, "price:         %.4f ± %.4f\n", mean, std/math.Sqrt(float64(paths)))
	fmt.Fprintf(w, "black-scholes: %.4f\n", ref)

	if dump {
		fmt.Fprintln(w, ml.Dump(out))
	}
	if verbose {
		printDebugInfo(w, c.DebugInfo())
	}
	return nil
}

// blackScholesCall ist der geschlossene Referenzwert der Beispieloption.
func blackScholesCall(p pricing) float64 {
	if p.Vol == 0 {
		return math.Max(p.Spot-p.Strike*math.Exp(-p.Rate*p.Maturity), 0)
	}
	sqrtT := math.Sqrt(p.Maturity)
	d1 := (math.Log(p.Spot/p.Strike) + (p.Rate+0.5*p.Vol*p.Vol)*p.Maturity) / (p.Vol * sqrtT)
	d2 := d1 - p.Vol*sqrtT
	return p.Spot*distuv.UnitNormal.CDF(d1) - p.Strike*math.Exp(-p.Rate*p.Maturity)*distuv.UnitNormal.CDF(d2)
}
