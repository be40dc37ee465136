// cmd_variates.go - Variates Command Handler
// Hauptfunktionen: VariatesHandler
package cmd

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/riskgpu/riskgpu/variates"
)

// VariatesHandler - Zeigt Momente der Normalvariaten aufeinanderfolgender Stroeme
func VariatesHandler(cmd *cobra.Command, args []string) error {
	paths, _ := cmd.Flags().GetInt("paths")
	streams, _ := cmd.Flags().GetInt("streams")
	seed, _ := cmd.Flags().GetUint32("seed")
	if paths < 2 || streams < 1 {
		return fmt.Errorf("need at least 2 paths and 1 stream, got paths=%d streams=%d", paths, streams)
	}
	if seed == 0 {
		return errors.New("seed must not be 0")
	}

	m := variates.MultiplierTable(paths)
	seeds := variates.Streams(seed, streams, m)

	table := newTable(cmd.OutOrStdout(), "STREAM", "SEED", "MEAN", "STDDEV", "SKEW", "MIN", "MAX")
	for s, sd := range seeds {
		lanes := variates.Lanes(sd, m)
		x := make([]float64, len(lanes))
		lo, hi := math.Inf(1), math.Inf(-1)
		for i, v := range lanes {
			x[i] = float64(v)
			lo, hi = min(lo, x[i]), max(hi, x[i])
		}

		mean, std := stat.MeanStdDev(x, nil)
		table.Append([]string{
			fmt.Sprint(s),
			fmt.Sprint(sd),
			fmt.Sprintf("%+.4f", mean),
			fmt.Sprintf("%.4f", std),
			fmt.Sprintf("%+.4f", stat.Skew(x, nil)),
			fmt.Sprintf("%.4f", lo),
			fmt.Sprintf("%.4f", hi),
		})
	}
	table.Render()
	return nil
}
