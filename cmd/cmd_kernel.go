// cmd_kernel.go - Kernel Command Handler
// Hauptfunktionen: KernelHandler
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/riskgpu/riskgpu/kernel"
	"github.com/riskgpu/riskgpu/ml"
)

// programmer liefert das zwischengespeicherte Programm einer Berechnung.
type programmer interface {
	Program(id int) (*kernel.Program, bool)
}

// KernelHandler - Baut die Beispielrechnung und gibt Kernel oder SSA aus
func KernelHandler(cmd *cobra.Command, args []string) error {
	p, err := pricingFromFlags(cmd)
	if err != nil {
		return err
	}
	ssa, _ := cmd.Flags().GetBool("ssa")

	lineNumbers := isTerminal(cmd.OutOrStdout())
	if cmd.Flags().Changed("line-numbers") {
		lineNumbers, _ = cmd.Flags().GetBool("line-numbers")
	}

	dir, c, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer dir.Close()

	// ein Lauf mit einer Lane genuegt, um den Kernel zu bauen
	id, err := p.submit(c, 0, 1, ml.Settings{})
	if err != nil {
		return err
	}
	if err := c.FinalizeCalculation([][]float64{make([]float64, 1), make([]float64, 1)}); err != nil {
		return err
	}

	pc, ok := c.(programmer)
	if !ok {
		return errors.New("device context does not expose compiled programs")
	}
	prog, ok := pc.Program(id)
	if !ok {
		return errors.New("no program was built")
	}

	if ssa {
		printSource(cmd.OutOrStdout(), prog.SSA(), lineNumbers)
		return nil
	}
	printSource(cmd.OutOrStdout(), prog.Source(), lineNumbers)
	return nil
}
