// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newDevicesCmd, newKernelCmd, newRunCmd, newVariatesCmd, newEnvCmd
package cmd

import (
	"github.com/spf13/cobra"
)

// newDevicesCmd - Erstellt den devices Command
func newDevicesCmd() *cobra.Command {
	devicesCmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"ls"},
		Short:   "List compute devices",
		Args:    cobra.NoArgs,
		RunE:    DevicesHandler,
	}

	devicesCmd.Flags().BoolP("verbose", "v", false, "Show all device properties")
	devicesCmd.Flags().Bool("open", false, "Open each device to run its health check")

	return devicesCmd
}

// newKernelCmd - Erstellt den kernel Command
func newKernelCmd() *cobra.Command {
	kernelCmd := &cobra.Command{
		Use:   "kernel",
		Short: "Print the generated kernel of the example calculation",
		Args:  cobra.NoArgs,
		RunE:  KernelHandler,
	}

	kernelCmd.Flags().Bool("ssa", false, "Print the SSA program instead of the kernel source")
	kernelCmd.Flags().Bool("line-numbers", false, "Number source lines (default: only on terminals)")
	addPricingFlags(kernelCmd)

	return kernelCmd
}

// newRunCmd - Erstellt den run Command
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Price a European call by Monte Carlo on a device",
		Args:  cobra.NoArgs,
		RunE:  RunHandler,
	}

	runCmd.Flags().Int("paths", 100000, "Number of Monte Carlo paths (lanes)")
	runCmd.Flags().Int("repeat", 2, "Number of submissions; all but the first reuse the kernel")
	runCmd.Flags().BoolP("verbose", "v", false, "Show debug timings")
	runCmd.Flags().Bool("dump", false, "Dump the output arrays")
	addPricingFlags(runCmd)

	return runCmd
}

// newVariatesCmd - Erstellt den variates Command
func newVariatesCmd() *cobra.Command {
	variatesCmd := &cobra.Command{
		Use:   "variates",
		Short: "Show normal variates of the host generator",
		Args:  cobra.NoArgs,
		RunE:  VariatesHandler,
	}

	variatesCmd.Flags().Int("paths", 10000, "Number of lanes")
	variatesCmd.Flags().Int("streams", 2, "Number of consecutive streams")
	variatesCmd.Flags().Uint32("seed", 4711, "Seed of the first stream")

	return variatesCmd
}

// newEnvCmd - Erstellt den env Command
func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show environment configuration",
		Args:  cobra.NoArgs,
		RunE:  EnvHandler,
	}
}

func addPricingFlags(cmd *cobra.Command) {
	d := defaultPricing()
	cmd.Flags().Float64("spot", d.Spot, "Initial spot price")
	cmd.Flags().Float64("strike", d.Strike, "Strike price")
	cmd.Flags().Float64("vol", d.Vol, "Annual volatility")
	cmd.Flags().Float64("rate", d.Rate, "Continuously compounded interest rate")
	cmd.Flags().Float64("maturity", d.Maturity, "Maturity in years")
	cmd.Flags().Int("steps", d.Steps, "Time steps per path")
	cmd.Flags().Uint32("seed", d.Seed, "Variate seed")
}
