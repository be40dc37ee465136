// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/riskgpu/riskgpu/envconfig"
	"github.com/riskgpu/riskgpu/logutil"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "riskgpu",
		Short:         "Vectorized compute graphs on OpenCL devices",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.PersistentFlags().String("device", "", "Device to use (Framework/Platform/Device, default $RISKGPU_DEVICE)")

	// Commands erstellen
	devicesCmd := newDevicesCmd()
	kernelCmd := newKernelCmd()
	runCmd := newRunCmd()
	variatesCmd := newVariatesCmd()
	envCmd := newEnvCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["RISKGPU_DEBUG"], envVars["RISKGPU_DEVICE"]}

	for _, cmd := range []*cobra.Command{
		devicesCmd,
		kernelCmd,
		runCmd,
	} {
		switch cmd {
		case devicesCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["RISKGPU_DEBUG"],
				envVars["RISKGPU_OPENCL_PLATFORM"],
				envVars["RISKGPU_HOST_THREADS"],
				envVars["RISKGPU_HOST_PRECISION"],
			})
		case runCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["RISKGPU_DEBUG"],
				envVars["RISKGPU_DEBUG_TIMINGS"],
				envVars["RISKGPU_DEVICE"],
				envVars["RISKGPU_BUILD_LOG_LIMIT"],
				envVars["RISKGPU_HOST_THREADS"],
				envVars["RISKGPU_HOST_PRECISION"],
			})
		default:
			appendEnvDocs(cmd, envs)
		}
	}

	rootCmd.AddCommand(
		devicesCmd,
		kernelCmd,
		runCmd,
		variatesCmd,
		envCmd,
	)

	return rootCmd
}
