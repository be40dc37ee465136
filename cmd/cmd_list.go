// cmd_list.go - Devices und Env Commands
// Hauptfunktionen: DevicesHandler, EnvHandler
package cmd

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/riskgpu/riskgpu/discover"
	"github.com/riskgpu/riskgpu/envconfig"
)

// DevicesHandler - Listet alle Geraete aller Frameworks auf
func DevicesHandler(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	open, _ := cmd.Flags().GetBool("open")

	dir, err := discover.New()
	if err != nil {
		return err
	}
	defer dir.Close()

	w := cmd.OutOrStdout()
	names := dir.Devices()
	if len(names) == 0 {
		fmt.Fprintln(w, "no devices found")
		return nil
	}

	var data [][]string
	for _, name := range names {
		if open {
			// Oeffnen fuehrt den Health-Check aus und ergaenzt die Eigenschaften
			if _, err := dir.Context(name); err != nil {
				return err
			}
		}
		info, err := dir.Info(name)
		if err != nil {
			return err
		}

		if verbose {
			fmt.Fprintln(w, name)
			table := newTable(w, "PROPERTY", "VALUE")
			for _, kv := range info.Pairs() {
				table.Append([]string{kv[0], kv[1]})
			}
			table.Render()
			fmt.Fprintln(w)
			continue
		}

		data = append(data, []string{
			name,
			strconv.Itoa(info.Index),
			info.DType.String(),
			info.Property("compute_units"),
			info.Property("device_version"),
		})
	}

	if !verbose {
		table := newTable(w, "NAME", "INDEX", "PRECISION", "UNITS", "VERSION")
		table.AppendBulk(data)
		table.Render()
	}
	return nil
}

// EnvHandler - Zeigt alle Umgebungsvariablen mit aktuellem Wert
func EnvHandler(cmd *cobra.Command, args []string) error {
	vars := envconfig.AsMap()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	table := newTable(cmd.OutOrStdout(), "NAME", "VALUE", "DESCRIPTION")
	for _, k := range keys {
		v := vars[k]
		table.Append([]string{v.Name, fmt.Sprint(v.Value), v.Description})
	}
	table.Render()
	return nil
}
