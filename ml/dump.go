// dump.go - Dump-Funktionen fuer Berechnungsergebnisse
// Dieses Modul stellt Hilfsfunktionen zum Ausgeben von Ausgabe-Arrays bereit.
package ml

import (
	"math"
	"strconv"
	"strings"
)

// DumpOptions configures result dump output format.
type DumpOptions func(*dumpOptions)

// DumpWithPrecision sets the number of decimal places to print.
func DumpWithPrecision(n int) DumpOptions {
	return func(opts *dumpOptions) {
		opts.Precision = n
	}
}

// DumpWithThreshold sets the threshold for printing an entire row. If a row has
// at most this many lanes it is printed completely, otherwise only the
// beginning and end are printed.
func DumpWithThreshold(n int) DumpOptions {
	return func(opts *dumpOptions) {
		opts.Threshold = n
	}
}

// DumpWithEdgeItems sets the number of lanes to print at the beginning and end of each row.
func DumpWithEdgeItems(n int) DumpOptions {
	return func(opts *dumpOptions) {
		opts.EdgeItems = n
	}
}

type dumpOptions struct {
	Precision, Threshold, EdgeItems int
}

// Dump converts output arrays (one row per output slot) to a human-readable string.
func Dump(outputs [][]float64, optsFuncs ...DumpOptions) string {
	opts := dumpOptions{Precision: 4, Threshold: 1000, EdgeItems: 3}
	for _, optsFunc := range optsFuncs {
		optsFunc(&opts)
	}

	var sb strings.Builder
	sb.WriteString("[")
	for r, row := range outputs {
		if r > 0 {
			sb.WriteString(",\n ")
		}
		items := opts.EdgeItems
		if len(row) <= opts.Threshold {
			items = math.MaxInt
		}
		dumpRow(&sb, row, items, opts.Precision)
	}
	sb.WriteString("]")
	return sb.String()
}

func dumpRow(sb *strings.Builder, row []float64, items, precision int) {
	sb.WriteString("[")
	defer sb.WriteString("]")
	for i := 0; i < len(row); i++ {
		if i >= items && i < len(row)-items {
			sb.WriteString("..., ")
			// skip to next printable element
			i = len(row) - items - 1
			continue
		}

		text := strconv.FormatFloat(row[i], 'f', precision, 64)
		if len(text) > 0 && text[0] != '-' {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
		if i < len(row)-1 {
			sb.WriteString(", ")
		}
	}
}
