// cmd_display.go - Display und Output-Funktionen
// Hauptfunktionen: printDebugInfo, printSource, newTable
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/riskgpu/riskgpu/format"
	"github.com/riskgpu/riskgpu/ml"
)

// printer setzt Tausendertrennzeichen in Zaehlern
var printer = message.NewPrinter(language.English)

// newTable - Tabelle im Stil der uebrigen Listen (ohne Rahmen, linksbuendig)
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

// printDebugInfo - Gibt die kumulierten Debug-Zaehler eines Kontexts aus
func printDebugInfo(w io.Writer, info ml.DebugInfo) {
	total := info.DataCopy() + info.ProgramBuild() + info.Calculation()

	table := newTable(w, "PHASE", "TIME", "RATE")
	table.Append([]string{"data copy", format.HumanDuration(info.DataCopy()), ""})
	table.Append([]string{"program build", format.HumanDuration(info.ProgramBuild()), fmt.Sprintf("%d builds", info.ProgramBuilds)})
	table.Append([]string{"calculation", format.HumanDuration(info.Calculation()), format.HumanRate(info.NumberOfOperations, info.Calculation())})
	table.Append([]string{"total", format.HumanDuration(total), printer.Sprintf("%d ops", info.NumberOfOperations)})
	table.Render()
}

// printSource - Gibt Quelltext aus; auf Terminals werden lange Zeilen umbrochen
func printSource(w io.Writer, source string, lineNumbers bool) {
	lines := strings.Split(strings.TrimRight(source, "\n"), "\n")

	gutter := 0
	if lineNumbers {
		gutter = len(fmt.Sprint(len(lines))) + 2
	}

	width := 0
	if isTerminal(w) {
		width, _, _ = term.GetSize(int(w.(*os.File).Fd()))
	}

	for i, line := range lines {
		parts := []string{line}
		if width > gutter+20 && runewidth.StringWidth(line) > width-gutter {
			parts = strings.Split(runewidth.Wrap(line, width-gutter), "\n")
		}
		for j, part := range parts {
			switch {
			case !lineNumbers:
				fmt.Fprintln(w, part)
			case j == 0:
				fmt.Fprintf(w, "%*d  %s\n", gutter-2, i+1, part)
			default:
				fmt.Fprintf(w, "%*s%s\n", gutter, "", part)
			}
		}
	}
}

// isTerminal - true wenn w ein Terminal ist
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
