// MODUL: opcode
// ZWECK: Operationscodes des Rechengraphen und ihre Abbildung auf Kernel-Ausdruecke
// INPUT: Code plus Operanden (Kernel-Text oder float32-Werte)
// OUTPUT: OpenCL-C-Ausdruck bzw. float32-Ergebnis
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: levenshtein (Vorschlaege bei unbekannten Labels)
// HINWEISE: Die Nummerierung ist stabil und darf nicht umsortiert werden
package opcode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Code identifiziert eine skalare Operation, die pro Lane ausgewertet wird.
type Code int

const (
	None Code = iota
	Add
	Subtract
	Negative
	Mult
	Div
	ConditionalExpectation
	IndicatorEq
	IndicatorGt
	IndicatorGeq
	Min
	Max
	Abs
	Exp
	Sqrt
	Log
	Pow
	NormalCdf
	NormalPdf
)

var labels = [...]string{
	None:                   "None",
	Add:                    "Add",
	Subtract:               "Subtract",
	Negative:               "Negative",
	Mult:                   "Mult",
	Div:                    "Div",
	ConditionalExpectation: "ConditionalExpectation",
	IndicatorEq:            "IndicatorEq",
	IndicatorGt:            "IndicatorGt",
	IndicatorGeq:           "IndicatorGeq",
	Min:                    "Min",
	Max:                    "Max",
	Abs:                    "Abs",
	Exp:                    "Exp",
	Sqrt:                   "Sqrt",
	Log:                    "Log",
	Pow:                    "Pow",
	NormalCdf:              "NormalCdf",
	NormalPdf:              "NormalPdf",
}

// ErrUnknownCode wird fuer Codes ohne Kernel-Implementierung zurueckgegeben.
var ErrUnknownCode = errors.New("opcode: no kernel implementation")

// ErrArity wird bei falscher Operandenzahl zurueckgegeben.
var ErrArity = errors.New("opcode: wrong number of arguments")

func (c Code) String() string {
	if c >= 0 && int(c) < len(labels) {
		return labels[c]
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Arity gibt die erwartete Operandenzahl zurueck, -1 fuer variadisch (mindestens 1).
func (c Code) Arity() int {
	switch c {
	case Add:
		return -1
	case Subtract, Mult, Div, Pow, Min, Max, IndicatorEq, IndicatorGt, IndicatorGeq:
		return 2
	default:
		return 1
	}
}

// Supported meldet, ob der Code im Kernel ausgedrueckt werden kann.
func (c Code) Supported() bool {
	return c >= None && c <= NormalPdf && c != ConditionalExpectation
}

func check(c Code, nargs int) error {
	if !c.Supported() {
		return fmt.Errorf("%w for op code %d (%s)", ErrUnknownCode, int(c), c)
	}
	switch arity := c.Arity(); {
	case arity < 0 && nargs == 0:
		return fmt.Errorf("%w: %s expects at least 1, got 0", ErrArity, c)
	case arity > 0 && nargs != arity:
		return fmt.Errorf("%w: %s expects %d, got %d", ErrArity, c, arity, nargs)
	}
	return nil
}

// Parse sucht einen Code anhand seines Labels (Gross-/Kleinschreibung egal).
// Bei unbekannten Labels enthaelt der Fehler den naechstliegenden Vorschlag.
func Parse(label string) (Code, error) {
	best, bestDist := "", -1
	for i, l := range labels {
		if strings.EqualFold(l, label) {
			return Code(i), nil
		}
		if d := levenshtein.ComputeDistance(strings.ToLower(l), strings.ToLower(label)); bestDist < 0 || d < bestDist {
			best, bestDist = l, d
		}
	}
	return 0, fmt.Errorf("opcode: unknown label %q, did you mean %q?", label, best)
}
