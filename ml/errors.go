// errors.go - Fehlertypen der Compute-Schicht
// UsageError (falsche Aufrufreihenfolge, Groessen), DeviceError (Rueckgabecodes
// des Geraets), BuildError (Kernel-Uebersetzung).
package ml

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrDisposed wird fuer Berechnungen nach DisposeCalculation zurueckgegeben.
var ErrDisposed = errors.New("calculation disposed")

// ErrClosed wird nach Close eines Kontexts oder Geraets zurueckgegeben.
var ErrClosed = errors.New("closed")

// UsageError beschreibt einen Verstoss gegen den Aufrufvertrag.
type UsageError struct {
	Op      string
	CalcID  int
	Version int
	VarID   int // -1 wenn keine Variable betroffen ist
	Msg     string
	Err     error
}

func (e *UsageError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: calc %d v%d", e.Op, e.CalcID, e.Version)
	if e.VarID >= 0 {
		fmt.Fprintf(&sb, " var %d", e.VarID)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// DeviceError beschreibt einen fehlgeschlagenen Geraeteaufruf.
type DeviceError struct {
	Op   string
	Code int
	Name string
}

func (e *DeviceError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: device error %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Name, e.Code)
}

// BuildError traegt das begrenzte Build-Log und einen Quelltextauszug.
type BuildError struct {
	Kernel string
	Log    string
	Source string
	Err    error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build %s failed", e.Kernel)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Log != "" {
		msg += "\n" + e.Log
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Truncate kuerzt s auf hoechstens limit Bytes und markiert die Kuerzung.
// Geschnitten wird nur an Zeichengrenzen. limit <= 0 laesst s unveraendert.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "\n... (truncated)"
}
