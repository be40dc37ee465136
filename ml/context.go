// context.go - Compute-Kontext-Schnittstelle fuer vektorisierte Berechnungen
// Dieses Modul definiert den Aufrufvertrag einer Berechnung: initiieren,
// Inputs und Variaten anlegen, Operationen anwenden, Ausgaben deklarieren,
// finalisieren.
package ml

import (
	"time"

	"github.com/riskgpu/riskgpu/opcode"
)

// Settings steuern eine einzelne Einreichung.
type Settings struct {
	// Debug synchronisiert nach jeder Phase und fuehrt DebugInfo mit
	Debug bool
}

// DebugInfo sammelt Zaehler ueber alle Debug-Einreichungen eines Kontexts.
type DebugInfo struct {
	NumberOfOperations      uint64
	NanoSecondsDataCopy     uint64
	NanoSecondsProgramBuild uint64
	NanoSecondsCalculation  uint64

	// ProgramBuilds zaehlt uebersetzte Kernels, unabhaengig von Debug
	ProgramBuilds uint64
}

func (d DebugInfo) DataCopy() time.Duration     { return time.Duration(d.NanoSecondsDataCopy) }
func (d DebugInfo) ProgramBuild() time.Duration { return time.Duration(d.NanoSecondsProgramBuild) }
func (d DebugInfo) Calculation() time.Duration  { return time.Duration(d.NanoSecondsCalculation) }

// ComputeContext ist der Berechnungsvertrag eines einzelnen Geraets.
//
// Eine Berechnung wird ueber eine positive id angesprochen. Die erste
// Einreichung zu (id, version) zeichnet ein SSA-Programm auf und uebersetzt es;
// spaetere Einreichungen derselben Version liefern nur neue Inputwerte.
//
// Ein ComputeContext wird jeweils nur von einer Goroutine bedient.
type ComputeContext interface {
	// InitiateCalculation beginnt eine Einreichung mit n Lanes. id 0 legt eine
	// neue Berechnung an; newKernel meldet, ob Operationen aufzuzeichnen sind.
	InitiateCalculation(n, id, version int, settings Settings) (calcID int, newKernel bool, err error)

	CreateInputScalar(v float64) (int, error)
	CreateInputArray(v []float64) (int, error)

	// CreateInputVariates gibt ein [dim][steps]-Raster von Standardnormal-Variaten zurueck.
	// Seed 0 wird abgelehnt.
	CreateInputVariates(dim, steps int, seed uint32) ([][]int, error)

	ApplyOperation(code opcode.Code, args ...int) (int, error)
	FreeVariable(id int) error
	DeclareOutputVariable(id int) error

	// FinalizeCalculation fuehrt den Kernel aus und fuellt outputs, ein Slice
	// der Laenge n pro deklarierter Ausgabe. Geraetefehler tragen id und Version.
	FinalizeCalculation(outputs [][]float64) error

	DisposeCalculation(id int) error

	DebugInfo() DebugInfo
	DeviceInfo() DeviceInfo

	Close() error
}
