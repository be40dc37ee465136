// MODUL: variates
// ZWECK: Deterministische Normalverteilungs-Variaten fuer eine Lane pro Pfad
// INPUT: Pfadanzahl n, 32-Bit-Seed, Anzahl Streams
// OUTPUT: Multiplikator-Tabelle, Stream-Seeds, Kernel-Quelltext, float32-Spiegel
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: Keine externen (nur stdlib)
// HINWEISE: Die Variaten werden im Kernel erzeugt, nicht auf dem Host.
//           Lane i eines Streams mit Seed s zieht u = s*m[i] (mod 2^32).
package variates

import "math"

// Multiplier ist der feste ungerade Multiplikator a des Generators.
// a = 5 (mod 8) ergibt die maximale Periode modulo 2^32.
const Multiplier uint32 = 69069

// ============================================================================
// Multiplikator-Tabelle und Seed-Fortschaltung
// ============================================================================

// MultiplierTable berechnet m[0] = a, m[i] = a*m[i-1] mit 32-Bit-Ueberlauf.
func MultiplierTable(n int) []uint32 {
	m := make([]uint32, n)
	if n == 0 {
		return m
	}
	m[0] = Multiplier
	for i := 1; i < n; i++ {
		m[i] = m[i-1] * Multiplier
	}
	return m
}

// SeedUpdate gibt den Faktor zurueck, um den der Host-Seed nach jedem Stream
// fortgeschaltet wird: m[n-1]*a. Damit ueberlappen die Lane-Folgen
// aufeinanderfolgender Streams nicht.
func SeedUpdate(m []uint32) uint32 {
	if len(m) == 0 {
		return Multiplier
	}
	return m[len(m)-1] * Multiplier
}

// Streams gibt die Seeds fuer count aufeinanderfolgende Streams zurueck.
// Der Start-Seed wird unveraendert uebernommen; Seed 0 liefert in jeder Lane
// denselben Wert und wird von den Aufrufern abgelehnt.
func Streams(seed uint32, count int, m []uint32) []uint32 {
	update := SeedUpdate(m)
	s := seed
	seeds := make([]uint32, count)
	for k := range seeds {
		seeds[k] = s
		s *= update
	}
	return seeds
}

// ============================================================================
// Inverse kumulative Normalverteilung (float32-Spiegel des Kernels)
// ============================================================================

const (
	a1 float32 = -3.969683028665376e+01
	a2 float32 = 2.209460984245205e+02
	a3 float32 = -2.759285104469687e+02
	a4 float32 = 1.383577518672690e+02
	a5 float32 = -3.066479806614716e+01
	a6 float32 = 2.506628277459239e+00
	b1 float32 = -5.447609879822406e+01
	b2 float32 = 1.615858368580409e+02
	b3 float32 = -1.556989798598866e+02
	b4 float32 = 6.680131188771972e+01
	b5 float32 = -1.328068155288572e+01
	c1 float32 = -7.784894002430293e-03
	c2 float32 = -3.223964580411365e-01
	c3 float32 = -2.400758277161838e+00
	c4 float32 = -2.549732539343734e+00
	c5 float32 = 4.374664141464968e+00
	c6 float32 = 2.938163982698783e+00
	d1 float32 = 7.784695709041462e-03
	d2 float32 = 3.224671290700398e-01
	d3 float32 = 2.445134137142996e+00
	d4 float32 = 3.754408661907416e+00

	xLow float32 = 0.02425

	twoPow32 float32 = 4294967296
)

// xHigh wird wie im Kernel in float32 gerechnet, nicht als exakte Konstante.
var xHigh = func() float32 {
	low := xLow
	return 1 - low
}()

// mad rundet das Produkt explizit, damit der Go-Compiler keine FMA bildet.
// Der Kernel schaltet die Kontraktion per Pragma ebenfalls ab.
func mad(a, b, c float32) float32 {
	return float32(a*b) + c
}

func uniform(x0 uint32) float32 {
	return float32(float32(x0)+0.5) / twoPow32
}

func tail(q float32) float32 {
	z := float32(math.Sqrt(float64(float32(-2 * float32(math.Log(float64(q)))))))
	num := mad(mad(mad(mad(mad(c1, z, c2), z, c3), z, c4), z, c5), z, c6)
	den := mad(mad(mad(mad(d1, z, d2), z, d3), z, d4), z, 1)
	return num / den
}

// InvCumN bildet einen 32-Bit-Zufallswert auf einen Normalverteilungs-Quantil ab.
// Die extremen Werte 0 und MaxUint32 saettigen auf -/+ FLT_MAX.
func InvCumN(x0 uint32) float32 {
	switch x0 {
	case 0:
		return -math.MaxFloat32
	case math.MaxUint32:
		return math.MaxFloat32
	}

	x := uniform(x0)
	switch {
	case x < xLow:
		return tail(x)
	case xHigh < x:
		// oberer Rand ueber das ganzzahlige Komplement, 1-x waere in float32 zu grob
		return -tail(uniform(math.MaxUint32 - x0))
	}

	z := x - 0.5
	r := float32(z * z)
	num := float32(mad(mad(mad(mad(mad(a1, r, a2), r, a3), r, a4), r, a5), r, a6) * z)
	den := mad(mad(mad(mad(mad(b1, r, b2), r, b3), r, b4), r, b5), r, 1)
	return num / den
}

// Draw gibt die Variate einer Lane zurueck: InvCumN(seed * mult).
func Draw(seed, mult uint32) float32 {
	return InvCumN(seed * mult)
}

// Lanes erzeugt alle n Variaten eines Streams auf dem Host.
func Lanes(seed uint32, m []uint32) []float32 {
	out := make([]float32, len(m))
	for i, mi := range m {
		out[i] = Draw(seed, mi)
	}
	return out
}
