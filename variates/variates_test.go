package variates

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestMultiplierTable(t *testing.T) {
	m := MultiplierTable(4)
	a := Multiplier
	want := []uint32{a, a * a, a * a * a, a * a * a * a}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("MultiplierTable mismatch (-want +got):\n%s", diff)
	}

	if got := SeedUpdate(m); got != m[3]*a {
		t.Errorf("SeedUpdate: erwartet %d, bekommen %d", m[3]*a, got)
	}

	if len(MultiplierTable(0)) != 0 {
		t.Error("MultiplierTable(0) sollte leer sein")
	}
}

func TestStreamsAdvanceBySeedUpdate(t *testing.T) {
	m := MultiplierTable(16)
	seeds := Streams(42, 3, m)
	if seeds[0] != 42 {
		t.Errorf("Start-Seed sollte unveraendert sein: erwartet 42, bekommen %d", seeds[0])
	}
	for k := 1; k < len(seeds); k++ {
		if seeds[k] != seeds[k-1]*SeedUpdate(m) {
			t.Errorf("Stream %d: Seed nicht um SeedUpdate fortgeschaltet", k)
		}
	}
}

func TestAdjacentSeedsDiffer(t *testing.T) {
	m := MultiplierTable(8)
	for _, seed := range []uint32{4710, 2, 1 << 20} {
		even := Streams(seed, 2, m)
		odd := Streams(seed+1, 2, m)
		for k := range even {
			if even[k] == odd[k] {
				t.Fatalf("Seeds %d und %d: Stream %d hat denselben Seed %d", seed, seed+1, k, even[k])
			}
		}

		a, b := Lanes(even[0], m), Lanes(odd[0], m)
		if cmp.Equal(a, b) {
			t.Errorf("Seeds %d und %d liefern identische Variaten", seed, seed+1)
		}
	}
}

func TestDeterminism(t *testing.T) {
	m := MultiplierTable(1000)
	first := Lanes(12345, m)
	second := Lanes(12345, MultiplierTable(1000))
	for i := range first {
		if math.Float32bits(first[i]) != math.Float32bits(second[i]) {
			t.Fatalf("Lane %d: Ziehungen nicht bitidentisch: %v != %v", i, first[i], second[i])
		}
	}
}

func TestInvCumNSaturation(t *testing.T) {
	if got := InvCumN(0); got != -math.MaxFloat32 {
		t.Errorf("InvCumN(0): erwartet -FLT_MAX, bekommen %v", got)
	}
	if got := InvCumN(math.MaxUint32); got != math.MaxFloat32 {
		t.Errorf("InvCumN(MaxUint32): erwartet FLT_MAX, bekommen %v", got)
	}

	// knapp unterhalb der Saettigung bleibt das Ergebnis endlich
	for _, x0 := range []uint32{1, 2, math.MaxUint32 - 1, math.MaxUint32 - 200} {
		got := InvCumN(x0)
		if math.IsNaN(float64(got)) || math.IsInf(float64(got), 0) || math.Abs(float64(got)) > 10 {
			t.Errorf("InvCumN(%d): unerwarteter Wert %v", x0, got)
		}
	}
}

func TestInvCumNAccuracy(t *testing.T) {
	unit := distuv.UnitNormal
	for _, x0 := range []uint32{1 << 10, 1 << 20, 1 << 26, 1 << 30, 1 << 31, 3 << 30, math.MaxUint32 - 1<<20} {
		p := (float64(x0) + 0.5) / 4294967296.0
		want := unit.Quantile(p)
		got := float64(InvCumN(x0))
		if math.Abs(got-want) > 5e-4*math.Max(1, math.Abs(want)) {
			t.Errorf("InvCumN(%d): erwartet %v, bekommen %v", x0, want, got)
		}
	}

	// Symmetrie um den Median
	if lo, hi := InvCumN(1<<20), InvCumN(math.MaxUint32-1<<20); math.Abs(float64(lo+hi)) > 1e-3 {
		t.Errorf("Quantile nicht symmetrisch: %v, %v", lo, hi)
	}
}

func TestStreamStatistics(t *testing.T) {
	const n = 100000
	m := MultiplierTable(n)
	seeds := Streams(4711, 2, m)

	first := toFloat64(Lanes(seeds[0], m))
	mean, variance := stat.MeanVariance(first, nil)
	if math.Abs(mean) > 0.02 {
		t.Errorf("Mittelwert: erwartet ~0, bekommen %v", mean)
	}
	if math.Abs(variance-1) > 0.03 {
		t.Errorf("Varianz: erwartet ~1, bekommen %v", variance)
	}

	second := toFloat64(Lanes(seeds[1], m))
	if corr := stat.Correlation(first, second, nil); math.Abs(corr) > 0.02 {
		t.Errorf("Streams korreliert: %v", corr)
	}
}

func TestStreamsDoNotCollide(t *testing.T) {
	const n = 50000
	m := MultiplierTable(n)
	seeds := Streams(99, 2, m)

	seen := make(map[uint32]struct{}, n)
	for _, mi := range m {
		seen[seeds[0]*mi] = struct{}{}
	}
	for i, mi := range m {
		if _, ok := seen[seeds[1]*mi]; ok {
			t.Fatalf("Lane %d des zweiten Streams kollidiert mit dem ersten Stream", i)
		}
	}
}

func TestSourceMatchesMirror(t *testing.T) {
	src := Source()
	for _, want := range []string{"float mc_invCumN(const uint x0)", "return -FLT_MAX;", "UINT_MAX - x0", "0.02425f"} {
		if !strings.Contains(src, want) {
			t.Errorf("Source enthaelt %q nicht", want)
		}
	}
}

func toFloat64(s []float32) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}
