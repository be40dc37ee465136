package format

import (
	"fmt"
	"math"
)

const (
	Byte = 1

	KiloByte = Byte * 1000
	MegaByte = KiloByte * 1000
	GigaByte = MegaByte * 1000

	KibiByte = Byte * 1024
	MebiByte = KibiByte * 1024
	GibiByte = MebiByte * 1024
)

// HumanBytes2 formatiert b mit binaeren Einheiten (KiB, MiB, GiB).
func HumanBytes2(b uint64) string {
	switch {
	case b >= GibiByte:
		return fmt.Sprintf("%.1f GiB", float64(b)/GibiByte)
	case b >= MebiByte:
		return fmt.Sprintf("%.1f MiB", float64(b)/MebiByte)
	case b >= KibiByte:
		return fmt.Sprintf("%.1f KiB", float64(b)/KibiByte)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// HumanNumber kuerzt grosse Zaehler (Operationen, Lanes) auf K/M/B.
func HumanNumber(n uint64) string {
	const (
		thousand = 1_000
		million  = 1_000_000
		billion  = 1_000_000_000
	)

	switch {
	case n >= billion:
		return trim(float64(n)/billion) + "B"
	case n >= million:
		return trim(float64(n)/million) + "M"
	case n >= thousand:
		return trim(float64(n)/thousand) + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func trim(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.1f", f)
}
