package format

import (
	"fmt"
	"time"
)

// HumanDuration formatiert kurze Messzeiten mit passender Einheit.
func HumanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// HumanRate gibt count pro Sekunde ueber d aus, z.B. "12.5M/s".
func HumanRate(count uint64, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return HumanNumber(uint64(float64(count)/d.Seconds())) + "/s"
}
