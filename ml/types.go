// types.go - Datentypen fuer Geraetespeicher
// Dieses Modul definiert DType, die Speichergenauigkeit von Float-Buffern.
package ml

import (
	"fmt"
	"strings"
)

// DType represents the storage type of float buffer elements.
// Kernels always compute in float32.
type DType int

const (
	DTypeOther DType = iota
	DTypeF32
	DTypeF16
)

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	default:
		return "other"
	}
}

// ParseDType akzeptiert "f32"/"float32" und "f16"/"float16"; leer bedeutet f32.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "f32", "float32":
		return DTypeF32, nil
	case "f16", "float16", "half":
		return DTypeF16, nil
	default:
		return DTypeOther, fmt.Errorf("unknown precision %q (f32|f16)", s)
	}
}
