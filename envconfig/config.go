// config.go - Haupt-Konfigurationsfunktionen fuer riskgpu
//
// Dieses Modul enthaelt:
// - LogLevel: Gibt Log-Level zurueck (RISKGPU_DEBUG)
// - HostThreads: Parallelitaet des Host-Geraets (RISKGPU_HOST_THREADS)
// - HostPrecision: Speichergenauigkeit des Host-Geraets (RISKGPU_HOST_PRECISION)
// - Var: Liest eine Environment-Variable
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Feature-Flags und Geraeteauswahl
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/riskgpu/riskgpu/ml"
)

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via RISKGPU_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("RISKGPU_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// HostThreads gibt die Anzahl paralleler Lanes-Worker des Host-Geraets zurueck
// Konfigurierbar via RISKGPU_HOST_THREADS
// Default: GOMAXPROCS
func HostThreads() int {
	if n := hostThreads(); n > 0 {
		return int(n)
	}
	return runtime.GOMAXPROCS(0)
}

var hostThreads = Uint("RISKGPU_HOST_THREADS", 0)

// HostPrecision gibt die Speichergenauigkeit der Host-Buffer zurueck
// Konfigurierbar via RISKGPU_HOST_PRECISION (f32|f16)
// Ungueltige Werte fallen mit Warnung auf f32 zurueck
func HostPrecision() ml.DType {
	s := Var("RISKGPU_HOST_PRECISION")
	d, err := ml.ParseDType(s)
	if err != nil {
		slog.Warn("invalid environment variable, using default", "key", "RISKGPU_HOST_PRECISION", "value", s, "default", ml.DTypeF32)
		return ml.DTypeF32
	}
	return d
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
