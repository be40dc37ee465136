// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - String: String-Getter
// - Uint: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// =============================================================================
// Boolean-Getter
// =============================================================================

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// =============================================================================
// String-Getter
// =============================================================================

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// =============================================================================
// Integer-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"RISKGPU_DEBUG":           {"RISKGPU_DEBUG", LogLevel(), "Show additional debug information (e.g. RISKGPU_DEBUG=1, 2 for trace)"},
		"RISKGPU_DEBUG_TIMINGS":   {"RISKGPU_DEBUG_TIMINGS", DebugTimings(), "Collect debug timings for every calculation"},
		"RISKGPU_DEVICE":          {"RISKGPU_DEVICE", Device(), "Default device for the CLI (Framework/Platform/Device)"},
		"RISKGPU_HOST_THREADS":    {"RISKGPU_HOST_THREADS", HostThreads(), "Lane workers of the host device (default: GOMAXPROCS)"},
		"RISKGPU_HOST_PRECISION":  {"RISKGPU_HOST_PRECISION", HostPrecision(), "Buffer storage of the host device, f32 or f16 (default: f32)"},
		"RISKGPU_BUILD_LOG_LIMIT": {"RISKGPU_BUILD_LOG_LIMIT", BuildLogLimit(), "Maximum bytes of build log and source kept in build errors (default: 1024)"},
		"RISKGPU_OPENCL_PLATFORM": {"RISKGPU_OPENCL_PLATFORM", OpenCLPlatform(), "Only use OpenCL platforms whose name contains this value"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
