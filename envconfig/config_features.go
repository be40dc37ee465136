// config_features.go - Feature-Flags und Geraeteauswahl
//
// Dieses Modul enthaelt:
// - Debug-Flags fuer Berechnungen
// - Geraete- und Plattformauswahl
// - Grenzen fuer Diagnoseausgaben
package envconfig

// =============================================================================
// Feature-Flags
// =============================================================================

var (
	// DebugTimings erzwingt Settings.Debug fuer jede Berechnung
	DebugTimings = Bool("RISKGPU_DEBUG_TIMINGS")
)

// =============================================================================
// Geraeteauswahl
// =============================================================================

var (
	// Device ist das Standardgeraet der CLI ("<Framework>/<Platform>/<Device>")
	Device = String("RISKGPU_DEVICE")

	// OpenCLPlatform beschraenkt OpenCL auf Plattformen, deren Name den Wert enthaelt
	OpenCLPlatform = String("RISKGPU_OPENCL_PLATFORM")
)

// =============================================================================
// Diagnose-Grenzen
// =============================================================================

var (
	// BuildLogLimit begrenzt Build-Log und Quelltextauszug in BuildError (Bytes)
	// Konfigurierbar via RISKGPU_BUILD_LOG_LIMIT
	BuildLogLimit = Uint("RISKGPU_BUILD_LOG_LIMIT", 1024)
)
