// MODUL: opencl_stub
// ZWECK: Stub-Framework wenn OpenCL nicht einkompiliert ist
// INPUT: Keine
// OUTPUT: ErrNotAvailable fuer Devices und Open
// NEBENEFFEKTE: Registriert das Framework "OpenCL"
// ABHAENGIGKEITEN: ml
// HINWEISE: Wird kompiliert wenn Build-Tag "opencl" NICHT gesetzt

//go:build !opencl

package opencl

import (
	"github.com/riskgpu/riskgpu/ml"
)

func init() {
	ml.RegisterFramework(frameworkName, func() (ml.Framework, error) {
		return stub{}, nil
	})
}

type stub struct{}

func (stub) Name() string { return frameworkName }

// Devices meldet immer ErrNotAvailable.
func (stub) Devices() ([]ml.DeviceInfo, error) {
	return nil, ErrNotAvailable
}

func (stub) Open(ml.DeviceInfo) (ml.Device, error) {
	return nil, ErrNotAvailable
}
