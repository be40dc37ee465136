package opencl

import (
	"errors"
	"testing"

	"github.com/riskgpu/riskgpu/ml"
)

func TestErrorName(t *testing.T) {
	cases := map[int]string{
		0:    "CL_SUCCESS",
		-5:   "CL_OUT_OF_RESOURCES",
		-11:  "CL_BUILD_PROGRAM_FAILURE",
		-54:  "CL_INVALID_WORK_GROUP_SIZE",
		-999: "CL_UNKNOWN_ERROR(-999)",
	}
	for code, want := range cases {
		if got := ErrorName(code); got != want {
			t.Errorf("ErrorName(%d): erwartet %s, bekommen %s", code, want, got)
		}
	}
}

func TestDeviceError(t *testing.T) {
	if err := deviceError("clFinish", 0); err != nil {
		t.Errorf("CL_SUCCESS sollte kein Fehler sein: %v", err)
	}

	err := deviceError("clEnqueueNDRangeKernel", -52)
	var de *ml.DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("erwartet *ml.DeviceError, bekommen %T", err)
	}
	if de.Name != "CL_INVALID_KERNEL_ARGS" || de.Op != "clEnqueueNDRangeKernel" {
		t.Errorf("unerwarteter Fehler: %v", de)
	}
}

func TestFrameworkRegistered(t *testing.T) {
	f, err := ml.NewFramework(frameworkName)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != frameworkName {
		t.Errorf("Name: erwartet %s, bekommen %s", frameworkName, f.Name())
	}
}
