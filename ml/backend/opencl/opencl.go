// MODUL: opencl
// ZWECK: OpenCL-Framework: Plattform- und Geraeteaufzaehlung, Geraet oeffnen,
//        Health-Check der Typgroessen
// INPUT: Installierter OpenCL-ICD, RISKGPU_OPENCL_PLATFORM
// OUTPUT: ml.DeviceInfo, *Device
// NEBENEFFEKTE: Legt cl_context und cl_command_queue an
// ABHAENGIGKEITEN: libOpenCL (cgo), envconfig, ml
// HINWEISE: Wird kompiliert wenn Build-Tag "opencl" gesetzt

//go:build opencl

package opencl

/*
#cgo linux LDFLAGS: -lOpenCL
#cgo windows LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL
#define CL_TARGET_OPENCL_VERSION 120
#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif
#include <stdlib.h>

static const char *mc_health_source =
	"#ifdef cl_khr_fp64\n"
	"#pragma OPENCL EXTENSION cl_khr_fp64 : enable\n"
	"#endif\n"
	"__kernel void mc_health(__global uint* out) {\n"
	"    out[0] = sizeof(uint);\n"
	"    out[1] = sizeof(ulong);\n"
	"    out[2] = sizeof(float);\n"
	"#ifdef cl_khr_fp64\n"
	"    out[3] = sizeof(double);\n"
	"#else\n"
	"    out[3] = 0;\n"
	"#endif\n"
	"}\n";
*/
import "C"

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unsafe"

	"github.com/riskgpu/riskgpu/envconfig"
	"github.com/riskgpu/riskgpu/ml"
)

func init() {
	ml.RegisterFramework(frameworkName, func() (ml.Framework, error) {
		return framework{}, nil
	})
}

// ============================================================================
// Framework
// ============================================================================

type framework struct{}

func (framework) Name() string { return frameworkName }

func (framework) Devices() ([]ml.DeviceInfo, error) {
	handles, err := enumerate()
	if err != nil {
		return nil, err
	}

	infos := make([]ml.DeviceInfo, 0, len(handles))
	for _, h := range handles {
		infos = append(infos, h.info)
	}
	return infos, nil
}

func (framework) Open(info ml.DeviceInfo) (ml.Device, error) {
	handles, err := enumerate()
	if err != nil {
		return nil, err
	}

	for _, h := range handles {
		if h.info.ID() == info.ID() && h.info.Index == info.Index {
			return open(h)
		}
	}
	return nil, fmt.Errorf("opencl: unknown device %q", info.ID())
}

// handle verbindet eine DeviceInfo mit den Treiber-Handles.
type handle struct {
	info     ml.DeviceInfo
	platform C.cl_platform_id
	device   C.cl_device_id
}

// enumerate listet alle Geraete aller Plattformen, deren Name
// RISKGPU_OPENCL_PLATFORM enthaelt.
func enumerate() ([]handle, error) {
	var n C.cl_uint
	if code := C.clGetPlatformIDs(0, nil, &n); code != C.CL_SUCCESS {
		return nil, fmt.Errorf("%w: %v", ErrNotAvailable, deviceError("clGetPlatformIDs", int(code)))
	}
	if n == 0 {
		return nil, ErrNotAvailable
	}

	platforms := make([]C.cl_platform_id, n)
	if code := C.clGetPlatformIDs(n, &platforms[0], nil); code != C.CL_SUCCESS {
		return nil, deviceError("clGetPlatformIDs", int(code))
	}

	filter := strings.ToLower(envconfig.OpenCLPlatform())

	var handles []handle
	for _, p := range platforms {
		name := platformString(p, C.CL_PLATFORM_NAME)
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			slog.Debug("opencl platform skipped", "platform", name, "filter", filter)
			continue
		}

		var count C.cl_uint
		code := C.clGetDeviceIDs(p, C.cl_device_type(C.CL_DEVICE_TYPE_ALL), 0, nil, &count)
		if code == C.CL_DEVICE_NOT_FOUND || count == 0 {
			continue
		}
		if code != C.CL_SUCCESS {
			return nil, deviceError("clGetDeviceIDs", int(code))
		}

		devices := make([]C.cl_device_id, count)
		if code := C.clGetDeviceIDs(p, C.cl_device_type(C.CL_DEVICE_TYPE_ALL), count, &devices[0], nil); code != C.CL_SUCCESS {
			return nil, deviceError("clGetDeviceIDs", int(code))
		}

		for i, d := range devices {
			info := ml.DeviceInfo{
				Framework: frameworkName,
				Platform:  name,
				Name:      deviceString(d, C.CL_DEVICE_NAME),
				Index:     i,
				DType:     ml.DTypeF32,
			}
			info.SetProperty("device_name", info.Name)
			info.SetProperty("driver_version", deviceString(d, C.CL_DRIVER_VERSION))
			info.SetProperty("device_version", deviceString(d, C.CL_DEVICE_VERSION))
			info.SetProperty("extensions", deviceString(d, C.CL_DEVICE_EXTENSIONS))
			info.SetProperty("compute_units", strconv.Itoa(int(deviceUint(d, C.CL_DEVICE_MAX_COMPUTE_UNITS))))
			info.SetProperty("vendor", platformString(p, C.CL_PLATFORM_VENDOR))

			handles = append(handles, handle{info: info, platform: p, device: d})
		}
	}

	slog.Debug("opencl devices", "count", len(handles))
	return handles, nil
}

func platformString(p C.cl_platform_id, param C.cl_platform_info) string {
	var size C.size_t
	if C.clGetPlatformInfo(p, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetPlatformInfo(p, param, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimRight(string(buf), "\x00")
}

func deviceString(d C.cl_device_id, param C.cl_device_info) string {
	var size C.size_t
	if C.clGetDeviceInfo(d, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetDeviceInfo(d, param, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimRight(string(buf), "\x00")
}

func deviceUint(d C.cl_device_id, param C.cl_device_info) C.cl_uint {
	var v C.cl_uint
	C.clGetDeviceInfo(d, param, C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)
	return v
}

// ============================================================================
// Geraet oeffnen
// ============================================================================

func open(h handle) (*Device, error) {
	var code C.cl_int
	dev := h.device

	ctx := C.clCreateContext(nil, 1, &dev, nil, nil, &code)
	if code != C.CL_SUCCESS {
		return nil, deviceError("clCreateContext", int(code))
	}

	queue := C.clCreateCommandQueue(ctx, dev, 0, &code)
	if code != C.CL_SUCCESS {
		C.clReleaseContext(ctx)
		return nil, deviceError("clCreateCommandQueue", int(code))
	}

	d := &Device{info: h.info, id: dev, ctx: ctx, queue: queue}

	sizes, err := d.health()
	if err != nil {
		slog.Warn("opencl health check failed", "device", h.info.ID(), "error", err)
	} else {
		for i, key := range []string{"uint_size", "ulong_size", "float_size", "double_size"} {
			d.info.SetProperty(key, strconv.Itoa(int(sizes[i])))
		}
	}

	slog.Info("opencl device opened", "device", h.info.ID(), "version", h.info.Property("device_version"))
	return d, nil
}

// health baut einen Mini-Kernel und liest die Typgroessen des Geraets.
// double_size ist 0 ohne cl_khr_fp64.
func (d *Device) health() ([4]uint32, error) {
	var sizes [4]uint32
	var code C.cl_int

	src := C.mc_health_source
	prog := C.clCreateProgramWithSource(d.ctx, 1, &src, nil, &code)
	if code != C.CL_SUCCESS {
		return sizes, deviceError("clCreateProgramWithSource", int(code))
	}
	defer C.clReleaseProgram(prog)

	dev := d.id
	if code := C.clBuildProgram(prog, 1, &dev, nil, nil, nil); code != C.CL_SUCCESS {
		return sizes, fmt.Errorf("%w\n%s", deviceError("clBuildProgram", int(code)), d.buildLog(prog))
	}

	name := C.CString("mc_health")
	defer C.free(unsafe.Pointer(name))
	k := C.clCreateKernel(prog, name, &code)
	if code != C.CL_SUCCESS {
		return sizes, deviceError("clCreateKernel", int(code))
	}
	defer C.clReleaseKernel(k)

	mem := C.clCreateBuffer(d.ctx, C.CL_MEM_WRITE_ONLY, C.size_t(unsafe.Sizeof(sizes)), nil, &code)
	if code != C.CL_SUCCESS {
		return sizes, deviceError("clCreateBuffer", int(code))
	}
	defer C.clReleaseMemObject(mem)

	if code := C.clSetKernelArg(k, 0, C.size_t(unsafe.Sizeof(mem)), unsafe.Pointer(&mem)); code != C.CL_SUCCESS {
		return sizes, deviceError("clSetKernelArg", int(code))
	}

	global := C.size_t(1)
	if code := C.clEnqueueNDRangeKernel(d.queue, k, 1, nil, &global, nil, 0, nil, nil); code != C.CL_SUCCESS {
		return sizes, deviceError("clEnqueueNDRangeKernel", int(code))
	}
	if code := C.clEnqueueReadBuffer(d.queue, mem, C.CL_TRUE, 0, C.size_t(unsafe.Sizeof(sizes)), unsafe.Pointer(&sizes[0]), 0, nil, nil); code != C.CL_SUCCESS {
		return sizes, deviceError("clEnqueueReadBuffer", int(code))
	}
	return sizes, nil
}

func (d *Device) buildLog(prog C.cl_program) string {
	var size C.size_t
	if C.clGetProgramBuildInfo(prog, d.id, C.CL_PROGRAM_BUILD_LOG, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetProgramBuildInfo(prog, d.id, C.CL_PROGRAM_BUILD_LOG, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimSpace(strings.TrimRight(string(buf), "\x00"))
}
