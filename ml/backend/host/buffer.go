// buffer.go - Host-Buffer in float32- oder float16-Speicher
package host

import (
	"fmt"
	"sync/atomic"

	"github.com/x448/float16"

	"github.com/riskgpu/riskgpu/ml"
)

type floatBuffer struct {
	f32      []float32
	f16      []float16.Float16
	released atomic.Bool
}

func (b *floatBuffer) Len() int {
	if b.f16 != nil {
		return len(b.f16)
	}
	return len(b.f32)
}

func (b *floatBuffer) Release() { b.released.Store(true) }

func (b *floatBuffer) get(i int) float32 {
	if b.f16 != nil {
		return b.f16[i].Float32()
	}
	return b.f32[i]
}

func (b *floatBuffer) set(i int, v float32) {
	if b.f16 != nil {
		b.f16[i] = float16.Fromfloat32(v)
		return
	}
	b.f32[i] = v
}

type uintBuffer struct {
	data     []uint32
	released atomic.Bool
}

func (b *uintBuffer) Len() int { return len(b.data) }
func (b *uintBuffer) Release() { b.released.Store(true) }

func (d *Device) NewFloatBuffer(n int) (ml.Buffer, error) {
	if n <= 0 {
		return nil, &ml.DeviceError{Op: "create buffer", Code: codeInvalidValue, Name: "INVALID_BUFFER_SIZE"}
	}
	if d.opts.dtype == ml.DTypeF16 {
		return &floatBuffer{f16: make([]float16.Float16, n)}, nil
	}
	return &floatBuffer{f32: make([]float32, n)}, nil
}

func (d *Device) NewUintBuffer(data []uint32) (ml.Buffer, error) {
	if len(data) == 0 {
		return nil, &ml.DeviceError{Op: "create buffer", Code: codeInvalidValue, Name: "INVALID_BUFFER_SIZE"}
	}
	return &uintBuffer{data: append([]uint32(nil), data...)}, nil
}

func (d *Device) WriteFloats(dst ml.Buffer, offset int, src []float32, deps ...ml.Event) (ml.Event, error) {
	const op = "write buffer"
	b, err := floatArg(op, dst, offset, len(src))
	if err != nil {
		return nil, err
	}
	return d.enqueue(op, deps, func() error {
		if b.released.Load() {
			return &ml.DeviceError{Op: op, Code: codeMemObject, Name: "INVALID_MEM_OBJECT"}
		}
		for i, v := range src {
			b.set(offset+i, v)
		}
		return nil
	})
}

func (d *Device) ReadFloats(src ml.Buffer, offset int, dst []float32, deps ...ml.Event) (ml.Event, error) {
	const op = "read buffer"
	b, err := floatArg(op, src, offset, len(dst))
	if err != nil {
		return nil, err
	}
	return d.enqueue(op, deps, func() error {
		if b.released.Load() {
			return &ml.DeviceError{Op: op, Code: codeMemObject, Name: "INVALID_MEM_OBJECT"}
		}
		for i := range dst {
			dst[i] = b.get(offset + i)
		}
		return nil
	})
}

func floatArg(op string, buf ml.Buffer, offset, n int) (*floatBuffer, error) {
	b, ok := buf.(*floatBuffer)
	if !ok || b.released.Load() {
		return nil, &ml.DeviceError{Op: op, Code: codeMemObject, Name: "INVALID_MEM_OBJECT"}
	}
	if offset < 0 || offset+n > b.Len() {
		return nil, fmt.Errorf("%s: range [%d, %d) outside buffer of %d: %w", op, offset, offset+n, b.Len(),
			&ml.DeviceError{Op: op, Code: codeInvalidValue, Name: "INVALID_VALUE"})
	}
	return b, nil
}
