package ml

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeFramework struct{ name string }

func (f fakeFramework) Name() string                         { return f.name }
func (f fakeFramework) Devices() ([]DeviceInfo, error)       { return nil, nil }
func (f fakeFramework) Open(info DeviceInfo) (Device, error) { return nil, errors.New("not implemented") }

func TestRegisterFramework(t *testing.T) {
	RegisterFramework("Fake", func() (Framework, error) { return fakeFramework{"Fake"}, nil })
	defer unregisterFramework("Fake")

	f, err := NewFramework("Fake")
	require.NoError(t, err)
	require.Equal(t, "Fake", f.Name())

	require.Panics(t, func() {
		RegisterFramework("Fake", func() (Framework, error) { return nil, nil })
	})

	_, err = NewFramework("Fkae")
	require.ErrorContains(t, err, `did you mean "Fake"?`)
}

func TestSuggestTooFar(t *testing.T) {
	if s := Suggest("opencl", []string{"Host"}); s != "" {
		t.Errorf("Suggest: erwartet keinen Vorschlag, bekommen %q", s)
	}
}

func TestDeviceInfoProperties(t *testing.T) {
	info := DeviceInfo{Framework: "Host", Platform: "go", Name: "cpu0"}
	info.SetProperty("device_name", " cpu0 ")
	info.SetProperty("driver_version", "1.0")

	require.Equal(t, "Host/go/cpu0", info.ID())
	require.Equal(t, "cpu0", info.Property("device_name"))
	require.Empty(t, info.Property("missing"))

	want := [][2]string{{"device_name", "cpu0"}, {"driver_version", "1.0"}}
	if diff := cmp.Diff(want, info.Pairs()); diff != "" {
		t.Errorf("Pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestSortedIDs(t *testing.T) {
	l := []DeviceInfo{
		{Framework: "OpenCL", Platform: "p", Name: "b"},
		{Framework: "Host", Platform: "go", Name: "cpu0"},
		{Framework: "OpenCL", Platform: "p", Name: "a"},
	}
	want := []string{"Host/go/cpu0", "OpenCL/p/a", "OpenCL/p/b"}
	if diff := cmp.Diff(want, SortedIDs(l)); diff != "" {
		t.Errorf("SortedIDs mismatch (-want +got):\n%s", diff)
	}
	if got := len(ByFramework(l)); got != 2 {
		t.Errorf("ByFramework: erwartet 2 Gruppen, bekommen %d", got)
	}
}

func TestErrors(t *testing.T) {
	err := &UsageError{Op: "apply", CalcID: 3, Version: 1, VarID: 7, Msg: "variable freed"}
	require.Equal(t, "apply: calc 3 v1 var 7: variable freed", err.Error())

	wrapped := &UsageError{Op: "initiate", CalcID: 2, VarID: -1, Msg: "disposed", Err: ErrDisposed}
	require.ErrorIs(t, wrapped, ErrDisposed)
	require.NotContains(t, wrapped.Error(), "var")

	var be *BuildError
	require.ErrorAs(t, error(&BuildError{Kernel: "k", Log: "x"}), &be)

	de := &DeviceError{Op: "clEnqueueNDRangeKernel", Code: -5, Name: "CL_OUT_OF_RESOURCES"}
	require.Equal(t, "clEnqueueNDRangeKernel: CL_OUT_OF_RESOURCES (-5)", de.Error())
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("abc", 10))
	require.Equal(t, "abc", Truncate("abc", 0))
	require.True(t, strings.HasPrefix(Truncate(strings.Repeat("x", 2000), 1024), strings.Repeat("x", 1024)))
	require.Contains(t, Truncate(strings.Repeat("x", 2000), 1024), "truncated")

	// "ü" belegt zwei Bytes; Schnitt nach Byte 3 faellt mitten hinein
	got := Truncate("abüd", 3)
	require.True(t, utf8.ValidString(got))
	require.True(t, strings.HasPrefix(got, "ab\n"))

	require.True(t, utf8.ValidString(Truncate(strings.Repeat("€", 100), 10)))
}

func TestParseDType(t *testing.T) {
	for in, want := range map[string]DType{"": DTypeF32, "f32": DTypeF32, "F16": DTypeF16, "half": DTypeF16} {
		got, err := ParseDType(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}
	_, err := ParseDType("bf16")
	require.Error(t, err)
}

func TestDump(t *testing.T) {
	got := Dump([][]float64{{1, -2}, {0.5, 3}}, DumpWithPrecision(1))
	want := "[[ 1.0, -2.0],\n [ 0.5,  3.0]]"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dump mismatch (-want +got):\n%s", diff)
	}

	long := make([]float64, 10)
	got = Dump([][]float64{long}, DumpWithThreshold(4), DumpWithEdgeItems(2), DumpWithPrecision(0))
	want = "[[ 0,  0, ...,  0,  0]]"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dump mit Kuerzung mismatch (-want +got):\n%s", diff)
	}
}
