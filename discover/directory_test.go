package discover

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/riskgpu/riskgpu/ml"
	"github.com/riskgpu/riskgpu/ml/backend/host"
)

const (
	fakeName  = "DiscoverFake"
	brokeName = "DiscoverBroken"
	hangName  = "DiscoverHang"
)

type fakeFramework struct {
	name    string
	devices []ml.DeviceInfo
	err     error
	block   chan struct{}
}

func (f fakeFramework) Name() string { return f.name }

func (f fakeFramework) Devices() ([]ml.DeviceInfo, error) {
	if f.block != nil {
		<-f.block
	}
	return f.devices, f.err
}

func (f fakeFramework) Open(ml.DeviceInfo) (ml.Device, error) {
	return host.New(host.WithThreads(1)), nil
}

var unblock = make(chan struct{})

func init() {
	ml.RegisterFramework(fakeName, func() (ml.Framework, error) {
		return fakeFramework{name: fakeName, devices: []ml.DeviceInfo{
			{Framework: fakeName, Platform: "p", Name: "gpu", Index: 0},
			{Framework: fakeName, Platform: "p", Name: "gpu", Index: 1},
			{Framework: fakeName, Platform: "a", Name: "cpu", Index: 0},
		}}, nil
	})
	ml.RegisterFramework(brokeName, func() (ml.Framework, error) {
		return fakeFramework{name: brokeName, err: errors.New("no driver")}, nil
	})
	ml.RegisterFramework(hangName, func() (ml.Framework, error) {
		return fakeFramework{name: hangName, block: unblock, devices: []ml.DeviceInfo{{Framework: hangName, Platform: "x", Name: "y"}}}, nil
	})
}

func newDirectory(t *testing.T, opts ...Option) *Directory {
	t.Helper()
	d, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDevicesSortedAndDeduplicated(t *testing.T) {
	d := newDirectory(t, WithFrameworks(fakeName, brokeName))

	want := []string{
		"DiscoverFake/a/cpu",
		"DiscoverFake/p/gpu",
		"DiscoverFake/p/gpu #1",
	}
	if diff := cmp.Diff(want, d.Devices()); diff != "" {
		t.Errorf("Devices mismatch (-want +got):\n%s", diff)
	}

	info, err := d.Info("DiscoverFake/p/gpu #1")
	require.NoError(t, err)
	require.Equal(t, 1, info.Index)
}

func TestHostDevice(t *testing.T) {
	d := newDirectory(t, WithFrameworks("Host"))
	require.Equal(t, []string{"Host/go/cpu"}, d.Devices())

	info, err := d.Info("Host/go/cpu")
	require.NoError(t, err)
	require.NotEmpty(t, info.Property("driver_version"))
}

func TestContextIsCachedPerDevice(t *testing.T) {
	d := newDirectory(t, WithFrameworks("Host"))

	c1, err := d.Context("Host/go/cpu")
	require.NoError(t, err)
	c2, err := d.Context("Host/go/cpu")
	require.NoError(t, err)
	require.Same(t, c1, c2)
	require.Equal(t, "Host/go/cpu", c1.DeviceInfo().ID())
}

func TestUnknownDeviceSuggestsClosest(t *testing.T) {
	d := newDirectory(t, WithFrameworks("Host"))

	_, err := d.Context("Host/go/cpv")
	require.ErrorIs(t, err, ErrUnknownDevice)
	require.Contains(t, err.Error(), `did you mean "Host/go/cpu"?`)
	require.Contains(t, err.Error(), "available: Host/go/cpu")

	_, err = d.Info("nothing-like-it-at-all")
	require.ErrorIs(t, err, ErrUnknownDevice)
	require.NotContains(t, err.Error(), "did you mean")
}

func TestNoDevices(t *testing.T) {
	d := newDirectory(t, WithFrameworks(brokeName))
	require.Empty(t, d.Devices())

	_, err := d.Context("Host/go/cpu")
	require.ErrorIs(t, err, ErrUnknownDevice)
	require.Contains(t, err.Error(), "no devices available")
}

func TestUnknownFramework(t *testing.T) {
	_, err := New(WithFrameworks("Hots"))
	require.Error(t, err)
	require.Contains(t, err.Error(), `did you mean "Host"?`)
}

func TestHangingFrameworkTimesOut(t *testing.T) {
	t.Cleanup(func() { close(unblock) })

	start := time.Now()
	d := newDirectory(t, WithFrameworks(hangName, "Host"), withTimeout(50*time.Millisecond))
	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, []string{"Host/go/cpu"}, d.Devices())
}

func TestCloseClosesContexts(t *testing.T) {
	d, err := New(WithFrameworks("Host"))
	require.NoError(t, err)

	c, err := d.Context("Host/go/cpu")
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = d.Context("Host/go/cpu")
	require.ErrorIs(t, err, ml.ErrClosed)

	_, _, err = c.InitiateCalculation(4, 0, 0, ml.Settings{})
	require.ErrorIs(t, err, ml.ErrClosed)
}
