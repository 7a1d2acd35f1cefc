package hid

import (
	"errors"
	"testing"

	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
	"github.com/stretchr/testify/require"
)

// fakeDevice is a Device test double whose Read returns queued reports in
// order, one per call, then (0, nil).
type fakeDevice struct {
	reports  [][]byte
	writes   [][]byte
	closed   bool
	fullReqs int
}

func (d *fakeDevice) Close() error { d.closed = true; return nil }

func (d *fakeDevice) Write(data []byte) (int, error) {
	d.writes = append(d.writes, append([]byte(nil), data...))
	return len(data), nil
}

func (d *fakeDevice) Read(dest []byte, timeoutMs int) (int, error) {
	if len(d.reports) == 0 {
		return 0, nil
	}
	next := d.reports[0]
	d.reports = d.reports[1:]
	return copy(dest, next), nil
}

func (d *fakeDevice) GetFeatureReport(reportNumber []byte, dest []byte) (int, error) { return 0, nil }
func (d *fakeDevice) SendFeatureReport(data []byte) error                            { return nil }
func (d *fakeDevice) VendorString() (string, error)                                  { return "vendor", nil }
func (d *fakeDevice) ProductString() (string, error)                                 { return "product", nil }
func (d *fakeDevice) SerialNumberString() (string, error)                            { return "serial", nil }
func (d *fakeDevice) StartInputReports(length int) error                             { return nil }
func (d *fakeDevice) RequestFullReport() error                                       { d.fullReqs++; return nil }
func (d *fakeDevice) RequestDisconnect(method uint32, data []byte) error             { return nil }

// fakeProvider recognizes a single path prefix and hands out fakeDevices.
type fakeProvider struct {
	prefix string
	device *fakeDevice
	info   wiremsg.HIDDeviceInfo
}

func (p *fakeProvider) SupportsDevice(path string) bool { return len(path) >= len(p.prefix) && path[:len(p.prefix)] == p.prefix }

func (p *fakeProvider) OpenDevice(path string) (Device, error) {
	if p.device == nil {
		return nil, errors.New("no device")
	}
	return p.device, nil
}

func (p *fakeProvider) HasChange() bool                  { return false }
func (p *fakeProvider) EnumerateDevices() ([]string, error) { return []string{p.prefix + "0"}, nil }
func (p *fakeProvider) DeviceInfo(path string) (wiremsg.HIDDeviceInfo, error) { return p.info, nil }

func TestManagerOpenDeviceAssignsMonotonicIDs(t *testing.T) {
	m := NewManager(nil)
	p := &fakeProvider{prefix: "sdl://", device: &fakeDevice{}}
	m.AddProvider(p)

	id1, err := m.OpenDevice("sdl://0")
	require.NoError(t, err)
	require.Equal(t, uint32(1), id1)

	id2, err := m.OpenDevice("sdl://1")
	require.NoError(t, err)
	require.Equal(t, uint32(2), id2)
}

func TestManagerOpenDeviceNoProviderSupportsPath(t *testing.T) {
	m := NewManager(nil)
	_, err := m.OpenDevice("hid://unknown")
	require.Error(t, err)
}

func TestManagerSubscribeAnnouncesOpenDevices(t *testing.T) {
	m := NewManager(nil)
	p := &fakeProvider{prefix: "sdl://", device: &fakeDevice{}, info: wiremsg.HIDDeviceInfo{VendorID: 0x1234, ProductID: 0x5678}}
	m.AddProvider(p)

	id, err := m.OpenDevice("sdl://0")
	require.NoError(t, err)

	events := m.HandleToRemote(wiremsg.HIDMessageToRemote{Subscribe: true})
	require.Len(t, events, 1)
	require.True(t, events[0].HasAdded)
	require.Equal(t, id, events[0].DeviceAdded.DeviceID)
	require.Equal(t, uint32(0x1234), events[0].DeviceAdded.VendorID)
	require.True(t, m.Subscribed())

	// Re-subscribing while already subscribed announces nothing new.
	events = m.HandleToRemote(wiremsg.HIDMessageToRemote{Subscribe: true})
	require.Empty(t, events)
}

func TestManagerOutputWritesToDevice(t *testing.T) {
	m := NewManager(nil)
	dev := &fakeDevice{}
	p := &fakeProvider{prefix: "sdl://", device: dev}
	m.AddProvider(p)
	id, err := m.OpenDevice("sdl://0")
	require.NoError(t, err)

	m.HandleToRemote(wiremsg.HIDMessageToRemote{
		HasOutput: true,
		Output:    wiremsg.HIDOutputReport{DeviceID: id, Data: []byte{0x01, 0x02}},
	})
	require.Len(t, dev.writes, 1)
	require.Equal(t, []byte{0x01, 0x02}, dev.writes[0])
}

func TestManagerRequestForcesFullReportOnNextPoll(t *testing.T) {
	m := NewManager(nil)
	dev := &fakeDevice{reports: [][]byte{{1, 2, 3}, {1, 9, 3}}}
	p := &fakeProvider{prefix: "sdl://", device: dev}
	m.AddProvider(p)
	id, err := m.OpenDevice("sdl://0")
	require.NoError(t, err)
	m.HandleToRemote(wiremsg.HIDMessageToRemote{Subscribe: true})

	scratch := make([]byte, 64)
	events := m.Poll(scratch)
	require.Len(t, events, 1)
	require.False(t, events[0].Report.Delta)

	// Forcing a full report means the very next poll is full too, even
	// though a baseline now exists.
	m.HandleToRemote(wiremsg.HIDMessageToRemote{HasRequest: true, RequestDeviceID: id})
	require.Equal(t, 1, dev.fullReqs)

	events = m.Poll(scratch)
	require.Len(t, events, 1)
	require.False(t, events[0].Report.Delta)
}

func TestManagerPollIgnoredUntilSubscribed(t *testing.T) {
	m := NewManager(nil)
	dev := &fakeDevice{reports: [][]byte{{1, 2, 3}}}
	p := &fakeProvider{prefix: "sdl://", device: dev}
	m.AddProvider(p)
	_, err := m.OpenDevice("sdl://0")
	require.NoError(t, err)

	scratch := make([]byte, 64)
	events := m.Poll(scratch)
	require.Empty(t, events)
}

func TestManagerCloseDeviceClosesUnderlying(t *testing.T) {
	m := NewManager(nil)
	dev := &fakeDevice{}
	p := &fakeProvider{prefix: "sdl://", device: dev}
	m.AddProvider(p)
	id, err := m.OpenDevice("sdl://0")
	require.NoError(t, err)

	require.NoError(t, m.CloseDevice(id))
	require.True(t, dev.closed)

	// Closing twice is a no-op, not an error.
	require.NoError(t, m.CloseDevice(id))
}

func TestManagerCloseAllClosesEveryDevice(t *testing.T) {
	m := NewManager(nil)
	devA := &fakeDevice{}
	devB := &fakeDevice{}
	m.AddProvider(&fakeProvider{prefix: "sdl://", device: devA})
	m.AddProvider(&fakeProvider{prefix: "hid://", device: devB})
	_, err := m.OpenDevice("sdl://0")
	require.NoError(t, err)
	_, err = m.OpenDevice("hid://0")
	require.NoError(t, err)

	m.CloseAll()
	require.True(t, devA.closed)
	require.True(t, devB.closed)
}
