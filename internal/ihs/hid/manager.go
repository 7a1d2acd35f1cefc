package hid

import (
	"fmt"
	"log/slog"
	"sync"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
)

// managedDevice pairs an opened Device with the session-scoped id and
// report holder the manager tracks it under (src/hid/manager.h's
// IHS_HIDManagedDevice).
type managedDevice struct {
	id     uint32
	path   string
	device Device
	report *reportHolder
}

// Manager owns the set of providers a session was configured with and the
// devices opened against them, translating between the RemoteHID control
// relay's wire messages (wiremsg.HIDMessageToRemote/FromRemote) and the
// Provider/Device contracts a platform plugs in (src/hid/manager.c).
//
// Unlike the original's libuv-per-device model, a Manager does no I/O of
// its own: Poll is driven by the session's shared timer tick, and
// HandleToRemote is driven by the control channel's RemoteHID callback.
type Manager struct {
	logger *slog.Logger

	mu         sync.Mutex
	providers  []Provider
	devices    map[uint32]*managedDevice
	lastID     uint32
	subscribed bool
}

// NewManager constructs an empty Manager. Providers are added afterward
// with AddProvider.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger, devices: make(map[uint32]*managedDevice)}
}

// AddProvider registers a provider the manager will consult for OpenDevice
// and hotplug detection (src/hid/manager.c's IHS_HIDManagerAddProvider).
func (m *Manager) AddProvider(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, p)
}

// RemoveProvider unregisters a provider previously added with AddProvider;
// it is a no-op if the provider is not present.
func (m *Manager) RemoveProvider(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.providers {
		if cur == p {
			m.providers = append(m.providers[:i], m.providers[i+1:]...)
			return
		}
	}
}

// OpenDevice finds the first provider whose path convention recognizes
// path, opens it, and assigns it a fresh monotonic id (manager.c's
// IHS_HIDManagerOpenDevice, ++manager->lastDeviceId).
func (m *Manager) OpenDevice(path string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.providers {
		if !p.SupportsDevice(path) {
			continue
		}
		dev, err := p.OpenDevice(path)
		if err != nil {
			return 0, protoerr.NewMessageError("hid.open", err)
		}
		m.lastID++
		id := m.lastID
		m.devices[id] = &managedDevice{id: id, path: path, device: dev, report: newReportHolder(id)}
		if m.logger != nil {
			m.logger.Debug("hid: device opened", "id", id, "path", path)
		}
		return id, nil
	}
	return 0, protoerr.NewMessageError("hid.open", fmt.Errorf("no provider supports %q", path))
}

// CloseDevice closes and forgets a managed device. Closing an unknown id is
// a no-op.
func (m *Manager) CloseDevice(id uint32) error {
	m.mu.Lock()
	md, ok := m.devices[id]
	if ok {
		delete(m.devices, id)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if m.logger != nil {
		m.logger.Debug("hid: device closed", "id", id)
	}
	return md.device.Close()
}

// CloseAll closes every managed device (manager.c's IHS_HIDManagerCloseAll,
// called on session teardown).
func (m *Manager) CloseAll() {
	m.mu.Lock()
	devices := m.devices
	m.devices = make(map[uint32]*managedDevice)
	m.mu.Unlock()

	for _, md := range devices {
		_ = md.device.Close()
	}
}

// Subscribed reports whether the host has asked to receive device
// lifecycle and input-report events.
func (m *Manager) Subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribed
}

// HandleToRemote processes one host-to-client RemoteHID envelope
// (spec.md §4.8), driving device opens are not modeled here: open/close
// are device-info-less lifecycle actions the host never initiates
// directly in this pack's filtered control_hid.c, so this only implements
// the three fields wiremsg.HIDMessageToRemote actually carries: Subscribe,
// a full-report request for one device, and an output report to write.
// Any resulting client-to-host events (device-added announcements on a
// fresh subscribe) are returned for the caller to send via
// control.Channel.SendHIDFromRemote.
func (m *Manager) HandleToRemote(msg wiremsg.HIDMessageToRemote) []wiremsg.HIDMessageFromRemote {
	m.mu.Lock()
	wasSubscribed := m.subscribed
	m.subscribed = msg.Subscribe
	m.mu.Unlock()

	var events []wiremsg.HIDMessageFromRemote
	if msg.Subscribe && !wasSubscribed {
		events = append(events, m.announceKnownDevices()...)
	}

	if msg.HasRequest {
		m.mu.Lock()
		md, ok := m.devices[msg.RequestDeviceID]
		if ok {
			md.report.forceFull()
		}
		m.mu.Unlock()
		if ok {
			if err := md.device.RequestFullReport(); err != nil && m.logger != nil {
				m.logger.Warn("hid: request full report failed", "device", md.id, "error", err)
			}
		}
	}

	if msg.HasOutput {
		m.mu.Lock()
		md, ok := m.devices[msg.Output.DeviceID]
		m.mu.Unlock()
		if ok {
			if _, err := md.device.Write(msg.Output.Data); err != nil && m.logger != nil {
				m.logger.Warn("hid: output write failed", "device", md.id, "error", err)
			}
		}
	}

	return events
}

func (m *Manager) announceKnownDevices() []wiremsg.HIDMessageFromRemote {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]wiremsg.HIDMessageFromRemote, 0, len(m.devices))
	for _, md := range m.devices {
		info, err := m.deviceInfoLocked(md)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("hid: device info unavailable", "device", md.id, "error", err)
			}
			continue
		}
		events = append(events, wiremsg.HIDMessageFromRemote{DeviceAdded: info, HasAdded: true})
	}
	return events
}

func (m *Manager) deviceInfoLocked(md *managedDevice) (wiremsg.HIDDeviceInfo, error) {
	for _, p := range m.providers {
		if !p.SupportsDevice(md.path) {
			continue
		}
		info, err := p.DeviceInfo(md.path)
		if err != nil {
			return wiremsg.HIDDeviceInfo{}, err
		}
		info.DeviceID = md.id
		return info, nil
	}
	return wiremsg.HIDDeviceInfo{}, fmt.Errorf("no provider for %q", md.path)
}

// Poll reads the latest input report from every open device and returns
// one HIDMessageFromRemote per device that produced new data, diffed
// against its previous report. It is a no-op, including skipping device
// reads, while the host has not subscribed. Call it from the session's
// shared timer tick with a scratch buffer sized for the largest report in
// use; scratch is reused across devices within one call.
func (m *Manager) Poll(scratch []byte) []wiremsg.HIDMessageFromRemote {
	m.mu.Lock()
	subscribed := m.subscribed
	devices := make([]*managedDevice, 0, len(m.devices))
	for _, md := range m.devices {
		devices = append(devices, md)
	}
	m.mu.Unlock()

	if !subscribed {
		return nil
	}

	var events []wiremsg.HIDMessageFromRemote
	for _, md := range devices {
		n, err := md.device.Read(scratch, 0)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("hid: device read failed", "device", md.id, "error", err)
			}
			continue
		}
		if n == 0 {
			continue
		}
		m.mu.Lock()
		report := md.report.diff(scratch[:n])
		m.mu.Unlock()
		events = append(events, wiremsg.HIDMessageFromRemote{Report: report, HasReport: true})
	}
	return events
}

// NotifyDeviceClosed builds the client-to-host event for a device the
// client side closed on its own initiative (manager.c's
// IHS_HIDManagerNotifyDeviceClosed), e.g. because the underlying hardware
// was unplugged.
func (m *Manager) NotifyDeviceClosed(id uint32) wiremsg.HIDMessageFromRemote {
	return wiremsg.HIDMessageFromRemote{DeviceRemoved: id, HasRemoved: true}
}
