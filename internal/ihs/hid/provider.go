// Package hid implements the client-side HID subsystem: a manager that
// aggregates platform-specific providers (SDL joystick bridge, hidapi) and
// the report-diffing needed to relay input reports from managed devices
// back to the streaming host over the RemoteHID control relay.
package hid

import "github.com/alxayo/go-ihs/internal/ihs/wiremsg"

// Device is one opened HID device made available to the host. A concrete
// implementation wraps a platform SDK (SDL_hid_*, hidapi); this package
// only defines the contract and the registry around it.
type Device interface {
	Close() error

	// Write sends an output report (e.g. gamepad rumble) to the device.
	Write(data []byte) (int, error)

	// Read copies the most recent input report into dest and returns its
	// length, or (0, nil) if none is pending within timeoutMs.
	Read(dest []byte, timeoutMs int) (int, error)

	GetFeatureReport(reportNumber []byte, dest []byte) (int, error)
	SendFeatureReport(data []byte) error

	VendorString() (string, error)
	ProductString() (string, error)
	SerialNumberString() (string, error)

	// StartInputReports arms input report delivery; length is the fixed
	// report size the report holder should diff against.
	StartInputReports(length int) error

	// RequestFullReport forces the next report to be sent in full rather
	// than as a delta (used on resync after a host-side full-report ask).
	RequestFullReport() error

	RequestDisconnect(method uint32, data []byte) error
}

// Provider discovers and opens devices addressed by a path convention. The
// canonical conventions are "sdl://{joystick_instance_id}" for the SDL
// joystick bridge and "hid://..." for a raw hidapi backend (spec.md §4.8);
// a Provider only needs to recognize the scheme it owns.
type Provider interface {
	SupportsDevice(path string) bool
	OpenDevice(path string) (Device, error)

	// HasChange reports whether the provider's device list changed since
	// the last call, prompting the manager to re-enumerate.
	HasChange() bool
	EnumerateDevices() ([]string, error)
	DeviceInfo(path string) (wiremsg.HIDDeviceInfo, error)
}
