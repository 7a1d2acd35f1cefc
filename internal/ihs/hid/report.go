package hid

import "github.com/alxayo/go-ihs/internal/ihs/wiremsg"

// reportHolder keeps a device's last known full input report so the manager
// can emit a delta against it instead of resending the whole report every
// time (src/hid/report.c's IHS_HIDReportHolder). The first report after
// StartInputReports, or any report following a forced resync, is always a
// full report because prev is nil.
type reportHolder struct {
	deviceID uint32
	prev     []byte
}

func newReportHolder(deviceID uint32) *reportHolder {
	return &reportHolder{deviceID: deviceID}
}

// diff builds the DeviceInputReport for current and remembers it as the new
// baseline.
func (h *reportHolder) diff(current []byte) wiremsg.DeviceInputReport {
	r := wiremsg.BuildDeviceInputReport(h.deviceID, h.prev, current)
	h.prev = append(h.prev[:0], current...)
	return r
}

// forceFull discards the baseline so the next diff is a full report.
func (h *reportHolder) forceFull() {
	h.prev = nil
}
