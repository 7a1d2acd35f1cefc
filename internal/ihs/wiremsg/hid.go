package wiremsg

import (
	"hash/crc32"

	"google.golang.org/protobuf/encoding/protowire"
)

var hidCRCTable = crc32.MakeTable(crc32.Castagnoli)

// HIDDeviceInfo describes a device a client-side provider has made
// available to the host (spec.md §4.8).
type HIDDeviceInfo struct {
	DeviceID         uint32
	VendorID         uint32
	ProductID        uint32
	ReportDescriptor []byte
}

const (
	fHIDInfoDeviceID  protowire.Number = 1
	fHIDInfoVendorID  protowire.Number = 2
	fHIDInfoProductID protowire.Number = 3
	fHIDInfoReportDesc protowire.Number = 4
)

func marshalHIDDeviceInfo(d HIDDeviceInfo) []byte {
	var b []byte
	b = appendUint32(b, fHIDInfoDeviceID, d.DeviceID)
	b = appendUint32(b, fHIDInfoVendorID, d.VendorID)
	b = appendUint32(b, fHIDInfoProductID, d.ProductID)
	b = appendBytes(b, fHIDInfoReportDesc, d.ReportDescriptor)
	return b
}

func unmarshalHIDDeviceInfo(b []byte) (HIDDeviceInfo, error) {
	var d HIDDeviceInfo
	err := parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fHIDInfoDeviceID:
			v, n := protowire.ConsumeVarint(b)
			d.DeviceID = uint32(v)
			return n, nil
		case fHIDInfoVendorID:
			v, n := protowire.ConsumeVarint(b)
			d.VendorID = uint32(v)
			return n, nil
		case fHIDInfoProductID:
			v, n := protowire.ConsumeVarint(b)
			d.ProductID = uint32(v)
			return n, nil
		case fHIDInfoReportDesc:
			v, n := protowire.ConsumeBytes(b)
			d.ReportDescriptor = append([]byte(nil), v...)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
	return d, err
}

// DeviceInputReport carries one HID input report from a client-side
// device, either whole (Delta==false, Data is the full report) or as a
// diff against the last report the host acknowledged (Delta==true,
// ChangedOffsets/ChangedBytes name only what moved). CRC is a CRC-32C of
// the full reconstructed report, letting the host detect a missed delta
// without re-deriving the bitmap (spec.md §4.8 report holder).
type DeviceInputReport struct {
	DeviceID       uint32
	Delta          bool
	ChangedOffsets []uint32
	ChangedBytes   []byte
	Data           []byte
	CRC            uint32
}

const (
	fReportDeviceID  protowire.Number = 1
	fReportDelta     protowire.Number = 2
	fReportOffsets   protowire.Number = 3
	fReportChanged   protowire.Number = 4
	fReportData      protowire.Number = 5
	fReportCRC       protowire.Number = 6
)

func (m *DeviceInputReport) Marshal() []byte {
	var b []byte
	b = appendUint32(b, fReportDeviceID, m.DeviceID)
	b = appendBool(b, fReportDelta, m.Delta)
	for _, off := range m.ChangedOffsets {
		b = appendUint32(b, fReportOffsets, off)
	}
	b = appendBytes(b, fReportChanged, m.ChangedBytes)
	b = appendBytes(b, fReportData, m.Data)
	b = appendUint32(b, fReportCRC, m.CRC)
	return b
}

func (m *DeviceInputReport) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fReportDeviceID:
			v, n := protowire.ConsumeVarint(b)
			m.DeviceID = uint32(v)
			return n, nil
		case fReportDelta:
			v, n := protowire.ConsumeVarint(b)
			m.Delta = v != 0
			return n, nil
		case fReportOffsets:
			v, n := protowire.ConsumeVarint(b)
			m.ChangedOffsets = append(m.ChangedOffsets, uint32(v))
			return n, nil
		case fReportChanged:
			v, n := protowire.ConsumeBytes(b)
			m.ChangedBytes = append([]byte(nil), v...)
			return n, nil
		case fReportData:
			v, n := protowire.ConsumeBytes(b)
			m.Data = append([]byte(nil), v...)
			return n, nil
		case fReportCRC:
			v, n := protowire.ConsumeVarint(b)
			m.CRC = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// BuildDeviceInputReport diffs newReport against prevReport (nil or
// empty meaning "no prior report, force full") and produces the smallest
// wire representation: a full report on the first call or whenever the
// report size changes, otherwise the changed-byte delta.
func BuildDeviceInputReport(deviceID uint32, prevReport, newReport []byte) DeviceInputReport {
	crc := crc32.Checksum(newReport, hidCRCTable)
	if len(prevReport) != len(newReport) {
		return DeviceInputReport{DeviceID: deviceID, Delta: false, Data: append([]byte(nil), newReport...), CRC: crc}
	}
	var offsets []uint32
	var changed []byte
	for i := range newReport {
		if newReport[i] != prevReport[i] {
			offsets = append(offsets, uint32(i))
			changed = append(changed, newReport[i])
		}
	}
	return DeviceInputReport{
		DeviceID:       deviceID,
		Delta:          true,
		ChangedOffsets: offsets,
		ChangedBytes:   changed,
		CRC:            crc,
	}
}

// ApplyDeviceInputReport reconstructs the full report a DeviceInputReport
// describes, applying it on top of base (the receiver's last known full
// report for that device). It returns ok=false (with a nil report if the
// delta cannot be applied at all, or the reconstructed bytes if only the
// CRC does not match them), signalling
// the receiver must request a full report instead of trusting the delta.
func ApplyDeviceInputReport(base []byte, r DeviceInputReport) (report []byte, ok bool) {
	if !r.Delta {
		report = append([]byte(nil), r.Data...)
	} else {
		if len(base) == 0 || len(r.ChangedOffsets) != len(r.ChangedBytes) {
			return nil, false
		}
		report = append([]byte(nil), base...)
		for i, off := range r.ChangedOffsets {
			if int(off) >= len(report) {
				return nil, false
			}
			report[off] = r.ChangedBytes[i]
		}
	}
	return report, crc32.Checksum(report, hidCRCTable) == r.CRC
}

// HIDOutputReport is a host-originated output report (e.g. a gamepad
// rumble command) addressed to one client-side device.
type HIDOutputReport struct {
	DeviceID uint32
	Data     []byte
}

// HIDMessageToRemote is sent host-to-client on the RemoteHID control
// relay (spec.md §4.8 provider/device contracts).
type HIDMessageToRemote struct {
	Subscribe         bool
	RequestDeviceID    uint32
	HasRequest        bool
	Output            HIDOutputReport
	HasOutput         bool
}

const (
	fToRemoteSubscribe      protowire.Number = 1
	fToRemoteRequestDevice  protowire.Number = 2
	fToRemoteOutputDeviceID protowire.Number = 3
	fToRemoteOutputData     protowire.Number = 4
)

func (m *HIDMessageToRemote) Marshal() []byte {
	var b []byte
	b = appendBool(b, fToRemoteSubscribe, m.Subscribe)
	if m.HasRequest {
		b = appendUint32(b, fToRemoteRequestDevice, m.RequestDeviceID)
	}
	if m.HasOutput {
		b = appendUint32(b, fToRemoteOutputDeviceID, m.Output.DeviceID)
		b = appendBytes(b, fToRemoteOutputData, m.Output.Data)
	}
	return b
}

func (m *HIDMessageToRemote) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fToRemoteSubscribe:
			v, n := protowire.ConsumeVarint(b)
			m.Subscribe = v != 0
			return n, nil
		case fToRemoteRequestDevice:
			v, n := protowire.ConsumeVarint(b)
			m.RequestDeviceID = uint32(v)
			m.HasRequest = true
			return n, nil
		case fToRemoteOutputDeviceID:
			v, n := protowire.ConsumeVarint(b)
			m.Output.DeviceID = uint32(v)
			m.HasOutput = true
			return n, nil
		case fToRemoteOutputData:
			v, n := protowire.ConsumeBytes(b)
			m.Output.Data = append([]byte(nil), v...)
			m.HasOutput = true
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// HIDMessageFromRemote is sent client-to-host: device lifecycle events
// plus input reports, multiplexed over the same RemoteHID relay.
type HIDMessageFromRemote struct {
	DeviceAdded   HIDDeviceInfo
	HasAdded      bool
	DeviceRemoved uint32
	HasRemoved    bool
	Report        DeviceInputReport
	HasReport     bool
}

const (
	fFromRemoteAdded   protowire.Number = 1
	fFromRemoteRemoved protowire.Number = 2
	fFromRemoteReport  protowire.Number = 3
)

func (m *HIDMessageFromRemote) Marshal() []byte {
	var b []byte
	if m.HasAdded {
		b = appendBytes(b, fFromRemoteAdded, marshalHIDDeviceInfo(m.DeviceAdded))
	}
	if m.HasRemoved {
		b = appendUint32(b, fFromRemoteRemoved, m.DeviceRemoved)
	}
	if m.HasReport {
		b = appendBytes(b, fFromRemoteReport, m.Report.Marshal())
	}
	return b
}

func (m *HIDMessageFromRemote) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fFromRemoteAdded:
			raw, n := protowire.ConsumeBytes(b)
			info, err := unmarshalHIDDeviceInfo(raw)
			if err != nil {
				return -1, err
			}
			m.DeviceAdded = info
			m.HasAdded = true
			return n, nil
		case fFromRemoteRemoved:
			v, n := protowire.ConsumeVarint(b)
			m.DeviceRemoved = uint32(v)
			m.HasRemoved = true
			return n, nil
		case fFromRemoteReport:
			raw, n := protowire.ConsumeBytes(b)
			if err := m.Report.Unmarshal(raw); err != nil {
				return -1, err
			}
			m.HasReport = true
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}
