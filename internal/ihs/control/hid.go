package control

import "github.com/alxayo/go-ihs/internal/ihs/wiremsg"

// onRemoteHID unwraps a host-to-client HIDMessageToRemote envelope
// (subscribe, full-report request, output report) and forwards it to
// whatever handler the HID manager installed via SetHIDToRemoteHandler
// (spec.md §4.8's relay description). Until a handler is installed,
// inbound RemoteHID traffic is a no-op.
func (c *Channel) onRemoteHID(payload []byte) error {
	var m wiremsg.HIDMessageToRemote
	if err := m.Unmarshal(payload); err != nil {
		return err
	}
	if c.hidToRemoteHandler != nil {
		c.hidToRemoteHandler(m)
	}
	return nil
}

// SetHIDToRemoteHandler installs the callback invoked for every decoded
// host-to-client RemoteHID envelope.
func (c *Channel) SetHIDToRemoteHandler(fn func(wiremsg.HIDMessageToRemote)) {
	c.hidToRemoteHandler = fn
}

// SendHIDFromRemote wraps and encrypts a client-to-host HID envelope
// (device added/removed, input report) as a RemoteHID control message.
func (c *Channel) SendHIDFromRemote(m wiremsg.HIDMessageFromRemote) error {
	return c.sendEncrypted(msgRemoteHID, m.Marshal())
}
