// Outbound-only input forwarding (spec.md §4.6): every call here encrypts
// and frames one input event as a control message. The control channel
// never receives these types back from the host.
package control

import "github.com/alxayo/go-ihs/internal/ihs/wiremsg"

func (c *Channel) SendMouseMotion(deltaX, deltaY int32) error {
	m := wiremsg.MouseMotion{DeltaX: deltaX, DeltaY: deltaY}
	return c.sendEncrypted(msgMouseMotion, m.Marshal())
}

func (c *Channel) SendMouseMotionAbsolute(x, y uint32) error {
	m := wiremsg.MouseMotionAbsolute{X: x, Y: y}
	return c.sendEncrypted(msgMouseMotionAbsolute, m.Marshal())
}

func (c *Channel) SendMouseButton(button wiremsg.MouseButton, down bool) error {
	m := wiremsg.MouseButtonEvent{Button: button, Down: down}
	return c.sendEncrypted(msgMouseButton, m.Marshal())
}

func (c *Channel) SendMouseWheel(deltaX, deltaY int32) error {
	m := wiremsg.MouseWheel{DeltaX: deltaX, DeltaY: deltaY}
	return c.sendEncrypted(msgMouseWheel, m.Marshal())
}

func (c *Channel) SendKeyEvent(scanCode uint32, down bool) error {
	m := wiremsg.KeyEvent{ScanCode: scanCode, Down: down}
	return c.sendEncrypted(msgKeyEvent, m.Marshal())
}

func (c *Channel) SendTouchDown(deviceID, fingerID int64, x, y, pressure uint32) error {
	m := wiremsg.TouchFingerDown{DeviceID: deviceID, FingerID: fingerID, X: x, Y: y, Pressure: pressure}
	return c.sendEncrypted(msgTouchDown, m.Marshal())
}

func (c *Channel) SendTouchMotion(deviceID, fingerID int64, x, y, pressure uint32) error {
	m := wiremsg.TouchFingerMotion{DeviceID: deviceID, FingerID: fingerID, X: x, Y: y, Pressure: pressure}
	return c.sendEncrypted(msgTouchMotion, m.Marshal())
}

func (c *Channel) SendTouchUp(deviceID, fingerID int64) error {
	m := wiremsg.TouchFingerUp{DeviceID: deviceID, FingerID: fingerID}
	return c.sendEncrypted(msgTouchUp, m.Marshal())
}
