package control

import "github.com/alxayo/go-ihs/internal/ihs/wiremsg"

func (c *Channel) onSetCursor(payload []byte) error {
	var m wiremsg.SetCursor
	if err := m.Unmarshal(payload); err != nil {
		return err
	}
	known := false
	if c.cb.CursorKnown != nil {
		known = c.cb.CursorKnown(m.CursorID)
	}
	if known {
		return nil
	}
	req := wiremsg.GetCursorImage{CursorID: m.CursorID}
	return c.sendEncrypted(msgGetCursorImage, req.Marshal())
}

func (c *Channel) onSetCursorImage(payload []byte) error {
	var m wiremsg.SetCursorImage
	if err := m.Unmarshal(payload); err != nil {
		return err
	}
	if c.cb.OnCursorImage != nil {
		c.cb.OnCursorImage(m)
	}
	return nil
}

func (c *Channel) onDeleteCursor(payload []byte) error {
	var m wiremsg.DeleteCursor
	if err := m.Unmarshal(payload); err != nil {
		return err
	}
	if c.cb.OnDeleteCursor != nil {
		c.cb.OnDeleteCursor(m.CursorID)
	}
	return nil
}
