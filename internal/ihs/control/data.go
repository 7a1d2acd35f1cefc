package control

import "github.com/alxayo/go-ihs/internal/ihs/wiremsg"

// onStartAudioData/onStartVideoData hand the negotiated stream config up
// to the session, which is responsible for spawning the corresponding
// data channel (spec.md §4.6 steady-state: "StartAudioData/
// StartVideoData spawn data channels").
func (c *Channel) onStartAudioData(payload []byte) error {
	var m wiremsg.StartAudioData
	if err := m.Unmarshal(payload); err != nil {
		return err
	}
	if c.cb.OnStartAudioData != nil {
		c.cb.OnStartAudioData(m.Config)
	}
	return nil
}

func (c *Channel) onStartVideoData(payload []byte) error {
	var m wiremsg.StartVideoData
	if err := m.Unmarshal(payload); err != nil {
		return err
	}
	if c.cb.OnStartVideoData != nil {
		c.cb.OnStartVideoData(m.Config)
	}
	return nil
}

// SendRequestKeyFrame asks the host for a fresh IDR/keyframe, called by the
// video data channel when reassembly desyncs beyond recovery (spec.md §4.7).
func (c *Channel) SendRequestKeyFrame() error {
	m := wiremsg.RequestKeyFrame{}
	return c.sendEncrypted(msgRequestKeyFrame, m.Marshal())
}

// SendFrameStats reports a data channel's frame counters back to the host,
// called by the session's shared timer once per statsInterval for every
// video channel that has one due (spec.md §4.7: "every 1000 ms the channel
// reports frame stats back to the host").
func (c *Channel) SendFrameStats(msg wiremsg.FrameStatsListMsg) error {
	return c.sendEncrypted(msgFrameStats, msg.Marshal())
}
