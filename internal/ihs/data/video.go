package data

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alxayo/go-ihs/internal/ihs/channel"
	"github.com/alxayo/go-ihs/internal/ihs/cryptoframe"
	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/ihs/window"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
	"github.com/alxayo/go-ihs/internal/metrics"
)

// videoWindowCapacity matches ch_data_video.c's larger window size
// (IHS_SessionChannelDataInit(channel, 2048)) reserved for the
// higher-throughput video stream.
const videoWindowCapacity = 2048

// videoFrameHeaderSize is the fixed 7-byte per-partial video header
// (spec.md §4.7).
const videoFrameHeaderSize = 7

// keyFrameWaitTimeout is how long the channel waits for a freshly
// requested keyframe before re-requesting (spec.md §4.7).
const keyFrameWaitTimeout = 200 * time.Millisecond

// statsInterval is how often FrameStatsListMsg is reported back to the
// host (spec.md §4.7).
const statsInterval = 1000 * time.Millisecond

// VideoFrameFlag enumerates the bits of a partial video frame's flags
// byte (spec.md §4.7).
type VideoFrameFlag uint8

const (
	VideoFrameNeedStartSequence  VideoFrameFlag = 0x01
	VideoFrameNeedEscape         VideoFrameFlag = 0x02
	VideoFrameReserved1Increment VideoFrameFlag = 0x04
	VideoFrameFinish             VideoFrameFlag = 0x08
	VideoFrameKeyFrame           VideoFrameFlag = 0x10
	VideoFrameEncrypted          VideoFrameFlag = 0x20
)

func (f VideoFrameFlag) has(bit VideoFrameFlag) bool { return f&bit != 0 }

type videoFrameHeader struct {
	Sequence  uint16
	Flags     VideoFrameFlag
	Reserved1 uint16
	Reserved2 uint16
}

func parseVideoFrameHeader(b []byte) (videoFrameHeader, []byte) {
	return videoFrameHeader{
		Sequence:  uint16(b[0]) | uint16(b[1])<<8,
		Flags:     VideoFrameFlag(b[2]),
		Reserved1: uint16(b[3]) | uint16(b[4])<<8,
		Reserved2: uint16(b[5]) | uint16(b[6])<<8,
	}, b[videoFrameHeaderSize:]
}

type partialFrame struct {
	header videoFrameHeader
	data   []byte
}

// VideoCallbacks delivers decoded video stream events to the owner.
// OnFrame receives one fully reassembled, escaped/start-coded access
// unit per call.
type VideoCallbacks struct {
	OnConfig          func(wiremsg.VideoConfig)
	OnFrame           func(data []byte, keyFrame bool)
	OnStop            func()
	OnRequestKeyFrame func()
}

// VideoChannel is the data channel implementation for a video stream
// negotiated via the control channel's StartVideoData message. It
// reassembles the host's partial-frame stream (§4.7), handling the
// start-code/escape transforms and zero-IV decryption inline.
type VideoChannel struct {
	base       *channel.Base
	win        *window.Window
	config     wiremsg.VideoConfig
	sessionKey []byte
	cb         VideoCallbacks
	logger     *slog.Logger
	metrics    *metrics.Collectors

	mu               sync.Mutex
	expectedSequence uint16
	waitingKeyFrame  time.Time // zero value means "not waiting"
	partials         []partialFrame
	outBuf           []byte
	outKeyFrame      bool
	reserved1Hi      uint16

	stats statsCounter
}

// NewVideo constructs a VideoChannel for the config delivered by the
// control channel's StartVideoData message. sessionKey is used to
// zero-IV-decrypt partials whose Encrypted flag is set.
func NewVideo(base *channel.Base, config wiremsg.VideoConfig, sessionKey []byte, cb VideoCallbacks, logger *slog.Logger, m *metrics.Collectors) *VideoChannel {
	return &VideoChannel{
		base:       base,
		win:        window.New(videoWindowCapacity, base.ChannelID(), "video", m),
		config:     config,
		sessionKey: sessionKey,
		cb:         cb,
		logger:     logger,
		metrics:    m,
	}
}

// Init satisfies channel.Channel and delivers the stream config.
func (c *VideoChannel) Init(channel.Config) error {
	if c.cb.OnConfig != nil {
		c.cb.OnConfig(c.config)
	}
	return nil
}

// Deinit satisfies channel.Channel.
func (c *VideoChannel) Deinit() {}

// Stopped satisfies channel.Stopper.
func (c *VideoChannel) Stopped() {
	if c.cb.OnStop != nil {
		c.cb.OnStop()
	}
}

// Received feeds a packet into the reassembly window and processes any
// frames it completes.
func (c *VideoChannel) Received(h wire.Header, body []byte) error {
	dropped, err := c.win.Add(h, body)
	if err != nil {
		return err
	}
	if dropped {
		return nil
	}
	return c.drain(time.Now())
}

// DiscardStale evicts frame-head slots older than diff units relative to
// the window tail, then drains any frames that become ready as a result.
func (c *VideoChannel) DiscardStale(diff uint32) error {
	c.win.Discard(diff)
	return c.drain(time.Now())
}

func (c *VideoChannel) drain(now time.Time) error {
	for _, f := range c.win.DrainReady() {
		payload, ok, err := splitFrame(f.Body)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("video: dropping frame", "error", err)
			}
			continue
		}
		if !ok {
			continue
		}
		if len(payload) < videoFrameHeaderSize {
			continue
		}
		vhead, data := parseVideoFrameHeader(payload)
		if err := c.handlePartial(vhead, data, now); err != nil {
			return err
		}
	}
	return nil
}

func (c *VideoChannel) handlePartial(vhead videoFrameHeader, data []byte, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.received++

	if vhead.Flags.has(VideoFrameKeyFrame) {
		c.discardPendingLocked()
		c.waitingKeyFrame = time.Time{}
		c.expectedSequence = vhead.Sequence
	} else if !c.waitingKeyFrame.IsZero() {
		if now.Sub(c.waitingKeyFrame) >= keyFrameWaitTimeout {
			c.requestKeyFrameLocked()
			c.waitingKeyFrame = now
		}
	} else if vhead.Sequence != c.expectedSequence {
		c.requestKeyFrameLocked()
		c.waitingKeyFrame = now
	}
	c.expectedSequence = vhead.Sequence + 1

	if !c.waitingKeyFrame.IsZero() {
		// Still waiting for a keyframe: drop this partial entirely, per
		// ch_data_video.c's DataReceived (original_source).
		c.stats.dropped++
		return nil
	}

	if vhead.Flags.has(VideoFrameEncrypted) {
		plain, err := cryptoframe.ZeroIVDecrypt(c.sessionKey, data)
		if err != nil {
			return err
		}
		data = plain
	}

	c.insertPartialLocked(partialFrame{header: vhead, data: data})
	c.assembleLocked()
	return nil
}

func (c *VideoChannel) requestKeyFrameLocked() {
	if c.metrics != nil {
		c.metrics.KeyFrameRequest()
	}
	if c.cb.OnRequestKeyFrame != nil {
		c.cb.OnRequestKeyFrame()
	}
}

func (c *VideoChannel) discardPendingLocked() {
	c.partials = nil
	c.outBuf = c.outBuf[:0]
	c.outKeyFrame = false
	c.reserved1Hi = 0
}

// insertPartialLocked keeps c.partials sorted by (sequence, reserved2)
// ascending, per spec.md §4.7's PartialFrames ordering: sequence is the
// per-packet transport counter, reserved2 the intra-frame continuation
// index that ties partials of one logical frame together.
func (c *VideoChannel) insertPartialLocked(p partialFrame) {
	idx := len(c.partials)
	for i, cur := range c.partials {
		if cur.header.Sequence > p.header.Sequence ||
			(cur.header.Sequence == p.header.Sequence && cur.header.Reserved2 > p.header.Reserved2) {
			idx = i
			break
		}
	}
	c.partials = append(c.partials, partialFrame{})
	copy(c.partials[idx+1:], c.partials[idx:])
	c.partials[idx] = p
}

func (c *VideoChannel) assembleLocked() {
	finished := false
	for len(c.partials) > 0 && !finished {
		p := c.partials[0]
		if p.header.Reserved2 != 0 {
			if p.header.Reserved1 != c.reserved1Hi {
				break
			}
			if p.header.Flags.has(VideoFrameReserved1Increment) {
				if p.header.Flags.has(VideoFrameFinish) {
					c.reserved1Hi = 0
				} else {
					c.reserved1Hi = p.header.Reserved2 + 1
				}
			}
		}

		c.outBuf = appendToFrameBuffer(c.outBuf, p.data, p.header.Flags.has(VideoFrameNeedStartSequence), p.header.Flags.has(VideoFrameNeedEscape))
		if p.header.Flags.has(VideoFrameKeyFrame) {
			c.outKeyFrame = true
		}
		if p.header.Flags.has(VideoFrameFinish) {
			finished = true
		}
		c.partials = c.partials[1:]
	}

	if finished {
		c.stats.decoded++
		if c.metrics != nil {
			c.metrics.FrameDecoded("video")
		}
		if c.cb.OnFrame != nil {
			frame := make([]byte, len(c.outBuf))
			copy(frame, c.outBuf)
			c.cb.OnFrame(frame, c.outKeyFrame)
		}
		c.outBuf = c.outBuf[:0]
		c.outKeyFrame = false
	}
}

// nalStartCode is prepended ahead of an escaped access unit when
// NeedStartSequence is set (frame_h264.c's startSeq).
var nalStartCode = []byte{0x00, 0x00, 0x00, 0x01}

func appendToFrameBuffer(buf []byte, data []byte, needStart, needEscape bool) []byte {
	if !needEscape {
		return append(buf, data...)
	}
	if needStart {
		buf = append(buf, nalStartCode...)
	}
	return append(buf, escapeNAL(data)...)
}

// escapeNAL performs H.264/HEVC emulation-prevention byte escaping:
// insert 0x03 whenever two consecutive zero bytes in the output would be
// followed by a byte <= 0x03 (frame_h264.c's EscapeNAL).
func escapeNAL(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	out := make([]byte, 0, len(src)*3/2+1)
	i := 0
	if i < len(src) {
		out = append(out, src[i])
		i++
	}
	if i < len(src) {
		out = append(out, src[i])
		i++
	}
	for i < len(src) {
		n := len(out)
		if src[i] <= 0x03 && out[n-2] == 0 && out[n-1] == 0 {
			out = append(out, 0x03)
		}
		out = append(out, src[i])
		i++
	}
	return out
}

// ReportStats builds the FrameStatsListMsg due since the last report, if
// statsInterval has elapsed, and resets the counters (ch_data_video.c's
// ReportVideoStats timer callback).
func (c *VideoChannel) ReportStats(now time.Time) (wiremsg.FrameStatsListMsg, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats.lastReport.IsZero() {
		c.stats.lastReport = now
	}
	if now.Sub(c.stats.lastReport) < statsInterval {
		return wiremsg.FrameStatsListMsg{}, false
	}
	msg := wiremsg.FrameStatsListMsg{
		ChannelID: c.base.ChannelID(),
		Stats: wiremsg.FrameStats{
			FramesReceived: c.stats.received,
			FramesDecoded:  c.stats.decoded,
			FramesDropped:  c.stats.dropped,
			FramesRendered: c.stats.decoded,
		},
	}
	c.stats = statsCounter{lastReport: now}
	return msg, true
}

type statsCounter struct {
	received   uint32
	decoded    uint32
	dropped    uint32
	lastReport time.Time
}
