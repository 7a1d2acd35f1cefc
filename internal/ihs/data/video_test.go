package data

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"
	"time"

	"github.com/alxayo/go-ihs/internal/ihs/channel"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
	"github.com/stretchr/testify/require"
)

func newVideoBase(channelID uint8) *channel.Base {
	return channel.NewBase(channel.Config{ChannelID: channelID, MTU: 1500}, &fakeSender{}, nil, nil, false)
}

// videoPartial builds one DataPacket frame body carrying a single video
// partial-frame header plus payload.
func videoPartial(sequence uint16, flags VideoFrameFlag, reserved1, reserved2 uint16, payload []byte) []byte {
	b := make([]byte, 0, 1+videoFrameHeaderSize+len(payload))
	b = append(b, byte(msgKindDataPacket))
	b = append(b, byte(sequence), byte(sequence>>8))
	b = append(b, byte(flags))
	b = append(b, byte(reserved1), byte(reserved1>>8))
	b = append(b, byte(reserved2), byte(reserved2>>8))
	b = append(b, payload...)
	return b
}

func TestVideoChannelSinglePartialKeyFrame(t *testing.T) {
	var gotData []byte
	var gotKey bool
	c := NewVideo(newVideoBase(4), wiremsg.VideoConfig{}, nil, VideoCallbacks{
		OnFrame: func(data []byte, keyFrame bool) { gotData = data; gotKey = keyFrame },
	}, nil, nil)

	body := videoPartial(0, VideoFrameKeyFrame|VideoFrameFinish, 0, 0, []byte("idr-nal"))
	err := c.Received(dataHeader(4, 0), body)
	require.NoError(t, err)
	require.Equal(t, "idr-nal", string(gotData))
	require.True(t, gotKey)
}

func TestVideoChannelMultiPartialAssembly(t *testing.T) {
	var gotData []byte
	c := NewVideo(newVideoBase(4), wiremsg.VideoConfig{}, nil, VideoCallbacks{
		OnFrame: func(data []byte, keyFrame bool) { gotData = data },
	}, nil, nil)

	// sequence is the per-packet transport counter (must increment across
	// partials of the same logical frame); reserved2 is the intra-frame
	// continuation index AssembleFrame actually orders by.
	first := videoPartial(0, VideoFrameKeyFrame, 0, 0, []byte("AAA"))
	second := videoPartial(1, VideoFrameFinish, 0, 1, []byte("BBB"))

	require.NoError(t, c.Received(dataHeader(4, 0), first))
	require.Nil(t, gotData)
	require.NoError(t, c.Received(dataHeader(4, 1), second))
	require.Equal(t, "AAABBB", string(gotData))
}

func TestVideoChannelEscapesStartCodeAndEmulation(t *testing.T) {
	var gotData []byte
	c := NewVideo(newVideoBase(4), wiremsg.VideoConfig{}, nil, VideoCallbacks{
		OnFrame: func(data []byte, keyFrame bool) { gotData = data },
	}, nil, nil)

	payload := []byte{0xAA, 0x00, 0x00, 0x01, 0xBB}
	body := videoPartial(0, VideoFrameKeyFrame|VideoFrameFinish|VideoFrameNeedStartSequence|VideoFrameNeedEscape, 0, 0, payload)
	require.NoError(t, c.Received(dataHeader(4, 0), body))

	expected := append([]byte{0x00, 0x00, 0x00, 0x01}, []byte{0xAA, 0x00, 0x00, 0x03, 0x01, 0xBB}...)
	require.Equal(t, expected, gotData)
}

func TestVideoChannelRequestsKeyFrameOnSequenceGap(t *testing.T) {
	requests := 0
	var gotData []byte
	c := NewVideo(newVideoBase(4), wiremsg.VideoConfig{}, nil, VideoCallbacks{
		OnFrame:           func(data []byte, keyFrame bool) { gotData = data },
		OnRequestKeyFrame: func() { requests++ },
	}, nil, nil)

	require.NoError(t, c.Received(dataHeader(4, 0), videoPartial(0, VideoFrameKeyFrame|VideoFrameFinish, 0, 0, []byte("idr"))))
	require.Equal(t, "idr", string(gotData))

	// Sequence 1 expected but host sends 5: triggers a keyframe request and
	// the partial is dropped rather than assembled.
	require.NoError(t, c.Received(dataHeader(4, 1), videoPartial(5, VideoFrameFinish, 0, 0, []byte("skip"))))
	require.Equal(t, 1, requests)
	require.Equal(t, "idr", string(gotData)) // unchanged, dropped partial didn't fire OnFrame

	// Recovery: a keyframe clears the waiting state and resumes assembly.
	require.NoError(t, c.Received(dataHeader(4, 2), videoPartial(9, VideoFrameKeyFrame|VideoFrameFinish, 0, 0, []byte("idr2"))))
	require.Equal(t, "idr2", string(gotData))
}

// TestVideoChannelRequestsKeyFrameOnFirstEverNonKeyFramePacket verifies the
// keyframe-request/drop path fires even when the sequence mismatch is the
// very first packet a freshly constructed channel ever sees, not only on a
// gap following an established keyframe.
func TestVideoChannelRequestsKeyFrameOnFirstEverNonKeyFramePacket(t *testing.T) {
	requests := 0
	var gotData []byte
	c := NewVideo(newVideoBase(4), wiremsg.VideoConfig{}, nil, VideoCallbacks{
		OnFrame:           func(data []byte, keyFrame bool) { gotData = data },
		OnRequestKeyFrame: func() { requests++ },
	}, nil, nil)

	// Sequence 5, not a keyframe, arriving as the channel's first-ever
	// input: expectedSequence zero-initializes to 0, so this must still
	// trigger a keyframe request and be dropped rather than assembled.
	require.NoError(t, c.Received(dataHeader(4, 0), videoPartial(5, VideoFrameFinish, 0, 0, []byte("skip"))))
	require.Equal(t, 1, requests)
	require.Nil(t, gotData)

	require.NoError(t, c.Received(dataHeader(4, 1), videoPartial(9, VideoFrameKeyFrame|VideoFrameFinish, 0, 0, []byte("idr"))))
	require.Equal(t, "idr", string(gotData))
}

func TestVideoChannelEncryptedPartialIsDecrypted(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 1)
	}
	// 14 bytes of real data + 2 bytes of PKCS7 padding, one AES block total;
	// cryptoframe.ZeroIVDecrypt strips the padding and returns the 14 bytes.
	realData := []byte("0123456789abcd")
	plain := append(append([]byte(nil), realData...), 0x02, 0x02)
	ciphertext := zeroIVEncryptForTest(t, key, plain)

	var gotData []byte
	c := NewVideo(newVideoBase(4), wiremsg.VideoConfig{}, key, VideoCallbacks{
		OnFrame: func(data []byte, keyFrame bool) { gotData = data },
	}, nil, nil)

	body := videoPartial(0, VideoFrameKeyFrame|VideoFrameFinish|VideoFrameEncrypted, 0, 0, ciphertext)
	require.NoError(t, c.Received(dataHeader(4, 0), body))
	require.Equal(t, string(realData), string(gotData))
}

func TestVideoChannelReportStatsRespectsInterval(t *testing.T) {
	c := NewVideo(newVideoBase(4), wiremsg.VideoConfig{}, nil, VideoCallbacks{}, nil, nil)
	require.NoError(t, c.Received(dataHeader(4, 0), videoPartial(0, VideoFrameKeyFrame|VideoFrameFinish, 0, 0, []byte("x"))))

	t0 := time.Now()
	_, ok := c.ReportStats(t0)
	require.False(t, ok)

	msg, ok := c.ReportStats(t0.Add(statsInterval + time.Millisecond))
	require.True(t, ok)
	require.Equal(t, uint32(1), msg.Stats.FramesReceived)
	require.Equal(t, uint32(1), msg.Stats.FramesDecoded)
}

// zeroIVEncryptForTest encrypts plaintext with AES-128-CBC, a zero IV, and
// no padding (caller must supply block-aligned plaintext), the inverse of
// cryptoframe.ZeroIVDecrypt for use as a test fixture.
func zeroIVEncryptForTest(t *testing.T, key, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	var zeroIV [16]byte
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, zeroIV[:]).CryptBlocks(out, plaintext)
	return out
}
