package control

import (
	"github.com/alxayo/go-ihs/internal/ihs/cryptoframe"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
)

// onServerHandshake receives the negotiated MTU and immediately fires
// back an AuthenticationRequest carrying the HMAC-SHA-256 token.
func (c *Channel) onServerHandshake(payload []byte) error {
	var sh wiremsg.ServerHandshake
	if err := sh.Unmarshal(payload); err != nil {
		return err
	}
	c.state = StateServerHandshake
	if c.logger != nil {
		c.logger.Debug("control: server handshake", "mtu", sh.MTU)
	}
	if c.cb.OnMTU != nil {
		c.cb.OnMTU(sh.MTU)
	}

	req := wiremsg.AuthenticationRequest{
		Token:           cryptoframe.ComputeAuthToken(c.cfg.SessionKey),
		ProtocolVersion: c.cfg.ProtocolVersion,
		SteamID:         c.cfg.SteamID,
	}
	c.state = StateAuthenticating
	c.sendPlaintext(msgAuthenticationRequest, req.Marshal())
	return nil
}

// onAuthenticationResponse is terminal on any non-SUCCEEDED result
// (spec.md §4.6: "Authentication is terminal").
func (c *Channel) onAuthenticationResponse(payload []byte) error {
	var resp wiremsg.AuthenticationResponse
	if err := resp.Unmarshal(payload); err != nil {
		return err
	}
	if resp.Result != wiremsg.AuthSucceeded {
		if c.logger != nil {
			c.logger.Error("control: authentication failed", "result", int32(resp.Result))
		}
		if c.cb.OnAuthFailed != nil {
			c.cb.OnAuthFailed(resp.Result)
		}
		return nil
	}
	if c.cb.OnAuthenticated != nil {
		c.cb.OnAuthenticated()
	}
	c.state = StateNegotiating
	return nil
}

// onNegotiationInit replies selecting Opus audio if offered and H264
// (or HEVC, if configured and offered) video, with the client's video
// modes and capabilities (spec.md §4.6).
func (c *Channel) onNegotiationInit(payload []byte) error {
	var init wiremsg.NegotiationInit
	if err := init.Unmarshal(payload); err != nil {
		return err
	}

	audio := pickAudioCodec(init.SupportedAudioCodecs)
	video := pickVideoCodec(init.SupportedVideoCodecs, c.cfg.EnableHEVC)

	reply := wiremsg.NegotiationSetConfig{
		AudioCodec:   audio,
		VideoCodec:   video,
		VideoModes:   c.cfg.VideoModes,
		Capabilities: c.cfg.Capabilities,
	}
	if err := c.sendEncrypted(msgNegotiationSetConfig, reply.Marshal()); err != nil {
		return err
	}
	if err := c.sendEncrypted(msgNegotiationComplete, (&wiremsg.NegotiationComplete{}).Marshal()); err != nil {
		return err
	}
	if c.cb.OnNegotiated != nil {
		c.cb.OnNegotiated(audio, video)
	}
	return nil
}

func pickAudioCodec(offered []wiremsg.AudioCodec) wiremsg.AudioCodec {
	for _, c := range offered {
		if c == wiremsg.AudioCodecOpus {
			return c
		}
	}
	if len(offered) > 0 {
		return offered[0]
	}
	return wiremsg.AudioCodecUnknown
}

func pickVideoCodec(offered []wiremsg.VideoCodec, preferHEVC bool) wiremsg.VideoCodec {
	if preferHEVC {
		for _, c := range offered {
			if c == wiremsg.VideoCodecHEVC {
				return c
			}
		}
	}
	for _, c := range offered {
		if c == wiremsg.VideoCodecH264 {
			return c
		}
	}
	if len(offered) > 0 {
		return offered[0]
	}
	return wiremsg.VideoCodecUnknown
}

// SendKeepAlive emits an empty KeepAlive control message, called by the
// session's shared timer thread every Config.KeepAliveInterval (10s by
// default) once negotiation completes (spec.md §4.6).
func (c *Channel) SendKeepAlive() error {
	return c.sendEncrypted(msgKeepAlive, (&wiremsg.KeepAlive{}).Marshal())
}
