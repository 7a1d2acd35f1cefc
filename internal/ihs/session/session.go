// Package session implements the aggregate object of spec.md §3/§5: it
// owns the single UDP socket, the shared send queue and retransmission
// manager, the discovery/control/audio/video channels, and the worker
// goroutines that drive them, tying the lower packages into the
// connect/negotiate/stream/disconnect lifecycle a caller drives through
// Connect, Disconnect, and Close.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
	"github.com/alxayo/go-ihs/internal/ihs/channel"
	"github.com/alxayo/go-ihs/internal/ihs/control"
	"github.com/alxayo/go-ihs/internal/ihs/data"
	"github.com/alxayo/go-ihs/internal/ihs/discovery"
	"github.com/alxayo/go-ihs/internal/ihs/hid"
	"github.com/alxayo/go-ihs/internal/ihs/sendqueue"
	"github.com/alxayo/go-ihs/internal/ihs/wire"
	"github.com/alxayo/go-ihs/internal/ihs/wiremsg"
	"github.com/alxayo/go-ihs/internal/logger"
	"github.com/alxayo/go-ihs/internal/metrics"
)

// Fixed channel ids for the session's single audio and video streams.
// The negotiation messages that spawn these channels (StartAudioData/
// StartVideoData) carry no channel-id field of their own, so a session
// claims ChannelDataMin and ChannelDataMin+1, one per media kind
// (DESIGN.md's resolution of this silently-assumed wire detail).
const (
	audioChannelID uint8 = wire.ChannelDataMin
	videoChannelID uint8 = wire.ChannelDataMin + 1
)

// wakeMagic is the single byte the stop path writes to its own loopback
// wake socket to unblock a pending ReadFromUDP (spec.md §5: "unblocks the
// UDP recv via a loopback wake-up packet").
const wakeMagic = 0xFF

// Session is the top-level streaming-client object: one per host
// connection, created after an out-of-band authorization/streaming-request
// exchange has produced a SessionInfo.
type Session struct {
	id      string
	cfg     Config
	client  ClientConfig
	info    SessionInfo
	sessCfg SessionConfig
	cb      Callbacks
	metrics *metrics.Collectors
	logger  *slog.Logger

	conn     *net.UDPConn
	hostAddr *net.UDPAddr

	sendQueue  *sendqueue.Queue
	retransmit *sendqueue.RetransmitManager
	sender     *queueSender
	dispatcher *channel.Dispatcher
	hidMgr     *hid.Manager
	hidScratch []byte

	mu              sync.Mutex
	st              state
	srcConnectionID uint8
	dstConnectionID uint8
	mtu             uint32

	discoveryBase *channel.Base
	discoveryChan *discovery.Channel
	controlBase   *channel.Base
	controlChan   *control.Channel
	audioBase     *channel.Base
	audioChan     *data.AudioChannel
	videoBase     *channel.Base
	videoChan     *data.VideoChannel

	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// queueSender adapts the send queue and retransmission manager to the
// channel.Sender interface every channel.Base is constructed with:
// enqueueing a reliable packet also registers it for long-term
// retransmission tracking (spec.md §4.9).
type queueSender struct {
	q  *sendqueue.Queue
	rt *sendqueue.RetransmitManager
}

func (s *queueSender) Append(p *wire.Packet, retransmit bool) bool {
	ok := s.q.Append(p, retransmit)
	if ok && retransmit {
		s.rt.Register(p)
	}
	return ok
}

// New constructs a Session and wires every channel, but opens no socket
// and starts no goroutines; call Connect to begin streaming.
func New(cfg Config, client ClientConfig, info SessionInfo, sessCfg SessionConfig, cb Callbacks, m *metrics.Collectors) (*Session, error) {
	cfg.applyDefaults()
	if len(info.SessionKey) == 0 {
		return nil, protoerr.NewProtocolError("session.new", fmt.Errorf("empty session key"))
	}

	id := xid.New().String()
	log := logger.WithSession(logger.Logger(), id, info.HostAddress)

	s := &Session{
		id:      id,
		cfg:     cfg,
		client:  client,
		info:    info,
		sessCfg: sessCfg,
		cb:      cb,
		metrics: m,
		logger:  log,
		stopCh:  make(chan struct{}),
		st:      stateIdle,
		mtu:     cfg.MTU,
	}

	s.sendQueue = sendqueue.New(cfg.SendQueueCapacity, m)
	s.retransmit = sendqueue.NewRetransmitManager(m)
	s.sender = &queueSender{q: s.sendQueue, rt: s.retransmit}
	s.dispatcher = channel.NewDispatcher()
	s.hidMgr = hid.NewManager(log)
	s.hidScratch = make([]byte, 256)

	discoveryBase := channel.NewBase(s.channelConfig(wire.ChannelDiscovery), s.sender, m,
		logger.WithChannel(log, wire.ChannelDiscovery, "discovery"), false)
	discoveryChan := discovery.New(discoveryBase, discovery.Callbacks{
		OnConnectACK: s.onConnectACK,
		OnDisconnect: s.onPeerDisconnect,
	}, discoveryBase.Logger())

	controlBase := channel.NewBase(s.channelConfig(wire.ChannelControl), s.sender, m,
		logger.WithChannel(log, wire.ChannelControl, "control"), true)
	controlChan := control.New(controlBase, control.Config{
		SessionKey:      info.SessionKey,
		SteamID:         info.SteamID,
		ProtocolVersion: cfg.ProtocolVersion,
		EnableHEVC:      sessCfg.EnableHEVC,
		VideoModes:      sessCfg.VideoModes,
		Capabilities:    sessCfg.Capabilities,
	}, control.Callbacks{
		OnMTU:            s.onMTU,
		OnAuthenticated:  s.onAuthenticated,
		OnAuthFailed:     s.onAuthFailed,
		OnNegotiated:     s.onNegotiated,
		CursorKnown:      cb.CursorKnown,
		OnCursorImage:    cb.OnCursorImage,
		OnShowCursor:     cb.OnShowCursor,
		OnHideCursor:     cb.OnHideCursor,
		OnDeleteCursor:   cb.OnDeleteCursor,
		OnStartAudioData: s.onStartAudioData,
		OnStopAudioData:  s.onStopAudioData,
		OnStartVideoData: s.onStartVideoData,
		OnStopVideoData:  s.onStopVideoData,
	}, controlBase.Logger(), m)
	controlChan.SetHIDToRemoteHandler(s.onRemoteHID)

	if err := s.dispatcher.Register(wire.ChannelDiscovery, discoveryChan, channel.Config{}); err != nil {
		return nil, err
	}
	if err := s.dispatcher.Register(wire.ChannelControl, controlChan, channel.Config{}); err != nil {
		return nil, err
	}

	s.discoveryBase, s.discoveryChan = discoveryBase, discoveryChan
	s.controlBase, s.controlChan = controlBase, controlChan

	if cb.OnInitialized != nil {
		cb.OnInitialized()
	}
	return s, nil
}

// ID returns the session's correlation id, generated once at New and
// otherwise opaque (an xid, mirroring the sockstats exporter's
// per-connection id; it is the only id the session draws from xid).
func (s *Session) ID() string { return s.id }

// channelConfig snapshots the current negotiated state into a
// channel.Config for id, used both at construction and whenever
// Reconfigure is needed after a connection-id or MTU change.
func (s *Session) channelConfig(id uint8) channel.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return channel.Config{
		ChannelID:       id,
		MTU:             s.mtu,
		SrcConnectionID: s.srcConnectionID,
		DstConnectionID: s.dstConnectionID,
	}
}

// reconfigureAll pushes the current channelConfig to every live base,
// called after the connection id is adopted or the MTU is negotiated.
func (s *Session) reconfigureAll() {
	s.discoveryBase.Reconfigure(s.channelConfig(wire.ChannelDiscovery))
	s.controlBase.Reconfigure(s.channelConfig(wire.ChannelControl))

	s.mu.Lock()
	audioBase, videoBase := s.audioBase, s.videoBase
	s.mu.Unlock()
	if audioBase != nil {
		audioBase.Reconfigure(s.channelConfig(audioChannelID))
	}
	if videoBase != nil {
		videoBase.Reconfigure(s.channelConfig(videoChannelID))
	}
}

func (s *Session) onConnectACK(hostConnectionID uint8) {
	s.mu.Lock()
	s.dstConnectionID = hostConnectionID
	s.mu.Unlock()
	s.reconfigureAll()
	s.controlChan.BeginHandshake()
}

func (s *Session) onMTU(mtu uint32) {
	s.mu.Lock()
	s.mtu = mtu
	s.mu.Unlock()
	s.reconfigureAll()
}

func (s *Session) onAuthenticated() {
	if s.logger != nil {
		s.logger.Info("session: authenticated")
	}
}

func (s *Session) onAuthFailed(result wiremsg.AuthenticationResult) {
	if s.logger != nil {
		s.logger.Error("session: authentication failed", "result", int32(result))
	}
	s.initiateStop()
}

func (s *Session) onNegotiated(audio wiremsg.AudioCodec, video wiremsg.VideoCodec) {
	s.mu.Lock()
	s.st = stateConnected
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Info("session: negotiated", "audio_codec", int32(audio), "video_codec", int32(video))
	}
	if s.cb.OnConnected != nil {
		s.cb.OnConnected()
	}
}

func (s *Session) onStartAudioData(cfg wiremsg.AudioConfig) {
	if !s.sessCfg.EnableAudio {
		return
	}
	s.mu.Lock()
	if s.audioChan != nil {
		s.mu.Unlock()
		return
	}
	base := channel.NewBase(s.channelConfig(audioChannelID), s.sender, s.metrics,
		logger.WithChannel(s.logger, audioChannelID, "audio"), false)
	ch := data.NewAudio(base, cfg, s.cb.Audio, base.Logger(), s.metrics)
	s.audioBase, s.audioChan = base, ch
	s.mu.Unlock()

	if err := s.dispatcher.Register(audioChannelID, ch, channel.Config{}); err != nil && s.logger != nil {
		s.logger.Warn("session: register audio channel failed", "error", err)
	}
}

func (s *Session) onStopAudioData() {
	s.mu.Lock()
	s.audioBase, s.audioChan = nil, nil
	s.mu.Unlock()
	s.dispatcher.Unregister(audioChannelID)
}

func (s *Session) onStartVideoData(cfg wiremsg.VideoConfig) {
	s.mu.Lock()
	if s.videoChan != nil {
		s.mu.Unlock()
		return
	}
	base := channel.NewBase(s.channelConfig(videoChannelID), s.sender, s.metrics,
		logger.WithChannel(s.logger, videoChannelID, "video"), false)
	videoCb := s.cb.Video
	videoCb.OnRequestKeyFrame = s.onVideoRequestKeyFrame
	ch := data.NewVideo(base, cfg, s.info.SessionKey, videoCb, base.Logger(), s.metrics)
	s.videoBase, s.videoChan = base, ch
	s.mu.Unlock()

	if err := s.dispatcher.Register(videoChannelID, ch, channel.Config{}); err != nil && s.logger != nil {
		s.logger.Warn("session: register video channel failed", "error", err)
	}
}

func (s *Session) onStopVideoData() {
	s.mu.Lock()
	s.videoBase, s.videoChan = nil, nil
	s.mu.Unlock()
	s.dispatcher.Unregister(videoChannelID)
}

// onVideoRequestKeyFrame relays the video reassembler's internal recovery
// request to the host, then forwards to the caller's own handler, if set.
func (s *Session) onVideoRequestKeyFrame() {
	if err := s.controlChan.SendRequestKeyFrame(); err != nil && s.logger != nil {
		s.logger.Warn("session: request key frame failed", "error", err)
	}
	if s.cb.Video.OnRequestKeyFrame != nil {
		s.cb.Video.OnRequestKeyFrame()
	}
}

func (s *Session) onRemoteHID(msg wiremsg.HIDMessageToRemote) {
	for _, ev := range s.hidMgr.HandleToRemote(msg) {
		if err := s.controlChan.SendHIDFromRemote(ev); err != nil && s.logger != nil {
			s.logger.Warn("session: send hid event failed", "error", err)
		}
	}
}

func (s *Session) onPeerDisconnect() {
	s.initiateStop()
}

// Connect resolves the host address, opens the UDP socket, starts the
// receive and tick workers, and sends the initial Connect packet. It
// returns once the socket is ready; negotiation and streaming continue
// asynchronously and are observed through Callbacks.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.st != stateIdle {
		s.mu.Unlock()
		return protoerr.NewProtocolError("session.connect", fmt.Errorf("invalid state %s", s.st))
	}
	s.st = stateConnecting
	s.mu.Unlock()

	if s.cb.OnConnecting != nil {
		s.cb.OnConnecting()
	}

	hostAddr, err := resolveUDPAddr(ctx, s.info.HostAddress)
	if err != nil {
		return protoerr.NewProtocolError("session.connect", err)
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return protoerr.NewProtocolError("session.connect", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.hostAddr = hostAddr
	s.mu.Unlock()

	s.wg.Add(2)
	go s.receiveLoop()
	go s.tickLoop()

	s.discoveryChan.SendConnect()
	return nil
}

func resolveUDPAddr(ctx context.Context, hostAddress string) (*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(hostAddress)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("session: no address found for %q", host)
	}
	return &net.UDPAddr{IP: ips[0].IP, Port: port, Zone: ips[0].Zone}, nil
}

// Disconnect enqueues the discovery channel's Disconnect packet. Teardown
// completes asynchronously once the host's Disconnect ACK (or its own
// Disconnect) is observed, per spec.md §5's cancellation sequence.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	switch s.st {
	case stateConnecting, stateConnected:
		s.st = stateDisconnecting
	default:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.discoveryChan.SendDisconnect()
	return nil
}

// initiateStop marks the session disconnected and asynchronously runs
// Close, so it is safe to call from within the receive loop itself.
func (s *Session) initiateStop() {
	s.mu.Lock()
	if s.st == stateDisconnected {
		s.mu.Unlock()
		return
	}
	s.st = stateDisconnected
	s.mu.Unlock()

	if s.cb.OnDisconnected != nil {
		s.cb.OnDisconnected()
	}
	go func() {
		if err := s.Close(); err != nil && s.logger != nil {
			s.logger.Warn("session: close failed", "error", err)
		}
	}()
}

// Close stops every worker, closes the socket, and releases every
// channel and HID resource. It is idempotent and safe to call even if
// Connect was never called.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}

	s.closeOnce.Do(func() {
		close(s.stopCh)
		if err := s.wake(); err != nil && s.logger != nil {
			s.logger.Warn("session: wake failed", "error", err)
		}
	})
	s.wg.Wait()

	_ = conn.Close()
	s.sendQueue.Close()
	s.dispatcher.StopAll()
	s.hidMgr.CloseAll()

	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()

	if s.cb.OnFinalized != nil {
		s.cb.OnFinalized()
	}
	return nil
}

// wake binds a loopback UDP socket purely to send one datagram to this
// session's own receiving socket, unblocking a pending ReadFromUDP
// (spec.md §5's literal description of the stop path; SPEC_FULL.md's
// base.c-derived wakeConn supplement).
func (s *Session) wake() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return fmt.Errorf("session: local address is not UDP")
	}
	wakeConn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: local.Port})
	if err != nil {
		return err
	}
	defer wakeConn.Close()
	_, err = wakeConn.Write([]byte{wakeMagic})
	return err
}

func (s *Session) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// receiveLoop reads and dispatches every inbound packet until woken for
// shutdown.
func (s *Session) receiveLoop() {
	defer s.wg.Done()
	buf := make([]byte, 65536)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if s.isStopping() {
				return
			}
			if s.logger != nil {
				s.logger.Warn("session: read failed", "error", err)
			}
			continue
		}
		if s.isStopping() {
			return
		}
		if n == 1 && buf[0] == wakeMagic {
			continue
		}
		s.handlePacket(buf[:n])
	}
}

func (s *Session) handlePacket(raw []byte) {
	p, err := wire.Parse(raw)
	if err != nil {
		if s.metrics != nil {
			s.metrics.CRCFailure()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.PacketReceived(p.Header.Type.String())
	}

	// ACK/NACK carry no body of their own; both immediately remove the
	// matching send-queue item and cancel the matching pending
	// retransmission (spec.md §4.9's "ACK / NACK reception removes the
	// matching send-queue item immediately").
	switch p.Header.Type {
	case wire.ACK:
		s.sendQueue.AckReceived(p.Header.ChannelID, p.Header.PacketID)
		s.retransmit.Cancel(p.Header.ChannelID, p.Header.PacketID, p.Header.FragmentID)
		s.maybeDisconnectAcked(p.Header.ChannelID)
		return
	case wire.NACK:
		s.sendQueue.AckReceived(p.Header.ChannelID, p.Header.PacketID)
		s.retransmit.Cancel(p.Header.ChannelID, p.Header.PacketID, p.Header.FragmentID)
		if s.metrics != nil {
			s.metrics.Nack()
		}
		return
	}

	if err := s.dispatcher.Dispatch(p.Header, p.Body.Bytes()); err != nil {
		var overflow *protoerr.WindowOverflowError
		if errors.As(err, &overflow) {
			if s.logger != nil {
				s.logger.Error("session: reassembly window overflow, disconnecting", "error", err)
			}
			_ = s.Disconnect()
			return
		}
		if s.logger != nil {
			s.logger.Debug("session: dispatch error", "error", err)
		}
	}
}

// maybeDisconnectAcked treats any ACK observed on the discovery channel
// while disconnecting as the acknowledgment of the outstanding Disconnect
// packet (spec.md §5: "on its ACK ... the session callback fires and stop
// is called"); the send queue does not expose a per-packet completion
// callback, and the discovery channel carries no other reliable traffic
// once teardown has begun.
func (s *Session) maybeDisconnectAcked(channelID uint8) {
	if channelID != wire.ChannelDiscovery {
		return
	}
	s.mu.Lock()
	disconnecting := s.st == stateDisconnecting
	s.mu.Unlock()
	if disconnecting {
		s.initiateStop()
	}
}

func (s *Session) writeRaw(b []byte) error {
	s.mu.Lock()
	conn, addr := s.conn, s.hostAddr
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("session: socket closed")
	}
	_, err := conn.WriteToUDP(b, addr)
	return err
}

// tickLoop drives every periodic concern a session owns: flushing the
// send queue, retrying overdue retransmissions, the steady-state
// keep-alive, video stats/stale-discard, and HID polling.
func (s *Session) tickLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	var lastKeepAlive time.Time
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			ts := wire.NowTimestamp(now.Unix(), int64(now.Nanosecond()))
			s.sendQueue.Flush(ts, s.writeRaw)
			s.retransmit.Tick(ts, func(p *wire.Packet) { s.sendQueue.Append(p, true) })

			if s.controlChan.State() != control.StateSteady {
				continue
			}
			if now.Sub(lastKeepAlive) >= s.cfg.KeepAliveInterval {
				if err := s.controlChan.SendKeepAlive(); err != nil && s.logger != nil {
					s.logger.Warn("session: keep-alive failed", "error", err)
				}
				lastKeepAlive = now
			}
			s.tickMedia(now)
		}
	}
}

func (s *Session) tickMedia(now time.Time) {
	s.mu.Lock()
	audioChan, videoChan := s.audioChan, s.videoChan
	s.mu.Unlock()

	if audioChan != nil {
		if err := audioChan.DiscardStale(s.cfg.VideoDiscardStaleUnits); err != nil && s.logger != nil {
			s.logger.Warn("session: audio discard stale", "error", err)
		}
	}
	if videoChan != nil {
		if err := videoChan.DiscardStale(s.cfg.VideoDiscardStaleUnits); err != nil && s.logger != nil {
			s.logger.Warn("session: video discard stale", "error", err)
		}
		if msg, ok := videoChan.ReportStats(now); ok {
			if err := s.controlChan.SendFrameStats(msg); err != nil && s.logger != nil {
				s.logger.Warn("session: send frame stats failed", "error", err)
			}
		}
	}

	for _, ev := range s.hidMgr.Poll(s.hidScratch) {
		if err := s.controlChan.SendHIDFromRemote(ev); err != nil && s.logger != nil {
			s.logger.Warn("session: send hid poll event failed", "error", err)
		}
	}
}

// HIDManager returns the session's HID manager, for a caller to register
// providers against before streaming begins.
func (s *Session) HIDManager() *hid.Manager { return s.hidMgr }
