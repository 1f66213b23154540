package relay

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/odyssey-relay/server/pkg/wire"
)

// State is a Session's position in the spec.md §4.2 state machine.
type State int32

const (
	StateAwaitingConnect State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingConnect:
		return "AwaitingConnect"
	case StateActive:
		return "Active"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// CloseReason records why a Session transitioned to Closing, for logging
// and for the admin surface's kick/ban/crash bookkeeping.
type CloseReason string

const (
	CloseReasonNone         CloseReason = ""
	CloseReasonBadHandshake CloseReason = "bad handshake"
	CloseReasonProtocol     CloseReason = "protocol error"
	CloseReasonIOError      CloseReason = "io error"
	CloseReasonCapacity     CloseReason = "capacity"
	CloseReasonDisplaced    CloseReason = "displaced"
	CloseReasonKicked       CloseReason = "kicked"
	CloseReasonBanned       CloseReason = "banned"
	CloseReasonCrash        CloseReason = "crash"
	CloseReasonShutdown     CloseReason = "shutdown"
)

const (
	// handshakeTimeout is the idle read timeout while AwaitingConnect
	// (spec.md §5).
	handshakeTimeout = 3 * time.Second
	// writeTimeout converts a stalled write into a session closure
	// (spec.md §5).
	writeTimeout = 10 * time.Second
	// closeDrainDeadline bounds the best-effort outbound flush during
	// Closing (spec.md §4.2, §5).
	closeDrainDeadline = 500 * time.Millisecond
	// displaceWait bounds how long a reconnecting identity waits for the
	// prior session to vacate before being force-detached (spec.md §4.3,
	// §5).
	displaceWait = 1 * time.Second
	// inboundRateLimit and inboundBurst throttle a single session's
	// packet rate; a session that floods past this is treated like any
	// other capacity violation. Supplemental ambient robustness, not
	// named by spec.md, grounded on the general idle/write-timeout
	// discipline already present in spec.md §5.
	inboundRateLimit = 120 // packets/sec
	inboundBurst     = 240
)

// Session is one TCP connection and the read/write tasks driving it
// (spec.md §3, §4.2).
type Session struct {
	relay      *Relay
	conn       net.Conn
	remoteAddr net.Addr

	decoder *wire.Decoder
	encoder *wire.Encoder
	outbound *mailbox
	limiter  *rate.Limiter

	state        atomic.Int32
	id           wire.ID
	firstConnect atomic.Bool
	connected    atomic.Bool

	closeOnce   sync.Once
	closeMu     sync.Mutex
	closeReason CloseReason

	record *PlayerRecord
}

func newSession(relay *Relay, conn net.Conn) *Session {
	return &Session{
		relay:      relay,
		conn:       conn,
		remoteAddr: conn.RemoteAddr(),
		decoder:    wire.NewDecoder(conn),
		encoder:    wire.NewEncoder(conn),
		outbound:   newMailbox(DefaultMailboxSize),
		limiter:    rate.NewLimiter(inboundRateLimit, inboundBurst),
	}
}

func (s *Session) ID() wire.ID        { return s.id }
func (s *Session) State() State       { return State(s.state.Load()) }
func (s *Session) RemoteAddr() net.Addr { return s.remoteAddr }
func (s *Session) Closed() bool {
	st := s.State()
	return st == StateClosing || st == StateClosed
}

func (s *Session) closeReasonValue() CloseReason {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closeReason
}

// run drives the full session lifecycle: handshake, then the read/write
// loop pair, returning once both have stopped. Presence cleanup happens in
// drainAndClose, which may still be finishing when run returns.
func (s *Session) run() {
	s.state.Store(int32(StateAwaitingConnect))
	if !s.awaitConnect() {
		s.drainAndClose()
		return
	}

	s.state.Store(int32(StateActive))
	s.connected.Store(true)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.readLoop() }()
	go func() { defer wg.Done(); s.writeLoop() }()
	wg.Wait()
}

// awaitConnect implements spec.md §4.2's AwaitingConnect -> Active
// transition. It returns false if the session should close without ever
// becoming Active.
func (s *Session) awaitConnect() bool {
	_ = s.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	pkt, err := s.decoder.ReadPacket()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.closeWithReason(CloseReasonNone)
		} else if errors.Is(err, wire.ErrProtocol) {
			s.closeWithReason(CloseReasonProtocol)
		} else {
			s.closeWithReason(CloseReasonBadHandshake)
		}
		return false
	}
	_ = s.conn.SetReadDeadline(time.Time{})

	if pkt.Header.Kind != wire.KindConnect {
		s.relay.log.Debug("bad handshake: first packet was not Connect",
			zap.Stringer("remote", s.remoteAddr), zap.Stringer("kind", pkt.Header.Kind))
		s.closeWithReason(CloseReasonBadHandshake)
		return false
	}
	body, ok := pkt.Body.(wire.ConnectBody)
	if !ok {
		s.closeWithReason(CloseReasonBadHandshake)
		return false
	}

	id := pkt.Header.Sender
	if s.relay.bans.IsPlayerBanned(id) {
		s.closeWithReason(CloseReasonBanned)
		return false
	}

	s.id = id
	rec, firstConnect, toDisplace := s.relay.registry.resolveConnect(id, body.Name)
	s.record = rec

	if toDisplace != nil {
		s.relay.displace(toDisplace, rec)
	}

	connectKind := wire.ConnectReconnect
	if firstConnect {
		connectKind = wire.ConnectFirstTime
	}

	if err := s.sendHandshakeReply(id, connectKind); err != nil {
		s.closeWithReason(CloseReasonIOError)
		return false
	}

	s.relay.registry.finalizeAttach(rec, body.Name, firstConnect, s)
	s.firstConnect.Store(firstConnect)

	s.relay.log.Info("player connected",
		zap.Stringer("player", id),
		zap.String("name", body.Name.String()),
		zap.Bool("first_connect", firstConnect),
		zap.Stringer("remote", s.remoteAddr))

	for _, pkt := range joinAnnouncement(rec, connectKind) {
		s.relay.hub.Submit(s, pkt)
	}
	return true
}

// sendHandshakeReply writes Init, the Connect echo, and the full replay
// sequence directly to the connection, bypassing the mailbox entirely.
// This runs before finalizeAttach inserts the session into the peer set,
// which is what gives replay packets priority over any live broadcast
// (spec.md §5, §8 "Replay completeness").
func (s *Session) sendHandshakeReply(id wire.ID, connectKind wire.ConnectKind) error {
	if err := s.encoder.WritePacket(wire.ID{}, wire.KindInit, wire.InitBody{
		MaxPlayers: uint16(s.relay.config.Server.MaxPlayers),
	}); err != nil {
		return err
	}
	if err := s.encoder.WritePacket(id, wire.KindConnect, wire.ConnectBody{
		ConnectKind: connectKind,
		MaxPlayers:  uint16(s.relay.config.Server.MaxPlayers),
	}); err != nil {
		return err
	}

	peers := s.relay.registry.OnlineSnapshots(nil)
	var shineIDs []uint32
	if s.relay.config.Shines.Enabled {
		shineIDs = s.relay.shines.Snapshot()
	}
	for _, pkt := range buildReplaySequence(peers, shineIDs) {
		if err := s.encoder.WritePacket(pkt.Header.Sender, pkt.Header.Kind, pkt.Body); err != nil {
			return err
		}
	}
	return s.encoder.Flush()
}

func (s *Session) readLoop() {
	for {
		pkt, err := s.decoder.ReadPacket()
		if err != nil {
			if s.Closed() {
				return
			}
			if errors.Is(err, io.EOF) {
				s.closeWithReason(CloseReasonNone)
			} else if errors.Is(err, wire.ErrProtocol) {
				s.relay.log.Debug("protocol error", zap.Stringer("player", s.id), zap.Error(err))
				s.closeWithReason(CloseReasonProtocol)
			} else {
				s.closeWithReason(CloseReasonIOError)
			}
			return
		}
		if !s.limiter.Allow() {
			s.relay.log.Warn("inbound rate limit exceeded, dropping session", zap.Stringer("player", s.id))
			s.closeWithReason(CloseReasonCapacity)
			return
		}
		s.relay.dispatch(s, pkt)
		if s.Closed() {
			return
		}
	}
}

func (s *Session) writeLoop() {
	for {
		pkt, ok := s.outbound.pop()
		if !ok {
			return
		}
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.encoder.WritePacket(pkt.Header.Sender, pkt.Header.Kind, pkt.Body); err != nil {
			s.closeWithReason(CloseReasonIOError)
			return
		}
		if err := s.encoder.Flush(); err != nil {
			s.closeWithReason(CloseReasonIOError)
			return
		}
	}
}

// closeWithReason begins the Active -> Closing transition (spec.md
// §4.2). It is safe to call multiple times and from multiple goroutines;
// only the first call has any effect.
func (s *Session) closeWithReason(reason CloseReason) {
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.closeReason = reason
		s.closeMu.Unlock()
		s.state.Store(int32(StateClosing))
		// Unstick a blocked read without killing the connection outright,
		// so the write loop can still flush queued packets below.
		_ = s.conn.SetReadDeadline(time.Now())
		go s.drainAndClose()
	})
}

// drainAndClose implements the Closing -> Closed transition: best-effort
// flush of the outbound queue up to closeDrainDeadline, then hard close
// and presence cleanup (spec.md §4.2, §5).
func (s *Session) drainAndClose() {
	deadline := time.NewTimer(closeDrainDeadline)
	defer deadline.Stop()
	drained := make(chan struct{})
	go func() {
		for s.outbound.len() > 0 {
			time.Sleep(5 * time.Millisecond)
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-deadline.C:
	}

	s.outbound.close()
	_ = s.conn.Close()
	s.state.Store(int32(StateClosed))
	s.connected.Store(false)
	s.relay.registry.detach(s)

	if s.relay.log != nil {
		s.relay.log.Info("player disconnected",
			zap.Stringer("player", s.id),
			zap.String("reason", string(s.closeReasonValue())))
	}
}
