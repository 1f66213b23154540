package relay

import (
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/odyssey-relay/server/pkg/config"
	"github.com/odyssey-relay/server/pkg/wire"
)

// Relay owns every piece of shared state a session's dispatch logic
// needs: the player registry, the broadcast hub, the shine bag, the ban
// list, and the configured flip set (spec.md §3).
type Relay struct {
	config   *config.Config
	log      *zap.Logger
	registry *Registry
	hub      *Hub
	shines   *ShineBag
	bans     *BanList
	flip     *flipSet

	sharedScenario atomic.Uint32 // see dispatchGame
}

// NewRelay wires every component per SPEC_FULL.md's DOMAIN STACK section.
func NewRelay(cfg *config.Config, log *zap.Logger) (*Relay, error) {
	flip, err := newFlipSet(cfg)
	if err != nil {
		return nil, err
	}
	banIDs, err := cfg.BanListIDs()
	if err != nil {
		return nil, err
	}
	registry := NewRegistry()
	r := &Relay{
		config:   cfg,
		log:      log,
		registry: registry,
		hub:      NewHub(registry, log),
		shines:   NewShineBag(),
		bans:     NewBanList(banIDs, cfg.BanList.IPs),
		flip:     flip,
	}
	return r, nil
}

// dispatch applies spec.md §4.4's per-kind broadcast rules to a packet
// read from source. It runs on source's read-loop goroutine; no separate
// broadcaster goroutine exists (spec.md §9).
func (r *Relay) dispatch(source *Session, pkt *wire.Packet) {
	switch body := pkt.Body.(type) {
	case wire.PlayerBody:
		r.dispatchPlayer(source, pkt.Header.Sender, body)
	case wire.CapBody:
		r.hub.Submit(source, pkt)
	case wire.GameBody:
		r.dispatchGame(source, pkt.Header.Sender, body)
	case wire.TagBody:
		if source.record != nil {
			source.record.updateGameMode(body)
		}
		r.hub.Submit(source, pkt)
	case wire.ConnectBody:
		// A Connect received after the handshake is a client-side
		// reconnect attempt on an already-Active session; spec.md §4.2
		// treats the connection, not a mid-stream Connect packet, as the
		// reconnect trigger, so this is logged and otherwise ignored.
		r.log.Debug("ignoring mid-stream Connect", zap.Stringer("player", pkt.Header.Sender))
	case wire.DisconnectBody:
		source.closeWithReason(CloseReasonNone)
	case wire.CostumeBody:
		if source.record != nil {
			source.record.updateCostume(Costume{BodyName: body.BodyName, CapName: body.CapName})
		}
		r.hub.Submit(source, pkt)
	case wire.ShineBody:
		r.dispatchShine(source, body)
	case wire.CaptureBody:
		if source.record != nil {
			source.record.updateCapture(body.CapturedEnemy)
		}
		r.hub.Submit(source, pkt)
	case wire.ChangeStageBody:
		// ChangeStage is a server-issued packet in spec.md §4.8's
		// change_stage admin command; a client should never send one.
		r.log.Debug("ignoring client-originated ChangeStage", zap.Stringer("player", pkt.Header.Sender))
	case wire.CommandBody:
		r.log.Debug("ignoring client-originated Command", zap.Stringer("player", pkt.Header.Sender))
	case wire.InitBody:
		r.log.Debug("ignoring client-originated Init", zap.Stringer("player", pkt.Header.Sender))
	default:
		r.log.Warn("dispatch: unrecognized body type", zap.Stringer("kind", pkt.Header.Kind))
	}
}

func (r *Relay) dispatchPlayer(source *Session, sender wire.ID, body wire.PlayerBody) {
	if source.record != nil {
		source.record.updateTransform(Transform{Position: body.Position, Rotation: body.Rotation})
	}
	toPeers, toSelf := applyFlip(r.flip, sender, body)
	r.hub.Submit(source, &wire.Packet{Header: wire.Header{Sender: sender, Kind: wire.KindPlayer}, Body: toPeers})
	if toSelf != nil {
		r.hub.SendToSelf(source, &wire.Packet{Header: wire.Header{Sender: sender, Kind: wire.KindPlayer}, Body: *toSelf})
	}
}

// dispatchGame caches the sender's scenario/is2d/stage and forwards the
// Game packet to peers. With scenario merge enabled, the packet's scenario
// is stored in the relay-wide sharedScenario and the outgoing scenario
// byte is read back from it. Because the store and the load happen for the
// same packet, the forwarded byte is the sender's own (just cached)
// scenario, unless another session's Game packet stores a different value
// between the two steps.
func (r *Relay) dispatchGame(source *Session, sender wire.ID, body wire.GameBody) {
	if source.record != nil {
		source.record.updateGame(body.Scenario, body.Is2D, body.Stage)
	}
	out := body
	if r.config.Scenario.MergeEnabled {
		r.sharedScenario.Store(uint32(body.Scenario))
		out.Scenario = byte(r.sharedScenario.Load())
	}
	r.hub.Submit(source, &wire.Packet{Header: wire.Header{Sender: sender, Kind: wire.KindGame}, Body: out})
}

// dispatchShine enforces spec.md §4.6: grand moons are never broadcast
// (they are single-player collectibles with no shared-world effect), and
// a shine ID already recorded is not re-broadcast, so every client's moon
// counter only ever increments once per shine across the whole session.
func (r *Relay) dispatchShine(source *Session, body wire.ShineBody) {
	if !r.config.Shines.Enabled {
		return
	}
	if body.IsGrand {
		return
	}
	if !r.shines.Add(body.ShineID) {
		return
	}
	r.hub.Submit(source, &wire.Packet{
		Header: wire.Header{Sender: source.id, Kind: wire.KindShine},
		Body:   body,
	})
}

// Shutdown signals every Active session to Closing, matching spec.md §9's
// shutdown sequencing: the caller is expected to close the Listener first
// so no new connection races this drain.
func (r *Relay) Shutdown() {
	for _, sess := range r.registry.allSessions() {
		sess.closeWithReason(CloseReasonShutdown)
	}
}

// displace forces a previously-connected session for the same identity to
// close, per spec.md §4.3's displacement-on-reconnect rule: the new
// session waits up to displaceWait for the old one to vacate on its own
// before forcing it.
func (r *Relay) displace(old *Session, rec *PlayerRecord) {
	old.closeWithReason(CloseReasonDisplaced)
	waitForSessionClosed(old, displaceWait)
	// Force-detach: a no-op if the old session already detached itself.
	r.registry.detach(old)
}

// waitForSessionClosed polls until sess reaches StateClosed or deadline
// elapses, bounding how long a reconnect handshake stalls behind a
// sluggish prior session's drain (spec.md §4.3, §5).
func waitForSessionClosed(sess *Session, deadline time.Duration) {
	if sess.State() == StateClosed {
		return
	}
	cutoff := time.Now().Add(deadline)
	for time.Now().Before(cutoff) {
		if sess.State() == StateClosed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
