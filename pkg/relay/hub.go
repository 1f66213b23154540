package relay

import (
	"go.uber.org/zap"

	"github.com/odyssey-relay/server/pkg/wire"
)

// DefaultMailboxSize is the default bound on a session's outbound queue
// (spec.md §4.4).
const DefaultMailboxSize = 256

// Hub fans packets out from a source session to every other Active
// session. There is deliberately no central broadcaster goroutine
// (spec.md §9): submit runs on the caller's own goroutine (typically a
// session's read loop) and enqueues directly onto each peer's mailbox,
// which preserves per-source ordering without introducing a bottleneck
// or a cross-source reordering point.
type Hub struct {
	registry *Registry
	log      *zap.Logger
}

func NewHub(registry *Registry, log *zap.Logger) *Hub {
	return &Hub{registry: registry, log: log}
}

// Submit delivers pkt to every Active session other than source. Overflow
// on any one peer's mailbox drops that peer only; it never blocks or
// slows the source.
func (h *Hub) Submit(source *Session, pkt *wire.Packet) {
	for _, peer := range h.registry.sessionsExcept(source) {
		h.deliver(peer, pkt)
	}
}

// SendToSelf primes target's own mailbox directly, bypassing the
// exclusion Submit applies. Used by dispatchPlayer to echo a flip-applied
// Player packet back to a flipped player whose flip POV includes itself
// (self-only or both).
func (h *Hub) SendToSelf(target *Session, pkt *wire.Packet) {
	h.deliver(target, pkt)
}

// TargetedSend delivers pkt to a single named player, if online.
func (h *Hub) TargetedSend(id wire.ID, pkt *wire.Packet) bool {
	sess, ok := h.registry.sessionByID(id)
	if !ok {
		return false
	}
	h.deliver(sess, pkt)
	return true
}

// BroadcastAll delivers pkt to every online session; no session is
// excluded.
func (h *Hub) BroadcastAll(pkt *wire.Packet) {
	for _, peer := range h.registry.allSessions() {
		h.deliver(peer, pkt)
	}
}

func (h *Hub) deliver(peer *Session, pkt *wire.Packet) {
	switch peer.outbound.push(pkt) {
	case pushOverflow:
		h.log.Warn("outbound mailbox overflow, dropping session",
			zap.Stringer("player", peer.ID()),
			zap.Int("bound", peer.outbound.maxLen),
		)
		peer.closeWithReason(CloseReasonCapacity)
	case pushClosed, pushed:
	}
}
