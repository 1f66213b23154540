package relay

import (
	"bytes"
	"sort"
	"sync"

	"github.com/odyssey-relay/server/pkg/wire"
)

// Registry is the concurrent PlayerID -> PlayerRecord mapping plus the
// reverse Session -> PlayerID map used for O(1) disconnect lookup.
// Guarded by a single exclusive lock on the whole map, matching spec.md
// §5's "single exclusive lock on the whole map plus per-record exclusive
// access for mutation" discipline. The map lock is taken at handshake,
// sync and disconnect, and also on every hub fan-out (sessionsExcept).
type Registry struct {
	mu       sync.Mutex
	byID     map[wire.ID]*PlayerRecord
	bySess   map[*Session]wire.ID
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[wire.ID]*PlayerRecord),
		bySess: make(map[*Session]wire.ID),
	}
}

// Get returns the record for id, if any.
func (r *Registry) Get(id wire.ID) (*PlayerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	return rec, ok
}

// ByID looks a record up by player ID; it is an alias for Get.
func (r *Registry) ByID(id wire.ID) (*PlayerRecord, bool) {
	return r.Get(id)
}

// resolveConnect looks up or creates the record for id (spec.md §4.3
// steps 1-2) but does NOT attach sess yet: the record's presence pointer
// is left untouched so OnlineSnapshots/sessionsExcept do not yet see this
// session. The caller runs the Sync engine's replay against the returned
// record's peers first, and only calls finalizeAttach afterwards — this
// is what gives the "replay precedes any live broadcast" ordering
// guarantee (spec.md §5) without a bespoke per-record lock.
func (r *Registry) resolveConnect(id wire.ID, name wire.Name) (rec *PlayerRecord, firstConnect bool, toDisplace *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		rec = newPlayerRecord(id, name)
		r.byID[id] = rec
		return rec, true, nil
	}
	return rec, false, rec.Presence()
}

// finalizeAttach completes the attach begun by resolveConnect: it sets
// the record's presence to sess and registers the reverse lookup. name is
// re-applied here (spec.md §4.3: name is not cleared across reconnects,
// but is updated to whatever the latest Connect carried).
func (r *Registry) finalizeAttach(rec *PlayerRecord, name wire.Name, firstConnect bool, sess *Session) {
	rec.setPresence(sess)
	if !firstConnect {
		rec.setName(name)
	}
	r.mu.Lock()
	r.bySess[sess] = rec.ID()
	r.mu.Unlock()
}

// detach clears the presence pointer for sess's player, if any, and drops
// the reverse-lookup entry. The PlayerRecord itself is retained.
func (r *Registry) detach(sess *Session) {
	r.mu.Lock()
	id, ok := r.bySess[sess]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.bySess, sess)
	rec := r.byID[id]
	r.mu.Unlock()

	if rec == nil {
		return
	}
	// Only clear presence if this session is still the current one: an
	// older, already-displaced session detaching must not clobber the
	// new session's presence pointer.
	rec.mu.Lock()
	if rec.presence == sess {
		rec.presence = nil
	}
	rec.mu.Unlock()
}

// recordForSession resolves the reverse map, matching spec.md's
// registry-session consistency invariant.
func (r *Registry) recordForSession(sess *Session) (*PlayerRecord, bool) {
	r.mu.Lock()
	id, ok := r.bySess[sess]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// OnlineSnapshots returns a snapshot of every online player record,
// ordered by player ID, excluding one optional session (used by the sync
// engine to exclude the joining session itself).
func (r *Registry) OnlineSnapshots(exclude *Session) []playerSnapshot {
	r.mu.Lock()
	recs := make([]*PlayerRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		recs = append(recs, rec)
	}
	r.mu.Unlock()

	out := make([]playerSnapshot, 0, len(recs))
	for _, rec := range recs {
		if rec.Presence() == nil {
			continue
		}
		if exclude != nil && rec.Presence() == exclude {
			continue
		}
		out = append(out, rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].id[:], out[j].id[:]) < 0
	})
	return out
}

// ListOnline returns PlayerID + Name pairs for every online player, for
// the admin list() hook.
func (r *Registry) ListOnline() []PlayerSummary {
	snaps := r.OnlineSnapshots(nil)
	out := make([]PlayerSummary, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, PlayerSummary{ID: s.id, Name: s.name})
	}
	return out
}

// PlayerSummary is the minimal public view of a player for admin listings.
type PlayerSummary struct {
	ID   wire.ID
	Name wire.Name
}

// sessionsExcept returns every Active session other than exclude, for the
// hub's fan-out.
func (r *Registry) sessionsExcept(exclude *Session) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.byID))
	for _, rec := range r.byID {
		p := rec.Presence()
		if p == nil || p == exclude {
			continue
		}
		out = append(out, p)
	}
	return out
}

// allSessions returns every session currently attached to a record, with
// none excluded; used by Hub.BroadcastAll, Relay.Shutdown and the admin
// player count.
func (r *Registry) allSessions() []*Session {
	return r.sessionsExcept(nil)
}

// sessionByID resolves the currently-attached session for a player, if
// online, for targeted sends.
func (r *Registry) sessionByID(id wire.ID) (*Session, bool) {
	rec, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	p := rec.Presence()
	if p == nil {
		return nil, false
	}
	return p, true
}
