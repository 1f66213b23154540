// Package relay implements the connection lifecycle, per-player state
// cache, and broadcast/synchronization engine for the game relay server.
package relay

import (
	"sync"
	"time"

	"github.com/odyssey-relay/server/pkg/wire"
)

// Costume is the cached body/cap costume selection for a player.
type Costume struct {
	BodyName wire.Name
	CapName  wire.Name
}

// Transform is the last known position and rotation of a player.
type Transform struct {
	Position wire.Vec3
	Rotation wire.Quaternion
}

// PlayerRecord is the server's cached picture of a player, decoupled from
// any particular Session (spec.md §3). It outlives disconnects; a later
// reconnect with the same ID reuses it in place.
type PlayerRecord struct {
	mu sync.RWMutex

	id   wire.ID
	name wire.Name

	// presence is nil when the player is offline.
	presence *Session

	costume   Costume
	scenario  byte
	is2D      bool
	stage     wire.Stage
	gameMode  wire.TagBody
	capture   wire.Name
	transform Transform

	lastSeen time.Time
}

func newPlayerRecord(id wire.ID, name wire.Name) *PlayerRecord {
	return &PlayerRecord{id: id, name: name, lastSeen: time.Now()}
}

func (r *PlayerRecord) ID() wire.ID { return r.id }

func (r *PlayerRecord) Name() wire.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

func (r *PlayerRecord) setName(n wire.Name) {
	r.mu.Lock()
	r.name = n
	r.mu.Unlock()
}

// Presence returns the session currently attached to this record, or nil
// if the player is offline.
func (r *PlayerRecord) Presence() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presence
}

func (r *PlayerRecord) setPresence(s *Session) {
	r.mu.Lock()
	r.presence = s
	r.lastSeen = time.Now()
	r.mu.Unlock()
}

// Online reports whether a live session is currently attached.
func (r *PlayerRecord) Online() bool {
	return r.Presence() != nil
}

func (r *PlayerRecord) snapshot() playerSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return playerSnapshot{
		id:        r.id,
		name:      r.name,
		costume:   r.costume,
		scenario:  r.scenario,
		is2D:      r.is2D,
		stage:     r.stage,
		gameMode:  r.gameMode,
		capture:   r.capture,
		transform: r.transform,
	}
}

// playerSnapshot is an immutable copy used by the sync engine so it never
// holds the record lock while writing to a socket.
type playerSnapshot struct {
	id        wire.ID
	name      wire.Name
	costume   Costume
	scenario  byte
	is2D      bool
	stage     wire.Stage
	gameMode  wire.TagBody
	capture   wire.Name
	transform Transform
}

func (r *PlayerRecord) updateCostume(c Costume) {
	r.mu.Lock()
	r.costume = c
	r.mu.Unlock()
}

func (r *PlayerRecord) updateGame(scenario byte, is2D bool, stage wire.Stage) {
	r.mu.Lock()
	r.scenario = scenario
	r.is2D = is2D
	r.stage = stage
	r.mu.Unlock()
}

func (r *PlayerRecord) updateGameMode(t wire.TagBody) {
	r.mu.Lock()
	r.gameMode = t
	r.mu.Unlock()
}

func (r *PlayerRecord) updateCapture(name wire.Name) {
	r.mu.Lock()
	r.capture = name
	r.mu.Unlock()
}

func (r *PlayerRecord) updateTransform(t Transform) {
	r.mu.Lock()
	r.transform = t
	r.mu.Unlock()
}
