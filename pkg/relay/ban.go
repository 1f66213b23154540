package relay

import (
	"sync"

	"github.com/odyssey-relay/server/pkg/wire"
)

// BanList is the set of banned PlayerIDs and IP addresses, seeded from
// the configuration and writable through the admin ban hooks. IPs are
// checked at TCP accept time, player IDs at handshake. Additions are held
// in memory only; nothing writes them back to the settings document.
type BanList struct {
	mu      sync.Mutex
	players map[wire.ID]struct{}
	ips     map[string]struct{}
}

func NewBanList(playerIDs []wire.ID, ips []string) *BanList {
	bl := &BanList{
		players: make(map[wire.ID]struct{}, len(playerIDs)),
		ips:     make(map[string]struct{}, len(ips)),
	}
	for _, id := range playerIDs {
		bl.players[id] = struct{}{}
	}
	for _, ip := range ips {
		bl.ips[ip] = struct{}{}
	}
	return bl
}

func (b *BanList) BanPlayer(id wire.ID) {
	b.mu.Lock()
	b.players[id] = struct{}{}
	b.mu.Unlock()
}

func (b *BanList) BanIP(ip string) {
	b.mu.Lock()
	b.ips[ip] = struct{}{}
	b.mu.Unlock()
}

func (b *BanList) IsPlayerBanned(id wire.ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.players[id]
	return ok
}

func (b *BanList) IsIPBanned(ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.ips[ip]
	return ok
}

// Snapshot returns a copy of the current ban lists.
func (b *BanList) Snapshot() (players []wire.ID, ips []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.players {
		players = append(players, id)
	}
	for ip := range b.ips {
		ips = append(ips, ip)
	}
	return players, ips
}
