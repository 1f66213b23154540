package relay

import "sync"

// ShineBag is the monotonically growing set of collected shine ids the
// server remembers for the lifetime of the process (spec.md §4.7). It
// uses the same single-mutex discipline as Registry and BanList.
type ShineBag struct {
	mu  sync.Mutex
	ids map[uint32]struct{}
}

func NewShineBag() *ShineBag {
	return &ShineBag{ids: make(map[uint32]struct{})}
}

// Add inserts id into the bag. It returns true if the id was newly added
// (the caller should broadcast), false if it was already present (the
// caller must not rebroadcast).
func (b *ShineBag) Add(id uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.ids[id]; ok {
		return false
	}
	b.ids[id] = struct{}{}
	return true
}

// Reset empties the bag (admin reset_shines() hook).
func (b *ShineBag) Reset() {
	b.mu.Lock()
	b.ids = make(map[uint32]struct{})
	b.mu.Unlock()
}

// Snapshot returns every collected shine id, in no particular order, for
// the sync engine to replay to a new joiner.
func (b *ShineBag) Snapshot() []uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint32, 0, len(b.ids))
	for id := range b.ids {
		out = append(out, id)
	}
	return out
}
