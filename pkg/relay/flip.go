package relay

import (
	"github.com/odyssey-relay/server/pkg/config"
	"github.com/odyssey-relay/server/pkg/wire"
)

// flipSet resolves the configured flip.players list into a lookup set,
// computed once at Relay construction time.
type flipSet struct {
	enabled bool
	pov     config.FlipPOV
	ids     map[wire.ID]struct{}
}

func newFlipSet(cfg *config.Config) (*flipSet, error) {
	ids, err := cfg.FlipPlayerIDs()
	if err != nil {
		return nil, err
	}
	set := make(map[wire.ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	pov := cfg.Flip.POV
	if pov == "" {
		pov = config.FlipOthersOnly
	}
	return &flipSet{enabled: cfg.Flip.Enabled, pov: pov, ids: set}, nil
}

func (f *flipSet) applies(id wire.ID) bool {
	if !f.enabled {
		return false
	}
	_, ok := f.ids[id]
	return ok
}

// flipQuaternion mutates a copy of q so the avatar renders upside-down on
// the receiving client, by rotating 180 degrees around the forward axis
// (negating the X/Y components while leaving Z/W in place mirrors the
// client mod's own flip transform).
func flipQuaternion(q wire.Quaternion) wire.Quaternion {
	return wire.Quaternion{
		X: -q.X,
		Y: -q.Y,
		Z: q.Z,
		W: q.W,
	}
}

// applyFlip returns, for a Player packet from sender, the packet bodies
// that should go to peers and (optionally) back to the sender itself.
// The sender's own cached PlayerRecord is never mutated by this: callers
// always update transform state from the unflipped body.
func applyFlip(set *flipSet, sender wire.ID, body wire.PlayerBody) (toPeers wire.PlayerBody, toSelf *wire.PlayerBody) {
	if !set.applies(sender) {
		return body, nil
	}
	flipped := body
	flipped.Rotation = flipQuaternion(body.Rotation)

	switch set.pov {
	case config.FlipSelfOnly:
		return body, &flipped
	case config.FlipBoth:
		return flipped, &flipped
	case config.FlipOthersOnly:
		fallthrough
	default:
		return flipped, nil
	}
}
