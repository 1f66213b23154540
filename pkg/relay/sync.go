package relay

import "github.com/odyssey-relay/server/pkg/wire"

// buildReplaySequence produces the scripted packet stream spec.md §4.5
// describes: for every already-online peer, a Connect/Costume/(Capture)/
// Game/Tag/Player sequence reconstructing that peer's last-known state,
// followed by one Shine packet per entry in the shine bag. Peers are
// emitted in the order of the peers slice (Registry.OnlineSnapshots
// orders them by player ID); order within one peer's sub-sequence is
// fixed as listed in spec.md §4.5.
func buildReplaySequence(peers []playerSnapshot, shineIDs []uint32) []*wire.Packet {
	out := make([]*wire.Packet, 0, len(peers)*6+len(shineIDs))
	for _, p := range peers {
		out = append(out, &wire.Packet{
			Header: wire.Header{Sender: p.id, Kind: wire.KindConnect},
			Body: wire.ConnectBody{
				ConnectKind: wire.ConnectReconnect,
				Name:        p.name,
			},
		})
		out = append(out, &wire.Packet{
			Header: wire.Header{Sender: p.id, Kind: wire.KindCostume},
			Body: wire.CostumeBody{
				BodyName: p.costume.BodyName,
				CapName:  p.costume.CapName,
			},
		})
		if p.capture != (wire.Name{}) {
			out = append(out, &wire.Packet{
				Header: wire.Header{Sender: p.id, Kind: wire.KindCapture},
				Body:   wire.CaptureBody{CapturedEnemy: p.capture},
			})
		}
		out = append(out, &wire.Packet{
			Header: wire.Header{Sender: p.id, Kind: wire.KindGame},
			Body: wire.GameBody{
				Scenario: p.scenario,
				Is2D:     p.is2D,
				Stage:    p.stage,
			},
		})
		out = append(out, &wire.Packet{
			Header: wire.Header{Sender: p.id, Kind: wire.KindTag},
			Body:   p.gameMode,
		})
		out = append(out, &wire.Packet{
			Header: wire.Header{Sender: p.id, Kind: wire.KindPlayer},
			Body: wire.PlayerBody{
				Position: p.transform.Position,
				Rotation: p.transform.Rotation,
			},
		})
	}
	for _, id := range shineIDs {
		out = append(out, &wire.Packet{
			Header: wire.Header{Kind: wire.KindShine},
			Body:   wire.ShineBody{ShineID: id, IsGrand: false},
		})
	}
	return out
}

// joinAnnouncement is what peers learn about a just-joined (or
// reconnected) player once it becomes Active: a Connect carrying the
// resolved connect_kind, followed by a Costume if one is already cached.
// Further real-time updates follow through normal broadcast (spec.md
// §4.5).
func joinAnnouncement(rec *PlayerRecord, connectKind wire.ConnectKind) []*wire.Packet {
	snap := rec.snapshot()
	out := []*wire.Packet{
		{
			Header: wire.Header{Sender: snap.id, Kind: wire.KindConnect},
			Body:   wire.ConnectBody{ConnectKind: connectKind, Name: snap.name},
		},
	}
	if snap.costume != (Costume{}) {
		out = append(out, &wire.Packet{
			Header: wire.Header{Sender: snap.id, Kind: wire.KindCostume},
			Body:   wire.CostumeBody{BodyName: snap.costume.BodyName, CapName: snap.costume.CapName},
		})
	}
	return out
}
