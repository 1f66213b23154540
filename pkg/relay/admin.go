package relay

import (
	"fmt"

	"github.com/odyssey-relay/server/pkg/wire"
)

// Admin exposes the operator commands from spec.md §4.8 as plain Go
// methods, independent of whatever surface invokes them (the interactive
// console in pkg/admincli, or the JSON HTTP surface in pkg/adminhttp).
type Admin struct {
	relay *Relay
}

func NewAdmin(r *Relay) *Admin { return &Admin{relay: r} }

// List returns every currently online player.
func (a *Admin) List() []PlayerSummary {
	return a.relay.registry.ListOnline()
}

// Kick disconnects the named player's current session, if any, without
// altering the ban list.
func (a *Admin) Kick(id wire.ID) error {
	sess, ok := a.relay.registry.sessionByID(id)
	if !ok {
		return fmt.Errorf("admin: player %s is not online", id)
	}
	sess.closeWithReason(CloseReasonKicked)
	return nil
}

// Ban adds id to the ban list and, if currently online, disconnects it.
func (a *Admin) Ban(id wire.ID) {
	a.relay.bans.BanPlayer(id)
	if sess, ok := a.relay.registry.sessionByID(id); ok {
		sess.closeWithReason(CloseReasonBanned)
	}
}

// BanIP adds ip to the IP ban list; it has no effect on sessions already
// connected from that address (spec.md §4.8: bans apply at accept time).
func (a *Admin) BanIP(ip string) {
	a.relay.bans.BanIP(ip)
}

// SendChat delivers a server-authored chat Command packet to every
// connected player (spec.md §4.8 send_chat).
func (a *Admin) SendChat(text string) {
	a.relay.hub.BroadcastAll(&wire.Packet{
		Header: wire.Header{Kind: wire.KindCommand},
		Body:   wire.CommandBody{Text: text},
	})
}

// Crash sends id a deliberately malformed packet and then closes its
// session, a stronger alternative to Kick for clients that ignore a clean
// disconnect (spec.md §4.8 crash).
func (a *Admin) Crash(id wire.ID) error {
	sess, ok := a.relay.registry.sessionByID(id)
	if !ok {
		return fmt.Errorf("admin: player %s is not online", id)
	}
	a.relay.hub.TargetedSend(id, &wire.Packet{
		Header: wire.Header{Sender: id, Kind: wire.KindMalformed},
	})
	sess.closeWithReason(CloseReasonCrash)
	return nil
}

// ResetShines clears the shine dedup bag so every collected shine is
// broadcast again on next pickup and is no longer replayed to joiners
// (spec.md §4.8 reset_shines). No packet is sent to connected clients.
func (a *Admin) ResetShines() {
	a.relay.shines.Reset()
	a.relay.log.Info("shine bag reset by operator")
}

// ChangeStage sends id a targeted ChangeStage packet to force-warp that
// one client to stageName/idField/scenario/subScenario (spec.md §4.8
// change_stage). This is the only source of ChangeStage packets: ones
// sent by clients are ignored by Relay.dispatch, never relayed.
func (a *Admin) ChangeStage(id wire.ID, stageName, idField string, scenario, subScenario byte) error {
	ok := a.relay.hub.TargetedSend(id, &wire.Packet{
		Header: wire.Header{Kind: wire.KindChangeStage},
		Body: wire.ChangeStageBody{
			StageName:   wire.NewStage(stageName),
			ID:          wire.NewIDField(idField),
			Scenario:    scenario,
			SubScenario: subScenario,
		},
	})
	if !ok {
		return fmt.Errorf("admin: player %s is not online", id)
	}
	return nil
}

// Uptime-style helpers used by the HTTP status endpoint.
func (a *Admin) PlayerCount() int { return len(a.relay.registry.allSessions()) }
func (a *Admin) MaxPlayers() int  { return a.relay.config.Server.MaxPlayers }
