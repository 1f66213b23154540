package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-relay/server/pkg/wire"
)

func TestAdminKickClosesTheSession(t *testing.T) {
	r := newTestRelay(t)
	sess, _ := newTestSession(t, r)
	attachTestSession(r, testID(1), wire.NewName("Mario"), sess)
	admin := NewAdmin(r)

	require.NoError(t, admin.Kick(testID(1)))

	require.Eventually(t, func() bool { return sess.State() == StateClosed }, time.Second, 5*time.Millisecond)
}

func TestAdminKickUnknownPlayerErrors(t *testing.T) {
	r := newTestRelay(t)
	admin := NewAdmin(r)
	err := admin.Kick(testID(99))
	assert.Error(t, err)
}

func TestAdminBanDisconnectsOnlinePlayerAndPersistsBan(t *testing.T) {
	r := newTestRelay(t)
	sess, _ := newTestSession(t, r)
	attachTestSession(r, testID(2), wire.NewName("Luigi"), sess)
	admin := NewAdmin(r)

	admin.Ban(testID(2))

	assert.True(t, r.bans.IsPlayerBanned(testID(2)))
	require.Eventually(t, func() bool { return sess.State() == StateClosed }, time.Second, 5*time.Millisecond)
}

func TestAdminResetShinesEmptiesBag(t *testing.T) {
	r := newTestRelay(t)
	r.shines.Add(1)
	admin := NewAdmin(r)

	admin.ResetShines()

	assert.Empty(t, r.shines.Snapshot())
}

func TestAdminCrashSendsMalformedPacketThenCloses(t *testing.T) {
	r := newTestRelay(t)
	sess, _ := newTestSession(t, r)
	attachTestSession(r, testID(4), wire.NewName("Wario"), sess)
	admin := NewAdmin(r)

	require.NoError(t, admin.Crash(testID(4)))

	require.Equal(t, 1, sess.outbound.len())
	pkt, ok := sess.outbound.pop()
	require.True(t, ok)
	assert.Equal(t, wire.KindMalformed, pkt.Header.Kind)
	require.Eventually(t, func() bool { return sess.State() == StateClosed }, time.Second, 5*time.Millisecond)
}

func TestAdminCrashUnknownPlayerErrors(t *testing.T) {
	r := newTestRelay(t)
	admin := NewAdmin(r)
	err := admin.Crash(testID(98))
	assert.Error(t, err)
}

func TestAdminChangeStageTargetsOnlyNamedPlayer(t *testing.T) {
	r := newTestRelay(t)
	target, _ := newTestSession(t, r)
	other, _ := newTestSession(t, r)
	attachTestSession(r, testID(5), wire.NewName("Rosalina"), target)
	attachTestSession(r, testID(6), wire.NewName("Daisy"), other)
	admin := NewAdmin(r)

	require.NoError(t, admin.ChangeStage(testID(5), "Cap", "entry-1", 2, 3))

	require.Equal(t, 1, target.outbound.len())
	assert.Equal(t, 0, other.outbound.len())
	pkt, ok := target.outbound.pop()
	require.True(t, ok)
	body := pkt.Body.(wire.ChangeStageBody)
	assert.Equal(t, "Cap", body.StageName.String())
	assert.Equal(t, byte(2), body.Scenario)
	assert.Equal(t, byte(3), body.SubScenario)
}

func TestAdminChangeStageUnknownPlayerErrors(t *testing.T) {
	r := newTestRelay(t)
	admin := NewAdmin(r)
	err := admin.ChangeStage(testID(97), "Cap", "", 0, 0)
	assert.Error(t, err)
}

func TestAdminListReturnsOnlinePlayersOnly(t *testing.T) {
	r := newTestRelay(t)
	sess, _ := newTestSession(t, r)
	attachTestSession(r, testID(3), wire.NewName("Peach"), sess)
	r.registry.resolveConnect(testID(30), wire.NewName("Offline"))
	admin := NewAdmin(r)

	list := admin.List()
	require.Len(t, list, 1)
	assert.Equal(t, testID(3), list[0].ID)
}
