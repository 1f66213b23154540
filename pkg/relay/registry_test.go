package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-relay/server/pkg/wire"
)

func testID(b byte) wire.ID {
	var id wire.ID
	id[0] = b
	return id
}

func TestResolveConnectCreatesRecordOnFirstConnect(t *testing.T) {
	r := NewRegistry()
	id := testID(1)

	rec, first, toDisplace := r.resolveConnect(id, wire.NewName("Mario"))
	require.True(t, first)
	require.Nil(t, toDisplace)
	require.NotNil(t, rec)
	assert.Equal(t, id, rec.ID())
	assert.False(t, rec.Online())
}

func TestFinalizeAttachMakesPlayerOnlineAndReverseLookupConsistent(t *testing.T) {
	r := NewRegistry()
	id := testID(2)
	rec, first, _ := r.resolveConnect(id, wire.NewName("Luigi"))

	sess := &Session{}
	r.finalizeAttach(rec, wire.NewName("Luigi"), first, sess)

	assert.True(t, rec.Online())
	got, ok := r.recordForSession(sess)
	require.True(t, ok)
	assert.Equal(t, id, got.ID())
}

func TestResolveConnectOnSecondConnectReturnsExistingOnlineSession(t *testing.T) {
	r := NewRegistry()
	id := testID(3)
	rec, _, _ := r.resolveConnect(id, wire.NewName("Peach"))
	sess1 := &Session{}
	r.finalizeAttach(rec, wire.NewName("Peach"), true, sess1)

	_, first, toDisplace := r.resolveConnect(id, wire.NewName("Peach"))
	assert.False(t, first)
	assert.Same(t, sess1, toDisplace)
}

func TestDetachOnlyClearsPresenceForCurrentSession(t *testing.T) {
	r := NewRegistry()
	id := testID(4)
	rec, _, _ := r.resolveConnect(id, wire.NewName("Daisy"))
	sessOld := &Session{}
	r.finalizeAttach(rec, wire.NewName("Daisy"), true, sessOld)

	// A new session displaces the old one.
	sessNew := &Session{}
	r.finalizeAttach(rec, wire.NewName("Daisy"), false, sessNew)

	// The stale old session's detach must not clobber the new presence.
	r.detach(sessOld)
	assert.Same(t, sessNew, rec.Presence())

	r.detach(sessNew)
	assert.Nil(t, rec.Presence())
}

func TestOnlineSnapshotsExcludesOfflineAndExcludedSession(t *testing.T) {
	r := NewRegistry()
	id1, id2 := testID(5), testID(6)
	rec1, _, _ := r.resolveConnect(id1, wire.NewName("A"))
	rec2, _, _ := r.resolveConnect(id2, wire.NewName("B"))
	sess1, sess2 := &Session{}, &Session{}
	r.finalizeAttach(rec1, wire.NewName("A"), true, sess1)
	r.finalizeAttach(rec2, wire.NewName("B"), true, sess2)

	snaps := r.OnlineSnapshots(sess1)
	require.Len(t, snaps, 1)
	assert.Equal(t, id2, snaps[0].id)

	all := r.OnlineSnapshots(nil)
	assert.Len(t, all, 2)
}

func TestSessionsExceptOmitsOfflineRecords(t *testing.T) {
	r := NewRegistry()
	id := testID(7)
	rec, _, _ := r.resolveConnect(id, wire.NewName("Offline"))
	_ = rec

	assert.Empty(t, r.sessionsExcept(nil))
}
