package relay

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/odyssey-relay/server/pkg/config"
	"github.com/odyssey-relay/server/pkg/wire"
)

func newTestRelay(t *testing.T) *Relay {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{MaxPlayers: 8},
		Shines: config.ShinesConfig{Enabled: true},
	}
	r, err := NewRelay(cfg, zap.NewNop())
	require.NoError(t, err)
	return r
}

func newTestSession(t *testing.T, r *Relay) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	sess := newSession(r, server)
	sess.state.Store(int32(StateActive))
	return sess, client
}

func attachTestSession(r *Relay, id wire.ID, name wire.Name, sess *Session) {
	rec, first, _ := r.registry.resolveConnect(id, name)
	r.registry.finalizeAttach(rec, name, first, sess)
}

func TestHubSubmitExcludesSourceAndDeliversToOthers(t *testing.T) {
	r := newTestRelay(t)
	a, _ := newTestSession(t, r)
	b, _ := newTestSession(t, r)
	attachTestSession(r, testID(1), wire.NewName("A"), a)
	attachTestSession(r, testID(2), wire.NewName("B"), b)

	r.hub.Submit(a, &wire.Packet{Header: wire.Header{Kind: wire.KindPlayer}})

	assert.Equal(t, 0, a.outbound.len())
	assert.Equal(t, 1, b.outbound.len())
}

func TestHubDeliverClosesSessionOnOverflow(t *testing.T) {
	r := newTestRelay(t)
	target, _ := newTestSession(t, r)
	target.outbound = newMailbox(1)
	require.Equal(t, pushed, target.outbound.push(&wire.Packet{Header: wire.Header{Kind: wire.KindPlayer}}))

	r.hub.deliver(target, &wire.Packet{Header: wire.Header{Kind: wire.KindGame}})

	require.Eventually(t, func() bool {
		return target.State() == StateClosing || target.State() == StateClosed
	}, time.Second, 5*time.Millisecond)
}

func TestHubBroadcastAllIncludesSource(t *testing.T) {
	r := newTestRelay(t)
	a, _ := newTestSession(t, r)
	attachTestSession(r, testID(3), wire.NewName("A"), a)

	r.hub.BroadcastAll(&wire.Packet{Header: wire.Header{Kind: wire.KindCommand}})

	assert.Equal(t, 1, a.outbound.len())
}
