package relay

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-relay/server/pkg/wire"
)

type testClient struct {
	conn net.Conn
	enc  *wire.Encoder
	dec  *wire.Decoder
}

func newTestClient(conn net.Conn) *testClient {
	return &testClient{conn: conn, enc: wire.NewEncoder(conn), dec: wire.NewDecoder(conn)}
}

func (c *testClient) connect(t *testing.T, id wire.ID, name string) {
	t.Helper()
	require.NoError(t, c.enc.WritePacket(id, wire.KindConnect, wire.ConnectBody{
		ConnectKind: wire.ConnectFirstTime,
		Name:        wire.NewName(name),
	}))
	require.NoError(t, c.enc.Flush())
}

func (c *testClient) readPacket(t *testing.T) *wire.Packet {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	pkt, err := c.dec.ReadPacket()
	require.NoError(t, err)
	return pkt
}

func TestSessionHandshakeSendsInitThenConnectEcho(t *testing.T) {
	r := newTestRelay(t)
	server, client := net.Pipe()
	defer client.Close()

	sess := newSession(r, server)
	go sess.run()

	c := newTestClient(client)
	id := testID(42)
	c.connect(t, id, "Mario")

	initPkt := c.readPacket(t)
	assert.Equal(t, wire.KindInit, initPkt.Header.Kind)

	echoPkt := c.readPacket(t)
	require.Equal(t, wire.KindConnect, echoPkt.Header.Kind)
	body := echoPkt.Body.(wire.ConnectBody)
	assert.Equal(t, wire.ConnectFirstTime, body.ConnectKind)

	require.Eventually(t, func() bool { return sess.State() == StateActive }, time.Second, 5*time.Millisecond)
	assert.Equal(t, id, sess.ID())
}

func TestSessionSecondJoinerReplaysFirstJoinersState(t *testing.T) {
	r := newTestRelay(t)

	serverA, clientA := net.Pipe()
	defer clientA.Close()
	sessA := newSession(r, serverA)
	go sessA.run()
	a := newTestClient(clientA)
	idA := testID(1)
	a.connect(t, idA, "Mario")
	_ = a.readPacket(t) // Init
	_ = a.readPacket(t) // Connect echo
	require.Eventually(t, func() bool { return sessA.State() == StateActive }, time.Second, 5*time.Millisecond)

	require.NoError(t, a.enc.WritePacket(idA, wire.KindCostume, wire.CostumeBody{
		BodyName: wire.NewName("Mario"), CapName: wire.NewName("Mario"),
	}))
	require.NoError(t, a.enc.Flush())
	time.Sleep(20 * time.Millisecond)

	serverB, clientB := net.Pipe()
	defer clientB.Close()
	sessB := newSession(r, serverB)
	go sessB.run()
	b := newTestClient(clientB)
	idB := testID(2)
	b.connect(t, idB, "Luigi")

	_ = b.readPacket(t) // Init
	_ = b.readPacket(t) // Connect echo for B itself

	replayConnect := b.readPacket(t)
	require.Equal(t, wire.KindConnect, replayConnect.Header.Kind)
	assert.Equal(t, idA, replayConnect.Header.Sender)

	replayCostume := b.readPacket(t)
	require.Equal(t, wire.KindCostume, replayCostume.Header.Kind)
	assert.Equal(t, idA, replayCostume.Header.Sender)
}

func TestSessionDisconnectBodyClosesSessionCleanly(t *testing.T) {
	r := newTestRelay(t)
	server, client := net.Pipe()
	defer client.Close()
	sess := newSession(r, server)
	go sess.run()

	c := newTestClient(client)
	id := testID(5)
	c.connect(t, id, "Peach")
	_ = c.readPacket(t)
	_ = c.readPacket(t)
	require.Eventually(t, func() bool { return sess.State() == StateActive }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.enc.WritePacket(id, wire.KindDisconnect, wire.DisconnectBody{}))
	require.NoError(t, c.enc.Flush())

	require.Eventually(t, func() bool { return sess.State() == StateClosed }, time.Second, 5*time.Millisecond)
	_, exists := r.registry.Get(id)
	assert.True(t, exists)
	rec, _ := r.registry.Get(id)
	assert.False(t, rec.Online())
}
