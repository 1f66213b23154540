package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripEachKind(t *testing.T) {
	sender := ID{1, 2, 3}
	cases := []struct {
		kind Kind
		body any
	}{
		{KindInit, InitBody{MaxPlayers: 8}},
		{KindPlayer, PlayerBody{Position: Vec3{1, 2, 3}, Rotation: Quaternion{0, 0, 0, 1}}},
		{KindCap, CapBody{Position: Vec3{4, 5, 6}, Rotation: Quaternion{1, 0, 0, 0}, Action: 1}},
		{KindGame, GameBody{Scenario: 5, Is2D: true, Stage: NewStage("Cap")}},
		{KindTag, TagBody{UpdateKind: 3, Role: TagRoleHider, Minutes: 1, Seconds: 30}},
		{KindConnect, ConnectBody{ConnectKind: ConnectReconnect, MaxPlayers: 8, Name: NewName("Mario")}},
		{KindDisconnect, DisconnectBody{}},
		{KindCostume, CostumeBody{BodyName: NewName("Mario"), CapName: NewName("Cap")}},
		{KindShine, ShineBody{ShineID: 42, IsGrand: false}},
		{KindCapture, CaptureBody{CapturedEnemy: NewName("Goomba")}},
		{KindChangeStage, ChangeStageBody{StageName: NewStage("Cap"), Scenario: 1, SubScenario: 2}},
		{KindCommand, CommandBody{Text: "hello world"}},
	}

	for _, c := range cases {
		t.Run(c.kind.String(), func(t *testing.T) {
			var buf bytes.Buffer
			enc := NewEncoder(&buf)
			require.NoError(t, enc.WritePacket(sender, c.kind, c.body))
			require.NoError(t, enc.Flush())

			dec := NewDecoder(&buf)
			pkt, err := dec.ReadPacket()
			require.NoError(t, err)
			assert.Equal(t, sender, pkt.Header.Sender)
			assert.Equal(t, c.kind, pkt.Header.Kind)
			assert.Equal(t, c.body, pkt.Body)
		})
	}
}

func TestFrameBoundarySurvivesArbitrarySplit(t *testing.T) {
	sender := ID{9, 9, 9}
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WritePacket(sender, KindShine, ShineBody{ShineID: 7, IsGrand: true}))
	require.NoError(t, enc.WritePacket(sender, KindPlayer, PlayerBody{Position: Vec3{1, 1, 1}}))
	require.NoError(t, enc.Flush())
	full := buf.Bytes()

	for split := 0; split <= len(full); split++ {
		pr, pw := io.Pipe()
		go func(data []byte, split int) {
			pw.Write(data[:split])
			pw.Write(data[split:])
			pw.Close()
		}(full, split)

		dec := NewDecoder(pr)
		p1, err := dec.ReadPacket()
		require.NoError(t, err, "split=%d", split)
		assert.Equal(t, KindShine, p1.Header.Kind)

		p2, err := dec.ReadPacket()
		require.NoError(t, err, "split=%d", split)
		assert.Equal(t, KindPlayer, p2.Header.Kind)
	}
}

func TestBodyLengthMismatchIsProtocolError(t *testing.T) {
	var buf bytes.Buffer
	var hdr [HeaderSize]byte
	hdr[16] = byte(KindShine)
	hdr[18] = 3 // wrong length for Shine (expects 5)
	buf.Write(hdr[:])
	buf.Write([]byte{1, 2, 3})

	dec := NewDecoder(&buf)
	_, err := dec.ReadPacket()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.ErrorIs(t, err, ErrBodyLengthMismatch)
}

func TestUnknownKindIsProtocolError(t *testing.T) {
	var buf bytes.Buffer
	var hdr [HeaderSize]byte
	hdr[16] = 0xFF
	hdr[17] = 0xFF
	buf.Write(hdr[:])

	dec := NewDecoder(&buf)
	_, err := dec.ReadPacket()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestShortStreamSurfacesAsEOF(t *testing.T) {
	buf := bytes.NewReader([]byte{1, 2, 3})
	dec := NewDecoder(buf)
	_, err := dec.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNameAndStageTrimAtNul(t *testing.T) {
	n := NewName("Mario")
	assert.Equal(t, "Mario", n.String())
	s := NewStage("CapWorldHomeStage")
	assert.Equal(t, "CapWorldHomeStage", s.String())
}
