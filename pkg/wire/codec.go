package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrProtocol is the sentinel wrapped by every malformed-frame error the
// codec produces. A session that receives it must close, not retry.
var ErrProtocol = errors.New("wire: protocol error")

// ErrBodyLengthMismatch means the header's declared body length disagrees
// with the expected width for the declared kind.
var ErrBodyLengthMismatch = fmt.Errorf("%w: body length mismatch", ErrProtocol)

// ErrUnknownKind means the header names a packet kind the codec does not
// recognize.
var ErrUnknownKind = fmt.Errorf("%w: unknown packet kind", ErrProtocol)

// maxCommandBody bounds the one variable-length body (Command) against
// runaway allocation from a corrupt or hostile length field.
const maxCommandBody = 4096

// Decoder reads framed packets off a byte stream. It is not safe for
// concurrent use; each Session owns exactly one Decoder on its read loop,
// matching gate's one-decoder-per-connection discipline.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: br}
}

// ReadPacket reads exactly one header-plus-body frame. Any end of stream
// before the frame is complete (no bytes, a partial header, or a partial
// body) is returned as io.EOF so the caller can treat it as a normal
// stream end.
func (d *Decoder) ReadPacket() (*Packet, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		// A partial header is still just an interrupted stream, not a
		// malformed frame: surface both flavors of short read as a plain
		// end-of-stream so the session closes normally (spec: "short
		// reads at EOF surface as end-of-stream").
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	var h Header
	copy(h.Sender[:], hdr[0:16])
	h.Kind = Kind(binary.LittleEndian.Uint16(hdr[16:18]))
	h.Length = binary.LittleEndian.Uint16(hdr[18:20])

	expected := bodySize(h.Kind)
	if expected < 0 && h.Kind != KindCommand {
		return nil, fmt.Errorf("%w: kind=%d", ErrUnknownKind, uint16(h.Kind))
	}
	if h.Kind == KindCommand {
		if int(h.Length) > maxCommandBody {
			return nil, fmt.Errorf("%w: command body too large (%d)", ErrProtocol, h.Length)
		}
	} else if int(h.Length) != expected {
		return nil, fmt.Errorf("%w: kind=%s declared=%d expected=%d", ErrBodyLengthMismatch, h.Kind, h.Length, expected)
	}

	body := make([]byte, h.Length)
	if h.Length > 0 {
		if _, err := io.ReadFull(d.r, body); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, err
		}
	}

	decoded, err := decodeBody(h.Kind, body)
	if err != nil {
		return nil, err
	}
	return &Packet{Header: h, Body: decoded}, nil
}

func decodeBody(k Kind, b []byte) (any, error) {
	switch k {
	case KindInit:
		return InitBody{MaxPlayers: le16(b, 0)}, nil
	case KindPlayer:
		return PlayerBody{
			Position: readVec3(b, 0),
			Rotation: readQuat(b, 12),
		}, nil
	case KindCap:
		return CapBody{
			Position: readVec3(b, 0),
			Rotation: readQuat(b, 12),
			Action:   b[28],
		}, nil
	case KindGame:
		var g GameBody
		g.Scenario = b[0]
		g.Is2D = b[1] != 0
		copy(g.Stage[:], b[2:2+StageSize])
		return g, nil
	case KindTag:
		return TagBody{
			UpdateKind: b[0],
			Role:       TagRole(b[1]),
			Minutes:    le16(b, 2),
			Seconds:    b[4],
		}, nil
	case KindConnect:
		var c ConnectBody
		c.ConnectKind = ConnectKind(b[0])
		c.MaxPlayers = le16(b, 1)
		copy(c.Name[:], b[3:3+NameSize])
		return c, nil
	case KindDisconnect:
		return DisconnectBody{}, nil
	case KindCostume:
		var c CostumeBody
		copy(c.BodyName[:], b[0:NameSize])
		copy(c.CapName[:], b[NameSize:2*NameSize])
		return c, nil
	case KindShine:
		return ShineBody{
			ShineID: binary.LittleEndian.Uint32(b[0:4]),
			IsGrand: b[4] != 0,
		}, nil
	case KindCapture:
		var c CaptureBody
		copy(c.CapturedEnemy[:], b[0:NameSize])
		return c, nil
	case KindChangeStage:
		var c ChangeStageBody
		copy(c.StageName[:], b[0:StageSize])
		copy(c.ID[:], b[StageSize:StageSize+IDFieldSize])
		c.Scenario = b[StageSize+IDFieldSize]
		c.SubScenario = b[StageSize+IDFieldSize+1]
		return c, nil
	case KindCommand:
		return CommandBody{Text: string(b)}, nil
	default:
		return nil, fmt.Errorf("%w: kind=%d", ErrUnknownKind, uint16(k))
	}
}

func le16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off : off+2]) }

func readVec3(b []byte, off int) Vec3 {
	return Vec3{
		X: readF32(b, off),
		Y: readF32(b, off+4),
		Z: readF32(b, off+8),
	}
}

func readQuat(b []byte, off int) Quaternion {
	return Quaternion{
		X: readF32(b, off),
		Y: readF32(b, off+4),
		Z: readF32(b, off+8),
		W: readF32(b, off+12),
	}
}

// Encoder writes framed packets to a byte stream. Like Decoder, it is
// owned by exactly one write loop.
type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	return &Encoder{w: bw}
}

// WritePacket encodes and buffers a packet; the caller is responsible for
// flushing (Session's handshake reply buffers several packets and flushes
// once; its write loop flushes after each packet).
func (e *Encoder) WritePacket(sender ID, k Kind, body any) error {
	if k == KindMalformed {
		return e.writeMalformedFrame(sender)
	}
	encoded, err := encodeBody(k, body)
	if err != nil {
		return err
	}
	var hdr [HeaderSize]byte
	copy(hdr[0:16], sender[:])
	binary.LittleEndian.PutUint16(hdr[16:18], uint16(k))
	binary.LittleEndian.PutUint16(hdr[18:20], uint16(len(encoded)))
	if _, err := e.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = e.w.Write(encoded)
	return err
}

// writeMalformedFrame writes a header that declares a Command body far
// longer than anything that follows it, so the receiving client's decoder
// either blocks forever waiting for bytes that never arrive or, for a
// client that doesn't validate declared length against actual stream
// content, reads out of bounds. Either way it is not a frame any
// well-behaved peer recovers from, which is the point: this is the admin
// crash() hook's "stronger kick" (spec.md §4.8).
func (e *Encoder) writeMalformedFrame(sender ID) error {
	var hdr [HeaderSize]byte
	copy(hdr[0:16], sender[:])
	binary.LittleEndian.PutUint16(hdr[16:18], uint16(KindCommand))
	binary.LittleEndian.PutUint16(hdr[18:20], 0xFFFF)
	_, err := e.w.Write(hdr[:])
	return err
}

func (e *Encoder) Flush() error { return e.w.Flush() }

func encodeBody(k Kind, body any) ([]byte, error) {
	switch v := body.(type) {
	case InitBody:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v.MaxPlayers)
		return b, nil
	case PlayerBody:
		b := make([]byte, bodySize(KindPlayer))
		writeVec3(b, 0, v.Position)
		writeQuat(b, 12, v.Rotation)
		return b, nil
	case CapBody:
		b := make([]byte, bodySize(KindCap))
		writeVec3(b, 0, v.Position)
		writeQuat(b, 12, v.Rotation)
		b[28] = v.Action
		return b, nil
	case GameBody:
		b := make([]byte, bodySize(KindGame))
		b[0] = v.Scenario
		if v.Is2D {
			b[1] = 1
		}
		copy(b[2:2+StageSize], v.Stage[:])
		return b, nil
	case TagBody:
		b := make([]byte, bodySize(KindTag))
		b[0] = v.UpdateKind
		b[1] = byte(v.Role)
		binary.LittleEndian.PutUint16(b[2:4], v.Minutes)
		b[4] = v.Seconds
		return b, nil
	case ConnectBody:
		b := make([]byte, bodySize(KindConnect))
		b[0] = byte(v.ConnectKind)
		binary.LittleEndian.PutUint16(b[1:3], v.MaxPlayers)
		copy(b[3:3+NameSize], v.Name[:])
		return b, nil
	case DisconnectBody:
		return nil, nil
	case CostumeBody:
		b := make([]byte, bodySize(KindCostume))
		copy(b[0:NameSize], v.BodyName[:])
		copy(b[NameSize:2*NameSize], v.CapName[:])
		return b, nil
	case ShineBody:
		b := make([]byte, bodySize(KindShine))
		binary.LittleEndian.PutUint32(b[0:4], v.ShineID)
		if v.IsGrand {
			b[4] = 1
		}
		return b, nil
	case CaptureBody:
		b := make([]byte, bodySize(KindCapture))
		copy(b, v.CapturedEnemy[:])
		return b, nil
	case ChangeStageBody:
		b := make([]byte, bodySize(KindChangeStage))
		copy(b[0:StageSize], v.StageName[:])
		copy(b[StageSize:StageSize+IDFieldSize], v.ID[:])
		b[StageSize+IDFieldSize] = v.Scenario
		b[StageSize+IDFieldSize+1] = v.SubScenario
		return b, nil
	case CommandBody:
		return []byte(v.Text), nil
	default:
		return nil, fmt.Errorf("%w: unsupported body type %T", ErrProtocol, body)
	}
}
