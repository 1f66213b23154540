// Package wire implements the binary framing and packet types exchanged
// between game clients and the relay.
package wire

import "fmt"

// Kind identifies the semantic type of a packet body. The numeric values
// are fixed by the client mod and must never be renumbered.
type Kind uint16

const (
	KindInit        Kind = 0
	KindPlayer      Kind = 1
	KindCap         Kind = 2
	KindGame        Kind = 3
	KindTag         Kind = 4
	KindConnect     Kind = 5
	KindDisconnect  Kind = 6
	KindCostume     Kind = 7
	KindShine       Kind = 8
	KindCapture     Kind = 9
	KindChangeStage Kind = 10
	KindCommand     Kind = 11

	// KindMalformed is never produced by a client and never decoded; it is
	// a write-only sentinel the admin crash() hook uses to ask the Encoder
	// for a deliberately invalid frame (spec.md §4.8: "malformed-on-purpose
	// packet to force the client to exit").
	KindMalformed Kind = 0xFFFE
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "Init"
	case KindPlayer:
		return "Player"
	case KindCap:
		return "Cap"
	case KindGame:
		return "Game"
	case KindTag:
		return "Tag"
	case KindConnect:
		return "Connect"
	case KindDisconnect:
		return "Disconnect"
	case KindCostume:
		return "Costume"
	case KindShine:
		return "Shine"
	case KindCapture:
		return "Capture"
	case KindChangeStage:
		return "ChangeStage"
	case KindCommand:
		return "Command"
	default:
		return fmt.Sprintf("Kind(%d)", uint16(k))
	}
}

// Fixed field widths on the wire. Names and stage identifiers are
// nul-padded fixed arrays, never length-prefixed.
const (
	HeaderSize = 20
	NameSize   = 32
	StageSize  = 64
	IDFieldSize = 128
)

// bodySize returns the expected body length for a packet kind, or -1 if
// the kind is unknown to the codec.
func bodySize(k Kind) int {
	switch k {
	case KindInit:
		return 2 // max_players u16
	case KindPlayer:
		return 3*4 + 4*4 // position + rotation, f32 each
	case KindCap:
		return capBodySize
	case KindGame:
		return 1 + 1 + StageSize // scenario + is2d + stage name
	case KindTag:
		return 6
	case KindConnect:
		return 1 + 2 + NameSize // connect_kind + max_players + name
	case KindDisconnect:
		return 0
	case KindCostume:
		return NameSize + NameSize
	case KindShine:
		return 4 + 1
	case KindCapture:
		return NameSize
	case KindChangeStage:
		return StageSize + IDFieldSize + 1 + 1
	case KindCommand:
		return -1 // variable length text, validated separately
	default:
		return -1
	}
}

// capBodySize is the cap-throw telemetry body width. The spec only names
// the packet as "cap-throw telemetry" without enumerating fields; we
// follow the client mod's layout used elsewhere in the pack for avatar
// throw packets: position (3xf32) + rotation (4xf32) + an action byte.
const capBodySize = 3*4 + 4*4 + 1

// ID is the 16-byte opaque player identifier supplied during handshake.
type ID [16]byte

func (id ID) String() string {
	return uuidString(id)
}

func (id ID) IsZero() bool {
	return id == ID{}
}

// Name is a fixed 32-byte nul-padded UTF-8 player name.
type Name [NameSize]byte

func NewName(s string) Name {
	var n Name
	copy(n[:], s)
	return n
}

func (n Name) String() string {
	return trimNul(n[:])
}

// Stage is a fixed 64-byte nul-padded stage/scene identifier.
type Stage [StageSize]byte

func NewStage(s string) Stage {
	var st Stage
	copy(st[:], s)
	return st
}

func (s Stage) String() string {
	return trimNul(s[:])
}

func trimNul(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Header is the fixed 20-byte prefix common to every packet on the wire.
type Header struct {
	Sender ID
	Kind   Kind
	Length uint16
}

// Packet pairs a decoded header with its typed body.
type Packet struct {
	Header Header
	Body   any
}

// Body types, one per Kind. Field order matches the wire layout exactly.

type InitBody struct {
	MaxPlayers uint16
}

type Vec3 struct{ X, Y, Z float32 }

type Quaternion struct{ X, Y, Z, W float32 }

type PlayerBody struct {
	Position Vec3
	Rotation Quaternion
}

type CapBody struct {
	Position Vec3
	Rotation Quaternion
	Action   byte
}

type GameBody struct {
	Scenario byte
	Is2D     bool
	Stage    Stage
}

// TagRole enumerates the minigame role/state carried in a Tag packet.
type TagRole byte

const (
	TagRoleSeeker TagRole = 0
	TagRoleHider  TagRole = 1
	TagRoleFrozen TagRole = 2
	TagRoleIt     TagRole = 3
)

type TagBody struct {
	UpdateKind byte // bit0 = time update, bit1 = role/state update
	Role       TagRole
	Minutes    uint16
	Seconds    byte
}

func (t TagBody) HasTimeUpdate() bool { return t.UpdateKind&0x1 != 0 }
func (t TagBody) HasRoleUpdate() bool { return t.UpdateKind&0x2 != 0 }

// ConnectKind distinguishes a brand-new handshake from a reconnect.
type ConnectKind byte

const (
	ConnectFirstTime ConnectKind = 0
	ConnectReconnect ConnectKind = 1
)

type ConnectBody struct {
	ConnectKind ConnectKind
	MaxPlayers  uint16
	Name        Name
}

type DisconnectBody struct{}

type CostumeBody struct {
	BodyName Name
	CapName  Name
}

type ShineBody struct {
	ShineID uint32
	IsGrand bool
}

type CaptureBody struct {
	CapturedEnemy Name
}

type ChangeStageBody struct {
	StageName   Stage
	ID          [IDFieldSize]byte
	Scenario    byte
	SubScenario byte
}

type CommandBody struct {
	Text string
}

// NewIDField builds the 128-byte id field carried by a ChangeStage packet,
// nul-padded the same way Name and Stage are.
func NewIDField(s string) [IDFieldSize]byte {
	var b [IDFieldSize]byte
	copy(b[:], s)
	return b
}
