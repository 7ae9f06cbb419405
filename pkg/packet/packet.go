// Package packet declares a small fixed-size protocol on top of recast: every
// packet is eight bytes, a type byte followed by a seven byte payload whose
// meaning depends on the type.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"

	"github.com/rawbytedev/recast"
)

// Packet types.
const (
	TypePing   uint8 = 0x00
	TypePong   uint8 = 0x01
	TypeStatus uint8 = 0x02
)

const (
	Size        = 8
	PayloadSize = Size - 1
)

var (
	ErrShortPacket = errors.New("packet: short packet")
	ErrReserved    = errors.New("packet: reserved byte must be zero")
)

// Packet is the base record as it arrives off the wire.
type Packet struct {
	kind uint8
	data [PayloadSize]byte
}

// Status reports a node id (4 bytes, big-endian) and three status bytes.
type Status struct {
	kind  uint8
	id    [4]byte
	flags [3]byte
}

// Ping carries a nonce the peer echoes back and a hop counter.
type Ping struct {
	kind  uint8
	nonce [6]byte
	hops  uint8
}

// Pong echoes a ping's nonce. Its last byte is reserved.
type Pong struct {
	kind     uint8
	nonce    [6]byte
	reserved uint8
}

// Every variant is exactly as large as Packet.
var (
	_ [unsafe.Sizeof(Packet{}) - unsafe.Sizeof(Status{})]struct{}
	_ [unsafe.Sizeof(Status{}) - unsafe.Sizeof(Packet{})]struct{}
	_ [unsafe.Sizeof(Packet{}) - unsafe.Sizeof(Ping{})]struct{}
	_ [unsafe.Sizeof(Ping{}) - unsafe.Sizeof(Packet{})]struct{}
	_ [unsafe.Sizeof(Packet{}) - unsafe.Sizeof(Pong{})]struct{}
	_ [unsafe.Sizeof(Pong{}) - unsafe.Sizeof(Packet{})]struct{}
)

var (
	Family = recast.MustFamily[Packet]("packet", recast.Layout{Offset: 0, Width: 1})

	StatusType = recast.MustDeclare[Packet, Status](Family, recast.Declaration[Status]{
		Name: "status",
		Tags: []uint64{uint64(TypeStatus)},
	})
	PingType = recast.MustDeclare[Packet, Ping](Family, recast.Declaration[Ping]{
		Name: "ping",
		Tags: []uint64{uint64(TypePing)},
	})
	PongType = recast.MustDeclare[Packet, Pong](Family, recast.Declaration[Pong]{
		Name: "pong",
		Tags: []uint64{uint64(TypePong)},
		Check: func(p Pong) error {
			if p.reserved != 0 {
				return ErrReserved
			}
			return nil
		},
	})
)

// New builds a packet from its type and raw payload.
func New(kind uint8, payload [PayloadSize]byte) Packet {
	return Packet{kind: kind, data: payload}
}

// Parse copies the first Size bytes of b into a Packet.
func Parse(b []byte) (Packet, error) {
	if len(b) < Size {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	var p Packet
	copy(recast.RawBytes(&p), b[:Size])
	return p, nil
}

// NewStatus encodes a status packet.
func NewStatus(nodeID uint32, flags [3]byte) Packet {
	p := Packet{kind: TypeStatus}
	binary.BigEndian.PutUint32(p.data[0:4], nodeID)
	copy(p.data[4:], flags[:])
	return p
}

// NewPing encodes a ping packet.
func NewPing(nonce [6]byte, hops uint8) Packet {
	p := Packet{kind: TypePing}
	copy(p.data[:6], nonce[:])
	p.data[6] = hops
	return p
}

// EchoPong answers a ping.
func EchoPong(p Ping) Packet {
	out := Packet{kind: TypePong}
	copy(out.data[:6], p.nonce[:])
	return out
}

func (p Packet) Type() uint8 { return p.kind }

func (p Packet) Payload() [PayloadSize]byte { return p.data }

func (p *Packet) SetPayload(data [PayloadSize]byte) { p.data = data }

// Bytes returns a copy of the wire form.
func (p Packet) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, recast.RawBytes(&p))
	return b
}

func (p Packet) String() string {
	if name, err := Family.Classify(&p); err == nil {
		return fmt.Sprintf("%s % x", name, p.data)
	}
	return fmt.Sprintf("type=0x%02x % x", p.kind, p.data)
}

func (s Status) Type() uint8 { return s.kind }

func (s Status) NodeID() uint32 { return binary.BigEndian.Uint32(s.id[:]) }

func (s Status) IDBytes() [4]byte { return s.id }

func (s Status) Flags() [3]byte { return s.flags }

func (s Status) Flag(i int) uint8 { return s.flags[i] }

// SetFlag is only reachable through an owned Status or an exclusive view;
// it never touches the type byte.
func (s *Status) SetFlag(i int, v uint8) { s.flags[i] = v }

// Packet returns s in its base shape.
func (s Status) Packet() Packet { return StatusType.Upcast(s) }

func (p Ping) Nonce() [6]byte { return p.nonce }

func (p Ping) Hops() uint8 { return p.hops }

func (p *Ping) Hop() { p.hops++ }

func (p Ping) Packet() Packet { return PingType.Upcast(p) }

func (p Pong) Nonce() [6]byte { return p.nonce }

func (p Pong) Packet() Packet { return PongType.Upcast(p) }
