// Package wire defines the binary wireless message format spoken between
// the board and the robot. Every message starts with a single
// discriminant byte followed by fixed-size fields; nothing on the link is
// larger than ~40 bytes.
package wire

import (
	"errors"
	"fmt"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
)

// Message discriminants.
const (
	MsgProgramStart byte = 0x01
	MsgBlockData    byte = 0x02
	MsgProgramEnd   byte = 0x03
	MsgProgramAck   byte = 0x04
	MsgPairRequest  byte = 0x10
	MsgPairAck      byte = 0x11
	MsgUnpair       byte = 0x12
)

// ErrMalformed marks a datagram whose length does not match its
// discriminant. Malformed messages are dropped without state change.
var ErrMalformed = errors.New("wire: malformed message")

// Message is the interface for all decoded wireless messages.
type Message interface {
	isMessage()
}

// ProgramStart announces how many blocks are about to follow.
type ProgramStart struct {
	Count uint8
}

func (ProgramStart) isMessage() {}

// BlockData carries one block record tagged with its 0-based index.
type BlockData struct {
	Index  uint8
	Record block.Record
}

func (BlockData) isMessage() {}

// ProgramEnd signals the receiver to finalize and start executing.
type ProgramEnd struct{}

func (ProgramEnd) isMessage() {}

// ProgramAck confirms a complete program back to the sender.
type ProgramAck struct {
	Count uint8
}

func (ProgramAck) isMessage() {}

// PairRequest is broadcast by the board while pairing; Addr is the
// board's own address.
type PairRequest struct {
	Addr bloco.Addr
}

func (PairRequest) isMessage() {}

// PairAck is the robot's unicast reply carrying its own address.
type PairAck struct {
	Addr bloco.Addr
}

func (PairAck) isMessage() {}

// Unpair tells the current peer the pairing has been torn down.
type Unpair struct{}

func (Unpair) isMessage() {}

// Encode serializes a message into its on-air bytes.
func Encode(m Message) []byte {
	switch msg := m.(type) {
	case ProgramStart:
		return []byte{MsgProgramStart, msg.Count}
	case BlockData:
		buf := make([]byte, 2, 2+block.RecordSize)
		buf[0] = MsgBlockData
		buf[1] = msg.Index
		return append(buf, msg.Record.Marshal()...)
	case ProgramEnd:
		return []byte{MsgProgramEnd}
	case ProgramAck:
		return []byte{MsgProgramAck, msg.Count}
	case PairRequest:
		return append([]byte{MsgPairRequest}, msg.Addr[:]...)
	case PairAck:
		return append([]byte{MsgPairAck}, msg.Addr[:]...)
	case Unpair:
		return []byte{MsgUnpair}
	default:
		// Unreachable for the sealed set above.
		panic(fmt.Sprintf("wire: cannot encode %T", m))
	}
}

// Decode parses one datagram. A payload whose length is wrong for its
// discriminant, or an unknown discriminant, yields ErrMalformed.
func Decode(data []byte) (Message, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}

	switch data[0] {
	case MsgProgramStart:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: PROGRAM_START needs 2 bytes, got %d", ErrMalformed, len(data))
		}
		return ProgramStart{Count: data[1]}, nil

	case MsgBlockData:
		if len(data) < 2+block.RecordSize {
			return nil, fmt.Errorf("%w: BLOCK_DATA needs %d bytes, got %d", ErrMalformed, 2+block.RecordSize, len(data))
		}
		rec, err := block.Unmarshal(data[2:])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return BlockData{Index: data[1], Record: rec}, nil

	case MsgProgramEnd:
		return ProgramEnd{}, nil

	case MsgProgramAck:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: PROGRAM_ACK needs 2 bytes, got %d", ErrMalformed, len(data))
		}
		return ProgramAck{Count: data[1]}, nil

	case MsgPairRequest:
		if len(data) < 7 {
			return nil, fmt.Errorf("%w: PAIR_REQUEST needs 7 bytes, got %d", ErrMalformed, len(data))
		}
		var addr bloco.Addr
		copy(addr[:], data[1:7])
		return PairRequest{Addr: addr}, nil

	case MsgPairAck:
		if len(data) < 7 {
			return nil, fmt.Errorf("%w: PAIR_ACK needs 7 bytes, got %d", ErrMalformed, len(data))
		}
		var addr bloco.Addr
		copy(addr[:], data[1:7])
		return PairAck{Addr: addr}, nil

	case MsgUnpair:
		return Unpair{}, nil

	default:
		return nil, fmt.Errorf("%w: unknown discriminant 0x%02X", ErrMalformed, data[0])
	}
}
