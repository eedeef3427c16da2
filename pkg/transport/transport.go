// Package transport packetizes programs into START / DATA / END wireless
// messages and reassembles them on the receiving side. Reliability is at
// whole-program granularity: the receiver acknowledges a complete program
// once, the sender only logs the acknowledgement and never blocks on it.
package transport

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
	"github.com/bloco-robotics/bloco/pkg/wire"
)

// ErrIncompleteProgram marks a PROGRAM_END that arrived before enough
// blocks did. The partial program is discarded, no ack is sent.
var ErrIncompleteProgram = errors.New("transport: incomplete program")

// DefaultPacing is the delay between consecutive messages of one
// program, respecting the link's transmit pacing.
const DefaultPacing = 20 * time.Millisecond

// Sender pushes programs over a link.
type Sender struct {
	link   bloco.Link
	pacing time.Duration
}

func NewSender(link bloco.Link) *Sender {
	return &Sender{link: link, pacing: DefaultPacing}
}

// SetPacing overrides the inter-message delay (tests use zero).
func (s *Sender) SetPacing(d time.Duration) { s.pacing = d }

// SendProgram transmits blocks to dest as one program: PROGRAM_START,
// one BLOCK_DATA per record, PROGRAM_END. Individual message loss is not
// retried; the receiver either acks the whole program or stays silent.
func (s *Sender) SendProgram(dest bloco.Addr, blocks []block.Record) error {
	if len(blocks) == 0 {
		return fmt.Errorf("transport: no blocks to send")
	}
	if len(blocks) > block.MaxProgramLen {
		return fmt.Errorf("transport: program too large: %d blocks, max %d", len(blocks), block.MaxProgramLen)
	}

	log.Printf(">>> Sending %d block(s) to %s <<<", len(blocks), dest)

	if err := s.link.Send(dest, wire.Encode(wire.ProgramStart{Count: uint8(len(blocks))})); err != nil {
		return fmt.Errorf("transport: send PROGRAM_START: %w", err)
	}
	time.Sleep(s.pacing)

	for i, rec := range blocks {
		msg := wire.BlockData{Index: uint8(i), Record: rec}
		if err := s.link.Send(dest, wire.Encode(msg)); err != nil {
			return fmt.Errorf("transport: send block %d: %w", i, err)
		}
		log.Printf("  Sent block %d: type=%s name=%s", i, rec.Type, rec.DisplayName())
		time.Sleep(s.pacing)
	}

	if err := s.link.Send(dest, wire.Encode(wire.ProgramEnd{})); err != nil {
		return fmt.Errorf("transport: send PROGRAM_END: %w", err)
	}

	log.Println(">>> Program sent <<<")
	return nil
}

// HandleAck logs a PROGRAM_ACK from the peer. The sender takes no other
// action on it.
func (s *Sender) HandleAck(src bloco.Addr, ack wire.ProgramAck) {
	log.Printf("Peer %s confirmed: received %d blocks successfully", src, ack.Count)
}

// Receiver reassembles programs from incoming messages.
//
// The state machine is Idle -> Receiving -> Idle. A PROGRAM_START while
// already Receiving reinitializes with no partial-program carryover.
// Accepted programs are handed off through a single-slot latest-wins
// channel; a new program overwrites one not yet consumed, so back-to-back
// rapid re-sends can be coalesced.
type Receiver struct {
	link bloco.Link

	inProgress bool
	expected   uint8
	count      uint8
	blocks     [block.MaxProgramLen]block.Record

	ready chan []block.Record
}

func NewReceiver(link bloco.Link) *Receiver {
	return &Receiver{
		link:  link,
		ready: make(chan []block.Record, 1),
	}
}

// Ready returns the channel on which accepted programs are delivered.
// The executor task is its only consumer.
func (r *Receiver) Ready() <-chan []block.Record { return r.ready }

// HandleMessage feeds one decoded message into the state machine. It is
// called from the link's receive context and never blocks.
func (r *Receiver) HandleMessage(src bloco.Addr, m wire.Message) {
	switch msg := m.(type) {
	case wire.ProgramStart:
		r.expected = msg.Count
		r.count = 0
		r.inProgress = true

		if r.expected > block.MaxProgramLen {
			log.Printf("Program too large (%d blocks), capping to %d", r.expected, block.MaxProgramLen)
			r.expected = block.MaxProgramLen
		}
		log.Printf("<<< Program start: expecting %d blocks >>>", r.expected)

	case wire.BlockData:
		if !r.inProgress {
			return
		}
		if int(msg.Index) >= block.MaxProgramLen {
			return
		}
		// Last write wins on a duplicate index, and the counter still
		// advances. A retransmitted block can therefore satisfy the
		// completeness check in place of a missing one.
		r.blocks[msg.Index] = msg.Record
		r.count++
		log.Printf("  Received block %d: type=%s name=%s", msg.Index, msg.Record.Type, msg.Record.DisplayName())

	case wire.ProgramEnd:
		if !r.inProgress {
			return
		}
		r.inProgress = false

		log.Printf("<<< Program end: got %d/%d blocks >>>", r.count, r.expected)

		if r.count < r.expected {
			log.Printf("Incomplete program, discarding: %v", ErrIncompleteProgram)
			return
		}

		// Ack back to the sender, registering it as a peer if needed.
		_ = r.link.AddPeer(src)
		if err := r.link.Send(src, wire.Encode(wire.ProgramAck{Count: r.expected})); err != nil {
			log.Printf("Failed to send PROGRAM_ACK: %v", err)
		} else {
			log.Printf("Program received successfully (%d blocks), ACK sent", r.expected)
		}

		program := make([]block.Record, r.expected)
		copy(program, r.blocks[:r.expected])
		r.deliver(program)
	}
}

func (r *Receiver) deliver(program []block.Record) {
	select {
	case r.ready <- program:
		return
	default:
	}
	// Slot occupied: replace the stale program with the new one.
	select {
	case <-r.ready:
	default:
	}
	select {
	case r.ready <- program:
	default:
	}
}
