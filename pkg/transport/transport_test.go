package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
	"github.com/bloco-robotics/bloco/pkg/link/memory"
	"github.com/bloco-robotics/bloco/pkg/wire"
)

// recordingLink captures everything sent through it.
type recordingLink struct {
	mu    sync.Mutex
	addr  bloco.Addr
	sent  [][]byte
	dests []bloco.Addr
	peers []bloco.Addr
}

var _ bloco.Link = (*recordingLink)(nil)

func (l *recordingLink) Addr() bloco.Addr { return l.addr }

func (l *recordingLink) Send(dest bloco.Addr, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	data := make([]byte, len(payload))
	copy(data, payload)
	l.sent = append(l.sent, data)
	l.dests = append(l.dests, dest)
	return nil
}

func (l *recordingLink) AddPeer(addr bloco.Addr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.peers = append(l.peers, addr)
	return nil
}

func (l *recordingLink) RemovePeer(bloco.Addr) error            { return nil }
func (l *recordingLink) SetReceiveHandler(bloco.ReceiveHandler) {}
func (l *recordingLink) Close() error                           { return nil }

func (l *recordingLink) messages(t *testing.T) []wire.Message {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]wire.Message, 0, len(l.sent))
	for _, raw := range l.sent {
		msg, err := wire.Decode(raw)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

func makeProgram(t *testing.T, types ...block.Type) []block.Record {
	t.Helper()
	source := block.NewSerialSource([2]byte{0x01, 0x02})
	out := make([]block.Record, 0, len(types))
	for _, typ := range types {
		rec, err := block.New(typ, 0, 0, 0, typ.String(), source)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestSender_FramesProgram(t *testing.T) {
	t.Parallel()

	link := &recordingLink{addr: bloco.Addr{1}}
	sender := NewSender(link)
	sender.SetPacing(0)

	program := makeProgram(t, block.TypeBegin, block.TypeForward)
	dest := bloco.Addr{9, 9, 9, 9, 9, 9}
	require.NoError(t, sender.SendProgram(dest, program))

	msgs := link.messages(t)
	require.Len(t, msgs, 4)
	assert.Equal(t, wire.ProgramStart{Count: 2}, msgs[0])
	assert.Equal(t, wire.BlockData{Index: 0, Record: program[0]}, msgs[1])
	assert.Equal(t, wire.BlockData{Index: 1, Record: program[1]}, msgs[2])
	assert.Equal(t, wire.ProgramEnd{}, msgs[3])
	for _, d := range link.dests {
		assert.Equal(t, dest, d)
	}
}

func TestSender_RejectsEmptyAndOversized(t *testing.T) {
	t.Parallel()

	sender := NewSender(&recordingLink{})
	sender.SetPacing(0)

	assert.Error(t, sender.SendProgram(bloco.Broadcast, nil))

	types := make([]block.Type, block.MaxProgramLen+1)
	for i := range types {
		types[i] = block.TypeBeep
	}
	assert.Error(t, sender.SendProgram(bloco.Broadcast, makeProgram(t, types...)))
}

func TestReceiver_CompleteProgramAcked(t *testing.T) {
	t.Parallel()

	link := &recordingLink{}
	recv := NewReceiver(link)
	src := bloco.Addr{5, 5, 5, 5, 5, 5}
	program := makeProgram(t, block.TypeBegin, block.TypeForward, block.TypeEnd)

	recv.HandleMessage(src, wire.ProgramStart{Count: 3})
	for i, rec := range program {
		recv.HandleMessage(src, wire.BlockData{Index: uint8(i), Record: rec})
	}
	recv.HandleMessage(src, wire.ProgramEnd{})

	select {
	case got := <-recv.Ready():
		assert.Equal(t, program, got)
	default:
		t.Fatal("expected a delivered program")
	}

	msgs := link.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, wire.ProgramAck{Count: 3}, msgs[0])
	assert.Equal(t, []bloco.Addr{src}, link.peers, "sender auto-registered as peer")
}

func TestReceiver_IncompleteProgramDiscarded(t *testing.T) {
	t.Parallel()

	link := &recordingLink{}
	recv := NewReceiver(link)
	src := bloco.Addr{5}
	program := makeProgram(t, block.TypeBegin, block.TypeForward, block.TypeEnd)

	recv.HandleMessage(src, wire.ProgramStart{Count: 3})
	recv.HandleMessage(src, wire.BlockData{Index: 0, Record: program[0]})
	recv.HandleMessage(src, wire.ProgramEnd{})

	select {
	case <-recv.Ready():
		t.Fatal("incomplete program must not be delivered")
	default:
	}
	assert.Empty(t, link.messages(t), "no ack for an incomplete program")
}

func TestReceiver_DuplicateIndexOverCounts(t *testing.T) {
	t.Parallel()

	// A retransmitted index satisfies the completeness check even though
	// a distinct block is missing. Senders never reuse indexes, so this
	// stays harmless in practice.
	link := &recordingLink{}
	recv := NewReceiver(link)
	src := bloco.Addr{5}
	program := makeProgram(t, block.TypeBegin, block.TypeForward)

	recv.HandleMessage(src, wire.ProgramStart{Count: 2})
	recv.HandleMessage(src, wire.BlockData{Index: 0, Record: program[0]})
	recv.HandleMessage(src, wire.BlockData{Index: 0, Record: program[1]})
	recv.HandleMessage(src, wire.ProgramEnd{})

	select {
	case got := <-recv.Ready():
		require.Len(t, got, 2)
		// Last write wins on slot 0; slot 1 was never filled.
		assert.Equal(t, program[1], got[0])
		assert.Equal(t, block.Record{}, got[1])
	default:
		t.Fatal("over-counted program should still be accepted")
	}
}

func TestReceiver_StartReinitializes(t *testing.T) {
	t.Parallel()

	link := &recordingLink{}
	recv := NewReceiver(link)
	src := bloco.Addr{5}
	program := makeProgram(t, block.TypeBegin, block.TypeForward)

	recv.HandleMessage(src, wire.ProgramStart{Count: 2})
	recv.HandleMessage(src, wire.BlockData{Index: 0, Record: program[0]})

	// A second START discards the partial state.
	recv.HandleMessage(src, wire.ProgramStart{Count: 1})
	recv.HandleMessage(src, wire.BlockData{Index: 0, Record: program[1]})
	recv.HandleMessage(src, wire.ProgramEnd{})

	select {
	case got := <-recv.Ready():
		require.Len(t, got, 1)
		assert.Equal(t, program[1], got[0])
	default:
		t.Fatal("expected a delivered program")
	}
}

func TestReceiver_IgnoresDataOutsideReceiving(t *testing.T) {
	t.Parallel()

	link := &recordingLink{}
	recv := NewReceiver(link)
	src := bloco.Addr{5}
	program := makeProgram(t, block.TypeBegin)

	recv.HandleMessage(src, wire.BlockData{Index: 0, Record: program[0]})
	recv.HandleMessage(src, wire.ProgramEnd{})

	select {
	case <-recv.Ready():
		t.Fatal("nothing should be delivered")
	default:
	}
	assert.Empty(t, link.messages(t))
}

func TestReceiver_CapsOversizedCount(t *testing.T) {
	t.Parallel()

	link := &recordingLink{}
	recv := NewReceiver(link)
	src := bloco.Addr{5}

	recv.HandleMessage(src, wire.ProgramStart{Count: 20})

	source := block.NewSerialSource([2]byte{0, 1})
	for i := 0; i < block.MaxProgramLen; i++ {
		rec, err := block.New(block.TypeBeep, 0, 0, 0, "beep", source)
		require.NoError(t, err)
		recv.HandleMessage(src, wire.BlockData{Index: uint8(i), Record: rec})
	}
	// Out-of-range index is dropped without counting.
	rec, err := block.New(block.TypeBeep, 0, 0, 0, "beep", source)
	require.NoError(t, err)
	recv.HandleMessage(src, wire.BlockData{Index: 12, Record: rec})
	recv.HandleMessage(src, wire.ProgramEnd{})

	select {
	case got := <-recv.Ready():
		assert.Len(t, got, block.MaxProgramLen)
	default:
		t.Fatal("capped program should be accepted")
	}
}

func TestReceiver_LatestProgramWins(t *testing.T) {
	t.Parallel()

	link := &recordingLink{}
	recv := NewReceiver(link)
	src := bloco.Addr{5}
	first := makeProgram(t, block.TypeBeep)
	second := makeProgram(t, block.TypeSpin)

	send := func(p []block.Record) {
		recv.HandleMessage(src, wire.ProgramStart{Count: uint8(len(p))})
		for i, rec := range p {
			recv.HandleMessage(src, wire.BlockData{Index: uint8(i), Record: rec})
		}
		recv.HandleMessage(src, wire.ProgramEnd{})
	}

	send(first)
	send(second)

	got := <-recv.Ready()
	assert.Equal(t, second, got, "unconsumed program is overwritten by the newer one")
	select {
	case <-recv.Ready():
		t.Fatal("only one program should be pending")
	default:
	}
}

func TestEndToEnd_OverMemoryBus(t *testing.T) {
	t.Parallel()

	bus := memory.NewBus()
	boardLink, err := bus.Join(bloco.Addr{1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	robotLink, err := bus.Join(bloco.Addr{2, 2, 2, 2, 2, 2})
	require.NoError(t, err)

	recv := NewReceiver(robotLink)
	robotLink.SetReceiveHandler(func(src bloco.Addr, payload []byte) {
		msg, err := wire.Decode(payload)
		if err != nil {
			return
		}
		recv.HandleMessage(src, msg)
	})

	var ackMu sync.Mutex
	var acks []wire.ProgramAck
	boardLink.SetReceiveHandler(func(src bloco.Addr, payload []byte) {
		msg, err := wire.Decode(payload)
		if err != nil {
			return
		}
		if ack, ok := msg.(wire.ProgramAck); ok {
			ackMu.Lock()
			acks = append(acks, ack)
			ackMu.Unlock()
		}
	})

	sender := NewSender(boardLink)
	sender.SetPacing(time.Millisecond)
	program := makeProgram(t, block.TypeBegin, block.TypeForward)
	require.NoError(t, sender.SendProgram(robotLink.Addr(), program))

	select {
	case got := <-recv.Ready():
		assert.Equal(t, program, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for program delivery")
	}

	require.Eventually(t, func() bool {
		ackMu.Lock()
		defer ackMu.Unlock()
		return len(acks) == 1 && acks[0].Count == 2
	}, 2*time.Second, 10*time.Millisecond, "exactly one PROGRAM_ACK{2}")
}
