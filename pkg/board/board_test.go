package board

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
	"github.com/bloco-robotics/bloco/pkg/eeprom"
	"github.com/bloco-robotics/bloco/pkg/link/memory"
	"github.com/bloco-robotics/bloco/pkg/programmer"
	"github.com/bloco-robotics/bloco/pkg/wire"
)

type memStore struct {
	mu   sync.Mutex
	addr bloco.Addr
	has  bool
}

var _ bloco.Store = (*memStore)(nil)

func (s *memStore) SavePairedAddr(addr bloco.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr, s.has = addr, true
	return nil
}

func (s *memStore) LoadPairedAddr() (bloco.Addr, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr, s.has, nil
}

func (s *memStore) ClearPairedAddr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.has = false
	return nil
}

func (s *memStore) SaveRole(bloco.Role) error { return nil }

func writeToken(t *testing.T, dev eeprom.Device, typ block.Type) block.Record {
	t.Helper()
	p := programmer.New(dev, bloco.NopIndicator{}, [2]byte{1, 2})
	rec, err := p.WriteBlock(typ, 0, 0, 0, typ.String())
	require.NoError(t, err)
	return rec
}

func newBoard(t *testing.T, slots ...eeprom.Device) (*Device, *memory.Bus) {
	t.Helper()
	bus := memory.NewBus()
	link, err := bus.Join(bloco.Addr{0xB0, 0, 0, 0, 0, 1})
	require.NoError(t, err)
	return New(Config{
		Link:      link,
		Store:     &memStore{},
		Indicator: bloco.NopIndicator{},
		Slots:     slots,
	}), bus
}

func TestPollPicksUpInsertedToken(t *testing.T) {
	t.Parallel()

	slot0 := eeprom.NewMemory()
	slot1 := eeprom.NewMemory()
	slot1.SetPresent(false)
	d, _ := newBoard(t, slot0, slot1)

	rec := writeToken(t, slot0, block.TypeForward)
	d.pollSlots()

	program := d.Program()
	require.Len(t, program, 1)
	assert.Equal(t, rec, program[0])

	// Insert the second token; both slots contribute in order.
	slot1.SetPresent(true)
	writeToken(t, slot1, block.TypeBeep)
	d.pollSlots()
	program = d.Program()
	require.Len(t, program, 2)
	assert.Equal(t, block.TypeForward, program[0].Type)
	assert.Equal(t, block.TypeBeep, program[1].Type)
}

func TestPollDropsRemovedToken(t *testing.T) {
	t.Parallel()

	slot0 := eeprom.NewMemory()
	d, _ := newBoard(t, slot0)

	writeToken(t, slot0, block.TypeSpin)
	d.pollSlots()
	require.Len(t, d.Program(), 1)

	slot0.SetPresent(false)
	d.pollSlots()
	assert.Empty(t, d.Program())
}

func TestBlankTokenIgnored(t *testing.T) {
	t.Parallel()

	slot0 := eeprom.NewMemory()
	d, _ := newBoard(t, slot0)

	d.pollSlots()
	assert.Empty(t, d.Program(), "blank token contributes nothing")
}

func TestSendRequiresPairing(t *testing.T) {
	t.Parallel()

	slot0 := eeprom.NewMemory()
	d, bus := newBoard(t, slot0)

	writeToken(t, slot0, block.TypeForward)
	d.pollSlots()

	// A listener on the bus would see any traffic.
	otherLink, err := bus.Join(bloco.Addr{0xA0, 0, 0, 0, 0, 2})
	require.NoError(t, err)
	var got []wire.Message
	var mu sync.Mutex
	otherLink.SetReceiveHandler(func(src bloco.Addr, payload []byte) {
		msg, err := wire.Decode(payload)
		if err != nil {
			return
		}
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})

	d.sendProgram()

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, got, "unpaired board must not transmit a program")
}
