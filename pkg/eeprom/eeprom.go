// Package eeprom models the byte-addressable token storage that block
// programs are carried on. Writes are split on 64-byte page boundaries
// with a commit delay per page, matching serial EEPROM parts.
package eeprom

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// PageSize is the write-page granularity.
	PageSize = 64
	// Size is the default device capacity (32 KiB).
	Size = 32 * 1024
	// WriteCycle is the per-page commit delay of a real part.
	WriteCycle = 10 * time.Millisecond
)

// ErrIO is the base storage failure. Callers match it with errors.Is.
var ErrIO = errors.New("eeprom: i/o failure")

// ErrOutOfRange reports an access past the end of the device.
var ErrOutOfRange = errors.New("eeprom: address out of range")

// Device is byte-addressable random-access storage with erase-to-0xFF
// semantics. Present reports whether a token is physically inserted.
type Device interface {
	Read(addr uint16, buf []byte) error
	Write(addr uint16, data []byte) error
	Erase(addr uint16, length int) error
	Present() bool
}

// Memory is an in-memory Device. It honors page-chunked writes and an
// optional commit delay, and supports fault injection so error paths
// can be tested.
type Memory struct {
	mu      sync.Mutex
	cells   []byte
	present bool
	delay   time.Duration

	// failAfter injects ErrIO on the Nth page operation when >= 0.
	failAfter int
}

var _ Device = (*Memory)(nil)

// MemOption configures a Memory device.
type MemOption func(*Memory)

// WithDelay enables the per-page commit delay.
func WithDelay(d time.Duration) MemOption {
	return func(m *Memory) { m.delay = d }
}

// WithSize overrides the capacity.
func WithSize(n int) MemOption {
	return func(m *Memory) { m.cells = make([]byte, n) }
}

// NewMemory returns a blank (all 0xFF) inserted device with no delay.
func NewMemory(opts ...MemOption) *Memory {
	m := &Memory{
		cells:     make([]byte, Size),
		present:   true,
		failAfter: -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	for i := range m.cells {
		m.cells[i] = 0xFF
	}
	return m
}

// SetPresent simulates inserting or removing the token.
func (m *Memory) SetPresent(present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present = present
}

func (m *Memory) Present() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present
}

// FailAfter makes the nth following page operation return ErrIO.
// n=0 fails the next one.
func (m *Memory) FailAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

func (m *Memory) tripLocked() error {
	if m.failAfter < 0 {
		return nil
	}
	if m.failAfter == 0 {
		m.failAfter = -1
		return fmt.Errorf("injected fault: %w", ErrIO)
	}
	m.failAfter--
	return nil
}

func (m *Memory) Read(addr uint16, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return fmt.Errorf("no device: %w", ErrIO)
	}
	if int(addr)+len(buf) > len(m.cells) {
		return ErrOutOfRange
	}
	if err := m.tripLocked(); err != nil {
		return err
	}
	copy(buf, m.cells[addr:int(addr)+len(buf)])
	return nil
}

func (m *Memory) Write(addr uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return fmt.Errorf("no device: %w", ErrIO)
	}
	if int(addr)+len(data) > len(m.cells) {
		return ErrOutOfRange
	}

	// Chunk on page boundaries the way the bus transfer would.
	for len(data) > 0 {
		remain := PageSize - int(addr)%PageSize
		chunk := len(data)
		if chunk > remain {
			chunk = remain
		}
		if err := m.tripLocked(); err != nil {
			return err
		}
		copy(m.cells[addr:int(addr)+chunk], data[:chunk])
		if m.delay > 0 {
			time.Sleep(m.delay)
		}
		addr += uint16(chunk)
		data = data[chunk:]
	}
	return nil
}

func (m *Memory) Erase(addr uint16, length int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return fmt.Errorf("no device: %w", ErrIO)
	}
	if int(addr)+length > len(m.cells) {
		return ErrOutOfRange
	}

	for length > 0 {
		remain := PageSize - int(addr)%PageSize
		chunk := length
		if chunk > remain {
			chunk = remain
		}
		if err := m.tripLocked(); err != nil {
			return err
		}
		for i := 0; i < chunk; i++ {
			m.cells[int(addr)+i] = 0xFF
		}
		if m.delay > 0 {
			time.Sleep(m.delay)
		}
		addr += uint16(chunk)
		length -= chunk
	}
	return nil
}
