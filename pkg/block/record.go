// Package block implements the 32-byte instruction record stored on
// EEPROM tokens: the fixed binary layout, the XOR checksum, serial
// stamping, and the closed type catalog.
package block

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
)

const (
	// RecordSize is the on-token footprint of one record.
	RecordSize = 32

	// NameMaxLen is the fixed width of the name field. A name of exactly
	// 16 characters is stored without a terminating NUL.
	NameMaxLen = 16

	// Version is stamped into every freshly encoded record.
	Version = 0x01

	// checksumSpan: the checksum covers bytes 0x00-0x08 inclusive.
	checksumSpan = 9

	// MaxProgramLen is the most blocks a single program can hold.
	MaxProgramLen = 8
)

var (
	ErrChecksumMismatch = errors.New("block: checksum mismatch")
	ErrUnknownType      = errors.New("block: unknown block type")
)

// Record mirrors the token layout:
// type(1) subtype(1) param1(1) param2(1) serial(4) version(1) checksum(1)
// reserved(6) name(16).
type Record struct {
	Type     Type
	Subtype  uint8
	Param1   uint8
	Param2   uint8
	Serial   [4]byte
	Version  uint8
	Checksum uint8
	Reserved [6]byte
	Name     [NameMaxLen]byte
}

// Marshal serializes the record into its 32-byte token layout.
func (r *Record) Marshal() []byte {
	buf := make([]byte, RecordSize)
	buf[0] = uint8(r.Type)
	buf[1] = r.Subtype
	buf[2] = r.Param1
	buf[3] = r.Param2
	copy(buf[4:8], r.Serial[:])
	buf[8] = r.Version
	buf[9] = r.Checksum
	copy(buf[10:16], r.Reserved[:])
	copy(buf[16:32], r.Name[:])
	return buf
}

// Unmarshal parses a 32-byte token image into a Record. It does not
// validate the checksum or the type; see Validate.
func Unmarshal(data []byte) (Record, error) {
	if len(data) < RecordSize {
		return Record{}, fmt.Errorf("block: record too short: %d bytes, want %d", len(data), RecordSize)
	}
	var r Record
	r.Type = Type(data[0])
	r.Subtype = data[1]
	r.Param1 = data[2]
	r.Param2 = data[3]
	copy(r.Serial[:], data[4:8])
	r.Version = data[8]
	r.Checksum = data[9]
	copy(r.Reserved[:], data[10:16])
	copy(r.Name[:], data[16:32])
	return r, nil
}

// ComputeChecksum returns the XOR of the first 9 layout bytes.
func (r *Record) ComputeChecksum() uint8 {
	raw := r.Marshal()
	var cksum uint8
	for i := 0; i < checksumSpan; i++ {
		cksum ^= raw[i]
	}
	return cksum
}

// Validate checks the stored checksum and the type catalog. A checksum
// mismatch and an unknown type are distinct conditions: the first points
// at data corruption, the second at a record from a newer block set.
// Neither is fatal to reading; the caller decides.
func (r *Record) Validate() error {
	if r.Checksum != r.ComputeChecksum() {
		return fmt.Errorf("%w: got 0x%02X, expected 0x%02X",
			ErrChecksumMismatch, r.Checksum, r.ComputeChecksum())
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: 0x%02X", ErrUnknownType, uint8(r.Type))
	}
	return nil
}

// IsBlank reports whether the record is an erased token (all bytes 0xFF).
func (r *Record) IsBlank() bool {
	for _, b := range r.Marshal() {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// SetName stores name into the fixed-width field, truncating at 16 bytes.
func (r *Record) SetName(name string) {
	r.Name = [NameMaxLen]byte{}
	copy(r.Name[:], name)
}

// DisplayName returns the name field up to the first NUL.
func (r *Record) DisplayName() string {
	if i := bytes.IndexByte(r.Name[:], 0); i >= 0 {
		return string(r.Name[:i])
	}
	return string(r.Name[:])
}

// SerialSource stamps token serials: a fixed 2-byte origin tag followed
// by a strictly increasing 16-bit counter that wraps at 65536.
type SerialSource struct {
	mu      sync.Mutex
	origin  [2]byte
	counter uint16
}

// NewSerialSource returns a source with the given origin tag and a
// counter starting at zero.
func NewSerialSource(origin [2]byte) *SerialSource {
	return &SerialSource{origin: origin}
}

// Next returns a fresh 4-byte serial and advances the counter.
func (s *SerialSource) Next() [4]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var serial [4]byte
	serial[0] = s.origin[0]
	serial[1] = s.origin[1]
	serial[2] = byte(s.counter >> 8)
	serial[3] = byte(s.counter)
	s.counter++
	return serial
}

// New encodes a fresh record: the type is checked against the catalog,
// a serial is stamped from the source, and the checksum is computed over
// the final layout.
func New(t Type, subtype, param1, param2 uint8, name string, serials *SerialSource) (Record, error) {
	if !t.Valid() {
		return Record{}, fmt.Errorf("%w: 0x%02X", ErrUnknownType, uint8(t))
	}

	r := Record{
		Type:    t,
		Subtype: subtype,
		Param1:  param1,
		Param2:  param2,
		Serial:  serials.Next(),
		Version: Version,
	}
	r.SetName(name)
	r.Checksum = r.ComputeChecksum()
	return r, nil
}
