// Package programmer writes block records onto EEPROM tokens: stamp the
// serial and checksum, write, then read the token back to verify. An
// indicator reflects progress so the device works without a screen.
package programmer

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
	"github.com/bloco-robotics/bloco/pkg/eeprom"
)

// ErrVerify reports that a read-back after write or erase did not match.
var ErrVerify = errors.New("programmer: verification failed")

// blockAddr is where the record lives on the token.
const blockAddr uint16 = 0x0000

// Indicator colors for the write workflow.
var (
	colorProgramming = [3]uint8{255, 160, 0}
	colorSuccess     = [3]uint8{0, 255, 0}
	colorError       = [3]uint8{255, 0, 0}
)

// Programmer writes, reads, erases and verifies single-block tokens.
type Programmer struct {
	dev       eeprom.Device
	indicator bloco.Indicator
	serials   *block.SerialSource
}

// New builds a Programmer whose serials carry the given 2-byte origin
// prefix (derived from the device identity).
func New(dev eeprom.Device, indicator bloco.Indicator, origin [2]byte) *Programmer {
	log.Printf("programmer: serial prefix %02X%02X", origin[0], origin[1])
	return &Programmer{
		dev:       dev,
		indicator: indicator,
		serials:   block.NewSerialSource(origin),
	}
}

// WriteBlock builds a record, writes it to the token and verifies the
// write by reading it back. The written record is returned.
func (p *Programmer) WriteBlock(t block.Type, subtype, param1, param2 uint8, name string) (block.Record, error) {
	rec, err := block.New(t, subtype, param1, param2, name, p.serials)
	if err != nil {
		return block.Record{}, err
	}

	p.setColor(colorProgramming)

	raw := rec.Marshal()
	if err := p.dev.Write(blockAddr, raw); err != nil {
		p.setColor(colorError)
		return block.Record{}, fmt.Errorf("write block: %w", err)
	}

	readBack := make([]byte, block.RecordSize)
	if err := p.dev.Read(blockAddr, readBack); err != nil {
		p.setColor(colorError)
		return block.Record{}, fmt.Errorf("verify read: %w", err)
	}
	if !bytes.Equal(raw, readBack) {
		p.setColor(colorError)
		return block.Record{}, ErrVerify
	}

	log.Printf("programmer: wrote %s serial=%02X%02X%02X%02X name=%q",
		rec.Type, rec.Serial[0], rec.Serial[1], rec.Serial[2], rec.Serial[3], rec.DisplayName())
	p.setColor(colorSuccess)
	return rec, nil
}

// ReadBlock reads the record off the token. A checksum mismatch is
// logged but not fatal; the caller sees the raw record either way.
func (p *Programmer) ReadBlock() (block.Record, error) {
	raw := make([]byte, block.RecordSize)
	if err := p.dev.Read(blockAddr, raw); err != nil {
		return block.Record{}, fmt.Errorf("read block: %w", err)
	}

	rec, err := block.Unmarshal(raw)
	if err != nil {
		return block.Record{}, err
	}
	if got, want := rec.Checksum, rec.ComputeChecksum(); got != want {
		log.Printf("programmer: checksum mismatch: got 0x%02X expected 0x%02X", got, want)
	}
	return rec, nil
}

// EraseBlock blanks the record area and verifies every byte reads 0xFF.
func (p *Programmer) EraseBlock() error {
	p.setColor(colorProgramming)

	if err := p.dev.Erase(blockAddr, block.RecordSize); err != nil {
		p.setColor(colorError)
		return fmt.Errorf("erase block: %w", err)
	}

	buf := make([]byte, block.RecordSize)
	if err := p.dev.Read(blockAddr, buf); err != nil {
		p.setColor(colorError)
		return fmt.Errorf("erase verify read: %w", err)
	}
	for i, b := range buf {
		if b != 0xFF {
			p.setColor(colorError)
			return fmt.Errorf("byte %d not blank: %w", i, ErrVerify)
		}
	}

	log.Printf("programmer: block erased")
	p.setColor(colorSuccess)
	return nil
}

// VerifyBlock compares the token contents against expected.
func (p *Programmer) VerifyBlock(expected block.Record) error {
	raw := make([]byte, block.RecordSize)
	if err := p.dev.Read(blockAddr, raw); err != nil {
		return fmt.Errorf("verify read: %w", err)
	}
	if !bytes.Equal(expected.Marshal(), raw) {
		return ErrVerify
	}
	return nil
}

func (p *Programmer) setColor(c [3]uint8) {
	p.indicator.Set(c[0], c[1], c[2])
}
