// Package board implements the reader device: it polls token slots for
// inserted EEPROMs, keeps the latest record per slot, and on the send
// trigger pushes the assembled program to the paired robot.
package board

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
	"github.com/bloco-robotics/bloco/pkg/eeprom"
	"github.com/bloco-robotics/bloco/pkg/pairing"
	"github.com/bloco-robotics/bloco/pkg/transport"
	"github.com/bloco-robotics/bloco/pkg/wire"
)

const (
	// TickInterval is the main loop period.
	TickInterval = 100 * time.Millisecond
	// PollInterval is how often slots are checked for tokens.
	PollInterval = time.Second
)

// slot tracks one physical token position.
type slot struct {
	dev     eeprom.Device
	present bool
	valid   bool
	record  block.Record
}

// Device is a running board. Build it with New, then call Run.
type Device struct {
	link    bloco.Link
	pairing *pairing.Machine
	sender  *transport.Sender
	slotMu  sync.Mutex
	slots   []slot

	button  func() bool // polled button level, nil when none wired
	tracker pairing.ButtonTracker

	sendRequested chan struct{}
	pairRequested chan struct{}
}

// Config wires a board together. Slots and Button are optional.
type Config struct {
	Link      bloco.Link
	Store     bloco.Store
	Indicator bloco.Indicator
	Slots     []eeprom.Device
	// Button reports the current pressed level; a short press sends,
	// a 4 s hold starts pairing.
	Button func() bool
}

func New(cfg Config) *Device {
	d := &Device{
		link:          cfg.Link,
		pairing:       pairing.NewMachine(pairing.RoleBroadcaster, cfg.Link, cfg.Store, cfg.Indicator),
		sender:        transport.NewSender(cfg.Link),
		button:        cfg.Button,
		sendRequested: make(chan struct{}, 1),
		pairRequested: make(chan struct{}, 1),
	}
	for _, dev := range cfg.Slots {
		d.slots = append(d.slots, slot{dev: dev})
	}
	cfg.Link.SetReceiveHandler(d.receive)
	return d
}

// RequestSend queues a program send, same as a short button press.
func (d *Device) RequestSend() {
	select {
	case d.sendRequested <- struct{}{}:
	default:
	}
}

// RequestPairing queues entry into pairing mode, same as a long press.
func (d *Device) RequestPairing() {
	select {
	case d.pairRequested <- struct{}{}:
	default:
	}
}

// Pairing exposes the pairing machine for status queries.
func (d *Device) Pairing() *pairing.Machine { return d.pairing }

// Program returns the records currently assembled from inserted tokens,
// in slot order.
func (d *Device) Program() []block.Record {
	d.slotMu.Lock()
	defer d.slotMu.Unlock()
	var out []block.Record
	for _, s := range d.slots {
		if s.present && s.valid {
			out = append(out, s.record)
		}
	}
	return out
}

func (d *Device) receive(src bloco.Addr, payload []byte) {
	msg, err := wire.Decode(payload)
	if err != nil {
		return
	}
	switch m := msg.(type) {
	case wire.PairAck, wire.Unpair:
		d.pairing.HandleMessage(src, msg)
	case wire.ProgramAck:
		d.sender.HandleAck(src, m)
	}
}

// Run drives the board until ctx is done. Token polling pauses while a
// pairing window is open, matching the single-owner loop the device
// hardware uses.
func (d *Device) Run(ctx context.Context) {
	log.Printf("board: reader running, %d slot(s), poll every %v", len(d.slots), PollInterval)

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	var pollCountdown time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		now := time.Now()

		if d.button != nil {
			switch d.tracker.Update(d.button(), now) {
			case pairing.PressShort:
				d.RequestSend()
			case pairing.PressLong:
				d.RequestPairing()
			}
		}

		select {
		case <-d.pairRequested:
			d.pairing.StartPairing(now)
		default:
		}

		d.pairing.Tick(now)
		if d.pairing.State() == pairing.StatePairing {
			continue
		}

		select {
		case <-d.sendRequested:
			d.sendProgram()
		default:
		}

		pollCountdown -= TickInterval
		if pollCountdown <= 0 {
			pollCountdown = PollInterval
			d.pollSlots()
		}
	}
}

// pollSlots refreshes presence and contents for every slot.
func (d *Device) pollSlots() {
	d.slotMu.Lock()
	defer d.slotMu.Unlock()
	for i := range d.slots {
		s := &d.slots[i]
		presentNow := s.dev.Present()

		switch {
		case presentNow && !s.present:
			log.Printf("board: token detected in slot %d", i)
			raw := make([]byte, block.RecordSize)
			if err := s.dev.Read(0, raw); err != nil {
				log.Printf("board: slot %d read failed: %v", i, err)
				s.valid = false
			} else {
				rec, err := block.Unmarshal(raw)
				if err != nil {
					log.Printf("board: slot %d: %v", i, err)
					s.valid = false
				} else if rec.IsBlank() {
					log.Printf("board: slot %d token is blank", i)
					s.valid = false
				} else {
					if err := rec.Validate(); err != nil {
						log.Printf("board: slot %d: %v", i, err)
					}
					s.record = rec
					s.valid = true
					log.Printf("board: slot %d holds %s %q", i, rec.Type, rec.DisplayName())
				}
			}

		case !presentNow && s.present:
			log.Printf("board: token removed from slot %d", i)
			s.record = block.Record{}
			s.valid = false
		}

		s.present = presentNow
	}
}

// sendProgram pushes the current token program to the paired robot.
func (d *Device) sendProgram() {
	peer, paired := d.pairing.Peer()
	if !paired {
		log.Printf("board: not paired, cannot send program")
		return
	}
	program := d.Program()
	if len(program) == 0 {
		log.Printf("board: no blocks to send, insert tokens first")
		return
	}
	if err := d.sender.SendProgram(peer, program); err != nil {
		log.Printf("board: send program: %v", err)
	}
}
