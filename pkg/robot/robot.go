// Package robot implements the receiving device: it reassembles
// programs from its paired board, runs them through the executor and
// keeps the eye animation alive.
package robot

import (
	"context"
	"log"
	"time"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/executor"
	"github.com/bloco-robotics/bloco/pkg/eyes"
	"github.com/bloco-robotics/bloco/pkg/pairing"
	"github.com/bloco-robotics/bloco/pkg/transport"
	"github.com/bloco-robotics/bloco/pkg/wire"
)

// TickInterval is the main loop period.
const TickInterval = 100 * time.Millisecond

const (
	// pairingFaceFlip is the surprised/normal alternation cadence while
	// a pairing window is open.
	pairingFaceFlip = 500 * time.Millisecond

	// resultFaceHold is how long the happy (paired) or sad (timeout)
	// face stays up before reverting to normal.
	resultFaceHold = 2 * time.Second
)

// Device is a running robot. Build it with New, then call Run.
type Device struct {
	link     bloco.Link
	pairing  *pairing.Machine
	receiver *transport.Receiver
	exec     *executor.Executor

	button  func() bool
	tracker pairing.ButtonTracker

	pairRequested chan struct{}

	face      executor.Face
	prevState pairing.State
	faceFlip  bool
	lastFlip  time.Time
	faceHold  time.Time
}

// Config wires a robot together. Face may be nil for robots without a
// display; Button may be nil when pairing is triggered programmatically.
type Config struct {
	Link      bloco.Link
	Store     bloco.Store
	Indicator bloco.Indicator
	Motors    bloco.Motors
	Face      executor.Face
	Button    func() bool
}

func New(cfg Config) *Device {
	face := cfg.Face
	if face == nil {
		face = executor.NopFace{}
	}
	d := &Device{
		link:          cfg.Link,
		pairing:       pairing.NewMachine(pairing.RoleAcceptor, cfg.Link, cfg.Store, cfg.Indicator),
		receiver:      transport.NewReceiver(cfg.Link),
		exec:          executor.New(cfg.Motors, face),
		face:          face,
		button:        cfg.Button,
		pairRequested: make(chan struct{}, 1),
	}
	d.prevState = d.pairing.State()
	cfg.Link.SetReceiveHandler(d.receive)
	return d
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

// receive routes incoming messages. Program traffic is only accepted
// from the paired board; during an open pairing window the filter is
// lifted so a board mid-handshake can already talk to us.
func (d *Device) receive(src bloco.Addr, payload []byte) {
	msg, err := wire.Decode(payload)
	if err != nil {
		return
	}

	switch msg.(type) {
	case wire.PairRequest, wire.PairAck, wire.Unpair:
		d.pairing.HandleMessage(src, msg)
		return
	}

	if d.pairing.State() != pairing.StatePairing {
		peer, paired := d.pairing.Peer()
		if !paired || src != peer {
			return
		}
	}
	d.receiver.HandleMessage(src, msg)
}

// Run drives the robot until ctx is done. Program execution happens on
// its own goroutine so receiving stays responsive mid-program.
func (d *Device) Run(ctx context.Context) {
	log.Printf("robot: running")

	go d.executeLoop(ctx)

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		now := time.Now()

		if d.button != nil {
			if d.tracker.Update(d.button(), now) == pairing.PressLong {
				d.RequestPairing()
			}
		}

		select {
		case <-d.pairRequested:
			d.pairing.StartPairing(now)
		default:
		}

		d.pairing.Tick(now)
		d.updateFace(now)
	}
}

// updateFace mirrors the pairing state on the eyes: the robot looks
// surprised in bursts while the window is open, happy for a moment when
// a board adopts it, and sad when the window times out.
func (d *Device) updateFace(now time.Time) {
	state := d.pairing.State()
	switch {
	case state == pairing.StatePairing:
		if now.Sub(d.lastFlip) >= pairingFaceFlip {
			d.lastFlip = now
			d.faceFlip = !d.faceFlip
			if d.faceFlip {
				d.face.SetExpression(eyes.Surprised)
			} else {
				d.face.SetExpression(eyes.Normal)
			}
		}
	case d.prevState == pairing.StatePairing && state == pairing.StatePaired:
		d.face.SetExpression(eyes.Happy)
		d.faceHold = now.Add(resultFaceHold)
	case d.prevState == pairing.StatePairing && state == pairing.StateUnpaired:
		d.face.SetExpression(eyes.Sad)
		d.faceHold = now.Add(resultFaceHold)
	case !d.faceHold.IsZero() && now.After(d.faceHold):
		d.face.SetExpression(eyes.Normal)
		d.faceHold = time.Time{}
	}
	d.prevState = state
}

func (d *Device) executeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case program := <-d.receiver.Ready():
			d.exec.Run(program)
		}
	}
}
