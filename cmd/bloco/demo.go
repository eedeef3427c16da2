package main

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
	"github.com/bloco-robotics/bloco/pkg/board"
	"github.com/bloco-robotics/bloco/pkg/eeprom"
	"github.com/bloco-robotics/bloco/pkg/eyes"
	"github.com/bloco-robotics/bloco/pkg/link/memory"
	"github.com/bloco-robotics/bloco/pkg/pairing"
	"github.com/bloco-robotics/bloco/pkg/programmer"
	"github.com/bloco-robotics/bloco/pkg/robot"
)

// demoProgram is the block sequence placed on the demo board's slots.
var demoProgram = []block.Type{
	block.TypeForward,
	block.TypeBeep,
	block.TypeEyesHappy,
	block.TypeEnd,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a board and a robot end to end in one process",
	Long: `Wires a board and a robot over the in-memory link, pairs them,
lets the board read a small pre-programmed token set, and beams the
program to the robot, which executes it with logged motors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus := memory.NewBus()

		boardLink, err := bus.JoinNamed("demo-board")
		if err != nil {
			return err
		}
		robotLink, err := bus.JoinNamed("demo-robo")
		if err != nil {
			return err
		}

		slots, err := demoSlots()
		if err != nil {
			return err
		}

		b := board.New(board.Config{
			Link:      boardLink,
			Store:     &volatileStore{},
			Indicator: logIndicator{},
			Slots:     slots,
		})

		face := eyes.NewAnimator(bloco.NopDisplay{})
		r := robot.New(robot.Config{
			Link:      robotLink,
			Store:     &volatileStore{},
			Indicator: logIndicator{},
			Motors:    bloco.LogMotors{},
			Face:      face,
		})

		ctx, cancel := signalContext()
		defer cancel()
		ctx, timeout := context.WithTimeout(ctx, 60*time.Second)
		defer timeout()

		go b.Run(ctx)
		go r.Run(ctx)
		go face.Run(ctx)

		log.Println("demo: pairing board and robot")
		b.RequestPairing()
		r.RequestPairing()

		if err := waitFor(ctx, func() bool {
			return b.Pairing().State() == pairing.StatePaired &&
				r.Pairing().State() == pairing.StatePaired
		}); err != nil {
			return errors.New("demo: pairing did not complete")
		}
		log.Println("demo: paired, waiting for the board to read the tokens")

		if err := waitFor(ctx, func() bool {
			return len(b.Program()) == len(demoProgram)
		}); err != nil {
			return errors.New("demo: board never picked up the tokens")
		}

		log.Println("demo: sending program")
		b.RequestSend()

		// Give the robot time to receive and act out the whole sequence.
		select {
		case <-ctx.Done():
		case <-time.After(6 * time.Second):
		}
		log.Println("demo: done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// demoSlots programs one in-memory token per demo block.
func demoSlots() ([]eeprom.Device, error) {
	serialOrigin := [2]byte{0xB1, 0x0C}
	slots := make([]eeprom.Device, len(demoProgram))
	for i, t := range demoProgram {
		mem := eeprom.NewMemory()
		p := programmer.New(mem, bloco.NopIndicator{}, serialOrigin)
		if _, err := p.WriteBlock(t, 0, 0, 0, t.String()); err != nil {
			return nil, err
		}
		slots[i] = mem
	}
	return slots, nil
}

// waitFor polls cond every 100 ms until it holds or the context ends.
func waitFor(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// volatileStore keeps the pairing identity in memory only, enough for a
// single demo run.
type volatileStore struct {
	mu    sync.Mutex
	addr  bloco.Addr
	saved bool
}

var _ bloco.Store = (*volatileStore)(nil)

func (s *volatileStore) SavePairedAddr(addr bloco.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr, s.saved = addr, true
	return nil
}

func (s *volatileStore) LoadPairedAddr() (bloco.Addr, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr, s.saved, nil
}

func (s *volatileStore) ClearPairedAddr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr, s.saved = bloco.Addr{}, false
	return nil
}

func (s *volatileStore) SaveRole(bloco.Role) error { return nil }
