// Package pairing implements the mirrored pairing state machine that
// establishes a single trusted peer between a board and a robot. The board
// runs the broadcaster role (it announces itself), the robot runs the
// acceptor role (it answers announcements). Either side holds at most one
// peer at a time, persisted across power cycles.
package pairing

import (
	"log"
	"sync"
	"time"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/wire"
)

// Role selects which half of the handshake a machine performs.
type Role int

const (
	// RoleBroadcaster announces availability while pairing (board side).
	RoleBroadcaster Role = iota
	// RoleAcceptor answers announcements while pairing (robot side).
	RoleAcceptor
)

func (r Role) String() string {
	if r == RoleBroadcaster {
		return "broadcaster"
	}
	return "acceptor"
}

// State is the pairing lifecycle phase.
type State int

const (
	StateUnpaired State = iota
	StatePairing
	StatePaired
)

func (s State) String() string {
	switch s {
	case StateUnpaired:
		return "unpaired"
	case StatePairing:
		return "pairing"
	case StatePaired:
		return "paired"
	default:
		return "invalid"
	}
}

const (
	// Timeout is how long a pairing attempt stays open.
	Timeout = 30 * time.Second
	// BroadcastInterval paces PairRequest announcements.
	BroadcastInterval = 500 * time.Millisecond
	// LongPressDuration is the hold time that triggers pairing.
	LongPressDuration = 4 * time.Second

	blinkInterval = 250 * time.Millisecond
)

// Machine drives pairing for one device. All methods are safe for
// concurrent use; receive callbacks and the main loop share it.
type Machine struct {
	role      Role
	link      bloco.Link
	store     bloco.Store
	indicator bloco.Indicator

	mu            sync.Mutex
	state         State
	peer          bloco.Addr
	startedAt     time.Time
	lastBroadcast time.Time
	lastBlink     time.Time
	blinkOn       bool
}

// NewMachine restores any persisted peer identity from store and starts
// in Paired or Unpaired accordingly.
func NewMachine(role Role, link bloco.Link, store bloco.Store, indicator bloco.Indicator) *Machine {
	m := &Machine{
		role:      role,
		link:      link,
		store:     store,
		indicator: indicator,
		state:     StateUnpaired,
	}
	if addr, ok, err := store.LoadPairedAddr(); err != nil {
		log.Printf("pairing: load peer: %v", err)
	} else if ok {
		m.peer = addr
		m.state = StatePaired
		if err := link.AddPeer(addr); err != nil {
			log.Printf("pairing: register restored peer %s: %v", addr, err)
		}
		log.Printf("pairing: restored peer %s", addr)
	}
	m.showState()
	return m
}

// State returns the current lifecycle phase.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Peer returns the current peer address, if paired.
func (m *Machine) Peer() (bloco.Addr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peer, m.state == StatePaired
}

// StartPairing opens a pairing window. If a peer is already recorded it
// is notified with Unpair and forgotten first, so a timeout always lands
// back in Unpaired.
func (m *Machine) StartPairing(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StatePaired {
		if err := m.link.Send(m.peer, wire.Encode(wire.Unpair{})); err != nil {
			log.Printf("pairing: notify old peer %s: %v", m.peer, err)
		}
		m.forgetPeerLocked()
	}

	m.state = StatePairing
	m.startedAt = now
	m.lastBroadcast = time.Time{}
	m.lastBlink = now
	m.blinkOn = false
	log.Printf("pairing: %s entering pairing mode", m.role)
}

// Tick advances timers. Call it from the main loop at a short fixed
// period; it broadcasts, blinks the indicator and enforces the timeout.
func (m *Machine) Tick(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StatePairing {
		return
	}

	if now.Sub(m.startedAt) >= Timeout {
		log.Printf("pairing: timed out after %v", Timeout)
		m.state = StateUnpaired
		m.showStateLocked()
		return
	}

	if now.Sub(m.lastBlink) >= blinkInterval {
		m.lastBlink = now
		m.blinkOn = !m.blinkOn
		if m.blinkOn {
			m.indicator.Set(0, 0, 255)
		} else {
			m.indicator.Off()
		}
	}

	if m.role == RoleBroadcaster && now.Sub(m.lastBroadcast) >= BroadcastInterval {
		m.lastBroadcast = now
		req := wire.PairRequest{Addr: m.link.Addr()}
		if err := m.link.Send(bloco.Broadcast, wire.Encode(req)); err != nil {
			log.Printf("pairing: broadcast: %v", err)
		}
	}
}

// HandleMessage feeds a decoded pairing message into the machine.
// Non-pairing messages are ignored.
func (m *Machine) HandleMessage(src bloco.Addr, msg wire.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch v := msg.(type) {
	case wire.PairRequest:
		if m.role != RoleAcceptor || m.state != StatePairing {
			return
		}
		m.adoptPeerLocked(v.Addr)
		ack := wire.PairAck{Addr: m.link.Addr()}
		if err := m.link.Send(v.Addr, wire.Encode(ack)); err != nil {
			log.Printf("pairing: ack to %s: %v", v.Addr, err)
		}

	case wire.PairAck:
		if m.role != RoleBroadcaster || m.state != StatePairing {
			return
		}
		m.adoptPeerLocked(v.Addr)

	case wire.Unpair:
		if m.state != StatePaired || src != m.peer {
			return
		}
		log.Printf("pairing: peer %s unpaired us", src)
		m.forgetPeerLocked()
		m.state = StateUnpaired
		m.showStateLocked()
	}
}

// adoptPeerLocked records addr as the trusted peer and persists it.
func (m *Machine) adoptPeerLocked(addr bloco.Addr) {
	m.peer = addr
	m.state = StatePaired
	if err := m.link.AddPeer(addr); err != nil {
		log.Printf("pairing: register peer %s: %v", addr, err)
	}
	if err := m.store.SavePairedAddr(addr); err != nil {
		log.Printf("pairing: persist peer %s: %v", addr, err)
	}
	log.Printf("pairing: paired with %s", addr)
	m.showStateLocked()
}

func (m *Machine) forgetPeerLocked() {
	if err := m.link.RemovePeer(m.peer); err != nil {
		log.Printf("pairing: remove peer %s: %v", m.peer, err)
	}
	if err := m.store.ClearPairedAddr(); err != nil {
		log.Printf("pairing: clear persisted peer: %v", err)
	}
	m.peer = bloco.Addr{}
}

func (m *Machine) showState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showStateLocked()
}

func (m *Machine) showStateLocked() {
	switch m.state {
	case StatePaired:
		m.indicator.Set(0, 255, 0)
	default:
		m.indicator.Set(255, 64, 0)
	}
}
