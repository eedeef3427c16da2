// Package memory provides an in-process wireless bus implementing the
// bloco.Link contract. It is intended for tests and for the single-process
// demo when physical radios are not available.
package memory

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/bloco-robotics/bloco"
)

// This init function registers the bus with the central link registry.
// Endpoints created through the registry all join DefaultBus.
func init() {
	bloco.RegisterLink("memory", func(deviceName string) (bloco.Link, error) {
		return DefaultBus.JoinNamed(deviceName)
	})
}

// DefaultBus is the process-wide bus used by registry-created endpoints.
var DefaultBus = NewBus()

// DropFilter inspects a datagram in flight; returning true discards it.
// Used to simulate wireless loss in tests.
type DropFilter func(src, dest bloco.Addr, payload []byte) bool

// Bus connects endpoints and fans out broadcast traffic.
type Bus struct {
	mu        sync.Mutex
	endpoints map[bloco.Addr]*Endpoint
	drop      DropFilter
}

func NewBus() *Bus {
	return &Bus{endpoints: make(map[bloco.Addr]*Endpoint)}
}

// SetDropFilter installs a loss-injection hook. Pass nil to clear.
func (b *Bus) SetDropFilter(f DropFilter) {
	b.mu.Lock()
	b.drop = f
	b.mu.Unlock()
}

// Join attaches a new endpoint with the given address.
func (b *Bus) Join(addr bloco.Addr) (*Endpoint, error) {
	if addr.IsBroadcast() {
		return nil, fmt.Errorf("memory: cannot join with the broadcast address")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, taken := b.endpoints[addr]; taken {
		return nil, fmt.Errorf("memory: address %s already joined", addr)
	}

	ep := &Endpoint{
		bus:   b,
		addr:  addr,
		peers: make(map[bloco.Addr]bool),
		inbox: make(chan datagram, 64),
		done:  make(chan struct{}),
	}
	b.endpoints[addr] = ep
	go ep.dispatch()
	return ep, nil
}

// JoinNamed attaches an endpoint whose address is derived from the
// device name, so the same name always maps to the same address.
func (b *Bus) JoinNamed(deviceName string) (*Endpoint, error) {
	return b.Join(AddrForName(deviceName))
}

// AddrForName hashes a device name into a stable 6-byte address.
func AddrForName(deviceName string) bloco.Addr {
	h := fnv.New64a()
	h.Write([]byte(deviceName))
	sum := h.Sum(nil)

	var addr bloco.Addr
	copy(addr[:], sum[:6])
	if addr.IsBroadcast() {
		addr[5] = 0xFE
	}
	return addr
}

func (b *Bus) route(src, dest bloco.Addr, payload []byte) {
	b.mu.Lock()
	drop := b.drop
	var targets []*Endpoint
	if dest.IsBroadcast() {
		for addr, ep := range b.endpoints {
			if addr != src {
				targets = append(targets, ep)
			}
		}
	} else if ep, ok := b.endpoints[dest]; ok {
		targets = append(targets, ep)
	}
	b.mu.Unlock()

	if drop != nil && drop(src, dest, payload) {
		return
	}

	for _, ep := range targets {
		ep.enqueue(src, payload)
	}
}

type datagram struct {
	src     bloco.Addr
	payload []byte
}

// Endpoint is one radio on the bus. Incoming datagrams are delivered in
// order on a dedicated goroutine so receive handlers never run on the
// sender's stack.
type Endpoint struct {
	bus  *Bus
	addr bloco.Addr

	mu      sync.Mutex
	handler bloco.ReceiveHandler
	peers   map[bloco.Addr]bool
	closed  bool

	inbox chan datagram
	done  chan struct{}
}

var _ bloco.Link = (*Endpoint)(nil)

func (e *Endpoint) Addr() bloco.Addr { return e.addr }

func (e *Endpoint) Send(dest bloco.Addr, payload []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return fmt.Errorf("memory: endpoint %s is closed", e.addr)
	}

	// Copy so the caller can reuse its buffer.
	data := make([]byte, len(payload))
	copy(data, payload)

	// Sending to an absent peer is not an error. The datagram is lost
	// in the air, like on a real broadcast medium.
	e.bus.route(e.addr, dest, data)
	return nil
}

func (e *Endpoint) AddPeer(addr bloco.Addr) error {
	e.mu.Lock()
	e.peers[addr] = true
	e.mu.Unlock()
	return nil
}

func (e *Endpoint) RemovePeer(addr bloco.Addr) error {
	e.mu.Lock()
	delete(e.peers, addr)
	e.mu.Unlock()
	return nil
}

// Peers returns the registered unicast destinations (test helper).
func (e *Endpoint) Peers() []bloco.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]bloco.Addr, 0, len(e.peers))
	for addr := range e.peers {
		out = append(out, addr)
	}
	return out
}

func (e *Endpoint) SetReceiveHandler(h bloco.ReceiveHandler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	close(e.done)

	e.bus.mu.Lock()
	delete(e.bus.endpoints, e.addr)
	e.bus.mu.Unlock()
	return nil
}

func (e *Endpoint) enqueue(src bloco.Addr, payload []byte) {
	select {
	case e.inbox <- datagram{src: src, payload: payload}:
	case <-e.done:
	default:
		// Inbox full: the datagram is dropped, as a saturated radio would.
	}
}

func (e *Endpoint) dispatch() {
	for {
		select {
		case d := <-e.inbox:
			e.mu.Lock()
			handler := e.handler
			e.mu.Unlock()
			if handler != nil {
				handler(d.src, d.payload)
			}
		case <-e.done:
			return
		}
	}
}
