// Package bloco defines the shared contracts of the Bloco toy-robotics
// platform: the wireless link, the persisted pairing store, and the
// actuator interfaces the board and robot devices are built against.
// Concrete implementations live under pkg/ (pkg/link, pkg/store, ...).
package bloco

import (
	"fmt"
	"sync"
)

// Role identifies which half of the platform a device plays.
type Role string

const (
	RoleBoard Role = "board"
	RoleRobot Role = "robo"
)

// Addr is a 6-byte wireless peer address.
type Addr [6]byte

// Broadcast is the all-ones address; sending to it reaches every listener.
var Broadcast = Addr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsBroadcast reports whether the address is the broadcast address.
func (a Addr) IsBroadcast() bool {
	return a == Broadcast
}

// ParseAddr parses the colon-separated form produced by Addr.String.
func ParseAddr(s string) (Addr, error) {
	var a Addr
	n, err := fmt.Sscanf(s, "%02X:%02X:%02X:%02X:%02X:%02X",
		&a[0], &a[1], &a[2], &a[3], &a[4], &a[5])
	if err != nil || n != 6 {
		return Addr{}, fmt.Errorf("malformed address %q", s)
	}
	return a, nil
}

// ReceiveHandler is invoked for every datagram delivered to a Link.
// It runs in the link's receive context and must not block.
type ReceiveHandler func(src Addr, payload []byte)

// Link is the binary wireless send/receive primitive. Implementations
// deliver small datagrams (≤ ~40 bytes) between 6-byte peer addresses.
type Link interface {
	// Addr returns the local address of this endpoint.
	Addr() Addr

	// Send transmits one datagram to dest (which may be Broadcast).
	Send(dest Addr, payload []byte) error

	// AddPeer registers a unicast destination. Adding an already-known
	// peer is not an error.
	AddPeer(addr Addr) error

	// RemovePeer forgets a unicast destination.
	RemovePeer(addr Addr) error

	// SetReceiveHandler installs the callback for incoming datagrams.
	SetReceiveHandler(h ReceiveHandler)

	// Close shuts the endpoint down.
	Close() error
}

// Store persists the pairing identity and device role across power cycles.
// Presence of a saved address implies "paired"; absence implies broadcast
// mode.
type Store interface {
	SavePairedAddr(addr Addr) error

	// LoadPairedAddr returns the saved peer address and whether one exists.
	LoadPairedAddr() (Addr, bool, error)

	ClearPairedAddr() error

	SaveRole(role Role) error
}

// --- Link implementation registry ---

// LinkFactory creates a Link endpoint for a device with the given name.
type LinkFactory func(deviceName string) (Link, error)

var (
	registry = make(map[string]LinkFactory)
	regLock  = sync.RWMutex{}
)

// RegisterLink makes a link implementation available under a kind string
// ("memory", "ble", ...). This should be called from the init() function
// of the implementation's package.
func RegisterLink(kind string, factory LinkFactory) {
	regLock.Lock()
	defer regLock.Unlock()

	if _, found := registry[kind]; found {
		fmt.Printf("warning: link implementation for kind '%s' is being overwritten\n", kind)
	}
	registry[kind] = factory
}

// NewLink finds a registered factory for the given kind and creates a
// new Link endpoint for the named device.
func NewLink(kind, deviceName string) (Link, error) {
	regLock.RLock()
	defer regLock.RUnlock()

	factory, found := registry[kind]
	if !found {
		return nil, fmt.Errorf("no link implementation registered for kind '%s'", kind)
	}
	return factory(deviceName)
}
