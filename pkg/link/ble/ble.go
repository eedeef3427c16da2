// Package ble carries Bloco datagrams over Bluetooth Low Energy. Every
// endpoint advertises a GATT service with an inbound write characteristic
// and an outbound notify characteristic, and at the same time scans for
// other Bloco devices and connects to them as a central. Datagrams are
// framed as src(6) + dest(6) + payload so the receiving side can filter
// unicast traffic regardless of which side of the connection it sits on.
package ble

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/bloco-robotics/bloco"
)

func init() {
	bloco.RegisterLink("ble", func(deviceName string) (bloco.Link, error) {
		return New(deviceName)
	})
}

var _ bloco.Link = (*Link)(nil)

var (
	// DevicePrefix is the advertised-name prefix all Bloco devices share.
	// A board named "kitchen" advertises as "BLOCO-kitchen".
	DevicePrefix = "BLOCO-"

	ServiceUUID, _    = bluetooth.ParseUUID("b10c0000-9f1a-4e6e-b2c3-51d25e0a7a01")
	WriteCharUUID, _  = bluetooth.ParseUUID("b10c0001-9f1a-4e6e-b2c3-51d25e0a7a01")
	NotifyCharUUID, _ = bluetooth.ParseUUID("b10c0002-9f1a-4e6e-b2c3-51d25e0a7a01")
)

const frameHeaderLen = 12

var adapter = bluetooth.DefaultAdapter

var (
	enableOnce sync.Once
	enableErr  error
)

// enableAdapter powers the default adapter on. Safe to call repeatedly.
func enableAdapter() error {
	enableOnce.Do(func() {
		log.Println("ble: enabling Bluetooth adapter")
		enableErr = adapter.Enable()
	})
	return enableErr
}

// peerConn is an outbound (central-role) connection to another device.
type peerConn struct {
	device    bluetooth.Device
	writeChar bluetooth.DeviceCharacteristic
}

// Link is a Bluetooth LE endpoint.
type Link struct {
	name string
	addr bloco.Addr

	mu      sync.Mutex
	handler bloco.ReceiveHandler
	conns   map[bloco.Addr]*peerConn
	closed  bool

	outChar bluetooth.Characteristic
	adv     *bluetooth.Advertisement

	scanCancel context.CancelFunc
}

// New enables the adapter, brings up the GATT service and advertisement,
// and starts scanning for other Bloco devices in the background.
func New(deviceName string) (*Link, error) {
	if err := enableAdapter(); err != nil {
		return nil, fmt.Errorf("could not enable adapter: %w", err)
	}

	mac, err := adapter.Address()
	if err != nil {
		return nil, fmt.Errorf("could not read adapter address: %w", err)
	}
	addr, err := bloco.ParseAddr(mac.String())
	if err != nil {
		return nil, err
	}

	l := &Link{
		name:  deviceName,
		addr:  addr,
		conns: make(map[bloco.Addr]*peerConn),
	}

	if err := l.startService(); err != nil {
		return nil, err
	}
	if err := l.startAdvertising(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.scanCancel = cancel
	go l.scanLoop(ctx)

	log.Printf("ble: endpoint %s up as %s%s", addr, DevicePrefix, deviceName)
	return l, nil
}

func (l *Link) Addr() bloco.Addr { return l.addr }

func (l *Link) SetReceiveHandler(h bloco.ReceiveHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// Send frames the payload and delivers it. Unicast goes over the central
// connection to that peer when one exists, otherwise out the notify
// characteristic so connected centrals can pick it up. Broadcast does both.
func (l *Link) Send(dest bloco.Addr, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errors.New("link is closed")
	}

	frame := make([]byte, frameHeaderLen+len(payload))
	copy(frame[0:6], l.addr[:])
	copy(frame[6:12], dest[:])
	copy(frame[12:], payload)

	if dest.IsBroadcast() {
		for _, conn := range l.conns {
			if _, err := conn.writeChar.WriteWithoutResponse(frame); err != nil {
				log.Printf("ble: broadcast write failed: %v", err)
			}
		}
		l.notify(frame)
		return nil
	}

	if conn, ok := l.conns[dest]; ok {
		_, err := conn.writeChar.WriteWithoutResponse(frame)
		return err
	}

	// No outbound connection; the peer may be connected to us instead.
	l.notify(frame)
	return nil
}

// notify pushes a frame to subscribed centrals. Errors here usually just
// mean nobody is subscribed yet.
func (l *Link) notify(frame []byte) {
	if _, err := l.outChar.Write(frame); err != nil {
		log.Printf("ble: notify failed: %v", err)
	}
}

// AddPeer is satisfied by connection management; connections are made to
// every Bloco device in range and frames are filtered by address.
func (l *Link) AddPeer(addr bloco.Addr) error { return nil }

// RemovePeer drops the outbound connection to the peer if one exists.
func (l *Link) RemovePeer(addr bloco.Addr) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	conn, ok := l.conns[addr]
	if !ok {
		return nil
	}
	delete(l.conns, addr)
	return conn.device.Disconnect()
}

func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.scanCancel()

	if l.adv != nil {
		if err := l.adv.Stop(); err != nil {
			log.Printf("ble: error stopping advertisement: %v", err)
		}
	}
	for addr, conn := range l.conns {
		if err := conn.device.Disconnect(); err != nil {
			log.Printf("ble: error disconnecting %s: %v", addr, err)
		}
	}
	l.conns = make(map[bloco.Addr]*peerConn)
	return nil
}

// handleFrame dispatches one received frame to the installed handler.
// Frames addressed to someone else are dropped.
func (l *Link) handleFrame(frame []byte) {
	if len(frame) < frameHeaderLen {
		return
	}

	var src, dest bloco.Addr
	copy(src[:], frame[0:6])
	copy(dest[:], frame[6:12])

	if src == l.addr {
		return // our own broadcast echoed back
	}
	if dest != l.addr && !dest.IsBroadcast() {
		return
	}

	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()

	if h == nil {
		return
	}
	payload := make([]byte, len(frame)-frameHeaderLen)
	copy(payload, frame[frameHeaderLen:])
	h(src, payload)
}

func (l *Link) startService() error {
	return adapter.AddService(&bluetooth.Service{
		UUID: ServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID: WriteCharUUID,
				Flags: bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if offset != 0 {
						return
					}
					l.handleFrame(value)
				},
			},
			{
				Handle: &l.outChar,
				UUID:   NotifyCharUUID,
				Flags: bluetooth.CharacteristicReadPermission |
					bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
}

func (l *Link) startAdvertising() error {
	adv := adapter.DefaultAdvertisement()
	err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    DevicePrefix + l.name,
		ServiceUUIDs: []bluetooth.UUID{ServiceUUID},
	})
	if err != nil {
		return fmt.Errorf("could not configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("could not start advertising: %w", err)
	}
	l.adv = adv
	return nil
}

// scanLoop discovers and connects to nearby Bloco devices until the
// context is canceled. Scanning must pause around each connect attempt.
func (l *Link) scanLoop(ctx context.Context) {
	for ctx.Err() == nil {
		target, found := l.scanOnce(ctx)
		if !found {
			continue
		}
		if err := l.connect(target); err != nil {
			log.Printf("ble: could not connect to %s: %v", target.Address.String(), err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// scanOnce runs a single scan until it sees an unconnected Bloco device
// or the context ends.
func (l *Link) scanOnce(ctx context.Context) (bluetooth.ScanResult, bool) {
	var (
		mu     sync.Mutex
		target bluetooth.ScanResult
		found  bool
	)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = adapter.StopScan()
		case <-stop:
		}
	}()

	err := adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		name := result.LocalName()
		if !strings.HasPrefix(name, DevicePrefix) {
			return // Ignore packets without a Bloco name.
		}

		addr, err := bloco.ParseAddr(result.Address.String())
		if err != nil || addr == l.addr {
			return
		}

		l.mu.Lock()
		_, connected := l.conns[addr]
		l.mu.Unlock()
		if connected {
			return
		}

		mu.Lock()
		target = result
		found = true
		mu.Unlock()
		_ = adapter.StopScan()
	})
	if err != nil {
		log.Printf("ble: error starting scan: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return target, found
}

// connect establishes a central connection to a discovered device and
// subscribes to its notify characteristic.
func (l *Link) connect(result bluetooth.ScanResult) error {
	device, err := adapter.Connect(result.Address, bluetooth.ConnectionParams{
		MaxInterval: bluetooth.Duration(1000),
		MinInterval: bluetooth.Duration(10),
	})
	if err != nil {
		return err
	}

	writeChar, notifyChar, err := discoverCharacteristics(device)
	if err != nil {
		_ = device.Disconnect()
		return err
	}

	if err := notifyChar.EnableNotifications(l.handleFrame); err != nil {
		_ = device.Disconnect()
		return fmt.Errorf("failed to enable notifications: %w", err)
	}

	addr, err := bloco.ParseAddr(result.Address.String())
	if err != nil {
		_ = device.Disconnect()
		return err
	}

	l.mu.Lock()
	l.conns[addr] = &peerConn{device: device, writeChar: writeChar}
	l.mu.Unlock()

	log.Printf("ble: connected to %s (%s)", result.LocalName(), addr)
	return nil
}

func discoverCharacteristics(device bluetooth.Device) (write, notify bluetooth.DeviceCharacteristic, err error) {
	services, err := device.DiscoverServices([]bluetooth.UUID{ServiceUUID})
	if err != nil {
		return write, notify, fmt.Errorf("could not discover services: %w", err)
	}
	if len(services) == 0 {
		return write, notify, errors.New("could not find the Bloco BT service")
	}

	for _, service := range services {
		chars, err := service.DiscoverCharacteristics([]bluetooth.UUID{
			WriteCharUUID,
			NotifyCharUUID,
		})
		if err != nil || len(chars) != 2 {
			return write, notify, fmt.Errorf("could not discover characteristics: %w", err)
		}

		for _, char := range chars {
			if char.UUID() == WriteCharUUID {
				write = char
			}
			if char.UUID() == NotifyCharUUID {
				notify = char
			}
		}
	}
	return write, notify, nil
}
