package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
	"github.com/bloco-robotics/bloco/pkg/config"
	"github.com/bloco-robotics/bloco/pkg/eeprom"
)

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigchan:
			log.Printf("Shutdown signal received: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// logIndicator prints LED changes instead of driving a physical LED.
type logIndicator struct{}

func (logIndicator) Set(r, g, b uint8) { log.Printf("led: #%02X%02X%02X", r, g, b) }
func (logIndicator) Off()              { log.Println("led: off") }

// loadConfig loads the device file and checks it names the expected role.
func loadConfig(want bloco.Role) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Role != want {
		return config.Config{}, fmt.Errorf("config role is %q, this command runs a %q device", cfg.Role, want)
	}
	return cfg, nil
}

// loadTokenSlot reads a 32-byte token image file into an in-memory token.
func loadTokenSlot(path string) (*eeprom.Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < block.RecordSize {
		return nil, fmt.Errorf("token image %s is %d bytes, want at least %d", path, len(data), block.RecordSize)
	}

	dev := eeprom.NewMemory()
	if err := dev.Write(0, data[:block.RecordSize]); err != nil {
		return nil, err
	}
	return dev, nil
}
