package bloco

import "log"

// Motors is the differential-drive actuator contract. Speed is 0-255.
type Motors interface {
	Forward(speed uint8)
	Backward(speed uint8)
	TurnLeft(speed uint8)
	TurnRight(speed uint8)
	Spin(speed uint8)
	Stop()
}

// MotorDefaultSpeed is the speed the executor drives at (0-255 range).
const MotorDefaultSpeed uint8 = 200

// Display is a pixel-band sink. Buffers are RGB565, DISPLAY_WIDTH pixels
// per row, rows yStart (inclusive) through yEnd (exclusive).
type Display interface {
	Flush(buf []uint16, yStart, yEnd int)
}

// Indicator is the status LED: solid colors for paired state, blinking
// during pairing.
type Indicator interface {
	Set(r, g, b uint8)
	Off()
}

// --- Test and demo doubles ---

// NopMotors discards all motion commands.
type NopMotors struct{}

func (NopMotors) Forward(uint8)   {}
func (NopMotors) Backward(uint8)  {}
func (NopMotors) TurnLeft(uint8)  {}
func (NopMotors) TurnRight(uint8) {}
func (NopMotors) Spin(uint8)      {}
func (NopMotors) Stop()           {}

// LogMotors logs each motion command, standing in for the PWM driver.
type LogMotors struct{}

func (LogMotors) Forward(speed uint8)   { log.Printf("motor: forward (speed %d)", speed) }
func (LogMotors) Backward(speed uint8)  { log.Printf("motor: backward (speed %d)", speed) }
func (LogMotors) TurnLeft(speed uint8)  { log.Printf("motor: turn left (speed %d)", speed) }
func (LogMotors) TurnRight(speed uint8) { log.Printf("motor: turn right (speed %d)", speed) }
func (LogMotors) Spin(speed uint8)      { log.Printf("motor: spin (speed %d)", speed) }
func (LogMotors) Stop()                 { log.Println("motor: stop") }

// NopIndicator discards LED updates.
type NopIndicator struct{}

func (NopIndicator) Set(r, g, b uint8) {}
func (NopIndicator) Off()              {}

// NopDisplay discards flushed bands.
type NopDisplay struct{}

func (NopDisplay) Flush([]uint16, int, int) {}
