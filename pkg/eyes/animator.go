// Package eyes renders the robot's animated eyes: smoothly interpolated
// emotional expressions with blinking, gaze direction, an idle sleep
// timeout and overlay effects (tears, sweat, a dizzy cross). Frames are
// rendered in horizontal bands and pushed to a display sink.
package eyes

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bloco-robotics/bloco"
)

// Display geometry. The panel is square and flushed in bands so a full
// framebuffer never has to exist at once.
const (
	Width      = 240
	Height     = 240
	BandHeight = 30
	BandPixels = Width * BandHeight
	NumBands   = Height / BandHeight

	eyeSpacing = 38 // half-distance between eye centers
	eyeCenterY = 120
)

// RGB565 colors. Blue is pre-byte-swapped for SPI panels.
const (
	ColorBlack uint16 = 0x0000
	ColorWhite uint16 = 0xFFFF
	ColorBlue  uint16 = 0xFC54
)

const (
	// FPS is the animation frame rate.
	FPS       = 30
	frameTime = time.Second / FPS
	frameMS   = int32(1000 / FPS)

	transitionMS    = 250
	drowsyMS        = 500 // slower transition when falling asleep
	blinkCloseMS    = 80
	blinkOpenMS     = 120
	blinkClosure    = 70 // extra top-lid pixels at full blink
	idleTimeoutMS   = 60 * 1000
	tearSpeed       = 1  // pixels per frame
	tearRange       = 30 // tear falls this far then resets
	dizzySpeed      = 12 // degrees per frame
	autoBlinkMinMS  = 2000
	autoBlinkMaxMS  = 6000
	firstBlinkMinMS = 1000
	firstBlinkMaxMS = 3000
)

// animState holds the interpolated shape in fixed-point x256 so
// transitions stay smooth without floating point.
type animState struct {
	eyeW, eyeH, eyeR                   int32
	lidTop, lidBot, lidTiltL, lidTiltR int32
	pupilW, pupilH                     int32
	pupilDX, pupilDY                   int32
	blinkLid                           int32
	overlay                            overlay
}

func lerp(a, b, t256 int32) int32 {
	return a + ((b-a)*t256)/256
}

type blinkPhase int

const (
	blinkIdle blinkPhase = iota
	blinkClosing
	blinkOpening
)

// Animator owns the full animation state. Mutators may be called from
// any goroutine; the render loop runs on its own.
type Animator struct {
	display bloco.Display
	style   Style

	mu                  sync.Mutex
	expr                Expression
	look                Look
	current, target     animState
	transitionRemaining int32 // ms

	blinkPhase     blinkPhase
	blinkTimer     int32
	autoBlinkTimer int32
	blinkRequested bool

	tearOffset int32
	dizzyAngle int32

	idleTimer int32
	sleeping  bool

	randRange func(lo, hi int32) int32

	band [BandPixels]uint16
}

// Option configures an Animator.
type Option func(*Animator)

// WithStyle selects pupil or solid rendering.
func WithStyle(style Style) Option {
	return func(a *Animator) { a.style = style }
}

// WithRand replaces the auto-blink interval source, for deterministic
// tests.
func WithRand(randRange func(lo, hi int32) int32) Option {
	return func(a *Animator) { a.randRange = randRange }
}

// NewAnimator starts in the Normal expression looking straight ahead,
// snapped (no initial transition).
func NewAnimator(display bloco.Display, opts ...Option) *Animator {
	a := &Animator{
		display: display,
		style:   StylePupil,
		expr:    Normal,
		look:    LookCenter,
		randRange: func(lo, hi int32) int32 {
			return lo + rand.Int32N(hi-lo+1)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.setTargetLocked()
	a.current = a.target
	a.autoBlinkTimer = a.randRange(firstBlinkMinMS, firstBlinkMaxMS)
	return a
}

// SetExpression retargets the shape toward expr with a short transition
// and wakes the eyes if they had dozed off.
func (a *Animator) SetExpression(expr Expression) {
	if expr < 0 || expr >= numExpressions {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.idleTimer = 0
	a.sleeping = false
	a.expr = expr
	a.setTargetLocked()
	a.transitionRemaining = transitionMS
}

// SetLook retargets the gaze. Solid-style eyes have no pupil to move,
// so the call is a no-op there.
func (a *Animator) SetLook(look Look) {
	if a.style == StyleSolid {
		return
	}
	if look < LookCenter || look > LookDown {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.look = look
	a.setTargetLocked()
	a.transitionRemaining = transitionMS
}

// RequestBlink triggers a blink on the next frame.
func (a *Animator) RequestBlink() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blinkRequested = true
}

// Expression returns the currently targeted expression.
func (a *Animator) Expression() Expression {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expr
}

// Sleeping reports whether the idle timeout has put the eyes to sleep.
func (a *Animator) Sleeping() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sleeping
}

func (a *Animator) setTargetLocked() {
	kf := &a.style.keyframes()[a.expr]
	look := lookOffsets[a.look]

	a.target.eyeW = kf.eye.eyeW << 8
	a.target.eyeH = kf.eye.eyeH << 8
	a.target.eyeR = kf.eye.eyeR << 8
	a.target.lidTop = kf.eye.lidTop << 8
	a.target.lidBot = kf.eye.lidBot << 8
	a.target.lidTiltL = kf.eye.lidTilt << 8
	tiltR := kf.lidTiltR
	if tiltR == 0 {
		tiltR = -kf.eye.lidTilt
	}
	a.target.lidTiltR = tiltR << 8
	a.target.pupilW = kf.eye.pupilW << 8
	a.target.pupilH = kf.eye.pupilH << 8
	a.target.pupilDX = look.dx << 8
	a.target.pupilDY = look.dy << 8
	a.target.blinkLid = 0
	a.target.overlay = kf.overlay
}

// Tick advances one frame and flushes every band to the display.
func (a *Animator) Tick() {
	a.mu.Lock()
	a.advanceIdle(frameMS)
	a.advanceTransition(frameMS)
	a.advanceBlink(frameMS)

	if a.current.overlay == overlayTears {
		a.tearOffset += tearSpeed
		if a.tearOffset >= tearRange {
			a.tearOffset = 0
		}
	}
	if a.expr == Dizzy {
		a.dizzyAngle = (a.dizzyAngle + dizzySpeed) % 360
	}
	a.mu.Unlock()

	for band := 0; band < NumBands; band++ {
		y := band * BandHeight
		a.renderBand(y)
		a.display.Flush(a.band[:], y, y+BandHeight)
	}
}

// Run drives the animation at the frame rate until ctx is done. Each
// frame yields at least a little so mutators are never starved.
func (a *Animator) Run(ctx context.Context) {
	log.Printf("eyes: animation started (%d fps, band rendering)", FPS)
	for {
		start := time.Now()
		a.Tick()
		elapsed := time.Since(start)
		pause := frameTime - elapsed
		if pause < time.Millisecond {
			pause = time.Millisecond
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

func (a *Animator) advanceTransition(dtMS int32) {
	if a.transitionRemaining <= 0 {
		a.current = a.target
		return
	}

	var t256 int32
	if a.transitionRemaining <= dtMS {
		t256 = 256
		a.transitionRemaining = 0
	} else {
		t256 = (dtMS << 8) / a.transitionRemaining
		a.transitionRemaining -= dtMS
	}

	a.current.eyeW = lerp(a.current.eyeW, a.target.eyeW, t256)
	a.current.eyeH = lerp(a.current.eyeH, a.target.eyeH, t256)
	a.current.eyeR = lerp(a.current.eyeR, a.target.eyeR, t256)
	a.current.lidTop = lerp(a.current.lidTop, a.target.lidTop, t256)
	a.current.lidBot = lerp(a.current.lidBot, a.target.lidBot, t256)
	a.current.lidTiltL = lerp(a.current.lidTiltL, a.target.lidTiltL, t256)
	a.current.lidTiltR = lerp(a.current.lidTiltR, a.target.lidTiltR, t256)
	a.current.pupilW = lerp(a.current.pupilW, a.target.pupilW, t256)
	a.current.pupilH = lerp(a.current.pupilH, a.target.pupilH, t256)
	a.current.pupilDX = lerp(a.current.pupilDX, a.target.pupilDX, t256)
	a.current.pupilDY = lerp(a.current.pupilDY, a.target.pupilDY, t256)
	a.current.blinkLid = lerp(a.current.blinkLid, a.target.blinkLid, t256)
	a.current.overlay = a.target.overlay
}

func (a *Animator) advanceBlink(dtMS int32) {
	a.autoBlinkTimer -= dtMS
	if a.autoBlinkTimer <= 0 || a.blinkRequested {
		if a.blinkPhase == blinkIdle {
			a.blinkPhase = blinkClosing
			a.blinkTimer = blinkCloseMS
		}
		a.blinkRequested = false
		a.autoBlinkTimer = a.randRange(autoBlinkMinMS, autoBlinkMaxMS)
	}

	switch a.blinkPhase {
	case blinkIdle:
		a.current.blinkLid = 0
	case blinkClosing:
		a.blinkTimer -= dtMS
		a.current.blinkLid = int32(blinkClosure<<8) * (blinkCloseMS - a.blinkTimer) / blinkCloseMS
		if a.blinkTimer <= 0 {
			a.blinkPhase = blinkOpening
			a.blinkTimer = blinkOpenMS
		}
	case blinkOpening:
		a.blinkTimer -= dtMS
		a.current.blinkLid = int32(blinkClosure<<8) * a.blinkTimer / blinkOpenMS
		if a.blinkTimer <= 0 {
			a.blinkPhase = blinkIdle
			a.current.blinkLid = 0
		}
	}
}

func (a *Animator) advanceIdle(dtMS int32) {
	if a.sleeping {
		return
	}
	a.idleTimer += dtMS
	if a.idleTimer >= idleTimeoutMS {
		a.sleeping = true
		a.expr = Sleeping
		a.look = LookCenter
		a.setTargetLocked()
		a.transitionRemaining = drowsyMS
		log.Printf("eyes: idle timeout, falling asleep")
	}
}
