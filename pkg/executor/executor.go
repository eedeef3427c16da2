// Package executor walks a received block program and drives the motors
// and eye animator. Programs are short (at most 8 blocks) and run to
// completion; END exits early, everything else falls through.
package executor

import (
	"log"
	"time"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
	"github.com/bloco-robotics/bloco/pkg/eyes"
)

const (
	moveDuration  = time.Second
	moveGap       = 100 * time.Millisecond
	spinDuration  = 2 * time.Second
	shakeCycle    = 300 * time.Millisecond
	shakeCycles   = 4
	beepDuration  = 200 * time.Millisecond
	soundDuration = 500 * time.Millisecond
	clapWait      = 2 * time.Second

	// A "forever" movement holds the motors for a bounded stretch so an
	// errant program cannot pin the robot; a new program interrupts it
	// only after the cap.
	foreverMoveDuration = 30 * time.Second
	// A "forever" repeat loops a large fixed number of times instead.
	foreverIterations = 1000
)

// Face is the slice of the eye animator the executor drives.
type Face interface {
	SetExpression(eyes.Expression)
	SetLook(eyes.Look)
}

// NopFace discards expression changes, for robots without a display.
type NopFace struct{}

func (NopFace) SetExpression(eyes.Expression) {}
func (NopFace) SetLook(eyes.Look)             {}

// Executor runs block programs against a motor driver and a face.
type Executor struct {
	motors bloco.Motors
	face   Face
	sleep  func(time.Duration)
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces the delay function. Tests use this to run
// programs without real-time waits.
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Executor) { e.sleep = sleep }
}

func New(motors bloco.Motors, face Face, opts ...Option) *Executor {
	e := &Executor{
		motors: motors,
		face:   face,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the program from start to finish. It blocks until the
// program ends; callers wanting to overlap execution with receiving run
// it on its own goroutine.
func (e *Executor) Run(program []block.Record) {
	log.Printf("executor: === executing program (%d blocks) ===", len(program))
	e.run(program)
}

// paramValue resolves the repeat count for the action at *pc by peeking
// at the following block. A param block is consumed; anything else
// leaves pc alone and yields the default of 1. Forever is -1.
func paramValue(program []block.Record, pc *int) int {
	next := *pc + 1
	if next >= len(program) {
		return 1
	}
	var val int
	switch program[next].Type {
	case block.TypeParam2:
		val = 2
	case block.TypeParam3:
		val = 3
	case block.TypeParam4:
		val = 4
	case block.TypeParamForever:
		val = -1
	default:
		return 1
	}
	*pc = next
	return val
}

// move runs one movement action repeat times, stopping the motors
// between repetitions.
func (e *Executor) move(start func(uint8), repeat int) {
	if repeat < 0 {
		start(bloco.MotorDefaultSpeed)
		e.sleep(foreverMoveDuration)
		e.motors.Stop()
		return
	}
	for i := 0; i < repeat; i++ {
		start(bloco.MotorDefaultSpeed)
		e.sleep(moveDuration)
		e.motors.Stop()
		if i < repeat-1 {
			e.sleep(moveGap)
		}
	}
}

func (e *Executor) run(program []block.Record) {
	pc := 0
	for pc < len(program) {
		typ := program[pc].Type
		log.Printf("executor: [%d] %s", pc, typ)

		switch typ {
		case block.TypeBegin:
			e.face.SetExpression(eyes.Focused)

		case block.TypeEnd:
			log.Printf("executor: === program END ===")
			e.motors.Stop()
			e.face.SetExpression(eyes.Normal)
			e.face.SetLook(eyes.LookCenter)
			return

		case block.TypeForward:
			reps := paramValue(program, &pc)
			e.face.SetExpression(eyes.Focused)
			e.face.SetLook(eyes.LookUp)
			e.move(e.motors.Forward, reps)

		case block.TypeBackward:
			reps := paramValue(program, &pc)
			e.face.SetExpression(eyes.Focused)
			e.face.SetLook(eyes.LookDown)
			e.move(e.motors.Backward, reps)

		case block.TypeTurnRight:
			reps := paramValue(program, &pc)
			e.face.SetLook(eyes.LookRight)
			e.move(e.motors.TurnRight, reps)

		case block.TypeTurnLeft:
			reps := paramValue(program, &pc)
			e.face.SetLook(eyes.LookLeft)
			e.move(e.motors.TurnLeft, reps)

		case block.TypeShake:
			e.face.SetExpression(eyes.Excited)
			for i := 0; i < shakeCycles; i++ {
				e.motors.TurnLeft(bloco.MotorDefaultSpeed)
				e.sleep(shakeCycle)
				e.motors.TurnRight(bloco.MotorDefaultSpeed)
				e.sleep(shakeCycle)
			}
			e.motors.Stop()

		case block.TypeSpin:
			e.face.SetExpression(eyes.Surprised)
			e.motors.Spin(bloco.MotorDefaultSpeed)
			e.sleep(spinDuration)
			e.motors.Stop()

		case block.TypeRepeat:
			reps := paramValue(program, &pc)
			// Find the END_REPEAT matching this nesting depth.
			bodyStart := pc + 1
			bodyEnd := len(program)
			depth := 1
			for s := bodyStart; s < len(program); s++ {
				switch program[s].Type {
				case block.TypeRepeat:
					depth++
				case block.TypeEndRepeat:
					depth--
				}
				if depth == 0 {
					bodyEnd = s
					break
				}
			}
			iterations := reps
			if reps < 0 {
				iterations = foreverIterations
			}
			if bodyEnd > bodyStart {
				for r := 0; r < iterations; r++ {
					e.run(program[bodyStart:bodyEnd])
				}
			}
			pc = bodyEnd

		case block.TypeEndRepeat:
			// Bodies are delimited by TypeRepeat; a stray one is skipped.

		case block.TypeBeep:
			log.Printf("executor:   beep (placeholder, no speaker)")
			e.face.SetExpression(eyes.Happy)
			e.sleep(beepDuration)

		case block.TypeSing, block.TypePlayTriangle, block.TypePlayCircle, block.TypePlaySquare:
			log.Printf("executor:   sound %s (placeholder)", typ)
			e.face.SetExpression(eyes.Happy)
			e.sleep(soundDuration)

		case block.TypeWhiteLightOn, block.TypeRedLightOn, block.TypeBlueLightOn:
			log.Printf("executor:   light %s (placeholder, no LED)", typ)

		case block.TypeWaitForClap:
			log.Printf("executor:   wait for clap (placeholder, waiting %v)", clapWait)
			e.face.SetExpression(eyes.Surprised)
			e.sleep(clapWait)

		case block.TypeIf, block.TypeEndIf:
			log.Printf("executor:   %s (placeholder, skipping)", typ)

		case block.TypeEyesNormal:
			e.hold(func() { e.face.SetExpression(eyes.Normal) })
		case block.TypeEyesHappy:
			e.hold(func() { e.face.SetExpression(eyes.Happy) })
		case block.TypeEyesSad:
			e.hold(func() { e.face.SetExpression(eyes.Sad) })
		case block.TypeEyesAngry:
			e.hold(func() { e.face.SetExpression(eyes.Angry) })
		case block.TypeEyesSurprised:
			e.hold(func() { e.face.SetExpression(eyes.Surprised) })
		case block.TypeEyesSleeping:
			e.hold(func() { e.face.SetExpression(eyes.Sleeping) })
		case block.TypeEyesExcited:
			e.hold(func() { e.face.SetExpression(eyes.Excited) })
		case block.TypeEyesFocused:
			e.hold(func() { e.face.SetExpression(eyes.Focused) })
		case block.TypeEyesScared:
			e.hold(func() { e.face.SetExpression(eyes.Scared) })
		case block.TypeEyesCrying:
			e.hold(func() { e.face.SetExpression(eyes.Crying) })
		case block.TypeEyesCryingNoTears:
			e.hold(func() { e.face.SetExpression(eyes.CryingNoTears) })
		case block.TypeEyesSweating:
			e.hold(func() { e.face.SetExpression(eyes.Sweating) })
		case block.TypeEyesDizzy:
			e.hold(func() { e.face.SetExpression(eyes.Dizzy) })

		case block.TypeEyesLookCenter:
			e.hold(func() { e.face.SetLook(eyes.LookCenter) })
		case block.TypeEyesLookLeft:
			e.hold(func() { e.face.SetLook(eyes.LookLeft) })
		case block.TypeEyesLookRight:
			e.hold(func() { e.face.SetLook(eyes.LookRight) })
		case block.TypeEyesLookUp:
			e.hold(func() { e.face.SetLook(eyes.LookUp) })
		case block.TypeEyesLookDown:
			e.hold(func() { e.face.SetLook(eyes.LookDown) })

		default:
			switch {
			case typ.IsParam():
				// Consumed by the preceding action; standalone has no effect.
			case typ.IsSensor():
				log.Printf("executor:   sensor %s (placeholder)", typ)
			default:
				log.Printf("executor:   unknown block type %s, skipping", typ)
			}
		}

		pc++
	}

	e.motors.Stop()
	e.face.SetExpression(eyes.Normal)
	e.face.SetLook(eyes.LookCenter)
	log.Printf("executor: === program finished ===")
}

// hold applies an eye change and lingers long enough for it to be seen.
func (e *Executor) hold(apply func()) {
	apply()
	e.sleep(moveDuration)
}
