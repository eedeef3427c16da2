package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
	"github.com/bloco-robotics/bloco/pkg/eyes"
)

// scriptMotors records the order of motor commands.
type scriptMotors struct {
	events []string
}

var _ bloco.Motors = (*scriptMotors)(nil)

func (m *scriptMotors) Forward(uint8)   { m.events = append(m.events, "forward") }
func (m *scriptMotors) Backward(uint8)  { m.events = append(m.events, "backward") }
func (m *scriptMotors) TurnLeft(uint8)  { m.events = append(m.events, "left") }
func (m *scriptMotors) TurnRight(uint8) { m.events = append(m.events, "right") }
func (m *scriptMotors) Spin(uint8)      { m.events = append(m.events, "spin") }
func (m *scriptMotors) Stop()           { m.events = append(m.events, "stop") }

func (m *scriptMotors) count(name string) int {
	n := 0
	for _, ev := range m.events {
		if ev == name {
			n++
		}
	}
	return n
}

type scriptFace struct {
	expressions []eyes.Expression
	looks       []eyes.Look
}

func (f *scriptFace) SetExpression(e eyes.Expression) { f.expressions = append(f.expressions, e) }
func (f *scriptFace) SetLook(l eyes.Look)             { f.looks = append(f.looks, l) }

func (f *scriptFace) lastExpression() eyes.Expression {
	if len(f.expressions) == 0 {
		return -1
	}
	return f.expressions[len(f.expressions)-1]
}

type harness struct {
	motors *scriptMotors
	face   *scriptFace
	slept  []time.Duration
	exec   *Executor
}

func newHarness() *harness {
	h := &harness{motors: &scriptMotors{}, face: &scriptFace{}}
	h.exec = New(h.motors, h.face, WithSleep(func(d time.Duration) {
		h.slept = append(h.slept, d)
	}))
	return h
}

func (h *harness) totalSlept() time.Duration {
	var total time.Duration
	for _, d := range h.slept {
		total += d
	}
	return total
}

func program(t *testing.T, types ...block.Type) []block.Record {
	t.Helper()
	source := block.NewSerialSource([2]byte{0xAA, 0xBB})
	out := make([]block.Record, 0, len(types))
	for _, typ := range types {
		rec, err := block.New(typ, 0, 0, 0, typ.String(), source)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestParamLookahead(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t, block.TypeForward, block.TypeParam3))

	assert.Equal(t, 3, h.motors.count("forward"))
	// 3 moves of 1 s plus 2 inter-move gaps of 100 ms.
	assert.Equal(t, 3*time.Second+200*time.Millisecond, h.totalSlept())
}

func TestMissingParamDefaultsToOne(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t, block.TypeBackward, block.TypeBeep))

	assert.Equal(t, 1, h.motors.count("backward"))
	assert.Contains(t, h.face.expressions, eyes.Happy, "beep ran as its own block")
}

func TestForeverMovementIsCapped(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t, block.TypeForward, block.TypeParamForever))

	assert.Equal(t, 1, h.motors.count("forward"))
	require.NotEmpty(t, h.slept)
	assert.Equal(t, 30*time.Second, h.slept[0])
}

func TestNestedRepeatMatchesDepth(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t,
		block.TypeRepeat, block.TypeParam2,
		block.TypeForward,
		block.TypeRepeat,
		block.TypeBeep,
		block.TypeEndRepeat,
		block.TypeEndRepeat,
	))

	// Outer runs twice; the inner repeat has no param so its body runs
	// once per outer iteration.
	assert.Equal(t, 2, h.motors.count("forward"))

	beeps := 0
	for _, e := range h.face.expressions {
		if e == eyes.Happy {
			beeps++
		}
	}
	assert.Equal(t, 2, beeps)
}

func TestRepeatWithoutTerminatorRunsToEnd(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t, block.TypeRepeat, block.TypeParam2, block.TypeForward))

	assert.Equal(t, 2, h.motors.count("forward"))
}

func TestForeverRepeatIterationCap(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t, block.TypeRepeat, block.TypeParamForever, block.TypeBeep, block.TypeEndRepeat))

	beeps := 0
	for _, d := range h.slept {
		if d == 200*time.Millisecond {
			beeps++
		}
	}
	assert.Equal(t, 1000, beeps)
}

func TestEndExitsEarly(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t, block.TypeBegin, block.TypeForward, block.TypeEnd, block.TypeSpin))

	assert.Equal(t, 0, h.motors.count("spin"), "blocks after END must not run")
	assert.Equal(t, 1, h.motors.count("forward"))
	assert.Equal(t, "stop", h.motors.events[len(h.motors.events)-1])
	assert.Equal(t, eyes.Normal, h.face.lastExpression())
	assert.Equal(t, eyes.LookCenter, h.face.looks[len(h.face.looks)-1])
}

func TestFallThroughCleanup(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t, block.TypeSpin))

	assert.Equal(t, "stop", h.motors.events[len(h.motors.events)-1])
	assert.Equal(t, eyes.Normal, h.face.lastExpression())
}

func TestShakeAlternates(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t, block.TypeShake))

	assert.Equal(t, 4, h.motors.count("left"))
	assert.Equal(t, 4, h.motors.count("right"))
}

func TestEyeBlockSetsAndHolds(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.exec.Run(program(t, block.TypeEyesHappy, block.TypeEyesLookLeft))

	assert.Contains(t, h.face.expressions, eyes.Happy)
	assert.Contains(t, h.face.looks, eyes.LookLeft)
	// Each eye block lingers for 1 s.
	assert.GreaterOrEqual(t, h.totalSlept(), 2*time.Second)
}

func TestStandaloneParamAndUnknownSkipped(t *testing.T) {
	t.Parallel()

	h := newHarness()
	prog := program(t, block.TypeParam2, block.TypeSensorEar)
	// Forge an out-of-catalog type the way a corrupted token would carry it.
	prog = append(prog, block.Record{Type: 0x7F})
	h.exec.Run(prog)

	// Only the fall-through cleanup touches the motors.
	assert.Equal(t, []string{"stop"}, h.motors.events)
}
