package eyes

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDisplay keeps a copy of the latest full frame.
type captureDisplay struct {
	mu    sync.Mutex
	frame [Width * Height]uint16
	flush int
}

func (d *captureDisplay) Flush(buf []uint16, yStart, yEnd int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.frame[yStart*Width:yEnd*Width], buf)
	d.flush++
}

func (d *captureDisplay) at(x, y int) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame[y*Width+x]
}

// noBlink pushes auto-blink far enough out that tests never see one.
func noBlink(lo, hi int32) int32 { return 1 << 30 }

func newTestAnimator(t *testing.T, opts ...Option) (*Animator, *captureDisplay) {
	t.Helper()
	d := &captureDisplay{}
	opts = append([]Option{WithRand(noBlink)}, opts...)
	return NewAnimator(d, opts...), d
}

func settle(a *Animator) {
	// 250 ms transition at 33 ms frames needs 8 ticks; run extra.
	for i := 0; i < 12; i++ {
		a.Tick()
	}
}

func TestStartsSnappedToNormal(t *testing.T) {
	t.Parallel()

	a, _ := newTestAnimator(t)
	assert.Equal(t, Normal, a.Expression())
	assert.Equal(t, a.target, a.current, "no transition on startup")
}

func TestTickFlushesAllBands(t *testing.T) {
	t.Parallel()

	a, d := newTestAnimator(t)
	a.Tick()
	assert.Equal(t, NumBands, d.flush)
}

func TestTransitionConverges(t *testing.T) {
	t.Parallel()

	a, _ := newTestAnimator(t)
	a.SetExpression(Surprised)
	require.NotEqual(t, a.target.eyeW, a.current.eyeW)

	a.Tick()
	mid := a.current.eyeW
	assert.NotEqual(t, a.target.eyeW, mid, "one frame is not the whole transition")

	settle(a)
	assert.Equal(t, a.target, a.current)
	assert.Equal(t, int32(34<<8), a.current.eyeW)
}

func TestPupilRendering(t *testing.T) {
	t.Parallel()

	a, d := newTestAnimator(t)
	a.Tick()

	leftCX := Width/2 - eyeSpacing
	assert.Equal(t, ColorBlack, d.at(leftCX, eyeCenterY), "pupil is dark")
	assert.Equal(t, ColorWhite, d.at(leftCX, eyeCenterY-20), "sclera above the pupil")
	assert.Equal(t, ColorBlack, d.at(0, 0), "background")
}

func TestSolidRendering(t *testing.T) {
	t.Parallel()

	a, d := newTestAnimator(t, WithStyle(StyleSolid))
	a.Tick()

	leftCX := Width/2 - eyeSpacing
	assert.Equal(t, ColorWhite, d.at(leftCX, eyeCenterY), "no pupil carve-out")
}

func TestLookMovesPupil(t *testing.T) {
	t.Parallel()

	a, d := newTestAnimator(t)
	a.SetLook(LookRight)
	settle(a)

	leftCX := Width/2 - eyeSpacing
	assert.Equal(t, ColorWhite, d.at(leftCX-8, eyeCenterY), "pupil left edge vacated")
	assert.Equal(t, ColorBlack, d.at(leftCX+10, eyeCenterY), "pupil shifted right")
}

func TestLookIgnoredInSolidStyle(t *testing.T) {
	t.Parallel()

	a, _ := newTestAnimator(t, WithStyle(StyleSolid))
	before := a.target
	a.SetLook(LookLeft)
	assert.Equal(t, before, a.target)
}

func TestBlinkClosesAndReopens(t *testing.T) {
	t.Parallel()

	a, _ := newTestAnimator(t)
	a.Tick()
	require.Zero(t, a.current.blinkLid)

	a.RequestBlink()
	a.Tick()
	assert.Positive(t, a.current.blinkLid, "lid coming down")

	// Close (80 ms) plus open (120 ms) fit in a handful of frames.
	for i := 0; i < 8; i++ {
		a.Tick()
	}
	assert.Zero(t, a.current.blinkLid, "lid back up")
}

func TestHappyLowerLid(t *testing.T) {
	t.Parallel()

	a, d := newTestAnimator(t)
	a.SetExpression(Happy)
	settle(a)

	leftCX := Width/2 - eyeSpacing
	// Happy raises the bottom lid 18 px: rows below cy+eh-18 go dark.
	assert.Equal(t, ColorBlack, d.at(leftCX, eyeCenterY+20))
	assert.Equal(t, ColorWhite, d.at(leftCX, eyeCenterY-20))
}

func TestCryingDrawsTears(t *testing.T) {
	t.Parallel()

	a, d := newTestAnimator(t)
	a.SetExpression(Crying)
	settle(a)

	leftCX := Width/2 - eyeSpacing
	found := false
	for y := eyeCenterY + 30; y < eyeCenterY+75 && !found; y++ {
		found = d.at(leftCX, y) == ColorBlue
	}
	assert.True(t, found, "tear drop below the eye")
}

func TestTearOffsetWraps(t *testing.T) {
	t.Parallel()

	a, _ := newTestAnimator(t)
	a.SetExpression(Crying)
	settle(a)

	start := a.tearOffset
	for i := 0; i < tearRange+2; i++ {
		a.Tick()
	}
	assert.Less(t, a.tearOffset, int32(tearRange))
	assert.NotEqual(t, start+int32(tearRange+2), a.tearOffset, "offset wrapped")
}

func TestSweatingDrawsDrop(t *testing.T) {
	t.Parallel()

	a, d := newTestAnimator(t)
	a.SetExpression(Sweating)
	settle(a)

	rightCX := Width/2 + eyeSpacing
	found := false
	for y := eyeCenterY - 40; y < eyeCenterY && !found; y++ {
		for x := rightCX + 30; x < rightCX+45 && !found; x++ {
			found = d.at(x, y) == ColorBlue
		}
	}
	assert.True(t, found, "sweat drop beside the right eye")
}

func TestIdleTimeoutFallsAsleep(t *testing.T) {
	t.Parallel()

	a, _ := newTestAnimator(t)
	a.mu.Lock()
	a.advanceIdle(idleTimeoutMS)
	a.mu.Unlock()

	assert.True(t, a.Sleeping())
	assert.Equal(t, Sleeping, a.Expression())

	a.SetExpression(Happy)
	assert.False(t, a.Sleeping(), "activity wakes the eyes")
}

func TestInvalidInputsIgnored(t *testing.T) {
	t.Parallel()

	a, _ := newTestAnimator(t)
	before := a.Expression()
	a.SetExpression(Expression(99))
	assert.Equal(t, before, a.Expression())
	a.SetLook(Look(99))
}
