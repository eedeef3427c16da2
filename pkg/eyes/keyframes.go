package eyes

// Style selects how the eyes are drawn.
type Style int

const (
	// StylePupil draws classic cartoon eyes with a dark pupil that
	// follows the look direction.
	StylePupil Style = iota
	// StyleSolid draws filled shapes only; emotion comes from shape and
	// look direction is ignored.
	StyleSolid
)

// overlay is an effect drawn on top of the eye shapes.
type overlay int

const (
	overlayNone overlay = iota
	overlayTears
	overlaySweat
)

// eyeKeyframe is the shape of one eye. Both eyes share it; only the top
// lid tilt may differ between sides. Units are pixels.
type eyeKeyframe struct {
	eyeW    int32 // half-width of the rounded rect
	eyeH    int32 // half-height
	eyeR    int32 // corner radius
	lidTop  int32 // top eyelid offset, positive closes the eye
	lidBot  int32 // bottom eyelid offset
	lidTilt int32 // top lid tilt, positive lowers the inner edge
	pupilW  int32 // pupil ellipse semi-axes (pupil style only)
	pupilH  int32
}

type expressionKeyframe struct {
	eye      eyeKeyframe
	lidTiltR int32 // right-eye tilt override; 0 mirrors the left tilt
	overlay  overlay
}

var pupilKeyframes = [numExpressions]expressionKeyframe{
	Normal: {
		eye: eyeKeyframe{eyeW: 30, eyeH: 34, eyeR: 14, pupilW: 10, pupilH: 12},
	},
	Happy: {
		eye: eyeKeyframe{eyeW: 30, eyeH: 34, eyeR: 14, lidBot: 18, pupilW: 10, pupilH: 12},
	},
	Sad: {
		eye:      eyeKeyframe{eyeW: 28, eyeH: 30, eyeR: 12, lidTop: 8, lidTilt: -8, pupilW: 11, pupilH: 13},
		lidTiltR: 8,
	},
	Angry: {
		eye:      eyeKeyframe{eyeW: 34, eyeH: 26, eyeR: 6, lidTop: 18, lidTilt: 14, pupilW: 7, pupilH: 8},
		lidTiltR: -14,
	},
	Surprised: {
		eye: eyeKeyframe{eyeW: 34, eyeH: 38, eyeR: 18, pupilW: 7, pupilH: 8},
	},
	Sleeping: {
		eye: eyeKeyframe{eyeW: 28, eyeH: 34, eyeR: 14, lidTop: 30, pupilW: 10, pupilH: 12},
	},
	Excited: {
		eye: eyeKeyframe{eyeW: 34, eyeH: 36, eyeR: 16, pupilW: 11, pupilH: 13},
	},
	Focused: {
		eye: eyeKeyframe{eyeW: 28, eyeH: 28, eyeR: 12, lidTop: 4, lidBot: 4, pupilW: 13, pupilH: 14},
	},
	Scared: {
		eye:      eyeKeyframe{eyeW: 32, eyeH: 36, eyeR: 16, lidTilt: -4, pupilW: 6, pupilH: 6},
		lidTiltR: 4,
	},
	Crying: {
		eye:      eyeKeyframe{eyeW: 28, eyeH: 30, eyeR: 12, lidTop: 10, lidBot: 14, lidTilt: -6, pupilW: 10, pupilH: 12},
		lidTiltR: 6,
		overlay:  overlayTears,
	},
	CryingNoTears: {
		eye:      eyeKeyframe{eyeW: 28, eyeH: 30, eyeR: 12, lidTop: 10, lidBot: 14, lidTilt: -6, pupilW: 10, pupilH: 12},
		lidTiltR: 6,
	},
	Sweating: {
		eye:      eyeKeyframe{eyeW: 30, eyeH: 32, eyeR: 14, lidTop: 2, lidTilt: -3, pupilW: 8, pupilH: 9},
		lidTiltR: 3,
		overlay:  overlaySweat,
	},
	Dizzy: {
		eye: eyeKeyframe{eyeW: 32, eyeH: 32, eyeR: 16},
	},
}

var solidKeyframes = [numExpressions]expressionKeyframe{
	Normal: {
		eye: eyeKeyframe{eyeW: 30, eyeH: 34, eyeR: 14},
	},
	Happy: {
		eye: eyeKeyframe{eyeW: 32, eyeH: 34, eyeR: 16, lidBot: 24},
	},
	Sad: {
		eye:      eyeKeyframe{eyeW: 26, eyeH: 28, eyeR: 12, lidTop: 12, lidTilt: -10},
		lidTiltR: 10,
	},
	Angry: {
		eye:      eyeKeyframe{eyeW: 34, eyeH: 24, eyeR: 4, lidTop: 20, lidBot: 4, lidTilt: 16},
		lidTiltR: -16,
	},
	Surprised: {
		eye: eyeKeyframe{eyeW: 36, eyeH: 40, eyeR: 20},
	},
	Sleeping: {
		eye: eyeKeyframe{eyeW: 28, eyeH: 34, eyeR: 14, lidTop: 32},
	},
	Excited: {
		eye: eyeKeyframe{eyeW: 36, eyeH: 38, eyeR: 18},
	},
	Focused: {
		eye: eyeKeyframe{eyeW: 28, eyeH: 28, eyeR: 10, lidTop: 8, lidBot: 8},
	},
	Scared: {
		eye:      eyeKeyframe{eyeW: 32, eyeH: 36, eyeR: 16, lidTilt: -4},
		lidTiltR: 4,
	},
	Crying: {
		eye:      eyeKeyframe{eyeW: 28, eyeH: 30, eyeR: 12, lidTop: 10, lidBot: 14, lidTilt: -6},
		lidTiltR: 6,
		overlay:  overlayTears,
	},
	CryingNoTears: {
		eye:      eyeKeyframe{eyeW: 28, eyeH: 30, eyeR: 12, lidTop: 10, lidBot: 14, lidTilt: -6},
		lidTiltR: 6,
	},
	Sweating: {
		eye:      eyeKeyframe{eyeW: 30, eyeH: 32, eyeR: 14, lidTop: 2, lidTilt: -3},
		lidTiltR: 3,
		overlay:  overlaySweat,
	},
	Dizzy: {
		eye: eyeKeyframe{eyeW: 32, eyeH: 32, eyeR: 16},
	},
}

func (s Style) keyframes() *[numExpressions]expressionKeyframe {
	if s == StyleSolid {
		return &solidKeyframes
	}
	return &pupilKeyframes
}

// lookOffsets shifts the pupil toward the point of attention.
var lookOffsets = [...]struct{ dx, dy int32 }{
	LookCenter: {0, 0},
	LookLeft:   {-10, 0},
	LookRight:  {10, 0},
	LookUp:     {0, -8},
	LookDown:   {0, 8},
}
