package eyes

// Expression is an emotional state the eyes can display.
type Expression int

const (
	Normal Expression = iota
	Happy
	Sad
	Angry
	Surprised
	Sleeping
	Excited
	Focused
	Scared
	Crying
	CryingNoTears
	Sweating
	Dizzy

	numExpressions
)

var expressionNames = [numExpressions]string{
	"normal", "happy", "sad", "angry", "surprised", "sleeping",
	"excited", "focused", "scared", "crying", "crying_no_tears",
	"sweating", "dizzy",
}

func (e Expression) String() string {
	if e < 0 || e >= numExpressions {
		return "invalid"
	}
	return expressionNames[e]
}

// Look is a gaze direction.
type Look int

const (
	LookCenter Look = iota
	LookLeft
	LookRight
	LookUp
	LookDown
)

func (l Look) String() string {
	switch l {
	case LookCenter:
		return "center"
	case LookLeft:
		return "left"
	case LookRight:
		return "right"
	case LookUp:
		return "up"
	case LookDown:
		return "down"
	default:
		return "invalid"
	}
}
