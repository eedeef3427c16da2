package block

import "fmt"

// Type is a block instruction opcode. The catalog is closed: a record
// whose type is not listed here is rejected at write time and skipped at
// execution time.
type Type uint8

const (
	// Actions
	TypeBegin Type = 0x01
	TypeEnd   Type = 0x02

	// Movement
	TypeForward   Type = 0x10
	TypeBackward  Type = 0x11
	TypeTurnRight Type = 0x12
	TypeTurnLeft  Type = 0x13
	TypeShake     Type = 0x14
	TypeSpin      Type = 0x15

	// Control flow
	TypeRepeat    Type = 0x20
	TypeEndRepeat Type = 0x21
	TypeIf        Type = 0x22
	TypeEndIf     Type = 0x23

	// Sound
	TypeBeep         Type = 0x30
	TypeSing         Type = 0x31
	TypePlayTriangle Type = 0x32
	TypePlayCircle   Type = 0x33
	TypePlaySquare   Type = 0x34

	// Light
	TypeWhiteLightOn Type = 0x40
	TypeRedLightOn   Type = 0x41
	TypeBlueLightOn  Type = 0x42

	// Wait
	TypeWaitForClap Type = 0x50

	// Parameters (modifiers for the preceding action block)
	TypeParam2          Type = 0x60
	TypeParam3          Type = 0x61
	TypeParam4          Type = 0x62
	TypeParamForever    Type = 0x63
	TypeParamLight      Type = 0x64
	TypeParamDark       Type = 0x65
	TypeParamNear       Type = 0x66
	TypeParamFar        Type = 0x67
	TypeParamUntilLight Type = 0x68
	TypeParamUntilDark  Type = 0x69
	TypeParamUntilNear  Type = 0x6A
	TypeParamUntilFar   Type = 0x6B

	// Sensors (hardware modules)
	TypeSensorLightBulb   Type = 0x70
	TypeSensorEar         Type = 0x71
	TypeSensorEye         Type = 0x72
	TypeSensorTelescope   Type = 0x73
	TypeSensorSoundModule Type = 0x74

	// Eyes (expressions)
	TypeEyesNormal    Type = 0x80
	TypeEyesHappy     Type = 0x81
	TypeEyesSad       Type = 0x82
	TypeEyesAngry     Type = 0x83
	TypeEyesSurprised Type = 0x84
	TypeEyesSleeping  Type = 0x85
	TypeEyesExcited   Type = 0x86
	TypeEyesFocused   Type = 0x87

	// Eyes (look direction)
	TypeEyesLookCenter Type = 0x88
	TypeEyesLookLeft   Type = 0x89
	TypeEyesLookRight  Type = 0x8A
	TypeEyesLookUp     Type = 0x8B
	TypeEyesLookDown   Type = 0x8C

	// Eyes (extended expressions)
	TypeEyesScared        Type = 0x8D
	TypeEyesCrying        Type = 0x8E
	TypeEyesCryingNoTears Type = 0x8F
	TypeEyesSweating      Type = 0x90
	TypeEyesDizzy         Type = 0x91
)

var typeNames = map[Type]string{
	TypeBegin:             "BEGIN",
	TypeEnd:               "END",
	TypeForward:           "FORWARD",
	TypeBackward:          "BACKWARD",
	TypeTurnRight:         "TURN_RIGHT",
	TypeTurnLeft:          "TURN_LEFT",
	TypeShake:             "SHAKE",
	TypeSpin:              "SPIN",
	TypeRepeat:            "REPEAT",
	TypeEndRepeat:         "END_REPEAT",
	TypeIf:                "IF",
	TypeEndIf:             "END_IF",
	TypeBeep:              "BEEP",
	TypeSing:              "SING",
	TypePlayTriangle:      "PLAY_TRIANGLE",
	TypePlayCircle:        "PLAY_CIRCLE",
	TypePlaySquare:        "PLAY_SQUARE",
	TypeWhiteLightOn:      "WHITE_LIGHT_ON",
	TypeRedLightOn:        "RED_LIGHT_ON",
	TypeBlueLightOn:       "BLUE_LIGHT_ON",
	TypeWaitForClap:       "WAIT_FOR_CLAP",
	TypeParam2:            "PARAM_2",
	TypeParam3:            "PARAM_3",
	TypeParam4:            "PARAM_4",
	TypeParamForever:      "PARAM_FOREVER",
	TypeParamLight:        "PARAM_LIGHT",
	TypeParamDark:         "PARAM_DARK",
	TypeParamNear:         "PARAM_NEAR",
	TypeParamFar:          "PARAM_FAR",
	TypeParamUntilLight:   "PARAM_UNTIL_LIGHT",
	TypeParamUntilDark:    "PARAM_UNTIL_DARK",
	TypeParamUntilNear:    "PARAM_UNTIL_NEAR",
	TypeParamUntilFar:     "PARAM_UNTIL_FAR",
	TypeSensorLightBulb:   "SENSOR_LIGHT_BULB",
	TypeSensorEar:         "SENSOR_EAR",
	TypeSensorEye:         "SENSOR_EYE",
	TypeSensorTelescope:   "SENSOR_TELESCOPE",
	TypeSensorSoundModule: "SENSOR_SOUND_MODULE",
	TypeEyesNormal:        "EYES_NORMAL",
	TypeEyesHappy:         "EYES_HAPPY",
	TypeEyesSad:           "EYES_SAD",
	TypeEyesAngry:         "EYES_ANGRY",
	TypeEyesSurprised:     "EYES_SURPRISED",
	TypeEyesSleeping:      "EYES_SLEEPING",
	TypeEyesExcited:       "EYES_EXCITED",
	TypeEyesFocused:       "EYES_FOCUSED",
	TypeEyesLookCenter:    "EYES_LOOK_CENTER",
	TypeEyesLookLeft:      "EYES_LOOK_LEFT",
	TypeEyesLookRight:     "EYES_LOOK_RIGHT",
	TypeEyesLookUp:        "EYES_LOOK_UP",
	TypeEyesLookDown:      "EYES_LOOK_DOWN",
	TypeEyesScared:        "EYES_SCARED",
	TypeEyesCrying:        "EYES_CRYING",
	TypeEyesCryingNoTears: "EYES_CRYING_NO_TEARS",
	TypeEyesSweating:      "EYES_SWEATING",
	TypeEyesDizzy:         "EYES_DIZZY",
}

// TypeByName resolves a catalog name like "FORWARD" back to its Type.
func TypeByName(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Valid reports whether t belongs to the block catalog.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(t))
}

// IsParam reports whether t is a parameter-modifier block (0x60-0x6B).
// Parameter blocks only have meaning immediately following an action.
func (t Type) IsParam() bool {
	return t >= TypeParam2 && t <= TypeParamUntilFar
}

// IsSensor reports whether t is a sensor module block (0x70-0x74).
func (t Type) IsSensor() bool {
	return t >= TypeSensorLightBulb && t <= TypeSensorSoundModule
}
