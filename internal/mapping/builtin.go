package mapping

import (
	"time"

	"github.com/ayusman/gesturemix/internal/gesture"
)

// Built-in profile ids.
const (
	DefaultProfileID = "builtin-dj-mixer"
	EffectsProfileID = "builtin-effects-rack"
)

var builtinTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// BuiltinProfiles returns fresh copies of the read-only presets.
func BuiltinProfiles() []*Profile {
	return []*Profile{djMixer(), effectsRack()}
}

func djMixer() *Profile {
	return &Profile{
		ID:          DefaultProfileID,
		Name:        "DJ Mixer",
		Description: "Two-deck mixing: crossfader, deck volumes, filter and cue controls.",
		Author:      "gesturemix",
		Version:     1,
		BuiltIn:     true,
		Sensitivity: 1,
		Smoothing:   0.3,
		CreatedAt:   builtinTime,
		UpdatedAt:   builtinTime,
		Mappings: []Mapping{
			{
				ID: "dj-crossfader", Name: "Crossfader", Gesture: gesture.Crossfader, Hand: HandBoth,
				Target: "mixer.crossfader", Mode: ModeContinuous,
				Input: Range{Min: 0, Max: 1}, Output: Range{Min: -1, Max: 1},
				MinConfidence: 0.6, Priority: 5, Enabled: true,
			},
			{
				ID: "dj-deck-a-volume", Name: "Deck A volume", Gesture: gesture.Pinch, Hand: HandLeft,
				Target: "deck_a.volume", Mode: ModeContinuous, ValueKey: "y",
				Input: Range{Min: 0.1, Max: 0.9}, Output: Range{Min: 1, Max: 0},
				MinConfidence: 0.7, Priority: 3, Enabled: true,
			},
			{
				ID: "dj-deck-b-volume", Name: "Deck B volume", Gesture: gesture.Pinch, Hand: HandRight,
				Target: "deck_b.volume", Mode: ModeContinuous, ValueKey: "y",
				Input: Range{Min: 0.1, Max: 0.9}, Output: Range{Min: 1, Max: 0},
				MinConfidence: 0.7, Priority: 3, Enabled: true,
			},
			{
				ID: "dj-filter", Name: "Filter sweep", Gesture: gesture.RotateOneHand, Hand: HandRight,
				Target: "master.filter", Mode: ModeContinuous, Curve: CurveSCurve,
				Input: Range{Min: -60, Max: 60}, Output: Range{Min: -1, Max: 1},
				MinConfidence: 0.6, Priority: 2, Enabled: true,
			},
			{
				ID: "dj-eq-low", Name: "Low EQ", Gesture: gesture.Point, Hand: HandLeft,
				Target: "master.eq_low", Mode: ModeContinuous, ValueKey: "y",
				Input: Range{Min: 0.2, Max: 0.8}, Output: Range{Min: 26, Max: -26},
				MinConfidence: 0.7, Priority: 2, Enabled: true,
				Zone: &Zone{MinX: 0, MinY: 0, MaxX: 0.5, MaxY: 1},
			},
			{
				ID: "dj-mute", Name: "Master mute", Gesture: gesture.Fist, Hand: HandEither,
				Target: "master.mute", Mode: ModeToggle,
				Input: Range{Min: 0, Max: 1}, Output: Range{Min: 0, Max: 1},
				MinConfidence: 0.8, Priority: 4, HoldTimeMs: 300, Enabled: true,
			},
			{
				ID: "dj-next-cue", Name: "Next cue", Gesture: gesture.SwipeHorizontal, Hand: HandEither,
				Target: "deck.cue_next", Mode: ModeTrigger,
				Input: Range{Min: -3, Max: 3}, Output: Range{Min: 0, Max: 1},
				MinConfidence: 0.7, Priority: 1, Enabled: true,
			},
		},
	}
}

func effectsRack() *Profile {
	return &Profile{
		ID:          EffectsProfileID,
		Name:        "Effects Rack",
		Description: "Two-hand effect sends: reverb, delay, loop and effect toggles.",
		Author:      "gesturemix",
		Version:     1,
		BuiltIn:     true,
		Sensitivity: 1,
		Smoothing:   0.4,
		CreatedAt:   builtinTime,
		UpdatedAt:   builtinTime,
		Mappings: []Mapping{
			{
				ID: "fx-reverb", Name: "Reverb mix", Gesture: gesture.Spread, Hand: HandBoth,
				Target: "fx.reverb.mix", Mode: ModeContinuous, Curve: CurveLogarithmic,
				Input: Range{Min: 0.1, Max: 0.8}, Output: Range{Min: 0, Max: 1},
				MinConfidence: 0.6, Priority: 3, Enabled: true,
			},
			{
				ID: "fx-delay", Name: "Delay feedback", Gesture: gesture.TwoHandRotate, Hand: HandBoth,
				Target: "fx.delay.feedback", Mode: ModeContinuous,
				Input: Range{Min: -45, Max: 45}, Output: Range{Min: 0, Max: 0.95},
				MinConfidence: 0.6, Priority: 3, Enabled: true,
			},
			{
				ID: "fx-depth", Name: "Effect depth", Gesture: gesture.Push, Hand: HandBoth,
				Target: "fx.depth", Mode: ModeContinuous, Curve: CurveExponential,
				Input: Range{Min: 0.15, Max: 0.6}, Output: Range{Min: 0, Max: 1},
				MinConfidence: 0.6, Priority: 2, Enabled: true,
			},
			{
				ID: "fx-enable", Name: "Effects on/off", Gesture: gesture.ThumbsUp, Hand: HandEither,
				Target: "fx.enabled", Mode: ModeToggle,
				Input: Range{Min: 0, Max: 1}, Output: Range{Min: 0, Max: 1},
				MinConfidence: 0.8, Priority: 4, HoldTimeMs: 250, Enabled: true,
			},
			{
				ID: "fx-loop", Name: "Loop", Gesture: gesture.PeaceSign, Hand: HandEither,
				Target: "deck.loop", Mode: ModeToggle,
				Input: Range{Min: 0, Max: 1}, Output: Range{Min: 0, Max: 1},
				MinConfidence: 0.8, Priority: 2, HoldTimeMs: 250, Enabled: true,
			},
			{
				ID: "fx-stutter", Name: "Stutter", Gesture: gesture.Clap, Hand: HandBoth,
				Target: "fx.stutter", Mode: ModeTrigger,
				Input: Range{Min: 0, Max: 1}, Output: Range{Min: 0, Max: 1},
				MinConfidence: 0.6, Priority: 1, Enabled: true,
			},
		},
	}
}
