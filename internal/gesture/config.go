package gesture

import (
	"fmt"
	"time"
)

// Config holds classifier thresholds. Distances are in normalized image
// units unless noted; angles are in degrees.
type Config struct {
	MinConfidence    float64       `json:"min_confidence"`     // emit threshold
	MinHandScore     float64       `json:"min_hand_score"`     // hands scored lower are ignored
	HistoryMaxAge    time.Duration `json:"history_max_age"`    // retained event age
	HistoryMaxEvents int           `json:"history_max_events"` // retained events per type
	StabilityWindow  time.Duration `json:"stability_window"`
	StabilityWeight  float64       `json:"stability_weight"` // how much instability can remove (0..1)

	EdgeMargin  float64 `json:"edge_margin"`
	EdgePenalty float64 `json:"edge_penalty"`

	PinchThreshold    float64 `json:"pinch_threshold"` // palm sizes
	ExtendedThreshold float64 `json:"extended_threshold"`
	CurledThreshold   float64 `json:"curled_threshold"`
	ThumbVertical     float64 `json:"thumb_vertical"` // min |dy|/length of the thumb for thumbs up/down

	RotateMinAngle float64 `json:"rotate_min_angle"`
	RotateMaxAngle float64 `json:"rotate_max_angle"` // angle of full strength

	SwipeWindow      time.Duration `json:"swipe_window"`
	SwipeMinSamples  int           `json:"swipe_min_samples"`
	SwipeMinSpeed    float64       `json:"swipe_min_speed"` // units/s
	SwipeConsistency float64       `json:"swipe_consistency"`
	SwipeCooldown    time.Duration `json:"swipe_cooldown"`

	LevelTolerance        float64 `json:"level_tolerance"` // max vertical offset between palms for crossfader
	TwoHandRotateMinAngle float64 `json:"two_hand_rotate_min_angle"`

	ClapWindow   time.Duration `json:"clap_window"`
	ClapContact  float64       `json:"clap_contact"` // separation counted as touching
	ClapDelta    float64       `json:"clap_delta"`   // closing distance before contact
	ClapRebound  float64       `json:"clap_rebound"` // reopening distance after contact
	ClapCooldown time.Duration `json:"clap_cooldown"`

	PushWindow    time.Duration `json:"push_window"`
	PushThreshold float64       `json:"push_threshold"` // relative palm size change
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.6,
		MinHandScore:     0.3,
		HistoryMaxAge:    time.Second,
		HistoryMaxEvents: 50,
		StabilityWindow:  500 * time.Millisecond,
		StabilityWeight:  0.3,

		EdgeMargin:  0.05,
		EdgePenalty: 0.2,

		PinchThreshold:    0.35,
		ExtendedThreshold: 0.6,
		CurledThreshold:   0.6,
		ThumbVertical:     0.7,

		RotateMinAngle: 20,
		RotateMaxAngle: 60,

		SwipeWindow:      150 * time.Millisecond,
		SwipeMinSamples:  4,
		SwipeMinSpeed:    1.0,
		SwipeConsistency: 0.8,
		SwipeCooldown:    300 * time.Millisecond,

		LevelTolerance:        0.15,
		TwoHandRotateMinAngle: 15,

		ClapWindow:   400 * time.Millisecond,
		ClapContact:  0.12,
		ClapDelta:    0.15,
		ClapRebound:  0.05,
		ClapCooldown: 500 * time.Millisecond,

		PushWindow:    300 * time.Millisecond,
		PushThreshold: 0.15,
	}
}

// Validate checks that thresholds are usable.
func (c Config) Validate() error {
	unit := map[string]float64{
		"min_confidence":     c.MinConfidence,
		"min_hand_score":     c.MinHandScore,
		"stability_weight":   c.StabilityWeight,
		"edge_penalty":       c.EdgePenalty,
		"extended_threshold": c.ExtendedThreshold,
		"curled_threshold":   c.CurledThreshold,
		"thumb_vertical":     c.ThumbVertical,
		"swipe_consistency":  c.SwipeConsistency,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", name, v)
		}
	}
	switch {
	case c.HistoryMaxEvents < 1:
		return fmt.Errorf("history_max_events must be positive, got %d", c.HistoryMaxEvents)
	case c.HistoryMaxAge <= 0 || c.StabilityWindow <= 0:
		return fmt.Errorf("history_max_age and stability_window must be positive")
	case c.EdgeMargin < 0 || c.EdgeMargin >= 0.5:
		return fmt.Errorf("edge_margin must be in [0,0.5), got %g", c.EdgeMargin)
	case c.PinchThreshold <= 0:
		return fmt.Errorf("pinch_threshold must be positive, got %g", c.PinchThreshold)
	case c.RotateMaxAngle <= c.RotateMinAngle:
		return fmt.Errorf("rotate_max_angle must exceed rotate_min_angle")
	case c.LevelTolerance <= 0:
		return fmt.Errorf("level_tolerance must be positive, got %g", c.LevelTolerance)
	case c.PushThreshold <= 0 || c.ClapDelta <= 0:
		return fmt.Errorf("push_threshold and clap_delta must be positive")
	}
	return nil
}
