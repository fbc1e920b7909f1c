package detector

import "gocv.io/x/gocv"

// Detector produces hand landmarks from a camera frame.
type Detector interface {
	// Detect returns the hands found in frame, or an empty slice.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds detector options.
type Config struct {
	// MaxHands caps the number of hands returned per frame.
	MaxHands int

	// MinConfidence drops hands scored below it (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is forwarded to the landmark service (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the landmark service script lookup.
	ScriptPath string
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.3,
		MinTrackingConf: 0.5,
	}
}

// filter applies MaxHands and MinConfidence to a detection result.
func (c Config) filter(hands []HandLandmarks) []HandLandmarks {
	out := hands[:0]
	for _, h := range hands {
		if h.Score < c.MinConfidence {
			continue
		}
		out = append(out, h)
		if c.MaxHands > 0 && len(out) == c.MaxHands {
			break
		}
	}
	return out
}
