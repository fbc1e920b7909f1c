package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/smoothing"
)

var t0 = time.Unix(5000, 0)

const frame = 16 * time.Millisecond

func still(l detector.HandLandmarks) smoothing.Hand {
	return moving(l, smoothing.Velocity{})
}

func moving(l detector.HandLandmarks, v smoothing.Velocity) smoothing.Hand {
	vel := make([]smoothing.Velocity, detector.NumLandmarks)
	for i := range vel {
		vel[i] = v
	}
	return smoothing.Hand{Side: l.Handedness, Score: l.Score, Points: l.Points, Velocities: vel}
}

func find(events []Event, t Type) (Event, bool) {
	for _, e := range events {
		if e.Type == t {
			return e, true
		}
	}
	return Event{}, false
}

func types(events []Event) []Type {
	out := make([]Type, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestClassify_Poses(t *testing.T) {
	tests := []struct {
		name      string
		hand      detector.HandLandmarks
		want      Type
		direction string
		fingers   float64
		minConf   float64
	}{
		{"open palm", detector.OpenPalmLandmarks(), OpenPalm, "", 5, 0.9},
		{"fist", detector.FistLandmarks(), Fist, "", 0, 0.9},
		{"thumbs up", detector.ThumbsUpLandmarks(), ThumbsUp, "up", 1, 0.9},
		{"thumbs down", detector.ThumbsDownLandmarks(), ThumbsDown, "down", 1, 0.9},
		{"pinch", detector.PinchLandmarks(), Pinch, "", 5, 0.75},
		{"peace sign", detector.PeaceSignLandmarks(), PeaceSign, "", 2, 0.9},
		{"point", detector.PointLandmarks(), Point, "up", 1, 0.9},
		{"left open palm", detector.OpenPalmLandmarks().Mirror(), OpenPalm, "", 5, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(DefaultConfig())
			events := c.Classify([]smoothing.Hand{still(tt.hand)}, t0)

			require.Len(t, events, 1, "got %v", types(events))
			e := events[0]
			assert.Equal(t, tt.want, e.Type)
			assert.Equal(t, tt.direction, e.Direction)
			assert.GreaterOrEqual(t, e.Confidence, tt.minConf)
			assert.LessOrEqual(t, e.Confidence, 1.0)
			assert.Equal(t, []detector.Side{tt.hand.Handedness}, e.Hands)
			assert.Equal(t, tt.fingers, e.Metadata["finger_count"])
			assert.Equal(t, t0, e.Timestamp)
		})
	}
}

func TestClassify_PinchEdgePenalty(t *testing.T) {
	centered := detector.PinchLandmarks()
	edge := centered.Place(0.82, 0.6)
	require.Greater(t, edge.Points[detector.IndexTip].X, 0.95)

	a := NewClassifier(DefaultConfig()).Classify([]smoothing.Hand{still(centered)}, t0)
	b := NewClassifier(DefaultConfig()).Classify([]smoothing.Hand{still(edge)}, t0)

	pa, ok := find(a, Pinch)
	require.True(t, ok)
	pb, ok := find(b, Pinch)
	require.True(t, ok)
	assert.InDelta(t, pa.Confidence*0.8, pb.Confidence, 1e-9)
	assert.InDelta(t, 0.101, pa.Value, 0.005)
}

func TestClassify_RotateOneHand(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	events := c.Classify([]smoothing.Hand{still(detector.OpenPalmLandmarks().Rotate(45))}, t0)

	e, ok := find(events, RotateOneHand)
	require.True(t, ok, "got %v", types(events))
	assert.InDelta(t, 45, e.Value, 1e-6)
	assert.Equal(t, "cw", e.Direction)

	_, ok = find(events, OpenPalm)
	assert.True(t, ok)

	events = c.Classify([]smoothing.Hand{still(detector.OpenPalmLandmarks().Rotate(-45))}, t0.Add(frame))
	e, ok = find(events, RotateOneHand)
	require.True(t, ok)
	assert.Equal(t, "ccw", e.Direction)
}

func TestClassify_Rejects(t *testing.T) {
	t.Run("empty landmark array", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		events := c.Classify([]smoothing.Hand{{Side: detector.SideRight, Score: 0.9}}, t0)
		assert.Empty(t, events)
	})

	t.Run("no hands", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		assert.Empty(t, c.Classify(nil, t0))
	})

	t.Run("low detection score drops gesture", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		events := c.Classify([]smoothing.Hand{still(detector.OpenPalmLandmarks().WithScore(0.5))}, t0)
		assert.Empty(t, events)
	})

	t.Run("hand below minimum score is absent", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		left := detector.OpenPalmLandmarks().Mirror().Scale(0.4).Place(0.12, 0.5).WithScore(0.2)
		right := detector.OpenPalmLandmarks().Scale(0.4).Place(0.87, 0.5)
		events := c.Classify([]smoothing.Hand{still(left), still(right)}, t0)
		for _, e := range events {
			assert.Equal(t, []detector.Side{detector.SideRight}, e.Hands)
		}
	})
}

func TestClassify_ConfidenceBounds(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	fixtures := []detector.HandLandmarks{
		detector.OpenPalmLandmarks(), detector.FistLandmarks(), detector.PinchLandmarks(),
		detector.ThumbsUpLandmarks(), detector.PeaceSignLandmarks(), detector.PointLandmarks(),
		detector.OpenPalmLandmarks().Rotate(50), detector.PinchLandmarks().Place(0.82, 0.6),
	}
	now := t0
	for i := 0; i < 200; i++ {
		right := fixtures[i%len(fixtures)]
		left := fixtures[(i/3)%len(fixtures)].Mirror().Scale(0.5).Place(0.2, 0.5)
		now = now.Add(frame)
		for _, e := range c.Classify([]smoothing.Hand{moving(left, smoothing.Velocity{X: float64(i%5) - 2}), still(right)}, now) {
			assert.GreaterOrEqual(t, e.Confidence, 0.0)
			assert.LessOrEqual(t, e.Confidence, 1.0)
			assert.GreaterOrEqual(t, e.Confidence, 0.6)
		}
	}
}

func TestClassify_Swipe(t *testing.T) {
	run := func(v smoothing.Velocity, frames int) []Event {
		c := NewClassifier(DefaultConfig())
		palm := detector.OpenPalmLandmarks()
		var events []Event
		for i := 0; i < frames; i++ {
			events = c.Classify([]smoothing.Hand{moving(palm, v)}, t0.Add(time.Duration(i)*frame))
		}
		return events
	}

	t.Run("fast horizontal motion", func(t *testing.T) {
		e, ok := find(run(smoothing.Velocity{X: 2}, 5), SwipeHorizontal)
		require.True(t, ok)
		assert.Equal(t, "right", e.Direction)
		assert.InDelta(t, 2, e.Value, 1e-9)
		assert.InDelta(t, 2, e.Metadata["speed"], 1e-9)
	})

	t.Run("fast upward motion", func(t *testing.T) {
		e, ok := find(run(smoothing.Velocity{Y: -1.5}, 5), SwipeVertical)
		require.True(t, ok)
		assert.Equal(t, "up", e.Direction)
	})

	t.Run("needs a full window of samples", func(t *testing.T) {
		_, ok := find(run(smoothing.Velocity{X: 2}, 3), SwipeHorizontal)
		assert.False(t, ok)
	})

	t.Run("slow motion", func(t *testing.T) {
		_, ok := find(run(smoothing.Velocity{X: 0.5}, 8), SwipeHorizontal)
		assert.False(t, ok)
	})

	t.Run("reversing direction is not a swipe", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		palm := detector.OpenPalmLandmarks()
		for i := 0; i < 8; i++ {
			vx := 3.0
			if i%2 == 1 {
				vx = -2.0
			}
			events := c.Classify([]smoothing.Hand{moving(palm, smoothing.Velocity{X: vx})}, t0.Add(time.Duration(i)*frame))
			_, ok := find(events, SwipeHorizontal)
			assert.False(t, ok, "frame %d", i)
		}
	})

	t.Run("cooldown blocks an immediate second swipe", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SwipeWindow = 50 * time.Millisecond
		cfg.SwipeMinSamples = 3
		c := NewClassifier(cfg)
		palm := detector.OpenPalmLandmarks()
		now := t0
		step := func(v smoothing.Velocity) bool {
			now = now.Add(frame)
			_, ok := find(c.Classify([]smoothing.Hand{moving(palm, v)}, now), SwipeHorizontal)
			return ok
		}

		swiped := false
		for i := 0; i < 5; i++ {
			swiped = step(smoothing.Velocity{X: 2}) || swiped
		}
		require.True(t, swiped)

		for i := 0; i < 3; i++ {
			assert.False(t, step(smoothing.Velocity{X: -2}))
		}
		assert.False(t, step(smoothing.Velocity{X: -2}), "swipe back inside cooldown")

		for i := 0; i < 20; i++ {
			step(smoothing.Velocity{X: -2})
		}
		now = now.Add(frame)
		e, ok := find(c.Classify([]smoothing.Hand{moving(palm, smoothing.Velocity{X: -2})}, now), SwipeHorizontal)
		require.True(t, ok)
		assert.Equal(t, "left", e.Direction)
	})
}

func twoHands(left, right detector.HandLandmarks) []smoothing.Hand {
	return []smoothing.Hand{still(left), still(right)}
}

func palms(scale, lx, ly, rx, ry float64) []smoothing.Hand {
	open := detector.OpenPalmLandmarks().Scale(scale)
	return twoHands(open.Mirror().Place(lx, ly), open.Place(rx, ry))
}

func TestClassify_TwoHand(t *testing.T) {
	t.Run("crossfader and spread", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		events := c.Classify(palms(0.4, 0.12, 0.5, 0.87, 0.5), t0)

		cf, ok := find(events, Crossfader)
		require.True(t, ok, "got %v", types(events))
		assert.InDelta(t, 0.75, cf.Value, 1e-9)
		assert.InDelta(t, 0.95, cf.Confidence, 1e-9)
		assert.Equal(t, []detector.Side{detector.SideLeft, detector.SideRight}, cf.Hands)
		assert.InDelta(t, 0.5, cf.Position.Y, 1e-9)

		sp, ok := find(events, Spread)
		require.True(t, ok)
		assert.InDelta(t, 0.75, sp.Value, 1e-9)
		assert.InDelta(t, 0.75, sp.Metadata["separation"], 1e-9)
	})

	t.Run("hands not level", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		events := c.Classify(palms(0.4, 0.2, 0.7, 0.7, 0.2), t0)

		_, ok := find(events, Crossfader)
		assert.False(t, ok)
		rot, ok := find(events, TwoHandRotate)
		require.True(t, ok, "got %v", types(events))
		assert.InDelta(t, -45, rot.Value, 1e-6)
		assert.Equal(t, "ccw", rot.Direction)
	})

	t.Run("two-hand pinch", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		pinch := detector.PinchLandmarks().Scale(0.4)
		events := c.Classify(twoHands(pinch.Mirror().Place(0.3, 0.5), pinch.Place(0.7, 0.5)), t0)

		e, ok := find(events, TwoHandPinch)
		require.True(t, ok, "got %v", types(events))
		assert.Greater(t, e.Confidence, 0.75)
		_, ok = find(events, Spread)
		assert.False(t, ok)
	})

	t.Run("one hand only", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		events := c.Classify([]smoothing.Hand{still(detector.OpenPalmLandmarks())}, t0)
		for _, e := range events {
			assert.False(t, e.Type.TwoHand())
		}
	})

	t.Run("clap fires once", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		seps := []float64{0.5, 0.4, 0.3, 0.2, 0.1, 0.2, 0.3, 0.4, 0.5}
		claps := 0
		for i, sep := range seps {
			events := c.Classify(palms(0.4, 0.5-sep/2, 0.5, 0.5+sep/2, 0.5), t0.Add(time.Duration(i)*frame))
			if e, ok := find(events, Clap); ok {
				claps++
				assert.Equal(t, 5, i)
				assert.InDelta(t, 0.4, e.Value, 1e-9)
			}
		}
		assert.Equal(t, 1, claps)
	})

	t.Run("push and pull", func(t *testing.T) {
		sizes := func(grow bool) []Event {
			c := NewClassifier(DefaultConfig())
			var events []Event
			for i := 0; i <= 20; i++ {
				s := 0.4 * (1 + 0.02*float64(i))
				if !grow {
					s = 0.4 * (1 + 0.02*float64(20-i))
				}
				events = c.Classify(palms(s, 0.25, 0.5, 0.75, 0.5), t0.Add(time.Duration(i)*20*time.Millisecond))
			}
			return events
		}

		e, ok := find(sizes(true), Push)
		require.True(t, ok)
		assert.Greater(t, e.Value, 0.15)

		e, ok = find(sizes(false), Pull)
		require.True(t, ok)
		assert.Less(t, e.Value, -0.13)
	})
}

func TestClassify_History(t *testing.T) {
	t.Run("bounded by count and age", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		palm := still(detector.OpenPalmLandmarks())
		now := t0
		for i := 0; i < 60; i++ {
			now = now.Add(5 * time.Millisecond)
			c.Classify([]smoothing.Hand{palm}, now)
		}
		assert.Equal(t, 50, c.History().Len(OpenPalm))

		c.Classify(nil, now.Add(2*time.Second))
		assert.Equal(t, 0, c.History().Len(OpenPalm))
	})

	t.Run("only emitted events are kept", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		c.Classify([]smoothing.Hand{still(detector.OpenPalmLandmarks().WithScore(0.5))}, t0)
		assert.Equal(t, 0, c.History().Len(OpenPalm))
	})

	t.Run("reset clears history", func(t *testing.T) {
		c := NewClassifier(DefaultConfig())
		c.Classify([]smoothing.Hand{still(detector.FistLandmarks())}, t0)
		require.Equal(t, 1, c.History().Len(Fist))
		c.Reset()
		assert.Equal(t, 0, c.History().Len(Fist))
	})
}

func TestClassify_StabilityPenalizesFlicker(t *testing.T) {
	steady := NewClassifier(DefaultConfig())
	flicker := NewClassifier(DefaultConfig())
	palm := still(detector.OpenPalmLandmarks())
	fist := still(detector.FistLandmarks())

	var steadyConf, flickerConf float64
	for i := 0; i < 30; i++ {
		now := t0.Add(time.Duration(i) * frame)
		if e, ok := find(steady.Classify([]smoothing.Hand{palm}, now), OpenPalm); ok {
			steadyConf = e.Confidence
		}
		hand := palm
		if i%2 == 1 {
			hand = fist
		}
		if e, ok := find(flicker.Classify([]smoothing.Hand{hand}, now), OpenPalm); ok {
			flickerConf = e.Confidence
		}
	}
	assert.InDelta(t, 0.95, steadyConf, 1e-9)
	assert.Less(t, flickerConf, steadyConf-0.05)
}

func TestClassifier_Reconfigure(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	palm := still(detector.OpenPalmLandmarks())
	require.NotEmpty(t, c.Classify([]smoothing.Hand{palm}, t0))

	bad := DefaultConfig()
	bad.MinConfidence = 1.5
	assert.Error(t, c.Reconfigure(bad))
	assert.Equal(t, 0.6, c.Config().MinConfidence)

	strict := DefaultConfig()
	strict.MinConfidence = 0.99
	strict.HistoryMaxEvents = 10
	require.NoError(t, c.Reconfigure(strict))
	assert.Empty(t, c.Classify([]smoothing.Hand{palm}, t0.Add(frame)))
	assert.Equal(t, 1, c.History().Len(OpenPalm))
}

func TestClassifier_Personalize(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	c.Personalize(HandProfile{SpanRatio: 3.75})
	assert.InDelta(t, 0.4375, c.pinchThreshold(), 1e-12)
	c.Personalize(HandProfile{SpanRatio: 10})
	assert.InDelta(t, 0.35*1.25, c.pinchThreshold(), 1e-12)
	c.Personalize(HandProfile{SpanRatio: 1})
	assert.InDelta(t, 0.35*0.75, c.pinchThreshold(), 1e-12)
	c.Personalize(HandProfile{})
	assert.InDelta(t, 0.35, c.pinchThreshold(), 1e-12)
	assert.Equal(t, defaultExtended, c.extBounds)
}

// reach returns a copy of l with every finger tip moved along the wrist ray
// so its tip/PIP extension ratio is exactly q.
func reach(l detector.HandLandmarks, q float64) detector.HandLandmarks {
	out := l.Clone()
	w := out.Points[detector.Wrist]
	for f := index; f <= pinky; f++ {
		pip, tip := fingerJoints[f][0], fingerJoints[f][1]
		scale := q * detector.Distance(w, out.Points[pip]) / detector.Distance(w, out.Points[tip])
		p := out.Points[tip]
		out.Points[tip] = detector.Point3D{X: w.X + (p.X-w.X)*scale, Y: w.Y + (p.Y-w.Y)*scale, Z: w.Z + (p.Z-w.Z)*scale}
	}
	return out
}

func TestClassifier_PersonalizeBaseline(t *testing.T) {
	relaxed := reach(detector.OpenPalmLandmarks(), 1.35)
	openPalm := detector.OpenPalmLandmarks()
	wide := openPalm.Normalize().Points

	tests := []struct {
		name     string
		profile  HandProfile
		wantOpen bool
	}{
		{"no baseline", HandProfile{SpanRatio: 3}, true},
		{"short-fingered baseline", HandProfile{SpanRatio: 3, Baseline: relaxed.Normalize().Points}, true},
		{"wide open baseline", HandProfile{SpanRatio: 3, Baseline: wide}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(DefaultConfig())
			c.Personalize(tt.profile)
			events := c.Classify([]smoothing.Hand{still(relaxed)}, t0)
			_, open := find(events, OpenPalm)
			assert.Equal(t, tt.wantOpen, open, "got %v", types(events))
		})
	}
}

func TestExtendedBounds(t *testing.T) {
	assert.Equal(t, defaultExtended, extendedBounds(nil))
	assert.Equal(t, defaultExtended, extendedBounds(detector.OpenPalmLandmarks().Points[:5]))

	fistHand := detector.FistLandmarks()
	fist := extendedBounds(fistHand.Normalize().Points)
	for f := index; f <= pinky; f++ {
		assert.Equal(t, fingerExtendedMin, fist[f], "finger %d", f)
	}

	openHand := detector.OpenPalmLandmarks()
	open := extendedBounds(openHand.Normalize().Points)
	assert.InDelta(t, 1.857, open[middle], 0.001)
	assert.InDelta(t, 1.567, open[thumb], 0.001)
}

func TestEvent_Metric(t *testing.T) {
	e := Event{Value: 0.4, Confidence: 0.8, Metadata: map[string]float64{"y": 0.3}}

	v, ok := e.Metric("")
	assert.True(t, ok)
	assert.Equal(t, 0.4, v)
	v, _ = e.Metric("confidence")
	assert.Equal(t, 0.8, v)
	v, ok = e.Metric("y")
	assert.True(t, ok)
	assert.Equal(t, 0.3, v)
	_, ok = e.Metric("missing")
	assert.False(t, ok)
}
