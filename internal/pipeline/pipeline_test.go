package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gesturemix/internal/calibration"
	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/gesture"
	"github.com/ayusman/gesturemix/internal/mapping"
	"github.com/ayusman/gesturemix/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

var t0 = time.Unix(20000, 0)

type fixedSource struct{ p *mapping.Profile }

func (s fixedSource) Active() *mapping.Profile { return s.p }

func palmProfile() *mapping.Profile {
	return &mapping.Profile{
		ID:          "palm",
		Name:        "Palm",
		Sensitivity: 1,
		Mappings: []mapping.Mapping{{
			ID:            "palm-level",
			Name:          "Palm level",
			Gesture:       gesture.OpenPalm,
			Hand:          mapping.HandEither,
			Target:        "master.level",
			Mode:          mapping.ModeContinuous,
			Input:         mapping.Range{Min: 0, Max: 1},
			Output:        mapping.Range{Min: 0, Max: 10},
			MinConfidence: 0.6,
			Enabled:       true,
		}},
	}
}

func frameAt(i int, hands ...detector.HandLandmarks) detector.Frame {
	return detector.Frame{
		Hands:     hands,
		Timestamp: t0.Add(time.Duration(i) * 16 * time.Millisecond),
		Width:     640,
		Height:    480,
	}
}

func TestPipeline_ProcessFrame(t *testing.T) {
	p := New(DefaultConfig(), fixedSource{palmProfile()})

	var out Output
	for i := 0; i < 5; i++ {
		out = p.ProcessFrame(frameAt(i, detector.OpenPalmLandmarks()))
	}

	require.Len(t, out.Hands, 1)
	assert.Equal(t, detector.SideRight, out.Hands[0].Side)
	assert.Equal(t, 640, out.Width)
	assert.Equal(t, "palm", out.ProfileID)

	found := false
	for _, e := range out.Events {
		if e.Type == gesture.OpenPalm {
			found = true
		}
		assert.GreaterOrEqual(t, e.Confidence, 0.0)
		assert.LessOrEqual(t, e.Confidence, 1.0)
	}
	assert.True(t, found, "expected open-palm event, got %+v", out.Events)

	require.Len(t, out.Active, 1)
	assert.Equal(t, "palm-level", out.Active[0].MappingID)
	require.Len(t, out.Controls, 1)
	assert.Equal(t, "master.level", out.Controls[0].Target)
	assert.GreaterOrEqual(t, out.Latency, time.Duration(0))
	assert.False(t, out.Calibrating)
}

func TestPipeline_InputAnomalies(t *testing.T) {
	p := New(DefaultConfig(), fixedSource{palmProfile()})

	short := detector.OpenPalmLandmarks()
	short.Points = short.Points[:5]
	outside := detector.OpenPalmLandmarks().Place(1.2, 0.5)

	frames := []detector.Frame{
		frameAt(0),
		frameAt(1, detector.HandLandmarks{}),
		frameAt(2, short),
		frameAt(3, outside),
	}
	for _, f := range frames {
		out := p.ProcessFrame(f)
		assert.Empty(t, out.Hands)
		assert.Empty(t, out.Events)
		assert.Empty(t, out.Active)
	}
}

func TestPipeline_ZeroTimestampUsesClock(t *testing.T) {
	p := New(DefaultConfig(), fixedSource{palmProfile()})
	p.clock = func() time.Time { return t0 }

	out := p.ProcessFrame(detector.Frame{Hands: []detector.HandLandmarks{detector.FistLandmarks()}})
	assert.Equal(t, t0, out.Timestamp)
	assert.Equal(t, time.Duration(0), out.Latency)
}

func TestPipeline_CalibrationMode(t *testing.T) {
	p := New(DefaultConfig(), fixedSource{palmProfile()})
	p.StartCalibration("dj")

	for i := 0; i < 3; i++ {
		out := p.ProcessFrame(frameAt(i, detector.OpenPalmLandmarks()))
		assert.True(t, out.Calibrating)
		assert.Len(t, out.Hands, 1)
		assert.Empty(t, out.Events, "calibration frames skip classification")
		assert.Empty(t, out.Active)
	}
	_, observations := p.Session().Progress()
	assert.Equal(t, 3, observations)

	for _, v := range []float64{0.2, 0.5, 0.8} {
		require.NoError(t, p.Session().Record(calibration.Sample{
			ScreenX: v, ScreenY: v, HandX: v, HandY: v, Confidence: 1,
		}))
	}
	d := p.FinalizeCalibration()
	require.True(t, d.Calibrated)
	assert.Same(t, d, p.Calibration())
	assert.InDelta(t, 0.14, d.Metrics.PalmHeight, 0.005)

	out := p.ProcessFrame(frameAt(3, detector.OpenPalmLandmarks()))
	assert.False(t, out.Calibrating)
	assert.NotEmpty(t, out.Events)
}

// halfOpen pulls every finger tip toward the wrist so the tip sits at 1.35
// PIP distances.
func halfOpen() detector.HandLandmarks {
	h := detector.OpenPalmLandmarks()
	w := h.Points[detector.Wrist]
	joints := [][2]int{
		{detector.IndexPIP, detector.IndexTip},
		{detector.MiddlePIP, detector.MiddleTip},
		{detector.RingPIP, detector.RingTip},
		{detector.PinkyPIP, detector.PinkyTip},
	}
	for _, j := range joints {
		k := 1.35 * detector.Distance(w, h.Points[j[0]]) / detector.Distance(w, h.Points[j[1]])
		tip := h.Points[j[1]]
		h.Points[j[1]] = detector.Point3D{X: w.X + (tip.X-w.X)*k, Y: w.Y + (tip.Y-w.Y)*k, Z: tip.Z * k}
	}
	return h
}

func TestPipeline_CalibrationBaselineChangesClassification(t *testing.T) {
	openPalm := func(p *Pipeline) bool {
		out := p.ProcessFrame(frameAt(0, halfOpen()))
		for _, e := range out.Events {
			if e.Type == gesture.OpenPalm {
				return true
			}
		}
		return false
	}

	base := calibration.Data{
		ID:         "c",
		Calibrated: true,
		Metrics:    calibration.Metrics{PalmHeight: 0.14, Span: 0.42},
		FitX:       calibration.Fit{Slope: 1},
		FitY:       calibration.Fit{Slope: 1},
	}

	relaxed := base
	half := halfOpen()
	relaxed.Baseline = half.Normalize().Points
	p := New(DefaultConfig(), fixedSource{palmProfile()})
	p.SetCalibration(&relaxed)
	assert.True(t, openPalm(p), "baseline matching the hand keeps it open")

	wide := base
	openHand := detector.OpenPalmLandmarks()
	wide.Baseline = openHand.Normalize().Points
	p = New(DefaultConfig(), fixedSource{palmProfile()})
	p.SetCalibration(&wide)
	assert.False(t, openPalm(p), "a wider baseline no longer reads the hand as open")

	// Uncalibrated data never applies its baseline.
	wide.Calibrated = false
	p = New(DefaultConfig(), fixedSource{palmProfile()})
	p.SetCalibration(&wide)
	assert.True(t, openPalm(p))
}

func TestPipeline_StopCalibration(t *testing.T) {
	p := New(DefaultConfig(), fixedSource{palmProfile()})
	p.StartCalibration("dj")
	assert.True(t, p.ProcessFrame(frameAt(0, detector.OpenPalmLandmarks())).Calibrating)

	p.StopCalibration()
	assert.False(t, p.ProcessFrame(frameAt(1, detector.OpenPalmLandmarks())).Calibrating)

	d := p.FinalizeCalibration()
	assert.False(t, d.Calibrated, "no samples falls back to defaults")

	p.SetCalibration(nil)
	assert.False(t, p.Calibration().Calibrated)
}

func TestPipeline_Reconfigure(t *testing.T) {
	p := New(DefaultConfig(), fixedSource{palmProfile()})

	bad := gesture.DefaultConfig()
	bad.MinConfidence = 2
	assert.Error(t, p.Reconfigure(bad))

	strict := gesture.DefaultConfig()
	strict.MinConfidence = 0.99
	require.NoError(t, p.Reconfigure(strict))
	out := p.ProcessFrame(frameAt(0, detector.OpenPalmLandmarks()))
	assert.Empty(t, out.Events)
	assert.Len(t, out.Hands, 1)
}

func TestPipeline_Reset(t *testing.T) {
	p := New(DefaultConfig(), fixedSource{palmProfile()})
	p.ProcessFrame(frameAt(0, detector.OpenPalmLandmarks()))
	assert.Equal(t, []detector.Side{detector.SideRight}, p.smoother.Tracked())

	p.ResetHistory()
	assert.Equal(t, []detector.Side{detector.SideRight}, p.smoother.Tracked())
	assert.Equal(t, 0, p.classifier.History().Len(gesture.OpenPalm))

	p.Reset()
	assert.Empty(t, p.smoother.Tracked())
}

type chanSink chan Output

func (c chanSink) Offer(out Output) { c <- out }

type countSink struct {
	mu sync.Mutex
	n  int
}

func (c *countSink) Offer(Output) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func TestSinks_FanOut(t *testing.T) {
	a, b := &countSink{}, &countSink{}
	Sinks{a, b}.Offer(Output{})
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}

func TestRunner_DropsStaleFrames(t *testing.T) {
	r := NewRunner(New(DefaultConfig(), fixedSource{palmProfile()}))

	assert.True(t, r.Submit(frameAt(0)))
	assert.False(t, r.Submit(frameAt(1)))
	assert.False(t, r.Submit(frameAt(2)))

	stats := r.Stats()
	assert.Equal(t, uint64(3), stats.Submitted)
	assert.Equal(t, uint64(2), stats.Dropped)

	// Only the newest frame is left in the slot.
	f := <-r.slot
	assert.Equal(t, frameAt(2).Timestamp, f.Timestamp)
}

func TestRunner_Run(t *testing.T) {
	r := NewRunner(New(DefaultConfig(), fixedSource{palmProfile()}))
	sink := make(chanSink, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, sink) }()

	r.Submit(frameAt(0, detector.OpenPalmLandmarks()))
	select {
	case out := <-sink:
		assert.Len(t, out.Hands, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for output")
	}

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, uint64(1), r.Stats().Processed)
}
