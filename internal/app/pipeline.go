package app

import (
	"context"
	"time"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/monitoring"
)

// readErrorLogEvery limits camera read and detection failures to one log
// line per n.
const readErrorLogEvery = 100

// runCapture reads frames at the rate chosen by the motion gate and submits
// the detected hands to the runner. A camera that cannot be opened leaves
// the service running without frames.
func (a *App) runCapture(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		monitoring.Logf("capture: %v; running without camera", err)
		return nil
	}
	defer a.camera.Close()
	defer a.motion.Close()

	fps := a.gate.FPS()
	a.camera.SetFPS(fps)
	ticker := time.NewTicker(interval(fps))
	defer ticker.Stop()

	monitoring.Logf("capture: started at %d fps", fps)
	var readErrors int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			fps, changed, err := a.step(now)
			if err != nil {
				if readErrors%readErrorLogEvery == 0 {
					monitoring.Logf("capture: %v", err)
				}
				readErrors++
				continue
			}
			if changed {
				ticker.Reset(interval(fps))
			}
		}
	}
}

// step reads one frame, updates the motion gate and submits the hands the
// detector finds. Detection runs in both modes; the gate only lowers the
// frame rate while the scene is still.
func (a *App) step(now time.Time) (fps int, changed bool, err error) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		return a.gate.FPS(), false, err
	}
	defer frame.Close()

	moved, _ := a.motion.Detect(frame)
	fps, changed = a.gate.Observe(moved, now)
	if changed {
		a.camera.SetFPS(fps)
		mode := "idle"
		if a.gate.Active() {
			mode = "active"
		}
		monitoring.Logf("capture: switched to %s mode (%d fps)", mode, fps)
	}

	det := a.Detector()
	if det == nil {
		return fps, changed, nil
	}
	hands, err := det.Detect(frame)
	if err != nil {
		if a.detectErrors%readErrorLogEvery == 0 {
			monitoring.Logf("capture: detect hands: %v (%d failures)", err, a.detectErrors+1)
		}
		a.detectErrors++
		return fps, changed, nil
	}
	a.runner.Submit(detector.Frame{
		Hands:     hands,
		Timestamp: now,
		Width:     frame.Cols(),
		Height:    frame.Rows(),
	})
	return fps, changed, nil
}

func interval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}
