// Package capture reads frames from a camera with GoCV and gates the frame
// rate on scene motion.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Capture defaults. 640x480 keeps landmark inference inside one frame
// interval at DefaultFPS.
const (
	DefaultFPS    = 60
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned by ReadFrame before Open or after Close.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrames is returned when a source has nothing left to read.
	ErrNoFrames = errors.New("no frames available")
	// ErrReadFailed is returned when the device produced no usable frame.
	ErrReadFailed = errors.New("camera read failed")
)

// Camera is a frame source. ReadFrame hands ownership of the Mat to the
// caller.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options selects and sizes a capture device. Zero sizes and rates use the
// package defaults.
type Options struct {
	Device int
	Width  int
	Height int
	FPS    int
	// Mirror flips frames horizontally so the picture matches the user's
	// own left and right.
	Mirror bool
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	return o
}

type device struct {
	mu   sync.Mutex
	opts Options
	vc   *gocv.VideoCapture
}

// NewCamera returns a closed Camera for the device described by opts.
func NewCamera(opts Options) Camera {
	return &device{opts: opts.withDefaults()}
}

// Open starts capture. It does nothing when the device is already open.
func (d *device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.opts.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", d.opts.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device unavailable", d.opts.Device)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.opts.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.opts.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.opts.FPS))
	d.vc = vc
	return nil
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vc == nil {
		return nil
	}
	err := d.vc.Close()
	d.vc = nil
	return err
}

func (d *device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vc == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if !d.vc.Read(&mat) || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("camera %d: %w", d.opts.Device, ErrReadFailed)
	}
	if d.opts.Mirror {
		gocv.Flip(mat, &mat, 1)
	}
	return &mat, nil
}

// SetFPS changes the requested capture rate. Non-positive rates are ignored.
func (d *device) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts.FPS = fps
	if d.vc != nil {
		d.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (d *device) FPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts.FPS
}

func (d *device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vc != nil
}
