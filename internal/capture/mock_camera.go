package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera replays a fixed frame sequence. Tests use it in place of a
// device.
type MockCamera struct {
	mu     sync.Mutex
	frames []*gocv.Mat
	next   int
	loop   bool
	fps    int
	open   bool
}

// NewMockCamera returns a closed camera over frames. With loop set playback
// wraps to the first frame instead of ending.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// Open rewinds playback.
func (m *MockCamera) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open, m.next = true, 0
	return nil
}

func (m *MockCamera) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

// ReadFrame returns a copy of the next frame; the sequence itself is never
// handed out.
func (m *MockCamera) ReadFrame() (*gocv.Mat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.open:
		return nil, ErrCameraNotOpen
	case m.next >= len(m.frames) && (!m.loop || len(m.frames) == 0):
		return nil, ErrNoFrames
	case m.next >= len(m.frames):
		m.next = 0
	}
	mat := m.frames[m.next].Clone()
	m.next++
	return &mat, nil
}

func (m *MockCamera) SetFPS(fps int) {
	if fps > 0 {
		m.mu.Lock()
		m.fps = fps
		m.mu.Unlock()
	}
}

func (m *MockCamera) FPS() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fps
}

func (m *MockCamera) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// SetFrames swaps in a new sequence and rewinds.
func (m *MockCamera) SetFrames(frames []*gocv.Mat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames, m.next = frames, 0
}

// Reset rewinds without reopening.
func (m *MockCamera) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = 0
}
