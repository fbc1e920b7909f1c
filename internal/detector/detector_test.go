package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestHandLandmarks_Normalize(t *testing.T) {
	t.Run("wrist at origin after normalization", func(t *testing.T) {
		hand := OpenPalmLandmarks()

		normalized := hand.Normalize()

		w := normalized.Points[Wrist]
		if math.Abs(w.X) > epsilon || math.Abs(w.Y) > epsilon || math.Abs(w.Z) > epsilon {
			t.Errorf("expected wrist at origin, got %+v", w)
		}
		if normalized.Handedness != hand.Handedness {
			t.Errorf("expected handedness %s, got %s", hand.Handedness, normalized.Handedness)
		}
		if normalized.Score != hand.Score {
			t.Errorf("expected score %f, got %f", hand.Score, normalized.Score)
		}
	})

	t.Run("distance from wrist to middle MCP is 1.0", func(t *testing.T) {
		hand := ThumbsUpLandmarks().Scale(0.5)

		normalized := hand.Normalize()

		d := Distance(normalized.Points[Wrist], normalized.Points[MiddleMCP])
		if math.Abs(d-1.0) > epsilon {
			t.Errorf("expected distance 1.0, got %f", d)
		}
	})

	t.Run("nil hand returns nil", func(t *testing.T) {
		var hand *HandLandmarks
		if hand.Normalize() != nil {
			t.Error("expected nil result for nil input")
		}
	})

	t.Run("zero scale returns translated only", func(t *testing.T) {
		hand := HandLandmarks{Points: make([]Point3D, NumLandmarks)}
		for i := range hand.Points {
			hand.Points[i] = Point3D{X: 0.4, Y: 0.2}
		}
		hand.Points[IndexTip] = Point3D{X: 0.5, Y: 0.2}

		normalized := hand.Normalize()

		if math.Abs(normalized.Points[IndexTip].X-0.1) > epsilon {
			t.Errorf("expected index tip X 0.1, got %f", normalized.Points[IndexTip].X)
		}
	})
}

func TestHandLandmarks_Valid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(h *HandLandmarks)
		want   bool
	}{
		{"fixture", func(h *HandLandmarks) {}, true},
		{"missing landmark", func(h *HandLandmarks) { h.Points = h.Points[:20] }, false},
		{"unknown side", func(h *HandLandmarks) { h.Handedness = "" }, false},
		{"NaN coordinate", func(h *HandLandmarks) { h.Points[IndexTip].X = math.NaN() }, false},
		{"out of frame", func(h *HandLandmarks) { h.Points[Wrist].Y = 1.2 }, false},
		{"score above one", func(h *HandLandmarks) { h.Score = 1.5 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := PinchLandmarks()
			tt.modify(&h)
			if got := h.Valid(); got != tt.want {
				t.Errorf("expected Valid() %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{"Left": SideLeft, "right": SideRight, " RIGHT ": SideRight} {
		got, ok := ParseSide(in)
		if !ok || got != want {
			t.Errorf("ParseSide(%q): expected %s, got %s (ok=%v)", in, want, got, ok)
		}
	}
	if _, ok := ParseSide("both"); ok {
		t.Error("expected ParseSide(both) to fail")
	}
}

func TestHandLandmarks_Transforms(t *testing.T) {
	base := OpenPalmLandmarks()

	t.Run("place moves palm center", func(t *testing.T) {
		placed := base.Place(0.2, 0.3)
		c := placed.PalmCenter()
		if math.Abs(c.X-0.2) > epsilon || math.Abs(c.Y-0.3) > epsilon {
			t.Errorf("expected palm center (0.2, 0.3), got (%f, %f)", c.X, c.Y)
		}
	})

	t.Run("scale shrinks palm", func(t *testing.T) {
		scaled := base.Scale(0.4)
		got := scaled.PalmSize()
		if math.Abs(got-base.PalmSize()*0.4) > 1e-6 {
			t.Errorf("expected palm size %f, got %f", base.PalmSize()*0.4, got)
		}
	})

	t.Run("mirror swaps side and keeps center", func(t *testing.T) {
		m := base.Mirror()
		if m.Handedness != SideLeft {
			t.Errorf("expected left hand, got %s", m.Handedness)
		}
		if math.Abs(m.PalmCenter().X-base.PalmCenter().X) > epsilon {
			t.Error("expected palm center unchanged by mirror")
		}
		if m.Points[ThumbTip].X >= m.Points[ThumbMCP].X {
			t.Error("expected mirrored thumb to point left")
		}
	})

	t.Run("transforms copy points", func(t *testing.T) {
		before := base.Points[Wrist]
		_ = base.Place(0.1, 0.1)
		if base.Points[Wrist] != before {
			t.Error("expected Place to leave the receiver untouched")
		}
	})

	t.Run("thumbs down is inverted thumbs up", func(t *testing.T) {
		h := ThumbsDownLandmarks()
		if !h.Valid() {
			t.Fatal("expected thumbs down fixture to be valid")
		}
		if h.Points[ThumbTip].Y <= h.Points[ThumbMCP].Y {
			t.Error("expected thumb tip below thumb MCP")
		}
	})
}

func TestFixturesValid(t *testing.T) {
	fixtures := map[string]HandLandmarks{
		"thumbs up":   ThumbsUpLandmarks(),
		"thumbs down": ThumbsDownLandmarks(),
		"open palm":   OpenPalmLandmarks(),
		"fist":        FistLandmarks(),
		"pinch":       PinchLandmarks(),
		"peace":       PeaceSignLandmarks(),
		"point":       PointLandmarks(),
	}
	for name, h := range fixtures {
		if !h.Valid() {
			t.Errorf("expected %s fixture to be valid", name)
		}
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns copies of configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{ThumbsUpLandmarks(), OpenPalmLandmarks().Mirror()})

		hands, err := mock.Detect(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Fatalf("expected 2 hands, got %d", len(hands))
		}
		hands[0].Points[Wrist].X = 0

		again, _ := mock.Detect(nil)
		if again[0].Points[Wrist].X != 0.5 {
			t.Error("expected mock to hand out independent copies")
		}
		if mock.Calls() != 2 {
			t.Errorf("expected 2 calls, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte("jpeg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := buf.Bytes()
	if n := binary.BigEndian.Uint32(b[:4]); n != 4 {
		t.Errorf("expected length prefix 4, got %d", n)
	}
	if string(b[4:]) != "jpeg" {
		t.Errorf("expected payload jpeg, got %q", b[4:])
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Run("drops malformed hands", func(t *testing.T) {
		points := `[` + repeat(`{"x":0.5,"y":0.5,"z":0}`, NumLandmarks) + `]`
		line := `{"hands":[{"points":` + points + `,"handedness":"Left","score":0.9},` +
			`{"points":[{"x":0.1,"y":0.1,"z":0}],"handedness":"Right","score":0.9}]}`

		hands, err := decodeResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if hands[0].Handedness != SideLeft {
			t.Errorf("expected left hand, got %s", hands[0].Handedness)
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`{"error":"model not loaded"}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`{`)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestConfigFilter(t *testing.T) {
	cfg := Config{MaxHands: 2, MinConfidence: 0.5}
	hands := []HandLandmarks{
		OpenPalmLandmarks().WithScore(0.4),
		OpenPalmLandmarks(),
		FistLandmarks(),
		PinchLandmarks(),
	}
	got := cfg.filter(hands)
	if len(got) != 2 {
		t.Fatalf("expected 2 hands, got %d", len(got))
	}
	if got[0].Score != 0.95 {
		t.Errorf("expected low-score hand dropped, got score %f", got[0].Score)
	}
}

func repeat(s string, n int) string {
	out := s
	for i := 1; i < n; i++ {
		out += "," + s
	}
	return out
}
