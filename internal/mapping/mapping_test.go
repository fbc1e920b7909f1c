package mapping

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/gesture"
	"github.com/ayusman/gesturemix/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func validMapping(id string) Mapping {
	return Mapping{
		ID:            id,
		Name:          "Mapping " + id,
		Gesture:       gesture.Pinch,
		Hand:          HandEither,
		Target:        "master_volume",
		Mode:          ModeContinuous,
		Input:         Range{Min: 0, Max: 1},
		Output:        Range{Min: 0, Max: 1},
		MinConfidence: 0.6,
		Enabled:       true,
	}
}

func ptr(v float64) *float64 { return &v }

func TestTransform(t *testing.T) {
	m := validMapping("eq")
	m.Input = Range{Min: 0.2, Max: 0.8}
	m.Output = Range{Min: -26, Max: 26}

	tests := []struct {
		in, want float64
	}{
		{0.5, 0},
		{0.2, -26},
		{0.8, 26},
		{0.35, -13},
		{0.0, -26},
		{-5, -26},
		{0.9, 26},
		{42, 26},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, m.Transform(tt.in), 1e-9, "input %v", tt.in)
	}

	t.Run("descending output", func(t *testing.T) {
		m := validMapping("vol")
		m.Input = Range{Min: 0.1, Max: 0.9}
		m.Output = Range{Min: 1, Max: 0}
		assert.InDelta(t, 1.0, m.Transform(0.1), 1e-9)
		assert.InDelta(t, 0.5, m.Transform(0.5), 1e-9)
		assert.InDelta(t, 0.0, m.Transform(1.0), 1e-9)
	})

	t.Run("NaN input maps to the lower bound", func(t *testing.T) {
		assert.Equal(t, -26.0, m.Transform(math.NaN()))
	})
}

func TestCurves(t *testing.T) {
	tests := []struct {
		curve Curve
		mid   float64
	}{
		{"", 0.5},
		{CurveLinear, 0.5},
		{CurveExponential, 0.25},
		{CurveLogarithmic, math.Log(5.5) / math.Log(10)},
		{CurveSCurve, 0.5},
	}
	for _, tt := range tests {
		t.Run(string(tt.curve), func(t *testing.T) {
			assert.True(t, tt.curve.Valid())
			assert.InDelta(t, 0.0, tt.curve.Apply(0), 1e-12)
			assert.InDelta(t, 1.0, tt.curve.Apply(1), 1e-12)
			assert.InDelta(t, tt.mid, tt.curve.Apply(0.5), 1e-12)

			prev := 0.0
			for i := 1; i <= 20; i++ {
				v := tt.curve.Apply(float64(i) / 20)
				assert.GreaterOrEqual(t, v, prev, "curve must be monotonic")
				prev = v
			}
		})
	}
	assert.False(t, Curve("cubic").Valid())
}

func TestHandRequirement_Matches(t *testing.T) {
	left := []detector.Side{detector.SideLeft}
	right := []detector.Side{detector.SideRight}
	both := []detector.Side{detector.SideLeft, detector.SideRight}

	assert.True(t, HandLeft.Matches(left))
	assert.False(t, HandLeft.Matches(right))
	assert.True(t, HandRight.Matches(both))
	assert.True(t, HandEither.Matches(right))
	assert.False(t, HandEither.Matches(nil))
	assert.True(t, HandBoth.Matches(both))
	assert.False(t, HandBoth.Matches(left))
	assert.False(t, HandRequirement("any").Matches(both))
}

func TestZone_Contains(t *testing.T) {
	z := Zone{MinX: 0, MinY: 0.2, MaxX: 0.5, MaxY: 0.8}
	assert.True(t, z.Contains(0.25, 0.5))
	assert.True(t, z.Contains(0.5, 0.8))
	assert.False(t, z.Contains(0.51, 0.5))
	assert.False(t, z.Contains(0.25, 0.1))
}

func TestMapping_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m := validMapping("a")
		assert.NoError(t, m.Validate())
	})

	t.Run("lists every violated field", func(t *testing.T) {
		m := Mapping{
			Gesture:       "wave",
			Hand:          "any",
			Mode:          "hold",
			Input:         Range{Min: 1, Max: 1},
			Output:        Range{Min: 2, Max: 2},
			Curve:         "cubic",
			Smoothing:     ptr(1.0),
			MinConfidence: 1.5,
			Priority:      -1,
			HoldTimeMs:    -10,
			Zone:          &Zone{MinX: 0.5, MaxX: 0.4, MinY: 0, MaxY: 1},
		}
		err := m.Validate()
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)

		want := []struct{ field, code string }{
			{"name", CodeRequired},
			{"gesture", CodeInvalidValue},
			{"hand", CodeInvalidValue},
			{"target", CodeRequired},
			{"mode", CodeInvalidValue},
			{"input", CodeInvalidRange},
			{"output", CodeInvalidRange},
			{"curve", CodeInvalidValue},
			{"smoothing", CodeOutOfRange},
			{"min_confidence", CodeOutOfRange},
			{"priority", CodeOutOfRange},
			{"hold_time_ms", CodeOutOfRange},
			{"zone", CodeInvalidRange},
		}
		for _, w := range want {
			assert.True(t, verr.Has(w.field, w.code), "expected issue %s/%s in %v", w.field, w.code, verr.Issues)
		}
		assert.Len(t, verr.Issues, len(want))
	})

	t.Run("descending input rejected", func(t *testing.T) {
		m := validMapping("a")
		m.Input = Range{Min: 0.8, Max: 0.2}
		var verr *ValidationError
		require.ErrorAs(t, m.Validate(), &verr)
		assert.True(t, verr.Has("input", CodeInvalidRange))
	})

	t.Run("both hands needs a two-hand gesture", func(t *testing.T) {
		m := validMapping("a")
		m.Hand = HandBoth
		var verr *ValidationError
		require.ErrorAs(t, m.Validate(), &verr)
		assert.True(t, verr.Has("hand", CodeInvalidValue))

		m.Gesture = gesture.Spread
		assert.NoError(t, m.Validate())
	})

	t.Run("non-finite values", func(t *testing.T) {
		m := validMapping("a")
		m.Output = Range{Min: 0, Max: math.Inf(1)}
		m.MinConfidence = math.NaN()
		var verr *ValidationError
		require.ErrorAs(t, m.Validate(), &verr)
		assert.True(t, verr.Has("output", CodeInvalidValue))
		assert.True(t, verr.Has("min_confidence", CodeOutOfRange))
	})
}

func TestProfile_Validate(t *testing.T) {
	p := &Profile{
		Name:        "",
		Sensitivity: 3,
		Smoothing:   -0.1,
		Mappings:    []Mapping{validMapping("a"), validMapping("a"), {ID: ""}},
	}
	var verr *ValidationError
	require.ErrorAs(t, p.Validate(), &verr)

	assert.True(t, verr.Has("name", CodeRequired))
	assert.True(t, verr.Has("sensitivity", CodeOutOfRange))
	assert.True(t, verr.Has("smoothing", CodeOutOfRange))
	assert.True(t, verr.Has("mappings[1].id", CodeDuplicate))
	assert.True(t, verr.Has("mappings[2].id", CodeRequired))
	assert.True(t, verr.Has("mappings[2].name", CodeRequired))
	assert.Contains(t, verr.Error(), "validation failed")
}

func TestBuiltinProfiles(t *testing.T) {
	profiles := BuiltinProfiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, DefaultProfileID, profiles[0].ID)

	for _, p := range profiles {
		t.Run(p.Name, func(t *testing.T) {
			assert.NoError(t, p.Validate())
			assert.True(t, p.BuiltIn)
			assert.NotEmpty(t, p.Mappings)
		})
	}

	// Each call returns fresh copies.
	profiles[0].Mappings[0].Name = "changed"
	assert.NotEqual(t, "changed", BuiltinProfiles()[0].Mappings[0].Name)
}

func TestProfile_Clone(t *testing.T) {
	m := validMapping("a")
	m.Zone = &Zone{MaxX: 1, MaxY: 1}
	m.Smoothing = ptr(0.2)
	p := &Profile{ID: "p", Name: "P", Sensitivity: 1, Mappings: []Mapping{m}}

	cp := p.Clone()
	cp.Mappings[0].Name = "other"
	cp.Mappings[0].Zone.MaxX = 0.5
	*cp.Mappings[0].Smoothing = 0.9

	assert.Equal(t, "Mapping a", p.Mappings[0].Name)
	assert.Equal(t, 1.0, p.Mappings[0].Zone.MaxX)
	assert.Equal(t, 0.2, *p.Mappings[0].Smoothing)
}
