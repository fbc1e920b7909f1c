package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/gesturemix/internal/calibration"
	"github.com/ayusman/gesturemix/internal/pipeline"
	"github.com/ayusman/gesturemix/internal/store"
)

// CalibrationHandler drives the pipeline's calibration session. Finalized
// calibrations are persisted when a store is configured.
type CalibrationHandler struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
}

// NewCalibrationHandler creates a new CalibrationHandler. s may be nil.
func NewCalibrationHandler(p *pipeline.Pipeline, s *store.Store) *CalibrationHandler {
	return &CalibrationHandler{pipeline: p, store: s}
}

// Register adds the calibration routes to mux.
func (h *CalibrationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/calibration", h.status)
	mux.HandleFunc("DELETE /api/calibration", h.clear)
	mux.HandleFunc("POST /api/calibration/start", h.start)
	mux.HandleFunc("POST /api/calibration/stop", h.stop)
	mux.HandleFunc("POST /api/calibration/sample", h.sample)
	mux.HandleFunc("POST /api/calibration/finalize", h.finalize)
}

type calibrationStatus struct {
	Active       bool              `json:"active"`
	Samples      int               `json:"samples"`
	Observations int               `json:"observations"`
	Calibration  *calibration.Data `json:"calibration"`
}

type startRequest struct {
	UserID string `json:"user_id"`
}

// sampleRequest records a screen target. Without hand coordinates the
// position of the last observed hand is used.
type sampleRequest struct {
	ScreenX    float64  `json:"screen_x"`
	ScreenY    float64  `json:"screen_y"`
	HandX      *float64 `json:"hand_x,omitempty"`
	HandY      *float64 `json:"hand_y,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type clearResponse struct {
	UserID  string `json:"user_id"`
	Removed int64  `json:"removed"`
}

func (h *CalibrationHandler) currentStatus() calibrationStatus {
	s := h.pipeline.Session()
	samples, observations := s.Progress()
	return calibrationStatus{
		Active:       s.Active(),
		Samples:      samples,
		Observations: observations,
		Calibration:  h.pipeline.Calibration(),
	}
}

// status handles GET /api/calibration.
func (h *CalibrationHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentStatus())
}

// start handles POST /api/calibration/start.
func (h *CalibrationHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.pipeline.StartCalibration(req.UserID)
	writeJSON(w, http.StatusOK, h.currentStatus())
}

// stop handles POST /api/calibration/stop.
func (h *CalibrationHandler) stop(w http.ResponseWriter, r *http.Request) {
	h.pipeline.StopCalibration()
	writeJSON(w, http.StatusOK, h.currentStatus())
}

// sample handles POST /api/calibration/sample.
func (h *CalibrationHandler) sample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := h.pipeline.Session()
	var (
		sample calibration.Sample
		err    error
	)
	if req.HandX != nil && req.HandY != nil {
		sample = calibration.Sample{
			ScreenX:    req.ScreenX,
			ScreenY:    req.ScreenY,
			HandX:      *req.HandX,
			HandY:      *req.HandY,
			Confidence: 1,
		}
		if req.Confidence != nil {
			sample.Confidence = *req.Confidence
		}
		err = session.Record(sample)
	} else {
		sample, err = session.Capture(req.ScreenX, req.ScreenY)
	}

	switch {
	case errors.Is(err, calibration.ErrNotActive), errors.Is(err, calibration.ErrNoHand):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, calibration.ErrInvalidSample):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusCreated, sample)
	}
}

// finalize handles POST /api/calibration/finalize. It always applies a
// result; too few samples yield the uncalibrated default.
func (h *CalibrationHandler) finalize(w http.ResponseWriter, r *http.Request) {
	d := h.pipeline.FinalizeCalibration()

	if h.store != nil && d.Calibrated {
		if err := h.store.Calibrations().Save(d); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save calibration")
			return
		}
		if err := h.store.Settings().Set(store.SettingCalibrationUser, d.UserID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save calibration user")
			return
		}
	}
	writeJSON(w, http.StatusOK, d)
}

// clear handles DELETE /api/calibration[?user_id=]. The applied calibration
// is reset and the user's stored calibrations are removed.
func (h *CalibrationHandler) clear(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = h.pipeline.Calibration().UserID
	}
	h.pipeline.SetCalibration(nil)

	resp := clearResponse{UserID: userID}
	if h.store != nil {
		n, err := h.store.Calibrations().DeleteByUser(userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to delete calibrations")
			return
		}
		resp.Removed = n
	}
	writeJSON(w, http.StatusOK, resp)
}
