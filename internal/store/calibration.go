package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/gesturemix/internal/calibration"
)

// CalibrationRepository persists finalized calibrations and their samples.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Save inserts a calibration and its samples in a single transaction.
func (r *CalibrationRepository) Save(d *calibration.Data) error {
	if d.ID == "" {
		return errors.New("calibration has no id")
	}
	metrics, err := json.Marshal(d.Metrics)
	if err != nil {
		return err
	}
	baseline, err := json.Marshal(d.Baseline)
	if err != nil {
		return err
	}
	fitX, err := json.Marshal(d.FitX)
	if err != nil {
		return err
	}
	fitY, err := json.Marshal(d.FitY)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO calibrations (id, user_id, calibrated, accuracy, metrics, baseline, fit_x, fit_y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Calibrated, d.Accuracy, string(metrics), string(baseline),
		string(fitX), string(fitY), d.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save calibration %s: %w", d.ID, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO calibration_samples (calibration_id, sample_index, screen_x, screen_y, hand_x, hand_y, confidence, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range d.Samples {
		if _, err := stmt.Exec(d.ID, i, s.ScreenX, s.ScreenY, s.HandX, s.HandY, s.Confidence, s.Timestamp.UTC()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Latest retrieves the most recent calibration for a user.
func (r *CalibrationRepository) Latest(userID string) (*calibration.Data, error) {
	var (
		d                             calibration.Data
		metrics, baseline, fitX, fitY string
	)
	err := r.db.QueryRow(
		`SELECT id, user_id, calibrated, accuracy, metrics, baseline, fit_x, fit_y, created_at
		 FROM calibrations
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		userID,
	).Scan(&d.ID, &d.UserID, &d.Calibrated, &d.Accuracy, &metrics, &baseline, &fitX, &fitY, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		raw string
		dst any
	}{
		{metrics, &d.Metrics},
		{baseline, &d.Baseline},
		{fitX, &d.FitX},
		{fitY, &d.FitY},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("decode calibration %s: %w", d.ID, err)
		}
	}

	d.Samples, err = r.samples(d.ID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *CalibrationRepository) samples(calibrationID string) ([]calibration.Sample, error) {
	rows, err := r.db.Query(
		`SELECT screen_x, screen_y, hand_x, hand_y, confidence, recorded_at
		 FROM calibration_samples
		 WHERE calibration_id = ?
		 ORDER BY sample_index`,
		calibrationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []calibration.Sample
	for rows.Next() {
		var s calibration.Sample
		if err := rows.Scan(&s.ScreenX, &s.ScreenY, &s.HandX, &s.HandY, &s.Confidence, &s.Timestamp); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteByUser removes every calibration stored for a user and reports how
// many were removed.
func (r *CalibrationRepository) DeleteByUser(userID string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM calibrations WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
