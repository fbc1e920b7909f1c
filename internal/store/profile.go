package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ayusman/gesturemix/internal/gesture"
	"github.com/ayusman/gesturemix/internal/mapping"
)

// ProfileRepository persists user profiles and their mappings.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// Save inserts or replaces a profile. Its mappings are rewritten in slice
// order within the same transaction.
func (r *ProfileRepository) Save(p *mapping.Profile) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO profiles (id, name, description, author, version, sensitivity, smoothing, allow_conflicts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   author = excluded.author,
		   version = excluded.version,
		   sensitivity = excluded.sensitivity,
		   smoothing = excluded.smoothing,
		   allow_conflicts = excluded.allow_conflicts,
		   updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Description, p.Author, p.Version, p.Sensitivity, p.Smoothing, p.AllowConflicts,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM mappings WHERE profile_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear mappings of %s: %w", p.ID, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO mappings (profile_id, id, position, name, gesture, hand, target, mode,
		   input_min, input_max, output_min, output_max, curve, value_key, smoothing,
		   min_confidence, priority, hold_time_ms, zone_min_x, zone_min_y, zone_max_x, zone_max_y, enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range p.Mappings {
		var zone [4]sql.NullFloat64
		if m.Zone != nil {
			zone = [4]sql.NullFloat64{
				{Float64: m.Zone.MinX, Valid: true},
				{Float64: m.Zone.MinY, Valid: true},
				{Float64: m.Zone.MaxX, Valid: true},
				{Float64: m.Zone.MaxY, Valid: true},
			}
		}
		_, err := stmt.Exec(
			p.ID, m.ID, i, m.Name, string(m.Gesture), string(m.Hand), m.Target, string(m.Mode),
			m.Input.Min, m.Input.Max, m.Output.Min, m.Output.Max, string(m.Curve), m.ValueKey, storedSmoothing(m.Smoothing),
			m.MinConfidence, m.Priority, m.HoldTimeMs, zone[0], zone[1], zone[2], zone[3], m.Enabled,
		)
		if err != nil {
			return fmt.Errorf("save mapping %s/%s: %w", p.ID, m.ID, err)
		}
	}

	return tx.Commit()
}

const profileColumns = `id, name, description, author, version, sensitivity, smoothing, allow_conflicts, created_at, updated_at`

func scanProfile(sc interface{ Scan(...any) error }) (*mapping.Profile, error) {
	p := &mapping.Profile{}
	err := sc.Scan(&p.ID, &p.Name, &p.Description, &p.Author, &p.Version, &p.Sensitivity,
		&p.Smoothing, &p.AllowConflicts, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Mappings = []mapping.Mapping{}
	return p, nil
}

// Get retrieves a profile with its mappings.
func (r *ProfileRepository) Get(id string) (*mapping.Profile, error) {
	row := r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	byProfile, err := r.mappings(`WHERE profile_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if ms, ok := byProfile[id]; ok {
		p.Mappings = ms
	}
	return p, nil
}

// List retrieves all stored profiles ordered by creation time.
func (r *ProfileRepository) List() ([]*mapping.Profile, error) {
	rows, err := r.db.Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*mapping.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byProfile, err := r.mappings("")
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if ms, ok := byProfile[p.ID]; ok {
			p.Mappings = ms
		}
	}
	return profiles, nil
}

func (r *ProfileRepository) mappings(where string, args ...any) (map[string][]mapping.Mapping, error) {
	rows, err := r.db.Query(
		`SELECT profile_id, id, name, gesture, hand, target, mode,
		   input_min, input_max, output_min, output_max, curve, value_key, smoothing,
		   min_confidence, priority, hold_time_ms, zone_min_x, zone_min_y, zone_max_x, zone_max_y, enabled
		 FROM mappings `+where+`
		 ORDER BY profile_id, position`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]mapping.Mapping)
	for rows.Next() {
		var (
			profileID            string
			m                    mapping.Mapping
			typ, hand, mode, crv string
			zone                 [4]sql.NullFloat64
			smoothing            float64
		)
		err := rows.Scan(&profileID, &m.ID, &m.Name, &typ, &hand, &m.Target, &mode,
			&m.Input.Min, &m.Input.Max, &m.Output.Min, &m.Output.Max, &crv, &m.ValueKey, &smoothing,
			&m.MinConfidence, &m.Priority, &m.HoldTimeMs, &zone[0], &zone[1], &zone[2], &zone[3], &m.Enabled)
		if err != nil {
			return nil, err
		}
		m.Gesture = gesture.Type(typ)
		m.Hand = mapping.HandRequirement(hand)
		m.Mode = mapping.ControlMode(mode)
		m.Curve = mapping.Curve(crv)
		if smoothing >= 0 {
			m.Smoothing = &smoothing
		}
		if zone[0].Valid && zone[1].Valid && zone[2].Valid && zone[3].Valid {
			m.Zone = &mapping.Zone{
				MinX: zone[0].Float64,
				MinY: zone[1].Float64,
				MaxX: zone[2].Float64,
				MaxY: zone[3].Float64,
			}
		}
		out[profileID] = append(out[profileID], m)
	}
	return out, rows.Err()
}

// Delete removes a profile; its mappings are removed by cascade.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// inheritSmoothing is the stored smoothing of a mapping that uses its
// profile's default.
const inheritSmoothing = -1.0

func storedSmoothing(s *float64) float64 {
	if s == nil {
		return inheritSmoothing
	}
	return *s
}
