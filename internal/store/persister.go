package store

import (
	"errors"
	"fmt"

	"github.com/ayusman/gesturemix/internal/mapping"
)

// ProfilePersister writes registry changes to the store.
type ProfilePersister struct {
	s *Store
}

// Persister returns a mapping.Persister backed by this store.
func (s *Store) Persister() *ProfilePersister {
	return &ProfilePersister{s: s}
}

// SaveProfile stores p with its mappings.
func (p *ProfilePersister) SaveProfile(profile *mapping.Profile) error {
	return p.s.Profiles().Save(profile)
}

// DeleteProfile removes a stored profile. Profiles that were never stored
// are ignored.
func (p *ProfilePersister) DeleteProfile(id string) error {
	if err := p.s.Profiles().Delete(id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// SaveActive records the active profile id.
func (p *ProfilePersister) SaveActive(id string) error {
	return p.s.Settings().Set(SettingActiveProfile, id)
}

// LoadRegistry installs the stored profiles and active selection into r.
func (s *Store) LoadRegistry(r *mapping.Registry) error {
	profiles, err := s.Profiles().List()
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	active, err := s.Settings().Get(SettingActiveProfile)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("read active profile: %w", err)
	}
	r.Load(profiles, active)
	return nil
}
