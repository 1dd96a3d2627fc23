// Package profile holds per-reader data: the profile directory layout and the
// persisted reader state.
package profile

import (
	"context"
	"errors"
	"path"
	"regexp"
	"time"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/storage"
)

// DefaultID is used when a client does not name a profile.
const DefaultID = "default"

const stateFile = "state.json"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateID rejects profile ids that are not safe as a directory name.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return apperrors.NewValidationError("invalid profile id: "+id, nil)
	}
	return nil
}

// Dir is the storage directory of a profile, relative to the data dir.
func Dir(id string) string {
	return path.Join("profiles", id)
}

// Defaults are the values a reader state falls back to.
type Defaults struct {
	Palette []string
	Color   string
	Locale  string
}

// StateStore persists one ReaderState per profile.
type StateStore struct {
	storage *storage.FileStorage
	now     func() time.Time
}

func NewStateStore(fs *storage.FileStorage) *StateStore {
	return &StateStore{storage: fs, now: time.Now}
}

// Get returns the saved state, or the default state for a new profile.
func (s *StateStore) Get(ctx context.Context, profileID string, d Defaults) (models.ReaderState, error) {
	if err := ctx.Err(); err != nil {
		return models.ReaderState{}, err
	}
	if err := ValidateID(profileID); err != nil {
		return models.ReaderState{}, err
	}

	var state models.ReaderState
	err := s.storage.LoadJSON(Dir(profileID), stateFile, &state)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return models.DefaultReaderState(d.Color, d.Locale), nil
	case err != nil:
		return models.ReaderState{}, apperrors.NewProcessingError("load reader state", err)
	}

	normalize(&state, d)
	return state, nil
}

// Save normalizes and stores the state, returning what was written.
func (s *StateStore) Save(ctx context.Context, profileID string, state models.ReaderState, d Defaults) (models.ReaderState, error) {
	if err := ctx.Err(); err != nil {
		return models.ReaderState{}, err
	}
	if err := ValidateID(profileID); err != nil {
		return models.ReaderState{}, err
	}

	normalize(&state, d)
	state.UpdatedAt = s.now().UTC()

	if err := s.storage.SaveJSON(Dir(profileID), stateFile, state); err != nil {
		return models.ReaderState{}, apperrors.NewProcessingError("save reader state", err)
	}
	return state, nil
}

func normalize(state *models.ReaderState, d Defaults) {
	state.Normalize(d.Palette, d.Color)
	if !models.IsSupportedLocale(state.Locale) {
		state.Locale = d.Locale
	}
}
