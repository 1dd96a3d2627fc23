// internal/highlights/file.go
package highlights

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/profile"
	"github.com/Corphon/PsychoPedia/internal/storage"
)

// StorageKey is the file holding a profile's highlights, one JSON array.
const StorageKey = "highlights.json"

// FileRepository persists a profile's highlights through FileStorage.
type FileRepository struct {
	storage      *storage.FileStorage
	dir          string
	defaultColor string
	now          func() time.Time
}

// NewFileRepository opens the repository of one profile.
func NewFileRepository(fs *storage.FileStorage, profileID, defaultColor string) (*FileRepository, error) {
	if err := profile.ValidateID(profileID); err != nil {
		return nil, err
	}
	return &FileRepository{
		storage:      fs,
		dir:          profile.Dir(profileID),
		defaultColor: defaultColor,
		now:          time.Now,
	}, nil
}

func (r *FileRepository) load() ([]models.Highlight, error) {
	var list []models.Highlight
	err := r.storage.LoadJSON(r.dir, StorageKey, &list)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewProcessingError("load highlights", err)
	}
	return list, nil
}

func (r *FileRepository) Get(ctx context.Context, f Filter) ([]models.Highlight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, err := r.load()
	if err != nil {
		return nil, err
	}
	return filter(list, f), nil
}

func (r *FileRepository) Add(ctx context.Context, h models.NewHighlight) (models.Highlight, error) {
	if err := ctx.Err(); err != nil {
		return models.Highlight{}, err
	}
	if err := Validate(h); err != nil {
		return models.Highlight{}, err
	}

	var list []models.Highlight
	var stored models.Highlight
	err := r.storage.Update(r.dir, StorageKey, &list, func() error {
		list, stored = add(list, h, r.defaultColor, r.now().UTC())
		return nil
	})
	if err != nil {
		return models.Highlight{}, apperrors.NewProcessingError("save highlight", err)
	}
	return stored, nil
}

func (r *FileRepository) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var list []models.Highlight
	err := r.storage.Update(r.dir, StorageKey, &list, func() error {
		var ok bool
		if list, ok = remove(list, id); !ok {
			return notFound(id)
		}
		return nil
	})
	if apperrors.IsNotFoundError(err) {
		return err
	}
	if err != nil {
		return apperrors.NewProcessingError("remove highlight", err)
	}
	return nil
}

func (r *FileRepository) Clear(ctx context.Context, articleID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var list []models.Highlight
	var n int
	err := r.storage.Update(r.dir, StorageKey, &list, func() error {
		list, n = clearArticle(list, articleID)
		if n == 0 {
			return errNothingToClear
		}
		return nil
	})
	if errors.Is(err, errNothingToClear) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.NewProcessingError("clear highlights", err)
	}
	return n, nil
}

// errNothingToClear aborts the write when Clear has nothing to remove.
var errNothingToClear = errors.New("no highlights to clear")

// FileProvider opens FileRepositories on a shared FileStorage.
type FileProvider struct {
	storage      *storage.FileStorage
	defaultColor func() string
}

// NewFileProvider takes the default color as a func so palette edits apply
// without restarting.
func NewFileProvider(fs *storage.FileStorage, defaultColor func() string) *FileProvider {
	return &FileProvider{storage: fs, defaultColor: defaultColor}
}

func (p *FileProvider) ForProfile(profileID string) (Repository, error) {
	return NewFileRepository(p.storage, profileID, p.defaultColor())
}
