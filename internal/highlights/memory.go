// internal/highlights/memory.go
package highlights

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/profile"
)

// MemoryRepository keeps highlights in process memory.
type MemoryRepository struct {
	mu           sync.RWMutex
	items        []models.Highlight
	defaultColor string
	now          func() time.Time
}

func NewMemoryRepository(defaultColor string) *MemoryRepository {
	return &MemoryRepository{defaultColor: defaultColor, now: time.Now}
}

func (r *MemoryRepository) Get(ctx context.Context, f Filter) ([]models.Highlight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return filter(r.items, f), nil
}

func (r *MemoryRepository) Add(ctx context.Context, h models.NewHighlight) (models.Highlight, error) {
	if err := ctx.Err(); err != nil {
		return models.Highlight{}, err
	}
	if err := Validate(h); err != nil {
		return models.Highlight{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var stored models.Highlight
	r.items, stored = add(r.items, h, r.defaultColor, r.now().UTC())
	return stored, nil
}

func (r *MemoryRepository) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var ok bool
	if r.items, ok = remove(r.items, id); !ok {
		return notFound(id)
	}
	return nil
}

func (r *MemoryRepository) Clear(ctx context.Context, articleID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	r.items, n = clearArticle(r.items, articleID)
	return n, nil
}

// MemoryProvider keeps one MemoryRepository per profile.
type MemoryProvider struct {
	mu           sync.Mutex
	repos        map[string]*MemoryRepository
	defaultColor string
}

func NewMemoryProvider(defaultColor string) *MemoryProvider {
	return &MemoryProvider{repos: make(map[string]*MemoryRepository), defaultColor: defaultColor}
}

func (p *MemoryProvider) ForProfile(profileID string) (Repository, error) {
	if err := profile.ValidateID(profileID); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	repo, ok := p.repos[profileID]
	if !ok {
		repo = NewMemoryRepository(p.defaultColor)
		p.repos[profileID] = repo
	}
	return repo, nil
}

// Snapshot returns a copy of every stored highlight.
func (r *MemoryRepository) Snapshot() []models.Highlight {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}
