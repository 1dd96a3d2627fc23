// internal/content/store.go
package content

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/lo"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/utils"
)

// Store serves the article tree, read fully into memory by Load.
// Returned articles are shared and must not be modified.
type Store struct {
	dir           string
	defaultLocale string
	logger        *utils.Logger

	mu       sync.RWMutex
	articles map[string]map[string]*models.Article // locale -> id -> article
}

func NewStore(dir, defaultLocale string) *Store {
	return &Store{
		dir:           dir,
		defaultLocale: defaultLocale,
		logger:        utils.GetLogger().With("content"),
		articles:      make(map[string]map[string]*models.Article),
	}
}

// LoadStats summarizes a Load.
type LoadStats struct {
	Articles int `json:"articles"`
	Skipped  int `json:"skipped"`
}

// Load walks the content directory and replaces the in-memory tree.
// Unreadable files are skipped and logged; a missing directory is an empty tree.
func (s *Store) Load(ctx context.Context) (LoadStats, error) {
	loaded := make(map[string]map[string]*models.Article)
	var stats LoadStats

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.dir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsArticleFile(path) {
			return nil
		}

		article, err := LoadArticle(s.dir, path)
		if err != nil {
			stats.Skipped++
			s.logger.Warn("skipping article file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			return nil
		}
		if !models.IsSupportedLocale(article.Locale) {
			stats.Skipped++
			s.logger.Warn("skipping article in unsupported locale", map[string]interface{}{
				"path":   path,
				"locale": article.Locale,
			})
			return nil
		}

		byID, ok := loaded[article.Locale]
		if !ok {
			byID = make(map[string]*models.Article)
			loaded[article.Locale] = byID
		}
		if _, dup := byID[article.ID]; dup {
			stats.Skipped++
			s.logger.Warn("duplicate article, keeping the first format found", map[string]interface{}{
				"path": path,
				"id":   article.ID,
			})
			return nil
		}
		byID[article.ID] = article
		stats.Articles++
		return nil
	})
	if err != nil {
		return stats, apperrors.NewProcessingError("load content", err)
	}

	s.mu.Lock()
	s.articles = loaded
	s.mu.Unlock()

	s.logger.Info("content loaded", map[string]interface{}{
		"dir":      s.dir,
		"articles": stats.Articles,
		"skipped":  stats.Skipped,
	})
	return stats, nil
}

// Get returns an article in locale, falling back to the default locale.
// The article's Locale field tells which one was served.
func (s *Store) Get(locale, domain, topic string) (*models.Article, error) {
	id := models.ArticleID(domain, topic)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.articles[locale][id]; ok {
		return a, nil
	}
	if a, ok := s.articles[s.defaultLocale][id]; ok {
		return a, nil
	}
	return nil, apperrors.NewNotFoundError("article not found: "+id, nil)
}

// All returns every article available in locale, default-locale articles
// filling the gaps, sorted by id.
func (s *Store) All(locale string) []*models.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := make(map[string]*models.Article, len(s.articles[s.defaultLocale]))
	for id, a := range s.articles[s.defaultLocale] {
		merged[id] = a
	}
	for id, a := range s.articles[locale] {
		merged[id] = a
	}

	all := lo.Values(merged)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// List is All without the section bodies.
func (s *Store) List(locale string) []models.ArticleSummary {
	return lo.Map(s.All(locale), func(a *models.Article, _ int) models.ArticleSummary {
		return a.Summarize()
	})
}

// Domains returns the sorted domain names available in locale.
func (s *Store) Domains(locale string) []string {
	domains := lo.Uniq(lo.Map(s.All(locale), func(a *models.Article, _ int) string {
		return a.Domain
	}))
	sort.Strings(domains)
	return domains
}

// Count returns the number of loaded articles per locale.
func (s *Store) Count() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.MapValues(s.articles, func(byID map[string]*models.Article, _ string) int {
		return len(byID)
	})
}
