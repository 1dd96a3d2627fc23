// internal/highlights/service.go
package highlights

import (
	"context"
	"time"

	"github.com/samber/lo"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/metrics"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/render"
	"github.com/Corphon/PsychoPedia/internal/utils"
)

// Publisher receives every change so open readers can re-render.
type Publisher interface {
	Publish(event models.HighlightEvent)
}

// Service is the profile-aware entry point used by the API.
type Service struct {
	provider  Provider
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *utils.Logger
	now       func() time.Time
}

// NewService wires a provider. publisher and m may be nil.
func NewService(provider Provider, publisher Publisher, m *metrics.Metrics) *Service {
	return &Service{
		provider:  provider,
		publisher: publisher,
		metrics:   m,
		logger:    utils.GetLogger().With("highlights"),
		now:       time.Now,
	}
}

// SetPublisher attaches the event sink once it exists.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// List returns a profile's highlights matching f.
func (s *Service) List(ctx context.Context, profileID string, f Filter) ([]models.Highlight, error) {
	repo, err := s.provider.ForProfile(profileID)
	if err != nil {
		return nil, err
	}
	list, err := repo.Get(ctx, f)
	s.metrics.RecordHighlightOp("get", err)
	return list, err
}

// ForParagraph returns the highlights saved against one paragraph, the input
// of a paragraph render.
func (s *Service) ForParagraph(ctx context.Context, profileID, articleID, sectionTitle string, paragraphIndex int) ([]models.Highlight, error) {
	return s.List(ctx, profileID, Paragraph(articleID, sectionTitle, paragraphIndex))
}

// ByParagraph groups an article's highlights by section title and paragraph
// index with a single repository read.
func (s *Service) ByParagraph(ctx context.Context, profileID, articleID string) (map[string]map[int][]models.Highlight, error) {
	list, err := s.List(ctx, profileID, Filter{ArticleID: articleID})
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]map[int][]models.Highlight)
	for section, items := range lo.GroupBy(list, func(h models.Highlight) string { return h.SectionTitle }) {
		grouped[section] = lo.GroupBy(items, func(h models.Highlight) int { return h.ParagraphIndex })
	}
	return grouped, nil
}

// Add stores a highlight and reports whether it replaced an existing one.
func (s *Service) Add(ctx context.Context, profileID string, h models.NewHighlight) (models.Highlight, bool, error) {
	if h.Color != "" && !render.IsSafeColor(h.Color) {
		return models.Highlight{}, false, apperrors.NewValidationError("invalid highlight color: "+h.Color, nil)
	}

	repo, err := s.provider.ForProfile(profileID)
	if err != nil {
		return models.Highlight{}, false, err
	}

	stored, err := repo.Add(ctx, h)
	s.metrics.RecordHighlightOp("add", err)
	if err != nil {
		return models.Highlight{}, false, err
	}

	updated := stored.UpdatedAt != nil
	eventType := models.HighlightAdded
	if updated {
		eventType = models.HighlightUpdated
	}
	s.publish(models.HighlightEvent{
		Type:      eventType,
		ArticleID: stored.ArticleID,
		ProfileID: profileID,
		Highlight: &stored,
	})

	s.logger.Debug("highlight stored", map[string]interface{}{
		"profile":    profileID,
		"article_id": stored.ArticleID,
		"id":         stored.ID,
		"updated":    updated,
	})
	return stored, updated, nil
}

// Remove deletes one highlight.
func (s *Service) Remove(ctx context.Context, profileID, id string) error {
	repo, err := s.provider.ForProfile(profileID)
	if err != nil {
		return err
	}

	// Look the record up first so the event can name its article.
	all, err := repo.Get(ctx, Filter{})
	if err != nil {
		return err
	}
	target, found := lo.Find(all, func(h models.Highlight) bool { return h.ID == id })
	if !found {
		err = notFound(id)
		s.metrics.RecordHighlightOp("remove", err)
		return err
	}

	err = repo.Remove(ctx, id)
	s.metrics.RecordHighlightOp("remove", err)
	if err != nil {
		return err
	}

	s.publish(models.HighlightEvent{
		Type:      models.HighlightRemoved,
		ArticleID: target.ArticleID,
		ProfileID: profileID,
		Highlight: &target,
		Removed:   1,
	})
	return nil
}

// Clear deletes every highlight of an article.
func (s *Service) Clear(ctx context.Context, profileID, articleID string) (int, error) {
	repo, err := s.provider.ForProfile(profileID)
	if err != nil {
		return 0, err
	}

	n, err := repo.Clear(ctx, articleID)
	s.metrics.RecordHighlightOp("clear", err)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.publish(models.HighlightEvent{
			Type:      models.HighlightCleared,
			ArticleID: articleID,
			ProfileID: profileID,
			Removed:   n,
		})
		s.logger.Info("highlights cleared", map[string]interface{}{
			"profile":    profileID,
			"article_id": articleID,
			"count":      n,
		})
	}
	return n, nil
}

func (s *Service) publish(event models.HighlightEvent) {
	if s.publisher == nil {
		return
	}
	event.Timestamp = s.now().UTC()
	s.publisher.Publish(event)
}
