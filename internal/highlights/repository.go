// Package highlights stores reader highlights and answers the per-paragraph
// queries the renderer needs.
package highlights

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/models"
)

// Filter narrows a query. Empty or nil fields match anything.
type Filter struct {
	ArticleID      string
	SectionTitle   *string
	ParagraphIndex *int
}

// Paragraph builds the filter for one exact paragraph coordinate.
func Paragraph(articleID, sectionTitle string, paragraphIndex int) Filter {
	return Filter{
		ArticleID:      articleID,
		SectionTitle:   &sectionTitle,
		ParagraphIndex: &paragraphIndex,
	}
}

// Match reports whether h falls under the filter.
func (f Filter) Match(h models.Highlight) bool {
	if f.ArticleID != "" && h.ArticleID != f.ArticleID {
		return false
	}
	if f.SectionTitle != nil && h.SectionTitle != *f.SectionTitle {
		return false
	}
	if f.ParagraphIndex != nil && h.ParagraphIndex != *f.ParagraphIndex {
		return false
	}
	return true
}

// Repository is the highlight store of a single reader profile.
type Repository interface {
	// Get returns the matching highlights in insertion order.
	Get(ctx context.Context, filter Filter) ([]models.Highlight, error)
	// Add inserts a highlight, or updates the color of an existing one with the
	// same text at the same paragraph.
	Add(ctx context.Context, h models.NewHighlight) (models.Highlight, error)
	// Remove deletes one highlight by id.
	Remove(ctx context.Context, id string) error
	// Clear deletes every highlight of an article and reports how many went.
	Clear(ctx context.Context, articleID string) (int, error)
}

// Provider hands out the repository of a reader profile.
type Provider interface {
	ForProfile(profileID string) (Repository, error)
}

// Validate checks a new highlight before it is stored.
func Validate(h models.NewHighlight) error {
	switch {
	case strings.TrimSpace(h.Text) == "":
		return apperrors.NewValidationError("highlight text is empty", nil)
	case strings.TrimSpace(h.ArticleID) == "":
		return apperrors.NewValidationError("highlight article id is empty", nil)
	case h.ParagraphIndex < 0:
		return apperrors.NewValidationError("paragraph index must not be negative", nil)
	}
	return nil
}

func sameSpot(a models.Highlight, b models.NewHighlight) bool {
	return a.ArticleID == b.ArticleID &&
		a.SectionTitle == b.SectionTitle &&
		a.ParagraphIndex == b.ParagraphIndex &&
		strings.EqualFold(strings.TrimSpace(a.Text), strings.TrimSpace(b.Text))
}

// add applies an Add to list, returning the new list and the stored record.
func add(list []models.Highlight, h models.NewHighlight, defaultColor string, now time.Time) ([]models.Highlight, models.Highlight) {
	color := strings.TrimSpace(h.Color)
	if color == "" {
		color = defaultColor
	}

	if _, idx, ok := lo.FindIndexOf(list, func(existing models.Highlight) bool {
		return sameSpot(existing, h)
	}); ok {
		list[idx].Color = color
		list[idx].UpdatedAt = &now
		return list, list[idx]
	}

	created := models.Highlight{
		ID:             uuid.NewString(),
		Text:           h.Text,
		Color:          color,
		ArticleID:      h.ArticleID,
		SectionTitle:   h.SectionTitle,
		ParagraphIndex: h.ParagraphIndex,
		CreatedAt:      now,
	}
	return append(list, created), created
}

func remove(list []models.Highlight, id string) ([]models.Highlight, bool) {
	kept := lo.Reject(list, func(h models.Highlight, _ int) bool {
		return h.ID == id
	})
	return kept, len(kept) != len(list)
}

func clearArticle(list []models.Highlight, articleID string) ([]models.Highlight, int) {
	kept := lo.Reject(list, func(h models.Highlight, _ int) bool {
		return h.ArticleID == articleID
	})
	return kept, len(list) - len(kept)
}

func filter(list []models.Highlight, f Filter) []models.Highlight {
	return lo.Filter(list, func(h models.Highlight, _ int) bool {
		return f.Match(h)
	})
}

func notFound(id string) error {
	return apperrors.NewNotFoundError("highlight not found: "+id, nil)
}
