// internal/models/highlight.go
package models

import "time"

// Highlight is a reader annotation over a literal substring of one paragraph.
// The JSON shape matches the array persisted by the web client.
type Highlight struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Color          string     `json:"color"`
	ArticleID      string     `json:"articleId"`
	SectionTitle   string     `json:"sectionTitle"`
	ParagraphIndex int        `json:"paragraphIndex"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"` // set when a re-highlight changed the color
}

// NewHighlight carries the fields a reader supplies when highlighting text.
type NewHighlight struct {
	Text           string `json:"text" binding:"required"`
	Color          string `json:"color"`
	ArticleID      string `json:"articleId" binding:"required"`
	SectionTitle   string `json:"sectionTitle"`
	ParagraphIndex int    `json:"paragraphIndex"`
}

// HighlightEvent is pushed to readers of an article when its highlight set changes.
type HighlightEvent struct {
	Type      string     `json:"type"` // "added", "updated", "removed", "cleared"
	ArticleID string     `json:"articleId"`
	ProfileID string     `json:"profileId"`
	Highlight *Highlight `json:"highlight,omitempty"`
	Removed   int        `json:"removed,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

const (
	HighlightAdded   = "added"
	HighlightUpdated = "updated"
	HighlightRemoved = "removed"
	HighlightCleared = "cleared"
)
