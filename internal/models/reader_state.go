// internal/models/reader_state.go
package models

import (
	"strings"
	"time"
)

const (
	MinFontSize     = 12
	MaxFontSize     = 32
	DefaultFontSize = 16
)

// ReaderState holds the per-profile reading toggles: whether highlight mode is
// on, which color new highlights get, and the paragraph font size.
type ReaderState struct {
	HighlightMode bool      `json:"highlightMode"`
	SelectedColor string    `json:"selectedColor"`
	FontSize      int       `json:"fontSize"`
	Locale        string    `json:"locale"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// DefaultReaderState returns the state a new profile starts with.
func DefaultReaderState(color, locale string) ReaderState {
	return ReaderState{
		SelectedColor: color,
		FontSize:      DefaultFontSize,
		Locale:        locale,
	}
}

// Normalize clamps the font size and replaces a color outside the palette with fallback.
func (s *ReaderState) Normalize(palette []string, fallback string) {
	if s.FontSize == 0 {
		s.FontSize = DefaultFontSize
	}
	s.FontSize = min(max(s.FontSize, MinFontSize), MaxFontSize)

	for _, c := range palette {
		if strings.EqualFold(c, strings.TrimSpace(s.SelectedColor)) {
			s.SelectedColor = c
			return
		}
	}
	s.SelectedColor = fallback
}
