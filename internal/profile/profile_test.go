package profile

import (
	"context"
	"testing"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/storage"
)

var defaults = Defaults{
	Palette: []string{"#fff59d", "#a5d6a7"},
	Color:   "#fff59d",
	Locale:  "en",
}

func newStore(t *testing.T) *StateStore {
	t.Helper()
	fs, err := storage.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	return NewStateStore(fs)
}

func TestValidateID(t *testing.T) {
	valid := []string{"default", "reader-1", "A_b"}
	invalid := []string{"", "../etc", "a/b", "-lead", "has space"}

	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v, want nil", id, err)
		}
	}
	for _, id := range invalid {
		if err := ValidateID(id); !apperrors.IsValidationError(err) {
			t.Errorf("ValidateID(%q) = %v, want validation error", id, err)
		}
	}
}

func TestGetReturnsDefaultsForNewProfile(t *testing.T) {
	store := newStore(t)

	state, err := store.Get(context.Background(), "fresh", defaults)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := models.DefaultReaderState("#fff59d", "en")
	if state != want {
		t.Errorf("state = %+v, want %+v", state, want)
	}
}

func TestSaveNormalizesAndPersists(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, "reader", models.ReaderState{
		HighlightMode: true,
		SelectedColor: "#000000",
		FontSize:      90,
		Locale:        "fr",
	}, defaults)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.FontSize != models.MaxFontSize {
		t.Errorf("font size = %d, want %d", saved.FontSize, models.MaxFontSize)
	}
	if saved.SelectedColor != "#fff59d" {
		t.Errorf("color = %q, want palette fallback", saved.SelectedColor)
	}
	if saved.Locale != "en" {
		t.Errorf("locale = %q, want en", saved.Locale)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	loaded, err := store.Get(ctx, "reader", defaults)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !loaded.HighlightMode || loaded.FontSize != models.MaxFontSize {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestSaveKeepsPaletteColorAndArabic(t *testing.T) {
	store := newStore(t)

	saved, err := store.Save(context.Background(), "reader", models.ReaderState{
		SelectedColor: "#a5d6a7",
		FontSize:      14,
		Locale:        "ar",
	}, defaults)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.SelectedColor != "#a5d6a7" || saved.FontSize != 14 || saved.Locale != "ar" {
		t.Errorf("saved = %+v", saved)
	}
}

func TestSaveMatchesPaletteColorIgnoringCase(t *testing.T) {
	store := newStore(t)

	saved, err := store.Save(context.Background(), "reader", models.ReaderState{
		SelectedColor: "#A5D6A7",
		FontSize:      14,
	}, defaults)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.SelectedColor != "#a5d6a7" {
		t.Errorf("SelectedColor = %q, want the palette entry #a5d6a7", saved.SelectedColor)
	}
}

func TestStateRejectsBadProfile(t *testing.T) {
	store := newStore(t)
	if _, err := store.Get(context.Background(), "../x", defaults); !apperrors.IsValidationError(err) {
		t.Errorf("Get err = %v, want validation error", err)
	}
}
