package export

import (
	"strings"
	"testing"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/models"
)

func brain(locale string) *models.Article {
	return &models.Article{
		ID:      "neuroscience/brain",
		Domain:  "neuroscience",
		Topic:   "brain",
		Locale:  locale,
		Title:   "The Brain",
		Summary: "How the **brain** adapts.",
		Tags:    []string{"neuro", "plasticity"},
		Sections: []models.Section{
			{Title: "Intro", Paragraphs: []string{"The **brain** is plastic.", ""}},
		},
	}
}

var saved = Highlights{
	"Intro": {0: {{Text: "plastic", Color: "#a5d6a7", SectionTitle: "Intro"}}},
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatMarkdown, "md": FormatMarkdown, "Markdown": FormatMarkdown, "HTML": FormatHTML}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("pdf"); !apperrors.IsValidationError(err) {
		t.Errorf("pdf err = %v, want validation error", err)
	}
}

func TestMarkdownExport(t *testing.T) {
	doc, err := New("#fff59d").Export(brain("en"), saved, FormatMarkdown)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.Filename != "neuroscience-brain.en.md" {
		t.Errorf("filename = %q", doc.Filename)
	}

	body := string(doc.Body)
	for _, want := range []string{
		"# The Brain\n",
		"> How the **brain** adapts.",
		"## Intro\n",
		`The **brain** is <mark style="background-color:#a5d6a7">plastic</mark>.`,
		"_neuro · plasticity_",
		"## Highlights",
		"(Intro, ¶1)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("markdown missing %q:\n%s", want, body)
		}
	}
}

func TestHTMLExport(t *testing.T) {
	doc, err := New("#fff59d").Export(brain("ar"), saved, FormatHTML)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.ContentType != "text/html; charset=utf-8" || doc.Filename != "neuroscience-brain.ar.html" {
		t.Errorf("doc = %q / %q", doc.ContentType, doc.Filename)
	}

	body := string(doc.Body)
	for _, want := range []string{
		`<html lang="ar" dir="rtl">`,
		"<h1>The Brain</h1>",
		`<p>The <strong>brain</strong> is <mark style="background-color:#a5d6a7">plastic</mark>.</p>`,
		"<title>The Brain</title>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("html missing %q:\n%s", want, body)
		}
	}
}

func TestExportWithoutHighlights(t *testing.T) {
	doc, err := New("").Export(brain("en"), nil, FormatMarkdown)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(string(doc.Body), "## Highlights") {
		t.Error("highlight list rendered with no highlights")
	}
}
