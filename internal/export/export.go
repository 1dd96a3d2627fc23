// Package export turns an article and a reader's highlights into a
// standalone Markdown or HTML document.
package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/render"
	"github.com/Corphon/PsychoPedia/internal/textseg"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts the format names used in query strings.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", apperrors.NewValidationError("unsupported export format: "+s, nil)
	}
}

// Highlights maps section title and paragraph index to the highlights saved there.
type Highlights map[string]map[int][]models.Highlight

func (h Highlights) at(section string, index int) []models.Highlight {
	return h[section][index]
}

// Document is an export ready to be served or written.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Exporter renders articles. It is safe for concurrent use.
type Exporter struct {
	markdown     goldmark.Markdown
	defaultColor string
}

func New(defaultColor string) *Exporter {
	return &Exporter{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithUnsafe(),
			),
		),
		defaultColor: defaultColor,
	}
}

// Export renders the article in the requested format.
func (e *Exporter) Export(article *models.Article, highlights Highlights, format Format) (Document, error) {
	base := strings.ReplaceAll(article.ID, "/", "-")
	if article.Locale != "" {
		base += "." + article.Locale
	}

	md := e.Markdown(article, highlights)
	switch format {
	case FormatMarkdown:
		return Document{
			Filename:    base + ".md",
			ContentType: "text/markdown; charset=utf-8",
			Body:        []byte(md),
		}, nil
	case FormatHTML:
		body, err := e.HTML(article, md)
		if err != nil {
			return Document{}, err
		}
		return Document{
			Filename:    base + ".html",
			ContentType: "text/html; charset=utf-8",
			Body:        body,
		}, nil
	default:
		return Document{}, apperrors.NewValidationError(fmt.Sprintf("unsupported export format: %s", format), nil)
	}
}

// Markdown renders the article with every paragraph's highlights applied and
// a list of the highlights at the end.
func (e *Exporter) Markdown(article *models.Article, highlights Highlights) string {
	renderer := render.MarkdownRenderer{DefaultColor: e.defaultColor}
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", article.Title)
	if article.Summary != "" {
		res := textseg.Process(article.Summary, nil)
		fmt.Fprintf(&b, "> %s\n\n", renderer.Render(res.Segments))
	}

	var listed []models.Highlight
	for _, section := range article.Sections {
		if section.Title != "" {
			fmt.Fprintf(&b, "## %s\n\n", section.Title)
		}
		for i, paragraph := range section.Paragraphs {
			hs := highlights.at(section.Title, i)
			res := textseg.Process(paragraph, hs)
			if len(res.Segments) == 0 {
				continue
			}
			b.WriteString(renderer.Render(res.Segments))
			b.WriteString("\n\n")
			listed = append(listed, hs...)
		}
	}

	if len(article.Tags) > 0 {
		fmt.Fprintf(&b, "_%s_\n\n", strings.Join(article.Tags, " · "))
	}

	if len(listed) > 0 {
		b.WriteString("---\n\n## Highlights\n\n")
		for _, h := range listed {
			fmt.Fprintf(&b, "- <mark style=\"background-color:%s\">%s</mark> (%s, ¶%d)\n",
				render.SafeColor(h.Color, e.defaultColor),
				html.EscapeString(strings.TrimSpace(h.Text)),
				h.SectionTitle, h.ParagraphIndex+1)
		}
	}

	return b.String()
}

// HTML converts the Markdown export into a complete page.
func (e *Exporter) HTML(article *models.Article, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := e.markdown.Convert([]byte(markdown), &body); err != nil {
		return nil, apperrors.NewProcessingError("convert markdown", err)
	}

	dir := "ltr"
	if models.IsRTL(article.Locale) {
		dir = "rtl"
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html lang=\"%s\" dir=\"%s\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n<article>\n",
		html.EscapeString(article.Locale), dir, html.EscapeString(article.Title))
	page.Write(body.Bytes())
	page.WriteString("</article>\n</body>\n</html>\n")
	return page.Bytes(), nil
}
