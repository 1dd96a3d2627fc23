// cmd/render/main.go
//
// render prints a paragraph, or a whole article, through the segmentation
// pipeline:
//
//	render --highlight "plastic=yellow" "The **brain** is plastic."
//	echo "The **brain** is plastic." | render --format html
//	render --content ./content --article neuro/brain --lang ar
//	render -i
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Corphon/PsychoPedia/internal/content"
	"github.com/Corphon/PsychoPedia/internal/highlights"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/render"
	"github.com/Corphon/PsychoPedia/internal/textseg"
)

// cliArticle is the article id highlights given on the command line are stored under.
const cliArticle = "cli"

var titleStyle = lipgloss.NewStyle().Bold(true).Border(lipgloss.RoundedBorder()).Padding(0, 1)

// highlightFlags collects repeated --highlight text=color values.
type highlightFlags []models.NewHighlight

func (f *highlightFlags) String() string {
	parts := make([]string, len(*f))
	for i, h := range *f {
		parts[i] = h.Text + "=" + h.Color
	}
	return strings.Join(parts, ",")
}

func (f *highlightFlags) Set(value string) error {
	h, err := parseHighlight(value)
	if err != nil {
		return err
	}
	*f = append(*f, h)
	return nil
}

// parseHighlight splits "text=color" at the last '='; the color is optional.
func parseHighlight(value string) (models.NewHighlight, error) {
	text, color := value, ""
	if i := strings.LastIndex(value, "="); i >= 0 {
		text, color = value[:i], value[i+1:]
	}
	if strings.TrimSpace(text) == "" {
		return models.NewHighlight{}, fmt.Errorf("highlight %q has no text", value)
	}
	return models.NewHighlight{Text: text, Color: color, ArticleID: cliArticle}, nil
}

type options struct {
	format       string
	defaultColor string
	contentDir   string
	article      string
	lang         string
	rtl          bool
	interactive  bool
	highlights   highlightFlags
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.format, "format", "terminal", "output format: terminal, html, markdown or json")
	fs.StringVar(&opts.defaultColor, "color", render.DefaultHighlightColor, "color of highlights given without one")
	fs.StringVar(&opts.contentDir, "content", "content", "content directory for --article")
	fs.StringVar(&opts.article, "article", "", "render a whole article, as domain/topic")
	fs.StringVar(&opts.lang, "lang", models.LocaleEnglish, "article locale")
	fs.BoolVar(&opts.rtl, "rtl", false, "mark html output right-to-left")
	fs.BoolVar(&opts.interactive, "i", false, "read paragraphs line by line; :hl text=color and :clear edit highlights")
	fs.Var(&opts.highlights, "highlight", "text=color to highlight, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	repo := highlights.NewMemoryRepository(opts.defaultColor)
	for _, h := range opts.highlights {
		if _, err := repo.Add(ctx, h); err != nil {
			return err
		}
	}

	p := &printer{out: stdout, format: strings.ToLower(opts.format), defaultColor: opts.defaultColor, rtl: opts.rtl}
	if p.format != "json" {
		renderer, ok := render.ForFormat(p.format, opts.defaultColor)
		if !ok {
			return fmt.Errorf("unsupported format %q", opts.format)
		}
		p.renderer = renderer
	}

	switch {
	case opts.article != "":
		return renderArticle(ctx, opts, repo, p)
	case opts.interactive:
		return interactive(ctx, stdin, repo, p)
	}

	text := strings.Join(fs.Args(), " ")
	if text == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	return p.paragraph(ctx, repo, text)
}

type printer struct {
	out          io.Writer
	format       string
	renderer     render.Renderer
	defaultColor string
	rtl          bool
}

func (p *printer) paragraph(ctx context.Context, repo highlights.Repository, raw string) error {
	hs, err := repo.Get(ctx, highlights.Filter{ArticleID: cliArticle})
	if err != nil {
		return err
	}
	res := textseg.Process(raw, hs)

	if p.format == "json" {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	out := p.renderer.Render(res.Segments)
	if p.format == "html" {
		out = render.Paragraph(out, p.rtl)
	}
	_, err = fmt.Fprintln(p.out, out)
	return err
}

func (p *printer) heading(level int, text string) {
	switch p.format {
	case "terminal", "ansi":
		if level == 1 {
			fmt.Fprintln(p.out, titleStyle.Render(text))
		} else {
			fmt.Fprintln(p.out, lipgloss.NewStyle().Bold(true).Underline(true).Render(text))
		}
	case "markdown", "md":
		fmt.Fprintf(p.out, "%s %s\n", strings.Repeat("#", level), text)
	case "html":
		fmt.Fprintf(p.out, "<h%d>%s</h%d>\n", level, html.EscapeString(text), level)
	}
}

func renderArticle(ctx context.Context, opts options, repo highlights.Repository, p *printer) error {
	domain, topic, ok := strings.Cut(opts.article, "/")
	if !ok || domain == "" || topic == "" {
		return fmt.Errorf("--article must be domain/topic, got %q", opts.article)
	}

	store := content.NewStore(opts.contentDir, models.LocaleEnglish)
	if _, err := store.Load(ctx); err != nil {
		return err
	}
	article, err := store.Get(opts.lang, domain, topic)
	if err != nil {
		return err
	}
	p.rtl = p.rtl || models.IsRTL(article.Locale)

	p.heading(1, article.Title)
	for _, section := range article.Sections {
		if section.Title != "" {
			p.heading(2, section.Title)
		}
		for _, paragraph := range section.Paragraphs {
			if err := p.paragraph(ctx, repo, paragraph); err != nil {
				return err
			}
		}
	}
	return nil
}

func interactive(ctx context.Context, stdin io.Reader, repo highlights.Repository, p *printer) error {
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":q" || line == ":quit":
			return nil
		case line == ":clear":
			n, err := repo.Clear(ctx, cliArticle)
			if err != nil {
				return err
			}
			fmt.Fprintf(p.out, "cleared %d highlights\n", n)
		case strings.HasPrefix(line, ":hl "):
			h, err := parseHighlight(strings.TrimSpace(strings.TrimPrefix(line, ":hl ")))
			if err == nil {
				_, err = repo.Add(ctx, h)
			}
			if err != nil {
				fmt.Fprintln(p.out, "error:", err)
			}
		default:
			if err := p.paragraph(ctx, repo, line); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
