// internal/api/handlers.go
package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/Corphon/PsychoPedia/internal/content"
	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/export"
	"github.com/Corphon/PsychoPedia/internal/highlights"
	"github.com/Corphon/PsychoPedia/internal/metrics"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/profile"
	"github.com/Corphon/PsychoPedia/internal/render"
	"github.com/Corphon/PsychoPedia/internal/search"
	"github.com/Corphon/PsychoPedia/internal/textseg"
	"github.com/Corphon/PsychoPedia/internal/utils"
)

// maxRenderText bounds POST /api/render input.
const maxRenderText = 64 * 1024

// PaletteStore reads and replaces the highlight palette.
type PaletteStore interface {
	Palette() (palette []string, defaultColor string)
	UpdatePalette(palette []string, defaultColor string) ([]string, string, error)
}

// Dependencies are the services the API serves. Metrics and Reload may be nil.
type Dependencies struct {
	Content    *content.Store
	Search     *search.Searcher
	Highlights *highlights.Service
	States     *profile.StateStore
	Exporter   *export.Exporter
	Palette    PaletteStore
	Hub        *Hub
	Metrics    *metrics.Metrics
	Reload     func(ctx context.Context) (content.LoadStats, error)

	DefaultLocale    string
	MaxSearchResults int
	WriteRateLimit   int
	StaticDir        string
	DebugMode        bool
}

// Handler holds the HTTP handlers.
type Handler struct {
	deps    Dependencies
	rh      *ResponseHelper
	matcher language.Matcher
	locales []string // same order as the matcher's tags
	logger  *utils.Logger
	started time.Time
}

func NewHandler(deps Dependencies) *Handler {
	if deps.DefaultLocale == "" {
		deps.DefaultLocale = models.LocaleEnglish
	}
	if deps.MaxSearchResults <= 0 {
		deps.MaxSearchResults = 20
	}

	// The matcher falls back to its first tag, so the default locale goes first.
	locales := []string{deps.DefaultLocale}
	for _, l := range models.SupportedLocales {
		if l != deps.DefaultLocale {
			locales = append(locales, l)
		}
	}
	tags := make([]language.Tag, len(locales))
	for i, l := range locales {
		tags[i] = language.Make(l)
	}

	return &Handler{
		deps:    deps,
		rh:      NewResponseHelper(),
		matcher: language.NewMatcher(tags),
		locales: locales,
		logger:  utils.GetLogger().With("api"),
		started: time.Now(),
	}
}

// locale picks the content language from ?lang=, then Accept-Language.
func (h *Handler) locale(c *gin.Context) string {
	var tags []language.Tag
	if lang := c.Query("lang"); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			tags = []language.Tag{tag}
		}
	}
	if len(tags) == 0 {
		tags, _, _ = language.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
	}
	if len(tags) == 0 {
		return h.locales[0]
	}
	_, idx, _ := h.matcher.Match(tags...)
	return h.locales[idx]
}

func direction(locale string) string {
	if models.IsRTL(locale) {
		return "rtl"
	}
	return "ltr"
}

// profileID reads and validates the :profile parameter or ?profile= query.
func (h *Handler) profileID(c *gin.Context) (string, bool) {
	id := c.Param("profile")
	if id == "" {
		id = c.DefaultQuery("profile", profile.DefaultID)
	}
	if err := profile.ValidateID(id); err != nil {
		h.rh.BadRequest(c, ErrorProfileInvalid, err.Error())
		return "", false
	}
	return id, true
}

func (h *Handler) defaultColor() string {
	_, color := h.deps.Palette.Palette()
	return color
}

// ===============================
// System
// ===============================

// Health reports liveness and the loaded content.
func (h *Handler) Health(c *gin.Context) {
	status := gin.H{
		"status":   "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"articles": h.deps.Content.Count(),
	}
	if h.deps.Hub != nil {
		status["websockets"] = h.deps.Hub.Status()
	}
	h.rh.Success(c, status)
}

// ReloadContent re-reads the content tree and rebuilds the search index.
func (h *Handler) ReloadContent(c *gin.Context) {
	if h.deps.Reload == nil {
		h.rh.NotFound(c, ErrorNotFound, "content reload is not available")
		return
	}
	stats, err := h.deps.Reload(c.Request.Context())
	if err != nil {
		h.rh.InternalError(c, ErrorReloadFailed, err)
		return
	}
	h.logger.Info("content reloaded", map[string]interface{}{
		"articles": stats.Articles,
		"skipped":  stats.Skipped,
	})
	h.rh.Success(c, stats, "content reloaded")
}

// ===============================
// Articles
// ===============================

// ParagraphView is one rendered paragraph.
type ParagraphView struct {
	Index           int                      `json:"index"`
	PlainText       string                   `json:"plainText"`
	BoldRanges      []textseg.BoldRange      `json:"boldRanges"`
	HighlightRanges []textseg.HighlightRange `json:"highlightRanges"`
	Segments        []textseg.Segment        `json:"segments"`
	HTML            string                   `json:"html"`
	Highlights      []models.Highlight       `json:"highlights"`
}

// SectionView is one rendered section.
type SectionView struct {
	Title      string          `json:"title"`
	Paragraphs []ParagraphView `json:"paragraphs"`
}

// ArticleView is an article rendered for one reader profile.
type ArticleView struct {
	models.ArticleSummary
	Dir      string        `json:"dir"`
	Sections []SectionView `json:"sections"`
}

// ListArticles lists the articles of a locale, optionally of one domain.
func (h *Handler) ListArticles(c *gin.Context) {
	locale := h.locale(c)
	list := h.deps.Content.List(locale)

	if domain := c.Query("domain"); domain != "" {
		filtered := list[:0:0]
		for _, a := range list {
			if a.Domain == domain {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	}

	h.rh.Success(c, gin.H{
		"locale":   locale,
		"dir":      direction(locale),
		"domains":  h.deps.Content.Domains(locale),
		"articles": list,
	})
}

func (h *Handler) article(c *gin.Context) (*models.Article, bool) {
	article, err := h.deps.Content.Get(h.locale(c), c.Param("domain"), c.Param("topic"))
	if err != nil {
		h.rh.FromError(c, err, map[apperrors.ErrorType]string{apperrors.ErrorTypeNotFound: ErrorArticleNotFound})
		return nil, false
	}
	return article, true
}

// GetArticle renders every paragraph with the profile's highlights.
func (h *Handler) GetArticle(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	article, ok := h.article(c)
	if !ok {
		return
	}

	saved, err := h.deps.Highlights.ByParagraph(c.Request.Context(), profileID, article.ID)
	if err != nil {
		h.rh.FromError(c, err, nil)
		return
	}

	renderer := render.HTMLRenderer{DefaultColor: h.defaultColor()}
	rtl := models.IsRTL(article.Locale)

	view := ArticleView{
		ArticleSummary: article.Summarize(),
		Dir:            direction(article.Locale),
		Sections:       make([]SectionView, 0, len(article.Sections)),
	}
	for _, section := range article.Sections {
		sv := SectionView{Title: section.Title, Paragraphs: make([]ParagraphView, 0, len(section.Paragraphs))}
		for i, raw := range section.Paragraphs {
			hs := saved[section.Title][i]
			res := textseg.Process(raw, hs)
			h.recordRender("html", res)

			if hs == nil {
				hs = []models.Highlight{}
			}
			sv.Paragraphs = append(sv.Paragraphs, ParagraphView{
				Index:           i,
				PlainText:       res.PlainText,
				BoldRanges:      res.BoldRanges,
				HighlightRanges: res.HighlightRanges,
				Segments:        res.Segments,
				HTML:            render.Paragraph(renderer.Render(res.Segments), rtl),
				Highlights:      hs,
			})
		}
		view.Sections = append(view.Sections, sv)
	}

	h.rh.Success(c, view)
}

func (h *Handler) recordRender(format string, res textseg.Result) {
	var plain, bold, highlighted int
	for _, seg := range res.Segments {
		switch {
		case seg.IsHighlighted():
			highlighted++
		case seg.IsBold:
			bold++
		default:
			plain++
		}
	}
	h.deps.Metrics.RecordRender(format, plain, bold, highlighted, len(res.HighlightRanges))
}

// RenderRequest is the body of POST /api/render.
type RenderRequest struct {
	Text       string            `json:"text"`
	Highlights []RenderHighlight `json:"highlights"`
	Format     string            `json:"format"`
	RTL        bool              `json:"rtl"`
}

// RenderHighlight is an ad hoc highlight for a render preview.
type RenderHighlight struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// RenderResponse carries every pipeline stage plus the rendered fragment.
type RenderResponse struct {
	textseg.Result
	Format   string `json:"format"`
	Rendered string `json:"rendered"`
}

// RenderText runs the segmentation pipeline over arbitrary text.
func (h *Handler) RenderText(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, ErrorRenderInvalid, "invalid render request", err.Error())
		return
	}
	if len(req.Text) > maxRenderText {
		h.rh.BadRequest(c, ErrorRenderInvalid, "text too long")
		return
	}

	format := strings.ToLower(req.Format)
	if format == "" {
		format = "html"
	}
	renderer, ok := render.ForFormat(format, h.defaultColor())
	if !ok {
		h.rh.BadRequest(c, ErrorFormatInvalid, "unsupported format: "+req.Format)
		return
	}

	hs := make([]models.Highlight, 0, len(req.Highlights))
	for _, rhl := range req.Highlights {
		hs = append(hs, models.Highlight{Text: rhl.Text, Color: rhl.Color})
	}

	res := textseg.Process(req.Text, hs)
	h.recordRender(format, res)

	rendered := renderer.Render(res.Segments)
	if format == "html" {
		rendered = render.Paragraph(rendered, req.RTL)
	}
	h.rh.Success(c, RenderResponse{Result: res, Format: format, Rendered: rendered})
}

// ExportArticle downloads an article with the profile's highlights.
func (h *Handler) ExportArticle(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.rh.BadRequest(c, ErrorExportFormatInvalid, err.Error())
		return
	}
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	article, ok := h.article(c)
	if !ok {
		return
	}

	saved, err := h.deps.Highlights.ByParagraph(c.Request.Context(), profileID, article.ID)
	if err != nil {
		h.rh.FromError(c, err, nil)
		return
	}

	doc, err := h.deps.Exporter.Export(article, saved, format)
	if err != nil {
		h.rh.FromError(c, err, map[apperrors.ErrorType]string{apperrors.ErrorTypeError: ErrorExportFailed})
		return
	}
	h.rh.DownloadResponse(c, doc.Body, doc.Filename, doc.ContentType)
}

// Search runs a keyword query in the request locale.
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		h.rh.BadRequest(c, ErrorSearchQueryEmpty, "query parameter q is required")
		return
	}

	limit := h.deps.MaxSearchResults
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.rh.BadRequest(c, ErrorBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, h.deps.MaxSearchResults)
	}

	locale := h.locale(c)
	results := h.deps.Search.Search(locale, query, limit)
	if results == nil {
		results = []search.Result{}
	}
	h.deps.Metrics.RecordSearch()

	h.rh.Success(c, gin.H{
		"query":   query,
		"locale":  locale,
		"results": results,
	})
}

// ===============================
// Highlights
// ===============================

// ListHighlights answers getHighlights(articleId, sectionTitle?, paragraphIndex?).
func (h *Handler) ListHighlights(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	filter := highlights.Filter{ArticleID: c.Query("article_id")}
	if section, ok := c.GetQuery("section"); ok {
		filter.SectionTitle = &section
	}
	if raw := c.Query("paragraph"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.rh.BadRequest(c, ErrorHighlightInvalid, "paragraph must be a non-negative integer")
			return
		}
		filter.ParagraphIndex = &n
	}

	list, err := h.deps.Highlights.List(c.Request.Context(), profileID, filter)
	if err != nil {
		h.rh.FromError(c, err, nil)
		return
	}
	if list == nil {
		list = []models.Highlight{}
	}
	h.rh.Success(c, list)
}

// AddHighlight stores a highlight; re-highlighting the same text updates its color.
func (h *Handler) AddHighlight(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	var req models.NewHighlight
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, ErrorHighlightInvalid, "invalid highlight", err.Error())
		return
	}

	stored, updated, err := h.deps.Highlights.Add(c.Request.Context(), profileID, req)
	if err != nil {
		h.rh.FromError(c, err, map[apperrors.ErrorType]string{apperrors.ErrorTypeValidation: ErrorHighlightInvalid})
		return
	}

	if updated {
		h.rh.Success(c, stored, "highlight updated")
		return
	}
	h.rh.Created(c, stored, "highlight created")
}

// DeleteHighlight removes one highlight.
func (h *Handler) DeleteHighlight(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	if err := h.deps.Highlights.Remove(c.Request.Context(), profileID, c.Param("id")); err != nil {
		h.rh.FromError(c, err, map[apperrors.ErrorType]string{apperrors.ErrorTypeNotFound: ErrorHighlightNotFound})
		return
	}
	h.rh.Success(c, gin.H{"id": c.Param("id")}, "highlight removed")
}

// ClearArticleHighlights removes every highlight of one article.
func (h *Handler) ClearArticleHighlights(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	articleID := models.ArticleID(c.Param("domain"), c.Param("topic"))
	n, err := h.deps.Highlights.Clear(c.Request.Context(), profileID, articleID)
	if err != nil {
		h.rh.FromError(c, err, nil)
		return
	}
	h.rh.Success(c, gin.H{"article_id": articleID, "removed": n})
}

// ===============================
// Reader state and palette
// ===============================

func (h *Handler) stateDefaults(c *gin.Context) profile.Defaults {
	palette, color := h.deps.Palette.Palette()
	return profile.Defaults{Palette: palette, Color: color, Locale: h.locale(c)}
}

// GetReaderState returns the profile's reading toggles.
func (h *Handler) GetReaderState(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	state, err := h.deps.States.Get(c.Request.Context(), profileID, h.stateDefaults(c))
	if err != nil {
		h.rh.FromError(c, err, nil)
		return
	}
	h.rh.Success(c, state)
}

// UpdateReaderState replaces the profile's reading toggles.
func (h *Handler) UpdateReaderState(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	var state models.ReaderState
	if err := c.ShouldBindJSON(&state); err != nil {
		h.rh.BadRequest(c, ErrorStateInvalid, "invalid reader state", err.Error())
		return
	}

	saved, err := h.deps.States.Save(c.Request.Context(), profileID, state, h.stateDefaults(c))
	if err != nil {
		h.rh.FromError(c, err, nil)
		return
	}
	h.rh.Success(c, saved, "reader state saved")
}

// PaletteRequest is the body of PUT /api/palette.
type PaletteRequest struct {
	Palette      []string `json:"palette" binding:"required"`
	DefaultColor string   `json:"default_color"`
}

func (h *Handler) GetPalette(c *gin.Context) {
	palette, color := h.deps.Palette.Palette()
	h.rh.Success(c, gin.H{"palette": palette, "default_color": color})
}

func (h *Handler) UpdatePalette(c *gin.Context) {
	var req PaletteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, ErrorPaletteInvalid, "invalid palette", err.Error())
		return
	}

	palette, color, err := h.deps.Palette.UpdatePalette(req.Palette, req.DefaultColor)
	if err != nil {
		h.rh.FromError(c, err, map[apperrors.ErrorType]string{apperrors.ErrorTypeValidation: ErrorPaletteInvalid})
		return
	}
	h.rh.Success(c, gin.H{"palette": palette, "default_color": color}, "palette updated")
}
