package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/PsychoPedia/internal/content"
	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/export"
	"github.com/Corphon/PsychoPedia/internal/highlights"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/profile"
	"github.com/Corphon/PsychoPedia/internal/search"
	"github.com/Corphon/PsychoPedia/internal/storage"
)

const (
	enBrain = `{
  "title": "The Brain",
  "summary": "How the brain adapts.",
  "tags": ["neuro"],
  "sections": [
    {"title": "Intro", "paragraphs": ["The **brain** is plastic.", "It rewires with practice."]}
  ]
}`
	arBrain = `{
  "title": "الدماغ",
  "sections": [
    {"title": "مقدمة", "paragraphs": ["**الدماغ** مرن."]}
  ]
}`
)

type fakePalette struct {
	palette []string
	color   string
}

func (p *fakePalette) Palette() ([]string, string) { return p.palette, p.color }

func (p *fakePalette) UpdatePalette(palette []string, color string) ([]string, string, error) {
	if len(palette) == 0 {
		return nil, "", apperrors.NewValidationError("palette must contain at least one color", nil)
	}
	if color == "" {
		color = palette[0]
	}
	p.palette, p.color = palette, color
	return palette, color, nil
}

type testServer struct {
	router *gin.Engine
	hub    *Hub
}

func newTestServer(t *testing.T, mutate func(*Dependencies)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	for rel, body := range map[string]string{
		"en/neuro/brain.json": enBrain,
		"ar/neuro/brain.json": arBrain,
	} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	store := content.NewStore(root, models.LocaleEnglish)
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	searcher := search.NewSearcher()
	searcher.Rebuild(store)

	fs, err := storage.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	deps := Dependencies{
		Content:       store,
		Search:        searcher,
		Highlights:    highlights.NewService(highlights.NewMemoryProvider("#fff59d"), hub, nil),
		States:        profile.NewStateStore(fs),
		Exporter:      export.New("#fff59d"),
		Palette:       &fakePalette{palette: []string{"#fff59d", "#a5d6a7"}, color: "#fff59d"},
		Hub:           hub,
		DefaultLocale: models.LocaleEnglish,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testServer{router: NewRouter(deps), hub: hub}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *APIError       `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v\n%s", err, env.Data)
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w, env := s.do(t, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestGetArticleRendersBoldAndHighlights(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := s.do(t, http.MethodPost, "/api/profiles/alice/highlights", models.NewHighlight{
		Text: "plastic", Color: "#a5d6a7", ArticleID: "neuro/brain", SectionTitle: "Intro", ParagraphIndex: 0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}

	w, env := s.do(t, http.MethodGet, "/api/articles/neuro/brain?profile=alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	view := decode[ArticleView](t, env)
	if view.Dir != "ltr" || len(view.Sections) != 1 {
		t.Fatalf("view = %+v", view)
	}

	p := view.Sections[0].Paragraphs[0]
	if p.PlainText != "The brain is plastic." {
		t.Errorf("PlainText = %q", p.PlainText)
	}
	want := `<p dir="ltr">The <strong>brain</strong> is <mark class="highlight" style="background-color:#a5d6a7">plastic</mark>.</p>`
	if p.HTML != want {
		t.Errorf("HTML = %s\nwant %s", p.HTML, want)
	}
	if len(p.Highlights) != 1 {
		t.Errorf("Highlights = %v", p.Highlights)
	}

	// Another profile sees no highlights.
	_, env = s.do(t, http.MethodGet, "/api/articles/neuro/brain?profile=bob", nil)
	if got := decode[ArticleView](t, env).Sections[0].Paragraphs[0].HighlightRanges; len(got) != 0 {
		t.Errorf("bob HighlightRanges = %v", got)
	}
}

func TestGetArticleLocale(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name    string
		path    string
		headers []string
		locale  string
		dir     string
	}{
		{"default", "/api/articles/neuro/brain", nil, "en", "ltr"},
		{"query", "/api/articles/neuro/brain?lang=ar", nil, "ar", "rtl"},
		{"accept-language", "/api/articles/neuro/brain", []string{"Accept-Language", "ar-EG,ar;q=0.9"}, "ar", "rtl"},
		{"unsupported falls back", "/api/articles/neuro/brain?lang=fr", nil, "en", "ltr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodGet, tt.path, nil, tt.headers...)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			view := decode[ArticleView](t, env)
			if view.Locale != tt.locale || view.Dir != tt.dir {
				t.Errorf("locale/dir = %s/%s, want %s/%s", view.Locale, view.Dir, tt.locale, tt.dir)
			}
		})
	}
}

func TestGetArticleErrors(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodGet, "/api/articles/neuro/missing", nil)
	if w.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrorArticleNotFound {
		t.Errorf("missing article: status = %d, error = %+v", w.Code, env.Error)
	}

	w, env = s.do(t, http.MethodGet, "/api/articles/neuro/brain?profile=../etc", nil)
	if w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != ErrorProfileInvalid {
		t.Errorf("bad profile: status = %d, error = %+v", w.Code, env.Error)
	}
}

func TestListArticles(t *testing.T) {
	s := newTestServer(t, nil)
	_, env := s.do(t, http.MethodGet, "/api/articles?domain=neuro", nil)

	data := decode[struct {
		Locale   string                  `json:"locale"`
		Articles []models.ArticleSummary `json:"articles"`
	}](t, env)
	if data.Locale != "en" || len(data.Articles) != 1 || data.Articles[0].ID != "neuro/brain" {
		t.Errorf("data = %+v", data)
	}

	_, env = s.do(t, http.MethodGet, "/api/articles?domain=social", nil)
	if got := decode[struct {
		Articles []models.ArticleSummary `json:"articles"`
	}](t, env).Articles; len(got) != 0 {
		t.Errorf("social articles = %v", got)
	}
}

func TestRenderText(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodPost, "/api/render", RenderRequest{
		Text:       "a **b** c",
		Highlights: []RenderHighlight{{Text: "c", Color: "#ff0000"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[RenderResponse](t, env)
	if res.PlainText != "a b c" || len(res.Segments) != 4 {
		t.Errorf("result = %+v", res)
	}
	want := `<p dir="ltr">a <strong>b</strong> <mark class="highlight" style="background-color:#ff0000">c</mark></p>`
	if res.Rendered != want {
		t.Errorf("Rendered = %s", res.Rendered)
	}

	_, env = s.do(t, http.MethodPost, "/api/render", RenderRequest{Text: "**x**", Format: "markdown"})
	if got := decode[RenderResponse](t, env).Rendered; got != "**x**" {
		t.Errorf("markdown Rendered = %q", got)
	}

	w, env = s.do(t, http.MethodPost, "/api/render", RenderRequest{Text: "x", Format: "pdf"})
	if w.Code != http.StatusBadRequest || env.Error.Code != ErrorFormatInvalid {
		t.Errorf("pdf: status = %d, error = %+v", w.Code, env.Error)
	}
}

func TestHighlightLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	add := models.NewHighlight{Text: "practice", Color: "#fff59d", ArticleID: "neuro/brain", SectionTitle: "Intro", ParagraphIndex: 1}

	w, env := s.do(t, http.MethodPost, "/api/profiles/alice/highlights", add)
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d", w.Code)
	}
	first := decode[models.Highlight](t, env)

	add.Text, add.Color = " Practice ", "#a5d6a7"
	w, env = s.do(t, http.MethodPost, "/api/profiles/alice/highlights", add)
	if w.Code != http.StatusOK {
		t.Fatalf("re-highlight status = %d", w.Code)
	}
	second := decode[models.Highlight](t, env)
	if second.ID != first.ID || second.Color != "#a5d6a7" {
		t.Errorf("re-highlight = %+v, want same id with new color", second)
	}

	_, env = s.do(t, http.MethodGet, "/api/profiles/alice/highlights?article_id=neuro/brain&section=Intro&paragraph=1", nil)
	if list := decode[[]models.Highlight](t, env); len(list) != 1 {
		t.Errorf("list = %v", list)
	}

	w, env = s.do(t, http.MethodGet, "/api/profiles/alice/highlights?paragraph=-1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative paragraph status = %d", w.Code)
	}

	w, _ = s.do(t, http.MethodDelete, "/api/profiles/alice/highlights/"+first.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
	w, env = s.do(t, http.MethodDelete, "/api/profiles/alice/highlights/"+first.ID, nil)
	if w.Code != http.StatusNotFound || env.Error.Code != ErrorHighlightNotFound {
		t.Errorf("second delete: status = %d, error = %+v", w.Code, env.Error)
	}
}

func TestAddHighlightValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing text", map[string]interface{}{"articleId": "neuro/brain"}},
		{"negative paragraph", models.NewHighlight{Text: "x", ArticleID: "neuro/brain", ParagraphIndex: -1}},
		{"unsafe color", models.NewHighlight{Text: "x", ArticleID: "neuro/brain", Color: "red;background:url(x)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/api/profiles/alice/highlights", tt.body)
			if w.Code != http.StatusBadRequest || env.Error.Code != ErrorHighlightInvalid {
				t.Errorf("status = %d, error = %+v", w.Code, env.Error)
			}
		})
	}
}

func TestClearArticleHighlights(t *testing.T) {
	s := newTestServer(t, nil)
	for _, text := range []string{"brain", "plastic"} {
		s.do(t, http.MethodPost, "/api/profiles/alice/highlights", models.NewHighlight{
			Text: text, ArticleID: "neuro/brain", SectionTitle: "Intro",
		})
	}

	_, env := s.do(t, http.MethodDelete, "/api/profiles/alice/articles/neuro/brain/highlights", nil)
	got := decode[struct {
		ArticleID string `json:"article_id"`
		Removed   int    `json:"removed"`
	}](t, env)
	if got.ArticleID != "neuro/brain" || got.Removed != 2 {
		t.Errorf("clear = %+v", got)
	}
}

func TestReaderState(t *testing.T) {
	s := newTestServer(t, nil)

	_, env := s.do(t, http.MethodGet, "/api/profiles/alice/state", nil)
	state := decode[models.ReaderState](t, env)
	if state.FontSize != models.DefaultFontSize || state.SelectedColor != "#fff59d" {
		t.Errorf("default state = %+v", state)
	}

	_, env = s.do(t, http.MethodPut, "/api/profiles/alice/state", models.ReaderState{
		HighlightMode: true, SelectedColor: "#000000", FontSize: 100, Locale: "ar",
	})
	state = decode[models.ReaderState](t, env)
	if !state.HighlightMode || state.FontSize != models.MaxFontSize || state.SelectedColor != "#fff59d" || state.Locale != "ar" {
		t.Errorf("saved state = %+v", state)
	}

	_, env = s.do(t, http.MethodGet, "/api/profiles/alice/state", nil)
	if got := decode[models.ReaderState](t, env); !got.HighlightMode {
		t.Errorf("reloaded state = %+v", got)
	}
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodGet, "/api/search", nil)
	if w.Code != http.StatusBadRequest || env.Error.Code != ErrorSearchQueryEmpty {
		t.Errorf("empty query: status = %d, error = %+v", w.Code, env.Error)
	}

	_, env = s.do(t, http.MethodGet, "/api/search?q=plastic", nil)
	data := decode[struct {
		Results []search.Result `json:"results"`
	}](t, env)
	if len(data.Results) != 1 || data.Results[0].ArticleID != "neuro/brain" {
		t.Errorf("results = %+v", data.Results)
	}

	w, _ = s.do(t, http.MethodGet, "/api/search?q=brain&limit=zero", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}
}

func TestExportArticle(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := s.do(t, http.MethodGet, "/api/articles/neuro/brain/export?format=markdown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "neuro-brain.en.md") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.HasPrefix(w.Body.String(), "# The Brain") {
		t.Errorf("body = %q", w.Body.String())
	}

	w, env := s.do(t, http.MethodGet, "/api/articles/neuro/brain/export?format=docx", nil)
	if w.Code != http.StatusBadRequest || env.Error.Code != ErrorExportFormatInvalid {
		t.Errorf("docx: status = %d, error = %+v", w.Code, env.Error)
	}
}

func TestPalette(t *testing.T) {
	s := newTestServer(t, nil)

	_, env := s.do(t, http.MethodPut, "/api/palette", PaletteRequest{Palette: []string{"#90caf9"}})
	got := decode[struct {
		Palette      []string `json:"palette"`
		DefaultColor string   `json:"default_color"`
	}](t, env)
	if got.DefaultColor != "#90caf9" {
		t.Errorf("palette = %+v", got)
	}

	w, env := s.do(t, http.MethodPut, "/api/palette", map[string]interface{}{"palette": []string{}})
	if w.Code != http.StatusBadRequest || env.Error.Code != ErrorPaletteInvalid {
		t.Errorf("empty palette: status = %d, error = %+v", w.Code, env.Error)
	}
}

func TestReloadContent(t *testing.T) {
	s := newTestServer(t, nil)
	w, env := s.do(t, http.MethodPost, "/api/content/reload", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("no reload func: status = %d, error = %+v", w.Code, env.Error)
	}

	calls := 0
	s = newTestServer(t, func(d *Dependencies) {
		d.Reload = func(context.Context) (content.LoadStats, error) {
			calls++
			return content.LoadStats{Articles: 2}, nil
		}
	})
	w, _ = s.do(t, http.MethodPost, "/api/content/reload", nil)
	if w.Code != http.StatusOK || calls != 1 {
		t.Errorf("status = %d, calls = %d", w.Code, calls)
	}
}

func TestWriteRateLimit(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) { d.WriteRateLimit = 1 })
	body := RenderRequest{Text: "x"}

	w, _ := s.do(t, http.MethodPost, "/api/render", body)
	if w.Code != http.StatusOK {
		t.Fatalf("first status = %d", w.Code)
	}
	w, env := s.do(t, http.MethodPost, "/api/render", body)
	if w.Code != http.StatusTooManyRequests || env.Error.Code != ErrorRateLimited {
		t.Errorf("second: status = %d, error = %+v", w.Code, env.Error)
	}
	// Reads are not limited.
	if w, _ := s.do(t, http.MethodGet, "/api/health", nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if ok, _, _ := rl.Allow("ip"); ok != want {
			t.Errorf("call %d allowed = %v, want %v", i, ok, want)
		}
	}
	if ok, _, _ := rl.Allow("other"); !ok {
		t.Error("keys must not share a window")
	}

	now = now.Add(time.Minute + time.Second)
	if ok, remaining, _ := rl.Allow("ip"); !ok || remaining != 1 {
		t.Errorf("after window: ok = %v, remaining = %d", ok, remaining)
	}
}

func TestArticleWebSocketReceivesEvents(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/articles/neuro/brain?profile=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil || msg["type"] != "connected" {
		t.Fatalf("welcome = %v, err = %v", msg, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Status()["total_connections"] != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// bob's highlight must not reach alice.
	for _, p := range []string{"bob", "alice"} {
		data, _ := json.Marshal(models.NewHighlight{Text: "brain", ArticleID: "neuro/brain", SectionTitle: "Intro"})
		resp, err := http.Post(srv.URL+"/api/profiles/"+p+"/highlights", "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	var event struct {
		Type  string                `json:"type"`
		Event models.HighlightEvent `json:"event"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if event.Type != "highlight_event" || event.Event.Type != models.HighlightAdded || event.Event.ProfileID != "alice" {
		t.Errorf("event = %+v", event)
	}
}
