// Package search is a small keyword index over the encyclopedia articles.
package search

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/exp/utf8string"

	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/textseg"
)

const (
	snippetRadius = 60 // runes on each side of the hit
	titleBoost    = 1.5
	minTypoLen    = 4
)

// Result is one matching article.
type Result struct {
	ArticleID      string  `json:"articleId"`
	Domain         string  `json:"domain"`
	Topic          string  `json:"topic"`
	Locale         string  `json:"locale"`
	Title          string  `json:"title"`
	Score          float64 `json:"score"`
	Snippet        string  `json:"snippet"`
	SectionTitle   string  `json:"sectionTitle,omitempty"`
	ParagraphIndex int     `json:"paragraphIndex"`
}

type paragraph struct {
	section string
	index   int
	plain   string
	tokens  []string
}

type document struct {
	article    *models.Article
	title      []string
	meta       []string // summary and tags
	paragraphs []paragraph
}

// Index holds the documents of one locale.
type Index struct {
	docs []document
}

// Build indexes the given articles. Bold markup is stripped before tokenizing.
func Build(articles []*models.Article) *Index {
	ix := &Index{docs: make([]document, 0, len(articles))}
	for _, a := range articles {
		summary, _ := textseg.ExtractBold(a.Summary)
		doc := document{
			article: a,
			title:   Tokenize(a.Title),
			meta:    Tokenize(summary + " " + strings.Join(a.Tags, " ")),
		}
		for _, s := range a.Sections {
			for i, raw := range s.Paragraphs {
				plain, _ := textseg.ExtractBold(raw)
				doc.paragraphs = append(doc.paragraphs, paragraph{
					section: s.Title,
					index:   i,
					plain:   plain,
					tokens:  Tokenize(plain),
				})
			}
		}
		ix.docs = append(ix.docs, doc)
	}
	return ix
}

// Tokenize lowercases s and splits it on anything that is not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.Is(unicode.Mn, r)
	})
}

// termScore rates how well term matches any of tokens: exact, prefix, or a
// tolerant in-order subsequence for typos.
func termScore(term string, tokens []string) float64 {
	best := 0.0
	for _, tok := range tokens {
		switch {
		case tok == term:
			return 1
		case strings.HasPrefix(tok, term):
			best = max(best, 0.8)
		case nearMiss(term, tok):
			best = max(best, 0.5)
		}
	}
	return best
}

// nearMiss accepts one inserted or dropped rune, e.g. "memry" or "memmory"
// for "memory".
func nearMiss(term, tok string) bool {
	lt, lk := len([]rune(term)), len([]rune(tok))
	if lt < minTypoLen || lt-lk > 1 || lk-lt > 1 {
		return false
	}
	return isSubsequence(tok, term) || isSubsequence(term, tok)
}

// isSubsequence reports whether every rune of short appears in long in order.
func isSubsequence(short, long string) bool {
	rs := []rune(short)
	if len(rs) == 0 {
		return false
	}
	i := 0
	for _, r := range long {
		if r == rs[i] {
			i++
			if i == len(rs) {
				return true
			}
		}
	}
	return false
}

// Search ranks the documents by the share of query terms they match. Title
// hits weigh more. limit <= 0 means no limit.
func (ix *Index) Search(query string, limit int) []Result {
	terms := lo.Uniq(Tokenize(query))
	if len(terms) == 0 {
		return nil
	}

	var results []Result
	for _, doc := range ix.docs {
		total := 0.0
		for _, term := range terms {
			inTitle := termScore(term, doc.title) * titleBoost
			inBody := termScore(term, doc.meta)
			for _, p := range doc.paragraphs {
				inBody = max(inBody, termScore(term, p.tokens))
			}
			total += max(inTitle, inBody)
		}
		if total == 0 {
			continue
		}

		a := doc.article
		r := Result{
			ArticleID: a.ID,
			Domain:    a.Domain,
			Topic:     a.Topic,
			Locale:    a.Locale,
			Title:     a.Title,
			Score:     total / float64(len(terms)),
		}
		r.Snippet, r.SectionTitle, r.ParagraphIndex = doc.snippet(terms)
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ArticleID < results[j].ArticleID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// snippet picks the paragraph matching the most terms and cuts a window
// around the first hit.
func (d document) snippet(terms []string) (string, string, int) {
	bestIdx, bestHits := -1, 0
	for i, p := range d.paragraphs {
		hits := lo.CountBy(terms, func(term string) bool { return termScore(term, p.tokens) > 0 })
		if hits > bestHits {
			bestIdx, bestHits = i, hits
		}
	}

	if bestIdx < 0 {
		summary, _ := textseg.ExtractBold(d.article.Summary)
		return Snippet(summary, terms), "", 0
	}
	p := d.paragraphs[bestIdx]
	return Snippet(p.plain, terms), p.section, p.index
}

// Snippet returns a window of text around the first occurrence of any term,
// cut on rune boundaries.
func Snippet(text string, terms []string) string {
	s := utf8string.NewString(text)
	n := s.RuneCount()
	if n <= 2*snippetRadius {
		return text
	}

	lower := strings.ToLower(text)
	hit := -1
	for _, term := range terms {
		if i := strings.Index(lower, term); i >= 0 && (hit < 0 || i < hit) {
			hit = i
		}
	}

	center := 0
	if hit >= 0 {
		center = min(utf8string.NewString(lower[:hit]).RuneCount(), n)
	}
	start := max(center-snippetRadius, 0)
	end := min(start+2*snippetRadius, n)
	start = max(end-2*snippetRadius, 0)

	out := strings.TrimSpace(s.Slice(start, end))
	if start > 0 {
		out = "…" + out
	}
	if end < n {
		out += "…"
	}
	return out
}

// ArticleSource is what the Searcher indexes.
type ArticleSource interface {
	All(locale string) []*models.Article
}

// Searcher keeps one Index per locale and swaps them on Rebuild.
type Searcher struct {
	mu      sync.RWMutex
	indexes map[string]*Index
}

func NewSearcher() *Searcher {
	return &Searcher{indexes: make(map[string]*Index)}
}

// Rebuild reindexes every supported locale from src.
func (s *Searcher) Rebuild(src ArticleSource) {
	indexes := make(map[string]*Index, len(models.SupportedLocales))
	for _, locale := range models.SupportedLocales {
		indexes[locale] = Build(src.All(locale))
	}

	s.mu.Lock()
	s.indexes = indexes
	s.mu.Unlock()
}

// Search queries the index of locale.
func (s *Searcher) Search(locale, query string, limit int) []Result {
	s.mu.RLock()
	ix, ok := s.indexes[locale]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return ix.Search(query, limit)
}
