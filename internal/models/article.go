// internal/models/article.go
package models

// Article is one encyclopedia entry in a single locale.
type Article struct {
	ID       string    `json:"id" yaml:"id"`
	Domain   string    `json:"domain" yaml:"domain"`
	Topic    string    `json:"topic" yaml:"topic"`
	Locale   string    `json:"locale" yaml:"locale,omitempty"`
	Title    string    `json:"title" yaml:"title"`
	Summary  string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Tags     []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Section groups paragraphs under a heading. Paragraphs may contain **bold** markup.
type Section struct {
	Title      string   `json:"title" yaml:"title"`
	Paragraphs []string `json:"paragraphs" yaml:"paragraphs"`
}

// ArticleSummary is the list view of an article.
type ArticleSummary struct {
	ID      string   `json:"id"`
	Domain  string   `json:"domain"`
	Topic   string   `json:"topic"`
	Locale  string   `json:"locale"`
	Title   string   `json:"title"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// ArticleID builds the identifier highlights are stored against.
func ArticleID(domain, topic string) string {
	return domain + "/" + topic
}

// Summarize drops the section bodies.
func (a *Article) Summarize() ArticleSummary {
	return ArticleSummary{
		ID:      a.ID,
		Domain:  a.Domain,
		Topic:   a.Topic,
		Locale:  a.Locale,
		Title:   a.Title,
		Summary: a.Summary,
		Tags:    a.Tags,
	}
}
