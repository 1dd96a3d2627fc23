// internal/content/loader.go
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Corphon/PsychoPedia/internal/models"
)

// Extensions lists the article file formats, in lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

// IsArticleFile reports whether path has a supported extension.
func IsArticleFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Decode parses an article body in the format implied by the file name.
func Decode(name string, data []byte, v interface{}) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return json.Unmarshal(data, v)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported content format: %s", name)
	}
}

// Encode is the inverse of Decode.
func Encode(name string, v interface{}) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported content format: %s", name)
	}
}

// LoadArticle reads one article file. Domain, topic and locale come from the
// path (<locale>/<domain>/<topic>.<ext> relative to the content root) and
// override whatever the file says.
func LoadArticle(root, path string) (*models.Article, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("article %s is not at <locale>/<domain>/<topic>", rel)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read article: %w", err)
	}

	var article models.Article
	if err := Decode(path, data, &article); err != nil {
		return nil, fmt.Errorf("parse %s: %w", rel, err)
	}

	article.Locale = parts[0]
	article.Domain = parts[1]
	article.Topic = strings.TrimSuffix(parts[2], filepath.Ext(parts[2]))
	article.ID = models.ArticleID(article.Domain, article.Topic)

	if strings.TrimSpace(article.Title) == "" {
		return nil, fmt.Errorf("article %s has no title", rel)
	}
	return &article, nil
}
