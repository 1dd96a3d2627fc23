// internal/content/sync.go
package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/Corphon/PsychoPedia/internal/utils"
)

// SyncOptions configures a field sync between two locale trees.
type SyncOptions struct {
	Root      string   // content root holding one directory per locale
	Source    string   // locale to copy from
	Target    string   // locale to copy into
	Fields    []string // top-level fields, e.g. "tags", "id"
	Overwrite bool     // replace differing values, not only missing ones
	DryRun    bool
}

// SyncChange describes one target file the sync touched (or would touch).
type SyncChange struct {
	File   string   `json:"file"`
	Fields []string `json:"fields"`
}

// SyncReport is the outcome of SyncFields.
type SyncReport struct {
	Changes       []SyncChange `json:"changes"`
	MissingTarget []string     `json:"missing_target"` // source files without a target counterpart
	Scanned       int          `json:"scanned"`
}

// SyncFields copies the named fields from every source-locale article to the
// article at the same path in the target locale. Articles are handled as
// generic documents so fields the models do not know survive the round trip.
func SyncFields(ctx context.Context, opts SyncOptions) (SyncReport, error) {
	var report SyncReport
	logger := utils.GetLogger().With("contentsync")

	if opts.Source == "" || opts.Target == "" || opts.Source == opts.Target {
		return report, fmt.Errorf("source and target locales must differ")
	}
	fields := lo.Compact(lo.Uniq(opts.Fields))
	if len(fields) == 0 {
		return report, fmt.Errorf("no fields to sync")
	}

	sourceRoot := filepath.Join(opts.Root, opts.Source)
	targetRoot := filepath.Join(opts.Root, opts.Target)

	err := filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsArticleFile(path) {
			return nil
		}
		report.Scanned++

		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		targetPath, ok := findCounterpart(filepath.Join(targetRoot, rel))
		if !ok {
			report.MissingTarget = append(report.MissingTarget, filepath.ToSlash(rel))
			return nil
		}

		changed, err := syncFile(path, targetPath, fields, opts)
		if err != nil {
			return err
		}
		if len(changed) > 0 {
			report.Changes = append(report.Changes, SyncChange{File: targetPath, Fields: changed})
			logger.Info("fields synced", map[string]interface{}{
				"file":    targetPath,
				"fields":  changed,
				"dry_run": opts.DryRun,
			})
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("sync %s -> %s: %w", opts.Source, opts.Target, err)
	}

	sort.Slice(report.Changes, func(i, j int) bool { return report.Changes[i].File < report.Changes[j].File })
	return report, nil
}

// findCounterpart looks for path under any supported extension.
func findCounterpart(path string) (string, bool) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range Extensions {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func readDocument(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := map[string]interface{}{}
	if err := Decode(path, data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func syncFile(sourcePath, targetPath string, fields []string, opts SyncOptions) ([]string, error) {
	source, err := readDocument(sourcePath)
	if err != nil {
		return nil, err
	}
	target, err := readDocument(targetPath)
	if err != nil {
		return nil, err
	}

	var changed []string
	for _, field := range fields {
		value, ok := source[field]
		if !ok {
			continue
		}
		current, exists := target[field]
		switch {
		case !exists:
		case opts.Overwrite && !reflect.DeepEqual(current, value):
		default:
			continue
		}
		target[field] = value
		changed = append(changed, field)
	}

	if len(changed) == 0 || opts.DryRun {
		return changed, nil
	}

	data, err := Encode(targetPath, target)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", targetPath, err)
	}
	tmp := targetPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", targetPath, err)
	}
	if err := os.Rename(tmp, targetPath); err != nil {
		return nil, fmt.Errorf("replace %s: %w", targetPath, err)
	}
	return changed, nil
}
