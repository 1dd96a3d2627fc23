// cmd/contentsync/main.go
//
// contentsync copies fields from one locale's article files to another's:
//
//	contentsync --root content --source en --target ar --fields tags,id --dry-run
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Corphon/PsychoPedia/internal/content"
	"github.com/Corphon/PsychoPedia/internal/models"
)

var (
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a5d6a7"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc80"))
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "contentsync:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		opts   content.SyncOptions
		fields string
		asJSON bool
	)
	fs := flag.NewFlagSet("contentsync", flag.ContinueOnError)
	fs.StringVar(&opts.Root, "root", "content", "content root with one directory per locale")
	fs.StringVar(&opts.Source, "source", models.LocaleEnglish, "locale to copy from")
	fs.StringVar(&opts.Target, "target", models.LocaleArabic, "locale to copy into")
	fs.StringVar(&fields, "fields", "tags", "comma separated top-level fields")
	fs.BoolVar(&opts.Overwrite, "overwrite", false, "replace values that differ, not only missing ones")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "report changes without writing")
	fs.BoolVar(&asJSON, "json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, f := range strings.Split(fields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.Fields = append(opts.Fields, f)
		}
	}

	report, err := content.SyncFields(ctx, opts)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(stdout, report, opts.DryRun)
	return nil
}

func printReport(w io.Writer, report content.SyncReport, dryRun bool) {
	verb := "updated"
	if dryRun {
		verb = "would update"
	}
	for _, c := range report.Changes {
		fmt.Fprintf(w, "%s %s (%s)\n", changedStyle.Render(verb), c.File, strings.Join(c.Fields, ", "))
	}
	for _, m := range report.MissingTarget {
		fmt.Fprintf(w, "%s %s\n", missingStyle.Render("no target for"), m)
	}
	fmt.Fprintf(w, "%d scanned, %d %s, %d without target\n",
		report.Scanned, len(report.Changes), verb, len(report.MissingTarget))
}
