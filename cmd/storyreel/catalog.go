package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/config"
	"github.com/storyreel/storyreel/internal/tui/theme"
)

var catalogFlags struct {
	format string
	export string
	diff   bool
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the voices, music and ratios",
	Long: `Show the narration voices, background music genres and video ratios,
with the default of each marked.

The built-in catalog can be replaced with a YAML file set as catalog_file.
Use --export to write the built-in catalog as a starting point, and --diff to
compare the configured file against it.`,
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogFlags.format, "format", "text", "Output format: text, yaml or json")
	catalogCmd.Flags().StringVar(&catalogFlags.export, "export", "", "Write the built-in catalog to this file")
	catalogCmd.Flags().BoolVar(&catalogFlags.diff, "diff", false, "Diff the configured catalog against the built-in one")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	if catalogFlags.export != "" {
		return exportCatalog(cmd.OutOrStdout(), catalogFlags.export)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}

	if catalogFlags.diff {
		return diffCatalog(cmd.OutOrStdout(), cfg.CatalogFile, cat)
	}

	switch catalogFlags.format {
	case "yaml":
		data, err := cat.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	case "json":
		data, err := json.MarshalIndent(cat, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	case "text":
		fmt.Fprintln(cmd.OutOrStdout(), renderCatalog(cat))
		return nil
	}
	return fmt.Errorf("unknown format %q (use text, yaml or json)", catalogFlags.format)
}

func exportCatalog(w io.Writer, path string) error {
	if fileExists(path) {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := catalog.Default().Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	fmt.Fprintf(w, "Built-in catalog written to: %s\n\nSet catalog_file: %s in storyreel.yml to use it.\n", path, path)
	return nil
}

// catalogDiff returns a unified diff from the built-in catalog to cat, or ""
// when they are the same.
func catalogDiff(label string, cat *catalog.Catalog) (string, error) {
	builtin, err := catalog.Default().Marshal()
	if err != nil {
		return "", err
	}
	current, err := cat.Marshal()
	if err != nil {
		return "", err
	}
	return udiff.Unified("built-in", label, string(builtin), string(current)), nil
}

func diffCatalog(w io.Writer, path string, cat *catalog.Catalog) error {
	if path == "" {
		fmt.Fprintln(w, "No catalog_file configured; using the built-in catalog.")
		return nil
	}
	diff, err := catalogDiff(path, cat)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintf(w, "%s matches the built-in catalog.\n", path)
		return nil
	}

	s := theme.Current().S()
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			line = s.Success.Render(line)
		case strings.HasPrefix(line, "-"):
			line = s.Error.Render(line)
		case strings.HasPrefix(line, "@@"):
			line = s.Muted.Render(line)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// renderCatalog lists each section with the default marked by "*".
func renderCatalog(cat *catalog.Catalog) string {
	s := theme.Current().S()
	d := cat.Defaults()

	mark := func(isDefault bool) string {
		if isDefault {
			return s.Selected.Render("* ")
		}
		return "  "
	}

	var b strings.Builder
	b.WriteString(s.Title.Render("Voices") + "\n")
	for _, v := range cat.Voices {
		fmt.Fprintf(&b, "%s%-18s %s  %s\n", mark(v.ID == d.Voice), v.ID, v.Name, s.Muted.Render(v.Description))
	}

	b.WriteString("\n" + s.Title.Render("Music") + "\n")
	for _, g := range cat.Genres {
		fmt.Fprintf(&b, "%s%-18s %s  %s\n", mark(g.ID == d.BGMGenre), g.ID, g.Name, s.Muted.Render(strings.Join(g.Types, ", ")))
	}

	b.WriteString("\n" + s.Title.Render("Ratios") + "\n")
	for _, r := range cat.Ratios {
		fmt.Fprintf(&b, "%s%-18s %s  %s\n", mark(r.ID == d.Ratio), r.ID, r.Label, s.Muted.Render(r.Description))
	}
	return strings.TrimRight(b.String(), "\n")
}
