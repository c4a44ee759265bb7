package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/toolinger/toolinger/internal/content"
	"github.com/toolinger/toolinger/internal/registry"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List content files and the tools they provide",
	Long: `List every servable file in the pages/ and tools/ namespaces of the
content root. Files in tools/ also show the slug they are served under.

Examples:
  toolinger list            # Table output
  toolinger list -o json    # JSON output
  toolinger list -o yaml    # YAML output`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listFlags *StandardFlags

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddStandardFlags(listCmd, "output")
}

// listEntry is one row of the listing.
type listEntry struct {
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Path      string `json:"path" yaml:"path"`
	Tool      string `json:"tool,omitempty" yaml:"tool,omitempty"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	entries, err := collectEntries(cmd.Context(), p)
	if err != nil {
		return err
	}

	return writeEntries(cmd.OutOrStdout(), entries, listFlags.OutputFormat)
}

func collectEntries(ctx context.Context, p *pipeline) ([]listEntry, error) {
	files, err := p.locator.List(ctx)
	if err != nil {
		return nil, err
	}

	tools := registry.New()
	if err := registry.Sync(ctx, tools, p.locator, p.service); err != nil {
		return nil, err
	}
	byFile := make(map[string]registry.Tool)
	for _, t := range tools.All() {
		if at, ok := t.(*registry.ArticleTool); ok {
			byFile[at.File()] = t
		}
	}

	entries := make([]listEntry, 0, len(files))
	for _, f := range files {
		e := listEntry{Name: f.Name, Namespace: string(f.Namespace), Path: f.Path}
		if t, ok := byFile[f.Name]; ok && f.Namespace == content.NamespaceTools {
			e.Tool = t.Slug()
			e.Title = t.Title()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func writeEntries(w io.Writer, entries []listEntry, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(entries)
	case "table", "":
		if len(entries) == 0 {
			_, err := fmt.Fprintln(w, "No content files found.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAMESPACE\tNAME\tTOOL\tPATH")
		for _, e := range entries {
			tool := e.Tool
			if tool == "" {
				tool = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Namespace, e.Name, tool, e.Path)
		}
		return tw.Flush()
	default:
		return ValidateFormat(format, outputFormats)
	}
}
