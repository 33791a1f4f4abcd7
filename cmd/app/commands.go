package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v3"

	"github.com/starford/docshelf/internal"
	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/library"
	"github.com/starford/docshelf/internal/mcpserver"
	"github.com/starford/docshelf/internal/models"
	"github.com/starford/docshelf/internal/syncer"
)

// open loads the config and wires the engine with logs on stderr, leaving
// stdout to command output.
func open(cmd *cli.Command) (*internal.Components, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	return internal.Build(cfg, logger, nil)
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile the catalog with the library root once",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			comp, err := open(cmd)
			if err != nil {
				return err
			}
			defer comp.Close()

			report, err := comp.Library.Sync(ctx)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			printReport(cmd.Root().Writer, report)
			return report.Err()
		},
	}
}

func printReport(w io.Writer, r syncer.Report) {
	fmt.Fprintf(w, "added: %d, updated: %d, removed: %d, errors: %d (%s)\n",
		r.Added, r.Updated, r.Removed, len(r.Errors), r.Duration.Round(time.Millisecond))
	for _, f := range r.Errors {
		fmt.Fprintf(w, "  %s %s: %s\n", f.Op, f.Filename, apperr.KindOf(f.Err))
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: table or json",
				Value: "table",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format := cmd.String("format")
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q", format)
			}

			comp, err := open(cmd)
			if err != nil {
				return err
			}
			defer comp.Close()

			entries, err := comp.Library.List(ctx)
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			if format == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			renderTable(w, entries)
			return nil
		},
	}
}

func renderTable(w io.Writer, entries []models.CatalogEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Filename", "Title", "Size", "Added", "Description"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, WidthMax: 48},
	})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Filename,
			e.Title,
			humanSize(e.SizeBytes),
			e.DateAdded.Local().Format("2006-01-02 15:04"),
			strings.ReplaceAll(e.Description, "\n", " "),
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d document(s)", len(entries))})
	t.Render()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func describeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "Set the description of a catalogued document",
		ArgsUsage: "<filename> <description>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 2 {
				return cli.Exit("usage: describe <filename> <description>", 2)
			}
			name := cmd.Args().Get(0)
			desc := strings.Join(cmd.Args().Slice()[1:], " ")

			comp, err := open(cmd)
			if err != nil {
				return err
			}
			defer comp.Close()

			w := cmd.Root().Writer
			entry, err := comp.Library.UpdateMetadata(ctx, name, library.MetadataUpdate{Description: &desc})
			if err != nil {
				if apperr.IsRejection(err) || errors.Is(err, apperr.ErrNotFound) {
					fmt.Fprintf(w, "document %q not found in the catalog\n", name)
					if names, lerr := comp.Library.Filenames(ctx); lerr == nil && len(names) > 0 {
						fmt.Fprintln(w, "available documents:")
						for _, n := range names {
							fmt.Fprintf(w, "  %s\n", n)
						}
					}
					return cli.Exit("", 1)
				}
				return err
			}

			fmt.Fprintf(w, "updated %s\n  title: %s\n  description: %s\n", entry.Filename, entry.Title, entry.Description)
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the catalog tools over MCP on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			comp, err := open(cmd)
			if err != nil {
				return err
			}
			defer comp.Close()

			if _, err := comp.Library.Sync(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "initial sync failed: %v\n", err)
			}
			return mcpserver.New(comp.Library, version).ServeStdio()
		},
	}
}
