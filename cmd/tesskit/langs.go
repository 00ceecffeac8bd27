package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/wudi/tesskit/tessdata"
)

func langsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "langs",
		Short: "Manage the local cache of language data files",
	}
	cmd.AddCommand(langsListCmd(), langsPullCmd(), langsUpdateCmd())
	return cmd
}

func newDataClient() (*tessdata.Client, error) {
	dir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	cache, err := tessdata.NewCache(dir)
	if err != nil {
		return nil, err
	}
	return tessdata.NewClient(cache,
		tessdata.WithRepo(cfg.Tessdata.Repo),
		tessdata.WithBranch(cfg.Tessdata.Branch),
		tessdata.WithLogger(log),
		tessdata.WithProgress(downloadProgress()),
	), nil
}

// ensureLanguages downloads any missing or stale language data and
// returns the cache directory to point the engine at.
func ensureLanguages(ctx context.Context, langs []string) (string, error) {
	client, err := newDataClient()
	if err != nil {
		return "", err
	}
	for _, lang := range langs {
		if _, err := client.Ensure(ctx, lang); err != nil {
			return "", fmt.Errorf("ensure language %s: %w", lang, err)
		}
	}
	return client.Cache().Dir(), nil
}

// downloadProgress renders one byte-count bar per downloaded language.
func downloadProgress() tessdata.Progress {
	var (
		bar     *progressbar.ProgressBar
		barLang string
	)
	return func(lang string, received, total int64) {
		if bar == nil || barLang != lang {
			barLang = lang
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetDescription(lang),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowBytes(true),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprint(os.Stderr, "\n")
				}),
			)
		}
		_ = bar.Set64(received)
	}
}

func langsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available languages and their cache status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDataClient()
			if err != nil {
				return err
			}
			ix, err := client.Index(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LANG\tSIZE\tSTATUS")
			for _, lang := range ix.Languages() {
				entry, _ := ix.Lookup(lang)
				fmt.Fprintf(w, "%s\t%s\t%s\n", lang, formatSize(entry.Size), cacheStatus(cmd.Context(), client, lang))
			}
			return w.Flush()
		},
	}
}

func cacheStatus(ctx context.Context, client *tessdata.Client, lang string) string {
	if !client.Cache().Has(lang) {
		return "-"
	}
	stale, err := client.Stale(ctx, lang)
	switch {
	case err != nil:
		return "unknown"
	case stale:
		return "stale"
	default:
		return "cached"
	}
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func langsPullCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "pull LANG...",
		Short: "Download language data into the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDataClient()
			if err != nil {
				return err
			}
			for _, lang := range args {
				if force {
					if err := client.Download(cmd.Context(), lang); err != nil {
						return err
					}
					continue
				}
				downloaded, err := client.Ensure(cmd.Context(), lang)
				if err != nil {
					return err
				}
				if !downloaded {
					fmt.Fprintf(os.Stderr, "%s: up to date\n", lang)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-download even when the cached copy matches the index")
	return cmd
}

func langsUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Re-download every cached language that went stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDataClient()
			if err != nil {
				return err
			}
			updated, err := client.Update(cmd.Context())
			if err != nil {
				return err
			}
			if len(updated) == 0 {
				fmt.Fprintln(os.Stderr, "all cached languages are up to date")
				return nil
			}
			for _, lang := range updated {
				fmt.Fprintf(os.Stderr, "%s: updated\n", lang)
			}
			return nil
		},
	}
}
