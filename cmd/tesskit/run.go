package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Codecs for input probing. Leptonica does the real decoding.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spf13/cobra"

	"github.com/wudi/tesskit/engine"
	"github.com/wudi/tesskit/engine/tesseract"
	"github.com/wudi/tesskit/observability"
	"github.com/wudi/tesskit/pipeline"
)

func runCmd() *cobra.Command {
	var (
		outDir   string
		outBase  string
		langs    []string
		formats  []string
		dpi      int
		psm      int
		title    string
		pull     bool
		toStdout bool
	)

	cmd := &cobra.Command{
		Use:   "run [flags] IMAGE...",
		Short: "Recognize page images into one document per output format",
		Long: `Run recognizes the given page images as one document and renders it
into every configured output format concurrently. Each image becomes one
page, in argument order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("languages") {
				cfg.OCR.Languages = langs
			}
			if cmd.Flags().Changed("formats") {
				cfg.OCR.Formats = formats
			}
			if cmd.Flags().Changed("dpi") {
				cfg.OCR.DPI = dpi
			}
			if cmd.Flags().Changed("psm") {
				cfg.OCR.PSM = psm
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if outBase == "" {
				outBase = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			return runOCR(cmd.Context(), args, outDir, outBase, title, pull, toStdout)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "d", ".", "directory for output files")
	cmd.Flags().StringVarP(&outBase, "output", "o", "", "output base name (default: first input's stem)")
	cmd.Flags().StringSliceVarP(&langs, "languages", "l", nil, "recognition languages")
	cmd.Flags().StringSliceVarP(&formats, "formats", "f", nil, "output formats")
	cmd.Flags().IntVar(&dpi, "dpi", 0, "resolution for images that carry none")
	cmd.Flags().IntVar(&psm, "psm", 0, "page segmentation mode")
	cmd.Flags().StringVar(&title, "title", "", "document title for formats that embed one")
	cmd.Flags().BoolVar(&pull, "pull", false, "download missing language data into the cache first")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "stream the single configured format to stdout")
	return cmd
}

func runOCR(ctx context.Context, inputs []string, outDir, outBase, title string, pull, toStdout bool) error {
	if err := probeInputs(inputs); err != nil {
		return err
	}

	formats, err := cfg.OutputFormats()
	if err != nil {
		return err
	}
	if toStdout && len(formats) != 1 {
		return fmt.Errorf("--stdout requires exactly one output format, have %d", len(formats))
	}

	dataDir := cfg.Tessdata.Dir
	if pull {
		if dataDir, err = ensureLanguages(ctx, cfg.OCR.Languages); err != nil {
			return err
		}
	}

	client, err := tesseract.NewClient(
		tesseract.WithLanguages(cfg.OCR.Languages...),
		tesseract.WithDataDir(dataDir),
		tesseract.WithLogger(log),
		tesseract.WithTesseractLib(cfg.Library.Tesseract),
		tesseract.WithLeptonicaLib(cfg.Library.Leptonica),
		tesseract.WithPageSegMode(tesseract.PageSegMode(cfg.OCR.PSM)),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	p, err := pipeline.New(client, pipeline.WithLogger(log), pipeline.WithTitle(title))
	if err != nil {
		return err
	}
	defer p.Close()

	var outputs []string
	if toStdout {
		if err := p.Pipe(formats[0], os.Stdout); err != nil {
			return err
		}
	} else {
		taken := make(map[string]bool)
		for _, f := range formats {
			path := outputPath(outDir, outBase, f, taken)
			if err := p.WriteFile(f, path); err != nil {
				return err
			}
			outputs = append(outputs, path)
		}
	}

	var loadErr error
	err = p.Run(ctx, func(add pipeline.AddPage) bool {
		for _, path := range inputs {
			pix, err := client.LoadImage(path)
			if err != nil {
				loadErr = err
				return false
			}
			ok := add(pix, cfg.OCR.DPI)
			pix.Close()
			if !ok {
				return false
			}
		}
		return true
	})
	if loadErr != nil {
		return loadErr
	}
	if err != nil {
		return err
	}

	for _, path := range outputs {
		log.Info("document rendered", observability.String("path", path))
	}
	return nil
}

// probeInputs rejects unreadable or non-image inputs before any native
// state is set up.
func probeInputs(paths []string) error {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		imgCfg, format, err := image.DecodeConfig(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("probe %s: %w", path, err)
		}
		log.Debug("input probed",
			observability.String("path", path),
			observability.String("format", format),
			observability.Int("width", imgCfg.Width),
			observability.Int("height", imgCfg.Height))
	}
	return nil
}

// outputPath joins dir, base and the format's extension, disambiguating
// formats that share an extension.
func outputPath(dir, base string, f engine.Format, taken map[string]bool) string {
	path := filepath.Join(dir, base+f.Ext())
	if taken[path] {
		path = filepath.Join(dir, base+"-"+f.String()+f.Ext())
	}
	taken[path] = true
	return path
}
