package pipeline

import (
	"github.com/wudi/tesskit/engine"
	"github.com/wudi/tesskit/observability"
)

type pipelineOptions struct {
	log        observability.Logger
	title      string
	tempParent string
}

// Option configures a Pipeline at construction.
type Option func(*pipelineOptions)

// WithLogger routes pipeline diagnostics to log. The default discards them.
func WithLogger(log observability.Logger) Option {
	return func(o *pipelineOptions) { o.log = log }
}

// WithTitle sets the document title handed to the renderer chain when the
// run begins. The PDF and HOCR formats embed it.
func WithTitle(title string) Option {
	return func(o *pipelineOptions) { o.title = title }
}

// WithTempDir places the run's working directory under parent instead of
// the system temp directory.
func WithTempDir(parent string) Option {
	return func(o *pipelineOptions) { o.tempParent = parent }
}

type outputOptions struct {
	renderer engine.RendererOptions
}

// OutputOption configures a single registered output.
type OutputOption func(*outputOptions)

// WithFontInfo embeds font metadata in HOCR output.
func WithFontInfo() OutputOption {
	return func(o *outputOptions) { o.renderer.FontInfo = true }
}

// WithTextOnly renders PDF output without the page images.
func WithTextOnly() OutputOption {
	return func(o *outputOptions) { o.renderer.TextOnly = true }
}

// WithFontDataDir points the PDF renderer at the directory holding its
// font resources.
func WithFontDataDir(dir string) OutputOption {
	return func(o *outputOptions) { o.renderer.DataDir = dir }
}
