package engine

import "errors"

// ErrUnsupportedFormat is reported by backends that cannot produce a
// requested output format.
var ErrUnsupportedFormat = errors.New("engine: unsupported output format")

// Image is an opaque handle to one in-memory page image. The pipeline passes
// images through to the backend unmodified; only the backend that produced an
// image can consume it. Close releases the underlying resource and is safe to
// call more than once.
type Image interface {
	Close() error
}

// Renderer is one native result renderer writing a single output format to a
// file chosen at construction time. Renderers write in place: they may create
// and truncate their output file but must never replace it, because a reader
// holds an open handle on the same path for the whole run.
type Renderer interface {
	// Insert appends next after the last renderer of this renderer's chain.
	// Once inserted, next is destroyed together with the chain head; it must
	// not be destroyed separately.
	Insert(next Renderer) error

	// BeginDocument starts a document spanning the pages rendered until
	// EndDocument, propagating through the whole chain.
	BeginDocument(title string) error

	// EndDocument closes the document on the whole chain.
	EndDocument() error

	// Destroy releases the renderer and every renderer chained after it.
	Destroy()
}

// RendererOptions carries the per-format construction knobs.
type RendererOptions struct {
	// FontInfo includes font metadata in HOCR output.
	FontInfo bool
	// TextOnly omits page images from PDF output, leaving only the text
	// layer.
	TextOnly bool
	// DataDir locates the font resources the PDF renderer embeds. Empty
	// means the backend's configured data directory.
	DataDir string
}

// Engine is the recognition backend the pipeline drives: construct renderers,
// then recognize pages one at a time into a renderer chain.
type Engine interface {
	// NewRenderer constructs a renderer writing format f to outputBase plus
	// the format's extension.
	NewRenderer(f Format, outputBase string, opts RendererOptions) (Renderer, error)

	// RecognizeAndRender recognizes one page and appends the result to every
	// renderer in chain. A nil chain recognizes without rendering. dpi is the
	// source resolution of img; zero lets the backend estimate.
	RecognizeAndRender(img Image, dpi int, chain Renderer) error
}
