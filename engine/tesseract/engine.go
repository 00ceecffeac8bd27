package tesseract

import (
	"fmt"

	"github.com/wudi/tesskit/engine"
)

// renderer wraps one native TessResultRenderer.
type renderer struct {
	bind     *bindings
	raw      uintptr
	released bool
}

// NewRenderer constructs the native renderer for f writing to outputBase
// plus the format's extension.
func (c *Client) NewRenderer(f engine.Format, outputBase string, opts engine.RendererOptions) (engine.Renderer, error) {
	var raw uintptr
	switch f {
	case engine.Text:
		raw = c.bind.TextRendererCreate(outputBase)
	case engine.HOCR:
		raw = c.bind.HOcrRendererCreate2(outputBase, cbool(opts.FontInfo))
	case engine.TSV:
		raw = c.bind.TsvRendererCreate(outputBase)
	case engine.ALTO:
		raw = c.bind.AltoRendererCreate(outputBase)
	case engine.UNLV:
		raw = c.bind.UnlvRendererCreate(outputBase)
	case engine.WordBox:
		raw = c.bind.WordStrBoxRendererCreate(outputBase)
	case engine.LSTMBox:
		raw = c.bind.LSTMBoxRendererCreate(outputBase)
	case engine.PDF:
		dataDir := opts.DataDir
		if dataDir == "" {
			dataDir = c.dataDir
		}
		raw = c.bind.PDFRendererCreate(outputBase, dataDir, cbool(opts.TextOnly))
	default:
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupportedFormat, f)
	}
	if raw == 0 {
		return nil, fmt.Errorf("tesseract: create %s renderer at %s", f, outputBase)
	}
	return &renderer{bind: c.bind, raw: raw}, nil
}

// RecognizeAndRender recognizes one page image and appends the result to
// every renderer in chain. A nil chain recognizes without rendering.
func (c *Client) RecognizeAndRender(img engine.Image, dpi int, chain engine.Renderer) error {
	pix, ok := img.(*Pix)
	if !ok {
		return fmt.Errorf("tesseract: cannot recognize %T image", img)
	}
	if pix.ptr == 0 {
		return fmt.Errorf("tesseract: recognize: image is closed")
	}

	c.bind.SetImage2(c.api, pix.ptr)
	if dpi > 0 {
		c.bind.SetSourceResolution(c.api, int32(dpi))
	}
	if c.bind.Recognize(c.api, 0) != 0 {
		return fmt.Errorf("tesseract: recognize page")
	}
	if chain == nil {
		return nil
	}

	head, ok := chain.(*renderer)
	if !ok {
		return fmt.Errorf("tesseract: cannot render into %T", chain)
	}
	if c.bind.RendererAddImage(head.raw, c.api) == 0 {
		return fmt.Errorf("tesseract: render page")
	}
	return nil
}

func (r *renderer) Insert(next engine.Renderer) error {
	n, ok := next.(*renderer)
	if !ok {
		return fmt.Errorf("tesseract: cannot chain %T renderer", next)
	}
	r.bind.RendererInsert(r.raw, n.raw)
	return nil
}

func (r *renderer) BeginDocument(title string) error {
	if r.bind.RendererBeginDocument(r.raw, title) == 0 {
		return fmt.Errorf("tesseract: begin document")
	}
	return nil
}

func (r *renderer) EndDocument() error {
	if r.bind.RendererEndDocument(r.raw) == 0 {
		return fmt.Errorf("tesseract: end document")
	}
	return nil
}

// Destroy frees the renderer and everything chained after it.
func (r *renderer) Destroy() {
	if r.released {
		return
	}
	r.released = true
	r.bind.DeleteResultRenderer(r.raw)
	r.raw = 0
}

func cbool(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
