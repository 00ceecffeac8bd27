//go:build gosseract

// Package gosseract is an opt-in recognition backend built on the cgo
// gosseract client, for environments where the runtime library loader
// cannot be used. Build with -tags gosseract.
//
// The backend synthesizes renderer output in Go: only the Text and HOCR
// formats are available, and multi-page HOCR repeats per-page element
// ids. The other formats report engine.ErrUnsupportedFormat.
package gosseract

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	goss "github.com/otiai10/gosseract/v2"
	"golang.org/x/net/html"

	"github.com/wudi/tesskit/engine"
)

// Engine drives one gosseract client per recognized page.
type Engine struct {
	languages []string
	dataDir   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages selects the recognition languages.
func WithLanguages(langs ...string) Option {
	return func(e *Engine) { e.languages = langs }
}

// WithDataDir points at the directory holding .traineddata files.
func WithDataDir(dir string) Option {
	return func(e *Engine) { e.dataDir = dir }
}

func New(opts ...Option) *Engine {
	e := &Engine{languages: []string{"eng"}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Version reports the linked libtesseract version.
func Version() string { return goss.Version() }

// Image carries one encoded page image.
type Image struct {
	data []byte
}

// LoadImage reads an encoded image file.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gosseract: read image: %w", err)
	}
	return &Image{data: data}, nil
}

// LoadImageMem wraps in-memory encoded image data.
func LoadImageMem(data []byte) *Image {
	return &Image{data: data}
}

func (i *Image) Close() error {
	i.data = nil
	return nil
}

// renderer writes one synthesized output format.
type renderer struct {
	format   engine.Format
	file     *os.File
	pages    int
	next     *renderer
	released bool
}

// NewRenderer constructs a synthesized renderer for f. Only Text and
// HOCR are available from this backend.
func (e *Engine) NewRenderer(f engine.Format, outputBase string, opts engine.RendererOptions) (engine.Renderer, error) {
	switch f {
	case engine.Text, engine.HOCR:
	default:
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupportedFormat, f)
	}
	file, err := os.OpenFile(outputBase+f.Ext(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("gosseract: create renderer output: %w", err)
	}
	return &renderer{format: f, file: file}, nil
}

// RecognizeAndRender recognizes one page and appends it to every
// renderer in chain. A nil chain recognizes without rendering.
func (e *Engine) RecognizeAndRender(img engine.Image, dpi int, chain engine.Renderer) error {
	im, ok := img.(*Image)
	if !ok {
		return fmt.Errorf("gosseract: cannot recognize %T image", img)
	}
	if im.data == nil {
		return fmt.Errorf("gosseract: recognize: image is closed")
	}

	var head *renderer
	if chain != nil {
		if head, ok = chain.(*renderer); !ok {
			return fmt.Errorf("gosseract: cannot render into %T", chain)
		}
	}

	needText, needHOCR := head == nil, false
	for r := head; r != nil; r = r.next {
		switch r.format {
		case engine.Text:
			needText = true
		case engine.HOCR:
			needHOCR = true
		}
	}

	text, hocr, err := e.recognize(im.data, dpi, needText, needHOCR)
	if err != nil {
		return err
	}
	for r := head; r != nil; r = r.next {
		if err := r.addPage(text, hocr); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) recognize(data []byte, dpi int, needText, needHOCR bool) (text, hocr string, err error) {
	c := goss.NewClient()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", "", fmt.Errorf("gosseract: set languages: %w", err)
	}
	if e.dataDir != "" {
		if err := c.SetTessdataPrefix(e.dataDir); err != nil {
			return "", "", fmt.Errorf("gosseract: set data dir: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", "", fmt.Errorf("gosseract: set image: %w", err)
	}
	if dpi > 0 {
		if err := c.SetVariable(goss.SettableVariable("user_defined_dpi"), strconv.Itoa(dpi)); err != nil {
			return "", "", fmt.Errorf("gosseract: set dpi: %w", err)
		}
	}

	if needText {
		if text, err = c.Text(); err != nil {
			return "", "", fmt.Errorf("gosseract: recognize text: %w", err)
		}
	}
	if needHOCR {
		if hocr, err = c.HOCRText(); err != nil {
			return "", "", fmt.Errorf("gosseract: recognize hocr: %w", err)
		}
	}
	return text, hocr, nil
}

func (r *renderer) addPage(text, hocr string) error {
	r.pages++
	var err error
	switch r.format {
	case engine.Text:
		if r.pages > 1 {
			if _, err = r.file.WriteString("\f"); err != nil {
				break
			}
		}
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		_, err = r.file.WriteString(text)
	case engine.HOCR:
		if !strings.HasSuffix(hocr, "\n") {
			hocr += "\n"
		}
		_, err = r.file.WriteString(hocr)
	}
	if err != nil {
		return fmt.Errorf("gosseract: write page: %w", err)
	}
	return nil
}

func (r *renderer) Insert(next engine.Renderer) error {
	n, ok := next.(*renderer)
	if !ok {
		return fmt.Errorf("gosseract: cannot chain %T renderer", next)
	}
	tail := r
	for tail.next != nil {
		tail = tail.next
	}
	tail.next = n
	return nil
}

func (r *renderer) BeginDocument(title string) error {
	for cur := r; cur != nil; cur = cur.next {
		if cur.format != engine.HOCR {
			continue
		}
		if _, err := cur.file.WriteString(hocrHeader(title)); err != nil {
			return fmt.Errorf("gosseract: write document header: %w", err)
		}
	}
	return nil
}

func (r *renderer) EndDocument() error {
	for cur := r; cur != nil; cur = cur.next {
		if cur.format != engine.HOCR {
			continue
		}
		if _, err := cur.file.WriteString(" </body>\n</html>\n"); err != nil {
			return fmt.Errorf("gosseract: write document footer: %w", err)
		}
	}
	return nil
}

// Destroy closes the output files of this renderer and everything
// chained after it.
func (r *renderer) Destroy() {
	for cur := r; cur != nil; cur = cur.next {
		if cur.released {
			continue
		}
		cur.released = true
		cur.file.Close()
	}
}

func hocrHeader(title string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head>
  <title>` + html.EscapeString(title) + `</title>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name='ocr-system' content='tesseract'/>
  <meta name='ocr-capabilities' content='ocr_page ocr_carea ocr_par ocr_line ocrx_word ocrp_wconf'/>
 </head>
 <body>
`
}
