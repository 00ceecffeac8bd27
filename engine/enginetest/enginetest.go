// Package enginetest provides an in-memory OCR engine for exercising
// the rendering pipeline without the native libraries installed.
//
// Fake renderers write deterministic per-format output to real files.
// Like the native renderers they buffer everything until Destroy
// unless WriteThrough is set, and destroying a renderer destroys every
// renderer chained after it.
package enginetest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/wudi/tesskit/engine"
)

// Engine is a fake engine.Engine. Configure failure injection and
// WriteThrough before the first call; accessors are safe at any time.
type Engine struct {
	// WriteThrough makes renderers write straight to their files
	// instead of buffering until Destroy.
	WriteThrough bool

	mu         sync.Mutex
	created    []*Renderer
	destroys   map[*Renderer]int
	failCreate map[engine.Format]error
	failPage   map[int]error
	pageCount  int
	dpis       []int
}

func New() *Engine {
	return &Engine{
		destroys:   make(map[*Renderer]int),
		failCreate: make(map[engine.Format]error),
		failPage:   make(map[int]error),
	}
}

// FailFormat makes NewRenderer fail for format f.
func (e *Engine) FailFormat(f engine.Format, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failCreate[f] = err
}

// FailPage makes RecognizeAndRender fail on the page-th call, 1-based.
func (e *Engine) FailPage(page int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failPage[page] = err
}

func (e *Engine) NewRenderer(f engine.Format, outputBase string, opts engine.RendererOptions) (engine.Renderer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.failCreate[f]; err != nil {
		return nil, err
	}
	file, err := os.Create(outputBase + f.Ext())
	if err != nil {
		return nil, fmt.Errorf("enginetest: create output: %w", err)
	}
	r := &Renderer{eng: e, format: f, path: file.Name(), file: file, opts: opts}
	e.created = append(e.created, r)
	return r, nil
}

func (e *Engine) RecognizeAndRender(img engine.Image, dpi int, chain engine.Renderer) error {
	page, ok := img.(*Image)
	if !ok {
		return fmt.Errorf("enginetest: image %T was not created by this package", img)
	}
	var head *Renderer
	if chain != nil {
		head, ok = chain.(*Renderer)
		if !ok {
			return fmt.Errorf("enginetest: renderer %T was not created by this engine", chain)
		}
	}

	e.mu.Lock()
	e.pageCount++
	n := e.pageCount
	e.dpis = append(e.dpis, dpi)
	err := e.failPage[n]
	e.mu.Unlock()
	if err != nil {
		return err
	}

	for r := head; r != nil; r = r.next {
		if err := r.addPage(page.Text, n); err != nil {
			return err
		}
	}
	return nil
}

// Created returns every renderer the engine handed out, in order.
func (e *Engine) Created() []*Renderer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Renderer(nil), e.created...)
}

// DestroyCount reports how many times Destroy reached r, including
// cascades from earlier renderers in its chain.
func (e *Engine) DestroyCount(r engine.Renderer) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	fr, ok := r.(*Renderer)
	if !ok {
		return 0
	}
	return e.destroys[fr]
}

// Pages reports how many recognize calls the engine has seen.
func (e *Engine) Pages() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pageCount
}

// DPIs returns the resolution passed with each recognize call.
func (e *Engine) DPIs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.dpis...)
}

// Image is a fake page. Text is what every renderer "recognizes".
type Image struct {
	Text string

	mu     sync.Mutex
	closed bool
}

// Page returns an image whose recognized content is text.
func Page(text string) *Image {
	return &Image{Text: text}
}

func (i *Image) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

func (i *Image) Closed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// Renderer is a fake engine.Renderer writing to a real file.
type Renderer struct {
	eng    *Engine
	format engine.Format
	path   string
	file   *os.File
	opts   engine.RendererOptions

	buf       bytes.Buffer
	next      *Renderer
	begun     bool
	destroyed bool
	pages     int
}

func (r *Renderer) Format() engine.Format { return r.format }

func (r *Renderer) Path() string { return r.path }

func (r *Renderer) Destroyed() bool {
	r.eng.mu.Lock()
	defer r.eng.mu.Unlock()
	return r.destroyed
}

func (r *Renderer) Insert(next engine.Renderer) error {
	n, ok := next.(*Renderer)
	if !ok {
		return fmt.Errorf("enginetest: renderer %T was not created by this engine", next)
	}
	if r.destroyed || n.destroyed {
		return errors.New("enginetest: Insert on destroyed renderer")
	}
	tail := r
	for tail.next != nil {
		tail = tail.next
	}
	tail.next = n
	return nil
}

func (r *Renderer) BeginDocument(title string) error {
	for rr := r; rr != nil; rr = rr.next {
		if rr.destroyed {
			return errors.New("enginetest: BeginDocument on destroyed renderer")
		}
		rr.begun = true
		if err := rr.write(rr.beginContent(title)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) EndDocument() error {
	for rr := r; rr != nil; rr = rr.next {
		if rr.destroyed {
			return errors.New("enginetest: EndDocument on destroyed renderer")
		}
		if err := rr.write(rr.endContent()); err != nil {
			return err
		}
	}
	return nil
}

// Destroy releases r and cascades to every renderer chained after it,
// flushing buffered output the way fclose does for the native ones.
func (r *Renderer) Destroy() {
	for rr := r; rr != nil; rr = rr.next {
		rr.destroy()
	}
}

func (rr *Renderer) destroy() {
	rr.eng.mu.Lock()
	rr.eng.destroys[rr]++
	already := rr.destroyed
	rr.destroyed = true
	rr.eng.mu.Unlock()
	if already {
		return
	}
	if rr.buf.Len() > 0 {
		rr.file.Write(rr.buf.Bytes())
		rr.buf.Reset()
	}
	rr.file.Close()
}

func (r *Renderer) addPage(text string, page int) error {
	if r.destroyed {
		return fmt.Errorf("enginetest: %s renderer used after destroy", r.format)
	}
	if !r.begun {
		return fmt.Errorf("enginetest: %s renderer: AddImage before BeginDocument", r.format)
	}
	r.pages++
	return r.write(r.pageContent(text))
}

func (r *Renderer) write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if r.eng.WriteThrough {
		_, err := r.file.Write(p)
		return err
	}
	r.buf.Write(p)
	return nil
}

func (r *Renderer) beginContent(title string) []byte {
	switch r.format {
	case engine.TSV:
		return []byte("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n")
	case engine.HOCR:
		return []byte(fmt.Sprintf("<html>\n<head><title>%s</title></head>\n<body>\n", title))
	case engine.ALTO:
		return []byte("<alto>\n<Layout>\n")
	case engine.PDF:
		return []byte("%PDF-1.5\n")
	}
	return nil
}

func (r *Renderer) endContent() []byte {
	switch r.format {
	case engine.HOCR:
		return []byte("</body>\n</html>\n")
	case engine.ALTO:
		return []byte("</Layout>\n</alto>\n")
	case engine.PDF:
		return []byte("%%EOF\n")
	}
	return nil
}

func (r *Renderer) pageContent(text string) []byte {
	var b bytes.Buffer
	switch r.format {
	case engine.Text:
		if r.pages > 1 {
			b.WriteString("\f")
		}
		b.WriteString(text)
		b.WriteString("\n")
	case engine.UNLV:
		if r.pages > 1 {
			b.WriteString("\f")
		}
		// ISO-8859-1 like the native renderer; out-of-range runes
		// degrade to '?'.
		for _, c := range text {
			if c < 0x100 {
				b.WriteByte(byte(c))
			} else {
				b.WriteByte('?')
			}
		}
		b.WriteString("\n")
	case engine.TSV:
		fmt.Fprintf(&b, "1\t%d\t0\t0\t0\t0\t0\t0\t640\t480\t-1\t\n", r.pages)
		for i, w := range strings.Fields(text) {
			fmt.Fprintf(&b, "5\t%d\t1\t1\t1\t%d\t%d\t0\t%d\t12\t90.5\t%s\n", r.pages, i+1, i*40, 10*len(w), w)
		}
	case engine.HOCR:
		fmt.Fprintf(&b, "  <div class='ocr_page' id='page_%d' title='bbox 0 0 640 480'>%s</div>\n", r.pages, text)
	case engine.ALTO:
		fmt.Fprintf(&b, "  <Page ID=\"page_%d\">%s</Page>\n", r.pages, text)
	case engine.WordBox, engine.LSTMBox:
		for i, w := range strings.Fields(text) {
			fmt.Fprintf(&b, "%s %d 0 %d 12 %d\n", w, i*40, i*40+10*len(w), r.pages-1)
		}
	case engine.PDF:
		fmt.Fprintf(&b, "page %d stream\n", r.pages)
	}
	return b.Bytes()
}
