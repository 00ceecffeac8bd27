//go:build gosseract

package gosseract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/tesskit/engine"
	"github.com/wudi/tesskit/hocr"
	"github.com/wudi/tesskit/pipeline"
)

// newTestEngine skips the test when recognition is not functional, for
// instance when no language data is installed.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(WithLanguages("eng"))
	if _, _, err := e.recognize(drawPNG(t, "probe"), 300, true, false); err != nil {
		t.Skipf("gosseract not functional: %v", err)
	}
	return e
}

func drawPNG(t *testing.T, text string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(20, 40),
	}
	d.DrawString(text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRenderText(t *testing.T) {
	e := newTestEngine(t)
	base := filepath.Join(t.TempDir(), "out")

	r, err := e.NewRenderer(engine.Text, base, engine.RendererOptions{})
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if err := r.BeginDocument("doc"); err != nil {
		t.Fatalf("BeginDocument() error = %v", err)
	}
	for _, content := range []string{"Hello World", "Second Page"} {
		img := LoadImageMem(drawPNG(t, content))
		if err := e.RecognizeAndRender(img, 300, r); err != nil {
			t.Fatalf("RecognizeAndRender() error = %v", err)
		}
	}
	if err := r.EndDocument(); err != nil {
		t.Fatalf("EndDocument() error = %v", err)
	}
	r.Destroy()

	data, err := os.ReadFile(base + ".txt")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	got := strings.ToLower(string(data))
	if !strings.Contains(got, "hello") || !strings.Contains(got, "second") {
		t.Fatalf("unexpected recognition output: %q", data)
	}
	if !strings.Contains(got, "\f") {
		t.Fatal("output is missing the page separator")
	}
}

func TestUnsupportedFormats(t *testing.T) {
	e := New()
	for _, f := range []engine.Format{engine.TSV, engine.ALTO, engine.UNLV, engine.PDF} {
		_, err := e.NewRenderer(f, filepath.Join(t.TempDir(), "out"), engine.RendererOptions{})
		if !errors.Is(err, engine.ErrUnsupportedFormat) {
			t.Fatalf("NewRenderer(%s) error = %v, want ErrUnsupportedFormat", f, err)
		}
	}
}

func TestPipelineHOCR(t *testing.T) {
	e := newTestEngine(t)

	p, err := pipeline.New(e, pipeline.WithTitle("scan"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out := filepath.Join(t.TempDir(), "scan.hocr")
	if err := p.WriteFile(engine.HOCR, out); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err = p.Run(context.Background(), func(add pipeline.AddPage) bool {
		for _, content := range []string{"Hello World", "Second Page"} {
			if !add(LoadImageMem(drawPNG(t, content)), 300) {
				return false
			}
		}
		return true
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	doc, err := hocr.Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("parsed %d pages, want 2", len(doc.Pages))
	}
}
