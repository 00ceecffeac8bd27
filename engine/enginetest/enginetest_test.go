package enginetest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wudi/tesskit/engine"
)

func newChain(t *testing.T, e *Engine, dir string, formats ...engine.Format) []engine.Renderer {
	t.Helper()
	var out []engine.Renderer
	for i, f := range formats {
		r, err := e.NewRenderer(f, filepath.Join(dir, "out"), engine.RendererOptions{})
		if err != nil {
			t.Fatalf("NewRenderer(%v) error = %v", f, err)
		}
		if i > 0 {
			if err := out[0].Insert(r); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
		}
		out = append(out, r)
	}
	return out
}

func TestBufferedUntilDestroy(t *testing.T) {
	dir := t.TempDir()
	e := New()
	chain := newChain(t, e, dir, engine.Text)
	head := chain[0]

	if err := head.BeginDocument("doc"); err != nil {
		t.Fatalf("BeginDocument() error = %v", err)
	}
	if err := e.RecognizeAndRender(Page("hello world"), 300, head); err != nil {
		t.Fatalf("RecognizeAndRender() error = %v", err)
	}
	if err := e.RecognizeAndRender(Page("second page"), 300, head); err != nil {
		t.Fatalf("RecognizeAndRender() error = %v", err)
	}
	if err := head.EndDocument(); err != nil {
		t.Fatalf("EndDocument() error = %v", err)
	}

	path := filepath.Join(dir, "out.txt")
	if data, err := os.ReadFile(path); err != nil || len(data) != 0 {
		t.Fatalf("before destroy: data = %q, err = %v, want empty file", data, err)
	}
	head.Destroy()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got, want := string(data), "hello world\n\fsecond page\n"; got != want {
		t.Fatalf("text output = %q, want %q", got, want)
	}
}

func TestWriteThrough(t *testing.T) {
	dir := t.TempDir()
	e := New()
	e.WriteThrough = true
	chain := newChain(t, e, dir, engine.TSV)
	head := chain[0]

	if err := head.BeginDocument(""); err != nil {
		t.Fatalf("BeginDocument() error = %v", err)
	}
	if err := e.RecognizeAndRender(Page("one two"), 72, head); err != nil {
		t.Fatalf("RecognizeAndRender() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.tsv"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("tsv lines = %d (%q), want header + page + 2 words", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "level\t") {
		t.Fatalf("first line %q is not the header", lines[0])
	}
	if !strings.HasSuffix(lines[3], "\ttwo") {
		t.Fatalf("last line %q does not carry the word", lines[3])
	}
	head.Destroy()
}

func TestDestroyCascades(t *testing.T) {
	dir := t.TempDir()
	e := New()
	chain := newChain(t, e, dir, engine.Text, engine.HOCR, engine.ALTO)

	chain[0].Destroy()
	for i, r := range chain {
		if n := e.DestroyCount(r); n != 1 {
			t.Fatalf("renderer %d destroy count = %d, want 1", i, n)
		}
	}
	chain[0].Destroy()
	if n := e.DestroyCount(chain[0]); n != 2 {
		t.Fatalf("head destroy count after second call = %d, want 2", n)
	}
	// The cascade visits chained renderers again but must not reopen
	// or rewrite their files.
	if err := e.RecognizeAndRender(Page("x"), 300, chain[0]); err == nil {
		t.Fatal("RecognizeAndRender() after destroy should fail")
	}
}

func TestFailPage(t *testing.T) {
	dir := t.TempDir()
	e := New()
	boom := errors.New("boom")
	e.FailPage(2, boom)
	chain := newChain(t, e, dir, engine.Text)
	head := chain[0]

	if err := head.BeginDocument(""); err != nil {
		t.Fatalf("BeginDocument() error = %v", err)
	}
	if err := e.RecognizeAndRender(Page("ok"), 300, head); err != nil {
		t.Fatalf("page 1 error = %v", err)
	}
	if err := e.RecognizeAndRender(Page("bad"), 300, head); !errors.Is(err, boom) {
		t.Fatalf("page 2 error = %v, want injected failure", err)
	}
	head.Destroy()
}

func TestFailFormat(t *testing.T) {
	e := New()
	e.FailFormat(engine.PDF, engine.ErrUnsupportedFormat)
	_, err := e.NewRenderer(engine.PDF, filepath.Join(t.TempDir(), "out"), engine.RendererOptions{})
	if !errors.Is(err, engine.ErrUnsupportedFormat) {
		t.Fatalf("NewRenderer() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestImageClose(t *testing.T) {
	img := Page("x")
	if img.Closed() {
		t.Fatal("new image reports closed")
	}
	if err := img.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !img.Closed() {
		t.Fatal("image not closed after Close")
	}
}
