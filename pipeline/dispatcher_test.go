package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/wudi/tesskit/engine"
	"github.com/wudi/tesskit/observability"
)

// runDispatcher drains a dispatcher over prewritten content. WriteAt
// leaves the job's read offset at zero, and finish() before run() means
// the loop sees everything then EOF.
func runDispatcher(t *testing.T, format engine.Format, content []byte, configure func(*dispatcher)) (*dispatcher, error) {
	t.Helper()
	j, err := newJob(filepath.Join(t.TempDir(), "out"+format.Ext()))
	if err != nil {
		t.Fatalf("newJob() error = %v", err)
	}
	if _, err := j.file.WriteAt(content, 0); err != nil {
		t.Fatalf("WriteAt() error = %v", err)
	}
	j.finish()
	d := &dispatcher{job: j, format: format, log: observability.NopLogger{}}
	configure(d)
	return d, d.run()
}

func TestLineDispatch(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"no trailing newline", "A\nB\nC", []string{"A", "B", "C"}},
		{"trailing newline", "A\nB\nC\n", []string{"A", "B", "C"}},
		{"separator glued mid line", "A\fB\n", []string{"A", "\f", "B"}},
		{"separator at line start", "\fnext page\n", []string{"\f", "next page"}},
		{"separator on its own line", "one\n\f\ntwo\n", []string{"one", "\f", "two"}},
		{"separator at line end", "a\f\n", []string{"a", "\f"}},
		{"double separator", "a\f\fb\n", []string{"a", "\f", "\f", "b"}},
		{"empty lines are records", "a\n\nb\n", []string{"a", "", "b"}},
		{"separator in final partial line", "a\fb", []string{"a", "\f", "b"}},
		{"empty stream", "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			_, err := runDispatcher(t, engine.Text, []byte(tc.in), func(d *dispatcher) {
				d.mode = modeLines
				d.lineFn = func(line string) error {
					got = append(got, line)
					return nil
				}
			})
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("records = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLineDispatchCarryAcrossChunks(t *testing.T) {
	long := strings.Repeat("x", readChunk+1000)
	var got []string
	_, err := runDispatcher(t, engine.Text, []byte(long+"\nend\n"), func(d *dispatcher) {
		d.mode = modeLines
		d.lineFn = func(line string) error {
			got = append(got, line)
			return nil
		}
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(got) != 2 || got[0] != long || got[1] != "end" {
		t.Fatalf("records = %d lines, first %d bytes", len(got), len(got[0]))
	}
}

func TestLineCallbackErrorStopsDelivery(t *testing.T) {
	stop := errors.New("enough")
	var calls int
	_, err := runDispatcher(t, engine.Text, []byte("a\nb\nc\n"), func(d *dispatcher) {
		d.mode = modeLines
		d.lineFn = func(string) error {
			calls++
			return stop
		}
	})
	if !errors.Is(err, stop) {
		t.Fatalf("run() error = %v, want callback error", err)
	}
	if calls != 1 {
		t.Fatalf("callback ran %d times after failing, want 1", calls)
	}
}

func TestCaptureBytesKeepsLatin1Raw(t *testing.T) {
	cell := &Output[[]byte]{}
	raw := []byte{'c', 'a', 'f', 0xE9, '\n'}
	_, err := runDispatcher(t, engine.UNLV, raw, func(d *dispatcher) {
		d.mode = modeBytes
		d.bytesCell = cell
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	got, ok := cell.Value()
	if !ok {
		t.Fatal("cell not populated after drain")
	}
	if !reflect.DeepEqual(got, raw) {
		t.Fatalf("bytes cell = %v, want raw stream %v", got, raw)
	}
}

func TestCaptureTextTranscodesLatin1(t *testing.T) {
	cell := &Output[string]{}
	_, err := runDispatcher(t, engine.UNLV, []byte{'c', 'a', 'f', 0xE9, '\n'}, func(d *dispatcher) {
		d.mode = modeText
		d.textCell = cell
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	got, ok := cell.Value()
	if !ok {
		t.Fatal("cell not populated after drain")
	}
	if got != "café\n" {
		t.Fatalf("text cell = %q, want %q", got, "café\n")
	}
}

type failingWriter struct {
	limit int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	if w.n > w.limit {
		return 0, errors.New("sink full")
	}
	return len(p), nil
}

// A failing sink is recorded once; run still terminates normally
// because the read loop only exits at end of stream.
func TestWriterSinkErrorRecorded(t *testing.T) {
	content := []byte(strings.Repeat("y", 3*readChunk))
	_, err := runDispatcher(t, engine.Text, content, func(d *dispatcher) {
		d.mode = modeWriter
		d.sink = &failingWriter{limit: readChunk}
	})
	if err == nil || !strings.Contains(err.Error(), "sink full") {
		t.Fatalf("run() error = %v, want sink failure", err)
	}
}

func TestWriterPassthrough(t *testing.T) {
	var sink strings.Builder
	content := strings.Repeat("z", readChunk) + "\ftail\n"
	_, err := runDispatcher(t, engine.Text, []byte(content), func(d *dispatcher) {
		d.mode = modeWriter
		d.sink = &sink
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if sink.String() != content {
		t.Fatalf("sink received %d bytes, want %d", sink.Len(), len(content))
	}
}

func TestFileSink(t *testing.T) {
	target := filepath.Join(t.TempDir(), "copy.txt")
	_, err := runDispatcher(t, engine.Text, []byte("page\n"), func(d *dispatcher) {
		d.mode = modeFile
		d.path = target
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "page\n" {
		t.Fatalf("file sink = %q, want %q", data, "page\n")
	}
}

func TestFileSinkCreateError(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing", "copy.txt")
	_, err := runDispatcher(t, engine.Text, []byte("page\n"), func(d *dispatcher) {
		d.mode = modeFile
		d.path = target
	})
	if err == nil {
		t.Fatal("run() error = nil, want create failure")
	}
}
