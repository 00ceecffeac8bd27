package pipeline

import (
	"bytes"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestJob(t *testing.T) *job {
	t.Helper()
	j, err := newJob(filepath.Join(t.TempDir(), "job.txt"))
	if err != nil {
		t.Fatalf("newJob() error = %v", err)
	}
	return j
}

// The accumulate property: K bytes written across unevenly timed bursts
// arrive exactly once, in order, no matter how reads and writes
// interleave. Sleeps leave the consumer blocked in Read when some of
// the bursts land.
func TestJobDeliversAllBytesUnderBursts(t *testing.T) {
	j := newTestJob(t)
	defer j.close()

	w, err := os.OpenFile(j.path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open producer handle: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	var want bytes.Buffer
	var bursts [][]byte
	for want.Len() < 64*1024 {
		b := make([]byte, rng.Intn(9000)+1)
		rng.Read(b)
		bursts = append(bursts, b)
		want.Write(b)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, b := range bursts {
			if _, err := w.Write(b); err != nil {
				t.Errorf("producer write: %v", err)
				break
			}
			j.wakeup()
			if i%3 == 0 {
				time.Sleep(time.Millisecond)
			}
		}
		w.Close()
		j.finish()
	}()

	got, err := io.ReadAll(j)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	<-done
	if !bytes.Equal(got, want.Bytes()) {
		t.Fatalf("consumer read %d bytes, want %d identical bytes", len(got), want.Len())
	}
}

func TestJobFinishWithoutData(t *testing.T) {
	j := newTestJob(t)
	defer j.close()

	j.finish()
	n, err := j.Read(make([]byte, 16))
	if n != 0 || err != io.EOF {
		t.Fatalf("Read() = (%d, %v), want (0, EOF)", n, err)
	}
	// Terminal: every further read stays EOF.
	if _, err := j.Read(make([]byte, 16)); err != io.EOF {
		t.Fatalf("second Read() error = %v, want EOF", err)
	}
}

// Bytes flushed immediately before finish must not vanish: the done
// flag is sampled before the file read, so the retry after the final
// wakeup sees them.
func TestJobTailBytesBeforeFinish(t *testing.T) {
	j := newTestJob(t)
	defer j.close()

	read := make(chan []byte, 1)
	go func() {
		data, err := io.ReadAll(j)
		if err != nil {
			t.Errorf("ReadAll() error = %v", err)
		}
		read <- data
	}()

	// Give the consumer time to park in Read.
	time.Sleep(10 * time.Millisecond)

	w, err := os.OpenFile(j.path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open producer handle: %v", err)
	}
	if _, err := w.Write([]byte("tail")); err != nil {
		t.Fatalf("producer write: %v", err)
	}
	w.Close()
	j.finish()

	if got := <-read; string(got) != "tail" {
		t.Fatalf("consumer read %q, want %q", got, "tail")
	}
}

func TestJobCoalescedWakeups(t *testing.T) {
	j := newTestJob(t)
	defer j.close()

	w, err := os.OpenFile(j.path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open producer handle: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := w.Write([]byte("x")); err != nil {
			t.Fatalf("producer write: %v", err)
		}
		j.wakeup()
	}
	w.Close()
	j.finish()

	got, err := io.ReadAll(j)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "xxxxxxxxxx" {
		t.Fatalf("consumer read %q, want ten bytes", got)
	}
}
