package pipeline

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

const readChunk = 4096

// job couples the readable side of a renderer output file with the
// wait/notify handshake between the producer (the native render call)
// and the single consumer goroutine draining the file.
//
// The wake channel holds one slot so a wakeup sent while the consumer
// is busy is never lost; repeated wakeups coalesce into that slot.
type job struct {
	file *os.File
	path string
	buf  []byte
	wake chan struct{}
	done atomic.Bool
}

// newJob creates the output file the renderer will write into and opens
// the job's read handle on it. The renderer truncates the same inode
// when it opens the path, so the handle stays valid.
func newJob(path string) (*job, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create job file: %w", err)
	}
	return &job{
		file: f,
		path: path,
		buf:  make([]byte, readChunk),
		wake: make(chan struct{}, 1),
	}, nil
}

// Read blocks until data is available or the producer has finished.
//
// The done flag is sampled before the file read: when the sample is
// true every producer write happened before it, so a zero-byte read
// really is end of stream. Sampling after the read would let bytes
// flushed between the read and the sample vanish.
func (j *job) Read(p []byte) (int, error) {
	for {
		finished := j.done.Load()
		n, err := j.file.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		if finished {
			return 0, io.EOF
		}
		<-j.wake
	}
}

// wakeup nudges the consumer after the producer wrote more data.
// Non-blocking; a full slot means a wakeup is already pending.
func (j *job) wakeup() {
	select {
	case j.wake <- struct{}{}:
	default:
	}
}

// finish marks the producer done and delivers the final wakeup. The
// store must precede the send so the woken consumer observes the flag.
func (j *job) finish() {
	j.done.Store(true)
	j.wakeup()
}

func (j *job) close() error {
	return j.file.Close()
}
