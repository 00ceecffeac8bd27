package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/tesskit/engine"
	"github.com/wudi/tesskit/observability"
)

var (
	// ErrAborted is returned by Run when the driver stopped the page loop
	// early. Outputs still hold everything rendered before the stop.
	ErrAborted = errors.New("pipeline: run aborted by driver")
	// ErrRunning reports configuration or Close while Run is in flight.
	ErrRunning = errors.New("pipeline: run in progress")
	// ErrClosed reports use of a pipeline that already ran or was closed.
	ErrClosed = errors.New("pipeline: closed")
)

type pipelineState int

const (
	stateConfiguring pipelineState = iota
	stateRunning
	stateClosed
)

// AddPage feeds one page into the run. It reports false when the run
// accepts no further pages: a native failure, a cancelled context, or an
// earlier refusal.
type AddPage func(img engine.Image, dpi int) bool

// Driver produces the pages of one run by calling add zero or more
// times, synchronously. Returning false aborts the remaining pages; it
// is the caller's early-termination signal, not a failure.
type Driver func(add AddPage) bool

// Pipeline coordinates one OCR run across any number of pages and
// registered output formats. Configure outputs first, then call Run
// once. A Pipeline is not safe for concurrent use.
type Pipeline struct {
	eng   engine.Engine
	log   observability.Logger
	title string
	dir   string

	mu      sync.Mutex
	state   pipelineState
	handles []*rendererHandle
	jobs    []*job
	group   errgroup.Group

	closeOnce sync.Once
	waitErr   error
}

// New returns a pipeline writing its intermediate files into a fresh
// temporary directory. The directory is removed at teardown whether the
// run succeeded, failed, or never happened.
func New(eng engine.Engine, opts ...Option) (*Pipeline, error) {
	if eng == nil {
		return nil, errors.New("pipeline: nil engine")
	}
	cfg := pipelineOptions{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	dir, err := os.MkdirTemp(cfg.tempParent, "tesskit-run-")
	if err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	return &Pipeline{eng: eng, log: cfg.log, title: cfg.title, dir: dir}, nil
}

// register wires one output: the job file first, then the renderer
// (chained after the current head), then the consumer goroutine. The
// consumer starts before the producer can write a single byte.
func (p *Pipeline) register(f engine.Format, opts []OutputOption, bind func(*dispatcher)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case stateRunning:
		return ErrRunning
	case stateClosed:
		return ErrClosed
	}

	var cfg outputOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	base := filepath.Join(p.dir, fmt.Sprintf("%02d-out", len(p.jobs)))
	j, err := newJob(base + f.Ext())
	if err != nil {
		return err
	}
	h, err := newRendererHandle(p.eng, f, base, cfg.renderer, p.log)
	if err != nil {
		j.close()
		return err
	}
	if len(p.handles) > 0 {
		if err := p.handles[0].chain(h); err != nil {
			h.release()
			j.close()
			return err
		}
	}
	p.handles = append(p.handles, h)
	p.jobs = append(p.jobs, j)

	d := &dispatcher{job: j, format: f, log: p.log}
	bind(d)
	p.group.Go(d.run)

	p.log.Debug("output registered",
		observability.String("format", f.String()),
		observability.String("path", j.path))
	return nil
}

// Capture registers an output accumulated in memory and returns its
// result cell, populated with the raw rendered bytes once the run
// completes. Latin-1 formats are not transcoded in this shape.
func (p *Pipeline) Capture(f engine.Format, opts ...OutputOption) (*Output[[]byte], error) {
	cell := &Output[[]byte]{}
	err := p.register(f, opts, func(d *dispatcher) {
		d.mode = modeBytes
		d.bytesCell = cell
	})
	if err != nil {
		return nil, err
	}
	return cell, nil
}

// CaptureText is Capture for string results. Formats the engine emits
// in Latin-1 arrive transcoded to UTF-8.
func (p *Pipeline) CaptureText(f engine.Format, opts ...OutputOption) (*Output[string], error) {
	cell := &Output[string]{}
	err := p.register(f, opts, func(d *dispatcher) {
		d.mode = modeText
		d.textCell = cell
	})
	if err != nil {
		return nil, err
	}
	return cell, nil
}

// WriteFile streams the output into path. The pipeline creates, writes
// and closes the file; sink failures are reported by Run after the
// stream has drained.
func (p *Pipeline) WriteFile(f engine.Format, path string, opts ...OutputOption) error {
	return p.register(f, opts, func(d *dispatcher) {
		d.mode = modeFile
		d.path = path
	})
}

// Pipe streams the output into w as pages are rendered.
func (p *Pipeline) Pipe(f engine.Format, w io.Writer, opts ...OutputOption) error {
	return p.register(f, opts, func(d *dispatcher) {
		d.mode = modeWriter
		d.sink = w
	})
}

// Lines invokes fn for every record of the output, in stream order,
// while the run is still producing. The page separator arrives as a
// record of its own. A non-nil error from fn stops further deliveries
// and is reported by Run; the stream still drains.
func (p *Pipeline) Lines(f engine.Format, fn func(line string) error, opts ...OutputOption) error {
	return p.register(f, opts, func(d *dispatcher) {
		d.mode = modeLines
		d.lineFn = fn
	})
}

// Run drives one recognition pass. The driver's add feeds one page per
// call; the driver returning false aborts the remaining pages and Run
// reports ErrAborted after a normal teardown.
//
// Result precedence: a native recognition or document error, then the
// context's error, then the first delivery failure, then ErrAborted.
// Run consumes the pipeline; teardown happens exactly once even if the
// driver panics.
func (p *Pipeline) Run(ctx context.Context, drive Driver) error {
	p.mu.Lock()
	switch p.state {
	case stateRunning:
		p.mu.Unlock()
		return ErrRunning
	case stateClosed:
		p.mu.Unlock()
		return ErrClosed
	}
	p.state = stateRunning
	var head *rendererHandle
	if len(p.handles) > 0 {
		head = p.handles[0]
	}
	p.mu.Unlock()

	defer p.teardown()

	var nativeErr error
	aborted := false

	if head != nil {
		nativeErr = head.beginDocument(p.title)
	}
	if nativeErr == nil {
		var chain engine.Renderer
		if head != nil {
			chain = head.raw
		}
		pages := 0
		stopped := false
		add := func(img engine.Image, dpi int) bool {
			if stopped {
				return false
			}
			if ctx.Err() != nil {
				stopped = true
				return false
			}
			if err := p.eng.RecognizeAndRender(img, dpi, chain); err != nil {
				nativeErr = fmt.Errorf("render page %d: %w", pages+1, err)
				stopped = true
				return false
			}
			pages++
			for _, j := range p.jobs {
				j.wakeup()
			}
			return true
		}
		if !drive(add) {
			aborted = true
		}
		p.log.Debug("page loop finished",
			observability.Int("pages", pages),
			observability.Bool("aborted", aborted))
		if head != nil {
			if err := head.endDocument(); err != nil && nativeErr == nil {
				nativeErr = err
			}
		}
	}

	waitErr := p.teardown()

	switch {
	case nativeErr != nil:
		return nativeErr
	case ctx.Err() != nil:
		return fmt.Errorf("pipeline: %w", ctx.Err())
	case waitErr != nil:
		return waitErr
	case aborted:
		return ErrAborted
	}
	return nil
}

// teardown releases the renderer chain first so the native side flushes
// and closes its write handles, then finishes every job and waits for
// the consumers to drain what landed. Only then is the working
// directory removed.
func (p *Pipeline) teardown() error {
	p.closeOnce.Do(func() {
		for _, h := range p.handles {
			h.release()
		}
		for _, j := range p.jobs {
			j.finish()
		}
		p.waitErr = p.group.Wait()
		if err := os.RemoveAll(p.dir); err != nil {
			p.log.Warn("remove working directory",
				observability.String("dir", p.dir),
				observability.Error("err", err))
		}
		p.mu.Lock()
		p.state = stateClosed
		p.mu.Unlock()
	})
	return p.waitErr
}

// Close tears down a pipeline that never ran: renderers released,
// consumers drained against the empty files, working directory removed.
// After Run it does nothing.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.state == stateRunning {
		p.mu.Unlock()
		return ErrRunning
	}
	closed := p.state == stateClosed
	p.mu.Unlock()
	if closed {
		return nil
	}
	return p.teardown()
}
