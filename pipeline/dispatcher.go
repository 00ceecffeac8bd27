package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wudi/tesskit/engine"
	"github.com/wudi/tesskit/latin1"
	"github.com/wudi/tesskit/observability"
)

// PageSeparator is the marker the engine emits between pages in the
// text-shaped output formats. Line dispatch always delivers it as its
// own record, never merged with adjacent text.
const PageSeparator = "\f"

type deliverMode int

const (
	modeBytes deliverMode = iota
	modeText
	modeWriter
	modeFile
	modeLines
)

// dispatcher drains one job and delivers its bytes according to the
// mode fixed at registration. It always runs to end of stream, even
// after a sink failure, so teardown never waits on an undrained file.
type dispatcher struct {
	mode   deliverMode
	job    *job
	format engine.Format
	log    observability.Logger

	bytesCell *Output[[]byte]
	textCell  *Output[string]
	sink      io.Writer
	path      string
	lineFn    func(string) error

	acc     bytes.Buffer
	carry   []byte
	file    *os.File
	sinkErr error
}

func (d *dispatcher) run() error {
	var src io.Reader = d.job
	if d.format.Latin1() && d.mode != modeBytes {
		src = latin1.NewReader(d.job)
	}
	if d.mode == modeFile {
		f, err := os.Create(d.path)
		if err != nil {
			d.fail(fmt.Errorf("create output file: %w", err))
		} else {
			d.file = f
		}
	}

	for {
		n, err := src.Read(d.job.buf)
		if n > 0 {
			d.deliver(d.job.buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			d.fail(fmt.Errorf("read %s stream: %w", d.format, err))
			break
		}
	}

	d.finish()
	if err := d.job.close(); err != nil {
		d.log.Debug("close job file",
			observability.String("path", d.job.path),
			observability.Error("err", err))
	}
	return d.sinkErr
}

// fail records the first sink error. Later failures are casualties of
// the first one and add no information.
func (d *dispatcher) fail(err error) {
	if d.sinkErr != nil {
		return
	}
	d.sinkErr = err
	d.log.Error("output delivery failed",
		observability.String("format", d.format.String()),
		observability.Error("err", err))
}

func (d *dispatcher) deliver(p []byte) {
	switch d.mode {
	case modeBytes, modeText:
		d.acc.Write(p)
	case modeWriter:
		if d.sinkErr == nil {
			if _, err := d.sink.Write(p); err != nil {
				d.fail(fmt.Errorf("write %s output: %w", d.format, err))
			}
		}
	case modeFile:
		if d.sinkErr == nil && d.file != nil {
			if _, err := d.file.Write(p); err != nil {
				d.fail(fmt.Errorf("write %s: %w", d.path, err))
			}
		}
	case modeLines:
		d.scanLines(p)
	}
}

// finish flushes mode state after end of stream: cells are stored, the
// carried partial line is emitted, file sinks are closed.
func (d *dispatcher) finish() {
	switch d.mode {
	case modeBytes:
		d.bytesCell.store(d.acc.Bytes())
	case modeText:
		d.textCell.store(d.acc.String())
	case modeFile:
		if d.file != nil {
			if err := d.file.Close(); err != nil {
				d.fail(fmt.Errorf("close %s: %w", d.path, err))
			}
		}
	case modeLines:
		if len(d.carry) > 0 {
			line := string(d.carry)
			d.carry = nil
			d.emitLine(line)
		}
	}
}

// scanLines splits the incoming chunk at newlines, carrying a partial
// line across reads. Records are emitted in stream order.
func (d *dispatcher) scanLines(p []byte) {
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			d.carry = append(d.carry, p...)
			return
		}
		line := string(p[:i])
		if len(d.carry) > 0 {
			line = string(d.carry) + line
			d.carry = d.carry[:0]
		}
		p = p[i+1:]
		d.emitLine(line)
	}
}

// emitLine delivers one complete line, isolating the page separator
// wherever it appears so it is always a record of its own. An empty
// line is a record; the empty remainder after a trailing separator is
// not.
func (d *dispatcher) emitLine(line string) {
	if line == "" {
		d.emit("")
		return
	}
	sawSep := false
	for {
		i := strings.Index(line, PageSeparator)
		if i < 0 {
			break
		}
		sawSep = true
		if i > 0 {
			d.emit(line[:i])
		}
		d.emit(PageSeparator)
		line = line[i+len(PageSeparator):]
	}
	if line != "" || !sawSep {
		d.emit(line)
	}
}

func (d *dispatcher) emit(line string) {
	if d.sinkErr != nil {
		return
	}
	if err := d.lineFn(line); err != nil {
		d.fail(fmt.Errorf("line callback: %w", err))
	}
}
