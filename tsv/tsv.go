// Package tsv parses the tab-separated output format produced by the
// OCR engine's TSV renderer.
package tsv

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrFieldCount reports a line whose tab-separated field count is not
// the fixed column count of the format.
var ErrFieldCount = errors.New("tsv: wrong field count")

const fieldCount = 12

var columns = [fieldCount]string{
	"level", "page_num", "block_num", "par_num", "line_num", "word_num",
	"left", "top", "width", "height", "conf", "text",
}

// Record is one parsed data line. Level identifies the layout element:
// 1 page, 2 block, 3 paragraph, 4 line, 5 word. Conf is -1 for levels
// above word.
type Record struct {
	Level     int
	Page      int
	Block     int
	Paragraph int
	Line      int
	Word      int
	Left      int
	Top       int
	Width     int
	Height    int
	Conf      float64
	Text      string
}

// ParseLine parses a single data line. The line must contain exactly
// twelve tab-separated fields; anything else fails with an error
// wrapping ErrFieldCount. A malformed line affects only itself.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("%w: %d fields in %q", ErrFieldCount, len(fields), line)
	}
	var (
		rec Record
		err error
	)
	for i, dst := range []*int{
		&rec.Level, &rec.Page, &rec.Block, &rec.Paragraph, &rec.Line, &rec.Word,
		&rec.Left, &rec.Top, &rec.Width, &rec.Height,
	} {
		if *dst, err = strconv.Atoi(fields[i]); err != nil {
			return Record{}, fmt.Errorf("tsv: parse %s in %q: %w", columns[i], line, err)
		}
	}
	if rec.Conf, err = strconv.ParseFloat(fields[10], 64); err != nil {
		return Record{}, fmt.Errorf("tsv: parse conf in %q: %w", line, err)
	}
	rec.Text = fields[11]
	return rec, nil
}

// IsHeader reports whether line is the column header the engine emits
// before the first data row.
func IsHeader(line string) bool {
	return strings.HasPrefix(line, "level\t")
}

// Records adapts a per-record handler into a line callback suitable for
// streaming TSV output. Header rows, page separator records and empty
// lines are dropped. A malformed data line is delivered to handler as a
// zero Record with the parse error, and the stream continues; a non-nil
// error returned by handler stops delivery and is reported by the run.
func Records(handler func(rec Record, err error) error) func(line string) error {
	return func(line string) error {
		if line == "" || line == "\f" || IsHeader(line) {
			return nil
		}
		return handler(ParseLine(line))
	}
}
