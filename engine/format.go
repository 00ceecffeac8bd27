package engine

import "fmt"

// Format identifies one renderer output encoding.
type Format int

const (
	// Text is plain UTF-8 page text with form-feed page separators.
	Text Format = iota
	// HOCR is the hOCR XHTML layout format.
	HOCR
	// TSV is tab-separated word/box/confidence records.
	TSV
	// ALTO is the ALTO XML layout format.
	ALTO
	// UNLV is the legacy ISRI UNLV text format, emitted in Latin-1.
	UNLV
	// WordBox is the word-level box training format.
	WordBox
	// LSTMBox is the LSTM character box training format.
	LSTMBox
	// PDF is a searchable PDF with an invisible text layer.
	PDF
)

var formatNames = map[Format]string{
	Text:    "text",
	HOCR:    "hocr",
	TSV:     "tsv",
	ALTO:    "alto",
	UNLV:    "unlv",
	WordBox: "wordbox",
	LSTMBox: "lstmbox",
	PDF:     "pdf",
}

var formatExts = map[Format]string{
	Text:    ".txt",
	HOCR:    ".hocr",
	TSV:     ".tsv",
	ALTO:    ".xml",
	UNLV:    ".unlv",
	WordBox: ".box",
	LSTMBox: ".box",
	PDF:     ".pdf",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Ext returns the file extension the engine appends to a renderer's output
// base path.
func (f Format) Ext() string {
	return formatExts[f]
}

// Latin1 reports whether the engine emits this format in ISO-8859-1 rather
// than UTF-8.
func (f Format) Latin1() bool {
	return f == UNLV
}

// Binary reports whether the format carries non-textual data. Binary formats
// are only meaningful as whole files or byte buffers, never as lines.
func (f Format) Binary() bool {
	return f == PDF
}

// Formats lists every supported output format in declaration order.
func Formats() []Format {
	return []Format{Text, HOCR, TSV, ALTO, UNLV, WordBox, LSTMBox, PDF}
}

// ParseFormat maps a format name (as printed by String) back to its Format.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown output format %q", name)
}
