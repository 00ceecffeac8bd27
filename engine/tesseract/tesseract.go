// Package tesseract drives libtesseract and libleptonica directly through
// runtime-loaded shared libraries, with no cgo involved. It implements
// engine.Engine for the streaming pipeline and exposes a one-shot client
// surface for single-image recognition.
package tesseract

import (
	"fmt"
	"io"
	"strings"

	"github.com/wudi/tesskit/latin1"
	"github.com/wudi/tesskit/observability"
)

// PageSegMode selects how tesseract segments the page before recognition.
type PageSegMode int32

const (
	PSMOSDOnly PageSegMode = iota
	PSMAutoOSD
	PSMAutoOnly
	PSMAuto
	PSMSingleColumn
	PSMSingleBlockVertText
	PSMSingleBlock
	PSMSingleLine
	PSMSingleWord
	PSMCircleWord
	PSMSingleChar
	PSMSparseText
	PSMSparseTextOSD
	PSMRawLine
)

// Client wraps one TessBaseAPI instance. A Client is not safe for
// concurrent use; the one-shot getters all operate on the image set by
// the last SetImage call.
type Client struct {
	bind *bindings
	api  uintptr
	log  observability.Logger

	language string
	dataDir  string
	tessLib  string
	leptLib  string
	psm      *PageSegMode
	vars     [][2]string

	closed bool
}

// Option configures a Client before initialization.
type Option func(*Client)

// WithLanguages selects the recognition languages; several are combined
// into one model stack.
func WithLanguages(langs ...string) Option {
	return func(c *Client) { c.language = strings.Join(langs, "+") }
}

// WithDataDir points at the directory holding .traineddata files. Empty
// uses TESSDATA_PREFIX or the library's compiled-in default.
func WithDataDir(dir string) Option {
	return func(c *Client) { c.dataDir = dir }
}

// WithLogger routes client diagnostics to log.
func WithLogger(log observability.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTesseractLib overrides libtesseract discovery with an explicit
// path. The first client to load libraries fixes them for the process.
func WithTesseractLib(path string) Option {
	return func(c *Client) { c.tessLib = path }
}

// WithLeptonicaLib overrides libleptonica discovery with an explicit path.
func WithLeptonicaLib(path string) Option {
	return func(c *Client) { c.leptLib = path }
}

// WithPageSegMode sets the page segmentation mode after initialization.
func WithPageSegMode(m PageSegMode) Option {
	return func(c *Client) { c.psm = &m }
}

// WithVariable sets a tesseract variable after initialization.
func WithVariable(name, value string) Option {
	return func(c *Client) { c.vars = append(c.vars, [2]string{name, value}) }
}

// NewClient loads the native libraries (once per process) and initializes
// a TessBaseAPI instance for the configured languages.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		language: "eng",
		log:      observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}

	bind, err := loadBindings(c.tessLib, c.leptLib)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	c.bind = bind

	c.api = bind.Create()
	if c.api == 0 {
		return nil, fmt.Errorf("tesseract: create api instance")
	}
	if bind.Init3(c.api, c.dataDir, c.language) != 0 {
		bind.Delete(c.api)
		return nil, fmt.Errorf("tesseract: initialize for language %q", c.language)
	}

	if c.psm != nil {
		bind.SetPageSegMode(c.api, int32(*c.psm))
	}
	for _, v := range c.vars {
		if err := c.SetVariable(v[0], v[1]); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.log.Debug("tesseract client initialized",
		observability.String("version", bind.Version()),
		observability.String("language", c.language))
	return c, nil
}

// Version reports the loaded libtesseract version.
func (c *Client) Version() string { return c.bind.Version() }

// SetLanguage reinitializes the instance for different languages. All
// variables and the page segmentation mode reset to their defaults.
func (c *Client) SetLanguage(langs ...string) error {
	language := strings.Join(langs, "+")
	if c.bind.Init3(c.api, c.dataDir, language) != 0 {
		return fmt.Errorf("tesseract: initialize for language %q", language)
	}
	c.language = language
	return nil
}

// SetImage selects the page image for the one-shot getters. The client
// keeps its own reference; closing img afterwards is safe.
func (c *Client) SetImage(img *Pix) error {
	if img == nil || img.ptr == 0 {
		return fmt.Errorf("tesseract: set image: image is closed")
	}
	c.bind.SetImage2(c.api, img.ptr)
	return nil
}

// SetSourceResolution declares the image resolution in pixels per inch,
// for images whose encoding carries none.
func (c *Client) SetSourceResolution(ppi int) {
	c.bind.SetSourceResolution(c.api, int32(ppi))
}

// SetPageSegMode changes how subsequent recognitions segment the page.
func (c *Client) SetPageSegMode(m PageSegMode) {
	c.bind.SetPageSegMode(c.api, int32(m))
}

// PageSegMode reports the current page segmentation mode.
func (c *Client) PageSegMode() PageSegMode {
	return PageSegMode(c.bind.GetPageSegMode(c.api))
}

// SetVariable sets a tesseract control variable by name.
func (c *Client) SetVariable(name, value string) error {
	if c.bind.SetVariable(c.api, name, value) == 0 {
		return fmt.Errorf("tesseract: set variable %s", name)
	}
	return nil
}

// IntVariable reads an integer variable; ok is false when the name is
// unknown or of another type.
func (c *Client) IntVariable(name string) (value int, ok bool) {
	var v int32
	if c.bind.GetIntVariable(c.api, name, &v) == 0 {
		return 0, false
	}
	return int(v), true
}

// BoolVariable reads a boolean variable.
func (c *Client) BoolVariable(name string) (value, ok bool) {
	var v int32
	if c.bind.GetBoolVariable(c.api, name, &v) == 0 {
		return false, false
	}
	return v != 0, true
}

// FloatVariable reads a floating point variable.
func (c *Client) FloatVariable(name string) (value float64, ok bool) {
	var v float64
	if c.bind.GetDoubleVariable(c.api, name, &v) == 0 {
		return 0, false
	}
	return v, true
}

// StringVariable reads a string variable.
func (c *Client) StringVariable(name string) (value string, ok bool) {
	p := c.bind.GetStringVariable(c.api, name)
	if p == 0 {
		return "", false
	}
	return cString(p), true
}

// take copies and frees a text buffer returned by the native side.
func (c *Client) take(p uintptr, what string) (string, error) {
	if p == 0 {
		return "", fmt.Errorf("tesseract: %s", what)
	}
	defer c.bind.DeleteText(p)
	return cString(p), nil
}

// Text recognizes the current image and returns its plain UTF-8 text.
func (c *Client) Text() (string, error) {
	return c.take(c.bind.GetUTF8Text(c.api), "recognize text")
}

// HOCRText returns the current image's hOCR rendition.
func (c *Client) HOCRText() (string, error) {
	return c.take(c.bind.GetHOCRText(c.api, 0), "recognize hocr")
}

// AltoText returns the current image's ALTO XML rendition.
func (c *Client) AltoText() (string, error) {
	return c.take(c.bind.GetAltoText(c.api, 0), "recognize alto")
}

// TSVText returns the current image's TSV records, header included.
func (c *Client) TSVText() (string, error) {
	return c.take(c.bind.GetTsvText(c.api, 0), "recognize tsv")
}

// UNLVText returns the current image's UNLV rendition transcoded to
// UTF-8. The native output is ISO-8859-1.
func (c *Client) UNLVText() (string, error) {
	raw, err := c.take(c.bind.GetUNLVText(c.api), "recognize unlv")
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(latin1.NewReader(strings.NewReader(raw)))
	if err != nil {
		return "", fmt.Errorf("tesseract: transcode unlv: %w", err)
	}
	return string(out), nil
}

// BoxText returns character boxes in the box training format.
func (c *Client) BoxText() (string, error) {
	return c.take(c.bind.GetBoxText(c.api, 0), "recognize boxes")
}

// LSTMBoxText returns boxes in the LSTM training format.
func (c *Client) LSTMBoxText() (string, error) {
	return c.take(c.bind.GetLSTMBoxText(c.api, 0), "recognize lstm boxes")
}

// WordStrBoxText returns per-line word boxes in the WordStr format.
func (c *Client) WordStrBoxText() (string, error) {
	return c.take(c.bind.GetWordStrBoxText(c.api, 0), "recognize word boxes")
}

// MeanConfidence reports the mean word confidence of the last
// recognition, 0 to 100.
func (c *Client) MeanConfidence() int {
	return int(c.bind.MeanTextConf(c.api))
}

// Clear frees the recognition results and image, keeping the instance
// initialized.
func (c *Client) Clear() {
	c.bind.Clear(c.api)
}

// Close releases the native instance. Further use of the client is
// invalid.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.bind.End(c.api)
	c.bind.Delete(c.api)
	c.api = 0
	return nil
}
