package tesseract

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// bindings holds the registered entry points of libtesseract and
// libleptonica. One set is shared by every client in the process; the
// first successful load wins.
type bindings struct {
	Version             func() string
	DeleteText          func(text uintptr)
	Create              func() uintptr
	Delete              func(api uintptr)
	Init3               func(api uintptr, datapath, language string) int32
	End                 func(api uintptr)
	Clear               func(api uintptr)
	SetImage2           func(api, pix uintptr)
	SetSourceResolution func(api uintptr, ppi int32)
	SetPageSegMode      func(api uintptr, mode int32)
	GetPageSegMode      func(api uintptr) int32
	SetVariable         func(api uintptr, name, value string) int32
	GetIntVariable      func(api uintptr, name string, value *int32) int32
	GetBoolVariable     func(api uintptr, name string, value *int32) int32
	GetDoubleVariable   func(api uintptr, name string, value *float64) int32
	GetStringVariable   func(api uintptr, name string) uintptr
	Recognize           func(api, monitor uintptr) int32
	GetUTF8Text         func(api uintptr) uintptr
	GetHOCRText         func(api uintptr, page int32) uintptr
	GetAltoText         func(api uintptr, page int32) uintptr
	GetTsvText          func(api uintptr, page int32) uintptr
	GetUNLVText         func(api uintptr) uintptr
	GetBoxText          func(api uintptr, page int32) uintptr
	GetLSTMBoxText      func(api uintptr, page int32) uintptr
	GetWordStrBoxText   func(api uintptr, page int32) uintptr
	MeanTextConf        func(api uintptr) int32

	TextRendererCreate       func(outputbase string) uintptr
	HOcrRendererCreate2      func(outputbase string, fontInfo int32) uintptr
	AltoRendererCreate       func(outputbase string) uintptr
	TsvRendererCreate        func(outputbase string) uintptr
	UnlvRendererCreate       func(outputbase string) uintptr
	WordStrBoxRendererCreate func(outputbase string) uintptr
	LSTMBoxRendererCreate    func(outputbase string) uintptr
	PDFRendererCreate        func(outputbase, datadir string, textonly int32) uintptr
	DeleteResultRenderer     func(renderer uintptr)
	RendererInsert           func(renderer, next uintptr)
	RendererBeginDocument    func(renderer uintptr, title string) int32
	RendererEndDocument      func(renderer uintptr) int32
	RendererAddImage         func(renderer, api uintptr) int32

	PixRead      func(filename string) uintptr
	PixReadMem   func(data *byte, size uint) uintptr
	PixDestroy   func(pix *uintptr)
	PixGetWidth  func(pix uintptr) int32
	PixGetHeight func(pix uintptr) int32
	PixGetXRes   func(pix uintptr) int32
}

var (
	loadOnce sync.Once
	shared   *bindings
	loadErr  error
)

func loadBindings(tessLib, leptLib string) (*bindings, error) {
	loadOnce.Do(func() {
		shared, loadErr = openBindings(tessLib, leptLib)
	})
	return shared, loadErr
}

func openBindings(tessLib, leptLib string) (*bindings, error) {
	tess, err := dlopen(libCandidates(tessLib, "TESSKIT_TESSERACT_LIB", tesseractSonames()))
	if err != nil {
		return nil, fmt.Errorf("load libtesseract: %w", err)
	}
	lept, err := dlopen(libCandidates(leptLib, "TESSKIT_LEPTONICA_LIB", leptonicaSonames()))
	if err != nil {
		return nil, fmt.Errorf("load libleptonica: %w", err)
	}
	b := &bindings{}
	if err := b.register(tess, lept); err != nil {
		return nil, err
	}
	return b, nil
}

func libCandidates(override, envKey string, defaults []string) []string {
	if override != "" {
		return []string{override}
	}
	if v := os.Getenv(envKey); v != "" {
		return []string{v}
	}
	return defaults
}

func tesseractSonames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"libtesseract.dylib",
			"libtesseract.5.dylib",
			"/opt/homebrew/lib/libtesseract.dylib",
			"/usr/local/lib/libtesseract.dylib",
		}
	default:
		return []string{"libtesseract.so.5", "libtesseract.so.4", "libtesseract.so"}
	}
}

func leptonicaSonames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"libleptonica.dylib",
			"liblept.dylib",
			"/opt/homebrew/lib/libleptonica.dylib",
			"/usr/local/lib/libleptonica.dylib",
		}
	default:
		return []string{"libleptonica.so.6", "liblept.so.5", "libleptonica.so", "liblept.so"}
	}
}

// register resolves every symbol. RegisterLibFunc panics on a missing
// symbol, which happens with libtesseract builds older than 4.1; the
// recover turns that into a load error.
func (b *bindings) register(tess, lept uintptr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bind symbol: %v", r)
		}
	}()

	purego.RegisterLibFunc(&b.Version, tess, "TessVersion")
	purego.RegisterLibFunc(&b.DeleteText, tess, "TessDeleteText")
	purego.RegisterLibFunc(&b.Create, tess, "TessBaseAPICreate")
	purego.RegisterLibFunc(&b.Delete, tess, "TessBaseAPIDelete")
	purego.RegisterLibFunc(&b.Init3, tess, "TessBaseAPIInit3")
	purego.RegisterLibFunc(&b.End, tess, "TessBaseAPIEnd")
	purego.RegisterLibFunc(&b.Clear, tess, "TessBaseAPIClear")
	purego.RegisterLibFunc(&b.SetImage2, tess, "TessBaseAPISetImage2")
	purego.RegisterLibFunc(&b.SetSourceResolution, tess, "TessBaseAPISetSourceResolution")
	purego.RegisterLibFunc(&b.SetPageSegMode, tess, "TessBaseAPISetPageSegMode")
	purego.RegisterLibFunc(&b.GetPageSegMode, tess, "TessBaseAPIGetPageSegMode")
	purego.RegisterLibFunc(&b.SetVariable, tess, "TessBaseAPISetVariable")
	purego.RegisterLibFunc(&b.GetIntVariable, tess, "TessBaseAPIGetIntVariable")
	purego.RegisterLibFunc(&b.GetBoolVariable, tess, "TessBaseAPIGetBoolVariable")
	purego.RegisterLibFunc(&b.GetDoubleVariable, tess, "TessBaseAPIGetDoubleVariable")
	purego.RegisterLibFunc(&b.GetStringVariable, tess, "TessBaseAPIGetStringVariable")
	purego.RegisterLibFunc(&b.Recognize, tess, "TessBaseAPIRecognize")
	purego.RegisterLibFunc(&b.GetUTF8Text, tess, "TessBaseAPIGetUTF8Text")
	purego.RegisterLibFunc(&b.GetHOCRText, tess, "TessBaseAPIGetHOCRText")
	purego.RegisterLibFunc(&b.GetAltoText, tess, "TessBaseAPIGetAltoText")
	purego.RegisterLibFunc(&b.GetTsvText, tess, "TessBaseAPIGetTsvText")
	purego.RegisterLibFunc(&b.GetUNLVText, tess, "TessBaseAPIGetUNLVText")
	purego.RegisterLibFunc(&b.GetBoxText, tess, "TessBaseAPIGetBoxText")
	purego.RegisterLibFunc(&b.GetLSTMBoxText, tess, "TessBaseAPIGetLSTMBoxText")
	purego.RegisterLibFunc(&b.GetWordStrBoxText, tess, "TessBaseAPIGetWordStrBoxText")
	purego.RegisterLibFunc(&b.MeanTextConf, tess, "TessBaseAPIMeanTextConf")

	purego.RegisterLibFunc(&b.TextRendererCreate, tess, "TessTextRendererCreate")
	purego.RegisterLibFunc(&b.HOcrRendererCreate2, tess, "TessHOcrRendererCreate2")
	purego.RegisterLibFunc(&b.AltoRendererCreate, tess, "TessAltoRendererCreate")
	purego.RegisterLibFunc(&b.TsvRendererCreate, tess, "TessTsvRendererCreate")
	purego.RegisterLibFunc(&b.UnlvRendererCreate, tess, "TessUnlvRendererCreate")
	purego.RegisterLibFunc(&b.WordStrBoxRendererCreate, tess, "TessWordStrBoxRendererCreate")
	purego.RegisterLibFunc(&b.LSTMBoxRendererCreate, tess, "TessLSTMBoxRendererCreate")
	purego.RegisterLibFunc(&b.PDFRendererCreate, tess, "TessPDFRendererCreate")
	purego.RegisterLibFunc(&b.DeleteResultRenderer, tess, "TessDeleteResultRenderer")
	purego.RegisterLibFunc(&b.RendererInsert, tess, "TessResultRendererInsert")
	purego.RegisterLibFunc(&b.RendererBeginDocument, tess, "TessResultRendererBeginDocument")
	purego.RegisterLibFunc(&b.RendererEndDocument, tess, "TessResultRendererEndDocument")
	purego.RegisterLibFunc(&b.RendererAddImage, tess, "TessResultRendererAddImage")

	purego.RegisterLibFunc(&b.PixRead, lept, "pixRead")
	purego.RegisterLibFunc(&b.PixReadMem, lept, "pixReadMem")
	purego.RegisterLibFunc(&b.PixDestroy, lept, "pixDestroy")
	purego.RegisterLibFunc(&b.PixGetWidth, lept, "pixGetWidth")
	purego.RegisterLibFunc(&b.PixGetHeight, lept, "pixGetHeight")
	purego.RegisterLibFunc(&b.PixGetXRes, lept, "pixGetXRes")
	return nil
}

// cString copies a NUL-terminated C string into Go memory.
func cString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}
