package engine

// Package engine defines the contract between the streaming pipeline and an
// OCR engine backend. The interfaces are intentionally small: a backend only
// has to construct result renderers, chain them, and recognize-and-render one
// page at a time. The production backend in engine/tesseract binds the native
// libtesseract/libleptonica libraries; engine/gosseract drives the cgo-based
// gosseract client; engine/enginetest provides an in-memory fake for tests.
