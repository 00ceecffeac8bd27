package pipeline

// Package pipeline orchestrates one OCR run that produces several output
// formats concurrently. The caller registers outputs on a Pipeline (an
// in-memory cell, a file, an io.Writer, or a per-line callback), then drives
// pages through Run. Each registered output owns a native result renderer
// chained after the previous one, a temp file the renderer writes into, and a
// consumer goroutine that streams the file's bytes to the caller's sink while
// recognition is still running. Teardown is unconditional: renderers are
// released, consumers drained, and the temp directory removed whether the run
// completed, failed, or was aborted by the driver.
