package tesseract

import "fmt"

// Pix is a Leptonica image. It satisfies engine.Image; only the backend
// that loaded it can recognize it.
type Pix struct {
	bind *bindings
	ptr  uintptr
}

// LoadImage reads an image file into a Pix. Leptonica decodes every
// format it was built with, typically PNG, JPEG, TIFF and BMP.
func (c *Client) LoadImage(path string) (*Pix, error) {
	p := c.bind.PixRead(path)
	if p == 0 {
		return nil, fmt.Errorf("tesseract: read image %s", path)
	}
	return &Pix{bind: c.bind, ptr: p}, nil
}

// LoadImageMem decodes an in-memory encoded image into a Pix.
func (c *Client) LoadImageMem(data []byte) (*Pix, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("tesseract: decode image: empty data")
	}
	p := c.bind.PixReadMem(&data[0], uint(len(data)))
	if p == 0 {
		return nil, fmt.Errorf("tesseract: decode image from memory")
	}
	return &Pix{bind: c.bind, ptr: p}, nil
}

// Width returns the image width in pixels.
func (p *Pix) Width() int { return int(p.bind.PixGetWidth(p.ptr)) }

// Height returns the image height in pixels.
func (p *Pix) Height() int { return int(p.bind.PixGetHeight(p.ptr)) }

// Resolution returns the horizontal resolution in pixels per inch, zero
// when the source encoding carried none.
func (p *Pix) Resolution() int { return int(p.bind.PixGetXRes(p.ptr)) }

// Close frees the image. Safe to call more than once; pixDestroy nils
// the handle.
func (p *Pix) Close() error {
	if p.ptr != 0 {
		p.bind.PixDestroy(&p.ptr)
	}
	return nil
}
