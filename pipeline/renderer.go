package pipeline

import (
	"errors"
	"fmt"

	"github.com/wudi/tesskit/engine"
	"github.com/wudi/tesskit/observability"
)

var (
	// ErrReleased reports an operation on a renderer handle whose native
	// resource is already freed.
	ErrReleased = errors.New("pipeline: renderer already released")
	// ErrNotOwner reports chaining a renderer that is already owned by
	// another chain.
	ErrNotOwner = errors.New("pipeline: renderer already chained")
)

// rendererHandle pairs a native renderer with ownership state. A handle
// owns its renderer exclusively until it is chained after another one;
// from then on the chain head's destroy frees the whole chain and this
// handle degrades to a non-owning reference.
type rendererHandle struct {
	raw      engine.Renderer
	format   engine.Format
	owner    bool
	released bool
	log      observability.Logger
}

func newRendererHandle(eng engine.Engine, f engine.Format, outputBase string, opts engine.RendererOptions, log observability.Logger) (*rendererHandle, error) {
	raw, err := eng.NewRenderer(f, outputBase, opts)
	if err != nil {
		return nil, fmt.Errorf("create %s renderer: %w", f, err)
	}
	return &rendererHandle{raw: raw, format: f, owner: true, log: log}, nil
}

// chain appends next after the last renderer of h's chain and transfers
// ownership of next to the chain. Both chains are left untouched on
// failure.
func (h *rendererHandle) chain(next *rendererHandle) error {
	if h.released || next.released {
		h.log.Error("chain renderer",
			observability.String("head", h.format.String()),
			observability.String("next", next.format.String()),
			observability.Error("err", ErrReleased))
		return ErrReleased
	}
	if !next.owner {
		h.log.Error("chain renderer",
			observability.String("head", h.format.String()),
			observability.String("next", next.format.String()),
			observability.Error("err", ErrNotOwner))
		return ErrNotOwner
	}
	if err := h.raw.Insert(next.raw); err != nil {
		return fmt.Errorf("chain %s after %s: %w", next.format, h.format, err)
	}
	next.owner = false
	return nil
}

// release frees the native renderer if this handle still owns it.
// Destroying the chain head cascades to every chained renderer, so
// non-owning handles only mark themselves released. Idempotent.
func (h *rendererHandle) release() {
	if h.released {
		return
	}
	h.released = true
	if !h.owner {
		return
	}
	h.raw.Destroy()
}

func (h *rendererHandle) beginDocument(title string) error {
	if h.released {
		h.log.Error("begin document on released renderer",
			observability.String("format", h.format.String()))
		return ErrReleased
	}
	if err := h.raw.BeginDocument(title); err != nil {
		return fmt.Errorf("begin document: %w", err)
	}
	return nil
}

func (h *rendererHandle) endDocument() error {
	if h.released {
		h.log.Error("end document on released renderer",
			observability.String("format", h.format.String()))
		return ErrReleased
	}
	if err := h.raw.EndDocument(); err != nil {
		return fmt.Errorf("end document: %w", err)
	}
	return nil
}
