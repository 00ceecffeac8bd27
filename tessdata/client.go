// Package tessdata maintains a local cache of Tesseract language data
// files, downloaded from the upstream data repository and verified
// against the git blob hashes its index publishes.
package tessdata

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/wudi/tesskit/observability"
)

var (
	// ErrChecksum reports downloaded or cached content that does not
	// hash to the index's published identity.
	ErrChecksum = errors.New("tessdata: checksum mismatch")
	// ErrUnknownLang reports a language the upstream index does not
	// offer.
	ErrUnknownLang = errors.New("tessdata: language not in index")
)

const (
	// DefaultRepo carries the best-quality upstream models.
	DefaultRepo   = "tesseract-ocr/tessdata_best"
	DefaultBranch = "main"

	defaultBaseURL     = "https://api.github.com"
	defaultIndexMaxAge = 24 * time.Hour
)

// Progress observes one download. total is the index's published size.
type Progress func(lang string, received, total int64)

// Client fetches the upstream index and language files into a Cache.
type Client struct {
	cache    *Cache
	repo     string
	branch   string
	baseURL  string
	http     *http.Client
	log      observability.Logger
	maxAge   time.Duration
	progress Progress

	idx *Index
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRepo selects the upstream repository, "owner/name".
func WithRepo(repo string) ClientOption {
	return func(c *Client) { c.repo = repo }
}

// WithBranch selects the upstream branch.
func WithBranch(branch string) ClientOption {
	return func(c *Client) { c.branch = branch }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient supplies the HTTP client used for all requests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger routes client diagnostics to log.
func WithLogger(log observability.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithIndexMaxAge bounds how old an index snapshot may be before it is
// refreshed from upstream.
func WithIndexMaxAge(d time.Duration) ClientOption {
	return func(c *Client) { c.maxAge = d }
}

// WithProgress reports download progress to fn.
func WithProgress(fn Progress) ClientOption {
	return func(c *Client) { c.progress = fn }
}

func NewClient(cache *Cache, opts ...ClientOption) *Client {
	c := &Client{
		cache:   cache,
		repo:    DefaultRepo,
		branch:  DefaultBranch,
		baseURL: defaultBaseURL,
		http:    http.DefaultClient,
		log:     observability.NopLogger{},
		maxAge:  defaultIndexMaxAge,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Cache() *Cache { return c.cache }

// Index returns the current file listing, refreshing from upstream when
// the in-memory and on-disk snapshots are older than the max age. When
// upstream is unreachable a stale snapshot is still served.
func (c *Client) Index(ctx context.Context) (*Index, error) {
	if c.idx != nil && time.Since(c.idx.FetchedAt) < c.maxAge {
		return c.idx, nil
	}
	if ix, err := c.loadSnapshot(); err == nil && time.Since(ix.FetchedAt) < c.maxAge {
		c.idx = ix
		return ix, nil
	}

	ix, err := c.fetchIndex(ctx)
	if err != nil {
		if stale := c.staleFallback(); stale != nil {
			c.log.Warn("serving stale language index",
				observability.String("repo", c.repo),
				observability.Error("err", err))
			return stale, nil
		}
		return nil, err
	}
	if serr := c.saveSnapshot(ix); serr != nil {
		c.log.Warn("persist language index", observability.Error("err", serr))
	}
	c.idx = ix
	c.log.Debug("language index refreshed",
		observability.String("repo", c.repo),
		observability.Int("languages", len(ix.files)))
	return ix, nil
}

func (c *Client) staleFallback() *Index {
	if c.idx != nil {
		return c.idx
	}
	if ix, err := c.loadSnapshot(); err == nil {
		c.idx = ix
		return ix
	}
	return nil
}

// Download fetches lang unconditionally, verifies it against the
// index's blob hash and moves it into the cache atomically.
func (c *Client) Download(ctx context.Context, lang string) error {
	ix, err := c.Index(ctx)
	if err != nil {
		return err
	}
	entry, ok := ix.Lookup(lang)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLang, lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", "tesskit")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", lang, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %s", lang, resp.Status)
	}

	tmp, err := os.CreateTemp(c.cache.Dir(), "."+entry.Name+".part-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", entry.Size)
	var received int64
	buf := make([]byte, 64*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write %s: %w", tmp.Name(), werr)
			}
			received += int64(n)
			if c.progress != nil {
				c.progress(lang, received, entry.Size)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("download %s: %w", lang, rerr)
		}
	}

	if received != entry.Size {
		return fmt.Errorf("%w: %s: got %d bytes, index says %d", ErrChecksum, lang, received, entry.Size)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != entry.SHA {
		return fmt.Errorf("%w: %s: blob %s, index says %s", ErrChecksum, lang, got, entry.SHA)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.cache.Path(lang)); err != nil {
		return fmt.Errorf("install %s: %w", lang, err)
	}
	c.log.Info("language data downloaded",
		observability.String("lang", lang),
		observability.Int64("bytes", received))
	return nil
}

// Stale reports whether lang's cached file is missing or no longer
// matches the index.
func (c *Client) Stale(ctx context.Context, lang string) (bool, error) {
	ix, err := c.Index(ctx)
	if err != nil {
		return false, err
	}
	entry, ok := ix.Lookup(lang)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownLang, lang)
	}
	if !c.cache.Has(lang) {
		return true, nil
	}
	match, err := c.cache.Verify(lang, entry.SHA)
	if err != nil {
		return false, err
	}
	return !match, nil
}

// Ensure downloads lang only when it is missing or stale. It reports
// whether a download happened.
func (c *Client) Ensure(ctx context.Context, lang string) (bool, error) {
	stale, err := c.Stale(ctx, lang)
	if err != nil {
		return false, err
	}
	if !stale {
		return false, nil
	}
	return true, c.Download(ctx, lang)
}

// Update re-downloads every cached language that has gone stale
// against the current index and returns the refreshed ones.
func (c *Client) Update(ctx context.Context) ([]string, error) {
	langs, err := c.cache.Languages()
	if err != nil {
		return nil, err
	}
	var updated []string
	for _, lang := range langs {
		stale, err := c.Stale(ctx, lang)
		if err != nil {
			if errors.Is(err, ErrUnknownLang) {
				c.log.Warn("cached language missing from index",
					observability.String("lang", lang))
				continue
			}
			return updated, err
		}
		if !stale {
			continue
		}
		if err := c.Download(ctx, lang); err != nil {
			return updated, err
		}
		updated = append(updated, lang)
	}
	return updated, nil
}
