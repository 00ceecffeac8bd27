package tessdata

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const dataSuffix = ".traineddata"

// Cache is a directory of language data files, one <lang>.traineddata
// per language.
type Cache struct {
	dir string
}

// NewCache opens (creating if needed) the cache directory.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// DefaultDir returns the per-user cache location.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache directory: %w", err)
	}
	return filepath.Join(base, "tesskit", "tessdata"), nil
}

func (c *Cache) Dir() string { return c.dir }

// Path returns where lang's data file lives, whether or not it exists.
func (c *Cache) Path(lang string) string {
	return filepath.Join(c.dir, lang+dataSuffix)
}

func (c *Cache) Has(lang string) bool {
	info, err := os.Stat(c.Path(lang))
	return err == nil && info.Mode().IsRegular()
}

// Languages lists the cached languages, sorted.
func (c *Cache) Languages() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache directory: %w", err)
	}
	var langs []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), dataSuffix) {
			langs = append(langs, strings.TrimSuffix(e.Name(), dataSuffix))
		}
	}
	sort.Strings(langs)
	return langs, nil
}

func (c *Cache) Remove(lang string) error {
	if err := os.Remove(c.Path(lang)); err != nil {
		return fmt.Errorf("remove %s: %w", lang, err)
	}
	return nil
}

// Verify reports whether lang's cached file hashes to sha.
func (c *Cache) Verify(lang, sha string) (bool, error) {
	got, err := blobSHA(c.Path(lang))
	if err != nil {
		return false, err
	}
	return got == sha, nil
}

// blobSHA computes the git blob hash of a file, the identity the
// upstream data repository publishes for its contents.
func blobSHA(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", info.Size())
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
