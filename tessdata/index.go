package tessdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const indexSnapshotName = "index.json"

// File is one language data file as the upstream repository publishes
// it: its git blob hash is the content identity used for verification
// and staleness checks.
type File struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Index is one snapshot of the upstream repository's file listing.
type Index struct {
	FetchedAt time.Time
	files     map[string]File
}

// Lookup finds lang's entry.
func (ix *Index) Lookup(lang string) (File, bool) {
	f, ok := ix.files[lang]
	return f, ok
}

// Languages lists every language the index offers, sorted.
func (ix *Index) Languages() []string {
	langs := make([]string, 0, len(ix.files))
	for lang := range ix.files {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func newIndex(fetchedAt time.Time, files []File) *Index {
	ix := &Index{FetchedAt: fetchedAt, files: make(map[string]File, len(files))}
	for _, f := range files {
		ix.files[f.Lang] = f
	}
	return ix
}

// contentsEntry is the GitHub contents API document shape.
type contentsEntry struct {
	Name        string `json:"name"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

func (c *Client) fetchIndex(ctx context.Context) (*Index, error) {
	url := fmt.Sprintf("%s/repos/%s/contents/?ref=%s", c.baseURL, c.repo, c.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "tesskit")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch index: %s returned %s", c.repo, resp.Status)
	}

	var entries []contentsEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.Type != "file" || !strings.HasSuffix(e.Name, dataSuffix) {
			continue
		}
		files = append(files, File{
			Name: e.Name,
			Lang: strings.TrimSuffix(e.Name, dataSuffix),
			SHA:  e.SHA,
			Size: e.Size,
			URL:  e.DownloadURL,
		})
	}
	return newIndex(time.Now(), files), nil
}

// indexSnapshot is the on-disk form of an Index, tied to the repo and
// branch it was fetched from so a reconfigured client never reuses it.
type indexSnapshot struct {
	FetchedAt time.Time `json:"fetched_at"`
	Repo      string    `json:"repo"`
	Branch    string    `json:"branch"`
	Files     []File    `json:"files"`
}

func (c *Client) snapshotPath() string {
	return filepath.Join(c.cache.Dir(), indexSnapshotName)
}

func (c *Client) loadSnapshot() (*Index, error) {
	data, err := os.ReadFile(c.snapshotPath())
	if err != nil {
		return nil, err
	}
	var snap indexSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode index snapshot: %w", err)
	}
	if snap.Repo != c.repo || snap.Branch != c.branch {
		return nil, fmt.Errorf("index snapshot is for %s@%s", snap.Repo, snap.Branch)
	}
	return newIndex(snap.FetchedAt, snap.Files), nil
}

func (c *Client) saveSnapshot(ix *Index) error {
	snap := indexSnapshot{
		FetchedAt: ix.FetchedAt,
		Repo:      c.repo,
		Branch:    c.branch,
	}
	for _, lang := range ix.Languages() {
		f, _ := ix.Lookup(lang)
		snap.Files = append(snap.Files, f)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.cache.Dir(), "."+indexSnapshotName+"-")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.snapshotPath())
}
