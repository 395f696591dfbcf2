package lookup

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/versekeeper/versekeeper/scripture"
)

// FileCache is the first-ranked text provider: a local plain-text file with
// one `reference::text` entry per line. Lines starting with '#' are comments.
// The file is created on demand so users can pre-seed verses by hand.
type FileCache struct {
	fs   afero.Fs
	path string
}

// NewFileCache creates a cache over the given filesystem and path. Passing
// afero.NewOsFs() uses the real filesystem; tests use an in-memory one.
func NewFileCache(fs afero.Fs, path string) *FileCache {
	return &FileCache{fs: fs, path: path}
}

func (c *FileCache) Name() string { return "local-cache" }

// FetchText looks the reference up in the cache file. Keys are compared in
// canonical form, so "2 Ne. 2:25" in the file matches "2 Nephi 2:25".
func (c *FileCache) FetchText(_ context.Context, ref scripture.Reference) (string, error) {
	f, err := c.fs.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("cache file %s does not exist", c.path)
		}
		return "", fmt.Errorf("open cache file: %w", err)
	}
	defer func() { _ = f.Close() }()

	want := ref.Key()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rawRef, text, found := strings.Cut(line, "::")
		if !found {
			continue
		}
		lineRef, err := scripture.Parse(strings.TrimSpace(rawRef))
		if err != nil {
			continue // malformed cache line, skip
		}
		if lineRef.Key() == want {
			return strings.TrimSpace(text), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read cache file: %w", err)
	}
	return "", fmt.Errorf("reference %s not in cache", ref)
}

// Put appends a reference and its text to the cache file, creating the file
// and its directory if needed. Newlines in the text are flattened so each
// entry stays on one line.
func (c *FileCache) Put(ref scripture.Reference, text string) error {
	dir := filepath.Dir(c.path)
	if dir != "." && dir != "" {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	f, err := c.fs.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open cache file for append: %w", err)
	}
	defer func() { _ = f.Close() }()

	flat := strings.Join(strings.Fields(text), " ")
	if _, err := fmt.Fprintf(f, "%s::%s\n", ref, flat); err != nil {
		return fmt.Errorf("append cache entry: %w", err)
	}
	return nil
}
