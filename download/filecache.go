package download

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	fileSuffix     = ".xlsx"
	metadataSuffix = ".xlsx.metadata"
)

type metadata struct {
	LastUpdate float64 `json:"lastUpdate"`
}

// FileCache stores one spreadsheet per region slug with a JSON sidecar that
// records when it was downloaded.
type FileCache struct {
	dir string
	now func() time.Time
}

func NewFileCache(dir string) (*FileCache, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	return &FileCache{dir: dir, now: time.Now}, nil
}

func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) filePath(slug string) string {
	return filepath.Join(c.dir, slug+fileSuffix)
}

func (c *FileCache) metadataPath(slug string) string {
	return filepath.Join(c.dir, slug+metadataSuffix)
}

// Save writes the spreadsheet first and the sidecar second, so a sidecar
// never describes a missing file.
func (c *FileCache) Save(slug string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory %s: %w", c.dir, err)
	}
	if err := writeFileAtomic(c.filePath(slug), data); err != nil {
		return fmt.Errorf("write cached spreadsheet for %s: %w", slug, err)
	}

	now := c.now()
	meta, err := json.Marshal(metadata{LastUpdate: float64(now.UnixNano()) / float64(time.Second)})
	if err != nil {
		return fmt.Errorf("marshal cache metadata: %w", err)
	}
	if err := writeFileAtomic(c.metadataPath(slug), meta); err != nil {
		return fmt.Errorf("write cache metadata for %s: %w", slug, err)
	}
	return nil
}

func (c *FileCache) Load(slug string) ([]byte, error) {
	data, err := os.ReadFile(c.filePath(slug))
	if err != nil {
		return nil, fmt.Errorf("read cached spreadsheet for %s: %w", slug, err)
	}
	return data, nil
}

func (c *FileCache) Exists(slug string) bool {
	_, err := os.Stat(c.filePath(slug))
	return err == nil
}

// LastUpdate reports when the region was last saved. A missing or unreadable
// sidecar counts as never.
func (c *FileCache) LastUpdate(slug string) (time.Time, bool) {
	raw, err := os.ReadFile(c.metadataPath(slug))
	if err != nil {
		return time.Time{}, false
	}
	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil || meta.LastUpdate <= 0 {
		return time.Time{}, false
	}
	seconds := int64(meta.LastUpdate)
	nanos := int64((meta.LastUpdate - float64(seconds)) * float64(time.Second))
	return time.Unix(seconds, nanos), true
}

// IsFresh reports whether the cached file exists and is younger than ttl.
func (c *FileCache) IsFresh(slug string, ttl time.Duration) bool {
	if !c.Exists(slug) {
		return false
	}
	updated, ok := c.LastUpdate(slug)
	if !ok {
		return false
	}
	return c.now().Sub(updated) < ttl
}

func (c *FileCache) Delete(slug string) error {
	for _, path := range []string{c.filePath(slug), c.metadataPath(slug)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", path, err)
		}
	}
	return nil
}

// Clear removes every cached spreadsheet and sidecar and returns how many
// files were deleted. Unrelated files in the directory are left alone.
func (c *FileCache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list cache directory %s: %w", c.dir, err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, fileSuffix) || strings.HasSuffix(name, metadataSuffix)) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil {
			return removed, fmt.Errorf("delete %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
