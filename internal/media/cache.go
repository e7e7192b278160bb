package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/constellation/internal/project"
)

var ErrNoSpace = errors.New("not enough free disk space for media cache")

// Cache is a content-addressed copy of local media files. A file is stored
// once under the hex sha256 of its content plus its original extension.
type Cache struct {
	Dir     string
	MinFree uint64 // bytes that must stay free after a write; 0 disables the check
}

func (c *Cache) ensureDir() error {
	if c.Dir == "" {
		return fmt.Errorf("media cache dir is not set")
	}
	return os.MkdirAll(c.Dir, 0755)
}

// checkSpace fails when writing size bytes would leave less than MinFree.
func (c *Cache) checkSpace(size int64) error {
	if c.MinFree == 0 {
		return nil
	}
	usage, err := disk.Usage(c.Dir)
	if err != nil {
		log.Printf("[!] Не удалось проверить свободное место в %s: %v", c.Dir, err)
		return nil
	}
	if usage.Free < c.MinFree+uint64(size) {
		return fmt.Errorf("%w: %d bytes free, need %d", ErrNoSpace, usage.Free, c.MinFree+uint64(size))
	}
	return nil
}

// Contains reports whether path lies inside the cache dir.
func (c *Cache) Contains(path string) bool {
	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return false
	}
	p, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		dir, p = strings.ToLower(dir), strings.ToLower(p)
	}
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// FromPath copies a local file (path or file:// URI) into the cache and
// returns the file:// URI of the cached copy.
func (c *Cache) FromPath(path string) (string, error) {
	path = PathFromURI(path)
	if err := c.ensureDir(); err != nil {
		return "", err
	}

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	h := sha256.New()
	size, err := io.Copy(h, src)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	dest := filepath.Join(c.Dir, hex.EncodeToString(h.Sum(nil))+strings.ToLower(filepath.Ext(path)))
	if _, err := os.Stat(dest); err == nil {
		return ToFileURI(dest), nil
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if err := c.write(dest, src, size); err != nil {
		return "", err
	}
	return ToFileURI(dest), nil
}

// Put stores data under its content hash with the given extension.
func (c *Cache) Put(data []byte, ext string) (string, error) {
	if err := c.ensureDir(); err != nil {
		return "", err
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	sum := sha256.Sum256(data)
	dest := filepath.Join(c.Dir, hex.EncodeToString(sum[:])+strings.ToLower(ext))
	if _, err := os.Stat(dest); err == nil {
		return ToFileURI(dest), nil
	}
	if err := c.write(dest, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", err
	}
	return ToFileURI(dest), nil
}

// write goes through a temp file so readers never see partial content.
func (c *Cache) write(dest string, r io.Reader, size int64) error {
	if err := c.checkSpace(size); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.Dir, ".part-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// FromURI caches file:// URIs; any other URI is returned unchanged.
func (c *Cache) FromURI(uri string) (string, error) {
	if !IsFileURI(uri) {
		return uri, nil
	}
	return c.FromPath(uri)
}

// Relink copies every local clip outside the cache into it and points the
// clip at the cached copy. Clips that fail to copy keep their URI; only
// cancellation is reported as an error.
func (c *Cache) Relink(ctx context.Context, p *project.Project, workers int) (*project.Project, error) {
	if p == nil || len(p.Media) == 0 {
		return p, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu      sync.Mutex
		updated = map[string]string{}
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, m := range p.Media {
		if !IsFileURI(m.URI) {
			continue
		}
		if c.Contains(PathFromURI(m.URI)) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			uri, err := c.FromPath(m.URI)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					log.Printf("[!] Клип %s: файл не найден: %s", m.ID, m.URI)
				} else {
					log.Printf("[!] Клип %s не скопирован в кэш: %v", m.ID, err)
				}
				return nil
			}
			mu.Lock()
			updated[m.ID] = uri
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return p, err
	}

	next := p
	for _, m := range p.Media {
		if uri, ok := updated[m.ID]; ok {
			next = project.SetMediaURI(next, m.ID, uri)
		}
	}
	return next, nil
}
