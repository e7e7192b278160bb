package media

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/constellation/internal/project"
)

// PDFPage is one rendered page of an imported PDF.
type PDFPage struct {
	Index int
	URI   string
	Size  Size
}

// ImportPDF renders every page of a PDF to PNG in the cache. Each worker
// opens its own document handle since a fitz document is not safe for
// concurrent use. Pages come back in document order.
func ImportPDF(ctx context.Context, c *Cache, path string, dpi, workers int) ([]PDFPage, error) {
	path = PathFromURI(path)
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	count := doc.NumPage()
	doc.Close()
	if count == 0 {
		return nil, fmt.Errorf("в %s нет страниц", path)
	}
	if dpi <= 0 {
		dpi = 150
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > count {
		workers = count
	}

	pages := make([]PDFPage, count)
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < count; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			workerDoc, err := fitz.New(path)
			if err != nil {
				return err
			}
			defer workerDoc.Close()

			for i := range jobs {
				img, err := workerDoc.ImageDPI(i, float64(dpi))
				if err != nil {
					return fmt.Errorf("render page %d: %w", i+1, err)
				}
				var buf bytes.Buffer
				if err := png.Encode(&buf, img); err != nil {
					return fmt.Errorf("encode page %d: %w", i+1, err)
				}
				uri, err := c.Put(buf.Bytes(), ".png")
				if err != nil {
					return err
				}
				b := img.Bounds()
				pages[i] = PDFPage{Index: i, URI: uri, Size: Size{W: b.Dx(), H: b.Dy()}}
				log.Printf("[>] Страница %d/%d готова", i+1, count)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// PageClips turns rendered pages into media bin entries named after the
// PDF file.
func PageClips(pdfPath string, pages []PDFPage, duration float64) []project.ClipSpec {
	base := strings.TrimSuffix(filepath.Base(PathFromURI(pdfPath)), filepath.Ext(pdfPath))
	specs := make([]project.ClipSpec, 0, len(pages))
	for _, pg := range pages {
		d := duration
		specs = append(specs, project.ClipSpec{
			Name:            fmt.Sprintf("%s p.%d", base, pg.Index+1),
			URI:             pg.URI,
			DurationSeconds: &d,
		})
	}
	return specs
}
