package media

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/ivlev/constellation/internal/project"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestToFileURI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/home/me/a.png", "file:///home/me/a.png"},
		{`C:\Users\me\a.png`, "file:///C:/Users/me/a.png"},
		{"rel/a.png", "file://rel/a.png"},
		{"/show/slide#1.png", "file:///show/slide%231.png"},
		{"/show/a%20b.png", "file:///show/a%2520b.png"},
		{"/show/my slide.png", "file:///show/my%20slide.png"},
	}
	for _, tt := range tests {
		if got := ToFileURI(tt.in); got != tt.want {
			t.Errorf("ToFileURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPathFromURI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"file:///home/me/a%20b.png", "/home/me/a b.png"},
		{"file:///C:/Users/me/a.png", "C:/Users/me/a.png"},
		{"/already/a/path.png", "/already/a/path.png"},
	}
	for _, tt := range tests {
		if got := PathFromURI(tt.in); got != tt.want {
			t.Errorf("PathFromURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileURIRoundTrip(t *testing.T) {
	for _, path := range []string{
		"/home/me/a.png",
		"/show/slide#1.png",
		"/show/a%20b.png",
		"/show/what?.png",
		"/show/Слайд 1.png",
		"C:/Users/me/a b.png",
		"rel/a.png",
	} {
		uri := ToFileURI(path)
		if got := PathFromURI(uri); got != path {
			t.Errorf("%q -> %q -> %q", path, uri, got)
		}
	}
}

func TestCacheFromPathSpecialNames(t *testing.T) {
	src := t.TempDir()
	c := &Cache{Dir: filepath.Join(t.TempDir(), "cache")}

	for _, name := range []string{"slide#1.png", "a%20b.png"} {
		path := filepath.Join(src, name)
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
		uri, err := c.FromURI(ToFileURI(path))
		if err != nil {
			t.Fatalf("FromURI(%s): %v", name, err)
		}
		data, err := os.ReadFile(PathFromURI(uri))
		if err != nil || string(data) != name {
			t.Errorf("%s: cached content %q, err %v", name, data, err)
		}
	}
}

func TestCacheFromPathDedupes(t *testing.T) {
	src := t.TempDir()
	c := &Cache{Dir: filepath.Join(t.TempDir(), "cache")}

	a := filepath.Join(src, "a.PNG")
	b := filepath.Join(src, "b.png")
	os.WriteFile(a, []byte("same bytes"), 0644)
	os.WriteFile(b, []byte("same bytes"), 0644)

	uriA, err := c.FromPath(a)
	if err != nil {
		t.Fatalf("FromPath: %v", err)
	}
	uriB, err := c.FromPath(ToFileURI(b))
	if err != nil {
		t.Fatalf("FromPath: %v", err)
	}
	if uriA != uriB {
		t.Errorf("same content should map to one file: %s vs %s", uriA, uriB)
	}
	if !strings.HasSuffix(uriA, ".png") {
		t.Errorf("extension should be kept (lowercased): %s", uriA)
	}
	entries, _ := os.ReadDir(c.Dir)
	if len(entries) != 1 {
		t.Errorf("cache holds %d files, want 1", len(entries))
	}
	if !c.Contains(PathFromURI(uriA)) || c.Contains(a) {
		t.Error("Contains is wrong")
	}
}

func TestCacheFromURIPassesRemote(t *testing.T) {
	c := &Cache{Dir: t.TempDir()}
	got, err := c.FromURI("https://example.com/a.png")
	if err != nil || got != "https://example.com/a.png" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestCacheFreeSpaceGuard(t *testing.T) {
	c := &Cache{Dir: t.TempDir(), MinFree: 1 << 62}
	if _, err := c.Put([]byte("x"), "txt"); err == nil {
		t.Error("expected ErrNoSpace")
	}
}

func TestRelink(t *testing.T) {
	src := t.TempDir()
	c := &Cache{Dir: filepath.Join(t.TempDir(), "cache")}
	local := filepath.Join(src, "a.png")
	os.WriteFile(local, []byte("pixels"), 0644)

	p := project.Default(nil)
	p, _ = project.AddMediaClip(p, project.ClipSpec{ID: "local", URI: ToFileURI(local)})
	p, _ = project.AddMediaClip(p, project.ClipSpec{ID: "remote", URI: "https://example.com/b.mp4"})
	p, _ = project.AddMediaClip(p, project.ClipSpec{ID: "gone", URI: ToFileURI(filepath.Join(src, "missing.png"))})

	next, err := c.Relink(context.Background(), p, 2)
	if err != nil {
		t.Fatalf("Relink: %v", err)
	}
	got := map[string]string{}
	for _, m := range next.Media {
		got[m.ID] = m.URI
	}
	if !c.Contains(PathFromURI(got["local"])) {
		t.Errorf("local clip not relinked: %s", got["local"])
	}
	if got["remote"] != "https://example.com/b.mp4" {
		t.Errorf("remote clip changed: %s", got["remote"])
	}
	if got["gone"] != p.Media[2].URI {
		t.Errorf("missing file should keep its uri: %s", got["gone"])
	}

	again, err := c.Relink(context.Background(), next, 2)
	if err != nil {
		t.Fatal(err)
	}
	if again != next {
		t.Error("relinking a cached project should be a no-op")
	}
}

func TestProbeImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writePNG(t, path, 64, 32)

	size, ok := ProbeImage(ToFileURI(path))
	if !ok || size != (Size{W: 64, H: 32}) {
		t.Errorf("ProbeImage: %+v %v", size, ok)
	}

	os.WriteFile(filepath.Join(dir, "bad.png"), []byte("nope"), 0644)
	if _, ok := ProbeImage(filepath.Join(dir, "bad.png")); ok {
		t.Error("garbage should not probe")
	}
	if _, ok := ProbeImage("https://example.com/a.png"); ok {
		t.Error("remote uris should not probe")
	}
}

func TestClipDurationFallback(t *testing.T) {
	if got := ClipDuration("/x/slide.png", 7); got != 7 {
		t.Errorf("image duration: %v", got)
	}
	if got := ClipDuration(filepath.Join(t.TempDir(), "missing.mp4"), 9); got != 9 {
		t.Errorf("failed probe should fall back, got %v", got)
	}
}

func TestListMedia(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "c.mp4", "notes.txt"} {
		os.WriteFile(filepath.Join(dir, name), nil, 0644)
	}
	os.Mkdir(filepath.Join(dir, "sub.png"), 0755)

	got, err := ListMedia(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.jpg", "b.png", "c.mp4"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFindLatestProject(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindLatestProject(dir); err == nil {
		t.Error("expected error for empty dir")
	}

	old := filepath.Join(dir, "old.json")
	newer := filepath.Join(dir, "new.json")
	os.WriteFile(old, []byte("{}"), 0644)
	os.WriteFile(newer, []byte("{}"), 0644)
	os.WriteFile(filepath.Join(dir, "newest.txt"), nil, 0644)
	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)

	got, err := FindLatestProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != newer {
		t.Errorf("got %s, want %s", got, newer)
	}
}

func TestImportPDF(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "deck.pdf")

	doc := gofpdf.New("L", "mm", "A5", "")
	doc.SetFont("Arial", "", 24)
	for i := 1; i <= 3; i++ {
		doc.AddPage()
		doc.Cell(40, 10, "Slide")
	}
	if err := doc.OutputFileAndClose(pdfPath); err != nil {
		t.Fatalf("write pdf: %v", err)
	}

	c := &Cache{Dir: filepath.Join(dir, "cache")}
	pages, err := ImportPDF(context.Background(), c, pdfPath, 36, 2)
	if err != nil {
		t.Fatalf("ImportPDF: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages: %d", len(pages))
	}
	for i, pg := range pages {
		if pg.Index != i || pg.Size.W <= pg.Size.H {
			t.Errorf("page %d: %+v", i, pg)
		}
		if size, ok := ProbeImage(pg.URI); !ok || size != pg.Size {
			t.Errorf("page %d not readable from cache: %+v", i, size)
		}
	}

	specs := PageClips(pdfPath, pages, 5)
	if specs[2].Name != "deck p.3" || *specs[2].DurationSeconds != 5 {
		t.Errorf("clip spec: %+v", specs[2])
	}
}
