package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/constellation/internal/config"
	"github.com/ivlev/constellation/internal/export"
	"github.com/ivlev/constellation/internal/media"
	"github.com/ivlev/constellation/internal/project"
	"github.com/ivlev/constellation/internal/scene"
)

// importFlags are shared by the import commands.
type importFlags struct {
	into     *string
	out      *string
	target   *string
	duration *float64
}

func addImportFlags(c *cli) importFlags {
	return importFlags{
		into:     c.fs.String("into", "", "Добавить в существующий проект"),
		out:      c.fs.String("out", "", "Куда сохранить проект (по умолчанию в папку проектов)"),
		target:   c.fs.String("target", "", "Экран для клипов (пусто - все экраны)"),
		duration: c.fs.Float64("page-duration", 0, "Длительность клипа в секундах (0 - из настроек)"),
	}
}

// baseProject opens -into or starts an empty project named after src.
func (f importFlags) baseProject(cfg *config.Config, src string) (*project.Project, error) {
	if *f.into != "" {
		return readProject(*f.into)
	}
	p := project.Default(nil)
	p.ID = scene.NewID("project")
	p.Name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	p.Timeline.DurationSeconds = cfg.DefaultTimelineDuration
	return p, nil
}

func (f importFlags) outPath(cfg *config.Config, p *project.Project) string {
	switch {
	case *f.out != "":
		return *f.out
	case *f.into != "":
		return *f.into
	}
	name := strings.ReplaceAll(p.Name, " ", "_")
	return filepath.Join(cfg.ProjectsDir, name+".json")
}

// appendClips adds specs to the bin and lays them out back to back after
// the last placement.
func appendClips(p *project.Project, specs []project.ClipSpec, target string) *project.Project {
	cursor := p.Timeline.MaxEnd()
	for _, spec := range specs {
		var clip project.MediaClip
		p, clip = project.AddMediaClip(p, spec)
		start := cursor
		p = project.AddClipToTimeline(p, project.AddClipRequest{
			ClipID:       clip.ID,
			TargetNodeID: target,
			StartAt:      &start,
		}, 0)
		cursor += clip.DurationSeconds
	}
	return p
}

func writeProject(p *project.Project, path string) error {
	raw, err := project.Marshal(p)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0644)
}

func runImportPDF(ctx context.Context, args []string) error {
	c := newCLI("import-pdf")
	dpi := c.fs.Int("dpi", 0, "DPI рендера страниц (0 - из настроек)")
	f := addImportFlags(c)
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	if c.set("dpi") && *dpi > 0 {
		cfg.PDFDPI = *dpi
	}
	if c.fs.NArg() == 0 {
		return fmt.Errorf("укажите PDF")
	}
	src := c.fs.Arg(0)
	if !media.IsPDF(src) {
		return fmt.Errorf("%s не PDF", src)
	}
	dur := *f.duration
	if dur <= 0 {
		dur = cfg.DefaultClipDuration
	}

	p, err := f.baseProject(cfg, src)
	if err != nil {
		return err
	}
	fmt.Printf("[*] Рендер %s (DPI %d, потоков %d)\n", src, cfg.PDFDPI, cfg.ImportWorkers)
	pages, err := media.ImportPDF(ctx, newCache(cfg), src, cfg.PDFDPI, cfg.ImportWorkers)
	if err != nil {
		return err
	}
	p = appendClips(p, media.PageClips(src, pages, dur), *f.target)

	out := f.outPath(cfg, p)
	if err := writeProject(p, out); err != nil {
		return err
	}
	fmt.Printf("[+++] Успех! %d страниц, проект: %s\n", len(pages), out)
	return nil
}

func runImportMedia(ctx context.Context, args []string) error {
	c := newCLI("import-media")
	f := addImportFlags(c)
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	if c.fs.NArg() == 0 {
		return fmt.Errorf("укажите файл или папку с медиа")
	}
	src := c.fs.Arg(0)
	dur := *f.duration
	if dur <= 0 {
		dur = cfg.DefaultClipDuration
	}

	paths, err := media.ListMedia(src)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("в %s нет изображений или видео", src)
	}
	p, err := f.baseProject(cfg, src)
	if err != nil {
		return err
	}

	cache := newCache(cfg)
	specs := make([]project.ClipSpec, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		uri, err := cache.FromPath(path)
		if err != nil {
			log.Printf("[!] %s: %v, оставляем исходный путь", path, err)
			uri = media.ToFileURI(path)
		}
		d := dur
		if media.IsVideo(path) {
			d = media.ClipDuration(path, dur)
		}
		specs = append(specs, project.ClipSpec{
			Name:            filepath.Base(path),
			URI:             uri,
			DurationSeconds: &d,
		})
	}
	p = appendClips(p, specs, *f.target)

	out := f.outPath(cfg, p)
	if err := writeProject(p, out); err != nil {
		return err
	}
	fmt.Printf("[+++] Успех! %d клипов, проект: %s\n", len(specs), out)
	return nil
}

func runRelink(ctx context.Context, args []string) error {
	c := newCLI("relink")
	out := c.fs.String("out", "", "Куда сохранить (по умолчанию поверх исходного)")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	path, err := projectPath(cfg, c.fs.Args())
	if err != nil {
		return err
	}
	p, err := readProject(path)
	if err != nil {
		return err
	}
	next, err := newCache(cfg).Relink(ctx, p, cfg.ImportWorkers)
	if err != nil {
		return err
	}
	if next == p {
		fmt.Println("[*] Все медиа уже в кэше")
		return nil
	}
	dest := path
	if *out != "" {
		dest = *out
	}
	if err := writeProject(next, dest); err != nil {
		return err
	}
	fmt.Printf("[+++] Успех! Проект: %s\n", dest)
	return nil
}

func runCueSheet(ctx context.Context, args []string) error {
	c := newCLI("cuesheet")
	out := c.fs.String("out", "", "Путь к PDF (по умолчанию рядом с проектом)")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	path, err := projectPath(cfg, c.fs.Args())
	if err != nil {
		return err
	}
	p, err := readProject(path)
	if err != nil {
		return err
	}
	dest := *out
	if dest == "" {
		dest = strings.TrimSuffix(path, filepath.Ext(path)) + "_cues.pdf"
	}
	if err := export.CueSheet(p, dest); err != nil {
		return err
	}
	fmt.Printf("[+++] Успех! Результат: %s\n", dest)
	return nil
}

func runQR(ctx context.Context, args []string) error {
	c := newCLI("qr")
	screen := c.fs.String("screen", "", "Идентификатор экрана (по умолчанию первый в проекте)")
	hub := c.fs.String("hub", "", "Адрес хаба окон (по умолчанию из настроек)")
	size := c.fs.Int("size", 256, "Размер PNG в пикселях")
	out := c.fs.String("out", "", "Путь к PNG (по умолчанию display-<id>.png)")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	if c.set("hub") {
		cfg.HubListen = *hub
	}
	path, err := projectPath(cfg, c.fs.Args())
	if err != nil {
		return err
	}
	p, err := readProject(path)
	if err != nil {
		return err
	}
	n := scene.FirstScreen(p.Scene, *screen)
	if n == nil {
		return fmt.Errorf("в проекте нет экранов")
	}
	sk, _ := n.ScreenKind()
	url := displayURL(cfg.HubListen, n.ID, sk.Pixels[0], sk.Pixels[1])
	dest := *out
	if dest == "" {
		dest = "display-" + n.ID + ".png"
	}
	if err := export.DisplayQR(url, dest, *size); err != nil {
		return err
	}
	fmt.Printf("[+++] Успех! %s -> %s\n", url, dest)
	return nil
}
