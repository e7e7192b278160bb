package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ivlev/constellation/internal/media"
	"github.com/ivlev/constellation/internal/project"
	"github.com/ivlev/constellation/internal/remote"
)

func runApply(ctx context.Context, args []string) error {
	c := newCLI("apply")
	relink := c.fs.Bool("relink", false, "Перед отправкой перенести локальные медиа в кэш")
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
	if *relink {
		if p, err = newCache(cfg).Relink(ctx, p, cfg.ImportWorkers); err != nil {
			return err
		}
	}
	raw, err := project.Marshal(p)
	if err != nil {
		return err
	}
	return report(remote.NewClient(cfg.DisplayAddr).ApplyProject(ctx, raw))
}

func runPlay(ctx context.Context, args []string) error {
	c := newCLI("play")
	at := c.fs.Float64("at", 0, "Начать с времени (сек)")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	var from *float64
	if c.set("at") {
		from = at
	}
	return report(remote.NewClient(cfg.DisplayAddr).Play(ctx, from))
}

func runPause(ctx context.Context, args []string) error {
	c := newCLI("pause")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	return report(remote.NewClient(cfg.DisplayAddr).Pause(ctx))
}

func runStop(ctx context.Context, args []string) error {
	c := newCLI("stop")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	return report(remote.NewClient(cfg.DisplayAddr).Stop(ctx))
}

func runSeek(ctx context.Context, args []string) error {
	c := newCLI("seek")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	to, err := floatArg(c.fs.Args(), "время")
	if err != nil {
		return err
	}
	return report(remote.NewClient(cfg.DisplayAddr).Seek(ctx, to))
}

func runRate(ctx context.Context, args []string) error {
	c := newCLI("rate")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	rate, err := floatArg(c.fs.Args(), "скорость")
	if err != nil {
		return err
	}
	return report(remote.NewClient(cfg.DisplayAddr).SetRate(ctx, rate))
}

func runState(ctx context.Context, args []string) error {
	c := newCLI("state")
	follow := c.fs.Bool("follow", false, "Следить за изменениями")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	client := remote.NewClient(cfg.DisplayAddr)
	show := func(st remote.TransportState) {
		fmt.Printf("[*] %s %.2fs x%g\n", st.Status, st.TimeSeconds, st.Rate)
	}
	if *follow {
		return client.Subscribe(ctx, show)
	}
	st, err := client.State(ctx)
	if err != nil {
		return err
	}
	show(st)
	return nil
}

func runActive(ctx context.Context, args []string) error {
	c := newCLI("active")
	node := c.fs.String("node", "", "Идентификатор экрана")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	if *node == "" {
		return fmt.Errorf("укажите -node")
	}
	a, ok, err := remote.NewClient(cfg.DisplayAddr).Active(ctx, *node)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("[*] На экране %s ничего нет\n", *node)
		return nil
	}
	fmt.Printf("[*] %s: %s\n", a.ClipID, a.URI)
	return nil
}

func runDiscover(ctx context.Context, args []string) error {
	c := newCLI("discover")
	timeout := c.fs.Duration("timeout", 3*time.Second, "Время ожидания ответов")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	fmt.Printf("[*] Поиск %s (%s)...\n", cfg.MDNSService, *timeout)
	found, err := remote.Discover(ctx, cfg.MDNSService, *timeout)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("[!] Дисплеи не найдены")
		return nil
	}
	for _, e := range found {
		fmt.Printf("[+] %s %s\n", e.Addr, e.Name)
	}
	return nil
}

// report prints a display acknowledgement.
func report(msg string, err error) error {
	if err != nil {
		return err
	}
	fmt.Printf("[+++] Дисплей: %s\n", msg)
	return nil
}

func floatArg(args []string, what string) (float64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("не указано значение: %s", what)
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return v, nil
}

func readProject(path string) (*project.Project, error) {
	data, err := os.ReadFile(media.PathFromURI(path))
	if err != nil {
		return nil, err
	}
	p, err := project.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("проект %s: %w", path, err)
	}
	return p, nil
}
