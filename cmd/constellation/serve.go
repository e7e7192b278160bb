package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/constellation/internal/display"
	"github.com/ivlev/constellation/internal/remote"
	"github.com/ivlev/constellation/internal/store"
)

// logHost stands in for a native window system: it prints the URL each
// display window should load and keeps nothing open itself.
type logHost struct {
	base string
}

func (h logHost) Open(w display.Window) error {
	ow, oh := w.OuterSize()
	fmt.Printf("[>] Окно %s (%dx%d): %s%s\n", w.Label, ow, oh, h.base, w.URL)
	return nil
}

func (h logHost) Close(label string) error {
	fmt.Printf("[>] Окно %s больше не нужно\n", label)
	return nil
}

func runServe(ctx context.Context, args []string) error {
	c := newCLI("serve")
	listen := c.fs.String("listen", "", "Адрес хаба окон дисплеев (по умолчанию из настроек)")
	mirror := c.fs.Bool("sync", false, "Передавать проект и транспорт на дисплей -addr")
	autoplay := c.fs.Bool("play", false, "Сразу начать воспроизведение")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	if c.set("listen") {
		cfg.HubListen = *listen
	}
	raiseFileLimit()

	st := store.New()
	if path, err := projectPath(cfg, c.fs.Args()); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := st.LoadProject(data); err != nil {
			return fmt.Errorf("проект %s: %w", path, err)
		}
	} else {
		log.Printf("[!] %v", err)
	}

	hub := display.NewHub()
	unfollow := hub.Follow(st)
	defer unfollow()

	ln, err := net.Listen("tcp", cfg.HubListen)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: hub.Handler(), ReadHeaderTimeout: 10 * time.Second}
	base := "http://" + ln.Addr().String()
	fmt.Printf("[*] Хаб окон дисплеев: %s\n", base)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		t := &store.Ticker{Store: st, Interval: cfg.TickInterval}
		return t.Run(gctx)
	})
	g.Go(func() error {
		return display.NewManager(logHost{base: base}).Run(gctx, st)
	})
	if *mirror {
		fmt.Printf("[*] Синхронизация с дисплеем %s\n", cfg.DisplayAddr)
		g.Go(func() error {
			return remote.NewMirror(remote.NewClient(cfg.DisplayAddr), st).Run(gctx)
		})
	}
	if *autoplay {
		st.Play()
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		fmt.Printf("[*] Остановлено на %.2fs\n", st.Snapshot().Time)
		return nil
	}
	return err
}

func runDisplay(ctx context.Context, args []string) error {
	c := newCLI("display")
	listen := c.fs.String("listen", "", "Адрес сервера управления (по умолчанию из настроек)")
	advertise := c.fs.Bool("mdns", true, "Объявлять дисплей в локальной сети")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	if c.set("listen") {
		cfg.ControlListen = *listen
	}
	raiseFileLimit()

	ln, err := net.Listen("tcp", cfg.ControlListen)
	if err != nil {
		return err
	}
	port := ln.Addr().(*net.TCPAddr).Port

	tr := remote.NewTransport()
	srv := &http.Server{Handler: remote.NewServer(tr).Handler(), ReadHeaderTimeout: 10 * time.Second}
	fmt.Printf("[*] Дисплей слушает %s\n", ln.Addr())

	if *advertise {
		mdnsSrv, err := remote.Advertise(cfg.MDNSService, port)
		if err != nil {
			log.Printf("[!] mDNS недоступен: %v", err)
		} else {
			defer mdnsSrv.Shutdown()
			fmt.Printf("[*] Объявлен как %s на порту %d\n", cfg.MDNSService, port)
		}
	}

	watch, stopWatch := tr.Watch()
	defer stopWatch()
	go func() {
		for st := range watch {
			fmt.Printf("[>] %s %.2fs x%g\n", st.Status, st.TimeSeconds, st.Rate)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// displayURL is the full window URL for a screen on the editor's hub.
func displayURL(hub, screenID string, w, h uint32) string {
	if !strings.Contains(hub, "://") {
		hub = "http://" + hub
	}
	return strings.TrimRight(hub, "/") + display.WindowURL(screenID, w, h)
}
