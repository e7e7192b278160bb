package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/ivlev/constellation/internal/config"
	"github.com/ivlev/constellation/internal/media"
)

type command struct {
	help string
	run  func(ctx context.Context, args []string) error
}

var commands = map[string]command{
	"serve":        {"Редактор: состояние, часы воспроизведения, окна дисплеев", runServe},
	"display":      {"Сервер управления дисплеем (проект + транспорт, mDNS)", runDisplay},
	"apply":        {"Отправить проект на дисплей", runApply},
	"play":         {"Запустить воспроизведение на дисплее", runPlay},
	"pause":        {"Пауза на дисплее", runPause},
	"stop":         {"Остановить дисплей и вернуться к 0", runStop},
	"seek":         {"Перейти к времени (сек)", runSeek},
	"rate":         {"Скорость воспроизведения", runRate},
	"state":        {"Состояние транспорта дисплея", runState},
	"active":       {"Какой клип сейчас показывает экран", runActive},
	"discover":     {"Найти дисплеи в локальной сети", runDiscover},
	"import-pdf":   {"Импортировать страницы PDF как клипы", runImportPDF},
	"import-media": {"Импортировать изображения и видео из папки", runImportMedia},
	"relink":       {"Перенести локальные медиа проекта в кэш", runRelink},
	"cuesheet":     {"PDF-таблица таймлайна", runCueSheet},
	"qr":           {"QR-код ссылки окна дисплея", runQR},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Использование: constellation <команда> [флаги]\n\nКоманды:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-13s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(os.Stderr, "\nФлаги команды: constellation <команда> -h\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name, args := os.Args[1], os.Args[2:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "[-] Неизвестная команда: %s\n\n", name)
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.run(ctx, args)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[-] Ошибка (%s): %v", name, err)
	}
}

// cli is a subcommand flag set. Flags that were set explicitly override
// values from the config file.
type cli struct {
	fs         *flag.FlagSet
	configPath string

	addr        string
	cacheDir    string
	projectsDir string
	workers     int
}

func newCLI(name string) *cli {
	c := &cli{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	c.fs.StringVar(&c.configPath, "config", config.DefaultPath, "Путь к файлу настроек YAML")
	c.fs.StringVar(&c.addr, "addr", "", "Адрес дисплея (по умолчанию из настроек)")
	c.fs.StringVar(&c.cacheDir, "cache", "", "Папка кэша медиа")
	c.fs.StringVar(&c.projectsDir, "projects", "", "Папка проектов")
	c.fs.IntVar(&c.workers, "workers", 0, "Потоки импорта")
	return c
}

func (c *cli) load(args []string) (*config.Config, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.DisplayAddr = c.addr
		case "cache":
			cfg.CacheDir = c.cacheDir
		case "projects":
			cfg.ProjectsDir = c.projectsDir
		case "workers":
			if c.workers > 0 {
				cfg.ImportWorkers = c.workers
			}
		}
	})
	return cfg, nil
}

func (c *cli) set(name string) bool {
	found := false
	c.fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// projectPath returns the first positional argument or the newest project
// in the projects dir.
func projectPath(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	latest, err := media.FindLatestProject(cfg.ProjectsDir)
	if err != nil {
		return "", fmt.Errorf("%w. Укажите файл проекта или положите его в %s/", err, cfg.ProjectsDir)
	}
	fmt.Printf("[*] Выбран проект: %s\n", latest)
	return latest, nil
}

func newCache(cfg *config.Config) *media.Cache {
	return &media.Cache{Dir: cfg.CacheDir, MinFree: cfg.MinFreeBytes}
}
