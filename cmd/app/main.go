package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/box1bs/spyglass/configs"
	"github.com/box1bs/spyglass/internal/app/scraper"
	"github.com/box1bs/spyglass/internal/app/searcher"
	"github.com/box1bs/spyglass/internal/repository"
	"github.com/box1bs/spyglass/pkg/logger"
	"github.com/box1bs/spyglass/pkg/metrics"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("error loading .env: %v\n", err)
	}

	if err := newRootCMD().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCMD() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "spyglass",
		Short:        "Crawl a web neighbourhood and search it",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "path to yaml configuration")

	root.AddCommand(
		crawlCMD(&cfgPath),
		searchCMD(&cfgPath),
		serveCMD(&cfgPath),
		reportCMD(&cfgPath),
		statsCMD(&cfgPath),
	)
	return root
}

// app bundles what every command needs: configuration, logger, metrics and
// the opened index store.
type app struct {
	cfg 		*configs.Config
	log 		*logger.Logger
	metrics 	*metrics.Metrics
	repo 		*repository.IndexRepository
	logFile 	io.Closer
}

func setup(cfgPath string) (*app, error) {
	cfg, err := configs.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) && cfgPath == defaultConfigPath {
		cfg, err = configs.Load("")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{cfg: cfg, metrics: metrics.New(nil)}
	var info, errs io.Writer = os.Stdout, os.Stderr
	if cfg.Log.File != "" {
		file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		a.logFile = file
		info, errs = file, file
	}
	a.log = logger.NewLogger(info, errs, cfg.Log.Buffer)

	path := cfg.Storage.Path
	if cfg.Storage.InMemory {
		path = ""
	}
	a.repo, err = repository.NewIndexRepository(path, a.log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open index at %q: %w", path, err)
	}
	return a, nil
}

func (a *app) close() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Write(logger.NewMessage(logger.MAIN_LAYER, logger.ERROR, "error closing index: %v", err))
		}
	}
	a.log.Close()
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func (a *app) searcher() *searcher.Searcher {
	return searcher.NewSearcher(a.repo, a.cfg.Search.TitleBoost, a.cfg.Crawler.Workers, a.log, a.metrics)
}

func (a *app) crawler() crawler {
	return scraper.NewScraper(a.repo, &scraper.ConfigData{
		Workers: 		a.cfg.Crawler.Workers,
		Rate: 			a.cfg.Crawler.Rate,
		FetchTimeout: 	a.cfg.Crawler.FetchTimeout,
		RespectRobots: 	a.cfg.Crawler.RespectRobots,
		UserAgent: 		a.cfg.Crawler.UserAgent,
	}, a.log, a.metrics)
}

type crawler interface {
	Discover(context.Context, string, int) ([]string, error)
}
