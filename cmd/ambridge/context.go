package main

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/agenthands/ambridge/internal/cache"
	"github.com/agenthands/ambridge/internal/config"
	"github.com/agenthands/ambridge/internal/core"
	"github.com/agenthands/ambridge/internal/driver"
	"github.com/agenthands/ambridge/internal/logger"
	"github.com/agenthands/ambridge/internal/scraper"
	"github.com/agenthands/ambridge/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	log     *logger.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.LoadEnv(path)
	})
	return c.config, c.configErr
}

// logger tags every line of this invocation with a run id.
func (c *commandContext) logger() *logger.Logger {
	c.logOnce.Do(func() {
		mode := "dev"
		if cfg, err := c.ensureConfig(); err == nil {
			mode = cfg.Log.Mode
		}
		l, err := logger.New(mode)
		if err != nil {
			l = logger.Nop()
		}
		c.log = l.With("run_id", uuid.NewString())
	})
	return c.log
}

// openStore connects to the graph store. The caller must close it.
func (c *commandContext) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := driver.NewNeo4jDriver(cfg.Graph, c.logger())
	if err != nil {
		return nil, err
	}
	return store.NewCypherStore(d), nil
}

// withArchive opens the store, makes sure the base dataset is loaded and
// hands a ready archive to fn.
func (c *commandContext) withArchive(ctx context.Context, fn func(*core.Archive) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	log := c.logger()
	fetcher := scraper.New(cfg.Scraper, log)
	a := core.NewArchive(s, fetcher, cache.New(cfg.Cache.File), cfg.Ingest.ChunkSize, log)
	if _, err := a.Setup(ctx, cfg.Setup.File); err != nil {
		return err
	}
	return fn(a)
}
