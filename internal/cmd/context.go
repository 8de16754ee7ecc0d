package cmd

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/jimezsa/jobharvest/internal/aggregate"
	"github.com/jimezsa/jobharvest/internal/config"
	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/network"
	"github.com/jimezsa/jobharvest/internal/scraper"
	"github.com/jimezsa/jobharvest/internal/ui"
)

type Context struct {
	// Ctx is cancelled on SIGINT/SIGTERM.
	Ctx        context.Context
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode
	// Fetchers overrides the network transport, for tests.
	Fetchers aggregate.FetcherFactory
}

func (c *Context) context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// aggregator builds the search fan-out from the loaded configuration.
func (c *Context) aggregator(pool *network.ProxyPool) *aggregate.Aggregator {
	cfg := c.Config
	fetchers := c.Fetchers
	if fetchers == nil {
		fetchers = aggregate.NetworkFetchers(cfg.RequestTimeout())
	}

	sites := map[models.Site]scraper.Config{}
	for site, delay := range cfg.Delays() {
		sites[site] = scraper.Config{Delay: delay}
	}
	return aggregate.New(fetchers, aggregate.Options{
		Concurrency: cfg.Concurrency,
		RunTimeout:  cfg.RunTimeout(),
		Defaults: scraper.Config{
			MaxRequests:    cfg.MaxRequests,
			RequestTimeout: cfg.RequestTimeout(),
		},
		Sites:   sites,
		Proxies: pool,
	}, c.Logger)
}

// proxyPool loads proxies from the flag value, the environment or the
// proxies file.
func proxyPool(flagValue string) (*network.ProxyPool, error) {
	raw, err := config.LoadProxies(flagValue)
	if err != nil {
		return nil, err
	}
	return network.NewProxyPool(raw)
}
