package cmd

import (
	"fmt"
	"strings"

	"github.com/jimezsa/jobharvest/internal/export"
	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/server"
	"github.com/jimezsa/jobharvest/internal/store"
	"github.com/jimezsa/jobharvest/internal/webhook"
)

type ServeCmd struct {
	Addr     string `help:"Listen address (default from config)." env:"JOBHARVEST_SERVER_ADDR"`
	Database string `help:"PostgreSQL URL; when set, every search result is persisted." env:"JOBHARVEST_DATABASE_URL"`
	Proxies  string `help:"Proxies used when a request enables proxies without listing any." env:"JOBHARVEST_PROXIES"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	pool, err := proxyPool(s.Proxies)
	if err != nil {
		return err
	}

	opts := server.Options{
		Version:  ctx.Version,
		Notifier: webhook.New(ctx.Config.WebhookTimeout(), ctx.Config.WebhookRetries, ctx.Logger),
	}
	if url := firstNonEmpty(s.Database, ctx.Config.DatabaseURL); url != "" {
		db, err := store.Open(ctx.context(), url)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Sink = db
	}

	addr := firstNonEmpty(s.Addr, ctx.Config.ServerAddr)
	ctx.Logger.Info().Str("addr", addr).Bool("persist", opts.Sink != nil).Int("proxies", pool.Len()).Msg("api listening")
	return server.New(ctx.aggregator(pool), opts, ctx.Logger).ListenAndServe(ctx.context(), addr)
}

type RecentCmd struct {
	Site     string `arg:"" help:"Site to list."`
	Limit    int    `help:"Maximum jobs." default:"50"`
	Database string `help:"PostgreSQL URL." env:"JOBHARVEST_DATABASE_URL"`
	Format   string `help:"Output format: csv, json, md, tsv, table." enum:",csv,json,md,tsv,table" default:""`
}

// Run lists the most recently stored jobs of one site.
func (r *RecentCmd) Run(ctx *Context) error {
	site, ok := models.ParseSite(r.Site)
	if !ok {
		return fmt.Errorf("unknown site: %s", r.Site)
	}
	url := firstNonEmpty(r.Database, ctx.Config.DatabaseURL)
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("no database configured: set --database or JOBHARVEST_DATABASE_URL")
	}

	db, err := store.Open(ctx.context(), url)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := db.RecentJobs(ctx.context(), site, r.Limit)
	if err != nil {
		return err
	}
	format, err := resolveFormat(ctx, SearchOptions{Format: r.Format}, "")
	if err != nil {
		return err
	}
	return export.WriteJobs(ctx.Out, jobs, format, export.WriteOptions{LinkStyle: export.LinkStyleFull})
}
