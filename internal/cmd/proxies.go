package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jimezsa/jobharvest/internal/config"
	"github.com/jimezsa/jobharvest/internal/network"
)

type ProxiesCmd struct {
	Check ProxyCheckCmd `cmd:"" help:"Probe each configured proxy against a target URL."`
}

type ProxyCheckCmd struct {
	Target      string `help:"Target URL." default:"https://www.google.com"`
	Timeout     int    `help:"Timeout in seconds." default:"15"`
	Concurrency int    `help:"Proxies probed in parallel." default:"4"`
}

type ProxyCheckResult struct {
	Proxy     string `json:"proxy"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func (p *ProxyCheckCmd) Run(ctx *Context) error {
	proxies, err := config.LoadProxies("")
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		return fmt.Errorf("no proxies configured")
	}

	results := make([]ProxyCheckResult, len(proxies))
	g, gctx := errgroup.WithContext(ctx.context())
	g.SetLimit(max(p.Concurrency, 1))
	for i, proxy := range proxies {
		g.Go(func() error {
			results[i] = p.probe(gctx, proxy)
			return nil
		})
	}
	_ = g.Wait()

	return writeProxyResults(ctx, results)
}

// probe issues one GET through a single-proxy rotator.
func (p *ProxyCheckCmd) probe(ctx context.Context, raw string) ProxyCheckResult {
	result := ProxyCheckResult{Proxy: raw, Status: "error"}
	normalized, err := network.NormalizeProxy(raw)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Proxy = normalized

	timeout := time.Duration(p.Timeout) * time.Second
	rotator, err := network.NewRotator([]string{normalized}, 0)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	client, err := network.NewClient(rotator, timeout)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	resp, err := client.Get(ctx, p.Target, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.LatencyMS = time.Since(start).Milliseconds()
	result.Status = strconv.Itoa(resp.Status)
	return result
}

func writeProxyResults(ctx *Context, results []ProxyCheckResult) error {
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if ctx.PlainText {
		for _, res := range results {
			if _, err := fmt.Fprintf(ctx.Out, "%s\t%s\t%d\t%s\n", res.Proxy, res.Status, res.LatencyMS, res.Error); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "proxy\tstatus\tlatency_ms\terror")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Proxy, res.Status, res.LatencyMS, res.Error)
	}
	return tw.Flush()
}
