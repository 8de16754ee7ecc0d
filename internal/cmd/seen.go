package cmd

import (
	"fmt"
	"strings"

	"github.com/jimezsa/jobharvest/internal/seen"
)

type SeenCmd struct {
	Diff   SeenDiffCmd   `cmd:"" help:"Write jobs from --new that are absent from --seen."`
	Update SeenUpdateCmd `cmd:"" help:"Merge jobs into a seen history file."`
}

type SeenDiffCmd struct {
	New   string `name:"new" required:"" help:"Jobs JSON to check."`
	Seen  string `name:"seen" required:"" help:"Seen history JSON. A missing file counts as empty."`
	Out   string `name:"out" required:"" help:"Where to write the unseen jobs."`
	Stats bool   `name:"stats" help:"Print comparison stats."`
}

type SeenUpdateCmd struct {
	Seen  string `name:"seen" required:"" help:"Seen history JSON. A missing file counts as empty."`
	Input string `name:"input" required:"" help:"Jobs JSON to merge in."`
	Out   string `name:"out" required:"" help:"Where to write the merged history."`
	Stats bool   `name:"stats" help:"Print merge stats."`
}

func (c *SeenDiffCmd) Run(ctx *Context) error {
	fresh, err := seen.ReadJobs(c.New)
	if err != nil {
		return fmt.Errorf("read --new: %w", err)
	}
	history, err := seen.ReadJobsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	unseen, stats := seen.Diff(fresh, history)
	if err := seen.WriteJobs(c.Out, unseen); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}
	if !c.Stats {
		return nil
	}
	return printStats(ctx,
		"total_new", stats.TotalNew,
		"total_seen", stats.TotalSeen,
		"invalid_skipped", stats.InvalidSkipped(),
		"unseen_emitted", stats.Unseen,
	)
}

func (c *SeenUpdateCmd) Run(ctx *Context) error {
	history, err := seen.ReadJobsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}
	input, err := seen.ReadJobs(c.Input)
	if err != nil {
		return fmt.Errorf("read --input: %w", err)
	}

	merged, stats := seen.Merge(history, input)
	if err := seen.WriteJobs(c.Out, merged); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}
	if !c.Stats {
		return nil
	}
	return printStats(ctx,
		"total_seen", stats.TotalSeen,
		"total_input", stats.TotalInput,
		"invalid_skipped", stats.InvalidSkipped(),
		"added", stats.Added,
		"total_out", stats.TotalOut,
	)
}

// printStats writes alternating name/count pairs as one key=value line.
func printStats(ctx *Context, pairs ...any) error {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", pairs[i], pairs[i+1]))
	}
	_, err := fmt.Fprintln(ctx.Out, strings.Join(parts, " "))
	return err
}
