package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jimezsa/jobharvest/internal/models"
)

type VersionCmd struct{}

type versionInfo struct {
	Version string        `json:"version"`
	Sites   []models.Site `json:"sites"`
}

func (v *VersionCmd) Run(ctx *Context) error {
	if ctx.JSONOutput {
		return json.NewEncoder(ctx.Out).Encode(versionInfo{Version: ctx.Version, Sites: models.AllSites()})
	}
	_, err := fmt.Fprintf(ctx.Out, "jobharvest %s\n", ctx.Version)
	return err
}
