package cmd

import (
	"github.com/alecthomas/kong"

	"github.com/jimezsa/jobharvest/internal/models"
)

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto" env:"JOBHARVEST_COLOR"`
	JSON    bool   `help:"JSON output to stdout; disables colors." env:"JOBHARVEST_JSON"`
	Plain   bool   `help:"TSV output to stdout; disables colors."`
	Verbose bool   `help:"Enable debug logging." env:"JOBHARVEST_VERBOSE"`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Version   VersionCmd `cmd:"" help:"Print version."`
	Config    ConfigCmd  `cmd:"" help:"Manage configuration."`
	Search    SearchCmd  `cmd:"" help:"Search job listings."`
	LinkedIn  SiteCmd    `cmd:"" name:"linkedin" help:"Search LinkedIn."`
	Indeed    SiteCmd    `cmd:"" name:"indeed" help:"Search Indeed."`
	Glassdoor SiteCmd    `cmd:"" name:"glassdoor" help:"Search Glassdoor."`
	Stepstone SiteCmd    `cmd:"" name:"stepstone" help:"Search Stepstone."`
	Gupy      SiteCmd    `cmd:"" name:"gupy" help:"Search Gupy."`
	Wellfound SiteCmd    `cmd:"" name:"wellfound" help:"Search Wellfound."`
	Serve     ServeCmd   `cmd:"" help:"Run the HTTP API."`
	Recent    RecentCmd  `cmd:"" help:"List recently stored jobs of a site."`
	Seen      SeenCmd    `cmd:"" help:"Seen jobs utilities."`
	Proxies   ProxiesCmd `cmd:"" help:"Proxy utilities."`
}

func NewCLI() *CLI {
	return &CLI{
		LinkedIn:  SiteCmd{Site: models.SiteLinkedIn},
		Indeed:    SiteCmd{Site: models.SiteIndeed},
		Glassdoor: SiteCmd{Site: models.SiteGlassdoor},
		Stepstone: SiteCmd{Site: models.SiteStepstone},
		Gupy:      SiteCmd{Site: models.SiteGupy},
		Wellfound: SiteCmd{Site: models.SiteWellfound},
	}
}
