package cmd

import (
	"context"

	"github.com/jimezsa/jobagg/internal/export"
)

type UsageCmd struct {
	User   string `help:"User to report on." env:"JOBAGG_USER_ID"`
	Format string `help:"Output format: table or json." enum:",table,json" default:""`
}

func (u *UsageCmd) Run(ctx *Context) error {
	svc, err := buildService(context.Background(), ctx.Config, nil, ctx.Logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	usage := svc.orchestrator.Usage(context.Background(), firstNonEmpty(u.User, ctx.Config.UserID))

	format := export.FormatTable
	switch {
	case ctx.JSONOutput:
		format = export.FormatJSON
	case u.Format != "":
		format, err = export.ParseFormat(u.Format)
		if err != nil {
			return err
		}
	}
	return export.WriteUsage(ctx.Out, usage, format)
}
