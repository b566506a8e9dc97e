package cmd

import (
	"fmt"
	"strings"

	"github.com/jimezsa/jobagg/internal/config"
)

type ConfigCmd struct {
	Init InitConfigCmd `cmd:"" help:"Write default config and proxies files."`
	Path PathConfigCmd `cmd:"" help:"Print config directory."`
	Show ShowConfigCmd `cmd:"" help:"Print the effective configuration (credentials masked)."`
}

type InitConfigCmd struct{}

type PathConfigCmd struct{}

type ShowConfigCmd struct{}

func (c *InitConfigCmd) Run(ctx *Context) error {
	paths, err := config.Init()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		ctx.UI.Infof("Config already initialized at %s", ctx.ConfigDir)
		return nil
	}
	ctx.UI.Infof("Created: %s", strings.Join(paths, ", "))
	return nil
}

func (c *PathConfigCmd) Run(ctx *Context) error {
	_, err := fmt.Fprintln(ctx.Out, ctx.ConfigDir)
	return err
}

func (c *ShowConfigCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	cfg.Adzuna.AppKey = mask(cfg.Adzuna.AppKey)
	cfg.Quota.PostgresURL = mask(cfg.Quota.PostgresURL)
	cfg.Quota.RedisURL = mask(cfg.Quota.RedisURL)
	cfg.Cache.RedisURL = mask(cfg.Cache.RedisURL)
	return writeJSON(ctx.Out, cfg)
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return "****"
}
