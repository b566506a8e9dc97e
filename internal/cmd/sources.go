package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
)

type SourcesCmd struct{}

type sourceInfo struct {
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

func (s *SourcesCmd) Run(ctx *Context) error {
	svc, err := buildService(context.Background(), ctx.Config, nil, ctx.Logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	defaults := make(map[string]bool)
	for _, name := range svc.orchestrator.DefaultSources() {
		defaults[name] = true
	}
	infos := make([]sourceInfo, 0)
	for _, name := range svc.orchestrator.Sources() {
		infos = append(infos, sourceInfo{Name: name, Default: defaults[name]})
	}

	if ctx.JSONOutput {
		return writeJSON(ctx.Out, infos)
	}
	if ctx.PlainText {
		names := make([]string, 0, len(infos))
		for _, info := range infos {
			names = append(names, info.Name)
		}
		_, err := fmt.Fprintln(ctx.Out, strings.Join(names, "\n"))
		return err
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "source\tdefault")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%t\n", info.Name, info.Default)
	}
	return tw.Flush()
}
