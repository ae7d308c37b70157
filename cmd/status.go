package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/homeboard/internal/server"
)

type providerMode struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// Status prints whether each provider serves live or mock data with the current config.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := r.open(ctx, config)
	if err != nil {
		return err
	}
	defer a.close()

	modes := make([]providerMode, 0, len(a.providers()))
	for _, s := range a.providers() {
		modes = append(modes, providerMode{Name: s.Name(), Mode: server.ProviderMode(s)})
	}

	if cmd.Bool("json") {
		return r.writeJSON(modes, true)
	}

	rows := make([][]string, 0, len(modes))
	for _, m := range modes {
		rows = append(rows, []string{m.Name, m.Mode})
	}
	r.writePlain("%s\n", renderTable([]string{"Provider", "Mode"}, rows, nil))
	return r.writePlain("Storage: %s (%s)\n", config.Storage.Backend, config.Storage.DataDir)
}
