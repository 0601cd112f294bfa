package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mements/serve/cli/internal/output"
	"github.com/Mements/serve/pkg/artifact"
	srvconfig "github.com/Mements/serve/pkg/config"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Precompile every declared page route",
	Long: `Runs the build command for each declared route and publishes the
produced artifacts to the configured index. With a Redis index the
records survive into later server starts, so a production server serves
precompiled routes without compiling on the first request; it also works
as a CI check that every declared route builds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		conf, err := srvconfig.LoadFile(serviceName, cfg.DeclPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if len(conf.Routes) == 0 {
			output.Info("no routes declared in %s", cfg.DeclPath)
			return nil
		}

		compiler := newCompiler(conf)
		if compiler == nil {
			return fmt.Errorf("no build command declared in %s", cfg.DeclPath)
		}

		index, closeIndex, err := newIndex(ctx, conf)
		if err != nil {
			return err
		}
		defer closeIndex()

		// Dev mode forces a fresh compile for every route regardless of
		// existing index records.
		cache := artifact.NewCache(index, compiler, artifact.WithDevMode(true))

		table := output.Table{
			Headers: []string{"ROUTE", "SOURCE", "ARTIFACT"},
		}
		var failed int
		for _, route := range conf.Routes {
			path, err := cache.Artifact(ctx, route.Source)
			if err != nil {
				output.Error("%s: %v", route.Route, err)
				failed++
				continue
			}
			table.Rows = append(table.Rows, []string{route.Route, route.Source, path})
		}

		if cfg.Format == "json" || cfg.Format == "yaml" {
			w := output.NewWriter(cfg.Format)
			rows := make([]map[string]string, len(table.Rows))
			for i, row := range table.Rows {
				rows[i] = map[string]string{"route": row[0], "source": row[1], "artifact": row[2]}
			}
			if err := w.Print(rows); err != nil {
				return err
			}
		} else if len(table.Rows) > 0 {
			w := output.NewWriter("table")
			if err := w.Print(table); err != nil {
				return err
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d routes failed to build", failed, len(conf.Routes))
		}
		output.Success("built %d routes", len(table.Rows))
		return nil
	},
}
