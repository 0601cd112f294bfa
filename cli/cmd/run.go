package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mements/serve/pkg/artifact"
	srvconfig "github.com/Mements/serve/pkg/config"
	"github.com/Mements/serve/pkg/telemetry"
	"github.com/Mements/serve/server"
)

const serviceName = "serve"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the page server",
	Long:  "Starts the HTTP server from the declaration file and blocks until shutdown.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		conf, err := srvconfig.LoadFile(serviceName, cfg.DeclPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			conf.HTTPPort = port
		}
		if dev, _ := cmd.Flags().GetBool("dev"); dev {
			conf.Environment = "development"
		}

		tp, err := telemetry.Setup(ctx, telemetry.Config{
			ServiceName:     serviceName,
			ServiceVersion:  conf.Version,
			Environment:     conf.Environment,
			OTLPEndpoint:    conf.ObserveEndpoint,
			TracingEnabled:  conf.TracingEnabled,
			TracingSampling: conf.TracingSampling,
			LogLevel:        conf.LogLevel,
			LogFormat:       conf.LogFormat,
		})
		if err != nil {
			return fmt.Errorf("failed to setup telemetry: %w", err)
		}
		defer tp.Shutdown(ctx)

		logger := tp.Logger()

		index, closeIndex, err := newIndex(ctx, conf)
		if err != nil {
			return err
		}
		defer closeIndex()

		srv, err := server.New(server.Config{
			Addr:       fmt.Sprintf(":%d", conf.HTTPPort),
			DistDir:    conf.DistDir,
			AssetsDir:  conf.AssetsDir,
			DevMode:    conf.IsDevelopment(),
			Logger:     logger,
			Index:      index,
			Compiler:   newCompiler(conf),
			Imports:    conf.Imports,
			ImportBase: conf.ImportBase,
			Routes:     declaredRoutes(conf),
			// A Redis index is shared with other serving processes and
			// precompile runs; wiping it on start would throw their
			// records away.
			KeepIndex: conf.UseRedisCache(),
		})
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}

		logger.Info("starting page server",
			"port", conf.HTTPPort,
			"env", conf.Environment,
			"routes", len(conf.Routes),
			"cache", string(conf.CacheBackend),
		)

		// Run server (blocks until shutdown)
		return srv.Run(ctx)
	},
}

// newIndex builds the artifact index declared in the config: Redis when
// multiple serving processes share one build-output volume, process memory
// otherwise.
func newIndex(ctx context.Context, conf *srvconfig.Config) (artifact.Index, func(), error) {
	if conf.UseRedisCache() {
		redisCfg := artifact.DefaultRedisConfig()
		redisCfg.Addr = conf.RedisAddr
		redisCfg.Password = conf.RedisPassword
		redisCfg.DB = conf.RedisDB

		idx, err := artifact.ConnectRedis(ctx, redisCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return idx, func() { _ = idx.Close() }, nil
	}
	return artifact.NewMemoryIndex(), func() {}, nil
}

func newCompiler(conf *srvconfig.Config) artifact.Compiler {
	if conf.Build.Command == "" {
		return nil
	}
	return &artifact.ExecCompiler{
		Command: conf.Build.Command,
		Args:    conf.Build.Args,
		OutDir:  conf.Build.OutDir,
	}
}

func declaredRoutes(conf *srvconfig.Config) []server.Route {
	routes := make([]server.Route, 0, len(conf.Routes))
	for _, r := range conf.Routes {
		routes = append(routes, server.Route{Path: r.Route, Source: r.Source})
	}
	return routes
}

func init() {
	runCmd.Flags().Int("port", 0, "Override the HTTP port")
	runCmd.Flags().Bool("dev", false, "Force development mode")
}
