package cli

import (
	"github.com/spf13/cobra"

	"github.com/voltlab/distflow/internal/api"
	"github.com/voltlab/distflow/pkg/cache"
	"github.com/voltlab/distflow/pkg/pipeline"
	"github.com/voltlab/distflow/pkg/store"
)

// serveCommand creates the serve command: the solver as an HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		redisURL string
		mongoURI string
		mongoDB  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the distflow HTTP API",
		Long: `Serve exposes the solver over HTTP: POST /v1/solve accepts a network
model and returns per-bus voltages. With --redis-url solve results are
cached in Redis instead of on disk; with --mongo-uri each run is
recorded and GET /v1/runs serves the history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if addr == "" {
				addr = c.Config.Serve.Addr
			}
			if redisURL == "" {
				redisURL = c.Config.Serve.RedisURL
			}
			if mongoURI == "" {
				mongoURI = c.Config.Serve.MongoURI
			}
			if mongoDB == "" {
				mongoDB = c.Config.Serve.MongoDB
			}

			var back cache.Cache
			if redisURL != "" {
				rc, err := cache.NewRedisCache(ctx, redisURL)
				if err != nil {
					return err
				}
				back = rc
				logger.Info("using redis cache")
			} else {
				fc, err := c.newCache(false)
				if err != nil {
					return err
				}
				back = fc
			}
			runner := pipeline.NewRunner(back, logger)
			defer runner.Close()

			var st *store.Store
			if mongoURI != "" {
				s, err := store.New(ctx, mongoURI, mongoDB)
				if err != nil {
					return err
				}
				st = s
				defer st.Close(ctx)
				logger.Info("run history enabled", "db", mongoDB)
			}

			srv := api.New(api.Config{
				Addr:   addr,
				Runner: runner,
				Store:  st,
				Logger: logger,
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "redis URL for the solve cache (e.g. redis://localhost:6379/0)")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI for run history")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", "", "MongoDB database name (default distflow)")

	return cmd
}
