// Package serve implements the command that runs the HTTP service.
package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/api"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/conf"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/consensus"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/observability"
)

// Command creates the serve command which runs the consensus HTTP service.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the consensus HTTP service",
		Long:  "Open the datastore, run schema migration and serve the consensus API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port",
		viper.GetString("webserver.port"), "Port for the HTTP server")
	cmd.Flags().BoolVar(&settings.WebServer.Debug, "webdebug",
		viper.GetBool("webserver.debug"), "Enable web server debug logging")

	_ = viper.BindPFlags(cmd.Flags())
}

func runServer(settings *conf.Settings) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		_ = ds.Close()
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	engine := consensus.New(ds, settings.Consensus, metrics.Consensus)

	server, err := api.New(settings,
		api.WithDataStore(ds),
		api.WithEngine(engine),
		api.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	return server.StartWithGracefulShutdown()
}
