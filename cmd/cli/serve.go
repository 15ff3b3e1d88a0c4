package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nvestad/portsleuth/internal/api"
	"github.com/nvestad/portsleuth/internal/db"
	"github.com/nvestad/portsleuth/internal/logging"
	"github.com/nvestad/portsleuth/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve starts the portsleuth API: scan execution over REST, live result
streaming over websockets, Prometheus metrics, and optional scan history
backed by PostgreSQL. Scheduled scans from the configuration run alongside
the server.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store *db.Store
	if appConfig.API.PersistScans {
		database, err := db.Connect(ctx, &appConfig.Database)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		store = db.NewStore(database)
	}

	if appConfig.Scheduler.Enabled {
		sched, err := scheduler.New(appConfig, store)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	server := api.New(appConfig, store)
	logging.Info("portsleuth API starting", "address", appConfig.APIAddress())
	return server.Start(ctx)
}
