package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/dMerge/api"
	cmdUtil "github.com/ValentinKolb/dMerge/cmd/util"
	"github.com/ValentinKolb/dMerge/lib/config"
	"github.com/ValentinKolb/dMerge/lib/fetch"
	"github.com/ValentinKolb/dMerge/lib/logger"
	"github.com/ValentinKolb/dMerge/lib/pipeline"
	"github.com/ValentinKolb/dMerge/lib/store"
	"github.com/ValentinKolb/dMerge/lib/store/memstore"
	"github.com/ValentinKolb/dMerge/lib/store/sqlstore"
)

var (
	serveCmdConfig = &config.Config{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dMerge server",
		Long:    `Start the dMerge server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DMERGE_<flag> (e.g. DMERGE_MAX_RETRIES=3)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address on which the API will listen (e.g. 0.0.0.0:8080) - required"))

	key = "db"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Store connection string: a SQLite file path/DSN, or mem:// for a non-durable in-memory store - required"))

	key = "data-b-url"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("URL of the remote DATA B source - required"))

	key = "fetch-interval"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Interval in seconds between two scheduled refresh runs - required"))

	key = "max-retries"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Total number of attempts to fetch DATA B before falling back to the cached value - required"))

	key = "retry-delay"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Delay in seconds between two fetch attempts"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Cap on the number of OS threads executing Go code (GOMAXPROCS, 0 = runtime default)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and
// environment variables and converts them to the service configuration.
// Missing required values are a fatal startup error.
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.StoreDSN = viper.GetString("db")
	serveCmdConfig.DataBURL = viper.GetString("data-b-url")
	serveCmdConfig.FetchInterval = time.Duration(viper.GetInt("fetch-interval")) * time.Second
	serveCmdConfig.MaxRetries = viper.GetInt("max-retries")
	serveCmdConfig.RetryDelay = time.Duration(viper.GetInt("retry-delay")) * time.Second
	serveCmdConfig.Workers = viper.GetInt("workers")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if err := serveCmdConfig.Validate(); err != nil {
		return err
	}

	return logger.SetLevel(serveCmdConfig.LogLevel)
}

// run starts the dMerge server: store, pipeline, scheduler and HTTP API.
func run(_ *cobra.Command, _ []string) error {
	log := logger.Get("serve")
	log.Info("starting dMerge" + serveCmdConfig.String())

	if serveCmdConfig.Workers > 0 {
		runtime.GOMAXPROCS(serveCmdConfig.Workers)
	}

	// open the store
	s, err := openStore(serveCmdConfig.StoreDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Error("failed to close store", "err", err)
		}
	}()

	// wire the pipeline
	fetcher := fetch.NewFetcher(
		serveCmdConfig.DataBURL,
		serveCmdConfig.MaxRetries,
		serveCmdConfig.RetryDelay,
		s,
	)
	service := pipeline.NewService(s, fetcher)

	// the scheduler drives the periodic refresh, the HTTP server the
	// on-demand path - both funnel through the same service
	scheduler := pipeline.NewScheduler(serveCmdConfig.FetchInterval, service.FetchAndMerge)
	server := api.NewServer(serveCmdConfig.Endpoint, service)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		scheduler.Stop()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	// stop accepting new requests, then drain the scheduler
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down HTTP server", "err", err)
	}
	scheduler.Stop()

	log.Info("all services stopped")
	return nil
}

// openStore creates the store backend matching the connection string.
func openStore(dsn string) (store.IStore, error) {
	if dsn == store.MemDSN {
		return memstore.NewMemoryStore(), nil
	}
	if strings.Contains(dsn, "://") {
		return nil, fmt.Errorf("unsupported store DSN %q (expected %q or a SQLite path)", dsn, store.MemDSN)
	}
	return sqlstore.NewSQLiteStore(dsn)
}
