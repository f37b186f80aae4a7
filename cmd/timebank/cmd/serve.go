package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"afd-timebank/cmd/timebank/config"
	"afd-timebank/internal/server"
	"afd-timebank/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listenAddress string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve parsing, day computation and reports over HTTP",
	Long: `Serve starts an HTTP server exposing the parser, the day calculator and
the report renderer. Requests carry the AFD content themselves; the
schedule section of the config file is the default for requests that do
not send one, and is reloaded when the file changes.

Routes:
  GET  /health
  GET  /api/v1/schedule
  POST /api/v1/parse
  POST /api/v1/timesheets
  POST /api/v1/report?format=xlsx
  POST /api/v1/days/compute
  POST /api/v1/days/edit

Examples:
  timebank serve
  timebank serve --address :9090 --config timebank.yaml`,

	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddress, "address", "", "listen address (default :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	log := logger.GetGlobalLogger().WithComponent("cli")

	serverConfig, err := config.CreateServerConfig(v)
	if err != nil {
		return err
	}
	parseConfig, err := config.CreateParseConfig(v)
	if err != nil {
		return err
	}
	matchingConfig, err := config.CreateMatchingConfig(v)
	if err != nil {
		return err
	}
	serviceConfig, err := config.CreateServiceConfig(v)
	if err != nil {
		return err
	}
	schedule, err := config.CreateScheduleConfig(v)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(serverConfig, serviceConfig, parseConfig, matchingConfig)
	if err != nil {
		return err
	}
	if err := srv.UpdateSchedule(schedule); err != nil {
		return err
	}

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			reloadSchedule(srv, v, e, log)
		})
		v.WatchConfig()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// reloadSchedule applies the schedule section of a changed config file. An
// invalid file keeps the previous schedule.
func reloadSchedule(srv *server.Server, v *viper.Viper, e fsnotify.Event, log logger.Logger) {
	log = log.WithFields(logger.Fields{"config_file": e.Name, "op": e.Op.String()})

	schedule, err := config.CreateScheduleConfig(v)
	if err != nil {
		log.WithError(err).Warn("Config file changed but the schedule is invalid, keeping the previous one")
		return
	}
	if err := srv.UpdateSchedule(schedule); err != nil {
		log.WithError(err).Warn("Failed to apply reloaded schedule")
	}
}
