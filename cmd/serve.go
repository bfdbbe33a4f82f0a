package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hypecast/internal/config"
	"hypecast/internal/history"
	"hypecast/internal/media"
	"hypecast/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve resolutions over HTTP",
	Long: `Serve runs a small HTTP API:

  GET /resolve?track=<url-or-id>   trace as JSON (404 when absent)
  GET /healthz                     liveness
  GET /metrics                     Prometheus metrics

Send SIGHUP to re-read the session cookie file.`,
	Args: cobra.NoArgs,
	RunE: serveRun,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config: 127.0.0.1:8080)")
}

func serveRun(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r, cred, err := newResolver(reg)
	if err != nil {
		return err
	}

	srvCfg := cfg.Server
	if flagAddr != "" {
		srvCfg.Addr = flagAddr
	}

	var record server.Recorder
	if cfg.History {
		record = func(res media.Resolution) {
			if err := history.Append(res); err != nil {
				logger.Warn("Failed to record history", zap.Error(err))
			}
		}
	}

	srv := server.New(srvCfg, r, reg, record, logger.Named("http"))

	g, gCtx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		return srv.Start(gCtx)
	})

	g.Go(func() error {
		reloadOnHangup(gCtx, cred)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// reloadOnHangup re-reads the cookie on every SIGHUP until ctx ends.
func reloadOnHangup(ctx context.Context, cred *config.Credential) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := cred.Reload(); err != nil {
				logger.Error("Failed to reload session cookie", zap.Error(err))
				continue
			}
			logger.Info("Reloaded session cookie", zap.Bool("present", cred.Require() == nil))
		}
	}
}
