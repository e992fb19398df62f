package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"gitlab.com/dutbench.net/internal/adapter/batchconfig"
	"gitlab.com/dutbench.net/internal/adapter/crypto"
	"gitlab.com/dutbench.net/internal/adapter/driver/mockdriver"
	"gitlab.com/dutbench.net/internal/adapter/instrument"
	"gitlab.com/dutbench.net/internal/adapter/metrics"
	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/services/batch"
	"gitlab.com/dutbench.net/internal/core/services/normalize"
	"gitlab.com/dutbench.net/internal/core/services/report"
	"gitlab.com/dutbench.net/internal/core/services/status"
	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/handlers"
	http2 "gitlab.com/dutbench.net/internal/http"
	"gitlab.com/dutbench.net/internal/tcp"
	"gitlab.com/dutbench.net/internal/tcp/client"
)

const shutdownTimeout = 5 * time.Second

func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return batchconfig.DefaultPath
}

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the DUT control server on the mock I2C driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var driverOpts []mockdriver.Option
			if slave := a.cfg.DutServerCfg.FailSlave; slave != nil {
				driverOpts = append(driverOpts, mockdriver.FailAddress(*slave))
			}
			driver := mockdriver.New(a.logger.Named("driver"), driverOpts...)
			controlMetrics := metrics.NewControlMetrics()

			server := tcp.NewTCPServer(driver, a.logger.Named("tcp"),
				tcp.WithAddress(a.cfg.DutServerCfg.Address),
				tcp.WithReadBufferSize(a.cfg.DutServerCfg.ReadBufferSize),
				tcp.WithMetrics(controlMetrics),
			)
			if err := server.Start(); err != nil {
				return err
			}

			var metricsSrv *http.Server
			if addr := a.cfg.DutServerCfg.MetricsAddr; addr != "" {
				metricsSrv = startMetricsServer(addr, controlMetrics, a.logger)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			a.logger.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if metricsSrv != nil {
				_ = metricsSrv.Shutdown(shutdownCtx)
			}
			if err := server.Stop(shutdownCtx); err != nil {
				a.logger.Error("Server forced to shutdown", "error", err)
				return err
			}
			a.logger.Info("successfully shutdown server")
			return nil
		},
	}
}

func startMetricsServer(addr string, m *metrics.ControlMetrics, logger primary.Logger) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", m.Handler()).Methods("GET")

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("Metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", "error", err)
		}
	}()
	return srv
}

func newBatchCommand(a *app) *cobra.Command {
	var (
		noColor    bool
		simResults string
	)

	cmd := &cobra.Command{
		Use:   "batch [config]",
		Short: "Run every configured run in order and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(args)
			cfg, err := batchconfig.Load(path)
			if err != nil {
				a.logger.Error("Failed to load batch config", "path", path, "error", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := setupStores(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			dutClient := client.NewDutControlClient(
				cfg.CommonSettings.DutServerAddress,
				cfg.CommonSettings.DutServerPort,
				a.logger.Named("client"),
				client.WithTimeout(a.cfg.ClientCfg.Timeout),
			)

			var simOpts []instrument.SimulatedOption
			if simResults != "" {
				simOpts = append(simOpts, instrument.WithResults(simResults))
			}
			controller := instrument.NewController(
				instrument.SimulatedConnector(a.logger.Named("instrument"), simOpts...),
				a.logger.Named("instrument"),
			)

			var opts []batch.Option
			if repo := st.outcomeRepository(); repo != nil {
				opts = append(opts, batch.WithOutcomeRepository(repo))
			}
			if repo := st.runStateRepository(); repo != nil {
				opts = append(opts, batch.WithRunStateRepository(repo))
			}

			result, err := batch.NewBatchService(dutClient, controller, a.logger.Named("batch"), opts...).RunBatch(ctx, cfg)
			if err != nil {
				return err
			}

			return printReport(cmd, cfg, result, !noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable coloured report output")
	cmd.Flags().StringVar(&simResults, "sim-results", "", "raw results the simulated instrument returns")
	return cmd
}

func printReport(cmd *cobra.Command, cfg *domain.BatchConfig, result *domain.BatchResult, colored bool) error {
	reporter := report.NewReportService(report.WithColor(colored))
	rep := reporter.Aggregate(cfg.Runs, result.Outcomes)

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "\nBatch %s\n\n", result.ID); err != nil {
		return err
	}
	return reporter.Render(out, rep)
}

func newSendCommand(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "send <command> [args...]",
		Short: "Send one raw control command and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewDutControlClient(host, port, a.logger, client.WithTimeout(a.cfg.ClientCfg.Timeout))
			resp, err := c.SendCommand(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resp)
			return err
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "DUT server host")
	cmd.Flags().IntVar(&port, "port", domain.DefaultDutServerPort, "DUT server port")
	return cmd
}

func newNormalizeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [config]",
		Short: "Give every run the full register set of the reference run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := normalize.NewNormalizeService(a.logger, nil)
			changed, err := svc.FillMissing(cmd.Context(), configPath(args))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d run(s) updated\n", changed)
			return err
		},
	}
}

func newUpdateDefaultsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update-defaults [config]",
		Short: "Rewrite register lines marked as defaults to the current default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := normalize.NewNormalizeService(a.logger, nil)
			changed, err := svc.UpdateDefaults(cmd.Context(), configPath(args))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d line(s) updated\n", changed)
			return err
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Serve the batch status HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := setupStores(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			reporter := report.NewReportService()
			statusSvc := status.NewStatusService(st.outcomeRepository(), st.runStateRepository(), reporter, a.logger)
			provider := http2.NewServiceProvider(statusSvc, reporter)

			server := http2.NewServer(
				a.cfg.HTTPConfig.Port,
				a.cfg.HTTPConfig.Name,
				*provider,
				handlers.NewMiddlewareProvider(a.cfg.JwtConfig.Secret),
				a.logger.Named("http"),
			)
			if err := server.Init(); err != nil {
				return err
			}
			if err := server.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Stop(shutdownCtx)
		},
	}
}

func newTokenCommand(a *app) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := crypto.NewJWTService(a.cfg.JwtConfig).GenerateTokenHMAC(cmd.Context(), subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "bench-operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
