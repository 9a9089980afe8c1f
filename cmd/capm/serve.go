package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/graygillman/CapmAnalysis/service/core"
	"github.com/graygillman/CapmAnalysis/service/scheduler"
)

const (
	shutdownTimeout = 10 * time.Second
	syncJobTimeout  = 30 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis over HTTP and the text message webhook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		// listen for interrupt and term signals
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := newApplication(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()

		if cfg.Sync.Schedule != "" {
			if app.sc.Syncer == nil {
				log.Warn().Msg("sync.schedule is set but there is no database to sync into")
			} else {
				sched := scheduler.New(ctx, syncJobTimeout, log)
				if err := sched.AddJob(cfg.Sync.Schedule, scheduler.NewSyncJob(app.sc, log)); err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
			}
		}

		s := core.GetHttpServer(app.sc, core.ServerOptions{
			Addr:           cfg.Server.Addr,
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
		})

		errs := make(chan error, 1)
		go func() {
			log.Info().Str("addr", s.Addr).Msg("starting capm server")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
			close(errs)
		}()

		// wait here until ctrl+C or the server fails to start
		select {
		case <-ctx.Done():
			log.Info().Msg("received shutdown signal, shutting down gracefully")
		case err := <-errs:
			if err != nil {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}

		log.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides server.addr")
}
