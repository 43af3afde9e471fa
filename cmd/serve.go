package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/metroscore/internal/api"
	"github.com/sells-group/metroscore/internal/scoring"
)

var servePort int

// drainTimeout bounds how long in-flight ranking requests may finish after
// SIGINT or SIGTERM.
const drainTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ranking HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, "serve")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		router := api.New(st, scoring.NewEngine(cfg.Scoring), cfg.Server).Router()
		srv := &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Server.Port)),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("serve: listening",
				zap.String("addr", srv.Addr),
				zap.String("store", cfg.Store.Driver),
			)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "serve: listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("serve: draining", zap.Duration("timeout", drainTimeout))
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), drainTimeout)
			defer cancel()
			return eris.Wrap(srv.Shutdown(drainCtx), "serve: shutdown")
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
