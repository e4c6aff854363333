package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sensorflow/sensorflow/api"
	"github.com/sensorflow/sensorflow/artifact"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve per-machine fitting and scoring over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		c := cfg
		if cmd.Flags().Changed("addr") {
			c.Serve.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("store") {
			c.Store.Location, _ = cmd.Flags().GetString("store")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runServe(ctx, c); err != nil {
			logrus.Fatalf("serve failed: %v", err)
		}
	},
}

// newAPIServer builds the API server and reloads any stored models.
func newAPIServer(ctx context.Context, c Config) (*api.Server, error) {
	var store artifact.Store
	if c.Store.Location != "" {
		s, err := artifact.OpenStore(c.Store.Location, c.Store.Region)
		if err != nil {
			return nil, err
		}
		store = s
	}
	srv := api.NewServer(store, c.Fit, c.Classifier)
	if err := srv.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restoring models: %w", err)
	}
	return srv, nil
}

func runServe(ctx context.Context, c Config) error {
	srv, err := newAPIServer(ctx, c)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              c.Serve.Addr,
		Handler:           api.Handler(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logrus.Infof("listening on %s", c.Serve.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().String("addr", DefaultConfig().Serve.Addr, "Listen address")
	serveCmd.Flags().String("store", "", "Model store: a directory or s3://bucket/prefix")
	rootCmd.AddCommand(serveCmd)
}
