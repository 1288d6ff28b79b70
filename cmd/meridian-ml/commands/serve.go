package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/meridian-news/meridian-ml/am"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
	"github.com/meridian-news/meridian-ml/server"
)

// ServeCmd starts the HTTP API
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the embedding and clustering HTTP API",
	Long: `Start the HTTP API serving POST /embeddings and POST /cluster.

The project am.toml is watched; changes to the auth token, rate limit,
default min_cluster_size, CORS origins, timeouts and body limit apply
without a restart.`,
	RunE: runServe,
}

var (
	servePort    int
	serveNoWatch bool
)

func init() {
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
	ServeCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not watch the project config for changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")
	log := logger.Logger

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	emb, err := startEmbeddings(cfg.Embeddings, log)
	if err != nil {
		return err
	}
	defer emb.Close()

	srv, err := server.New(cfg, engineFromConfig(cfg.Clustering, log), emb, log)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}
	if !serveNoWatch {
		srv.WatchConfig(am.ProjectConfigPath())
	}

	printStartupBanner(cfg, verbosity)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if err != nil {
			return errors.Wrap(err, "server stopped unexpectedly")
		}
		return nil
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
			defer cancel()
			shutdownDone <- srv.Stop(ctx)
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return errors.Wrap(err, "shutdown error")
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("Force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}
