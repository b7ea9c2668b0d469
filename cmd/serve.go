package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/api"
	"github.com/schemakeep/schemakeep/internal/ws"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog API server",
	Long: `Serve the catalog over HTTP: JSON endpoints for tables, columns,
indexes, statistics and datatypes, plus a WebSocket feed broadcasting
catalog change events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, cfg, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(context.Background())

		logger := stderrLogger()

		hub := ws.NewHub(logger)
		hub.SetSnapshotProvider(func() ([]byte, error) {
			st, err := cat.Status(context.Background())
			if err != nil {
				return nil, err
			}
			return json.Marshal(st)
		})
		go hub.Run()
		cat.SetNotifier(hub)
		defer cat.SetNotifier(nil)

		listen := cfg.Server.Listen
		if serveListen != "" {
			listen = serveListen
		}
		srv := api.New(cat, logger, listen, api.WithHub(hub))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		fmt.Fprintf(os.Stderr, "Schemakeep catalog API: http://%s\n", listen)

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config, 127.0.0.1:7761)")
	rootCmd.AddCommand(serveCmd)
}
