package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/tabfind/internal/server"
)

var refreshInterval time.Duration

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the data set as a JSON API",
	Long: `Serve loads the source and answers queries over HTTP:

  GET  /api/records?q=&page=&page_size=&f.<column>=<value>
  GET  /api/records/{n}
  GET  /api/filters
  GET  /api/headers
  POST /api/refresh
  GET  /healthz

Queries keep answering from the loaded data while a refresh is running.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().DurationVar(&refreshInterval, "refresh-interval", 0, "refresh the source periodically (0 disables)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	res, err := a.load(loadCtx, false)
	cancel()
	if err != nil {
		// Serve anyway; POST /api/refresh can recover once the source is reachable
		a.logger.Error("initial load failed", "error", err)
	} else {
		a.logger.Info("data loaded", "records", res.Records, "origin", res.Origin, "stale", res.Stale)
	}

	if refreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(refreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := a.pipeline.Refresh(ctx); err != nil {
						a.logger.Warn("periodic refresh failed", "error", err)
					}
				}
			}
		}()
	}

	return server.New(a.pipeline, a.logger).ListenAndServe(ctx, a.cfg.Server.Addr)
}
