package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kvistad/manhwad/internal/config"
	"github.com/kvistad/manhwad/internal/server"
	"github.com/kvistad/manhwad/internal/ui"
)

var (
	flagListen      string
	flagBaseURL     string
	flagBrowserTabs int
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP scraping API",
		RunE:  runServe,
	}

	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (e.g. :8080)")
	serveCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "upstream site base URL")
	serveCmd.Flags().IntVar(&flagBrowserTabs, "browser-tabs", 0, "max concurrent headless browser tabs")
	serveCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string forwarded on every upstream request")
	serveCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Listen:       flagListen,
		BaseURL:      flagBaseURL,
		BrowserTabs:  flagBrowserTabs,
		Cookie:       flagCookie,
		UserAgent:    flagUserAgent,
	})
	if err != nil {
		return err
	}

	logSvc := ui.NewLogger(cfg.Debug)
	logSvc.Infof("Config: %s\n", usedPath)
	logSvc.Infof("Upstream: %s\n", cfg.BaseURL)
	logSvc.Infof("Listening on %s\n", cfg.Listen)

	srv, err := server.New(cfg, logSvc)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
