package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/matsen/citegraph/internal/auth"
	"github.com/matsen/citegraph/internal/metrics"
	"github.com/matsen/citegraph/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveListen        string
	serveSecureCookies bool
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config listen_addr)")
	serveCmd.Flags().BoolVar(&serveSecureCookies, "secure-cookies", false, "Mark session cookies Secure (behind HTTPS)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web interface and JSON API",
	Long: `Serve the citation graph web interface and JSON API.

Admins log in with POST /api/v1/login and work on their active topic.
GET /graph renders the active topic's graph; GET /metrics exposes
Prometheus metrics. Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.ListenAddr
	if serveListen != "" {
		addr = serveListen
	}

	db := mustOpenDatabase()
	defer db.Close()

	m := metrics.NewCollector("citegraph")
	client := newClient(m)
	cache := newCache(client, m)

	authSvc := auth.NewService(db,
		auth.WithSessionTTL(cfg.SessionTTL),
		auth.WithLogger(logger),
	)

	srv := server.New(db, authSvc, client, cache, logger,
		server.WithMetrics(m),
		server.WithSecureCookies(serveSecureCookies),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, addr); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return nil
}
