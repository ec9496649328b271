package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	httptransport "github.com/custodia-labs/lexgraph/internal/adapters/driving/http"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Endpoints:
  POST /actions/search-items
  POST /actions/resolve-temporal-scope
  POST /actions/get-valid-version
  POST /actions/search-text-units
  POST /actions/answer
  POST /actions/answer-orchestrated
  GET  /health, /ready, /metrics

The server stops gracefully on interrupt.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	rt, err := runtimeFor(cmd)
	if err != nil {
		return err
	}

	server, err := httptransport.NewServer(&httptransport.Ports{
		Actions:   rt.Actions,
		Answers:   rt.Answers,
		Readiness: rt.Readiness,
		Metrics:   rt.Metrics,
		Gatherer:  rt.Gatherer,
	}, httptransport.Config{
		RequestTimeout:     time.Duration(settings.Server.RequestTimeoutSeconds) * time.Second,
		RateLimitPerMinute: settings.Server.RateLimitPerMinute,
	})
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = settings.Server.Addr
	}
	cmd.Printf("HTTP API listening on http://%s\n", addr)
	return server.Run(contextOf(cmd), addr)
}
