package cli

import (
	"github.com/spf13/cobra"

	"github.com/didact-labs/didact/internal/adapters/driving/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query API",
	Long: `Start an HTTP server exposing the question answering pipeline.

Endpoints:
  POST /query    {"query": "..."} returns the answer with references
  GET  /healthz  liveness check

Examples:
  didact serve
  didact serve --addr 0.0.0.0:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", httpapi.DefaultAddr, "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := getQueryService()
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(svc)
	if err != nil {
		return err
	}

	watchPrompts(cmd.Context())
	cmd.Printf("HTTP API listening on http://%s\n", serveAddr)
	return server.Run(cmd.Context(), serveAddr)
}
