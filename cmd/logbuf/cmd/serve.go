/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/logbuf/pkg/api"
	"github.com/ssargent/logbuf/pkg/source"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [capture]",
	Short: "Decode a capture and serve its records over HTTP",
	Long: `Decode a capture once and serve the records read-only through the REST API.
A damaged capture is still served; /api/v1/pass reports how decoding ended.

Examples:
  logbuf serve capture.bin
  logbuf serve --port 9000 --api-key mysecretkey capture.bin.gz`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := source.Stdin
		if len(args) == 1 {
			path = args[0]
		}

		cfg := container.Config()
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			cfg.Server.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if err := applyDecodeFlags(cmd, cfg); err != nil {
			return err
		}
		startOffset, _ := cmd.Flags().GetInt64("start-offset")

		records, result, err := loadCapture(container, path, startOffset)
		if err != nil {
			return err
		}
		// A damaged capture is still served
		if err := reportPass(cmd.ErrOrStderr(), container.Logger(), path, result, true); err != nil {
			return err
		}

		if cfg.Server.APIKey == "" {
			cmd.PrintErrln("Warning: no API key configured, /api/v1 is unauthenticated")
		}

		server := container.NewServer(records, api.NewPassSummary(path, result))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Printf("🚀 Serving %d records on %s:%d\n", records.Len(), cfg.Server.Bind, cfg.Server.Port)
		return container.StartServer(ctx, server)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addDecodeFlags(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().String("api-key", "", "API key required in the X-API-Key header")
}
