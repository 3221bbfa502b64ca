package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vlessws-gateway/pkg/vlessws"
)

var (
	configPath string
	cfg        *vlessws.Config
)

var rootCmd = &cobra.Command{
	Use:   "vlessws-gateway",
	Short: "Inbound VLESS-over-WebSocket gateway",
	Long: `vlessws-gateway accepts VLESS-over-WebSocket connections, authenticates
clients against a configured user list, and relays traffic to the
requested TCP destination.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = vlessws.LoadConfig(configPath)
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := vlessws.NewLogger(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer log.Sync()

		metrics := vlessws.NewMetrics()
		server := vlessws.NewServer(cfg, metrics, log)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if cfg.Metrics.Addr != "" {
			go func() {
				if err := vlessws.StartMetricsServer(ctx, cfg.Metrics.Addr, metrics); err != nil {
					log.Error("metrics server stopped", zap.Error(err))
				}
			}()
			log.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
		}

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigc
			log.Info("shutting down")
			cancel()
		}()

		log.Info("gateway listening", zap.String("addr", cfg.Listen.Addr), zap.String("path", cfg.Listen.Path))
		return server.ListenAndServe(ctx, cfg.Listen.Addr)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration without starting the gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("config ok: %d user(s), listening on %s%s\n",
			len(cfg.Users), cfg.Listen.Addr, cfg.Listen.Path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
