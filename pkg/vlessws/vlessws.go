// Package vlessws provides a small public surface for reusing this
// repository as a library. The implementation lives in internal/ and may
// change without notice.
package vlessws

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"vlessws-gateway/internal"
)

// --- Config ---

type Config = internal.Config
type ListenConfig = internal.ListenConfig
type UserConfig = internal.UserConfig
type DialConfig = internal.DialConfig
type MetricsConfig = internal.MetricsConfig
type LogConfig = internal.LogConfig

// LoadConfig loads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) { return internal.LoadConfig(path) }

// --- Identity ---

type UserID = internal.UserID

func ParseUserID(s string) (UserID, error) { return internal.ParseUserID(s) }

// --- Metrics ---

type Metrics = internal.Metrics

func NewMetrics() *Metrics { return internal.NewMetrics() }

func StartMetricsServer(ctx context.Context, addr string, m *Metrics) error {
	return internal.StartMetricsServer(ctx, addr, m)
}

// --- Logging ---

func NewLogger(level string) (*zap.Logger, error) { return internal.NewLogger(level) }

// --- Gateway server ---

type Dialer = internal.Dialer
type Server = internal.Server

// NewServer builds the gateway's http.Handler from a loaded Config, a
// Metrics registry and a Logger. The caller owns running it, typically via
// (*Server).ListenAndServe.
func NewServer(cfg *Config, m *Metrics, log *zap.Logger) *Server {
	return &internal.Server{
		Users: cfg.UserSet(),
		Path:  cfg.Listen.Path,
		Dialer: &internal.Dialer{
			Timeout: cfg.Dial.Timeout,
			Fwmark:  cfg.Dial.Fwmark,
		},
		Metrics: m,
		Log:     log,
	}
}

var _ http.Handler = (*Server)(nil)
