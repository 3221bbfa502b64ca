package internal

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server accepts inbound VLESS-over-WebSocket sessions on a single HTTP
// path — one goroutine per connection, shared metrics and logger, no
// per-connection state surviving the session.
type Server struct {
	Users   map[UserID]string
	Path    string
	Dialer  *Dialer
	Metrics *Metrics
	Log     *zap.Logger
}

// ServeHTTP implements http.Handler. A request for any path other than the
// configured one gets a minimal 404; a request on the configured path is
// handed to the WebSocket upgrade, which answers non-upgrade requests with
// its own error response.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.Path {
		http.NotFound(w, r)
		return
	}

	earlyData, err := extractEarlyData(r)
	if err != nil {
		s.Metrics.RecordRejected("early_data")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Echo the client's offered protocol back verbatim so the handshake
	// completes; the value itself is the base64url early-data payload, not
	// a real subprotocol name, so there is nothing to negotiate.
	var subprotocols []string
	if p := r.Header.Get("Sec-WebSocket-Protocol"); p != "" {
		subprotocols = []string{p}
	}

	ws, err := AcceptWebSocket(w, r, subprotocols)
	if err != nil {
		s.Metrics.RecordRejected("upgrade")
		s.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s.Metrics.SessionStarted()
	start := time.Now()
	ctx := r.Context()

	req, sessErr := HandleSession(ctx, ws, earlyData, s.Users, s.Dialer, s.Metrics)
	s.Metrics.SessionEnded(time.Since(start))

	if sessErr != nil && KindOf(sessErr) == ConnectionAborted {
		s.Metrics.RecordDialFailure(FailureReason(sessErr))
	}
	if sessErr != nil && KindOf(sessErr) == InvalidData {
		s.Metrics.RecordRejected("handshake")
	}

	code, reason, explicit := CloseCodeFor(sessErr)
	if !explicit {
		code, reason = WSCloseNormalClosure, "done"
	}

	logFields := []zap.Field{zap.Duration("duration", time.Since(start))}
	if req != nil {
		logFields = append(logFields, zap.String("user", req.User), zap.String("target", req.Address))
	}
	switch {
	case sessErr == nil:
		s.Log.Info("session closed", logFields...)
	case shouldLogAsWarning(sessErr):
		s.Log.Warn("session rejected", append(logFields, zap.Error(sessErr))...)
	default:
		s.Log.Error("session failed", append(logFields, zap.Error(sessErr))...)
	}

	_ = ws.Close(code, reason)
}

// extractEarlyData reads the Sec-WebSocket-Protocol header and decodes any
// early-data payload it carries. An empty header is not an error — the
// client simply sent none.
func extractEarlyData(r *http.Request) ([]byte, error) {
	header := r.Header.Get("Sec-WebSocket-Protocol")
	if header == "" {
		return nil, nil
	}
	return DecodeEarlyData(header)
}

// ListenAndServe runs the gateway's main HTTP listener until ctx is
// canceled, the same "own http.Server, cancel-triggered Shutdown" shape
// StartMetricsServer uses for the metrics listener.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	err := srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
