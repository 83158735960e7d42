package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	pz "github.com/weberc2/httpeasy"
)

// Server serves an `HTTPService` until its context is canceled.
type Server struct {
	Service *HTTPService
	Logger  *slog.Logger

	// AccessLog receives one JSON line per request.
	AccessLog io.Writer
}

func (s *Server) Handler() http.Handler {
	return pz.Register(pz.JSONLog(s.AccessLog), s.Service.Routes()...)
}

// Run serves on `addr`. When `ctx` is canceled, the HTTP server is shut
// down, then every running search is canceled and its outcome recorded.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.Logger.Info("starting api", "addr", addr)
	server := http.Server{Addr: addr, Handler: s.Handler()}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		// create a new, non-canceled context with a 5 second timeout to
		// gracefully shut down the http server.
		ctx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			s.Logger.Error("shutting down http server", "err", err.Error())
			if err := server.Close(); err != nil {
				s.Logger.Error(
					"force-closing http server",
					"err", err.Error(),
				)
			}
		}
		if err := s.Service.Manager.Shutdown(ctx); err != nil {
			s.Logger.Error("stopping searches", "err", err.Error())
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(
		err,
		http.ErrServerClosed,
	) {
		return fmt.Errorf("running api server: %w", err)
	}
	<-stopped
	s.Logger.Info("api stopped")
	return nil
}
