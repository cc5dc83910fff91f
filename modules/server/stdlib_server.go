// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

const MAX_TCP_PORT = 1<<16 - 1

type (
	// RegistrableService mounts its routes on the shared mux and contributes
	// middlewares wrapped around the whole server.
	RegistrableService interface {
		Register(mux *http.ServeMux)
		Middlewares() []func(http.Handler) http.Handler
	}

	Server struct {
		server *http.Server
		mux    *http.ServeMux
		host   string
		port   uint16

		// applied around the mux in declaration order
		middlewares []func(http.Handler) http.Handler

		services []RegistrableService

		shutdownTimeout time.Duration
	}

	ServerOptions func(*Server)
)

func WithWriteTimeout(t time.Duration) ServerOptions {
	return func(s *Server) {
		if t <= 0 {
			t = 10 * time.Second
		}
		s.server.WriteTimeout = t
	}
}

func WithReadTimeout(t time.Duration) ServerOptions {
	return func(s *Server) {
		if t <= 0 {
			t = 10 * time.Second
		}
		s.server.ReadTimeout = t
	}
}

// WithMux supplies the mux instead of allocating one, so that middlewares
// built before the server can resolve route patterns against it.
func WithMux(mux *http.ServeMux) ServerOptions {
	return func(s *Server) {
		if mux != nil {
			s.mux = mux
		}
	}
}

func WithServices(svcs ...RegistrableService) ServerOptions {
	return func(s *Server) {
		s.services = append(s.services, svcs...)
	}
}

// WithGlobalMiddlewares wraps the mux; the first middleware is the outermost.
func WithGlobalMiddlewares(mw ...func(http.Handler) http.Handler) ServerOptions {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, mw...)
	}
}

func WithShutdownTimeout(d time.Duration) ServerOptions {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

//	srv, _ := New("0.0.0.0", 8080, WithWriteTimeout(10*time.Second))
func New(host string, port int, opts ...ServerOptions) (*Server, error) {
	if host == "" {
		slog.Warn("empty host, binding to all interfaces")
		host = "0.0.0.0"
	}
	if port <= 0 || port > MAX_TCP_PORT {
		return nil, fmt.Errorf("server: bad port %d", port)
	}
	s := &Server{
		host:            host,
		port:            uint16(port),
		mux:             http.NewServeMux(),
		shutdownTimeout: 10 * time.Second,
		server: &http.Server{
			Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, svc := range s.services {
		svc.Register(s.mux)
		s.middlewares = append(s.middlewares, svc.Middlewares()...)
		slog.Info("registered service", slog.String("type", fmt.Sprintf("%T", svc)))
	}

	s.server.Handler = s.Handler()
	return s, nil
}

// Handler returns the mux wrapped in every middleware.
func (s *Server) Handler() http.Handler {
	handler := http.Handler(s.mux)
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		handler = s.middlewares[i](handler)
	}
	return handler
}

// Run serves until ctx is cancelled or the listener fails, then drains
// in-flight requests for up to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "started server", slog.String("host", s.host), slog.Int("port", int(s.port)))
		errCh <- s.server.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "server error", slog.Any("error", err))
			serveErr = err
		}
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "shutting down...")
	dCtx, dCancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer dCancel()
	return errors.Join(serveErr, s.server.Shutdown(dCtx))
}
