// Package server exposes the chat over HTTP: a websocket endpoint for live
// events and a few POST JSON endpoints for rooms and messages.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server defines fields used in HTTP processing
type Server struct {
	logger        *zap.SugaredLogger
	httpServer    *http.Server
	sockets       *sockets
	afterShutdown []func()
}

// New returns Server serving websocket connections through dispatcher and
// room/message endpoints backed by store. Every endpoint except /health requires a bearer token.
func New(logger *zap.SugaredLogger, store RoomStore, authenticator Authenticator, dispatcher Dispatcher, opts ...Option) (*Server, error) {
	if store == nil || authenticator == nil || dispatcher == nil {
		return nil, errors.New("store, authenticator and dispatcher are required")
	}

	h := &handler{
		logger:     logger,
		store:      store,
		auth:       authenticator,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// browsers of the marketplace front-end live on other origins; the token gates access
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sockets: newSockets(),
	}

	c := &config{
		httpServer: &http.Server{Addr: "0.0.0.0:9000"},
		handlers: map[string]http.Handler{
			"/rooms/add":       http.HandlerFunc(h.createRoom),
			"/rooms/get":       http.HandlerFunc(h.roomsByUser),
			"/messages/delete": http.HandlerFunc(h.deleteMessage),
		},
		plain: map[string]http.Handler{
			"/ws":     http.HandlerFunc(h.serveWS),
			"/health": http.HandlerFunc(h.health),
		},
		sendBuffer: 256,
	}

	for _, opt := range opts {
		opt.apply(c)
	}

	for _, opt := range []Option{
		applyEnforcePOSTJSON(),
		applyAuthenticate(authenticator),
		applyLog(logger.Desugar()),
		registerHandlers(),
	} {
		opt.apply(c)
	}

	h.sendBuffer = c.sendBuffer

	return &Server{
		logger:        logger,
		httpServer:    c.httpServer,
		sockets:       h.sockets,
		afterShutdown: c.afterShutdown,
	}, nil
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		s.Shutdown(context.Background())

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	return nil
}

// Shutdown stops accepting requests, closes live websockets and runs registered after-shutdown functions
func (s *Server) Shutdown(ctx context.Context) {
	s.logger.Info("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Errorf("srv.Shutdown: %v", err)
	}
	// hijacked connections are not tracked by http.Server
	s.sockets.closeAll()
	s.sockets.wait()
	s.logger.Info("HTTP server is stopped")

	for _, f := range s.afterShutdown {
		f()
	}
}

// Handler returns the root handler, used by tests to serve without listening
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
