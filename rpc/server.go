package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/govm-net/counter/chain"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// NewJSONRPCHandler serves the counter service
func NewJSONRPCHandler(c *chain.Chain, log *zap.Logger) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")
	return server, server.RegisterService(NewJSONRPCServer(c, log), Name)
}

// NewHandler routes JSON-RPC and, when gatherer is set, prometheus metrics
func NewHandler(c *chain.Chain, gatherer prometheus.Gatherer, allowedOrigins []string, log *zap.Logger) (http.Handler, error) {
	jsonrpc, err := NewJSONRPCHandler(c, log)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Handle(JSONRPCEndpoint, jsonrpc).Methods(http.MethodPost)
	if gatherer != nil {
		router.Handle(MetricsEndpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
	}).Handler(router), nil
}

// Server serves a handler on a listener
type Server struct {
	log      *zap.Logger
	srv      *http.Server
	listener net.Listener
}

func NewServer(listener net.Listener, handler http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log: log,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
	}
}

// Addr returns the listening address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Dispatch serves until Shutdown is called
func (s *Server) Dispatch() error {
	s.log.Info("API listening", zap.Stringer("address", s.listener.Addr()))
	err := s.srv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
