// Package server is the HTTP daemon that exercises the logging subsystem:
// every request passes the correlation middleware and ends up as one record
// in the request sink.
package server

import (
	"context"
	stderrs "errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Station-Manager/errors"
	logging "github.com/Station-Manager/weblog"
	"github.com/Station-Manager/weblog/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second

	errMsgNilService = "Logging service is not initialized."
	errMsgListen     = "Failed to listen."
	errMsgServe      = "Server stopped unexpectedly."
	errMsgShutdown   = "Graceful shutdown failed."
)

// Server owns the router and the http.Server. Loggers come from the
// logging Service; nothing is global.
type Server struct {
	cfg *config.Config
	svc *logging.Service

	appLog  *logging.Logger
	jsonLog *logging.Logger
	reqLog  *logging.Logger

	handler http.Handler
}

// New builds the handler chain. The request middleware wraps everything so
// that responses from the router, CORS and the rate limiter are all logged.
func New(cfg *config.Config, svc *logging.Service) (*Server, error) {
	const op errors.Op = "server.New"
	if cfg == nil || svc == nil || svc.AppSink() == nil {
		return nil, errors.New(op).Msg(errMsgNilService)
	}

	s := &Server{
		cfg:     cfg,
		svc:     svc,
		appLog:  svc.Logger(logging.ChannelApp),
		jsonLog: svc.Logger(logging.ChannelCatchJSON),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(svc.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/echo", s.handleEcho).Methods(http.MethodPost)
	s.appLog.Info("Routes registered for /api/v1")
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	var h http.Handler = r

	mw := cfg.Options.Middlewares
	if mw.RateLimiter {
		rl := newRateLimiter(cfg.Server.Rate.Limit, cfg.Server.Rate.RateWindow(), svc.Logger(logging.ChannelRate))
		h = rl.middleware(h)
		s.appLog.Info("Rate limiter enabled")
	}

	h = cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Server.Base.CORSOrigin, ","),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{logging.HeaderRequestID},
		AllowCredentials: true,
	}).Handler(h)

	if mw.RequestLogger.Enabled {
		s.reqLog = svc.RequestLogger(mw.RequestLogger.Silent)
		h = logging.RequestCorrelation(s.reqLog,
			logging.WithMetrics(svc.Metrics()),
			logging.WithTrustProxy(mw.RequestLogger.TrustProxy),
		)(h)
		s.appLog.Info("Request logger enabled")
	}

	s.handler = h
	return s, nil
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	const op errors.Op = "server.Server.Run"
	addr := ":" + strconv.Itoa(s.cfg.Server.Base.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.appLog.ErrorWith().Err(err).Str("addr", addr).Msg("Listen failed")
		return errors.New(op).Err(err).Msg(errMsgListen)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	const op errors.Op = "server.Server.Serve"
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.appLog.Infof("Listening on %s in %s mode", ln.Addr().String(), s.cfg.Server.Base.Env)

	select {
	case err := <-errCh:
		if stderrs.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.appLog.ErrorWith().Err(err).Msg("Server stopped")
		return errors.New(op).Err(err).Msg(errMsgServe)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.appLog.ErrorWith().Err(err).Msg("Shutdown failed")
		return errors.New(op).Err(err).Msg(errMsgShutdown)
	}
	s.appLog.Info("Server closed")
	return nil
}
