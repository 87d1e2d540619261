package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nftmarket/core"
	"nftmarket/core/events"
	"nftmarket/observability"
)

const requestIDHeader = "X-Request-ID"

// Options configures optional server behaviour.
type Options struct {
	Logger *slog.Logger
	// Auth guards state-changing methods when enabled.
	Auth AuthConfig
	// RequestsPerSecond and Burst bound requests per client. A zero rate
	// disables limiting.
	RequestsPerSecond float64
	Burst             int
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

type Server struct {
	proc     *core.Processor
	recorder *events.Recorder
	logger   *slog.Logger
	auth     *authenticator
	limiter  *rateLimiter
	opts     Options
}

func NewServer(proc *core.Processor, recorder *events.Recorder, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		proc:     proc,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "rpc")),
		auth:     newAuthenticator(opts.Auth),
		limiter:  newRateLimiter(opts.RequestsPerSecond, opts.Burst),
		opts:     opts,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	r.Post("/", s.handle)
	return otelhttp.NewHandler(r, "market-rpc")
}

// Serve runs the server on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type requestIDKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type methodHandler func(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError)

func (s *Server) methods() map[string]methodHandler {
	return map[string]methodHandler{
		"market_sendTransaction":     s.handleSendTransaction,
		"market_simulateTransaction": s.handleSimulateTransaction,
		"market_getAccount":          s.handleGetAccount,
		"market_getNonce":            s.handleGetNonce,
		"market_getMarketplace":      s.handleGetMarketplace,
		"market_getListing":          s.handleGetListing,
		"market_getTokenBalance":     s.handleGetTokenBalance,
		"market_treasuryBalance":     s.handleTreasuryBalance,
		"market_recentEvents":        s.handleRecentEvents,
		"market_stateRoot":           s.handleStateRoot,
		"market_listings":            s.handleListListings,
	}
}

// guarded lists the methods that mutate state.
var guarded = map[string]bool{
	"market_sendTransaction": true,
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, status, rpcErr := decodeRequest(w, r)
	if rpcErr != nil {
		var id interface{}
		if req != nil {
			id = req.ID
		}
		replyError(w, status, id, rpcErr)
		return
	}

	result, rpcErr := s.dispatch(r, req)
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
	}
	observability.RPC().Observe(req.Method, code, time.Since(start))
	if rpcErr != nil {
		s.logger.Debug("rpc call failed",
			slog.String("request_id", requestID(r.Context())),
			slog.String("method", req.Method),
			slog.Int("code", rpcErr.Code),
			slog.String("error", rpcErr.Message))
		replyError(w, httpStatus(rpcErr.Code), req.ID, rpcErr)
		return
	}
	reply(w, http.StatusOK, RPCResponse{ID: req.ID, Result: result})
}

// dispatch applies rate limiting and authentication before running the
// method handler.
func (s *Server) dispatch(r *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if source := clientSource(r); !s.limiter.allow(source) {
		observability.RPC().RecordThrottle("rate")
		return nil, &RPCError{Code: codeRateLimited, Message: "request rate limit exceeded", Data: source}
	}
	handler, ok := s.methods()[req.Method]
	if !ok {
		return nil, &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method %s not found", req.Method)}
	}
	if guarded[req.Method] {
		if authErr := s.auth.authorize(r); authErr != nil {
			return nil, authErr
		}
	}
	return handler(r.Context(), req.Params)
}
