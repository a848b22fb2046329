package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/observability"
	"github.com/kanal-dev/kanal/pkg/transport"
)

// Adapter serves the chat completion API over HTTP.
// It routes requests to the handler and serializes responses.
type Adapter struct {
	handler transport.CompletionHandler
	models  transport.ModelLister
	mux     *http.ServeMux
	config  Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     10 << 20, // 10 MB
		ShutdownTimeout: 30,
	}
}

// NewAdapter creates an HTTP adapter with the given CompletionHandler and
// options. The ModelLister is optional; when nil, GET /v1/models returns an
// empty list. Middleware is applied to the handler in the given order.
func NewAdapter(handler transport.CompletionHandler, models transport.ModelLister, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(handler)
	}

	a := &Adapter{
		handler: handler,
		models:  models,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.mux.HandleFunc("POST /v1/chat/completions", a.handleChatCompletion)
	a.mux.HandleFunc("GET /v1/models", a.handleListModels)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)
	a.mux.Handle("GET /metrics", promhttp.Handler())

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation and metrics.
func (a *Adapter) Handler() http.Handler {
	return observability.MetricsMiddleware(httpHeaderMiddleware(a.mux))
}

// httpHeaderMiddleware propagates the X-Request-ID header and the
// X-Caller-ID identity into the request context.
func httpHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx = transport.ContextWithRequestID(ctx, id)
		}
		if caller := r.Header.Get("X-Caller-ID"); caller != "" {
			ctx = transport.ContextWithCallerID(ctx, caller)
		}
		r = r.WithContext(ctx)

		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// handleChatCompletion handles POST /v1/chat/completions.
func (a *Adapter) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewValidationError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewValidationError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewValidationError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	if req.Stream {
		a.handleStreamingCompletion(w, r, &req)
		return
	}

	rw := newSSEResponseWriter(w)
	if err := a.handler.HandleCompletion(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleStreamingCompletion handles streaming requests (stream: true).
func (a *Adapter) handleStreamingCompletion(w http.ResponseWriter, r *http.Request, req *api.ChatRequest) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	rw := newSSEResponseWriter(w)
	if err := a.handler.HandleCompletion(ctx, req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleListModels handles GET /v1/models.
func (a *Adapter) handleListModels(w http.ResponseWriter, r *http.Request) {
	list := transport.ModelList{Object: "list", Data: []transport.ModelInfo{}}

	if a.models != nil {
		models, err := a.models.ListModels(r.Context())
		if err != nil {
			transport.WriteError(w, err)
			return
		}
		if models != nil {
			list.Data = models
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeHandlerError writes an error from the handler. If streaming has
// already started, the error goes out as an in-band frame; otherwise it is
// a standard JSON error response with the mapped status code.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *sseResponseWriter, err error) {
	if rw.hasStartedStreaming() {
		rw.WriteStreamError(context.Background(), transport.AsAPIError(err))
		return
	}
	transport.WriteError(w, err)
}
