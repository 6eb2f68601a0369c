package server

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/recipeops/config"
	"github.com/jonwraymond/recipeops/observe"
	"github.com/jonwraymond/recipeops/resilience"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws so the first one is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range slices.Backward(mws) {
		h = mw(h)
	}
	return h
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// RequestID attaches an ID to the request context and response. A
// reasonable client supplied X-Request-ID is kept.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(observe.WithRequestID(r.Context(), id)))
		})
	}
}

// Recover turns a handler panic into a 500 response.
func Recover(logger observe.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error(r.Context(), "handler panic",
						observe.Field{Key: "path", Value: r.URL.Path},
						observe.Field{Key: "panic", Value: fmt.Sprint(v)},
					)
					writeError(w, &APIError{
						Status:  http.StatusInternalServerError,
						Message: "An unexpected error occurred",
						Code:    CodeInternal,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog logs one line per request and records it as an http operation.
func AccessLog(logger observe.Logger, metrics observe.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			var err error
			if status >= http.StatusInternalServerError {
				err = fmt.Errorf("http status %d", status)
			}
			metrics.RecordOperation(r.Context(), observe.Operation{Component: "http", Name: route}, duration, err)

			fields := []observe.Field{
				{Key: "method", Value: r.Method},
				{Key: "path", Value: r.URL.Path},
				{Key: "status", Value: status},
				{Key: "bytes", Value: rec.bytes},
				{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
				{Key: "remote", Value: clientKey(r)},
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error(r.Context(), "http request", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn(r.Context(), "http request", fields...)
			default:
				logger.Info(r.Context(), "http request", fields...)
			}
		})
	}
}

// SecurityHeaders sets the browser hardening headers. API responses are
// never cached.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if strings.HasPrefix(r.URL.Path, "/api/") {
				h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflight requests and sets the allow headers for the
// configured origins. "*" allows any origin; credentials are never
// advertised together with a wildcard.
func CORS(cfg config.CORSSettings) Middleware {
	wildcard := slices.Contains(cfg.Origins, "*")
	methods := strings.Join(cfg.Methods, ", ")
	anyHeader := slices.Contains(cfg.Headers, "*")
	headers := strings.Join(cfg.Headers, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!wildcard && !slices.Contains(cfg.Origins, origin)) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if wildcard && !cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", methods)
			if anyHeader {
				if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
					h.Set("Access-Control-Allow-Headers", req)
				}
			} else if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// RateLimit rejects clients that exceed their budget on limiter with 429
// and a Retry-After header.
func RateLimit(limiter *resilience.KeyedRateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Allow(clientKey(r))
			if !ok {
				secs := max(int(math.Ceil(wait.Seconds())), 1)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, &APIError{
					Status:  http.StatusTooManyRequests,
					Message: "Rate limit exceeded, retry in " + strconv.Itoa(secs) + "s",
					Code:    CodeRateLimited,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller by remote IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
