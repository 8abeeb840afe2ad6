package server

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
	"github.com/MDValleLogic/netrunner-dashboard/internal/handler"
	"github.com/MDValleLogic/netrunner-dashboard/internal/logging"
)

// Device credential headers. The device id is authenticated here and
// attached to the context; handlers never read it from the body.
const (
	headerDeviceID     = "X-Device-Id"
	headerDeviceSecret = "X-Device-Secret"
)

var requestCounter atomic.Uint64

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLog assigns a request id, bounds the body size, and logs
// one line per request.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := requestCounter.Add(1)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		log.Debug("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// withDeviceAuth verifies the device credential headers. The failure
// path is uniform: bad secret, unknown device, and rate-limited IP all
// yield the same 401.
func (s *Server) withDeviceAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if s.authRateLimiter.IsBlocked(ip) {
			log.Warn("device auth blocked, too many failures", "ip", ip)
			writeAuthError(w, errors.ErrInvalidCredential)
			return
		}

		deviceID := r.Header.Get(headerDeviceID)
		secret := r.Header.Get(headerDeviceSecret)

		ok, err := s.verifier.Verify(r.Context(), deviceID, secret)
		if err != nil {
			log.Error("device auth lookup failed", "error", err)
			writeAuthError(w, errors.Wrap(errors.ErrDatabase, "verify credential"))
			return
		}
		if !ok {
			s.authRateLimiter.RecordFailure(ip)
			log.Warn("device auth failed", "ip", ip,
				"failure_count", s.authRateLimiter.FailureCount(ip))
			writeAuthError(w, errors.ErrInvalidCredential)
			return
		}

		s.authRateLimiter.Reset(ip)

		ctx := handler.WithDeviceID(r.Context(), deviceID)
		ctx = logging.ContextWithDeviceID(ctx, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withSessionAuth resolves a dashboard bearer token to its tenant
// binding. The tenant of a request comes only from this binding.
func (s *Server) withSessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, errors.ErrSessionRequired)
			return
		}

		sess, ok := s.lookupToken(token)
		if !ok {
			writeAuthError(w, errors.ErrSessionRequired)
			return
		}

		ctx := handler.WithSession(r.Context(), sess)
		ctx = logging.ContextWithTenantID(ctx, sess.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withArchiveAuth guards the archival endpoint with its shared secret,
// so an external scheduler can call it without a dashboard token.
func (s *Server) withArchiveAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.ArchiveSecret == "" {
			writeAuthError(w, errors.ErrInvalidCronSecret)
			return
		}
		token := bearerToken(r)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.ArchiveSecret)) != 1 {
			writeAuthError(w, errors.ErrInvalidCronSecret)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// lookupToken finds the session binding for a bearer token value.
func (s *Server) lookupToken(token string) (handler.Session, bool) {
	for _, t := range s.cfg.Tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(t.Token)) == 1 {
			return handler.Session{
				TokenID:  t.ID,
				TenantID: t.TenantID,
				Admin:    t.Admin,
			}, true
		}
	}
	return handler.Session{}, false
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// clientIP extracts the client IP for rate limiting.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeAuthError emits the standard JSON error envelope from the
// middleware layer, before a handler runs.
func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.HTTPStatus(err))
	w.Write([]byte(`{"ok":false,"error":"` + errors.Code(err) + `"}` + "\n"))
}
