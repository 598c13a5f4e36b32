package server

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/audit"
)

type contextKey string

const fingerprintKey contextKey = "fingerprint"

// fingerprintMiddleware derives a stable audit-only identifier from the
// apparent caller. It carries no authorization weight.
func fingerprintMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sum := sha256.Sum256([]byte(clientIP(r) + r.UserAgent() + r.Header.Get("Accept-Language")))
		fp := hex.EncodeToString(sum[:])[:16]
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), fingerprintKey, fp)))
	})
}

// Fingerprint returns the request's audit fingerprint, if derived.
func Fingerprint(r *http.Request) string {
	fp, _ := r.Context().Value(fingerprintKey).(string)
	return fp
}

// ipAllowlistMiddleware rejects callers whose normalized address matches
// no configured entry. An absent list disables the stage; that fail-open
// default is an operator decision, not an oversight.
func (s *Server) ipAllowlistMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.config.AllowedIPs) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		caller := normalizeIP(clientIP(r))
		for _, entry := range s.config.AllowedIPs {
			if ipEntryMatches(normalizeIP(strings.TrimSpace(entry)), caller) {
				next.ServeHTTP(w, r)
				return
			}
		}

		s.audit.Event(audit.EventIPBlocked, r, zap.String("clientIP", caller))
		w.WriteHeader(http.StatusForbidden)
	})
}

// ipEntryMatches compares one allow-list entry against the caller.
// Entries containing a slash match by prefix of the part before it.
func ipEntryMatches(entry, caller string) bool {
	if entry == "" {
		return false
	}
	if idx := strings.IndexByte(entry, '/'); idx >= 0 {
		return strings.HasPrefix(caller, entry[:idx])
	}
	return entry == caller
}

// normalizeIP unifies the textual forms one host can present under:
// IPv6-mapped IPv4 unwraps to dotted quad, IPv6 loopback becomes the
// IPv4 loopback.
func normalizeIP(ip string) string {
	if ip == "::1" {
		return "127.0.0.1"
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.String()
	}
	return ip
}

// clientIP extracts the caller address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requireAPIKey guards mutating endpoints with a bearer credential
// compared in constant time. An unconfigured secret keeps the endpoint
// disabled; the provided value is never logged.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey == "" {
			s.audit.Event(audit.EventAPIKeyNotConfigured, r)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.audit.Event(audit.EventInvalidAuthHeader, r,
				zap.String("fingerprint", Fingerprint(r)))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		provided := header[len("Bearer "):]
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.config.APIKey)) != 1 {
			s.audit.Event(audit.EventInvalidAPIKey, r,
				zap.String("fingerprint", Fingerprint(r)),
				zap.Int("keyLength", len(provided)))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware bounds every request. A handler that outlives the
// deadline gets its context cancelled and the caller a 408, and any
// late writes from the abandoned handler are discarded.
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A websocket upgrade hijacks the connection and lives past any
		// request deadline; it manages its own lifetime.
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()

		tw := &timeoutWriter{w: w}
		done := make(chan struct{})
		go func() {
			defer close(done)
			// A panic here unwinds this goroutine, not the one the
			// router's Recoverer is deferred on, so it must be caught
			// before it takes the process down.
			defer func() {
				if p := recover(); p != nil {
					s.logger.Error("handler panic",
						zap.Any("panic", p),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					tw.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(tw, r.WithContext(ctx))
		}()

		select {
		case <-done:
		case <-ctx.Done():
			if tw.markTimedOut() {
				s.audit.Event(audit.EventRequestTimeout, r)
				w.WriteHeader(http.StatusRequestTimeout)
			}
			<-done
		}
	})
}

// timeoutWriter serializes the race between the handler goroutine and
// the timeout path. Once timed out, handler writes are dropped.
type timeoutWriter struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	wrote    bool
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return http.Header{}
	}
	return tw.w.Header()
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return
	}
	tw.wrote = true
	tw.w.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return len(b), nil
	}
	tw.wrote = true
	return tw.w.Write(b)
}

// markTimedOut flips the writer into discard mode. Returns false when
// the handler already produced output, in which case the timeout path
// must not write a second status line.
func (tw *timeoutWriter) markTimedOut() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.wrote {
		return false
	}
	tw.timedOut = true
	return true
}
