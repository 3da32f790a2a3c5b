package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/perkstack/rewards-backend/api/responses"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/logger"
	pkgredis "github.com/perkstack/rewards-backend/pkg/redis"
)

// Checkout and approval routes hold their replay window for a week; the
// cheaper-to-redo mutations get a day.
const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

var idempotentRoutes = map[string]time.Duration{
	http.MethodPost + " /api/v1/cart/items":                          defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/bulk-buy":                            defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/checkout":                            criticalIdempotencyTTL,
	http.MethodPost + " /api/v1/checkout/copay":                      criticalIdempotencyTTL,
	http.MethodPost + " /api/v1/checkout/copay/confirm":              criticalIdempotencyTTL,
	http.MethodPost + " /api/v1/admin/bulk-buy/{requestID}/decision": criticalIdempotencyTTL,
}

// storedResponse is the replayable result of a completed request.
type storedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a mutating route is retried
// with the same Idempotency-Key and request body. A reused key with a
// different body is rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if idempotencyKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := digest(body)
			key := store.IdempotencyKey(requestScope(r), idempotencyKey)

			stored, getErr := store.Get(r.Context(), key)
			if getErr != nil && !errors.Is(getErr, redis.Nil) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			}
			if stored != "" {
				replayStored(r, w, logg, stored, requestHash)
				return
			}

			buf := &bufferingWriter{ResponseWriter: w}
			next.ServeHTTP(buf, r)
			persistResponse(r, logg, store, key, ttl, buf, requestHash)
		})
	}
}

// replayStored writes the previously captured response, rejecting the
// request when the body hash does not match the first attempt.
func replayStored(r *http.Request, w http.ResponseWriter, logg *logger.Logger, stored, requestHash string) {
	var record storedResponse
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
		return
	}
	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// persistResponse stores the captured response for later replay. Storage
// failures are logged, never surfaced: the client already has its answer.
func persistResponse(r *http.Request, logg *logger.Logger, store pkgredis.IdempotencyStore, key string, ttl time.Duration, buf *bufferingWriter, requestHash string) {
	status := buf.status
	if status == 0 {
		status = http.StatusOK
	}
	record := storedResponse{
		Status:      status,
		Body:        base64.StdEncoding.EncodeToString(buf.body.Bytes()),
		RequestHash: requestHash,
	}
	if ct := buf.Header().Get("Content-Type"); ct != "" {
		record.Headers = map[string]string{"Content-Type": ct}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		if logg != nil {
			logg.Error(r.Context(), "marshal idempotency record", err)
		}
		return
	}
	if _, err := store.SetNX(r.Context(), key, string(payload), ttl); err != nil && logg != nil {
		logg.Error(r.Context(), "persist idempotency record", err)
	}
}

// requestScope namespaces keys per employee, method, and path so the same
// key on different routes cannot collide.
func requestScope(r *http.Request) string {
	return strings.Join([]string{
		EmployeeIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}, "|")
}

func digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	if ttl, ok := idempotentRoutes[method+" "+pattern]; ok {
		return ttl, true
	}
	// Raw paths carry the request ID instead of the chi placeholder.
	if method == http.MethodPost &&
		strings.HasPrefix(pattern, "/api/v1/admin/bulk-buy/") &&
		strings.HasSuffix(pattern, "/decision") {
		return criticalIdempotencyTTL, true
	}
	return 0, false
}

// bufferingWriter tees the response body so it can be stored for replay.
type bufferingWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (b *bufferingWriter) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferingWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}
