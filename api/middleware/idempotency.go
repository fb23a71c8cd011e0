package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/toolyard-backend/api/responses"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/toolyard-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	replayTTL      = 24 * time.Hour
	moneyReplayTTL = 7 * 24 * time.Hour
)

// idempotentRoute names a mutating route that demands an Idempotency-Key.
// Path segments equal to "*" match any single segment.
type idempotentRoute struct {
	method string
	path   []string
	ttl    time.Duration
}

func route(method, path string, ttl time.Duration) idempotentRoute {
	return idempotentRoute{method: method, path: splitPath(path), ttl: ttl}
}

var idempotentRoutes = []idempotentRoute{
	route(http.MethodPost, "/api/admin/v1/admin-orders", moneyReplayTTL),
	route(http.MethodPost, "/api/v1/checkout", moneyReplayTTL),
	route(http.MethodPut, "/api/v1/admin-orders/*/respond", replayTTL),
	route(http.MethodPut, "/api/v1/admin-orders/*/confirm", replayTTL),
	route(http.MethodPost, "/api/admin/v1/discounts", replayTTL),
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

func (ir idempotentRoute) matches(method string, segments []string) bool {
	if ir.method != method || len(ir.path) != len(segments) {
		return false
	}
	for i, want := range ir.path {
		if want != "*" && want != segments[i] {
			return false
		}
	}
	return true
}

// replayTTLFor reports how long a response to method+path is replayed, and
// false when the route is not idempotent.
func replayTTLFor(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
	for _, ir := range idempotentRoutes {
		if ir.matches(method, segments) {
			return ir.ttl, true
		}
	}
	return 0, false
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	BodyHash    string `json:"body_hash"`
}

// Idempotency replays the first non-5xx response for a caller, route and
// Idempotency-Key. Reusing a key with a different body is a conflict.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := replayTTLFor(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				fail(pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			bodyHash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(callerScope(r), clientKey)

			raw, err := store.Get(ctx, key)
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup"))
				return
			default:
				var prior storedResponse
				if err := json.Unmarshal([]byte(raw), &prior); err != nil {
					fail(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode stored response"))
					return
				}
				if prior.BodyHash != bodyHash {
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
					return
				}
				replay(w, prior)
				return
			}

			rec := &recorder{ResponseWriter: w, keepBody: true}
			next.ServeHTTP(rec, r)
			if rec.Status() >= http.StatusInternalServerError {
				return
			}

			payload, err := json.Marshal(storedResponse{
				Status:      rec.Status(),
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				BodyHash:    bodyHash,
			})
			if err == nil {
				_, err = store.SetNX(ctx, key, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "idempotency record not stored", err)
			}
		})
	}
}

// callerScope keys stored responses by caller and target so two users can
// pick the same Idempotency-Key.
func callerScope(r *http.Request) string {
	return strings.Join([]string{
		UserIDFromContext(r.Context()),
		SupplierIDFromContext(r.Context()),
		r.Method,
		strings.TrimSuffix(r.URL.Path, "/"),
	}, "|")
}

func replay(w http.ResponseWriter, prior storedResponse) {
	if prior.ContentType != "" {
		w.Header().Set("Content-Type", prior.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(prior.Status)
	_, _ = w.Write(prior.Body)
}
