package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayHeader marks responses served from the idempotency store.
	ReplayHeader = "X-Idempotency-Replay"

	defaultIdempotencyTTL = 24 * time.Hour
	pendingClaimTTL       = time.Minute
	maxReplayBody         = 1 << 20
)

// IdempotencyMiddleware replays stored responses for repeated mutating
// requests carrying the same Idempotency-Key.
type IdempotencyMiddleware struct {
	store usecase.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxReplayBody+1))
		if err != nil || len(body) > maxReplayBody {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		fingerprint, err := domain.RequestHash(struct {
			Method string `json:"method"`
			Path   string `json:"path"`
			Body   []byte `json:"body"`
		}{r.Method, r.URL.Path, body})
		if err != nil {
			http.Error(w, "idempotency check failed", http.StatusInternalServerError)
			return
		}

		log := zerolog.Ctx(r.Context())

		existing, err := m.store.Reserve(r.Context(), key, fingerprint, pendingClaimTTL)
		if err != nil {
			log.Error().Err(err).Str("idempotency_key", key).Msg("idempotency reserve failed")
			http.Error(w, "idempotency check failed", http.StatusInternalServerError)
			return
		}

		if existing != nil {
			m.replay(w, existing, fingerprint)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		// Only successes are stored; failures release the key for a retry.
		if recorder.statusCode >= 200 && recorder.statusCode < 300 {
			err = m.store.Complete(r.Context(), key, usecase.StoredResponse{
				Fingerprint: fingerprint,
				StatusCode:  recorder.statusCode,
				Body:        recorder.body.Bytes(),
			}, m.ttl)
		} else {
			err = m.store.Release(r.Context(), key)
		}
		if err != nil {
			log.Error().Err(err).Str("idempotency_key", key).Msg("idempotency store update failed")
		}
	})
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, stored *usecase.StoredResponse, fingerprint string) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case stored.Fingerprint != fingerprint:
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"idempotency key reused with a different request","code":"idempotency_key_reused"}`))
	case stored.Pending:
		w.Header().Set("Retry-After", strconv.Itoa(1))
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"request with this idempotency key is in progress","code":"concurrency_conflict","retryable":true}`))
	default:
		w.Header().Set(ReplayHeader, "true")
		w.WriteHeader(stored.StatusCode)
		_, _ = w.Write(stored.Body)
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
