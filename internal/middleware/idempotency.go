package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	apperrors "github.com/ukydev/initinere/internal/errors"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotencyPrefix = "idempotency:"
	idempotencyLock   = 30 * time.Second

	// MaxIdempotentBody caps the request body buffered for hashing. It
	// matches the limit the handlers decode with.
	MaxIdempotentBody = 1 << 20
)

// ErrCacheMiss is returned by an IdempotencyStore that holds no entry for a key.
var ErrCacheMiss = errors.New("idempotency cache miss")

// IdempotencyStore keeps replayable responses and in-flight locks.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Lock reports whether the caller acquired key.
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RedisIdempotencyStore implements IdempotencyStore on Redis.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisIdempotencyStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}

func (s *RedisIdempotencyStore) Unlock(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// IdempotencyMiddleware replays the stored response of a mutating request
// that is retried with the same Idempotency-Key.
type IdempotencyMiddleware struct {
	store IdempotencyStore
	ttl   time.Duration
}

type cachedResponse struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
	BodyHash   string            `json:"body_hash"`
}

func NewIdempotencyMiddleware(store IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// bodyRecorder captures the response for caching
type bodyRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *bodyRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *bodyRecorder) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Handler must run after Authenticate: keys are scoped to the caller.
func (m *IdempotencyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
			next.ServeHTTP(w, r)
			return
		}

		idempotencyKey := r.Header.Get(IdempotencyHeader)
		if idempotencyKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxIdempotentBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, apperrors.NewAPIError(nil, "payload_too_large", "request body too large", http.StatusRequestEntityTooLarge))
				return
			}
			writeError(w, apperrors.Validation("failed to read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		principal := "anonymous"
		if claims, ok := GetUserFromContext(r.Context()); ok {
			principal = claims.UserID
		}
		bodyHash := hashRequest(r.Method, r.URL.Path, bodyBytes)
		cacheKey := idempotencyPrefix + principal + ":" + idempotencyKey
		ctx := r.Context()

		data, err := m.store.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var cached cachedResponse
			if err := json.Unmarshal(data, &cached); err != nil {
				log.WithError(err).WithField("key", idempotencyKey).Warn("Discarding unreadable idempotent response")
				break
			}
			if cached.BodyHash != bodyHash {
				writeError(w, apperrors.Conflict("idempotency key already used with a different request"))
				return
			}
			for k, v := range cached.Headers {
				w.Header().Set(k, v)
			}
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(cached.StatusCode)
			w.Write(cached.Body)
			return
		case !errors.Is(err, ErrCacheMiss):
			// the store is down; serve the request without replay protection
			log.WithError(err).Warn("Idempotency store unavailable")
			next.ServeHTTP(w, r)
			return
		}

		lockKey := cacheKey + ":lock"
		locked, err := m.store.Lock(ctx, lockKey, idempotencyLock)
		if err != nil {
			log.WithError(err).Warn("Idempotency store unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if !locked {
			writeError(w, apperrors.Conflict("a request with this idempotency key is already being processed"))
			return
		}
		defer func() {
			if err := m.store.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
				log.WithError(err).Warn("Failed to release idempotency lock")
			}
		}()

		rw := &bodyRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}
		cached := cachedResponse{
			StatusCode: rw.statusCode,
			Headers:    map[string]string{"Content-Type": rw.Header().Get("Content-Type")},
			Body:       rw.body.Bytes(),
			BodyHash:   bodyHash,
		}
		payload, err := json.Marshal(cached)
		if err != nil {
			log.WithError(err).Error("Failed to encode idempotent response")
			return
		}
		if err := m.store.Set(context.WithoutCancel(ctx), cacheKey, payload, m.ttl); err != nil {
			log.WithError(err).Warn("Failed to store idempotent response")
		}
	})
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
