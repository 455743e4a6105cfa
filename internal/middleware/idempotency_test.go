package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"dispatch/internal/domain"
)

// fakeRedis backs Get and Set with a map. Other commands are not used.
type fakeRedis struct {
	redis.Cmdable

	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) keys() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

func newIdempotentRouter(client redis.Cmdable, calls *int, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-Actor"); id != "" {
			SetActor(c, domain.Actor{ID: id, Role: domain.RoleCompany})
		}
		c.Next()
	})
	r.Use(Idempotency(client, logger))
	handler := func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	}
	r.POST("/v1/trips", handler)
	r.GET("/v1/trips", handler)
	return r
}

func send(r *gin.Engine, method, actor, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/v1/trips", nil)
	if actor != "" {
		req.Header.Set("X-Test-Actor", actor)
	}
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	client := newFakeRedis()
	calls := 0
	r := newIdempotentRouter(client, &calls, http.StatusCreated)

	first := send(r, http.MethodPost, "company-1", "k1")
	second := send(r, http.MethodPost, "company-1", "k1")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))
}

func TestIdempotency_ScopedPerActor(t *testing.T) {
	client := newFakeRedis()
	calls := 0
	r := newIdempotentRouter(client, &calls, http.StatusCreated)

	send(r, http.MethodPost, "company-1", "k1")
	send(r, http.MethodPost, "company-2", "k1")

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, client.keys())
}

func TestIdempotency_PassThrough(t *testing.T) {
	client := newFakeRedis()
	calls := 0
	r := newIdempotentRouter(client, &calls, http.StatusOK)

	send(r, http.MethodPost, "company-1", "")
	send(r, http.MethodPost, "company-1", "")
	send(r, http.MethodGet, "company-1", "k1")
	send(r, http.MethodGet, "company-1", "k1")

	assert.Equal(t, 4, calls)
	assert.Zero(t, client.keys())
}

func TestIdempotency_ServerErrorsNotCached(t *testing.T) {
	client := newFakeRedis()
	calls := 0
	r := newIdempotentRouter(client, &calls, http.StatusInternalServerError)

	send(r, http.MethodPost, "company-1", "k1")
	send(r, http.MethodPost, "company-1", "k1")

	assert.Equal(t, 2, calls)
	assert.Zero(t, client.keys())
}

func TestIdempotency_LookupFailureProcessesRequest(t *testing.T) {
	client := newFakeRedis()
	client.getErr = errors.New("connection refused")
	calls := 0
	r := newIdempotentRouter(client, &calls, http.StatusCreated)

	w := send(r, http.MethodPost, "company-1", "k1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
}
