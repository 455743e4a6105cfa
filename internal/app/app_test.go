package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/config"
	"dispatch/internal/events"
	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: "5433", User: "u", Password: "p", DBName: "dispatch", SSLMode: "require",
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=dispatch sslmode=require", dsn)
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "postgres", DriverName(nil))
}

func TestKeyNamespace(t *testing.T) {
	assert.Equal(t, "lock", keyNamespace([]any{"set", "lock:trip:42", "1"}))
	assert.Equal(t, "maintenance", keyNamespace([]any{"get", "maintenance"}))
	assert.Equal(t, "redis", keyNamespace([]any{"ping"}))
	assert.Equal(t, "redis", keyNamespace([]any{"get", 7}))
}

func TestCORSConfig(t *testing.T) {
	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)
	assert.False(t, all.AllowCredentials)

	listed := corsConfig([]string{"https://ops.example.com"})
	assert.False(t, listed.AllowAllOrigins)
	assert.Equal(t, []string{"https://ops.example.com"}, listed.AllowOrigins)
	assert.True(t, listed.AllowCredentials)
}

func TestNewPublisher_NoBrokers(t *testing.T) {
	logger, _ := test.NewNullLogger()

	p, closeFn, err := NewPublisher(config.KafkaConfig{}, logger)
	require.NoError(t, err)
	assert.IsType(t, events.NopPublisher{}, p)
	assert.NoError(t, closeFn())
}

func TestNewPublisher_Kafka(t *testing.T) {
	logger, _ := test.NewNullLogger()

	p, closeFn, err := NewPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "trip-events"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &events.KafkaPublisher{}, p)
	assert.NoError(t, closeFn())
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	verifier, err := middleware.NewTokenVerifier("secret", "")
	require.NoError(t, err)

	return NewRouter(RouterDeps{
		TripHandler:         handler.NewTripHandler(nil),
		NotificationHandler: handler.NewNotificationHandler(nil),
		StreamHandler:       handler.NewStreamHandler(nil, nil, 0, logger),
		AdminHandler:        handler.NewAdminHandler(nil),
		Verifier:            verifier,
		Logger:              logger,
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_RequiresToken(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/v1/trips", "/v1/notifications", "/v1/stream", "/v1/admin/maintenance"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
