package obs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-register/internal/events"
	"github.com/noah-isme/pos-register/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("register", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204"))
	require.Equal(t, float64(1), total)
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("register", nil, registry)
	second := obs.NewHTTPMetrics("register", nil, registry)
	first.ReqTotal.WithLabelValues("GET", "/", "200").Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(second.ReqTotal.WithLabelValues("GET", "/", "200")))
}

func TestRoutePatternFromChi(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("register", nil, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/registers/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/registers/abc", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/registers/{id}", "200")))
}

func TestRequestLoggerWritesLine(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "info")
	handler := obs.RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/registers", nil)
	req.Header.Set("User-Agent", "tester")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "http_request", line["message"])
	require.Equal(t, http.MethodPost, line["method"])
	require.Equal(t, "/api/v1/registers", line["route"])
	require.Equal(t, float64(200), line["status"])
	require.Equal(t, float64(5), line["bytes"])
	require.Equal(t, "tester", line["user_agent"])
}

func TestNewLoggerLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "bogus")
	logger.Debug().Msg("hidden")
	require.Zero(t, buf.Len())
	logger.Info().Msg("shown")
	require.NotZero(t, buf.Len())
}

func TestTracingMiddlewarePassesThrough(t *testing.T) {
	handler := obs.TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
}

func TestInitTracerNone(t *testing.T) {
	shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = obs.InitTracer(context.Background(), obs.TracingConfig{Exporter: "zipkin"})
	require.Error(t, err)
}

func TestRegisterMetricsNotify(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewRegisterMetrics("register", registry)
	bus := events.Bus{Notifiers: []events.Notifier{metrics}}
	ctx := context.Background()
	id := uuid.New()

	emit := func(topic string, payload any) {
		_, err := bus.Emit(ctx, topic, id, payload)
		require.NoError(t, err)
	}
	emit(events.TopicRegisterOpened, nil)
	emit(events.TopicItemAdded, map[string]any{"item": "pen", "quantity": 3})
	emit(events.TopicItemAdded, map[string]any{"item": "book", "quantity": 1})
	emit(events.TopicTransactionVoided, map[string]any{"item": "book", "quantity": 1})
	emit(events.TopicDiscountApplied, nil)
	emit(events.TopicDiscountSkipped, nil)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Open))
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.Transactions.WithLabelValues("recorded")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Transactions.WithLabelValues("voided")))
	require.Equal(t, float64(4), testutil.ToFloat64(metrics.Units))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.VoidedUnits))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Discounts.WithLabelValues("applied")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Discounts.WithLabelValues("skipped")))

	emit(events.TopicRegisterClosed, nil)
	require.Zero(t, testutil.ToFloat64(metrics.Open))
}
