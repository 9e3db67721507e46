package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vozsegura-api/internal/service"
)

type pingStub struct {
	err error
}

func (p pingStub) PingContext(context.Context) error { return p.err }

func (p pingStub) Ping(context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(service.NewMetricsService(), pingStub{}, pingStub{})

	c, w := newJSONContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)
}

func TestMetricsHandlerReadyDegradedWhenCacheDown(t *testing.T) {
	handler := NewMetricsHandler(service.NewMetricsService(), pingStub{}, pingStub{err: errors.New("connection refused")})

	c, w := newJSONContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"cache":"unavailable"`)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordReportCreated(true)
	handler := NewMetricsHandler(metrics, nil, nil)

	c, w := newJSONContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "denuncias_created_total")
}
