package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/infrastructure/metrics"
	"go-socket-hub/internal/port/inbound/inboundtest"
)

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRouter_Status(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uc := inboundtest.New()
	router := InitRouter(uc, logger.NewNop(), RouterConfig{MetricsPath: "/metrics"})

	rec := serve(router, http.MethodGet, "/hub/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hub_running":true`)

	uc.Running = false
	rec = serve(router, http.MethodGet, "/hub/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodOptions, "/api/v1/endpoints").Code)
}

func TestRouter_Metrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg, "")
	m.ConnectionOpened("ws://feed.test")

	router := InitRouter(inboundtest.New(), logger.NewNop(), RouterConfig{
		MetricsPath: "/metrics",
		Gatherer:    reg,
	})

	rec := serve(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sockethub_hub_connections_opened_total")
}
