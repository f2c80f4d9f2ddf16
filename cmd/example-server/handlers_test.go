package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter() http.Handler {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return newRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), func() time.Time { return fixed })
}

func TestItemEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/7?x=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "7", got.ID)
	assert.Equal(t, "x=1", got.Query)
	assert.Equal(t, int64(1), got.Sequence)
}

func TestForcedStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/7?status=503", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?status=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelay(t *testing.T) {
	start := time.Now()
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?delay=30ms", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	rec = httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?delay=2h", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowTela(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/showTela", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tela do Sistema")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}
