package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func readyStatus(t *testing.T, deps map[string]Pinger) (*httptest.ResponseRecorder, []string) {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var body struct {
		Error struct {
			Details struct {
				Dependencies []string `json:"dependencies"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body.Error.Details.Dependencies
}

func TestHealthReady(t *testing.T) {
	rec, _ := readyStatus(t, map[string]Pinger{"database": stubPinger{}, "redis": stubPinger{}, "bigquery": nil})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Toolyard-Env"))
}

func TestHealthReadyNamesFailedDependencies(t *testing.T) {
	rec, failed := readyStatus(t, map[string]Pinger{
		"database": stubPinger{err: errors.New("refused")},
		"redis":    stubPinger{err: errors.New("timeout")},
		"stripe":   stubPinger{},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, []string{"database", "redis"}, failed)
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
