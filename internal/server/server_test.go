package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minibank/internal/config"
)

func TestStartServer_MemoryStore(t *testing.T) {
	cfg := &config.Config{
		ServerPort:  "0",
		StoreDriver: config.StoreDriverMemory,
		RateStore:   config.RateStorePostgres,
	}

	srv, port, err := StartServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(ctx)
	})
	assert.NotEqual(t, "0", port)
	assert.Equal(t, "http://localhost:"+port, srv.GetBaseURL())

	resp, err := http.Get(srv.GetBaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])

	body := strings.NewReader(`{"email":"sam@example.com","name":"Sam","surname":"Lee"}`)
	resp, err = http.Post(srv.GetBaseURL()+"/owners", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.GetBaseURL() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestRoutes(t *testing.T) {
	srv, err := NewServer(&config.Config{StoreDriver: config.StoreDriverMemory}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	var paths []string
	err = srv.GetRouter().Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err == nil {
			paths = append(paths, tpl)
		}
		return nil
	})
	require.NoError(t, err)

	for _, want := range []string{
		"/owners",
		"/accounts",
		"/accounts/{number}/deposit",
		"/accounts/{number}/withdraw",
		"/accounts/{number}/transactions",
		"/transactions",
		"/health",
		"/metrics",
	} {
		assert.Contains(t, paths, want)
	}
}
