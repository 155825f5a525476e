package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackAddr(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "127.0.0.1:8080"},
		{raw: "0.0.0.0:9090", want: "127.0.0.1:9090"},
		{raw: ":7000", want: "127.0.0.1:7000"},
		{raw: "[::]:7001", want: "127.0.0.1:7001"},
		{raw: "10.0.0.5:8080", want: "10.0.0.5:8080"},
		{raw: "garbage", want: "127.0.0.1:8080"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, loopbackAddr(tt.raw), tt.raw)
	}
}

func healthServer(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestProbe_Healthy(t *testing.T) {
	addr := healthServer(t, http.StatusOK, `{"status":"ok","time":"2026-10-19T10:00:00Z"}`)

	require.NoError(t, probe(context.Background(), addr))
}

func TestProbe_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "unavailable", status: http.StatusServiceUnavailable, body: `{"error":"down"}`, wantErr: "status 503"},
		{name: "not ok", status: http.StatusOK, body: `{"status":"degraded"}`, wantErr: `status "degraded"`},
		{name: "not json", status: http.StatusOK, body: `ok`, wantErr: "decode health response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := probe(context.Background(), healthServer(t, tt.status, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProbe_NothingListening(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	err := probe(context.Background(), addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET http://"+addr)
}
