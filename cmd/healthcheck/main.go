package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	httphandler "github.com/ericfisherdev/gatekeeper/internal/adapter/driving/http"
	"github.com/ericfisherdev/gatekeeper/internal/config"
)

const probeTimeout = 2 * time.Second

func main() {
	if err := probe(context.Background(), os.Getenv("GATEKEEPER_LISTEN_ADDR")); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
}

// probe asks a running `gatekeeper serve` for its health report and fails
// unless the API answers 200 with status "ok".
func probe(ctx context.Context, listenAddr string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	url := "http://" + loopbackAddr(listenAddr) + "/api/v1/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := (&http.Client{Timeout: probeTimeout}).Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	var health httphandler.HealthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("gatekeeper reports status %q", health.Status)
	}

	return nil
}

// loopbackAddr maps the serve listen address to one reachable from inside
// the same container. Bind-all hosts become loopback; an unparseable address
// falls back to the default.
func loopbackAddr(listenAddr string) string {
	if listenAddr == "" {
		listenAddr = config.DefaultListenAddr
	}

	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return config.DefaultListenAddr
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
