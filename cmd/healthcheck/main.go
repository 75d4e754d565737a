// Command healthcheck probes the local account manager API and exits
// non-zero when it is unreachable or its store is down. A degraded key is
// reported on stderr but does not fail the probe.
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
)

const defaultAddr = "127.0.0.1:8765"

type health struct {
	Status      string `json:"status"`
	KeyDegraded bool   `json:"key_degraded"`
	KeyError    string `json:"key_error"`
}

func main() {
	os.Exit(check(normalizeAddr(os.Getenv("RAMN_LISTEN_ADDR")), os.Stderr))
}

func check(addr string, out io.Writer) int {
	client := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/v1/health", addr), nil)
	if err != nil {
		fmt.Fprintf(out, "build request: %v\n", err)
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(out, "unreachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	var h health
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&h); err != nil {
		fmt.Fprintf(out, "decode health: %v\n", err)
		return 1
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(out, "status %s (%d)\n", h.Status, resp.StatusCode)
		return 1
	}

	if h.KeyDegraded {
		fmt.Fprintf(out, "degraded: %s\n", h.KeyError)
	}

	return 0
}

// normalizeAddr points the probe at loopback when the server is configured
// to bind every interface.
func normalizeAddr(raw string) string {
	if raw == "" {
		return defaultAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}

	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}

	return net.JoinHostPort(host, port)
}
