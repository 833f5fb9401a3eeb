package Adhoc

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAliveMessage(t *testing.T) {
	var mu sync.Mutex
	var got []RegisterRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/register", r.URL.Path)
		var req RegisterRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			mu.Lock()
			got = append(got, req)
			mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RegisterResponse{Id: req.Id, Success: true})
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	reg := RegServerConfig{Interval: 20 * time.Millisecond}
	reg.SetAddress(host, port)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go SendAliveMessage(ctx, &wg, reg, Instance{IP: "10.0.0.2", Port: 50051, HTTPPort: 8080, Sessions: func() int { return 3 }})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 3
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	first := got[0]
	assert.Equal(t, ServiceName, first.Service)
	assert.Equal(t, "10.0.0.2", first.IP)
	assert.Equal(t, 3, first.Sessions)
	assert.NotEmpty(t, first.Id)
	for _, req := range got {
		assert.Equal(t, first.Id, req.Id, "id is stable across heartbeats")
	}
}

func TestSendAliveMessage_ServerDown(t *testing.T) {
	reg := RegServerConfig{Addr: "127.0.0.1", Port: 1, Interval: 10 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		SendAliveMessage(ctx, &wg, reg, Instance{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("SendAliveMessage did not return after cancel")
	}
}
