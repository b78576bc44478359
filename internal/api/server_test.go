package api

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/pongladder/internal/testutil"
)

func TestServerRunStopsOnCancel(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	server := NewServer(http.NotFoundHandler(), cfg, testutil.NopLogger())

	shutdownCalled := make(chan struct{})
	server.OnShutdown(func() { close(shutdownCalled) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	select {
	case <-shutdownCalled:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook not called")
	}
}

func TestServerRunReportsListenError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	cfg := DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = listener.Addr().(*net.TCPAddr).Port
	server := NewServer(http.NotFoundHandler(), cfg, testutil.NopLogger())

	err = server.Run(context.Background())
	assert.ErrorContains(t, err, "server error")
}

func TestServerAddr(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Host = "::1"
	cfg.Port = 9000
	server := NewServer(http.NotFoundHandler(), cfg, testutil.NopLogger())

	assert.Equal(t, "[::1]:9000", server.Addr())
}
