package server

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestNewGracefulShutdownDefaults(t *testing.T) {
	gs := NewGracefulShutdown(nil, &ShutdownConfig{})

	assert.Equal(t, 30*time.Second, gs.timeout)
	assert.Equal(t, []os.Signal{syscall.SIGINT, syscall.SIGTERM}, gs.signals)
	assert.NotNil(t, gs.logger)

	gs = NewGracefulShutdown(nil, nil)
	assert.Equal(t, 30*time.Second, gs.timeout)
}

func TestShutdownRunsHooksAfterServer(t *testing.T) {
	srv, done := startTestServer(t)
	logger, logs := observed()
	gs := NewGracefulShutdown(srv, &ShutdownConfig{Timeout: 5 * time.Second, Logger: logger})

	var order []int
	gs.RegisterHook(func(ctx context.Context) error {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server still serving when hooks ran")
		}
		order = append(order, 1)
		return nil
	})
	gs.RegisterHook(func(ctx context.Context) error {
		order = append(order, 2)
		return errors.New("close failed")
	})
	gs.RegisterHook(func(ctx context.Context) error {
		order = append(order, 3)
		return nil
	})

	require.NoError(t, gs.Shutdown())
	assert.Equal(t, []int{1, 2, 3}, order)

	failed := logs.FilterMessage("shutdown hook failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, int64(1), failed[0].ContextMap()["hook"])
	assert.Equal(t, 1, logs.FilterMessage("shutdown complete").Len())
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv, _ := startTestServer(t)
	gs := NewGracefulShutdown(srv, &ShutdownConfig{Timeout: 5 * time.Second})

	var mu sync.Mutex
	calls := 0
	gs.RegisterHook(func(ctx context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, gs.Shutdown())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
	assert.NoError(t, gs.Wait())
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"
	srv, err := New(config)
	require.NoError(t, err)

	gs := NewGracefulShutdown(srv, &ShutdownConfig{Timeout: 5 * time.Second})
	hookRan := make(chan struct{})
	gs.RegisterHook(func(ctx context.Context) error {
		close(hookRan)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- gs.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	<-hookRan
}

func TestRunReportsStartFailure(t *testing.T) {
	first, _ := startTestServer(t)
	defer first.Close()

	config := DefaultConfig(okHandler())
	config.Address = first.Addr()
	srv, err := New(config)
	require.NoError(t, err)

	gs := NewGracefulShutdown(srv, nil)
	gs.RegisterHook(func(ctx context.Context) error {
		t.Error("hooks must not run when the server never started")
		return nil
	})

	err = gs.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed")
}
