package reloader

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestOnSIGHUP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	called := make(chan struct{}, 1)
	OnSIGHUP(ctx, func() { called <- struct{}{} })

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("reload callback not called")
	}
}
