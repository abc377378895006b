package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EchoPBX/idlebell/internal/bell"
	"github.com/EchoPBX/idlebell/internal/config"
	"github.com/EchoPBX/idlebell/internal/events"
	"github.com/EchoPBX/idlebell/internal/httpserver"
	"github.com/EchoPBX/idlebell/pkg/sdk"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func TestRingUsesBellCommand(t *testing.T) {
	var got []string
	runner := sdk.CommandRunnerFunc(func(ctx context.Context, command string) error {
		got = append(got, command)
		return nil
	})

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	if err := ring(cmd, runner); err != nil {
		t.Fatalf("ring: %v", err)
	}
	if len(got) != 1 || got[0] != bell.Command {
		t.Errorf("commands = %v, want [%q]", got, bell.Command)
	}
}

func TestRingPropagatesFailure(t *testing.T) {
	runErr := errors.New("no tput")
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err := ring(cmd, sdk.CommandRunnerFunc(func(context.Context, string) error { return runErr }))
	if err != runErr {
		t.Fatalf("ring error = %v, want %v", err, runErr)
	}
}

func TestEmitPostsToGateway(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe()
	srv, err := httpserver.New(&config.Config{}, zap.NewNop(), bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ev := sdk.Event{Type: sdk.EventSessionIdle, Data: map[string]any{"sessionID": "ses_1"}}
	if err := emit(context.Background(), ts.Client(), ts.URL+"/", "", ev); err != nil {
		t.Fatalf("emit: %v", err)
	}

	got := <-ch
	if got.Type != sdk.EventSessionIdle || got.Data["sessionID"] != "ses_1" {
		t.Errorf("published %+v", got)
	}
}

func TestEmitReportsStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer ts.Close()

	err := emit(context.Background(), ts.Client(), ts.URL, "bad", sdk.Event{Type: sdk.EventSessionIdle})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("emit error = %v, want 401", err)
	}
}

func TestEmitCommandData(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe()
	srv, err := httpserver.New(&config.Config{}, zap.NewNop(), bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"emit", "message.created",
		"--addr", ts.URL,
		"--data", `{"sessionID":"ses_2"}`,
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := <-ch
	if got.Type != sdk.EventMessageCreated || got.Data["sessionID"] != "ses_2" {
		t.Errorf("published %+v", got)
	}
	if !strings.Contains(out.String(), "published message.created") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("IDLEBELL_CONFIG", "")
	if got := defaultConfigPath(); got != config.DefaultPath {
		t.Errorf("defaultConfigPath() = %q, want %q", got, config.DefaultPath)
	}
	p := filepath.Join(os.TempDir(), "idlebell.yaml")
	t.Setenv("IDLEBELL_CONFIG", p)
	if got := defaultConfigPath(); got != p {
		t.Errorf("defaultConfigPath() = %q, want %q", got, p)
	}
}
