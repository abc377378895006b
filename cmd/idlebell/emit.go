package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EchoPBX/idlebell/pkg/sdk"
	"github.com/spf13/cobra"
)

type emitOptions struct {
	addr  string
	token string
	data  string
}

func newEmitCmd(root *rootOptions) *cobra.Command {
	opts := &emitOptions{}
	cmd := &cobra.Command{
		Use:   "emit TYPE",
		Short: "Publish an event to a running gateway",
		Example: `  idlebell emit session.idle
  idlebell emit message.created --data '{"sessionID":"ses_1"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.addr == "" {
				cfg, _, err := root.load()
				if err != nil {
					return err
				}
				opts.addr = "http://" + cfg.Addr()
			}
			ev := sdk.Event{Type: sdk.EventType(args[0])}
			if opts.data != "" {
				if err := json.Unmarshal([]byte(opts.data), &ev.Data); err != nil {
					return fmt.Errorf("--data: %w", err)
				}
			}
			if err := emit(cmd.Context(), http.DefaultClient, opts.addr, opts.token, ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", ev.Type)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "gateway base URL (default from config)")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token when auth is enabled")
	cmd.Flags().StringVar(&opts.data, "data", "", "event data as a JSON object")
	return cmd
}

func emit(ctx context.Context, client *http.Client, addr, token string, ev sdk.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := strings.TrimRight(addr, "/") + "/v1/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emit %s: %s: %s", ev.Type, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
