// Package source pulls events from the agent host and publishes them on
// the bus.
package source

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/EchoPBX/idlebell/internal/config"
	"github.com/EchoPBX/idlebell/pkg/sdk"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// frame is one message of the upstream stream. Hosts send the payload as
// either "properties" or "data".
type frame struct {
	Type       sdk.EventType  `json:"type"`
	Properties map[string]any `json:"properties"`
	Data       map[string]any `json:"data"`
}

func (f frame) event() sdk.Event {
	data := f.Properties
	if data == nil {
		data = f.Data
	}
	return sdk.Event{Type: f.Type, Data: data}
}

// Decode parses one upstream frame.
func Decode(b []byte) (sdk.Event, error) {
	var f frame
	if err := json.Unmarshal(b, &f); err != nil {
		return sdk.Event{}, err
	}
	if f.Type == "" {
		return sdk.Event{}, errors.New("event without type")
	}
	return f.event(), nil
}

type Client struct {
	log *zap.Logger
	bus sdk.Bus

	mu   sync.Mutex
	cfg  *config.Config
	conn *websocket.Conn
}

func NewClient(cfg *config.Config, log *zap.Logger, bus sdk.Bus) *Client {
	return &Client{cfg: cfg, log: log, bus: bus}
}

func (c *Client) config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Run blocks until ctx is done, reconnecting whenever the stream drops.
func (c *Client) Run(ctx context.Context) {
	cfg := c.config()
	if cfg.Source.Fake {
		c.runFake(ctx, cfg.Source.FakeInterval)
		return
	}
	if cfg.Source.URL == "" {
		c.log.Info("no event source configured, waiting for HTTP events")
		<-ctx.Done()
		return
	}

	for {
		cfg = c.config()
		if err := c.stream(ctx, cfg); err != nil && ctx.Err() == nil {
			c.log.Warn("event source", zap.String("url", cfg.Source.URL), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.Source.ReconnectDelay):
		}
	}
}

func (c *Client) stream(ctx context.Context, cfg *config.Config) error {
	d := websocket.Dialer{
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: cfg.Source.Insecure},
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := d.DialContext(ctx, cfg.Source.URL, http.Header{"User-Agent": {"idlebell"}})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	// cerrar la conexión desbloquea ReadMessage cuando se cancela ctx
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.log.Info("event source connected", zap.String("url", cfg.Source.URL))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := Decode(msg)
		if err != nil {
			c.log.Debug("skipping frame", zap.Error(err))
			continue
		}
		c.bus.Publish(ev)
	}
}

func (c *Client) runFake(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			data := map[string]any{"sessionID": "ses_fake", "ts": now.Unix()}
			c.bus.Publish(sdk.Event{Type: sdk.EventMessageUpdated, Data: data})
			c.bus.Publish(sdk.Event{Type: sdk.EventSessionIdle, Data: data})
		}
	}
}

// Reload swaps the configuration used on the next reconnect.
func (c *Client) Reload(cfg *config.Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
