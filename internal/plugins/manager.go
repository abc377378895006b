package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"plugin"
	"sort"
	"sync"
	"time"

	"github.com/EchoPBX/idlebell/internal/events"
	"github.com/EchoPBX/idlebell/pkg/sdk"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// PluginManifest describe el archivo plugins.json
type PluginManifest struct {
	Plugins []PluginEntry `json:"plugins"`
}

type PluginEntry struct {
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Builtin string         `json:"builtin,omitempty"`
	Server  *PluginServer  `json:"server,omitempty"`
	Config  map[string]any `json:"config,omitempty"`
}

// PluginServer points at a Go plugin built with -buildmode=plugin.
type PluginServer struct {
	Path  string `json:"path"`
	Entry string `json:"entry"`
}

// Factory builds a fresh instance of a compiled-in plugin.
type Factory func() sdk.Plugin

// Info is what the manager reports about a loaded plugin.
type Info struct {
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	Subscriber bool      `json:"subscriber"`
	LoadedAt   time.Time `json:"loaded_at"`
}

var (
	ErrNoSource       = errors.New("plugin entry has neither builtin nor server")
	ErrUnknownBuiltin = errors.New("unknown builtin plugin")
	ErrBadSymbol      = errors.New("plugin symbol does not implement sdk.Plugin")
)

type loaded struct {
	info   Info
	plugin sdk.Plugin
	ch     chan sdk.Event
	cancel context.CancelFunc
	done   chan struct{}
}

// Options configures a Manager.
type Options struct {
	Builtins       map[string]Factory
	HandlerTimeout time.Duration
}

// Manager controla los plugins cargados
type Manager struct {
	log    *zap.Logger
	bus    sdk.Bus
	runner sdk.CommandRunner
	opts   Options

	mu      sync.RWMutex
	plugins map[string]*loaded
}

func NewManager(log *zap.Logger, bus sdk.Bus, runner sdk.CommandRunner, opts Options) *Manager {
	return &Manager{
		log:     log,
		bus:     bus,
		runner:  runner,
		opts:    opts,
		plugins: make(map[string]*loaded),
	}
}

// ReadManifest parses a plugins.json file.
func ReadManifest(path string) (*PluginManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest PluginManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &manifest, nil
}

// LoadManifest carga plugins.json y los inicializa
func (m *Manager) LoadManifest(path string) error {
	manifest, err := ReadManifest(path)
	if err != nil {
		return err
	}
	m.LoadEntries(manifest.Plugins)
	return nil
}

// LoadEntries loads every entry that is not loaded yet. A failing entry is
// logged and skipped.
func (m *Manager) LoadEntries(entries []PluginEntry) {
	for _, p := range entries {
		if m.isLoaded(p.Name) {
			continue
		}
		if err := m.Load(p); err != nil {
			m.log.Error("failed to load plugin",
				zap.String("name", p.Name),
				zap.Error(err))
		}
	}
}

func (m *Manager) isLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.plugins[name]
	return ok
}

// Load instantiates and initializes one plugin. Subscribers start receiving
// bus events once Init has succeeded.
func (m *Manager) Load(entry PluginEntry) error {
	if entry.Name == "" {
		return errors.New("plugin entry without name")
	}
	plug, err := m.instantiate(entry)
	if err != nil {
		return err
	}

	log := m.log.With(zap.String("plugin", entry.Name))
	ctx := sdk.NewContext(log, m.bus, m.runner, entry.Config)
	if err := plug.Init(ctx); err != nil {
		return fmt.Errorf("init %s: %w", entry.Name, err)
	}

	l := &loaded{
		info: Info{
			Name:     entry.Name,
			Version:  entry.Version,
			LoadedAt: time.Now().UTC(),
		},
		plugin: plug,
	}
	if sub, ok := plug.(sdk.Subscriber); ok {
		l.info.Subscriber = true
		m.startDispatch(l, sub, log)
	}

	m.mu.Lock()
	m.plugins[entry.Name] = l
	m.mu.Unlock()

	m.bus.Publish(sdk.Event{
		Type: sdk.EventPluginLoaded,
		Data: map[string]any{
			"name":    entry.Name,
			"version": entry.Version,
			"time":    l.info.LoadedAt.Unix(),
		},
	})

	m.log.Info("plugin loaded",
		zap.String("name", entry.Name),
		zap.String("version", entry.Version),
		zap.Bool("subscriber", l.info.Subscriber))

	return nil
}

func (m *Manager) instantiate(entry PluginEntry) (sdk.Plugin, error) {
	switch {
	case entry.Builtin != "":
		f, ok := m.opts.Builtins[entry.Builtin]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBuiltin, entry.Builtin)
		}
		return f(), nil
	case entry.Server != nil:
		return openShared(*entry.Server)
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoSource, entry.Name)
	}
}

func openShared(s PluginServer) (sdk.Plugin, error) {
	p, err := plugin.Open(s.Path)
	if err != nil {
		return nil, err
	}
	entry := s.Entry
	if entry == "" {
		entry = "Plugin"
	}
	sym, err := p.Lookup(entry)
	if err != nil {
		return nil, err
	}
	// Lookup devuelve un puntero cuando el símbolo es una variable.
	switch v := sym.(type) {
	case sdk.Plugin:
		return v, nil
	case *sdk.Plugin:
		return *v, nil
	case func() sdk.Plugin:
		return v(), nil
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrBadSymbol, entry, s.Path)
}

// startDispatch feeds bus events to sub. Handler failures are logged and
// do not stop delivery.
func (m *Manager) startDispatch(l *loaded, sub sdk.Subscriber, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	l.ch = m.bus.Subscribe()
	l.cancel = cancel
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		events.Dispatch(ctx, l.ch, sub, events.DispatchOptions{
			Timeout: m.opts.HandlerTimeout,
			OnError: func(ev sdk.Event, err error) {
				log.Warn("event handler failed",
					zap.String("event", ev.Type.String()),
					zap.Error(err))
			},
		})
	}()
}

// List returns the loaded plugins sorted by name.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.plugins))
	for _, l := range m.plugins {
		out = append(out, l.info)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Manager) Reload(path string) error {
	if err := m.LoadManifest(path); err != nil {
		m.log.Warn("plugin reload failed", zap.Error(err))
		return err
	}
	m.bus.Publish(sdk.Event{
		Type: sdk.EventPluginsReloaded,
		Data: map[string]any{
			"time": time.Now().Unix(),
		},
	})
	return nil
}

// Shutdown stops delivery to every plugin, then calls Stop on each of them.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	plugins := m.plugins
	m.plugins = make(map[string]*loaded)
	m.mu.Unlock()

	var errs error
	for name, l := range plugins {
		if l.cancel != nil {
			l.cancel()
			<-l.done
			m.bus.Unsubscribe(l.ch)
		}
		if err := l.plugin.Stop(); err != nil {
			m.log.Warn("plugin stop failed", zap.String("name", name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("stop %s: %w", name, err))
		}
	}
	return errs
}
