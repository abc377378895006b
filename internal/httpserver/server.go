package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/EchoPBX/idlebell/internal/config"
	"github.com/EchoPBX/idlebell/internal/jwt"
	"github.com/EchoPBX/idlebell/internal/plugins"
	"github.com/EchoPBX/idlebell/pkg/sdk"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Version is reported by /v1/info.
var Version = "dev"

// PluginLister is the part of the plugin manager the API needs.
type PluginLister interface {
	List() []plugins.Info
}

type Server struct {
	log     *zap.Logger
	bus     sdk.Bus
	plugins PluginLister
	r       *chi.Mux

	mu   sync.RWMutex
	cfg  *config.Config
	auth *jwt.Validator
}

func New(cfg *config.Config, log *zap.Logger, bus sdk.Bus, pl PluginLister) (*Server, error) {
	v, err := validatorFor(cfg)
	if err != nil {
		return nil, err
	}
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	s := &Server{cfg: cfg, log: log, bus: bus, plugins: pl, r: r, auth: v}
	s.routes()
	return s, nil
}

func validatorFor(cfg *config.Config) (*jwt.Validator, error) {
	if !cfg.Auth.Enabled {
		return nil, nil
	}
	return jwt.NewValidator(cfg.Auth.JWTPublicKeys, cfg.Auth.Issuer, cfg.Auth.Audience)
}

func (s *Server) Router() http.Handler { return s.r }

// Reload swaps config and token validator. On error the previous ones stay.
func (s *Server) Reload(cfg *config.Config) error {
	v, err := validatorFor(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg, s.auth = cfg, v
	s.mu.Unlock()
	return nil
}

func (s *Server) routes() {
	s.r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.r.Get("/v1/info", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":    "idlebell",
			"version": Version,
			"time":    time.Now().UTC(),
		})
	}))

	s.r.Get("/v1/plugins", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.plugins.List())
	}))

	s.r.Post("/v1/events", s.requireAuth(s.publishEvent))
	s.r.Get("/v1/events", s.streamEvents)
}

func (s *Server) publishEvent(w http.ResponseWriter, r *http.Request) {
	var ev sdk.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&ev); err != nil {
		http.Error(w, "invalid event: "+err.Error(), http.StatusBadRequest)
		return
	}
	if ev.Type == "" {
		http.Error(w, "event type required", http.StatusBadRequest)
		return
	}
	if !ev.Type.Known() {
		s.log.Debug("publishing unknown event type", zap.String("type", ev.Type.String()))
	}
	s.bus.Publish(ev)
	writeJSON(w, http.StatusAccepted, map[string]any{"type": ev.Type})
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	// (MVP) sin auth en WS
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	ch := s.bus.Subscribe()
	closed := make(chan struct{})

	// escritor: empuja eventos al cliente
	go func() {
		defer func() {
			s.bus.Unsubscribe(ch)
			_ = conn.Close()
		}()
		for {
			select {
			case <-closed:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					s.log.Debug("ws write error", zap.Error(err))
					return
				}
			}
		}
	}()

	// lector mínimo para detectar cierre del cliente (control frames)
	defer close(closed)
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		enabled, v := s.cfg.Auth.Enabled, s.auth
		s.mu.RUnlock()
		if !enabled {
			next(w, r)
			return
		}

		tok := r.Header.Get("Authorization")
		if tok == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		tok = strings.TrimPrefix(tok, "Bearer ")
		if _, err := v.Verify(tok); err != nil {
			s.log.Debug("token rejected", zap.Error(err))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
