// Package livereload implements the server side of the LiveReload protocol.
// Browser extensions and the livereload.js snippet connect over a
// WebSocket; after a rebuild the server tells them which files changed so
// stylesheets can be swapped in place and everything else reloads the page.
package livereload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ProtocolOfficial7 is the protocol version announced in the handshake.
const ProtocolOfficial7 = "http://livereload.com/protocols/official-7"

const writeTimeout = 5 * time.Second

// message is the union of the protocol's JSON commands.
type message struct {
	Command    string   `json:"command"`
	Protocols  []string `json:"protocols,omitempty"`
	ServerName string   `json:"serverName,omitempty"`
	Path       string   `json:"path,omitempty"`
	LiveCSS    bool     `json:"liveCSS,omitempty"`
	LiveImg    bool     `json:"liveImg,omitempty"`
}

type client struct {
	conn *websocket.Conn

	// mu serialises writes; gorilla connections allow one writer.
	mu sync.Mutex
}

func (c *client) send(m message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return c.conn.WriteJSON(m)
}

// Server tracks connected clients and broadcasts reload commands.
type Server struct {
	addr     string
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	srv     *http.Server
	ln      net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server that will listen on addr.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		logger:  slog.Default(),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			// Pages are served from any origin during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/livereload", s.serveWS)
	mux.HandleFunc("/changed", s.serveChanged)
	mux.HandleFunc("/", s.serveBanner)

	return mux
}

// Start binds the listen address and serves in the background until ctx is
// done or Close is called. A bind failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("livereload: listening on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.srv = srv
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("livereload server stopped", slog.String("error", serveErr.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	s.logger.Info("livereload server listening", slog.String("addr", ln.Addr().String()))

	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return s.ln.Addr().String()
	}

	return s.addr
}

// Close stops the server and disconnects every client. It is safe to call
// more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil

	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}

	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}

// Reload tells every client that paths changed. Clients that cannot be
// written to are dropped. It returns the number of clients reached.
func (s *Server) Reload(paths []string) int {
	if len(paths) == 0 {
		return 0
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	reached := 0

	for _, c := range clients {
		ok := true

		for _, p := range paths {
			if err := c.send(message{Command: "reload", Path: p, LiveCSS: true, LiveImg: true}); err != nil {
				s.logger.Debug("dropping livereload client", slog.String("error", err.Error()))
				s.drop(c)

				ok = false

				break
			}
		}

		if ok {
			reached++
		}
	}

	s.logger.Debug("livereload broadcast", slog.Any("paths", paths), slog.Int("clients", reached))

	return reached
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()

	_ = c.conn.Close()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{conn: conn}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	defer s.drop(c)

	for {
		var m message
		if err := conn.ReadJSON(&m); err != nil {
			return
		}

		switch m.Command {
		case "hello":
			reply := message{Command: "hello", Protocols: []string{ProtocolOfficial7}, ServerName: "assetpipe"}
			if err := c.send(reply); err != nil {
				return
			}
		default:
			// info and unknown commands need no answer.
		}
	}
}

func (s *Server) serveBanner(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"assetpipe": "Welcome", "protocol": ProtocolOfficial7})
}

// serveChanged triggers a reload from outside, e.g. an editor hook. Files
// are given as ?files=a,b or as a JSON body {"files": [...]}.
func (s *Server) serveChanged(w http.ResponseWriter, r *http.Request) {
	files := []string{}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if r.Body != nil && strings.Contains(r.Header.Get("Content-Type"), "json") {
			var body struct {
				Files []string `json:"files"`
			}

			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid JSON body", http.StatusBadRequest)
				return
			}

			files = append(files, body.Files...)
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	for _, f := range strings.Split(r.URL.Query().Get("files"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}

	reached := s.Reload(files)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"clients": reached, "files": files})
}
