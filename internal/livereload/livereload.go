// Package livereload implements the LiveReload protocol so the browser
// extension, or the script served at /livereload.js, reloads pages when a
// build finishes.
package livereload

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/wolfeidau/webassets/internal/http"
)

const (
	// DefaultAddr is the port LiveReload clients connect to.
	DefaultAddr = "127.0.0.1:35729"

	ProtocolV7 = "http://livereload.com/protocols/official-7"

	serverName = "webassets"
	writeWait  = 5 * time.Second
)

var ErrNotStarted = errors.New("livereload server not started")

// Message is a LiveReload protocol command.
type Message struct {
	Command    string   `json:"command"`
	Protocols  []string `json:"protocols,omitempty"`
	ServerName string   `json:"serverName,omitempty"`
	Path       string   `json:"path,omitempty"`
	LiveCSS    bool     `json:"liveCSS,omitempty"`
	LiveImg    bool     `json:"liveImg,omitempty"`
}

type Server struct {
	addr     string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	srv     *http.Server
	ln      net.Listener
	wg      sync.WaitGroup
}

type client struct {
	conn *websocket.Conn
	send chan Message
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// New creates a server listening on addr once started.
func New(addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		addr:    addr,
		clients: map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			// the browser page is served from another origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start binds the listener, retrying while the port is still held by a
// previous process, and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := backoff.Retry(ctx, func() (net.Listener, error) {
		return net.Listen("tcp", s.addr)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livereload", s.handleWebsocket)
	mux.HandleFunc("/livereload.js", handleScript)

	srv := &http.Server{
		Handler:           httpmiddleware.RequestLogger(log.Logger)(mux),
		ReadHeaderTimeout: time.Second,
	}

	s.mu.Lock()
	s.ln = ln
	s.srv = srv
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("LiveReload server failed")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("LiveReload server listening")
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Reload tells every connected client to reload path.
func (s *Server) Reload(path string) {
	msg := Message{Command: "reload", Path: path, LiveCSS: true, LiveImg: true}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn().Msg("LiveReload client too slow, dropping reload")
		}
	}
	log.Debug().Int("clients", len(s.clients)).Str("path", path).Msg("Sent reload")
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close stops the server and disconnects all clients.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.srv
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	if srv == nil {
		return ErrNotStarted
	}

	err := srv.Close()
	for _, c := range clients {
		_ = c.conn.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("LiveReload upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan Message, 8)}

	// registration and wg.Add happen under mu so Close sees every client
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.wg.Add(2)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.writeLoop(c)
	}()

	defer s.wg.Done()
	s.readLoop(c)

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

func (s *Server) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Command == "hello" {
			hello := Message{
				Command:    "hello",
				Protocols:  []string{ProtocolV7},
				ServerName: serverName,
			}
			select {
			case c.send <- hello:
			default:
			}
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	_, _ = w.Write([]byte(clientScript))
}

const clientScript = `(function () {
  var src = document.currentScript && document.currentScript.src;
  var host = src ? new URL(src).host : location.hostname + ":35729";
  function connect() {
    var ws = new WebSocket("ws://" + host + "/livereload");
    ws.onopen = function () {
      ws.send(JSON.stringify({ command: "hello", protocols: ["` + ProtocolV7 + `"] }));
    };
    ws.onmessage = function (event) {
      var msg = JSON.parse(event.data);
      if (msg.command !== "reload") return;
      if (msg.liveCSS && /\.css$/.test(msg.path)) {
        document.querySelectorAll('link[rel="stylesheet"]').forEach(function (link) {
          var url = new URL(link.href);
          url.searchParams.set("livereload", Date.now());
          link.href = url.toString();
        });
        return;
      }
      location.reload();
    };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();
`
