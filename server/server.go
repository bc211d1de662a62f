package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/dsgn-lab/dock/pkg/capture"
	"github.com/dsgn-lab/dock/pkg/oauth"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the websocket command envelope.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Config struct {
	Port string
}

// Server exposes the capture command surface over websocket and the OAuth
// login/callback pair over plain HTTP.
type Server struct {
	config       Config
	orchestrator *capture.Orchestrator
	exchanger    *oauth.Exchanger // nil when the delegated variant is off

	mu            sync.Mutex
	pendingStates map[string]bool
}

func New(orchestrator *capture.Orchestrator, exchanger *oauth.Exchanger, config Config) *Server {
	return &Server{
		config:        config,
		orchestrator:  orchestrator,
		exchanger:     exchanger,
		pendingStates: make(map[string]bool),
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/callback", s.handleCallback)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) ListenAndServe() error {
	port := s.config.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting capture server on port %s", port)
	return http.ListenAndServe(":"+port, s.Routes())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte("dock is running"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.exchanger == nil {
		http.Error(w, "OAuth is not configured", http.StatusNotFound)
		return
	}

	state := newStateToken()
	s.rememberState(state)
	http.Redirect(w, r, s.exchanger.BeginAuthorization(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.exchanger == nil {
		http.Error(w, "OAuth is not configured", http.StatusNotFound)
		return
	}

	// A callback with an unknown or missing state never reaches the token
	// endpoint; it cannot be tied to a login this server issued.
	if !s.consumeState(r.URL.Query().Get("state")) {
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := s.exchanger.Exchange(r.Context(), r.URL.Query().Get("code"))
	switch {
	case errors.Is(err, oauth.ErrMissingCode):
		http.Error(w, "Authorization failed", http.StatusBadRequest)
	case err != nil:
		log.Printf("token exchange failed: %v", err)
		http.Error(w, "Failed to retrieve access token", http.StatusBadRequest)
	default:
		fmt.Fprint(w, token.AccessToken)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// gorilla/websocket allows one concurrent writer per connection;
	// captures running in parallel share this lock.
	var writeMu sync.Mutex

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		go s.handleCommand(conn, &writeMu, msg)
	}
}

// handleCommand runs one `save <url>` capture and reports on the same
// connection. Commands from the same or different connections run as
// independent units of work.
func (s *Server) handleCommand(conn *websocket.Conn, writeMu *sync.Mutex, msg Message) {
	fields := strings.Fields(msg.Content)
	if len(fields) != 2 || fields[0] != "save" {
		s.sendMessage(conn, writeMu, "error", "usage: save <url>")
		return
	}

	url := fields[1]
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}

	result := s.orchestrator.CaptureWith(context.Background(), url, func(status string) {
		s.sendMessage(conn, writeMu, "status", status)
	})

	if result.Saved() {
		s.sendMessage(conn, writeMu, "response", result.Message())
	} else {
		s.sendMessage(conn, writeMu, "error", result.Message())
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, writeMu *sync.Mutex, msgType string, content string) {
	writeMu.Lock()
	defer writeMu.Unlock()

	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *Server) rememberState(state string) {
	s.mu.Lock()
	s.pendingStates[state] = true
	s.mu.Unlock()
}

func (s *Server) consumeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == "" || !s.pendingStates[state] {
		return false
	}
	delete(s.pendingStates, state)
	return true
}

func newStateToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Printf("state token generation degraded: %v", err)
	}
	return hex.EncodeToString(buf)
}
