package main

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// newHandler wires the full HTTP surface: the websocket endpoint plus
// the stateless auth, events, health and stats routes.
func newHandler(cfg *Config) (http.Handler, *hub) {
	h := newHub(cfg)

	r := mux.NewRouter()
	r.Path(cfg.WSPath).Handler(newWsHandler(h, cfg))
	r.Path("/auth").Methods("POST").Handler(authHandler{auth: h.auth})
	r.Path("/events").Methods("POST").Handler(eventsHandler{h: h})
	r.Path("/health").Methods("GET").Handler(healthHandler{h: h})
	r.Path("/admin/stats").Methods("GET").Handler(statsHandler{h: h})

	return corsHandler{next: r}, h
}

// corsHandler is permissive; TLS termination and access control for the
// admin route sit upstream.
type corsHandler struct {
	next http.Handler
}

func (c corsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	c.next.ServeHTTP(w, r)
}

type wsHandler struct {
	h        *hub
	upgrader *websocket.Upgrader
}

func newWsHandler(h *hub, cfg *Config) wsHandler {
	return wsHandler{
		h: h,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// originChecker builds the upgrade origin policy. A wildcard entry
// admits everything; otherwise the Origin header must be on the allow
// list. Requests without an Origin header (non-browser clients) pass.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

func (wsh wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		serveWebClient(w, r)
		return
	}
	ws, err := wsh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		return
	}
	ip := remoteIP(r)
	if !wsh.h.limiter.addConnection(ip) {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reasonConnLimit),
			time.Now().Add(writeWait))
		ws.Close()
		log.Warn().Str("remote_ip", ip).Msg("connection limit exceeded")
		return
	}
	c := newConnection(websocketInteractor{ws: ws}, wsh.h, ip)
	c.run()
}

// remoteIP prefers the first X-Forwarded-For entry, falling back to the
// transport's remote address.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type authHandler struct {
	auth *authSigner
}

type authRequest struct {
	SocketID    string `json:"socket_id"`
	ChannelName string `json:"channel_name"`
	ChannelData string `json:"channel_data,omitempty"`
}

type authResponse struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// ServeHTTP signs channel access tokens. The endpoint is stateless: it
// does not verify the socket id exists; the binding is enforced at
// subscribe time.
func (ah authHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SocketID == "" {
		sendJSONError(w, http.StatusBadRequest, "socket_id is required")
		return
	}
	if !isValidChannel(req.ChannelName) {
		sendJSONError(w, http.StatusBadRequest, "invalid channel_name")
		return
	}
	sendJSON(w, http.StatusOK, authResponse{
		Auth:        ah.auth.token(req.SocketID, req.ChannelName),
		ChannelData: req.ChannelData,
	})
}

type eventsHandler struct {
	h *hub
}

type serverEvent struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// ServeHTTP triggers a trusted server-side broadcast. Channel type and
// rate limits do not apply.
func (eh eventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var ev serverEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !isValidChannel(ev.Channel) {
		sendJSONError(w, http.StatusBadRequest, "invalid channel")
		return
	}
	if ev.Event == "" || len(ev.Event) > eventNameMax {
		sendJSONError(w, http.StatusBadRequest, "invalid event")
		return
	}
	eh.h.broadcastServerEvent(ev.Channel, ev.Event, ev.Data)
	sendJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type healthHandler struct {
	h *hub
}

func (hh healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"stats":     hh.h.stats(),
	})
}

type statsHandler struct {
	h *hub
}

func (sh statsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"stats":     sh.h.stats(),
		"counters":  m.counters(),
	})
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encode failed")
	}
}

func sendJSONError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}
