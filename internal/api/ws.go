package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/starford/menuboard/internal/sessions"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsMaxMessage = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Boards are edited from a separately served front end.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is a server to client frame. "state" frames are pushed after
// every committed change; "result" frames answer one client command.
type wsMessage struct {
	Type    string         `json:"type"`
	Result  *CommandResult `json:"result,omitempty"`
	Session sessions.View  `json:"session"`
}

// SessionStream handles GET /api/sessions/{id}/ws. Each text frame the
// client sends is one editor command envelope.
//
//	@Summary		Stream an editing session over WebSocket
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		101
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/ws [get]
func (h *Handler) SessionStream(w http.ResponseWriter, r *http.Request) {
	e, err := h.d.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "session stream", err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	views, cancel := e.Subscribe()
	send := make(chan wsMessage, 32)
	done := make(chan struct{})

	send <- wsMessage{Type: "state", Session: e.View()}
	go h.writePump(conn, views, send, done)
	h.readPump(conn, e, send, done)
	cancel()
}

func (h *Handler) readPump(conn *websocket.Conn, e *sessions.Entry, send chan<- wsMessage, done chan struct{}) {
	defer func() {
		close(done)
		conn.Close()
	}()

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("ws: read failed", slog.String("session", e.ID()), slog.String("error", err.Error()))
			}
			return
		}
		res := applyCommand(e, raw)
		select {
		case send <- wsMessage{Type: "result", Result: &res, Session: e.View()}:
		case <-done:
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, views <-chan sessions.View, send <-chan wsMessage, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	write := func(msg wsMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(msg) == nil
	}

	for {
		select {
		case <-done:
			return
		case msg := <-send:
			if !write(msg) {
				return
			}
		case v, ok := <-views:
			if !ok {
				// Session closed or evicted.
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if !write(wsMessage{Type: "state", Session: v}) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
