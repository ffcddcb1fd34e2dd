package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/chalkline/league-system/live"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS для сокетов решается на уровне роутера.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Serve подключает клиента к комнате матча: GET /ws?match={id}.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	matchID, err := strconv.Atoi(r.URL.Query().Get("match"))
	if err != nil || matchID < 1 {
		badRequestResponse(w, r, errors.New("invalid match query parameter"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту.
		return
	}

	client := live.NewClient(h.hub, conn, fmt.Sprintf("match-%d", matchID))
	go client.Serve()
}
