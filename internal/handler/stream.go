package handler

import (
	"log"
	"net/http"
	"time"

	"guardian-inventory/internal/inventory"
	"guardian-inventory/internal/model"
	"guardian-inventory/internal/service"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 512
)

// StreamHandler pushes every published inventory view to websocket clients.
type StreamHandler struct {
	inventoryService *service.InventoryService
	upgrader         websocket.Upgrader
}

// ViewMessage is one pushed view.
type ViewMessage struct {
	Type       string                `json:"type"`
	Generation uint64                `json:"generation"`
	Items      []model.InventoryItem `json:"items"`
}

// NewStreamHandler creates a stream handler. allowOrigin decides which
// browser origins may connect; nil allows all.
func NewStreamHandler(inventoryService *service.InventoryService, allowOrigin func(origin string) bool) *StreamHandler {
	return &StreamHandler{
		inventoryService: inventoryService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowOrigin == nil {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin(origin)
			},
		},
	}
}

// Stream handles GET /api/v1/inventory/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Stream] WebSocket upgrade failed: %v", err)
		return
	}

	views, cancel := h.inventoryService.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go readPump(ws, closed)
	h.writePump(ws, views, closed)
}

// readPump discards client frames and signals when the peer goes away.
func readPump(ws *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Stream] WebSocket read error: %v", err)
			}
			return
		}
	}
}

func (h *StreamHandler) writePump(ws *websocket.Conn, views <-chan inventory.View, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	current := h.inventoryService.Inventory(false)
	if err := writeView(ws, current.Generation, current.Items); err != nil {
		return
	}
	sent := current.Generation

	for {
		select {
		case view, ok := <-views:
			if !ok {
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if view.Generation <= sent {
				continue
			}
			if err := writeView(ws, view.Generation, view.Items); err != nil {
				log.Printf("[Stream] WebSocket write error: %v", err)
				return
			}
			sent = view.Generation

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}

func writeView(ws *websocket.Conn, generation uint64, items []model.InventoryItem) error {
	if items == nil {
		items = []model.InventoryItem{}
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(ViewMessage{Type: "view", Generation: generation, Items: items})
}
