package websocket

import (
	"sync"

	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/services"
	"github.com/gofiber/contrib/websocket"
)

// PathsMoved tells connected pages that test paths changed, so they can follow the move.
type PathsMoved struct {
	Type    string                `json:"type"`
	Changes []services.PathChange `json:"changes"`
}

var clients = make(map[*websocket.Conn]struct{})
var clientsMu sync.Mutex
var Register = make(chan *websocket.Conn)
var Unregister = make(chan *websocket.Conn)
var broadcast = make(chan PathsMoved, 64)

func RunHub() {
	for {
		select {
		case conn := <-Register:
			clientsMu.Lock()
			clients[conn] = struct{}{}
			clientsMu.Unlock()
			logger.Log.Debug("path subscriber registered", "remote", conn.RemoteAddr().String())
		case conn := <-Unregister:
			clientsMu.Lock()
			delete(clients, conn)
			clientsMu.Unlock()
		case msg := <-broadcast:
			clientsMu.Lock()
			for conn := range clients {
				if err := conn.WriteJSON(msg); err != nil {
					logger.Log.Warn("dropping path subscriber", "error", err)
					conn.Close()
					delete(clients, conn)
				}
			}
			clientsMu.Unlock()
		}
	}
}

// BroadcastPathChanges queues a notification; it never blocks the caller.
func BroadcastPathChanges(changes []services.PathChange) {
	if len(changes) == 0 {
		return
	}
	select {
	case broadcast <- PathsMoved{Type: "paths_moved", Changes: changes}:
	default:
		logger.Log.Warn("path change broadcast queue full, dropping", "changes", len(changes))
	}
}

// Subscribe serves one websocket connection until the client goes away.
func Subscribe(c *websocket.Conn) {
	Register <- c
	defer func() { Unregister <- c }()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
