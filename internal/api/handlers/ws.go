package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"lastmile-route-service/internal/bus"
)

// DefaultIdleTimeout disconnects subscribers that send nothing for a
// minute. Any client frame counts as a liveness token.
const DefaultIdleTimeout = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The demo UI is served from another origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	Bus         *bus.Bus
	IdleTimeout time.Duration
}

// Serve upgrades the connection and streams the route's reroute events
// until the client goes idle, disconnects, or falls too far behind.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(r, "route_id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "route_id must be a positive integer")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: route_id=%d upgrade: %v", routeID, err)
		return
	}

	idle := h.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}

	sub := h.Bus.Subscribe(routeID)

	// Read pump: client frames only refresh the idle deadline. Exits
	// on disconnect or timeout and tears the subscription down, which
	// ends the write loop below.
	go func() {
		defer h.Bus.Unsubscribe(sub)
		defer conn.Close()
		for {
			if err := conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
				return
			}
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for ev := range sub.C {
		if err := conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			break
		}
		if err := conn.WriteJSON(ev); err != nil {
			break
		}
	}
	h.Bus.Unsubscribe(sub)
	conn.Close()
}
