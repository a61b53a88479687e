package api

import (
	"log"
	"net/http"

	"options-core/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the envelope pushed to websocket clients.
type wsMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	ticks, unsubTicks := s.Bus.Subscribe(events.EventPriceTick, 100)
	defer unsubTicks()
	opened, unsubOpened := s.Bus.Subscribe(events.EventOptionOpened, 16)
	defer unsubOpened()
	settled, unsubSettled := s.Bus.Subscribe(events.EventOptionSettled, 16)
	defer unsubSettled()
	notices, unsubNotices := s.Bus.Subscribe(events.EventNotice, 16)
	defer unsubNotices()

	// Reader goroutine only to detect disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		var msg wsMessage
		select {
		case p := <-ticks:
			msg = wsMessage{Type: string(events.EventPriceTick), Payload: p}
		case p := <-opened:
			msg = wsMessage{Type: string(events.EventOptionOpened), Payload: p}
		case p := <-settled:
			msg = wsMessage{Type: string(events.EventOptionSettled), Payload: p}
		case p := <-notices:
			msg = wsMessage{Type: string(events.EventNotice), Payload: p}
		case <-closed:
			return
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
