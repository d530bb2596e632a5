package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // deployment fronts this with its own auth
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type   string `json:"type"`
	Output string `json:"output,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleRunWS serves a persistent channel for callers that submit snippets
// repeatedly: each {"type":"run","code":...} message is executed and
// answered with a result frame on the same connection.
func (s *Server) handleRunWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Printf("websocket read error: %v", err)
			return
		}

		if msg.Type != "run" || msg.Code == "" {
			wsWriteJSON(conn, wsOutgoing{Type: "error", Error: "invalid message"})
			continue
		}

		output, status := s.execute(r.Context(), msg.Code)
		if status == "" {
			wsWriteJSON(conn, wsOutgoing{Type: "error", Error: output})
			return
		}
		wsWriteJSON(conn, wsOutgoing{Type: "result", Output: output, Status: string(status)})
	}
}

func wsWriteJSON(conn *websocket.Conn, msg wsOutgoing) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}
