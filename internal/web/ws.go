package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type wsInbound struct {
	Message string `json:"message"`
}

type wsOutbound struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleWebsocket runs a chat session over a websocket. Each socket is
// one connection: the session registry keys off the generated ID, and
// the session ends when the socket closes.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	defer s.agent.EndSession(connID)
	s.logger.Info("websocket connected", "connection", connID)

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "connection", connID, "error", err)
			}
			return
		}
		if in.Message == "" {
			if err := conn.WriteJSON(wsOutbound{Error: "message is required"}); err != nil {
				return
			}
			continue
		}

		reply, err := s.agent.HandleTurn(r.Context(), connID, in.Message)
		if err != nil {
			s.logger.Error("turn failed", "connection", connID, "error", err)
			if err := conn.WriteJSON(wsOutbound{Error: "turn failed"}); err != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(wsOutbound{Reply: reply}); err != nil {
			return
		}
	}
}
