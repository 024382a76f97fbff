// WebSocket chat handler.
//
// This file exposes the live chat endpoint:
//   - GET /chat/{id}/ws   (upgrade to WebSocket)
//
// Each connection subscribes to the interview's relay room. Inbound frames
// carry a role and content; the handler persists the message first and only
// then fans it out, so every byte a subscriber sees is already durable.
// Validation failures are answered with an error frame to the offending
// connection only and never disturb other subscribers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/talentwire/go-interview-backend/internal/domain"
	"github.com/talentwire/go-interview-backend/internal/relay"
	"github.com/talentwire/go-interview-backend/internal/services"
)

// upgrader performs the HTTP → WebSocket handshake. Origin checks are
// delegated to the CORS layer in front of the router.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inboundFrame is the client → server message shape.
type inboundFrame struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatWS godoc
// @ID          chatWS
// @Summary     Join the live interview chat
// @Description Upgrades to a WebSocket. Inbound frames ({"role","content"}) are persisted and broadcast to all other subscribers of the interview. Invalid frames receive an error frame on the offending connection only.
// @Tags        Chat
//
// @Param       id  path  string  true  "Interview ID (UUID)"  format(uuid)
//
// @Success     101  {string}  string  "Switching Protocols"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Interview not found"
// @Router      /chat/{id}/ws [get]
func (h *Handlers) ChatWS(c *gin.Context) {
	id, okID := interviewID(c)
	if !okID {
		return
	}

	// Reject unknown interviews before the handshake; after the upgrade the
	// HTTP error surface is gone.
	if _, err := h.interviewSvc.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrInterviewNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "interview not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}
	defer conn.Close()

	sub := relay.NewSubscriber(conn)
	h.relayReg.Subscribe(id, sub)
	defer h.relayReg.Unsubscribe(id, sub)

	log.Debug().Str("interview_id", id).Msg("ws subscriber joined")

	for {
		var in inboundFrame
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("interview_id", id).Msg("ws read failed")
			}
			return
		}

		m, err := h.msgSvc.Append(c.Request.Context(), id, domain.MessageRole(in.Role), in.Content)
		if err != nil {
			// Offender-only error frame; the room stays undisturbed.
			_ = sub.Send(errorFrame(err))
			if errors.Is(err, services.ErrInterviewNotFound) {
				return
			}
			continue
		}

		frame := messageFrame(m)
		if err := sub.Send(frame); err != nil {
			return
		}
		h.relayReg.Publish(id, sub, frame)
	}
}

// errorFrame maps an append failure onto a wire-level error frame.
func errorFrame(err error) relay.Frame {
	code := ErrCodeInternal
	switch {
	case errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrContentTooLong):
		code = ErrCodeBadRequest
	case errors.Is(err, services.ErrInterviewNotFound):
		code = ErrCodeNotFound
	}
	return relay.Frame{Type: relay.FrameError, Code: code, Detail: err.Error()}
}
