package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/apierrors"
	"github.com/loopboard/loopboard/internal/realtime"
)

const maxEventBody = 64 << 10

// EventsHandler accepts server-side event emissions from trusted internal
// callers and fans them out through the notification hub. The endpoint is
// mounted under /internal and is not part of the public API surface.
type EventsHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewEventsHandler wires the emission endpoint to a hub.
func NewEventsHandler(hub *realtime.Hub, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{hub: hub, logger: logger}
}

// emitRequest is the POST /internal/events body. Which fields matter depends
// on the event type; unused fields are ignored.
type emitRequest struct {
	Type           string                 `json:"type"`
	UserID         int64                  `json:"user_id"`
	PostID         int64                  `json:"post_id"`
	LikeCount      int64                  `json:"like_count"`
	CommentCount   int64                  `json:"comment_count"`
	Comment        map[string]interface{} `json:"comment"`
	ConversationID string                 `json:"conversation_id"`
	Payload        map[string]interface{} `json:"payload"`
}

// Emit serves POST /internal/events. Delivery is fire-and-forget: a 202 means
// the event was handed to the hub, not that any client received it.
func (h *EventsHandler) Emit(w http.ResponseWriter, r *http.Request) {
	var req emitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&req); err != nil {
		apierrors.RespondWithError(w, r, apierrors.NewInvalidInputError("invalid request body").WithCause(err))
		return
	}

	switch req.Type {
	case realtime.EventNotification:
		if req.UserID <= 0 {
			apierrors.RespondWithEnvelope(w, r, apierrors.NewValidationError("user_id is required for notification events"))
			return
		}
		h.hub.SendNotification(req.UserID, req.Payload)

	case realtime.EventLikeUpdate:
		if req.PostID <= 0 {
			apierrors.RespondWithEnvelope(w, r, apierrors.NewValidationError("post_id is required for like_update events"))
			return
		}
		h.hub.BroadcastLikeUpdate(req.PostID, req.LikeCount, req.UserID)

	case realtime.EventCommentUpdate:
		if req.PostID <= 0 {
			apierrors.RespondWithEnvelope(w, r, apierrors.NewValidationError("post_id is required for comment_update events"))
			return
		}
		h.hub.BroadcastCommentUpdate(req.PostID, req.CommentCount, req.Comment)

	case realtime.EventNewMessage:
		if req.ConversationID == "" {
			apierrors.RespondWithEnvelope(w, r, apierrors.NewValidationError("conversation_id is required for new_message events"))
			return
		}
		h.hub.SendMessage(req.ConversationID, req.Payload)

	default:
		apierrors.RespondWithEnvelope(w, r,
			apierrors.NewInvalidInputError("unknown event type").WithDetail("type", req.Type))
		return
	}

	h.logger.Debug("accepted internal event", zap.String("type", req.Type))
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "type": req.Type})
}
