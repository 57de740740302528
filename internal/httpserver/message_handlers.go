package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pesan/internal/domain"
	"pesan/internal/realtime"
	"pesan/internal/service"
)

func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		id, err := conversationID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		msgs, err := msgSvc.ListMessages(r.Context(), id, user.ID, limit, offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

type sendMessageRequest struct {
	Content domain.MessageContent `json:"content"`
}

// handleSendMessage is the REST equivalent of the socket send, sharing the
// dispatch path so status advancement and fanout behave identically.
func handleSendMessage(dispatcher *realtime.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		id, err := conversationID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		var req sendMessageRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		msg, err := dispatcher.SendMessage(r.Context(), user.ID, id, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

type editMessageRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

func handleEditMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		id, err := messageID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}
		var req editMessageRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		msg, err := msgSvc.EditMessage(r.Context(), user.ID, id, req.Message)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDeleteMessageForMe(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		id, err := messageID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}
		if err := msgSvc.DeleteForMe(r.Context(), user.ID, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDeleteMessageForEveryone(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		id, err := messageID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}
		msg, err := msgSvc.DeleteForEveryone(r.Context(), user.ID, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

type markDeliveredRequest struct {
	ConversationIDs []int64 `json:"conversation_ids" validate:"required,min=1,dive,gt=0"`
}

func handleMarkDelivered(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req markDeliveredRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		n, err := msgSvc.MarkConversationsDelivered(r.Context(), req.ConversationIDs, user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
	}
}

func messageID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
}
