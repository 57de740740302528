package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pesan/internal/realtime"
	"pesan/internal/service"
)

type conversationCreateRequest struct {
	IsGroup        bool    `json:"is_group"`
	Name           *string `json:"name" validate:"omitempty,min=1,max=100"`
	Image          *string `json:"image" validate:"omitempty,url"`
	Description    *string `json:"description" validate:"omitempty,max=500"`
	ParticipantIDs []int64 `json:"participant_ids" validate:"required,min=1,dive,gt=0"`
}

func handleCreateConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req conversationCreateRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		view, err := convSvc.CreateConversation(r.Context(), user.ID, service.ConversationCreateInput{
			IsGroup:        req.IsGroup,
			Name:           req.Name,
			Image:          req.Image,
			Description:    req.Description,
			ParticipantIDs: req.ParticipantIDs,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func handleListConversations(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		views, err := convSvc.ListForUser(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func handleGetConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		id, err := conversationID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		view, err := convSvc.GetForUser(r.Context(), user.ID, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// handleMarkConversationRead is the REST equivalent of the socket read
// acknowledgement, sharing the same dispatch path so the same events fire.
func handleMarkConversationRead(dispatcher *realtime.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		id, err := conversationID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		if err := dispatcher.HandleMarkRead(r.Context(), user.ID, id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func conversationID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
}
