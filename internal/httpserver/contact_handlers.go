package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pesan/internal/service"
)

type contactRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Email       string  `json:"email" validate:"required,email"`
	PhoneNumber *string `json:"phone_number"`
}

func handleCreateContact(contactSvc *service.ContactService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req contactRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		contact, err := contactSvc.Create(r.Context(), user.ID, service.ContactInput{
			Name:        req.Name,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, contact)
	}
}

func handleListContacts(contactSvc *service.ContactService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		contacts, err := contactSvc.List(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

func handleUpdateContact(contactSvc *service.ContactService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		contactID, err := strconv.ParseInt(chi.URLParam(r, "contactID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid contact id"})
			return
		}
		var req contactRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		contact, err := contactSvc.Update(r.Context(), user.ID, contactID, service.ContactInput{
			Name:        req.Name,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

func handleDeleteContact(contactSvc *service.ContactService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		contactID, err := strconv.ParseInt(chi.URLParam(r, "contactID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid contact id"})
			return
		}
		if err := contactSvc.Delete(r.Context(), user.ID, contactID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
