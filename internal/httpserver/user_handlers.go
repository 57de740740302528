package httpserver

import (
	"net/http"
	"strconv"

	"pesan/internal/service"
)

func handleSearchUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		users, err := userSvc.Search(r.Context(), query, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

type profileUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	PhoneNumber *string `json:"phone_number"`
	Image       *string `json:"image" validate:"omitempty,url"`
}

func handleUpdateProfile(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req profileUpdateRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		updated, err := userSvc.UpdateProfile(r.Context(), user.ID, service.ProfileUpdateInput{
			Name:        req.Name,
			PhoneNumber: req.PhoneNumber,
			Image:       req.Image,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}
