package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Mr-Leon909/tsutsuji-app/store"
)

type loginRequest struct {
	Username  string `json:"username"`
	BirthDate string `json:"birth_date"`
}

// LoginPage reports the login screen state, or leaves it when already signed in.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.session.Current() != nil {
		http.Redirect(w, r, "/sns/top", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": h.session.Snapshot(),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		req.Username = r.FormValue("username")
		req.BirthDate = r.FormValue("birth_date")
	}

	user, err := h.session.Authenticate(r.Context(), req.Username, req.BirthDate)
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, h.session.Snapshot().Error)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, h.session.Snapshot().Error)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":     user,
		"redirect": "/sns/top",
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	// the in-memory session is gone even if the persisted record could not be removed
	_ = h.session.End(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/sns/login"})
}
