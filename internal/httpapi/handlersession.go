package httpapi

import (
	"errors"
	"net/http"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/aquamarinepk/aqm"
)

var ErrUnknownRole = errors.New("user has no recognized role")

// Group names assigned by the restaurant backend.
const (
	GroupWaiters  = "Meseros"
	GroupKitchen  = "Cocina"
	GroupManagers = "Gerente"
)

// LandingPath picks the default view for a user's role.
func LandingPath(user api.User) (string, error) {
	switch {
	case user.InGroup(GroupWaiters):
		return SalonPath, nil
	case user.InGroup(GroupKitchen):
		return "/views/stations/" + station.Stations.Kitchen.Code(), nil
	case user.InGroup(GroupManagers), user.IsSuperuser:
		return SalonPath, nil
	}
	return "", ErrUnknownRole
}

type landingResponse struct {
	User    api.User `json:"user"`
	Landing string   `json:"landing"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Login")
	defer finish()
	log := h.log(r)

	var creds api.Credentials
	if err := decodeBody(r, &creds); err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		aqm.RespondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if _, err := h.auth.Login(r.Context(), creds); err != nil {
		if status := api.StatusOf(err); status == http.StatusUnauthorized || status == http.StatusBadRequest {
			log.Info("sign in rejected", "user", creds.Username)
			aqm.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.respondErr(w, r, err)
		return
	}

	// Views bound under a previous user must not leak into this session.
	if err := h.views.Reset(r.Context()); err != nil {
		log.Error("cannot reset views", "error", err)
	}

	h.respondLanding(w, r)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Logout")
	defer finish()

	if err := h.auth.Logout(); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.views.Reset(r.Context()); err != nil {
		h.log(r).Error("cannot reset views", "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Landing")
	defer finish()

	h.respondLanding(w, r)
}

func (h *Handler) respondLanding(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	path, err := LandingPath(*user)
	if err != nil {
		h.log(r).Info("user without role", "user", user.Username, "groups", user.Groups)
		if lerr := h.auth.Logout(); lerr != nil {
			h.log(r).Error("cannot clear session", "error", lerr)
		}
		aqm.RespondError(w, http.StatusForbidden, "User role not recognized")
		return
	}

	aqm.RespondSuccess(w, landingResponse{User: *user, Landing: path})
}
