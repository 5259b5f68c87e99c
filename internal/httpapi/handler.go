package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/internal/live"
	"github.com/appetiteclub/tableside/internal/session"
	"github.com/appetiteclub/tableside/internal/stream"
	"github.com/appetiteclub/tableside/internal/view"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
)

const (
	MaxBodyBytes = 1 << 20

	// SalonPath is the safe default every unusable view link falls back to.
	SalonPath = "/views/salon"
)

// Auth is the session part of the REST API.
type Auth interface {
	Login(ctx context.Context, creds api.Credentials) (*api.TokenPair, error)
	Logout() error
	CurrentUser(ctx context.Context) (*api.User, error)
}

// Handler exposes the bound views as JSON and SSE.
type Handler struct {
	auth      Auth
	views     *live.Registry
	logger    aqm.Logger
	tlm       *telemetry.HTTP
	keepalive time.Duration
}

func NewHandler(auth Auth, views *live.Registry, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		auth:      auth,
		views:     views,
		logger:    logger,
		tlm:       telemetry.NewHTTP(),
		keepalive: 30 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.Login)
		r.Delete("/", h.Logout)
		r.Get("/landing", h.Landing)
	})

	r.Route("/views", func(r chi.Router) {
		r.Get("/salon", h.Salon)
		r.Get("/stream", h.Stream)

		r.Route("/tables/{id}", func(r chi.Router) {
			r.Get("/", h.Table)
			r.Post("/cart", h.ApplyCart)
			r.Post("/submit", h.SubmitCart)
			r.Post("/deliver/{product}", h.DeliverGroup)
			r.Get("/total", h.Total)
			r.Post("/close", h.CloseOut)
		})

		r.Route("/stations/{station}", func(r chi.Router) {
			r.Get("/", h.Station)
			r.Post("/items/{item}/{status}", h.AdvanceItem)
		})
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

// toSalon sends the caller back to the dining room overview.
func (h *Handler) toSalon(w http.ResponseWriter, r *http.Request, reason string) {
	h.log(r).Info("invalid view parameters, redirecting to salon", "path", r.URL.Path, "reason", reason)
	http.Redirect(w, r, SalonPath, http.StatusSeeOther)
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// respondErr maps domain errors to HTTP answers.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	log := h.log(r)

	var (
		stale  *view.StaleCartError
		failed *api.RequestFailedError
	)
	switch {
	case errors.Is(err, api.ErrUnauthenticated):
		w.Header().Set("Location", session.LoginPath)
		aqm.RespondError(w, http.StatusUnauthorized, "Session expired, sign in again")
	case errors.Is(err, view.ErrActionInFlight):
		aqm.RespondError(w, http.StatusConflict, "Another action is in progress")
	case errors.As(err, &stale):
		aqm.RespondError(w, http.StatusConflict, stale.Error())
	case errors.Is(err, view.ErrEmptyCart),
		errors.Is(err, view.ErrUnknownProduct),
		errors.Is(err, view.ErrUnknownGroup),
		errors.Is(err, view.ErrInvalidStatus),
		errors.Is(err, view.ErrUnknownItem):
		aqm.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, view.ErrNothingToDeliver),
		errors.Is(err, view.ErrNotPayable),
		errors.Is(err, view.ErrBadTransition):
		aqm.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, live.ErrRegistryStopped), errors.Is(err, live.ErrUnbound):
		aqm.RespondError(w, http.StatusServiceUnavailable, "Views are not available")
	case errors.As(err, &failed):
		log.Error("upstream request failed", "status", failed.Status, "error", err)
		status := http.StatusBadGateway
		if failed.Status >= 400 && failed.Status < 500 {
			status = failed.Status
		}
		aqm.RespondError(w, status, failed.Message)
	case errors.Is(err, api.ErrUnexpectedShape), errors.Is(err, stream.ErrTransportFailed):
		log.Error("upstream answered badly", "error", err)
		aqm.RespondError(w, http.StatusBadGateway, "Upstream service error")
	default:
		log.Error("request failed", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not complete request")
	}
}
