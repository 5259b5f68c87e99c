package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/appetiteclub/tableside/internal/live"
	"github.com/appetiteclub/tableside/internal/view"
	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
)

// intParam reads a positive integer route parameter.
func intParam(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func stationParam(r *http.Request) (station.Station, bool) {
	st := station.ByName(chi.URLParam(r, "station"))
	if st == nil {
		return station.Station{}, false
	}
	return *st, true
}

// respondState answers with the view state. Views without a push topic are
// re-read first since nothing else keeps them current.
func (h *Handler) respondState(w http.ResponseWriter, r *http.Request, b *live.Binder) {
	if b.Store().Topic() == "" {
		if _, err := b.Store().Refresh(r.Context()); err != nil {
			h.log(r).Error("refresh failed, serving last snapshot", "view", b.Store().Name(), "error", err)
		}
	}
	aqm.RespondSuccess(w, b.State())
}

func (h *Handler) Salon(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Salon")
	defer finish()

	b, _, err := h.views.Salon()
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w, r, b)
}

func (h *Handler) Table(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Table")
	defer finish()

	id, ok := intParam(r, "id")
	if !ok {
		h.toSalon(w, r, "invalid table id")
		return
	}

	b, _, err := h.views.Table(id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w, r, b)
}

func (h *Handler) Station(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Station")
	defer finish()

	st, ok := stationParam(r)
	if !ok {
		h.toSalon(w, r, "unknown station")
		return
	}

	b, _, err := h.views.Station(st)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w, r, b)
}

// tableStore resolves the table of the route or redirects.
func (h *Handler) tableStore(w http.ResponseWriter, r *http.Request) (*live.Binder, *view.TableStore, bool) {
	id, ok := intParam(r, "id")
	if !ok {
		h.toSalon(w, r, "invalid table id")
		return nil, nil, false
	}
	b, store, err := h.views.Table(id)
	if err != nil {
		h.respondErr(w, r, err)
		return nil, nil, false
	}
	return b, store, true
}

func (h *Handler) ApplyCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ApplyCart")
	defer finish()

	b, store, ok := h.tableStore(w, r)
	if !ok {
		return
	}

	var op view.CartOp
	if err := decodeBody(r, &op); err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	op.Kind = view.CartOpKind(strings.ToLower(string(op.Kind)))

	if err := store.ApplyCart(op); err != nil {
		h.respondErr(w, r, err)
		return
	}
	aqm.RespondSuccess(w, b.State())
}

func (h *Handler) SubmitCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SubmitCart")
	defer finish()

	b, store, ok := h.tableStore(w, r)
	if !ok {
		return
	}

	if err := store.SubmitCart(r.Context()); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.log(r).Info("order sent", "table", store.TableID())
	aqm.RespondSuccess(w, b.State())
}

func (h *Handler) DeliverGroup(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeliverGroup")
	defer finish()

	b, store, ok := h.tableStore(w, r)
	if !ok {
		return
	}
	productID, ok := intParam(r, "product")
	if !ok {
		h.toSalon(w, r, "invalid product id")
		return
	}

	if err := store.DeliverGroup(r.Context(), productID); err != nil {
		h.respondErr(w, r, err)
		return
	}
	aqm.RespondSuccess(w, b.State())
}

func (h *Handler) Total(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Total")
	defer finish()

	_, store, ok := h.tableStore(w, r)
	if !ok {
		return
	}

	total, err := store.Total(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	aqm.RespondSuccess(w, total)
}

func (h *Handler) CloseOut(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CloseOut")
	defer finish()

	b, store, ok := h.tableStore(w, r)
	if !ok {
		return
	}

	if err := store.CloseOut(r.Context()); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.log(r).Info("table closed", "table", store.TableID())
	aqm.RespondSuccess(w, b.State())
}

func (h *Handler) AdvanceItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AdvanceItem")
	defer finish()

	st, ok := stationParam(r)
	if !ok {
		h.toSalon(w, r, "unknown station")
		return
	}
	itemID, ok := intParam(r, "item")
	if !ok {
		h.toSalon(w, r, "invalid item id")
		return
	}
	status := itemstatus.Parse(strings.ToLower(chi.URLParam(r, "status")))

	b, store, err := h.views.Station(st)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	if err := store.Advance(r.Context(), itemID, status); err != nil {
		h.respondErr(w, r, err)
		return
	}
	aqm.RespondSuccess(w, b.State())
}
