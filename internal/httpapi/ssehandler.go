package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/tableside/internal/live"
	"github.com/appetiteclub/tableside/internal/view"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/appetiteclub/tableside/pkg/event"
)

const (
	// EventViewUpdate is the SSE event name carrying a view state.
	EventViewUpdate = "view-update"

	retryMillis = 2000
)

var errUnknownView = errors.New("unknown view")

// bindByName resolves a view name such as "salon", "mesa-4" or
// "station-cocina".
func (h *Handler) bindByName(name string) (*live.Binder, error) {
	if name == view.SalonName {
		b, _, err := h.views.Salon()
		return b, err
	}

	if raw, ok := event.TableIDFromTopic(name); ok {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return nil, errUnknownView
		}
		b, _, err := h.views.Table(id)
		return b, err
	}

	if code, ok := strings.CutPrefix(name, "station-"); ok {
		st := station.ByName(code)
		if st == nil {
			return nil, errUnknownView
		}
		b, _, err := h.views.Station(*st)
		return b, err
	}

	return nil, errUnknownView
}

// watch binds the named view and registers a watcher on it. A view unbound
// between lookup and registration is bound again once.
func (h *Handler) watch(name string) (*live.Binder, string, <-chan live.State, error) {
	for attempt := 0; ; attempt++ {
		b, err := h.bindByName(name)
		if err != nil {
			return nil, "", nil, err
		}
		id, states, err := b.Watch()
		if errors.Is(err, live.ErrUnbound) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, "", nil, err
		}
		return b, id, states, nil
	}
}

// Stream re-broadcasts every state of one view as server-sent events.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	b, watcherID, states, err := h.watch(r.URL.Query().Get("view"))
	if errors.Is(err, errUnknownView) {
		h.toSalon(w, r, err.Error())
		return
	}
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	defer b.Unwatch(watcherID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	log = log.With("view", b.Store().Name(), "watcher_id", watcherID)
	log.Info("new SSE connection")

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flush(w)

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected")
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case state, ok := <-states:
			if !ok {
				log.Info("view unbound, closing SSE stream")
				return
			}
			data, err := json.Marshal(state)
			if err != nil {
				log.Error("cannot encode view state", "error", err)
				continue
			}
			sendSSEEvent(w, EventViewUpdate, strconv.FormatUint(state.Snapshot.Generation, 10), string(data))
		}
	}
}

// sendSSEEvent writes one event, prefixing every data line.
func sendSSEEvent(w http.ResponseWriter, eventType, id, data string) {
	data = strings.TrimSpace(data)

	fmt.Fprintf(w, "event: %s\n", eventType)
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")

	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
