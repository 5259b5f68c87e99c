package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/internal/live"
	"github.com/appetiteclub/tableside/internal/session"
	"github.com/appetiteclub/tableside/internal/stream"
	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
)

// fakeBackend stands in for both the auth and the data part of the REST API.
type fakeBackend struct {
	mu sync.Mutex

	user        *api.User
	loginErr    error
	loginCalls  int
	logoutCalls int
	createCalls []api.CreateOrderRequest
	itemCalls   map[int]string
	table       api.Table
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		user:      &api.User{ID: 1, Username: "ana", Groups: []string{GroupWaiters}},
		itemCalls: make(map[int]string),
		table:     api.Table{ID: 4, Number: 4, Status: tablestatus.Statuses.Occupied},
	}
}

func (f *fakeBackend) Login(context.Context, api.Credentials) (*api.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.TokenPair{Access: "a", Refresh: "r"}, nil
}

func (f *fakeBackend) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return nil
}

func (f *fakeBackend) CurrentUser(context.Context) (*api.User, error) {
	return f.user, nil
}

func (f *fakeBackend) GetTable(_ context.Context, id int) (*api.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.table
	t.ID = id
	return &t, nil
}

func (f *fakeBackend) ListTables(context.Context) ([]api.Table, error) {
	return []api.Table{{ID: 1, Number: 1, Status: tablestatus.Statuses.Available}}, nil
}

func (f *fakeBackend) ListCategories(context.Context) ([]api.Category, error) {
	return []api.Category{{ID: 1, Name: "Platos", Products: []api.Product{
		{ID: 10, Name: "Lomo", Station: station.Stations.Kitchen, Available: true},
	}}}, nil
}

func (f *fakeBackend) ListOrders(context.Context) ([]api.Order, error) {
	lomo := &api.Product{ID: 10, Name: "Lomo", Station: station.Stations.Kitchen, Available: true}
	return []api.Order{{ID: 1, Table: "Mesa #4 - Ocupada", Status: itemstatus.Statuses.Received, Items: []api.OrderItem{
		{ID: 7, Product: lomo, Quantity: 1, Status: itemstatus.Statuses.Received},
	}}}, nil
}

func (f *fakeBackend) CreateOrder(_ context.Context, payload api.CreateOrderRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, payload)
	return nil
}

func (f *fakeBackend) UpdateItemStatus(_ context.Context, id int, status itemstatus.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls[id] = status.Code()
	return nil
}

func (f *fakeBackend) UpdateOrderStatus(context.Context, int, itemstatus.Status) error {
	return nil
}

func (f *fakeBackend) UpdateTableStatus(context.Context, int, tablestatus.Status) error {
	return nil
}

func (f *fakeBackend) TableTotal(context.Context, int) (*api.Total, error) {
	return &api.Total{}, nil
}

// pushServer holds every push subscription open until the client leaves.
func pushServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": connected\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestRouter wires a handler over a running registry. An empty token
// leaves the session without credentials.
func newTestRouter(t *testing.T, backend *fakeBackend, token string) (http.Handler, *live.Registry) {
	t.Helper()

	store := session.NewMemoryStore()
	if token != "" {
		store.Save(session.Session{Access: token})
	}
	subscriber := stream.NewSubscriber(pushServer(t).URL, session.NewContext(store))

	views := live.NewRegistry(backend, subscriber)
	if err := views.Start(context.Background()); err != nil {
		t.Fatalf("registry Start() error = %v", err)
	}
	t.Cleanup(func() { views.Stop(context.Background()) })

	h := NewHandler(backend, views, aqm.NewNoopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, views
}
