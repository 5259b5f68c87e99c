package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/appetiteclub/tableside/internal/session"
	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) (*Client, *session.Context) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	if token != "" {
		store.Save(session.Session{Access: token, Refresh: "refresh-" + token})
	}
	sess := session.NewContext(store)
	return NewClient(srv.URL, sess), sess
}

func TestRequestAttachesBearer(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}, "tok")

	raw, err := client.Request(context.Background(), http.MethodGet, "/api/mesas/1/", nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok")
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestRequestWithoutTokenFailsFast(t *testing.T) {
	var hits int32
	client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}, "")

	_, err := client.Request(context.Background(), http.MethodGet, "/api/mesas/", nil)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("error = %v, want ErrUnauthenticated", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("no HTTP request should be sent without a credential")
	}
	select {
	case <-sess.Redirects():
	default:
		t.Error("expected a redirect signal")
	}
}

func TestRequestAuthFailureClearsSession(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var hits int32
			client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(status)
			}, "tok")

			_, err := client.Request(context.Background(), http.MethodGet, "/api/pedidos/", nil)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("error = %v, want ErrUnauthenticated", err)
			}
			if sess.AccessToken() != "" {
				t.Error("session should be cleared")
			}
			if _, err := sess.Current(); !errors.Is(err, session.ErrNoSession) {
				t.Errorf("Current() error = %v, want ErrNoSession", err)
			}
			if n := atomic.LoadInt32(&hits); n != 1 {
				t.Errorf("server hits = %d, want exactly 1 (no retry)", n)
			}
			select {
			case <-sess.Redirects():
			default:
				t.Error("expected a redirect signal")
			}
		})
	}
}

func TestRequestFailedMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "detailField",
			status:  http.StatusBadRequest,
			body:    `{"detail":"Mesa no encontrada"}`,
			wantMsg: "Mesa no encontrada",
		},
		{
			name:    "errorField",
			status:  http.StatusBadRequest,
			body:    `{"error":"No se puede cobrar, aún hay items pendientes de entrega."}`,
			wantMsg: "No se puede cobrar, aún hay items pendientes de entrega.",
		},
		{
			name:    "otherJSON",
			status:  http.StatusBadRequest,
			body:    `{"cantidad":["required"]}`,
			wantMsg: `{"cantidad":["required"]}`,
		},
		{
			name:    "noJSON",
			status:  http.StatusInternalServerError,
			body:    "<html>boom</html>",
			wantMsg: "500 Internal Server Error",
		},
		{
			name:    "emptyBody",
			status:  http.StatusNotFound,
			body:    "",
			wantMsg: "404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}, "tok")

			_, err := client.Request(context.Background(), http.MethodGet, "/api/mesas/9/", nil)
			var rf *RequestFailedError
			if !errors.As(err, &rf) {
				t.Fatalf("error = %v, want RequestFailedError", err)
			}
			if rf.Status != tt.status {
				t.Errorf("Status = %d, want %d", rf.Status, tt.status)
			}
			if rf.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", rf.Message, tt.wantMsg)
			}
			if StatusOf(err) != tt.status {
				t.Errorf("StatusOf() = %d, want %d", StatusOf(err), tt.status)
			}
			if sess.AccessToken() != "tok" {
				t.Error("session must survive non-auth failures")
			}
		})
	}
}

func TestRequestNoContent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, "tok")

	raw, err := client.Request(context.Background(), http.MethodPatch, "/api/pedidos/1/", map[string]string{"estado": "pagado"})
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if raw != nil {
		t.Errorf("raw = %s, want nil", raw)
	}
}

func TestLogin(t *testing.T) {
	var gotAuth string
	var gotBody Credentials
	client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != TokenEndpoint {
			t.Errorf("path = %s, want %s", r.URL.Path, TokenEndpoint)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"access":"new-access","refresh":"new-refresh"}`))
	}, "")

	pair, err := client.Login(context.Background(), Credentials{Username: "mesero", Password: "secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if gotAuth != "" {
		t.Errorf("token call should not carry Authorization, got %q", gotAuth)
	}
	if gotBody.Username != "mesero" {
		t.Errorf("username = %q", gotBody.Username)
	}
	if pair.Access != "new-access" || sess.AccessToken() != "new-access" {
		t.Errorf("access token not stored, pair = %+v", pair)
	}
	current, _ := sess.Current()
	if current.Refresh != "new-refresh" {
		t.Errorf("refresh = %q, want new-refresh", current.Refresh)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
	}, "")

	_, err := client.Login(context.Background(), Credentials{Username: "x", Password: "y"})
	if errors.Is(err, ErrUnauthenticated) {
		t.Fatal("bad credentials must not be reported as an invalid session")
	}
	if StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("StatusOf() = %d, want 401", StatusOf(err))
	}
	select {
	case <-sess.Redirects():
		t.Error("token call must not signal a redirect")
	default:
	}
}

func TestListTablesUnexpectedShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"paginated"}`))
	}, "tok")

	_, err := client.ListTables(context.Background())
	if !errors.Is(err, ErrUnexpectedShape) {
		t.Errorf("error = %v, want ErrUnexpectedShape", err)
	}
}

func TestGetTableDecodes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mesas/4/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": 4, "numero": 12, "estado": "ocupada",
			"pedidos": [{
				"id": 30, "mesa": "Mesa #12 - Ocupada", "fecha_hora": "2024-05-01T20:00:00Z", "estado": "recibido",
				"detalles": [{
					"id": 301, "cantidad": 2, "nota": "", "precio_unitario": "4500.00", "estado": "listo",
					"producto": {"id": 7, "nombre": "Empanada", "precio": "4500.00", "categoria": "Entradas", "disponible": true, "estacion": "cocina"}
				}]
			}]
		}`))
	}, "tok")

	table, err := client.GetTable(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetTable() error = %v", err)
	}
	if table.Number != 12 || table.Status != tablestatus.Statuses.Occupied {
		t.Errorf("table = %+v", table)
	}
	if len(table.Orders) != 1 || len(table.Orders[0].Items) != 1 {
		t.Fatalf("orders = %+v", table.Orders)
	}
	item := table.Orders[0].Items[0]
	if item.Status != itemstatus.Statuses.Ready {
		t.Errorf("item status = %v, want ready", item.Status)
	}
	if item.Product.Station.Code() != "cocina" {
		t.Errorf("station = %q", item.Product.Station.Code())
	}
	if item.UnitPrice.String() != "4500" {
		t.Errorf("unit price = %s", item.UnitPrice)
	}
}

func TestPatchPayloads(t *testing.T) {
	type call struct {
		method string
		path   string
		body   string
	}
	var calls []call
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, string(body)})
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}, "tok")

	ctx := context.Background()
	if err := client.UpdateItemStatus(ctx, 5, itemstatus.Statuses.Delivered); err != nil {
		t.Fatal(err)
	}
	if err := client.UpdateOrderStatus(ctx, 6, itemstatus.Statuses.Paid); err != nil {
		t.Fatal(err)
	}
	if err := client.UpdateTableStatus(ctx, 7, tablestatus.Statuses.Available); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{http.MethodPatch, "/api/detalles-pedido/5/", `{"estado":"entregado"}`},
		{http.MethodPatch, "/api/pedidos/6/", `{"estado":"pagado"}`},
		{http.MethodPatch, "/api/mesas/7/", `{"estado":"disponible"}`},
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %d, want %d", len(calls), len(want))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestTableTotal(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":"13500.00"}`))
	}, "tok")

	total, err := client.TableTotal(context.Background(), 3)
	if err != nil {
		t.Fatalf("TableTotal() error = %v", err)
	}
	if total.Total.StringFixed(0) != "13500" {
		t.Errorf("total = %s", total.Total)
	}
}

func TestDataAccessValidation(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", nil)
	ctx := context.Background()

	if _, err := client.GetTable(ctx, 0); err == nil {
		t.Error("GetTable(0) should fail")
	}
	if err := client.CreateOrder(ctx, CreateOrderRequest{TableID: 1}); err == nil {
		t.Error("CreateOrder() without lines should fail")
	}
	if err := client.UpdateItemStatus(ctx, 0, itemstatus.Statuses.Ready); err == nil {
		t.Error("UpdateItemStatus(0) should fail")
	}
	if _, err := client.Login(ctx, Credentials{}); err == nil {
		t.Error("Login() without credentials should fail")
	}
}
