package view

import (
	"context"
	"sync"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
)

type statusCall struct {
	ID     int
	Status string
}

type mockAPI struct {
	getTableFn          func(ctx context.Context, id int) (*api.Table, error)
	listTablesFn        func(ctx context.Context) ([]api.Table, error)
	listCategoriesFn    func(ctx context.Context) ([]api.Category, error)
	listOrdersFn        func(ctx context.Context) ([]api.Order, error)
	createOrderFn       func(ctx context.Context, payload api.CreateOrderRequest) error
	updateItemStatusFn  func(ctx context.Context, id int, status itemstatus.Status) error
	updateOrderStatusFn func(ctx context.Context, id int, status itemstatus.Status) error
	updateTableStatusFn func(ctx context.Context, id int, status tablestatus.Status) error
	tableTotalFn        func(ctx context.Context, id int) (*api.Total, error)

	mu           sync.Mutex
	itemCalls    []statusCall
	orderCalls   []statusCall
	tableCalls   []statusCall
	createCalls  []api.CreateOrderRequest
	getTableHits int
}

func (m *mockAPI) GetTable(ctx context.Context, id int) (*api.Table, error) {
	m.mu.Lock()
	m.getTableHits++
	m.mu.Unlock()
	if m.getTableFn != nil {
		return m.getTableFn(ctx, id)
	}
	return &api.Table{ID: id}, nil
}

func (m *mockAPI) ListTables(ctx context.Context) ([]api.Table, error) {
	if m.listTablesFn != nil {
		return m.listTablesFn(ctx)
	}
	return nil, nil
}

func (m *mockAPI) ListCategories(ctx context.Context) ([]api.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockAPI) ListOrders(ctx context.Context) ([]api.Order, error) {
	if m.listOrdersFn != nil {
		return m.listOrdersFn(ctx)
	}
	return nil, nil
}

func (m *mockAPI) CreateOrder(ctx context.Context, payload api.CreateOrderRequest) error {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, payload)
	m.mu.Unlock()
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, payload)
	}
	return nil
}

func (m *mockAPI) UpdateItemStatus(ctx context.Context, id int, status itemstatus.Status) error {
	m.mu.Lock()
	m.itemCalls = append(m.itemCalls, statusCall{ID: id, Status: status.Code()})
	m.mu.Unlock()
	if m.updateItemStatusFn != nil {
		return m.updateItemStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockAPI) UpdateOrderStatus(ctx context.Context, id int, status itemstatus.Status) error {
	m.mu.Lock()
	m.orderCalls = append(m.orderCalls, statusCall{ID: id, Status: status.Code()})
	m.mu.Unlock()
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockAPI) UpdateTableStatus(ctx context.Context, id int, status tablestatus.Status) error {
	m.mu.Lock()
	m.tableCalls = append(m.tableCalls, statusCall{ID: id, Status: status.Code()})
	m.mu.Unlock()
	if m.updateTableStatusFn != nil {
		return m.updateTableStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockAPI) TableTotal(ctx context.Context, id int) (*api.Total, error) {
	if m.tableTotalFn != nil {
		return m.tableTotalFn(ctx, id)
	}
	return &api.Total{}, nil
}

func product(id int, name string, st station.Station) *api.Product {
	return &api.Product{ID: id, Name: name, Station: st, Available: true}
}

func item(id int, p *api.Product, qty int, s itemstatus.Status) api.OrderItem {
	return api.OrderItem{ID: id, Product: p, Quantity: qty, Status: s}
}

func order(id int, s itemstatus.Status, items ...api.OrderItem) api.Order {
	return api.Order{ID: id, Table: "Mesa #4 - Ocupada", Status: s, Items: items}
}

func testMenu() []api.Category {
	return []api.Category{
		{ID: 1, Name: "Platos", Products: []api.Product{
			{ID: 10, Name: "Lomo", Station: station.Stations.Kitchen, Available: true},
			{ID: 11, Name: "Ensalada", Station: station.Stations.Kitchen, Available: true},
		}},
		{ID: 2, Name: "Bebidas", Products: []api.Product{
			{ID: 20, Name: "Cerveza", Station: station.Stations.Bar, Available: true},
			{ID: 21, Name: "Vino", Station: station.Stations.Bar, Available: false},
		}},
	}
}
