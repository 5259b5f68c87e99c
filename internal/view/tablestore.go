package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/aquamarinepk/aqm"
	"golang.org/x/sync/errgroup"
)

// TableAPI is the part of the REST API a table view needs.
type TableAPI interface {
	GetTable(ctx context.Context, id int) (*api.Table, error)
	ListCategories(ctx context.Context) ([]api.Category, error)
	CreateOrder(ctx context.Context, payload api.CreateOrderRequest) error
	UpdateItemStatus(ctx context.Context, id int, status itemstatus.Status) error
	UpdateOrderStatus(ctx context.Context, id int, status itemstatus.Status) error
	UpdateTableStatus(ctx context.Context, id int, status tablestatus.Status) error
	TableTotal(ctx context.Context, id int) (*api.Total, error)
}

// TableStore holds the view of one table: grouped items, payability, the
// menu and the local cart.
type TableStore struct {
	publisher
	api     TableAPI
	tableID int

	cartMu sync.Mutex
	cart   Cart
}

// TableViewName names the view of one table after its push topic.
func TableViewName(id int) string {
	return event.TableTopic(fmt.Sprint(id))
}

func NewTableStore(client TableAPI, tableID int, logger aqm.Logger) *TableStore {
	s := &TableStore{
		api:     client,
		tableID: tableID,
	}
	s.init(TableViewName(tableID), logger)
	s.decorate = s.withCart
	return s
}

func (s *TableStore) TableID() int {
	return s.tableID
}

func (s *TableStore) Topic() string {
	return event.TableTopic(fmt.Sprint(s.tableID))
}

func (s *TableStore) withCart(snap Snapshot) Snapshot {
	if snap.Table == nil {
		return snap
	}
	table := *snap.Table
	s.cartMu.Lock()
	table.Cart = s.cart.Lines()
	s.cartMu.Unlock()
	snap.Table = &table
	return snap
}

// Refresh fetches the table detail and the menu in parallel and publishes
// the derived state only if both succeed. A menu that is not a list is
// treated as empty and reported.
func (s *TableStore) Refresh(ctx context.Context) (Snapshot, error) {
	gen := s.begin()

	var (
		table    *api.Table
		menu     []api.Category
		shapeErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.api.GetTable(gctx, s.tableID)
		if err != nil {
			return fmt.Errorf("fetch table %d: %w", s.tableID, err)
		}
		table = t
		return nil
	})
	g.Go(func() error {
		m, err := s.api.ListCategories(gctx)
		if errors.Is(err, api.ErrUnexpectedShape) {
			shapeErr = fmt.Errorf("fetch menu: %w", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch menu: %w", err)
		}
		menu = m
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("refresh failed, keeping previous snapshot", "error", err)
		return s.Snapshot(), err
	}

	state := DeriveTable(*table, menu)
	snap := s.commit(gen, Snapshot{Table: &state})
	if shapeErr != nil {
		s.logger.Error("menu had an unexpected shape, showing empty menu", "error", shapeErr)
		return snap, shapeErr
	}
	s.logger.Debug("table refreshed", "generation", snap.Generation, "groups", len(state.Groups), "payable", state.Payable)
	return snap, nil
}

// ApplyCart mutates the local cart against the current menu snapshot.
func (s *TableStore) ApplyCart(op CartOp) error {
	var menu []api.Category
	if t := s.Snapshot().Table; t != nil {
		menu = t.Menu
	}

	s.cartMu.Lock()
	err := s.cart.Apply(op, menu)
	s.cartMu.Unlock()
	if err != nil {
		return err
	}

	s.renotify()
	return nil
}
