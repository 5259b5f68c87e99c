package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/aquamarinepk/aqm"
	"golang.org/x/sync/errgroup"
)

// StationAPI is the part of the REST API a station queue needs.
type StationAPI interface {
	ListOrders(ctx context.Context) ([]api.Order, error)
	ListCategories(ctx context.Context) ([]api.Category, error)
	UpdateItemStatus(ctx context.Context, id int, status itemstatus.Status) error
}

// StationStore holds the pending queue of a preparation station.
type StationStore struct {
	publisher
	api     StationAPI
	station station.Station
}

func StationViewName(st station.Station) string {
	return "station-" + st.Code()
}

func NewStationStore(client StationAPI, st station.Station, logger aqm.Logger) *StationStore {
	s := &StationStore{
		api:     client,
		station: st,
	}
	s.init(StationViewName(st), logger)
	return s
}

func (s *StationStore) Station() station.Station {
	return s.station
}

// Topic is the kitchen push topic. The bar has no server topic.
func (s *StationStore) Topic() string {
	if s.station == station.Stations.Kitchen {
		return event.KitchenTopic
	}
	return ""
}

// Refresh fetches active orders and the menu in parallel. If the orders
// endpoint does not answer with a list the queue is published empty and the
// error is reported. A menu that is not a list is reported too, and the queue
// is derived from the stations the orders carry.
func (s *StationStore) Refresh(ctx context.Context) (Snapshot, error) {
	gen := s.begin()

	var (
		orders   []api.Order
		menu     []api.Category
		shapeErr error
		menuErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := s.api.ListOrders(gctx)
		if errors.Is(err, api.ErrUnexpectedShape) {
			shapeErr = fmt.Errorf("fetch orders: %w", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch orders: %w", err)
		}
		orders = o
		return nil
	})
	g.Go(func() error {
		m, err := s.api.ListCategories(gctx)
		if errors.Is(err, api.ErrUnexpectedShape) {
			menuErr = fmt.Errorf("fetch menu: %w", err)
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

	state := DeriveStation(orders, menu, s.station)
	snap := s.commit(gen, Snapshot{Station: &state})
	if shapeErr != nil {
		s.logger.Error("orders had an unexpected shape, showing empty queue", "error", shapeErr)
	}
	if menuErr != nil {
		s.logger.Error("menu had an unexpected shape, showing queue without menu", "error", menuErr)
	}
	if err := errors.Join(shapeErr, menuErr); err != nil {
		return snap, err
	}
	s.logger.Debug("station refreshed", "generation", snap.Generation, "orders", len(state.Orders))
	return snap, nil
}
