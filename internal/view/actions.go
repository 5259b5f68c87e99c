package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNothingToDeliver = errors.New("no items ready to deliver")
	ErrUnknownGroup     = errors.New("product not ordered at this table")
	ErrNotPayable       = errors.New("table has undelivered items")
	ErrInvalidStatus    = errors.New("invalid item status")
	ErrUnknownItem      = errors.New("item not queued at this station")
	ErrBadTransition    = errors.New("item cannot move to that status")
)

// each runs fn for every id concurrently and waits for all of them. There is
// no rollback: on failure some ids may already be updated server-side.
func each(ctx context.Context, ids []int, fn func(ctx context.Context, id int) error) error {
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			return fn(ctx, id)
		})
	}
	return g.Wait()
}

// afterAction refreshes once a mutation completed. When the mutation failed
// the refresh still runs so the snapshot reveals what was applied, and the
// mutation error wins.
func (s *TableStore) afterAction(ctx context.Context, actionErr error) error {
	_, err := s.Refresh(ctx)
	if actionErr != nil {
		if err != nil {
			s.logger.Error("refresh after failed action also failed", "error", err)
		}
		return actionErr
	}
	return err
}

// DeliverGroup marks every deliverable item of a grouped product as
// delivered.
func (s *TableStore) DeliverGroup(ctx context.Context, productID int) error {
	unlock, err := s.tryAction()
	if err != nil {
		return err
	}
	defer unlock()

	snap := s.Snapshot()
	if snap.Table == nil {
		return ErrUnknownGroup
	}

	var group *GroupedItem
	for i := range snap.Table.Groups {
		if snap.Table.Groups[i].ProductID == productID {
			group = &snap.Table.Groups[i]
			break
		}
	}
	if group == nil {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, productID)
	}
	if len(group.DeliverableIDs) == 0 {
		s.logger.Info("nothing to deliver", "product", group.Name)
		return ErrNothingToDeliver
	}

	s.logger.Info("delivering items", "product", group.Name, "items", group.DeliverableIDs)
	err = each(ctx, group.DeliverableIDs, func(ctx context.Context, id int) error {
		return s.api.UpdateItemStatus(ctx, id, itemstatus.Statuses.Delivered)
	})
	if err != nil {
		err = fmt.Errorf("deliver %s: %w", group.Name, err)
	}
	return s.afterAction(ctx, err)
}

// SubmitCart sends the cart as a new order. Lines whose product left the
// menu are dropped from the cart and nothing is sent.
func (s *TableStore) SubmitCart(ctx context.Context) error {
	unlock, err := s.tryAction()
	if err != nil {
		return err
	}
	defer unlock()

	var menu []api.Category
	if t := s.Snapshot().Table; t != nil {
		menu = t.Menu
	}

	s.cartMu.Lock()
	if s.cart.Len() == 0 {
		s.cartMu.Unlock()
		return ErrEmptyCart
	}
	if removed := s.cart.Prune(menu); len(removed) > 0 {
		s.cartMu.Unlock()
		s.renotify()
		return &StaleCartError{Removed: removed}
	}
	payload := api.CreateOrderRequest{TableID: s.tableID, Lines: s.cart.OrderLines()}
	s.cartMu.Unlock()

	if err := s.api.CreateOrder(ctx, payload); err != nil {
		return s.afterAction(ctx, fmt.Errorf("submit order: %w", err))
	}
	s.logger.Info("order submitted", "lines", len(payload.Lines))

	s.cartMu.Lock()
	s.cart.Apply(CartOp{Kind: CartClear}, nil)
	s.cartMu.Unlock()

	return s.afterAction(ctx, nil)
}

// Total asks the server for the amount owed.
func (s *TableStore) Total(ctx context.Context) (*api.Total, error) {
	if t := s.Snapshot().Table; t != nil && !t.Payable {
		return nil, ErrNotPayable
	}
	total, err := s.api.TableTotal(ctx, s.tableID)
	if err != nil {
		return nil, fmt.Errorf("table total: %w", err)
	}
	return total, nil
}

// CloseOut marks every active order as paid and frees the table.
func (s *TableStore) CloseOut(ctx context.Context) error {
	unlock, err := s.tryAction()
	if err != nil {
		return err
	}
	defer unlock()

	snap := s.Snapshot()
	if snap.Table == nil || !snap.Table.Payable {
		return ErrNotPayable
	}

	s.logger.Info("closing table", "orders", snap.Table.ActiveOrderIDs)
	err = each(ctx, snap.Table.ActiveOrderIDs, func(ctx context.Context, id int) error {
		return s.api.UpdateOrderStatus(ctx, id, itemstatus.Statuses.Paid)
	})
	if err != nil {
		return s.afterAction(ctx, fmt.Errorf("mark orders paid: %w", err))
	}

	if err := s.api.UpdateTableStatus(ctx, s.tableID, tablestatus.Statuses.Available); err != nil {
		return s.afterAction(ctx, fmt.Errorf("free table: %w", err))
	}

	s.cartMu.Lock()
	s.cart.Apply(CartOp{Kind: CartClear}, nil)
	s.cartMu.Unlock()

	return s.afterAction(ctx, nil)
}

// CanAdvance reports whether a station may move an item from one status to
// another. Stations only move items forward up to ready; delivery belongs to
// the table view. Bar items may skip preparation.
func CanAdvance(from, to itemstatus.Status, st station.Station) bool {
	statuses := itemstatus.Statuses
	switch {
	case from == statuses.Received && to == statuses.InProgress:
		return true
	case from == statuses.InProgress && to == statuses.Ready:
		return true
	case from == statuses.Received && to == statuses.Ready:
		return st.SkipsPreparation()
	}
	return false
}

// Advance moves one item of the station queue to status and refreshes.
func (s *StationStore) Advance(ctx context.Context, itemID int, status itemstatus.Status) error {
	if itemstatus.ByName(status.Code()) == nil || status == itemstatus.Statuses.Paid {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status.Code())
	}

	unlock, err := s.tryAction()
	if err != nil {
		return err
	}
	defer unlock()

	current, ok := s.queued(itemID)
	if !ok {
		if _, err := s.Refresh(ctx); err != nil {
			return err
		}
		if current, ok = s.queued(itemID); !ok {
			return fmt.Errorf("%w: %d", ErrUnknownItem, itemID)
		}
	}
	if !CanAdvance(current, status, s.station) {
		return fmt.Errorf("%w: %s to %s", ErrBadTransition, current.Code(), status.Code())
	}

	if err := s.api.UpdateItemStatus(ctx, itemID, status); err != nil {
		if _, rerr := s.Refresh(ctx); rerr != nil {
			s.logger.Error("refresh after failed action also failed", "error", rerr)
		}
		return fmt.Errorf("update item %d: %w", itemID, err)
	}

	_, err = s.Refresh(ctx)
	return err
}

// queued returns the status of itemID in the last published queue.
func (s *StationStore) queued(itemID int) (itemstatus.Status, bool) {
	snap := s.Snapshot()
	if snap.Station == nil {
		return itemstatus.Status{}, false
	}
	for _, o := range snap.Station.Orders {
		for _, it := range o.Items {
			if it.ID == itemID {
				return it.Status, true
			}
		}
	}
	return itemstatus.Status{}, false
}
