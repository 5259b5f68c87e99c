package view

import (
	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/station"
)

// DisplayStatus picks the least advanced known status so a grouped row
// never undersells remaining work. With no known status it is Delivered.
func DisplayStatus(statuses []itemstatus.Status) itemstatus.Status {
	display := itemstatus.Statuses.Delivered
	for _, s := range statuses {
		if itemstatus.ByName(s.Code()) == nil || s == itemstatus.Statuses.Paid {
			continue
		}
		if s.Rank() < display.Rank() {
			display = s
		}
	}
	return display
}

// Deliverable reports whether an item can be handed to the table. Bar items
// skip the in-progress stage.
func Deliverable(st station.Station, s itemstatus.Status) bool {
	if st.SkipsPreparation() && s == itemstatus.Statuses.Received {
		return true
	}
	return s == itemstatus.Statuses.Ready
}

// GroupTableItems merges the items of all non-paid orders by product,
// keeping first-seen product order. Items without a product are skipped.
func GroupTableItems(orders []api.Order) []GroupedItem {
	groups := make([]GroupedItem, 0)
	index := make(map[int]int)

	for _, order := range orders {
		if order.Paid() {
			continue
		}
		for _, item := range order.Items {
			if item.Product == nil {
				continue
			}

			ref := ItemRef{ID: item.ID, Quantity: item.Quantity, Status: item.Status}
			pos, ok := index[item.Product.ID]
			if !ok {
				index[item.Product.ID] = len(groups)
				groups = append(groups, GroupedItem{
					ProductID: item.Product.ID,
					Name:      item.Product.Name,
					Station:   item.Product.Station,
				})
				pos = len(groups) - 1
			}

			g := &groups[pos]
			g.Quantity += item.Quantity
			g.Items = append(g.Items, ref)
		}
	}

	for i := range groups {
		g := &groups[i]
		statuses := make([]itemstatus.Status, 0, len(g.Items))
		g.DeliverableIDs = make([]int, 0)
		for _, ref := range g.Items {
			statuses = append(statuses, ref.Status)
			if Deliverable(g.Station, ref.Status) {
				g.DeliverableIDs = append(g.DeliverableIDs, ref.ID)
			}
		}
		g.DisplayStatus = DisplayStatus(statuses)
		g.Deliverable = len(g.DeliverableIDs) > 0
	}

	return groups
}

// Payable is true when at least one non-paid order exists and every item
// across the non-paid orders is delivered.
func Payable(orders []api.Order) bool {
	active := false
	for _, order := range orders {
		if order.Paid() {
			continue
		}
		active = true
		for _, item := range order.Items {
			if item.Product == nil {
				continue
			}
			if item.Status != itemstatus.Statuses.Delivered {
				return false
			}
		}
	}
	return active
}

// DeriveTable computes the table view from a table detail and the menu.
func DeriveTable(table api.Table, menu []api.Category) TableState {
	active := make([]int, 0)
	for _, order := range table.Orders {
		if !order.Paid() {
			active = append(active, order.ID)
		}
	}

	if menu == nil {
		menu = []api.Category{}
	}

	return TableState{
		TableID:        table.ID,
		Number:         table.Number,
		Status:         table.Status,
		Groups:         GroupTableItems(table.Orders),
		ActiveOrderIDs: active,
		Payable:        Payable(table.Orders),
		Menu:           menu,
	}
}

// pendingAtStation lists the statuses a station still has work for.
var pendingAtStation = []itemstatus.Status{
	itemstatus.Statuses.Received,
	itemstatus.Statuses.InProgress,
}

// DeriveStation keeps the items routed to st that are still pending,
// grouped by order in server order. Orders left empty are dropped. The
// menu resolves the station of products the server sent without one.
func DeriveStation(orders []api.Order, menu []api.Category, st station.Station) StationState {
	stations := productStations(menu)
	result := StationState{Station: st, Orders: make([]StationOrder, 0)}

	for _, order := range orders {
		if order.Paid() {
			continue
		}

		items := make([]api.OrderItem, 0)
		for _, item := range order.Items {
			if item.Product == nil {
				continue
			}
			itemStation := item.Product.Station
			if itemStation.Code() == "" {
				itemStation = stations[item.Product.ID]
			}
			if itemStation != st || !pending(item.Status) {
				continue
			}
			items = append(items, item)
		}

		if len(items) == 0 {
			continue
		}
		result.Orders = append(result.Orders, StationOrder{
			OrderID:   order.ID,
			Table:     order.Table,
			CreatedAt: order.CreatedAt,
			Items:     items,
		})
	}

	return result
}

func pending(s itemstatus.Status) bool {
	for _, p := range pendingAtStation {
		if s == p {
			return true
		}
	}
	return false
}

func productStations(menu []api.Category) map[int]station.Station {
	stations := make(map[int]station.Station)
	for _, c := range menu {
		for _, p := range c.Products {
			stations[p.ID] = p.Station
		}
	}
	return stations
}

// DeriveSalon summarizes the dining room.
func DeriveSalon(tables []api.Table) SalonState {
	summaries := make([]TableSummary, 0, len(tables))
	for _, t := range tables {
		summaries = append(summaries, TableSummary{
			ID:       t.ID,
			Number:   t.Number,
			Status:   t.Status,
			Occupied: t.Status.Occupied(),
		})
	}
	return SalonState{Tables: summaries}
}

// findProduct looks a product up in the menu.
func findProduct(menu []api.Category, productID int) (api.Product, bool) {
	for _, c := range menu {
		for _, p := range c.Products {
			if p.ID == productID {
				return p, true
			}
		}
	}
	return api.Product{}, false
}
