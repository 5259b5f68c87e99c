package view

import (
	"time"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
)

// Snapshot is the last-known-good state of one view. Exactly one of Salon,
// Table or Station is set.
type Snapshot struct {
	View        string        `json:"view"`
	Generation  uint64        `json:"generation"`
	RefreshedAt time.Time     `json:"refreshed_at"`
	Salon       *SalonState   `json:"salon,omitempty"`
	Table       *TableState   `json:"table,omitempty"`
	Station     *StationState `json:"station,omitempty"`
}

// Empty reports whether nothing was ever published.
func (s Snapshot) Empty() bool {
	return s.Generation == 0
}

// ItemRef is one original order item behind a grouped row.
type ItemRef struct {
	ID       int               `json:"id"`
	Quantity int               `json:"quantity"`
	Status   itemstatus.Status `json:"status"`
}

// GroupedItem aggregates the items of one product across a table's active
// orders.
type GroupedItem struct {
	ProductID      int               `json:"product_id"`
	Name           string            `json:"name"`
	Station        station.Station   `json:"station"`
	Quantity       int               `json:"quantity"`
	Items          []ItemRef         `json:"items"`
	DisplayStatus  itemstatus.Status `json:"display_status"`
	Deliverable    bool              `json:"deliverable"`
	DeliverableIDs []int             `json:"deliverable_ids"`
}

type TableState struct {
	TableID        int                `json:"table_id"`
	Number         int                `json:"number"`
	Status         tablestatus.Status `json:"status"`
	Groups         []GroupedItem      `json:"groups"`
	ActiveOrderIDs []int              `json:"active_order_ids"`
	Payable        bool               `json:"payable"`
	Menu           []api.Category     `json:"menu"`
	Cart           []CartLine         `json:"cart"`
}

// StationOrder is an order reduced to the items pending at one station.
type StationOrder struct {
	OrderID   int             `json:"order_id"`
	Table     string          `json:"table"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []api.OrderItem `json:"items"`
}

type StationState struct {
	Station station.Station `json:"station"`
	Orders  []StationOrder  `json:"orders"`
}

type TableSummary struct {
	ID       int                `json:"id"`
	Number   int                `json:"number"`
	Status   tablestatus.Status `json:"status"`
	Occupied bool               `json:"occupied"`
}

type SalonState struct {
	Tables []TableSummary `json:"tables"`
}
