package api

import (
	"time"

	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
	"github.com/shopspring/decimal"
)

// Product mirrors a menu product as nested in categories and order items.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"nombre"`
	Description string          `json:"descripcion"`
	Price       decimal.Decimal `json:"precio"`
	Category    string          `json:"categoria"`
	Available   bool            `json:"disponible"`
	Station     station.Station `json:"estacion"`
}

// Category groups products on the menu.
type Category struct {
	ID       int       `json:"id"`
	Name     string    `json:"nombre"`
	Products []Product `json:"productos"`
}

// OrderItem is a single line of an order, tracked independently.
type OrderItem struct {
	ID        int               `json:"id"`
	Product   *Product          `json:"producto"`
	Quantity  int               `json:"cantidad"`
	Note      string            `json:"nota"`
	UnitPrice decimal.Decimal   `json:"precio_unitario"`
	Status    itemstatus.Status `json:"estado"`
}

// Order is a batch of items submitted by one table. Table holds the server's
// display string for the owning table.
type Order struct {
	ID        int               `json:"id"`
	Table     string            `json:"mesa"`
	CreatedAt time.Time         `json:"fecha_hora"`
	Status    itemstatus.Status `json:"estado"`
	Items     []OrderItem       `json:"detalles"`
}

func (o Order) Paid() bool {
	return o.Status == itemstatus.Statuses.Paid
}

// Table is a dining table with its nested order history.
type Table struct {
	ID     int                `json:"id"`
	Number int                `json:"numero"`
	Status tablestatus.Status `json:"estado"`
	Orders []Order            `json:"pedidos"`
}

// User is the authenticated principal.
type User struct {
	ID          int      `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Groups      []string `json:"groups"`
	IsSuperuser bool     `json:"is_superuser"`
}

// InGroup reports whether the user belongs to the named group.
func (u User) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// TokenPair is returned by the token endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Credentials are exchanged for a TokenPair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Total is the amount owed by a table.
type Total struct {
	Total decimal.Decimal `json:"total"`
}

// OrderLine is one product line of a new order.
type OrderLine struct {
	ProductID int    `json:"producto"`
	Quantity  int    `json:"cantidad"`
	Note      string `json:"nota"`
}

// CreateOrderRequest defines the payload accepted by the orders endpoint.
type CreateOrderRequest struct {
	TableID int         `json:"mesa"`
	Lines   []OrderLine `json:"detalles"`
}

type statusPatch struct {
	Status string `json:"estado"`
}
