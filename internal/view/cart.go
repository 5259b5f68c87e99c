package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/appetiteclub/tableside/internal/api"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrUnknownProduct = errors.New("product not on the menu")
)

// CartOpKind names a cart mutation.
type CartOpKind string

const (
	CartAdd    CartOpKind = "add"
	CartRemove CartOpKind = "remove"
	CartClear  CartOpKind = "clear"
)

// CartOp is one mutation of the local cart.
type CartOp struct {
	Kind      CartOpKind `json:"op"`
	ProductID int        `json:"product_id"`
}

// CartLine is a requested product and quantity. Name is kept for display.
type CartLine struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// StaleCartError lists cart lines dropped because the product left the menu
// or became unavailable after being added.
type StaleCartError struct {
	Removed []CartLine
}

func (e *StaleCartError) Error() string {
	names := make([]string, 0, len(e.Removed))
	for _, l := range e.Removed {
		names = append(names, l.Name)
	}
	return fmt.Sprintf("cart had products no longer available: %s", strings.Join(names, ", "))
}

// Cart is the ephemeral, per-view list of products to order. It is never
// persisted.
type Cart struct {
	lines []CartLine
}

// Apply mutates the cart. Add needs the product to be on the menu and
// available.
func (c *Cart) Apply(op CartOp, menu []api.Category) error {
	switch op.Kind {
	case CartAdd:
		product, ok := findProduct(menu, op.ProductID)
		if !ok || !product.Available {
			return fmt.Errorf("%w: %d", ErrUnknownProduct, op.ProductID)
		}
		for i := range c.lines {
			if c.lines[i].ProductID == op.ProductID {
				c.lines[i].Quantity++
				return nil
			}
		}
		c.lines = append(c.lines, CartLine{ProductID: product.ID, Name: product.Name, Quantity: 1})
		return nil

	case CartRemove:
		for i := range c.lines {
			if c.lines[i].ProductID != op.ProductID {
				continue
			}
			if c.lines[i].Quantity <= 1 {
				c.lines = append(c.lines[:i], c.lines[i+1:]...)
			} else {
				c.lines[i].Quantity--
			}
			return nil
		}
		return nil

	case CartClear:
		c.lines = nil
		return nil
	}

	return fmt.Errorf("unknown cart op %q", op.Kind)
}

// Lines returns a copy of the cart contents.
func (c *Cart) Lines() []CartLine {
	lines := make([]CartLine, len(c.lines))
	copy(lines, c.lines)
	return lines
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// Prune drops lines whose product is missing from menu or unavailable and
// returns them.
func (c *Cart) Prune(menu []api.Category) []CartLine {
	kept := c.lines[:0]
	var removed []CartLine
	for _, l := range c.lines {
		if p, ok := findProduct(menu, l.ProductID); ok && p.Available {
			kept = append(kept, l)
			continue
		}
		removed = append(removed, l)
	}
	c.lines = kept
	return removed
}

// OrderLines converts the cart into the order payload lines.
func (c *Cart) OrderLines() []api.OrderLine {
	lines := make([]api.OrderLine, 0, len(c.lines))
	for _, l := range c.lines {
		lines = append(lines, api.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return lines
}
