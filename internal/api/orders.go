package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/appetiteclub/tableside/pkg/enums/itemstatus"
)

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	raw, err := c.get(ctx, "/api/categorias/")
	if err != nil {
		return nil, err
	}

	var categories []Category
	if err := decodeList(raw, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListOrders returns the active orders visible to the current principal.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	raw, err := c.get(ctx, "/api/pedidos/")
	if err != nil {
		return nil, err
	}

	var orders []Order
	if err := decodeList(raw, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) CreateOrder(ctx context.Context, payload CreateOrderRequest) error {
	if payload.TableID <= 0 {
		return errors.New("missing table id")
	}
	if len(payload.Lines) == 0 {
		return errors.New("order has no lines")
	}

	_, err := c.Request(ctx, http.MethodPost, "/api/pedidos/", payload)
	return err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int, status itemstatus.Status) error {
	if id <= 0 {
		return errors.New("missing order id")
	}
	return c.patch(ctx, fmt.Sprintf("/api/pedidos/%d/", id), statusPatch{Status: status.Code()})
}

func (c *Client) UpdateItemStatus(ctx context.Context, id int, status itemstatus.Status) error {
	if id <= 0 {
		return errors.New("missing item id")
	}
	return c.patch(ctx, fmt.Sprintf("/api/detalles-pedido/%d/", id), statusPatch{Status: status.Code()})
}
