package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
)

func (c *Client) ListTables(ctx context.Context) ([]Table, error) {
	raw, err := c.get(ctx, "/api/mesas/")
	if err != nil {
		return nil, err
	}

	var tables []Table
	if err := decodeList(raw, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (c *Client) GetTable(ctx context.Context, id int) (*Table, error) {
	if id <= 0 {
		return nil, errors.New("missing table id")
	}

	raw, err := c.get(ctx, fmt.Sprintf("/api/mesas/%d/", id))
	if err != nil {
		return nil, err
	}

	var table Table
	if err := decodeObject(raw, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

func (c *Client) UpdateTableStatus(ctx context.Context, id int, status tablestatus.Status) error {
	if id <= 0 {
		return errors.New("missing table id")
	}
	return c.patch(ctx, fmt.Sprintf("/api/mesas/%d/", id), statusPatch{Status: status.Code()})
}

// TableTotal asks the server for the amount owed. The server refuses while
// any active item is not delivered.
func (c *Client) TableTotal(ctx context.Context, id int) (*Total, error) {
	if id <= 0 {
		return nil, errors.New("missing table id")
	}

	raw, err := c.get(ctx, fmt.Sprintf("/api/mesas/%d/calcular_total/", id))
	if err != nil {
		return nil, err
	}

	var total Total
	if err := decodeObject(raw, &total); err != nil {
		return nil, err
	}
	return &total, nil
}
