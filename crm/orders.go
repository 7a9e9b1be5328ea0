package crm

import (
	"context"
	"fmt"
)

// ListOrders retrieves the order feed for a zone within a zone family.
func (c *Client) ListOrders(ctx context.Context, family, zone string) ([]Order, error) {
	var orders []Order
	path := fmt.Sprintf("/api/comenzi-daruri-alese-%s/%s", family, zone)
	if err := c.get(ctx, path, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// StartOrder marks an order as started in the family's zone, attributed to
// the acting employee.
func (c *Client) StartOrder(ctx context.Context, family string, orderID, userID int64) error {
	path := fmt.Sprintf("/api/incepe-%s/%d/%d", family, orderID, userID)
	return c.post(ctx, path, nil)
}

// MoveOrder advances an order to the next pipeline zone.
func (c *Client) MoveOrder(ctx context.Context, family string, orderID, userID int64) error {
	path := fmt.Sprintf("/api/muta-%s/%d/%d", family, orderID, userID)
	return c.post(ctx, path, nil)
}

// GetStatusSnapshot fetches the aggregate counters for a zone.
func (c *Client) GetStatusSnapshot(ctx context.Context, zone string) (*StatusSnapshot, error) {
	var snap StatusSnapshot
	if err := c.get(ctx, "/api/statusurigravare/"+zone, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
