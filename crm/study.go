package crm

import (
	"context"
	"errors"
	"fmt"
)

// Study mark actions accepted by the CRM.
const (
	StudyMarkCut      = "debitat"
	StudyMarkEngraved = "gravat"
	StudyMarkPrinted  = "printat"
	StudyMarkPhysical = "produsfizic"
)

var studyActions = map[string]bool{
	StudyMarkCut:      true,
	StudyMarkEngraved: true,
	StudyMarkPrinted:  true,
	StudyMarkPhysical: true,
}

// GetStockReport fetches the read-only stock levels for the engraving system.
func (c *Client) GetStockReport(ctx context.Context) ([]StockItem, error) {
	var items []StockItem
	if err := c.get(ctx, "/api/financiar/lista-raport-stocuri/sistem:gravare", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetStudyList fetches the production study rows that still need floor work.
func (c *Client) GetStudyList(ctx context.Context) ([]StudyItem, error) {
	var resp struct {
		Data []StudyItem `json:"data"`
	}
	if err := c.get(ctx, "/api/studiu", &resp); err != nil {
		return nil, err
	}
	pending := resp.Data[:0]
	for _, it := range resp.Data {
		if it.Pending() {
			pending = append(pending, it)
		}
	}
	return pending, nil
}

// MarkStudyItem records a floor action on a study row. Some CRM deployments
// only accept GET here, so a 405 on POST falls back to GET.
func (c *Client) MarkStudyItem(ctx context.Context, action string, id int64) error {
	if !studyActions[action] {
		return fmt.Errorf("crm: unknown study action %q", action)
	}
	path := fmt.Sprintf("/api/studiu/%s/%d", action, id)
	err := c.post(ctx, path, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == 405 {
		return c.get(ctx, path, nil)
	}
	return err
}
