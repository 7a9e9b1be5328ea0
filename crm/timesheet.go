package crm

import (
	"context"
	"fmt"
)

// GetTimesheet fetches the employee's shift state for today.
func (c *Client) GetTimesheet(ctx context.Context, userID int64) (*Timesheet, error) {
	var ts Timesheet
	if err := c.get(ctx, fmt.Sprintf("/api/azi-nou-angajat/%d", userID), &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

// StartTimer clocks the employee in.
func (c *Client) StartTimer(ctx context.Context, userID int64) error {
	return c.get(ctx, fmt.Sprintf("/api/action-timer-start-new/%d", userID), nil)
}

// StopTimer clocks the employee out.
func (c *Client) StopTimer(ctx context.Context, userID int64) error {
	return c.get(ctx, fmt.Sprintf("/api/action-timer-stop-new/%d", userID), nil)
}

// GetWorkHistory fetches the current month's worked days.
func (c *Client) GetWorkHistory(ctx context.Context, userID int64) ([]WorkDay, error) {
	var days []WorkDay
	if err := c.get(ctx, fmt.Sprintf("/api/zile-muncite-luna-curenta-nou/%d", userID), &days); err != nil {
		return nil, err
	}
	return days, nil
}
