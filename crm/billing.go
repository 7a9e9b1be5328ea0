package crm

import (
	"context"
	"fmt"
)

// The billing endpoints answer 2xx with an ok flag in the body; ok:false is
// still a failure and carries the server's message.

type invoiceResponse struct {
	OK          FlexBool       `json:"ok"`
	InvoiceData *InvoiceResult `json:"invoice_data"`
	Message     string         `json:"message"`
}

type receiptResponse struct {
	OK          FlexBool `json:"ok"`
	ReceiptPath string   `json:"receipt_path"`
	Message     string   `json:"message"`
}

// GenerateInvoice asks the CRM to issue the invoice for an order.
func (c *Client) GenerateInvoice(ctx context.Context, orderID int64) (*InvoiceResult, error) {
	var resp invoiceResponse
	if err := c.post(ctx, fmt.Sprintf("/api/generare-factura/%d", orderID), &resp); err != nil {
		return nil, err
	}
	if !resp.OK.Bool() {
		msg := resp.Message
		if msg == "" {
			msg = "invoice generation refused"
		}
		return nil, &APIError{Status: 200, Message: msg}
	}
	if resp.InvoiceData == nil {
		return nil, &APIError{Status: 200, Message: "invoice response missing invoice_data"}
	}
	return resp.InvoiceData, nil
}

// GenerateReceipt asks the CRM to issue the fiscal receipt for an order.
// Only valid once the invoice exists.
func (c *Client) GenerateReceipt(ctx context.Context, orderID int64) (*ReceiptResult, error) {
	var resp receiptResponse
	if err := c.post(ctx, fmt.Sprintf("/api/generare-bon/%d", orderID), &resp); err != nil {
		return nil, err
	}
	if !resp.OK.Bool() {
		msg := resp.Message
		if msg == "" {
			msg = "receipt generation refused"
		}
		return nil, &APIError{Status: 200, Message: msg}
	}
	return &ReceiptResult{Path: resp.ReceiptPath}, nil
}
