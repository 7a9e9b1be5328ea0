package crm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, staticTokens("test-token"))
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	if _, err := c.ListOrders(context.Background(), FamilyGravare, ZoneGravare); err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", gotAuth)
	}
}

func TestClientAPIErrorCarriesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"acces interzis"}`))
	})

	err := c.StartOrder(context.Background(), FamilyGravare, 100, 5)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", apiErr.Status)
	}
	if apiErr.Message != "acces interzis" {
		t.Errorf("message = %q, want server text", apiErr.Message)
	}
}

func TestClientNetworkError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 500*time.Millisecond, nil)
	err := c.Ping(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("want NetworkError, got %v", err)
	}
}

func TestListOrdersPaths(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[{"ID":42}]`))
	})

	orders, err := c.ListOrders(context.Background(), FamilyLegatorie, ZoneLegatorie)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if gotPath != "/api/comenzi-daruri-alese-legatorie/legatorie" {
		t.Errorf("path = %s", gotPath)
	}
	if len(orders) != 1 || orders[0].ID != 42 {
		t.Errorf("orders = %+v", orders)
	}
}

func TestGenerateInvoice(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
		wantNum int
	}{
		{
			name:    "ok",
			body:    `{"ok":true,"invoice_data":{"serie":"DAN","numar":4521}}`,
			wantNum: 4521,
		},
		{
			name:    "refused with message",
			body:    `{"ok":false,"message":"date facturare lipsa"}`,
			wantErr: "date facturare lipsa",
		},
		{
			name:    "refused without message",
			body:    `{"ok":"0"}`,
			wantErr: "invoice generation refused",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(c.body))
			})
			inv, err := cl.GenerateInvoice(context.Background(), 7)
			if c.wantErr != "" {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("want APIError, got %v", err)
				}
				if apiErr.Message != c.wantErr {
					t.Errorf("message = %q, want %q", apiErr.Message, c.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateInvoice: %v", err)
			}
			if inv.Number != c.wantNum {
				t.Errorf("number = %d, want %d", inv.Number, c.wantNum)
			}
		})
	}
}

func TestGenerateReceiptRefused(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"message":"stoc epuizat"}`))
	})
	_, err := cl.GenerateReceipt(context.Background(), 7)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Message != "stoc epuizat" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestMarkStudyItemFallsBackToGET(t *testing.T) {
	var methods []string
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte(`{}`))
	})

	if err := cl.MarkStudyItem(context.Background(), StudyMarkEngraved, 9); err != nil {
		t.Fatalf("MarkStudyItem: %v", err)
	}
	if len(methods) != 2 || methods[0] != http.MethodPost || methods[1] != http.MethodGet {
		t.Errorf("methods = %v, want [POST GET]", methods)
	}
}

func TestMarkStudyItemRejectsUnknownAction(t *testing.T) {
	cl := NewClient("http://unused", time.Second, nil)
	if err := cl.MarkStudyItem(context.Background(), "sters", 1); err == nil {
		t.Fatal("want error for unknown action")
	}
}
