package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventgate/booking-core/internal/domain"
	"github.com/eventgate/booking-core/internal/observability"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "client-id", "client-secret", observability.NewNopLogger())
}

func TestCreateOrder_Success(t *testing.T) {
	var received OrderRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pg/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-client-id") != "client-id" {
			t.Error("missing client id header")
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(OrderResult{
			GatewayOrderID:   "cf_123",
			OrderID:          received.OrderID,
			PaymentSessionID: "session_abc",
			OrderStatus:      "ACTIVE",
		})
	})

	req := OrderRequest{
		OrderID:       "BK-20260901-000001",
		OrderAmount:   1230,
		OrderCurrency: "INR",
		OrderTags: Tags{
			BookingID:   "b1",
			TicketCount: 2,
			UserPays:    1230,
			HostGets:    940,
			AdminGets:   110,
		}.Map(),
	}
	res, err := c.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.GatewayOrderID != "cf_123" || res.PaymentSessionID != "session_abc" {
		t.Errorf("unexpected result %+v", res)
	}
	if received.OrderTags["user_pays"] != "1230.00" {
		t.Errorf("amounts must be serialized with two decimals, got %q", received.OrderTags["user_pays"])
	}
	if received.OrderTags["host_gets"] != "940.00" {
		t.Errorf("host_gets tag = %q, want 940.00", received.OrderTags["host_gets"])
	}
}

func TestCreateOrder_MissingOrderID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OrderResult{OrderStatus: "ACTIVE"})
	})

	_, err := c.CreateOrder(context.Background(), OrderRequest{OrderID: "BK-1"})
	if !errors.Is(err, domain.ErrOrderCreationFailed) {
		t.Fatalf("expected ErrOrderCreationFailed, got %v", err)
	}
}

func TestCreateOrder_GatewayRejects(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid credentials"}`, http.StatusUnauthorized)
	})

	_, err := c.CreateOrder(context.Background(), OrderRequest{OrderID: "BK-1"})
	if !errors.Is(err, domain.ErrOrderCreationFailed) {
		t.Fatalf("expected ErrOrderCreationFailed, got %v", err)
	}
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := c.CreateOrder(context.Background(), OrderRequest{OrderID: "BK-1"})
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestGetOrder(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pg/orders/BK-1" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(OrderDetails{
			GatewayOrderID: "cf_123",
			OrderID:        "BK-1",
			OrderAmount:    1230,
			OrderStatus:    "PAID",
			OrderTags: Tags{
				BookingID:      "b1",
				TicketCount:    1,
				UserPays:       1230,
				HostGets:       940,
				AdminGets:      110,
				ReferralAmount: 94,
			}.Map(),
		})
	})

	details, err := c.GetOrder(context.Background(), "BK-1")
	if err != nil {
		t.Fatal(err)
	}
	tags, err := ParseTags(details.OrderTags)
	if err != nil {
		t.Fatal(err)
	}
	if tags.UserPays != 1230 || tags.HostGets != 940 || tags.ReferralAmount != 94 {
		t.Errorf("round-tripped tags mismatch: %+v", tags)
	}
}

func TestParseTags_Invalid(t *testing.T) {
	_, err := ParseTags(map[string]string{"ticket_count": "two"})
	if err == nil {
		t.Fatal("expected parse error")
	}
}
