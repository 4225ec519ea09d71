// Package gateway is the client for the external payment provider. The
// provider owns the money movement; this side only creates orders, stores
// the returned identifiers and later reads them back during settlement.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/eventgate/booking-core/internal/domain"
	"github.com/eventgate/booking-core/internal/observability"
)

const apiVersion = "2023-08-01"

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpc        *http.Client
	logger       observability.Logger
}

func NewClient(baseURL, clientID, clientSecret string, logger observability.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpc:        &http.Client{Timeout: 15 * time.Second},
		logger:       logger,
	}
}

type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url"`
}

type OrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
	OrderMeta       orderMeta         `json:"order_meta"`
	OrderTags       map[string]string `json:"order_tags"`
}

type OrderResult struct {
	GatewayOrderID   string `json:"cf_order_id"`
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	OrderStatus      string `json:"order_status"`
}

type OrderDetails struct {
	GatewayOrderID string            `json:"cf_order_id"`
	OrderID        string            `json:"order_id"`
	OrderAmount    float64           `json:"order_amount"`
	OrderStatus    string            `json:"order_status"`
	OrderTags      map[string]string `json:"order_tags"`
}

// Tags is the metadata bag attached to the gateway order. It is the
// fallback source of truth for settlement when the catalog can no longer
// reproduce the amounts.
type Tags struct {
	BookingID      string
	EventID        string
	UserID         string
	TicketCount    int
	UserPays       float64
	HostGets       float64
	AdminGets      float64
	ReferralAmount float64
	ReferralCode   string
}

func (t Tags) Map() map[string]string {
	m := map[string]string{
		"booking_id":      t.BookingID,
		"event_id":        t.EventID,
		"user_id":         t.UserID,
		"ticket_count":    strconv.Itoa(t.TicketCount),
		"user_pays":       money(t.UserPays),
		"host_gets":       money(t.HostGets),
		"admin_gets":      money(t.AdminGets),
		"referral_amount": money(t.ReferralAmount),
	}
	if t.ReferralCode != "" {
		m["referral_code"] = t.ReferralCode
	}
	return m
}

func ParseTags(m map[string]string) (Tags, error) {
	var t Tags
	var err error
	t.BookingID = m["booking_id"]
	t.EventID = m["event_id"]
	t.UserID = m["user_id"]
	t.ReferralCode = m["referral_code"]
	if t.TicketCount, err = strconv.Atoi(m["ticket_count"]); err != nil {
		return Tags{}, errors.Wrap(err, "ticket_count tag")
	}
	if t.UserPays, err = strconv.ParseFloat(m["user_pays"], 64); err != nil {
		return Tags{}, errors.Wrap(err, "user_pays tag")
	}
	if t.HostGets, err = strconv.ParseFloat(m["host_gets"], 64); err != nil {
		return Tags{}, errors.Wrap(err, "host_gets tag")
	}
	if t.AdminGets, err = strconv.ParseFloat(m["admin_gets"], 64); err != nil {
		return Tags{}, errors.Wrap(err, "admin_gets tag")
	}
	if t.ReferralAmount, err = strconv.ParseFloat(m["referral_amount"], 64); err != nil {
		return Tags{}, errors.Wrap(err, "referral_amount tag")
	}
	return t, nil
}

// money serializes an amount with exactly two decimals, as the gateway
// tag contract requires.
func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// CreateOrder registers a payment order with the gateway. A response
// without a non-empty gateway order id is a failure even on HTTP 200.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	var result OrderResult
	if err := c.do(ctx, http.MethodPost, "/pg/orders", req, &result); err != nil {
		return nil, err
	}
	if result.GatewayOrderID == "" {
		return nil, errors.Wrap(domain.ErrOrderCreationFailed, "gateway returned no order id")
	}
	return &result, nil
}

// GetOrder is the read-only verification call used during settlement to
// recover the metadata bag.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderDetails, error) {
	var details OrderDetails
	if err := c.do(ctx, http.MethodGet, "/pg/orders/"+orderID, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	observability.GatewayRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return errors.Wrap(err, "gateway request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.WithField("status", resp.StatusCode).Error("gateway rejected request: ", string(payload))
		return errors.Wrapf(domain.ErrOrderCreationFailed, "gateway status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "malformed gateway response")
	}
	return nil
}
