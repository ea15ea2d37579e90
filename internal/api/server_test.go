package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/kavach-store/internal/api"
	"github.com/safar/kavach-store/internal/brahma"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/memstore"
	"github.com/safar/kavach-store/internal/sarthi"
	"github.com/safar/kavach-store/internal/seed"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupServer(t *testing.T, opts ...api.Option) http.Handler {
	t.Helper()

	clock := func() time.Time { return testNow }
	commerce := memstore.NewCommerce()
	commerce.SetClock(clock)
	consult := memstore.NewConsult()

	fixture, err := seed.Default()
	require.NoError(t, err)
	require.NoError(t, fixture.Apply(context.Background(), commerce.Repositories(), consult))

	gateway := &brahma.MockGateway{FailAbove: decimal.NewFromInt(1000)}
	services := api.Services{
		Kavach: kavach.NewService(commerce.Repositories(), kavach.WithClock(clock)),
		Sarthi: sarthi.NewService(consult, sarthi.WithClock(clock)),
		Brahma: brahma.NewService(consult, consult, gateway, brahma.WithClock(clock)),
	}
	return api.NewServer(services, opts...).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	h := setupServer(t)
	code, body := do(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	down := setupServer(t, api.WithHealthCheck(func(context.Context) error { return errors.New("down") }))
	code, _ = do(t, down, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestProductsEndpoints(t *testing.T) {
	h := setupServer(t)

	code, body := do(t, h, http.MethodGet, "/api/products?page_size=2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 5, body["total"])
	assert.Len(t, body["items"], 2)

	code, body = do(t, h, http.MethodGet, "/api/products/1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 40, body["discount_percent"])
	assert.Equal(t, "in_stock", body["stock_status"])

	code, _ = do(t, h, http.MethodGet, "/api/products/999", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, h, http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, h, http.MethodPost, "/api/products", map[string]any{
		"sku": "KV-NEW", "name": "Tulsi mala", "category": "malas", "price": "199", "stock_quantity": 3, "active": true,
	})
	require.Equal(t, http.StatusCreated, code, body)

	code, _ = do(t, h, http.MethodPost, "/api/products", map[string]any{"name": "", "price": "-1"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCartAndCheckoutFlow(t *testing.T) {
	h := setupServer(t)

	code, body := do(t, h, http.MethodPost, "/api/carts/demo-user/items", map[string]any{"product_id": 1, "quantity": 1})
	require.Equal(t, http.StatusOK, code, body)
	code, body = do(t, h, http.MethodPost, "/api/carts/demo-user/items", map[string]any{"product_id": 2, "quantity": 2})
	require.Equal(t, http.StatusOK, code, body)

	quote := body["quote"].(map[string]any)
	assert.Equal(t, "2097", quote["total"])

	code, body = do(t, h, http.MethodGet, "/api/carts/demo-user/quote?coupon=WELCOME10", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "1897", body["total"])

	code, body = do(t, h, http.MethodGet, "/api/carts/demo-user/quote?coupon=NOPE", nil)
	assert.Equal(t, http.StatusNotFound, code, body)

	code, body = do(t, h, http.MethodPost, "/api/carts/demo-user/checkout", map[string]any{
		"address_id": 1, "coupon_code": "welcome10",
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "1897", body["total"])
	assert.Equal(t, "pending", body["status"])
	orderID := int(body["id"].(float64))

	code, body = do(t, h, http.MethodGet, "/api/carts/demo-user", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["lines"])

	code, _ = do(t, h, http.MethodPost, "/api/carts/demo-user/checkout", map[string]any{"address_id": 1})
	assert.Equal(t, http.StatusBadRequest, code, "empty cart")

	path := "/api/orders/" + itoa(orderID)
	code, body = do(t, h, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, code)
	assert.ElementsMatch(t, []any{"cancel", "confirm"}, body["events"])

	code, body = do(t, h, http.MethodPost, path+"/events", map[string]any{"event": "deliver"})
	assert.Equal(t, http.StatusConflict, code, body)

	code, body = do(t, h, http.MethodPost, path+"/events", map[string]any{"event": "confirm"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "confirmed", body["status"])

	code, body = do(t, h, http.MethodGet, "/api/orders?owner=demo-user", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)
}

func TestCartErrors(t *testing.T) {
	h := setupServer(t)

	code, _ := do(t, h, http.MethodPost, "/api/carts/demo-user/items", map[string]any{"product_id": 5, "quantity": 1})
	assert.Equal(t, http.StatusConflict, code, "out of stock")

	code, _ = do(t, h, http.MethodPost, "/api/carts/demo-user/items", map[string]any{"product_id": 42, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, h, http.MethodPost, "/api/carts/guest-1/checkout?guest=true", map[string]any{"address_id": 1})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, h, http.MethodPost, "/api/carts/demo-user/items", map[string]any{"product_id": 3, "quantity": 1})
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodPost, "/api/carts/demo-user/checkout", map[string]any{"address_id": 999})
	assert.Equal(t, http.StatusNotFound, code)

	code, body := do(t, h, http.MethodGet, "/api/carts/demo-user/quote?coupon=GEMS15", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "GEMS15", body["coupon"])
}

func TestGuestMergeAndWishlist(t *testing.T) {
	h := setupServer(t)

	code, _ := do(t, h, http.MethodPost, "/api/carts/g-1/items?guest=true", map[string]any{"product_id": 1, "quantity": 2})
	require.Equal(t, http.StatusOK, code)

	code, body := do(t, h, http.MethodPost, "/api/carts/demo-user/merge", map[string]any{"guest_id": "g-1"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["lines"], 1)

	code, body = do(t, h, http.MethodPost, "/api/wishlists/demo-user/items/2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["in_wishlist"])

	code, body = do(t, h, http.MethodPost, "/api/wishlists/demo-user/items/2/move", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["lines"], 2)
}

func TestAdminEndpoints(t *testing.T) {
	h := setupServer(t)

	code, body := do(t, h, http.MethodGet, "/api/coupons", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 4)

	code, _ = do(t, h, http.MethodPost, "/api/coupons", map[string]any{
		"code": "welcome10", "type": "percentage", "value": "5",
		"start_date": "2026-01-01T00:00:00Z", "end_date": "2026-12-31T00:00:00Z", "active": true,
	})
	assert.Equal(t, http.StatusConflict, code, "duplicate code")

	code, body = do(t, h, http.MethodPut, "/api/delivery-rule", map[string]any{
		"name": "festive", "base_charge": "30", "free_delivery_threshold": "300",
	})
	require.Equal(t, http.StatusOK, code, body)

	code, body = do(t, h, http.MethodGet, "/api/delivery-rule", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "festive", body["name"])

	code, body = do(t, h, http.MethodPost, "/api/addresses/new-user", map[string]any{"name": "N"})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, _ = do(t, h, http.MethodDelete, "/api/addresses/someone-else/1", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestSarthiEndpoints(t *testing.T) {
	h := setupServer(t)

	code, body := do(t, h, http.MethodPost, "/api/sarthi/requests", map[string]any{
		"customer": "c-1", "problem": "Career stuck", "category": "career",
	})
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)

	code, _ = do(t, h, http.MethodPost, "/api/sarthi/requests/"+id+"/assign", map[string]any{"expert_id": "exp-meera"})
	assert.Equal(t, http.StatusConflict, code, "inactive expert")

	code, body = do(t, h, http.MethodPost, "/api/sarthi/requests/"+id+"/assign", map[string]any{"expert_id": "exp-anita"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "assigned", body["status"])

	code, _ = do(t, h, http.MethodPost, "/api/sarthi/requests/"+id+"/schedule", map[string]any{"at": testNow.Add(-time.Hour)})
	assert.Equal(t, http.StatusBadRequest, code, "past slot")

	code, body = do(t, h, http.MethodPost, "/api/sarthi/requests/"+id+"/schedule", map[string]any{"at": testNow.Add(24 * time.Hour)})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "scheduled", body["status"])

	code, body = do(t, h, http.MethodGet, "/api/sarthi/packages", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 3)

	code, body = do(t, h, http.MethodPost, "/api/sarthi/subscriptions", map[string]any{"customer": "c-1", "tier": "sustainable"})
	require.Equal(t, http.StatusCreated, code, body)
	subID := body["id"].(string)

	code, _ = do(t, h, http.MethodPost, "/api/sarthi/subscriptions/"+subID+"/use", nil)
	assert.Equal(t, http.StatusConflict, code, "pending subscription")

	code, _ = do(t, h, http.MethodPost, "/api/sarthi/subscriptions/"+subID+"/activate", nil)
	require.Equal(t, http.StatusOK, code)
	code, body = do(t, h, http.MethodPost, "/api/sarthi/subscriptions/"+subID+"/use", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 25, body["progress"])

	code, _ = do(t, h, http.MethodPost, "/api/sarthi/subscriptions/"+subID+"/bogus", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBrahmaEndpoints(t *testing.T) {
	h := setupServer(t)
	slot := testNow.Add(48 * time.Hour)

	code, body := do(t, h, http.MethodPost, "/api/brahma/bookings", map[string]any{
		"customer": "c-1", "expert_id": "exp-anita", "kind": "call", "slot_start": slot,
	})
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)

	code, _ = do(t, h, http.MethodPost, "/api/brahma/bookings", map[string]any{
		"customer": "c-2", "expert_id": "exp-anita", "kind": "chat", "slot_start": slot.Add(10 * time.Minute),
	})
	assert.Equal(t, http.StatusConflict, code, "slot taken")

	code, body = do(t, h, http.MethodPost, "/api/brahma/bookings/"+id+"/pay", map[string]any{"method": "upi"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "confirmed", body["status"])

	code, body = do(t, h, http.MethodPost, "/api/brahma/bookings", map[string]any{
		"customer": "c-3", "expert_id": "exp-rahul", "kind": "video", "slot_start": slot,
	})
	require.Equal(t, http.StatusCreated, code, body)
	videoID := body["id"].(string)

	// Video costs 1499, above the gateway's 1000 test limit.
	code, body = do(t, h, http.MethodPost, "/api/brahma/bookings/"+videoID+"/pay", nil)
	assert.Equal(t, http.StatusPaymentRequired, code)
	booking := body["booking"].(map[string]any)
	assert.Equal(t, "payment_failed", booking["status"])

	code, body = do(t, h, http.MethodPost, "/api/brahma/bookings/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, code, body)

	code, body = do(t, h, http.MethodGet, "/api/brahma/payments", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 2)

	code, _ = do(t, h, http.MethodGet, "/api/brahma/bookings/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
