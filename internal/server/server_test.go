package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easycaremarket/b2b-catalog/internal/catalog"
	"github.com/easycaremarket/b2b-catalog/internal/db"
	"github.com/easycaremarket/b2b-catalog/internal/supplier"
	"github.com/easycaremarket/b2b-catalog/internal/syncer"
)

type fixture struct {
	api   *httptest.Server
	store *catalog.Store
	sync  *syncer.Syncer
	db    *db.Handle
}

// newFixture wires the whole stack against a fake supplier API.
func newFixture(t *testing.T, supplierPages []supplier.Page, pageDelay time.Duration) *fixture {
	t.Helper()

	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			_ = json.NewEncoder(w).Encode(map[string]string{"access": "tok"})
		case "/variants/search/":
			if pageDelay > 0 {
				time.Sleep(pageDelay)
			}
			idx := 0
			if r.URL.Query().Get("cursor") == "next" {
				idx = 1
			}
			_ = json.NewEncoder(w).Encode(supplierPages[idx])
		}
	}))
	t.Cleanup(fake.Close)

	h, err := db.Open("sqlite", ":memory:", "")
	require.NoError(t, err)
	require.NoError(t, h.Migrate())

	client := supplier.New(zerolog.Nop(), supplier.Config{
		BaseURL:    fake.URL,
		Email:      "buyer@example.com",
		Password:   "secret",
		MaxRetries: 1,
		Timeout:    2 * time.Second,
	})
	store := catalog.NewStore(zerolog.Nop(), h.DB)
	tf := catalog.NewTransformer(1.10)
	sy := syncer.New(zerolog.Nop(), client, tf, store, h.DB, syncer.Config{
		MaxRetries: 1,
		RateDelay:  time.Millisecond,
	})

	srv := New(zerolog.Nop(), store, sy, client, "test")
	api := httptest.NewServer(srv.Routes())
	t.Cleanup(api.Close)

	return &fixture{api: api, store: store, sync: sy, db: h}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func onePage() []supplier.Page {
	return []supplier.Page{
		{Records: []supplier.RawRecord{
			{SKU: "sku-1", Name: "Shampoo", Brand: "acme", Category: "hair care", Cost: 7.50, Inventory: 10},
		}},
	}
}

func TestHealthAndHome(t *testing.T) {
	f := newFixture(t, onePage(), 0)

	var home map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, f.api.URL+"/", &home))
	assert.Equal(t, "running", home["status"])

	var health map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, f.api.URL+"/health", &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestSyncStart_ConflictWhileRunning(t *testing.T) {
	f := newFixture(t, onePage(), 300*time.Millisecond)

	var first map[string]any
	require.Equal(t, http.StatusAccepted,
		postJSON(t, f.api.URL+"/api/sync/start", nil, &first))
	assert.NotEmpty(t, first["run_id"])

	var second map[string]any
	assert.Equal(t, http.StatusConflict,
		postJSON(t, f.api.URL+"/api/sync/start", nil, &second))

	f.sync.Wait()

	var status map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, f.api.URL+"/api/sync/status", &status))
	entry := status["sync"].(map[string]any)
	assert.Equal(t, "succeeded", entry["status"])
}

func TestProductsEndpointAfterSync(t *testing.T) {
	f := newFixture(t, onePage(), 0)

	var started map[string]any
	require.Equal(t, http.StatusAccepted,
		postJSON(t, f.api.URL+"/api/sync/start", nil, &started))
	f.sync.Wait()

	var listing struct {
		Products []db.Product `json:"products"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, f.api.URL+"/api/products", &listing))
	require.Len(t, listing.Products, 1)
	assert.Equal(t, "sku-1", listing.Products[0].SKU)
	assert.InDelta(t, 8.25, listing.Products[0].RetailPrice, 0.0001)

	var categories map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, f.api.URL+"/api/categories", &categories))

	var status map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, f.api.URL+"/api/status", &status))
	assert.Equal(t, "operational", status["api_status"])

	var stats catalog.Stats
	require.Equal(t, http.StatusOK, getJSON(t, f.api.URL+"/api/stats", &stats))
	assert.Equal(t, int64(1), stats.Products)
	assert.Equal(t, int64(1), stats.InStock)
}

func TestCustomersAndOrders(t *testing.T) {
	f := newFixture(t, onePage(), 0)
	ctx := context.Background()

	_, err := f.store.Upsert(ctx, db.Product{
		SKU: "sku-1", Name: "Shampoo", RetailPrice: 8.25, CostPrice: 7.50, Stock: 10, Active: true,
	})
	require.NoError(t, err)
	var p db.Product
	require.NoError(t, f.db.DB.Where("sku = ?", "sku-1").Take(&p).Error)

	var created map[string]any
	require.Equal(t, http.StatusCreated, postJSON(t, f.api.URL+"/api/customers", map[string]string{
		"email":         "shop@example.com",
		"business_name": "Example Shop",
		"contact_name":  "Alex",
	}, &created))
	customerID := uint(created["customer_id"].(float64))

	var dup map[string]any
	assert.Equal(t, http.StatusBadRequest, postJSON(t, f.api.URL+"/api/customers", map[string]string{
		"email": "shop@example.com", "business_name": "Example Shop", "contact_name": "Alex",
	}, &dup))

	var order map[string]any
	require.Equal(t, http.StatusCreated, postJSON(t, f.api.URL+"/api/orders", map[string]any{
		"customer_id": customerID,
		"items":       []map[string]any{{"product_id": p.ID, "quantity": 2}},
	}, &order))
	assert.InDelta(t, 16.50, order["total_amount"].(float64), 0.0001)

	var tooMany map[string]any
	assert.Equal(t, http.StatusBadRequest, postJSON(t, f.api.URL+"/api/orders", map[string]any{
		"customer_id": customerID,
		"items":       []map[string]any{{"product_id": p.ID, "quantity": 999}},
	}, &tooMany))
}
