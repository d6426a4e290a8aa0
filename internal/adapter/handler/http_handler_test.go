package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/rl1809/pos-ledger/internal/adapter/events"
	"github.com/rl1809/pos-ledger/internal/adapter/storage"
	"github.com/rl1809/pos-ledger/internal/core/domain"
	"github.com/rl1809/pos-ledger/internal/core/service"
	"github.com/rl1809/pos-ledger/internal/invoice"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := storage.NewMemoryAdapter()
	ledger := service.NewLedgerService(store, nil, events.Noop{}, "test")
	h := &HTTPHandler{
		Catalog: service.NewCatalogService(store, nil),
		Ledger:  ledger,
		Orders:  service.NewOrderService(store, ledger, nil, events.Noop{}, "test"),
		Invoice: invoice.NewRenderer("Test Shop"),
		Log:     zap.NewNop(),
	}
	r := NewRouter()
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func createProduct(t *testing.T, srv *httptest.Server, sku string, price float64, stock int) string {
	t.Helper()
	body := fmt.Sprintf(`{"sku":%q,"name":"Product %s","category":"grocery","price":%v,"stock":%d}`, sku, sku, price, stock)
	resp, out := postJSON(t, srv.URL+"/api/products", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product: status %d, body %v", resp.StatusCode, out)
	}
	return out["id"].(string)
}

func TestCreateProductEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, out := postJSON(t, srv.URL+"/api/products", `{"sku":"milk01","name":" Milk ","price":1.25,"stock":10}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, body %v", resp.StatusCode, out)
	}
	if out["sku"] != "MILK01" {
		t.Errorf("sku not normalized: %v", out["sku"])
	}
	if out["name"] != "Milk" {
		t.Errorf("name not trimmed: %v", out["name"])
	}

	// Same SKU, different case, still a duplicate.
	resp, _ = postJSON(t, srv.URL+"/api/products", `{"sku":"MILK01","name":"Other","price":1,"stock":0}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate sku, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/api/products", `{"sku":"bad sku","name":"X","price":1,"stock":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid sku, got %d", resp.StatusCode)
	}
}

func TestProductSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)
	createProduct(t, srv, "MILK01", 1.25, 10)
	createProduct(t, srv, "BREAD1", 0.99, 5)

	resp, err := http.Get(srv.URL + "/api/products?search=milk")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var list []domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SKU != "MILK01" {
		t.Errorf("unexpected search result: %+v", list)
	}
}

func TestMovementEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createProduct(t, srv, "MOV1", 2.00, 5)

	resp, out := postJSON(t, srv.URL+"/api/stock-movements",
		fmt.Sprintf(`{"productId":%q,"type":"IN","qty":7,"reason":"restock"}`, id))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, body %v", resp.StatusCode, out)
	}
	if out["stockAfter"].(float64) != 12 {
		t.Errorf("expected stockAfter 12, got %v", out["stockAfter"])
	}

	resp, _ = postJSON(t, srv.URL+"/api/stock-movements",
		fmt.Sprintf(`{"productId":%q,"type":"OUT","qty":99}`, id))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for insufficient stock, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/api/stock-movements",
		fmt.Sprintf(`{"productId":%q,"type":"TRANSFER","qty":1}`, id))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid type, got %d", resp.StatusCode)
	}
}

func TestOrderEndpoints(t *testing.T) {
	srv := newTestServer(t)
	id := createProduct(t, srv, "ORD1", 2.50, 10)

	resp, out := postJSON(t, srv.URL+"/api/orders",
		fmt.Sprintf(`{"items":[{"productId":%q,"qty":4}]}`, id))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, body %v", resp.StatusCode, out)
	}
	if out["total"].(float64) != 10.00 {
		t.Errorf("expected total 10, got %v", out["total"])
	}
	number, _ := out["number"].(string)
	if !strings.HasPrefix(number, "S") {
		t.Errorf("unexpected order number %q", number)
	}
	orderID := out["id"].(string)

	// Stock deducted.
	resp2, err := http.Get(srv.URL + "/api/products")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var list []domain.Product
	json.NewDecoder(resp2.Body).Decode(&list)
	if len(list) != 1 || list[0].Stock != 6 {
		t.Errorf("expected stock 6 after sale, got %+v", list)
	}

	// Over-ask rejects.
	resp, _ = postJSON(t, srv.URL+"/api/orders",
		fmt.Sprintf(`{"items":[{"productId":%q,"qty":99}]}`, id))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for insufficient stock, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/api/orders", `{"items":[]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty items, got %d", resp.StatusCode)
	}

	// Printable receipt.
	resp3, err := http.Get(srv.URL + "/api/orders/" + orderID + "/print")
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("print status %d", resp3.StatusCode)
	}
	if ct := resp3.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp3.Body)
	if !strings.Contains(buf.String(), number) {
		t.Error("receipt missing order number")
	}

	resp4, err := http.Get(srv.URL + "/api/orders/nope/print")
	if err != nil {
		t.Fatal(err)
	}
	resp4.Body.Close()
	if resp4.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp4.StatusCode)
	}
}

func TestBadJSON(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := postJSON(t, srv.URL+"/api/products", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestBadTimeParam(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/stock-movements?from=yesterday")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad time param, got %d", resp.StatusCode)
	}
}
