package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/pos-ledger/internal/adapter/events"
	"github.com/rl1809/pos-ledger/internal/adapter/storage"
	"github.com/rl1809/pos-ledger/internal/core/domain"
)

// Full sale flow against real MySQL and Redis. Skips when either backing
// store is unreachable.
func TestSaleFlow_Integration(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/pos?parseTime=true"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	ctx := context.Background()
	store := storage.NewMySQLAdapter(db)
	cache := storage.NewRedisAdapter(rdb)

	catalog := NewCatalogService(store, cache)
	ledger := NewLedgerService(store, cache, events.Noop{}, "integration-test")
	orders := NewOrderService(store, ledger, cache, events.Noop{}, "integration-test")

	sku := "IT" + uuid.NewString()[:10]
	p, err := catalog.CreateProduct(ctx, CreateProductInput{
		SKU: sku, Name: "Integration Product", Category: "test", Price: 2.50, Stock: 0,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	defer func() {
		db.ExecContext(ctx, `DELETE FROM stock_movements WHERE product_id = ?`, p.ID)
		db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, p.ID)
		rdb.Del(ctx, "stock:"+p.ID)
	}()

	// Restock.
	res, err := ledger.ApplyMovement(ctx, p.ID, domain.MovementIn, 10, "restock")
	if err != nil {
		t.Fatalf("ApplyMovement IN failed: %v", err)
	}
	if res.StockAfter != 10 {
		t.Fatalf("expected stock 10, got %d", res.StockAfter)
	}

	// Sell.
	reqID := uuid.NewString()
	order, err := orders.CreateOrder(ctx, CreateOrderRequest{
		RequestID: reqID,
		Items:     []OrderLineInput{{ProductID: p.ID, Qty: 4}},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	defer func() {
		db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, order.ID)
		db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, order.ID)
		rdb.Del(ctx, "idem:order:req:"+reqID)
	}()
	if order.Total != 10.00 {
		t.Errorf("expected total 10.00, got %v", order.Total)
	}

	cur, err := store.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Stock != 6 {
		t.Errorf("expected stock 6 after sale, got %d", cur.Stock)
	}

	// The mirror tracks the store.
	mirror, err := rdb.Get(ctx, "stock:"+p.ID).Int()
	if err != nil {
		t.Fatalf("mirror key missing: %v", err)
	}
	if mirror != 6 {
		t.Errorf("expected mirror 6, got %d", mirror)
	}

	// A retry with the same request id is rejected without selling again.
	if _, err := orders.CreateOrder(ctx, CreateOrderRequest{
		RequestID: reqID,
		Items:     []OrderLineInput{{ProductID: p.ID, Qty: 4}},
	}); !errors.Is(err, ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got: %v", err)
	}
	cur, _ = store.GetProduct(ctx, p.ID)
	if cur.Stock != 6 {
		t.Errorf("retry changed stock: %d", cur.Stock)
	}

	// Over-ask rejects and leaves everything untouched.
	if _, err := orders.CreateOrder(ctx, CreateOrderRequest{
		Items: []OrderLineInput{{ProductID: p.ID, Qty: 99}},
	}); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got: %v", err)
	}
}
