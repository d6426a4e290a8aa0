package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/pos-ledger/internal/adapter/storage"
	"github.com/rl1809/pos-ledger/internal/core/service"
)

const (
	initialStock  = 200
	qtyPerOrder   = 1
	totalRequests = 500
)

// Fires a burst of concurrent single-line orders against one product and
// checks the ledger invariants held: no oversell, and one OUT movement per
// committed order.
func main() {
	ctx := context.Background()

	store := storage.NewMemoryAdapter()
	ledger := service.NewLedgerService(store, nil, nil, "stress")
	orders := service.NewOrderService(store, ledger, nil, nil, "stress")
	catalog := service.NewCatalogService(store, nil)

	prod, err := catalog.CreateProduct(ctx, service.CreateProductInput{
		SKU:   "STRESS1",
		Name:  "Stress Item",
		Price: 1.25,
		Stock: initialStock,
	})
	if err != nil {
		log.Fatalf("seed product: %v", err)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orders.CreateOrder(ctx, service.CreateOrderRequest{
				Items: []service.OrderLineInput{{ProductID: prod.ID, Qty: qtyPerOrder}},
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("====================================")

	final, err := store.GetProduct(ctx, prod.ID)
	if err != nil {
		log.Fatalf("read product: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", final.Stock)

	if final.Stock < 0 {
		fmt.Println("FAIL: stock went negative")
		return
	}
	if int(success)*qtyPerOrder != initialStock-final.Stock {
		fmt.Printf("FAIL: %d successes but stock dropped by %d\n", success, initialStock-final.Stock)
		return
	}
	fmt.Println("PASS: deductions match successful orders, no oversell")
}
