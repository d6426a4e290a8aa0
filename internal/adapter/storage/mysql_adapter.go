package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/pos-ledger/internal/core/domain"
	"github.com/rl1809/pos-ledger/internal/port"
)

const mysqlDupEntry = 1062

// MySQLAdapter is the authoritative DatabaseRepository. Schema lives in
// migrations/schema.sql.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func isDupEntry(err error) bool {
	var merr *mysql.MySQLError
	return errors.As(err, &merr) && merr.Number == mysqlDupEntry
}

func (m *MySQLAdapter) InsertProduct(ctx context.Context, p domain.Product) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, category, price, stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SKU, p.Name, p.Category, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	if isDupEntry(err) {
		return port.ErrDuplicateSKU
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, sku, name, category, price, stock, created_at, updated_at
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, f port.ProductFilter) ([]domain.Product, error) {
	q := `SELECT id, sku, name, category, price, stock, created_at, updated_at FROM products`
	var conds []string
	var args []any
	if f.Search != "" {
		s := "%" + strings.ToLower(f.Search) + "%"
		conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)")
		args = append(args, s, s)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"

	rows, err := m.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) UpdateProduct(ctx context.Context, id string, patch port.ProductPatch) (*domain.Product, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if patch.SKU != nil {
		sets = append(sets, "sku = ?")
		args = append(args, *patch.SKU)
	}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *patch.Price)
	}
	if patch.Stock != nil {
		sets = append(sets, "stock = ?")
		args = append(args, *patch.Stock)
	}
	args = append(args, id)

	_, err := m.db.ExecContext(ctx, "UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if isDupEntry(err) {
		return nil, port.ErrDuplicateSKU
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return m.GetProduct(ctx, id)
}

func (m *MySQLAdapter) DeleteProduct(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// AdjustStock is the conditional stock update: the WHERE clause rejects any
// delta that would take stock below zero, and LAST_INSERT_ID carries the new
// value back on the same connection.
func (m *MySQLAdapter) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = LAST_INSERT_ID(stock + ?), updated_at = UTC_TIMESTAMP(3)
		WHERE id = ? AND stock + ? >= 0`,
		delta, id, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("adjust stock: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		var stock int
		err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, id).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, port.ErrNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("check product: %w", err)
		}
		return 0, port.ErrStockConflict
	}

	var newStock int
	if err := tx.QueryRowContext(ctx, `SELECT LAST_INSERT_ID()`).Scan(&newStock); err != nil {
		return 0, fmt.Errorf("read new stock: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return newStock, nil
}

func (m *MySQLAdapter) InsertMovement(ctx context.Context, mov domain.StockMovement) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, type, qty, reason, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		mov.ID, mov.ProductID, string(mov.Type), mov.Qty, mov.Reason, mov.At,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListMovements(ctx context.Context, r port.TimeRange) ([]domain.StockMovement, error) {
	q := `SELECT id, product_id, type, qty, reason, at FROM stock_movements`
	conds, args := rangeConds(r, "at")
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY at DESC"

	rows, err := m.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	out := []domain.StockMovement{}
	for rows.Next() {
		var mov domain.StockMovement
		var mtype string
		if err := rows.Scan(&mov.ID, &mov.ProductID, &mtype, &mov.Qty, &mov.Reason, &mov.At); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		mov.Type = domain.MovementType(mtype)
		out = append(out, mov)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) InsertOrder(ctx context.Context, o domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, number, at, total) VALUES (?, ?, ?, ?)`,
		o.ID, o.Number, o.At, o.Total,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i, it := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, line_no, product_id, sku, name, qty, price, subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i+1, it.ProductID, it.SKU, it.Name, it.Qty, it.Price, it.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := m.db.QueryRowContext(ctx, `SELECT id, number, at, total FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &o.Number, &o.At, &o.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := m.orderItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	return &o, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, r port.TimeRange) ([]domain.Order, error) {
	q := `SELECT id, number, at, total FROM orders`
	conds, args := rangeConds(r, "at")
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY at DESC"

	rows, err := m.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	out := []domain.Order{}
	ids := []string{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.At, &o.Total); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := m.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (m *MySQLAdapter) orderItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	params := make([]string, len(orderIDs))
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		params[i] = "?"
		args[i] = id
	}
	rows, err := m.db.QueryContext(ctx, `
		SELECT order_id, product_id, sku, name, qty, price, subtotal
		FROM order_items WHERE order_id IN (`+strings.Join(params, ",")+`)
		ORDER BY order_id, line_no`, args...)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var it domain.OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.SKU, &it.Name, &it.Qty, &it.Price, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		byOrder[orderID] = append(byOrder[orderID], it)
	}
	return byOrder, rows.Err()
}

func rangeConds(r port.TimeRange, col string) ([]string, []any) {
	var conds []string
	var args []any
	if r.From != nil {
		conds = append(conds, col+" >= ?")
		args = append(args, *r.From)
	}
	if r.To != nil {
		conds = append(conds, col+" <= ?")
		args = append(args, *r.To)
	}
	return conds, args
}
