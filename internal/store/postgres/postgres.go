package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/xid"
)

const qtyEpsilon = 1e-9

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- products ---

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, category, unit, price_cents, cost_cents, stock, min_stock_threshold, allow_decimal
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.PriceCents, &p.CostCents, &p.Stock, &p.MinStockThreshold, &p.AllowDecimal); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sku, name, category, unit, price_cents, cost_cents, stock, min_stock_threshold, allow_decimal
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.PriceCents, &p.CostCents, &p.Stock, &p.MinStockThreshold, &p.AllowDecimal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, fmt.Errorf("%w: sku, name and a positive price are required", store.ErrValidation)
	}
	if product.CostCents < 0 || product.Stock < 0 {
		return nil, fmt.Errorf("%w: cost and stock must not be negative", store.ErrValidation)
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	product.Stock = domain.RoundQty(product.Stock)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, category, unit, price_cents, cost_cents, stock, min_stock_threshold, allow_decimal, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
	`, product.ID, product.SKU, product.Name, product.Category, product.Unit, product.PriceCents, product.CostCents, product.Stock, product.MinStockThreshold, product.AllowDecimal)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku already exists", store.ErrValidation)
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) SetStock(ctx context.Context, productID string, stock float64) (*domain.Product, error) {
	if stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", store.ErrValidation)
	}

	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, sku, name, category, unit, price_cents, cost_cents, stock, min_stock_threshold, allow_decimal
	`, productID, domain.RoundQty(stock)).Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.PriceCents, &p.CostCents, &p.Stock, &p.MinStockThreshold, &p.AllowDecimal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) AdjustStock(ctx context.Context, deltas map[string]float64) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// AdjustStock adds deltas; the shared helper deducts, so flip the signs.
	deduct := make(map[string]float64, len(deltas))
	for id, delta := range deltas {
		deduct[id] = -delta
	}
	if err := applyStockDeltas(ctx, tx, deduct); err != nil {
		return err
	}
	return tx.Commit()
}

// applyStockDeltas deducts each delta from stock (negative restores). Every
// row is validated under lock before any update so a failing product leaves
// the whole batch unapplied.
func applyStockDeltas(ctx context.Context, tx *sql.Tx, deltas map[string]float64) error {
	ids := make([]string, 0, len(deltas))
	for id, delta := range deltas {
		if delta == 0 {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, stock
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return err
	}
	type productState struct {
		name  string
		stock float64
	}
	state := make(map[string]productState, len(ids))
	for rows.Next() {
		var id string
		var ps productState
		if err := rows.Scan(&id, &ps.name, &ps.stock); err != nil {
			_ = rows.Close()
			return err
		}
		state[id] = ps
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, id := range ids {
		ps, ok := state[id]
		if !ok {
			return fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		if ps.stock-deltas[id] < -qtyEpsilon {
			return fmt.Errorf("%w: %s has %v in stock, need %v", store.ErrInsufficientStock, ps.name, ps.stock, deltas[id])
		}
	}
	for _, id := range ids {
		next := domain.RoundQty(state[id].stock - deltas[id])
		if next < 0 {
			next = 0
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = $2, updated_at = now()
			WHERE id = $1
		`, id, next); err != nil {
			return err
		}
	}
	return nil
}

// --- customers ---

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, type, store_credit_cents, total_spent_cents, visit_count, last_visit, created_at
		FROM customers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, type, store_credit_cents, total_spent_cents, visit_count, last_visit, created_at
		FROM customers
		WHERE id = $1
	`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, fmt.Errorf("%w: customer name is required", store.ErrValidation)
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.Type == "" {
		customer.Type = domain.CustomerMember
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, type, store_credit_cents, total_spent_cents, visit_count, last_visit, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, customer.ID, customer.Name, customer.Phone, customer.Type, customer.StoreCreditCents, customer.TotalSpentCents, customer.VisitCount, nullTime(customer.LastVisit), customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: customer already exists", store.ErrValidation)
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

// --- sales ---

func (s *Store) CommitSale(ctx context.Context, commit store.SaleCommit) (*domain.Sale, error) {
	sale := commit.Sale
	if len(sale.Items) == 0 {
		return nil, fmt.Errorf("%w: sale has no items", store.ErrValidation)
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := applyStockDeltas(ctx, tx, commit.StockDeltas); err != nil {
		return nil, err
	}

	if commit.RegisterCustomer {
		customer := commit.Customer
		if customer.CreatedAt.IsZero() {
			customer.CreatedAt = sale.CreatedAt
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO customers (id, name, phone, type, store_credit_cents, total_spent_cents, visit_count, last_visit, created_at)
			VALUES ($1,$2,$3,$4,0,0,0,NULL,$5)
		`, customer.ID, customer.Name, customer.Phone, customer.Type, customer.CreatedAt); err != nil {
			return nil, err
		}
	}

	if sale.CustomerID != "" {
		var customerType string
		err := tx.QueryRowContext(ctx, `
			SELECT type FROM customers WHERE id = $1 FOR UPDATE
		`, sale.CustomerID).Scan(&customerType)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: customer %s", store.ErrNotFound, sale.CustomerID)
			}
			return nil, err
		}
		if sale.PaymentMethod == domain.PayStoreCredit {
			if customerType != domain.CustomerMember {
				return nil, fmt.Errorf("%w: store credit requires a member customer", store.ErrValidation)
			}
			if err := appendCreditTx(ctx, tx, domain.CreditAdjustment{
				ID:            xid.New("crd"),
				CustomerID:    sale.CustomerID,
				Type:          domain.CreditDeduct,
				AmountCents:   sale.TotalCents,
				Reason:        "sale " + sale.ID,
				PaymentMethod: domain.PayStoreCredit,
				ActorUsername: sale.CashierUsername,
				CreatedAt:     sale.CreatedAt,
			}); err != nil {
				return nil, err
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE customers
			SET total_spent_cents = total_spent_cents + $2, visit_count = visit_count + 1, last_visit = $3
			WHERE id = $1
		`, sale.CustomerID, sale.TotalCents, sale.CreatedAt); err != nil {
			return nil, err
		}
	} else if sale.PaymentMethod == domain.PayStoreCredit {
		return nil, fmt.Errorf("%w: store credit requires a member customer", store.ErrValidation)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, created_at, subtotal_cents, tax_name, tax_rate_percent, tax_inclusive, tax_cents,
			credit_term_name, markup_rate_percent, markup_cents, due_date, total_cents, profit_cents,
			payment_method, cash_tendered_cents, change_cents,
			customer_id, customer_name, customer_type, cashier_username
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`, sale.ID, sale.CreatedAt, sale.SubtotalCents, sale.TaxName, sale.TaxRatePercent, sale.TaxInclusive, sale.TaxCents,
		nullIfEmpty(sale.CreditTermName), sale.MarkupRatePercent, sale.MarkupCents, nullTime(sale.DueDate), sale.TotalCents, sale.ProfitCents,
		sale.PaymentMethod, sale.CashTenderedCents, sale.ChangeCents,
		nullIfEmpty(sale.CustomerID), sale.CustomerName, sale.CustomerType, sale.CashierUsername)
	if err != nil {
		return nil, err
	}

	for _, item := range sale.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, sku, name, unit, qty, price_cents, cost_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, sale.ID, item.ProductID, item.SKU, item.Name, item.Unit, item.Qty, item.PriceCents, item.CostCents); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, subtotal_cents, tax_name, tax_rate_percent, tax_inclusive, tax_cents,
			COALESCE(credit_term_name,''), markup_rate_percent, markup_cents, due_date, total_cents, profit_cents,
			payment_method, cash_tendered_cents, change_cents,
			COALESCE(customer_id,''), customer_name, customer_type, cashier_username
		FROM sales
		WHERE id = $1
	`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, id)
		}
		return nil, err
	}

	items, err := s.saleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, subtotal_cents, tax_name, tax_rate_percent, tax_inclusive, tax_cents,
			COALESCE(credit_term_name,''), markup_rate_percent, markup_cents, due_date, total_cents, profit_cents,
			payment_method, cash_tendered_cents, change_cents,
			COALESCE(customer_id,''), customer_name, customer_type, cashier_username
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		items, err := s.saleItems(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

func (s *Store) saleItems(ctx context.Context, saleID string) ([]domain.SaleLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, sku, name, unit, qty, price_cents, cost_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleLine, 0, 8)
	for rows.Next() {
		var item domain.SaleLine
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Name, &item.Unit, &item.Qty, &item.PriceCents, &item.CostCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// --- returns ---

func (s *Store) CommitReturn(ctx context.Context, commit store.ReturnCommit) (*domain.ReturnTransaction, error) {
	ret := commit.Return
	if ret.SaleID == "" || len(ret.Items) == 0 {
		return nil, fmt.Errorf("%w: sale id and return items are required", store.ErrValidation)
	}
	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var saleCustomerID sql.NullString
	var saleTotal int64
	err = tx.QueryRowContext(ctx, `
		SELECT customer_id, total_cents
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, ret.SaleID).Scan(&saleCustomerID, &saleTotal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, ret.SaleID)
		}
		return nil, err
	}

	soldQty := make(map[string]float64)
	itemRows, err := tx.QueryContext(ctx, `
		SELECT product_id, qty FROM sale_items WHERE sale_id = $1
	`, ret.SaleID)
	if err != nil {
		return nil, err
	}
	for itemRows.Next() {
		var productID string
		var qty float64
		if err := itemRows.Scan(&productID, &qty); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		soldQty[productID] += qty
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	returnedQty := make(map[string]float64)
	retRows, err := tx.QueryContext(ctx, `
		SELECT ri.product_id, COALESCE(SUM(ri.qty),0)
		FROM returns r
		JOIN return_items ri ON ri.return_id = r.id
		WHERE r.sale_id = $1
		GROUP BY ri.product_id
	`, ret.SaleID)
	if err != nil {
		return nil, err
	}
	for retRows.Next() {
		var productID string
		var qty float64
		if err := retRows.Scan(&productID, &qty); err != nil {
			_ = retRows.Close()
			return nil, err
		}
		returnedQty[productID] = qty
	}
	if err := retRows.Err(); err != nil {
		_ = retRows.Close()
		return nil, err
	}
	_ = retRows.Close()

	for _, line := range ret.Items {
		if line.Qty <= 0 {
			return nil, fmt.Errorf("%w: return quantity must be positive", store.ErrValidation)
		}
		if _, sold := soldQty[line.ProductID]; !sold {
			return nil, fmt.Errorf("%w: product %s is not part of sale %s", store.ErrValidation, line.ProductID, ret.SaleID)
		}
		if returnedQty[line.ProductID]+line.Qty > soldQty[line.ProductID]+qtyEpsilon {
			return nil, fmt.Errorf("%w: return exceeds sold quantity for %s", store.ErrConsistency, line.Name)
		}
	}

	if len(commit.RestockQty) > 0 {
		restore := make(map[string]float64, len(commit.RestockQty))
		for productID, qty := range commit.RestockQty {
			restore[productID] = -qty
		}
		if err := applyStockDeltas(ctx, tx, restore); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO returns (id, sale_id, created_at, total_refund_cents, refund_method, customer_id, cashier_username)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, ret.ID, ret.SaleID, ret.CreatedAt, ret.TotalRefundCents, ret.RefundMethod, nullIfEmpty(ret.CustomerID), ret.CashierUsername)
	if err != nil {
		return nil, err
	}
	for _, line := range ret.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO return_items (return_id, product_id, name, qty, refund_cents, reason, restocked)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, ret.ID, line.ProductID, line.Name, line.Qty, line.RefundCents, line.Reason, line.Restocked); err != nil {
			return nil, err
		}
	}

	if saleCustomerID.Valid && saleCustomerID.String != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE customers
			SET total_spent_cents = GREATEST(total_spent_cents - $2, 0)
			WHERE id = $1
		`, saleCustomerID.String, ret.TotalRefundCents); err != nil {
			return nil, err
		}
		if ret.RefundMethod == domain.PayStoreCredit {
			if err := appendCreditTx(ctx, tx, domain.CreditAdjustment{
				ID:            xid.New("crd"),
				CustomerID:    saleCustomerID.String,
				Type:          domain.CreditAdd,
				AmountCents:   ret.TotalRefundCents,
				Reason:        "return " + ret.ID,
				PaymentMethod: domain.PayStoreCredit,
				ActorUsername: ret.CashierUsername,
				CreatedAt:     ret.CreatedAt,
			}); err != nil {
				return nil, err
			}
		}
	} else if ret.RefundMethod == domain.PayStoreCredit {
		return nil, fmt.Errorf("%w: store-credit refund requires a member customer on the sale", store.ErrValidation)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (s *Store) ListReturnsBySale(ctx context.Context, saleID string) ([]domain.ReturnTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, created_at, total_refund_cents, refund_method, COALESCE(customer_id,''), cashier_username
		FROM returns
		WHERE sale_id = $1
		ORDER BY created_at ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	returns := make([]domain.ReturnTransaction, 0, 4)
	for rows.Next() {
		var ret domain.ReturnTransaction
		if err := rows.Scan(&ret.ID, &ret.SaleID, &ret.CreatedAt, &ret.TotalRefundCents, &ret.RefundMethod, &ret.CustomerID, &ret.CashierUsername); err != nil {
			return nil, err
		}
		ret.CreatedAt = ret.CreatedAt.UTC()
		returns = append(returns, ret)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range returns {
		lineRows, err := s.db.QueryContext(ctx, `
			SELECT product_id, name, qty, refund_cents, reason, restocked
			FROM return_items
			WHERE return_id = $1
			ORDER BY id ASC
		`, returns[i].ID)
		if err != nil {
			return nil, err
		}
		for lineRows.Next() {
			var line domain.ReturnLine
			if err := lineRows.Scan(&line.ProductID, &line.Name, &line.Qty, &line.RefundCents, &line.Reason, &line.Restocked); err != nil {
				_ = lineRows.Close()
				return nil, err
			}
			returns[i].Items = append(returns[i].Items, line)
		}
		if err := lineRows.Err(); err != nil {
			_ = lineRows.Close()
			return nil, err
		}
		_ = lineRows.Close()
	}
	return returns, nil
}

func (s *Store) ReturnedQtyBySale(ctx context.Context, saleID string) (map[string]float64, error) {
	result := make(map[string]float64)
	rows, err := s.db.QueryContext(ctx, `
		SELECT ri.product_id, COALESCE(SUM(ri.qty),0)
		FROM returns r
		JOIN return_items ri ON ri.return_id = r.id
		WHERE r.sale_id = $1
		GROUP BY ri.product_id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var productID string
		var qty float64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		result[productID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- holds ---

func (s *Store) CreateHold(ctx context.Context, hold domain.HoldTransaction) (*domain.HoldTransaction, error) {
	if len(hold.Lines) == 0 {
		return nil, fmt.Errorf("%w: hold has no lines", store.ErrValidation)
	}
	if hold.ID == "" {
		hold.ID = xid.New("hold")
	}
	if hold.CreatedAt.IsZero() {
		hold.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Units a resumed hold already reserved stay out of stock; only the
	// unreserved remainder leaves now.
	deltas := make(map[string]float64, len(hold.Lines))
	for _, line := range hold.Lines {
		if extra := line.Qty - line.ReservedQty; extra > qtyEpsilon {
			deltas[line.ProductID] += extra
		}
	}
	if err := applyStockDeltas(ctx, tx, deltas); err != nil {
		return nil, err
	}

	// The stored hold owns the full reservation regardless of how it was
	// split before.
	for i := range hold.Lines {
		hold.Lines[i].ReservedQty = hold.Lines[i].Qty
	}

	linesJSON, err := json.Marshal(hold.Lines)
	if err != nil {
		return nil, err
	}
	customerJSON, err := json.Marshal(hold.Customer)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO holds (id, terminal_id, lines, customer, note, cashier_username, duration_minutes, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, hold.ID, hold.TerminalID, linesJSON, customerJSON, hold.Note, hold.CashierUsername, hold.DurationMinutes, hold.CreatedAt, hold.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: hold already exists", store.ErrValidation)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := hold
	return &created, nil
}

func (s *Store) ListHolds(ctx context.Context) ([]domain.HoldTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, terminal_id, lines, customer, note, cashier_username, duration_minutes, created_at, expires_at
		FROM holds
		ORDER BY expires_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holds := make([]domain.HoldTransaction, 0, 16)
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holds, nil
}

func (s *Store) PopHold(ctx context.Context, holdID string) (*domain.HoldTransaction, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	hold, err := deleteHoldTx(ctx, tx, holdID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return hold, nil
}

func (s *Store) VoidHold(ctx context.Context, holdID string) (*domain.HoldTransaction, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	hold, err := deleteHoldTx(ctx, tx, holdID)
	if err != nil {
		return nil, err
	}

	restore := make(map[string]float64, len(hold.Lines))
	for _, line := range hold.Lines {
		restore[line.ProductID] -= line.Qty
	}
	if err := applyStockDeltas(ctx, tx, restore); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return hold, nil
}

func deleteHoldTx(ctx context.Context, tx *sql.Tx, holdID string) (*domain.HoldTransaction, error) {
	row := tx.QueryRowContext(ctx, `
		DELETE FROM holds
		WHERE id = $1
		RETURNING id, terminal_id, lines, customer, note, cashier_username, duration_minutes, created_at, expires_at
	`, holdID)
	hold, err := scanHold(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: hold %s", store.ErrNotFound, holdID)
		}
		return nil, err
	}
	return &hold, nil
}

// --- credit ledger ---

func (s *Store) AppendCreditAdjustment(ctx context.Context, adjustment domain.CreditAdjustment) (*domain.CreditAdjustment, error) {
	if adjustment.CustomerID == "" || adjustment.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: customer id and a positive amount are required", store.ErrValidation)
	}
	if adjustment.Type != domain.CreditAdd && adjustment.Type != domain.CreditDeduct {
		return nil, fmt.Errorf("%w: unknown adjustment type %q", store.ErrValidation, adjustment.Type)
	}
	if adjustment.ID == "" {
		adjustment.ID = xid.New("crd")
	}
	if adjustment.CreatedAt.IsZero() {
		adjustment.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := appendCreditTx(ctx, tx, adjustment); err != nil {
		return nil, err
	}

	var balance int64
	if err := tx.QueryRowContext(ctx, `
		SELECT store_credit_cents FROM customers WHERE id = $1
	`, adjustment.CustomerID).Scan(&balance); err != nil {
		return nil, err
	}
	adjustment.NewBalanceCents = balance

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &adjustment, nil
}

// appendCreditTx writes one ledger entry and moves the balance with it inside
// the caller's transaction. The balance may go negative (member debt).
func appendCreditTx(ctx context.Context, tx *sql.Tx, adjustment domain.CreditAdjustment) error {
	var customerType string
	var balance int64
	err := tx.QueryRowContext(ctx, `
		SELECT type, store_credit_cents
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`, adjustment.CustomerID).Scan(&customerType, &balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: customer %s", store.ErrNotFound, adjustment.CustomerID)
		}
		return err
	}
	if customerType != domain.CustomerMember {
		return fmt.Errorf("%w: store credit requires a member customer", store.ErrValidation)
	}

	if adjustment.Type == domain.CreditAdd {
		balance += adjustment.AmountCents
	} else {
		balance -= adjustment.AmountCents
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_adjustments (id, customer_id, type, amount_cents, new_balance_cents, reason, payment_method, actor_username, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, adjustment.ID, adjustment.CustomerID, adjustment.Type, adjustment.AmountCents, balance, adjustment.Reason, adjustment.PaymentMethod, adjustment.ActorUsername, adjustment.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE customers SET store_credit_cents = $2 WHERE id = $1
	`, adjustment.CustomerID, balance)
	return err
}

func (s *Store) ListCreditAdjustments(ctx context.Context, customerID string, limit int) ([]domain.CreditAdjustment, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, type, amount_cents, new_balance_cents, reason, payment_method, actor_username, created_at
		FROM credit_adjustments
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	adjustments := make([]domain.CreditAdjustment, 0, limit)
	for rows.Next() {
		var adj domain.CreditAdjustment
		if err := rows.Scan(&adj.ID, &adj.CustomerID, &adj.Type, &adj.AmountCents, &adj.NewBalanceCents, &adj.Reason, &adj.PaymentMethod, &adj.ActorUsername, &adj.CreatedAt); err != nil {
			return nil, err
		}
		adj.CreatedAt = adj.CreatedAt.UTC()
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return adjustments, nil
}

// --- reports & audit ---

func (s *Store) GetDailySummary(ctx context.Context, from time.Time, to time.Time) (domain.DailySummary, error) {
	summary := domain.DailySummary{
		Date:      from.Format("2006-01-02"),
		ByPayment: make([]domain.PaymentBreakdown, 0, 3),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*)::int,
			COALESCE(SUM(total_cents),0)::bigint,
			COALESCE(SUM(tax_cents),0)::bigint,
			COALESCE(SUM(markup_cents),0)::bigint,
			COALESCE(SUM(profit_cents),0)::bigint
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&summary.Transactions, &summary.GrossCents, &summary.TaxCents, &summary.MarkupCents, &summary.ProfitCents)
	if err != nil {
		return summary, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::int, COALESCE(SUM(total_refund_cents),0)::bigint
		FROM returns
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&summary.ReturnCount, &summary.RefundCents)
	if err != nil {
		return summary, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents),0)::bigint
		FROM credit_adjustments
		WHERE type = $1 AND created_at >= $2 AND created_at < $3
	`, domain.CreditAdd, from, to).Scan(&summary.CreditIssuedCents)
	if err != nil {
		return summary, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*)::int, COALESCE(SUM(total_cents),0)::bigint
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.PaymentBreakdown
		if err := rows.Scan(&row.PaymentMethod, &row.Transactions, &row.AmountCents); err != nil {
			return summary, err
		}
		summary.ByPayment = append(summary.ByPayment, row)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.Actor, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("%w: username and password are required", store.ErrValidation)
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already exists", store.ErrValidation)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: username and password are required", store.ErrValidation)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %s", store.ErrNotFound, username)
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	var lastVisit sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Type, &c.StoreCreditCents, &c.TotalSpentCents, &c.VisitCount, &lastVisit, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	if lastVisit.Valid {
		at := lastVisit.Time.UTC()
		c.LastVisit = &at
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	var dueDate sql.NullTime
	err := row.Scan(
		&sale.ID,
		&sale.CreatedAt,
		&sale.SubtotalCents,
		&sale.TaxName,
		&sale.TaxRatePercent,
		&sale.TaxInclusive,
		&sale.TaxCents,
		&sale.CreditTermName,
		&sale.MarkupRatePercent,
		&sale.MarkupCents,
		&dueDate,
		&sale.TotalCents,
		&sale.ProfitCents,
		&sale.PaymentMethod,
		&sale.CashTenderedCents,
		&sale.ChangeCents,
		&sale.CustomerID,
		&sale.CustomerName,
		&sale.CustomerType,
		&sale.CashierUsername,
	)
	if err != nil {
		return sale, err
	}
	if dueDate.Valid {
		at := dueDate.Time.UTC()
		sale.DueDate = &at
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	return sale, nil
}

func scanHold(row rowScanner) (domain.HoldTransaction, error) {
	var hold domain.HoldTransaction
	var linesJSON []byte
	var customerJSON []byte
	err := row.Scan(&hold.ID, &hold.TerminalID, &linesJSON, &customerJSON, &hold.Note, &hold.CashierUsername, &hold.DurationMinutes, &hold.CreatedAt, &hold.ExpiresAt)
	if err != nil {
		return hold, err
	}
	if err := json.Unmarshal(linesJSON, &hold.Lines); err != nil {
		return hold, err
	}
	if err := json.Unmarshal(customerJSON, &hold.Customer); err != nil {
		return hold, err
	}
	hold.CreatedAt = hold.CreatedAt.UTC()
	hold.ExpiresAt = hold.ExpiresAt.UTC()
	return hold, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
