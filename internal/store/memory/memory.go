package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/xid"
)

// qtyEpsilon absorbs float drift in decimal quantities; anything inside it is
// treated as equal.
const qtyEpsilon = 1e-9

type Store struct {
	mu            sync.RWMutex
	products      map[string]domain.Product
	skuIndex      map[string]string
	customers     map[string]domain.Customer
	salesByID     map[string]domain.Sale
	returnsBySale map[string][]domain.ReturnTransaction
	holdsByID     map[string]domain.HoldTransaction
	creditLog     map[string][]domain.CreditAdjustment
	auditLogs     []domain.AuditLog
	usersByName   map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:      make(map[string]domain.Product),
		skuIndex:      make(map[string]string),
		customers:     make(map[string]domain.Customer),
		salesByID:     make(map[string]domain.Sale),
		returnsBySale: make(map[string][]domain.ReturnTransaction),
		holdsByID:     make(map[string]domain.HoldTransaction),
		creditLog:     make(map[string][]domain.CreditAdjustment),
		auditLogs:     make([]domain.AuditLog, 0, 128),
		usersByName:   make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; unset
// variables fall back to dev defaults with a warning. The memory store is
// never used in production (DATABASE_URL selects PostgreSQL).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	s.usersByName = seedUsers()

	products := []domain.Product{
		{ID: "prod-noodles", SKU: "SKU-NOODLES-01", Name: "Instant Noodles", Category: "grocery", Unit: "pcs", PriceCents: 350, CostCents: 240, Stock: 120},
		{ID: "prod-eggs", SKU: "SKU-EGGS-01", Name: "Eggs Tray of 10", Category: "grocery", Unit: "tray", PriceCents: 2650, CostCents: 2300, Stock: 40},
		{ID: "prod-milk", SKU: "SKU-MILK-01", Name: "UHT Milk 1L", Category: "dairy", Unit: "pcs", PriceCents: 1890, CostCents: 1360, Stock: 60},
		{ID: "prod-bread", SKU: "SKU-BREAD-01", Name: "White Bread Loaf", Category: "bakery", Unit: "pcs", PriceCents: 1780, CostCents: 1250, Stock: 25},
		{ID: "prod-coffee", SKU: "SKU-COFFEE-01", Name: "Coffee Sachet", Category: "beverage", Unit: "pcs", PriceCents: 260, CostCents: 170, Stock: 300},
		{ID: "prod-water", SKU: "SKU-WATER-01", Name: "Mineral Water 600ml", Category: "beverage", Unit: "pcs", PriceCents: 390, CostCents: 320, Stock: 200},
		{ID: "prod-soap", SKU: "SKU-SOAP-01", Name: "Bath Soap", Category: "household", Unit: "pcs", PriceCents: 740, CostCents: 500, Stock: 80},
		{ID: "prod-rice", SKU: "SKU-RICE-01", Name: "Rice", Category: "grocery", Unit: "kg", PriceCents: 1400, CostCents: 1230, Stock: 250, AllowDecimal: true},
		{ID: "prod-sugar", SKU: "SKU-SUGAR-01", Name: "Sugar", Category: "grocery", Unit: "kg", PriceCents: 1740, CostCents: 1530, Stock: 90.5, AllowDecimal: true},
	}
	for _, p := range products {
		s.products[p.ID] = p
		s.skuIndex[p.SKU] = p.ID
	}

	now := time.Now().UTC()
	customers := []domain.Customer{
		{ID: "cust-ani", Name: "Ani Wijaya", Phone: "0812-1111-2222", Type: domain.CustomerMember, StoreCreditCents: 2000, CreatedAt: now},
		{ID: "cust-budi", Name: "Budi Santoso", Phone: "0813-3333-4444", Type: domain.CustomerMember, CreatedAt: now},
	}
	for _, c := range customers {
		s.customers[c.ID] = c
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SKU == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, fmt.Errorf("%w: sku, name and a positive price are required", store.ErrValidation)
	}
	if product.CostCents < 0 || product.Stock < 0 {
		return nil, fmt.Errorf("%w: cost and stock must not be negative", store.ErrValidation)
	}
	if _, exists := s.skuIndex[product.SKU]; exists {
		return nil, fmt.Errorf("%w: sku already exists", store.ErrValidation)
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	product.Stock = domain.RoundQty(product.Stock)
	s.products[product.ID] = product
	s.skuIndex[product.SKU] = product.ID
	created := product
	return &created, nil
}

func (s *Store) SetStock(_ context.Context, productID string, stock float64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", store.ErrValidation)
	}
	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Stock = domain.RoundQty(stock)
	s.products[productID] = product
	updated := product
	return &updated, nil
}

func (s *Store) AdjustStock(_ context.Context, deltas map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustStockLocked(deltas)
}

// adjustStockLocked adds each delta to product stock, all or nothing. Callers
// hold the write lock.
func (s *Store) adjustStockLocked(deltas map[string]float64) error {
	for id, delta := range deltas {
		product, exists := s.products[id]
		if !exists {
			return fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		if product.Stock+delta < -qtyEpsilon {
			return fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
	}
	for id, delta := range deltas {
		product := s.products[id]
		product.Stock = domain.RoundQty(product.Stock + delta)
		if product.Stock < 0 {
			product.Stock = 0
		}
		s.products[id] = product
	}
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, cloneCustomer(c))
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := cloneCustomer(customer)
	return &copyCustomer, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(customer.Name) == "" {
		return nil, fmt.Errorf("%w: customer name is required", store.ErrValidation)
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if _, exists := s.customers[customer.ID]; exists {
		return nil, fmt.Errorf("%w: customer already exists", store.ErrValidation)
	}
	if customer.Type == "" {
		customer.Type = domain.CustomerMember
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	created := cloneCustomer(customer)
	return &created, nil
}

// CommitSale applies a checkout in one atomic step: stock deltas, customer
// registration and aggregates, the store-credit debit, and the sale record.
// All validation happens before the first mutation.
func (s *Store) CommitSale(_ context.Context, commit store.SaleCommit) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale := commit.Sale
	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, fmt.Errorf("%w: sale id and items are required", store.ErrValidation)
	}
	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, fmt.Errorf("%w: sale %s already committed", store.ErrConsistency, sale.ID)
	}
	for id, delta := range commit.StockDeltas {
		product, exists := s.products[id]
		if !exists {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		if delta > qtyEpsilon && product.Stock+qtyEpsilon < delta {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
	}

	customer := commit.Customer
	_, persisted := s.customers[customer.ID]
	if sale.PaymentMethod == domain.PayStoreCredit {
		if !persisted && !commit.RegisterCustomer {
			return nil, fmt.Errorf("%w: store credit requires a persisted customer", store.ErrConsistency)
		}
		if customer.Type != domain.CustomerMember {
			return nil, fmt.Errorf("%w: store credit requires a member customer", store.ErrConsistency)
		}
	}

	for id, delta := range commit.StockDeltas {
		product := s.products[id]
		product.Stock = domain.RoundQty(product.Stock - delta)
		if product.Stock < 0 {
			product.Stock = 0
		}
		s.products[id] = product
	}

	if commit.RegisterCustomer && !persisted {
		if customer.CreatedAt.IsZero() {
			customer.CreatedAt = sale.CreatedAt
		}
		s.customers[customer.ID] = customer
		persisted = true
	}
	if persisted {
		stored := s.customers[customer.ID]
		stored.VisitCount++
		stored.TotalSpentCents += sale.TotalCents
		visit := sale.CreatedAt
		stored.LastVisit = &visit
		s.customers[customer.ID] = stored

		if sale.PaymentMethod == domain.PayStoreCredit {
			s.appendCreditLocked(domain.CreditAdjustment{
				CustomerID:    customer.ID,
				Type:          domain.CreditDeduct,
				AmountCents:   sale.TotalCents,
				Reason:        "sale " + sale.ID,
				PaymentMethod: domain.PayStoreCredit,
				ActorUsername: sale.CashierUsername,
				CreatedAt:     sale.CreatedAt,
			})
		}
	}

	s.salesByID[sale.ID] = cloneSale(sale)
	committed := cloneSale(sale)
	return &committed, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := cloneSale(sale)
	return &copySale, nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if !from.IsZero() && sale.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.CreatedAt.Before(to) {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

// CommitReturn applies a processed return in one atomic step: the cumulative
// over-return guard, restocking, the customer aggregate rollback, the
// store-credit refund, and the return record itself.
func (s *Store) CommitReturn(_ context.Context, commit store.ReturnCommit) (*domain.ReturnTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := commit.Return
	sale, exists := s.salesByID[ret.SaleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if len(ret.Items) == 0 {
		return nil, fmt.Errorf("%w: return items are required", store.ErrValidation)
	}

	soldQty := make(map[string]float64, len(sale.Items))
	for _, item := range sale.Items {
		soldQty[item.ProductID] += item.Qty
	}
	returnedQty := s.returnedQtyLocked(ret.SaleID)
	for _, item := range ret.Items {
		sold, onSale := soldQty[item.ProductID]
		if !onSale {
			return nil, fmt.Errorf("%w: product %s was not on sale %s", store.ErrConsistency, item.ProductID, ret.SaleID)
		}
		if returnedQty[item.ProductID]+item.Qty > sold+qtyEpsilon {
			return nil, fmt.Errorf("%w: return exceeds sold quantity for %s", store.ErrConsistency, item.Name)
		}
	}

	var refundCustomer *domain.Customer
	if ret.CustomerID != "" {
		if stored, ok := s.customers[ret.CustomerID]; ok {
			refundCustomer = &stored
		}
	}
	if ret.RefundMethod == domain.PayStoreCredit {
		if refundCustomer == nil || refundCustomer.Type != domain.CustomerMember {
			return nil, fmt.Errorf("%w: store-credit refund requires a member customer", store.ErrConsistency)
		}
	}

	for id, qty := range commit.RestockQty {
		product, ok := s.products[id]
		if !ok {
			continue
		}
		product.Stock = domain.RoundQty(product.Stock + qty)
		s.products[id] = product
	}

	if refundCustomer != nil {
		stored := *refundCustomer
		stored.TotalSpentCents -= ret.TotalRefundCents
		if stored.TotalSpentCents < 0 {
			stored.TotalSpentCents = 0
		}
		s.customers[stored.ID] = stored

		if ret.RefundMethod == domain.PayStoreCredit {
			s.appendCreditLocked(domain.CreditAdjustment{
				CustomerID:    stored.ID,
				Type:          domain.CreditAdd,
				AmountCents:   ret.TotalRefundCents,
				Reason:        "return " + ret.ID + " for sale " + ret.SaleID,
				PaymentMethod: domain.PayStoreCredit,
				ActorUsername: ret.CashierUsername,
				CreatedAt:     ret.CreatedAt,
			})
		}
	}

	s.returnsBySale[ret.SaleID] = append(s.returnsBySale[ret.SaleID], cloneReturn(ret))
	committed := cloneReturn(ret)
	return &committed, nil
}

func (s *Store) ListReturnsBySale(_ context.Context, saleID string) ([]domain.ReturnTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	returns := make([]domain.ReturnTransaction, 0, len(s.returnsBySale[saleID]))
	for _, ret := range s.returnsBySale[saleID] {
		returns = append(returns, cloneReturn(ret))
	}
	return returns, nil
}

func (s *Store) ReturnedQtyBySale(_ context.Context, saleID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.returnedQtyLocked(saleID), nil
}

func (s *Store) returnedQtyLocked(saleID string) map[string]float64 {
	totals := make(map[string]float64)
	for _, ret := range s.returnsBySale[saleID] {
		for _, item := range ret.Items {
			totals[item.ProductID] = domain.RoundQty(totals[item.ProductID] + item.Qty)
		}
	}
	return totals
}

// CreateHold reserves the held quantities by removing them from stock in the
// same step that records the hold. Lines already reserved by the cart (a
// re-held resumed cart) are not deducted twice; the stored hold always owns
// the full reservation.
func (s *Store) CreateHold(_ context.Context, hold domain.HoldTransaction) (*domain.HoldTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hold.ID == "" || len(hold.Lines) == 0 {
		return nil, fmt.Errorf("%w: hold id and lines are required", store.ErrValidation)
	}
	deltas := make(map[string]float64, len(hold.Lines))
	for _, line := range hold.Lines {
		deltas[line.ProductID] += line.Qty - line.ReservedQty
	}
	for id, delta := range deltas {
		product, exists := s.products[id]
		if !exists {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		if delta > qtyEpsilon && product.Stock+qtyEpsilon < delta {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
	}
	for id, delta := range deltas {
		product := s.products[id]
		product.Stock = domain.RoundQty(product.Stock - delta)
		if product.Stock < 0 {
			product.Stock = 0
		}
		s.products[id] = product
	}

	stored := cloneHold(hold)
	for i := range stored.Lines {
		stored.Lines[i].ReservedQty = stored.Lines[i].Qty
	}
	s.holdsByID[hold.ID] = stored
	created := cloneHold(stored)
	return &created, nil
}

func (s *Store) ListHolds(_ context.Context) ([]domain.HoldTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holds := make([]domain.HoldTransaction, 0, len(s.holdsByID))
	for _, hold := range s.holdsByID {
		holds = append(holds, cloneHold(hold))
	}
	slices.SortFunc(holds, func(a, b domain.HoldTransaction) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})
	return holds, nil
}

func (s *Store) PopHold(_ context.Context, holdID string) (*domain.HoldTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, exists := s.holdsByID[holdID]
	if !exists {
		return nil, store.ErrNotFound
	}
	delete(s.holdsByID, holdID)
	popped := cloneHold(hold)
	return &popped, nil
}

func (s *Store) VoidHold(_ context.Context, holdID string) (*domain.HoldTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, exists := s.holdsByID[holdID]
	if !exists {
		return nil, store.ErrNotFound
	}
	for _, line := range hold.Lines {
		product, ok := s.products[line.ProductID]
		if !ok {
			continue
		}
		product.Stock = domain.RoundQty(product.Stock + line.Qty)
		s.products[line.ProductID] = product
	}
	delete(s.holdsByID, holdID)
	voided := cloneHold(hold)
	return &voided, nil
}

// AppendCreditAdjustment records a manual ledger entry and moves the balance
// in the same step. Sale debits and return refunds go through the same
// internal append inside their own commits.
func (s *Store) AppendCreditAdjustment(_ context.Context, adjustment domain.CreditAdjustment) (*domain.CreditAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if adjustment.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if adjustment.Type != domain.CreditAdd && adjustment.Type != domain.CreditDeduct {
		return nil, fmt.Errorf("%w: unknown adjustment type %q", store.ErrValidation, adjustment.Type)
	}
	customer, exists := s.customers[adjustment.CustomerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if customer.Type != domain.CustomerMember {
		return nil, fmt.Errorf("%w: store credit is for member customers", store.ErrValidation)
	}

	appended := s.appendCreditLocked(adjustment)
	return &appended, nil
}

func (s *Store) appendCreditLocked(adjustment domain.CreditAdjustment) domain.CreditAdjustment {
	customer := s.customers[adjustment.CustomerID]
	if adjustment.Type == domain.CreditAdd {
		customer.StoreCreditCents += adjustment.AmountCents
	} else {
		customer.StoreCreditCents -= adjustment.AmountCents
	}
	adjustment.NewBalanceCents = customer.StoreCreditCents
	if adjustment.ID == "" {
		adjustment.ID = xid.New("crd")
	}
	if adjustment.CreatedAt.IsZero() {
		adjustment.CreatedAt = time.Now().UTC()
	}
	s.customers[adjustment.CustomerID] = customer
	s.creditLog[adjustment.CustomerID] = append(s.creditLog[adjustment.CustomerID], adjustment)
	return adjustment
}

func (s *Store) ListCreditAdjustments(_ context.Context, customerID string, limit int) ([]domain.CreditAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.creditLog[customerID]
	adjustments := make([]domain.CreditAdjustment, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		adjustments = append(adjustments, entries[i])
		if limit > 0 && len(adjustments) >= limit {
			break
		}
	}
	return adjustments, nil
}

func (s *Store) GetDailySummary(_ context.Context, from time.Time, to time.Time) (domain.DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.DailySummary{Date: from.Format("2006-01-02")}
	byPayment := make(map[string]*domain.PaymentBreakdown)
	inWindow := func(at time.Time) bool {
		return !at.Before(from) && at.Before(to)
	}

	for _, sale := range s.salesByID {
		if !inWindow(sale.CreatedAt) {
			continue
		}
		summary.Transactions++
		summary.GrossCents += sale.TotalCents
		summary.TaxCents += sale.TaxCents
		summary.MarkupCents += sale.MarkupCents
		summary.ProfitCents += sale.ProfitCents

		entry, ok := byPayment[sale.PaymentMethod]
		if !ok {
			entry = &domain.PaymentBreakdown{PaymentMethod: sale.PaymentMethod}
			byPayment[sale.PaymentMethod] = entry
		}
		entry.Transactions++
		entry.AmountCents += sale.TotalCents
	}
	for _, returns := range s.returnsBySale {
		for _, ret := range returns {
			if !inWindow(ret.CreatedAt) {
				continue
			}
			summary.ReturnCount++
			summary.RefundCents += ret.TotalRefundCents
		}
	}
	for _, entries := range s.creditLog {
		for _, adj := range entries {
			if adj.Type == domain.CreditAdd && inWindow(adj.CreatedAt) {
				summary.CreditIssuedCents += adj.AmountCents
			}
		}
	}

	summary.ByPayment = make([]domain.PaymentBreakdown, 0, len(byPayment))
	for _, entry := range byPayment {
		summary.ByPayment = append(summary.ByPayment, *entry)
	}
	slices.SortFunc(summary.ByPayment, func(a, b domain.PaymentBreakdown) int {
		return strings.Compare(a.PaymentMethod, b.PaymentMethod)
	})
	return summary, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, len(s.auditLogs))
	for _, entry := range s.auditLogs {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, entry)
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" {
		return fmt.Errorf("%w: username is required", store.ErrValidation)
	}
	if _, exists := s.usersByName[user.Username]; exists {
		return fmt.Errorf("%w: username already exists", store.ErrValidation)
	}
	s.usersByName[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByName))
	for _, user := range s.usersByName {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByName[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByName[username] = user
	return nil
}

func cloneCustomer(c domain.Customer) domain.Customer {
	if c.LastVisit != nil {
		visit := *c.LastVisit
		c.LastVisit = &visit
	}
	return c
}

func cloneSale(sale domain.Sale) domain.Sale {
	sale.Items = slices.Clone(sale.Items)
	if sale.DueDate != nil {
		due := *sale.DueDate
		sale.DueDate = &due
	}
	return sale
}

func cloneReturn(ret domain.ReturnTransaction) domain.ReturnTransaction {
	ret.Items = slices.Clone(ret.Items)
	return ret
}

func cloneHold(hold domain.HoldTransaction) domain.HoldTransaction {
	hold.Lines = slices.Clone(hold.Lines)
	hold.Customer = cloneCustomer(hold.Customer)
	return hold
}
