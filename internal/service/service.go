package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/cache"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/cart"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/pricing"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Settings carries the store profile the engine prices against.
type Settings struct {
	Tax                pricing.TaxConfig
	CreditTerms        []domain.CreditTerm
	FallbackMarkupRate float64
	SummaryTTL         time.Duration
}

type Service struct {
	repo      store.Repository
	carts     *cart.Manager
	summaries cache.SummaryCache
	settings  Settings
	hooks     Hooks

	alertsMu sync.RWMutex
	alerts   domain.HoldAlerts
}

func New(repo store.Repository, carts *cart.Manager, summaries cache.SummaryCache, settings Settings, hooks Hooks) *Service {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if hooks == nil {
		hooks = LogHooks{}
	}
	if settings.SummaryTTL <= 0 {
		settings.SummaryTTL = 60 * time.Second
	}

	return &Service{
		repo:      repo,
		carts:     carts,
		summaries: summaries,
		settings:  settings,
		hooks:     hooks,
	}
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PayCash, domain.PayCard, domain.PayStoreCredit:
		return true
	}
	return false
}

func (s *Service) termByID(id string) *domain.CreditTerm {
	for i := range s.settings.CreditTerms {
		if s.settings.CreditTerms[i].ID == id {
			term := s.settings.CreditTerms[i]
			return &term
		}
	}
	return nil
}

func (s *Service) CreditTerms() []domain.CreditTerm {
	return s.settings.CreditTerms
}

// --- products ---

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	if req.SKU == "" || req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: sku and name are required", store.ErrValidation)
	}
	if req.PriceCents < 1 || req.CostCents < 0 || req.InitialStock < 0 || req.MinStockThreshold < 0 {
		return domain.Product{}, fmt.Errorf("%w: price must be positive, cost, stock and threshold not negative", store.ErrValidation)
	}

	product := domain.Product{
		SKU:               req.SKU,
		Name:              req.Name,
		Category:          strings.TrimSpace(req.Category),
		Unit:              strings.TrimSpace(req.Unit),
		PriceCents:        req.PriceCents,
		CostCents:         req.CostCents,
		Stock:             domain.RoundQty(req.InitialStock),
		MinStockThreshold: domain.RoundQty(req.MinStockThreshold),
		AllowDecimal:      req.AllowDecimal,
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("sku=%s,price=%d,stock=%v", created.SKU, created.PriceCents, created.Stock))
	return *created, nil
}

func (s *Service) SetStock(ctx context.Context, productID string, req domain.StockSetRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", store.ErrValidation)
	}

	updated, err := s.repo.SetStock(ctx, productID, req.Stock)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "stock_set", "product", updated.ID, fmt.Sprintf("stock=%v", updated.Stock))
	return *updated, nil
}

// --- customers ---

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name is required", store.ErrValidation)
	}

	customer := domain.Customer{
		ID:        xid.New("cust"),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Type:      domain.CustomerMember,
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_create", "customer", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) GetCustomerDetail(ctx context.Context, customerID string) (domain.CustomerDetail, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.CustomerDetail{}, err
	}
	ledger, err := s.repo.ListCreditAdjustments(ctx, customerID, 100)
	if err != nil {
		return domain.CustomerDetail{}, err
	}
	return domain.CustomerDetail{Customer: *customer, Ledger: ledger}, nil
}

// --- cart ---

func (s *Service) cartView(terminalID string) domain.CartView {
	snap := s.carts.Snapshot(terminalID)
	quote := pricing.Quote(pricing.Subtotal(snap.Lines), s.settings.Tax, snap.PaymentMethod, nil, s.settings.FallbackMarkupRate)
	return domain.CartView{
		TerminalID:    snap.TerminalID,
		Lines:         snap.Lines,
		Customer:      snap.Customer,
		PaymentMethod: snap.PaymentMethod,
		Quote:         quote,
	}
}

func (s *Service) GetCart(ctx context.Context, terminalID string) (domain.CartView, error) {
	if terminalID == "" {
		return domain.CartView{}, fmt.Errorf("%w: terminal id is required", store.ErrValidation)
	}
	return s.cartView(terminalID), nil
}

func (s *Service) AddCartLine(ctx context.Context, req domain.CartLineRequest) (domain.CartView, error) {
	if req.TerminalID == "" || req.ProductID == "" {
		return domain.CartView{}, fmt.Errorf("%w: terminal id and product id are required", store.ErrValidation)
	}
	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.carts.AddLine(req.TerminalID, *product); err != nil {
		return domain.CartView{}, err
	}
	return s.cartView(req.TerminalID), nil
}

func (s *Service) SetCartQuantity(ctx context.Context, req domain.CartQuantityRequest) (domain.CartView, error) {
	if req.TerminalID == "" || req.ProductID == "" {
		return domain.CartView{}, fmt.Errorf("%w: terminal id and product id are required", store.ErrValidation)
	}
	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.CartView{}, err
	}
	if req.Delta != 0 {
		err = s.carts.AdjustQuantity(req.TerminalID, *product, req.Delta)
	} else {
		err = s.carts.SetQuantity(req.TerminalID, *product, req.Qty)
	}
	if err != nil {
		return domain.CartView{}, err
	}
	return s.cartView(req.TerminalID), nil
}

func (s *Service) RemoveCartLine(ctx context.Context, terminalID string, productID string) (domain.CartView, error) {
	if terminalID == "" || productID == "" {
		return domain.CartView{}, fmt.Errorf("%w: terminal id and product id are required", store.ErrValidation)
	}
	released, err := s.carts.RemoveLine(terminalID, productID)
	if err != nil {
		return domain.CartView{}, err
	}
	if released > 0 {
		if err := s.repo.AdjustStock(ctx, map[string]float64{productID: released}); err != nil {
			log.Printf("[service] WARN: failed to release reservation product=%s qty=%v: %v", productID, released, err)
		} else {
			s.logAudit(ctx, "reservation_release", "product", productID, fmt.Sprintf("qty=%v", released))
		}
	}
	return s.cartView(terminalID), nil
}

func (s *Service) SelectCartCustomer(ctx context.Context, req domain.CartCustomerRequest) (domain.CartView, error) {
	if req.TerminalID == "" {
		return domain.CartView{}, fmt.Errorf("%w: terminal id is required", store.ErrValidation)
	}
	switch {
	case req.CustomerID != "":
		customer, err := s.repo.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return domain.CartView{}, err
		}
		s.carts.SelectCustomer(req.TerminalID, *customer)
	case strings.TrimSpace(req.Name) != "":
		if err := s.carts.NameCustomer(req.TerminalID, strings.TrimSpace(req.Name)); err != nil {
			return domain.CartView{}, err
		}
	default:
		s.carts.ResetCustomer(req.TerminalID)
	}
	return s.cartView(req.TerminalID), nil
}

func (s *Service) SetCartPaymentMethod(ctx context.Context, req domain.CartPaymentRequest) (domain.CartView, error) {
	if req.TerminalID == "" {
		return domain.CartView{}, fmt.Errorf("%w: terminal id is required", store.ErrValidation)
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.CartView{}, fmt.Errorf("%w: unsupported payment method %q", store.ErrValidation, req.PaymentMethod)
	}
	s.carts.SetPaymentMethod(req.TerminalID, req.PaymentMethod)
	return s.cartView(req.TerminalID), nil
}

func (s *Service) ClearCart(ctx context.Context, terminalID string) (domain.CartView, error) {
	if terminalID == "" {
		return domain.CartView{}, fmt.Errorf("%w: terminal id is required", store.ErrValidation)
	}
	released := s.carts.Clear(terminalID)
	if len(released) > 0 {
		if err := s.repo.AdjustStock(ctx, released); err != nil {
			log.Printf("[service] WARN: failed to release reservations on clear terminal=%s: %v", terminalID, err)
		} else {
			s.logAudit(ctx, "reservation_release", "cart", terminalID, fmt.Sprintf("products=%d", len(released)))
		}
	}
	s.logAudit(ctx, "cart_clear", "cart", terminalID, "")
	return s.cartView(terminalID), nil
}

// --- checkout ---

// Checkout validates the cart fail-fast, prices it one final time, and hands
// the whole outcome to the repository as a single atomic commit. Reserved
// quantities from resumed holds already left stock at hold time, so the
// commit only carries the per-line difference.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.Sale, error) {
	if req.TerminalID == "" {
		return domain.Sale{}, fmt.Errorf("%w: terminal id is required", store.ErrValidation)
	}
	snap := s.carts.Snapshot(req.TerminalID)
	if len(snap.Lines) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}

	method := snap.PaymentMethod
	if req.PaymentMethod != "" {
		method = req.PaymentMethod
	}
	if !isSupportedPaymentMethod(method) {
		return domain.Sale{}, fmt.Errorf("%w: unsupported payment method %q", store.ErrValidation, method)
	}

	var term *domain.CreditTerm
	if method == domain.PayStoreCredit {
		if snap.Customer.Type != domain.CustomerMember {
			return domain.Sale{}, fmt.Errorf("%w: store credit requires a member customer", store.ErrValidation)
		}
		if req.CreditTermID != "" {
			if term = s.termByID(req.CreditTermID); term == nil {
				return domain.Sale{}, fmt.Errorf("%w: unknown credit term %q", store.ErrValidation, req.CreditTermID)
			}
		}
	}

	quote := pricing.Quote(pricing.Subtotal(snap.Lines), s.settings.Tax, method, term, s.settings.FallbackMarkupRate)
	if method == domain.PayCash && req.CashTenderedCents < quote.PayableCents {
		return domain.Sale{}, fmt.Errorf("%w: cash tendered %d is below payable %d", store.ErrValidation, req.CashTenderedCents, quote.PayableCents)
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	now := time.Now().UTC()

	items := make([]domain.SaleLine, 0, len(snap.Lines))
	deltas := make(map[string]float64, len(snap.Lines))
	for _, line := range snap.Lines {
		items = append(items, domain.SaleLine{
			ProductID:  line.ProductID,
			SKU:        line.SKU,
			Name:       line.Name,
			Unit:       line.Unit,
			Qty:        line.Qty,
			PriceCents: line.PriceCents,
			CostCents:  line.CostCents,
		})
		deltas[line.ProductID] += line.Qty - line.ReservedQty
	}

	// A named walk-in becomes a persisted customer at commit time; a customer
	// still carrying the placeholder name stays transient.
	register := snap.Customer.Type == domain.CustomerWalkIn && snap.Customer.Name != domain.WalkInName
	customerID := ""
	if register || snap.Customer.Type == domain.CustomerMember {
		customerID = snap.Customer.ID
	}

	sale := domain.Sale{
		ID:                xid.New("sale"),
		CreatedAt:         now,
		Items:             items,
		SubtotalCents:     quote.SubtotalCents,
		TaxName:           quote.TaxName,
		TaxRatePercent:    quote.TaxRatePercent,
		TaxInclusive:      quote.TaxInclusive,
		TaxCents:          quote.TaxCents,
		CreditTermName:    quote.CreditTermName,
		MarkupRatePercent: quote.MarkupRatePercent,
		MarkupCents:       quote.MarkupCents,
		TotalCents:        quote.PayableCents,
		ProfitCents:       quote.SubtotalCents - pricing.CostTotal(snap.Lines) + quote.MarkupCents,
		PaymentMethod:     method,
		CustomerID:        customerID,
		CustomerName:      snap.Customer.Name,
		CustomerType:      snap.Customer.Type,
		CashierUsername:   actor.Username,
	}
	if method == domain.PayCash {
		sale.CashTenderedCents = req.CashTenderedCents
		sale.ChangeCents = req.CashTenderedCents - quote.PayableCents
	}
	if term != nil && term.Days > 0 {
		due := now.AddDate(0, 0, term.Days)
		sale.DueDate = &due
	}

	committed, err := s.repo.CommitSale(ctx, store.SaleCommit{
		Sale:             sale,
		StockDeltas:      deltas,
		Customer:         snap.Customer,
		RegisterCustomer: register,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	// The commit consumed every reservation in the cart, so the released map
	// from Clear is intentionally dropped.
	_ = s.carts.Clear(req.TerminalID)

	s.logAudit(ctx, "checkout", "sale", committed.ID, fmt.Sprintf("payment=%s,total=%d", committed.PaymentMethod, committed.TotalCents))
	s.notify(func(h Hooks) { h.OnSaleCompleted(*committed) })
	return *committed, nil
}

// --- sales & returns ---

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.SaleView, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return domain.SaleView{}, err
	}
	returns, err := s.repo.ListReturnsBySale(ctx, saleID)
	if err != nil {
		return domain.SaleView{}, err
	}
	returned, err := s.repo.ReturnedQtyBySale(ctx, saleID)
	if err != nil {
		return domain.SaleView{}, err
	}
	return domain.SaleView{Sale: *sale, Status: deriveSaleStatus(*sale, returned), Returns: returns}, nil
}

func (s *Service) ListSales(ctx context.Context, date string, limit int) ([]domain.SaleView, error) {
	from, to, err := dayWindow(date)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	views := make([]domain.SaleView, 0, len(sales))
	for _, sale := range sales {
		returned, err := s.repo.ReturnedQtyBySale(ctx, sale.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, domain.SaleView{Sale: sale, Status: deriveSaleStatus(sale, returned)})
	}
	return views, nil
}

func deriveSaleStatus(sale domain.Sale, returnedQty map[string]float64) string {
	var sold, returned float64
	for _, item := range sale.Items {
		sold += item.Qty
	}
	for _, qty := range returnedQty {
		returned += qty
	}
	switch {
	case returned <= 1e-9:
		return domain.SaleCompleted
	case returned+1e-9 >= sold:
		return domain.SaleReturned
	default:
		return domain.SalePartial
	}
}

// ProcessReturn refunds sold items at their price-at-sale. Per line the
// cumulative returned quantity across every return for the sale may never
// exceed what was sold; the repository re-checks the same bound inside the
// commit so concurrent returns cannot slip past it.
func (s *Service) ProcessReturn(ctx context.Context, req domain.ReturnRequest) (domain.ReturnTransaction, error) {
	if req.SaleID == "" {
		return domain.ReturnTransaction{}, fmt.Errorf("%w: sale id is required", store.ErrValidation)
	}
	if len(req.Items) == 0 {
		return domain.ReturnTransaction{}, fmt.Errorf("%w: return items are required", store.ErrValidation)
	}
	if !isSupportedPaymentMethod(req.RefundMethod) {
		return domain.ReturnTransaction{}, fmt.Errorf("%w: unsupported refund method %q", store.ErrValidation, req.RefundMethod)
	}

	sale, err := s.repo.GetSale(ctx, req.SaleID)
	if err != nil {
		return domain.ReturnTransaction{}, err
	}
	soldByProduct := make(map[string]domain.SaleLine, len(sale.Items))
	soldQty := make(map[string]float64, len(sale.Items))
	for _, item := range sale.Items {
		soldByProduct[item.ProductID] = item
		soldQty[item.ProductID] += item.Qty
	}
	returnedQty, err := s.repo.ReturnedQtyBySale(ctx, req.SaleID)
	if err != nil {
		return domain.ReturnTransaction{}, err
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	now := time.Now().UTC()

	ret := domain.ReturnTransaction{
		ID:              xid.New("ret"),
		SaleID:          req.SaleID,
		CreatedAt:       now,
		RefundMethod:    req.RefundMethod,
		CustomerID:      sale.CustomerID,
		CashierUsername: actor.Username,
	}
	restock := make(map[string]float64)
	for _, item := range req.Items {
		line, onSale := soldByProduct[item.ProductID]
		if !onSale {
			return domain.ReturnTransaction{}, fmt.Errorf("%w: product %s is not part of sale %s", store.ErrValidation, item.ProductID, req.SaleID)
		}
		qty := domain.RoundQty(item.Qty)
		if qty <= 0 {
			return domain.ReturnTransaction{}, fmt.Errorf("%w: return quantity must be positive", store.ErrValidation)
		}
		if returnedQty[item.ProductID]+qty > soldQty[item.ProductID]+1e-9 {
			return domain.ReturnTransaction{}, fmt.Errorf("%w: return exceeds sold quantity for %s", store.ErrConsistency, line.Name)
		}
		refund := int64(math.Round(float64(line.PriceCents) * qty))
		ret.Items = append(ret.Items, domain.ReturnLine{
			ProductID:   item.ProductID,
			Name:        line.Name,
			Qty:         qty,
			RefundCents: refund,
			Reason:      strings.TrimSpace(item.Reason),
			Restocked:   item.Restock,
		})
		ret.TotalRefundCents += refund
		if item.Restock {
			restock[item.ProductID] += qty
		}
	}

	if req.RefundMethod == domain.PayStoreCredit {
		if sale.CustomerID == "" {
			return domain.ReturnTransaction{}, fmt.Errorf("%w: store-credit refund requires a member customer on the sale", store.ErrValidation)
		}
		customer, err := s.repo.GetCustomer(ctx, sale.CustomerID)
		if err != nil {
			return domain.ReturnTransaction{}, err
		}
		if customer.Type != domain.CustomerMember {
			return domain.ReturnTransaction{}, fmt.Errorf("%w: store-credit refund requires a member customer", store.ErrValidation)
		}
	}

	committed, err := s.repo.CommitReturn(ctx, store.ReturnCommit{Return: ret, RestockQty: restock})
	if err != nil {
		return domain.ReturnTransaction{}, err
	}

	s.logAudit(ctx, "return", "sale", req.SaleID, fmt.Sprintf("return=%s,refund=%d,method=%s", committed.ID, committed.TotalRefundCents, committed.RefundMethod))
	s.notify(func(h Hooks) { h.OnReturnProcessed(*committed) })
	return *committed, nil
}

// --- credit ledger ---

func (s *Service) AdjustCredit(ctx context.Context, customerID string, req domain.CreditAdjustRequest) (domain.CreditAdjustment, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.CreditAdjustment{}, fmt.Errorf("admin role required")
	}
	if customerID == "" {
		return domain.CreditAdjustment{}, fmt.Errorf("%w: customer id is required", store.ErrValidation)
	}
	if req.AmountCents <= 0 {
		return domain.CreditAdjustment{}, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if req.Type != domain.CreditAdd && req.Type != domain.CreditDeduct {
		return domain.CreditAdjustment{}, fmt.Errorf("%w: unknown adjustment type %q", store.ErrValidation, req.Type)
	}

	appended, err := s.repo.AppendCreditAdjustment(ctx, domain.CreditAdjustment{
		ID:            xid.New("crd"),
		CustomerID:    customerID,
		Type:          req.Type,
		AmountCents:   req.AmountCents,
		Reason:        strings.TrimSpace(req.Reason),
		PaymentMethod: req.PaymentMethod,
		ActorUsername: actor.Username,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return domain.CreditAdjustment{}, err
	}

	s.logAudit(ctx, "credit_adjust", "customer", customerID, fmt.Sprintf("%s=%d,balance=%d", appended.Type, appended.AmountCents, appended.NewBalanceCents))
	s.notify(func(h Hooks) { h.OnCreditAdjusted(*appended) })
	return *appended, nil
}

func (s *Service) CustomerLedger(ctx context.Context, customerID string, limit int) ([]domain.CreditAdjustment, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListCreditAdjustments(ctx, customerID, limit)
}

// --- reports & audit ---

func (s *Service) DailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	from, to, err := dayWindow(date)
	if err != nil {
		return domain.DailySummary{}, err
	}

	key := "summary:" + from.Format("2006-01-02")
	if cached, hit, err := s.summaries.Get(ctx, key); err == nil && hit {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: summary cache read failed: %v", err)
	}

	summary, err := s.repo.GetDailySummary(ctx, from, to)
	if err != nil {
		return domain.DailySummary{}, err
	}
	if err := s.summaries.Set(ctx, key, &summary, s.settings.SummaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed: %v", err)
	}
	return summary, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	from, to, err := dayWindow(date)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func dayWindow(date string) (time.Time, time.Time, error) {
	day := time.Now().UTC()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date %q", store.ErrValidation, date)
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour), nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:         xid.New("audit"),
		Actor:      actor.Username,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
