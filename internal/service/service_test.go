package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/cart"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/pricing"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store/memory"
)

const testTerminal = "terminal-1"

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	ctx := context.Background()

	products := []domain.Product{
		{ID: "prod-a", SKU: "SKU-A", Name: "Product A", Category: "grocery", Unit: "pcs", PriceCents: 1000, CostCents: 400, Stock: 5},
		{ID: "prod-b", SKU: "SKU-B", Name: "Product B", Category: "grocery", Unit: "pcs", PriceCents: 500, CostCents: 300, Stock: 10},
		{ID: "prod-rice", SKU: "SKU-RICE", Name: "Rice", Category: "grocery", Unit: "kg", PriceCents: 1400, CostCents: 1100, Stock: 20, AllowDecimal: true},
	}
	for _, p := range products {
		if _, err := repo.CreateProduct(ctx, p); err != nil {
			t.Fatalf("seed product %s: %v", p.ID, err)
		}
	}
	if _, err := repo.CreateCustomer(ctx, domain.Customer{ID: "cust-ani", Name: "Ani", Type: domain.CustomerMember, StoreCreditCents: 2000}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	svc := New(repo, cart.NewManager(), nil, Settings{
		Tax:                pricing.TaxConfig{Name: "Sales Tax", RatePercent: 10},
		CreditTerms:        []domain.CreditTerm{{ID: "net30", Name: "Net 30", Days: 30, RatePercent: 5}},
		FallbackMarkupRate: 2,
	}, nil)
	return svc, repo
}

func stockOf(t *testing.T, repo *memory.Store, id string) float64 {
	t.Helper()
	p, err := repo.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("get product %s: %v", id, err)
	}
	return p.Stock
}

func addToCart(t *testing.T, svc *Service, productID string, qty float64) {
	t.Helper()
	ctx := cashierCtx()
	if _, err := svc.AddCartLine(ctx, domain.CartLineRequest{TerminalID: testTerminal, ProductID: productID}); err != nil {
		t.Fatalf("add %s: %v", productID, err)
	}
	if qty != 1 {
		if _, err := svc.SetCartQuantity(ctx, domain.CartQuantityRequest{TerminalID: testTerminal, ProductID: productID, Qty: qty}); err != nil {
			t.Fatalf("set qty %s: %v", productID, err)
		}
	}
}

func TestCheckoutCashHappyPath(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 2)
	addToCart(t, svc, "prod-b", 1)

	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 5000})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// Subtotal 2500, 10% exclusive tax 250.
	if sale.SubtotalCents != 2500 || sale.TaxCents != 250 || sale.TotalCents != 2750 {
		t.Fatalf("unexpected totals %+v", sale)
	}
	if sale.ChangeCents != 2250 {
		t.Fatalf("expected change 2250, got %d", sale.ChangeCents)
	}
	// Profit is subtotal minus cost: 2500 - (800+300).
	if sale.ProfitCents != 1400 {
		t.Fatalf("expected profit 1400, got %d", sale.ProfitCents)
	}
	if got := stockOf(t, repo, "prod-a"); got != 3 {
		t.Fatalf("expected stock 3, got %v", got)
	}

	view, err := svc.GetCart(ctx, testTerminal)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(view.Lines) != 0 || view.Customer.Name != domain.WalkInName {
		t.Fatalf("expected cleared cart with fresh walk-in, got %+v", view)
	}
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 100})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutCashRequiresSufficientTender(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()
	addToCart(t, svc, "prod-a", 2)

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 2000})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := stockOf(t, repo, "prod-a"); got != 5 {
		t.Fatalf("rejected checkout must not touch stock, got %v", got)
	}
	if view, _ := svc.GetCart(ctx, testTerminal); len(view.Lines) != 1 {
		t.Fatalf("rejected checkout must keep the cart, got %+v", view.Lines)
	}
}

func TestCheckoutStoreCreditRequiresMember(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()
	addToCart(t, svc, "prod-a", 1)

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, PaymentMethod: domain.PayStoreCredit})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for walk-in store credit, got %v", err)
	}
}

func TestCheckoutStoreCreditAllowsDebt(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 5)
	if _, err := svc.SelectCartCustomer(ctx, domain.CartCustomerRequest{TerminalID: testTerminal, CustomerID: "cust-ani"}); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:    testTerminal,
		PaymentMethod: domain.PayStoreCredit,
		CreditTermID:  "net30",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// 5000 + 10% tax = 5500, plus the 5% term markup 275.
	if sale.MarkupCents != 275 || sale.TotalCents != 5775 {
		t.Fatalf("unexpected credit pricing %+v", sale)
	}
	if sale.DueDate == nil {
		t.Fatalf("expected due date for credit-term sale")
	}
	if sale.CreditTermName != "Net 30" {
		t.Fatalf("expected term name on the sale, got %q", sale.CreditTermName)
	}

	customer, err := repo.GetCustomer(context.Background(), "cust-ani")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.StoreCreditCents != 2000-5775 {
		t.Fatalf("expected balance %d, got %d", 2000-5775, customer.StoreCreditCents)
	}
	ledger, err := svc.CustomerLedger(ctx, "cust-ani", 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(ledger) != 1 || ledger[0].NewBalanceCents != customer.StoreCreditCents {
		t.Fatalf("balance must equal the latest ledger entry, got %+v", ledger)
	}
}

func TestCheckoutRegistersNamedWalkIn(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-b", 2)
	view, err := svc.SelectCartCustomer(ctx, domain.CartCustomerRequest{TerminalID: testTerminal, Name: "Citra"})
	if err != nil {
		t.Fatalf("name walk-in: %v", err)
	}
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 2000})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if sale.CustomerID != view.Customer.ID || sale.CustomerName != "Citra" {
		t.Fatalf("expected registered customer on the sale, got %+v", sale)
	}

	customer, err := repo.GetCustomer(context.Background(), sale.CustomerID)
	if err != nil {
		t.Fatalf("named walk-in must be persisted: %v", err)
	}
	if customer.VisitCount != 1 || customer.TotalSpentCents != sale.TotalCents || customer.LastVisit == nil {
		t.Fatalf("expected aggregates on registered customer, got %+v", customer)
	}
}

func TestCheckoutAnonymousWalkInStaysTransient(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-b", 1)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 1000})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if sale.CustomerID != "" || sale.CustomerName != domain.WalkInName {
		t.Fatalf("anonymous walk-in must not be persisted, got %+v", sale)
	}
	customers, err := repo.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	if len(customers) != 1 {
		t.Fatalf("expected only the seeded member, got %d customers", len(customers))
	}
}

func TestHoldLifecycleConservesStock(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 2)
	hold, err := svc.HoldCart(ctx, domain.HoldCreateRequest{TerminalID: testTerminal, DurationMinutes: 15, Note: "customer fetching wallet"})
	if err != nil {
		t.Fatalf("hold cart: %v", err)
	}
	if got := stockOf(t, repo, "prod-a"); got != 3 {
		t.Fatalf("expected stock 3 while held, got %v", got)
	}
	if view, _ := svc.GetCart(ctx, testTerminal); len(view.Lines) != 0 {
		t.Fatalf("hold must clear the cart")
	}

	if _, err := svc.VoidHold(ctx, hold.ID); err != nil {
		t.Fatalf("void hold: %v", err)
	}
	if got := stockOf(t, repo, "prod-a"); got != 5 {
		t.Fatalf("expected stock restored to 5, got %v", got)
	}
}

func TestHoldRejectsMemberCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 1)
	if _, err := svc.SelectCartCustomer(ctx, domain.CartCustomerRequest{TerminalID: testTerminal, CustomerID: "cust-ani"}); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	_, err := svc.HoldCart(ctx, domain.HoldCreateRequest{TerminalID: testTerminal, DurationMinutes: 15})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for member hold, got %v", err)
	}
}

func TestResumeHoldThenCheckoutDoesNotDoubleDecrement(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 2)
	hold, err := svc.HoldCart(ctx, domain.HoldCreateRequest{TerminalID: testTerminal, DurationMinutes: 15})
	if err != nil {
		t.Fatalf("hold cart: %v", err)
	}
	if _, err := svc.ResumeHold(ctx, testTerminal, hold.ID); err != nil {
		t.Fatalf("resume hold: %v", err)
	}
	if got := stockOf(t, repo, "prod-a"); got != 3 {
		t.Fatalf("resume must not change stock, got %v", got)
	}

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 5000}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// Both units were already reserved at hold time.
	if got := stockOf(t, repo, "prod-a"); got != 3 {
		t.Fatalf("checkout of fully reserved lines must not move stock, got %v", got)
	}
}

func TestResumeRaiseQuantityDeductsOnlyTheDifference(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 2)
	hold, err := svc.HoldCart(ctx, domain.HoldCreateRequest{TerminalID: testTerminal, DurationMinutes: 15})
	if err != nil {
		t.Fatalf("hold cart: %v", err)
	}
	if _, err := svc.ResumeHold(ctx, testTerminal, hold.ID); err != nil {
		t.Fatalf("resume hold: %v", err)
	}
	if _, err := svc.SetCartQuantity(ctx, domain.CartQuantityRequest{TerminalID: testTerminal, ProductID: "prod-a", Qty: 3}); err != nil {
		t.Fatalf("raise quantity: %v", err)
	}
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 5000}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if got := stockOf(t, repo, "prod-a"); got != 2 {
		t.Fatalf("expected only the extra unit deducted, got stock %v", got)
	}
}

func TestResumeLowerQuantityReturnsTheDifference(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 3)
	hold, err := svc.HoldCart(ctx, domain.HoldCreateRequest{TerminalID: testTerminal, DurationMinutes: 15})
	if err != nil {
		t.Fatalf("hold cart: %v", err)
	}
	if _, err := svc.ResumeHold(ctx, testTerminal, hold.ID); err != nil {
		t.Fatalf("resume hold: %v", err)
	}
	if _, err := svc.SetCartQuantity(ctx, domain.CartQuantityRequest{TerminalID: testTerminal, ProductID: "prod-a", Qty: 2}); err != nil {
		t.Fatalf("lower quantity: %v", err)
	}
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 5000}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// The hold removed 3 and the sale consumed 2, so one unit comes back.
	if got := stockOf(t, repo, "prod-a"); got != 3 {
		t.Fatalf("expected stock 3, got %v", got)
	}
}

func TestClearResumedCartReleasesReservations(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 2)
	hold, err := svc.HoldCart(ctx, domain.HoldCreateRequest{TerminalID: testTerminal, DurationMinutes: 15})
	if err != nil {
		t.Fatalf("hold cart: %v", err)
	}
	if _, err := svc.ResumeHold(ctx, testTerminal, hold.ID); err != nil {
		t.Fatalf("resume hold: %v", err)
	}
	if _, err := svc.ClearCart(ctx, testTerminal); err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	if got := stockOf(t, repo, "prod-a"); got != 5 {
		t.Fatalf("clearing a resumed cart must release its reservations, got %v", got)
	}
}

func TestResumeFailsOnNonEmptyCartAndKeepsHold(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 2)
	hold, err := svc.HoldCart(ctx, domain.HoldCreateRequest{TerminalID: testTerminal, DurationMinutes: 15})
	if err != nil {
		t.Fatalf("hold cart: %v", err)
	}
	addToCart(t, svc, "prod-b", 1)

	if _, err := svc.ResumeHold(ctx, testTerminal, hold.ID); !errors.Is(err, store.ErrConsistency) {
		t.Fatalf("expected consistency error, got %v", err)
	}
	holds, err := svc.ListHolds(ctx)
	if err != nil {
		t.Fatalf("list holds: %v", err)
	}
	if len(holds) != 1 || holds[0].Hold.ID != hold.ID {
		t.Fatalf("failed resume must keep the hold, got %+v", holds)
	}
}

func TestHoldAlertsClassification(t *testing.T) {
	now := time.Now().UTC()
	mk := func(id string, remaining time.Duration) domain.HoldTransaction {
		return domain.HoldTransaction{ID: id, ExpiresAt: now.Add(remaining)}
	}
	holds := []domain.HoldTransaction{
		mk("hold-expired", -time.Minute),
		mk("hold-1", time.Minute),
		mk("hold-2", 2*time.Minute),
		mk("hold-3", 3*time.Minute),
		mk("hold-4", 4*time.Minute),
		mk("hold-active", time.Hour),
	}

	alerts := buildHoldAlerts(holds, now)
	if len(alerts.Urgent) != 3 {
		t.Fatalf("expected top 3 urgent holds, got %d", len(alerts.Urgent))
	}
	if alerts.Urgent[0].Hold.ID != "hold-1" || alerts.Urgent[2].Hold.ID != "hold-3" {
		t.Fatalf("urgent holds must be soonest first, got %+v", alerts.Urgent)
	}
	if alerts.MoreUrgent != 1 {
		t.Fatalf("expected 1 overflow urgent hold, got %d", alerts.MoreUrgent)
	}
	if alerts.ExpiredHeld != 1 || alerts.ActiveCount != 1 {
		t.Fatalf("unexpected counts %+v", alerts)
	}
}

func TestExpiredHoldStaysResumable(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	expired := domain.HoldTransaction{
		ID:        "hold-old",
		Lines:     []domain.CartLine{{ProductID: "prod-a", Name: "Product A", PriceCents: 1000, CostCents: 400, Qty: 1}},
		Customer:  domain.Customer{ID: "walkin-x", Name: domain.WalkInName, Type: domain.CustomerWalkIn},
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		ExpiresAt: time.Now().UTC().Add(-30 * time.Minute),
	}
	if _, err := repo.CreateHold(context.Background(), expired); err != nil {
		t.Fatalf("create hold: %v", err)
	}

	alerts, err := svc.RefreshHoldAlerts(ctx)
	if err != nil {
		t.Fatalf("refresh alerts: %v", err)
	}
	if alerts.ExpiredHeld != 1 {
		t.Fatalf("expected one expired hold, got %+v", alerts)
	}
	if got := svc.HoldAlerts(); got.ExpiredHeld != 1 {
		t.Fatalf("snapshot must reflect the refresh, got %+v", got)
	}
	// Expiry is advisory: the hold stays resumable until someone voids it.
	if _, err := svc.ResumeHold(ctx, testTerminal, "hold-old"); err != nil {
		t.Fatalf("expired hold must stay resumable: %v", err)
	}
}

func TestReturnPartialWithRestock(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 3)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 5000})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if got := stockOf(t, repo, "prod-a"); got != 2 {
		t.Fatalf("expected stock 2 after sale, got %v", got)
	}

	ret, err := svc.ProcessReturn(adminCtx(), domain.ReturnRequest{
		SaleID:       sale.ID,
		RefundMethod: domain.PayCash,
		Items:        []domain.ReturnItemRequest{{ProductID: "prod-a", Qty: 1, Reason: "damaged box", Restock: true}},
	})
	if err != nil {
		t.Fatalf("process return: %v", err)
	}
	// Refund is price-at-sale times quantity.
	if ret.TotalRefundCents != 1000 {
		t.Fatalf("expected refund 1000, got %d", ret.TotalRefundCents)
	}
	if got := stockOf(t, repo, "prod-a"); got != 3 {
		t.Fatalf("expected restock to 3, got %v", got)
	}

	view, err := svc.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if view.Status != domain.SalePartial {
		t.Fatalf("expected partially returned status, got %s", view.Status)
	}
	if len(view.Returns) != 1 {
		t.Fatalf("expected the return attached to the sale view, got %d", len(view.Returns))
	}
}

func TestReturnWithoutRestockLeavesStock(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 2)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 5000})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, err := svc.ProcessReturn(adminCtx(), domain.ReturnRequest{
		SaleID:       sale.ID,
		RefundMethod: domain.PayCash,
		Items:        []domain.ReturnItemRequest{{ProductID: "prod-a", Qty: 2, Reason: "spoiled", Restock: false}},
	}); err != nil {
		t.Fatalf("process return: %v", err)
	}
	if got := stockOf(t, repo, "prod-a"); got != 3 {
		t.Fatalf("unrestocked return must not change stock, got %v", got)
	}
	view, err := svc.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if view.Status != domain.SaleReturned {
		t.Fatalf("expected fully returned status, got %s", view.Status)
	}
}

func TestReturnRejectsCumulativeOverReturn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 3)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 5000})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := svc.ProcessReturn(adminCtx(), domain.ReturnRequest{
		SaleID:       sale.ID,
		RefundMethod: domain.PayCash,
		Items:        []domain.ReturnItemRequest{{ProductID: "prod-a", Qty: 2, Restock: true}},
	}); err != nil {
		t.Fatalf("first return: %v", err)
	}
	_, err = svc.ProcessReturn(adminCtx(), domain.ReturnRequest{
		SaleID:       sale.ID,
		RefundMethod: domain.PayCash,
		Items:        []domain.ReturnItemRequest{{ProductID: "prod-a", Qty: 2, Restock: true}},
	})
	if !errors.Is(err, store.ErrConsistency) {
		t.Fatalf("expected consistency violation, got %v", err)
	}
}

func TestReturnStoreCreditRefundsMember(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 2)
	if _, err := svc.SelectCartCustomer(ctx, domain.CartCustomerRequest{TerminalID: testTerminal, CustomerID: "cust-ani"}); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 5000})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	ret, err := svc.ProcessReturn(adminCtx(), domain.ReturnRequest{
		SaleID:       sale.ID,
		RefundMethod: domain.PayStoreCredit,
		Items:        []domain.ReturnItemRequest{{ProductID: "prod-a", Qty: 1, Restock: true}},
	})
	if err != nil {
		t.Fatalf("process return: %v", err)
	}
	customer, err := repo.GetCustomer(context.Background(), "cust-ani")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.StoreCreditCents != 2000+ret.TotalRefundCents {
		t.Fatalf("expected refund credited, balance %d", customer.StoreCreditCents)
	}
}

func TestAdjustCreditRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.AdjustCredit(cashierCtx(), "cust-ani", domain.CreditAdjustRequest{AmountCents: 100, Type: domain.CreditAdd}); err == nil {
		t.Fatalf("expected cashier adjustment to be rejected")
	}
}

func TestAdjustCreditMovesBalanceWithLedger(t *testing.T) {
	svc, repo := newTestService(t)

	adj, err := svc.AdjustCredit(adminCtx(), "cust-ani", domain.CreditAdjustRequest{
		AmountCents:   1500,
		Type:          domain.CreditAdd,
		Reason:        "prepaid top-up",
		PaymentMethod: domain.PayCash,
	})
	if err != nil {
		t.Fatalf("adjust credit: %v", err)
	}
	if adj.NewBalanceCents != 3500 {
		t.Fatalf("expected balance 3500, got %d", adj.NewBalanceCents)
	}
	customer, err := repo.GetCustomer(context.Background(), "cust-ani")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.StoreCreditCents != adj.NewBalanceCents {
		t.Fatalf("customer balance %d must equal ledger balance %d", customer.StoreCreditCents, adj.NewBalanceCents)
	}
}

func TestDailySummaryCountsSalesAndReturns(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	addToCart(t, svc, "prod-a", 1)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 2000})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := svc.ProcessReturn(adminCtx(), domain.ReturnRequest{
		SaleID:       sale.ID,
		RefundMethod: domain.PayCash,
		Items:        []domain.ReturnItemRequest{{ProductID: "prod-a", Qty: 1, Restock: true}},
	}); err != nil {
		t.Fatalf("process return: %v", err)
	}

	summary, err := svc.DailySummary(ctx, "")
	if err != nil {
		t.Fatalf("daily summary: %v", err)
	}
	if summary.Transactions != 1 || summary.GrossCents != sale.TotalCents {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.ReturnCount != 1 || summary.RefundCents != 1000 {
		t.Fatalf("expected one 1000-cent refund, got %+v", summary)
	}
}

type recordingHooks struct {
	sales   []domain.Sale
	returns []domain.ReturnTransaction
	holds   []string
	credits []domain.CreditAdjustment
}

func (r *recordingHooks) OnSaleCompleted(sale domain.Sale) { r.sales = append(r.sales, sale) }
func (r *recordingHooks) OnReturnProcessed(ret domain.ReturnTransaction) {
	r.returns = append(r.returns, ret)
}
func (r *recordingHooks) OnHoldCreated(hold domain.HoldTransaction) {
	r.holds = append(r.holds, "created:"+hold.ID)
}
func (r *recordingHooks) OnHoldResumed(hold domain.HoldTransaction) {
	r.holds = append(r.holds, "resumed:"+hold.ID)
}
func (r *recordingHooks) OnHoldVoided(hold domain.HoldTransaction) {
	r.holds = append(r.holds, "voided:"+hold.ID)
}
func (r *recordingHooks) OnCreditAdjusted(adj domain.CreditAdjustment) {
	r.credits = append(r.credits, adj)
}

func TestHooksReceiveCommittedRecords(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	if _, err := repo.CreateProduct(ctx, domain.Product{ID: "prod-a", SKU: "SKU-A", Name: "Product A", PriceCents: 1000, CostCents: 400, Stock: 5}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	hooks := &recordingHooks{}
	svc := New(repo, cart.NewManager(), nil, Settings{Tax: pricing.TaxConfig{RatePercent: 10}}, hooks)
	cctx := cashierCtx()

	if _, err := svc.AddCartLine(cctx, domain.CartLineRequest{TerminalID: testTerminal, ProductID: "prod-a"}); err != nil {
		t.Fatalf("add line: %v", err)
	}
	sale, err := svc.Checkout(cctx, domain.CheckoutRequest{TerminalID: testTerminal, CashTenderedCents: 2000})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(hooks.sales) != 1 || hooks.sales[0].ID != sale.ID {
		t.Fatalf("expected sale hook, got %+v", hooks.sales)
	}
	if hooks.sales[0].TotalCents != sale.TotalCents {
		t.Fatalf("hook must receive the committed record")
	}

	hold, err := svc.HoldCart(cctx, domain.HoldCreateRequest{TerminalID: testTerminal, DurationMinutes: 15})
	if err == nil {
		t.Fatalf("expected empty-cart hold to fail, got %+v", hold)
	}
	if len(hooks.holds) != 0 {
		t.Fatalf("failed operations must not fire hooks, got %+v", hooks.holds)
	}
}
