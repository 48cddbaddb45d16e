package domain

import (
	"math"
	"time"
)

// Customer types.
const (
	CustomerMember = "member"
	CustomerWalkIn = "walk_in"
)

// WalkInName is the placeholder name given to a fresh cart customer. A cart
// customer whose name still equals WalkInName at checkout is never persisted.
const WalkInName = "Walk-in Customer"

// Payment methods.
const (
	PayCash        = "cash"
	PayCard        = "card"
	PayStoreCredit = "store_credit"
)

// Tax application modes.
const (
	TaxExclusive = "exclusive"
	TaxInclusive = "inclusive"
)

// Credit adjustment directions.
const (
	CreditAdd    = "add"
	CreditDeduct = "deduct"
)

// Derived sale statuses.
const (
	SaleCompleted = "completed"
	SalePartial   = "partially_returned"
	SaleReturned  = "returned"
)

// Hold display classifications.
const (
	HoldActive  = "active"
	HoldUrgent  = "urgent"
	HoldExpired = "expired"
)

// RoundQty normalizes a decimal quantity to three decimal places, the finest
// granularity sold (e.g. grams on a kilogram-priced scale item).
func RoundQty(qty float64) float64 {
	return math.Round(qty*1000) / 1000
}

type Product struct {
	ID                string  `json:"id"`
	SKU               string  `json:"sku"`
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	Unit              string  `json:"unit"`
	PriceCents        int64   `json:"price_cents"`
	CostCents         int64   `json:"cost_cents"`
	Stock             float64 `json:"stock"`
	MinStockThreshold float64 `json:"min_stock_threshold"`
	AllowDecimal      bool    `json:"allow_decimal"`
}

// MinQty is the smallest sellable quantity for the product.
func (p Product) MinQty() float64 {
	if p.AllowDecimal {
		return 0.001
	}
	return 1
}

type ProductCreateRequest struct {
	SKU               string  `json:"sku"`
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	Unit              string  `json:"unit"`
	PriceCents        int64   `json:"price_cents"`
	CostCents         int64   `json:"cost_cents"`
	InitialStock      float64 `json:"initial_stock"`
	MinStockThreshold float64 `json:"min_stock_threshold"`
	AllowDecimal      bool    `json:"allow_decimal"`
}

type StockSetRequest struct {
	Stock float64 `json:"stock"`
}

type Customer struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone,omitempty"`
	Type             string     `json:"type"`
	StoreCreditCents int64      `json:"store_credit_cents"`
	TotalSpentCents  int64      `json:"total_spent_cents"`
	VisitCount       int        `json:"visit_count"`
	LastVisit        *time.Time `json:"last_visit,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type CustomerDetail struct {
	Customer Customer           `json:"customer"`
	Ledger   []CreditAdjustment `json:"ledger"`
}

// CartLine is a snapshot of a product taken when it entered the cart. Price
// and cost stay fixed for the life of the line even if the catalog changes.
// ReservedQty is the portion of Qty already removed from stock by a hold;
// checkout deducts only Qty-ReservedQty.
type CartLine struct {
	ProductID    string  `json:"product_id"`
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	PriceCents   int64   `json:"price_cents"`
	CostCents    int64   `json:"cost_cents"`
	AllowDecimal bool    `json:"allow_decimal"`
	Qty          float64 `json:"qty"`
	ReservedQty  float64 `json:"reserved_qty"`
}

// LineAmountCents is the rounded extended price of the line.
func (l CartLine) LineAmountCents() int64 {
	return int64(math.Round(float64(l.PriceCents) * l.Qty))
}

type PriceQuote struct {
	SubtotalCents     int64   `json:"subtotal_cents"`
	TaxName           string  `json:"tax_name"`
	TaxRatePercent    float64 `json:"tax_rate_percent"`
	TaxInclusive      bool    `json:"tax_inclusive"`
	TaxCents          int64   `json:"tax_cents"`
	TotalCents        int64   `json:"total_cents"`
	CreditTermName    string  `json:"credit_term_name,omitempty"`
	MarkupRatePercent float64 `json:"markup_rate_percent"`
	MarkupCents       int64   `json:"markup_cents"`
	PayableCents      int64   `json:"payable_cents"`
}

type CartView struct {
	TerminalID    string     `json:"terminal_id"`
	Lines         []CartLine `json:"lines"`
	Customer      Customer   `json:"customer"`
	PaymentMethod string     `json:"payment_method"`
	Quote         PriceQuote `json:"quote"`
}

type CartLineRequest struct {
	TerminalID string `json:"terminal_id"`
	ProductID  string `json:"product_id"`
}

type CartQuantityRequest struct {
	TerminalID string  `json:"terminal_id"`
	ProductID  string  `json:"product_id"`
	Qty        float64 `json:"qty"`
	Delta      float64 `json:"delta"`
}

// CartCustomerRequest selects a persisted customer when CustomerID is set,
// names the transient walk-in when only Name is set, and resets to a fresh
// walk-in when both are empty.
type CartCustomerRequest struct {
	TerminalID string `json:"terminal_id"`
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
}

type CartPaymentRequest struct {
	TerminalID    string `json:"terminal_id"`
	PaymentMethod string `json:"payment_method"`
}

type CartClearRequest struct {
	TerminalID string `json:"terminal_id"`
}

type CreditTerm struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Days        int     `json:"days" yaml:"days"`
	RatePercent float64 `json:"rate_percent" yaml:"rate_percent"`
}

type CheckoutRequest struct {
	TerminalID        string `json:"terminal_id"`
	PaymentMethod     string `json:"payment_method"`
	CreditTermID      string `json:"credit_term_id"`
	CashTenderedCents int64  `json:"cash_tendered_cents"`
}

type SaleLine struct {
	ProductID  string  `json:"product_id"`
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Unit       string  `json:"unit"`
	Qty        float64 `json:"qty"`
	PriceCents int64   `json:"price_cents"`
	CostCents  int64   `json:"cost_cents"`
}

type Sale struct {
	ID                string     `json:"id"`
	CreatedAt         time.Time  `json:"created_at"`
	Items             []SaleLine `json:"items"`
	SubtotalCents     int64      `json:"subtotal_cents"`
	TaxName           string     `json:"tax_name"`
	TaxRatePercent    float64    `json:"tax_rate_percent"`
	TaxInclusive      bool       `json:"tax_inclusive"`
	TaxCents          int64      `json:"tax_cents"`
	CreditTermName    string     `json:"credit_term_name,omitempty"`
	MarkupRatePercent float64    `json:"markup_rate_percent"`
	MarkupCents       int64      `json:"markup_cents"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	TotalCents        int64      `json:"total_cents"`
	ProfitCents       int64      `json:"profit_cents"`
	PaymentMethod     string     `json:"payment_method"`
	CashTenderedCents int64      `json:"cash_tendered_cents,omitempty"`
	ChangeCents       int64      `json:"change_cents,omitempty"`
	CustomerID        string     `json:"customer_id,omitempty"`
	CustomerName      string     `json:"customer_name"`
	CustomerType      string     `json:"customer_type"`
	CashierUsername   string     `json:"cashier_username"`
}

type SaleView struct {
	Sale    Sale                `json:"sale"`
	Status  string              `json:"status"`
	Returns []ReturnTransaction `json:"returns,omitempty"`
}

type HoldTransaction struct {
	ID              string     `json:"id"`
	TerminalID      string     `json:"terminal_id"`
	Lines           []CartLine `json:"lines"`
	Customer        Customer   `json:"customer"`
	Note            string     `json:"note,omitempty"`
	CashierUsername string     `json:"cashier_username"`
	DurationMinutes int        `json:"duration_minutes"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

type HoldCreateRequest struct {
	TerminalID      string `json:"terminal_id"`
	DurationMinutes int    `json:"duration_minutes"`
	Note            string `json:"note"`
}

type HoldView struct {
	Hold             HoldTransaction `json:"hold"`
	Status           string          `json:"status"`
	RemainingSeconds int64           `json:"remaining_seconds"`
}

// HoldAlerts is the advisory snapshot produced by the background sweep. It is
// display guidance only; expired holds are never voided automatically.
type HoldAlerts struct {
	Urgent      []HoldView `json:"urgent"`
	MoreUrgent  int        `json:"more_urgent"`
	ActiveCount int        `json:"active_count"`
	ExpiredHeld int        `json:"expired_count"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type HoldResumeRequest struct {
	TerminalID string `json:"terminal_id"`
}

type ReturnLine struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Qty         float64 `json:"qty"`
	RefundCents int64   `json:"refund_cents"`
	Reason      string  `json:"reason,omitempty"`
	Restocked   bool    `json:"restocked"`
}

type ReturnTransaction struct {
	ID               string       `json:"id"`
	SaleID           string       `json:"sale_id"`
	CreatedAt        time.Time    `json:"created_at"`
	Items            []ReturnLine `json:"items"`
	TotalRefundCents int64        `json:"total_refund_cents"`
	RefundMethod     string       `json:"refund_method"`
	CustomerID       string       `json:"customer_id,omitempty"`
	CashierUsername  string       `json:"cashier_username"`
}

type ReturnItemRequest struct {
	ProductID string  `json:"product_id"`
	Qty       float64 `json:"qty"`
	Reason    string  `json:"reason"`
	Restock   bool    `json:"restock"`
}

type ReturnRequest struct {
	SaleID       string              `json:"sale_id"`
	RefundMethod string              `json:"refund_method"`
	Items        []ReturnItemRequest `json:"items"`
}

type CreditAdjustment struct {
	ID              string    `json:"id"`
	CustomerID      string    `json:"customer_id"`
	Type            string    `json:"type"`
	AmountCents     int64     `json:"amount_cents"`
	NewBalanceCents int64     `json:"new_balance_cents"`
	Reason          string    `json:"reason,omitempty"`
	PaymentMethod   string    `json:"payment_method,omitempty"`
	ActorUsername   string    `json:"actor_username"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreditAdjustRequest struct {
	AmountCents   int64  `json:"amount_cents"`
	Type          string `json:"type"`
	Reason        string `json:"reason"`
	PaymentMethod string `json:"payment_method"`
}

type PaymentBreakdown struct {
	PaymentMethod string `json:"payment_method"`
	Transactions  int    `json:"transactions"`
	AmountCents   int64  `json:"amount_cents"`
}

type DailySummary struct {
	Date              string             `json:"date"`
	Transactions      int                `json:"transactions"`
	GrossCents        int64              `json:"gross_cents"`
	TaxCents          int64              `json:"tax_cents"`
	MarkupCents       int64              `json:"markup_cents"`
	RefundCents       int64              `json:"refund_cents"`
	ProfitCents       int64              `json:"profit_cents"`
	ByPayment         []PaymentBreakdown `json:"by_payment"`
	ReturnCount       int                `json:"return_count"`
	CreditIssuedCents int64              `json:"credit_issued_cents"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
