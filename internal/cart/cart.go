package cart

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/xid"
)

// Manager owns one active cart per terminal. Sessions are created lazily on
// first touch and start with a transient walk-in customer and cash payment.
// All quantity rules live here: operations clamp to [minQty, available] where
// available is live stock plus the line's own reservation, so a line resumed
// from a hold keeps the headroom its reserved units already paid for.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	lines         []domain.CartLine
	customer      domain.Customer
	paymentMethod string
}

// Snapshot is a deep copy of a session, safe to hold across the manager lock.
type Snapshot struct {
	TerminalID    string
	Lines         []domain.CartLine
	Customer      domain.Customer
	PaymentMethod string
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*session)}
}

func newWalkIn() domain.Customer {
	return domain.Customer{
		ID:        xid.New("walkin"),
		Name:      domain.WalkInName,
		Type:      domain.CustomerWalkIn,
		CreatedAt: time.Now().UTC(),
	}
}

func (m *Manager) get(terminalID string) *session {
	s, ok := m.sessions[terminalID]
	if !ok {
		s = &session{customer: newWalkIn(), paymentMethod: domain.PayCash}
		m.sessions[terminalID] = s
	}
	return s
}

func (s *session) line(productID string) *domain.CartLine {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return &s.lines[i]
		}
	}
	return nil
}

func normalizeQty(p domain.Product, qty float64) float64 {
	if p.AllowDecimal {
		return domain.RoundQty(qty)
	}
	return math.Round(qty)
}

// AddLine puts one unit of the product in the cart, or bumps an existing line
// by one. Unlike SetQuantity it rejects rather than clamps: pressing "add" on
// a product with no remaining stock is an error the cashier must see.
func (m *Manager) AddLine(terminalID string, product domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(terminalID)

	if line := s.line(product.ID); line != nil {
		available := domain.RoundQty(product.Stock + line.ReservedQty)
		target := normalizeQty(product, line.Qty+1)
		if target > available {
			return fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
		line.Qty = target
		return nil
	}

	qty := 1.0
	if product.AllowDecimal && product.Stock < 1 {
		qty = domain.RoundQty(product.Stock)
	}
	if qty < product.MinQty() || product.Stock < product.MinQty() {
		return fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
	}
	s.lines = append(s.lines, domain.CartLine{
		ProductID:    product.ID,
		SKU:          product.SKU,
		Name:         product.Name,
		Unit:         product.Unit,
		PriceCents:   product.PriceCents,
		CostCents:    product.CostCents,
		AllowDecimal: product.AllowDecimal,
		Qty:          qty,
	})
	return nil
}

// SetQuantity sets a line's quantity, clamped to [minQty, stock+reserved].
// Non-positive input snaps to the minimum rather than removing the line;
// removal is an explicit operation.
func (m *Manager) SetQuantity(terminalID string, product domain.Product, qty float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(terminalID)

	line := s.line(product.ID)
	if line == nil {
		return fmt.Errorf("%w: product %s not in cart", store.ErrNotFound, product.ID)
	}
	available := domain.RoundQty(product.Stock + line.ReservedQty)
	min := product.MinQty()
	if available < min {
		return fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
	}
	qty = normalizeQty(product, qty)
	if qty < min {
		qty = min
	}
	if qty > available {
		qty = available
	}
	line.Qty = qty
	return nil
}

// AdjustQuantity applies a signed delta through the same clamping as
// SetQuantity.
func (m *Manager) AdjustQuantity(terminalID string, product domain.Product, delta float64) error {
	m.mu.Lock()
	current := 0.0
	if line := m.get(terminalID).line(product.ID); line != nil {
		current = line.Qty
	}
	m.mu.Unlock()
	return m.SetQuantity(terminalID, product, current+delta)
}

// RemoveLine drops the line and reports how much reserved quantity it was
// holding, which the caller must return to stock.
func (m *Manager) RemoveLine(terminalID string, productID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(terminalID)

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			released := s.lines[i].ReservedQty
			s.lines = slices.Delete(s.lines, i, i+1)
			return released, nil
		}
	}
	return 0, fmt.Errorf("%w: product %s not in cart", store.ErrNotFound, productID)
}

// SelectCustomer replaces the session customer wholesale.
func (m *Manager) SelectCustomer(terminalID string, customer domain.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(terminalID).customer = customer
}

// NameCustomer names the transient walk-in so checkout can register them.
// It refuses to rename a selected member.
func (m *Manager) NameCustomer(terminalID string, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(terminalID)
	if s.customer.Type != domain.CustomerWalkIn {
		return fmt.Errorf("%w: selected customer is not a walk-in", store.ErrValidation)
	}
	s.customer.Name = name
	return nil
}

// ResetCustomer swaps in a fresh transient walk-in.
func (m *Manager) ResetCustomer(terminalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(terminalID).customer = newWalkIn()
}

func (m *Manager) SetPaymentMethod(terminalID string, method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(terminalID).paymentMethod = method
}

// Clear resets the whole session and reports the reserved quantities the
// discarded lines were holding, which the caller must return to stock.
func (m *Manager) Clear(terminalID string) map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(terminalID)

	released := make(map[string]float64)
	for _, line := range s.lines {
		if line.ReservedQty > 0 {
			released[line.ProductID] += line.ReservedQty
		}
	}
	s.lines = nil
	s.customer = newWalkIn()
	s.paymentMethod = domain.PayCash
	return released
}

func (m *Manager) IsEmpty(terminalID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.get(terminalID).lines) == 0
}

func (m *Manager) Snapshot(terminalID string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(terminalID)
	return Snapshot{
		TerminalID:    terminalID,
		Lines:         slices.Clone(s.lines),
		Customer:      s.customer,
		PaymentMethod: s.paymentMethod,
	}
}

// LoadHold restores a held transaction into an empty session. Every restored
// line is fully reserved: its units left stock when the hold was created.
func (m *Manager) LoadHold(terminalID string, hold domain.HoldTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(terminalID)
	if len(s.lines) > 0 {
		return fmt.Errorf("%w: cart is not empty", store.ErrConsistency)
	}
	lines := slices.Clone(hold.Lines)
	for i := range lines {
		lines[i].ReservedQty = lines[i].Qty
	}
	s.lines = lines
	s.customer = hold.Customer
	s.paymentMethod = domain.PayCash
	return nil
}
