package service

import (
	"log"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
)

// Hooks receives each immutable record right after its commit. Every record
// is already durable when the hook fires; implementations must not assume
// they can veto or unwind anything, and a panicking or failing hook never
// reaches the committed state.
type Hooks interface {
	OnSaleCompleted(sale domain.Sale)
	OnReturnProcessed(ret domain.ReturnTransaction)
	OnHoldCreated(hold domain.HoldTransaction)
	OnHoldResumed(hold domain.HoldTransaction)
	OnHoldVoided(hold domain.HoldTransaction)
	OnCreditAdjusted(adjustment domain.CreditAdjustment)
}

// LogHooks mirrors every commit to the process log. It is the default when no
// other Hooks implementation is wired in.
type LogHooks struct{}

func (LogHooks) OnSaleCompleted(sale domain.Sale) {
	log.Printf("[hooks] sale %s committed payment=%s total=%d profit=%d", sale.ID, sale.PaymentMethod, sale.TotalCents, sale.ProfitCents)
}

func (LogHooks) OnReturnProcessed(ret domain.ReturnTransaction) {
	log.Printf("[hooks] return %s committed sale=%s refund=%d method=%s", ret.ID, ret.SaleID, ret.TotalRefundCents, ret.RefundMethod)
}

func (LogHooks) OnHoldCreated(hold domain.HoldTransaction) {
	log.Printf("[hooks] hold %s created terminal=%s expires=%s", hold.ID, hold.TerminalID, hold.ExpiresAt.Format("15:04:05"))
}

func (LogHooks) OnHoldResumed(hold domain.HoldTransaction) {
	log.Printf("[hooks] hold %s resumed terminal=%s", hold.ID, hold.TerminalID)
}

func (LogHooks) OnHoldVoided(hold domain.HoldTransaction) {
	log.Printf("[hooks] hold %s voided", hold.ID)
}

func (LogHooks) OnCreditAdjusted(adjustment domain.CreditAdjustment) {
	log.Printf("[hooks] credit %s customer=%s %s %d balance=%d", adjustment.ID, adjustment.CustomerID, adjustment.Type, adjustment.AmountCents, adjustment.NewBalanceCents)
}

func (s *Service) notify(fn func(Hooks)) {
	if s.hooks == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[hooks] WARN: hook panicked: %v", r)
		}
	}()
	fn(s.hooks)
}
