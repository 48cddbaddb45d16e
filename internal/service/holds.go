package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/xid"
)

const (
	// sweepInterval is how often the background sweep reclassifies holds.
	sweepInterval = time.Second
	// urgentWindow marks a hold urgent once less than this remains.
	urgentWindow = 5 * time.Minute
	// maxUrgentShown caps how many urgent holds the alert snapshot surfaces;
	// the rest are only counted.
	maxUrgentShown = 3
)

// HoldCart parks the current cart as a hold. The held quantities leave stock
// in the same commit that records the hold, so another terminal cannot sell
// them while the customer is away. Member carts cannot be held; the member
// reference would go stale against the live ledger.
func (s *Service) HoldCart(ctx context.Context, req domain.HoldCreateRequest) (domain.HoldTransaction, error) {
	if req.TerminalID == "" {
		return domain.HoldTransaction{}, fmt.Errorf("%w: terminal id is required", store.ErrValidation)
	}
	if req.DurationMinutes < 1 {
		return domain.HoldTransaction{}, fmt.Errorf("%w: hold duration must be at least one minute", store.ErrValidation)
	}
	snap := s.carts.Snapshot(req.TerminalID)
	if len(snap.Lines) == 0 {
		return domain.HoldTransaction{}, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}
	if snap.Customer.Type == domain.CustomerMember {
		return domain.HoldTransaction{}, fmt.Errorf("%w: carts with a member customer cannot be held", store.ErrValidation)
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	now := time.Now().UTC()

	hold := domain.HoldTransaction{
		ID:              xid.New("hold"),
		TerminalID:      req.TerminalID,
		Lines:           snap.Lines,
		Customer:        snap.Customer,
		Note:            req.Note,
		CashierUsername: actor.Username,
		DurationMinutes: req.DurationMinutes,
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Duration(req.DurationMinutes) * time.Minute),
	}
	created, err := s.repo.CreateHold(ctx, hold)
	if err != nil {
		return domain.HoldTransaction{}, err
	}

	// The hold now owns every reservation the cart was carrying.
	_ = s.carts.Clear(req.TerminalID)

	s.logAudit(ctx, "hold_create", "hold", created.ID, fmt.Sprintf("terminal=%s,lines=%d,expires=%s", req.TerminalID, len(created.Lines), created.ExpiresAt.Format(time.RFC3339)))
	s.notify(func(h Hooks) { h.OnHoldCreated(*created) })
	return *created, nil
}

func (s *Service) ListHolds(ctx context.Context) ([]domain.HoldView, error) {
	holds, err := s.repo.ListHolds(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	views := make([]domain.HoldView, 0, len(holds))
	for _, hold := range holds {
		views = append(views, classifyHold(hold, now))
	}
	return views, nil
}

// ResumeHold moves a hold back into the terminal's cart. Stock is not
// re-incremented; the restored lines stay reserved until checkout, clear, or
// a new hold takes them over.
func (s *Service) ResumeHold(ctx context.Context, terminalID string, holdID string) (domain.CartView, error) {
	if terminalID == "" {
		return domain.CartView{}, fmt.Errorf("%w: terminal id is required", store.ErrValidation)
	}
	if !s.carts.IsEmpty(terminalID) {
		return domain.CartView{}, fmt.Errorf("%w: cart is not empty", store.ErrConsistency)
	}

	hold, err := s.repo.PopHold(ctx, holdID)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.carts.LoadHold(terminalID, *hold); err != nil {
		// The cart filled up between the emptiness check and the load. Put
		// the hold back; its lines are already fully reserved, so re-creating
		// it moves no stock.
		if _, recreateErr := s.repo.CreateHold(ctx, *hold); recreateErr != nil {
			log.Printf("[service] WARN: failed to restore hold %s after resume conflict: %v", hold.ID, recreateErr)
		}
		return domain.CartView{}, err
	}

	s.logAudit(ctx, "hold_resume", "hold", hold.ID, "terminal="+terminalID)
	s.notify(func(h Hooks) { h.OnHoldResumed(*hold) })
	return s.cartView(terminalID), nil
}

// VoidHold discards a hold and returns its reserved units to stock.
func (s *Service) VoidHold(ctx context.Context, holdID string) (domain.HoldTransaction, error) {
	voided, err := s.repo.VoidHold(ctx, holdID)
	if err != nil {
		return domain.HoldTransaction{}, err
	}

	s.logAudit(ctx, "hold_void", "hold", voided.ID, fmt.Sprintf("lines=%d", len(voided.Lines)))
	s.notify(func(h Hooks) { h.OnHoldVoided(*voided) })
	return *voided, nil
}

// RunHoldSweeper refreshes the advisory alert snapshot every second until the
// context is cancelled. The sweep only reads and reclassifies; an expired
// hold keeps its reservation until a cashier resumes or voids it.
func (s *Service) RunHoldSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RefreshHoldAlerts(ctx); err != nil {
				log.Printf("[service] WARN: hold sweep failed: %v", err)
			}
		}
	}
}

// RefreshHoldAlerts rebuilds the alert snapshot from the live holds.
func (s *Service) RefreshHoldAlerts(ctx context.Context) (domain.HoldAlerts, error) {
	holds, err := s.repo.ListHolds(ctx)
	if err != nil {
		return domain.HoldAlerts{}, err
	}
	alerts := buildHoldAlerts(holds, time.Now().UTC())

	s.alertsMu.Lock()
	s.alerts = alerts
	s.alertsMu.Unlock()
	return alerts, nil
}

// HoldAlerts returns the latest sweep snapshot.
func (s *Service) HoldAlerts() domain.HoldAlerts {
	s.alertsMu.RLock()
	defer s.alertsMu.RUnlock()
	return s.alerts
}

func classifyHold(hold domain.HoldTransaction, now time.Time) domain.HoldView {
	remaining := hold.ExpiresAt.Sub(now)
	view := domain.HoldView{Hold: hold, Status: domain.HoldActive}
	switch {
	case remaining <= 0:
		view.Status = domain.HoldExpired
	case remaining < urgentWindow:
		view.Status = domain.HoldUrgent
		view.RemainingSeconds = int64(remaining.Seconds())
	default:
		view.RemainingSeconds = int64(remaining.Seconds())
	}
	return view
}

// buildHoldAlerts expects holds sorted by expiry ascending, which keeps the
// surfaced urgent holds soonest-first.
func buildHoldAlerts(holds []domain.HoldTransaction, now time.Time) domain.HoldAlerts {
	alerts := domain.HoldAlerts{GeneratedAt: now}
	for _, hold := range holds {
		view := classifyHold(hold, now)
		switch view.Status {
		case domain.HoldExpired:
			alerts.ExpiredHeld++
		case domain.HoldUrgent:
			if len(alerts.Urgent) < maxUrgentShown {
				alerts.Urgent = append(alerts.Urgent, view)
			} else {
				alerts.MoreUrgent++
			}
		default:
			alerts.ActiveCount++
		}
	}
	return alerts
}
