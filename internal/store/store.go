package store

import (
	"context"
	"errors"
	"time"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrValidation marks rejected input: the operation was never applied and
	// the caller can correct the request and retry.
	ErrValidation = errors.New("validation failed")
	// ErrConsistency marks a request that is well-formed but would break an
	// invariant of already-committed state (e.g. returning more than was sold).
	ErrConsistency = errors.New("consistency violation")
)

// SaleCommit carries everything CommitSale applies in one atomic step.
// StockDeltas holds the quantity to deduct per product; a negative delta
// restores stock (a resumed hold line whose quantity was lowered).
type SaleCommit struct {
	Sale             domain.Sale
	StockDeltas      map[string]float64
	Customer         domain.Customer
	RegisterCustomer bool
}

// ReturnCommit carries a return and the per-product quantities to restock.
type ReturnCommit struct {
	Return     domain.ReturnTransaction
	RestockQty map[string]float64
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	SetStock(ctx context.Context, productID string, stock float64) (*domain.Product, error)
	// AdjustStock adds each delta to the product's stock (negative removes),
	// all or nothing; any product that would go negative fails the batch.
	AdjustStock(ctx context.Context, deltas map[string]float64) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	CommitSale(ctx context.Context, commit SaleCommit) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error)

	CommitReturn(ctx context.Context, commit ReturnCommit) (*domain.ReturnTransaction, error)
	ListReturnsBySale(ctx context.Context, saleID string) ([]domain.ReturnTransaction, error)
	// ReturnedQtyBySale sums already-returned quantities per product across
	// every return committed for the sale.
	ReturnedQtyBySale(ctx context.Context, saleID string) (map[string]float64, error)

	CreateHold(ctx context.Context, hold domain.HoldTransaction) (*domain.HoldTransaction, error)
	ListHolds(ctx context.Context) ([]domain.HoldTransaction, error)
	// PopHold removes the hold and returns it; stock stays untouched because
	// the held units remain reserved by the resuming cart.
	PopHold(ctx context.Context, holdID string) (*domain.HoldTransaction, error)
	// VoidHold removes the hold and restores its reserved units to stock.
	VoidHold(ctx context.Context, holdID string) (*domain.HoldTransaction, error)

	AppendCreditAdjustment(ctx context.Context, adjustment domain.CreditAdjustment) (*domain.CreditAdjustment, error)
	ListCreditAdjustments(ctx context.Context, customerID string, limit int) ([]domain.CreditAdjustment, error)

	GetDailySummary(ctx context.Context, from time.Time, to time.Time) (domain.DailySummary, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
