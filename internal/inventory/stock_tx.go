package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
)

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type mutationRecorder interface {
	IncStockMutation(historyType string)
}

// StockTx binds the ledger, the history log and the aggregator to one
// transaction. Every path that changes a quantity goes through it: mutate the
// ledger, Record the change, and Settle before the transaction commits.
type StockTx struct {
	Ledger  *LedgerRepository
	History *HistoryRepository

	tx      *gorm.DB
	agg     *Aggregator
	metrics mutationRecorder
	touched map[uuid.UUID]struct{}
	totals  map[uuid.UUID]int
}

// NewStockTx wraps tx. metrics may be nil.
func NewStockTx(tx *gorm.DB, metrics mutationRecorder) *StockTx {
	return &StockTx{
		Ledger:  NewLedgerRepository(tx),
		History: NewHistoryRepository(tx),
		tx:      tx,
		agg:     NewAggregator(),
		metrics: metrics,
		touched: map[uuid.UUID]struct{}{},
		totals:  map[uuid.UUID]int{},
	}
}

// DB exposes the underlying transaction.
func (s *StockTx) DB() *gorm.DB {
	return s.tx
}

// Touch marks a product for recompute at Settle.
func (s *StockTx) Touch(productID uuid.UUID) {
	s.touched[productID] = struct{}{}
}

// Forget drops productID from the pending recompute set. Used when the
// product row itself is deleted inside the transaction.
func (s *StockTx) Forget(productID uuid.UUID) {
	delete(s.touched, productID)
}

// Record appends rec to the history log and marks its product touched.
func (s *StockTx) Record(ctx context.Context, rec Record) (*models.InventoryHistory, error) {
	entry, err := s.History.Append(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.Touch(rec.ProductID)
	if s.metrics != nil {
		s.metrics.IncStockMutation(string(rec.Type))
	}
	return entry, nil
}

// RecordChange records moving entry from before to after. Nothing is written
// when the quantity did not change.
func (s *StockTx) RecordChange(ctx context.Context, entry *models.InventoryEntry, typ enums.HistoryType, before, after int, reason string, actorID *uuid.UUID) error {
	s.Touch(entry.ProductID)
	rec, ok := Change(entry, typ, before, after, reason, actorID)
	if !ok {
		return nil
	}
	_, err := s.Record(ctx, rec)
	return err
}

// RecordCreated records the initial quantity of a new entry. Creation is
// always logged, even at zero.
func (s *StockTx) RecordCreated(ctx context.Context, entry *models.InventoryEntry, reason string, actorID *uuid.UUID) error {
	entryID := entry.ID
	before, after := 0, entry.Quantity
	_, err := s.Record(ctx, Record{
		ProductID: entry.ProductID,
		EntryID:   &entryID,
		Type:      enums.HistoryTypeIncrease,
		Quantity:  entry.Quantity,
		Before:    &before,
		After:     &after,
		Reason:    reason,
		ActorID:   actorID,
	})
	return err
}

// Settle recomputes every touched product in lock order.
func (s *StockTx) Settle(ctx context.Context) error {
	ids := make([]uuid.UUID, 0, len(s.touched))
	for id := range s.touched {
		ids = append(ids, id)
	}
	for _, id := range SortedIDs(ids) {
		total, err := s.agg.Recompute(ctx, s.tx, id)
		if err != nil {
			return err
		}
		s.totals[id] = total
		delete(s.touched, id)
	}
	return nil
}

// Total returns the aggregate written for productID by the last Settle.
func (s *StockTx) Total(productID uuid.UUID) (int, bool) {
	total, ok := s.totals[productID]
	return total, ok
}
