package product

import (
	"context"

	"github.com/google/uuid"

	"github.com/evacurves/store-backend/internal/inventory"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
	"github.com/evacurves/store-backend/pkg/types"
)

// variant is one cell of a product's size x color matrix.
type variant struct {
	Size  string
	Color string
	Stock int
}

func variantKey(size, color string) string {
	return size + "\x00" + color
}

// matrix expands sizes x colors; every color of a size carries the size's stock.
func matrix(sizes []types.Size, colors []types.Color) []variant {
	out := make([]variant, 0, len(sizes)*len(colors))
	for _, s := range sizes {
		for _, c := range colors {
			out = append(out, variant{Size: s.Name, Color: c.Name, Stock: s.Stock})
		}
	}
	return out
}

type entryDefaults struct {
	threshold int
	location  string
}

// reconcileVariants brings the product's ledger in line with the desired
// matrix inside the caller's transaction. The caller holds the product lock
// and settles stock afterwards.
func reconcileVariants(ctx context.Context, stock *inventory.StockTx, productID uuid.UUID, desired []variant, defaults entryDefaults, actorID *uuid.UUID) error {
	current, err := stock.Ledger.Get(ctx, productID)
	if err != nil {
		return err
	}
	existing := make(map[string]models.InventoryEntry, len(current))
	for _, e := range current {
		existing[variantKey(e.Size, e.Color)] = e
	}

	wanted := make(map[string]struct{}, len(desired))
	for _, v := range desired {
		key := variantKey(v.Size, v.Color)
		wanted[key] = struct{}{}

		if e, ok := existing[key]; ok && e.Quantity == v.Stock {
			continue
		}
		entry, before, created, err := stock.Ledger.Upsert(ctx, inventory.UpsertInput{
			ProductID:         productID,
			Size:              v.Size,
			Color:             v.Color,
			Quantity:          v.Stock,
			LowStockThreshold: defaults.threshold,
			Location:          defaults.location,
		})
		if err != nil {
			return err
		}
		if created {
			err = stock.RecordCreated(ctx, entry, inventory.ReasonVariantAdded, actorID)
		} else {
			err = stock.RecordChange(ctx, entry, "", before, v.Stock, inventory.ReasonStockUpdate, actorID)
		}
		if err != nil {
			return err
		}
	}

	// Combinations no longer in the matrix are removed along with their stock.
	for _, e := range current {
		if _, ok := wanted[variantKey(e.Size, e.Color)]; ok {
			continue
		}
		if err := recordRemoval(ctx, stock, e, actorID); err != nil {
			return err
		}
		if err := stock.Ledger.Delete(ctx, e.ID); err != nil {
			return err
		}
		stock.Touch(productID)
	}
	return nil
}

// recordRemoval logs a removed variant. Empty variants still get a zero
// decrease row so the removal shows up in history.
func recordRemoval(ctx context.Context, stock *inventory.StockTx, e models.InventoryEntry, actorID *uuid.UUID) error {
	if e.Quantity > 0 {
		return stock.RecordChange(ctx, &e, "", e.Quantity, 0, inventory.ReasonVariantRemoved, actorID)
	}
	entryID, zero := e.ID, 0
	_, err := stock.Record(ctx, inventory.Record{
		ProductID: e.ProductID,
		EntryID:   &entryID,
		Type:      enums.HistoryTypeDecrease,
		Quantity:  0,
		Before:    &zero,
		After:     &zero,
		Reason:    inventory.ReasonVariantRemoved,
		ActorID:   actorID,
	})
	return err
}
