// Package reconciler matches incoming import candidates against stored
// products to decide create vs. update. Lookups run in priority order: by
// EAN first, then by case-insensitive name; the first hit wins.
package reconciler

import (
	"context"
	"strings"

	"github.com/Henri-Kulmala/ProductManager/internal/models"
)

// Store is the slice of the product repository the reconciler needs. Find
// methods return (nil, nil) when nothing matches.
type Store interface {
	FindByEAN(ctx context.Context, ean string) (*models.Product, error)
	FindByName(ctx context.Context, name string) (*models.Product, error)
	Create(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateFields(ctx context.Context, id string, in models.ProductInput) (*models.Product, error)
}

// Lookup is one reconciliation key. Returning (nil, nil) passes control to
// the next lookup in the chain.
type Lookup func(ctx context.Context, store Store, in models.ProductInput) (*models.Product, error)

func lookupByEAN(ctx context.Context, store Store, in models.ProductInput) (*models.Product, error) {
	ean := strings.TrimSpace(in.EAN)
	if ean == "" {
		return nil, nil
	}
	return store.FindByEAN(ctx, ean)
}

func lookupByName(ctx context.Context, store Store, in models.ProductInput) (*models.Product, error) {
	return store.FindByName(ctx, strings.TrimSpace(in.Name))
}

type Reconciler struct {
	store   Store
	lookups []Lookup
}

func New(store Store) *Reconciler {
	return &Reconciler{
		store:   store,
		lookups: []Lookup{lookupByEAN, lookupByName},
	}
}

// Upsert reconciles one candidate: the first matching lookup decides the
// record to update, otherwise a new one is created. Returns the post-write
// record and whether it was created.
func (r *Reconciler) Upsert(ctx context.Context, in models.ProductInput) (*models.Product, bool, error) {
	for _, lookup := range r.lookups {
		existing, err := lookup(ctx, r.store, in)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			updated, err := r.store.UpdateFields(ctx, existing.ID, in)
			return updated, false, err
		}
	}
	created, err := r.store.Create(ctx, in)
	return created, true, err
}

// ImportBatch processes a validated batch strictly in order, one row at a
// time, so rows sharing an EAN reconcile against each other's writes rather
// than stale reads. Row failures do not abort the batch; each row gets an
// outcome and Count reports the successes.
func (r *Reconciler) ImportBatch(ctx context.Context, batch []models.ProductInput) models.BulkResponse {
	resp := models.BulkResponse{Results: make([]models.RowOutcome, 0, len(batch))}
	for i, in := range batch {
		outcome := models.RowOutcome{Row: i}
		product, created, err := r.Upsert(ctx, in)
		switch {
		case err != nil:
			outcome.Action = models.ActionFailed
			outcome.Error = err.Error()
		case created:
			outcome.Action = models.ActionCreated
			outcome.ID = product.ID
			resp.Count++
		default:
			outcome.Action = models.ActionUpdated
			outcome.ID = product.ID
			resp.Count++
		}
		resp.Results = append(resp.Results, outcome)
	}
	return resp
}
