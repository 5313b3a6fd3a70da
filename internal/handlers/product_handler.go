package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Henri-Kulmala/ProductManager/internal/models"
	"github.com/Henri-Kulmala/ProductManager/internal/repository"
	"github.com/Henri-Kulmala/ProductManager/internal/validation"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ProductStore is the repository surface the handlers need.
type ProductStore interface {
	List(ctx context.Context, search string, limit int, cursor string) ([]models.Product, error)
	ListPublic(ctx context.Context, search string, limit int, cursor string) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, in models.ProductInput) (*models.Product, error)
	Patch(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

// Importer reconciles a validated bulk batch.
type Importer interface {
	ImportBatch(ctx context.Context, batch []models.ProductInput) models.BulkResponse
}

// EventPublisher receives an event after every successful mutation.
type EventPublisher interface {
	Publish(event models.ProductEvent) error
}

type ProductHandler struct {
	store    ProductStore
	importer Importer
	events   EventPublisher
}

func NewProductHandler(store ProductStore, importer Importer, events EventPublisher) *ProductHandler {
	return &ProductHandler{store: store, importer: importer, events: events}
}

// ListProducts serves the admin listing with search and cursor pagination.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.store.List)
}

// ListPublicProducts serves the storefront feed. Same shape, no auth, and
// the default first page is answered from cache.
func (h *ProductHandler) ListPublicProducts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.store.ListPublic)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context, search string, limit int, cursor string) ([]models.Product, error)) {

	query := r.URL.Query()
	search := query.Get("search")
	cursor := query.Get("cursor")
	limit := parseLimit(query.Get("limit"))

	items, err := fetch(r.Context(), search, limit, cursor)
	if err == repository.ErrInvalidCursor {
		writeError(w, http.StatusBadRequest, "invalid cursor")
		return
	}
	if err != nil {
		log.Printf("Failed to list products: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	// The store returns one extra row; its presence means another page
	// exists and the last returned item's id becomes the cursor.
	resp := models.ListResponse{Items: items}
	if len(items) > limit {
		resp.Items = items[:limit]
		resp.NextCursor = &resp.Items[limit-1].ID
	}
	if resp.Items == nil {
		resp.Items = []models.Product{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	product, err := h.store.GetByID(r.Context(), id)
	if err == repository.ErrNotFound {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		log.Printf("Failed to get product %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validation.ValidateInput(&in); errs != nil {
		writeValidationError(w, errs)
		return
	}

	product, err := h.store.Create(r.Context(), in)
	if err != nil {
		log.Printf("Failed to create product: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	h.publish(models.EventProductCreated, product.ID, product)
	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch models.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validation.ValidatePatch(&patch); errs != nil {
		writeValidationError(w, errs)
		return
	}

	product, err := h.store.Patch(r.Context(), id, patch)
	if err == repository.ErrNotFound {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		log.Printf("Failed to update product %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	h.publish(models.EventProductUpdated, product.ID, product)
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := h.store.Delete(r.Context(), id)
	if err == repository.ErrNotFound {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		log.Printf("Failed to delete product %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	h.publish(models.EventProductDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) publish(eventType, id string, product *models.Product) {
	if h.events == nil {
		return
	}
	err := h.events.Publish(models.ProductEvent{
		Type:      eventType,
		ProductID: id,
		Product:   product,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Failed to publish %s event for %s: %v", eventType, id, err)
	}
}

// parseLimit falls back to the default on anything unparseable and caps at
// the maximum.
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeValidationError(w http.ResponseWriter, errs validation.Errors) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  errs.Error(),
		"fields": errs,
	})
}
