package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/Henri-Kulmala/ProductManager/internal/models"
	"github.com/Henri-Kulmala/ProductManager/internal/repository"
)

// stubStore serves a fixed product list ordered newest first and records
// mutations.
type stubStore struct {
	products []models.Product
	created  []models.ProductInput
	patched  map[string]models.ProductPatch
	deleted  []string
}

func newStubStore(n int) *stubStore {
	s := &stubStore{patched: map[string]models.ProductPatch{}}
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.products = append(s.products, models.Product{
			ID:        fmt.Sprintf("p%02d", n-i),
			Name:      fmt.Sprintf("Tuote %d", n-i),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return s
}

func (s *stubStore) List(_ context.Context, search string, limit int, cursor string) ([]models.Product, error) {
	start := 0
	if cursor != "" {
		found := false
		for i, p := range s.products {
			if p.ID == cursor {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, repository.ErrInvalidCursor
		}
	}
	var out []models.Product
	for _, p := range s.products[start:] {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, p)
		if len(out) == limit+1 {
			break
		}
	}
	return out, nil
}

func (s *stubStore) ListPublic(ctx context.Context, search string, limit int, cursor string) ([]models.Product, error) {
	return s.List(ctx, search, limit, cursor)
}

func (s *stubStore) GetByID(_ context.Context, id string) (*models.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubStore) Create(_ context.Context, in models.ProductInput) (*models.Product, error) {
	s.created = append(s.created, in)
	return &models.Product{ID: "new-id", Name: in.Name}, nil
}

func (s *stubStore) Patch(_ context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	if _, err := s.GetByID(context.Background(), id); err != nil {
		return nil, err
	}
	s.patched[id] = patch
	return &models.Product{ID: id}, nil
}

func (s *stubStore) Delete(_ context.Context, id string) error {
	if _, err := s.GetByID(context.Background(), id); err != nil {
		return err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubImporter struct {
	batches [][]models.ProductInput
	resp    models.BulkResponse
}

func (s *stubImporter) ImportBatch(_ context.Context, batch []models.ProductInput) models.BulkResponse {
	s.batches = append(s.batches, batch)
	return s.resp
}

func newTestRouter(store ProductStore, importer Importer) *mux.Router {
	h := NewProductHandler(store, importer, nil)
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/public/products", h.ListPublicProducts).Methods("GET")
	api.HandleFunc("/products", h.ListProducts).Methods("GET")
	api.HandleFunc("/products", h.CreateProduct).Methods("POST")
	api.HandleFunc("/products/bulk", h.BulkImport).Methods("POST")
	api.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	api.HandleFunc("/products/{id}", h.UpdateProduct).Methods("PUT")
	api.HandleFunc("/products/{id}", h.DeleteProduct).Methods("DELETE")
	return r
}

func doRequest(t *testing.T, router *mux.Router, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPaginationTwoPages(t *testing.T) {
	router := newTestRouter(newStubStore(25), &stubImporter{})

	rec := doRequest(t, router, "GET", "/api/products?limit=20", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var page models.ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 20 {
		t.Fatalf("first page has %d items, want 20", len(page.Items))
	}
	if page.NextCursor == nil || *page.NextCursor != page.Items[19].ID {
		t.Fatalf("nextCursor = %v, want id of the 20th item %q", page.NextCursor, page.Items[19].ID)
	}

	rec = doRequest(t, router, "GET", "/api/products?limit=20&cursor="+*page.NextCursor, nil)
	var page2 models.ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page2); err != nil {
		t.Fatal(err)
	}
	if len(page2.Items) != 5 {
		t.Errorf("second page has %d items, want 5", len(page2.Items))
	}
	if page2.NextCursor != nil {
		t.Errorf("terminal page nextCursor = %v, want null", *page2.NextCursor)
	}
	if page2.Items[0].ID == page.Items[19].ID {
		t.Error("second page must start strictly after the cursor row")
	}
}

func TestListInvalidCursor(t *testing.T) {
	router := newTestRouter(newStubStore(3), &stubImporter{})
	rec := doRequest(t, router, "GET", "/api/products?cursor=gone", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListLimitDefaultsAndCap(t *testing.T) {
	store := newStubStore(30)
	router := newTestRouter(store, &stubImporter{})

	var page models.ListResponse
	rec := doRequest(t, router, "GET", "/api/products?limit=banana", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 20 {
		t.Errorf("unparseable limit: got %d items, want default 20", len(page.Items))
	}

	rec = doRequest(t, router, "GET", "/api/products?limit=500", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 30 {
		t.Errorf("limit capped at 100: got %d items, want all 30", len(page.Items))
	}
}

func TestCreateProduct(t *testing.T) {
	store := newStubStore(0)
	router := newTestRouter(store, &stubImporter{})

	rec := doRequest(t, router, "POST", "/api/products",
		models.ProductInput{Name: "Kahvi", Price: "7,9"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(store.created) != 1 || store.created[0].Price != "7.90" {
		t.Errorf("stored input = %+v, want canonicalized price", store.created)
	}
}

func TestCreateProductValidation(t *testing.T) {
	router := newTestRouter(newStubStore(0), &stubImporter{})

	rec := doRequest(t, router, "POST", "/api/products", models.ProductInput{Name: ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name: status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, "POST", "/api/products",
		models.ProductInput{Name: "X", PhotoURL: "not-a-url"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad photoUrl: status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "photoUrl") {
		t.Errorf("error must name the field: %s", rec.Body.String())
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	router := newTestRouter(newStubStore(1), &stubImporter{})
	rec := doRequest(t, router, "PUT", "/api/products/missing", models.ProductPatch{})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteProduct(t *testing.T) {
	store := newStubStore(1)
	router := newTestRouter(store, &stubImporter{})

	rec := doRequest(t, router, "DELETE", "/api/products/p01", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	rec = doRequest(t, router, "DELETE", "/api/products/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBulkImportRejectsBadBatchBeforeWrites(t *testing.T) {
	importer := &stubImporter{}
	router := newTestRouter(newStubStore(0), importer)

	rec := doRequest(t, router, "POST", "/api/products/bulk", models.BulkRequest{
		Products: []models.ProductInput{
			{Name: "Ehjä", Price: "3.50"},
			{Name: "", Price: "1.00"}, // schema failure
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "products.1.name") {
		t.Errorf("error must point at the failing row: %s", rec.Body.String())
	}
	if len(importer.batches) != 0 {
		t.Error("no rows may be processed when the batch fails validation")
	}
}

func TestBulkImportProcessesBatch(t *testing.T) {
	importer := &stubImporter{resp: models.BulkResponse{
		Count: 2,
		Results: []models.RowOutcome{
			{Row: 0, Action: models.ActionCreated, ID: "a"},
			{Row: 1, Action: models.ActionUpdated, ID: "b"},
		},
	}}
	router := newTestRouter(newStubStore(0), importer)

	rec := doRequest(t, router, "POST", "/api/products/bulk", models.BulkRequest{
		Products: []models.ProductInput{{Name: "Yksi", Price: "2.00"}, {Name: "Kaksi", Price: "4,90", EAN: "640001"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.BulkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || len(resp.Results) != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if len(importer.batches) != 1 || len(importer.batches[0]) != 2 {
		t.Errorf("batches = %+v", importer.batches)
	}
}
