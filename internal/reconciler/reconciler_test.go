package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Henri-Kulmala/ProductManager/internal/models"
)

// fakeStore is an in-memory Store with the same lookup semantics as the
// postgres repository.
type fakeStore struct {
	products []*models.Product
	nextID   int
	failFor  string // product name that makes Create/UpdateFields fail
}

func (s *fakeStore) FindByEAN(_ context.Context, ean string) (*models.Product, error) {
	for _, p := range s.products {
		if p.EAN != nil && *p.EAN == ean {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByName(_ context.Context, name string) (*models.Product, error) {
	for _, p := range s.products {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Create(_ context.Context, in models.ProductInput) (*models.Product, error) {
	if in.Name == s.failFor {
		return nil, errors.New("storage failure")
	}
	s.nextID++
	p := &models.Product{
		ID:        fmt.Sprintf("id-%d", s.nextID),
		Name:      in.Name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	applyInput(p, in, false)
	s.products = append(s.products, p)
	return p, nil
}

func (s *fakeStore) UpdateFields(_ context.Context, id string, in models.ProductInput) (*models.Product, error) {
	if in.Name == s.failFor {
		return nil, errors.New("storage failure")
	}
	for _, p := range s.products {
		if p.ID == id {
			applyInput(p, in, true)
			p.UpdatedAt = time.Now()
			return p, nil
		}
	}
	return nil, errors.New("no such id")
}

func applyInput(p *models.Product, in models.ProductInput, preserveEAN bool) {
	set := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}
	p.Name = in.Name
	p.Size = set(in.Size)
	p.Ingredients = set(in.Ingredients)
	p.Allergens = set(in.Allergens)
	p.PhotoURL = set(in.PhotoURL)
	p.Price = set(in.Price)
	if in.EAN != "" || !preserveEAN {
		p.EAN = set(in.EAN)
	}
	p.Producer = set(in.Producer)
	p.ProducedIn = set(in.ProducedIn)
	p.ECodes = set(in.ECodes)
	p.Preservation = set(in.Preservation)
}

func TestUpsertCreatesWhenNoMatch(t *testing.T) {
	store := &fakeStore{}
	r := New(store)

	p, created, err := r.Upsert(context.Background(), models.ProductInput{Name: "Kahvi", EAN: "640001"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("want created = true")
	}
	if len(store.products) != 1 || p.Name != "Kahvi" {
		t.Errorf("store = %+v", store.products)
	}
}

func TestSameEANTwiceInOneBatch(t *testing.T) {
	store := &fakeStore{}
	r := New(store)

	batch := []models.ProductInput{
		{Name: "Kahvi", EAN: "640001", Price: "7.90"},
		{Name: "Kahvi Tumma", EAN: "640001", Price: "8.90"},
	}
	resp := r.ImportBatch(context.Background(), batch)

	if resp.Count != 2 {
		t.Errorf("Count = %d, want 2", resp.Count)
	}
	if len(store.products) != 1 {
		t.Fatalf("got %d stored products, want exactly 1", len(store.products))
	}
	p := store.products[0]
	if p.Name != "Kahvi Tumma" || p.Price == nil || *p.Price != "8.90" {
		t.Errorf("second row must win: %+v", p)
	}
	if resp.Results[0].Action != models.ActionCreated || resp.Results[1].Action != models.ActionUpdated {
		t.Errorf("outcomes = %+v", resp.Results)
	}
}

func TestNameFallbackCaseInsensitive(t *testing.T) {
	store := &fakeStore{}
	r := New(store)
	ctx := context.Background()

	if _, _, err := r.Upsert(ctx, models.ProductInput{Name: "Tomaattikeitto", EAN: "640002"}); err != nil {
		t.Fatal(err)
	}
	_, created, err := r.Upsert(ctx, models.ProductInput{Name: "tomaattikeitto", Price: "3.50"})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("want update via name fallback, got create")
	}
	if len(store.products) != 1 {
		t.Fatalf("duplicate created: %d products", len(store.products))
	}
	p := store.products[0]
	// Candidate had no EAN, so the stored one is preserved.
	if p.EAN == nil || *p.EAN != "640002" {
		t.Errorf("EAN = %v, want preserved 640002", p.EAN)
	}
	if p.Name != "tomaattikeitto" {
		t.Errorf("Name = %q, want candidate's casing", p.Name)
	}
}

func TestEANMatchBeatsNameMatch(t *testing.T) {
	store := &fakeStore{}
	r := New(store)
	ctx := context.Background()

	if _, _, err := r.Upsert(ctx, models.ProductInput{Name: "Vanha nimi", EAN: "640003"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Upsert(ctx, models.ProductInput{Name: "Uusi nimi", EAN: "640099"}); err != nil {
		t.Fatal(err)
	}

	// EAN points at the first record even though the name matches the second.
	_, created, err := r.Upsert(ctx, models.ProductInput{Name: "Uusi nimi", EAN: "640003"})
	if err != nil {
		t.Fatal(err)
	}
	if created || len(store.products) != 2 {
		t.Fatalf("created=%v products=%d", created, len(store.products))
	}
	if store.products[0].Name != "Uusi nimi" {
		t.Errorf("EAN-matched record not updated: %+v", store.products[0])
	}
}

func TestImportBatchBestEffort(t *testing.T) {
	store := &fakeStore{failFor: "Rikki"}
	r := New(store)

	batch := []models.ProductInput{
		{Name: "Ehjä yksi"},
		{Name: "Rikki"},
		{Name: "Ehjä kaksi"},
	}
	resp := r.ImportBatch(context.Background(), batch)

	if resp.Count != 2 {
		t.Errorf("Count = %d, want 2", resp.Count)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("Results = %d, want one per row", len(resp.Results))
	}
	if resp.Results[1].Action != models.ActionFailed || resp.Results[1].Error == "" {
		t.Errorf("row 1 outcome = %+v, want failure with reason", resp.Results[1])
	}
	if resp.Results[2].Action != models.ActionCreated {
		t.Errorf("rows after a failure must still be processed: %+v", resp.Results[2])
	}
}
