package models

import "time"

// Product is a stored catalog record. Optional fields are pointers so the
// JSON output distinguishes "not set" (null) from an empty string, matching
// the nullable columns in the products table.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         *string   `json:"size"`
	Ingredients  *string   `json:"ingredients"`
	Allergens    *string   `json:"allergens"`
	PhotoURL     *string   `json:"photoUrl"`
	Price        *string   `json:"price"`
	EAN          *string   `json:"EAN"`
	Producer     *string   `json:"producer"`
	ProducedIn   *string   `json:"producedIn"`
	ECodes       *string   `json:"ECodes"`
	Preservation *string   `json:"preservation"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProductInput is an import candidate: one CSV row after mapping, or the
// body of a create request. All fields are plain strings; absent values are
// empty strings. It is never persisted directly.
type ProductInput struct {
	Name         string `json:"name"`
	Size         string `json:"size"`
	Ingredients  string `json:"ingredients"`
	Allergens    string `json:"allergens"`
	PhotoURL     string `json:"photoUrl"`
	Price        string `json:"price"`
	EAN          string `json:"EAN"`
	Producer     string `json:"producer"`
	ProducedIn   string `json:"producedIn"`
	ECodes       string `json:"ECodes"`
	Preservation string `json:"preservation"`
}

// ProductPatch is a partial update. Nil means "leave the stored value alone",
// a pointer to "" means "clear the field".
type ProductPatch struct {
	Name         *string `json:"name,omitempty"`
	Size         *string `json:"size,omitempty"`
	Ingredients  *string `json:"ingredients,omitempty"`
	Allergens    *string `json:"allergens,omitempty"`
	PhotoURL     *string `json:"photoUrl,omitempty"`
	Price        *string `json:"price,omitempty"`
	EAN          *string `json:"EAN,omitempty"`
	Producer     *string `json:"producer,omitempty"`
	ProducedIn   *string `json:"producedIn,omitempty"`
	ECodes       *string `json:"ECodes,omitempty"`
	Preservation *string `json:"preservation,omitempty"`
}

// ListResponse is one page of a cursor-paginated listing. NextCursor is the
// id of the last item on this page, or null on the terminal page.
type ListResponse struct {
	Items      []Product `json:"items"`
	NextCursor *string   `json:"nextCursor"`
}

// BulkRequest is the payload of a bulk import submission.
type BulkRequest struct {
	Products []ProductInput `json:"products"`
}

// Row outcome actions for bulk import.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionFailed  = "failed"
)

// RowOutcome reports what happened to one row of a bulk import batch.
type RowOutcome struct {
	Row    int    `json:"row"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BulkResponse summarizes a processed batch. Count is the number of rows
// that were created or updated.
type BulkResponse struct {
	Count   int          `json:"count"`
	Results []RowOutcome `json:"results"`
}

// Product event types published to Kafka.
const (
	EventProductCreated = "product_created"
	EventProductUpdated = "product_updated"
	EventProductDeleted = "product_deleted"
)

// ProductEvent is emitted after every successful catalog mutation.
type ProductEvent struct {
	Type      string    `json:"type"`
	ProductID string    `json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
