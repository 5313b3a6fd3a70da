package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Henri-Kulmala/ProductManager/internal/models"
	"github.com/Henri-Kulmala/ProductManager/internal/validation"
)

// BulkImport validates the whole batch up front and only then hands it to
// the reconciler: a schema problem anywhere rejects the payload with 400
// before any write. Row-level storage errors during processing do not abort
// the batch; they show up in the per-row results.
func (h *ProductHandler) BulkImport(w http.ResponseWriter, r *http.Request) {
	var req models.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Products) == 0 {
		writeError(w, http.StatusBadRequest, "products must not be empty")
		return
	}

	var batchErrs validation.Errors
	for i := range req.Products {
		for _, fe := range validation.ValidateImportRow(&req.Products[i]) {
			batchErrs = append(batchErrs, validation.FieldError{
				Field:   fmt.Sprintf("products.%d.%s", i, fe.Field),
				Message: fe.Message,
			})
		}
	}
	if batchErrs != nil {
		writeValidationError(w, batchErrs)
		return
	}

	resp := h.importer.ImportBatch(r.Context(), req.Products)
	for _, outcome := range resp.Results {
		switch outcome.Action {
		case models.ActionCreated:
			h.publish(models.EventProductCreated, outcome.ID, nil)
		case models.ActionUpdated:
			h.publish(models.EventProductUpdated, outcome.ID, nil)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
