package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/Henri-Kulmala/ProductManager/internal/csvmap"
	"github.com/Henri-Kulmala/ProductManager/internal/models"
	"github.com/Henri-Kulmala/ProductManager/internal/validation"
)

// Stage holds the preview of a parsed CSV file: the mapped candidates, the
// rows that failed validation, and the selection the user edits before
// submitting. Selection is an explicit per-row flag, not ambient UI state.
type Stage struct {
	Delimiter rune
	Headers   []string
	Rows      []models.ProductInput
	Errors    []string
	selected  []bool
}

// LoadCSV parses an export, maps every row and stages the valid candidates.
// Import rows need both a name and a price; invalid rows are reported and
// dropped, the rest start out selected. Rows are numbered the way the file
// reads: 1 is the first data row under the header.
func LoadCSV(data []byte, dialect csvmap.Dialect) (*Stage, error) {
	parsed, err := csvmap.Parse(data)
	if err != nil {
		return nil, err
	}

	stage := &Stage{Delimiter: parsed.Delimiter, Headers: parsed.Headers}
	for i, row := range parsed.Rows {
		candidate := csvmap.MapRow(dialect, row)
		if errs := validation.ValidateImportRow(&candidate); errs != nil {
			stage.Errors = append(stage.Errors, fmt.Sprintf("row %d: %s", i+1, errs.Error()))
			continue
		}
		stage.Rows = append(stage.Rows, candidate)
		stage.selected = append(stage.selected, true)
	}
	return stage, nil
}

// Toggle flips the selection of one row.
func (s *Stage) Toggle(i int) {
	if i >= 0 && i < len(s.selected) {
		s.selected[i] = !s.selected[i]
	}
}

// ToggleAll selects or clears every row.
func (s *Stage) ToggleAll(checked bool) {
	for i := range s.selected {
		s.selected[i] = checked
	}
}

func (s *Stage) IsSelected(i int) bool {
	return i >= 0 && i < len(s.selected) && s.selected[i]
}

func (s *Stage) SelectedCount() int {
	n := 0
	for _, sel := range s.selected {
		if sel {
			n++
		}
	}
	return n
}

// AllSelected reports whether every staged row is selected; false for an
// empty stage.
func (s *Stage) AllSelected() bool {
	return len(s.Rows) > 0 && s.SelectedCount() == len(s.Rows)
}

// SelectedRows returns the candidates that will be submitted, in file order.
func (s *Stage) SelectedRows() []models.ProductInput {
	var out []models.ProductInput
	for i, sel := range s.selected {
		if sel {
			out = append(out, s.Rows[i])
		}
	}
	return out
}

// Submit sends only the selected rows as one bulk batch.
func (s *Stage) Submit(ctx context.Context, c *Client) (*models.BulkResponse, error) {
	rows := s.SelectedRows()
	if len(rows) == 0 {
		return nil, errors.New("no rows selected")
	}
	return c.BulkImport(ctx, rows)
}
