// Package validation schema-checks product payloads before they reach
// storage. The same rules apply to the create, update and bulk import paths.
package validation

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Henri-Kulmala/ProductManager/internal/models"
)

// FieldError is a single human-readable validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors collects every failure for one payload.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// CanonicalPrice validates a price string and canonicalizes it to exactly
// two decimal places. A comma is accepted as the decimal separator. The
// empty string is returned unchanged: price is an optional field.
func CanonicalPrice(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	n, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return "", fmt.Errorf("invalid price %q", s)
	}
	return strconv.FormatFloat(n, 'f', 2, 64), nil
}

// ValidateInput checks an import candidate or create body. It trims every
// field and canonicalizes the price in place, so a nil return means the
// input is ready for storage.
func ValidateInput(in *models.ProductInput) Errors {
	var errs Errors

	in.Name = strings.TrimSpace(in.Name)
	in.Size = strings.TrimSpace(in.Size)
	in.Ingredients = strings.TrimSpace(in.Ingredients)
	in.Allergens = strings.TrimSpace(in.Allergens)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	in.EAN = strings.TrimSpace(in.EAN)
	in.Producer = strings.TrimSpace(in.Producer)
	in.ProducedIn = strings.TrimSpace(in.ProducedIn)
	in.ECodes = strings.TrimSpace(in.ECodes)
	in.Preservation = strings.TrimSpace(in.Preservation)

	if in.Name == "" {
		errs = append(errs, FieldError{"name", "name is required"})
	}
	if in.PhotoURL != "" && !validAbsoluteURL(in.PhotoURL) {
		errs = append(errs, FieldError{"photoUrl", "invalid URL"})
	}
	if price, err := CanonicalPrice(in.Price); err != nil {
		errs = append(errs, FieldError{"price", err.Error()})
	} else {
		in.Price = price
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateImportRow layers the bulk-import rules on top of ValidateInput:
// an import row must carry a price, the manual create form does not.
func ValidateImportRow(in *models.ProductInput) Errors {
	errs := ValidateInput(in)
	if in.Price == "" {
		errs = append(errs, FieldError{"price", "price is required"})
	}
	return errs
}

// ValidatePatch applies the same rules to the fields present in a partial
// update. Present-but-empty optional fields are allowed: they clear the
// stored value.
func ValidatePatch(p *models.ProductPatch) Errors {
	var errs Errors

	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	for _, f := range []*string{
		p.Name, p.Size, p.Ingredients, p.Allergens, p.PhotoURL,
		p.EAN, p.Producer, p.ProducedIn, p.ECodes, p.Preservation,
	} {
		trim(f)
	}

	if p.Name != nil && *p.Name == "" {
		errs = append(errs, FieldError{"name", "name is required"})
	}
	if p.PhotoURL != nil && *p.PhotoURL != "" && !validAbsoluteURL(*p.PhotoURL) {
		errs = append(errs, FieldError{"photoUrl", "invalid URL"})
	}
	if p.Price != nil {
		if price, err := CanonicalPrice(*p.Price); err != nil {
			errs = append(errs, FieldError{"price", err.Error()})
		} else {
			*p.Price = price
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// An empty photoUrl means "no photo" and is accepted; a non-empty one must
// be a well-formed absolute URL.
func validAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}
