package csvmap

import "github.com/Henri-Kulmala/ProductManager/internal/models"

// Column names after header normalization.
const (
	colName            = "nimi"
	colDiscountedPrice = "alennettu hinta"
	colRegularPrice    = "normaali hinta"
	colImages          = "kuvat"
	colPrimaryEAN      = "gtin, upc, ean, or isbn"
)

// MapRow derives an import candidate from one normalized CSV row. It is
// deterministic and total: missing columns simply become empty fields, so a
// candidate is produced for every row and validation decides its fate later.
func MapRow(d Dialect, r NormalizedRow) models.ProductInput {
	name := r.Get(colName)

	price := r.Get(colDiscountedPrice)
	if price == "" {
		price = r.Get(colRegularPrice)
	}
	price = NormalizePriceString(price)

	photoURL := FirstCommaItem(r.Get(colImages))

	ean := r.Get(colPrimaryEAN)
	if ean == "" {
		ean = d.PickAttributeValue(r, IsEANName, FirstCommaItem)
	}

	return models.ProductInput{
		Name:         name,
		Size:         d.PickAttributeValue(r, LooksLikeSize, FirstCommaItem),
		Ingredients:  d.PickAttributeValue(r, LooksLikeIngredients, CleanAttributeValue),
		Allergens:    d.PickAttributeValue(r, LooksLikeAllergens, CleanAttributeValue),
		PhotoURL:     photoURL,
		Price:        price,
		EAN:          ean,
		Producer:     d.PickAttributeValue(r, LooksLikeProducer, CleanAttributeValue),
		ProducedIn:   d.PickAttributeValue(r, LooksLikeProducedIn, CleanAttributeValue),
		ECodes:       d.PickAttributeValue(r, LooksLikeECodes, CleanAttributeValue),
		Preservation: d.PickAttributeValue(r, LooksLikePreservation, CleanAttributeValue),
	}
}
