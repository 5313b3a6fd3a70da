package csvmap

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect describes how one export variant lays out its generic attribute
// slots. The current WooCommerce export carries six "Ominaisuus N nimi" /
// "Ominaisuus N arvo(t)" pairs; an older variant only has two. The iteration
// below is slot-count-agnostic so both go through the same code path.
type Dialect struct {
	Slots    int
	NameKey  string
	ValueKey string
}

var (
	// DialectWooFI is the current six-slot Finnish WooCommerce export.
	DialectWooFI = Dialect{Slots: 6, NameKey: "ominaisuus %d nimi", ValueKey: "ominaisuus %d arvo(t)"}
	// DialectWooFILegacy is the older two-slot variant of the same export.
	DialectWooFILegacy = Dialect{Slots: 2, NameKey: "ominaisuus %d nimi", ValueKey: "ominaisuus %d arvo(t)"}
)

// PickAttributeValue walks the attribute slots in order and returns the
// transformed value of the first slot whose name matches and whose value is
// non-empty. Later slots are not inspected. Returns "" when nothing matches.
func (d Dialect) PickAttributeValue(r NormalizedRow, match func(string) bool, transform func(string) string) string {
	for idx := 1; idx <= d.Slots; idx++ {
		name := r[fmt.Sprintf(d.NameKey, idx)]
		value := strings.TrimSpace(r[fmt.Sprintf(d.ValueKey, idx)])
		if !match(name) || value == "" {
			continue
		}
		if transform != nil {
			return transform(value)
		}
		return value
	}
	return ""
}

// Attribute-name predicates. One regexp per semantic field so each is
// testable on its own and new vocabulary can be added without touching the
// slot iteration.
var (
	reSize         = regexp.MustCompile(`(?i)(^|\s)(koko|annoskoko|tuotekoko)(\s|$)`)
	reIngredients  = regexp.MustCompile(`(?i)(^|\s)(ainesosat)(\s|$)`)
	reAllergens    = regexp.MustCompile(`(?i)(allergeenit|allergiat|allergens?)`)
	reProducer     = regexp.MustCompile(`(?i)(^|\s)(valmistaja|tuottaja|producer)(\s|$)`)
	reProducedIn   = regexp.MustCompile(`(?i)(^|\s)(valmistusmaa|alkuperämaa|made in)(\s|$)`)
	reECodes       = regexp.MustCompile(`(?i)(^|\s)(e[-\s]?koodit|e[-\s]?codes)(\s|$)`)
	rePreservation = regexp.MustCompile(`(?i)(^|\s)(säilytys|preservation|storage)(\s|$)`)
)

func LooksLikeSize(s string) bool         { return reSize.MatchString(s) }
func LooksLikeIngredients(s string) bool  { return reIngredients.MatchString(s) }
func LooksLikeAllergens(s string) bool    { return reAllergens.MatchString(s) }
func LooksLikeProducer(s string) bool     { return reProducer.MatchString(s) }
func LooksLikeProducedIn(s string) bool   { return reProducedIn.MatchString(s) }
func LooksLikeECodes(s string) bool       { return reECodes.MatchString(s) }
func LooksLikePreservation(s string) bool { return rePreservation.MatchString(s) }

// IsEANName matches an attribute literally named "EAN", used as the fallback
// when the primary EAN column is empty.
func IsEANName(s string) bool { return strings.EqualFold(strings.TrimSpace(s), "ean") }
