package tax

import "strings"

// ProductForm is the closed set of cannabis product forms the engine
// recognises. Anything that fails to parse is FormUnknown: accessories,
// merchandise and legacy category strings all land there and contribute no
// excise or cultivation tax while still accruing sales tax.
type ProductForm int

const (
	FormUnknown ProductForm = iota
	FormFlower
	FormPreRoll
	FormEdible
	FormConcentrate
	FormTopical
	FormVape
	FormCartridge
)

var formNames = map[ProductForm]string{
	FormUnknown:     "unknown",
	FormFlower:      "flower",
	FormPreRoll:     "pre-roll",
	FormEdible:      "edible",
	FormConcentrate: "concentrate",
	FormTopical:     "topical",
	FormVape:        "vape",
	FormCartridge:   "cartridge",
}

func (f ProductForm) String() string {
	if name, ok := formNames[f]; ok {
		return name
	}
	return "unknown"
}

// CannabisTaxable reports whether items of this form are regulated cannabis
// goods subject to excise and cultivation tax.
func (f ProductForm) CannabisTaxable() bool {
	return f != FormUnknown
}

var normalizer = strings.NewReplacer("-", "", " ", "")

// ParseForm maps a raw category string to a product form. Matching is
// case-insensitive and accepts singular and plural spellings as well as
// hyphenated variants ("pre-roll", "prerolls", "Carts").
func ParseForm(category string) ProductForm {
	c := normalizer.Replace(strings.ToLower(strings.TrimSpace(category)))
	c = strings.TrimSuffix(c, "s")
	switch c {
	case "flower":
		return FormFlower
	case "preroll":
		return FormPreRoll
	case "edible":
		return FormEdible
	case "concentrate":
		return FormConcentrate
	case "topical":
		return FormTopical
	case "vape":
		return FormVape
	case "cart", "cartridge":
		return FormCartridge
	default:
		return FormUnknown
	}
}

// cultivationRateKey picks the per-gram rate bucket for a category. Flower and
// pre-rolls are taxed at the flower rate, trim and shake at the trim rate;
// every other form is taxed upstream at the manufacturer and carries no retail
// cultivation rate.
func cultivationRateKey(category string) string {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "flower"), strings.Contains(c, "pre-roll"), strings.Contains(c, "preroll"):
		return FormKeyFlower
	case strings.Contains(c, "trim"), strings.Contains(c, "shake"):
		return FormKeyTrim
	default:
		return ""
	}
}
