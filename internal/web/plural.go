package web

import "strings"

// unitPlurals covers the units the stock catalogue actually uses. Anything
// outside the table falls back to appending "s".
var unitPlurals = map[string]string{
	"box":    "boxes",
	"piece":  "pieces",
	"pack":   "packs",
	"bottle": "bottles",
	"gallon": "gallons",
	"set":    "sets",
	"roll":   "rolls",
	"bag":    "bags",
	"meter":  "meters",
	"ream":   "reams",
}

// PluralizeUnit renders a supply's unit of measure for the given quantity.
// An empty unit reads as "unit"/"units"; a unit already ending in "s" is
// kept as-is when plural.
func PluralizeUnit(unit string, qty int) string {
	u := strings.TrimSpace(unit)
	if u == "" {
		if qty == 1 {
			return "unit"
		}
		return "units"
	}
	if qty == 1 {
		return u
	}
	if plural, ok := unitPlurals[strings.ToLower(u)]; ok {
		return plural
	}
	if strings.HasSuffix(u, "s") {
		return u
	}
	return u + "s"
}
