package ingest

// deniedLabels are denomination and administrative entries that never count as
// trackable container labels, no matter how often they appear in a sheet.
// The double-space variants are exact matches for how the upstream system
// writes them.
var deniedLabels = map[string]struct{}{
	"Bags":                     {},
	"Labels":                   {},
	"Non-std  : Pennies":       {},
	"Non-std  : Dimes":         {},
	"Non-std bags : Pennies":   {},
	"Non-std bags : Nickels":   {},
	"Non-std bags : Nickles":   {},
	"Non-std bags : Dimes":     {},
	"Non-std bags : Quarters":  {},
	"Non-std bags : Dollars":   {},
	"Boxes : Pennies":          {},
	"Boxes : Nickels":          {},
	"Boxes : Dimes":            {},
	"Boxes : Quarters":         {},
	"Boxes : Half dollars":     {},
	"Boxes : Dollars":          {},
	"Bags : Pennies":           {},
	"Bags : Nickels":           {},
	"Bags : Nickles":           {},
	"Bags : Dimes":             {},
	"Bags : Quarters":          {},
	"Bags : Half dollars":      {},
	"Bags : Dollars":           {},
}

// IsDeniedLabel reports whether a label is on the fixed deny-list.
func IsDeniedLabel(label string) bool {
	_, ok := deniedLabels[label]
	return ok
}
