package news

// The closed set of site sections.
const (
	Politics    = "سياسة"
	Economy     = "اقتصاد"
	Sports      = "رياضة"
	Technology  = "تكنولوجيا"
	Culture     = "ثقافة"
	Environment = "بيئة"
)

// DefaultCategory is used when nothing else matches.
const DefaultCategory = Politics

// Categories lists the sections in display order.
var Categories = []string{Politics, Economy, Sports, Technology, Culture, Environment}

// IsCategory reports whether c belongs to the closed set.
func IsCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// NormalizeCategory maps anything outside the set to DefaultCategory.
func NormalizeCategory(c string) string {
	if IsCategory(c) {
		return c
	}
	return DefaultCategory
}
