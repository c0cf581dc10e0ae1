package domain

// Category labels a record with one value from a closed, product-defined set.
type Category string

const (
	CategoryGenAI    Category = "GenAI"
	CategoryHardware Category = "Hardware"
	CategoryFinance  Category = "Finance"
	CategoryCoding   Category = "Coding"
	CategorySecurity Category = "Security"
	CategoryCloud    Category = "Cloud"
	CategoryOther    Category = "Other"
)

// categories is the single authoritative enumeration; components consult it
// through Categories and ParseCategory instead of repeating the literals.
var categories = []Category{
	CategoryGenAI,
	CategoryHardware,
	CategoryFinance,
	CategoryCoding,
	CategorySecurity,
	CategoryCloud,
	CategoryOther,
}

// Categories returns the closed set in declaration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory maps a raw value onto the closed set, coercing anything
// unknown to CategoryOther. Malformed classification degrades to
// miscategorized-but-present rather than failing the ingestion.
func ParseCategory(raw string) Category {
	for _, c := range categories {
		if string(c) == raw {
			return c
		}
	}
	return CategoryOther
}
