package domain

// Category classifies a transaction draft
type Category string

const (
	CategoryNone          Category = ""
	CategoryGeneral       Category = "GENERAL"
	CategoryFood          Category = "FOOD"
	CategoryTransport     Category = "TRANSPORT"
	CategoryHousing       Category = "HOUSING"
	CategoryUtilities     Category = "UTILITIES"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryTravel        Category = "TRAVEL"
	CategoryShopping      Category = "SHOPPING"
	CategoryHealth        Category = "HEALTH"
	CategoryOther         Category = "OTHER"
)

// Valid reports whether the category is one of the known values.
// CategoryNone is a valid state (nothing selected yet) but not a valid
// selection.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryFood, CategoryTransport, CategoryHousing,
		CategoryUtilities, CategoryEntertainment, CategoryTravel,
		CategoryShopping, CategoryHealth, CategoryOther:
		return true
	}
	return false
}
