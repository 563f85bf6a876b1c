package model

import "strings"

// Category groups transactions for budgeting and simulation.
type Category string

// Transaction categories.
const (
	CategorySalary         Category = "SALARY"
	CategoryHousing        Category = "HOUSING"
	CategoryUtilities      Category = "UTILITIES"
	CategoryFood           Category = "FOOD"
	CategoryTransportation Category = "TRANSPORTATION"
	CategoryEntertainment  Category = "ENTERTAINMENT"
	CategoryShopping       Category = "SHOPPING"
	CategoryHealthcare     Category = "HEALTHCARE"
	CategorySavings        Category = "SAVINGS"
	CategoryInvestment     Category = "INVESTMENT"
	CategoryOther          Category = "OTHER"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategorySalary,
	CategoryHousing,
	CategoryUtilities,
	CategoryFood,
	CategoryTransportation,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealthcare,
	CategorySavings,
	CategoryInvestment,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts user input into a Category, ignoring case.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Label returns a human readable name for the category.
func (c Category) Label() string {
	s := strings.ToLower(string(c))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
