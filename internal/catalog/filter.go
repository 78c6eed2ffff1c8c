package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortCriterion selects the ordering applied after narrowing.
type SortCriterion string

const (
	// SortDefault leaves the narrowing order untouched (catalog insertion order).
	SortDefault     SortCriterion = "categoria"
	SortBestSelling SortCriterion = "mas-vendidos"
	SortPriceAsc    SortCriterion = "precio-asc"
	SortPriceDesc   SortCriterion = "precio-desc"
	SortNameAsc     SortCriterion = "nombre-asc"
	SortNameDesc    SortCriterion = "nombre-desc"
)

var validSortCriteria = []SortCriterion{
	SortDefault,
	SortBestSelling,
	SortPriceAsc,
	SortPriceDesc,
	SortNameAsc,
	SortNameDesc,
}

// String implements fmt.Stringer.
func (s SortCriterion) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SortCriterion.
func (s SortCriterion) IsValid() bool {
	for _, candidate := range validSortCriteria {
		if candidate == s {
			return true
		}
	}
	return false
}

// FilterState holds the user-chosen narrowing and sorting parameters for
// the catalog view. The zero value filters nothing.
type FilterState struct {
	// Category narrows to an exact, case-sensitive category match.
	Category string
	// Query is a free-text search over name, code, manufacturer, and
	// description.
	Query string
	// MaxPrice is the price ceiling (inclusive); nil means no ceiling.
	MaxPrice *int64
	// Manufacturers and Distributors are inclusion sets; empty means
	// "no filter".
	Manufacturers []string
	Distributors  []string
	Sort          SortCriterion
	// Popularity ranks product codes by historical order volume. Only
	// consulted by SortBestSelling; derived once from the order history
	// (orders.PopularityByProduct) rather than reshuffled per render.
	Popularity map[string]int
}

// Clear resets every narrowing and sorting choice to its default. The
// popularity ranks are data, not a choice, and survive.
func (f *FilterState) Clear() {
	f.Category = ""
	f.Query = ""
	f.MaxPrice = nil
	f.Manufacturers = nil
	f.Distributors = nil
	f.Sort = SortDefault
}

// DeriveVisible computes the ordered product subset to display. It is a
// pure derivation: each stage narrows the output of the previous one, so
// adding a constraint can only ever shrink the result.
func DeriveVisible(products []Product, state FilterState) []Product {
	visible := make([]Product, 0, len(products))
	for _, product := range products {
		if !matchesCategory(product, state.Category) {
			continue
		}
		if !matchesQuery(product, state.Query) {
			continue
		}
		if !matchesMaxPrice(product, state.MaxPrice) {
			continue
		}
		if !matchesSet(product.Manufacturer, state.Manufacturers) {
			continue
		}
		if !matchesSet(product.Distributor, state.Distributors) {
			continue
		}
		visible = append(visible, product)
	}
	sortProducts(visible, state.Sort, state.Popularity)
	return visible
}

func matchesCategory(product Product, category string) bool {
	if category == "" {
		return true
	}
	return product.Category == category
}

// matchesQuery checks the lowercased term against name, code,
// manufacturer, and description. A missing field is a non-match for that
// field only.
func matchesQuery(product Product, query string) bool {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return true
	}
	for _, field := range []string{product.Name, product.Code, product.Manufacturer, product.Description} {
		if field == "" {
			continue
		}
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func matchesMaxPrice(product Product, maxPrice *int64) bool {
	if maxPrice == nil {
		return true
	}
	return product.Price <= *maxPrice
}

func matchesSet(value string, set []string) bool {
	if len(set) == 0 {
		return true
	}
	for _, candidate := range set {
		if candidate == value {
			return true
		}
	}
	return false
}

func sortProducts(products []Product, criterion SortCriterion, popularity map[string]int) {
	switch criterion {
	case SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price < products[j].Price
		})
	case SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price > products[j].Price
		})
	case SortNameAsc:
		coll := nameCollator()
		sort.SliceStable(products, func(i, j int) bool {
			return coll.CompareString(products[i].Name, products[j].Name) < 0
		})
	case SortNameDesc:
		coll := nameCollator()
		sort.SliceStable(products, func(i, j int) bool {
			return coll.CompareString(products[i].Name, products[j].Name) > 0
		})
	case SortBestSelling:
		sort.SliceStable(products, func(i, j int) bool {
			return popularity[products[i].Code] > popularity[products[j].Code]
		})
	}
}

// nameCollator orders names the way a Spanish-speaking shopper expects:
// accents and the ñ collate with their base letters instead of sorting
// past z. Collators carry internal buffers, so each sort gets its own.
func nameCollator() *collate.Collator {
	return collate.New(language.Spanish, collate.IgnoreCase)
}

// SliderMax returns the price ceiling bound for the filter controls: the
// maximum price across the UNFILTERED catalog. The bound deliberately
// ignores the active category, unlike the facet options below.
func SliderMax(products []Product) int64 {
	var max int64
	for _, product := range products {
		if product.Price > max {
			max = product.Price
		}
	}
	return max
}

// Facets are the checkbox populations for the filter controls.
type Facets struct {
	Manufacturers []string
	Distributors  []string
}

// FacetOptions collects the distinct, non-empty manufacturer and
// distributor values from the category-scoped subset of the catalog, so
// the controls only offer options relevant to the active category.
func FacetOptions(products []Product, category string) Facets {
	manufacturers := map[string]struct{}{}
	distributors := map[string]struct{}{}
	for _, product := range products {
		if !matchesCategory(product, category) {
			continue
		}
		if product.Manufacturer != "" {
			manufacturers[product.Manufacturer] = struct{}{}
		}
		if product.Distributor != "" {
			distributors[product.Distributor] = struct{}{}
		}
	}
	return Facets{
		Manufacturers: sortedKeys(manufacturers),
		Distributors:  sortedKeys(distributors),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
