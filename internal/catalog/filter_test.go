package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureCatalog() []Product {
	return []Product{
		{Code: "JM001", Name: "Catan", Price: 29990, Category: "Juegos de Mesa", Manufacturer: "Devir", Distributor: "Devir Chile", Description: "Juego de estrategia"},
		{Code: "JM002", Name: "Carcassonne", Price: 24990, Category: "Juegos de Mesa", Manufacturer: "Z-Man Games", Distributor: "Asmodee"},
		{Code: "AC001", Name: "Controlador Xbox Series X", Price: 59990, Category: "Accesorios", Manufacturer: "Microsoft", Distributor: "Microsoft Chile"},
		{Code: "AC002", Name: "HyperX Cloud II", Price: 79990, Category: "Accesorios", Manufacturer: "HyperX", Distributor: "Intcomex", Description: "Auriculares gamer"},
		{Code: "CO001", Name: "PlayStation 5", Price: 549990, Category: "Consolas", Manufacturer: "Sony", Distributor: "Sony Chile"},
		{Code: "CG001", Name: "PC Gamer ASUS ROG Strix", Price: 1299990, Category: "Computadores Gamers", Manufacturer: "ASUS", Distributor: "Intcomex"},
		{Code: "SG001", Name: "Silla Gamer Secretlab Titan", Price: 349990, Category: "Sillas Gamers", Manufacturer: "Secretlab"},
	}
}

func codes(products []Product) []string {
	out := make([]string, len(products))
	for i, product := range products {
		out[i] = product.Code
	}
	return out
}

func TestDeriveVisibleNoFiltersKeepsCatalogOrder(t *testing.T) {
	products := fixtureCatalog()
	visible := DeriveVisible(products, FilterState{})
	require.Equal(t, codes(products), codes(visible))
}

func TestDeriveVisibleEmptyCatalog(t *testing.T) {
	visible := DeriveVisible(nil, FilterState{Category: "Consolas", Query: "ps5"})
	require.NotNil(t, visible)
	require.Empty(t, visible)
}

func TestCategoryNarrowingIsExact(t *testing.T) {
	visible := DeriveVisible(fixtureCatalog(), FilterState{Category: "Juegos de Mesa"})
	require.Equal(t, []string{"JM001", "JM002"}, codes(visible))

	// case-sensitive, no normalization
	visible = DeriveVisible(fixtureCatalog(), FilterState{Category: "juegos de mesa"})
	require.Empty(t, visible)
}

func TestSearchIsCaseInsensitiveAndMultiField(t *testing.T) {
	// "hyperx" only appears in the manufacturer field of AC002 and in its
	// name; "sony" only in manufacturer/distributor for CO001.
	visible := DeriveVisible(fixtureCatalog(), FilterState{Query: "SONY"})
	require.Equal(t, []string{"CO001"}, codes(visible))

	// matches the description field only
	visible = DeriveVisible(fixtureCatalog(), FilterState{Query: "estrategia"})
	require.Equal(t, []string{"JM001"}, codes(visible))

	// code substring
	visible = DeriveVisible(fixtureCatalog(), FilterState{Query: "ac0"})
	require.Equal(t, []string{"AC001", "AC002"}, codes(visible))

	// surrounding whitespace is trimmed
	visible = DeriveVisible(fixtureCatalog(), FilterState{Query: "  catan  "})
	require.Equal(t, []string{"JM001"}, codes(visible))
}

func TestPriceCeilingBoundaryIsInclusive(t *testing.T) {
	ceiling := int64(59990)
	visible := DeriveVisible(fixtureCatalog(), FilterState{MaxPrice: &ceiling})
	assert.Contains(t, codes(visible), "AC001", "a product priced exactly at the ceiling is included")

	oneBelow := int64(59989)
	visible = DeriveVisible(fixtureCatalog(), FilterState{MaxPrice: &oneBelow})
	assert.NotContains(t, codes(visible), "AC001", "a product priced one unit above the ceiling is excluded")
}

func TestManufacturerAndDistributorSets(t *testing.T) {
	visible := DeriveVisible(fixtureCatalog(), FilterState{Manufacturers: []string{"Devir", "Sony"}})
	require.Equal(t, []string{"JM001", "CO001"}, codes(visible))

	visible = DeriveVisible(fixtureCatalog(), FilterState{Distributors: []string{"Intcomex"}})
	require.Equal(t, []string{"AC002", "CG001"}, codes(visible))

	// empty set means no filter
	visible = DeriveVisible(fixtureCatalog(), FilterState{Manufacturers: []string{}})
	require.Len(t, visible, len(fixtureCatalog()))
}

// Adding one more active constraint can only ever shrink the result.
func TestNarrowingIsStrictIntersection(t *testing.T) {
	products := fixtureCatalog()
	base := FilterState{Category: "Accesorios"}
	narrowed := base
	narrowed.Manufacturers = []string{"HyperX"}

	baseVisible := DeriveVisible(products, base)
	narrowedVisible := DeriveVisible(products, narrowed)

	require.NotEmpty(t, narrowedVisible)
	for _, product := range narrowedVisible {
		assert.Contains(t, codes(baseVisible), product.Code)
	}
}

func TestSortPriceAscending(t *testing.T) {
	visible := DeriveVisible(fixtureCatalog(), FilterState{Sort: SortPriceAsc})
	for i := 1; i < len(visible); i++ {
		require.LessOrEqual(t, visible[i-1].Price, visible[i].Price)
	}

	small := []Product{
		{Code: "B", Name: "B", Price: 500},
		{Code: "A", Name: "A", Price: 100},
		{Code: "C", Name: "C", Price: 300},
	}
	sorted := DeriveVisible(small, FilterState{Sort: SortPriceAsc})
	require.Equal(t, []string{"A", "C", "B"}, codes(sorted))
}

func TestSortPriceDescending(t *testing.T) {
	visible := DeriveVisible(fixtureCatalog(), FilterState{Sort: SortPriceDesc})
	for i := 1; i < len(visible); i++ {
		require.GreaterOrEqual(t, visible[i-1].Price, visible[i].Price)
	}
}

func TestSortNameAscendingIsCaseInsensitive(t *testing.T) {
	products := []Product{
		{Code: "1", Name: "zelda amiibo"},
		{Code: "2", Name: "Catan"},
		{Code: "3", Name: "auriculares"},
	}
	visible := DeriveVisible(products, FilterState{Sort: SortNameAsc})
	require.Equal(t, []string{"3", "2", "1"}, codes(visible))

	visible = DeriveVisible(products, FilterState{Sort: SortNameDesc})
	require.Equal(t, []string{"1", "2", "3"}, codes(visible))
}

func TestSortNameCollatesAccentedSpanishNames(t *testing.T) {
	products := []Product{
		{Code: "1", Name: "Zelda amiibo"},
		{Code: "2", Name: "Ñandú juegos"},
		{Code: "3", Name: "Árbol de dados"},
	}
	visible := DeriveVisible(products, FilterState{Sort: SortNameAsc})
	require.Equal(t, []string{"3", "2", "1"}, codes(visible),
		"accents and the enie must collate with their base letters, not past z")

	visible = DeriveVisible(products, FilterState{Sort: SortNameDesc})
	require.Equal(t, []string{"1", "2", "3"}, codes(visible))
}

func TestSortBestSellingUsesPopularityRanks(t *testing.T) {
	popularity := map[string]int{"AC002": 12, "JM001": 30, "CO001": 4}
	state := FilterState{Sort: SortBestSelling, Popularity: popularity}

	first := DeriveVisible(fixtureCatalog(), state)
	require.Equal(t, "JM001", first[0].Code)
	require.Equal(t, "AC002", first[1].Code)
	require.Equal(t, "CO001", first[2].Code)

	// deterministic: recomputation yields the same order, unranked
	// products keep catalog order among themselves
	second := DeriveVisible(fixtureCatalog(), state)
	require.Equal(t, codes(first), codes(second))
	require.Equal(t, []string{"JM002", "AC001", "CG001", "SG001"}, codes(second[3:]))
}

func TestSortStability(t *testing.T) {
	products := []Product{
		{Code: "X", Name: "Dixit", Price: 1000},
		{Code: "Y", Name: "Azul", Price: 1000},
		{Code: "Z", Name: "Root", Price: 500},
	}
	visible := DeriveVisible(products, FilterState{Sort: SortPriceAsc})
	require.Equal(t, []string{"Z", "X", "Y"}, codes(visible))
}

func TestSliderMaxIgnoresActiveFilters(t *testing.T) {
	products := fixtureCatalog()
	require.Equal(t, int64(1299990), SliderMax(products))
	require.Equal(t, int64(0), SliderMax(nil))
}

func TestFacetOptionsAreCategoryScoped(t *testing.T) {
	facets := FacetOptions(fixtureCatalog(), "Accesorios")
	require.Equal(t, []string{"HyperX", "Microsoft"}, facets.Manufacturers)
	require.Equal(t, []string{"Intcomex", "Microsoft Chile"}, facets.Distributors)

	// no category: the global distinct sets, empties skipped
	global := FacetOptions(fixtureCatalog(), "")
	assert.Contains(t, global.Manufacturers, "Secretlab")
	assert.NotContains(t, global.Distributors, "")
}

func TestClearResetsChoicesButKeepsPopularity(t *testing.T) {
	ceiling := int64(100)
	state := FilterState{
		Category:      "Consolas",
		Query:         "ps5",
		MaxPrice:      &ceiling,
		Manufacturers: []string{"Sony"},
		Distributors:  []string{"Sony Chile"},
		Sort:          SortPriceDesc,
		Popularity:    map[string]int{"CO001": 9},
	}
	state.Clear()

	require.Empty(t, state.Category)
	require.Empty(t, state.Query)
	require.Nil(t, state.MaxPrice)
	require.Nil(t, state.Manufacturers)
	require.Nil(t, state.Distributors)
	require.Equal(t, SortDefault, state.Sort)
	require.NotNil(t, state.Popularity)
}

func TestSortCriterionIsValid(t *testing.T) {
	for _, criterion := range []SortCriterion{SortDefault, SortBestSelling, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc} {
		require.True(t, criterion.IsValid(), "expected %s to be valid", criterion)
	}
	require.False(t, SortCriterion("aleatorio").IsValid())
}
