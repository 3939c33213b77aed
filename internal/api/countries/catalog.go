package countries

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/biter777/countries"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

// Catalog is the immutable set of countries the recommender works with.
type Catalog struct {
	countries []types.Country
	byName    map[string]types.Country
	excluded  map[string]struct{}
}

// NewCatalog builds the catalog from the ISO 3166 list minus the excluded names.
func NewCatalog(excluded []string, logger *slog.Logger) *Catalog {
	var all []types.Country
	for _, code := range countries.All() {
		if !code.IsValid() {
			continue
		}
		all = append(all, types.Country{Name: code.String(), ISO3Code: code.Alpha3()})
	}
	c := NewCatalogFrom(all, excluded)
	logger.Info("Country catalog loaded",
		slog.Int("countries", len(c.countries)),
		slog.Int("excluded", len(c.excluded)))
	return c
}

// NewCatalogFrom builds a catalog from an explicit list. Duplicate names keep the first entry.
func NewCatalogFrom(list []types.Country, excluded []string) *Catalog {
	c := &Catalog{
		byName:   make(map[string]types.Country, len(list)),
		excluded: make(map[string]struct{}, len(excluded)),
	}
	for _, name := range excluded {
		c.excluded[normalize(name)] = struct{}{}
	}
	for _, country := range list {
		if country.Name == "" || c.IsExcluded(country.Name) {
			continue
		}
		if _, dup := c.byName[country.Name]; dup {
			continue
		}
		c.byName[country.Name] = country
		c.countries = append(c.countries, country)
	}
	slices.SortFunc(c.countries, func(a, b types.Country) int {
		return strings.Compare(a.Name, b.Name)
	})
	return c
}

// Countries returns a copy of the catalog sorted by name.
func (c *Catalog) Countries() []types.Country {
	return slices.Clone(c.countries)
}

// IsExcluded reports whether name is on the exclusion list (case-insensitive).
func (c *Catalog) IsExcluded(name string) bool {
	_, ok := c.excluded[normalize(name)]
	return ok
}

func (c *Catalog) Len() int {
	return len(c.countries)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
