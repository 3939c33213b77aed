package countries

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

func TestNewCatalogFrom_ExcludesAndSorts(t *testing.T) {
	c := NewCatalogFrom([]types.Country{
		{Name: "Switzerland", ISO3Code: "CHE"},
		{Name: "Antarctica", ISO3Code: "ATA"},
		{Name: "Nepal", ISO3Code: "NPL"},
		{Name: "Nepal", ISO3Code: "XXX"},
		{Name: "", ISO3Code: "EMP"},
	}, []string{" antarctica "})

	got := c.Countries()
	require.Len(t, got, 2)
	assert.Equal(t, "Nepal", got[0].Name)
	assert.Equal(t, "NPL", got[0].ISO3Code)
	assert.Equal(t, "Switzerland", got[1].Name)

	assert.True(t, c.IsExcluded("Antarctica"))
	assert.False(t, c.IsExcluded("Nepal"))
}

func TestCountries_ReturnsCopy(t *testing.T) {
	c := NewCatalogFrom([]types.Country{{Name: "Iceland", ISO3Code: "ISL"}}, nil)
	list := c.Countries()
	list[0].Name = "Mutated"

	assert.Equal(t, "Iceland", c.Countries()[0].Name)
}

func TestNewCatalog_ISOList(t *testing.T) {
	c := NewCatalog([]string{"Antarctica"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Greater(t, c.Len(), 200)
	assert.True(t, c.IsExcluded("Antarctica"))
	for _, country := range c.Countries() {
		assert.NotEqual(t, "Antarctica", country.Name)
		assert.Len(t, country.ISO3Code, 3, country.Name)
	}
}
