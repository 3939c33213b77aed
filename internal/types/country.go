package types

// Country is an entry of the static ISO country catalog.
type Country struct {
	Name     string `json:"name"`
	ISO3Code string `json:"iso3_code"`
}

// CountryEmbedding is the vector derived from a country's description.
type CountryEmbedding struct {
	CountryName string    `json:"country_name"`
	ISO3Code    string    `json:"iso3_code"`
	Vector      []float32 `json:"vector"`
}

// FallbackCity is a well-known destination used in the "what to see" section.
type FallbackCity struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}
