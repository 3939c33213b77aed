package types

// UserHistory is what the history store keeps for a single user id.
// Each recommendation cycle replaces it wholesale.
type UserHistory struct {
	PreferredCountries  []string `json:"preferred_countries"`
	PastRecommendations []string `json:"past_recommendations"`
}

// EmptyUserHistory is returned for users without a stored history.
func EmptyUserHistory() UserHistory {
	return UserHistory{
		PreferredCountries:  []string{},
		PastRecommendations: []string{},
	}
}
