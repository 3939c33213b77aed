package recommendation

import (
	"strings"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

// Locale holds every user-facing string of a recommendation reply.
type Locale struct {
	Code string
	// Header starts every reply.
	Header string
	// BlockTitle takes the rank, country name and score.
	BlockTitle string
	SeeTitle   string
	// SeeCity takes the city name.
	SeeCity     string
	GenericCity string
	Activities  string
	// WhyLine takes the explanation sentence.
	WhyLine string
	// WhyStatic takes the country name.
	WhyStatic string
	BestTime  string
	// Fallback takes the country name and the joined keywords.
	Fallback string
	// FallbackNoKeywords takes the country name.
	FallbackNoKeywords string
	NoMatches          string
	Welcome            string
	TranslationFailed  string
	EmptyPreferences   string
	InternalError      string
}

const divider = "--------------------------------------------------"

var Russian = Locale{
	Code:               "ru",
	Header:             "Рекомендации для вашего путешествия:\n\n",
	BlockTitle:         "%d. %s (совпадение: %.2f):\n\n",
	SeeTitle:           "**Что посмотреть/пройти:**\n",
	SeeCity:            "- %s и окрестности: исследуйте природные достопримечательности и местную культуру.\n",
	GenericCity:        "столица или крупные города",
	Activities:         "- Активности: треккинг, отдых у костра, знакомство с природой.\n\n",
	WhyLine:            "**Почему подходит под запрос:** %s\n\n",
	WhyStatic:          "%s предлагает уникальные возможности для активного отдыха и релакса на природе, с красивыми пейзажами и атмосферой свободы.",
	BestTime:           "**Лучшее время:** Май-сентябрь (проверьте погоду для точного планирования).\n",
	Fallback:           "%s идеально подходит для ваших предпочтений, таких как %s.",
	FallbackNoKeywords: "%s идеально подходит для ваших предпочтений.",
	NoMatches:          "Не удалось подобрать подходящие страны. Попробуйте описать предпочтения подробнее.\n",
	Welcome:            "Привет! Напиши свои предпочтения для путешествия, и я дам рекомендации!",
	TranslationFailed:  "Не удалось перевести ваш запрос. Попробуйте ещё раз позже.",
	EmptyPreferences:   "Напишите, какое путешествие вы хотите.",
	InternalError:      "Что-то пошло не так. Попробуйте ещё раз позже.",
}

var English = Locale{
	Code:               "en",
	Header:             "Recommendations for your trip:\n\n",
	BlockTitle:         "%d. %s (match: %.2f):\n\n",
	SeeTitle:           "**What to see/do:**\n",
	SeeCity:            "- %s and surroundings: explore the natural sights and the local culture.\n",
	GenericCity:        "the capital or the major cities",
	Activities:         "- Activities: trekking, campfire evenings, getting close to nature.\n\n",
	WhyLine:            "**Why it matches:** %s\n\n",
	WhyStatic:          "%s offers unique opportunities for active rest and relaxing in nature, with beautiful landscapes and an atmosphere of freedom.",
	BestTime:           "**Best time:** May-September (check the weather to plan precisely).\n",
	Fallback:           "%s is ideal for your preferences such as %s.",
	FallbackNoKeywords: "%s is ideal for your preferences.",
	NoMatches:          "No matching countries found. Try describing your preferences in more detail.\n",
	Welcome:            "Hi! Write your travel preferences and I will recommend destinations!",
	TranslationFailed:  "Your request could not be translated. Please try again later.",
	EmptyPreferences:   "Tell me what kind of trip you want.",
	InternalError:      "Something went wrong. Please try again later.",
}

// LocaleFor returns the locale for an ISO 639-1 code, Russian when unknown.
func LocaleFor(code string) Locale {
	switch strings.ToLower(code) {
	case "en":
		return English
	default:
		return Russian
	}
}

// FallbackCities are well-known destinations named in the "what to see" section.
var FallbackCities = map[string]types.FallbackCity{
	"Nepal":       {Name: "Pokhara", Lat: 28.2096, Lon: 83.9856},
	"Switzerland": {Name: "Zermatt", Lat: 46.0207, Lon: 7.7491},
	"El Salvador": {Name: "San Salvador", Lat: 13.6929, Lon: -89.2182},
	"Iceland":     {Name: "Reykjavik", Lat: 64.1466, Lon: -21.9426},
	"Mauritania":  {Name: "Nouakchott", Lat: 18.0735, Lon: -15.9582},
}
