package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/vision"
	"math"
	"strings"
)

// Defaults for fields the model did not provide.
const (
	DefaultDishName          = "Unknown Dish"
	DefaultCuisine           = "Unknown"
	DefaultCookingMethod     = "Unknown"
	DefaultServingSize       = "N/A"
	DefaultPortionComparison = "N/A"
	DefaultIngredientName    = "Unknown"
	DefaultQuantity          = "N/A"

	DefaultFoodConfidence   = 0.7
	DefaultNoFoodConfidence = 0.1
)

// NormalizeAnalysis turns a validated model reply into the canonical result:
// every optional field gets an explicit default and the confidence score is
// clamped into [0,1].
func NormalizeAnalysis(raw *vision.RawAnalysis) domain.AnalysisResult {
	if raw == nil {
		return NormalizeResult(domain.AnalysisResult{ConfidenceScore: DefaultNoFoodConfidence})
	}

	result := domain.AnalysisResult{
		ContainsFood:      raw.ContainsFood,
		DishName:          deref(raw.DishName),
		Cuisine:           deref(raw.Cuisine),
		ServingSize:       deref(raw.ServingSize),
		CookingMethod:     deref(raw.CookingMethod),
		TotalCalories:     derefNum(raw.TotalCalories),
		PortionComparison: deref(raw.PortionComparison),
		Allergens:         raw.Allergens,
	}

	result.Ingredients = make([]domain.Ingredient, 0, len(raw.Ingredients))
	for _, ing := range raw.Ingredients {
		result.Ingredients = append(result.Ingredients, domain.Ingredient{
			Name:     deref(ing.Name),
			Quantity: deref(ing.Quantity),
			Calories: derefNum(ing.Calories),
		})
	}

	if m := raw.Macros; m != nil {
		result.Macros = domain.Macros{
			Protein:        derefNum(m.Protein),
			Carbs:          derefNum(m.Carbs),
			Fiber:          derefNum(m.Fiber),
			Fat:            derefNum(m.Fat),
			SaturatedFat:   derefNum(m.SaturatedFat),
			UnsaturatedFat: derefNum(m.UnsaturatedFat),
		}
	}

	if raw.ConfidenceScore != nil {
		result.ConfidenceScore = *raw.ConfidenceScore
	} else if raw.ContainsFood {
		result.ConfidenceScore = DefaultFoodConfidence
	} else {
		result.ConfidenceScore = DefaultNoFoodConfidence
	}

	return NormalizeResult(result)
}

// NormalizeResult fills defaults on an already shaped result. It only
// replaces empty values, so applying it twice changes nothing.
func NormalizeResult(r domain.AnalysisResult) domain.AnalysisResult {
	r.DishName = orDefault(r.DishName, DefaultDishName)
	r.Cuisine = orDefault(r.Cuisine, DefaultCuisine)
	r.ServingSize = orDefault(r.ServingSize, DefaultServingSize)
	r.CookingMethod = orDefault(r.CookingMethod, DefaultCookingMethod)
	r.PortionComparison = orDefault(r.PortionComparison, DefaultPortionComparison)
	r.TotalCalories = nonNegative(r.TotalCalories)

	ingredients := make([]domain.Ingredient, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		ingredients = append(ingredients, domain.Ingredient{
			Name:     orDefault(ing.Name, DefaultIngredientName),
			Quantity: orDefault(ing.Quantity, DefaultQuantity),
			Calories: nonNegative(ing.Calories),
		})
	}
	r.Ingredients = ingredients

	r.Macros = domain.Macros{
		Protein:        nonNegative(r.Macros.Protein),
		Carbs:          nonNegative(r.Macros.Carbs),
		Fiber:          nonNegative(r.Macros.Fiber),
		Fat:            nonNegative(r.Macros.Fat),
		SaturatedFat:   nonNegative(r.Macros.SaturatedFat),
		UnsaturatedFat: nonNegative(r.Macros.UnsaturatedFat),
	}

	allergens := make([]string, 0, len(r.Allergens))
	seen := make(map[string]bool, len(r.Allergens))
	for _, a := range r.Allergens {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		allergens = append(allergens, a)
	}
	r.Allergens = allergens

	r.ConfidenceScore = clamp01(r.ConfidenceScore)
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefNum(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func nonNegative(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}
