package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/vision"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, reply string) *vision.RawAnalysis {
	t.Helper()
	raw, err := vision.ParseReply(reply)
	require.NoError(t, err)
	return raw
}

func TestNormalizeFillsDefaultsForMinimalReply(t *testing.T) {
	result := NormalizeAnalysis(parse(t, `{"contains_food": true, "total_calories": 450}`))

	assert.True(t, result.ContainsFood)
	assert.Equal(t, "Unknown Dish", result.DishName)
	assert.Equal(t, "Unknown", result.Cuisine)
	assert.Equal(t, "Unknown", result.CookingMethod)
	assert.Equal(t, "N/A", result.ServingSize)
	assert.Equal(t, "N/A", result.PortionComparison)
	assert.Equal(t, []domain.Ingredient{}, result.Ingredients)
	assert.Equal(t, []string{}, result.Allergens)
	assert.Equal(t, 450.0, result.TotalCalories)
	assert.Equal(t, 0.7, result.ConfidenceScore)
	assert.Empty(t, result.Error)
}

func TestNormalizeNoFoodDefaultsConfidence(t *testing.T) {
	result := NormalizeAnalysis(parse(t, `{"contains_food": false}`))
	assert.False(t, result.ContainsFood)
	assert.Equal(t, 0.1, result.ConfidenceScore)
	assert.NotNil(t, result.Ingredients)
}

func TestNormalizeClampsConfidence(t *testing.T) {
	high := NormalizeAnalysis(parse(t, `{"contains_food": true, "confidence_score": 1.7}`))
	assert.Equal(t, 1.0, high.ConfidenceScore)

	low := NormalizeAnalysis(parse(t, `{"contains_food": true, "confidence_score": -0.2}`))
	assert.Equal(t, 0.0, low.ConfidenceScore)

	zero := NormalizeAnalysis(parse(t, `{"contains_food": true, "confidence_score": 0}`))
	assert.Equal(t, 0.0, zero.ConfidenceScore, "an explicit zero is not replaced by the default")
}

func TestNormalizeKeepsPresentValues(t *testing.T) {
	result := NormalizeAnalysis(parse(t, `{
		"contains_food": true,
		"dish_name": "  Margherita Pizza ",
		"cuisine": "Italian",
		"ingredients": [{"name": "mozzarella", "calories": 180}, {"quantity": "2 leaves"}],
		"macros": {"protein": 24, "carbs": -3},
		"allergens": ["dairy", "Dairy", " gluten ", ""],
		"confidence_score": 0.85
	}`))

	assert.Equal(t, "Margherita Pizza", result.DishName)
	assert.Equal(t, "Italian", result.Cuisine)
	require.Len(t, result.Ingredients, 2)
	assert.Equal(t, domain.Ingredient{Name: "mozzarella", Quantity: "N/A", Calories: 180}, result.Ingredients[0])
	assert.Equal(t, domain.Ingredient{Name: "Unknown", Quantity: "2 leaves"}, result.Ingredients[1])
	assert.Equal(t, 24.0, result.Macros.Protein)
	assert.Equal(t, 0.0, result.Macros.Carbs)
	assert.Equal(t, []string{"dairy", "gluten"}, result.Allergens)
	assert.Equal(t, 0.85, result.ConfidenceScore)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	replies := []string{
		`{"contains_food": true, "total_calories": 450}`,
		`{"contains_food": false, "dish_name": "a cat"}`,
		`{"contains_food": true, "dish_name": "Pho", "ingredients": [{"name": ""}], "allergens": ["fish", "FISH"], "confidence_score": 3}`,
	}
	for _, reply := range replies {
		once := NormalizeAnalysis(parse(t, reply))
		twice := NormalizeResult(once)
		assert.Equal(t, once, twice, reply)
	}
}

func TestNormalizeNilReply(t *testing.T) {
	result := NormalizeAnalysis(nil)
	assert.False(t, result.ContainsFood)
	assert.Equal(t, DefaultDishName, result.DishName)
	assert.Equal(t, DefaultNoFoodConfidence, result.ConfidenceScore)
}
