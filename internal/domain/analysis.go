package domain

import "time"

// Ingredient is one detected component of a dish.
type Ingredient struct {
	Name     string  `json:"name" bson:"name"`
	Quantity string  `json:"quantity" bson:"quantity"`
	Calories float64 `json:"calories" bson:"calories"`
}

// Macros are macronutrient estimates in grams.
type Macros struct {
	Protein        float64 `json:"protein" bson:"protein"`
	Carbs          float64 `json:"carbs" bson:"carbs"`
	Fiber          float64 `json:"fiber" bson:"fiber"`
	Fat            float64 `json:"fat" bson:"fat"`
	SaturatedFat   float64 `json:"saturated_fat" bson:"saturatedFat"`
	UnsaturatedFat float64 `json:"unsaturated_fat" bson:"unsaturatedFat"`
}

// AnalysisResult is the canonical, fully populated nutrition analysis of one photo.
// ContainsFood decides whether the remaining fields carry meaning.
type AnalysisResult struct {
	ContainsFood      bool         `json:"contains_food" bson:"containsFood"`
	DishName          string       `json:"dish_name" bson:"dishName"`
	Cuisine           string       `json:"cuisine" bson:"cuisine"`
	ServingSize       string       `json:"serving_size" bson:"servingSize"`
	CookingMethod     string       `json:"cooking_method" bson:"cookingMethod"`
	Ingredients       []Ingredient `json:"ingredients" bson:"ingredients"`
	TotalCalories     float64      `json:"total_calories" bson:"totalCalories"`
	Macros            Macros       `json:"macros" bson:"macros"`
	PortionComparison string       `json:"portion_comparison" bson:"portionComparison"`
	Allergens         []string     `json:"allergens" bson:"allergens"`
	ConfidenceScore   float64      `json:"confidence_score" bson:"confidenceScore"`
	Error             string       `json:"error,omitempty" bson:"error,omitempty"` // failure paths only
}

// AnalysisRecord is a persisted analysis in the food_analyses table.
// Records are immutable once written.
type AnalysisRecord struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	ImageURL  string         `json:"image_url"`
	ObjectKey string         `json:"s3_key,omitempty"`
	Result    AnalysisResult `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}
