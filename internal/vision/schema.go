package vision

import "cloud.google.com/go/vertexai/genai"

// AnalysisPrompt is the fixed instruction sent with every photo.
const AnalysisPrompt = `You are a nutrition analyst. Look at the photo and decide whether it shows food or drink.

If it does not, reply with {"contains_food": false} and optionally a short "dish_name" describing what the photo shows.

If it does, estimate:
- dish_name, cuisine, serving_size (e.g. "1 plate (350g)") and cooking_method
- ingredients: each with name, quantity and estimated calories
- total_calories for the visible portion
- macros in grams: protein, carbs, fiber, fat, saturated_fat, unsaturated_fat
- portion_comparison: the portion compared to a familiar object (e.g. "about the size of a fist")
- allergens: common allergens likely present (gluten, dairy, nuts, eggs, soy, shellfish, fish, sesame)
- confidence_score between 0 and 1

Only report what you can see or reasonably infer. Omit a field rather than guessing wildly.
Respond with a single JSON object and nothing else.`

// AnalysisSchema declares the reply shape to the model. Only contains_food is
// required; everything else may be omitted by the model.
func AnalysisSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	num := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeNumber, Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"contains_food":  {Type: genai.TypeBoolean, Description: "true when the photo shows food or drink"},
			"dish_name":      str("name of the dish"),
			"cuisine":        str("cuisine or culinary tradition"),
			"serving_size":   str("estimated serving size"),
			"cooking_method": str("how the dish was prepared"),
			"ingredients": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":     str("ingredient name"),
						"quantity": str("estimated quantity with unit"),
						"calories": num("estimated kcal for this ingredient"),
					},
					Required: []string{"name"},
				},
			},
			"total_calories": num("estimated kcal for the whole portion"),
			"macros": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"protein":         num("grams"),
					"carbs":           num("grams"),
					"fiber":           num("grams"),
					"fat":             num("grams"),
					"saturated_fat":   num("grams"),
					"unsaturated_fat": num("grams"),
				},
			},
			"portion_comparison": str("portion compared to a familiar object"),
			"allergens": {
				Type:  genai.TypeArray,
				Items: str("allergen"),
			},
			"confidence_score": num("confidence between 0 and 1"),
		},
		Required: []string{"contains_food"},
	}
}
