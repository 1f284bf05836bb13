package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		`{"contains_food": true}`:                  `{"contains_food": true}`,
		"```json\n{\"contains_food\": true}\n```":  `{"contains_food": true}`,
		"```\n{\"contains_food\": true}\n```":      `{"contains_food": true}`,
		"  ```json {\"contains_food\": true}```  ": `{"contains_food": true}`,
		"```{\"contains_food\": false}```":         `{"contains_food": false}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFence(in), "input %q", in)
	}
}

func TestParseReplyKeepsAbsentFieldsAbsent(t *testing.T) {
	raw, err := ParseReply("```json\n{\"contains_food\": true, \"total_calories\": 450}\n```")
	require.NoError(t, err)

	assert.True(t, raw.ContainsFood)
	require.NotNil(t, raw.TotalCalories)
	assert.Equal(t, 450.0, *raw.TotalCalories)
	assert.Nil(t, raw.DishName)
	assert.Nil(t, raw.Cuisine)
	assert.Nil(t, raw.Macros)
	assert.Nil(t, raw.ConfidenceScore)
	assert.Nil(t, raw.Ingredients)
	assert.Nil(t, raw.Allergens)
}

func TestParseReplyFullObject(t *testing.T) {
	raw, err := ParseReply(`{
		"contains_food": true,
		"dish_name": "Pad Thai",
		"cuisine": "Thai",
		"ingredients": [{"name": "rice noodles", "quantity": "150g", "calories": 280}, {"name": "peanuts"}],
		"macros": {"protein": 22, "fat": 18.5},
		"allergens": ["peanuts", "shellfish"],
		"confidence_score": 0.92
	}`)
	require.NoError(t, err)

	assert.Equal(t, "Pad Thai", *raw.DishName)
	require.Len(t, raw.Ingredients, 2)
	assert.Equal(t, 280.0, *raw.Ingredients[0].Calories)
	assert.Nil(t, raw.Ingredients[1].Quantity)
	require.NotNil(t, raw.Macros)
	assert.Equal(t, 18.5, *raw.Macros.Fat)
	assert.Nil(t, raw.Macros.Carbs)
	assert.Equal(t, []string{"peanuts", "shellfish"}, raw.Allergens)
	assert.Equal(t, 0.92, *raw.ConfidenceScore)
}

func TestParseReplyRejectsInvalidReplies(t *testing.T) {
	cases := map[string]string{
		"empty":                   "",
		"fence only":              "```json\n```",
		"prose":                   "This looks like a salad.",
		"array":                   `[{"contains_food": true}]`,
		"broken json":             `{"contains_food": true,`,
		"missing contains_food":   `{"dish_name": "Salad"}`,
		"string contains_food":    `{"contains_food": "yes"}`,
		"null contains_food":      `{"contains_food": null}`,
		"wrong type for calories": `{"contains_food": true, "total_calories": "lots"}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := ParseReply(reply)
			assert.Nil(t, raw)
			require.Error(t, err)
			assert.True(t, IsReplyError(err), "expected *ReplyError, got %T", err)
		})
	}
}
