package vision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RawIngredient is one ingredient exactly as the model reported it.
type RawIngredient struct {
	Name     *string  `json:"name"`
	Quantity *string  `json:"quantity"`
	Calories *float64 `json:"calories"`
}

// RawMacros holds macro grams as reported; nil means not provided.
type RawMacros struct {
	Protein        *float64 `json:"protein"`
	Carbs          *float64 `json:"carbs"`
	Fiber          *float64 `json:"fiber"`
	Fat            *float64 `json:"fat"`
	SaturatedFat   *float64 `json:"saturated_fat"`
	UnsaturatedFat *float64 `json:"unsaturated_fat"`
}

// RawAnalysis is a structurally valid model reply. Only ContainsFood is
// guaranteed; every other field is nil when the model left it out.
type RawAnalysis struct {
	ContainsFood      bool            `json:"contains_food"`
	DishName          *string         `json:"dish_name"`
	Cuisine           *string         `json:"cuisine"`
	ServingSize       *string         `json:"serving_size"`
	CookingMethod     *string         `json:"cooking_method"`
	Ingredients       []RawIngredient `json:"ingredients"`
	TotalCalories     *float64        `json:"total_calories"`
	Macros            *RawMacros      `json:"macros"`
	PortionComparison *string         `json:"portion_comparison"`
	Allergens         []string        `json:"allergens"`
	ConfidenceScore   *float64        `json:"confidence_score"`
}

// ReplyError means the model answered but the answer was unusable.
type ReplyError struct {
	Reason string
	Err    error
}

func (e *ReplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid model reply: %s: %v", e.Reason, e.Err)
	}
	return "invalid model reply: " + e.Reason
}

func (e *ReplyError) Unwrap() error { return e.Err }

// CallError means the request to the model itself failed.
type CallError struct {
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("vision model call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// IsReplyError reports whether err (or anything it wraps) is a *ReplyError.
func IsReplyError(err error) bool {
	var re *ReplyError
	return errors.As(err, &re)
}

// StripCodeFence removes a surrounding ``` or ```json fence, if any.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// drop the info string (e.g. "json") up to the first newline
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		if info := strings.TrimSpace(text[:nl]); !strings.ContainsAny(info, "{[") {
			text = text[nl+1:]
		}
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ParseReply validates the model's text reply and decodes it strictly.
func ParseReply(text string) (*RawAnalysis, error) {
	body := StripCodeFence(text)
	if body == "" {
		return nil, &ReplyError{Reason: "reply is empty"}
	}
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return nil, &ReplyError{Reason: "reply is not a JSON object"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, &ReplyError{Reason: "reply is not valid JSON", Err: err}
	}

	containsFood, ok := fields["contains_food"]
	if !ok {
		return nil, &ReplyError{Reason: "contains_food is missing"}
	}
	var flag bool
	if err := json.Unmarshal(containsFood, &flag); err != nil || bytes.Equal(bytes.TrimSpace(containsFood), []byte("null")) {
		return nil, &ReplyError{Reason: "contains_food is not a boolean"}
	}

	var raw RawAnalysis
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, &ReplyError{Reason: "reply does not match the analysis schema", Err: err}
	}
	return &raw, nil
}
