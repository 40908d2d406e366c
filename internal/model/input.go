package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validation rule errors for RecipeInput.
var (
	ErrRequired          = errors.New("must not be empty")
	ErrNotPositiveInt    = errors.New("must be a positive whole number")
	ErrNoIngredients     = errors.New("must contain at least one non-blank line")
	ErrUnsupportedFormat = errors.New("must be a string, number or list of strings")
)

// Field names reported in validation errors.
const (
	FieldName         = "name"
	FieldCategory     = "category"
	FieldCookingTime  = "cookingTime"
	FieldDifficulty   = "difficulty"
	FieldServings     = "servings"
	FieldIngredients  = "ingredients"
	FieldInstructions = "instructions"
)

// ValidationError describes which field of a RecipeInput failed and why.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RecipeInput holds raw form values as entered by the user.
// Ingredients and Instructions are newline-separated blocks.
type RecipeInput struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	CookingTime  string `json:"cookingTime"`
	Difficulty   string `json:"difficulty"`
	Servings     string `json:"servings"`
	ImageURL     string `json:"imageUrl"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
}

// Normalize validates the input and converts it into a Recipe without an ID.
// The first violated rule is returned as a *ValidationError.
func (in RecipeInput) Normalize() (Recipe, error) {
	name, err := requireText(FieldName, in.Name)
	if err != nil {
		return Recipe{}, err
	}

	category, err := requireText(FieldCategory, in.Category)
	if err != nil {
		return Recipe{}, err
	}

	cookingTime, err := parsePositiveInt(FieldCookingTime, in.CookingTime)
	if err != nil {
		return Recipe{}, err
	}

	difficulty, err := requireText(FieldDifficulty, in.Difficulty)
	if err != nil {
		return Recipe{}, err
	}

	servings, err := parsePositiveInt(FieldServings, in.Servings)
	if err != nil {
		return Recipe{}, err
	}

	ingredients := SplitLines(in.Ingredients)
	if len(ingredients) == 0 {
		return Recipe{}, &ValidationError{Field: FieldIngredients, Err: ErrNoIngredients}
	}

	instructions := SplitLines(in.Instructions)
	if len(instructions) == 0 {
		return Recipe{}, &ValidationError{Field: FieldInstructions, Err: ErrRequired}
	}

	return Recipe{
		Name:         name,
		Category:     category,
		CookingTime:  cookingTime,
		Difficulty:   difficulty,
		Servings:     servings,
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Ingredients:  ingredients,
		Instructions: instructions,
	}, nil
}

// Validate checks that r satisfies the rules Normalize enforces on input.
// It is used for recipes that did not come through Normalize, such as a
// saved catalog. Violations are reported as a *ValidationError.
func (r Recipe) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return &ValidationError{Field: FieldName, Err: ErrRequired}
	case strings.TrimSpace(r.Category) == "":
		return &ValidationError{Field: FieldCategory, Err: ErrRequired}
	case r.CookingTime <= 0:
		return &ValidationError{Field: FieldCookingTime, Err: ErrNotPositiveInt}
	case strings.TrimSpace(r.Difficulty) == "":
		return &ValidationError{Field: FieldDifficulty, Err: ErrRequired}
	case r.Servings <= 0:
		return &ValidationError{Field: FieldServings, Err: ErrNotPositiveInt}
	case !r.Ingredients.valid():
		return &ValidationError{Field: FieldIngredients, Err: ErrNoIngredients}
	case !r.Instructions.valid():
		return &ValidationError{Field: FieldInstructions, Err: ErrRequired}
	}
	return nil
}

// InputFromRecipe builds the form values that reproduce r, used to prefill
// an edit form.
func InputFromRecipe(r Recipe) RecipeInput {
	return RecipeInput{
		Name:         r.Name,
		Category:     r.Category,
		CookingTime:  strconv.Itoa(r.CookingTime),
		Difficulty:   r.Difficulty,
		Servings:     strconv.Itoa(r.Servings),
		ImageURL:     r.ImageURL,
		Ingredients:  r.Ingredients.Text(),
		Instructions: r.Instructions.Text(),
	}
}

// UnmarshalJSON lets API clients send numbers for numeric fields and arrays
// for the ingredient and instruction blocks.
func (in *RecipeInput) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name         json.RawMessage `json:"name"`
		Category     json.RawMessage `json:"category"`
		CookingTime  json.RawMessage `json:"cookingTime"`
		Difficulty   json.RawMessage `json:"difficulty"`
		Servings     json.RawMessage `json:"servings"`
		ImageURL     json.RawMessage `json:"imageUrl"`
		Ingredients  json.RawMessage `json:"ingredients"`
		Instructions json.RawMessage `json:"instructions"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	fields := []struct {
		name string
		raw  json.RawMessage
		dst  *string
	}{
		{FieldName, aux.Name, &in.Name},
		{FieldCategory, aux.Category, &in.Category},
		{FieldCookingTime, aux.CookingTime, &in.CookingTime},
		{FieldDifficulty, aux.Difficulty, &in.Difficulty},
		{FieldServings, aux.Servings, &in.Servings},
		{"imageUrl", aux.ImageURL, &in.ImageURL},
		{FieldIngredients, aux.Ingredients, &in.Ingredients},
		{FieldInstructions, aux.Instructions, &in.Instructions},
	}

	for _, f := range fields {
		text, err := rawText(f.raw)
		if err != nil {
			return &ValidationError{Field: f.name, Err: ErrUnsupportedFormat}
		}
		*f.dst = text
	}

	return nil
}

// rawText flattens a JSON string, number or string array into form text.
func rawText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '[':
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", err
		}
		return strings.Join(items, "\n"), nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &ValidationError{Field: field, Err: ErrRequired}
	}
	return value, nil
}

func parsePositiveInt(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: field, Err: ErrNotPositiveInt}
	}
	return n, nil
}
