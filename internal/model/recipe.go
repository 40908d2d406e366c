// Package model defines data structures used throughout the application.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultImageURL is shown for recipes without an image.
const DefaultImageURL = "https://images.pexels.com/photos/1640777/pexels-photo-1640777.jpeg"

// CategoryAll disables category filtering.
const CategoryAll = "all"

// PreviewIngredients is how many ingredients a RecipeCard shows.
const PreviewIngredients = 3

// Recipe represents a single catalog entry.
type Recipe struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	CookingTime  int    `json:"cookingTime"`
	Difficulty   string `json:"difficulty"`
	Servings     int    `json:"servings"`
	ImageURL     string `json:"imageUrl,omitempty"`
	Ingredients  Lines  `json:"ingredients"`
	Instructions Lines  `json:"instructions"`
}

// UnmarshalJSON accepts both string and numeric ids. Older saved catalogs
// stored numeric ids, which are kept in their literal decimal form.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	type plain Recipe
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	r.ID = id

	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decoding recipe id: %w", err)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decoding recipe id: %w", err)
	}
	return n.String(), nil
}

// Clone returns a deep copy of the recipe.
func (r Recipe) Clone() Recipe {
	c := r
	c.Ingredients = append(Lines(nil), r.Ingredients...)
	c.Instructions = append(Lines(nil), r.Instructions...)
	return c
}

// Equal reports whether two recipes hold identical field values.
func (r Recipe) Equal(other Recipe) bool {
	return r.ID == other.ID &&
		r.Name == other.Name &&
		r.Category == other.Category &&
		r.CookingTime == other.CookingTime &&
		r.Difficulty == other.Difficulty &&
		r.Servings == other.Servings &&
		r.ImageURL == other.ImageURL &&
		r.Ingredients.Equal(other.Ingredients) &&
		r.Instructions.Equal(other.Instructions)
}

// DisplayImageURL returns the trimmed image URL, or fallback when none is set.
func (r Recipe) DisplayImageURL(fallback string) string {
	if u := strings.TrimSpace(r.ImageURL); u != "" {
		return u
	}
	return fallback
}

// IngredientPreview joins the first n ingredients for a card summary.
func (r Recipe) IngredientPreview(n int) string {
	if n <= 0 || len(r.Ingredients) == 0 {
		return ""
	}
	if len(r.Ingredients) <= n {
		return strings.Join(r.Ingredients, ", ")
	}
	return strings.Join(r.Ingredients[:n], ", ") + "..."
}

// RecipeCard is the summary shown in a catalog listing.
type RecipeCard struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	CookingTime       int    `json:"cookingTime"`
	Difficulty        string `json:"difficulty"`
	Servings          int    `json:"servings"`
	ImageURL          string `json:"imageUrl"`
	IngredientPreview string `json:"ingredientPreview"`
}

// Card builds the listing summary of r. A blank image is replaced with
// DefaultImageURL.
func (r Recipe) Card() RecipeCard {
	return RecipeCard{
		ID:                r.ID,
		Name:              r.Name,
		Category:          r.Category,
		CookingTime:       r.CookingTime,
		Difficulty:        r.Difficulty,
		Servings:          r.Servings,
		ImageURL:          r.DisplayImageURL(DefaultImageURL),
		IngredientPreview: r.IngredientPreview(PreviewIngredients),
	}
}

// MatchesSearch reports whether term is a case-insensitive substring of the
// name or of any ingredient. An empty term matches everything.
func (r Recipe) MatchesSearch(term string) bool {
	if term == "" {
		return true
	}

	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(r.Name), term) {
		return true
	}

	for _, ingredient := range r.Ingredients {
		if strings.Contains(strings.ToLower(ingredient), term) {
			return true
		}
	}

	return false
}

// Lines is an ordered list of non-blank text lines.
type Lines []string

// SplitLines splits a free-text block into trimmed, non-blank lines.
func SplitLines(block string) Lines {
	return cleanLines(strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n"))
}

func cleanLines(raw []string) Lines {
	lines := make(Lines, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// valid reports whether l holds at least one line and no blank ones.
func (l Lines) valid() bool {
	if len(l) == 0 {
		return false
	}
	for _, line := range l {
		if strings.TrimSpace(line) == "" {
			return false
		}
	}
	return true
}

// Text joins the lines back into a newline-separated block.
func (l Lines) Text() string {
	return strings.Join(l, "\n")
}

// Equal reports whether both lists hold the same lines in the same order.
func (l Lines) Equal(other Lines) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// MarshalJSON always encodes an array, never null.
func (l Lines) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// UnmarshalJSON accepts either an array of strings or a single
// newline-separated block, which older catalogs used for instructions.
// Both forms are trimmed and blank lines dropped.
func (l *Lines) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '"' {
		var block string
		if err := json.Unmarshal(data, &block); err != nil {
			return err
		}
		*l = SplitLines(block)
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = cleanLines(items)

	return nil
}
