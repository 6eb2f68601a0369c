package recipe

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Request limits.
const (
	MinDishNameLen = 2
	MaxDishNameLen = 100
	MinServings    = 1
	MaxServings    = 100
	MaxCuisineLen  = 50
)

// dishNamePattern allows letters, digits, underscore, whitespace and - ' , .
var dishNamePattern = regexp.MustCompile(`^[\p{L}\p{N}_\s\-',.]+$`)

// Request asks for a recipe scaled to a number of servings.
type Request struct {
	DishName            string   `json:"dish_name"`
	Servings            int      `json:"servings"`
	CuisineType         string   `json:"cuisine_type,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	DifficultyLevel     string   `json:"difficulty_level,omitempty"`
}

// Normalize trims the free text fields and drops blank restrictions.
func (r Request) Normalize() Request {
	r.DishName = strings.TrimSpace(r.DishName)
	r.CuisineType = strings.TrimSpace(r.CuisineType)
	r.DifficultyLevel = strings.TrimSpace(r.DifficultyLevel)
	if len(r.DietaryRestrictions) > 0 {
		kept := make([]string, 0, len(r.DietaryRestrictions))
		for _, d := range r.DietaryRestrictions {
			if d = strings.TrimSpace(d); d != "" {
				kept = append(kept, d)
			}
		}
		r.DietaryRestrictions = kept
	}
	return r
}

// Validate reports every field outside its limits as a *ValidationError.
func (r Request) Validate() error {
	var fields []FieldError
	add := func(field, msg string) {
		fields = append(fields, FieldError{Field: field, Message: msg})
	}

	switch n := utf8.RuneCountInString(r.DishName); {
	case n < MinDishNameLen:
		add("dish_name", "must be at least 2 characters")
	case n > MaxDishNameLen:
		add("dish_name", "must be at most 100 characters")
	case !dishNamePattern.MatchString(r.DishName):
		add("dish_name", "contains invalid characters")
	}
	if r.Servings < MinServings || r.Servings > MaxServings {
		add("servings", "must be between 1 and 100")
	}
	if utf8.RuneCountInString(r.CuisineType) > MaxCuisineLen {
		add("cuisine_type", "must be at most 50 characters")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Ingredient is one scaled ingredient line.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	Notes    string  `json:"notes,omitempty"`
}

// NutritionalInfo is the free form per serving breakdown the model returns,
// typically calories_per_serving, protein_grams, carbs_grams and fat_grams.
type NutritionalInfo map[string]any

// Recipe is the validated generator output.
type Recipe struct {
	DishName             string          `json:"dish_name"`
	Servings             int             `json:"servings"`
	TotalPrepTimeMinutes int             `json:"total_prep_time_minutes"`
	CuisineType          string          `json:"cuisine_type,omitempty"`
	Difficulty           string          `json:"difficulty,omitempty"`
	Ingredients          []Ingredient    `json:"ingredients"`
	CookingInstructions  []string        `json:"cooking_instructions"`
	CookingTips          string          `json:"cooking_tips,omitempty"`
	NutritionalInfo      NutritionalInfo `json:"nutritional_info,omitempty"`
	EstimatedCost        string          `json:"estimated_cost,omitempty"`
}

// UnmarshalJSON accepts whole number floats and numeric strings for the
// integer fields, so "servings": 4.0 decodes as 4.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	type plain Recipe
	aux := struct {
		*plain
		Servings             wholeNumber `json:"servings"`
		TotalPrepTimeMinutes wholeNumber `json:"total_prep_time_minutes"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Servings = int(aux.Servings)
	r.TotalPrepTimeMinutes = int(aux.TotalPrepTimeMinutes)
	return nil
}

// wholeNumber is an int that tolerates 4.0 and "4" but not 4.5.
type wholeNumber int

func (n *wholeNumber) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("recipe: %s is not a number", data)
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return fmt.Errorf("recipe: %s is not a whole number", data)
	}
	*n = wholeNumber(f)
	return nil
}
