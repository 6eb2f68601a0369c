package recipe

import (
	"fmt"

	"github.com/jonwraymond/recipeops/decode"
)

var (
	requiredRecipeKeys     = []string{"dish_name", "servings", "total_prep_time_minutes", "ingredients", "cooking_instructions"}
	requiredIngredientKeys = []string{"name", "quantity", "unit", "category"}
)

// FromResult checks that a decoded payload carries every required recipe
// field and converts it to a Recipe.
func FromResult(res decode.Result) (Recipe, error) {
	obj, ok := res.Value.(map[string]any)
	if !ok {
		return Recipe{}, fmt.Errorf("%w: payload is %T, want object", ErrInvalidRecipe, res.Value)
	}
	if err := requireKeys(obj, requiredRecipeKeys, ""); err != nil {
		return Recipe{}, err
	}

	items, ok := obj["ingredients"].([]any)
	if !ok {
		return Recipe{}, fmt.Errorf("%w: ingredients is not a list", ErrInvalidRecipe)
	}
	for i, item := range items {
		ing, ok := item.(map[string]any)
		if !ok {
			return Recipe{}, fmt.Errorf("%w: ingredients[%d] is not an object", ErrInvalidRecipe, i)
		}
		if err := requireKeys(ing, requiredIngredientKeys, fmt.Sprintf("ingredients[%d].", i)); err != nil {
			return Recipe{}, err
		}
	}

	var r Recipe
	if err := res.Unmarshal(&r); err != nil {
		return Recipe{}, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}
	return r, nil
}

func requireKeys(obj map[string]any, keys []string, prefix string) error {
	for _, k := range keys {
		if v, ok := obj[k]; !ok || v == nil {
			return fmt.Errorf("%w: missing %s%s", ErrInvalidRecipe, prefix, k)
		}
	}
	return nil
}
