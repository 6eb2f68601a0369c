package recipe

import (
	"fmt"
	"strings"
)

const promptRules = `SCALE: Protein 150g/person, Veg 120g/person, Grain 80g/person. Spices scale 1.5x when doubling. Liquids scale 80%.

UNITS: grams(solids), ml(liquids), tsp(<10g). Include oil,salt,water.

CATEGORIES: protein|vegetable|grain|dairy|spice|oil|condiment|other`

// BuildPrompt renders the generation prompt for req. It is kept short to
// save output tokens for the recipe itself.
func BuildPrompt(req Request) string {
	var extras strings.Builder
	if req.CuisineType != "" {
		fmt.Fprintf(&extras, " Style:%s.", req.CuisineType)
	}
	if len(req.DietaryRestrictions) > 0 {
		fmt.Fprintf(&extras, " Diet:%s.", strings.Join(req.DietaryRestrictions, ","))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Chef recipe: %q for %d servings.%s\n\n", req.DishName, req.Servings, extras.String())
	b.WriteString(promptRules)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, `Return JSON:{"dish_name":%q,"servings":%d,"total_prep_time_minutes":0,"cuisine_type":"","difficulty":"medium",`+
		`"ingredients":[{"name":"","quantity":0,"unit":"grams","category":"","notes":""}],"cooking_instructions":[""],"cooking_tips":"",`+
		`"nutritional_info":{"calories_per_serving":0,"protein_grams":0,"carbs_grams":0,"fat_grams":0},"estimated_cost":"$0"}`,
		req.DishName, req.Servings)
	b.WriteString("\n\nShort clear steps. Pro tips. Valid JSON only.")
	return b.String()
}
