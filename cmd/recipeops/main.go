// Recipeops serves AI generated recipes scaled to a number of servings.
//
// Usage:
//
//	recipeops serve                     # run the HTTP API
//	recipeops decode response.txt       # recover JSON from model output
//	recipeops fingerprint "Pad Thai" -s 2 -d vegan
//	recipeops config show               # print the effective configuration
//	recipeops version
package main

import (
	"context"
	"os"

	"github.com/jonwraymond/recipeops/internal/cli"
)

func main() {
	os.Exit(cli.Run(context.Background(), os.Args[1:]))
}
