package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/recipeops/cache"
)

func newFingerprintCmd() *cobra.Command {
	var (
		servings int
		diet     string
	)
	cmd := &cobra.Command{
		Use:   "fingerprint <dish name>",
		Short: "Print the cache key for a recipe request",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			fmt.Fprintln(cmd.OutOrStdout(), cache.Fingerprint(name, servings, splitComma(diet)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&servings, "servings", "s", 1, "number of servings")
	cmd.Flags().StringVarP(&diet, "diet", "d", "", "comma separated dietary restrictions")
	return cmd
}

// splitComma splits a comma separated list, dropping empty items.
func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
