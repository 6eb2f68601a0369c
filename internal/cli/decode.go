package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/recipeops/decode"
	"github.com/jonwraymond/recipeops/recipe"
)

// decodeOutput is printed by the decode command.
type decodeOutput struct {
	Outcome string          `json:"outcome"`
	Repairs []decode.Repair `json:"repairs,omitempty"`
	Value   any             `json:"value"`
}

func newDecodeCmd(opts *options) *cobra.Command {
	var asRecipe bool
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Recover JSON from model output",
		Long:  "Decode reads model output from a file or stdin, repairs it with the same pipeline the service uses and prints the recovered JSON.",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := opts.stdin
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			res, err := decode.New().Decode(cmd.Context(), string(raw))
			if err != nil {
				return err
			}

			out := decodeOutput{Outcome: res.Outcome.String(), Repairs: res.Repairs, Value: res.Value}
			if asRecipe {
				r, err := recipe.FromResult(res)
				if err != nil {
					return err
				}
				out.Value = r
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&asRecipe, "recipe", false, "also validate the value as a recipe")
	return cmd
}
