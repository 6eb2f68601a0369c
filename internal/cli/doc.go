// Package cli wires together the Cobra command tree for the recipeops binary.
//
// It defines the root command and the serve, decode, fingerprint, config and
// version subcommands, loads configuration, builds the recipe service and
// returns process exit codes.
package cli
