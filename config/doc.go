// Package config loads recipeops settings.
//
// Settings are built from defaults, then an optional YAML file, then
// environment variables, each layer overriding the previous one. The
// Gemini API key may be a secret reference (see package secret) and is
// resolved by ResolveSecrets.
package config
