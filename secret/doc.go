// Package secret resolves configuration values that hold credentials.
//
// A value may reference environment variables as ${NAME}, which must be
// set, and may be or contain a reference of the form
//
//	secretref:env:GEMINI_API_KEY
//	secretref:file:/run/secrets/gemini
//
// so the API key never has to appear in a config file. $$ is a literal $.
package secret
