package secret

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

// Resolver expands environment variables and secret references.
type Resolver struct {
	providers map[string]Provider
	strict    bool
	lookup    func(string) (string, bool)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithProvider registers p, replacing any provider with the same name.
func WithProvider(p Provider) ResolverOption {
	return func(r *Resolver) {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
}

// Strict makes empty resolved secrets an error.
func Strict() ResolverOption {
	return func(r *Resolver) { r.strict = true }
}

// NewResolver creates a resolver with the env and file providers registered.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		providers: map[string]Provider{},
		lookup:    os.LookupEnv,
	}
	WithProvider(NewEnvProvider())(r)
	WithProvider(&FileProvider{})(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve expands value. A value that is entirely a reference resolves to
// the secret verbatim; references embedded in text are substituted.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	expanded, err := expandEnv(value, r.lookup)
	if err != nil {
		return "", err
	}
	if provider, ref, ok := ParseRef(expanded); ok {
		return r.resolveRef(ctx, provider, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ParseRef splits a full secretref:<provider>:<ref> value.
func ParseRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, ok = strings.Cut(rest, ":")
	if !ok || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// IsRef reports whether value is or contains a secret reference.
func IsRef(value string) bool {
	return strings.Contains(value, refPrefix)
}

func (r *Resolver) resolveRef(ctx context.Context, name, ref string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmptySecret, name, ref)
	}
	return v, nil
}

var inlineRef = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineRef.FindAllStringSubmatchIndex(value, -1)
	out := value
	// Replace from the end so earlier indexes stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		v, err := r.resolveRef(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + v + out[m[1]:]
	}
	return out, nil
}
