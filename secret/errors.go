package secret

import "errors"

var (
	// ErrMissingEnv means a ${NAME} or secretref:env reference is unset.
	ErrMissingEnv = errors.New("secret: environment variable not set")

	// ErrUnknownProvider means a secretref names no registered provider.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrEmptySecret means a strict resolver got an empty value.
	ErrEmptySecret = errors.New("secret: empty value")
)
